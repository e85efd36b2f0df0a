package enums

// CheckoutMode mirrors the payment provider's checkout session mode.
type CheckoutMode string

const (
	CheckoutModePayment      CheckoutMode = "payment"
	CheckoutModeSubscription CheckoutMode = "subscription"
	CheckoutModeSetup        CheckoutMode = "setup"
)

// String implements fmt.Stringer.
func (m CheckoutMode) String() string {
	return string(m)
}

// IsRecurring reports whether the session created a subscription.
func (m CheckoutMode) IsRecurring() bool {
	return m == CheckoutModeSubscription
}
