package reconciliation

import (
	"strings"

	"github.com/stripe/stripe-go/v84"

	"github.com/angelmondragon/vendorclaims-backend/pkg/enums"
	"github.com/angelmondragon/vendorclaims-backend/pkg/validators"
)

// Metadata keys set by the checkout entry points that know their listing.
const (
	MetadataVendorID     = "vendor_id"
	MetadataListingID    = "listing_id"
	MetadataPlan         = "plan"
	MetadataBillingCycle = "billing_cycle"
)

// CheckoutEvent is the part of a completed checkout session the engine reads.
type CheckoutEvent struct {
	SessionID         string             `json:"sessionId" validate:"required"`
	Metadata          map[string]string  `json:"metadata,omitempty"`
	ClientReferenceID string             `json:"clientReferenceId,omitempty"`
	CustomerEmail     string             `json:"customerEmail,omitempty"`
	CustomerName      string             `json:"customerName,omitempty"`
	CustomerID        string             `json:"customerId,omitempty"`
	AmountTotal       int64              `json:"amountTotal" validate:"gte=0"`
	Mode              enums.CheckoutMode `json:"mode,omitempty" validate:"omitempty,oneof=payment subscription setup"`
}

// EventFromSession maps a decoded Stripe checkout session. The purchaser email
// comes from customer_details and falls back to the top-level customer_email.
func EventFromSession(session *stripe.CheckoutSession) CheckoutEvent {
	if session == nil {
		return CheckoutEvent{}
	}

	ev := CheckoutEvent{
		SessionID:         session.ID,
		Metadata:          session.Metadata,
		ClientReferenceID: session.ClientReferenceID,
		CustomerEmail:     session.CustomerEmail,
		AmountTotal:       session.AmountTotal,
		Mode:              enums.CheckoutMode(session.Mode),
	}
	if details := session.CustomerDetails; details != nil {
		if strings.TrimSpace(details.Email) != "" {
			ev.CustomerEmail = details.Email
		}
		ev.CustomerName = details.Name
	}
	if session.Customer != nil {
		ev.CustomerID = session.Customer.ID
	}
	return ev
}

// Validate checks the structural fields of the event.
func (e CheckoutEvent) Validate() error {
	return validators.Struct(e)
}

// NormalizedEmail is the purchaser email trimmed and lower-cased, used for
// every lookup.
func (e CheckoutEvent) NormalizedEmail() string {
	return strings.ToLower(strings.TrimSpace(e.CustomerEmail))
}

func (e CheckoutEvent) metadataValue(key string) string {
	if e.Metadata == nil {
		return ""
	}
	return strings.TrimSpace(e.Metadata[key])
}
