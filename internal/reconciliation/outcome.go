package reconciliation

import (
	"net/http"

	"github.com/google/uuid"
)

// OutcomeKind is the closed set of results a checkout reconciliation can end in.
type OutcomeKind string

const (
	OutcomeProcessed                   OutcomeKind = "processed"
	OutcomePendingSignup               OutcomeKind = "pending_signup"
	OutcomeMissingMetadata             OutcomeKind = "missing_metadata"
	OutcomeMultiplePendingClaimMatches OutcomeKind = "multiple_pending_claim_matches"
	OutcomeWriteFailed                 OutcomeKind = "write_failed"
)

// Reasons refine an outcome for logs and metrics.
const (
	ReasonInvalidEvent        = "invalid_event"
	ReasonIncompleteMetadata  = "incomplete_metadata"
	ReasonListingNotFound     = "listing_not_found"
	ReasonVendorUndetermined  = "vendor_undetermined"
	ReasonVendorMissing       = "vendor_missing"
	ReasonListingAlreadyOwned = "listing_already_owned"
	ReasonDuplicateSession    = "duplicate_session"
)

const (
	missingMetadataMessage = "Stripe checkout session is missing listing metadata. Please reconcile this payment manually and update pending_claim_email if necessary."
	multipleMatchesMessage = "Multiple listings found for this payment email. Please reconcile manually and clear duplicate pending_claim_email entries."
	pendingSignupMessage   = "Payment received, awaiting user account creation"
)

// Status is the HTTP status the webhook answers with. Only write failures ask
// the provider to retry.
func (k OutcomeKind) Status() int {
	if k == OutcomeWriteFailed {
		return http.StatusInternalServerError
	}
	return http.StatusOK
}

func (k OutcomeKind) String() string {
	return string(k)
}

// Outcome is the value every reconciliation returns.
type Outcome struct {
	Kind    OutcomeKind
	Reason  string
	Payload map[string]any
	Status  int
	Context Resolution
	Err     error
}

// Retryable reports whether the provider should redeliver the event.
func (o Outcome) Retryable() bool {
	return o.Kind == OutcomeWriteFailed
}

func (o Outcome) metricLabel() string {
	if o.Reason == ReasonVendorMissing {
		return ReasonVendorMissing
	}
	return o.Kind.String()
}

// Diagnostic is everything an operator needs to reconcile a payment by hand.
type Diagnostic struct {
	VendorID          string            `json:"vendorId,omitempty"`
	ListingID         string            `json:"listingId,omitempty"`
	Plan              string            `json:"plan,omitempty"`
	BillingCycle      string            `json:"billingCycle,omitempty"`
	ClientReferenceID string            `json:"clientReferenceId,omitempty"`
	CustomerEmail     string            `json:"customerEmail,omitempty"`
	AllMetadata       map[string]string `json:"allMetadata,omitempty"`
	SessionID         string            `json:"sessionId"`
}

func newDiagnostic(res Resolution, ev CheckoutEvent) Diagnostic {
	d := Diagnostic{
		Plan:              res.Plan,
		BillingCycle:      res.BillingCycle,
		ClientReferenceID: ev.ClientReferenceID,
		CustomerEmail:     ev.NormalizedEmail(),
		AllMetadata:       ev.Metadata,
		SessionID:         ev.SessionID,
	}
	if res.HasVendor() {
		d.VendorID = res.VendorID.String()
	}
	if res.HasListing() {
		d.ListingID = res.ListingID.String()
	}
	return d
}

func newOutcome(kind OutcomeKind, reason string, res Resolution, payload map[string]any) Outcome {
	return Outcome{
		Kind:    kind,
		Reason:  reason,
		Payload: payload,
		Status:  kind.Status(),
		Context: res,
	}
}

func processedOutcome(res Resolution, duplicate bool) Outcome {
	payload := map[string]any{"received": true}
	reason := ""
	if duplicate {
		payload["duplicate"] = true
		reason = ReasonDuplicateSession
	}
	return newOutcome(OutcomeProcessed, reason, res, payload)
}

func pendingSignupOutcome(res Resolution) Outcome {
	return newOutcome(OutcomePendingSignup, "", res, map[string]any{
		"received":       true,
		"pending_signup": true,
		"message":        pendingSignupMessage,
	})
}

func pendingSkippedOutcome(res Resolution) Outcome {
	return newOutcome(OutcomePendingSignup, ReasonListingAlreadyOwned, res, map[string]any{
		"received":       true,
		"pending_signup": true,
		"skipped":        true,
		"error":          "Listing already has an owner",
	})
}

func missingMetadataOutcome(reason string, res Resolution, diag Diagnostic) Outcome {
	return newOutcome(OutcomeMissingMetadata, reason, res, map[string]any{
		"received":   true,
		"skipped":    true,
		"error":      string(OutcomeMissingMetadata),
		"reason":     reason,
		"message":    missingMetadataMessage,
		"diagnostic": diag,
	})
}

func vendorUndeterminedOutcome(res Resolution) Outcome {
	return newOutcome(OutcomeMissingMetadata, ReasonVendorUndetermined, res, map[string]any{
		"received": true,
		"error":    "Could not determine vendor",
	})
}

func multipleMatchesOutcome(res Resolution, candidates []uuid.UUID) Outcome {
	ids := make([]string, 0, len(candidates))
	for _, id := range candidates {
		ids = append(ids, id.String())
	}
	return newOutcome(OutcomeMultiplePendingClaimMatches, "", res, map[string]any{
		"received": true,
		"skipped":  true,
		"error":    string(OutcomeMultiplePendingClaimMatches),
		"message":  multipleMatchesMessage,
		"matches":  ids,
	})
}

func writeFailedOutcome(res Resolution, err error) Outcome {
	o := newOutcome(OutcomeWriteFailed, "", res, map[string]any{
		"error": "Failed to process claim",
	})
	o.Err = err
	return o
}
