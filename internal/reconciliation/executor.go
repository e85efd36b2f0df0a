package reconciliation

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/angelmondragon/vendorclaims-backend/internal/claims"
	"github.com/angelmondragon/vendorclaims-backend/internal/profiles"
	"github.com/angelmondragon/vendorclaims-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/vendorclaims-backend/pkg/errors"
	"github.com/angelmondragon/vendorclaims-backend/pkg/logger"
)

// Executor steps, reported in error details.
const (
	StepInsertClaim   = "insert_claim"
	StepCheckOwner    = "check_owner"
	StepUpdateListing = "update_listing"
	StepUpdateProfile = "update_profile"
)

// Transition is a fully resolved and guarded ownership change.
type Transition struct {
	ListingID    uuid.UUID
	VendorID     uuid.UUID
	Plan         string
	BillingCycle string
	SessionID    string
	CustomerID   string
}

// ClaimMessage is the text recorded on an automatic claim.
func (t Transition) ClaimMessage() string {
	cycle := t.BillingCycle
	if cycle == "" {
		cycle = "N/A"
	}
	return fmt.Sprintf("Auto-claim via Stripe checkout - %s plan (%s)", t.Plan, cycle)
}

// ExecutionResult describes what Apply did.
type ExecutionResult struct {
	// Duplicate is set when a claim for the session already existed. The
	// listing and profile updates are re-applied only while the listing is
	// unowned or still owned by the same vendor.
	Duplicate bool
}

type ExecutorParams struct {
	Claims   ClaimStore
	Listings ListingStore
	Profiles ProfileStore
	Logger   *logger.Logger
}

// Executor performs the ordered writes of a claim: insert claim, update
// listing, update profile. There is no transaction across the steps and no
// compensation; a failed step stops the rest.
type Executor struct {
	claims   ClaimStore
	listings ListingStore
	profiles ProfileStore
	logg     *logger.Logger
}

func NewExecutor(params ExecutorParams) (*Executor, error) {
	if params.Claims == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "claim store required")
	}
	if params.Listings == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "listing store required")
	}
	if params.Profiles == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "profile store required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "logger required")
	}
	return &Executor{
		claims:   params.Claims,
		listings: params.Listings,
		profiles: params.Profiles,
		logg:     params.Logger,
	}, nil
}

// Apply runs the transition. Errors are CodeInternal with the failed step in
// their details.
func (e *Executor) Apply(ctx context.Context, t Transition) (ExecutionResult, error) {
	var result ExecutionResult

	claim := &models.Claim{
		ListingID: t.ListingID,
		VendorID:  t.VendorID,
		Message:   t.ClaimMessage(),
		Approved:  false,
	}
	if t.SessionID != "" {
		session := t.SessionID
		claim.StripeSessionID = &session
	}

	if err := e.claims.Create(ctx, claim); err != nil {
		if !errors.Is(err, claims.ErrDuplicateSession) {
			return result, stepError(StepInsertClaim, err)
		}
		result.Duplicate = true

		owner, err := e.listings.FindOwnerID(ctx, t.ListingID)
		if err != nil {
			return result, stepError(StepCheckOwner, err)
		}
		if owner != uuid.Nil && owner != t.VendorID {
			e.logg.Warn(ctx, "listing changed owner since this session; skipping re-apply")
			return result, nil
		}
		e.logg.Warn(ctx, "claim already recorded for session; re-applying listing and profile updates")
	}

	if err := e.listings.AssignOwner(ctx, t.ListingID, t.VendorID, t.Plan); err != nil {
		return result, stepError(StepUpdateListing, err)
	}

	if err := e.profiles.UpdateBilling(ctx, t.VendorID, profiles.Billing{
		Plan:             t.Plan,
		BillingCycle:     t.BillingCycle,
		StripeCustomerID: t.CustomerID,
	}); err != nil {
		return result, stepError(StepUpdateProfile, err)
	}

	e.logg.Info(ctx, "claim inserted, listing and profile updated")
	return result, nil
}

func stepError(step string, err error) error {
	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, step+" failed").
		WithDetails(map[string]any{"step": step})
}
