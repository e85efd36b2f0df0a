package reconciliation

import (
	"context"
	"errors"
	"time"

	"github.com/angelmondragon/vendorclaims-backend/internal/listings"
	"github.com/angelmondragon/vendorclaims-backend/internal/notifications"
	"github.com/angelmondragon/vendorclaims-backend/pkg/db"
	pkgerrors "github.com/angelmondragon/vendorclaims-backend/pkg/errors"
	"github.com/angelmondragon/vendorclaims-backend/pkg/logger"
)

type ServiceParams struct {
	Resolver *Resolver
	Executor *Executor
	Listings ListingStore
	Profiles ProfileStore
	Notifier Notifier
	Logger   *logger.Logger
	Metrics  Recorder
	Clock    func() time.Time
}

// Service reconciles completed checkout sessions. It holds no per-event
// state and is safe for concurrent use.
type Service struct {
	resolver *Resolver
	executor *Executor
	listings ListingStore
	profiles ProfileStore
	notifier Notifier
	logg     *logger.Logger
	metrics  Recorder
	now      func() time.Time
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Resolver == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "resolver required")
	}
	if params.Executor == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "executor required")
	}
	if params.Listings == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "listing store required")
	}
	if params.Profiles == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "profile store required")
	}
	if params.Notifier == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "notifier required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "logger required")
	}
	now := params.Clock
	if now == nil {
		now = time.Now
	}
	return &Service{
		resolver: params.Resolver,
		executor: params.Executor,
		listings: params.Listings,
		profiles: params.Profiles,
		notifier: params.Notifier,
		logg:     params.Logger,
		metrics:  params.Metrics,
		now:      now,
	}, nil
}

// Process reconciles one checkout event and classifies the result. It never
// returns an error; write failures surface as OutcomeWriteFailed.
func (s *Service) Process(ctx context.Context, ev CheckoutEvent) Outcome {
	start := s.now()
	ctx = s.logg.WithSessionID(ctx, ev.SessionID)

	outcome := s.process(ctx, ev)

	if s.metrics != nil {
		s.metrics.IncOutcome(outcome.metricLabel())
		s.metrics.ObserveDuration(outcome.Kind.String(), s.now().Sub(start))
	}
	return outcome
}

func (s *Service) process(ctx context.Context, ev CheckoutEvent) Outcome {
	if err := ev.Validate(); err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "validation", pkgerrors.As(err).Details()), "checkout event failed validation")
		return missingMetadataOutcome(ReasonInvalidEvent, Resolution{}, newDiagnostic(Resolution{}, ev))
	}

	res, err := s.resolver.Resolve(ctx, ev)
	if err != nil {
		var ambiguous *AmbiguousMatchError
		if errors.As(err, &ambiguous) {
			s.logg.Warn(s.logg.WithFields(ctx, map[string]any{
				"email":   ambiguous.Email,
				"matches": ambiguous.ListingIDs,
			}), "multiple listings share the pending claim email; manual follow-up required")
			return multipleMatchesOutcome(res, ambiguous.ListingIDs)
		}
		return writeFailedOutcome(res, err)
	}

	// completeness gate
	if !res.HasListing() || !res.HasPlan() {
		diag := newDiagnostic(res, ev)
		s.logg.Warn(s.logg.WithField(ctx, "diagnostic", diag), "checkout session missing listing or plan; manual follow-up required")
		return missingMetadataOutcome(ReasonIncompleteMetadata, res, diag)
	}

	ctx = s.logg.WithListingID(ctx, res.ListingID.String())

	exists, err := s.listings.Exists(ctx, res.ListingID)
	if err != nil {
		s.logg.Error(ctx, "failed to check listing existence", err)
		return writeFailedOutcome(res, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check listing"))
	}
	if !exists {
		diag := newDiagnostic(res, ev)
		s.logg.Warn(s.logg.WithField(ctx, "diagnostic", diag), "resolved listing does not exist; manual follow-up required")
		return missingMetadataOutcome(ReasonListingNotFound, res, diag)
	}

	if !res.HasVendor() {
		return s.deferOrGiveUp(ctx, ev, res)
	}

	ctx = s.logg.WithVendorID(ctx, res.VendorID.String())
	if outcome, ok := s.guardVendor(ctx, ev, res); !ok {
		return outcome
	}

	result, err := s.executor.Apply(ctx, Transition{
		ListingID:    res.ListingID,
		VendorID:     res.VendorID,
		Plan:         res.Plan,
		BillingCycle: res.BillingCycle,
		SessionID:    ev.SessionID,
		CustomerID:   ev.CustomerID,
	})
	if err != nil {
		s.logg.Error(s.logg.WithFields(ctx, res.Fields()), "checkout state transition failed", err)
		return writeFailedOutcome(res, err)
	}

	if result.Duplicate {
		return processedOutcome(res, true)
	}

	if err := s.notifier.PurchaseCompleted(ctx, notifications.Purchase{
		ListingID:     res.ListingID,
		VendorID:      res.VendorID,
		Plan:          res.Plan,
		BillingCycle:  res.BillingCycle,
		AmountTotal:   ev.AmountTotal,
		CustomerName:  ev.CustomerName,
		CustomerEmail: ev.NormalizedEmail(),
		SessionID:     ev.SessionID,
	}); err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "purchase notification failed")
	}

	return processedOutcome(res, false)
}

// deferOrGiveUp handles a listing and plan with no vendor account: park the
// purchase on the listing when an email is known.
func (s *Service) deferOrGiveUp(ctx context.Context, ev CheckoutEvent, res Resolution) Outcome {
	email := ev.NormalizedEmail()
	if email == "" {
		s.logg.Error(s.logg.WithFields(ctx, res.Fields()), "could not determine vendor and no purchaser email", nil)
		return vendorUndeterminedOutcome(res)
	}

	err := s.listings.MarkPendingClaim(ctx, res.ListingID, listings.PendingClaim{
		Plan:      res.Plan,
		Email:     email,
		SessionID: ev.SessionID,
	})
	switch {
	case err == nil:
		s.logg.Info(ctx, "stored pending claim; awaiting account creation")
		return pendingSignupOutcome(res)
	case errors.Is(err, listings.ErrListingOwned):
		s.logg.Warn(ctx, "listing already has an owner; pending claim not stored")
		return pendingSkippedOutcome(res)
	case db.IsNotFound(err):
		diag := newDiagnostic(res, ev)
		s.logg.Warn(s.logg.WithField(ctx, "diagnostic", diag), "listing disappeared before pending claim was stored")
		return missingMetadataOutcome(ReasonListingNotFound, res, diag)
	default:
		s.logg.Error(ctx, "failed to store pending claim", err)
		return writeFailedOutcome(res, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "store pending claim"))
	}
}

// guardVendor confirms the resolved vendor account exists. A missing account
// is an inconsistency: it is escalated but acknowledged, since redelivery
// cannot repair it.
func (s *Service) guardVendor(ctx context.Context, ev CheckoutEvent, res Resolution) (Outcome, bool) {
	exists, err := s.profiles.Exists(ctx, res.VendorID)
	if err != nil {
		s.logg.Error(ctx, "failed to verify vendor account", err)
		return writeFailedOutcome(res, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "verify vendor")), false
	}
	if exists {
		return Outcome{}, true
	}

	diag := newDiagnostic(res, ev)
	inconsistency := pkgerrors.New(pkgerrors.CodeInconsistent, "resolved vendor has no profile").WithDetails(diag)
	s.logg.Error(s.logg.WithField(ctx, "diagnostic", diag), "vendor does not exist in profiles; account sync may have failed", inconsistency)

	outcome := missingMetadataOutcome(ReasonVendorMissing, res, diag)
	outcome.Err = inconsistency
	return outcome, false
}
