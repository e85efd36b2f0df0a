package stripewebhook

import (
	"context"
	"encoding/json"

	"github.com/stripe/stripe-go/v84"

	"github.com/angelmondragon/vendorclaims-backend/internal/reconciliation"
	pkgerrors "github.com/angelmondragon/vendorclaims-backend/pkg/errors"
	"github.com/angelmondragon/vendorclaims-backend/pkg/logger"
)

type checkoutReconciler interface {
	Process(ctx context.Context, ev reconciliation.CheckoutEvent) reconciliation.Outcome
}

type ServiceParams struct {
	Reconciler checkoutReconciler
	Logger     *logger.Logger
}

// Service routes verified Stripe events to the checkout reconciliation engine.
type Service struct {
	reconciler checkoutReconciler
	logg       *logger.Logger
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Reconciler == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "checkout reconciler required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "logger required")
	}
	return &Service{
		reconciler: params.Reconciler,
		logg:       params.Logger,
	}, nil
}

// HandleEvent reconciles checkout.session.completed events. A nil outcome
// with a nil error means the event type is not handled here.
func (s *Service) HandleEvent(ctx context.Context, event *stripe.Event) (*reconciliation.Outcome, error) {
	if event == nil || event.Data == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "stripe event data required")
	}

	switch event.Type {
	case stripe.EventTypeCheckoutSessionCompleted:
		var session stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode checkout session")
		}

		ctx = s.logg.WithField(ctx, "event_id", event.ID)
		outcome := s.reconciler.Process(ctx, reconciliation.EventFromSession(&session))
		return &outcome, nil
	default:
		s.logg.Info(s.logg.WithFields(ctx, map[string]any{
			"event_id":   event.ID,
			"event_type": string(event.Type),
		}), "ignoring stripe event type")
		return nil, nil
	}
}
