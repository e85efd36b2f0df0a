package webhooks

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/stripe/stripe-go/v84"
	"github.com/stripe/stripe-go/v84/webhook"

	"github.com/angelmondragon/vendorclaims-backend/api/responses"
	"github.com/angelmondragon/vendorclaims-backend/internal/reconciliation"
	pkgerrors "github.com/angelmondragon/vendorclaims-backend/pkg/errors"
	"github.com/angelmondragon/vendorclaims-backend/pkg/logger"
)

const signatureHeader = "Stripe-Signature"

type StripeWebhookService interface {
	HandleEvent(ctx context.Context, event *stripe.Event) (*reconciliation.Outcome, error)
}

type EventGuard interface {
	CheckAndMark(ctx context.Context, eventID string) (bool, error)
	Release(ctx context.Context, eventID string) error
}

type SigningSecretSource interface {
	SigningSecret() string
}

// StripeWebhook verifies and reconciles Stripe checkout events. Every outcome
// except a write failure is acknowledged with a 2xx so Stripe stops retrying.
func StripeWebhook(svc StripeWebhookService, client SigningSecretSource, guard EventGuard, maxBodyBytes int64, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "webhook service unavailable"))
			return
		}
		if client == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "stripe client unavailable"))
			return
		}
		if guard == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "idempotency guard unavailable"))
			return
		}

		body := r.Body
		if maxBodyBytes > 0 {
			body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
		}
		payload, err := io.ReadAll(body)
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "request body too large"))
				return
			}
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read request body"))
			return
		}

		sigHeader := r.Header.Get(signatureHeader)
		if sigHeader == "" {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeSignature, "stripe signature missing"))
			return
		}

		// the checkout session is decoded leniently, so older account API versions are accepted
		event, err := webhook.ConstructEventWithOptions(payload, sigHeader, client.SigningSecret(), webhook.ConstructEventOptions{
			IgnoreAPIVersionMismatch: true,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeSignature, err, "verify signature"))
			return
		}
		if logg != nil {
			ctx = logg.WithFields(ctx, map[string]any{"event_id": event.ID, "event_type": string(event.Type)})
		}

		alreadyProcessed, err := guard.CheckAndMark(ctx, event.ID)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check idempotency"))
			return
		}
		if alreadyProcessed {
			if logg != nil {
				logg.Info(ctx, "stripe event already delivered")
			}
			responses.WriteSuccess(w, map[string]any{"received": true, "duplicate": true})
			return
		}

		outcome, err := svc.HandleEvent(ctx, &event)
		if err != nil {
			release(ctx, guard, event.ID, logg)
			responses.WriteError(ctx, logg, w, err)
			return
		}
		if outcome == nil {
			responses.WriteSuccess(w, map[string]any{"received": true, "ignored": true})
			return
		}

		if outcome.Retryable() {
			release(ctx, guard, event.ID, logg)
			responses.WriteError(ctx, logg, w, writeFailure(outcome))
			return
		}

		if logg != nil {
			logg.Info(logg.WithFields(ctx, map[string]any{
				"outcome": outcome.Kind.String(),
				"reason":  outcome.Reason,
			}), "stripe checkout reconciled")
		}
		responses.WriteSuccessStatus(w, outcome.Status, outcome.Payload)
	}
}

// writeFailure keeps the failed step for the error log while forcing a 500.
func writeFailure(outcome *reconciliation.Outcome) error {
	failure := pkgerrors.Wrap(pkgerrors.CodeInternal, outcome.Err, "failed to process claim")
	if typed := pkgerrors.As(outcome.Err); typed != nil && typed.Details() != nil {
		failure = failure.WithDetails(typed.Details())
	}
	return failure
}

func release(ctx context.Context, guard EventGuard, eventID string, logg *logger.Logger) {
	if err := guard.Release(ctx, eventID); err != nil && logg != nil {
		logg.Error(ctx, "failed to release stripe event idempotency key", err)
	}
}
