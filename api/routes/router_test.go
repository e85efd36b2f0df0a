package routes

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stripe/stripe-go/v84"

	"github.com/angelmondragon/vendorclaims-backend/internal/reconciliation"
	"github.com/angelmondragon/vendorclaims-backend/pkg/config"
	"github.com/angelmondragon/vendorclaims-backend/pkg/logger"
	"github.com/angelmondragon/vendorclaims-backend/pkg/metrics"
)

type stubPinger struct {
	err error
}

func (s stubPinger) Ping(context.Context) error {
	return s.err
}

type stubSigner struct{}

func (stubSigner) SigningSecret() string { return "whsec_router" }

type stubWebhookService struct{}

func (stubWebhookService) HandleEvent(context.Context, *stripe.Event) (*reconciliation.Outcome, error) {
	return nil, nil
}

type stubGuard struct{}

func (stubGuard) CheckAndMark(context.Context, string) (bool, error) { return false, nil }
func (stubGuard) Release(context.Context, string) error             { return nil }

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	cfg := &config.Config{
		App:     config.AppConfig{Env: "dev"},
		Webhook: config.WebhookConfig{IdempotencyTTL: time.Hour, MaxBodyBytes: 1 << 20},
	}
	logg := logger.New(logger.Options{ServiceName: "test", Output: &bytes.Buffer{}})

	reg := prometheus.NewRegistry()
	m := metrics.NewReconciliationMetrics(reg)
	m.IncOutcome("processed")

	return NewRouter(
		cfg,
		logg,
		stubPinger{},
		stubPinger{},
		promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		stubSigner{},
		stubWebhookService{},
		stubGuard{},
	)
}

func TestRouterHealthAndMetrics(t *testing.T) {
	router := newTestRouter(t)

	for _, path := range []string{"/health/live", "/health/ready"} {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("%s: expected 200, got %d", path, rec.Code)
		}
		if rec.Header().Get("X-Request-Id") == "" {
			t.Fatalf("%s: expected request id header", path)
		}
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected metrics 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "checkout_reconciliation_outcomes_total") {
		t.Fatalf("expected reconciliation metrics, got %s", rec.Body.String())
	}
}

func TestRouterWebhookRequiresSignature(t *testing.T) {
	router := newTestRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/stripe", strings.NewReader(`{}`)))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without signature, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "SIGNATURE_INVALID") {
		t.Fatalf("unexpected body %s", rec.Body.String())
	}
}

func TestRouterUnknownRoute(t *testing.T) {
	router := newTestRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/orders", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}
