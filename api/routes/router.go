package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/vendorclaims-backend/api/controllers"
	webhookcontrollers "github.com/angelmondragon/vendorclaims-backend/api/controllers/webhooks"
	"github.com/angelmondragon/vendorclaims-backend/api/middleware"
	"github.com/angelmondragon/vendorclaims-backend/pkg/config"
	"github.com/angelmondragon/vendorclaims-backend/pkg/db"
	"github.com/angelmondragon/vendorclaims-backend/pkg/logger"
	"github.com/angelmondragon/vendorclaims-backend/pkg/redis"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisP redis.Pinger,
	metricsHandler http.Handler,
	stripeClient webhookcontrollers.SigningSecretSource,
	stripeWebhookService webhookcontrollers.StripeWebhookService,
	stripeWebhookGuard webhookcontrollers.EventGuard,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, map[string]controllers.Pinger{
			"postgres": dbP,
			"redis":    redisP,
		}))
	})

	if metricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", metricsHandler)
	}

	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.Post("/stripe", webhookcontrollers.StripeWebhook(
			stripeWebhookService,
			stripeClient,
			stripeWebhookGuard,
			cfg.Webhook.MaxBodyBytes,
			logg,
		))
	})

	return r
}
