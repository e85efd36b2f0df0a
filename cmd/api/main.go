package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/vendorclaims-backend/api/routes"
	"github.com/angelmondragon/vendorclaims-backend/internal/claims"
	"github.com/angelmondragon/vendorclaims-backend/internal/listings"
	"github.com/angelmondragon/vendorclaims-backend/internal/notifications"
	"github.com/angelmondragon/vendorclaims-backend/internal/profiles"
	"github.com/angelmondragon/vendorclaims-backend/internal/reconciliation"
	stripewebhook "github.com/angelmondragon/vendorclaims-backend/internal/webhooks/stripe"
	"github.com/angelmondragon/vendorclaims-backend/pkg/config"
	"github.com/angelmondragon/vendorclaims-backend/pkg/db"
	"github.com/angelmondragon/vendorclaims-backend/pkg/discord"
	"github.com/angelmondragon/vendorclaims-backend/pkg/logger"
	"github.com/angelmondragon/vendorclaims-backend/pkg/metrics"
	"github.com/angelmondragon/vendorclaims-backend/pkg/migrate"
	"github.com/angelmondragon/vendorclaims-backend/pkg/redis"
	"github.com/angelmondragon/vendorclaims-backend/pkg/sendgrid"
	pkgstripe "github.com/angelmondragon/vendorclaims-backend/pkg/stripe"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})
	ctx := context.Background()

	dbClient, err := db.New(ctx, cfg.DB, logg)
	requireResource(ctx, logg, "database", err)
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(ctx, "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		logg.Error(ctx, "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	requireResource(ctx, logg, "redis", err)
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(ctx, "error closing redis", err)
		}
	}()

	stripeClient, err := pkgstripe.NewClient(ctx, cfg.Stripe, logg)
	requireResource(ctx, logg, "stripe client", err)

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	reconMetrics := metrics.NewReconciliationMetrics(registry)

	listingRepo := listings.NewRepository(dbClient.DB())
	profileRepo := profiles.NewRepository(dbClient.DB())
	claimRepo := claims.NewRepository(dbClient.DB())

	dispatcherParams := notifications.DispatcherParams{
		Listings: listingRepo,
		SiteURL:  cfg.App.SiteURL,
		Logger:   logg,
		Metrics:  reconMetrics,
	}
	if cfg.Sendgrid.Enabled() {
		mailer, err := sendgrid.NewMailer(cfg.Sendgrid)
		requireResource(ctx, logg, "sendgrid mailer", err)
		dispatcherParams.Email = mailer
		dispatcherParams.AdminEmail = cfg.Sendgrid.AdminEmail
	} else {
		logg.Warn(ctx, "sendgrid not configured; admin upgrade emails disabled")
	}
	if cfg.Discord.WebhookURL != "" {
		chat, err := discord.NewClient(cfg.Discord.WebhookURL, discord.WithTimeout(cfg.Discord.Timeout))
		requireResource(ctx, logg, "discord webhook", err)
		dispatcherParams.Chat = chat
	} else {
		logg.Warn(ctx, "discord webhook not configured; purchase chat messages disabled")
	}
	dispatcher, err := notifications.NewDispatcher(dispatcherParams)
	requireResource(ctx, logg, "notification dispatcher", err)

	resolver, err := reconciliation.NewResolver(reconciliation.ResolverParams{
		Listings:  listingRepo,
		Profiles:  profileRepo,
		LineItems: stripeClient,
		Logger:    logg,
		Metrics:   reconMetrics,
	})
	requireResource(ctx, logg, "identity resolver", err)

	executor, err := reconciliation.NewExecutor(reconciliation.ExecutorParams{
		Claims:   claimRepo,
		Listings: listingRepo,
		Profiles: profileRepo,
		Logger:   logg,
	})
	requireResource(ctx, logg, "claim executor", err)

	reconService, err := reconciliation.NewService(reconciliation.ServiceParams{
		Resolver: resolver,
		Executor: executor,
		Listings: listingRepo,
		Profiles: profileRepo,
		Notifier: dispatcher,
		Logger:   logg,
		Metrics:  reconMetrics,
	})
	requireResource(ctx, logg, "reconciliation service", err)

	webhookService, err := stripewebhook.NewService(stripewebhook.ServiceParams{
		Reconciler: reconService,
		Logger:     logg,
	})
	requireResource(ctx, logg, "stripe webhook service", err)

	webhookGuard, err := stripewebhook.NewIdempotencyGuard(redisClient, cfg.Webhook.IdempotencyTTL, stripewebhook.IdempotencyScope)
	requireResource(ctx, logg, "stripe webhook guard", err)

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx = logg.WithFields(ctx, map[string]any{
		"env":        cfg.App.Env,
		"addr":       addr,
		"stripe_env": stripeClient.Environment(),
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(
			cfg,
			logg,
			dbClient,
			redisClient,
			promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
			stripeClient,
			webhookService,
			webhookGuard,
		),
		ReadHeaderTimeout: 10 * time.Second,
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}

func requireResource(ctx context.Context, logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, "failed to bootstrap "+resource, err)
	os.Exit(1)
}
