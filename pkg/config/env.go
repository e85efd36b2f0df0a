package config

const (
	EnvPrefix = "VENDORCLAIMS"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvAppEnv       = "VENDORCLAIMS_APP_ENV"
	EnvPort         = "VENDORCLAIMS_APP_PORT"
	EnvLogLevel     = "VENDORCLAIMS_LOG_LEVEL"
	EnvLogWarnStack = "VENDORCLAIMS_LOG_WARN_STACK"
	EnvSiteURL      = "VENDORCLAIMS_SITE_URL"

	EnvDBDSN      = "VENDORCLAIMS_DB_DSN"
	EnvDBHost     = "VENDORCLAIMS_DB_HOST"
	EnvDBPort     = "VENDORCLAIMS_DB_PORT"
	EnvDBUser     = "VENDORCLAIMS_DB_USER"
	EnvDBPassword = "VENDORCLAIMS_DB_PASSWORD"
	EnvDBName     = "VENDORCLAIMS_DB_NAME"

	EnvRedisURL = "VENDORCLAIMS_REDIS_URL"

	EnvAutoMigrate = "VENDORCLAIMS_AUTO_MIGRATE"

	EnvStripeAPIKey = "VENDORCLAIMS_STRIPE_API_KEY"
	EnvStripeSecret = "VENDORCLAIMS_STRIPE_SECRET"
	EnvStripeEnv    = "VENDORCLAIMS_STRIPE_ENV"

	EnvWebhookIdempotencyTTL = "VENDORCLAIMS_WEBHOOK_IDEMPOTENCY_TTL"
	EnvWebhookMaxBodyBytes   = "VENDORCLAIMS_WEBHOOK_MAX_BODY_BYTES"

	EnvSendgridAPIKey     = "VENDORCLAIMS_SENDGRID_API_KEY"
	EnvSendgridFrom       = "VENDORCLAIMS_SENDGRID_FROM_EMAIL"
	EnvSendgridAdminEmail = "VENDORCLAIMS_SENDGRID_ADMIN_EMAIL"

	EnvDiscordWebhookURL = "VENDORCLAIMS_DISCORD_WEBHOOK_URL"
	EnvDiscordTimeout    = "VENDORCLAIMS_DISCORD_TIMEOUT"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
