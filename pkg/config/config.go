package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	FeatureFlags FeatureFlagsConfig
	Stripe       StripeConfig
	Webhook      WebhookConfig
	Sendgrid     SendgridConfig
	Discord      DiscordConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"VENDORCLAIMS_APP_ENV" required:"true"`
	Port         string `envconfig:"VENDORCLAIMS_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"VENDORCLAIMS_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"VENDORCLAIMS_LOG_WARN_STACK" default:"false"`
	SiteURL      string `envconfig:"VENDORCLAIMS_SITE_URL" default:"http://localhost:3000"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"VENDORCLAIMS_DB_DSN"`
	Driver string `envconfig:"VENDORCLAIMS_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"VENDORCLAIMS_DB_HOST"`
	LegacyPort     int    `envconfig:"VENDORCLAIMS_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"VENDORCLAIMS_DB_USER"`
	LegacyPassword string `envconfig:"VENDORCLAIMS_DB_PASSWORD"`
	LegacyName     string `envconfig:"VENDORCLAIMS_DB_NAME"`
	LegacySSLMode  string `envconfig:"VENDORCLAIMS_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"VENDORCLAIMS_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"VENDORCLAIMS_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"VENDORCLAIMS_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"VENDORCLAIMS_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"VENDORCLAIMS_REDIS_URL" required:"true"`
	Address      string        `envconfig:"VENDORCLAIMS_REDIS_ADDR"`
	Password     string        `envconfig:"VENDORCLAIMS_REDIS_PASSWORD"`
	DB           int           `envconfig:"VENDORCLAIMS_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"VENDORCLAIMS_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"VENDORCLAIMS_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"VENDORCLAIMS_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"VENDORCLAIMS_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"VENDORCLAIMS_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"VENDORCLAIMS_AUTO_MIGRATE" default:"false"`
}

type StripeConfig struct {
	APIKey string `envconfig:"VENDORCLAIMS_STRIPE_API_KEY"`
	Secret string `envconfig:"VENDORCLAIMS_STRIPE_SECRET"`
	Env    string `envconfig:"VENDORCLAIMS_STRIPE_ENV" default:"test"`
}

// Environment returns the normalized Stripe environment (test/live).
func (s StripeConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(s.Env))
	if env == "" {
		return "test"
	}
	return env
}

type WebhookConfig struct {
	IdempotencyTTL time.Duration `envconfig:"VENDORCLAIMS_WEBHOOK_IDEMPOTENCY_TTL" default:"72h"`
	MaxBodyBytes   int64         `envconfig:"VENDORCLAIMS_WEBHOOK_MAX_BODY_BYTES" default:"1048576"`
}

type SendgridConfig struct {
	APIKey      string `envconfig:"VENDORCLAIMS_SENDGRID_API_KEY"`
	DefaultFrom string `envconfig:"VENDORCLAIMS_SENDGRID_FROM_EMAIL"`
	AdminEmail  string `envconfig:"VENDORCLAIMS_SENDGRID_ADMIN_EMAIL"`
}

// Enabled reports whether admin emails can be delivered.
func (s SendgridConfig) Enabled() bool {
	return strings.TrimSpace(s.APIKey) != "" && strings.TrimSpace(s.AdminEmail) != ""
}

type DiscordConfig struct {
	WebhookURL string        `envconfig:"VENDORCLAIMS_DISCORD_WEBHOOK_URL"`
	Timeout    time.Duration `envconfig:"VENDORCLAIMS_DISCORD_TIMEOUT" default:"5s"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
