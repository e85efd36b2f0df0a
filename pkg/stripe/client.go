package stripe

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/stripe/stripe-go/v84"

	"github.com/angelmondragon/vendorclaims-backend/pkg/config"
	"github.com/angelmondragon/vendorclaims-backend/pkg/logger"
)

const (
	testEnv = "test"
	liveEnv = "live"
)

var (
	errAPIKeyRequired    = errors.New("stripe api key is required")
	errSecretRequired    = errors.New("stripe webhook secret is required")
	errSessionIDRequired = errors.New("checkout session id is required")
	errInvalidStripeEnv  = fmt.Errorf("stripe environment must be %q or %q", testEnv, liveEnv)
)

// LineItem is the subset of a checkout line item used to infer a plan.
type LineItem struct {
	PriceID    string
	UnitAmount int64
	Interval   string
	Quantity   int64
}

// Client wraps Stripe's API client plus env-specific metadata.
type Client struct {
	api           *stripe.Client
	environment   string
	signingSecret string
}

// Option configures optional client behavior.
type Option func(*clientOptions)

type clientOptions struct {
	backends *stripe.Backends
}

// WithBackends routes API calls through custom backends (used by tests).
func WithBackends(backends *stripe.Backends) Option {
	return func(o *clientOptions) {
		o.backends = backends
	}
}

// NewClient initializes Stripe once with the configured secrets and env.
func NewClient(ctx context.Context, cfg config.StripeConfig, logg *logger.Logger, opts ...Option) (*Client, error) {
	env, err := normalizeEnv(cfg.Environment())
	if err != nil {
		return nil, err
	}

	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, errAPIKeyRequired
	}

	signingSecret := strings.TrimSpace(cfg.Secret)
	if signingSecret == "" {
		return nil, errSecretRequired
	}

	if err := validateAPIKey(env, apiKey); err != nil {
		return nil, err
	}

	var options clientOptions
	for _, opt := range opts {
		if opt != nil {
			opt(&options)
		}
	}

	var clientOpts []stripe.ClientOption
	if options.backends != nil {
		clientOpts = append(clientOpts, stripe.WithBackends(options.backends))
	}

	api := stripe.NewClient(apiKey, clientOpts...)

	if logg != nil {
		logg.Info(ctx, fmt.Sprintf("stripe client initialized (%s)", env))
	}

	return &Client{
		api:           api,
		environment:   env,
		signingSecret: signingSecret,
	}, nil
}

// ListLineItems returns up to limit line items for the checkout session.
func (c *Client) ListLineItems(ctx context.Context, sessionID string, limit int64) ([]LineItem, error) {
	if c == nil || c.api == nil {
		return nil, errors.New("stripe client not initialized")
	}
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return nil, errSessionIDRequired
	}
	if limit <= 0 {
		limit = 1
	}

	params := &stripe.CheckoutSessionListLineItemsParams{Session: stripe.String(sessionID)}
	params.Limit = stripe.Int64(limit)

	items := make([]LineItem, 0, limit)
	for item, err := range c.api.V1CheckoutSessions.ListLineItems(ctx, params) {
		if err != nil {
			return nil, fmt.Errorf("list line items for %s: %w", sessionID, err)
		}
		items = append(items, toLineItem(item))
		if int64(len(items)) >= limit {
			break
		}
	}
	return items, nil
}

func toLineItem(item *stripe.LineItem) LineItem {
	if item == nil {
		return LineItem{}
	}
	out := LineItem{Quantity: item.Quantity}
	if item.Price == nil {
		return out
	}
	out.PriceID = item.Price.ID
	out.UnitAmount = item.Price.UnitAmount
	if item.Price.Recurring != nil {
		out.Interval = string(item.Price.Recurring.Interval)
	}
	return out
}

// Environment reports the normalized Stripe environment in use.
func (c *Client) Environment() string {
	if c == nil {
		return ""
	}
	return c.environment
}

// SigningSecret returns the webhook signing secret.
func (c *Client) SigningSecret() string {
	if c == nil {
		return ""
	}
	return c.signingSecret
}

func normalizeEnv(raw string) (string, error) {
	env := strings.TrimSpace(strings.ToLower(raw))
	if env == "" {
		env = testEnv
	}
	switch env {
	case testEnv, liveEnv:
		return env, nil
	default:
		return "", errInvalidStripeEnv
	}
}

func validateAPIKey(env, key string) error {
	switch env {
	case testEnv:
		if strings.HasPrefix(key, "sk_test") || strings.HasPrefix(key, "rk_test") {
			return nil
		}
		return fmt.Errorf("stripe environment %q requires a test secret key (sk_test/rk_test)", testEnv)
	case liveEnv:
		if strings.HasPrefix(key, "sk_live") || strings.HasPrefix(key, "rk_live") {
			return nil
		}
		return fmt.Errorf("stripe environment %q requires a live secret key (sk_live/rk_live)", liveEnv)
	default:
		return errInvalidStripeEnv
	}
}
