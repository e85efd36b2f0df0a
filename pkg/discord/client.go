package discord

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	pkgerrors "github.com/angelmondragon/vendorclaims-backend/pkg/errors"
)

const (
	defaultTimeout            = 5 * time.Second
	responseBodyReadLimit int64 = 1024

	// ColorSuccess is the embed accent used for completed purchases.
	ColorSuccess = 0x22c55e
)

var errWebhookURLRequired = errors.New("discord webhook url is required")

// Client posts embeds to a Discord-compatible incoming webhook.
type Client struct {
	httpClient *http.Client
	webhookURL string
	now        func() time.Time
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithTimeout sets the timeout of the default HTTP client.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 && c.httpClient != nil {
			c.httpClient.Timeout = timeout
		}
	}
}

// WithClock overrides the timestamp source for embeds.
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		if now != nil {
			c.now = now
		}
	}
}

// NewClient builds a webhook client for the given URL.
func NewClient(webhookURL string, opts ...Option) (*Client, error) {
	trimmed := strings.TrimSpace(webhookURL)
	if trimmed == "" {
		return nil, errWebhookURLRequired
	}

	client := &Client{
		webhookURL: trimmed,
		httpClient: &http.Client{Timeout: defaultTimeout},
		now:        time.Now,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}

	if client.httpClient == nil {
		client.httpClient = &http.Client{Timeout: defaultTimeout}
	}

	return client, nil
}

// Field is a single name/value row of an embed.
type Field struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline,omitempty"`
}

// Embed is the rich message body rendered by the chat client.
type Embed struct {
	Title       string  `json:"title"`
	Description string  `json:"description,omitempty"`
	Color       int     `json:"color,omitempty"`
	Fields      []Field `json:"fields,omitempty"`
	Timestamp   string  `json:"timestamp,omitempty"`
}

type webhookPayload struct {
	Embeds []Embed `json:"embeds"`
}

// Send posts a single embed. Any non-2xx status is returned as a dependency error.
func (c *Client) Send(ctx context.Context, embed Embed) error {
	if c == nil {
		return pkgerrors.New(pkgerrors.CodeDependency, "discord client not configured")
	}
	if strings.TrimSpace(embed.Title) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "embed title is required")
	}
	if embed.Timestamp == "" {
		embed.Timestamp = c.now().UTC().Format(time.RFC3339)
	}

	payload, err := json.Marshal(webhookPayload{Embeds: []Embed{embed}})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "marshal discord payload")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.webhookURL, bytes.NewReader(payload))
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build discord request")
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "execute discord request")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, responseBodyReadLimit))
		return pkgerrors.Wrap(pkgerrors.CodeDependency, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg))), "discord request failed")
	}
	return nil
}
