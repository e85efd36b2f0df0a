package sendgrid

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sendgrid/rest"
	sg "github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/angelmondragon/vendorclaims-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/vendorclaims-backend/pkg/errors"
)

const defaultFromName = "Vendor Directory"

var (
	errAPIKeyRequired = errors.New("sendgrid api key is required")
	errFromRequired   = errors.New("sendgrid from address is required")
)

// Message is a single outbound email.
type Message struct {
	To      string
	Subject string
	Text    string
	HTML    string
}

type sender interface {
	SendWithContext(ctx context.Context, email *mail.SGMailV3) (*rest.Response, error)
}

// Mailer sends transactional email through SendGrid.
type Mailer struct {
	client   sender
	from     *mail.Email
	fromName string
}

// Option configures optional mailer behavior.
type Option func(*Mailer)

// WithFromName overrides the display name on outgoing mail.
func WithFromName(name string) Option {
	return func(m *Mailer) {
		if strings.TrimSpace(name) != "" {
			m.fromName = strings.TrimSpace(name)
		}
	}
}

func withSender(s sender) Option {
	return func(m *Mailer) {
		if s != nil {
			m.client = s
		}
	}
}

// NewMailer builds a SendGrid mailer from config.
func NewMailer(cfg config.SendgridConfig, opts ...Option) (*Mailer, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, errAPIKeyRequired
	}
	from := strings.TrimSpace(cfg.DefaultFrom)
	if from == "" {
		return nil, errFromRequired
	}

	m := &Mailer{
		client:   sg.NewSendClient(apiKey),
		fromName: defaultFromName,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}
	m.from = mail.NewEmail(m.fromName, from)
	return m, nil
}

// Send delivers msg. Non-2xx responses are returned as dependency errors.
func (m *Mailer) Send(ctx context.Context, msg Message) error {
	if m == nil || m.client == nil {
		return pkgerrors.New(pkgerrors.CodeDependency, "sendgrid mailer not configured")
	}
	to := strings.TrimSpace(msg.To)
	if to == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "recipient is required")
	}
	if strings.TrimSpace(msg.Subject) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "subject is required")
	}

	email := mail.NewSingleEmail(m.from, msg.Subject, mail.NewEmail("", to), msg.Text, msg.HTML)
	resp, err := m.client.SendWithContext(ctx, email)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "send email")
	}
	if resp == nil {
		return pkgerrors.New(pkgerrors.CodeDependency, "send email: empty response")
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(resp.Body)), "send email failed")
	}
	return nil
}
