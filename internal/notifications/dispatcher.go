package notifications

import (
	"context"
	"fmt"
	"html"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/multierr"

	"github.com/angelmondragon/vendorclaims-backend/pkg/discord"
	pkgerrors "github.com/angelmondragon/vendorclaims-backend/pkg/errors"
	"github.com/angelmondragon/vendorclaims-backend/pkg/logger"
	"github.com/angelmondragon/vendorclaims-backend/pkg/sendgrid"
)

const (
	ChannelEmail = "email"
	ChannelChat  = "chat"

	purchaseCompletedTitle = "💳 Purchase Completed"
)

// ListingNames resolves a listing's display name.
type ListingNames interface {
	FindName(ctx context.Context, id uuid.UUID) (string, error)
}

// EmailSender delivers a single email.
type EmailSender interface {
	Send(ctx context.Context, msg sendgrid.Message) error
}

// ChatSender posts a single embed to the ops chat.
type ChatSender interface {
	Send(ctx context.Context, embed discord.Embed) error
}

// FailureRecorder counts failed deliveries per channel.
type FailureRecorder interface {
	IncNotificationFailure(channel string)
}

// Purchase carries what the notifications need about a processed checkout.
type Purchase struct {
	ListingID     uuid.UUID
	VendorID      uuid.UUID
	Plan          string
	BillingCycle  string
	AmountTotal   int64
	CustomerName  string
	CustomerEmail string
	SessionID     string
}

type DispatcherParams struct {
	Listings   ListingNames
	Email      EmailSender
	Chat       ChatSender
	AdminEmail string
	SiteURL    string
	Logger     *logger.Logger
	Metrics    FailureRecorder
}

// Dispatcher sends the admin email and the ops chat message for a purchase.
// Either channel may be nil, in which case it is skipped.
type Dispatcher struct {
	listings   ListingNames
	email      EmailSender
	chat       ChatSender
	adminEmail string
	siteURL    string
	logg       *logger.Logger
	metrics    FailureRecorder
}

func NewDispatcher(params DispatcherParams) (*Dispatcher, error) {
	if params.Listings == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "listing names lookup required")
	}
	if params.Email != nil && strings.TrimSpace(params.AdminEmail) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "admin email required when email is enabled")
	}
	return &Dispatcher{
		listings:   params.Listings,
		email:      params.Email,
		chat:       params.Chat,
		adminEmail: strings.TrimSpace(params.AdminEmail),
		siteURL:    strings.TrimRight(strings.TrimSpace(params.SiteURL), "/"),
		logg:       params.Logger,
		metrics:    params.Metrics,
	}, nil
}

// PurchaseCompleted notifies the admin and then the ops chat. The chat message
// is attempted even when the admin path failed. All failures are combined in
// the returned error; callers treat it as advisory.
func (d *Dispatcher) PurchaseCompleted(ctx context.Context, p Purchase) error {
	listingLabel := p.ListingID.String()

	adminErr := d.notifyAdmin(ctx, p, &listingLabel)
	if adminErr != nil {
		listingLabel = p.ListingID.String()
		d.recordFailure(ChannelEmail)
	}

	chatErr := d.notifyChat(ctx, p, listingLabel)
	if chatErr != nil {
		d.recordFailure(ChannelChat)
	}

	err := multierr.Combine(adminErr, chatErr)
	if err == nil && d.logg != nil {
		d.logg.Info(d.logg.WithListingID(ctx, p.ListingID.String()), "purchase notifications sent")
	}
	return err
}

func (d *Dispatcher) notifyAdmin(ctx context.Context, p Purchase, label *string) error {
	name, err := d.listings.FindName(ctx, p.ListingID)
	if err != nil {
		return fmt.Errorf("lookup listing name: %w", err)
	}
	if strings.TrimSpace(name) != "" {
		*label = name
	}

	if d.email == nil {
		return nil
	}
	if err := d.email.Send(ctx, d.upgradeEmail(*label, p)); err != nil {
		return fmt.Errorf("admin email: %w", err)
	}
	return nil
}

func (d *Dispatcher) notifyChat(ctx context.Context, p Purchase, listingLabel string) error {
	if d.chat == nil {
		return nil
	}
	if err := d.chat.Send(ctx, PurchaseEmbed(p, listingLabel)); err != nil {
		return fmt.Errorf("chat message: %w", err)
	}
	return nil
}

func (d *Dispatcher) upgradeEmail(listingName string, p Purchase) sendgrid.Message {
	plan := p.Plan
	if plan == "" {
		plan = "Unknown Plan"
	}
	reviewLink := fmt.Sprintf("%s/dashboard/admin/edit/%s", d.siteURL, p.ListingID)

	cycle := ""
	if p.BillingCycle != "" {
		cycle = fmt.Sprintf(" (%s)", p.BillingCycle)
	}
	vendorLine := ""
	vendorHTML := ""
	if p.VendorID != uuid.Nil {
		vendorLine = fmt.Sprintf("Vendor ID: %s\n", p.VendorID)
		vendorHTML = fmt.Sprintf("<p>Vendor ID: %s</p>", p.VendorID)
	}

	text := fmt.Sprintf("%s upgraded to %s%s.\n%sReview listing: %s\n", listingName, plan, cycle, vendorLine, reviewLink)
	body := fmt.Sprintf(
		`<div style="font-family: Arial, sans-serif;"><h2>Listing Upgraded</h2><p><strong>%s</strong> upgraded to <strong>%s</strong>%s.</p>%s<p><a href="%s" target="_blank" rel="noopener noreferrer">Review listing</a></p></div>`,
		html.EscapeString(listingName), html.EscapeString(plan), html.EscapeString(cycle), vendorHTML, html.EscapeString(reviewLink),
	)

	return sendgrid.Message{
		To:      d.adminEmail,
		Subject: fmt.Sprintf("Listing Upgraded: %s → %s", listingName, plan),
		Text:    text,
		HTML:    body,
	}
}

// PurchaseEmbed renders the ops chat message for a purchase.
func PurchaseEmbed(p Purchase, listingLabel string) discord.Embed {
	user := firstNonEmpty(p.CustomerName, p.CustomerEmail, "Unknown")
	billing := firstNonEmpty(p.BillingCycle, "N/A")

	return discord.Embed{
		Title: purchaseCompletedTitle,
		Color: discord.ColorSuccess,
		Fields: []discord.Field{
			{Name: "User", Value: user, Inline: true},
			{Name: "Amount", Value: FormatAmount(p.AmountTotal), Inline: true},
			{Name: "Listing", Value: listingLabel},
			{Name: "Plan", Value: p.Plan, Inline: true},
			{Name: "Billing", Value: billing, Inline: true},
			{Name: "Session", Value: fmt.Sprintf("`%s`", p.SessionID)},
		},
	}
}

// FormatAmount renders minor currency units as dollars, e.g. 1234 -> "$12.34".
func FormatAmount(cents int64) string {
	return "$" + decimal.New(cents, -2).StringFixed(2)
}

func (d *Dispatcher) recordFailure(channel string) {
	if d.metrics != nil {
		d.metrics.IncNotificationFailure(channel)
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
