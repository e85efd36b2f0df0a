package reconciliation

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/vendorclaims-backend/pkg/db"
	pkgerrors "github.com/angelmondragon/vendorclaims-backend/pkg/errors"
	"github.com/angelmondragon/vendorclaims-backend/pkg/logger"
)

// Strategy names, also used as metric labels.
const (
	StrategyMetadata          = "metadata"
	StrategyClientReference   = "client_reference"
	StrategyLineItems         = "line_items"
	StrategyListingOwner      = "listing_owner"
	StrategyProfileEmail      = "profile_email"
	StrategyPendingClaimEmail = "pending_claim_email"

	pendingClaimMatchLimit = 2
	lineItemLimit          = 1
)

// ErrMultiplePendingClaimMatches marks an email that matches more than one
// listing's pending claim.
var ErrMultiplePendingClaimMatches = errors.New("multiple pending claim matches")

// AmbiguousMatchError carries the candidate listings of an ambiguous
// pending-claim lookup.
type AmbiguousMatchError struct {
	Email      string
	ListingIDs []uuid.UUID
}

func (e *AmbiguousMatchError) Error() string {
	return fmt.Sprintf("%s for %s: %d candidates", ErrMultiplePendingClaimMatches, e.Email, len(e.ListingIDs))
}

func (e *AmbiguousMatchError) Is(target error) bool {
	return target == ErrMultiplePendingClaimMatches
}

// Resolution is the best-effort identity of a checkout. Zero values are unresolved.
type Resolution struct {
	VendorID     uuid.UUID
	ListingID    uuid.UUID
	Plan         string
	BillingCycle string
}

func (r Resolution) HasVendor() bool  { return r.VendorID != uuid.Nil }
func (r Resolution) HasListing() bool { return r.ListingID != uuid.Nil }
func (r Resolution) HasPlan() bool    { return r.Plan != "" }

// Fields renders the resolution for logs and payloads; unresolved fields are omitted.
func (r Resolution) Fields() map[string]any {
	fields := map[string]any{}
	if r.HasVendor() {
		fields["vendorId"] = r.VendorID.String()
	}
	if r.HasListing() {
		fields["listingId"] = r.ListingID.String()
	}
	if r.Plan != "" {
		fields["plan"] = r.Plan
	}
	if r.BillingCycle != "" {
		fields["billingCycle"] = r.BillingCycle
	}
	return fields
}

type strategy struct {
	name string
	run  func(ctx context.Context, res *Resolution, ev CheckoutEvent) error
}

type ResolverParams struct {
	Listings  ListingStore
	Profiles  ProfileStore
	LineItems LineItemLister
	Logger    *logger.Logger
	Metrics   Recorder
}

// Resolver runs the ordered identity strategies. Each strategy only fills
// fields that are still unresolved, so earlier evidence always wins.
type Resolver struct {
	listings   ListingStore
	profiles   ProfileStore
	lineItems  LineItemLister
	logg       *logger.Logger
	metrics    Recorder
	strategies []strategy
}

// NewResolver wires the resolver. LineItems may be nil, in which case
// price inspection is skipped.
func NewResolver(params ResolverParams) (*Resolver, error) {
	if params.Listings == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "listing store required")
	}
	if params.Profiles == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "profile store required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "logger required")
	}

	r := &Resolver{
		listings:  params.Listings,
		profiles:  params.Profiles,
		lineItems: params.LineItems,
		logg:      params.Logger,
		metrics:   params.Metrics,
	}
	r.strategies = []strategy{
		{name: StrategyMetadata, run: r.fromMetadata},
		{name: StrategyClientReference, run: r.fromClientReference},
		{name: StrategyLineItems, run: r.fromLineItems},
		{name: StrategyListingOwner, run: r.fromListingOwner},
		{name: StrategyProfileEmail, run: r.fromProfileEmail},
		{name: StrategyPendingClaimEmail, run: r.fromPendingClaimEmail},
	}
	return r, nil
}

// Resolve returns whatever could be determined about the event. The only
// error it returns is an *AmbiguousMatchError; lookup failures leave fields
// unresolved.
func (r *Resolver) Resolve(ctx context.Context, ev CheckoutEvent) (Resolution, error) {
	var res Resolution
	for _, s := range r.strategies {
		before := res
		if err := s.run(ctx, &res, ev); err != nil {
			return res, err
		}
		if res != before {
			r.recordResolution(s.name)
			r.logg.Info(r.logg.WithFields(ctx, withStrategy(res.Fields(), s.name)), "checkout identity resolved")
		}
	}
	return res, nil
}

func (r *Resolver) fromMetadata(ctx context.Context, res *Resolution, ev CheckoutEvent) error {
	if raw := ev.metadataValue(MetadataVendorID); raw != "" {
		if id, ok := r.parseID(ctx, MetadataVendorID, raw); ok {
			res.VendorID = id
		}
	}
	if raw := ev.metadataValue(MetadataListingID); raw != "" {
		if id, ok := r.parseID(ctx, MetadataListingID, raw); ok {
			res.ListingID = id
		}
	}
	res.Plan = ev.metadataValue(MetadataPlan)
	res.BillingCycle = ev.metadataValue(MetadataBillingCycle)
	return nil
}

func (r *Resolver) fromClientReference(ctx context.Context, res *Resolution, ev CheckoutEvent) error {
	if res.HasListing() {
		return nil
	}
	raw := strings.TrimSpace(ev.ClientReferenceID)
	if raw == "" {
		return nil
	}
	if id, ok := r.parseID(ctx, "client_reference_id", raw); ok {
		res.ListingID = id
	}
	return nil
}

func (r *Resolver) fromLineItems(ctx context.Context, res *Resolution, ev CheckoutEvent) error {
	if res.HasPlan() || !ev.Mode.IsRecurring() {
		return nil
	}
	if r.lineItems == nil {
		r.logg.Warn(ctx, "plan unresolved and line item lookup is not configured")
		return nil
	}

	items, err := r.lineItems.ListLineItems(ctx, ev.SessionID, lineItemLimit)
	if err != nil {
		r.logg.Error(ctx, "failed to list checkout line items", err)
		return nil
	}
	if len(items) == 0 {
		return nil
	}

	first := items[0]
	logCtx := r.logg.WithFields(ctx, map[string]any{
		"price_id":       first.PriceID,
		"unit_amount":    first.UnitAmount,
		"price_interval": first.Interval,
	})
	point, ok := LookupPrice(first.UnitAmount)
	if !ok {
		r.logg.Warn(logCtx, "line item amount does not match a known plan")
		return nil
	}
	// the price decides both plan and cycle
	res.Plan = point.Plan.String()
	res.BillingCycle = point.BillingCycle.String()
	return nil
}

func (r *Resolver) fromListingOwner(ctx context.Context, res *Resolution, _ CheckoutEvent) error {
	if !res.HasListing() || res.HasVendor() {
		return nil
	}
	owner, err := r.listings.FindOwnerID(ctx, res.ListingID)
	switch {
	case db.IsNotFound(err):
		r.logg.Info(r.logg.WithListingID(ctx, res.ListingID.String()), "listing not found for owner lookup")
		return nil
	case err != nil:
		r.logg.Error(r.logg.WithListingID(ctx, res.ListingID.String()), "failed to look up listing owner", err)
		return nil
	}
	if owner != uuid.Nil {
		res.VendorID = owner
	}
	return nil
}

func (r *Resolver) fromProfileEmail(ctx context.Context, res *Resolution, ev CheckoutEvent) error {
	email := ev.NormalizedEmail()
	if res.HasVendor() || email == "" {
		return nil
	}
	id, err := r.profiles.FindIDByEmail(ctx, email)
	switch {
	case db.IsNotFound(err):
		r.logg.Info(ctx, "no account for purchaser email yet")
		return nil
	case err != nil:
		r.logg.Error(ctx, "failed to look up account by email", err)
		return nil
	}
	res.VendorID = id
	return nil
}

func (r *Resolver) fromPendingClaimEmail(ctx context.Context, res *Resolution, ev CheckoutEvent) error {
	email := ev.NormalizedEmail()
	if res.HasListing() || email == "" {
		return nil
	}
	rows, err := r.listings.FindByPendingClaimEmail(ctx, email, pendingClaimMatchLimit)
	if err != nil {
		r.logg.Error(ctx, "failed to check pending claim email", err)
		return nil
	}

	switch len(rows) {
	case 0:
		return nil
	case 1:
		match := rows[0]
		res.ListingID = match.ID
		if !res.HasVendor() && match.HasOwner() {
			res.VendorID = *match.OwnerID
		}
		if !res.HasPlan() && match.Plan != nil {
			res.Plan = *match.Plan
		}
		return nil
	default:
		ids := make([]uuid.UUID, 0, len(rows))
		for _, row := range rows {
			ids = append(ids, row.ID)
		}
		return &AmbiguousMatchError{Email: email, ListingIDs: ids}
	}
}

func (r *Resolver) parseID(ctx context.Context, field, raw string) (uuid.UUID, bool) {
	id, err := uuid.Parse(raw)
	if err != nil || id == uuid.Nil {
		r.logg.Warn(r.logg.WithFields(ctx, map[string]any{"field": field, "value": raw}), "ignoring malformed id")
		return uuid.Nil, false
	}
	return id, true
}

func (r *Resolver) recordResolution(name string) {
	if r.metrics != nil {
		r.metrics.IncResolution(name)
	}
}

func withStrategy(fields map[string]any, name string) map[string]any {
	fields["strategy"] = name
	return fields
}
