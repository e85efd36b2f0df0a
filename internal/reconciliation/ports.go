package reconciliation

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/vendorclaims-backend/internal/listings"
	"github.com/angelmondragon/vendorclaims-backend/internal/notifications"
	"github.com/angelmondragon/vendorclaims-backend/internal/profiles"
	"github.com/angelmondragon/vendorclaims-backend/pkg/db/models"
	pkgstripe "github.com/angelmondragon/vendorclaims-backend/pkg/stripe"
)

// LineItemLister reads a checkout session's line items from the payment provider.
type LineItemLister interface {
	ListLineItems(ctx context.Context, sessionID string, limit int64) ([]pkgstripe.LineItem, error)
}

// ListingStore is the listing persistence the engine reads and writes.
type ListingStore interface {
	Exists(ctx context.Context, id uuid.UUID) (bool, error)
	FindOwnerID(ctx context.Context, id uuid.UUID) (uuid.UUID, error)
	FindByPendingClaimEmail(ctx context.Context, email string, limit int) ([]models.Listing, error)
	MarkPendingClaim(ctx context.Context, id uuid.UUID, pending listings.PendingClaim) error
	AssignOwner(ctx context.Context, id, vendorID uuid.UUID, plan string) error
}

// ProfileStore is the vendor account persistence the engine reads and writes.
type ProfileStore interface {
	Exists(ctx context.Context, id uuid.UUID) (bool, error)
	FindIDByEmail(ctx context.Context, email string) (uuid.UUID, error)
	UpdateBilling(ctx context.Context, id uuid.UUID, billing profiles.Billing) error
}

// ClaimStore inserts claims.
type ClaimStore interface {
	Create(ctx context.Context, claim *models.Claim) error
}

// Notifier announces a processed purchase. Its errors are advisory.
type Notifier interface {
	PurchaseCompleted(ctx context.Context, purchase notifications.Purchase) error
}

// Recorder receives reconciliation metrics.
type Recorder interface {
	IncOutcome(outcome string)
	IncResolution(strategy string)
	ObserveDuration(outcome string, duration time.Duration)
}
