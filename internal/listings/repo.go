package listings

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/vendorclaims-backend/internal/repo"
	"github.com/angelmondragon/vendorclaims-backend/pkg/db/models"
)

// ErrListingOwned is returned when a pending-claim write targets a listing
// that already has an owner.
var ErrListingOwned = errors.New("listing already has an owner")

// PendingClaim is the purchase intent parked on a listing until the
// purchaser signs up.
type PendingClaim struct {
	Plan      string
	Email     string
	SessionID string
}

// Repository handles listing persistence.
type Repository struct {
	repo.Base
}

// NewRepository binds a GORM DB to listing operations.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db)}
}

// Exists reports whether a listing row with id is present.
func (r *Repository) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	var count int64
	if err := r.DB(ctx).Model(&models.Listing{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// FindName returns the listing's display name.
func (r *Repository) FindName(ctx context.Context, id uuid.UUID) (string, error) {
	var listing models.Listing
	if err := r.DB(ctx).Select("id", "listing_name").Where("id = ?", id).First(&listing).Error; err != nil {
		return "", err
	}
	return listing.ListingName, nil
}

// FindOwnerID returns the listing's owner, or uuid.Nil when it is unclaimed.
func (r *Repository) FindOwnerID(ctx context.Context, id uuid.UUID) (uuid.UUID, error) {
	var listing models.Listing
	if err := r.DB(ctx).Select("id", "owner_id").Where("id = ?", id).First(&listing).Error; err != nil {
		return uuid.Nil, err
	}
	if !listing.HasOwner() {
		return uuid.Nil, nil
	}
	return *listing.OwnerID, nil
}

// FindByPendingClaimEmail returns at most limit listings whose pending claim
// email equals email, ignoring case.
func (r *Repository) FindByPendingClaimEmail(ctx context.Context, email string, limit int) ([]models.Listing, error) {
	normalized := strings.ToLower(strings.TrimSpace(email))
	if normalized == "" {
		return nil, nil
	}
	if limit <= 0 {
		limit = 2
	}

	var rows []models.Listing
	if err := r.DB(ctx).
		Where("pending_claim_email IS NOT NULL AND lower(pending_claim_email) = ?", normalized).
		Order("created_at ASC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// MarkPendingClaim parks the purchase intent on an unowned listing. It returns
// gorm.ErrRecordNotFound when the listing does not exist and ErrListingOwned
// when it already has an owner.
func (r *Repository) MarkPendingClaim(ctx context.Context, id uuid.UUID, pending PendingClaim) error {
	res := r.DB(ctx).
		Model(&models.Listing{}).
		Where("id = ? AND owner_id IS NULL", id).
		Updates(map[string]any{
			"plan":                pending.Plan,
			"pending_claim_email": strings.ToLower(strings.TrimSpace(pending.Email)),
			"stripe_session_id":   pending.SessionID,
			"updated_at":          r.Now(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected > 0 {
		return nil
	}

	exists, err := r.Exists(ctx, id)
	if err != nil {
		return err
	}
	if !exists {
		return gorm.ErrRecordNotFound
	}
	return ErrListingOwned
}

// AssignOwner hands the listing to vendorID on plan. Owner and claimed flag
// are written in the same statement.
func (r *Repository) AssignOwner(ctx context.Context, id, vendorID uuid.UUID, plan string) error {
	if vendorID == uuid.Nil {
		return errors.New("vendor id is required")
	}
	res := r.DB(ctx).
		Model(&models.Listing{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"owner_id":   vendorID,
			"is_claimed": true,
			"plan":       plan,
			"updated_at": r.Now(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
