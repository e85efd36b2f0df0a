package profiles

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/vendorclaims-backend/internal/repo"
	"github.com/angelmondragon/vendorclaims-backend/pkg/db/models"
)

// Billing holds the subscription columns checkout writes on a profile.
type Billing struct {
	Plan             string
	BillingCycle     string
	StripeCustomerID string
}

// Repository handles profile persistence.
type Repository struct {
	repo.Base
}

// NewRepository binds a GORM DB to profile operations.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db)}
}

// Exists reports whether a profile with id is present.
func (r *Repository) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	var count int64
	if err := r.DB(ctx).Model(&models.Profile{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// FindIDByEmail returns the id of the profile whose email matches, ignoring case.
func (r *Repository) FindIDByEmail(ctx context.Context, email string) (uuid.UUID, error) {
	normalized := strings.ToLower(strings.TrimSpace(email))
	if normalized == "" {
		return uuid.Nil, gorm.ErrRecordNotFound
	}

	var profile models.Profile
	if err := r.DB(ctx).
		Select("id").
		Where("lower(email) = ?", normalized).
		First(&profile).Error; err != nil {
		return uuid.Nil, err
	}
	return profile.ID, nil
}

// UpdateBilling writes the subscription columns. An empty customer id leaves
// the stored one untouched.
func (r *Repository) UpdateBilling(ctx context.Context, id uuid.UUID, billing Billing) error {
	updates := map[string]any{
		"subscription_plan": billing.Plan,
		"billing_cycle":     nullable(billing.BillingCycle),
		"updated_at":        r.Now(),
	}
	if customer := strings.TrimSpace(billing.StripeCustomerID); customer != "" {
		updates["stripe_customer_id"] = customer
	}

	res := r.DB(ctx).Model(&models.Profile{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func nullable(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}
