package models

import (
	"time"

	"github.com/google/uuid"
)

// Listing is a directory entry a vendor can claim through checkout.
// OwnerID and IsClaimed always change together.
type Listing struct {
	ID                uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	ListingName       string     `gorm:"column:listing_name;not null;default:''"`
	OwnerID           *uuid.UUID `gorm:"column:owner_id;type:uuid"`
	Plan              *string    `gorm:"column:plan"`
	IsClaimed         bool       `gorm:"column:is_claimed;not null;default:false"`
	PendingClaimEmail *string    `gorm:"column:pending_claim_email"`
	StripeSessionID   *string    `gorm:"column:stripe_session_id"`
	CreatedAt         time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

func (Listing) TableName() string {
	return "listings"
}

// HasOwner reports whether the listing has been claimed by a vendor account.
func (l *Listing) HasOwner() bool {
	return l != nil && l.OwnerID != nil && *l.OwnerID != uuid.Nil
}
