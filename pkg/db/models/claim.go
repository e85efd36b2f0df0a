package models

import (
	"time"

	"github.com/google/uuid"
)

// Claim records a vendor's assertion of ownership over a listing. Rows are
// append-only; StripeSessionID is unique when present.
type Claim struct {
	ID              uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	ListingID       uuid.UUID `gorm:"column:listing_id;type:uuid;not null"`
	VendorID        uuid.UUID `gorm:"column:vendor_id;type:uuid;not null"`
	Message         string    `gorm:"column:message;not null"`
	Approved        bool      `gorm:"column:approved;not null;default:false"`
	StripeSessionID *string   `gorm:"column:stripe_session_id"`
	CreatedAt       time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (Claim) TableName() string {
	return "claims"
}
