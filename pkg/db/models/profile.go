package models

import (
	"time"

	"github.com/google/uuid"
)

// Profile is the vendor account row. Signup creates it; checkout only
// touches the billing columns.
type Profile struct {
	ID               uuid.UUID `gorm:"type:uuid;primaryKey"`
	Email            string    `gorm:"column:email;not null"`
	FullName         *string   `gorm:"column:full_name"`
	SubscriptionPlan *string   `gorm:"column:subscription_plan"`
	BillingCycle     *string   `gorm:"column:billing_cycle"`
	StripeCustomerID *string   `gorm:"column:stripe_customer_id"`
	CreatedAt        time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (Profile) TableName() string {
	return "profiles"
}
