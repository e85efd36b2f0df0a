package repo

import (
	"context"
	"time"

	"gorm.io/gorm"
)

// Base provides a shared foundation for domain repositories.
type Base struct {
	db  *gorm.DB
	now func() time.Time
}

// NewBase constructs a Base repository backed by the provided GORM connection.
func NewBase(db *gorm.DB) Base {
	return Base{db: db, now: time.Now}
}

// WithClock returns a copy of b that stamps writes using now.
func (b Base) WithClock(now func() time.Time) Base {
	if now != nil {
		b.now = now
	}
	return b
}

// DB returns the GORM connection bound to the supplied context (if any).
func (b Base) DB(ctx context.Context) *gorm.DB {
	if ctx == nil {
		return b.db
	}
	return b.db.WithContext(ctx)
}

// Now returns the current write timestamp in UTC.
func (b Base) Now() time.Time {
	if b.now == nil {
		return time.Now().UTC()
	}
	return b.now().UTC()
}
