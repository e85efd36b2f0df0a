package claims

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/vendorclaims-backend/internal/repo"
	"github.com/angelmondragon/vendorclaims-backend/pkg/db"
	"github.com/angelmondragon/vendorclaims-backend/pkg/db/models"
)

// ErrDuplicateSession is returned when a claim for the same checkout session
// was already recorded.
var ErrDuplicateSession = errors.New("claim already recorded for checkout session")

// Repository handles claim persistence. Claims are insert-only.
type Repository struct {
	repo.Base
}

// NewRepository binds a GORM DB to claim operations.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db)}
}

// Create inserts claim, assigning an id and timestamp when unset.
func (r *Repository) Create(ctx context.Context, claim *models.Claim) error {
	if claim == nil {
		return errors.New("claim is required")
	}
	if claim.ID == uuid.Nil {
		claim.ID = uuid.New()
	}
	if claim.CreatedAt.IsZero() {
		claim.CreatedAt = r.Now()
	}

	if err := r.DB(ctx).Create(claim).Error; err != nil {
		// stripe_session_id is the only unique column besides the generated id
		if db.IsUniqueViolation(err, "") {
			return ErrDuplicateSession
		}
		return err
	}
	return nil
}
