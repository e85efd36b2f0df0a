package listings

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/vendorclaims-backend/internal/repo/repotest"
	"github.com/angelmondragon/vendorclaims-backend/pkg/db/models"
)

func strPtr(v string) *string { return &v }

func seedListing(t *testing.T, db *gorm.DB, listing models.Listing) models.Listing {
	t.Helper()
	if listing.ID == uuid.Nil {
		listing.ID = uuid.New()
	}
	require.NoError(t, db.Create(&listing).Error)
	return listing
}

func loadListing(t *testing.T, db *gorm.DB, id uuid.UUID) models.Listing {
	t.Helper()
	var listing models.Listing
	require.NoError(t, db.First(&listing, "id = ?", id).Error)
	return listing
}

func TestFindOwnerID(t *testing.T) {
	db := repotest.Open(t)
	repo := NewRepository(db)
	ctx := context.Background()

	owner := uuid.New()
	owned := seedListing(t, db, models.Listing{ListingName: "Owned", OwnerID: &owner, IsClaimed: true})
	free := seedListing(t, db, models.Listing{ListingName: "Free"})

	got, err := repo.FindOwnerID(ctx, owned.ID)
	require.NoError(t, err)
	assert.Equal(t, owner, got)

	got, err = repo.FindOwnerID(ctx, free.ID)
	require.NoError(t, err)
	assert.Equal(t, uuid.Nil, got)

	_, err = repo.FindOwnerID(ctx, uuid.New())
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestFindName(t *testing.T) {
	db := repotest.Open(t)
	repo := NewRepository(db)

	listing := seedListing(t, db, models.Listing{ListingName: "Sunset Studio"})

	name, err := repo.FindName(context.Background(), listing.ID)
	require.NoError(t, err)
	assert.Equal(t, "Sunset Studio", name)

	exists, err := repo.Exists(context.Background(), listing.ID)
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = repo.Exists(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestFindByPendingClaimEmailIgnoresCaseAndLimits(t *testing.T) {
	db := repotest.Open(t)
	repo := NewRepository(db)
	ctx := context.Background()

	first := seedListing(t, db, models.Listing{ListingName: "A", PendingClaimEmail: strPtr("Buyer@Example.com")})
	seedListing(t, db, models.Listing{ListingName: "B", PendingClaimEmail: strPtr("someone@example.com")})

	rows, err := repo.FindByPendingClaimEmail(ctx, "  buyer@example.COM ", 2)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, first.ID, rows[0].ID)

	seedListing(t, db, models.Listing{ListingName: "C", PendingClaimEmail: strPtr("buyer@example.com")})
	seedListing(t, db, models.Listing{ListingName: "D", PendingClaimEmail: strPtr("BUYER@example.com")})

	rows, err = repo.FindByPendingClaimEmail(ctx, "buyer@example.com", 2)
	require.NoError(t, err)
	assert.Len(t, rows, 2)

	rows, err = repo.FindByPendingClaimEmail(ctx, "", 2)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestMarkPendingClaim(t *testing.T) {
	db := repotest.Open(t)
	fixed := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	repo := NewRepository(db)
	repo.Base = repo.WithClock(func() time.Time { return fixed })
	ctx := context.Background()

	listing := seedListing(t, db, models.Listing{ListingName: "Unclaimed"})

	err := repo.MarkPendingClaim(ctx, listing.ID, PendingClaim{Plan: "Pro", Email: " Buyer@Example.com ", SessionID: "cs_test_1"})
	require.NoError(t, err)

	stored := loadListing(t, db, listing.ID)
	require.NotNil(t, stored.Plan)
	assert.Equal(t, "Pro", *stored.Plan)
	require.NotNil(t, stored.PendingClaimEmail)
	assert.Equal(t, "buyer@example.com", *stored.PendingClaimEmail)
	require.NotNil(t, stored.StripeSessionID)
	assert.Equal(t, "cs_test_1", *stored.StripeSessionID)
	assert.False(t, stored.IsClaimed)
	assert.Nil(t, stored.OwnerID)
	assert.True(t, stored.UpdatedAt.Equal(fixed))
}

func TestMarkPendingClaimRefusesOwnedListing(t *testing.T) {
	db := repotest.Open(t)
	repo := NewRepository(db)
	ctx := context.Background()

	owner := uuid.New()
	listing := seedListing(t, db, models.Listing{ListingName: "Owned", OwnerID: &owner, IsClaimed: true, Plan: strPtr("Standard")})

	err := repo.MarkPendingClaim(ctx, listing.ID, PendingClaim{Plan: "Pro", Email: "buyer@example.com", SessionID: "cs_test_2"})
	assert.ErrorIs(t, err, ErrListingOwned)

	stored := loadListing(t, db, listing.ID)
	assert.Equal(t, "Standard", *stored.Plan)
	assert.Nil(t, stored.PendingClaimEmail)

	err = repo.MarkPendingClaim(ctx, uuid.New(), PendingClaim{Plan: "Pro", Email: "buyer@example.com"})
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestAssignOwnerSetsOwnerAndFlagTogether(t *testing.T) {
	db := repotest.Open(t)
	repo := NewRepository(db)
	ctx := context.Background()

	listing := seedListing(t, db, models.Listing{ListingName: "Unclaimed", PendingClaimEmail: strPtr("buyer@example.com")})
	vendor := uuid.New()

	require.NoError(t, repo.AssignOwner(ctx, listing.ID, vendor, "Pro"))
	// reapplying is a no-op on the resulting state
	require.NoError(t, repo.AssignOwner(ctx, listing.ID, vendor, "Pro"))

	stored := loadListing(t, db, listing.ID)
	require.NotNil(t, stored.OwnerID)
	assert.Equal(t, vendor, *stored.OwnerID)
	assert.True(t, stored.IsClaimed)
	assert.Equal(t, "Pro", *stored.Plan)

	assert.ErrorIs(t, repo.AssignOwner(ctx, uuid.New(), vendor, "Pro"), gorm.ErrRecordNotFound)
	assert.Error(t, repo.AssignOwner(ctx, listing.ID, uuid.Nil, "Pro"))
}
