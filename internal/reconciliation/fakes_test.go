package reconciliation

import (
	"bytes"
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/vendorclaims-backend/internal/claims"
	"github.com/angelmondragon/vendorclaims-backend/internal/listings"
	"github.com/angelmondragon/vendorclaims-backend/internal/notifications"
	"github.com/angelmondragon/vendorclaims-backend/internal/profiles"
	"github.com/angelmondragon/vendorclaims-backend/internal/repo/repotest"
	"github.com/angelmondragon/vendorclaims-backend/pkg/db/models"
	"github.com/angelmondragon/vendorclaims-backend/pkg/logger"
	pkgstripe "github.com/angelmondragon/vendorclaims-backend/pkg/stripe"
)

type fakeLineItems struct {
	items []pkgstripe.LineItem
	err   error
	calls int
}

func (f *fakeLineItems) ListLineItems(_ context.Context, _ string, limit int64) ([]pkgstripe.LineItem, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if int64(len(f.items)) > limit {
		return f.items[:limit], nil
	}
	return f.items, nil
}

type fakeNotifier struct {
	mu        sync.Mutex
	purchases []notifications.Purchase
	err       error
}

func (f *fakeNotifier) PurchaseCompleted(_ context.Context, p notifications.Purchase) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.purchases = append(f.purchases, p)
	return f.err
}

type fakeRecorder struct {
	mu          sync.Mutex
	outcomes    []string
	resolutions []string
	durations   []string
}

func (f *fakeRecorder) IncOutcome(outcome string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.outcomes = append(f.outcomes, outcome)
}

func (f *fakeRecorder) IncResolution(strategy string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resolutions = append(f.resolutions, strategy)
}

func (f *fakeRecorder) ObserveDuration(outcome string, _ time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.durations = append(f.durations, outcome)
}

// failingListings wraps the real repository and injects errors per method.
type failingListings struct {
	*listings.Repository
	markPendingErr error
	assignErr      error
	ownerErr       error
	pendingErr     error
}

func (f *failingListings) MarkPendingClaim(ctx context.Context, id uuid.UUID, p listings.PendingClaim) error {
	if f.markPendingErr != nil {
		return f.markPendingErr
	}
	return f.Repository.MarkPendingClaim(ctx, id, p)
}

func (f *failingListings) AssignOwner(ctx context.Context, id, vendorID uuid.UUID, plan string) error {
	if f.assignErr != nil {
		return f.assignErr
	}
	return f.Repository.AssignOwner(ctx, id, vendorID, plan)
}

func (f *failingListings) FindOwnerID(ctx context.Context, id uuid.UUID) (uuid.UUID, error) {
	if f.ownerErr != nil {
		return uuid.Nil, f.ownerErr
	}
	return f.Repository.FindOwnerID(ctx, id)
}

func (f *failingListings) FindByPendingClaimEmail(ctx context.Context, email string, limit int) ([]models.Listing, error) {
	if f.pendingErr != nil {
		return nil, f.pendingErr
	}
	return f.Repository.FindByPendingClaimEmail(ctx, email, limit)
}

type failingProfiles struct {
	*profiles.Repository
	existsErr error
	updateErr error
	lookupErr error
}

func (f *failingProfiles) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	if f.existsErr != nil {
		return false, f.existsErr
	}
	return f.Repository.Exists(ctx, id)
}

func (f *failingProfiles) UpdateBilling(ctx context.Context, id uuid.UUID, b profiles.Billing) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	return f.Repository.UpdateBilling(ctx, id, b)
}

func (f *failingProfiles) FindIDByEmail(ctx context.Context, email string) (uuid.UUID, error) {
	if f.lookupErr != nil {
		return uuid.Nil, f.lookupErr
	}
	return f.Repository.FindIDByEmail(ctx, email)
}

// lockedBuffer lets concurrent Process calls share one log sink.
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

type harness struct {
	db        *gorm.DB
	logs      *lockedBuffer
	logg      *logger.Logger
	listings  *failingListings
	profiles  *failingProfiles
	claims    *claims.Repository
	lineItems *fakeLineItems
	notifier  *fakeNotifier
	metrics   *fakeRecorder
	svc       *Service
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	db := repotest.Open(t)
	logs := &lockedBuffer{}
	h := &harness{
		db:        db,
		logs:      logs,
		logg:      logger.New(logger.Options{ServiceName: "test", Output: logs}),
		listings:  &failingListings{Repository: listings.NewRepository(db)},
		profiles:  &failingProfiles{Repository: profiles.NewRepository(db)},
		claims:    claims.NewRepository(db),
		lineItems: &fakeLineItems{},
		notifier:  &fakeNotifier{},
		metrics:   &fakeRecorder{},
	}

	resolver, err := NewResolver(ResolverParams{
		Listings:  h.listings,
		Profiles:  h.profiles,
		LineItems: h.lineItems,
		Logger:    h.logg,
		Metrics:   h.metrics,
	})
	require.NoError(t, err)

	executor, err := NewExecutor(ExecutorParams{
		Claims:   h.claims,
		Listings: h.listings,
		Profiles: h.profiles,
		Logger:   h.logg,
	})
	require.NoError(t, err)

	h.svc, err = NewService(ServiceParams{
		Resolver: resolver,
		Executor: executor,
		Listings: h.listings,
		Profiles: h.profiles,
		Notifier: h.notifier,
		Logger:   h.logg,
		Metrics:  h.metrics,
	})
	require.NoError(t, err)
	return h
}

func (h *harness) seedProfile(t *testing.T, email string) models.Profile {
	t.Helper()
	p := models.Profile{ID: uuid.New(), Email: email}
	require.NoError(t, h.db.Create(&p).Error)
	return p
}

func (h *harness) seedListing(t *testing.T, l models.Listing) models.Listing {
	t.Helper()
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	if l.ListingName == "" {
		l.ListingName = "Listing " + l.ID.String()[:8]
	}
	require.NoError(t, h.db.Create(&l).Error)
	return l
}

func (h *harness) listing(t *testing.T, id uuid.UUID) models.Listing {
	t.Helper()
	var l models.Listing
	require.NoError(t, h.db.First(&l, "id = ?", id).Error)
	return l
}

func (h *harness) profile(t *testing.T, id uuid.UUID) models.Profile {
	t.Helper()
	var p models.Profile
	require.NoError(t, h.db.First(&p, "id = ?", id).Error)
	return p
}

func (h *harness) claimCount(t *testing.T) int64 {
	t.Helper()
	var n int64
	require.NoError(t, h.db.Model(&models.Claim{}).Count(&n).Error)
	return n
}

func strPtr(v string) *string { return &v }
