package core

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"mealplan-backend-go/internal/db"
	"mealplan-backend-go/internal/models"
)

func TestEnsureProfileIsIdempotent(t *testing.T) {
	ctx := context.Background()
	svc := NewProfileService(db.NewMemoryProfileRepository(), nil, zaptest.NewLogger(t))

	p, created, err := svc.EnsureProfile(ctx, "user_1", "a@example.com")
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, models.StateUnsubscribed, p.State())

	p2, created, err := svc.EnsureProfile(ctx, "user_1", "other@example.com")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, "a@example.com", p2.Email, "email is immutable after create")
}

func TestEnsureProfileConcurrentCreates(t *testing.T) {
	ctx := context.Background()
	repo := db.NewMemoryProfileRepository()
	svc := NewProfileService(repo, nil, zaptest.NewLogger(t))

	const n = 16
	var wg sync.WaitGroup
	var mu sync.Mutex
	createdCount := 0
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, created, err := svc.EnsureProfile(ctx, "user_1", "a@example.com")
			errs[i] = err
			if created {
				mu.Lock()
				createdCount++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		assert.NoError(t, err)
	}
	assert.Equal(t, 1, createdCount)
}

func TestEnsureProfileValidation(t *testing.T) {
	svc := NewProfileService(db.NewMemoryProfileRepository(), nil, zaptest.NewLogger(t))

	_, _, err := svc.EnsureProfile(context.Background(), "", "a@example.com")
	assert.Equal(t, KindAuth, KindOf(err))

	_, _, err = svc.EnsureProfile(context.Background(), "user_1", "")
	assert.ErrorIs(t, err, ErrEmailMissing)
	assert.Equal(t, KindClientInput, KindOf(err))
}

func TestGetProfileNotFound(t *testing.T) {
	svc := NewProfileService(db.NewMemoryProfileRepository(), nil, zaptest.NewLogger(t))
	_, err := svc.GetProfile(context.Background(), "user_missing")
	assert.ErrorIs(t, err, ErrProfileNotFound)
}

func TestSubscriptionActiveReadsThroughCache(t *testing.T) {
	ctx := context.Background()
	repo := db.NewMemoryProfileRepository()
	require.NoError(t, repo.Create(ctx, models.NewProfile("user_1", "a@example.com", t0)))
	active := true
	_, err := repo.Update(ctx, "user_1", models.ProfileUpdate{
		SubscriptionTier:     models.SetValue(models.IntervalWeek),
		StripeSubscriptionID: models.SetValue("sub_1"),
		SubscriptionActive:   &active,
	})
	require.NoError(t, err)

	cache := newFakeCache()
	svc := NewProfileService(repo, cache, zaptest.NewLogger(t))

	got, err := svc.SubscriptionActive(ctx, "user_1")
	require.NoError(t, err)
	assert.True(t, got)
	assert.True(t, cache.status["user_1"])

	// Served from cache even though the store changed underneath.
	inactive := false
	_, err = repo.Update(ctx, "user_1", models.ProfileUpdate{SubscriptionActive: &inactive})
	require.NoError(t, err)
	got, err = svc.SubscriptionActive(ctx, "user_1")
	require.NoError(t, err)
	assert.True(t, got)

	cache.expire("user_1")
	got, err = svc.SubscriptionActive(ctx, "user_1")
	require.NoError(t, err)
	assert.False(t, got)
}

func TestSubscriptionActiveUnknownUserAndCacheFailure(t *testing.T) {
	cache := newFakeCache()
	cache.getErr = errors.New("redis: connection refused")
	svc := NewProfileService(db.NewMemoryProfileRepository(), cache, zaptest.NewLogger(t))

	got, err := svc.SubscriptionActive(context.Background(), "user_ghost")
	require.NoError(t, err)
	assert.False(t, got)

	_, err = svc.SubscriptionActive(context.Background(), "")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestSubscriptionActiveWithoutCache(t *testing.T) {
	svc := NewProfileService(db.NewMemoryProfileRepository(), nil, zaptest.NewLogger(t))
	got, err := svc.SubscriptionActive(context.Background(), "user_ghost")
	require.NoError(t, err)
	assert.False(t, got)
}

// readHookRepo runs afterRead once, right after the first GetByID returns.
type readHookRepo struct {
	db.ProfileRepository
	afterRead func()
}

func (r *readHookRepo) GetByID(ctx context.Context, userID string) (*models.Profile, error) {
	p, err := r.ProfileRepository.GetByID(ctx, userID)
	if hook := r.afterRead; hook != nil {
		r.afterRead = nil
		hook()
	}
	return p, err
}

func TestSubscriptionActiveFillDoesNotOverwriteNewerWrite(t *testing.T) {
	ctx := context.Background()
	repo := db.NewMemoryProfileRepository()
	require.NoError(t, repo.Create(ctx, models.NewProfile("user_1", "a@example.com", t0)))

	cache := newFakeCache()
	logger := zaptest.NewLogger(t)
	reconciler := NewReconciliationService(repo, &fakeGateway{}, testCatalog(), "https://app.example.com", logger, WithStatusCache(cache))
	hooked := &readHookRepo{ProfileRepository: repo}
	svc := NewProfileService(hooked, cache, logger)

	// The checkout webhook commits between the store read and the cache fill.
	hooked.afterRead = func() {
		outcome, err := reconciler.CheckoutCompleted(ctx, checkoutEvent("evt_1", "user_1", "month", "sub_1", t0))
		require.NoError(t, err)
		require.Equal(t, OutcomeApplied, outcome)
	}

	got, err := svc.SubscriptionActive(ctx, "user_1")
	require.NoError(t, err)
	assert.False(t, got, "the in-flight read answers with what it saw")

	got, err = svc.SubscriptionActive(ctx, "user_1")
	require.NoError(t, err)
	assert.True(t, got)
	assert.True(t, cache.status["user_1"])
}
