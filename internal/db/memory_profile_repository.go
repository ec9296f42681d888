package db

import (
	"context"
	"fmt"
	"sync"
	"time"

	"mealplan-backend-go/internal/models"
)

// MemoryProfileRepository keeps profiles in process memory. Used for local runs and tests.
type MemoryProfileRepository struct {
	mu    sync.RWMutex
	byID  map[string]*models.Profile
	bySub map[string]string // subscription id -> user id
	nowFn func() time.Time
}

// NewMemoryProfileRepository returns an empty in-memory store.
func NewMemoryProfileRepository() *MemoryProfileRepository {
	return &MemoryProfileRepository{
		byID:  make(map[string]*models.Profile),
		bySub: make(map[string]string),
		nowFn: func() time.Time { return time.Now().UTC() },
	}
}

func (r *MemoryProfileRepository) GetByID(_ context.Context, userID string) (*models.Profile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.byID[userID]
	if !ok {
		return nil, fmt.Errorf("profile with user ID '%s': %w", userID, ErrNotFound)
	}
	return p.Clone(), nil
}

func (r *MemoryProfileRepository) GetBySubscriptionID(_ context.Context, subscriptionID string) (*models.Profile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	userID, ok := r.bySub[subscriptionID]
	if !ok {
		return nil, fmt.Errorf("profile with subscription ID '%s': %w", subscriptionID, ErrNotFound)
	}
	return r.byID[userID].Clone(), nil
}

func (r *MemoryProfileRepository) GetByReleasedSubscriptionID(_ context.Context, subscriptionID string) (*models.Profile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, p := range r.byID {
		if p.ReleasedSubscriptionID != nil && *p.ReleasedSubscriptionID == subscriptionID {
			return p.Clone(), nil
		}
	}
	return nil, fmt.Errorf("profile with released subscription ID '%s': %w", subscriptionID, ErrNotFound)
}

func (r *MemoryProfileRepository) Create(_ context.Context, profile *models.Profile) error {
	if profile == nil || profile.UserID == "" {
		return fmt.Errorf("profile user ID cannot be empty for Create operation")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[profile.UserID]; ok {
		return fmt.Errorf("profile with user ID '%s': %w", profile.UserID, ErrAlreadyExists)
	}
	if profile.HasSubscription() {
		if _, taken := r.bySub[*profile.StripeSubscriptionID]; taken {
			return fmt.Errorf("subscription '%s' is linked to another profile: %w", *profile.StripeSubscriptionID, ErrAlreadyExists)
		}
		r.bySub[*profile.StripeSubscriptionID] = profile.UserID
	}
	r.byID[profile.UserID] = profile.Clone()
	return nil
}

func (r *MemoryProfileRepository) Update(_ context.Context, userID string, update models.ProfileUpdate) (*models.Profile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	current, ok := r.byID[userID]
	if !ok {
		return nil, fmt.Errorf("profile with user ID '%s': %w", userID, ErrNotFound)
	}
	if newSub, ok := update.NewSubscriptionID(); ok {
		if owner, taken := r.bySub[newSub]; taken && owner != userID {
			return nil, fmt.Errorf("subscription '%s' is linked to another profile: %w", newSub, ErrAlreadyExists)
		}
	}

	next := current.Clone()
	if err := update.Apply(next, r.nowFn()); err != nil {
		return nil, fmt.Errorf("profile with user ID '%s': %w", userID, err)
	}

	if current.StripeSubscriptionID != nil {
		delete(r.bySub, *current.StripeSubscriptionID)
	}
	if next.HasSubscription() {
		r.bySub[*next.StripeSubscriptionID] = userID
	}
	r.byID[userID] = next
	return next.Clone(), nil
}
