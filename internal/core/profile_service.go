package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"mealplan-backend-go/internal/db"
	"mealplan-backend-go/internal/metrics"
	"mealplan-backend-go/internal/models"
)

// profileService implements ProfileService.
type profileService struct {
	repo   db.ProfileRepository
	cache  StatusCache
	logger *zap.Logger
	group  singleflight.Group
	now    func() time.Time
}

// NewProfileService creates a ProfileService. cache may be nil.
func NewProfileService(repo db.ProfileRepository, cache StatusCache, logger *zap.Logger) ProfileService {
	return &profileService{
		repo:   repo,
		cache:  cache,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// EnsureProfile creates an Unsubscribed profile for a newly signed-up user. A concurrent
// create that loses the race reads back the winner's profile.
func (s *profileService) EnsureProfile(ctx context.Context, userID, email string) (*models.Profile, bool, error) {
	if userID == "" {
		return nil, false, ErrUnauthenticated
	}

	existing, err := s.repo.GetByID(ctx, userID)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, db.ErrNotFound) {
		return nil, false, storeError("read", userID, err)
	}
	if email == "" {
		return nil, false, fmt.Errorf("%w: user with ID '%s'", ErrEmailMissing, userID)
	}

	profile := models.NewProfile(userID, email, s.now())
	if err := s.repo.Create(ctx, profile); err != nil {
		if errors.Is(err, db.ErrAlreadyExists) {
			existing, getErr := s.repo.GetByID(ctx, userID)
			if getErr != nil {
				return nil, false, storeError("read", userID, getErr)
			}
			return existing, false, nil
		}
		return nil, false, storeError("create", userID, err)
	}
	s.logger.Info("Profile created", zap.String("userID", userID))
	return profile, true, nil
}

func (s *profileService) GetProfile(ctx context.Context, userID string) (*models.Profile, error) {
	profile, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, fmt.Errorf("%w: user with ID '%s'", ErrProfileNotFound, userID)
		}
		return nil, storeError("read", userID, err)
	}
	return profile, nil
}

// SubscriptionActive reads through the status cache. Concurrent misses for one user
// share a single store read.
func (s *profileService) SubscriptionActive(ctx context.Context, userID string) (bool, error) {
	if userID == "" {
		return false, fmt.Errorf("%w: userId is required", ErrInvalidInput)
	}

	if s.cache != nil {
		active, found, err := s.cache.GetStatus(ctx, userID)
		switch {
		case err != nil:
			metrics.StatusCacheLookups.WithLabelValues("error").Inc()
			s.logger.Warn("Subscription status cache read failed", zap.String("userID", userID), zap.Error(err))
		case found:
			metrics.StatusCacheLookups.WithLabelValues("hit").Inc()
			return active, nil
		default:
			metrics.StatusCacheLookups.WithLabelValues("miss").Inc()
		}
	}

	v, err, _ := s.group.Do(userID, func() (interface{}, error) {
		profile, err := s.repo.GetByID(ctx, userID)
		if err != nil && !errors.Is(err, db.ErrNotFound) {
			return false, storeError("read", userID, err)
		}
		active := err == nil && profile.SubscriptionActive
		if s.cache != nil {
			if _, err := s.cache.FillStatus(ctx, userID, active); err != nil {
				s.logger.Warn("Subscription status cache write failed", zap.String("userID", userID), zap.Error(err))
			}
		}
		return active, nil
	})
	if err != nil {
		return false, err
	}
	return v.(bool), nil
}
