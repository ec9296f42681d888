package db

import (
	"context"
	"errors"

	"mealplan-backend-go/internal/models"
)

var (
	// ErrNotFound is returned when no profile matches the lookup key.
	ErrNotFound = errors.New("profile not found")
	// ErrAlreadyExists is returned when a write would violate userId or subscription-id uniqueness.
	ErrAlreadyExists = errors.New("profile already exists")
	// ErrUnavailable marks a store call that timed out or could not reach the backend.
	ErrUnavailable = errors.New("profile store unavailable")
)

// ProfileRepository persists Profile records. All operations are point lookups or
// row-atomic writes keyed by userId or stripeSubscriptionId.
type ProfileRepository interface {
	GetByID(ctx context.Context, userID string) (*models.Profile, error)
	GetBySubscriptionID(ctx context.Context, subscriptionID string) (*models.Profile, error)
	// GetByReleasedSubscriptionID finds the profile whose subscription this system cancelled.
	GetByReleasedSubscriptionID(ctx context.Context, subscriptionID string) (*models.Profile, error)
	Create(ctx context.Context, profile *models.Profile) error
	Update(ctx context.Context, userID string, update models.ProfileUpdate) (*models.Profile, error)
}
