package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"mealplan-backend-go/internal/models"
)

const (
	profilesCollection = "profiles"
	// subscriptionIndexCollection holds one document per linked subscription id. Keeping it
	// in the same transaction as the profile write is what makes the id unique.
	subscriptionIndexCollection = "profileSubscriptions"
)

type subscriptionIndexEntry struct {
	UserID string `firestore:"userId"`
}

// firestoreProfileRepository implements ProfileRepository using Firestore.
type firestoreProfileRepository struct {
	client  *firestore.Client
	timeout time.Duration
	nowFn   func() time.Time
}

// NewFirestoreProfileRepository creates a Firestore-backed ProfileRepository.
func NewFirestoreProfileRepository(client *firestore.Client, timeout time.Duration) (ProfileRepository, error) {
	if client == nil {
		return nil, errors.New("firestore client is not initialized for ProfileRepository")
	}
	return &firestoreProfileRepository{
		client:  client,
		timeout: timeout,
		nowFn:   func() time.Time { return time.Now().UTC() },
	}, nil
}

// unavailable tags deadline and transport failures so callers can answer them as transient.
func unavailable(err error) error {
	switch status.Code(err) {
	case codes.DeadlineExceeded, codes.Unavailable, codes.Canceled:
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return err
}

func (r *firestoreProfileRepository) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, r.timeout)
}

func (r *firestoreProfileRepository) profileDoc(userID string) *firestore.DocumentRef {
	return r.client.Collection(profilesCollection).Doc(userID)
}

func (r *firestoreProfileRepository) indexDoc(subscriptionID string) *firestore.DocumentRef {
	return r.client.Collection(subscriptionIndexCollection).Doc(subscriptionID)
}

func decodeProfile(snap *firestore.DocumentSnapshot) (*models.Profile, error) {
	var profile models.Profile
	if err := snap.DataTo(&profile); err != nil {
		return nil, fmt.Errorf("failed to decode profile data for ID '%s': %w", snap.Ref.ID, err)
	}
	profile.UserID = snap.Ref.ID
	return &profile, nil
}

// GetByID retrieves a profile document by its user ID.
func (r *firestoreProfileRepository) GetByID(ctx context.Context, userID string) (*models.Profile, error) {
	if userID == "" {
		return nil, errors.New("userID cannot be empty for GetByID operation")
	}
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	snap, err := r.profileDoc(userID).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, fmt.Errorf("profile with user ID '%s': %w", userID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get profile with user ID '%s': %w", userID, unavailable(err))
	}
	return decodeProfile(snap)
}

// GetBySubscriptionID resolves the owning user through the subscription index document.
func (r *firestoreProfileRepository) GetBySubscriptionID(ctx context.Context, subscriptionID string) (*models.Profile, error) {
	if subscriptionID == "" {
		return nil, errors.New("subscriptionID cannot be empty for GetBySubscriptionID operation")
	}
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	snap, err := r.indexDoc(subscriptionID).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, fmt.Errorf("profile with subscription ID '%s': %w", subscriptionID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get subscription index '%s': %w", subscriptionID, unavailable(err))
	}
	var entry subscriptionIndexEntry
	if err := snap.DataTo(&entry); err != nil {
		return nil, fmt.Errorf("failed to decode subscription index '%s': %w", subscriptionID, err)
	}
	return r.GetByID(ctx, entry.UserID)
}

// GetByReleasedSubscriptionID queries for the profile that released the given subscription.
func (r *firestoreProfileRepository) GetByReleasedSubscriptionID(ctx context.Context, subscriptionID string) (*models.Profile, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	iter := r.client.Collection(profilesCollection).
		Where("releasedSubscriptionId", "==", subscriptionID).
		Limit(1).
		Documents(ctx)
	defer iter.Stop()

	snap, err := iter.Next()
	if errors.Is(err, iterator.Done) {
		return nil, fmt.Errorf("profile with released subscription ID '%s': %w", subscriptionID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query released subscription '%s': %w", subscriptionID, unavailable(err))
	}
	return decodeProfile(snap)
}

// Create adds a new profile document. The user ID is the document ID.
func (r *firestoreProfileRepository) Create(ctx context.Context, profile *models.Profile) error {
	if profile == nil || profile.UserID == "" {
		return errors.New("profile user ID cannot be empty for Create operation")
	}
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	_, err := r.profileDoc(profile.UserID).Create(ctx, profile)
	if err != nil {
		if status.Code(err) == codes.AlreadyExists {
			return fmt.Errorf("profile with user ID '%s': %w", profile.UserID, ErrAlreadyExists)
		}
		return fmt.Errorf("failed to create profile with user ID '%s': %w", profile.UserID, unavailable(err))
	}
	return nil
}

// Update applies a partial write inside a transaction, moving the subscription index
// document along with the profile.
func (r *firestoreProfileRepository) Update(ctx context.Context, userID string, update models.ProfileUpdate) (*models.Profile, error) {
	if userID == "" {
		return nil, errors.New("userID cannot be empty for Update operation")
	}
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	var updated *models.Profile
	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(r.profileDoc(userID))
		if err != nil {
			if status.Code(err) == codes.NotFound {
				return fmt.Errorf("profile with user ID '%s': %w", userID, ErrNotFound)
			}
			return err
		}
		current, err := decodeProfile(snap)
		if err != nil {
			return err
		}

		newSub, writesSub := update.NewSubscriptionID()
		if writesSub {
			idxSnap, err := tx.Get(r.indexDoc(newSub))
			if err != nil && status.Code(err) != codes.NotFound {
				return err
			}
			if err == nil {
				var entry subscriptionIndexEntry
				if err := idxSnap.DataTo(&entry); err != nil {
					return err
				}
				if entry.UserID != userID {
					return fmt.Errorf("subscription '%s' is linked to another profile: %w", newSub, ErrAlreadyExists)
				}
			}
		}

		next := current.Clone()
		if err := update.Apply(next, r.nowFn()); err != nil {
			return fmt.Errorf("profile with user ID '%s': %w", userID, err)
		}

		if current.HasSubscription() && (!next.HasSubscription() || *next.StripeSubscriptionID != *current.StripeSubscriptionID) {
			if err := tx.Delete(r.indexDoc(*current.StripeSubscriptionID)); err != nil {
				return err
			}
		}
		if next.HasSubscription() {
			if err := tx.Set(r.indexDoc(*next.StripeSubscriptionID), subscriptionIndexEntry{UserID: userID}); err != nil {
				return err
			}
		}
		if err := tx.Set(r.profileDoc(userID), next); err != nil {
			return err
		}
		updated = next
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) || errors.Is(err, ErrAlreadyExists) || errors.Is(err, models.ErrStaleUpdate) ||
			errors.Is(err, models.ErrReleasedSubscription) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to update profile with user ID '%s': %w", userID, unavailable(err))
	}
	return updated, nil
}
