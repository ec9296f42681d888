package cache

import (
	"context"
	"fmt"
	"time"
)

const statusKeyPrefix = "subscription_status:"

// StatusCache stores the public subscription flag of each user on top of a Cache.
type StatusCache struct {
	cache Cache
	ttl   time.Duration
}

// NewStatusCache wraps c. Entries expire after ttl so a missed write-back heals itself.
func NewStatusCache(c Cache, ttl time.Duration) *StatusCache {
	return &StatusCache{cache: c, ttl: ttl}
}

func statusKey(userID string) string {
	return statusKeyPrefix + userID
}

func (s *StatusCache) GetStatus(ctx context.Context, userID string) (bool, bool, error) {
	val, ok, err := s.cache.Get(ctx, statusKey(userID))
	if err != nil || !ok {
		return false, false, err
	}
	switch val {
	case "1":
		return true, true, nil
	case "0":
		return false, true, nil
	default:
		return false, false, fmt.Errorf("unexpected cached status %q for user %s", val, userID)
	}
}

func encodeStatus(active bool) string {
	if active {
		return "1"
	}
	return "0"
}

// SetStatus records the flag a committed write produced, replacing any cached value.
func (s *StatusCache) SetStatus(ctx context.Context, userID string, active bool) error {
	return s.cache.Set(ctx, statusKey(userID), encodeStatus(active), s.ttl)
}

// FillStatus caches a flag read from the store after a miss. It never replaces a value a
// writer stored in the meantime, and reports whether it stored anything.
func (s *StatusCache) FillStatus(ctx context.Context, userID string, active bool) (bool, error) {
	return s.cache.SetNX(ctx, statusKey(userID), encodeStatus(active), s.ttl)
}
