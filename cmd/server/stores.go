package main

import (
	"context"
	"fmt"

	firebase "firebase.google.com/go/v4"
	"go.uber.org/zap"

	"mealplan-backend-go/internal/config"
	"mealplan-backend-go/internal/db"
	"mealplan-backend-go/pkg/cache"
)

func openProfileStore(ctx context.Context, cfg *config.Config, app *firebase.App, cleanup *closers) (db.ProfileRepository, error) {
	switch cfg.StoreDriver {
	case config.StorePostgres:
		repo, err := db.NewPostgresProfileRepository(ctx, cfg.DatabaseURL, cfg.StoreTimeout)
		if err != nil {
			return nil, err
		}
		cleanup.add(repo.Close)
		return repo, nil
	case config.StoreMemory:
		return db.NewMemoryProfileRepository(), nil
	default:
		client, err := db.NewFirestoreClient(ctx, app)
		if err != nil {
			return nil, err
		}
		cleanup.add(func() { _ = client.Close() })
		return db.NewFirestoreProfileRepository(client, cfg.StoreTimeout)
	}
}

// openStatusCache uses Redis when REDIS_ADDR is set and an in-process cache otherwise.
func openStatusCache(ctx context.Context, cfg *config.Config, logger *zap.Logger, cleanup *closers) (*cache.StatusCache, error) {
	if cfg.RedisAddr == "" {
		logger.Info("REDIS_ADDR not set; using in-memory status cache")
		return cache.NewStatusCache(cache.NewMemoryCache(), cfg.StatusCacheTTL), nil
	}
	rc, err := cache.NewRedisCache(ctx, cache.NewRedisCacheConfig{
		Address:  cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("status cache: %w", err)
	}
	cleanup.add(func() { _ = rc.Close() })
	return cache.NewStatusCache(rc, cfg.StatusCacheTTL), nil
}
