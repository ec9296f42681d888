package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("GIN_MODE", "release") // skip .env lookup
	t.Setenv("STRIPE_SECRET_KEY", "sk_test_123")
	t.Setenv("STRIPE_WEBHOOK_SECRET", "whsec_123")
	t.Setenv("STORE_DRIVER", "memory")
}

func TestLoadConfigDefaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "http://localhost:3000", cfg.BaseURL)
	assert.Equal(t, 10*time.Second, cfg.ProviderTimeout)
	assert.Equal(t, 5*time.Second, cfg.StoreTimeout)
	assert.Equal(t, 30*time.Second, cfg.StatusCacheTTL)
	assert.True(t, cfg.Release())
	assert.False(t, cfg.MailEnabled())
}

func TestLoadConfigReadsEnv(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("STRIPE_PRICE_WEEKLY", "price_week")
	t.Setenv("PROVIDER_TIMEOUT", "3s")
	t.Setenv("REDIS_DB", "2")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "price_week", cfg.StripePriceWeekly)
	assert.Equal(t, 3*time.Second, cfg.ProviderTimeout)
	assert.Equal(t, 2, cfg.RedisDB)
}

func TestLoadConfigRequiresStripeSecrets(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("STRIPE_WEBHOOK_SECRET", "")

	_, err := LoadConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "STRIPE_WEBHOOK_SECRET")
}

func TestValidateStoreDriver(t *testing.T) {
	cfg := Config{
		StripeSecretKey:     "sk",
		StripeWebhookSecret: "whsec",
		BaseURL:             "http://localhost",
		StoreDriver:         StorePostgres,
		ProviderTimeout:     time.Second,
		StoreTimeout:        time.Second,
	}
	require.Error(t, cfg.Validate())

	cfg.DatabaseURL = "postgres://localhost/db"
	require.NoError(t, cfg.Validate())

	cfg.StoreDriver = "mongo"
	require.Error(t, cfg.Validate())
}
