package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Store drivers accepted by STORE_DRIVER.
const (
	StoreFirestore = "firestore"
	StorePostgres  = "postgres"
	StoreMemory    = "memory"
)

// Config holds all configuration for the application.
type Config struct {
	Port      string `mapstructure:"PORT"`
	GinMode   string `mapstructure:"GIN_MODE"`
	ClientURL string `mapstructure:"CLIENT_URL"`
	// BaseURL is the public application URL checkout redirects return to.
	BaseURL string `mapstructure:"BASE_URL"`

	StripeSecretKey     string `mapstructure:"STRIPE_SECRET_KEY"`
	StripeWebhookSecret string `mapstructure:"STRIPE_WEBHOOK_SECRET"`
	StripePriceWeekly   string `mapstructure:"STRIPE_PRICE_WEEKLY"`
	StripePriceMonthly  string `mapstructure:"STRIPE_PRICE_MONTHLY"`
	StripePriceYearly   string `mapstructure:"STRIPE_PRICE_YEARLY"`
	PlansFile           string `mapstructure:"PLANS_FILE"`

	StoreDriver                      string `mapstructure:"STORE_DRIVER"`
	DatabaseURL                      string `mapstructure:"DATABASE_URL"`
	FirebaseProjectID                string `mapstructure:"FIREBASE_PROJECT_ID"`
	GoogleApplicationCredentials     string `mapstructure:"GOOGLE_APPLICATION_CREDENTIALS"`
	FirebaseServiceAccountJSONBase64 string `mapstructure:"FIREBASE_SERVICE_ACCOUNT_JSON_BASE64"`

	RedisAddr      string        `mapstructure:"REDIS_ADDR"`
	RedisPassword  string        `mapstructure:"REDIS_PASSWORD"`
	RedisDB        int           `mapstructure:"REDIS_DB"`
	StatusCacheTTL time.Duration `mapstructure:"STATUS_CACHE_TTL"`

	RabbitMQURL   string `mapstructure:"RABBITMQ_URL"`
	RabbitMQQueue string `mapstructure:"RABBITMQ_QUEUE"`

	SMTPHost string `mapstructure:"SMTP_HOST"`
	SMTPPort string `mapstructure:"SMTP_PORT"`
	SMTPUser string `mapstructure:"SMTP_USER"`
	SMTPPass string `mapstructure:"SMTP_PASS"`
	MailFrom string `mapstructure:"MAIL_FROM"`

	MealPlanAPIKey  string `mapstructure:"MEALPLAN_API_KEY"`
	MealPlanBaseURL string `mapstructure:"MEALPLAN_BASE_URL"`
	MealPlanModel   string `mapstructure:"MEALPLAN_MODEL"`

	ProviderTimeout time.Duration `mapstructure:"PROVIDER_TIMEOUT"`
	StoreTimeout    time.Duration `mapstructure:"STORE_TIMEOUT"`
}

var envKeys = []string{
	"PORT", "GIN_MODE", "CLIENT_URL", "BASE_URL",
	"STRIPE_SECRET_KEY", "STRIPE_WEBHOOK_SECRET",
	"STRIPE_PRICE_WEEKLY", "STRIPE_PRICE_MONTHLY", "STRIPE_PRICE_YEARLY", "PLANS_FILE",
	"STORE_DRIVER", "DATABASE_URL",
	"FIREBASE_PROJECT_ID", "GOOGLE_APPLICATION_CREDENTIALS", "FIREBASE_SERVICE_ACCOUNT_JSON_BASE64",
	"REDIS_ADDR", "REDIS_PASSWORD", "REDIS_DB", "STATUS_CACHE_TTL",
	"RABBITMQ_URL", "RABBITMQ_QUEUE",
	"SMTP_HOST", "SMTP_PORT", "SMTP_USER", "SMTP_PASS", "MAIL_FROM",
	"MEALPLAN_API_KEY", "MEALPLAN_BASE_URL", "MEALPLAN_MODEL",
	"PROVIDER_TIMEOUT", "STORE_TIMEOUT",
}

// LoadConfig loads configuration from environment variables using Viper.
// Outside release mode a local .env file is read first when present.
func LoadConfig() (*Config, error) {
	if os.Getenv("GIN_MODE") != "release" {
		if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to load .env file: %w", err)
		}
	}

	v := viper.New()
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("PORT", "8080")
	v.SetDefault("GIN_MODE", "debug")
	v.SetDefault("BASE_URL", "http://localhost:3000")
	v.SetDefault("STORE_DRIVER", StoreFirestore)
	v.SetDefault("STATUS_CACHE_TTL", "30s")
	v.SetDefault("RABBITMQ_QUEUE", "profile.billing.changed")
	v.SetDefault("SMTP_PORT", "2525")
	v.SetDefault("MEALPLAN_BASE_URL", "https://openrouter.ai/api/v1")
	v.SetDefault("MEALPLAN_MODEL", "meta-llama/llama-3.2-3b-instruct:free")
	v.SetDefault("PROVIDER_TIMEOUT", "10s")
	v.SetDefault("STORE_TIMEOUT", "5s")

	for _, key := range envKeys {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", key, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the fields needed to serve traffic.
func (c *Config) Validate() error {
	if c.StripeSecretKey == "" {
		return errors.New("STRIPE_SECRET_KEY is required")
	}
	if c.StripeWebhookSecret == "" {
		return errors.New("STRIPE_WEBHOOK_SECRET is required")
	}
	if c.BaseURL == "" {
		return errors.New("BASE_URL is required")
	}
	switch c.StoreDriver {
	case StoreFirestore, StoreMemory:
	case StorePostgres:
		if c.DatabaseURL == "" {
			return errors.New("DATABASE_URL is required when STORE_DRIVER=postgres")
		}
	default:
		return fmt.Errorf("unsupported STORE_DRIVER %q (want firestore, postgres or memory)", c.StoreDriver)
	}
	if c.ProviderTimeout <= 0 || c.StoreTimeout <= 0 {
		return errors.New("PROVIDER_TIMEOUT and STORE_TIMEOUT must be positive durations")
	}
	return nil
}

// Release reports whether gin should run in release mode.
func (c *Config) Release() bool {
	return strings.EqualFold(c.GinMode, "release")
}

// MailEnabled reports whether SMTP notices can be sent.
func (c *Config) MailEnabled() bool {
	return c.SMTPHost != "" && c.SMTPUser != "" && c.SMTPPass != "" && c.MailFrom != ""
}
