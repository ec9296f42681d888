package db

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"mealplan-backend-go/internal/models"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

const uniqueViolation = "23505"

const profileColumns = `user_id, email, subscription_tier, stripe_subscription_id, subscription_active,
released_subscription_id, last_event_at, created_at, updated_at`

// PostgresProfileRepository implements ProfileRepository on a pgx connection pool.
type PostgresProfileRepository struct {
	pool    *pgxpool.Pool
	timeout time.Duration
	nowFn   func() time.Time
}

// NewPostgresProfileRepository connects to dsn. Migrations are not applied here; run
// the migrate command or MigratePostgres first.
func NewPostgresProfileRepository(ctx context.Context, dsn string, timeout time.Duration) (*PostgresProfileRepository, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return nil, errors.New("DATABASE_URL is required for the postgres store")
	}
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &PostgresProfileRepository{
		pool:    pool,
		timeout: timeout,
		nowFn:   func() time.Time { return time.Now().UTC() },
	}, nil
}

// Close releases the pool.
func (r *PostgresProfileRepository) Close() {
	if r.pool != nil {
		r.pool.Close()
	}
}

// Migrate applies the embedded goose migrations to the connected database.
func (r *PostgresProfileRepository) Migrate(ctx context.Context) error {
	db := stdlib.OpenDB(*r.pool.Config().ConnConfig)
	defer db.Close()
	return MigratePostgres(ctx, db)
}

// MigratePostgres applies the embedded goose migrations on db.
func MigratePostgres(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrationsFS)
	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}
	return goose.UpContext(ctx, db, "migrations")
}

func (r *PostgresProfileRepository) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, r.timeout)
}

func scanProfile(row pgx.Row) (*models.Profile, error) {
	var (
		p    models.Profile
		tier *string
	)
	err := row.Scan(&p.UserID, &p.Email, &tier, &p.StripeSubscriptionID, &p.SubscriptionActive,
		&p.ReleasedSubscriptionID, &p.LastEventAt, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if tier != nil {
		interval := models.PlanInterval(*tier)
		p.SubscriptionTier = &interval
	}
	return &p, nil
}

func (r *PostgresProfileRepository) getOne(ctx context.Context, key, where string, arg string) (*models.Profile, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	p, err := scanProfile(r.pool.QueryRow(ctx, `SELECT `+profileColumns+` FROM profiles WHERE `+where+` = $1`, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("profile with %s '%s': %w", key, arg, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get profile with %s '%s': %w", key, arg, err)
	}
	return p, nil
}

func (r *PostgresProfileRepository) GetByID(ctx context.Context, userID string) (*models.Profile, error) {
	return r.getOne(ctx, "user ID", "user_id", userID)
}

func (r *PostgresProfileRepository) GetBySubscriptionID(ctx context.Context, subscriptionID string) (*models.Profile, error) {
	return r.getOne(ctx, "subscription ID", "stripe_subscription_id", subscriptionID)
}

func (r *PostgresProfileRepository) GetByReleasedSubscriptionID(ctx context.Context, subscriptionID string) (*models.Profile, error) {
	return r.getOne(ctx, "released subscription ID", "released_subscription_id", subscriptionID)
}

func (r *PostgresProfileRepository) Create(ctx context.Context, profile *models.Profile) error {
	if profile == nil || profile.UserID == "" {
		return errors.New("profile user ID cannot be empty for Create operation")
	}
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	tag, err := r.pool.Exec(ctx, `
INSERT INTO profiles (user_id, email, subscription_tier, stripe_subscription_id, subscription_active, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (user_id) DO NOTHING
`, profile.UserID, profile.Email, tierArg(profile.SubscriptionTier), profile.StripeSubscriptionID,
		profile.SubscriptionActive, profile.CreatedAt, profile.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("profile with user ID '%s': %w", profile.UserID, ErrAlreadyExists)
		}
		return fmt.Errorf("failed to create profile with user ID '%s': %w", profile.UserID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("profile with user ID '%s': %w", profile.UserID, ErrAlreadyExists)
	}
	return nil
}

// Update locks the row, applies the partial write and stores the full row back.
func (r *PostgresProfileRepository) Update(ctx context.Context, userID string, update models.ProfileUpdate) (*models.Profile, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin profile update: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	current, err := scanProfile(tx.QueryRow(ctx, `SELECT `+profileColumns+` FROM profiles WHERE user_id = $1 FOR UPDATE`, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("profile with user ID '%s': %w", userID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to lock profile with user ID '%s': %w", userID, err)
	}

	next := current.Clone()
	if err := update.Apply(next, r.nowFn()); err != nil {
		return nil, fmt.Errorf("profile with user ID '%s': %w", userID, err)
	}

	_, err = tx.Exec(ctx, `
UPDATE profiles SET
  subscription_tier = $2,
  stripe_subscription_id = $3,
  subscription_active = $4,
  released_subscription_id = $5,
  last_event_at = $6,
  updated_at = $7
WHERE user_id = $1
`, userID, tierArg(next.SubscriptionTier), next.StripeSubscriptionID, next.SubscriptionActive,
		next.ReleasedSubscriptionID, next.LastEventAt, next.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("subscription is linked to another profile: %w", ErrAlreadyExists)
		}
		return nil, fmt.Errorf("failed to update profile with user ID '%s': %w", userID, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit profile update: %w", err)
	}
	return next, nil
}

func tierArg(tier *models.PlanInterval) *string {
	if tier == nil {
		return nil
	}
	s := string(*tier)
	return &s
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
