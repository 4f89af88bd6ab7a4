package trust

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const trustSchema = `
CREATE TABLE IF NOT EXISTS user_trust (
    user_id           TEXT PRIMARY KEY,
    trust_score       DOUBLE PRECISION NOT NULL,
    exposure_level    TEXT NOT NULL,
    observed_patterns TEXT[] NOT NULL DEFAULT '{}',
    updated_at        TIMESTAMPTZ NOT NULL DEFAULT now()
)`

const selectForUpdate = `SELECT user_id, trust_score, exposure_level, observed_patterns, updated_at
	 FROM user_trust WHERE user_id = $1 FOR UPDATE`

// pgxQuerier is the slice of pgxpool.Pool the store needs.
type pgxQuerier interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore persists trust states in Postgres. Per-user serialization
// uses SELECT ... FOR UPDATE inside a transaction, so concurrent updates to
// the same user queue on the row lock.
type PostgresStore struct {
	db pgxQuerier
}

// NewPostgresStore wraps an existing connection pool.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: pool}
}

// EnsureSchema creates the trust table if it does not exist.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, trustSchema); err != nil {
		return fmt.Errorf("creating user_trust table: %w", err)
	}
	return nil
}

// Update implements Store.
func (s *PostgresStore) Update(ctx context.Context, userID string, apply func(UserTrustState) UserTrustState) (UserTrustState, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return UserTrustState{}, fmt.Errorf("beginning trust update for %q: %w", userID, err)
	}
	defer tx.Rollback(ctx)

	state, err := lockState(ctx, tx, userID)
	if err != nil {
		return UserTrustState{}, fmt.Errorf("loading trust state for %q: %w", userID, err)
	}

	next := apply(state)
	patterns := next.ObservedPatterns
	if patterns == nil {
		patterns = []string{}
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO user_trust (user_id, trust_score, exposure_level, observed_patterns, updated_at)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (user_id) DO UPDATE SET
		   trust_score = EXCLUDED.trust_score,
		   exposure_level = EXCLUDED.exposure_level,
		   observed_patterns = EXCLUDED.observed_patterns,
		   updated_at = EXCLUDED.updated_at`,
		next.UserID, next.TrustScore, string(next.ExposureLevel), patterns, next.UpdatedAt)
	if err != nil {
		return UserTrustState{}, fmt.Errorf("persisting trust state for %q: %w", userID, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return UserTrustState{}, fmt.Errorf("committing trust update for %q: %w", userID, err)
	}
	return next, nil
}

// lockState loads the user's row under FOR UPDATE. A first-seen user has no
// row to lock, so two concurrent first scans would both read the pristine
// default and the later commit would overwrite the earlier one. Seeding the
// row with ON CONFLICT DO NOTHING and re-selecting makes every caller queue
// on the row lock before apply runs.
func lockState(ctx context.Context, tx pgx.Tx, userID string) (UserTrustState, error) {
	state, err := scanState(tx.QueryRow(ctx, selectForUpdate, userID))
	if err == nil {
		return state, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return UserTrustState{}, err
	}

	seed := NewUserTrustState(userID)
	if _, err := tx.Exec(ctx,
		`INSERT INTO user_trust (user_id, trust_score, exposure_level, observed_patterns, updated_at)
		 VALUES ($1, $2, $3, $4, now())
		 ON CONFLICT (user_id) DO NOTHING`,
		seed.UserID, seed.TrustScore, string(seed.ExposureLevel), []string{}); err != nil {
		return UserTrustState{}, err
	}
	return scanState(tx.QueryRow(ctx, selectForUpdate, userID))
}

// Get implements Store.
func (s *PostgresStore) Get(ctx context.Context, userID string) (UserTrustState, error) {
	state, err := scanState(s.db.QueryRow(ctx,
		`SELECT user_id, trust_score, exposure_level, observed_patterns, updated_at
		 FROM user_trust WHERE user_id = $1`, userID))
	if errors.Is(err, pgx.ErrNoRows) {
		return NewUserTrustState(userID), nil
	}
	if err != nil {
		return UserTrustState{}, fmt.Errorf("loading trust state for %q: %w", userID, err)
	}
	return state, nil
}

func scanState(row pgx.Row) (UserTrustState, error) {
	var (
		state    UserTrustState
		exposure string
	)
	err := row.Scan(&state.UserID, &state.TrustScore, &exposure, &state.ObservedPatterns, &state.UpdatedAt)
	if err != nil {
		return UserTrustState{}, err
	}
	state.ExposureLevel = ExposureLevel(exposure)
	return state, nil
}
