package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrCacheMiss is returned for absent and expired results alike
var ErrCacheMiss = errors.New("cache miss")

// DB interface for database operations (compatible with pgxpool.Pool and pgxmock)
type DB interface {
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, arguments ...interface{}) (pgconn.CommandTag, error)
}

// PGCache keeps encoded analysis results in analysis_cache, one row per image
// digest and scoring profile. Expired rows stay until CleanupExpired runs.
type PGCache struct {
	db  DB
	now func() time.Time
}

func NewPGCache(db *pgxpool.Pool) *PGCache {
	return NewPGCacheWithDB(db)
}

// NewPGCacheWithDB creates a cache over any DB, for tests
func NewPGCacheWithDB(db DB) *PGCache {
	return &PGCache{db: db, now: time.Now}
}

// Lookup returns the live result for digest under profile
func (c *PGCache) Lookup(ctx context.Context, digest, profile string) ([]byte, error) {
	query := `
		SELECT result FROM analysis_cache
		WHERE digest = $1 AND profile = $2 AND expires_at > $3
	`

	var result []byte
	err := c.db.QueryRow(ctx, query, digest, profile, c.now()).Scan(&result)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("cache lookup: %w", err)
	}
	return result, nil
}

// Store upserts result and restarts its ttl
func (c *PGCache) Store(ctx context.Context, digest, profile string, result []byte, ttl time.Duration) error {
	query := `
		INSERT INTO analysis_cache (digest, profile, result, expires_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (digest, profile) DO UPDATE
		SET result = EXCLUDED.result,
		    expires_at = EXCLUDED.expires_at,
		    created_at = NOW()
	`

	if _, err := c.db.Exec(ctx, query, digest, profile, result, c.now().Add(ttl)); err != nil {
		return fmt.Errorf("cache store: %w", err)
	}
	return nil
}

// Evict drops digest under every profile
func (c *PGCache) Evict(ctx context.Context, digest string) (int64, error) {
	result, err := c.db.Exec(ctx, `DELETE FROM analysis_cache WHERE digest = $1`, digest)
	if err != nil {
		return 0, fmt.Errorf("cache evict: %w", err)
	}
	return result.RowsAffected(), nil
}

// CleanupExpired removes all expired entries
func (c *PGCache) CleanupExpired(ctx context.Context) (int64, error) {
	result, err := c.db.Exec(ctx, `DELETE FROM analysis_cache WHERE expires_at <= $1`, c.now())
	if err != nil {
		return 0, fmt.Errorf("cache cleanup: %w", err)
	}
	return result.RowsAffected(), nil
}
