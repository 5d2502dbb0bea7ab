// Package ratelimit keeps fixed-window request counters in PostgreSQL so that
// several API instances share one budget per client.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DB interface for database operations
type DB interface {
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

// Store counts hits on the rate_limit_counters table
type Store struct {
	db  DB
	now func() time.Time
}

// NewStore creates a store on a connection pool
func NewStore(db *pgxpool.Pool) *Store {
	return NewStoreWithDB(db)
}

// NewStoreWithDB creates a store with a custom DB interface
func NewStoreWithDB(db DB) *Store {
	return &Store{db: db, now: time.Now}
}

// Hit records one request for key and returns the count in the current
// window and when that window ends. An expired window restarts at 1.
func (s *Store) Hit(ctx context.Context, key string, window time.Duration) (int, time.Time, error) {
	now := s.now()
	end := now.Add(window)

	// ON CONFLICT makes the increment atomic across instances
	query := `
		INSERT INTO rate_limit_counters (key, count, window_start, window_end)
		VALUES ($1, 1, $2, $3)
		ON CONFLICT (key)
		DO UPDATE SET
			count = CASE
				WHEN rate_limit_counters.window_end <= $2 THEN 1
				ELSE rate_limit_counters.count + 1
			END,
			window_start = CASE
				WHEN rate_limit_counters.window_end <= $2 THEN $2
				ELSE rate_limit_counters.window_start
			END,
			window_end = CASE
				WHEN rate_limit_counters.window_end <= $2 THEN $3
				ELSE rate_limit_counters.window_end
			END
		RETURNING count, window_end
	`

	var (
		count     int
		windowEnd time.Time
	)
	if err := s.db.QueryRow(ctx, query, key, now, end).Scan(&count, &windowEnd); err != nil {
		return 0, time.Time{}, fmt.Errorf("rate limit hit: %w", err)
	}
	return count, windowEnd, nil
}

// CleanupExpired removes counters whose window closed over an hour ago
func (s *Store) CleanupExpired(ctx context.Context) (int64, error) {
	query := `DELETE FROM rate_limit_counters WHERE window_end < NOW() - INTERVAL '1 hour'`
	result, err := s.db.Exec(ctx, query)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}
