// Package metrics summarizes stored analyses: score distribution, detection
// latency and warning frequency per scoring profile.
package metrics

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

// DB interface for database operations (compatible with pgxpool.Pool and pgxmock)
type DB interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
}

// Params bound the summary to analyses created in [Start, End)
type Params struct {
	Start time.Time
	End   time.Time
}

// ProfileStats aggregates the analyses scored under one profile
type ProfileStats struct {
	Profile      string  `json:"profile"`
	Count        int64   `json:"count"`
	AvgOverall   float64 `json:"avg_overall"`
	AvgPotential float64 `json:"avg_potential"`
	P50Overall   float64 `json:"p50_overall"`
	P90Overall   float64 `json:"p90_overall"`
	AvgLatencyMs float64 `json:"avg_latency_ms"`
	P95LatencyMs float64 `json:"p95_latency_ms"`
}

// WarningCount is how many analyses carried a warning
type WarningCount struct {
	Warning string `json:"warning"`
	Count   int64  `json:"count"`
}

type Summary struct {
	Start    time.Time      `json:"start"`
	End      time.Time      `json:"end"`
	Profiles []ProfileStats `json:"profiles"`
	Warnings []WarningCount `json:"warnings"`
}

// Repository runs the summary queries on the analyses table
type Repository struct {
	db DB
}

// NewRepository creates a metrics repository. Pass a *pgxpool.Pool or pgxmock.
func NewRepository(db DB) *Repository {
	return &Repository{db: db}
}

// Summary aggregates analyses created within the params window
func (r *Repository) Summary(ctx context.Context, params Params) (*Summary, error) {
	profiles, err := r.profileStats(ctx, params)
	if err != nil {
		return nil, err
	}

	warnings, err := r.warningCounts(ctx, params)
	if err != nil {
		return nil, err
	}

	return &Summary{
		Start:    params.Start,
		End:      params.End,
		Profiles: profiles,
		Warnings: warnings,
	}, nil
}

func (r *Repository) profileStats(ctx context.Context, params Params) ([]ProfileStats, error) {
	query := `
		SELECT
			profile,
			COUNT(*) as count,
			AVG(overall)::float8 as avg_overall,
			AVG(potential)::float8 as avg_potential,
			PERCENTILE_CONT(0.50) WITHIN GROUP (ORDER BY overall) as p50_overall,
			PERCENTILE_CONT(0.90) WITHIN GROUP (ORDER BY overall) as p90_overall,
			AVG(latency_ms)::float8 as avg_latency_ms,
			PERCENTILE_CONT(0.95) WITHIN GROUP (ORDER BY latency_ms) as p95_latency_ms
		FROM analyses
		WHERE created_at >= $1 AND created_at < $2
		GROUP BY profile
		ORDER BY profile ASC
	`

	rows, err := r.db.Query(ctx, query, params.Start, params.End)
	if err != nil {
		return nil, fmt.Errorf("query profile stats: %w", err)
	}
	defer rows.Close()

	stats := make([]ProfileStats, 0, 2)
	for rows.Next() {
		var s ProfileStats
		if err := rows.Scan(
			&s.Profile,
			&s.Count,
			&s.AvgOverall,
			&s.AvgPotential,
			&s.P50Overall,
			&s.P90Overall,
			&s.AvgLatencyMs,
			&s.P95LatencyMs,
		); err != nil {
			return nil, fmt.Errorf("scan profile stats: %w", err)
		}
		stats = append(stats, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("profile stats iteration: %w", err)
	}
	return stats, nil
}

func (r *Repository) warningCounts(ctx context.Context, params Params) ([]WarningCount, error) {
	query := `
		SELECT w, COUNT(*) as count
		FROM analyses, unnest(warnings) AS w
		WHERE created_at >= $1 AND created_at < $2
		GROUP BY w
		ORDER BY count DESC, w ASC
	`

	rows, err := r.db.Query(ctx, query, params.Start, params.End)
	if err != nil {
		return nil, fmt.Errorf("query warning counts: %w", err)
	}
	defer rows.Close()

	counts := make([]WarningCount, 0)
	for rows.Next() {
		var wc WarningCount
		if err := rows.Scan(&wc.Warning, &wc.Count); err != nil {
			return nil, fmt.Errorf("scan warning counts: %w", err)
		}
		counts = append(counts, wc)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("warning counts iteration: %w", err)
	}
	return counts, nil
}
