package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/saturnino-fabrica-de-software/faceratio/internal/domain"
	"github.com/saturnino-fabrica-de-software/faceratio/internal/scoring"
)

const analysisColumns = `id, source, profile, topology, image_digest, overall, potential, facets, warnings, penalty, quality, image_width, image_height, landmarks, latency_ms, created_at`

type AnalysisRepository struct {
	pool PgxPool
}

func NewAnalysisRepository(pool PgxPool) *AnalysisRepository {
	return &AnalysisRepository{pool: pool}
}

func (r *AnalysisRepository) Create(ctx context.Context, a *domain.Analysis) error {
	query := `INSERT INTO analyses (id, source, profile, topology, image_digest, overall, potential, facets, warnings, penalty, quality, image_width, image_height, landmarks, latency_ms) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15) RETURNING created_at`

	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}

	facets, err := json.Marshal(a.Facets)
	if err != nil {
		return fmt.Errorf("encode facets: %w", err)
	}
	quality, err := json.Marshal(a.Quality)
	if err != nil {
		return fmt.Errorf("encode quality: %w", err)
	}
	var landmarks []byte
	if len(a.Landmarks) > 0 {
		if landmarks, err = json.Marshal(a.Landmarks); err != nil {
			return fmt.Errorf("encode landmarks: %w", err)
		}
	}

	err = r.pool.QueryRow(ctx, query,
		a.ID,
		a.Source,
		string(a.Profile),
		a.Topology,
		nullString(a.ImageDigest),
		a.Overall,
		a.Potential,
		facets,
		warningStrings(a.Warnings),
		a.Penalty,
		quality,
		nullInt(a.ImageWidth),
		nullInt(a.ImageHeight),
		landmarks,
		a.LatencyMs,
	).Scan(&a.CreatedAt)
	if err != nil {
		return fmt.Errorf("create analysis: %w", err)
	}

	return nil
}

func (r *AnalysisRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Analysis, error) {
	query := `SELECT ` + analysisColumns + ` FROM analyses WHERE id = $1`

	a, err := scanAnalysis(r.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrAnalysisNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get analysis by id: %w", err)
	}

	return a, nil
}

// List returns analyses newest first, without landmarks
func (r *AnalysisRepository) List(ctx context.Context, limit, offset int) ([]domain.Analysis, error) {
	query := `SELECT ` + analysisColumns + ` FROM analyses ORDER BY created_at DESC LIMIT $1 OFFSET $2`

	rows, err := r.pool.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list analyses: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Analysis, 0, limit)
	for rows.Next() {
		a, err := scanAnalysis(rows)
		if err != nil {
			return nil, fmt.Errorf("list analyses: %w", err)
		}
		a.Landmarks = nil
		out = append(out, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list analyses: %w", err)
	}

	return out, nil
}

// Delete removes the analysis and returns its image digest, empty for landmark analyses
func (r *AnalysisRepository) Delete(ctx context.Context, id uuid.UUID) (string, error) {
	query := `DELETE FROM analyses WHERE id = $1 RETURNING image_digest`

	var digest *string
	err := r.pool.QueryRow(ctx, query, id).Scan(&digest)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", domain.ErrAnalysisNotFound
	}
	if err != nil {
		return "", fmt.Errorf("delete analysis: %w", err)
	}

	if digest == nil {
		return "", nil
	}
	return *digest, nil
}

func scanAnalysis(row pgx.Row) (*domain.Analysis, error) {
	var (
		a                     domain.Analysis
		profile               string
		digest                *string
		width, height         *int
		facets, quality, mesh []byte
		warnings              []string
	)

	err := row.Scan(
		&a.ID,
		&a.Source,
		&profile,
		&a.Topology,
		&digest,
		&a.Overall,
		&a.Potential,
		&facets,
		&warnings,
		&a.Penalty,
		&quality,
		&width,
		&height,
		&mesh,
		&a.LatencyMs,
		&a.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	a.Profile = scoring.Profile(profile)
	if digest != nil {
		a.ImageDigest = *digest
	}
	if width != nil {
		a.ImageWidth = *width
	}
	if height != nil {
		a.ImageHeight = *height
	}

	if err := json.Unmarshal(facets, &a.Facets); err != nil {
		return nil, fmt.Errorf("decode facets: %w", err)
	}
	if err := json.Unmarshal(quality, &a.Quality); err != nil {
		return nil, fmt.Errorf("decode quality: %w", err)
	}
	if len(mesh) > 0 {
		if err := json.Unmarshal(mesh, &a.Landmarks); err != nil {
			return nil, fmt.Errorf("decode landmarks: %w", err)
		}
	}

	a.Warnings = make([]scoring.Warning, len(warnings))
	for i, w := range warnings {
		a.Warnings[i] = scoring.Warning(w)
	}

	return &a, nil
}

func warningStrings(ws []scoring.Warning) []string {
	out := make([]string, len(ws))
	for i, w := range ws {
		out[i] = string(w)
	}
	return out
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func nullInt(v int) *int {
	if v == 0 {
		return nil
	}
	return &v
}
