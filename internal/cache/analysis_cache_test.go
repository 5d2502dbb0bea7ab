package cache

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saturnino-fabrica-de-software/faceratio/internal/domain"
	"github.com/saturnino-fabrica-de-software/faceratio/internal/quality"
	"github.com/saturnino-fabrica-de-software/faceratio/internal/scoring"
)

func sampleAnalysis() *domain.Analysis {
	return &domain.Analysis{
		ID:          uuid.New(),
		Source:      domain.SourceImage,
		Profile:     scoring.ProfileBasic,
		Topology:    "face_mesh_478",
		ImageDigest: "d1g3st",
		Overall:     71,
		Potential:   71,
		Facets:      map[scoring.Facet]int{scoring.FacetJawline: 86},
		Warnings:    []scoring.Warning{},
		Quality:     quality.Metrics{Sharpness: 200, Brightness: 120, Contrast: 50},
	}
}

func TestAnalysisCache_PutAndGet(t *testing.T) {
	store, mock := newTestCache(t)
	c := NewAnalysisCache(store, time.Hour)
	a := sampleAnalysis()
	raw, err := json.Marshal(a)
	require.NoError(t, err)

	mock.ExpectExec("INSERT INTO analysis_cache").
		WithArgs("d1g3st", "basic", raw, fixedNow.Add(time.Hour)).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	require.NoError(t, c.Put(context.Background(), a))

	mock.ExpectQuery("SELECT result FROM analysis_cache").
		WithArgs("d1g3st", "basic", fixedNow).
		WillReturnRows(pgxmock.NewRows([]string{"result"}).AddRow(raw))

	got, err := c.Get(context.Background(), "d1g3st", scoring.ProfileBasic)
	require.NoError(t, err)
	assert.Equal(t, a.ID, got.ID)
	assert.Equal(t, a.Facets, got.Facets)
	assert.Equal(t, "d1g3st", got.ImageDigest)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAnalysisCache_ProfilesAreSeparate(t *testing.T) {
	store, mock := newTestCache(t)
	c := NewAnalysisCache(store, time.Hour)

	mock.ExpectQuery("SELECT result FROM analysis_cache").
		WithArgs("d1g3st", "extended", fixedNow).
		WillReturnError(pgx.ErrNoRows)

	_, err := c.Get(context.Background(), "d1g3st", scoring.ProfileExtended)
	assert.ErrorIs(t, err, ErrCacheMiss)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAnalysisCache_CorruptEntry(t *testing.T) {
	store, mock := newTestCache(t)
	c := NewAnalysisCache(store, time.Hour)

	mock.ExpectQuery("SELECT result FROM analysis_cache").
		WithArgs("d1g3st", "basic", fixedNow).
		WillReturnRows(pgxmock.NewRows([]string{"result"}).AddRow([]byte("{")))

	_, err := c.Get(context.Background(), "d1g3st", scoring.ProfileBasic)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode cached analysis")
}

func TestAnalysisCache_Forget(t *testing.T) {
	store, mock := newTestCache(t)
	c := NewAnalysisCache(store, time.Hour)

	mock.ExpectExec("DELETE FROM analysis_cache WHERE digest").
		WithArgs("d1g3st").
		WillReturnResult(pgxmock.NewResult("DELETE", 2))

	assert.NoError(t, c.Forget(context.Background(), "d1g3st"))
	assert.NoError(t, c.Forget(context.Background(), ""))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAnalysisCache_PutRequiresDigest(t *testing.T) {
	c := NewAnalysisCache(NewPGCacheWithDB(nil), time.Hour)
	a := sampleAnalysis()
	a.ImageDigest = ""
	assert.Error(t, c.Put(context.Background(), a))
}
