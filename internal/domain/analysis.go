package domain

import (
	"time"

	"github.com/google/uuid"

	"github.com/saturnino-fabrica-de-software/faceratio/internal/landmark"
	"github.com/saturnino-fabrica-de-software/faceratio/internal/overlay"
	"github.com/saturnino-fabrica-de-software/faceratio/internal/quality"
	"github.com/saturnino-fabrica-de-software/faceratio/internal/scoring"
)

// Analysis sources
const (
	SourceImage     = "image"
	SourceLandmarks = "landmarks"
)

// Analysis is a stored scoring result
type Analysis struct {
	ID          uuid.UUID             `json:"id"`
	Source      string                `json:"source"`
	Profile     scoring.Profile       `json:"profile"`
	Topology    string                `json:"topology"`
	ImageDigest string                `json:"-"`
	Overall     int                   `json:"overall"`
	Potential   int                   `json:"potential"`
	Facets      map[scoring.Facet]int `json:"facets"`
	Warnings    []scoring.Warning     `json:"warnings"`
	Penalty     int                   `json:"penalty"`
	Quality     quality.Metrics       `json:"quality"`
	ImageWidth  int                   `json:"image_width,omitempty"`
	ImageHeight int                   `json:"image_height,omitempty"`
	Landmarks   []landmark.Point      `json:"landmarks,omitempty"`
	Overlay     *overlay.Overlay      `json:"overlay,omitempty"`
	LatencyMs   int64                 `json:"latency_ms"`
	CreatedAt   time.Time             `json:"created_at"`
}

// Mesh rebuilds the landmark mesh stored with the analysis
func (a *Analysis) Mesh() (landmark.Mesh, error) {
	t, err := landmark.ParseTopology(a.Topology)
	if err != nil {
		return landmark.Mesh{}, err
	}
	m := landmark.Mesh{Topology: t, Points: a.Landmarks}
	return m, m.Validate()
}

// Public strips what the caller did not ask for
func (a *Analysis) Public(includeLandmarks bool) *Analysis {
	out := *a
	if !includeLandmarks {
		out.Landmarks = nil
	}
	return &out
}

// NewAnalysis copies an engine result into a new record
func NewAnalysis(source string, topology landmark.Topology, q quality.Metrics, res *scoring.Result) *Analysis {
	return &Analysis{
		ID:        uuid.New(),
		Source:    source,
		Profile:   res.Profile,
		Topology:  topology.Name(),
		Overall:   res.Overall,
		Potential: res.Potential,
		Facets:    res.Facets,
		Warnings:  res.Warnings,
		Penalty:   res.Penalty,
		Quality:   q,
		Landmarks: res.Landmarks,
	}
}
