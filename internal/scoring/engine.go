// Package scoring converts face landmarks and photo-quality metrics into
// calibrated facet scores, an overall score and a quality-adjusted potential.
//
// The Engine is a pure function of its inputs. It holds no mutable state and
// only reads the package calibration table, so a single Engine may be shared
// by any number of goroutines.
package scoring

import (
	"fmt"
	"math"

	"github.com/saturnino-fabrica-de-software/faceratio/internal/feature"
	"github.com/saturnino-fabrica-de-software/faceratio/internal/landmark"
	"github.com/saturnino-fabrica-de-software/faceratio/internal/quality"
)

// Result is the outcome of one analysis.
type Result struct {
	Profile   Profile          `json:"profile"`
	Overall   int              `json:"overall"`
	Potential int              `json:"potential"`
	Facets    map[Facet]int    `json:"facets"`
	Warnings  []Warning        `json:"warnings"`
	Penalty   int              `json:"penalty"`
	Landmarks []landmark.Point `json:"landmarks,omitempty"`
}

// Facet returns the score of f and whether the profile produced it.
func (r *Result) Facet(f Facet) (int, bool) {
	v, ok := r.Facets[f]
	return v, ok
}

// Engine scores faces under one profile chosen at construction.
type Engine struct {
	profile Profile
}

// NewEngine creates an engine for a known profile.
func NewEngine(profile Profile) (*Engine, error) {
	if _, ok := profileWeights[profile]; !ok {
		return nil, fmt.Errorf("unknown scoring profile %q", profile)
	}
	return &Engine{profile: profile}, nil
}

// MustEngine is NewEngine for package-level initialization.
func MustEngine(profile Profile) *Engine {
	e, err := NewEngine(profile)
	if err != nil {
		panic(err)
	}
	return e
}

func (e *Engine) Profile() Profile {
	return e.profile
}

type analyzeOptions struct {
	echoLandmarks bool
}

// AnalyzeOption tunes what an analysis returns.
type AnalyzeOption func(*analyzeOptions)

// WithLandmarks copies the input landmarks into the result for rendering.
func WithLandmarks() AnalyzeOption {
	return func(o *analyzeOptions) {
		o.echoLandmarks = true
	}
}

// Analyze scores one face. It fails with a *landmark.ContractError for
// malformed input and a *feature.DegenerateGeometryError when a reference
// distance is zero.
func (e *Engine) Analyze(mesh landmark.Mesh, q quality.Metrics, opts ...AnalyzeOption) (*Result, error) {
	var o analyzeOptions
	for _, opt := range opts {
		opt(&o)
	}

	if err := q.Validate(); err != nil {
		return nil, &landmark.ContractError{Reason: err.Error()}
	}

	features, err := feature.Extract(mesh)
	if err != nil {
		return nil, err
	}

	in := inputs{features: features, quality: q}
	weights := profileWeights[e.profile]

	facets := make(map[Facet]int, len(weights))
	var overall float64
	for _, w := range weights {
		raw, err := scorers[w.facet](in)
		if err != nil {
			return nil, fmt.Errorf("score %s: %w", w.facet, err)
		}
		if math.IsNaN(raw) || math.IsInf(raw, 0) {
			return nil, &landmark.ContractError{
				Topology: mesh.Topology.Name(),
				Reason:   fmt.Sprintf("%s score is not a finite number", w.facet),
			}
		}
		score := roundScore(raw)
		facets[w.facet] = score
		overall += w.value * float64(score)
	}

	warnings, penalty := EvaluateWarnings(q)
	overallScore := roundScore(overall)

	result := &Result{
		Profile:   e.profile,
		Overall:   overallScore,
		Potential: roundScore(float64(overallScore + penalty)),
		Facets:    facets,
		Warnings:  warnings,
		Penalty:   penalty,
	}

	if o.echoLandmarks {
		result.Landmarks = mesh.Clone().Points
	}

	return result, nil
}
