package scoring

import (
	"math"

	"github.com/saturnino-fabrica-de-software/faceratio/internal/feature"
	"github.com/saturnino-fabrica-de-software/faceratio/internal/quality"
)

// Facet names one 0-100 sub-metric of an analysis.
type Facet string

const (
	FacetJawline      Facet = "jawline"
	FacetCheekbones   Facet = "cheekbones"
	FacetMasculinity  Facet = "masculinity"
	FacetSkinQuality  Facet = "skin_quality"
	FacetSymmetry     Facet = "symmetry"
	FacetGoldenRatio  Facet = "golden_ratio"
	FacetFacialThirds Facet = "facial_thirds"
	FacetFacialFifths Facet = "facial_fifths"
	FacetEyeScore     Facet = "eye_score"
	FacetNoseScore    Facet = "nose_score"
)

const (
	// Phi is the golden ratio target.
	Phi = 1.618
	// goldenFalloff is the deviation from Phi at which the score reaches zero.
	goldenFalloff = 0.5
	// deviationSlope turns relative segment deviation into score points;
	// a worst segment 1/3 off the mean scores zero.
	deviationSlope = 300
	// tiltBonusFavorable and tiltBonusOther are the two canthal tilt levels.
	tiltBonusFavorable = 100
	tiltBonusOther     = 70
)

// inputs bundles what facet scorers read.
type inputs struct {
	features *feature.Set
	quality  quality.Metrics
}

type scorer func(in inputs) (float64, error)

var scorers = map[Facet]scorer{
	FacetJawline:      jawline,
	FacetCheekbones:   cheekbones,
	FacetMasculinity:  masculinity,
	FacetSkinQuality:  skinQuality,
	FacetSymmetry:     symmetry,
	FacetGoldenRatio:  goldenRatio,
	FacetFacialThirds: facialThirds,
	FacetFacialFifths: facialFifths,
	FacetEyeScore:     eyeScore,
	FacetNoseScore:    noseScore,
}

// SymmetryScore compares two distances from the midline. Equal distances
// score 100; the score falls linearly with their difference relative to the
// average and bottoms out at 0.
func SymmetryScore(left, right float64) float64 {
	avg := (left + right) / 2
	if avg == 0 {
		return 100
	}
	return clamp((1-math.Abs(left-right)/avg)*100, 0, 100)
}

// GoldenScore rates how close ratio is to Phi.
func GoldenScore(ratio float64) float64 {
	return clamp(1-math.Abs(ratio-Phi)/goldenFalloff, 0, 1) * 100
}

// DeviationScore rates how evenly segments divide a span. Only the segment
// furthest from the mean counts.
func DeviationScore(segments []float64, measure string) (float64, error) {
	if len(segments) == 0 {
		return 0, &feature.DegenerateGeometryError{Measure: measure}
	}

	var sum float64
	for _, s := range segments {
		sum += s
	}
	mean := sum / float64(len(segments))

	var devMax float64
	for _, s := range segments {
		if d := math.Abs(s - mean); d > devMax {
			devMax = d
		}
	}

	rel, err := feature.Ratio(devMax, mean, measure)
	if err != nil {
		return 0, err
	}
	return clamp(100-deviationSlope*rel, 0, 100), nil
}

// TiltBonus is the coarse two-level canthal tilt score.
func TiltBonus(favorable [2]bool) float64 {
	if favorable[0] && favorable[1] {
		return tiltBonusFavorable
	}
	return tiltBonusOther
}

func symmetry(in inputs) (float64, error) {
	var sum float64
	for _, p := range in.features.Symmetry {
		sum += SymmetryScore(p.Left, p.Right)
	}
	return sum / float64(len(in.features.Symmetry)), nil
}

func goldenRatio(in inputs) (float64, error) {
	r := in.features.Ratios
	return (GoldenScore(r.FaceHeightWidth) + GoldenScore(r.UpperLower)) / 2, nil
}

func facialThirds(in inputs) (float64, error) {
	return DeviationScore(in.features.Thirds[:], "facial thirds")
}

func facialFifths(in inputs) (float64, error) {
	return DeviationScore(in.features.Fifths[:], "facial fifths")
}

func eyeScore(in inputs) (float64, error) {
	spacing := calibration.EyeSpacing.Apply(in.features.Ratios.EyeSpacing)
	return 0.5*spacing + 0.5*TiltBonus(in.features.FavorableTilt), nil
}

func noseScore(in inputs) (float64, error) {
	r := in.features.Ratios
	return 0.5*calibration.NoseMouth.Apply(r.NoseMouth) + 0.5*calibration.NoseFace.Apply(r.NoseFace), nil
}

func jawline(in inputs) (float64, error) {
	r := in.features.Ratios
	return 0.7*calibration.Jaw.Apply(r.Jaw) + 0.3*calibration.Chin.Apply(r.Chin), nil
}

func cheekbones(in inputs) (float64, error) {
	return calibration.Cheek.Apply(in.features.Ratios.Cheek), nil
}

func masculinity(in inputs) (float64, error) {
	r := in.features.Ratios
	return 0.6*calibration.Jaw.Apply(r.Jaw) + 0.4*calibration.Face.Apply(r.FaceWidthHeight), nil
}

func skinQuality(in inputs) (float64, error) {
	q := in.quality
	return 0.5*calibration.Sharpness.Apply(q.Sharpness) +
		0.3*calibration.Contrast.Apply(q.Contrast) +
		0.2*BrightnessCenterScore(q.Brightness), nil
}
