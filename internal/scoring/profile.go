package scoring

import (
	"fmt"
	"strings"
)

// Profile selects which facets are scored and how they are weighted into
// the overall score.
type Profile string

const (
	// ProfileBasic scores jawline, cheekbones, skin quality and masculinity.
	ProfileBasic Profile = "basic"
	// ProfileExtended adds symmetry, proportion, eye and nose facets.
	ProfileExtended Profile = "extended"
)

type weight struct {
	facet Facet
	value float64
}

var profileWeights = map[Profile][]weight{
	ProfileBasic: {
		{FacetJawline, 0.30},
		{FacetCheekbones, 0.25},
		{FacetSkinQuality, 0.20},
		{FacetMasculinity, 0.25},
	},
	ProfileExtended: {
		{FacetJawline, 0.15},
		{FacetCheekbones, 0.15},
		{FacetSkinQuality, 0.15},
		{FacetMasculinity, 0.15},
		{FacetSymmetry, 0.10},
		{FacetGoldenRatio, 0.05},
		{FacetFacialThirds, 0.05},
		{FacetFacialFifths, 0.05},
		{FacetEyeScore, 0.10},
		{FacetNoseScore, 0.05},
	},
}

// ParseProfile resolves a profile name.
func ParseProfile(name string) (Profile, error) {
	p := Profile(strings.ToLower(strings.TrimSpace(name)))
	if _, ok := profileWeights[p]; !ok {
		return "", fmt.Errorf("unknown scoring profile %q (supported: %s, %s)", name, ProfileBasic, ProfileExtended)
	}
	return p, nil
}

// Facets lists the facets the profile scores, in weight-table order.
func (p Profile) Facets() []Facet {
	ws := profileWeights[p]
	out := make([]Facet, len(ws))
	for i, w := range ws {
		out[i] = w.facet
	}
	return out
}

// Weight returns the weight of f in the profile, or 0 when f is not scored.
func (p Profile) Weight(f Facet) float64 {
	for _, w := range profileWeights[p] {
		if w.facet == f {
			return w.value
		}
	}
	return 0
}
