package scoring

import "github.com/saturnino-fabrica-de-software/faceratio/internal/quality"

// Warning tags a photo-quality problem that depresses the overall score.
type Warning string

const (
	WarningLowSharpness  Warning = "low_sharpness"
	WarningBadBrightness Warning = "bad_brightness"
	WarningLowContrast   Warning = "low_contrast"
)

// rule is one warning predicate with its additive penalty.
type rule struct {
	tag     Warning
	penalty int
	fires   func(q quality.Metrics) bool
}

// rules are evaluated in this order; the order of emitted tags follows it.
var rules = []rule{
	{
		tag:     WarningLowSharpness,
		penalty: 15,
		fires:   func(q quality.Metrics) bool { return q.Sharpness <= 150 },
	},
	{
		tag:     WarningBadBrightness,
		penalty: 10,
		fires:   func(q quality.Metrics) bool { return q.Brightness < 90 || q.Brightness > 160 },
	},
	{
		tag:     WarningLowContrast,
		penalty: 10,
		fires:   func(q quality.Metrics) bool { return q.Contrast <= 35 },
	},
}

// EvaluateWarnings returns the warning tags for q and their summed penalty.
// The returned slice is never nil.
func EvaluateWarnings(q quality.Metrics) ([]Warning, int) {
	tags := make([]Warning, 0, len(rules))
	penalty := 0
	for _, r := range rules {
		if r.fires(q) {
			tags = append(tags, r.tag)
			penalty += r.penalty
		}
	}
	return tags, penalty
}
