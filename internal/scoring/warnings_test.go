package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/saturnino-fabrica-de-software/faceratio/internal/quality"
)

func TestEvaluateWarnings(t *testing.T) {
	tests := []struct {
		name        string
		metrics     quality.Metrics
		wantTags    []Warning
		wantPenalty int
	}{
		{
			name:        "clean photo",
			metrics:     quality.Metrics{Sharpness: 200, Brightness: 120, Contrast: 50},
			wantTags:    []Warning{},
			wantPenalty: 0,
		},
		{
			name:        "everything wrong",
			metrics:     quality.Metrics{Sharpness: 100, Brightness: 200, Contrast: 20},
			wantTags:    []Warning{WarningLowSharpness, WarningBadBrightness, WarningLowContrast},
			wantPenalty: 35,
		},
		{
			name:        "sharpness threshold is inclusive",
			metrics:     quality.Metrics{Sharpness: 150, Brightness: 120, Contrast: 50},
			wantTags:    []Warning{WarningLowSharpness},
			wantPenalty: 15,
		},
		{
			name:        "brightness bounds are acceptable",
			metrics:     quality.Metrics{Sharpness: 151, Brightness: 90, Contrast: 36},
			wantTags:    []Warning{},
			wantPenalty: 0,
		},
		{
			name:        "upper brightness bound acceptable",
			metrics:     quality.Metrics{Sharpness: 151, Brightness: 160, Contrast: 36},
			wantTags:    []Warning{},
			wantPenalty: 0,
		},
		{
			name:        "dark photo",
			metrics:     quality.Metrics{Sharpness: 300, Brightness: 89.9, Contrast: 60},
			wantTags:    []Warning{WarningBadBrightness},
			wantPenalty: 10,
		},
		{
			name:        "contrast threshold is inclusive",
			metrics:     quality.Metrics{Sharpness: 300, Brightness: 120, Contrast: 35},
			wantTags:    []Warning{WarningLowContrast},
			wantPenalty: 10,
		},
		{
			name:        "order follows sharpness, brightness, contrast",
			metrics:     quality.Metrics{Sharpness: 10, Brightness: 120, Contrast: 5},
			wantTags:    []Warning{WarningLowSharpness, WarningLowContrast},
			wantPenalty: 25,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tags, penalty := EvaluateWarnings(tt.metrics)
			assert.NotNil(t, tags)
			assert.Equal(t, tt.wantTags, tags)
			assert.Equal(t, tt.wantPenalty, penalty)
		})
	}
}
