// Package quality measures photo quality statistics used by skin-quality
// scoring and by the warning evaluator.
package quality

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrInvalidMetrics indicates a metrics record outside its documented ranges
	ErrInvalidMetrics = errors.New("invalid quality metrics")
	// ErrUndecodable indicates image bytes that no registered decoder accepts
	ErrUndecodable = errors.New("image could not be decoded")
	// ErrImageTooSmall indicates an image too small for the Laplacian kernel
	ErrImageTooSmall = errors.New("image too small for quality analysis")
	// ErrImageTooLarge indicates an image whose declared dimensions exceed the pixel budget
	ErrImageTooLarge = errors.New("image too large for quality analysis")
)

// Metrics are the image statistics of one photo.
type Metrics struct {
	Sharpness  float64 `json:"sharpness"`  // variance of the Laplacian, >= 0
	Brightness float64 `json:"brightness"` // mean luma in [0,255]
	Contrast   float64 `json:"contrast"`   // luma standard deviation, >= 0
}

// Validate checks every field against its range.
func (m Metrics) Validate() error {
	switch {
	case !finite(m.Sharpness) || m.Sharpness < 0:
		return fmt.Errorf("%w: sharpness %v must be >= 0", ErrInvalidMetrics, m.Sharpness)
	case !finite(m.Brightness) || m.Brightness < 0 || m.Brightness > 255:
		return fmt.Errorf("%w: brightness %v must be within [0,255]", ErrInvalidMetrics, m.Brightness)
	case !finite(m.Contrast) || m.Contrast < 0:
		return fmt.Errorf("%w: contrast %v must be >= 0", ErrInvalidMetrics, m.Contrast)
	}
	return nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
