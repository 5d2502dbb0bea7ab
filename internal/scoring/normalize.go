package scoring

import "math"

// Window is a calibrated (lo, hi) range for linear normalization.
type Window struct {
	Lo float64
	Hi float64
}

// Calibration holds every normalization window the engine uses.
type Calibration struct {
	Jaw        Window
	Chin       Window
	Cheek      Window
	Face       Window
	Sharpness  Window
	Contrast   Window
	EyeSpacing Window
	NoseMouth  Window
	NoseFace   Window
	Brightness Window
}

// calibration is initialized once and only read afterwards; concurrent
// engines share it without locking.
var calibration = Calibration{
	Jaw:        Window{0.60, 0.85},
	Chin:       Window{0.08, 0.14},
	Cheek:      Window{0.95, 1.25},
	Face:       Window{0.65, 0.90},
	Sharpness:  Window{50, 250},
	Contrast:   Window{20, 70},
	EyeSpacing: Window{0.8, 1.2},
	NoseMouth:  Window{0.6, 0.9},
	NoseFace:   Window{0.20, 0.30},
	Brightness: Window{80, 170},
}

// DefaultCalibration returns a copy of the calibration table.
func DefaultCalibration() Calibration {
	return calibration
}

// Normalize maps x linearly from [lo,hi] onto [0,100], saturating outside.
func Normalize(x, lo, hi float64) float64 {
	return clamp((x-lo)/(hi-lo)*100, 0, 100)
}

// Apply normalizes x against the window.
func (w Window) Apply(x float64) float64 {
	return Normalize(x, w.Lo, w.Hi)
}

// BrightnessCenterScore peaks at 100 in the middle of the brightness window
// and falls off symmetrically toward both edges.
func BrightnessCenterScore(brightness float64) float64 {
	remapped := calibration.Brightness.Apply(brightness)
	return clamp(100-2*math.Abs(remapped-50), 0, 100)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// roundScore rounds half away from zero into the closed range [0,100].
// NaN maps to 0; callers reject it before getting here.
func roundScore(v float64) int {
	if math.IsNaN(v) {
		return 0
	}
	return int(math.Round(clamp(v, 0, 100)))
}
