package feature

import (
	"errors"
	"fmt"
	"math"
)

// ErrDegenerateGeometry matches every *DegenerateGeometryError via errors.Is.
var ErrDegenerateGeometry = errors.New("degenerate face geometry")

// DegenerateGeometryError is returned when a reference distance used as a
// denominator is zero, typically because two landmarks coincide, or when a
// measurement overflows float64.
type DegenerateGeometryError struct {
	Measure string
	// Overflow is set when the measure is not finite rather than zero.
	Overflow bool
}

func (e *DegenerateGeometryError) Error() string {
	if e.Overflow {
		return fmt.Sprintf("%v: non-finite %s", ErrDegenerateGeometry, e.Measure)
	}
	return fmt.Sprintf("%v: zero-length %s", ErrDegenerateGeometry, e.Measure)
}

func (e *DegenerateGeometryError) Is(target error) bool {
	return target == ErrDegenerateGeometry
}

// Ratio divides num by den, failing instead of producing NaN or Inf.
func Ratio(num, den float64, measure string) (float64, error) {
	if !finite(num) || !finite(den) {
		return 0, &DegenerateGeometryError{Measure: measure, Overflow: true}
	}
	if den == 0 {
		return 0, &DegenerateGeometryError{Measure: measure}
	}
	q := num / den
	if !finite(q) {
		return 0, &DegenerateGeometryError{Measure: measure, Overflow: true}
	}
	return q, nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
