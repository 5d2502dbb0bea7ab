package landmark

import (
	"errors"
	"fmt"
	"math"
)

// ErrContract matches every *ContractError via errors.Is.
var ErrContract = errors.New("landmark contract violation")

// ContractError reports landmark input that does not match its declared topology.
// It is an integration error and is never retried.
type ContractError struct {
	Topology string
	Reason   string
}

func (e *ContractError) Error() string {
	if e.Topology == "" {
		return fmt.Sprintf("%v: %s", ErrContract, e.Reason)
	}
	return fmt.Sprintf("%v: %s: %s", ErrContract, e.Topology, e.Reason)
}

func (e *ContractError) Is(target error) bool {
	return target == ErrContract
}

// Point is one landmark in image pixel space. Y grows downward.
type Point struct {
	Index int     `json:"index"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
}

// Distance returns the Euclidean distance between two points.
func Distance(a, b Point) float64 {
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}

// Mesh is the landmark sequence of one detected face together with the
// topology the detector declared for it.
type Mesh struct {
	Topology Topology
	Points   []Point
}

// Validate checks the mesh against its topology. It must succeed before At is used.
func (m Mesh) Validate() error {
	if m.Topology.IsZero() {
		return &ContractError{Reason: "topology not declared"}
	}

	name := m.Topology.Name()
	if len(m.Points) != m.Topology.Size() {
		return &ContractError{
			Topology: name,
			Reason:   fmt.Sprintf("expected %d landmarks, got %d", m.Topology.Size(), len(m.Points)),
		}
	}

	for i, p := range m.Points {
		if p.Index != i {
			return &ContractError{
				Topology: name,
				Reason:   fmt.Sprintf("landmark at position %d has index %d", i, p.Index),
			}
		}
		if !isFinite(p.X) || !isFinite(p.Y) {
			return &ContractError{
				Topology: name,
				Reason:   fmt.Sprintf("landmark %d has non-finite coordinates", i),
			}
		}
	}

	return nil
}

// At returns the point for an anchor. The mesh must have been validated.
func (m Mesh) At(a Anchor) Point {
	return m.Points[m.Topology.Index(a)]
}

// Clone returns a copy whose point slice does not alias m.
func (m Mesh) Clone() Mesh {
	pts := make([]Point, len(m.Points))
	copy(pts, m.Points)
	return Mesh{Topology: m.Topology, Points: pts}
}

// FromXY builds an indexed point sequence from raw coordinate pairs.
func FromXY(coords [][2]float64) []Point {
	pts := make([]Point, len(coords))
	for i, c := range coords {
		pts[i] = Point{Index: i, X: c[0], Y: c[1]}
	}
	return pts
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
