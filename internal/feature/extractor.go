// Package feature turns a validated face mesh into the distances and ratios
// the scoring engine consumes.
package feature

import (
	"math"

	"github.com/saturnino-fabrica-de-software/faceratio/internal/landmark"
)

// Pair holds the distances from the facial midline to the left and right
// member of a bilateral landmark pair.
type Pair struct {
	Left  float64
	Right float64
}

// Ratios are the dimensionless measurements scored against calibration windows.
type Ratios struct {
	Jaw             float64 // jaw width / face width
	Chin            float64 // chin length / face height
	Cheek           float64 // cheek width / jaw width
	FaceWidthHeight float64 // face width / face height
	FaceHeightWidth float64 // face height / face width
	EyeSpacing      float64 // inter-eye gap / mean eye width
	NoseMouth       float64 // nose width / mouth width
	NoseFace        float64 // nose width / face width
	UpperLower      float64 // upper face segment / lower face segment
}

// Set is the per-call measurement bundle. It is never shared between calls.
type Set struct {
	FaceWidth     float64
	FaceHeight    float64
	JawWidth      float64
	CheekWidth    float64
	ChinLength    float64
	LeftEyeWidth  float64
	RightEyeWidth float64
	InterEyeGap   float64
	NoseWidth     float64
	MouthWidth    float64
	UpperFace     float64
	LowerFace     float64

	// Thirds are vertical spans forehead→browline, browline→nose tip, nose tip→chin.
	Thirds [3]float64
	// Fifths are horizontal spans face edge→outer eye, left eye, inter-eye gap,
	// right eye, outer eye→face edge.
	Fifths [5]float64

	// Symmetry pairs measured from the nose bridge: outer eye corners,
	// cheekbone highs, jaw corners.
	Symmetry [3]Pair

	// Tilt is the canthal tilt of each eye in degrees, positive when the outer
	// corner sits above the inner corner.
	Tilt Pair
	// FavorableTilt reports outer.Y < inner.Y for the left and right eye.
	FavorableTilt [2]bool

	Ratios Ratios
}

// Extract validates the mesh and computes its feature set.
func Extract(mesh landmark.Mesh) (*Set, error) {
	if err := mesh.Validate(); err != nil {
		return nil, err
	}

	at := mesh.At
	dist := func(a, b landmark.Anchor) float64 {
		return landmark.Distance(at(a), at(b))
	}

	s := &Set{
		FaceWidth:     dist(landmark.FaceLeft, landmark.FaceRight),
		FaceHeight:    dist(landmark.ForeheadTop, landmark.Chin),
		JawWidth:      dist(landmark.JawLeft, landmark.JawRight),
		CheekWidth:    dist(landmark.CheekLeft, landmark.CheekRight),
		ChinLength:    dist(landmark.LowerLip, landmark.Chin),
		LeftEyeWidth:  dist(landmark.LeftEyeOuter, landmark.LeftEyeInner),
		RightEyeWidth: dist(landmark.RightEyeInner, landmark.RightEyeOuter),
		InterEyeGap:   dist(landmark.LeftEyeInner, landmark.RightEyeInner),
		NoseWidth:     dist(landmark.NoseLeft, landmark.NoseRight),
		MouthWidth:    dist(landmark.MouthLeft, landmark.MouthRight),
		UpperFace:     vertical(at(landmark.ForeheadTop), at(landmark.NoseTip)),
		LowerFace:     vertical(at(landmark.NoseTip), at(landmark.Chin)),
	}

	s.Thirds = [3]float64{
		vertical(at(landmark.ForeheadTop), at(landmark.Browline)),
		vertical(at(landmark.Browline), at(landmark.NoseTip)),
		vertical(at(landmark.NoseTip), at(landmark.Chin)),
	}

	s.Fifths = [5]float64{
		horizontal(at(landmark.FaceLeft), at(landmark.LeftEyeOuter)),
		horizontal(at(landmark.LeftEyeOuter), at(landmark.LeftEyeInner)),
		horizontal(at(landmark.LeftEyeInner), at(landmark.RightEyeInner)),
		horizontal(at(landmark.RightEyeInner), at(landmark.RightEyeOuter)),
		horizontal(at(landmark.RightEyeOuter), at(landmark.FaceRight)),
	}

	center := at(landmark.NoseBridge)
	s.Symmetry = [3]Pair{
		sides(center, at(landmark.LeftEyeOuter), at(landmark.RightEyeOuter)),
		sides(center, at(landmark.CheekLeft), at(landmark.CheekRight)),
		sides(center, at(landmark.JawLeft), at(landmark.JawRight)),
	}

	leftOuter, leftInner := at(landmark.LeftEyeOuter), at(landmark.LeftEyeInner)
	rightOuter, rightInner := at(landmark.RightEyeOuter), at(landmark.RightEyeInner)
	s.Tilt = Pair{
		Left:  tilt(leftOuter, leftInner),
		Right: tilt(rightOuter, rightInner),
	}
	s.FavorableTilt = [2]bool{
		leftOuter.Y < leftInner.Y,
		rightOuter.Y < rightInner.Y,
	}

	if err := s.checkFinite(); err != nil {
		return nil, err
	}

	var d divider
	meanEye := (s.LeftEyeWidth + s.RightEyeWidth) / 2
	s.Ratios = Ratios{
		Jaw:             d.div(s.JawWidth, s.FaceWidth, "face width"),
		Chin:            d.div(s.ChinLength, s.FaceHeight, "face height"),
		Cheek:           d.div(s.CheekWidth, s.JawWidth, "jaw width"),
		FaceWidthHeight: d.div(s.FaceWidth, s.FaceHeight, "face height"),
		FaceHeightWidth: d.div(s.FaceHeight, s.FaceWidth, "face width"),
		EyeSpacing:      d.div(s.InterEyeGap, meanEye, "eye width"),
		NoseMouth:       d.div(s.NoseWidth, s.MouthWidth, "mouth width"),
		NoseFace:        d.div(s.NoseWidth, s.FaceWidth, "face width"),
		UpperLower:      d.div(s.UpperFace, s.LowerFace, "lower face segment"),
	}
	if d.err != nil {
		return nil, d.err
	}

	return s, nil
}

type extent struct {
	name string
	v    float64
}

// checkFinite rejects coordinates far enough apart that a distance overflows.
func (s *Set) checkFinite() error {
	extents := []extent{
		{"face width", s.FaceWidth},
		{"face height", s.FaceHeight},
		{"jaw width", s.JawWidth},
		{"cheek width", s.CheekWidth},
		{"chin length", s.ChinLength},
		{"eye width", s.LeftEyeWidth},
		{"eye width", s.RightEyeWidth},
		{"inter-eye gap", s.InterEyeGap},
		{"nose width", s.NoseWidth},
		{"mouth width", s.MouthWidth},
		{"upper face segment", s.UpperFace},
		{"lower face segment", s.LowerFace},
	}
	for _, t := range s.Thirds {
		extents = append(extents, extent{"facial thirds", t})
	}
	for _, f := range s.Fifths {
		extents = append(extents, extent{"facial fifths", f})
	}
	for _, p := range s.Symmetry {
		extents = append(extents, extent{"symmetry distance", p.Left}, extent{"symmetry distance", p.Right})
	}

	for _, e := range extents {
		if !finite(e.v) {
			return &DegenerateGeometryError{Measure: e.name, Overflow: true}
		}
	}
	return nil
}

// divider keeps the first degenerate division and short-circuits the rest.
type divider struct {
	err error
}

func (d *divider) div(num, den float64, measure string) float64 {
	if d.err != nil {
		return 0
	}
	v, err := Ratio(num, den, measure)
	if err != nil {
		d.err = err
		return 0
	}
	return v
}

func vertical(a, b landmark.Point) float64 {
	return math.Abs(b.Y - a.Y)
}

func horizontal(a, b landmark.Point) float64 {
	return math.Abs(b.X - a.X)
}

func sides(center, left, right landmark.Point) Pair {
	return Pair{
		Left:  landmark.Distance(center, left),
		Right: landmark.Distance(center, right),
	}
}

// tilt is the angle of the inner→outer corner vector above the horizontal.
func tilt(outer, inner landmark.Point) float64 {
	dx := math.Abs(outer.X - inner.X)
	dy := inner.Y - outer.Y
	if dx == 0 && dy == 0 {
		return 0
	}
	return math.Atan2(dy, dx) * 180 / math.Pi
}
