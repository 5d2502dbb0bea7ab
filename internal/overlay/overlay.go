// Package overlay turns a face mesh into draw primitives for the client
// canvas. It only reads landmarks and never feeds back into scoring.
package overlay

import (
	"fmt"

	"github.com/saturnino-fabrica-de-software/faceratio/internal/landmark"
)

// faceOval is the closed MediaPipe face contour, clockwise from the forehead.
var faceOval = []int{
	10, 338, 297, 332, 284, 251, 389, 356, 454, 323, 361, 288,
	397, 365, 379, 378, 400, 377, 152, 148, 176, 149, 150, 136,
	172, 58, 132, 93, 234, 127, 162, 21, 54, 103, 67, 109,
}

var (
	thirdsAnchors = []landmark.Anchor{
		landmark.ForeheadTop, landmark.Browline, landmark.NoseTip, landmark.Chin,
	}
	fifthsAnchors = []landmark.Anchor{
		landmark.FaceLeft, landmark.LeftEyeOuter, landmark.LeftEyeInner,
		landmark.RightEyeInner, landmark.RightEyeOuter, landmark.FaceRight,
	}
)

type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type Line struct {
	From  Point  `json:"from"`
	To    Point  `json:"to"`
	Label string `json:"label,omitempty"`
}

type Marker struct {
	Name string `json:"name"`
	Point
}

// Overlay is everything the client draws on top of the photo.
type Overlay struct {
	Width        int      `json:"width"`
	Height       int      `json:"height"`
	Contour      []Point  `json:"contour"`
	Thirds       []Line   `json:"thirds"`
	Fifths       []Line   `json:"fifths"`
	SymmetryAxis Line     `json:"symmetry_axis"`
	Anchors      []Marker `json:"anchors"`
}

// Build validates mesh and lays out guides on a width x height canvas.
// Guide lines span the whole canvas; the symmetry axis runs through the
// nose bridge and chin and is extended to the top and bottom edges.
func Build(mesh landmark.Mesh, width, height int) (*Overlay, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("overlay: invalid canvas %dx%d", width, height)
	}
	if err := mesh.Validate(); err != nil {
		return nil, err
	}

	w, h := float64(width), float64(height)
	o := &Overlay{
		Width:   width,
		Height:  height,
		Contour: make([]Point, 0, len(faceOval)),
		Thirds:  make([]Line, 0, len(thirdsAnchors)),
		Fifths:  make([]Line, 0, len(fifthsAnchors)),
		Anchors: make([]Marker, 0, len(landmark.Anchors())),
	}

	for _, idx := range faceOval {
		p := mesh.Points[idx]
		o.Contour = append(o.Contour, Point{X: p.X, Y: p.Y})
	}

	for _, a := range thirdsAnchors {
		y := mesh.At(a).Y
		o.Thirds = append(o.Thirds, Line{From: Point{0, y}, To: Point{w, y}, Label: a.String()})
	}

	for _, a := range fifthsAnchors {
		x := mesh.At(a).X
		o.Fifths = append(o.Fifths, Line{From: Point{x, 0}, To: Point{x, h}, Label: a.String()})
	}

	o.SymmetryAxis = axis(mesh.At(landmark.NoseBridge), mesh.At(landmark.Chin), h)

	for _, a := range landmark.Anchors() {
		p := mesh.At(a)
		o.Anchors = append(o.Anchors, Marker{Name: a.String(), Point: Point{X: p.X, Y: p.Y}})
	}

	return o, nil
}

// axis extends the line through top and bottom to y=0 and y=h.
func axis(top, bottom landmark.Point, h float64) Line {
	dy := bottom.Y - top.Y
	if dy == 0 {
		return Line{From: Point{top.X, 0}, To: Point{top.X, h}, Label: "symmetry"}
	}
	slope := (bottom.X - top.X) / dy
	xAt := func(y float64) float64 { return top.X + slope*(y-top.Y) }
	return Line{From: Point{xAt(0), 0}, To: Point{xAt(h), h}, Label: "symmetry"}
}
