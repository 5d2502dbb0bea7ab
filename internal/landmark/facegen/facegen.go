// Package facegen builds synthetic face meshes. The mock detector uses it to
// serve deterministic faces and tests use it to shape specific geometries.
package facegen

import (
	"math"

	"github.com/saturnino-fabrica-de-software/faceratio/internal/landmark"
)

// Layout pins anchors to pixel coordinates. Points that are not anchors are
// spread over an ellipse spanning the face contour.
type Layout map[landmark.Anchor][2]float64

// Reference returns a frontal, left/right symmetric face on a 1000x1000 canvas
// whose horizontal fifths are exactly equal.
func Reference() Layout {
	return Layout{
		landmark.ForeheadTop:   {500, 200},
		landmark.Browline:      {500, 370},
		landmark.NoseBridge:    {500, 420},
		landmark.NoseTip:       {500, 560},
		landmark.NoseLeft:      {465, 550},
		landmark.NoseRight:     {535, 550},
		landmark.MouthLeft:     {445, 630},
		landmark.MouthRight:    {555, 630},
		landmark.LowerLip:      {500, 660},
		landmark.Chin:          {500, 740},
		landmark.FaceLeft:      {300, 450},
		landmark.FaceRight:     {700, 450},
		landmark.CheekLeft:     {320, 480},
		landmark.CheekRight:    {680, 480},
		landmark.JawLeft:       {340, 650},
		landmark.JawRight:      {660, 650},
		landmark.LeftEyeOuter:  {380, 428},
		landmark.LeftEyeInner:  {460, 432},
		landmark.RightEyeInner: {540, 432},
		landmark.RightEyeOuter: {620, 428},
	}
}

// Clone returns an independent copy of l.
func (l Layout) Clone() Layout {
	out := make(Layout, len(l))
	for k, v := range l {
		out[k] = v
	}
	return out
}

// Set moves one anchor and returns l for chaining.
func (l Layout) Set(a landmark.Anchor, x, y float64) Layout {
	l[a] = [2]float64{x, y}
	return l
}

// Scale multiplies every coordinate around the canvas origin.
func (l Layout) Scale(f float64) Layout {
	for k, v := range l {
		l[k] = [2]float64{v[0] * f, v[1] * f}
	}
	return l
}

// Mesh renders the layout into a full point sequence for topology t.
func (l Layout) Mesh(t landmark.Topology) landmark.Mesh {
	cx, cy, rx, ry := l.ellipse()

	n := t.Size()
	points := make([]landmark.Point, n)
	for i := 0; i < n; i++ {
		theta := 2 * math.Pi * float64(i) / float64(n)
		points[i] = landmark.Point{
			Index: i,
			X:     cx + rx*math.Cos(theta),
			Y:     cy + ry*math.Sin(theta),
		}
	}

	for a, xy := range l {
		idx := t.Index(a)
		points[idx] = landmark.Point{Index: idx, X: xy[0], Y: xy[1]}
	}

	return landmark.Mesh{Topology: t, Points: points}
}

func (l Layout) ellipse() (cx, cy, rx, ry float64) {
	left, lok := l[landmark.FaceLeft]
	right, rok := l[landmark.FaceRight]
	top, tok := l[landmark.ForeheadTop]
	chin, cok := l[landmark.Chin]
	if !lok || !rok || !tok || !cok {
		return 500, 500, 200, 270
	}
	cx = (left[0] + right[0]) / 2
	cy = (top[1] + chin[1]) / 2
	rx = math.Abs(right[0]-left[0]) / 2
	ry = math.Abs(chin[1]-top[1]) / 2
	return cx, cy, rx, ry
}
