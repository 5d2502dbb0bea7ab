package landmark

import (
	"fmt"
	"strings"
)

// Anchor names an anatomical point the scoring engine reads from a face mesh.
// Left and right refer to sides of the image, not of the subject.
type Anchor int

const (
	ForeheadTop Anchor = iota
	Browline
	NoseBridge
	NoseTip
	NoseLeft
	NoseRight
	MouthLeft
	MouthRight
	LowerLip
	Chin
	FaceLeft
	FaceRight
	CheekLeft
	CheekRight
	JawLeft
	JawRight
	LeftEyeOuter
	LeftEyeInner
	RightEyeInner
	RightEyeOuter

	anchorCount
)

// meshIndex maps every anchor to its index in the MediaPipe face mesh.
// The first 468 indices are shared by the 468- and 478-point variants.
var meshIndex = [anchorCount]int{
	ForeheadTop:   10,
	Browline:      9,
	NoseBridge:    168,
	NoseTip:       1,
	NoseLeft:      129,
	NoseRight:     358,
	MouthLeft:     61,
	MouthRight:    291,
	LowerLip:      17,
	Chin:          152,
	FaceLeft:      234,
	FaceRight:     454,
	CheekLeft:     116,
	CheekRight:    345,
	JawLeft:       172,
	JawRight:      397,
	LeftEyeOuter:  33,
	LeftEyeInner:  133,
	RightEyeInner: 362,
	RightEyeOuter: 263,
}

var anchorNames = [anchorCount]string{
	ForeheadTop:   "forehead_top",
	Browline:      "browline",
	NoseBridge:    "nose_bridge",
	NoseTip:       "nose_tip",
	NoseLeft:      "nose_left",
	NoseRight:     "nose_right",
	MouthLeft:     "mouth_left",
	MouthRight:    "mouth_right",
	LowerLip:      "lower_lip",
	Chin:          "chin",
	FaceLeft:      "face_left",
	FaceRight:     "face_right",
	CheekLeft:     "cheek_left",
	CheekRight:    "cheek_right",
	JawLeft:       "jaw_left",
	JawRight:      "jaw_right",
	LeftEyeOuter:  "left_eye_outer",
	LeftEyeInner:  "left_eye_inner",
	RightEyeInner: "right_eye_inner",
	RightEyeOuter: "right_eye_outer",
}

func (a Anchor) String() string {
	if a < 0 || a >= anchorCount {
		return fmt.Sprintf("anchor(%d)", int(a))
	}
	return anchorNames[a]
}

// Anchors returns every anchor in declaration order.
func Anchors() []Anchor {
	out := make([]Anchor, 0, anchorCount)
	for a := Anchor(0); a < anchorCount; a++ {
		out = append(out, a)
	}
	return out
}

// Topology describes a fixed landmark layout produced by a detector.
// Values are created once at package initialization and never modified.
type Topology struct {
	name string
	size int
}

var (
	// FaceMesh468 is the MediaPipe face mesh without iris refinement.
	FaceMesh468 = mustTopology("face_mesh_468", 468)
	// FaceMesh478 is the MediaPipe face mesh with the ten iris points appended.
	FaceMesh478 = mustTopology("face_mesh_478", 478)
)

func newTopology(name string, size int) (Topology, error) {
	if size <= 0 {
		return Topology{}, fmt.Errorf("topology %s: size must be positive, got %d", name, size)
	}
	for a, idx := range meshIndex {
		if idx < 0 || idx >= size {
			return Topology{}, fmt.Errorf("topology %s: anchor %s index %d out of range [0,%d)",
				name, Anchor(a), idx, size)
		}
	}
	return Topology{name: name, size: size}, nil
}

func mustTopology(name string, size int) Topology {
	t, err := newTopology(name, size)
	if err != nil {
		panic(err)
	}
	return t
}

// ParseTopology resolves a topology by name. Both "face_mesh_478" and "478" are accepted.
func ParseTopology(name string) (Topology, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case FaceMesh468.name, "468":
		return FaceMesh468, nil
	case FaceMesh478.name, "478":
		return FaceMesh478, nil
	default:
		return Topology{}, &ContractError{Topology: name, Reason: "unknown topology"}
	}
}

// ForSize returns the known topology with exactly n points.
func ForSize(n int) (Topology, bool) {
	switch n {
	case FaceMesh468.size:
		return FaceMesh468, true
	case FaceMesh478.size:
		return FaceMesh478, true
	}
	return Topology{}, false
}

func (t Topology) Name() string { return t.name }

func (t Topology) Size() int { return t.size }

// Index returns the mesh index of an anchor.
func (t Topology) Index(a Anchor) int {
	return meshIndex[a]
}

// IsZero reports whether t was never initialized from a known layout.
func (t Topology) IsZero() bool {
	return t.size == 0
}
