package provider

import (
	"context"

	"github.com/saturnino-fabrica-de-software/faceratio/internal/landmark"
)

// LandmarkDetector finds faces in an image and returns a dense landmark mesh for each
type LandmarkDetector interface {
	// DetectLandmarks returns every face found, in pixel space of the original image.
	// An image without faces yields an empty Detection, not an error.
	DetectLandmarks(ctx context.Context, image []byte) (*Detection, error)

	// Name identifies the detector in logs and audit events
	Name() string
}

// Detection is the detector output for one image
type Detection struct {
	ImageWidth  int            `json:"image_width"`
	ImageHeight int            `json:"image_height"`
	Faces       []DetectedFace `json:"faces"`
}

// DetectedFace represents a detected face in the image
type DetectedFace struct {
	BoundingBox BoundingBox   `json:"bounding_box"`
	Confidence  float64       `json:"confidence"`
	Mesh        landmark.Mesh `json:"-"`
}

// BoundingBox represents the face area in the image
type BoundingBox struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// HealthChecker is implemented by detectors backed by a remote service
type HealthChecker interface {
	Health(ctx context.Context) error
}
