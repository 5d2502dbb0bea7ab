package mesh

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/saturnino-fabrica-de-software/faceratio/internal/domain"
	"github.com/saturnino-fabrica-de-software/faceratio/internal/landmark"
	"github.com/saturnino-fabrica-de-software/faceratio/internal/provider"
)

// Provider implements provider.LandmarkDetector on top of the face mesh sidecar
type Provider struct {
	client *Client
}

// NewProvider creates a new face mesh provider
func NewProvider(config Config) *Provider {
	return &Provider{
		client: NewClient(config),
	}
}

func (p *Provider) Name() string {
	return "mesh"
}

// Health reports whether the sidecar answers
func (p *Provider) Health(ctx context.Context) error {
	return p.client.Health(ctx)
}

// DetectLandmarks sends the image to the sidecar and converts every face to pixel space
func (p *Provider) DetectLandmarks(ctx context.Context, image []byte) (*provider.Detection, error) {
	if len(image) == 0 {
		return nil, domain.ErrInvalidImage
	}

	resp, err := p.client.Landmarks(ctx, base64.StdEncoding.EncodeToString(image))
	if err != nil {
		return nil, mapError(err)
	}

	det := &provider.Detection{
		ImageWidth:  resp.ImageWidth,
		ImageHeight: resp.ImageHeight,
		Faces:       make([]provider.DetectedFace, 0, len(resp.Faces)),
	}

	for i, f := range resp.Faces {
		face, err := toFace(f, resp.ImageWidth, resp.ImageHeight)
		if err != nil {
			return nil, fmt.Errorf("face %d: %w", i, err)
		}
		det.Faces = append(det.Faces, face)
	}

	return det, nil
}

func toFace(f FaceResult, width, height int) (provider.DetectedFace, error) {
	topology, err := resolveTopology(f)
	if err != nil {
		return provider.DetectedFace{}, domain.ErrInvalidLandmarks.WithError(err)
	}

	sx, sy := 1.0, 1.0
	if f.Normalized {
		if width <= 0 || height <= 0 {
			return provider.DetectedFace{}, fmt.Errorf("%w: normalized landmarks without image size", ErrInvalidResponse)
		}
		sx, sy = float64(width), float64(height)
	}

	coords := make([][2]float64, len(f.Landmarks))
	for i, lm := range f.Landmarks {
		coords[i] = [2]float64{lm[0] * sx, lm[1] * sy}
	}

	return provider.DetectedFace{
		BoundingBox: provider.BoundingBox{
			X:      f.Box.X * sx,
			Y:      f.Box.Y * sy,
			Width:  f.Box.W * sx,
			Height: f.Box.H * sy,
		},
		Confidence: f.Confidence,
		Mesh: landmark.Mesh{
			Topology: topology,
			Points:   landmark.FromXY(coords),
		},
	}, nil
}

// resolveTopology trusts the declared name and falls back to the point count
func resolveTopology(f FaceResult) (landmark.Topology, error) {
	if f.Topology != "" {
		return landmark.ParseTopology(f.Topology)
	}
	if t, ok := landmark.ForSize(len(f.Landmarks)); ok {
		return t, nil
	}
	return landmark.Topology{}, &landmark.ContractError{
		Reason: fmt.Sprintf("no topology declared for %d landmarks", len(f.Landmarks)),
	}
}

func mapError(err error) error {
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return domain.ErrDetectorUnavailable.WithError(err)
	case isClientError(err):
		return domain.ErrInvalidImage.WithError(err)
	case errors.Is(err, ErrUnavailable), errors.Is(err, ErrInvalidResponse):
		return domain.ErrDetectorUnavailable.WithError(err)
	default:
		return fmt.Errorf("detect landmarks: %w", err)
	}
}

var _ provider.LandmarkDetector = (*Provider)(nil)
