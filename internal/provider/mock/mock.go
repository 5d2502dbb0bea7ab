package mock

import (
	"bytes"
	"context"
	"crypto/sha256"
	"image"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/webp"

	"github.com/saturnino-fabrica-de-software/faceratio/internal/domain"
	"github.com/saturnino-fabrica-de-software/faceratio/internal/landmark"
	"github.com/saturnino-fabrica-de-software/faceratio/internal/landmark/facegen"
	"github.com/saturnino-fabrica-de-software/faceratio/internal/provider"
)

// maxJitter is the largest per-anchor offset, in reference canvas pixels
const maxJitter = 12.0

// Provider implementa provider.LandmarkDetector para testes e desenvolvimento.
// It returns the reference face fitted to the image, jittered by the image hash.
type Provider struct {
	faces    int
	topology landmark.Topology
}

type Option func(*Provider)

// WithFaces sets how many faces every detection reports
func WithFaces(n int) Option {
	return func(p *Provider) { p.faces = n }
}

// WithTopology sets the mesh variant produced
func WithTopology(t landmark.Topology) Option {
	return func(p *Provider) { p.topology = t }
}

// New cria uma nova instância do MockProvider
func New(opts ...Option) *Provider {
	p := &Provider{faces: 1, topology: landmark.FaceMesh478}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Provider) Name() string {
	return "mock"
}

// DetectLandmarks decodes the image header and places synthetic faces on it
func (p *Provider) DetectLandmarks(ctx context.Context, img []byte) (*provider.Detection, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(img))
	if err != nil {
		return nil, domain.ErrInvalidImage.WithError(err)
	}

	det := &provider.Detection{
		ImageWidth:  cfg.Width,
		ImageHeight: cfg.Height,
		Faces:       make([]provider.DetectedFace, 0, p.faces),
	}

	layout := jitter(facegen.Reference(), img)
	scale := float64(min(cfg.Width, cfg.Height)) / 1000
	for i := 0; i < p.faces; i++ {
		face := layout.Clone().Scale(scale)
		det.Faces = append(det.Faces, provider.DetectedFace{
			BoundingBox: provider.BoundingBox{
				X:      300 * scale,
				Y:      200 * scale,
				Width:  400 * scale,
				Height: 540 * scale,
			},
			Confidence: 0.99,
			Mesh:       face.Mesh(p.topology),
		})
	}

	return det, nil
}

// jitter offsets every anchor deterministically from the image hash
func jitter(l facegen.Layout, img []byte) facegen.Layout {
	hash := sha256.Sum256(img)
	hashLen := len(hash)

	for i, a := range landmark.Anchors() {
		xy := l[a]
		//nolint:gosec // indices are always < hashLen due to modulo operation
		dx := (float64(hash[(2*i)%hashLen])/255*2 - 1) * maxJitter
		//nolint:gosec // indices are always < hashLen due to modulo operation
		dy := (float64(hash[(2*i+1)%hashLen])/255*2 - 1) * maxJitter
		l[a] = [2]float64{xy[0] + dx, xy[1] + dy}
	}
	return l
}

var _ provider.LandmarkDetector = (*Provider)(nil)
