package face

import (
	"fmt"

	"github.com/saturnino-fabrica-de-software/faceratio/internal/config"
	"github.com/saturnino-fabrica-de-software/faceratio/internal/provider"
	"github.com/saturnino-fabrica-de-software/faceratio/internal/provider/mesh"
	"github.com/saturnino-fabrica-de-software/faceratio/internal/provider/mock"
)

// ProviderType defines supported landmark detector types
type ProviderType string

const (
	// ProviderTypeMesh is the face mesh sidecar (MediaPipe, 468/478 points)
	ProviderTypeMesh ProviderType = "mesh"
	// ProviderTypeMock is the synthetic detector (dev/test, no sidecar)
	ProviderTypeMock ProviderType = "mock"
)

// NewLandmarkDetector creates a LandmarkDetector instance based on configuration
//
// Environment variables:
//   - PROVIDER_TYPE: "mesh" or "mock" (default: "mesh")
//   - MESH_URL: face mesh sidecar URL (default: "http://localhost:5005")
//   - DETECT_TIMEOUT: per-request timeout of the sidecar client (default: 30s)
func NewLandmarkDetector(cfg *config.Config) (provider.LandmarkDetector, error) {
	providerType := ProviderType(cfg.ProviderType)

	switch providerType {
	case ProviderTypeMesh, "":
		return createMeshProvider(cfg), nil

	case ProviderTypeMock:
		return mock.New(), nil

	default:
		return nil, fmt.Errorf("unknown provider type: %s (supported: %s, %s)",
			cfg.ProviderType, ProviderTypeMesh, ProviderTypeMock)
	}
}

// createMeshProvider creates a face mesh sidecar provider instance
func createMeshProvider(cfg *config.Config) provider.LandmarkDetector {
	meshConfig := mesh.DefaultConfig()

	if cfg.MeshURL != "" {
		meshConfig.BaseURL = cfg.MeshURL
	}
	if cfg.DetectTimeout > 0 {
		meshConfig.Timeout = cfg.DetectTimeout
	}

	return mesh.NewProvider(meshConfig)
}
