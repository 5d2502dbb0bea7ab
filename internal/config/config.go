package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"

	"github.com/saturnino-fabrica-de-software/faceratio/internal/scoring"
)

type Config struct {
	// Server
	Port        int    `envconfig:"PORT" default:"3000"`
	Environment string `envconfig:"ENV" default:"development"`
	LogLevel    string `envconfig:"LOG_LEVEL"`

	// Database
	DatabaseURL string `envconfig:"DATABASE_URL" required:"true"`
	AutoMigrate bool   `envconfig:"AUTO_MIGRATE" default:"false"`

	// Provider
	ProviderType  string        `envconfig:"PROVIDER_TYPE" default:"mesh"`
	MeshURL       string        `envconfig:"MESH_URL" default:"http://localhost:5005"`
	DetectTimeout time.Duration `envconfig:"DETECT_TIMEOUT" default:"30s"`

	// Scoring
	ScoringProfile       string        `envconfig:"SCORING_PROFILE" default:"extended"`
	CacheTTL             time.Duration `envconfig:"CACHE_TTL" default:"24h"`
	CacheCleanupInterval time.Duration `envconfig:"CACHE_CLEANUP_INTERVAL" default:"1h"`

	// Auth, disabled while AUTH_SECRET is empty
	AuthSecret   string        `envconfig:"AUTH_SECRET"`
	AuthIssuer   string        `envconfig:"AUTH_ISSUER" default:"faceratio"`
	AuthTokenTTL time.Duration `envconfig:"AUTH_TOKEN_TTL" default:"720h"`

	// Limits
	RateLimitMax   int    `envconfig:"RATE_LIMIT_MAX" default:"120"`
	RateLimitStore string `envconfig:"RATE_LIMIT_STORE" default:"memory"`
	MaxImageSize   int    `envconfig:"MAX_IMAGE_SIZE" default:"10485760"`
	MaxImagePixels int    `envconfig:"MAX_IMAGE_PIXELS" default:"25000000"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return &cfg, nil
}

// Validate checks values envconfig cannot express as tags
func (c *Config) Validate() error {
	if _, err := scoring.ParseProfile(c.ScoringProfile); err != nil {
		return err
	}
	switch c.ProviderType {
	case "mesh", "mock":
	default:
		return fmt.Errorf("unknown provider type %q (supported: mesh, mock)", c.ProviderType)
	}
	switch c.RateLimitStore {
	case "memory", "postgres":
	default:
		return fmt.Errorf("unknown rate limit store %q (supported: memory, postgres)", c.RateLimitStore)
	}
	if c.DetectTimeout <= 0 {
		return fmt.Errorf("DETECT_TIMEOUT must be positive, got %s", c.DetectTimeout)
	}
	if c.LogLevel != "" {
		if _, err := ParseLevel(c.LogLevel); err != nil {
			return err
		}
	}
	if c.AuthSecret != "" && len(c.AuthSecret) < 32 {
		return fmt.Errorf("AUTH_SECRET must be at least 32 bytes, got %d", len(c.AuthSecret))
	}
	if c.MaxImageSize <= 0 {
		return fmt.Errorf("MAX_IMAGE_SIZE must be positive, got %d", c.MaxImageSize)
	}
	if c.MaxImagePixels <= 0 {
		return fmt.Errorf("MAX_IMAGE_PIXELS must be positive, got %d", c.MaxImagePixels)
	}
	return nil
}

// Profile returns the validated scoring profile
func (c *Config) Profile() scoring.Profile {
	p, _ := scoring.ParseProfile(c.ScoringProfile)
	return p
}

// AuthEnabled reports whether /v1 requires bearer tokens
func (c *Config) AuthEnabled() bool {
	return c.AuthSecret != ""
}

func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
