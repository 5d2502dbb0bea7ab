package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/saturnino-fabrica-de-software/faceratio/internal/domain"
	"github.com/saturnino-fabrica-de-software/faceratio/internal/scoring"
)

// AnalysisCache stores finished analyses keyed by image digest and scoring profile.
// The same photo scored under another profile is a different entry.
type AnalysisCache struct {
	store *PGCache
	ttl   time.Duration
}

func NewAnalysisCache(store *PGCache, ttl time.Duration) *AnalysisCache {
	return &AnalysisCache{store: store, ttl: ttl}
}

// Get returns ErrCacheMiss for both absent and expired entries
func (c *AnalysisCache) Get(ctx context.Context, digest string, profile scoring.Profile) (*domain.Analysis, error) {
	raw, err := c.store.Lookup(ctx, digest, string(profile))
	if err != nil {
		return nil, err
	}

	var a domain.Analysis
	if err := json.Unmarshal(raw, &a); err != nil {
		return nil, fmt.Errorf("decode cached analysis: %w", err)
	}
	a.ImageDigest = digest
	return &a, nil
}

// Put stores a, which must carry its image digest
func (c *AnalysisCache) Put(ctx context.Context, a *domain.Analysis) error {
	if a.ImageDigest == "" {
		return errors.New("cache analysis: missing image digest")
	}

	raw, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("encode analysis: %w", err)
	}
	return c.store.Store(ctx, a.ImageDigest, string(a.Profile), raw, c.ttl)
}

// Forget drops the entries of digest under every profile
func (c *AnalysisCache) Forget(ctx context.Context, digest string) error {
	if digest == "" {
		return nil
	}
	_, err := c.store.Evict(ctx, digest)
	return err
}
