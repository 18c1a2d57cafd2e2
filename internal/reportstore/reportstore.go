// Package reportstore persists finished RCA reports so downstream consumers
// can fetch the latest pass without regenerating it.
package reportstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/supportstack/failwatch/internal/cache"
	"github.com/supportstack/failwatch/internal/models"
)

const (
	reportKeyPrefix = "rca:reports:"
	latestKey       = "rca:reports:latest"
)

// ErrNoReport signals that no report has been persisted yet.
var ErrNoReport = errors.New("no persisted report")

// Store saves reports under generated identifiers and tracks a "latest"
// pointer. The RCA engine only writes here; reading back is for API consumers.
type Store interface {
	Save(ctx context.Context, report *models.RCAReport) (string, error)
	Latest(ctx context.Context) (*models.RCAReport, error)
}

// CacheStore implements Store over a cache.Provider.
type CacheStore struct {
	provider cache.Provider
	ttl      time.Duration
}

// NewCacheStore wraps the provider. A zero TTL keeps reports until evicted by
// the backing server's own policy.
func NewCacheStore(provider cache.Provider, ttl time.Duration) *CacheStore {
	return &CacheStore{provider: provider, ttl: ttl}
}

// Save serializes the report, stores it under a timestamped id, and moves the
// latest pointer to it.
func (s *CacheStore) Save(ctx context.Context, report *models.RCAReport) (string, error) {
	if report == nil {
		return "", errors.New("nil report")
	}

	payload, err := json.Marshal(report)
	if err != nil {
		return "", fmt.Errorf("marshal report: %w", err)
	}

	id := fmt.Sprintf("report-%d", report.GeneratedAt.UTC().UnixNano())
	if err := s.provider.Set(ctx, reportKeyPrefix+id, payload, s.ttl); err != nil {
		return "", fmt.Errorf("store report %s: %w", id, err)
	}
	if err := s.provider.Set(ctx, latestKey, []byte(id), s.ttl); err != nil {
		return "", fmt.Errorf("update latest pointer: %w", err)
	}
	return id, nil
}

// Latest resolves the pointer and returns the most recently saved report.
func (s *CacheStore) Latest(ctx context.Context) (*models.RCAReport, error) {
	id, err := s.provider.Get(ctx, latestKey)
	if err != nil {
		if errors.Is(err, cache.ErrCacheMiss) {
			return nil, ErrNoReport
		}
		return nil, fmt.Errorf("resolve latest pointer: %w", err)
	}

	payload, err := s.provider.Get(ctx, reportKeyPrefix+string(id))
	if err != nil {
		if errors.Is(err, cache.ErrCacheMiss) {
			return nil, ErrNoReport
		}
		return nil, fmt.Errorf("fetch report %s: %w", id, err)
	}

	var report models.RCAReport
	if err := json.Unmarshal(payload, &report); err != nil {
		return nil, fmt.Errorf("decode report %s: %w", id, err)
	}
	return &report, nil
}
