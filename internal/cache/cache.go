// Package cache provides best-effort memoization of processed columns and
// rendered eyemap artifacts. It is never authoritative: a nil *Manager
// disables caching with identical output, only latency changes.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"time"

	"github.com/allegro/bigcache/v3"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/eyemap-vis/server/internal/hexgrid"
)

// Config contains cache configuration.
type Config struct {
	ArtifactCacheSizeMB int
	ArtifactTTL         time.Duration
	ColumnsCacheSize    int
}

// Manager manages the artifact and processed-column caches.
type Manager struct {
	artifacts *bigcache.BigCache
	columns   *lru.Cache[string, []hexgrid.ProcessedColumn]
}

// NewManager creates a new cache manager.
func NewManager(cfg Config) (*Manager, error) {
	artifactConfig := bigcache.Config{
		Shards:             1024,
		LifeWindow:         cfg.ArtifactTTL,
		CleanWindow:        cfg.ArtifactTTL / 2,
		MaxEntriesInWindow: 100000,
		MaxEntrySize:       512 * 1024, // 512KB per artifact
		HardMaxCacheSize:   cfg.ArtifactCacheSizeMB,
		Verbose:            false,
	}

	artifacts, err := bigcache.New(context.Background(), artifactConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create artifact cache: %w", err)
	}

	columns, err := lru.New[string, []hexgrid.ProcessedColumn](cfg.ColumnsCacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create columns cache: %w", err)
	}

	return &Manager{
		artifacts: artifacts,
		columns:   columns,
	}, nil
}

// GetArtifact retrieves a rendered artifact from cache.
func (m *Manager) GetArtifact(key string) ([]byte, bool) {
	if m == nil {
		return nil, false
	}
	data, err := m.artifacts.Get(key)
	if err != nil {
		return nil, false
	}
	return data, true
}

// SetArtifact stores a rendered artifact. Writes are idempotent: every
// writer computes the same value for the same key, so last-write-wins.
func (m *Manager) SetArtifact(key string, data []byte) error {
	if m == nil {
		return nil
	}
	return m.artifacts.Set(key, data)
}

// GetColumns retrieves a processed-column list from cache.
func (m *Manager) GetColumns(key string) ([]hexgrid.ProcessedColumn, bool) {
	if m == nil {
		return nil, false
	}
	return m.columns.Get(key)
}

// SetColumns stores a processed-column list.
func (m *Manager) SetColumns(key string, cols []hexgrid.ProcessedColumn) {
	if m == nil {
		return
	}
	m.columns.Add(key, cols)
}

// Clear invalidates the whole cache.
func (m *Manager) Clear() error {
	if m == nil {
		return nil
	}
	m.columns.Purge()
	return m.artifacts.Reset()
}

// ThresholdSignature hashes a per-region threshold table into a short
// stable token. Regions are sorted so map iteration order cannot change
// the signature.
func ThresholdSignature(thresholds map[string][2]float64) string {
	if len(thresholds) == 0 {
		return "none"
	}
	regions := make([]string, 0, len(thresholds))
	for region := range thresholds {
		regions = append(regions, region)
	}
	sort.Strings(regions)

	h := sha256.New()
	for _, region := range regions {
		t := thresholds[region]
		fmt.Fprintf(h, "%s=%g:%g;", region, t[0], t[1])
	}
	return hex.EncodeToString(h.Sum(nil))[:16]
}

// ArtifactKey generates a cache key for a rendered artifact.
func ArtifactKey(neuronType, region string, side hexgrid.Side, metric hexgrid.MetricType, format, thresholdSig string) string {
	return fmt.Sprintf("art:%s:%s:%s:%s:%s:%s", neuronType, region, side, metric, format, thresholdSig)
}

// ColumnsKey generates a cache key for a processed-column list.
func ColumnsKey(neuronType, region string, side hexgrid.Side, metric hexgrid.MetricType) string {
	return fmt.Sprintf("cols:%s:%s:%s:%s", neuronType, region, side, metric)
}

// Stats returns cache statistics.
func (m *Manager) Stats() map[string]interface{} {
	if m == nil {
		return map[string]interface{}{"enabled": false}
	}
	return map[string]interface{}{
		"enabled":            true,
		"artifact_cache_len": m.artifacts.Len(),
		"artifact_cache_cap": m.artifacts.Capacity(),
		"columns_cache_len":  m.columns.Len(),
	}
}

// Close closes the cache manager.
func (m *Manager) Close() error {
	if m == nil {
		return nil
	}
	return m.artifacts.Close()
}
