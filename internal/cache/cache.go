// Package cache keeps open datasets and encoded mask previews between tool
// calls.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"path/filepath"
	"sort"
	"time"

	"github.com/allegro/bigcache/v3"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/ironsheep/tissue-mask-mcp/internal/config"
	"github.com/ironsheep/tissue-mask-mcp/internal/dataset"
)

// Manager holds the open-dataset LRU and the preview byte cache.
type Manager struct {
	datasets *lru.Cache[string, dataset.Dataset]
	previews *bigcache.BigCache
}

// NewManager creates a cache manager. Datasets evicted from the LRU drop
// their decoded planes and masks.
func NewManager(cfg config.CacheConfig) (*Manager, error) {
	size := cfg.Datasets
	if size <= 0 {
		size = config.DefaultConfig().Cache.Datasets
	}
	datasets, err := lru.NewWithEvict[string, dataset.Dataset](size, func(_ string, ds dataset.Dataset) {
		ds.ClearCache()
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create dataset cache: %w", err)
	}

	ttl := time.Duration(cfg.PreviewTTLMinutes) * time.Minute
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	previewConfig := bigcache.Config{
		Shards:             64,
		LifeWindow:         ttl,
		CleanWindow:        ttl / 2,
		MaxEntriesInWindow: 1024,
		MaxEntrySize:       256 * 1024,
		HardMaxCacheSize:   cfg.PreviewSizeMB,
		Verbose:            false,
	}
	previews, err := bigcache.New(context.Background(), previewConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create preview cache: %w", err)
	}

	return &Manager{datasets: datasets, previews: previews}, nil
}

// DatasetKey identifies an open dataset by modality and absolute path.
func DatasetKey(modality dataset.Modality, path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	return fmt.Sprintf("ds:%s:%s", modality, filepath.Clean(path))
}

// PreviewKey generates a cache key for a rendered preview. Extra
// parameters are hashed in sorted key order.
func PreviewKey(datasetKey, maskKey string, params map[string]any) string {
	base := "preview:" + datasetKey + ":" + maskKey
	if len(params) == 0 {
		return base
	}
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	h := sha256.New()
	h.Write([]byte(base))
	for _, k := range keys {
		fmt.Fprintf(h, "%s=%v;", k, params[k])
	}
	return base + ":" + hex.EncodeToString(h.Sum(nil))[:16]
}

// GetDataset returns an open dataset and marks it recently used.
func (m *Manager) GetDataset(key string) (dataset.Dataset, bool) {
	return m.datasets.Get(key)
}

// AddDataset stores an open dataset, evicting the least recently used one
// when the cache is full.
func (m *Manager) AddDataset(key string, ds dataset.Dataset) {
	m.datasets.Add(key, ds)
}

// RemoveDataset drops a dataset. It reports whether the key was present.
func (m *Manager) RemoveDataset(key string) bool {
	return m.datasets.Remove(key)
}

// DatasetKeys returns the keys of the open datasets, oldest first.
func (m *Manager) DatasetKeys() []string {
	return m.datasets.Keys()
}

// GetPreview retrieves encoded preview bytes.
func (m *Manager) GetPreview(key string) ([]byte, bool) {
	data, err := m.previews.Get(key)
	if err != nil {
		return nil, false
	}
	return data, true
}

// SetPreview stores encoded preview bytes.
func (m *Manager) SetPreview(key string, data []byte) error {
	return m.previews.Set(key, data)
}

// ResetPreviews empties the preview cache.
func (m *Manager) ResetPreviews() error {
	return m.previews.Reset()
}

// Stats returns cache statistics.
func (m *Manager) Stats() map[string]any {
	return map[string]any{
		"datasets":         m.datasets.Len(),
		"preview_entries":  m.previews.Len(),
		"preview_capacity": m.previews.Capacity(),
	}
}

// Close releases the preview cache.
func (m *Manager) Close() error {
	return m.previews.Close()
}
