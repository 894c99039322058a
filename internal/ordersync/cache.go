package ordersync

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/tapntake/api/internal/order"
)

// CacheKey names the current cache file. Bumping the suffix discards every
// older cache instead of migrating it.
const CacheKey = "tap_n_take_orders_v5"

var legacyKeys = []string{
	"tap_n_take_orders",
	"tap_n_take_orders_v1",
	"tap_n_take_orders_v2",
	"tap_n_take_orders_v3",
	"tap_n_take_orders_v4",
}

// Cache persists the local order set between runs.
type Cache interface {
	Load() ([]order.Order, error)
	Save(orders []order.Order) error
}

// FileCache stores orders as a JSON array in <dir>/<CacheKey>.json.
type FileCache struct {
	path string
}

// OpenFileCache prepares dir and deletes caches written under legacy keys.
func OpenFileCache(dir string) (*FileCache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}
	for _, key := range legacyKeys {
		err := os.Remove(filepath.Join(dir, key+".json"))
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("remove legacy cache %s: %w", key, err)
		}
	}
	return &FileCache{path: filepath.Join(dir, CacheKey+".json")}, nil
}

func (c *FileCache) Path() string { return c.path }

// Load returns the cached orders; a missing file is an empty cache.
func (c *FileCache) Load() ([]order.Order, error) {
	data, err := os.ReadFile(c.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read cache: %w", err)
	}
	var orders []order.Order
	if err := json.Unmarshal(data, &orders); err != nil {
		return nil, fmt.Errorf("decode cache: %w", err)
	}
	return orders, nil
}

// Save replaces the cache file atomically. Each call writes its own temp
// file, so concurrent saves never interleave their bytes.
func (c *FileCache) Save(orders []order.Order) error {
	if orders == nil {
		orders = []order.Order{}
	}
	data, err := json.Marshal(orders)
	if err != nil {
		return fmt.Errorf("encode cache: %w", err)
	}
	f, err := os.CreateTemp(filepath.Dir(c.path), CacheKey+"-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp cache: %w", err)
	}
	tmp := f.Name()
	_, err = f.Write(data)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(tmp)
		return fmt.Errorf("write cache: %w", err)
	}
	if err := os.Chmod(tmp, 0o644); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("write cache: %w", err)
	}
	if err := os.Rename(tmp, c.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replace cache: %w", err)
	}
	return nil
}
