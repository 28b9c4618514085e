package resource

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/vmihailenco/msgpack/v5"
)

// Current schema version - increment when CataloguePayload changes.
const diskCacheSchemaVersion uint16 = 1

// DiskCache stores catalogue snapshots on disk, one msgpack file per key.
// Thread-safe for concurrent access.
type DiskCache struct {
	mu  sync.RWMutex
	dir string
}

// CataloguePayload is a snapshot of a TypeSource.
type CataloguePayload struct {
	Schema    uint16
	Key       string
	Names     []string
	CreatedAt int64
}

// OpenDiskCache opens the cache at the standard user cache location.
func OpenDiskCache(app string) (*DiskCache, error) {
	base := os.Getenv("XDG_CACHE_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		base = filepath.Join(home, ".cache")
	}
	return NewDiskCache(filepath.Join(base, app))
}

// NewDiskCache opens a cache rooted at dir, creating it if needed.
func NewDiskCache(dir string) (*DiskCache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cache dir: %w", err)
	}
	return &DiskCache{dir: dir}, nil
}

func (c *DiskCache) pathFor(key string) string {
	sum := sha256.Sum256([]byte(key))
	return filepath.Join(c.dir, "catalogues", hex.EncodeToString(sum[:])+".mp")
}

// Put writes a payload atomically.
func (c *DiskCache) Put(key string, payload *CataloguePayload) error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	p := c.pathFor(key)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return err
	}
	f, err := os.CreateTemp(filepath.Dir(p), "tmp-*")
	if err != nil {
		return err
	}
	defer os.Remove(f.Name())

	payload.Schema = diskCacheSchemaVersion
	payload.Key = key
	if err := msgpack.NewEncoder(f).Encode(payload); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(f.Name(), p)
}

// Get reads a payload. It reports false for a missing entry or an entry
// written with another schema version.
func (c *DiskCache) Get(key string, out *CataloguePayload) (bool, error) {
	if c == nil {
		return false, nil
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	f, err := os.Open(c.pathFor(key))
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	defer f.Close()

	var payload CataloguePayload
	if err := msgpack.NewDecoder(f).Decode(&payload); err != nil {
		return false, err
	}
	if payload.Schema != diskCacheSchemaVersion || payload.Key != key {
		return false, nil
	}
	*out = payload
	return true, nil
}

// Delete removes the payload stored under key. A missing entry is not an
// error.
func (c *DiskCache) Delete(key string) error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := os.Remove(c.pathFor(key)); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// CachedSource serves an inner source's names from a DiskCache and only
// calls the inner source on a miss.
type CachedSource struct {
	Inner TypeSource
	Cache *DiskCache
}

func (s CachedSource) Key() string {
	return "cached:" + s.Inner.Key()
}

func (s CachedSource) TypeNames(ctx context.Context) ([]string, error) {
	key := s.Inner.Key()
	var payload CataloguePayload
	if ok, err := s.Cache.Get(key, &payload); err == nil && ok {
		return payload.Names, nil
	}

	names, err := s.Inner.TypeNames(ctx)
	if err != nil {
		return names, err
	}
	if err := s.Cache.Put(key, &CataloguePayload{Names: names, CreatedAt: time.Now().Unix()}); err != nil {
		return names, fmt.Errorf("write catalogue cache: %w", err)
	}
	return names, nil
}

// Invalidate removes the snapshot so the next TypeNames asks the inner
// source again.
func (s CachedSource) Invalidate() error {
	if err := s.Cache.Delete(s.Inner.Key()); err != nil {
		return fmt.Errorf("delete catalogue cache: %w", err)
	}
	return invalidate(s.Inner)
}
