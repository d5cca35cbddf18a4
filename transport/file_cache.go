package transport

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// FileCache is the durable second tier: each entry is two files on disk,
// <hash>.cache (the raw value) and <hash>.meta (a small JSON header with
// the expiry, whose mtime doubles as the entry's last-access timestamp).
// It self-evicts the least-recently-accessed entries once the total size
// of every .cache file exceeds MaxBytes, trimming back down to 80% of the
// cap rather than evicting one entry at a time (§4.A).
type FileCache struct {
	dir      string
	maxBytes int64
	logger   *zap.Logger
	mu       sync.Mutex
}

type fileCacheMeta struct {
	Expires time.Time `json:"expires"`
}

// NewFileCache creates a file-backed cache rooted at dir, creating it if
// necessary. maxBytes bounds the total size of every .cache file on disk;
// <=0 defaults to 50MiB.
func NewFileCache(dir string, maxBytes int64, logger *zap.Logger) (*FileCache, error) {
	if maxBytes <= 0 {
		maxBytes = 50 * 1024 * 1024
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &FileCache{dir: dir, maxBytes: maxBytes, logger: logger}, nil
}

func (c *FileCache) hashKey(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}

func (c *FileCache) paths(key string) (data, meta string) {
	h := c.hashKey(key)
	return filepath.Join(c.dir, h+".cache"), filepath.Join(c.dir, h+".meta")
}

func (c *FileCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	dataPath, metaPath := c.paths(key)
	metaRaw, err := os.ReadFile(metaPath)
	if os.IsNotExist(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var meta fileCacheMeta
	if err := json.Unmarshal(metaRaw, &meta); err != nil {
		return nil, false, nil
	}
	if time.Now().After(meta.Expires) {
		_ = os.Remove(dataPath)
		_ = os.Remove(metaPath)
		return nil, false, nil
	}

	data, err := os.ReadFile(dataPath)
	if os.IsNotExist(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	// A hit is an access: bump the meta file's mtime so eviction ranks by
	// last-accessed, not merely last-written.
	now := time.Now()
	_ = os.Chtimes(metaPath, now, now)

	return data, true, nil
}

func (c *FileCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if ttl <= 0 {
		ttl = defaultTTL
	}
	dataPath, metaPath := c.paths(key)
	if err := os.WriteFile(dataPath, value, 0o644); err != nil {
		return err
	}
	meta, err := json.Marshal(fileCacheMeta{Expires: time.Now().Add(ttl)})
	if err != nil {
		return err
	}
	if err := os.WriteFile(metaPath, meta, 0o644); err != nil {
		return err
	}

	c.evictIfOverCapLocked()
	return nil
}

func (c *FileCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	dataPath, metaPath := c.paths(key)
	_ = os.Remove(dataPath)
	_ = os.Remove(metaPath)
	return nil
}

func (c *FileCache) Clear(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return err
	}
	for _, e := range entries {
		_ = os.Remove(filepath.Join(c.dir, e.Name()))
	}
	return nil
}

func (c *FileCache) Exists(ctx context.Context, key string) (bool, error) {
	_, ok, err := c.Get(ctx, key)
	return ok, err
}

// evictIfOverCapLocked drops the least-recently-accessed entries (by .meta
// mtime, touched on every Get hit and every Set) once the total size of
// every .cache file on disk exceeds maxBytes, trimming down to 80% of the
// cap so a write burst doesn't trigger an eviction pass per new entry.
func (c *FileCache) evictIfOverCapLocked() {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return
	}

	sizes := make(map[string]int64)
	accessed := make(map[string]time.Time)
	for _, e := range entries {
		name := e.Name()
		info, err := e.Info()
		if err != nil {
			continue
		}
		switch {
		case strings.HasSuffix(name, ".cache"):
			sizes[strings.TrimSuffix(name, ".cache")] = info.Size()
		case strings.HasSuffix(name, ".meta"):
			accessed[strings.TrimSuffix(name, ".meta")] = info.ModTime()
		}
	}

	type entry struct {
		hash     string
		size     int64
		accessed time.Time
	}
	var all []entry
	var total int64
	for hash, size := range sizes {
		all = append(all, entry{hash: hash, size: size, accessed: accessed[hash]})
		total += size
	}

	if total <= c.maxBytes {
		return
	}

	sort.Slice(all, func(i, j int) bool { return all[i].accessed.Before(all[j].accessed) })

	target := int64(float64(c.maxBytes) * 0.8)
	evicted := 0
	for _, e := range all {
		if total <= target {
			break
		}
		_ = os.Remove(filepath.Join(c.dir, e.hash+".cache"))
		_ = os.Remove(filepath.Join(c.dir, e.hash+".meta"))
		total -= e.size
		evicted++
	}
	c.logger.Debug("file cache evicted entries",
		zap.Int("evicted", evicted),
		zap.Int64("bytes_remaining", total),
		zap.Int64("target_bytes", target))
}
