package cache

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/gofrs/flock"

	"clipbook/internal/chapters"
	"clipbook/internal/convert"
	"clipbook/internal/logging"
	"clipbook/internal/services"
)

// Result is the cacheable output of the conversion pipeline.
type Result struct {
	Markup   string             `json:"markup"`
	Metadata convert.Metadata   `json:"metadata"`
	Chapters []chapters.Chapter `json:"chapters"`
	TOC      string             `json:"toc"`
}

// Key derives the cache key for content converted under the given options
// serialization. Same content and options always map to the same key.
func Key(content, options string) string {
	sum := md5.Sum([]byte(content + "\x00" + options))
	return hex.EncodeToString(sum[:])
}

const (
	indexFile     = "index.json"
	lockFile      = ".lock"
	evictionRatio = 0.8
)

type indexEntry struct {
	Size         int64     `json:"size"`
	Created      time.Time `json:"created"`
	LastAccessed time.Time `json:"last_accessed"`
}

type inflight struct {
	done   chan struct{}
	result Result
	err    error
}

// Cache is a size-bounded conversion result store.
type Cache struct {
	dir      string
	maxBytes int64
	logger   *slog.Logger

	mu       sync.Mutex
	index    map[string]*indexEntry
	inflight map[string]*inflight

	fileLock *flock.Flock
	now      func() time.Time
}

// New opens (or creates) a cache at dir bounded to maxMiB mebibytes.
func New(dir string, maxMiB int, logger *slog.Logger) (*Cache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "cache", "create directory", dir, err)
	}
	c := &Cache{
		dir:      dir,
		maxBytes: int64(maxMiB) << 20,
		logger:   logging.NewComponentLogger(logger, "cache"),
		index:    map[string]*indexEntry{},
		inflight: map[string]*inflight{},
		fileLock: flock.New(filepath.Join(dir, lockFile)),
		now:      time.Now,
	}
	if err := c.loadIndex(); err != nil {
		// A broken index is rebuilt empty; entries become unreachable and
		// are cleaned up by the next eviction pass.
		c.logger.Warn("cache index unreadable, starting fresh", logging.Error(err))
		c.index = map[string]*indexEntry{}
	}
	return c, nil
}

func (c *Cache) loadIndex() error {
	data, err := os.ReadFile(filepath.Join(c.dir, indexFile))
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	return json.Unmarshal(data, &c.index)
}

// saveIndexLocked persists the index. Callers hold c.mu.
func (c *Cache) saveIndexLocked() error {
	data, err := json.MarshalIndent(c.index, "", "  ")
	if err != nil {
		return err
	}
	return atomicWrite(filepath.Join(c.dir, indexFile), data)
}

func atomicWrite(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func (c *Cache) entryPath(key string) string {
	return filepath.Join(c.dir, key+".json")
}

// Get returns the stored result for key. Corrupt or unreadable entries are
// evicted and reported as a miss.
func (c *Cache) Get(key string) (Result, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.getLocked(key)
}

func (c *Cache) getLocked(key string) (Result, bool) {
	entry, ok := c.index[key]
	if !ok {
		return Result{}, false
	}

	data, err := os.ReadFile(c.entryPath(key))
	if err != nil {
		c.logger.Warn("cache entry unreadable, evicting",
			logging.String(logging.FieldCacheKey, key), logging.Error(err))
		c.removeLocked(key)
		return Result{}, false
	}
	var result Result
	if err := json.Unmarshal(data, &result); err != nil {
		c.logger.Warn("cache entry corrupt, evicting",
			logging.String(logging.FieldCacheKey, key), logging.Error(err))
		c.removeLocked(key)
		return Result{}, false
	}

	entry.LastAccessed = c.now()
	if err := c.saveIndexLocked(); err != nil {
		c.logger.Warn("cache index save failed", logging.Error(err))
	}
	return result, true
}

// Put durably stores result under key before returning, then evicts oldest
// entries if the aggregate size exceeds the ceiling.
func (c *Cache) Put(key string, result Result) error {
	data, err := json.Marshal(result)
	if err != nil {
		return services.Wrap(services.ErrValidation, "cache", "encode entry", key, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	locked, err := c.fileLock.TryLock()
	if err == nil && locked {
		defer func() { _ = c.fileLock.Unlock() }()
	}

	if err := atomicWrite(c.entryPath(key), data); err != nil {
		return services.Wrap(services.ErrTransient, "cache", "write entry", key, err)
	}

	now := c.now()
	c.index[key] = &indexEntry{
		Size:         int64(len(data)),
		Created:      now,
		LastAccessed: now,
	}
	c.evictLocked()
	if err := c.saveIndexLocked(); err != nil {
		return services.Wrap(services.ErrTransient, "cache", "write index", key, err)
	}
	return nil
}

// evictLocked drops least-recently-accessed entries until usage is at or
// under the eviction watermark. Callers hold c.mu.
func (c *Cache) evictLocked() {
	if c.maxBytes <= 0 {
		return
	}
	total := c.totalLocked()
	if total <= c.maxBytes {
		return
	}

	type aged struct {
		key      string
		accessed time.Time
	}
	order := make([]aged, 0, len(c.index))
	for key, entry := range c.index {
		order = append(order, aged{key: key, accessed: entry.LastAccessed})
	}
	sort.Slice(order, func(i, j int) bool {
		return order[i].accessed.Before(order[j].accessed)
	})

	target := int64(float64(c.maxBytes) * evictionRatio)
	for _, candidate := range order {
		if total <= target {
			break
		}
		entry := c.index[candidate.key]
		total -= entry.Size
		c.removeLocked(candidate.key)
		c.logger.Debug("evicted cache entry",
			logging.String(logging.FieldCacheKey, candidate.key),
			logging.Int64("size", entry.Size))
	}
}

func (c *Cache) removeLocked(key string) {
	delete(c.index, key)
	_ = os.Remove(c.entryPath(key))
}

func (c *Cache) totalLocked() int64 {
	var total int64
	for _, entry := range c.index {
		total += entry.Size
	}
	return total
}

// GetOrBuild returns the cached result for key, or runs build exactly once
// even when called concurrently with the same key: later callers wait for
// the first build and share its outcome. The boolean reports whether the
// result arrived without this caller doing the work (stored entry or shared
// in-flight build). Build failures are not cached.
func (c *Cache) GetOrBuild(ctx context.Context, key string, build func(context.Context) (Result, error)) (Result, bool, error) {
	c.mu.Lock()
	if result, ok := c.getLocked(key); ok {
		c.mu.Unlock()
		return result, true, nil
	}
	if pending, ok := c.inflight[key]; ok {
		c.mu.Unlock()
		select {
		case <-pending.done:
			return pending.result, pending.err == nil, pending.err
		case <-ctx.Done():
			return Result{}, false, services.Wrap(services.ErrTimeout, "cache", "await build", key, ctx.Err())
		}
	}
	pending := &inflight{done: make(chan struct{})}
	c.inflight[key] = pending
	c.mu.Unlock()

	result, err := build(ctx)
	if err == nil {
		if putErr := c.Put(key, result); putErr != nil {
			c.logger.Warn("cache store failed",
				logging.String(logging.FieldCacheKey, key), logging.Error(putErr))
		}
	}

	c.mu.Lock()
	pending.result = result
	pending.err = err
	delete(c.inflight, key)
	c.mu.Unlock()
	close(pending.done)

	return result, false, err
}

// Stats reports entry count and aggregate stored bytes.
func (c *Cache) Stats() (int, int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.index), c.totalLocked()
}

// Clear removes every entry and resets the index.
func (c *Cache) Clear() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for key := range c.index {
		c.removeLocked(key)
	}
	if err := c.saveIndexLocked(); err != nil {
		return services.Wrap(services.ErrTransient, "cache", "write index", "clear", err)
	}
	return nil
}

// String describes the cache for status output.
func (c *Cache) String() string {
	entries, bytes := c.Stats()
	return fmt.Sprintf("cache(%s): %d entries, %d bytes", c.dir, entries, bytes)
}
