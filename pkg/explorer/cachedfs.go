package explorer

import (
	"context"
	"encoding/json"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/mdcanvas/pkg/cache"
)

// CachedFS serves repeated scans of the same folder from a cache. Only
// successful scans are stored. Opening and selecting pass through.
type CachedFS struct {
	Filesystem
	Cache  cache.Cache
	Keyer  cache.Keyer
	TTL    time.Duration
	Logger *log.Logger
}

// NewCachedFS wraps fs. A nil keyer uses [cache.NewDefaultKeyer] and a nil
// logger the default logger.
func NewCachedFS(fs Filesystem, c cache.Cache, keyer cache.Keyer, ttl time.Duration, logger *log.Logger) *CachedFS {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &CachedFS{Filesystem: fs, Cache: c, Keyer: keyer, TTL: ttl, Logger: logger}
}

func (f *CachedFS) ScanDirectory(ctx context.Context, path string, includeHidden bool) ScanResult {
	key := f.Keyer.ScanKey(filepath.Clean(path), includeHidden)
	if data, ok, err := f.Cache.Get(ctx, key); err != nil {
		f.Logger.Warn("scan cache read failed", "path", path, "err", err)
	} else if ok {
		var res ScanResult
		if err := json.Unmarshal(data, &res); err == nil {
			return res
		}
		f.Logger.Debug("discarding corrupt scan cache entry", "path", path)
	}

	res := f.Filesystem.ScanDirectory(ctx, path, includeHidden)
	if !res.Success {
		return res
	}
	data, err := json.Marshal(res)
	if err != nil {
		return res
	}
	if err := f.Cache.Set(ctx, key, data, f.TTL); err != nil {
		f.Logger.Warn("scan cache write failed", "path", path, "err", err)
	}
	return res
}

// Invalidate drops cached scans of path, with and without hidden entries.
func (f *CachedFS) Invalidate(ctx context.Context, path string) {
	path = filepath.Clean(path)
	for _, hidden := range []bool{false, true} {
		if err := f.Cache.Delete(ctx, f.Keyer.ScanKey(path, hidden)); err != nil {
			f.Logger.Debug("scan cache delete failed", "path", path, "err", err)
		}
	}
}
