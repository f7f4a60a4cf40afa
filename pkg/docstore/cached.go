package docstore

import (
	"context"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/mdcanvas/pkg/cache"
)

// Cached reads through a [cache.Cache] in front of another store. Writes
// go to the store first and then refresh the cache entry.
type Cached struct {
	Store
	Cache  cache.Cache
	Keyer  cache.Keyer
	TTL    time.Duration
	Logger *log.Logger
}

// NewCached wraps store. A nil keyer uses [cache.NewDefaultKeyer] and a nil
// logger the default logger.
func NewCached(store Store, c cache.Cache, keyer cache.Keyer, ttl time.Duration, logger *log.Logger) *Cached {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Cached{Store: store, Cache: c, Keyer: keyer, TTL: ttl, Logger: logger}
}

// Get serves name from the cache when possible. Cache failures fall back
// to the store.
func (c *Cached) Get(ctx context.Context, name string) ([]byte, error) {
	key := c.Keyer.DocumentKey(name)
	data, ok, err := c.Cache.Get(ctx, key)
	if err != nil {
		c.Logger.Warn("document cache read failed", "name", name, "err", err)
	} else if ok {
		return data, nil
	}

	data, err = c.Store.Get(ctx, name)
	if err != nil {
		return nil, err
	}
	if err := c.Cache.Set(ctx, key, data, c.TTL); err != nil {
		c.Logger.Warn("document cache write failed", "name", name, "err", err)
	}
	return data, nil
}

// Put stores payload and refreshes the cache entry.
func (c *Cached) Put(ctx context.Context, name string, payload []byte) error {
	if err := c.Store.Put(ctx, name, payload); err != nil {
		return err
	}
	if err := c.Cache.Set(ctx, c.Keyer.DocumentKey(name), payload, c.TTL); err != nil {
		c.Logger.Warn("document cache write failed", "name", name, "err", err)
	}
	return nil
}

// Delete removes name from the store and the cache.
func (c *Cached) Delete(ctx context.Context, name string) error {
	if err := c.Store.Delete(ctx, name); err != nil {
		return err
	}
	if err := c.Cache.Delete(ctx, c.Keyer.DocumentKey(name)); err != nil {
		c.Logger.Warn("document cache delete failed", "name", name, "err", err)
	}
	return nil
}

// Close closes the store and the cache.
func (c *Cached) Close() error {
	err := c.Store.Close()
	if cerr := c.Cache.Close(); err == nil {
		err = cerr
	}
	return err
}
