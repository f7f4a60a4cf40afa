// Package cache provides byte caches for scan results and documents.
//
// Three backends implement [Cache]:
//
//   - [FileCache]: JSON entry files on local disk, used by the CLI
//   - [RedisCache]: a shared Redis instance, used by the serve command
//   - [NullCache]: stores nothing, used when caching is disabled
//
// Keys come from a [Keyer] so the backends stay agnostic of what they hold.
// [Instrumented] wraps any backend and reports hits and misses to the
// observability hooks.
package cache

import (
	"context"
	"strings"
	"time"

	"github.com/matzehuels/mdcanvas/pkg/observability"
)

// Cache stores opaque byte values with an optional time-to-live.
type Cache interface {
	// Get returns the value and whether it was found. Expired entries are
	// misses.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Set stores data. A ttl of zero means no expiration.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// Keyer derives cache keys.
type Keyer interface {
	// ScanKey identifies a directory scan.
	ScanKey(path string, includeHidden bool) string
	// DocumentKey identifies a stored document payload.
	DocumentKey(name string) string
}

// Key type prefixes. The prefix before the first ":" of a key is reported
// to the cache hooks.
const (
	KeyTypeScan     = "scan"
	KeyTypeDocument = "doc"
)

// DefaultKeyer produces unscoped keys.
type DefaultKeyer struct{}

// NewDefaultKeyer returns the default keyer.
func NewDefaultKeyer() Keyer { return DefaultKeyer{} }

// ScanKey hashes the scan options so different views never collide.
func (DefaultKeyer) ScanKey(path string, includeHidden bool) string {
	return hashKey(KeyTypeScan, path, includeHidden)
}

// DocumentKey returns "doc:<name>". Names are validated upstream.
func (DefaultKeyer) DocumentKey(name string) string {
	return KeyTypeDocument + ":" + name
}

// KeyType returns the type prefix of key, skipping any scope prefixes.
func KeyType(key string) string {
	for _, t := range []string{KeyTypeScan, KeyTypeDocument} {
		if strings.HasPrefix(key, t+":") || strings.Contains(key, ":"+t+":") {
			return t
		}
	}
	if i := strings.IndexByte(key, ':'); i > 0 {
		return key[:i]
	}
	return "unknown"
}

// =============================================================================
// Instrumentation
// =============================================================================

// Instrumented reports cache traffic to [observability.Cache].
type Instrumented struct {
	Cache
}

// NewInstrumented wraps c.
func NewInstrumented(c Cache) Cache {
	return &Instrumented{Cache: c}
}

// Get forwards to the wrapped cache and reports a hit or miss.
func (c *Instrumented) Get(ctx context.Context, key string) ([]byte, bool, error) {
	data, ok, err := c.Cache.Get(ctx, key)
	if err == nil {
		if ok {
			observability.Cache().OnCacheHit(ctx, KeyType(key))
		} else {
			observability.Cache().OnCacheMiss(ctx, KeyType(key))
		}
	}
	return data, ok, err
}

// Set forwards to the wrapped cache and reports the stored size.
func (c *Instrumented) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	if err := c.Cache.Set(ctx, key, data, ttl); err != nil {
		return err
	}
	observability.Cache().OnCacheSet(ctx, KeyType(key), len(data))
	return nil
}
