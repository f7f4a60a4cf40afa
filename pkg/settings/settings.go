// Package settings stores boolean user preferences.
//
// Preferences are kept as raw strings in a [Store]. A stored value means
// true only when it is exactly "true"; anything else means false, and a
// missing value falls back to the key's default:
//
//	markdownEnabled   default true
//	showHiddenFiles   default false
//
// Three stores are provided: [MemoryStore] for tests and one-shot commands,
// [FileStore] backed by a TOML file, and [RedisStore] backed by a Redis hash
// for shared server deployments.
package settings

import (
	"context"
	"fmt"
	"slices"
)

// Preference keys.
const (
	KeyMarkdownEnabled = "markdownEnabled"
	KeyShowHiddenFiles = "showHiddenFiles"
)

// Affirmative is the only raw value that resolves to true.
const Affirmative = "true"

var defaults = map[string]bool{
	KeyMarkdownEnabled: true,
	KeyShowHiddenFiles: false,
}

// Keys returns the known preference keys in sorted order.
func Keys() []string {
	keys := make([]string, 0, len(defaults))
	for k := range defaults {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// IsKnown reports whether key is a known preference.
func IsKnown(key string) bool {
	_, ok := defaults[key]
	return ok
}

// Default returns the default value of key. Unknown keys default to false.
func Default(key string) bool { return defaults[key] }

// Resolve applies the defaulting rule to a raw stored value.
func Resolve(raw string, present bool, def bool) bool {
	if !present {
		return def
	}
	return raw == Affirmative
}

// Format returns the raw form of v.
func Format(v bool) string {
	if v {
		return Affirmative
	}
	return "false"
}

// Store holds raw preference strings.
type Store interface {
	// Get returns the raw value and whether it was present.
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
	// Clear removes every stored preference.
	Clear(ctx context.Context) error
	Close() error
}

// Preferences resolves boolean preferences over a [Store].
type Preferences struct {
	store Store
}

// New creates preferences over store. A nil store uses a [MemoryStore].
func New(store Store) *Preferences {
	if store == nil {
		store = NewMemoryStore()
	}
	return &Preferences{store: store}
}

// Store returns the underlying store.
func (p *Preferences) Store() Store { return p.store }

// Bool returns the resolved value of key. On a store error the default is
// returned alongside the error.
func (p *Preferences) Bool(ctx context.Context, key string) (bool, error) {
	raw, ok, err := p.store.Get(ctx, key)
	if err != nil {
		return Default(key), fmt.Errorf("get %s: %w", key, err)
	}
	return Resolve(raw, ok, Default(key)), nil
}

// SetBool stores v for key.
func (p *Preferences) SetBool(ctx context.Context, key string, v bool) error {
	if err := p.store.Set(ctx, key, Format(v)); err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}

// Toggle flips key and returns the new value.
func (p *Preferences) Toggle(ctx context.Context, key string) (bool, error) {
	cur, err := p.Bool(ctx, key)
	if err != nil {
		return cur, err
	}
	return !cur, p.SetBool(ctx, key, !cur)
}

// Reset removes key so it resolves to its default again.
func (p *Preferences) Reset(ctx context.Context, key string) error {
	if err := p.store.Delete(ctx, key); err != nil {
		return fmt.Errorf("reset %s: %w", key, err)
	}
	return nil
}

// ResetAll removes every stored preference.
func (p *Preferences) ResetAll(ctx context.Context) error {
	if err := p.store.Clear(ctx); err != nil {
		return fmt.Errorf("reset all: %w", err)
	}
	return nil
}

// Snapshot returns the resolved value of every known key.
func (p *Preferences) Snapshot(ctx context.Context) (map[string]bool, error) {
	out := make(map[string]bool, len(defaults))
	for _, k := range Keys() {
		v, err := p.Bool(ctx, k)
		if err != nil {
			return nil, err
		}
		out[k] = v
	}
	return out, nil
}
