package cache

// ScopedKeyer wraps a Keyer with a prefix so several workspaces can share
// one Redis instance.
//
// Example usage:
//
//	teamKeyer := NewScopedKeyer(NewDefaultKeyer(), "team:design:")
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer creates a keyer with a prefix.
// The prefix is prepended to all generated keys.
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{
		inner:  inner,
		prefix: prefix,
	}
}

// ScanKey generates a prefixed key for scan results.
func (k *ScopedKeyer) ScanKey(path string, includeHidden bool) string {
	return k.prefix + k.inner.ScanKey(path, includeHidden)
}

// DocumentKey generates a prefixed key for document payloads.
func (k *ScopedKeyer) DocumentKey(name string) string {
	return k.prefix + k.inner.DocumentKey(name)
}
