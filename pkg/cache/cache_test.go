package cache

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/matzehuels/mdcanvas/pkg/observability"
)

func TestNullCache(t *testing.T) {
	ctx := context.Background()
	c := NewNullCache()
	defer c.Close()

	// Get always returns miss
	data, hit, err := c.Get(ctx, "key")
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if hit {
		t.Error("NullCache.Get should always return miss")
	}
	if data != nil {
		t.Error("NullCache.Get should return nil data")
	}

	// Set does nothing (no error)
	if err := c.Set(ctx, "key", []byte("value"), time.Hour); err != nil {
		t.Errorf("Set error: %v", err)
	}

	// Still a miss after Set
	_, hit, _ = c.Get(ctx, "key")
	if hit {
		t.Error("NullCache should not store data")
	}

	// Delete does nothing (no error)
	if err := c.Delete(ctx, "key"); err != nil {
		t.Errorf("Delete error: %v", err)
	}
}

func TestHash(t *testing.T) {
	// Test determinism
	h1 := Hash([]byte("hello"))
	h2 := Hash([]byte("hello"))
	if h1 != h2 {
		t.Error("Hash should be deterministic")
	}

	// Test different inputs produce different hashes
	h3 := Hash([]byte("world"))
	if h1 == h3 {
		t.Error("Different inputs should produce different hashes")
	}

	// Test hash length (BLAKE3-256 produces 64 hex chars)
	if len(h1) != 64 {
		t.Errorf("Hash length should be 64, got %d", len(h1))
	}
}

func TestDefaultKeyer(t *testing.T) {
	k := NewDefaultKeyer()

	if got := k.DocumentKey("notes"); got != "doc:notes" {
		t.Errorf("DocumentKey unexpected: %s", got)
	}

	// ScanKey should include options in hash
	sk1 := k.ScanKey("/home/me/project", false)
	sk2 := k.ScanKey("/home/me/project", true)
	if sk1 == sk2 {
		t.Error("Different scan options should produce different keys")
	}
	if sk1 != k.ScanKey("/home/me/project", false) {
		t.Error("ScanKey should be deterministic")
	}
	if !strings.HasPrefix(sk1, "scan:") || len(sk1) != len("scan:")+64 {
		t.Errorf("ScanKey unexpected: %s", sk1)
	}
}

func TestScopedKeyer(t *testing.T) {
	inner := NewDefaultKeyer()
	scoped := NewScopedKeyer(inner, "team:design:")

	if got := scoped.DocumentKey("notes"); got != "team:design:doc:notes" {
		t.Errorf("ScopedKeyer DocumentKey unexpected: %s", got)
	}
	if got := scoped.ScanKey("/p", false); got != "team:design:"+inner.ScanKey("/p", false) {
		t.Errorf("ScopedKeyer ScanKey should be prefixed: %s", got)
	}
}

func TestScopedKeyerNilInner(t *testing.T) {
	// Should use DefaultKeyer when inner is nil
	scoped := NewScopedKeyer(nil, "prefix:")
	if key := scoped.DocumentKey("d"); key != "prefix:doc:d" {
		t.Errorf("Unexpected key with nil inner: %s", key)
	}
}

func TestKeyType(t *testing.T) {
	k := NewDefaultKeyer()
	tests := []struct {
		key  string
		want string
	}{
		{k.DocumentKey("a"), KeyTypeDocument},
		{k.ScanKey("/p", true), KeyTypeScan},
		{NewScopedKeyer(nil, "team:x:").DocumentKey("a"), KeyTypeDocument},
		{"other:thing", "other"},
		{"plain", "unknown"},
	}
	for _, tt := range tests {
		if got := KeyType(tt.key); got != tt.want {
			t.Errorf("KeyType(%q) = %q, want %q", tt.key, got, tt.want)
		}
	}
}

func TestFileCache(t *testing.T) {
	ctx := context.Background()
	c, err := NewFileCache(filepath.Join(t.TempDir(), "cache"))
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	if _, hit, err := c.Get(ctx, "doc:a"); hit || err != nil {
		t.Errorf("empty cache Get = %v, %v", hit, err)
	}
	if err := c.Set(ctx, "doc:a", []byte("payload"), 0); err != nil {
		t.Fatal(err)
	}
	data, hit, err := c.Get(ctx, "doc:a")
	if err != nil || !hit || string(data) != "payload" {
		t.Errorf("Get = %q, %v, %v", data, hit, err)
	}

	if err := c.Set(ctx, "doc:old", []byte("x"), time.Nanosecond); err != nil {
		t.Fatal(err)
	}
	time.Sleep(5 * time.Millisecond)
	if _, hit, _ := c.Get(ctx, "doc:old"); hit {
		t.Error("expired entry should miss")
	}
	if _, err := os.Stat(c.path("doc:old")); !os.IsNotExist(err) {
		t.Error("expired entry should be removed")
	}

	bad := c.path("doc:bad")
	if err := os.MkdirAll(filepath.Dir(bad), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(bad, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, hit, _ := c.Get(ctx, "doc:bad"); hit {
		t.Error("corrupt entry should miss")
	}

	if err := c.Delete(ctx, "doc:a"); err != nil {
		t.Fatal(err)
	}
	if _, hit, _ := c.Get(ctx, "doc:a"); hit {
		t.Error("deleted entry should miss")
	}
	if err := c.Delete(ctx, "doc:a"); err != nil {
		t.Errorf("deleting a missing entry: %v", err)
	}
}

type recordingHooks struct {
	hits, misses []string
	written      int
}

func (r *recordingHooks) OnCacheHit(_ context.Context, keyType string) {
	r.hits = append(r.hits, keyType)
}

func (r *recordingHooks) OnCacheMiss(_ context.Context, keyType string) {
	r.misses = append(r.misses, keyType)
}

func (r *recordingHooks) OnCacheSet(_ context.Context, _ string, size int) {
	r.written += size
}

func TestInstrumented(t *testing.T) {
	rec := &recordingHooks{}
	observability.SetCacheHooks(rec)
	defer observability.Reset()

	ctx := context.Background()
	fc, err := NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	c := NewInstrumented(fc)
	k := NewDefaultKeyer()

	_, _, _ = c.Get(ctx, k.DocumentKey("a"))
	_ = c.Set(ctx, k.DocumentKey("a"), []byte("12345"), 0)
	_, _, _ = c.Get(ctx, k.DocumentKey("a"))
	_, _, _ = c.Get(ctx, k.ScanKey("/p", false))

	if len(rec.hits) != 1 || rec.hits[0] != KeyTypeDocument {
		t.Errorf("hits = %v", rec.hits)
	}
	if len(rec.misses) != 2 || rec.misses[1] != KeyTypeScan {
		t.Errorf("misses = %v", rec.misses)
	}
	if rec.written != 5 {
		t.Errorf("written = %d, want 5", rec.written)
	}
}

func TestNewRedisCacheUnreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err := NewRedisCache(ctx, "127.0.0.1:1")
	if !errors.Is(err, ErrNetwork) {
		t.Errorf("NewRedisCache error = %v, want ErrNetwork", err)
	}
}

func TestRetryableError(t *testing.T) {
	// Retryable(nil) returns nil
	if Retryable(nil) != nil {
		t.Error("Retryable(nil) should return nil")
	}

	// Non-nil error is wrapped
	err := Retryable(ErrNetwork)
	if err == nil {
		t.Fatal("Retryable should return wrapped error")
	}
	if !IsRetryable(err) {
		t.Error("IsRetryable should return true for wrapped error")
	}

	// Error message is preserved
	if err.Error() != ErrNetwork.Error() {
		t.Errorf("Error message should be preserved: %s", err.Error())
	}

	// Non-wrapped errors are not retryable
	if IsRetryable(ErrNotFound) {
		t.Error("IsRetryable should return false for unwrapped error")
	}
}

func TestRetryWithBackoff(t *testing.T) {
	ctx := context.Background()
	defer func(d time.Duration) { RetryDelay = d }(RetryDelay)
	RetryDelay = time.Millisecond

	// Success on first try
	calls := 0
	err := RetryWithBackoff(ctx, func() error {
		calls++
		return nil
	})
	if err != nil {
		t.Errorf("Should succeed: %v", err)
	}
	if calls != 1 {
		t.Errorf("Should call once: %d", calls)
	}

	// Non-retryable error stops immediately
	calls = 0
	err = RetryWithBackoff(ctx, func() error {
		calls++
		return ErrNotFound
	})
	if err != ErrNotFound {
		t.Errorf("Should return non-retryable error: %v", err)
	}
	if calls != 1 {
		t.Errorf("Should not retry non-retryable error: %d", calls)
	}

	// Retryable error triggers retries
	calls = 0
	err = RetryWithBackoff(ctx, func() error {
		calls++
		if calls < 2 {
			return Retryable(ErrNetwork)
		}
		return nil
	})
	if err != nil {
		t.Errorf("Should succeed after retry: %v", err)
	}
	if calls != 2 {
		t.Errorf("Should retry once: %d", calls)
	}
}

func TestRetryWithBackoffContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel() // Cancel immediately

	err := RetryWithBackoff(ctx, func() error {
		return Retryable(ErrNetwork)
	})
	if err != context.Canceled {
		t.Errorf("Should return context error: %v", err)
	}
}
