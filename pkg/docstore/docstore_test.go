package docstore

import (
	"context"
	stderrors "errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/matzehuels/mdcanvas/pkg/cache"
	"github.com/matzehuels/mdcanvas/pkg/codec"
	"github.com/matzehuels/mdcanvas/pkg/diagram"
	"github.com/matzehuels/mdcanvas/pkg/errors"
	"github.com/matzehuels/mdcanvas/pkg/metadata"
)

func samplePayload(t *testing.T, text string) []byte {
	t.Helper()
	s := diagram.NewStore()
	if err := s.InsertNode(diagram.Node{ID: "a", Data: metadata.DataBag{Text: metadata.Ptr(text)}}); err != nil {
		t.Fatal(err)
	}
	data, err := codec.Encode(s)
	if err != nil {
		t.Fatal(err)
	}
	return data
}

func TestFileStore(t *testing.T) {
	ctx := context.Background()
	s, err := NewFileStore(filepath.Join(t.TempDir(), "docs"))
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	if _, err := s.Get(ctx, "plan"); !errors.Is(err, errors.ErrCodeDocumentNotFound) {
		t.Errorf("Get missing = %v, want DOCUMENT_NOT_FOUND", err)
	}

	payload := samplePayload(t, "hello")
	if err := s.Put(ctx, "plan", payload); err != nil {
		t.Fatal(err)
	}
	if err := s.Put(ctx, "alpha", samplePayload(t, "first")); err != nil {
		t.Fatal(err)
	}
	got, err := s.Get(ctx, "plan")
	if err != nil || string(got) != string(payload) {
		t.Errorf("Get = %q, %v", got, err)
	}
	if _, err := os.Stat(filepath.Join(s.Path(), "plan"+Extension)); err != nil {
		t.Errorf("document file missing: %v", err)
	}

	infos, err := s.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(infos) != 2 || infos[0].Name != "alpha" || infos[1].Name != "plan" {
		t.Fatalf("List = %+v", infos)
	}
	want, _ := codec.FingerprintBytes(payload)
	if infos[1].Fingerprint != want || infos[1].Size != len(payload) {
		t.Errorf("plan info = %+v", infos[1])
	}

	if err := s.Delete(ctx, "plan"); err != nil {
		t.Fatal(err)
	}
	if err := s.Delete(ctx, "plan"); err != nil {
		t.Errorf("second Delete = %v", err)
	}
	if _, err := s.Get(ctx, "plan"); !errors.Is(err, errors.ErrCodeDocumentNotFound) {
		t.Errorf("Get after Delete = %v", err)
	}
}

func TestFileStoreRejects(t *testing.T) {
	ctx := context.Background()
	s, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		doc     string
		payload []byte
		code    errors.Code
	}{
		{"Traversal", "../escape", []byte("{}"), errors.ErrCodeInvalidInput},
		{"Empty", "", []byte("{}"), errors.ErrCodeInvalidInput},
		{"NotJSON", "ok", []byte("{nope"), errors.ErrCodeInvalidDocument},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := s.Put(ctx, tt.doc, tt.payload)
			if !errors.Is(err, tt.code) {
				t.Errorf("Put(%q) = %v, want %s", tt.doc, err, tt.code)
			}
		})
	}
}

type countingStore struct {
	Store
	gets int
}

func (c *countingStore) Get(ctx context.Context, name string) ([]byte, error) {
	c.gets++
	return c.Store.Get(ctx, name)
}

func TestCached(t *testing.T) {
	ctx := context.Background()
	fs, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	fc, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	inner := &countingStore{Store: fs}
	c := NewCached(inner, fc, nil, time.Minute, nil)
	defer c.Close()

	payload := samplePayload(t, "cached")
	if err := c.Put(ctx, "doc", payload); err != nil {
		t.Fatal(err)
	}
	for range 3 {
		got, err := c.Get(ctx, "doc")
		if err != nil || string(got) != string(payload) {
			t.Fatalf("Get = %q, %v", got, err)
		}
	}
	if inner.gets != 0 {
		t.Errorf("store reads = %d, want 0 after a write-through Put", inner.gets)
	}

	if err := c.Delete(ctx, "doc"); err != nil {
		t.Fatal(err)
	}
	if _, err := c.Get(ctx, "doc"); !errors.Is(err, errors.ErrCodeDocumentNotFound) {
		t.Errorf("Get after Delete = %v", err)
	}
	if inner.gets != 1 {
		t.Errorf("store reads = %d, want 1", inner.gets)
	}

	if err := fs.Put(ctx, "direct", payload); err != nil {
		t.Fatal(err)
	}
	_, _ = c.Get(ctx, "direct")
	_, _ = c.Get(ctx, "direct")
	if inner.gets != 2 {
		t.Errorf("store reads = %d, want 2 after read-through", inner.gets)
	}
}

func TestNewMongoStoreUnreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err := NewMongoStore(ctx, "mongodb://127.0.0.1:1", "", "")
	if !stderrors.Is(err, cache.ErrNetwork) {
		t.Errorf("NewMongoStore error = %v, want ErrNetwork", err)
	}
}

func TestRetryableClassification(t *testing.T) {
	if retryable(nil) != nil {
		t.Error("nil should stay nil")
	}
	if cache.IsRetryable(retryable(stderrors.New("duplicate key"))) {
		t.Error("plain errors should not be retried")
	}
}
