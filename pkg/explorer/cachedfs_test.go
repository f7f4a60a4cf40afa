package explorer

import (
	"context"
	"testing"

	"github.com/matzehuels/mdcanvas/pkg/cache"
)

type countingFS struct {
	Filesystem
	scans int
	fail  bool
}

func (c *countingFS) ScanDirectory(_ context.Context, path string, _ bool) ScanResult {
	c.scans++
	if c.fail {
		return ScanResult{Path: path, Error: "boom"}
	}
	return ScanResult{Success: true, Path: path, Tree: tree(path, file(path+"/a.txt"))}
}

func TestCachedFS(t *testing.T) {
	ctx := context.Background()
	fc, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	inner := &countingFS{}
	fs := NewCachedFS(inner, fc, nil, 0, nil)

	first := fs.ScanDirectory(ctx, "/proj", false)
	second := fs.ScanDirectory(ctx, "/proj/", false)
	if inner.scans != 1 {
		t.Errorf("scans = %d, want 1", inner.scans)
	}
	if !second.Success || second.Tree.Count() != first.Tree.Count() || second.Tree.Children[0].Name != "a.txt" {
		t.Errorf("cached result = %+v", second)
	}

	fs.ScanDirectory(ctx, "/proj", true)
	if inner.scans != 2 {
		t.Errorf("hidden variant should miss, scans = %d", inner.scans)
	}

	fs.Invalidate(ctx, "/proj")
	fs.ScanDirectory(ctx, "/proj", false)
	if inner.scans != 3 {
		t.Errorf("invalidated scan should miss, scans = %d", inner.scans)
	}
}

func TestCachedFSSkipsFailures(t *testing.T) {
	ctx := context.Background()
	inner := &countingFS{fail: true}
	fc, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	fs := NewCachedFS(inner, fc, nil, 0, nil)

	for range 2 {
		if res := fs.ScanDirectory(ctx, "/proj", false); res.Success {
			t.Fatal("want failure")
		}
	}
	if inner.scans != 2 {
		t.Errorf("failures must not be cached, scans = %d", inner.scans)
	}
}
