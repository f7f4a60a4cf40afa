// Package explorer binds diagram nodes to filesystem folders.
//
// A folder explorer is a node whose data bag carries
// [metadata.FolderExplorer]. Its descendants mirror a directory tree. This
// package provides:
//
//   - [Filesystem]: the collaborator contract for scanning, opening and
//     selecting paths, with results returned as values rather than errors
//   - [LocalFS]: a reference implementation over the local disk
//   - [Attach] and [ApplyScanResult]: merging scan results into a store
//   - [Watcher]: debounced change notification for linked folders
//
// Scans are slow and may finish after the user has moved on, so results are
// applied only while the scanned path is still bound to a folder-explorer
// node. Otherwise [ApplyScanResult] reports [OutcomeStale].
package explorer

import (
	"context"
)

// FileTree is one entry of a scanned directory.
type FileTree struct {
	Name        string      `json:"name"`
	Path        string      `json:"path"`
	IsDirectory bool        `json:"isDirectory"`
	IsHidden    bool        `json:"isHidden,omitempty"`
	Children    []*FileTree `json:"children,omitempty"`
}

// Count returns the number of entries in t, including t itself.
func (t *FileTree) Count() int {
	if t == nil {
		return 0
	}
	n := 1
	for _, c := range t.Children {
		n += c.Count()
	}
	return n
}

// Walk calls fn for t and every descendant in depth-first order, passing
// the entry's parent (nil for t).
func (t *FileTree) Walk(fn func(entry, parent *FileTree)) {
	var walk func(e, p *FileTree)
	walk = func(e, p *FileTree) {
		fn(e, p)
		for _, c := range e.Children {
			walk(c, e)
		}
	}
	if t != nil {
		walk(t, nil)
	}
}

// ScanResult is the outcome of [Filesystem.ScanDirectory].
type ScanResult struct {
	Success bool      `json:"success"`
	Path    string    `json:"path"`
	Tree    *FileTree `json:"tree,omitempty"`
	Error   string    `json:"error,omitempty"`
}

// OpenResult is the outcome of [Filesystem.OpenFile].
type OpenResult struct {
	Success   bool   `json:"success"`
	Path      string `json:"path"`
	Content   string `json:"content,omitempty"`
	Truncated bool   `json:"truncated,omitempty"`
	Error     string `json:"error,omitempty"`
}

// SelectResult is the outcome of [Filesystem.SelectFolder].
type SelectResult struct {
	Success  bool   `json:"success"`
	Path     string `json:"path,omitempty"`
	Canceled bool   `json:"canceled,omitempty"`
	Error    string `json:"error,omitempty"`
}

// Filesystem is the external collaborator that touches the disk. Failures
// are reported in the result values; implementations must not panic.
type Filesystem interface {
	ScanDirectory(ctx context.Context, path string, includeHidden bool) ScanResult
	OpenFile(ctx context.Context, path string) OpenResult
	SelectFolder(ctx context.Context) SelectResult
}

// ScanAsync runs a scan in a new goroutine. The returned channel receives
// exactly one result and is then closed.
func ScanAsync(ctx context.Context, fs Filesystem, path string, includeHidden bool) <-chan ScanResult {
	ch := make(chan ScanResult, 1)
	go func() {
		defer close(ch)
		ch <- fs.ScanDirectory(ctx, path, includeHidden)
	}()
	return ch
}
