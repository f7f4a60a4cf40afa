package explorer

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/matzehuels/mdcanvas/pkg/observability"
)

// Scan limits applied by [NewLocalFS].
const (
	DefaultMaxDepth    = 8
	DefaultMaxEntries  = 5000
	DefaultMaxFileSize = 1 << 20
)

// ErrNoSelector is reported by [LocalFS.SelectFolder] when no selector is
// configured.
var ErrNoSelector = errors.New("no folder selector configured")

// ErrTooManyEntries stops a scan that exceeds MaxEntries.
var ErrTooManyEntries = errors.New("too many entries")

// LocalFS implements [Filesystem] over the local disk.
type LocalFS struct {
	// MaxDepth bounds recursion below the scanned directory. Zero scans
	// only the directory itself.
	MaxDepth int
	// MaxEntries caps the number of entries in one scan. Zero means no cap.
	MaxEntries int
	// MaxFileSize caps how many bytes OpenFile returns.
	MaxFileSize int64
	// Ignore filters entries by path relative to the scan root.
	Ignore *Ignore
	// Selector asks the user for a folder. It returns "" when the user
	// cancels.
	Selector func(ctx context.Context) (string, error)
}

var _ Filesystem = (*LocalFS)(nil)

// NewLocalFS returns a LocalFS with default limits and [DefaultIgnore].
func NewLocalFS() *LocalFS {
	return &LocalFS{
		MaxDepth:    DefaultMaxDepth,
		MaxEntries:  DefaultMaxEntries,
		MaxFileSize: DefaultMaxFileSize,
		Ignore:      NewIgnore(DefaultIgnore...),
	}
}

// IsHidden reports whether a file name is hidden by dot-file convention.
func IsHidden(name string) bool {
	return strings.HasPrefix(name, ".") && name != "." && name != ".."
}

// ScanDirectory reads path recursively. Directories sort before files and
// names compare case-insensitively.
func (l *LocalFS) ScanDirectory(ctx context.Context, path string, includeHidden bool) (res ScanResult) {
	start := time.Now()
	hooks := observability.Scan()
	hooks.OnScanStart(ctx, path)
	defer func() {
		var err error
		if !res.Success {
			err = errors.New(res.Error)
		}
		hooks.OnScanComplete(ctx, path, res.Tree.Count(), time.Since(start), err)
	}()

	res.Path = path
	abs, err := filepath.Abs(path)
	if err != nil {
		res.Error = err.Error()
		return res
	}
	info, err := os.Stat(abs)
	if err != nil {
		res.Error = err.Error()
		return res
	}
	root := &FileTree{
		Name:        filepath.Base(abs),
		Path:        abs,
		IsDirectory: info.IsDir(),
		IsHidden:    IsHidden(filepath.Base(abs)),
	}
	if info.IsDir() {
		s := &scan{fs: l, ctx: ctx, root: abs, includeHidden: includeHidden, count: 1}
		if err := s.walk(root, 0); err != nil {
			res.Error = err.Error()
			return res
		}
	}
	res.Success = true
	res.Tree = root
	return res
}

type scan struct {
	fs            *LocalFS
	ctx           context.Context
	root          string
	includeHidden bool
	count         int
}

func (s *scan) walk(dir *FileTree, depth int) error {
	if err := s.ctx.Err(); err != nil {
		return err
	}
	if depth >= s.fs.MaxDepth {
		return nil
	}
	entries, err := os.ReadDir(dir.Path)
	if err != nil {
		// Unreadable subdirectories stay empty; only the root must be readable.
		if depth == 0 {
			return err
		}
		return nil
	}

	for _, entry := range entries {
		name := entry.Name()
		hidden := IsHidden(name)
		if hidden && !s.includeHidden {
			continue
		}
		full := filepath.Join(dir.Path, name)
		isDir := entry.IsDir()
		symlink := entry.Type()&os.ModeSymlink != 0
		if symlink {
			// Links are classified by their target but never followed.
			if info, err := os.Stat(full); err == nil {
				isDir = info.IsDir()
			}
		}
		rel, _ := filepath.Rel(s.root, full)
		if s.fs.Ignore.Match(rel, isDir) {
			continue
		}
		s.count++
		if s.fs.MaxEntries > 0 && s.count > s.fs.MaxEntries {
			return fmt.Errorf("%w: more than %d under %s", ErrTooManyEntries, s.fs.MaxEntries, s.root)
		}
		child := &FileTree{Name: name, Path: full, IsDirectory: isDir, IsHidden: hidden}
		if isDir && !symlink {
			if err := s.walk(child, depth+1); err != nil {
				return err
			}
		}
		dir.Children = append(dir.Children, child)
	}

	slices.SortFunc(dir.Children, compareEntries)
	return nil
}

func compareEntries(a, b *FileTree) int {
	if a.IsDirectory != b.IsDirectory {
		if a.IsDirectory {
			return -1
		}
		return 1
	}
	if c := cmp.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name)); c != 0 {
		return c
	}
	return cmp.Compare(a.Name, b.Name)
}

// OpenFile reads up to MaxFileSize bytes of a regular file.
func (l *LocalFS) OpenFile(ctx context.Context, path string) OpenResult {
	res := OpenResult{Path: path}
	if err := ctx.Err(); err != nil {
		res.Error = err.Error()
		return res
	}
	f, err := os.Open(path)
	if err != nil {
		res.Error = err.Error()
		return res
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		res.Error = err.Error()
		return res
	}
	if info.IsDir() {
		res.Error = fmt.Sprintf("%s is a directory", path)
		return res
	}

	limit := l.MaxFileSize
	if limit <= 0 {
		limit = DefaultMaxFileSize
	}
	data, err := io.ReadAll(io.LimitReader(f, limit))
	if err != nil {
		res.Error = err.Error()
		return res
	}
	res.Success = true
	res.Content = string(data)
	res.Truncated = info.Size() > limit
	return res
}

// SelectFolder asks the configured Selector for a directory and checks that
// it exists.
func (l *LocalFS) SelectFolder(ctx context.Context) SelectResult {
	if l.Selector == nil {
		return SelectResult{Error: ErrNoSelector.Error()}
	}
	path, err := l.Selector(ctx)
	if err != nil {
		return SelectResult{Error: err.Error()}
	}
	if path == "" {
		return SelectResult{Canceled: true}
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return SelectResult{Error: err.Error()}
	}
	info, err := os.Stat(abs)
	if err != nil {
		return SelectResult{Error: err.Error()}
	}
	if !info.IsDir() {
		return SelectResult{Error: fmt.Sprintf("%s is not a directory", abs)}
	}
	return SelectResult{Success: true, Path: abs}
}
