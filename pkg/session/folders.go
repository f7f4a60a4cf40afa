package session

import (
	"context"

	"github.com/matzehuels/mdcanvas/pkg/diagram"
	"github.com/matzehuels/mdcanvas/pkg/errors"
	"github.com/matzehuels/mdcanvas/pkg/explorer"
	"github.com/matzehuels/mdcanvas/pkg/metadata"
	"github.com/matzehuels/mdcanvas/pkg/settings"
)

// gap separates a newly attached explorer from the nodes above it.
const gap = 40

// includeHidden resolves the hidden-files preference.
func (s *Session) includeHidden(ctx context.Context) bool {
	v, err := s.prefs.Bool(ctx, settings.KeyShowHiddenFiles)
	if err != nil {
		s.logger.Warn("reading preference failed, using default", "key", settings.KeyShowHiddenFiles, "err", err)
	}
	return v
}

// AttachFolder scans path and adds an explorer for it under parentID ("" for
// top level). The scan runs without holding the session lock.
func (s *Session) AttachFolder(ctx context.Context, path string, typ metadata.ExplorerType, parentID string) (diagram.Node, explorer.Report, error) {
	if err := errors.ValidateFolderPath(path); err != nil {
		return diagram.Node{}, explorer.Report{}, err
	}
	res := s.fs.ScanDirectory(ctx, path, s.includeHidden(ctx))
	if !res.Success {
		return diagram.Node{}, explorer.Report{Outcome: explorer.OutcomeFailed},
			errors.New(errors.ErrCodeScanFailed, "scan %s: %s", path, res.Error)
	}

	if err := s.lock(); err != nil {
		return diagram.Node{}, explorer.Report{}, err
	}
	defer s.mu.Unlock()

	x, y := s.freeSpot(parentID)
	root, rep, err := explorer.Attach(s.store, res.Tree, typ, parentID, x, y, s.layout)
	if err != nil {
		return diagram.Node{}, rep, err
	}
	s.logger.Info("attached folder", "path", res.Tree.Path, "type", typ, "entries", rep.Added)
	return root.Clone(), rep, nil
}

// freeSpot returns a position below every existing node, or to the right
// of parentID when given.
func (s *Session) freeSpot(parentID string) (float64, float64) {
	if p, ok := s.store.Node(parentID); ok {
		return p.Geometry.X + p.Geometry.Width + gap, p.Geometry.Y
	}
	var bottom float64
	for _, n := range s.store.Nodes() {
		if b := n.Geometry.Y + n.Geometry.Height; b > bottom {
			bottom = b
		}
	}
	if s.store.NodeCount() == 0 {
		return 0, 0
	}
	return 0, bottom + gap
}

// Refresh rescans the folder bound to path and merges the result.
func (s *Session) Refresh(ctx context.Context, path string) (explorer.Report, error) {
	if err := errors.ValidateFolderPath(path); err != nil {
		return explorer.Report{}, err
	}
	return s.ApplyScanResult(s.fs.ScanDirectory(ctx, path, s.includeHidden(ctx)))
}

// RefreshAsync is [Session.Refresh] with the scan on its own goroutine.
// The channel receives one outcome and is closed.
func (s *Session) RefreshAsync(ctx context.Context, path string) <-chan RefreshOutcome {
	out := make(chan RefreshOutcome, 1)
	scans := explorer.ScanAsync(ctx, s.fs, path, s.includeHidden(ctx))
	go func() {
		defer close(out)
		res, ok := <-scans
		if !ok {
			return
		}
		rep, err := s.ApplyScanResult(res)
		out <- RefreshOutcome{Path: path, Report: rep, Err: err}
	}()
	return out
}

// RefreshOutcome is delivered by [Session.RefreshAsync].
type RefreshOutcome struct {
	Path   string
	Report explorer.Report
	Err    error
}

// ApplyScanResult merges a finished scan. A result whose path is no
// longer bound to an explorer node is discarded with
// [explorer.OutcomeStale].
func (s *Session) ApplyScanResult(res explorer.ScanResult) (explorer.Report, error) {
	if err := s.lock(); err != nil {
		return explorer.Report{}, err
	}
	defer s.mu.Unlock()

	rep, err := explorer.ApplyScanResult(s.store, res, s.layout)
	switch {
	case err != nil:
		s.logger.Warn("folder refresh failed", "path", res.Path, "err", err)
	case rep.Outcome == explorer.OutcomeStale:
		s.logger.Debug("discarded stale scan", "path", res.Path)
	default:
		s.logger.Debug("refreshed folder", "path", res.Path, "added", rep.Added, "removed", rep.Removed, "kept", rep.Kept)
	}
	return rep, err
}

// LinkedPaths returns the paths of linked explorers in the document.
func (s *Session) LinkedPaths() []string {
	if err := s.lock(); err != nil {
		return nil
	}
	defer s.mu.Unlock()
	return explorer.LinkedPaths(s.store)
}

// OpenFile reads the file mirrored by node id.
func (s *Session) OpenFile(ctx context.Context, id string) (explorer.OpenResult, error) {
	n, err := s.Node(id)
	if err != nil {
		return explorer.OpenResult{}, err
	}
	fe := n.Data.FolderExplorer
	if !n.Data.IsFolderExplorer() || fe.IsDirectory {
		return explorer.OpenResult{}, errors.New(errors.ErrCodeInvalidInput, "node %q does not mirror a file", id)
	}
	return s.fs.OpenFile(ctx, fe.Path), nil
}

// invalidator is implemented by filesystems that cache scans, such as
// [explorer.CachedFS].
type invalidator interface {
	Invalidate(ctx context.Context, path string)
}

// Watch registers every linked folder with w and refreshes folders as w
// reports changes. It returns when ctx is done.
func (s *Session) Watch(ctx context.Context, w *explorer.Watcher) error {
	for _, p := range s.LinkedPaths() {
		if err := w.Add(p); err != nil {
			s.logger.Warn("cannot watch folder", "path", p, "err", err)
		}
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case root, ok := <-w.Changes():
			if !ok {
				return nil
			}
			if inv, ok := s.fs.(invalidator); ok {
				inv.Invalidate(ctx, root)
			}
			rep, err := s.Refresh(ctx, root)
			if err == nil && rep.Outcome == explorer.OutcomeStale {
				// The explorer was removed from the document.
				w.Remove(root)
			}
		}
	}
}
