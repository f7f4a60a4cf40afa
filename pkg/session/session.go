// Package session owns the document being edited.
//
// A [Session] holds one [diagram.Store] and routes every mutation through
// the conversion engine, the folder explorer and the preferences so that
// the CLI, the TUI and the HTTP server behave the same. All methods are
// safe for concurrent use; mutations are serialized by one mutex because
// the server and the folder watcher call in from their own goroutines.
//
// # Usage
//
//	sess := session.New(session.Options{
//	    Logger: logger,
//	    Docs:   docs,
//	    FS:     explorer.NewLocalFS(),
//	})
//	if _, err := sess.Load(ctx, "roadmap"); err != nil {
//	    return err
//	}
//	node, err := sess.SetText(ctx, id, "**bold** idea")
//	if err != nil {
//	    return err
//	}
//	// node.Shape is now diagram.ShapeRichContent
//	err = sess.Save(ctx)
package session

import (
	"context"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/mdcanvas/pkg/convert"
	"github.com/matzehuels/mdcanvas/pkg/diagram"
	"github.com/matzehuels/mdcanvas/pkg/docstore"
	"github.com/matzehuels/mdcanvas/pkg/errors"
	"github.com/matzehuels/mdcanvas/pkg/explorer"
	"github.com/matzehuels/mdcanvas/pkg/metadata"
	"github.com/matzehuels/mdcanvas/pkg/settings"
)

// Options configures a session. Zero fields get working defaults: the
// default logger, a new engine, in-memory preferences, [explorer.LocalFS]
// and no document store.
type Options struct {
	Logger *log.Logger
	Engine *convert.Engine
	Prefs  *settings.Preferences
	FS     explorer.Filesystem
	Docs   docstore.Store
	Layout explorer.Layout
}

// Session is an open document.
type Session struct {
	logger *log.Logger
	engine *convert.Engine
	prefs  *settings.Preferences
	fs     explorer.Filesystem
	docs   docstore.Store
	layout explorer.Layout

	mu      sync.Mutex
	store   *diagram.Store
	name    string
	savedFP string
	closed  bool
}

// New creates a session with an empty, unnamed document.
func New(opts Options) *Session {
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	if opts.Engine == nil {
		opts.Engine = convert.New(opts.Logger)
	}
	if opts.Prefs == nil {
		opts.Prefs = settings.New(nil)
	}
	if opts.FS == nil {
		opts.FS = explorer.NewLocalFS()
	}
	s := &Session{
		logger: opts.Logger,
		engine: opts.Engine,
		prefs:  opts.Prefs,
		fs:     opts.FS,
		docs:   opts.Docs,
		layout: opts.Layout,
		store:  diagram.NewStore(),
	}
	s.savedFP = s.fingerprint()
	return s
}

// Logger returns the session logger.
func (s *Session) Logger() *log.Logger { return s.logger }

// Preferences returns the preferences the session consults.
func (s *Session) Preferences() *settings.Preferences { return s.prefs }

// Filesystem returns the filesystem collaborator.
func (s *Session) Filesystem() explorer.Filesystem { return s.fs }

// Name returns the document name, or "" for an unsaved document.
func (s *Session) Name() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.name
}

// lock acquires the mutex and fails once the session is closed.
func (s *Session) lock() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return errors.New(errors.ErrCodeInvalidInput, "session is closed")
	}
	return nil
}

// View runs fn with read access to the store. fn must not retain the store
// or its nodes after returning.
func (s *Session) View(fn func(*diagram.Store) error) error {
	if err := s.lock(); err != nil {
		return err
	}
	defer s.mu.Unlock()
	return fn(s.store)
}

// Update runs fn with write access to the store.
func (s *Session) Update(fn func(*diagram.Store) error) error {
	if err := s.lock(); err != nil {
		return err
	}
	defer s.mu.Unlock()
	return fn(s.store)
}

// Node returns a copy of node id.
func (s *Session) Node(id string) (diagram.Node, error) {
	if err := s.lock(); err != nil {
		return diagram.Node{}, err
	}
	defer s.mu.Unlock()
	n, err := s.node(id)
	if err != nil {
		return diagram.Node{}, err
	}
	return n.Clone(), nil
}

func (s *Session) node(id string) (*diagram.Node, error) {
	if err := errors.ValidateNodeID(id); err != nil {
		return nil, err
	}
	n, ok := s.store.Node(id)
	if !ok {
		return nil, errors.New(errors.ErrCodeNodeNotFound, "node %q not found", id)
	}
	return n, nil
}

func writable(n *diagram.Node) error {
	if fe := n.Data.FolderExplorer; fe != nil && fe.IsReadOnly {
		return errors.New(errors.ErrCodeInvalidInput, "node %q mirrors %s and is read-only", n.ID, fe.Path)
	}
	return nil
}

// =============================================================================
// Editing
// =============================================================================

// SetText replaces the text of node id. When markdown is enabled and the
// text needs rich rendering, the node is converted first; a failed
// conversion leaves the shape as it was and the text is still applied.
func (s *Session) SetText(ctx context.Context, id, text string) (diagram.Node, error) {
	if err := s.lock(); err != nil {
		return diagram.Node{}, err
	}
	defer s.mu.Unlock()

	n, err := s.node(id)
	if err != nil {
		return diagram.Node{}, err
	}
	if err := writable(n); err != nil {
		return diagram.Node{}, err
	}
	md, err := s.prefs.Bool(ctx, settings.KeyMarkdownEnabled)
	if err != nil {
		s.logger.Warn("reading preference failed, using default", "key", settings.KeyMarkdownEnabled, "err", err)
	}
	if md {
		n = s.engine.EnsureMarkdownSupportContext(ctx, s.store, n, text)
	}
	if err := s.store.UpdateData(n.ID, func(b *metadata.DataBag) { b.SetText(text) }); err != nil {
		return diagram.Node{}, errors.Wrap(errors.ErrCodeInternal, err, "set text of %q", id)
	}
	return n.Clone(), nil
}

// ConvertToRich converts node id to a rich-content node.
func (s *Session) ConvertToRich(ctx context.Context, id string) (diagram.Node, error) {
	if err := s.lock(); err != nil {
		return diagram.Node{}, err
	}
	defer s.mu.Unlock()

	n, err := s.node(id)
	if err != nil {
		return diagram.Node{}, err
	}
	if err := writable(n); err != nil {
		return diagram.Node{}, err
	}
	out, err := s.engine.Convert(ctx, s.store, n)
	if err != nil {
		return n.Clone(), err
	}
	return out.Clone(), nil
}

// ToggleCollapsed flips the collapse flag of node id and returns the new
// state.
func (s *Session) ToggleCollapsed(id string) (bool, error) {
	if err := s.lock(); err != nil {
		return false, err
	}
	defer s.mu.Unlock()

	n, err := s.node(id)
	if err != nil {
		return false, err
	}
	collapsed := !n.Data.IsCollapsed()
	if err := s.store.UpdateData(n.ID, func(b *metadata.DataBag) { b.Collapsed = metadata.Ptr(collapsed) }); err != nil {
		return false, errors.Wrap(errors.ErrCodeInternal, err, "toggle %q", id)
	}
	return collapsed, nil
}
