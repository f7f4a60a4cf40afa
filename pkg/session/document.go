package session

import (
	"context"

	"github.com/matzehuels/mdcanvas/pkg/codec"
	"github.com/matzehuels/mdcanvas/pkg/diagram"
	"github.com/matzehuels/mdcanvas/pkg/errors"
)

// fingerprint hashes the current store. Caller holds the lock.
func (s *Session) fingerprint() string {
	fp, err := codec.Fingerprint(s.store)
	if err != nil {
		s.logger.Warn("fingerprint failed", "err", err)
		return ""
	}
	return fp
}

// Dirty reports whether the document changed since it was loaded or saved.
func (s *Session) Dirty() bool {
	if err := s.lock(); err != nil {
		return false
	}
	defer s.mu.Unlock()
	return s.fingerprint() != s.savedFP
}

// Fingerprint returns the fingerprint of the current document.
func (s *Session) Fingerprint() (string, error) {
	if err := s.lock(); err != nil {
		return "", err
	}
	defer s.mu.Unlock()
	return codec.Fingerprint(s.store)
}

// Document returns the current document in persisted form.
func (s *Session) Document() (codec.Document, error) {
	if err := s.lock(); err != nil {
		return codec.Document{}, err
	}
	defer s.mu.Unlock()
	return codec.FromSource(s.store), nil
}

// Encode returns the current document as JSON.
func (s *Session) Encode() ([]byte, error) {
	if err := s.lock(); err != nil {
		return nil, err
	}
	defer s.mu.Unlock()
	return codec.Encode(s.store)
}

// Load replaces the open document with name from the document store.
// Records that fail to decode are skipped and listed in the result.
func (s *Session) Load(ctx context.Context, name string) (*codec.LoadResult, error) {
	if s.docs == nil {
		return nil, errors.New(errors.ErrCodeUnsupported, "no document store configured")
	}
	data, err := s.docs.Get(ctx, name)
	if err != nil {
		return nil, err
	}
	return s.LoadBytes(name, data)
}

// LoadBytes replaces the open document with an encoded one. name may be
// empty for documents that did not come from the store.
func (s *Session) LoadBytes(name string, data []byte) (*codec.LoadResult, error) {
	res, err := codec.Decode(data)
	if err != nil {
		return nil, err
	}
	if err := s.replace(name, res.Store); err != nil {
		return nil, err
	}
	for _, le := range res.Errors {
		s.logger.Warn("skipped record", "kind", le.Kind, "index", le.Index, "id", le.ID, "err", le.Err)
	}
	return res, nil
}

// LoadFile replaces the open document with the one in path.
func (s *Session) LoadFile(path string) (*codec.LoadResult, error) {
	res, err := codec.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := s.replace("", res.Store); err != nil {
		return nil, err
	}
	for _, le := range res.Errors {
		s.logger.Warn("skipped record", "kind", le.Kind, "index", le.Index, "id", le.ID, "err", le.Err)
	}
	return res, nil
}

func (s *Session) replace(name string, store *diagram.Store) error {
	if err := s.lock(); err != nil {
		return err
	}
	defer s.mu.Unlock()
	s.store.Clear()
	s.store = store
	s.name = name
	// A partially decoded document differs from its source, but the user
	// has not changed anything yet.
	s.savedFP = s.fingerprint()
	return nil
}

// Save writes the document to the store under its current name.
func (s *Session) Save(ctx context.Context) error {
	return s.SaveAs(ctx, "")
}

// SaveAs writes the document under name and makes it the current name.
// An empty name keeps the current one.
func (s *Session) SaveAs(ctx context.Context, name string) error {
	if s.docs == nil {
		return errors.New(errors.ErrCodeUnsupported, "no document store configured")
	}
	if err := s.lock(); err != nil {
		return err
	}
	defer s.mu.Unlock()

	if name == "" {
		name = s.name
	}
	if name == "" {
		return errors.New(errors.ErrCodeInvalidInput, "document has no name")
	}
	if err := errors.ValidateDocumentName(name); err != nil {
		return err
	}
	data, err := codec.Encode(s.store)
	if err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "encode %q", name)
	}
	if err := s.docs.Put(ctx, name, data); err != nil {
		return err
	}
	s.name = name
	s.savedFP = s.fingerprint()
	s.logger.Info("saved document", "name", name, "bytes", len(data))
	return nil
}

// SaveFile writes the document to path. The document name is unchanged.
func (s *Session) SaveFile(path string) error {
	if err := s.lock(); err != nil {
		return err
	}
	defer s.mu.Unlock()
	if err := codec.WriteFile(s.store, path); err != nil {
		return err
	}
	s.savedFP = s.fingerprint()
	return nil
}

// Close tears the document down. Later calls fail.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.store.Clear()
	s.closed = true
	return nil
}
