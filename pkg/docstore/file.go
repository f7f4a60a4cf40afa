package docstore

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/matzehuels/mdcanvas/pkg/codec"
	"github.com/matzehuels/mdcanvas/pkg/errors"
)

// Extension is appended to document names on disk.
const Extension = ".mdcanvas.json"

// FileStore keeps each document in <dir>/<name>.mdcanvas.json.
type FileStore struct {
	mu      sync.RWMutex
	baseDir string
}

var _ Store = (*FileStore)(nil)

// DefaultDir returns the document directory.
// Uses $XDG_DATA_HOME/mdcanvas/documents if set, otherwise
// ~/.local/share/mdcanvas/documents.
func DefaultDir() (string, error) {
	dir := os.Getenv("XDG_DATA_HOME")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("get home dir: %w", err)
		}
		dir = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dir, "mdcanvas", "documents"), nil
}

// NewFileStore creates a store in baseDir. An empty baseDir uses
// [DefaultDir].
func NewFileStore(baseDir string) (*FileStore, error) {
	if baseDir == "" {
		dir, err := DefaultDir()
		if err != nil {
			return nil, err
		}
		baseDir = dir
	}
	if err := os.MkdirAll(baseDir, 0o700); err != nil {
		return nil, fmt.Errorf("create document dir: %w", err)
	}
	return &FileStore{baseDir: baseDir}, nil
}

// Path returns the base directory for document files.
func (s *FileStore) Path() string { return s.baseDir }

func (s *FileStore) documentPath(name string) string {
	return filepath.Join(s.baseDir, name+Extension)
}

func (s *FileStore) Get(_ context.Context, name string) ([]byte, error) {
	if err := errors.ValidateDocumentName(name); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := os.ReadFile(s.documentPath(name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, notFound(name)
		}
		return nil, fmt.Errorf("read document file: %w", err)
	}
	return data, nil
}

func (s *FileStore) Put(_ context.Context, name string, payload []byte) error {
	if err := errors.ValidateDocumentName(name); err != nil {
		return err
	}
	if !json.Valid(payload) {
		return errors.New(errors.ErrCodeInvalidDocument, "document %q is not valid JSON", name)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	path := s.documentPath(name)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, payload, 0o600); err != nil {
		return fmt.Errorf("write document file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replace document file: %w", err)
	}
	return nil
}

func (s *FileStore) Delete(_ context.Context, name string) error {
	if err := errors.ValidateDocumentName(name); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.documentPath(name)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove document file: %w", err)
	}
	return nil
}

func (s *FileStore) List(_ context.Context) ([]Info, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		return nil, fmt.Errorf("read document dir: %w", err)
	}

	var out []Info
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), Extension) {
			continue
		}
		path := filepath.Join(s.baseDir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		out = append(out, describe(strings.TrimSuffix(entry.Name(), Extension), data, info.ModTime()))
	}
	slices.SortFunc(out, func(a, b Info) int { return strings.Compare(a.Name, b.Name) })
	return out, nil
}

func (s *FileStore) Close() error { return nil }

// describe fingerprints payload. Payloads that are not decodable JSON get
// an empty fingerprint.
func describe(name string, payload []byte, updated time.Time) Info {
	info := Info{Name: name, Size: len(payload), UpdatedAt: updated.UTC()}
	if fp, err := codec.FingerprintBytes(payload); err == nil {
		info.Fingerprint = fp
	}
	return info
}
