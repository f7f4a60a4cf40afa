// Package docstore persists encoded diagram documents by name.
//
// A document payload is the JSON produced by [codec.Encode]. Stores treat
// it as opaque bytes but record its fingerprint so callers can detect
// changes without reading the payload.
//
// Backends:
//
//   - [FileStore]: one file per document in a data directory
//   - [MongoStore]: one record per document in a MongoDB collection
//   - [Cached]: a read-through cache in front of either
package docstore

import (
	"context"
	"time"

	"github.com/matzehuels/mdcanvas/pkg/errors"
)

// Info describes a stored document.
type Info struct {
	Name        string    `json:"name"`
	Size        int       `json:"size"`
	Fingerprint string    `json:"fingerprint"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Store holds document payloads.
type Store interface {
	// Get returns the payload of name. Missing documents yield an error
	// with code [errors.ErrCodeDocumentNotFound].
	Get(ctx context.Context, name string) ([]byte, error)
	// Put creates or replaces name.
	Put(ctx context.Context, name string, payload []byte) error
	// Delete removes name. Deleting a missing document is not an error.
	Delete(ctx context.Context, name string) error
	// List returns every document sorted by name.
	List(ctx context.Context) ([]Info, error)
	Close() error
}

func notFound(name string) error {
	return errors.New(errors.ErrCodeDocumentNotFound, "document %q not found", name)
}
