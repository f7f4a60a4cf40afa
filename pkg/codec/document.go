package codec

import (
	"bytes"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"os"

	"github.com/matzehuels/mdcanvas/pkg/diagram"
	"github.com/matzehuels/mdcanvas/pkg/errors"
)

// Version is the document format version written by this package.
const Version = 1

// Document is the versioned persistence envelope.
type Document struct {
	Version int            `json:"version"`
	Nodes   []NodeSnapshot `json:"nodes"`
	Edges   []EdgeSnapshot `json:"edges"`
}

// Source is a graph that can be enumerated in store order.
// [*diagram.Store] implements it.
type Source interface {
	Nodes() []*diagram.Node
	Edges() []*diagram.Edge
}

// LoadErrorKind names the record type a [LoadError] refers to.
type LoadErrorKind string

const (
	KindNode   LoadErrorKind = "node"
	KindParent LoadErrorKind = "parent"
	KindEdge   LoadErrorKind = "edge"
)

// LoadError describes one record that could not be loaded.
type LoadError struct {
	Kind  LoadErrorKind
	Index int    // Position in the document's node or edge list
	ID    string // Record ID, empty when it could not be read
	Err   error
}

func (e LoadError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("%s #%d: %v", e.Kind, e.Index, e.Err)
	}
	return fmt.Sprintf("%s #%d (%s): %v", e.Kind, e.Index, e.ID, e.Err)
}

func (e LoadError) Unwrap() error { return e.Err }

// LoadResult is the outcome of decoding a document.
type LoadResult struct {
	Store  *diagram.Store
	Errors []LoadError
}

// Err joins every load error, or returns nil for a clean load.
func (r *LoadResult) Err() error {
	if len(r.Errors) == 0 {
		return nil
	}
	errs := make([]error, len(r.Errors))
	for i, e := range r.Errors {
		errs[i] = e
	}
	return stderrors.Join(errs...)
}

// =============================================================================
// Encoding
// =============================================================================

// FromSource builds a document from g in store order.
func FromSource(g Source) Document {
	doc := Document{
		Version: Version,
		Nodes:   []NodeSnapshot{},
		Edges:   []EdgeSnapshot{},
	}
	for _, n := range g.Nodes() {
		doc.Nodes = append(doc.Nodes, ToPersisted(n))
	}
	for _, e := range g.Edges() {
		doc.Edges = append(doc.Edges, EdgeToPersisted(e))
	}
	return doc
}

// Encode converts g to document bytes.
func Encode(g Source) ([]byte, error) {
	var buf bytes.Buffer
	if err := Write(g, &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Write writes g as a JSON document to w.
func Write(g Source, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(FromSource(g)); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return nil
}

// WriteFile writes g to path. The file is created with 0644 permissions.
func WriteFile(g Source, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := Write(g, f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// =============================================================================
// Decoding
// =============================================================================

type envelope struct {
	Version int               `json:"version"`
	Nodes   []json.RawMessage `json:"nodes"`
	Edges   []json.RawMessage `json:"edges"`
}

// Decode builds a store from document bytes. The returned error is non-nil
// only when the envelope itself is unusable; per-record problems are listed
// in [LoadResult.Errors].
func Decode(data []byte) (*LoadResult, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidDocument, err, "malformed document")
	}
	if env.Version != Version {
		return nil, errors.New(errors.ErrCodeInvalidDocument, "unsupported document version %d", env.Version)
	}

	res := &LoadResult{Store: diagram.NewStore()}
	s := res.Store

	type pending struct {
		index  int
		id     string
		parent string
	}
	var parents []pending

	for i, raw := range env.Nodes {
		var snap NodeSnapshot
		if err := unmarshalNumbers(raw, &snap); err != nil {
			res.Errors = append(res.Errors, LoadError{Kind: KindNode, Index: i, Err: err})
			continue
		}
		n, err := FromPersisted(snap)
		if err != nil {
			res.Errors = append(res.Errors, LoadError{Kind: KindNode, Index: i, ID: snap.ID, Err: err})
			continue
		}
		// Parents are attached after all nodes exist, so order in the
		// document does not matter.
		parent := n.Parent
		n.Parent = ""
		if err := s.InsertNode(n); err != nil {
			res.Errors = append(res.Errors, LoadError{Kind: KindNode, Index: i, ID: n.ID, Err: err})
			continue
		}
		if parent != "" {
			parents = append(parents, pending{index: i, id: n.ID, parent: parent})
		}
	}

	for _, p := range parents {
		if err := s.SetParent(p.id, p.parent); err != nil {
			res.Errors = append(res.Errors, LoadError{Kind: KindParent, Index: p.index, ID: p.id, Err: err})
		}
	}

	for i, raw := range env.Edges {
		var snap EdgeSnapshot
		if err := unmarshalNumbers(raw, &snap); err != nil {
			res.Errors = append(res.Errors, LoadError{Kind: KindEdge, Index: i, Err: err})
			continue
		}
		e, err := EdgeFromPersisted(snap)
		if err == nil {
			err = s.InsertEdge(e)
		}
		if err != nil {
			res.Errors = append(res.Errors, LoadError{Kind: KindEdge, Index: i, ID: snap.ID, Err: err})
		}
	}
	return res, nil
}

// unmarshalNumbers decodes with json.Number for untyped numbers, so
// free-form values re-encode exactly.
func unmarshalNumbers(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("decode: %w", err)
	}
	return nil
}

// Read decodes a document from r.
func Read(r io.Reader) (*LoadResult, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read: %w", err)
	}
	return Decode(data)
}

// ReadFile decodes the document stored at path.
func ReadFile(path string) (*LoadResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	return Decode(data)
}
