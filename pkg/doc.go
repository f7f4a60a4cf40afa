// Package pkg provides the core libraries for mdcanvas diagram documents.
//
// # Overview
//
// mdcanvas keeps a diagram as a renderer-independent graph of nodes and
// edges. Nodes whose text uses markdown are swapped for rich-content nodes
// in place, so edges, children and the node ID survive. Folder explorer
// nodes mirror directories on disk. The pkg directory is organized into
// three areas:
//
//  1. Core: [diagram], [classify], [convert], [metadata], [codec]
//  2. Collaborators: [explorer], [settings], [docstore], [cache]
//  3. Orchestration: [session], [shell], [observability], [errors]
//
// # Architecture
//
// The typical flow of a text edit:
//
//	shell command or HTTP request
//	         ↓
//	    [session] (serializes access to one document)
//	         ↓
//	    [classify] (does the text need rich rendering?)
//	         ↓
//	    [convert] (swap the node, rewire edges, keep the ID)
//	         ↓
//	    [diagram] store
//	         ↓
//	    [codec] → [docstore] (files or MongoDB, behind [cache])
//
// # Quick Start
//
//	s := diagram.NewStore()
//	_ = s.InsertNode(diagram.Node{ID: "a"})
//	n, _ := s.Node("a")
//
//	engine := convert.New(nil)
//	n = engine.EnsureMarkdownSupport(s, n, "**bold**")
//	// n.Shape == diagram.ShapeRichContent, n.ID == "a"
//
//	data, _ := codec.Encode(s)
//	res, _ := codec.Decode(data)
//	// res.Store holds the same graph
//
// # Main Packages
//
// [diagram] - The graph store. Nodes carry geometry, style, ports and a
// [metadata.DataBag]; edges connect node endpoints. The store enforces
// referential integrity and supports checkpoints for rollback.
//
// [classify] - A pure predicate deciding whether text needs the rich-content
// shape.
//
// [convert] - The conversion engine. Idempotent, reentrancy guarded and
// transactional: a failed conversion leaves the store unchanged.
//
// [metadata] - The typed data bag with the folder explorer sub-schema.
// Unknown keys round-trip through Extra.
//
// [codec] - Lossless, versioned JSON persistence with per-record skipping
// and BLAKE3 fingerprints of the canonical form.
//
// [explorer] - Folder explorer nodes: scanning, merging scans by path and
// watching linked folders with fsnotify.
//
// [settings] - Boolean preferences over memory, TOML file or Redis stores.
//
// [docstore] and [cache] - Named document storage (files or MongoDB) with a
// read-through cache (files or Redis).
//
// [session] and [shell] - One open document and the named commands that
// drive it from the CLI, the terminal browser and the HTTP API.
//
// # Testing
//
// Run tests:
//
//	go test ./...                 # All tests
//	go test ./pkg/convert/...     # Specific package
//	go test -run Example ./pkg/...  # Examples only
//
// [diagram]: https://pkg.go.dev/github.com/matzehuels/mdcanvas/pkg/diagram
// [classify]: https://pkg.go.dev/github.com/matzehuels/mdcanvas/pkg/classify
// [convert]: https://pkg.go.dev/github.com/matzehuels/mdcanvas/pkg/convert
// [metadata]: https://pkg.go.dev/github.com/matzehuels/mdcanvas/pkg/metadata
// [metadata.DataBag]: https://pkg.go.dev/github.com/matzehuels/mdcanvas/pkg/metadata#DataBag
// [codec]: https://pkg.go.dev/github.com/matzehuels/mdcanvas/pkg/codec
// [explorer]: https://pkg.go.dev/github.com/matzehuels/mdcanvas/pkg/explorer
// [settings]: https://pkg.go.dev/github.com/matzehuels/mdcanvas/pkg/settings
// [docstore]: https://pkg.go.dev/github.com/matzehuels/mdcanvas/pkg/docstore
// [cache]: https://pkg.go.dev/github.com/matzehuels/mdcanvas/pkg/cache
// [session]: https://pkg.go.dev/github.com/matzehuels/mdcanvas/pkg/session
// [shell]: https://pkg.go.dev/github.com/matzehuels/mdcanvas/pkg/shell
// [observability]: https://pkg.go.dev/github.com/matzehuels/mdcanvas/pkg/observability
// [errors]: https://pkg.go.dev/github.com/matzehuels/mdcanvas/pkg/errors
package pkg
