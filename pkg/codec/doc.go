// Package codec provides the persistence format for diagram graphs.
//
// This package defines the wire format used for document files, the
// document stores, caching and the HTTP API. It sits at the serialization
// boundary between the in-memory [diagram.Store] and external bytes:
//
//   - [NodeSnapshot], [EdgeSnapshot]: Plain serializable records
//   - [Document]: Versioned envelope holding nodes and edges in store order
//
// Use [ToPersisted]/[FromPersisted] and [EdgeToPersisted]/[EdgeFromPersisted]
// to move single records across the boundary.
//
// # Document Format
//
//	{
//	  "version": 1,
//	  "nodes": [
//	    {
//	      "id": "a",
//	      "shape": "rich",
//	      "geometry": {"x": 0, "y": 0, "width": 120, "height": 40},
//	      "data": {"collapsed": true, "text": "**hi**"}
//	    }
//	  ],
//	  "edges": []
//	}
//
// Output is indented with two spaces. Data bag keys are sorted, and unknown
// numbers decode as [encoding/json.Number], so decoding and re-encoding a
// document reproduces it byte for byte.
//
// # Error Recovery
//
// A malformed envelope is fatal. A malformed node, or an edge that no
// longer resolves, is skipped and reported in [LoadResult.Errors] while the
// rest of the document loads. A node whose parent cannot be attached loads
// unparented.
//
// # Fingerprints
//
// [Fingerprint] hashes the canonical JSON form of a graph with BLAKE3. Two
// graphs with equal fingerprints encode to identical documents.
package codec
