// Package diagram provides the in-memory graph behind an open mdcanvas
// document.
//
// # Overview
//
// A diagram is a set of [Node] shapes connected by directed [Edge] values.
// Nodes form a tree through optional parent references, carry named [Port]
// anchor points for edge endpoints, and hold an open [metadata.DataBag].
// The [Store] type keeps all of it in maps keyed by identifier and is
// independent of any renderer.
//
// # Basic Usage
//
//	s := diagram.NewStore()
//	_ = s.InsertNode(diagram.Node{ID: "a", Ports: []diagram.Port{{ID: "p1"}}})
//	_ = s.InsertNode(diagram.Node{ID: "b"})
//	_ = s.InsertEdge(diagram.Edge{
//	    ID:     "e1",
//	    Source: diagram.Endpoint{Node: "a", Port: "p1"},
//	    Target: diagram.Endpoint{Node: "b"},
//	})
//
// # Invariants
//
// The store refuses any mutation that would break its topology:
//
//   - edge endpoints must reference present nodes, and nodes with incident
//     edges cannot be removed
//   - an endpoint's port must be declared by its node
//   - parent references must resolve and may not form a cycle, and nodes
//     with children cannot be removed
//
// # Rollback
//
// [Store.Checkpoint] captures the full state, and [Store.Restore] brings it
// back, reinstating the original *Node and *Edge pointers. Multi-step
// rewrites such as shape conversion use it to stay all-or-nothing.
//
// # Listeners
//
// [Store.Subscribe] registers a callback that runs synchronously after
// every mutation. Callbacks may mutate the store themselves.
//
// # Concurrency
//
// Store is not safe for concurrent use. Owners serialize access.
package diagram
