// Package convert rewrites diagram nodes into the rich-content shape without
// breaking the graph around them.
//
// A conversion replaces a node's shape while keeping everything observers
// depend on: the node ID, geometry, z-order, parent, ports, data bag, child
// nodes and every incident edge with its port, anchor, connection point and
// magnet. The data bag gains one field, [metadata.DataBag.ConvertedFrom],
// naming the previous shape kind.
//
// # Failure Model
//
// [Engine.ConvertToRichContentNode] never fails loudly. The graph is
// checkpointed before the first mutation; any error or panic restores the
// checkpoint and the original node is returned unchanged. [Engine.Convert]
// performs the same work but also reports the error.
//
// # Reentrancy
//
// A conversion request for a node that is already being converted (for
// example from a store listener reacting to an intermediate mutation) is
// ignored and returns its input.
//
// # Usage
//
//	eng := convert.New(logger)
//	node = eng.EnsureMarkdownSupport(store, node, "**bold** idea")
package convert
