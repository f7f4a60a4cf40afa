package diagram

import (
	"errors"
	"fmt"
	"slices"

	"github.com/matzehuels/mdcanvas/pkg/metadata"
)

var (
	// ErrInvalidNodeID is returned by [Store.InsertNode] and [Store.RenameNode]
	// when the node ID is empty.
	ErrInvalidNodeID = errors.New("node ID must not be empty")

	// ErrDuplicateNodeID is returned when a node with the same ID already exists.
	ErrDuplicateNodeID = errors.New("duplicate node ID")

	// ErrUnknownNode is returned when an operation references a node that is
	// not in the store.
	ErrUnknownNode = errors.New("unknown node")

	// ErrUnknownParent is returned when a parent reference does not resolve.
	ErrUnknownParent = errors.New("unknown parent node")

	// ErrParentCycle is returned by [Store.SetParent] when the new parent is
	// the node itself or one of its descendants.
	ErrParentCycle = errors.New("parent reference would create a cycle")

	// ErrNodeHasEdges is returned by [Store.RemoveNode] while edges still
	// reference the node. Every edge endpoint must resolve to a present node.
	ErrNodeHasEdges = errors.New("node still has incident edges")

	// ErrNodeHasChildren is returned by [Store.RemoveNode] while other nodes
	// still name it as their parent.
	ErrNodeHasChildren = errors.New("node still has children")

	// ErrInvalidEdgeID is returned by [Store.InsertEdge] when the edge ID is empty.
	ErrInvalidEdgeID = errors.New("edge ID must not be empty")

	// ErrDuplicateEdgeID is returned when an edge with the same ID already exists.
	ErrDuplicateEdgeID = errors.New("duplicate edge ID")

	// ErrUnknownEdge is returned when an operation references a missing edge.
	ErrUnknownEdge = errors.New("unknown edge")

	// ErrUnknownSourceNode is returned by [Store.InsertEdge] when the source
	// node does not exist.
	ErrUnknownSourceNode = errors.New("unknown source node")

	// ErrUnknownTargetNode is returned by [Store.InsertEdge] when the target
	// node does not exist.
	ErrUnknownTargetNode = errors.New("unknown target node")

	// ErrUnknownPort is returned when an endpoint names a port its node does
	// not declare.
	ErrUnknownPort = errors.New("unknown port")
)

// Graph is the set of store operations structural rewrites depend on.
// [*Store] implements it; tests wrap it to inject failures.
type Graph interface {
	Node(id string) (*Node, bool)
	InsertNode(n Node) error
	RemoveNode(id string) error
	RenameNode(oldID, newID string) error
	SetParent(id, parentID string) error
	Children(id string) []*Node
	Edge(id string) (*Edge, bool)
	IncidentEdges(nodeID string) []*Edge
	SetEndpoint(edgeID string, side Side, ep Endpoint) error
	Checkpoint() *Checkpoint
	Restore(cp *Checkpoint)
}

// EventKind identifies a store mutation.
type EventKind int

const (
	EventNodeInserted EventKind = iota
	EventNodeRemoved
	EventNodeRenamed
	EventNodeUpdated
	EventParentChanged
	EventEdgeInserted
	EventEdgeRemoved
	EventEndpointChanged
	EventRestored
	EventCleared
)

// Event describes a completed mutation. OldID is set for renames.
type Event struct {
	Kind   EventKind
	NodeID string
	EdgeID string
	OldID  string
}

// Listener receives store events synchronously.
type Listener func(Event)

// Store is a map-backed diagram graph.
//
// The zero value is not usable - use [NewStore].
type Store struct {
	nodes     map[string]*Node
	edges     map[string]*Edge
	nodeOrder []string
	edgeOrder []string
	links     map[string][]string // nodeID -> incident edge IDs

	listeners map[int]Listener
	nextSub   int
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		nodes:     make(map[string]*Node),
		edges:     make(map[string]*Edge),
		links:     make(map[string][]string),
		listeners: make(map[int]Listener),
	}
}

var _ Graph = (*Store)(nil)

// Subscribe registers l and returns a function that removes it.
func (s *Store) Subscribe(l Listener) (unsubscribe func()) {
	id := s.nextSub
	s.nextSub++
	s.listeners[id] = l
	return func() { delete(s.listeners, id) }
}

func (s *Store) emit(ev Event) {
	ids := make([]int, 0, len(s.listeners))
	for id := range s.listeners {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	for _, id := range ids {
		if l, ok := s.listeners[id]; ok {
			l(ev)
		}
	}
}

// NodeCount returns the number of nodes.
func (s *Store) NodeCount() int { return len(s.nodes) }

// EdgeCount returns the number of edges.
func (s *Store) EdgeCount() int { return len(s.edges) }

// Node returns the node with the given ID. The pointer refers to the stored
// node; change its ID only through [Store.RenameNode] and its parent only
// through [Store.SetParent].
func (s *Store) Node(id string) (*Node, bool) {
	n, ok := s.nodes[id]
	return n, ok
}

// Nodes returns all nodes in insertion order.
func (s *Store) Nodes() []*Node {
	out := make([]*Node, 0, len(s.nodeOrder))
	for _, id := range s.nodeOrder {
		out = append(out, s.nodes[id])
	}
	return out
}

// Edge returns the edge with the given ID. Change endpoints only through
// [Store.SetEndpoint].
func (s *Store) Edge(id string) (*Edge, bool) {
	e, ok := s.edges[id]
	return e, ok
}

// Edges returns all edges in insertion order.
func (s *Store) Edges() []*Edge {
	out := make([]*Edge, 0, len(s.edgeOrder))
	for _, id := range s.edgeOrder {
		out = append(out, s.edges[id])
	}
	return out
}

// InsertNode adds a copy of n. An empty shape kind defaults to [ShapePlain].
// The parent, if set, must already exist.
func (s *Store) InsertNode(n Node) error {
	if n.ID == "" {
		return ErrInvalidNodeID
	}
	if _, exists := s.nodes[n.ID]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateNodeID, n.ID)
	}
	if n.Parent != "" {
		if _, ok := s.nodes[n.Parent]; !ok {
			return fmt.Errorf("%w: %s", ErrUnknownParent, n.Parent)
		}
	}
	if n.Shape == "" {
		n.Shape = ShapePlain
	}
	node := &n
	s.nodes[n.ID] = node
	s.nodeOrder = append(s.nodeOrder, n.ID)
	s.emit(Event{Kind: EventNodeInserted, NodeID: n.ID})
	return nil
}

// RemoveNode deletes a node that has no incident edges and no children.
func (s *Store) RemoveNode(id string) error {
	if _, ok := s.nodes[id]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownNode, id)
	}
	if len(s.links[id]) > 0 {
		return fmt.Errorf("%w: %s", ErrNodeHasEdges, id)
	}
	if len(s.Children(id)) > 0 {
		return fmt.Errorf("%w: %s", ErrNodeHasChildren, id)
	}
	delete(s.nodes, id)
	delete(s.links, id)
	s.nodeOrder = slices.DeleteFunc(s.nodeOrder, func(v string) bool { return v == id })
	s.emit(Event{Kind: EventNodeRemoved, NodeID: id})
	return nil
}

// RenameNode changes a node's ID, updating edge endpoints, children and
// indices. The node keeps its position in the insertion order.
//
// This is an O(N+E) operation.
func (s *Store) RenameNode(oldID, newID string) error {
	if newID == "" {
		return ErrInvalidNodeID
	}
	node, ok := s.nodes[oldID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownNode, oldID)
	}
	if _, exists := s.nodes[newID]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateNodeID, newID)
	}

	node.ID = newID
	delete(s.nodes, oldID)
	s.nodes[newID] = node
	if i := slices.Index(s.nodeOrder, oldID); i >= 0 {
		s.nodeOrder[i] = newID
	}

	for _, eid := range s.links[oldID] {
		e := s.edges[eid]
		if e.Source.Node == oldID {
			e.Source.Node = newID
		}
		if e.Target.Node == oldID {
			e.Target.Node = newID
		}
	}
	s.links[newID] = s.links[oldID]
	delete(s.links, oldID)

	for _, n := range s.nodes {
		if n.Parent == oldID {
			n.Parent = newID
		}
	}

	s.emit(Event{Kind: EventNodeRenamed, NodeID: newID, OldID: oldID})
	return nil
}

// SetParent attaches node id under parentID, or detaches it when parentID
// is empty.
func (s *Store) SetParent(id, parentID string) error {
	node, ok := s.nodes[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownNode, id)
	}
	if parentID != "" {
		if _, ok := s.nodes[parentID]; !ok {
			return fmt.Errorf("%w: %s", ErrUnknownParent, parentID)
		}
		for cur := parentID; cur != ""; cur = s.nodes[cur].Parent {
			if cur == id {
				return fmt.Errorf("%w: %s under %s", ErrParentCycle, id, parentID)
			}
		}
	}
	node.Parent = parentID
	s.emit(Event{Kind: EventParentChanged, NodeID: id})
	return nil
}

// Children returns the nodes whose parent is id, in insertion order.
func (s *Store) Children(id string) []*Node {
	var out []*Node
	for _, nid := range s.nodeOrder {
		if n := s.nodes[nid]; n.Parent == id && id != "" {
			out = append(out, n)
		}
	}
	return out
}

// Descendants returns every node below id in depth-first order.
func (s *Store) Descendants(id string) []*Node {
	var out []*Node
	var walk func(string)
	walk = func(pid string) {
		for _, c := range s.Children(pid) {
			out = append(out, c)
			walk(c.ID)
		}
	}
	walk(id)
	return out
}

// UpdateData applies fn to the data bag of node id.
func (s *Store) UpdateData(id string, fn func(*metadata.DataBag)) error {
	node, ok := s.nodes[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownNode, id)
	}
	fn(&node.Data)
	s.emit(Event{Kind: EventNodeUpdated, NodeID: id})
	return nil
}

// SetGeometry moves and resizes node id.
func (s *Store) SetGeometry(id string, g Geometry) error {
	node, ok := s.nodes[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownNode, id)
	}
	if node.Geometry == g {
		return nil
	}
	node.Geometry = g
	s.emit(Event{Kind: EventNodeUpdated, NodeID: id})
	return nil
}

// InsertEdge adds a copy of e. Both endpoint nodes must exist and declare
// the referenced ports.
func (s *Store) InsertEdge(e Edge) error {
	if e.ID == "" {
		return ErrInvalidEdgeID
	}
	if _, exists := s.edges[e.ID]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateEdgeID, e.ID)
	}
	if err := s.checkEndpoint(e.Source); err != nil {
		if errors.Is(err, ErrUnknownNode) {
			return fmt.Errorf("%w: %s", ErrUnknownSourceNode, e.Source.Node)
		}
		return err
	}
	if err := s.checkEndpoint(e.Target); err != nil {
		if errors.Is(err, ErrUnknownNode) {
			return fmt.Errorf("%w: %s", ErrUnknownTargetNode, e.Target.Node)
		}
		return err
	}
	edge := &e
	s.edges[e.ID] = edge
	s.edgeOrder = append(s.edgeOrder, e.ID)
	s.link(edge)
	s.emit(Event{Kind: EventEdgeInserted, EdgeID: e.ID})
	return nil
}

// RemoveEdge deletes edge id.
func (s *Store) RemoveEdge(id string) error {
	e, ok := s.edges[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownEdge, id)
	}
	s.unlink(e)
	delete(s.edges, id)
	s.edgeOrder = slices.DeleteFunc(s.edgeOrder, func(v string) bool { return v == id })
	s.emit(Event{Kind: EventEdgeRemoved, EdgeID: id})
	return nil
}

// IncidentEdges returns the incoming and outgoing edges of a node in
// insertion order. A self-loop appears once.
func (s *Store) IncidentEdges(nodeID string) []*Edge {
	ids := s.links[nodeID]
	out := make([]*Edge, 0, len(ids))
	for _, eid := range s.edgeOrder {
		if slices.Contains(ids, eid) {
			out = append(out, s.edges[eid])
		}
	}
	return out
}

// SetEndpoint replaces one end of an edge.
func (s *Store) SetEndpoint(edgeID string, side Side, ep Endpoint) error {
	e, ok := s.edges[edgeID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownEdge, edgeID)
	}
	if err := s.checkEndpoint(ep); err != nil {
		return err
	}
	s.unlink(e)
	if side == SideSource {
		e.Source = ep
	} else {
		e.Target = ep
	}
	s.link(e)
	s.emit(Event{Kind: EventEndpointChanged, EdgeID: edgeID})
	return nil
}

func (s *Store) checkEndpoint(ep Endpoint) error {
	n, ok := s.nodes[ep.Node]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownNode, ep.Node)
	}
	if ep.Port != "" && !n.HasPort(ep.Port) {
		return fmt.Errorf("%w: %s on node %s", ErrUnknownPort, ep.Port, ep.Node)
	}
	return nil
}

func (s *Store) link(e *Edge) {
	s.links[e.Source.Node] = append(s.links[e.Source.Node], e.ID)
	if e.Target.Node != e.Source.Node {
		s.links[e.Target.Node] = append(s.links[e.Target.Node], e.ID)
	}
}

func (s *Store) unlink(e *Edge) {
	for _, nid := range []string{e.Source.Node, e.Target.Node} {
		s.links[nid] = slices.DeleteFunc(s.links[nid], func(v string) bool { return v == e.ID })
		if len(s.links[nid]) == 0 {
			delete(s.links, nid)
		}
	}
}

// Clear removes every node and edge. Listeners stay registered.
func (s *Store) Clear() {
	s.nodes = make(map[string]*Node)
	s.edges = make(map[string]*Edge)
	s.links = make(map[string][]string)
	s.nodeOrder = nil
	s.edgeOrder = nil
	s.emit(Event{Kind: EventCleared})
}

// Validate checks every store invariant and returns the first violation.
// A store only mutated through its methods is always valid; Validate guards
// against callers that edit nodes or edges through their pointers.
func (s *Store) Validate() error {
	for _, id := range s.edgeOrder {
		e := s.edges[id]
		if err := s.checkEndpoint(e.Source); err != nil {
			return fmt.Errorf("edge %s source: %w", id, err)
		}
		if err := s.checkEndpoint(e.Target); err != nil {
			return fmt.Errorf("edge %s target: %w", id, err)
		}
	}
	for _, id := range s.nodeOrder {
		seen := map[string]bool{id: true}
		for cur := s.nodes[id].Parent; cur != ""; {
			p, ok := s.nodes[cur]
			if !ok {
				return fmt.Errorf("node %s: %w: %s", id, ErrUnknownParent, cur)
			}
			if seen[cur] {
				return fmt.Errorf("node %s: %w", id, ErrParentCycle)
			}
			seen[cur] = true
			cur = p.Parent
		}
	}
	return nil
}

type savedNode struct {
	ptr *Node
	val Node
}

type savedEdge struct {
	ptr *Edge
	val Edge
}

// Checkpoint is an opaque snapshot of a store's full state.
type Checkpoint struct {
	nodes     []savedNode
	edges     []savedEdge
	nodeOrder []string
	edgeOrder []string
}

// Checkpoint captures the current state for a later [Store.Restore].
// It deep-copies every node and edge, so it costs O(N+E).
func (s *Store) Checkpoint() *Checkpoint {
	cp := &Checkpoint{
		nodeOrder: slices.Clone(s.nodeOrder),
		edgeOrder: slices.Clone(s.edgeOrder),
	}
	for _, id := range s.nodeOrder {
		n := s.nodes[id]
		cp.nodes = append(cp.nodes, savedNode{ptr: n, val: n.Clone()})
	}
	for _, id := range s.edgeOrder {
		e := s.edges[id]
		cp.edges = append(cp.edges, savedEdge{ptr: e, val: e.Clone()})
	}
	return cp
}

// Restore returns the store to the state captured by cp. Pointers handed
// out before the checkpoint are valid again and hold their captured values.
func (s *Store) Restore(cp *Checkpoint) {
	s.nodes = make(map[string]*Node, len(cp.nodes))
	for _, sn := range cp.nodes {
		*sn.ptr = sn.val.Clone()
		s.nodes[sn.val.ID] = sn.ptr
	}
	s.edges = make(map[string]*Edge, len(cp.edges))
	s.links = make(map[string][]string)
	s.nodeOrder = slices.Clone(cp.nodeOrder)
	s.edgeOrder = slices.Clone(cp.edgeOrder)
	for _, se := range cp.edges {
		*se.ptr = se.val.Clone()
		s.edges[se.val.ID] = se.ptr
	}
	for _, id := range s.edgeOrder {
		s.link(s.edges[id])
	}
	s.emit(Event{Kind: EventRestored})
}
