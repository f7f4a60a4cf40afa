package diagram

import (
	"errors"
	"testing"

	"github.com/matzehuels/mdcanvas/pkg/metadata"
)

func buildStore(t *testing.T) *Store {
	t.Helper()
	s := NewStore()
	mustInsert(t, s, Node{ID: "a", Ports: []Port{{ID: "p1"}}})
	mustInsert(t, s, Node{ID: "b", Ports: []Port{{ID: "in"}}})
	mustInsert(t, s, Node{ID: "c", Parent: "a"})
	if err := s.InsertEdge(Edge{
		ID:     "e1",
		Source: Endpoint{Node: "a", Port: "p1", Anchor: &Descriptor{Name: "right"}},
		Target: Endpoint{Node: "b", Port: "in"},
	}); err != nil {
		t.Fatalf("InsertEdge: %v", err)
	}
	return s
}

func mustInsert(t *testing.T, s *Store, n Node) {
	t.Helper()
	if err := s.InsertNode(n); err != nil {
		t.Fatalf("InsertNode(%s): %v", n.ID, err)
	}
}

func TestInsertNodeErrors(t *testing.T) {
	s := buildStore(t)
	tests := []struct {
		name string
		node Node
		want error
	}{
		{"EmptyID", Node{}, ErrInvalidNodeID},
		{"Duplicate", Node{ID: "a"}, ErrDuplicateNodeID},
		{"UnknownParent", Node{ID: "z", Parent: "missing"}, ErrUnknownParent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := s.InsertNode(tt.node); !errors.Is(err, tt.want) {
				t.Errorf("InsertNode() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestInsertNodeDefaultsShape(t *testing.T) {
	s := NewStore()
	mustInsert(t, s, Node{ID: "a"})
	n, _ := s.Node("a")
	if n.Shape != ShapePlain {
		t.Errorf("Shape = %q, want %q", n.Shape, ShapePlain)
	}
}

func TestInsertEdgeErrors(t *testing.T) {
	s := buildStore(t)
	tests := []struct {
		name string
		edge Edge
		want error
	}{
		{"EmptyID", Edge{Source: Endpoint{Node: "a"}, Target: Endpoint{Node: "b"}}, ErrInvalidEdgeID},
		{"Duplicate", Edge{ID: "e1", Source: Endpoint{Node: "a"}, Target: Endpoint{Node: "b"}}, ErrDuplicateEdgeID},
		{"UnknownSource", Edge{ID: "x", Source: Endpoint{Node: "nope"}, Target: Endpoint{Node: "b"}}, ErrUnknownSourceNode},
		{"UnknownTarget", Edge{ID: "x", Source: Endpoint{Node: "a"}, Target: Endpoint{Node: "nope"}}, ErrUnknownTargetNode},
		{"UnknownPort", Edge{ID: "x", Source: Endpoint{Node: "a", Port: "p9"}, Target: Endpoint{Node: "b"}}, ErrUnknownPort},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := s.InsertEdge(tt.edge); !errors.Is(err, tt.want) {
				t.Errorf("InsertEdge() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestRemoveNodeGuards(t *testing.T) {
	s := buildStore(t)

	if err := s.RemoveNode("b"); !errors.Is(err, ErrNodeHasEdges) {
		t.Errorf("RemoveNode(b) = %v, want ErrNodeHasEdges", err)
	}
	if err := s.RemoveEdge("e1"); err != nil {
		t.Fatal(err)
	}
	if err := s.RemoveNode("a"); !errors.Is(err, ErrNodeHasChildren) {
		t.Errorf("RemoveNode(a) = %v, want ErrNodeHasChildren", err)
	}
	if err := s.RemoveNode("b"); err != nil {
		t.Errorf("RemoveNode(b) after edge removal: %v", err)
	}
	if err := s.RemoveNode("b"); !errors.Is(err, ErrUnknownNode) {
		t.Errorf("second RemoveNode(b) = %v, want ErrUnknownNode", err)
	}
	if err := s.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestIncidentEdges(t *testing.T) {
	s := buildStore(t)
	if err := s.InsertEdge(Edge{ID: "loop", Source: Endpoint{Node: "b"}, Target: Endpoint{Node: "b"}}); err != nil {
		t.Fatal(err)
	}
	if err := s.InsertEdge(Edge{ID: "e2", Source: Endpoint{Node: "c"}, Target: Endpoint{Node: "a"}}); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		node string
		want []string
	}{
		{"a", []string{"e1", "e2"}},
		{"b", []string{"e1", "loop"}},
		{"c", []string{"e2"}},
		{"missing", nil},
	}
	for _, tt := range tests {
		t.Run(tt.node, func(t *testing.T) {
			got := edgeIDs(s.IncidentEdges(tt.node))
			if len(got) != len(tt.want) {
				t.Fatalf("IncidentEdges(%s) = %v, want %v", tt.node, got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("IncidentEdges(%s) = %v, want %v", tt.node, got, tt.want)
				}
			}
		})
	}
}

func edgeIDs(edges []*Edge) []string {
	var ids []string
	for _, e := range edges {
		ids = append(ids, e.ID)
	}
	return ids
}

func TestSetEndpoint(t *testing.T) {
	s := buildStore(t)
	mustInsert(t, s, Node{ID: "d", Ports: []Port{{ID: "west"}}})

	if err := s.SetEndpoint("e1", SideTarget, Endpoint{Node: "d", Port: "east"}); !errors.Is(err, ErrUnknownPort) {
		t.Errorf("SetEndpoint with bad port = %v, want ErrUnknownPort", err)
	}
	if err := s.SetEndpoint("nope", SideTarget, Endpoint{Node: "d"}); !errors.Is(err, ErrUnknownEdge) {
		t.Errorf("SetEndpoint unknown edge = %v, want ErrUnknownEdge", err)
	}
	if err := s.SetEndpoint("e1", SideTarget, Endpoint{Node: "d", Port: "west"}); err != nil {
		t.Fatalf("SetEndpoint: %v", err)
	}

	if got := len(s.IncidentEdges("b")); got != 0 {
		t.Errorf("b should have no incident edges, got %d", got)
	}
	if got := edgeIDs(s.IncidentEdges("d")); len(got) != 1 || got[0] != "e1" {
		t.Errorf("d incident = %v, want [e1]", got)
	}
	e, _ := s.Edge("e1")
	if e.Source.Anchor == nil || e.Source.Anchor.Name != "right" {
		t.Error("opposite endpoint should be untouched")
	}
}

func TestRenameNode(t *testing.T) {
	s := buildStore(t)
	if err := s.RenameNode("a", "alpha"); err != nil {
		t.Fatalf("RenameNode: %v", err)
	}
	if _, ok := s.Node("a"); ok {
		t.Error("old ID should be gone")
	}
	e, _ := s.Edge("e1")
	if e.Source.Node != "alpha" || e.Source.Port != "p1" {
		t.Errorf("edge source = %+v", e.Source)
	}
	c, _ := s.Node("c")
	if c.Parent != "alpha" {
		t.Errorf("child parent = %q, want alpha", c.Parent)
	}
	if s.Nodes()[0].ID != "alpha" {
		t.Error("rename should keep insertion slot")
	}
	if err := s.RenameNode("alpha", "b"); !errors.Is(err, ErrDuplicateNodeID) {
		t.Errorf("rename onto existing = %v", err)
	}
	if err := s.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestSetParentCycle(t *testing.T) {
	s := buildStore(t)
	if err := s.SetParent("a", "c"); !errors.Is(err, ErrParentCycle) {
		t.Errorf("SetParent(a, c) = %v, want ErrParentCycle", err)
	}
	if err := s.SetParent("a", "a"); !errors.Is(err, ErrParentCycle) {
		t.Errorf("SetParent(a, a) = %v, want ErrParentCycle", err)
	}
	if err := s.SetParent("b", "a"); err != nil {
		t.Fatal(err)
	}
	if got := len(s.Descendants("a")); got != 2 {
		t.Errorf("Descendants(a) = %d, want 2", got)
	}
}

func TestCheckpointRestore(t *testing.T) {
	s := buildStore(t)
	a, _ := s.Node("a")
	e1, _ := s.Edge("e1")

	cp := s.Checkpoint()

	mustInsert(t, s, Node{ID: "tmp"})
	_ = s.SetEndpoint("e1", SideSource, Endpoint{Node: "tmp"})
	_ = s.UpdateData("a", func(b *metadata.DataBag) { b.SetText("mutated") })
	_ = s.SetParent("c", "")
	_ = s.RenameNode("b", "bee")

	s.Restore(cp)

	if s.NodeCount() != 3 || s.EdgeCount() != 1 {
		t.Fatalf("counts = %d/%d, want 3/1", s.NodeCount(), s.EdgeCount())
	}
	if got, _ := s.Node("a"); got != a {
		t.Error("restore should reinstate the original node pointer")
	}
	if a.Data.Text != nil {
		t.Error("node data should be restored")
	}
	if got, _ := s.Edge("e1"); got != e1 || e1.Source.Node != "a" || e1.Source.Port != "p1" {
		t.Errorf("edge not restored: %+v", e1.Source)
	}
	if c, _ := s.Node("c"); c.Parent != "a" {
		t.Error("parent not restored")
	}
	if _, ok := s.Node("b"); !ok {
		t.Error("rename not undone")
	}
	if got := edgeIDs(s.IncidentEdges("a")); len(got) != 1 {
		t.Errorf("index not rebuilt: %v", got)
	}
	if err := s.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestSubscribe(t *testing.T) {
	s := NewStore()
	var kinds []EventKind
	unsub := s.Subscribe(func(ev Event) { kinds = append(kinds, ev.Kind) })

	mustInsert(t, s, Node{ID: "a"})
	_ = s.RenameNode("a", "b")
	unsub()
	mustInsert(t, s, Node{ID: "c"})

	want := []EventKind{EventNodeInserted, EventNodeRenamed}
	if len(kinds) != len(want) {
		t.Fatalf("events = %v, want %v", kinds, want)
	}
	for i := range want {
		if kinds[i] != want[i] {
			t.Errorf("events = %v, want %v", kinds, want)
		}
	}
}

func TestStyleHelpers(t *testing.T) {
	st := Style{StyleFill: "#ff0000"}
	full := st.WithFallbacks()
	if full[StyleFill] != "#ff0000" {
		t.Error("set attribute must win over fallback")
	}
	if full[StyleStroke] != DefaultStyle()[StyleStroke] {
		t.Error("unset attribute should take fallback")
	}
	rich := full.Over(ShapeDefaults(ShapeRichContent))
	if rich[StylePadding] != "8" || rich[StyleFill] != "#ff0000" {
		t.Errorf("Over() = %v", rich)
	}
	if len(st) != 1 {
		t.Error("helpers must not mutate the receiver")
	}
}
