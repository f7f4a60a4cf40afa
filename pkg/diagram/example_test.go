package diagram_test

import (
	"fmt"

	"github.com/matzehuels/mdcanvas/pkg/diagram"
)

func ExampleStore_basic() {
	// Two shapes connected through a named port
	s := diagram.NewStore()
	_ = s.InsertNode(diagram.Node{ID: "idea", Ports: []diagram.Port{{ID: "out"}}})
	_ = s.InsertNode(diagram.Node{ID: "detail", Parent: "idea"})
	_ = s.InsertEdge(diagram.Edge{
		ID:     "e1",
		Source: diagram.Endpoint{Node: "idea", Port: "out"},
		Target: diagram.Endpoint{Node: "detail"},
	})

	fmt.Println("Nodes:", s.NodeCount())
	fmt.Println("Edges:", s.EdgeCount())
	fmt.Println("Children of idea:", len(s.Children("idea")))
	fmt.Println("Valid:", s.Validate() == nil)
	// Output:
	// Nodes: 2
	// Edges: 1
	// Children of idea: 1
	// Valid: true
}

func ExampleStore_Checkpoint() {
	s := diagram.NewStore()
	_ = s.InsertNode(diagram.Node{ID: "a"})

	cp := s.Checkpoint()
	_ = s.InsertNode(diagram.Node{ID: "b"})
	_ = s.RenameNode("a", "z")
	s.Restore(cp)

	_, hasA := s.Node("a")
	fmt.Println("Nodes:", s.NodeCount())
	fmt.Println("Has a:", hasA)
	// Output:
	// Nodes: 1
	// Has a: true
}
