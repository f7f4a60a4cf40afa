package diagram

import (
	"maps"
	"slices"

	"github.com/google/uuid"

	"github.com/matzehuels/mdcanvas/pkg/metadata"
)

// ShapeKind distinguishes plain shapes from markdown-capable ones.
type ShapeKind string

const (
	// ShapePlain is a regular text shape.
	ShapePlain ShapeKind = "plain"
	// ShapeRichContent is a shape that renders its text as markdown.
	ShapeRichContent ShapeKind = "rich"
)

// Valid reports whether k is a known shape kind.
func (k ShapeKind) Valid() bool { return k == ShapePlain || k == ShapeRichContent }

// Geometry is a node's position and size.
type Geometry struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Style holds visual attributes keyed by name. Unset attributes fall back to
// [DefaultStyle].
type Style map[string]string

// Style attribute names.
const (
	StyleFill        = "fill"
	StyleStroke      = "stroke"
	StyleStrokeWidth = "strokeWidth"
	StyleFontSize    = "fontSize"
	StyleFontFamily  = "fontFamily"
	StyleFontColor   = "fontColor"
	StyleRadius      = "radius"
	StylePadding     = "padding"
	StyleTextAlign   = "textAlign"
	StyleOverflow    = "overflow"
)

// DefaultStyle returns the documented fallback for every attribute a shape
// swap must carry over.
func DefaultStyle() Style {
	return Style{
		StyleFill:        "#ffffff",
		StyleStroke:      "#333333",
		StyleStrokeWidth: "1",
		StyleFontSize:    "14",
		StyleFontFamily:  "Arial, helvetica, sans-serif",
		StyleFontColor:   "#333333",
		StyleRadius:      "6",
	}
}

// ShapeDefaults returns the base style of a shape kind.
func ShapeDefaults(k ShapeKind) Style {
	s := DefaultStyle()
	if k == ShapeRichContent {
		s[StylePadding] = "8"
		s[StyleTextAlign] = "left"
		s[StyleOverflow] = "auto"
	}
	return s
}

// Clone returns a copy of s. A nil style stays nil.
func (s Style) Clone() Style { return maps.Clone(s) }

// WithFallbacks returns a copy of s with every documented default filled in
// where s leaves it unset.
func (s Style) WithFallbacks() Style {
	out := DefaultStyle()
	maps.Copy(out, s)
	return out
}

// Over returns base overlaid with s: attributes in s win.
func (s Style) Over(base Style) Style {
	out := base.Clone()
	if out == nil {
		out = Style{}
	}
	maps.Copy(out, s)
	return out
}

// Port is a named anchor point on a node's boundary.
type Port struct {
	ID    string `json:"id" validate:"required"`
	Group string `json:"group,omitempty"`
}

// Node is a vertex of the diagram.
//
// The zero value is not usable - ID must be set before inserting it.
type Node struct {
	ID       string
	Shape    ShapeKind
	Geometry Geometry
	Style    Style
	Z        int
	Parent   string // Parent node ID, empty for top-level nodes
	Ports    []Port
	Data     metadata.DataBag
}

// HasPort reports whether the node declares port id.
func (n *Node) HasPort(id string) bool {
	return slices.ContainsFunc(n.Ports, func(p Port) bool { return p.ID == id })
}

// Text returns the node's display text, or "" when unset.
func (n *Node) Text() string { return n.Data.TextOr("") }

// Clone returns a deep copy of n.
func (n *Node) Clone() Node {
	c := *n
	c.Style = n.Style.Clone()
	c.Ports = slices.Clone(n.Ports)
	c.Data = n.Data.Clone()
	return c
}

// Descriptor names an anchor, connection point or similar routing helper,
// with optional arguments.
type Descriptor struct {
	Name string         `json:"name"`
	Args map[string]any `json:"args,omitempty"`
}

// Clone returns a copy of d, or nil if d is nil.
func (d *Descriptor) Clone() *Descriptor {
	if d == nil {
		return nil
	}
	c := &Descriptor{Name: d.Name}
	if d.Args != nil {
		c.Args = metadata.CloneValue(d.Args).(map[string]any)
	}
	return c
}

// Endpoint is one end of an edge.
type Endpoint struct {
	Node            string
	Port            string
	Anchor          *Descriptor
	ConnectionPoint *Descriptor
	Magnet          string
}

// Clone returns a deep copy of e.
func (e Endpoint) Clone() Endpoint {
	e.Anchor = e.Anchor.Clone()
	e.ConnectionPoint = e.ConnectionPoint.Clone()
	return e
}

// Side selects an edge end.
type Side int

const (
	// SideSource is the edge's origin.
	SideSource Side = iota
	// SideTarget is the edge's destination.
	SideTarget
)

func (s Side) String() string {
	if s == SideSource {
		return "source"
	}
	return "target"
}

// Edge is a directed connection between two endpoints.
type Edge struct {
	ID     string
	Source Endpoint
	Target Endpoint
	Style  Style
}

// End returns the endpoint on side s.
func (e *Edge) End(s Side) Endpoint {
	if s == SideSource {
		return e.Source
	}
	return e.Target
}

// Touches reports whether either endpoint references node id.
func (e *Edge) Touches(id string) bool { return e.Source.Node == id || e.Target.Node == id }

// Clone returns a deep copy of e.
func (e *Edge) Clone() Edge {
	return Edge{
		ID:     e.ID,
		Source: e.Source.Clone(),
		Target: e.Target.Clone(),
		Style:  e.Style.Clone(),
	}
}

// NewID returns a fresh random identifier for nodes and edges.
func NewID() string { return uuid.NewString() }
