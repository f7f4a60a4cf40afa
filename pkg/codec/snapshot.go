package codec

import (
	stderrors "errors"
	"fmt"
	"reflect"
	"slices"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/matzehuels/mdcanvas/pkg/diagram"
	"github.com/matzehuels/mdcanvas/pkg/errors"
	"github.com/matzehuels/mdcanvas/pkg/metadata"
)

// NodeSnapshot is the serializable record of a node.
type NodeSnapshot struct {
	ID       string            `json:"id" validate:"required"`
	Shape    diagram.ShapeKind `json:"shape" validate:"required,oneof=plain rich"`
	Geometry *diagram.Geometry `json:"geometry" validate:"required"`
	Style    diagram.Style     `json:"style,omitempty"`
	Z        int               `json:"z,omitempty"`
	Parent   string            `json:"parent,omitempty"`
	Ports    []diagram.Port    `json:"ports,omitempty" validate:"dive"`
	Data     *metadata.DataBag `json:"data,omitempty"`
}

// EndpointSnapshot is the serializable record of one edge end.
type EndpointSnapshot struct {
	Node            string              `json:"node" validate:"required"`
	Port            string              `json:"port,omitempty"`
	Anchor          *diagram.Descriptor `json:"anchor,omitempty"`
	ConnectionPoint *diagram.Descriptor `json:"connectionPoint,omitempty"`
	Magnet          string              `json:"magnet,omitempty"`
}

// EdgeSnapshot is the serializable record of an edge.
type EdgeSnapshot struct {
	ID     string           `json:"id" validate:"required"`
	Source EndpointSnapshot `json:"source"`
	Target EndpointSnapshot `json:"target"`
	Style  diagram.Style    `json:"style,omitempty"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// validateStruct runs tag validation and returns readable messages.
func validateStruct(s any) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !stderrors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, formatFieldError(fe))
	}
	return stderrors.New(strings.Join(msgs, "; "))
}

func formatFieldError(e validator.FieldError) string {
	field := e.Namespace()
	if _, rest, ok := strings.Cut(field, "."); ok {
		field = rest
	}
	switch e.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, e.Param())
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}

// ToPersisted returns a deep copy of n as a snapshot. An empty data bag is
// omitted.
func ToPersisted(n *diagram.Node) NodeSnapshot {
	geo := n.Geometry
	s := NodeSnapshot{
		ID:       n.ID,
		Shape:    n.Shape,
		Geometry: &geo,
		Style:    n.Style.Clone(),
		Z:        n.Z,
		Parent:   n.Parent,
		Ports:    slices.Clone(n.Ports),
	}
	if !n.Data.IsEmpty() {
		bag := n.Data.Clone()
		s.Data = &bag
	}
	return s
}

// FromPersisted reconstructs a node from s. Absent bag fields stay absent.
// A snapshot without id, a known shape or geometry fails with
// [errors.ErrCodeInvalidSnapshot].
func FromPersisted(s NodeSnapshot) (diagram.Node, error) {
	if err := validateStruct(s); err != nil {
		return diagram.Node{}, errors.Wrap(errors.ErrCodeInvalidSnapshot, err, "node %q", s.ID)
	}
	n := diagram.Node{
		ID:       s.ID,
		Shape:    s.Shape,
		Geometry: *s.Geometry,
		Style:    s.Style.Clone(),
		Z:        s.Z,
		Parent:   s.Parent,
		Ports:    slices.Clone(s.Ports),
	}
	if s.Data != nil {
		n.Data = s.Data.Clone()
	}
	return n, nil
}

func endpointToPersisted(ep diagram.Endpoint) EndpointSnapshot {
	ep = ep.Clone()
	return EndpointSnapshot{
		Node:            ep.Node,
		Port:            ep.Port,
		Anchor:          ep.Anchor,
		ConnectionPoint: ep.ConnectionPoint,
		Magnet:          ep.Magnet,
	}
}

func endpointFromPersisted(s EndpointSnapshot) diagram.Endpoint {
	return diagram.Endpoint{
		Node:            s.Node,
		Port:            s.Port,
		Anchor:          s.Anchor,
		ConnectionPoint: s.ConnectionPoint,
		Magnet:          s.Magnet,
	}.Clone()
}

// EdgeToPersisted returns a deep copy of e as a snapshot.
func EdgeToPersisted(e *diagram.Edge) EdgeSnapshot {
	return EdgeSnapshot{
		ID:     e.ID,
		Source: endpointToPersisted(e.Source),
		Target: endpointToPersisted(e.Target),
		Style:  e.Style.Clone(),
	}
}

// EdgeFromPersisted reconstructs an edge from s. Whether the endpoints
// resolve is checked when the edge is inserted into a store.
func EdgeFromPersisted(s EdgeSnapshot) (diagram.Edge, error) {
	if err := validateStruct(s); err != nil {
		return diagram.Edge{}, errors.Wrap(errors.ErrCodeInvalidSnapshot, err, "edge %q", s.ID)
	}
	return diagram.Edge{
		ID:     s.ID,
		Source: endpointFromPersisted(s.Source),
		Target: endpointFromPersisted(s.Target),
		Style:  s.Style.Clone(),
	}, nil
}
