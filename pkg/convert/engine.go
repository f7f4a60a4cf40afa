package convert

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/mdcanvas/pkg/classify"
	"github.com/matzehuels/mdcanvas/pkg/diagram"
	"github.com/matzehuels/mdcanvas/pkg/errors"
	"github.com/matzehuels/mdcanvas/pkg/observability"
)

// tempPrefix marks the short-lived ID a replacement node carries before it
// takes over the original ID.
const tempPrefix = "converting-"

// Engine performs shape conversions. It is safe for concurrent use, although
// a single graph must not be mutated from several goroutines at once.
type Engine struct {
	Logger *log.Logger

	mu       sync.Mutex
	inflight map[string]struct{}
}

// New creates an engine. A nil logger falls back to the default logger.
func New(logger *log.Logger) *Engine {
	if logger == nil {
		logger = log.Default()
	}
	return &Engine{
		Logger:   logger,
		inflight: make(map[string]struct{}),
	}
}

// EnsureMarkdownSupport converts n when text needs rich rendering and n is
// not rich yet. Otherwise it returns n unchanged. It is the entry point for
// text edits; the text itself is not written to the node.
func (e *Engine) EnsureMarkdownSupport(g diagram.Graph, n *diagram.Node, text string) *diagram.Node {
	return e.EnsureMarkdownSupportContext(context.Background(), g, n, text)
}

// EnsureMarkdownSupportContext is [Engine.EnsureMarkdownSupport] with a
// context passed to observability hooks.
func (e *Engine) EnsureMarkdownSupportContext(ctx context.Context, g diagram.Graph, n *diagram.Node, text string) *diagram.Node {
	if n == nil || classify.IsRichContentNode(n) || !classify.NeedsRichRendering(text) {
		return n
	}
	out, _ := e.Convert(ctx, g, n)
	return out
}

// ConvertToRichContentNode replaces n with a rich-content node that keeps
// n's ID and topology, and returns the node now stored under that ID.
// On failure the graph is left exactly as it was and n is returned.
func (e *Engine) ConvertToRichContentNode(g diagram.Graph, n *diagram.Node) *diagram.Node {
	out, _ := e.Convert(context.Background(), g, n)
	return out
}

// Convert is [Engine.ConvertToRichContentNode] reporting why a conversion
// did not happen. Idempotent and reentrant requests are not errors.
func (e *Engine) Convert(ctx context.Context, g diagram.Graph, n *diagram.Node) (*diagram.Node, error) {
	if n == nil {
		return nil, errors.New(errors.ErrCodeInvalidInput, "no node to convert")
	}
	if classify.IsRichContentNode(n) {
		return n, nil
	}
	id := n.ID
	if !e.begin(id) {
		e.Logger.Debug("conversion already in progress", "node", id)
		return n, nil
	}
	defer e.end(id)
	if stored, ok := g.Node(id); !ok || stored != n {
		e.Logger.Warn("conversion skipped, node not in graph", "node", id)
		return n, errors.New(errors.ErrCodeNodeNotFound, "node %q is not in the graph", id)
	}

	hooks := observability.Conversion()
	hooks.OnConversionStart(ctx, id)
	start := time.Now()

	out, rewired, err := e.swap(g, n)
	hooks.OnConversionComplete(ctx, id, rewired, time.Since(start), err)
	if err != nil {
		e.Logger.Warn("conversion rolled back", "node", id, "err", err)
		return n, errors.Wrap(errors.ErrCodeConversionFailed, err, "convert node %q", id)
	}
	e.Logger.Debug("converted node", "node", id, "edges", rewired, "duration", time.Since(start))
	return out, nil
}

func (e *Engine) begin(id string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, busy := e.inflight[id]; busy {
		return false
	}
	e.inflight[id] = struct{}{}
	return true
}

func (e *Engine) end(id string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.inflight, id)
}

// edgeRef is one endpoint of an incident edge that points at the node
// being converted.
type edgeRef struct {
	edgeID string
	side   diagram.Side
	ep     diagram.Endpoint
}

// swap performs the checkpointed rewrite. It returns the number of rewired
// endpoints.
func (e *Engine) swap(g diagram.Graph, n *diagram.Node) (out *diagram.Node, rewired int, err error) {
	id := n.ID
	cp := g.Checkpoint()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic during conversion: %v", r)
		}
		if err != nil {
			g.Restore(cp)
			out, rewired = n, 0
		}
	}()

	snap := n.Clone()

	var refs []edgeRef
	for _, edge := range g.IncidentEdges(id) {
		for _, side := range []diagram.Side{diagram.SideSource, diagram.SideTarget} {
			if ep := edge.End(side); ep.Node == id {
				refs = append(refs, edgeRef{edgeID: edge.ID, side: side, ep: ep.Clone()})
			}
		}
	}
	var children []string
	for _, c := range g.Children(id) {
		children = append(children, c.ID)
	}

	repl := diagram.Node{
		ID:       tempPrefix + diagram.NewID(),
		Shape:    diagram.ShapeRichContent,
		Geometry: snap.Geometry,
		Style:    snap.Style.WithFallbacks().Over(diagram.ShapeDefaults(diagram.ShapeRichContent)),
		Z:        snap.Z,
		Parent:   snap.Parent,
		Ports:    snap.Ports,
		Data:     snap.Data,
	}
	repl.Data.ConvertedFrom = string(snap.Shape)
	tmp := repl.ID

	if err := g.InsertNode(repl); err != nil {
		return nil, 0, fmt.Errorf("insert replacement: %w", err)
	}
	for _, cid := range children {
		if err := g.SetParent(cid, tmp); err != nil {
			return nil, 0, fmt.Errorf("reparent %s: %w", cid, err)
		}
	}
	for _, ref := range refs {
		ep := ref.ep
		ep.Node = tmp
		if err := g.SetEndpoint(ref.edgeID, ref.side, ep); err != nil {
			return nil, 0, fmt.Errorf("rewire edge %s %s: %w", ref.edgeID, ref.side, err)
		}
	}
	if err := g.RemoveNode(id); err != nil {
		return nil, 0, fmt.Errorf("remove original: %w", err)
	}
	if err := g.RenameNode(tmp, id); err != nil {
		return nil, 0, fmt.Errorf("restore identifier: %w", err)
	}

	out, ok := g.Node(id)
	if !ok {
		return nil, 0, fmt.Errorf("replacement %s missing after rename", id)
	}
	return out, len(refs), nil
}
