package explorer

import (
	"fmt"
	"path/filepath"
	"slices"
	"time"

	"github.com/matzehuels/mdcanvas/pkg/diagram"
	"github.com/matzehuels/mdcanvas/pkg/errors"
	"github.com/matzehuels/mdcanvas/pkg/metadata"
)

// Outcome classifies what [ApplyScanResult] did with a scan.
type Outcome int

const (
	// OutcomeApplied means the subtree now mirrors the scan.
	OutcomeApplied Outcome = iota
	// OutcomeStale means no node is bound to the scanned path any more.
	// The scan was discarded.
	OutcomeStale
	// OutcomeFailed means the scan itself failed. The store is unchanged.
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeApplied:
		return "applied"
	case OutcomeStale:
		return "stale"
	case OutcomeFailed:
		return "failed"
	default:
		return fmt.Sprintf("Outcome(%d)", int(o))
	}
}

// Layout positions mirrored entries as an indented list below the
// explorer node.
type Layout struct {
	Indent    float64
	RowHeight float64
	Width     float64
	Height    float64
}

// DefaultLayout is used when a zero Layout is given.
var DefaultLayout = Layout{Indent: 24, RowHeight: 36, Width: 220, Height: 28}

func (l Layout) orDefault() Layout {
	if l == (Layout{}) {
		return DefaultLayout
	}
	return l
}

// Report summarizes one merge of a scan into a store.
type Report struct {
	Outcome Outcome
	// RootID is the explorer node the scan was merged under.
	RootID  string
	Added   int
	Removed int
	Kept    int
}

// Timestamp formats t the way LastRefreshed records it.
func Timestamp(t time.Time) string { return t.UTC().Format(time.RFC3339) }

// =============================================================================
// Lookup
// =============================================================================

// FindBound returns the first directory explorer node bound to path.
func FindBound(s *diagram.Store, path string) (*diagram.Node, bool) {
	if path == "" {
		return nil, false
	}
	path = filepath.Clean(path)
	for _, n := range s.Nodes() {
		fe := n.Data.FolderExplorer
		if n.Data.IsFolderExplorer() && fe.IsDirectory && fe.Path == path {
			return n, true
		}
	}
	return nil, false
}

// Roots returns the explorer nodes that are not mirrored entries of another
// explorer, in store order.
func Roots(s *diagram.Store) []*diagram.Node {
	var out []*diagram.Node
	for _, n := range s.Nodes() {
		if !n.Data.IsFolderExplorer() || !n.Data.FolderExplorer.IsDirectory {
			continue
		}
		if p, ok := s.Node(n.Parent); ok && p.Data.IsFolderExplorer() {
			continue
		}
		out = append(out, n)
	}
	return out
}

// LinkedPaths returns the paths of linked explorer roots.
func LinkedPaths(s *diagram.Store) []string {
	var out []string
	for _, n := range Roots(s) {
		if fe := n.Data.FolderExplorer; fe.ExplorerType == metadata.ExplorerLinked {
			out = append(out, fe.Path)
		}
	}
	return out
}

// =============================================================================
// Attach and apply
// =============================================================================

// Attach inserts an explorer node for tree under parentID ("" for top
// level) with its top-left corner at (x, y), then mirrors tree's entries
// below it.
func Attach(s *diagram.Store, tree *FileTree, typ metadata.ExplorerType, parentID string, x, y float64, layout Layout) (*diagram.Node, Report, error) {
	if tree == nil || !tree.IsDirectory {
		return nil, Report{}, errors.New(errors.ErrCodeInvalidInput, "only directories can be attached")
	}
	if !typ.Valid() {
		return nil, Report{}, errors.New(errors.ErrCodeInvalidInput, "unknown explorer type %q", typ)
	}
	layout = layout.orDefault()

	cp := s.Checkpoint()
	fe := metadata.NewFolderExplorer(typ, filepath.Clean(tree.Path), true)
	fe.LastRefreshed = metadata.Ptr(Timestamp(time.Now()))
	root := diagram.Node{
		ID:       diagram.NewID(),
		Shape:    diagram.ShapePlain,
		Geometry: diagram.Geometry{X: x, Y: y, Width: layout.Width, Height: layout.Height},
		Parent:   parentID,
		Data: metadata.DataBag{
			Text:           metadata.Ptr(tree.Name),
			Level:          metadata.Ptr(0),
			FolderExplorer: fe,
		},
	}
	if err := s.InsertNode(root); err != nil {
		return nil, Report{}, errors.Wrap(errors.ErrCodeInvalidInput, err, "attach %s", tree.Path)
	}
	node, _ := s.Node(root.ID)

	rep, err := reconcile(s, node, tree, layout)
	if err != nil {
		s.Restore(cp)
		return nil, Report{}, err
	}
	rep.Outcome = OutcomeApplied
	return node, rep, nil
}

// ApplyScanResult merges res into the explorer bound to res.Path.
//
// Entries are matched by path, so nodes that still exist keep their ID,
// collapse state and extra metadata. Vanished entries are removed with their
// incident edges; non-explorer nodes placed under them move to the explorer
// node. On error the store is left unchanged.
func ApplyScanResult(s *diagram.Store, res ScanResult, layout Layout) (Report, error) {
	root, ok := FindBound(s, res.Path)
	if !ok && res.Tree != nil {
		root, ok = FindBound(s, res.Tree.Path)
	}
	if !ok {
		return Report{Outcome: OutcomeStale}, nil
	}
	if !res.Success {
		return Report{Outcome: OutcomeFailed, RootID: root.ID},
			errors.New(errors.ErrCodeScanFailed, "scan %s: %s", res.Path, res.Error)
	}
	if res.Tree == nil || !res.Tree.IsDirectory {
		return Report{Outcome: OutcomeFailed, RootID: root.ID},
			errors.New(errors.ErrCodeScanFailed, "scan %s: not a directory", res.Path)
	}

	cp := s.Checkpoint()
	rep, err := reconcile(s, root, res.Tree, layout.orDefault())
	if err != nil {
		s.Restore(cp)
		return Report{Outcome: OutcomeFailed, RootID: root.ID}, err
	}
	if err := s.UpdateData(root.ID, func(b *metadata.DataBag) {
		b.FolderExplorer.LastRefreshed = metadata.Ptr(Timestamp(time.Now()))
	}); err != nil {
		s.Restore(cp)
		return Report{Outcome: OutcomeFailed, RootID: root.ID}, errors.Wrap(errors.ErrCodeInternal, err, "stamp %s", root.ID)
	}
	rep.Outcome = OutcomeApplied
	return rep, nil
}

// reconcile makes the explorer entries below root match tree.
func reconcile(s *diagram.Store, root *diagram.Node, tree *FileTree, layout Layout) (Report, error) {
	rep := Report{RootID: root.ID}
	typ := root.Data.FolderExplorer.ExplorerType

	existing := make(map[string]*diagram.Node)
	for _, n := range s.Descendants(root.ID) {
		if n.Data.IsFolderExplorer() {
			existing[n.Data.FolderExplorer.Path] = n
		}
	}
	seen := make(map[string]bool, len(existing))
	live := make(map[string]bool)

	ids := map[*FileTree]string{tree: root.ID}
	depth := map[*FileTree]int{tree: 0}
	row := 0
	var walkErr error
	tree.Walk(func(e, parent *FileTree) {
		if parent == nil || walkErr != nil {
			return
		}
		row++
		depth[e] = depth[parent] + 1
		parentID := ids[parent]
		path := filepath.Clean(e.Path)
		geom := diagram.Geometry{
			X:      root.Geometry.X + float64(depth[e])*layout.Indent,
			Y:      root.Geometry.Y + float64(row)*layout.RowHeight,
			Width:  layout.Width,
			Height: layout.Height,
		}

		if n, ok := existing[path]; ok && n.Data.FolderExplorer.IsDirectory == e.IsDirectory && !seen[path] {
			seen[path] = true
			live[n.ID] = true
			ids[e] = n.ID
			rep.Kept++
			walkErr = keep(s, n, e, parentID, depth[e], typ, geom)
			return
		}

		n := diagram.Node{
			ID:       diagram.NewID(),
			Shape:    diagram.ShapePlain,
			Geometry: geom,
			Parent:   parentID,
			Data: metadata.DataBag{
				Text:           metadata.Ptr(e.Name),
				Level:          metadata.Ptr(depth[e]),
				FolderExplorer: metadata.NewFolderExplorer(typ, path, e.IsDirectory),
			},
		}
		if err := s.InsertNode(n); err != nil {
			walkErr = errors.Wrap(errors.ErrCodeInternal, err, "mirror %s", path)
			return
		}
		live[n.ID] = true
		ids[e] = n.ID
		rep.Added++
	})
	if walkErr != nil {
		return rep, walkErr
	}

	// Children come after their parents in depth-first order, so walking
	// backwards removes leaves first.
	desc := s.Descendants(root.ID)
	slices.Reverse(desc)
	for _, n := range desc {
		if !n.Data.IsFolderExplorer() || live[n.ID] {
			continue
		}
		if err := drop(s, root.ID, n.ID); err != nil {
			return rep, err
		}
		rep.Removed++
	}
	return rep, nil
}

func keep(s *diagram.Store, n *diagram.Node, e *FileTree, parentID string, level int, typ metadata.ExplorerType, geom diagram.Geometry) error {
	if n.Parent != parentID {
		if err := s.SetParent(n.ID, parentID); err != nil {
			return errors.Wrap(errors.ErrCodeInternal, err, "move %s", e.Path)
		}
	}
	if err := s.SetGeometry(n.ID, geom); err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "place %s", e.Path)
	}
	if n.Text() == e.Name && n.Data.Level != nil && *n.Data.Level == level && n.Data.FolderExplorer.ExplorerType == typ {
		return nil
	}
	return s.UpdateData(n.ID, func(b *metadata.DataBag) {
		b.SetText(e.Name)
		b.Level = metadata.Ptr(level)
		b.FolderExplorer.ExplorerType = typ
		b.FolderExplorer.IsReadOnly = typ == metadata.ExplorerLinked
	})
}

// drop removes one mirrored node after detaching everything that still
// references it.
func drop(s *diagram.Store, rootID, id string) error {
	for _, c := range s.Children(id) {
		if err := s.SetParent(c.ID, rootID); err != nil {
			return errors.Wrap(errors.ErrCodeInternal, err, "rehome %s", c.ID)
		}
	}
	for _, e := range s.IncidentEdges(id) {
		if err := s.RemoveEdge(e.ID); err != nil {
			return errors.Wrap(errors.ErrCodeInternal, err, "remove edge %s", e.ID)
		}
	}
	if err := s.RemoveNode(id); err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "remove %s", id)
	}
	return nil
}
