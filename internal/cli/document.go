package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/matzehuels/mdcanvas/pkg/classify"
	"github.com/matzehuels/mdcanvas/pkg/diagram"
	"github.com/matzehuels/mdcanvas/pkg/errors"
	"github.com/matzehuels/mdcanvas/pkg/shell"
)

// =============================================================================
// Node Rows
// =============================================================================

// nodeRow is one line of a document outline.
type nodeRow struct {
	ID        string
	Shape     diagram.ShapeKind
	Text      string
	Depth     int
	Collapsed bool
	Explorer  string // "", "linked" or "static"
	HasKids   bool
	Edges     int
}

// outline lists nodes parent-first in store order. Children of collapsed
// nodes are skipped unless all is set.
func outline(s *diagram.Store, all bool) []nodeRow {
	var rows []nodeRow
	var visit func(n *diagram.Node, depth int)
	visit = func(n *diagram.Node, depth int) {
		kids := s.Children(n.ID)
		row := nodeRow{
			ID:        n.ID,
			Shape:     n.Shape,
			Text:      firstLine(n.Text()),
			Depth:     depth,
			Collapsed: n.Data.IsCollapsed(),
			HasKids:   len(kids) > 0,
			Edges:     len(s.IncidentEdges(n.ID)),
		}
		if n.Data.IsFolderExplorer() {
			row.Explorer = string(n.Data.FolderExplorer.ExplorerType)
		}
		rows = append(rows, row)
		if row.Collapsed && !all {
			return
		}
		for _, c := range kids {
			visit(c, depth+1)
		}
	}
	for _, n := range s.Nodes() {
		if _, ok := s.Node(n.Parent); !ok {
			visit(n, 0)
		}
	}
	return rows
}

func firstLine(s string) string {
	line, _, cut := strings.Cut(s, "\n")
	if cut {
		line += " …"
	}
	const maxLen = 48
	if r := []rune(line); len(r) > maxLen {
		line = string(r[:maxLen-1]) + "…"
	}
	return line
}

// =============================================================================
// Commands
// =============================================================================

// newCommand creates the "new" command.
func (c *CLI) newCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "new <name>",
		Short: "Create an empty document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			e, err := c.open(ctx, "", 0)
			if err != nil {
				return err
			}
			defer e.close()
			if _, err := e.docs.Get(ctx, args[0]); err == nil {
				return fmt.Errorf("document %q already exists", args[0])
			}
			if err := e.sess.SaveAs(ctx, args[0]); err != nil {
				return err
			}
			printSuccess("Created %s", StyleHighlight.Render(args[0]))
			printNextStep("Link a folder", fmt.Sprintf("%s explore %s <path>", appName, args[0]))
			return nil
		},
	}
}

// listCommand creates the "list" command.
func (c *CLI) listCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored documents",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			e, err := c.open(ctx, "", 0)
			if err != nil {
				return err
			}
			defer e.close()
			infos, err := e.docs.List(ctx)
			if err != nil {
				return err
			}
			if len(infos) == 0 {
				printInfo("No documents")
				return nil
			}
			for _, info := range infos {
				printKeyValue(info.Name, fmt.Sprintf("%d bytes  %s  %s",
					info.Size, shortFingerprint(info.Fingerprint), info.UpdatedAt.Format("2006-01-02 15:04")))
			}
			return nil
		},
	}
}

func shortFingerprint(fp string) string {
	if len(fp) > 12 {
		return fp[:12]
	}
	return fp
}

// inspectCommand creates the "inspect" command.
func (c *CLI) inspectCommand() *cobra.Command {
	var interactive bool
	cmd := &cobra.Command{
		Use:   "inspect <document>",
		Short: "Show the nodes of a document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			e, err := c.open(ctx, args[0], 0)
			if err != nil {
				return err
			}
			defer e.close()

			if interactive {
				m := newBrowserModel(ctx, e.sess, shell.New(e.sess, c.Logger))
				final, err := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx)).Run()
				if err != nil {
					return err
				}
				if bm, ok := final.(browserModel); ok && bm.err != nil {
					return bm.err
				}
				if saved, err := e.saveIfDirty(ctx); err != nil {
					return err
				} else if saved {
					printSuccess("Saved changes")
				}
				return nil
			}

			var rows []nodeRow
			var nodes, edges int
			if err := e.sess.View(func(s *diagram.Store) error {
				rows = outline(s, true)
				nodes, edges = s.NodeCount(), s.EdgeCount()
				return nil
			}); err != nil {
				return err
			}
			fmt.Println(renderOutline(rows))
			printStats(nodes, edges, e.sess.Dirty())
			return nil
		},
	}
	cmd.Flags().BoolVarP(&interactive, "interactive", "i", false, "browse and edit nodes in a terminal UI")
	return cmd
}

func renderOutline(rows []nodeRow) string {
	data := make([][]string, len(rows))
	for i, r := range rows {
		flags := []string{}
		if r.Collapsed {
			flags = append(flags, "collapsed")
		}
		if r.Explorer != "" {
			flags = append(flags, r.Explorer)
		}
		data[i] = []string{
			strings.Repeat("  ", r.Depth) + r.ID,
			string(r.Shape),
			r.Text,
			fmt.Sprint(r.Edges),
			strings.Join(flags, ","),
		}
	}
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(StyleDim).
		Headers("Node", "Shape", "Text", "Edges", "Flags").
		Rows(data...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == -1:
				return styleHeader
			case col == 1:
				return shapeStyle(rows[row].Shape)
			case col == 4 && rows[row].Explorer != "":
				return styleExplorer
			}
			return StyleValue
		}).
		Render()
}

// editCommand creates the "edit" command.
func (c *CLI) editCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "edit <document> <node> <text>",
		Short: "Replace a node's text, converting it when it needs markdown",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			e, err := c.open(ctx, args[0], 0)
			if err != nil {
				return err
			}
			defer e.close()

			before, err := e.sess.Node(args[1])
			if err != nil {
				return err
			}
			n, err := e.sess.SetText(ctx, args[1], args[2])
			if err != nil {
				return err
			}
			if err := e.save(ctx); err != nil {
				return err
			}
			printSuccess("Updated %s", StyleHighlight.Render(n.ID))
			if before.Shape != n.Shape {
				printDetail("converted %s %s %s", before.Shape, iconArrow, n.Shape)
			}
			return nil
		},
	}
}

// convertCommand creates the "convert" command.
func (c *CLI) convertCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "convert <document> <node>",
		Short: "Convert a node to rich content, keeping its connections",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			e, err := c.open(ctx, args[0], 0)
			if err != nil {
				return err
			}
			defer e.close()

			res := shell.New(e.sess, c.Logger).Dispatch(ctx, shell.Command{Name: shell.CmdConvertNode, Arg: args[1]})
			if !res.Success {
				return fmt.Errorf("%s", res.Message)
			}
			if _, err := e.saveIfDirty(ctx); err != nil {
				return err
			}
			printSuccess("%s", res.Message)
			return nil
		},
	}
}

// classifyCommand creates the "classify" command.
func (c *CLI) classifyCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "classify <text>",
		Short: "Report the markdown constructs found in text",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			found := classify.Constructs(args[0])
			if len(found) == 0 {
				printInfo("Plain text")
				return nil
			}
			names := make([]string, len(found))
			for i, f := range found {
				names[i] = string(f)
			}
			printSuccess("Needs rich rendering")
			printDetail("%s", strings.Join(names, ", "))
			return nil
		},
	}
}

// runCommand creates the "run" command.
func (c *CLI) runCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "run <document> <command> [arg...]",
		Short: "Run a shell command against a document",
		Long: `Run one of the commands the interactive browser and the HTTP API use,
such as toggle-collapse, set-text or refresh-folder. The document is saved
when the command changed it.`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			e, err := c.open(ctx, args[0], 0)
			if err != nil {
				return err
			}
			defer e.close()

			d := shell.New(e.sess, c.Logger)
			res := d.Dispatch(ctx, shell.Command{Name: args[1], Arg: strings.Join(args[2:], " ")})
			if !res.Success {
				if res.Code == errors.ErrCodeUnknownCommand {
					printDetail("available: %s", strings.Join(d.Names(), ", "))
				}
				return fmt.Errorf("%s", res.Message)
			}
			if _, err := e.saveIfDirty(ctx); err != nil {
				return err
			}
			printSuccess("%s", res.Message)
			return nil
		},
	}
}
