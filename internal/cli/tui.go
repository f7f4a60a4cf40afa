package cli

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/matzehuels/mdcanvas/pkg/diagram"
	"github.com/matzehuels/mdcanvas/pkg/session"
	"github.com/matzehuels/mdcanvas/pkg/shell"
)

var listSelectedStyle = lipgloss.NewStyle().Bold(true).Foreground(colorAccent)

// =============================================================================
// browserModel - Interactive node browser
// =============================================================================

// resultMsg carries the outcome of a dispatched command.
type resultMsg struct {
	cmd shell.Command
	res shell.Result
}

// browserModel lists the nodes of a session as an outline and dispatches
// shell commands for the selected node.
type browserModel struct {
	ctx  context.Context
	sess *session.Session
	disp *shell.Dispatcher

	rows   []nodeRow
	cursor int
	offset int
	height int

	editing bool
	input   []rune

	status   string
	statusOK bool
	busy     bool
	err      error
}

func newBrowserModel(ctx context.Context, sess *session.Session, disp *shell.Dispatcher) browserModel {
	m := browserModel{ctx: ctx, sess: sess, disp: disp, height: 15}
	m.reload()
	return m
}

func (m *browserModel) reload() {
	if err := m.sess.View(func(s *diagram.Store) error {
		m.rows = outline(s, false)
		return nil
	}); err != nil {
		m.err = err
	}
	if m.cursor >= len(m.rows) {
		m.cursor = max(len(m.rows)-1, 0)
	}
	m.scroll()
}

func (m *browserModel) scroll() {
	if m.cursor < m.offset {
		m.offset = m.cursor
	}
	if m.cursor >= m.offset+m.height {
		m.offset = m.cursor - m.height + 1
	}
}

func (m browserModel) selected() (nodeRow, bool) {
	if m.cursor < 0 || m.cursor >= len(m.rows) {
		return nodeRow{}, false
	}
	return m.rows[m.cursor], true
}

// dispatch runs cmd off the UI goroutine.
func (m browserModel) dispatch(cmd shell.Command) tea.Cmd {
	ctx, disp := m.ctx, m.disp
	return func() tea.Msg {
		return resultMsg{cmd: cmd, res: disp.Dispatch(ctx, cmd)}
	}
}

func (m browserModel) Init() tea.Cmd {
	return nil
}

func (m browserModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case resultMsg:
		m.busy = false
		m.status, m.statusOK = msg.res.Message, msg.res.Success
		if msg.cmd.Name == shell.CmdOpenFile && msg.res.Success {
			m.status = fmt.Sprintf("%d bytes: %s", len(msg.res.Message), firstLine(msg.res.Message))
		}
		m.reload()
		return m, nil

	case tea.WindowSizeMsg:
		m.height = max(msg.Height-8, 5)
		m.scroll()
		return m, nil

	case tea.KeyMsg:
		if m.editing {
			return m.updateInput(msg)
		}
		return m.updateList(msg)
	}
	return m, nil
}

func (m browserModel) updateList(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	row, ok := m.selected()
	switch msg.String() {
	case "q", "ctrl+c", "esc":
		return m, tea.Quit
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
			m.scroll()
		}
		return m, nil
	case "down", "j":
		if m.cursor < len(m.rows)-1 {
			m.cursor++
			m.scroll()
		}
		return m, nil
	case "m":
		return m.run(shell.Command{Name: shell.CmdToggleMarkdown})
	case "H":
		return m.run(shell.Command{Name: shell.CmdToggleHidden})
	case "r":
		return m.run(shell.Command{Name: shell.CmdRefreshFolder})
	case "s":
		return m.run(shell.Command{Name: shell.CmdSave})
	}
	if !ok {
		return m, nil
	}
	switch msg.String() {
	case "enter", " ":
		return m.run(shell.Command{Name: shell.CmdToggleCollapse, Arg: row.ID})
	case "c":
		return m.run(shell.Command{Name: shell.CmdConvertNode, Arg: row.ID})
	case "o":
		return m.run(shell.Command{Name: shell.CmdOpenFile, Arg: row.ID})
	case "e":
		n, err := m.sess.Node(row.ID)
		if err != nil {
			m.status, m.statusOK = err.Error(), false
			return m, nil
		}
		m.editing = true
		m.input = []rune(n.Text())
	}
	return m, nil
}

func (m browserModel) updateInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc, tea.KeyCtrlC:
		m.editing = false
		m.input = nil
		return m, nil
	case tea.KeyEnter:
		row, ok := m.selected()
		m.editing = false
		text := string(m.input)
		m.input = nil
		if !ok {
			return m, nil
		}
		return m.run(shell.Command{Name: shell.CmdSetText, Arg: row.ID + " " + text})
	case tea.KeyBackspace:
		if len(m.input) > 0 {
			m.input = m.input[:len(m.input)-1]
		}
	case tea.KeySpace:
		m.input = append(m.input, ' ')
	case tea.KeyRunes:
		m.input = append(m.input, msg.Runes...)
	}
	return m, nil
}

func (m browserModel) run(cmd shell.Command) (tea.Model, tea.Cmd) {
	if m.busy {
		return m, nil
	}
	m.busy = true
	m.status = cmd.Name + "..."
	m.statusOK = true
	return m, m.dispatch(cmd)
}

func (m browserModel) View() string {
	var b strings.Builder

	title := "Document"
	if name := m.sess.Name(); name != "" {
		title = name
	}
	b.WriteString(StyleTitle.Render(title))
	b.WriteString("\n")
	b.WriteString(StyleDim.Render("↑/↓ navigate  ⏎ collapse  e edit  c convert  o open  r refresh  m markdown  H hidden  s save  q quit"))
	b.WriteString("\n\n")

	if len(m.rows) == 0 {
		b.WriteString(StyleDim.Render("  (empty document)"))
		b.WriteString("\n")
	}
	end := min(m.offset+m.height, len(m.rows))
	for i := m.offset; i < end; i++ {
		b.WriteString(m.renderRow(i))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	if m.editing {
		b.WriteString(StyleHighlight.Render("text: "))
		b.WriteString(string(m.input))
		b.WriteString(StyleDim.Render("▏  ⏎ apply  esc cancel"))
		return b.String()
	}
	switch {
	case m.status == "":
		b.WriteString(StyleDim.Render(fmt.Sprintf("  [%d/%d]", m.cursor+1, len(m.rows))))
	default:
		b.WriteString(statusLine(m.statusOK, m.status))
	}
	return b.String()
}

func (m browserModel) renderRow(i int) string {
	r := m.rows[i]
	cursor := "  "
	if i == m.cursor {
		cursor = "▸ "
	}
	marker := "  "
	if r.HasKids {
		marker = "▾ "
		if r.Collapsed {
			marker = "▸ "
		}
	}
	text := r.Text
	if text == "" {
		text = StyleDim.Render("(" + r.ID + ")")
	}
	line := cursor + strings.Repeat("  ", r.Depth) + marker + text
	var tags []string
	if r.Shape == diagram.ShapeRichContent {
		tags = append(tags, styleRich.Render("md"))
	}
	if r.Explorer != "" {
		tags = append(tags, styleExplorer.Render(r.Explorer))
	}
	if len(tags) > 0 {
		line += "  " + strings.Join(tags, " ")
	}
	if i == m.cursor {
		return listSelectedStyle.Render(line)
	}
	return StyleValue.Render(line)
}
