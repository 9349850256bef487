// Package tui is the terminal front end of the explorer. It drives a browsing
// session with the keyboard and redraws whenever the session reports a change.
package tui

import (
	"context"
	"errors"
	"path"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/leapstack-labs/repolens/internal/session"
	"github.com/leapstack-labs/repolens/pkg/preview"
	"github.com/leapstack-labs/repolens/pkg/tree"
)

// Indentation in terminal cells.
const (
	IndentUnit = 2
	IndentBase = 0
)

// NewEngine returns a tree engine indenting in terminal cells.
func NewEngine() *tree.Engine {
	return tree.New(tree.WithIndent(IndentUnit, IndentBase))
}

// Signal carries session change notifications into the program. Pings
// coalesce while one is pending.
type Signal struct {
	ch chan struct{}
}

// NewSignal creates a signal.
func NewSignal() *Signal {
	return &Signal{ch: make(chan struct{}, 1)}
}

// Notify records a change. It never blocks.
func (s *Signal) Notify() {
	select {
	case s.ch <- struct{}{}:
	default:
	}
}

// Pane identifies which pane has focus
type Pane int

const (
	TreePane Pane = iota
	PreviewPane
)

var errNothingToImport = errors.New("nothing to import")

// Message types
type changedMsg struct{}

type actionDoneMsg struct {
	action string
	err    error
}

// Model is the bubbletea model of the explorer.
type Model struct {
	ctx  context.Context
	sess *session.Session
	sig  *Signal

	keys     KeyMap
	help     help.Model
	viewport viewport.Model

	snap     session.Snapshot
	body     string
	cursor   int
	focus    Pane
	showHelp bool
	err      error

	width  int
	height int
}

// NewModel creates a model over a session. sig must be the session's notify
// target.
func NewModel(ctx context.Context, sess *session.Session, sig *Signal) Model {
	if ctx == nil {
		ctx = context.Background()
	}
	m := Model{
		ctx:      ctx,
		sess:     sess,
		sig:      sig,
		keys:     DefaultKeyMap(),
		help:     help.New(),
		viewport: viewport.New(0, 0),
	}
	m.refresh()
	return m
}

// Init loads the tree and starts listening for session changes.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.waitForUpdate()}
	if !m.snap.Loaded {
		cmds = append(cmds, m.load())
	}
	return tea.Batch(cmds...)
}

func (m Model) waitForUpdate() tea.Cmd {
	if m.sig == nil {
		return nil
	}
	ch := m.sig.ch
	ctx := m.ctx
	return func() tea.Msg {
		select {
		case <-ch:
			return changedMsg{}
		case <-ctx.Done():
			return nil
		}
	}
}

func (m Model) load() tea.Cmd {
	sess, ctx := m.sess, m.ctx
	return func() tea.Msg {
		return actionDoneMsg{action: "refresh", err: sess.Load(ctx)}
	}
}

func (m Model) click(p string) tea.Cmd {
	sess, ctx := m.sess, m.ctx
	return func() tea.Msg {
		return actionDoneMsg{action: "open " + p, err: sess.Click(ctx, p)}
	}
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resize()
		return m, nil

	case changedMsg:
		m.err = nil
		m.refresh()
		return m, m.waitForUpdate()

	case actionDoneMsg:
		m.err = msg.err
		m.refresh()
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Help):
		m.showHelp = !m.showHelp
		m.help.ShowAll = m.showHelp
		m.resize()
		return m, nil
	case key.Matches(msg, m.keys.Tab):
		if m.focus == TreePane {
			m.focus = PreviewPane
		} else {
			m.focus = TreePane
		}
		return m, nil
	case key.Matches(msg, m.keys.Refresh):
		return m, m.load()
	case key.Matches(msg, m.keys.Import):
		if !m.sess.Import() {
			m.err = errNothingToImport
		} else {
			m.err = nil
		}
		m.refresh()
		return m, nil
	}

	if m.focus == PreviewPane {
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}

	rows := m.snap.Tree.Rows
	switch {
	case key.Matches(msg, m.keys.Up):
		m.moveCursor(-1)
	case key.Matches(msg, m.keys.Down):
		m.moveCursor(1)
	case key.Matches(msg, m.keys.PageUp):
		m.moveCursor(-m.treeHeight())
	case key.Matches(msg, m.keys.PageDown):
		m.moveCursor(m.treeHeight())
	case key.Matches(msg, m.keys.Home):
		m.cursor = 0
	case key.Matches(msg, m.keys.End):
		m.cursor = max(len(rows)-1, 0)
	case key.Matches(msg, m.keys.Enter):
		if row, ok := m.current(); ok {
			return m, m.click(row.Node.Path)
		}
	case key.Matches(msg, m.keys.Right):
		if row, ok := m.current(); ok && row.Node.IsDir() && !row.Expanded {
			return m, m.click(row.Node.Path)
		}
	case key.Matches(msg, m.keys.Left):
		row, ok := m.current()
		if !ok {
			break
		}
		if row.Node.IsDir() && row.Expanded {
			return m, m.click(row.Node.Path)
		}
		m.moveToParent(row.Node.Path)
	}
	return m, nil
}

func (m *Model) moveCursor(delta int) {
	n := len(m.snap.Tree.Rows)
	if n == 0 {
		m.cursor = 0
		return
	}
	m.cursor = min(max(m.cursor+delta, 0), n-1)
}

func (m *Model) moveToParent(p string) {
	parent := path.Dir(p)
	if parent == "." || parent == "/" {
		return
	}
	for i, row := range m.snap.Tree.Rows {
		if row.Node.Path == parent {
			m.cursor = i
			return
		}
	}
}

func (m Model) current() (tree.Row, bool) {
	rows := m.snap.Tree.Rows
	if m.cursor < 0 || m.cursor >= len(rows) {
		return tree.Row{}, false
	}
	return rows[m.cursor], true
}

// refresh takes a new snapshot and keeps the cursor on the same path when it
// is still visible.
func (m *Model) refresh() {
	var at string
	if row, ok := m.current(); ok {
		at = row.Node.Path
	}

	m.snap = m.sess.Snapshot()

	m.cursor = min(m.cursor, max(len(m.snap.Tree.Rows)-1, 0))
	for i, row := range m.snap.Tree.Rows {
		if row.Node.Path == at {
			m.cursor = i
			break
		}
	}

	body := previewBody(m.snap.Preview)
	if body != m.body {
		m.body = body
		m.viewport.SetContent(body)
		m.viewport.GotoTop()
	}
}

func previewBody(v preview.View) string {
	switch v.State {
	case preview.StateLoading:
		return placeholderStyle.Render("Loading...")
	case preview.StateLoaded:
		return v.Body
	default:
		return placeholderStyle.Render(v.Placeholder)
	}
}

func (m Model) treeWidth() int {
	return max(m.width/3, 20)
}

func (m Model) paneHeight() int {
	// header, status line, help and the pane borders
	h := m.height - 2 - lipgloss.Height(m.help.View(m.keys)) - 2
	return max(h, 3)
}

func (m Model) treeHeight() int {
	return m.paneHeight()
}

func (m *Model) resize() {
	// preview title and import control take two lines
	m.viewport.Width = max(m.width-m.treeWidth()-8, 10)
	m.viewport.Height = max(m.paneHeight()-2, 1)
}

// View renders the explorer.
func (m Model) View() string {
	header := headerStyle.Render("repolens")
	if m.snap.SourceName != "" {
		header += " " + sourceStyle.Render(m.snap.SourceName)
	}

	treeStyle, previewStyle := activePaneStyle, paneStyle
	if m.focus == PreviewPane {
		treeStyle, previewStyle = paneStyle, activePaneStyle
	}
	panes := lipgloss.JoinHorizontal(lipgloss.Top,
		treeStyle.Width(m.treeWidth()).Height(m.paneHeight()).Render(m.renderTree()),
		previewStyle.Height(m.paneHeight()).Render(m.renderPreview()),
	)

	return lipgloss.JoinVertical(lipgloss.Left,
		header,
		panes,
		m.renderStatus(),
		m.help.View(m.keys),
	)
}

func (m Model) renderTree() string {
	v := m.snap.Tree
	if v.Empty {
		return placeholderStyle.Render(v.Placeholder)
	}

	height := m.treeHeight()
	start := 0
	if height > 0 && m.cursor >= height {
		start = m.cursor - height + 1
	}

	var b strings.Builder
	for i := start; i < len(v.Rows); i++ {
		if height > 0 && i-start >= height {
			break
		}
		row := v.Rows[i]
		line := strings.Repeat(" ", row.Indent) + rowIcon(row) + row.Node.Name
		switch {
		case row.Selected:
			line = selectedStyle.Render(line)
		case i == m.cursor && m.focus == TreePane:
			line = cursorStyle.Render(line)
		case row.Node.IsDir():
			line = dirStyle.Render(line)
		}
		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(line)
	}
	return b.String()
}

func rowIcon(row tree.Row) string {
	switch {
	case !row.Node.IsDir():
		return "  "
	case row.Expanded:
		return "▾ "
	default:
		return "▸ "
	}
}

func (m Model) renderPreview() string {
	v := m.snap.Preview
	var title string
	if v.Title != "" {
		title = titleStyle.Render(v.Title)
	}
	if v.Import.Visible {
		label := "[i] " + v.Import.Label
		if v.Import.Enabled() {
			title += "  " + buttonStyle.Render(label)
		} else {
			title += "  " + disabledButtonStyle.Render(label)
		}
	}
	return lipgloss.JoinVertical(lipgloss.Left, title, "", m.viewport.View())
}

func (m Model) renderStatus() string {
	if m.err != nil {
		return toastStyles[string(session.ToastError)].Render(m.err.Error())
	}
	if n := len(m.snap.Toasts); n > 0 {
		t := m.snap.Toasts[n-1]
		style, ok := toastStyles[string(t.Level)]
		if !ok {
			style = statusStyle
		}
		return style.Render(t.Message)
	}
	return statusStyle.Render(m.snap.SelectedPath)
}

// Run starts the program and blocks until the user quits or ctx ends.
func Run(ctx context.Context, sess *session.Session, sig *Signal) error {
	p := tea.NewProgram(NewModel(ctx, sess, sig), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	if err != nil && ctx.Err() != nil {
		return nil
	}
	return err
}
