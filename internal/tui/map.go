// Package tui is a terminal map client. It drives a map session over an
// in-memory viewport: keys pan and zoom the camera, a debouncer turns the
// resulting moves into idle events, and markers for the current hits are
// plotted on a character grid.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/samirrijal/bilbomap/internal/adapters/viewport"
	"github.com/samirrijal/bilbomap/internal/core/domain"
	"github.com/samirrijal/bilbomap/internal/core/geosync"
	"github.com/samirrijal/bilbomap/internal/core/usecases"
)

// Terminal cells are drawn as cellWidth×cellHeight viewport pixels.
const (
	cellWidth  = 8
	cellHeight = 16
	panStep    = 0.25
)

// Options configures the map client.
type Options struct {
	Cols     int
	Rows     int
	Debounce time.Duration
	Query    string
}

func (o Options) withDefaults() Options {
	if o.Cols <= 0 {
		o.Cols = 64
	}
	if o.Rows <= 0 {
		o.Rows = 18
	}
	if o.Debounce <= 0 {
		o.Debounce = 250 * time.Millisecond
	}
	return o
}

type updateMsg usecases.SessionUpdate

// frameMsg is the camera after a move, read on the session goroutine.
type frameMsg struct {
	bounds domain.BoundingBox
	center domain.LatLng
	zoom   float64
}

type sessionEndedMsg struct{}

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#5B8DEF"))
	mapStyle      = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("#555555"))
	markerStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B")).Bold(true)
	centreStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#F7B801"))
	buttonStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#4CAF50")).Bold(true)
	disabledStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#777777"))
	infoStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#CCCCCC"))
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B"))
)

// Model is the bubbletea model of one map session.
type Model struct {
	opts     Options
	sess     *usecases.Session
	vp       *viewport.Memory
	debounce *viewport.Debouncer
	events   chan tea.Msg
	cancel   context.CancelFunc

	keys keyMap
	help help.Model

	state       geosync.RefinementState
	controls    geosync.Controls
	refinements []geosync.RefinementItem
	markers     []domain.Hit
	nbHits      int
	frame       frameMsg
	err         string
}

// New starts a session in reg and returns the model driving it. The session
// ends when the model quits or ctx is cancelled.
func New(ctx context.Context, reg *usecases.SessionRegistry, opts Options) *Model {
	opts = opts.withDefaults()
	ctx, cancel := context.WithCancel(ctx)

	m := &Model{
		opts:   opts,
		vp:     viewport.NewMemory(opts.Cols*cellWidth, opts.Rows*cellHeight),
		events: make(chan tea.Msg, 256),
		cancel: cancel,
		keys:   defaultKeys(),
		help:   help.New(),
	}
	m.frame = m.frameOf()
	m.controls = geosync.ControlsFor(m.state)

	emit := func(msg tea.Msg) {
		select {
		case m.events <- msg:
		case <-ctx.Done():
		}
	}
	m.sess = reg.Start(ctx, m.vp, func(u usecases.SessionUpdate) { emit(updateMsg(u)) })
	m.debounce = viewport.NewDebouncer(opts.Debounce, func() { _ = m.sess.Post(m.vp.Settle) })

	if opts.Query != "" {
		_ = m.sess.SetQuery(opts.Query)
	}
	// The map has loaded: report the first frame and its idle.
	_ = m.sess.Post(func() {
		m.vp.AfterMove = func() {
			emit(m.frameOf())
			m.debounce.Trigger()
		}
		emit(m.frameOf())
		m.vp.Settle()
	})
	go func() {
		<-m.sess.Done()
		emit(sessionEndedMsg{})
	}()
	return m
}

// Session returns the session behind the model.
func (m *Model) Session() *usecases.Session { return m.sess }

// frameOf must run on the session goroutine.
func (m *Model) frameOf() frameMsg {
	return frameMsg{bounds: m.vp.Bounds(), center: m.vp.Center(), zoom: m.vp.Zoom()}
}

func (m *Model) waitEvent() tea.Cmd {
	return func() tea.Msg { return <-m.events }
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return m.waitEvent()
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m, m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.help.Width = msg.Width

	case updateMsg:
		m.applyUpdate(usecases.SessionUpdate(msg))
		return m, m.waitEvent()

	case frameMsg:
		m.frame = msg
		return m, m.waitEvent()

	case sessionEndedMsg:
		m.shutdown()
		return m, tea.Quit
	}
	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) tea.Cmd {
	var err error
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.shutdown()
		return tea.Quit
	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
	case key.Matches(msg, m.keys.Up):
		err = m.sess.Post(func() { m.vp.Pan(0, panStep) })
	case key.Matches(msg, m.keys.Down):
		err = m.sess.Post(func() { m.vp.Pan(0, -panStep) })
	case key.Matches(msg, m.keys.Left):
		err = m.sess.Post(func() { m.vp.Pan(-panStep, 0) })
	case key.Matches(msg, m.keys.Right):
		err = m.sess.Post(func() { m.vp.Pan(panStep, 0) })
	case key.Matches(msg, m.keys.ZoomIn):
		err = m.sess.Post(func() { m.vp.ZoomBy(1) })
	case key.Matches(msg, m.keys.ZoomOut):
		err = m.sess.Post(func() { m.vp.ZoomBy(-1) })
	case key.Matches(msg, m.keys.Toggle):
		err = m.sess.ToggleRefineOnMapMove()
	case key.Matches(msg, m.keys.Redo):
		if m.controls.Redo.Visible && !m.controls.Redo.Disabled {
			err = m.sess.Redo()
		}
	case key.Matches(msg, m.keys.Clear):
		if m.controls.Clear.Visible {
			err = m.sess.Clear()
		}
	case key.Matches(msg, m.keys.Position):
		if m.state.Position != nil {
			err = m.sess.SetPosition(nil)
		} else {
			centre := m.frame.center
			err = m.sess.SetPosition(&centre)
		}
	}
	if err != nil {
		m.err = err.Error()
	}
	return nil
}

func (m *Model) applyUpdate(u usecases.SessionUpdate) {
	switch u.Type {
	case usecases.UpdateState:
		if u.State != nil {
			m.state = *u.State
		}
		if u.Controls != nil {
			m.controls = *u.Controls
		}
		m.refinements = u.Refinements
	case usecases.UpdateResults:
		m.markers = u.Markers
		if u.Results != nil {
			m.nbHits = u.Results.NbHits
		}
		m.err = ""
	case usecases.UpdateError:
		m.err = u.Error
	}
}

func (m *Model) shutdown() {
	m.debounce.Stop()
	m.sess.Close()
	m.cancel()
}

// View implements tea.Model.
func (m *Model) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("BilboMap"))
	b.WriteString(infoStyle.Render(fmt.Sprintf("  centre %s  zoom %.0f  %d hits", m.frame.center, m.frame.zoom, m.nbHits)))
	b.WriteString("\n")
	b.WriteString(mapStyle.Render(m.renderGrid()))
	b.WriteString("\n")
	b.WriteString(m.renderControls())
	b.WriteString("\n")
	for _, r := range m.refinements {
		b.WriteString(infoStyle.Render("refined: " + r.Label))
		b.WriteString("\n")
	}
	if m.state.Position != nil {
		b.WriteString(infoStyle.Render("around: " + m.state.Position.String()))
		b.WriteString("\n")
	}
	if m.err != "" {
		b.WriteString(errorStyle.Render(m.err))
		b.WriteString("\n")
	}
	b.WriteString(m.help.View(m.keys))
	return b.String()
}

// renderGrid projects markers linearly onto the visible bounds.
func (m *Model) renderGrid() string {
	cols, rows := m.opts.Cols, m.opts.Rows
	grid := make([][]string, rows)
	for y := range grid {
		grid[y] = make([]string, cols)
		for x := range grid[y] {
			grid[y][x] = " "
		}
	}
	grid[rows/2][cols/2] = centreStyle.Render("+")

	box := m.frame.bounds
	dLat, dLng := box.Span()
	if dLat > 0 && dLng > 0 {
		for _, h := range m.markers {
			if h.Geo == nil || !box.Contains(*h.Geo) {
				continue
			}
			x := int((h.Geo.Lng - box.SouthWest.Lng) / dLng * float64(cols))
			y := int((box.NorthEast.Lat - h.Geo.Lat) / dLat * float64(rows))
			x, y = min(x, cols-1), min(y, rows-1)
			grid[y][x] = markerStyle.Render("●")
		}
	}

	lines := make([]string, rows)
	for y := range grid {
		lines[y] = strings.Join(grid[y], "")
	}
	return strings.Join(lines, "\n")
}

func (m *Model) renderControls() string {
	var parts []string
	if t := m.controls.Toggle; t.Visible {
		box := "[ ]"
		if t.Checked {
			box = "[x]"
		}
		parts = append(parts, buttonStyle.Render(box+" "+t.Label))
	}
	if r := m.controls.Redo; r.Visible {
		style := buttonStyle
		if r.Disabled {
			style = disabledStyle
		}
		parts = append(parts, style.Render("⟳ "+r.Label))
	}
	if c := m.controls.Clear; c.Visible {
		parts = append(parts, buttonStyle.Render("✕ "+c.Label))
	}
	return strings.Join(parts, "   ")
}
