package viz

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"

	"github.com/san-kum/rigsim/internal/sim"
)

const historyLen = 120

// SampleMsg carries a copied sample into the monitor.
type SampleMsg struct {
	Sample  sim.Sample
	Dropped uint64
}

// DoneMsg reports the end of the run.
type DoneMsg struct {
	Result *sim.Result
}

type Model struct {
	scene  Scene
	canvas *Canvas
	theme  Theme
	st     styles
	cancel context.CancelFunc
	title  string

	last     sim.Sample
	received int
	dropped  uint64
	travel   []float64

	paused   bool
	showHelp bool
	done     bool
	result   *sim.Result
}

// NewModel builds a monitor for scene. cancel is called when the user quits
// and stops the run it is attached to.
func NewModel(title string, scene Scene, cancel context.CancelFunc) Model {
	theme := ThemeCyberpunk
	return Model{
		scene:  scene,
		canvas: NewCanvas(60, 16),
		theme:  theme,
		st:     newStyles(theme),
		cancel: cancel,
		title:  title,
		travel: make([]float64, 0, historyLen),
	}
}

func (m Model) Init() tea.Cmd { return nil }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			if m.cancel != nil {
				m.cancel()
			}
			return m, tea.Quit
		case " ":
			m.paused = !m.paused
		case "t":
			m.theme = nextTheme(m.theme.Name)
			m.st = newStyles(m.theme)
		case "?":
			m.showHelp = !m.showHelp
		}
	case SampleMsg:
		m.received++
		m.dropped = msg.Dropped
		if m.paused {
			return m, nil
		}
		m.last = msg.Sample
		m.travel = append(m.travel, m.scene.Travel(&m.last))
		if len(m.travel) > historyLen {
			m.travel = m.travel[1:]
		}
	case DoneMsg:
		m.done = true
		m.result = msg.Result
		if msg.Result != nil {
			m.last = msg.Result.Last
		}
	}
	return m, nil
}

// Travel returns the suspension deflection history shown in the sparkline.
func (m Model) Travel() []float64 { return m.travel }

func (m Model) Paused() bool { return m.paused }

func (m Model) Done() bool { return m.done }

func (m Model) View() string {
	m.scene.Draw(m.canvas, &m.last)
	scene := m.st.canvas.Render(m.canvas.String())

	stats := m.st.stats.Render(m.stats())
	top := lipgloss.JoinHorizontal(lipgloss.Top, scene, "  ", stats)

	var b strings.Builder
	b.WriteString(m.st.header.Render(m.title))
	b.WriteString("\n")
	b.WriteString(top)
	b.WriteString("\n")
	if len(m.travel) > 1 {
		graph := asciigraph.Plot(m.travel,
			asciigraph.Height(4),
			asciigraph.Width(60),
			asciigraph.Precision(3),
			asciigraph.Caption("suspension travel (m)"))
		b.WriteString(m.st.graph.Render(graph))
		b.WriteString("\n")
	}
	if m.showHelp {
		b.WriteString(m.st.help.Render("space freeze view  t theme  ? help  q stop run and quit"))
	} else {
		b.WriteString(m.st.help.Render("? help  q quit"))
	}
	return b.String()
}

func (m Model) stats() string {
	s := &m.last
	row := func(label, value string) string {
		return m.st.label.Render(fmt.Sprintf("%-10s", label)) + m.st.value.Render(value)
	}

	var status string
	switch {
	case m.done && m.result != nil && m.result.Err != nil:
		status = m.st.bad.Render("FAILED")
	case m.done:
		status = m.st.ok.Render("FINISHED")
	case m.paused:
		status = m.st.warn.Render("FROZEN")
	default:
		status = m.st.ok.Render("RUNNING")
	}

	lines := []string{
		status,
		"",
		row("step", fmt.Sprintf("%d", s.Step)),
		row("time", fmt.Sprintf("%.3f s", s.Time)),
		row("peer", fmt.Sprintf("%.3f s", s.PeerTime)),
		"",
		row("wheel", fmt.Sprintf("%+.4f m", s.Outbound[0])),
		row("body", fmt.Sprintf("%+.4f m", s.Outbound[1])),
		row("travel", fmt.Sprintf("%+.4f m", m.scene.Travel(s))),
		row("x", fmt.Sprintf("%+.3f m", s.Body.X)),
		"",
		row("control", fmt.Sprintf("%+.2f", s.Inbound[0])),
		row("command", fmt.Sprintf("%+.2f", s.Command)),
		"",
		row("frames", fmt.Sprintf("%d (%d dropped)", m.received, m.dropped)),
	}
	if m.done && m.result != nil && m.result.Err != nil {
		lines = append(lines, "", m.st.bad.Render(m.result.Err.Error()))
	}
	return strings.Join(lines, "\n")
}

// Run shows the monitor until the user quits. Quitting calls cancel. The
// feed must be registered as an observer of the run being shown.
func Run(ctx context.Context, title string, scene Scene, feed *Feed, cancel context.CancelFunc) error {
	p := tea.NewProgram(NewModel(title, scene, cancel), tea.WithAltScreen(), tea.WithContext(ctx))

	pumpCtx, stop := context.WithCancel(ctx)
	defer stop()
	go feed.Pump(pumpCtx, p.Send)

	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) {
		return nil
	}
	return err
}
