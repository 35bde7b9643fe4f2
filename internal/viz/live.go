// Package viz renders a live terminal flight display: the engine is
// stepped one output frame per tick and the latest state drawn as a
// set of instrument readouts plus an altitude strip chart.
package viz

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"

	"github.com/mwaldron/f16sim/internal/f16"
	"github.com/mwaldron/f16sim/internal/ode"
	"github.com/mwaldron/f16sim/internal/sim"
)

const (
	frameRate       = 30
	historyCapacity = 600
	radToDeg        = 57.29577951308232
)

type TickMsg time.Time

// Model drives a simulation engine from the bubbletea event loop,
// advancing one output frame of simulated time per tick.
type Model struct {
	engine  *sim.Engine
	step    float64
	tmax    float64
	horizon float64
	running bool
	err     error

	altHist []float64
	vtHist  []float64
}

func NewModel(e *sim.Engine, step, tmax float64) Model {
	return Model{
		engine:  e,
		step:    step,
		tmax:    tmax,
		running: true,
		altHist: make([]float64, 0, historyCapacity),
		vtHist:  make([]float64, 0, historyCapacity),
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Tick(time.Second/frameRate, func(t time.Time) tea.Msg { return TickMsg(t) })
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case " ":
			m.running = !m.running
		}
	case TickMsg:
		if m.running && m.engine.Status() == ode.Running && m.horizon < m.tmax {
			m.horizon += m.step
			if m.horizon > m.tmax {
				m.horizon = m.tmax
			}
			if err := m.engine.SimulateTo(m.horizon); err != nil {
				m.err = err
				m.running = false
			}
			m.record()
		}
		return m, tea.Tick(time.Second/frameRate, func(t time.Time) tea.Msg { return TickMsg(t) })
	}
	return m, nil
}

// record appends the lead aircraft's altitude and airspeed to the
// strip-chart history.
func (m *Model) record() {
	x := m.latest()
	if len(x) < f16.NumStates {
		return
	}
	m.altHist = append(m.altHist, x[f16.Alt])
	m.vtHist = append(m.vtHist, x[f16.Vt])
	if len(m.altHist) > historyCapacity {
		m.altHist = m.altHist[1:]
		m.vtHist = m.vtHist[1:]
	}
}

// latest returns the lead aircraft's slice of the newest recorded state.
func (m *Model) latest() f16.State {
	states := m.engine.States()
	x := states[len(states)-1]
	numVars := len(x) / m.engine.NumAircraft()
	return x[:numVars]
}

func (m Model) statusLine() string {
	if m.err != nil {
		return statusFailed.Render("ERROR: " + m.err.Error())
	}
	switch m.engine.Status() {
	case ode.Failed:
		return statusFailed.Render("FAILED (left envelope)")
	case ode.AutopilotFinished:
		return statusRunning.Render("RECOVERED")
	}
	times := m.engine.Times()
	if times[len(times)-1] >= m.tmax {
		return statusRunning.Render("FINISHED")
	}
	if !m.running {
		return statusPaused.Render("PAUSED")
	}
	return statusRunning.Render("RUNNING")
}

func (m Model) View() string {
	x := m.latest()
	times := m.engine.Times()
	modes := m.engine.Modes()
	t := times[len(times)-1]
	mode := modes[len(modes)-1]

	var s strings.Builder
	s.WriteString(m.statusLine() + "\n")

	if len(m.altHist) > 1 {
		chart := asciigraph.Plot(m.altHist,
			asciigraph.Height(6), asciigraph.Width(42), asciigraph.Caption("altitude (ft)"))
		s.WriteString(graphStyle.Render(chart) + "\n\n")
	}

	s.WriteString(row("Time", fmt.Sprintf("%7.2f s", t)))
	s.WriteString(row("Mode", modeStyle.Render(string(mode))))
	s.WriteString(row("Altitude", fmt.Sprintf("%7.0f ft", x[f16.Alt])))
	s.WriteString(row("Airspeed", fmt.Sprintf("%7.1f ft/s", x[f16.Vt])))
	s.WriteString(row("Alpha", fmt.Sprintf("%7.2f deg", x[f16.Alpha]*radToDeg)))
	s.WriteString(row("Heading", fmt.Sprintf("%7.1f deg", x[f16.Psi]*radToDeg)))
	s.WriteString("\n")
	s.WriteString(row("Roll", attitudeBar(x[f16.Phi], 3.14159, 20)))
	s.WriteString(row("Pitch", attitudeBar(x[f16.Theta], 1.5708, 20)))

	if n := m.engine.NumAircraft(); n > 1 {
		s.WriteString("\n" + labelStyle.Render("Aircraft") + valueStyle.Render(fmt.Sprintf("%d (showing lead)", n)) + "\n")
	}

	s.WriteString(helpStyle.Render("space: pause   q: quit"))

	return lipgloss.JoinVertical(lipgloss.Left,
		titled("F-16 FLIGHT DISPLAY", s.String()))
}
