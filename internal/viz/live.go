package viz

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"

	"github.com/san-kum/pendulab/internal/sim"
)

const (
	width  = 80
	height = 24

	trailLength = 40
	graphPoints = 120

	// pushTicks is how long one arrow key press holds a manual push.
	pushTicks = 6
)

type TickMsg time.Time

type point struct{ x, y float64 }

// param is one tunable value of the selected body: its state, a physical
// parameter or a controller setting.
type param struct {
	key        string
	state      bool
	controller bool
}

// Model is the live view: it owns the world, advances it in real time and
// doubles as its settings surface.
type Model struct {
	world  *sim.World
	scene  string
	canvas *Canvas
	theme  int
	styles styles

	running  bool
	showHelp bool
	status   string

	body     int
	selected int
	pushes   map[string]int
	trails   map[string][]point
}

func NewModel(w *sim.World, scene string) Model {
	return Model{
		world:   w,
		scene:   scene,
		canvas:  NewCanvas(width, height),
		styles:  newStyles(Themes[0]),
		running: true,
		pushes:  make(map[string]int),
		trails:  make(map[string][]point),
	}
}

func (m Model) tick() tea.Cmd {
	return tea.Tick(time.Duration(m.world.Dt()*float64(time.Second)), func(t time.Time) tea.Msg { return TickMsg(t) })
}

func (m Model) Init() tea.Cmd {
	return m.tick()
}

// Update handles input events and steps the simulation.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case " ":
			m.running = !m.running
		case "r":
			m.reset()
		case "tab":
			m.cycleParam()
		case "b", "shift+tab":
			m.cycleBody()
		case "up", "k":
			m.adjustParam(1)
		case "down", "j":
			m.adjustParam(-1)
		case "left", "h":
			m.push(-1)
		case "right", "l":
			m.push(1)
		case "L":
			m.relinearize()
		case "t":
			m.theme = (m.theme + 1) % len(Themes)
			m.styles = newStyles(Themes[m.theme])
		case "?":
			m.showHelp = !m.showHelp
		}
	case TickMsg:
		if m.running {
			m.step()
		}
		return m, m.tick()
	}
	return m, nil
}

func (m *Model) selectedBody() *sim.Body {
	bodies := m.world.Bodies()
	if len(bodies) == 0 {
		return nil
	}
	return bodies[m.body%len(bodies)]
}

func (m *Model) params() []param {
	b := m.selectedBody()
	if b == nil {
		return nil
	}
	out := []param{
		{key: "angle", state: true},
		{key: "angular_velocity", state: true},
		{key: "length"},
		{key: "friction"},
		{key: "control_power"},
	}
	if c := b.Controller(); c != nil {
		for _, k := range sortedKeys(c.GetParams()) {
			out = append(out, param{key: k, controller: true})
		}
	}
	return out
}

func (m *Model) cycleBody() {
	if n := len(m.world.Bodies()); n > 0 {
		m.body = (m.body + 1) % n
		m.selected = 0
	}
}

func (m *Model) cycleParam() {
	if n := len(m.params()); n > 0 {
		m.selected = (m.selected + 1) % n
	}
}

func paramValue(b *sim.Body, p param) float64 {
	switch {
	case p.state && p.key == "angle":
		return b.State.Angle
	case p.state:
		return b.State.AngularVelocity
	case p.controller:
		return b.Controller().GetParams()[p.key]
	}
	return b.Params.GetParams()[p.key]
}

// adjustParam nudges the selected value by 5% of its magnitude in direction
// dir, with a floor so zero values can move.
func (m *Model) adjustParam(dir float64) {
	b := m.selectedBody()
	ps := m.params()
	if b == nil || len(ps) == 0 {
		return
	}
	p := ps[m.selected%len(ps)]

	val := paramValue(b, p)
	next := val + dir*math.Max(0.05*math.Abs(val), 0.01)

	var err error
	switch {
	case p.state && p.key == "angle":
		b.State.Angle = next
	case p.state:
		b.State.AngularVelocity = next
	case p.controller:
		err = b.Controller().SetParam(p.key, next)
	default:
		err = b.Params.SetParam(p.key, next)
	}
	if err != nil {
		m.status = err.Error()
		return
	}
	m.status = fmt.Sprintf("%s.%s = %.3f", b.Name, p.key, next)
}

// push applies a manual control pulse to an uncontrolled body.
func (m *Model) push(dir float64) {
	b := m.selectedBody()
	if b == nil || b.Kind() != sim.KindNone {
		return
	}
	b.SetManualControl(dir)
	m.pushes[b.Name] = pushTicks
}

func (m *Model) relinearize() {
	b := m.selectedBody()
	if b == nil || b.Kind() != sim.KindLQR {
		return
	}
	b.LQR().Relinearize(b.Params)
	m.status = b.Name + ": model relinearized"
}

func (m *Model) step() {
	for name, n := range m.pushes {
		if n == 0 {
			if b, ok := m.world.Body(name); ok {
				b.SetManualControl(0)
			}
			delete(m.pushes, name)
			continue
		}
		m.pushes[name] = n - 1
	}

	m.world.Step()

	for _, b := range m.world.Bodies() {
		x, y := b.Cartesian()
		trail := append(m.trails[b.Name], point{b.OffsetX + x, y})
		if len(trail) > trailLength {
			trail = trail[1:]
		}
		m.trails[b.Name] = trail
	}
}

func (m *Model) reset() {
	m.world.Reset()
	for k := range m.pushes {
		delete(m.pushes, k)
	}
	for k := range m.trails {
		delete(m.trails, k)
	}
	m.status = "reset"
}

// fit frames every body at full reach.
func (m *Model) fit() {
	minX, maxX, reach := math.Inf(1), math.Inf(-1), 1.0
	for _, b := range m.world.Bodies() {
		l := b.Params.Length
		minX = math.Min(minX, b.OffsetX-l)
		maxX = math.Max(maxX, b.OffsetX+l)
		reach = math.Max(reach, l)
	}
	if math.IsInf(minX, 0) {
		minX, maxX = -1, 1
	}
	dw, dh := m.canvas.Dots()
	m.canvas.SetView(Fit(minX-1, maxX+1, -reach-1, reach+1, dw, dh))
}

func (m *Model) draw() {
	m.canvas.Clear()
	m.fit()

	for _, b := range m.world.Bodies() {
		px := b.OffsetX
		for _, pt := range m.trails[b.Name] {
			m.canvas.Point(pt.x, pt.y, 0)
		}
		if tx, ty, ok := b.TargetCartesian(); ok {
			m.canvas.Segment(px, 0, px+tx, ty, 2)
		}
		x, y := b.Cartesian()
		m.canvas.Segment(px, 0, px+x, y, 0)
		m.canvas.Point(px, 0, 1)
		m.canvas.Point(px+x, y, 2)
	}
}

// View renders the TUI interface.
func (m Model) View() string {
	m.draw()
	st := m.styles
	canvasView := st.canvas.Render(m.canvas.String())

	var s strings.Builder
	s.WriteString(st.header.Render(strings.ToUpper("pendulab · "+m.scene)) + "\n")
	if m.running {
		s.WriteString(st.running.Render("RUNNING"))
	} else {
		s.WriteString(st.paused.Render("PAUSED"))
	}
	s.WriteString(fmt.Sprintf("  t=%.2fs\n\n", m.world.Time()))

	sel := m.selectedBody()
	for _, b := range m.world.Bodies() {
		marker := "  "
		if b == sel {
			marker = "> "
		}
		line := fmt.Sprintf("%s%-6s %-4s θ=%6.3f ω=%6.3f", marker, b.Name, b.Kind(), b.State.Angle, b.State.AngularVelocity)
		if b == sel {
			s.WriteString(st.active.Render(line) + "\n")
		} else {
			s.WriteString(st.value.Render(line) + "\n")
		}

		s.WriteString("  " + st.label.Render("control") + st.value.Render(fmt.Sprintf("%s %+.2f", Bar(b.Control(), 16), b.Control())) + "\n")
		if e, ok := b.Error(); ok {
			s.WriteString("  " + st.label.Render("error") + st.value.Render(fmt.Sprintf("%+.4f", e)) + "\n")
		}
		if n := b.Failures(); n > 0 {
			s.WriteString("  " + st.failing.Render(fmt.Sprintf("held control on %d ticks", n)) + "\n")
		}
	}

	if sel != nil {
		s.WriteString("\nPARAMETERS · " + sel.Name + "\n")
		for i, p := range m.params() {
			line := fmt.Sprintf("%-14s %9.4f", p.key, paramValue(sel, p))
			if i == m.selected {
				s.WriteString(st.active.Render("> "+line) + "\n")
			} else {
				s.WriteString("  " + st.label.Render(line) + "\n")
			}
		}

		if chart := historyChart(sel); chart != "" {
			s.WriteString(st.graph.Render(chart) + "\n")
		}
	}

	if m.status != "" {
		s.WriteString(st.label.Render(m.status) + "\n")
	}
	s.WriteString(st.help.Render("SP:Pause R:Reset Q:Quit ?:Help\nTab:Param B:Body ↑↓:Tune ←→:Push"))

	mainView := lipgloss.JoinHorizontal(lipgloss.Top, canvasView, st.stats.Render(s.String()))
	if m.showHelp {
		return helpText + "\n\n" + mainView
	}
	return mainView
}

const helpText = `
╔══════════════════════════════════════╗
║           KEYBOARD SHORTCUTS         ║
╠══════════════════════════════════════╣
║  Space    - Pause/Resume simulation  ║
║  R        - Reset every pendulum     ║
║  Q        - Quit                     ║
║  Tab      - Cycle parameters         ║
║  B        - Cycle pendulums          ║
║  Up/K     - Increase parameter (+5%) ║
║  Down/J   - Decrease parameter (-5%) ║
║  Left/h   - Push left (no control)   ║
║  Right/l  - Push right (no control)  ║
║  Shift+L  - Relinearize LQR model    ║
║  T        - Cycle themes             ║
║  ?        - Toggle this help         ║
╚══════════════════════════════════════╝`

// historyChart plots the most recent control values, and the error when a
// PID is attached.
func historyChart(b *sim.Body) string {
	h := b.History()
	control := tail(h.Control.Values(), graphPoints)
	if len(control) < 2 {
		return ""
	}
	if h.Error == nil {
		return asciigraph.Plot(control, asciigraph.Height(4), asciigraph.Width(36), asciigraph.Caption("control"))
	}
	errs := tail(h.Error.Values(), graphPoints)
	return asciigraph.PlotMany([][]float64{control, errs},
		asciigraph.Height(4), asciigraph.Width(36), asciigraph.Caption("control / error"),
		asciigraph.SeriesColors(asciigraph.Default, asciigraph.Red))
}

func tail(v []float64, n int) []float64 {
	if len(v) > n {
		return v[len(v)-n:]
	}
	return v
}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Run starts the live view on the terminal's alternate screen.
func Run(w *sim.World, scene string) error {
	_, err := tea.NewProgram(NewModel(w, scene), tea.WithAltScreen()).Run()
	return err
}
