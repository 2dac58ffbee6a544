package sim

import (
	"github.com/san-kum/pendulab/internal/control"
	"github.com/san-kum/pendulab/internal/dynamo"
	"github.com/san-kum/pendulab/internal/physics"
)

// Body is one simulated pendulum: its state and parameters, at most one
// attached controller, and the history recorded for it.
//
// State and Params may be written between ticks by a settings surface.
type Body struct {
	Name    string
	State   dynamo.State
	Params  dynamo.Params
	OffsetX float64

	kind ControllerKind
	pid  *control.PID
	lqr  *control.LQR

	control  float64
	manual   float64
	initial  dynamo.State
	history  *History
	metrics  []Metric
	lastErr  error
	failures int
}

func NewBody(name string, x dynamo.State, p dynamo.Params, historyCapacity int) *Body {
	return &Body{
		Name:    name,
		State:   x,
		Params:  p,
		initial: x,
		history: NewHistory(historyCapacity),
	}
}

// AttachPID replaces any attached controller with pid.
func (b *Body) AttachPID(pid *control.PID) *Body {
	b.kind, b.pid, b.lqr = KindPID, pid, nil
	b.history.trackPID(true)
	return b
}

// AttachLQR replaces any attached controller with lqr.
func (b *Body) AttachLQR(lqr *control.LQR) *Body {
	b.kind, b.pid, b.lqr = KindLQR, nil, lqr
	b.history.trackPID(false)
	return b
}

func (b *Body) Detach() *Body {
	b.kind, b.pid, b.lqr = KindNone, nil, nil
	b.history.trackPID(false)
	return b
}

func (b *Body) Kind() ControllerKind { return b.kind }

// PID returns the attached PID, or nil.
func (b *Body) PID() *control.PID { return b.pid }

// LQR returns the attached LQR, or nil.
func (b *Body) LQR() *control.LQR { return b.lqr }

// Control is the saturated control value applied on the last tick.
func (b *Body) Control() float64 { return b.control }

// SetManualControl sets the input held on an uncontrolled body. It is
// saturated like any other control value and ignored while a controller is
// attached.
func (b *Body) SetManualControl(v float64) { b.manual = dynamo.Clamp(v) }

func (b *Body) ManualControl() float64 { return b.manual }

// Target returns the attached controller's set point.
func (b *Body) Target() (float64, bool) {
	switch b.kind {
	case KindPID:
		return b.pid.Target(), true
	case KindLQR:
		return b.lqr.Target(), true
	}
	return 0, false
}

// SetTarget moves the set point of the attached controller, if any.
func (b *Body) SetTarget(v float64) {
	switch b.kind {
	case KindPID:
		b.pid.SetTarget(v)
	case KindLQR:
		b.lqr.SetTarget(v)
	}
}

// Error is angle − set point against the attached controller.
func (b *Body) Error() (float64, bool) {
	target, ok := b.Target()
	if !ok {
		return 0, false
	}
	return b.State.Angle - target, true
}

// Controller returns the attached controller for tuning by name.
func (b *Body) Controller() dynamo.Configurable {
	switch b.kind {
	case KindPID:
		return b.pid
	case KindLQR:
		return b.lqr
	}
	return nil
}

func (b *Body) History() *History { return b.history }

// Initial is the state Reset returns to.
func (b *Body) Initial() dynamo.State { return b.initial }

func (b *Body) SetInitial(x dynamo.State) { b.initial = x }

func (b *Body) AddMetric(m Metric) { b.metrics = append(b.metrics, m) }

func (b *Body) Metrics() map[string]float64 {
	out := make(map[string]float64, len(b.metrics))
	for _, m := range b.metrics {
		out[m.Name()] = m.Value()
	}
	return out
}

// LastError is the most recent controller failure, wrapped with its tick.
func (b *Body) LastError() error { return b.lastErr }

// Failures counts ticks on which the controller fell back to a held value.
func (b *Body) Failures() int { return b.failures }

// Cartesian is the bob position relative to the pivot.
func (b *Body) Cartesian() (x, y float64) {
	return physics.ToCartesian(b.Params.Length, b.State.Angle)
}

// TargetCartesian is where the bob would sit at the set point.
func (b *Body) TargetCartesian() (x, y float64, ok bool) {
	target, ok := b.Target()
	if !ok {
		return 0, 0, false
	}
	x, y = physics.ToCartesian(b.Params.Length, target)
	return x, y, true
}

func (b *Body) Energy() float64 {
	return physics.Energy(b.State, b.Params)
}

// Reset restores the initial state and clears control, controller memory,
// history, metrics and failure bookkeeping. Parameters and gains are kept.
func (b *Body) Reset() {
	b.State = b.initial
	b.control = 0
	b.manual = 0
	switch b.kind {
	case KindPID:
		b.pid.Reset()
	case KindLQR:
		b.lqr.Reset()
	}
	b.history.Reset()
	for _, m := range b.metrics {
		m.Reset()
	}
	b.lastErr = nil
	b.failures = 0
}

// step runs one tick: controller, clamp, integrate, record. The controller
// sees the pre-tick state.
func (b *Body) step(tick int, dt float64) {
	var (
		raw float64
		out control.PIDOutput
		err error
	)

	switch b.kind {
	case KindPID:
		out = b.pid.Compute(b.State, dt)
		raw = out.Control
	case KindLQR:
		raw, err = b.lqr.Compute(b.State)
		if err != nil {
			b.failures++
			b.lastErr = &dynamo.SimulationError{Tick: tick, Body: b.Name, Wrapped: err}
		}
	default:
		raw = b.manual
	}

	b.control = dynamo.Clamp(raw)
	if b.kind == KindLQR {
		b.lqr.Hold(b.control)
	}

	b.State = physics.Step(b.State, b.Params, b.control, dt)

	b.history.Control.Append(b.control)
	if b.kind == KindPID {
		// recorded as set point − angle, the tracking error seen from the target
		b.history.Error.Append(-out.Error)
		b.history.Accumulator.Append(out.Accumulator)
	}

	if len(b.metrics) == 0 {
		return
	}
	target, hasTarget := b.Target()
	s := Sample{
		Tick:      tick,
		Time:      float64(tick+1) * dt,
		Body:      b.Name,
		State:     b.State,
		Params:    b.Params,
		Control:   b.control,
		Target:    target,
		HasTarget: hasTarget,
		Err:       err,
	}
	for _, m := range b.metrics {
		m.Observe(s)
	}
}
