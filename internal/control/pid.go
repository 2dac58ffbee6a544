package control

import (
	"fmt"
	"math"

	"github.com/san-kum/pendulab/internal/dynamo"
)

// IntegralGate is the |error| below which the integral term arms itself.
const IntegralGate = 0.05

// PIDOutput carries one tick of PID computation. Control is the raw sum of
// the three terms, before saturation.
type PIDOutput struct {
	Control      float64
	Error        float64
	Proportional float64
	Derivative   float64
	Accumulator  float64
}

// PID is a set-point controller with a gated, headroom-clamped integral.
//
// The error is angle − set point, so gains are negative in practice. The
// derivative acts on the measured angular velocity directly.
type PID struct {
	Kp float64
	Ki float64
	Kd float64

	target      float64
	accumulator float64
	enabled     bool
}

func NewPID(kp, ki, kd, target float64) *PID {
	return &PID{
		Kp:     kp,
		Ki:     ki,
		Kd:     kd,
		target: target,
	}
}

// DefaultPID returns the gains that balance the default pendulum upright.
func DefaultPID() *PID {
	return NewPID(-8.0, -5.5, -4.0, math.Pi)
}

// Compute advances the controller by one tick of length dt against the
// pre-tick state x.
func (p *PID) Compute(x dynamo.State, dt float64) PIDOutput {
	err := x.Angle - p.target
	prop := err * p.Kp
	der := x.AngularVelocity * p.Kd
	pd := prop + der

	if math.Abs(err) < IntegralGate {
		p.enabled = true
	}

	if p.enabled {
		p.accumulator += err * p.Ki * dt
		lo, hi := Headroom(pd)
		p.accumulator = math.Max(lo, math.Min(hi, p.accumulator))
	}

	return PIDOutput{
		Control:      prop + p.accumulator + der,
		Error:        err,
		Proportional: prop,
		Derivative:   der,
		Accumulator:  p.accumulator,
	}
}

// Headroom is the interval the accumulator is held to, given the sum of the
// proportional and derivative terms. It always contains zero.
func Headroom(pd float64) (lo, hi float64) {
	return math.Min(-dynamo.MaxControl-pd, 0), math.Max(dynamo.MaxControl-pd, 0)
}

// Reset disarms the integral and zeroes the accumulator.
func (p *PID) Reset() {
	p.accumulator = 0
	p.enabled = false
}

func (p *PID) Target() float64 { return p.target }

// SetTarget moves the set point. Any change re-arms the integral gate so a
// stale accumulator does not fight the new target.
func (p *PID) SetTarget(v float64) {
	if v == p.target {
		return
	}
	p.target = v
	p.Reset()
}

func (p *PID) Accumulator() float64 { return p.accumulator }

// IntegralEnabled reports whether the integral gate has latched.
func (p *PID) IntegralEnabled() bool { return p.enabled }

func (p *PID) GetParams() map[string]float64 {
	return map[string]float64{
		"set_point": p.target,
		"kp":        p.Kp,
		"ki":        p.Ki,
		"kd":        p.Kd,
	}
}

func (p *PID) SetParam(name string, value float64) error {
	switch name {
	case "set_point":
		p.SetTarget(value)
	case "kp", "proportional_gain":
		p.Kp = value
	case "ki", "integral_gain":
		p.Ki = value
	case "kd", "derivative_gain":
		p.Kd = value
	default:
		return fmt.Errorf("unknown pid param: %s", name)
	}
	return nil
}
