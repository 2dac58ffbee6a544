package dynamo

import (
	"fmt"
	"math"
)

// Fixed tick and gravity shared by the integrator and the LQR linearization.
const (
	Dt      = 0.05
	Gravity = 9.8

	// MaxControl bounds the actuator signal to [-MaxControl, MaxControl].
	MaxControl = 1.0
)

// State is the pendulum's physical state. Angle is measured from the hanging
// position, so the inverted equilibrium sits at π.
type State struct {
	Angle           float64 `json:"angle"`
	AngularVelocity float64 `json:"angular_velocity"`
}

func (s State) IsValid() bool {
	for _, v := range [...]float64{s.Angle, s.AngularVelocity} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

func (s State) String() string {
	return fmt.Sprintf("θ=%.4f ω=%.4f", s.Angle, s.AngularVelocity)
}

// DefaultState is the spawn state: tipped half a radian past upright and drifting.
func DefaultState() State {
	return State{Angle: math.Pi + 0.5, AngularVelocity: 0.1}
}

// Params are the physical parameters of one pendulum.
type Params struct {
	Length       float64 `json:"length"`
	Friction     float64 `json:"friction"`
	ControlPower float64 `json:"control_power"`
}

func DefaultParams() Params {
	return Params{
		Length:       10.0,
		Friction:     0.0,
		ControlPower: 5.0,
	}
}

// Validate enforces the domain the core relies on: length > 0,
// friction >= 0 and control_power >= 0.
func (p Params) Validate() error {
	switch {
	case !(p.Length > 0):
		return fmt.Errorf("length must be positive, got %g: %w", p.Length, ErrParameterBounds)
	case !(p.Friction >= 0):
		return fmt.Errorf("friction must be non-negative, got %g: %w", p.Friction, ErrParameterBounds)
	case !(p.ControlPower >= 0):
		return fmt.Errorf("control_power must be non-negative, got %g: %w", p.ControlPower, ErrParameterBounds)
	}
	return nil
}

func (p Params) GetParams() map[string]float64 {
	return map[string]float64{
		"length":        p.Length,
		"friction":      p.Friction,
		"control_power": p.ControlPower,
	}
}

// SetParam updates a parameter by name. The receiver is left unchanged when
// the new value would leave the valid domain.
func (p *Params) SetParam(name string, value float64) error {
	next := *p
	switch name {
	case "length":
		next.Length = value
	case "friction":
		next.Friction = value
	case "control_power":
		next.ControlPower = value
	default:
		return fmt.Errorf("unknown param: %s", name)
	}
	if err := next.Validate(); err != nil {
		return err
	}
	*p = next
	return nil
}

// Clamp saturates a raw control value into [-MaxControl, MaxControl].
// NaN saturates to zero so a broken controller output never reaches the plant.
func Clamp(u float64) float64 {
	if math.IsNaN(u) {
		return 0
	}
	return math.Max(-MaxControl, math.Min(MaxControl, u))
}

// Configurable is implemented by anything the settings surface can tune by name.
type Configurable interface {
	GetParams() map[string]float64
	SetParam(name string, value float64) error
}
