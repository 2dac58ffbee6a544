package control

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/pendulab/internal/dynamo"
	"github.com/san-kum/pendulab/internal/physics"
)

// LQR drives the pendulum to a resting set point with state feedback
// u = −K·[θ − set point, ω].
//
// A and B are linearized once, from the parameters and tick length passed to
// NewLQR. The tick length must match the one the body is stepped with. Later
// parameter changes on the body are not picked up unless Relinearize is
// called. K is re-derived from (A, B, Q, R) on every Compute, so cost
// changes apply on the next tick.
type LQR struct {
	Tolerance     float64
	MaxIterations int

	target float64
	dt     float64
	a, b   *mat.Dense
	q      *mat.Dense
	r      *mat.Dense

	last    float64
	lastErr error
}

func NewLQR(p dynamo.Params, target, dt float64) *LQR {
	a, b := physics.Linearize(p, dt)
	return &LQR{
		Tolerance:     DefaultTolerance,
		MaxIterations: DefaultMaxIterations,
		target:        target,
		dt:            dt,
		a:             a,
		b:             b,
		q:             mat.NewDense(2, 2, []float64{1, 0, 0, 1}),
		r:             mat.NewDense(1, 1, []float64{1}),
	}
}

// Gain solves the Riccati equation for the current model and costs.
func (l *LQR) Gain() (*mat.Dense, error) {
	p, _, err := SolveDARE(l.a, l.b, l.q, l.r, l.Tolerance, l.MaxIterations)
	if err != nil {
		return nil, err
	}
	return Gain(l.a, l.b, l.r, p)
}

// Compute returns the raw control for state x. When the gain cannot be
// derived it returns the previous tick's control (zero before the first
// success) together with the error.
func (l *LQR) Compute(x dynamo.State) (float64, error) {
	k, err := l.Gain()
	if err != nil {
		l.lastErr = err
		return l.last, err
	}

	u := -(k.At(0, 0)*(x.Angle-l.target) + k.At(0, 1)*x.AngularVelocity)
	l.last = u
	l.lastErr = nil
	return u, nil
}

// Hold records the control value actually applied, so a failing tick
// repeats what the plant last saw.
func (l *LQR) Hold(u float64) { l.last = u }

func (l *LQR) Reset() {
	l.last = 0
	l.lastErr = nil
}

func (l *LQR) LastError() error { return l.lastErr }

func (l *LQR) Target() float64 { return l.target }

func (l *LQR) SetTarget(v float64) { l.target = v }

// SetCosts sets the diagonal of Q and the scalar R.
func (l *LQR) SetCosts(posCost, velCost, powerCost float64) {
	l.q = mat.NewDense(2, 2, []float64{posCost, 0, 0, velCost})
	l.r = mat.NewDense(1, 1, []float64{powerCost})
}

// SetQ sets entry (i, j) of the state cost matrix.
func (l *LQR) SetQ(i, j int, v float64) error {
	if i < 0 || i > 1 || j < 0 || j > 1 {
		return fmt.Errorf("q index (%d, %d) out of range", i, j)
	}
	l.q.Set(i, j, v)
	return nil
}

func (l *LQR) SetR(v float64) { l.r.Set(0, 0, v) }

func (l *LQR) Q() mat.Matrix { return mat.DenseCopyOf(l.q) }
func (l *LQR) R() float64    { return l.r.At(0, 0) }

// System returns copies of the linearized model.
func (l *LQR) System() (a, b *mat.Dense) {
	return mat.DenseCopyOf(l.a), mat.DenseCopyOf(l.b)
}

// Relinearize rebuilds A and B from p at the tick length given to NewLQR.
func (l *LQR) Relinearize(p dynamo.Params) {
	l.a, l.b = physics.Linearize(p, l.dt)
}

// Dt is the tick length the model is linearized at.
func (l *LQR) Dt() float64 { return l.dt }

func (l *LQR) GetParams() map[string]float64 {
	return map[string]float64{
		"set_point":  l.target,
		"q_angle":    l.q.At(0, 0),
		"q_velocity": l.q.At(1, 1),
		"r":          l.r.At(0, 0),
	}
}

func (l *LQR) SetParam(name string, value float64) error {
	switch name {
	case "set_point":
		l.target = value
	case "q_angle":
		l.q.Set(0, 0, value)
	case "q_velocity":
		l.q.Set(1, 1, value)
	case "r":
		l.r.Set(0, 0, value)
	default:
		return fmt.Errorf("unknown lqr param: %s", name)
	}
	return nil
}

// DefaultLQR builds the controller for the default pendulum, aimed upright.
func DefaultLQR() *LQR {
	return NewLQR(dynamo.DefaultParams(), math.Pi, dynamo.Dt)
}
