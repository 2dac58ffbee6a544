package physics

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/pendulab/internal/dynamo"
)

// Acceleration is the uncontrolled angular acceleration:
// -g·sin(θ)/L - friction·ω.
func Acceleration(x dynamo.State, p dynamo.Params, gravity float64) float64 {
	return -gravity*math.Sin(x.Angle)/p.Length - p.Friction*x.AngularVelocity
}

// Step advances the state by one semi-implicit Euler step. Velocity is
// updated first and the new velocity moves the angle. The control value is
// expected to be clamped already.
func Step(x dynamo.State, p dynamo.Params, control, dt float64) dynamo.State {
	omega := x.AngularVelocity + (Acceleration(x, p, dynamo.Gravity)+control*p.ControlPower)*dt
	return dynamo.State{
		Angle:           x.Angle + omega*dt,
		AngularVelocity: omega,
	}
}

// Energy is the mechanical energy per unit mass:
// ½·L²·ω² + g·L·(1 − cos θ).
func Energy(x dynamo.State, p dynamo.Params) float64 {
	v := p.Length * x.AngularVelocity
	return 0.5*v*v + dynamo.Gravity*p.Length*(1-math.Cos(x.Angle))
}

// ToCartesian maps an angle to the bob position relative to the pivot, with
// y pointing up.
func ToCartesian(length, angle float64) (x, y float64) {
	return length * math.Sin(angle), -length * math.Cos(angle)
}

// Linearize returns the discrete linear model (A, B) of the pendulum about
// the upright position for tick dt.
func Linearize(p dynamo.Params, dt float64) (a, b *mat.Dense) {
	dt2 := dt * dt
	g := dynamo.Gravity

	a = mat.NewDense(2, 2, []float64{
		1 + g/(2*p.Length)*dt2, dt - p.Friction/2*dt2,
		g / p.Length * dt, 1 - p.Friction*dt,
	})
	b = mat.NewDense(2, 1, []float64{
		p.ControlPower / 2 * dt2,
		p.ControlPower * dt,
	})
	return a, b
}
