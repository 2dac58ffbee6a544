// Package physics implements the single-pendulum plant.
//
// The dynamics are θ'' = -g·sin(θ)/L - friction·θ' + u·control_power with
// the control u already saturated to [-1, 1]. [Step] integrates them with
// semi-implicit (symplectic) Euler at a fixed tick, which keeps the energy
// of an undamped swing bounded over long runs.
//
// [Linearize] produces the discrete (A, B) pair the LQR controller is
// designed against. It uses the same [dynamo.Dt] and [dynamo.Gravity] as
// [Step].
package physics
