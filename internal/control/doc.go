// Package control provides the feedback controllers for the pendulum.
//
//   - [PID]: proportional/derivative terms with a gated integral whose
//     accumulator is held to the control headroom left by the other terms
//   - [LQR]: state feedback with the gain re-derived from the discrete
//     algebraic Riccati equation every tick
//
// [SolveDARE] and [Gain] are usable on their own for any (A, B, Q, R).
// Convergence is measured with the largest elementwise change between
// successive iterates.
//
// # Usage
//
//	pid := control.DefaultPID()
//	out := pid.Compute(x, dynamo.Dt)
//	u := dynamo.Clamp(out.Control)
//
// Controllers implement [dynamo.Configurable] for live tuning.
package control
