// Package sim runs pendulum bodies in fixed ticks.
//
// Each [Body] carries its own state, parameters, history and at most one
// controller, tagged by [ControllerKind]. On every tick a body runs, in
// order: controller against the pre-tick state, saturation, integration,
// history append. Bodies share nothing, so a failing controller on one body
// never affects another.
//
// # Example
//
//	w, _ := sim.NewWorld(sim.DefaultConfig())
//	b, _ := w.NewBody("pid", dynamo.DefaultState(), dynamo.DefaultParams())
//	b.AttachPID(control.DefaultPID())
//	_ = w.Run(ctx, 500)
//	points := b.History().Control.Points(w.Dt())
//
// History is bounded: each [Series] keeps the most recent values up to its
// capacity.
package sim
