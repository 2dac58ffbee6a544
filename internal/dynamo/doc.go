// Package dynamo holds the value types shared by every layer of the
// pendulum sandbox:
//
//   - [State]: angle and angular velocity of one pendulum
//   - [Params]: length, viscous friction and actuator gain
//   - [Clamp]: the single saturation point for control signals
//   - [Dt] and [Gravity]: constants shared by the integrator and the
//     LQR linearization
//
// # Errors
//
// Controller failures are reported with [ErrDidNotConverge] and
// [ErrSingularGainMatrix]. Both are recoverable: the simulation holds the
// previous control value and keeps ticking.
package dynamo
