// Package viz is the live terminal view of a running world.
//
// The view is a Bubble Tea program that advances the world once per tick in
// real time and renders every pendulum on a Braille [Canvas], with the
// controller's set point drawn as a dashed spoke. It is also the settings
// surface: parameter and gain changes are applied between ticks.
//
// # Key Bindings
//
//	Space   - Pause/Resume
//	R       - Reset every pendulum to its initial state
//	Tab/B   - Cycle parameter / pendulum
//	↑/↓     - Tune the selected parameter by 5%
//	←/→     - Push an uncontrolled pendulum
//	Shift+L - Relinearize the selected LQR model against current parameters
//	T       - Cycle color themes
//	?       - Show help overlay
package viz
