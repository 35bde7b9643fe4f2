// Package sim advances a hybrid aircraft simulation: continuous dynamics
// under an adaptive or fixed-step integrator, interleaved with the
// autopilot's discrete mode switches.
//
// The [Engine] owns the integrator and the recorded trajectory. It steps
// the integrator past each uniform output time, resamples onto that grid
// with dense output, advances the autopilot's mode at every recorded
// sample, and rebuilds the integrator whenever the mode changes, since a
// mode switch can change which control law shapes the derivative.
//
//	e, _ := sim.New(x0, ap, sim.DefaultConfig())
//	_ = e.SimulateTo(5.0)
//	res := e.Result()
//
// # Thread Safety
//
// Engine instances are NOT thread-safe: one engine, one goroutine. The
// autopilot passed in is mutated by the engine and must not be driven from
// elsewhere during a SimulateTo call.
package sim
