// Package ode provides the pluggable integrator strategies used by the
// simulation engine:
//
//   - [AdaptiveRungeKutta]: Dormand-Prince embedded 4(5) pair with
//     automatic step-size control and fourth-order dense output
//   - [FixedStepEuler]: explicit Euler with a fixed step and linear
//     dense output
//
// Both satisfy [Integrator]: one internal step per Step call, dense
// interpolation over the last step, and a status lifecycle in which
// derivative errors and numerical failures become Failed status instead of
// propagating. Integrators are cheap to construct; the engine throws one
// away and builds a fresh one whenever a discrete mode change invalidates
// the derivative function.
package ode
