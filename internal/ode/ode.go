package ode

import "errors"

// Status is the lifecycle of an integrator or of the simulation driving it.
type Status string

const (
	Running           Status = "running"
	Finished          Status = "finished"
	AutopilotFinished Status = "autopilot finished"
	Failed            Status = "failed"
)

// DerivFunc is the right-hand side of the ODE system dx/dt = f(t, x).
// An error return signals that x is outside the domain the model can
// evaluate; integrators convert it to Failed status rather than
// propagating it.
type DerivFunc func(t float64, x []float64) ([]float64, error)

// Integrator advances an ODE system one internal step at a time.
//
// Step never panics and never returns an error: failures (derivative
// errors, step-size underflow) move the status to Failed and are
// retrievable through Err. After a failed step T and X still describe the
// last good point.
type Integrator interface {
	Step()
	// DenseOutput interpolates the state at a time within the last
	// internal step [TOld, T] without re-stepping.
	DenseOutput(t float64) ([]float64, error)
	Status() Status
	Err() error
	T() float64
	X() []float64
}

var (
	// ErrStepTooSmall indicates the adaptive step size underflowed.
	ErrStepTooSmall = errors.New("ode: adaptive step size below minimum")

	// ErrNoStep indicates DenseOutput was called before any step.
	ErrNoStep = errors.New("ode: no step taken yet")

	// ErrOutsideStep indicates a DenseOutput time outside the last step.
	ErrOutsideStep = errors.New("ode: time outside last step interval")
)
