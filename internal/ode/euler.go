package ode

import "math"

// FixedStepEuler is an explicit Euler integrator with a fixed step supplied
// at construction. Dense output is linear interpolation over the last step.
type FixedStepEuler struct {
	f       DerivFunc
	h       float64
	t, tOld float64
	x, xOld []float64
	status  Status
	err     error
	stepped bool
}

func NewFixedStepEuler(f DerivFunc, t0 float64, x0 []float64, step float64) *FixedStepEuler {
	e := &FixedStepEuler{
		f:      f,
		h:      step,
		t:      t0,
		tOld:   t0,
		x:      cloneVec(x0),
		xOld:   cloneVec(x0),
		status: Running,
	}
	if step <= 0 {
		e.status = Failed
		e.err = ErrStepTooSmall
	}
	return e
}

func (e *FixedStepEuler) Status() Status { return e.status }
func (e *FixedStepEuler) Err() error     { return e.err }
func (e *FixedStepEuler) T() float64     { return e.t }
func (e *FixedStepEuler) X() []float64   { return e.x }

func (e *FixedStepEuler) Step() {
	if e.status != Running {
		return
	}
	xd, err := e.f(e.t, e.x)
	if err != nil {
		e.status = Failed
		e.err = err
		return
	}
	xNew := make([]float64, len(e.x))
	for i := range e.x {
		xNew[i] = e.x[i] + e.h*xd[i]
	}
	e.tOld = e.t
	e.xOld = e.x
	e.t += e.h
	e.x = xNew
	e.stepped = true
}

func (e *FixedStepEuler) DenseOutput(t float64) ([]float64, error) {
	if !e.stepped {
		return nil, ErrNoStep
	}
	if t < e.tOld-1e-12 || t > e.t+1e-12 {
		return nil, ErrOutsideStep
	}
	theta := (t - e.tOld) / (e.t - e.tOld)
	theta = math.Min(math.Max(theta, 0), 1)
	out := make([]float64, len(e.x))
	for i := range out {
		out[i] = e.xOld[i] + theta*(e.x[i]-e.xOld[i])
	}
	return out, nil
}
