package ode

import "math"

// Dormand-Prince coefficients (RK45)
var (
	a2 = 1.0 / 5.0
	a3 = 3.0 / 10.0
	a4 = 4.0 / 5.0
	a5 = 8.0 / 9.0

	b21 = 1.0 / 5.0
	b31 = 3.0 / 40.0
	b32 = 9.0 / 40.0
	b41 = 44.0 / 45.0
	b42 = -56.0 / 15.0
	b43 = 32.0 / 9.0
	b51 = 19372.0 / 6561.0
	b52 = -25360.0 / 2187.0
	b53 = 64448.0 / 6561.0
	b54 = -212.0 / 729.0
	b61 = 9017.0 / 3168.0
	b62 = -355.0 / 33.0
	b63 = 46732.0 / 5247.0
	b64 = 49.0 / 176.0
	b65 = -5103.0 / 18656.0

	c1 = 35.0 / 384.0
	c3 = 500.0 / 1113.0
	c4 = 125.0 / 192.0
	c5 = -2187.0 / 6784.0
	c6 = 11.0 / 84.0

	dc1 = c1 - 5179.0/57600.0
	dc3 = c3 - 7571.0/16695.0
	dc4 = c4 - 393.0/640.0
	dc5 = c5 - -92097.0/339200.0
	dc6 = c6 - 187.0/2100.0
	dc7 = -1.0 / 40.0
)

// Interpolation matrix for fourth-order dense output.
var denseP = [7][4]float64{
	{1, -8048581381.0 / 2820520608.0, 8663915743.0 / 2820520608.0, -12715105075.0 / 11282082432.0},
	{0, 0, 0, 0},
	{0, 131558114200.0 / 32700410799.0, -68118460800.0 / 10900136933.0, 87487479700.0 / 32700410799.0},
	{0, -1754552775.0 / 470086768.0, 14199869525.0 / 1410260304.0, -10690763975.0 / 1880347072.0},
	{0, 127303824393.0 / 49829197408.0, -318862633887.0 / 49829197408.0, 701980252875.0 / 199316789632.0},
	{0, -282668133.0 / 205662961.0, 2019193451.0 / 616988883.0, -1453857185.0 / 822651844.0},
	{0, 40617522.0 / 29380423.0, -110615467.0 / 29380423.0, 69997945.0 / 29380423.0},
}

const (
	safety    = 0.9
	minFactor = 0.2
	maxFactor = 10.0
	errExp    = -1.0 / 5.0
)

// AdaptiveRungeKutta is an embedded Dormand-Prince 4(5) integrator with
// automatic step-size control and fourth-order dense output over the last
// step. The time horizon is unbounded; the caller decides when to stop
// asking for steps.
type AdaptiveRungeKutta struct {
	f          DerivFunc
	rtol, atol float64

	t, tOld    float64
	x, xOld    []float64
	fCur       []float64
	h, hLast   float64
	k          [7][]float64
	status     Status
	err        error
}

// NewAdaptiveRungeKutta constructs the integrator at (t0, x0). If the
// derivative cannot be evaluated at the initial point the integrator is
// created in Failed status.
func NewAdaptiveRungeKutta(f DerivFunc, t0 float64, x0 []float64) *AdaptiveRungeKutta {
	r := &AdaptiveRungeKutta{
		f:      f,
		rtol:   1e-7,
		atol:   1e-9,
		t:      t0,
		tOld:   t0,
		x:      cloneVec(x0),
		xOld:   cloneVec(x0),
		status: Running,
	}
	f0, err := f(t0, r.x)
	if err != nil {
		r.status = Failed
		r.err = err
		return r
	}
	r.fCur = f0
	r.h = r.initialStep(f0)
	return r
}

func cloneVec(x []float64) []float64 {
	c := make([]float64, len(x))
	copy(c, x)
	return c
}

// rmsNorm is the scaled root-mean-square norm used for both error control
// and initial step selection.
func rmsNorm(v []float64) float64 {
	if len(v) == 0 {
		return 0
	}
	sum := 0.0
	for _, e := range v {
		sum += e * e
	}
	return math.Sqrt(sum / float64(len(v)))
}

func (r *AdaptiveRungeKutta) initialStep(f0 []float64) float64 {
	n := len(r.x)
	scale := make([]float64, n)
	d0v := make([]float64, n)
	d1v := make([]float64, n)
	for i := 0; i < n; i++ {
		scale[i] = r.atol + math.Abs(r.x[i])*r.rtol
		d0v[i] = r.x[i] / scale[i]
		d1v[i] = f0[i] / scale[i]
	}
	d0 := rmsNorm(d0v)
	d1 := rmsNorm(d1v)

	var h0 float64
	if d0 < 1e-5 || d1 < 1e-5 {
		h0 = 1e-6
	} else {
		h0 = 0.01 * d0 / d1
	}

	x1 := make([]float64, n)
	for i := 0; i < n; i++ {
		x1[i] = r.x[i] + h0*f0[i]
	}
	f1, err := r.f(r.t+h0, x1)
	if err != nil {
		// trial point left the model domain; fall back to the crude guess
		return h0
	}
	d2v := make([]float64, n)
	for i := 0; i < n; i++ {
		d2v[i] = (f1[i] - f0[i]) / scale[i]
	}
	d2 := rmsNorm(d2v) / h0

	var h1 float64
	if d1 <= 1e-15 && d2 <= 1e-15 {
		h1 = math.Max(1e-6, h0*1e-3)
	} else {
		h1 = math.Pow(0.01/math.Max(d1, d2), 1.0/5.0)
	}
	return math.Min(100*h0, h1)
}

func (r *AdaptiveRungeKutta) Status() Status { return r.status }
func (r *AdaptiveRungeKutta) Err() error     { return r.err }
func (r *AdaptiveRungeKutta) T() float64     { return r.t }
func (r *AdaptiveRungeKutta) X() []float64   { return r.x }

// TOld is the left endpoint of the last internal step.
func (r *AdaptiveRungeKutta) TOld() float64 { return r.tOld }

func (r *AdaptiveRungeKutta) fail(err error) {
	r.status = Failed
	r.err = err
}

// Step advances by one internally chosen step, shrinking the trial step
// until the embedded error estimate passes tolerance.
func (r *AdaptiveRungeKutta) Step() {
	if r.status != Running {
		return
	}

	n := len(r.x)
	minStep := 10 * math.Abs(math.Nextafter(r.t, math.Inf(1))-r.t)
	h := math.Max(r.h, minStep)
	rejected := false

	for {
		if h < minStep {
			r.fail(ErrStepTooSmall)
			return
		}

		tNew := r.t + h

		k1 := r.fCur
		y := make([]float64, n)

		for i := 0; i < n; i++ {
			y[i] = r.x[i] + h*b21*k1[i]
		}
		k2, err := r.f(r.t+a2*h, y)
		if err != nil {
			r.fail(err)
			return
		}

		for i := 0; i < n; i++ {
			y[i] = r.x[i] + h*(b31*k1[i]+b32*k2[i])
		}
		k3, err := r.f(r.t+a3*h, y)
		if err != nil {
			r.fail(err)
			return
		}

		for i := 0; i < n; i++ {
			y[i] = r.x[i] + h*(b41*k1[i]+b42*k2[i]+b43*k3[i])
		}
		k4, err := r.f(r.t+a4*h, y)
		if err != nil {
			r.fail(err)
			return
		}

		for i := 0; i < n; i++ {
			y[i] = r.x[i] + h*(b51*k1[i]+b52*k2[i]+b53*k3[i]+b54*k4[i])
		}
		k5, err := r.f(r.t+a5*h, y)
		if err != nil {
			r.fail(err)
			return
		}

		for i := 0; i < n; i++ {
			y[i] = r.x[i] + h*(b61*k1[i]+b62*k2[i]+b63*k3[i]+b64*k4[i]+b65*k5[i])
		}
		k6, err := r.f(tNew, y)
		if err != nil {
			r.fail(err)
			return
		}

		xNew := make([]float64, n)
		for i := 0; i < n; i++ {
			xNew[i] = r.x[i] + h*(c1*k1[i]+c3*k3[i]+c4*k4[i]+c5*k5[i]+c6*k6[i])
		}
		k7, err := r.f(tNew, xNew)
		if err != nil {
			r.fail(err)
			return
		}

		errv := make([]float64, n)
		for i := 0; i < n; i++ {
			est := h * (dc1*k1[i] + dc3*k3[i] + dc4*k4[i] + dc5*k5[i] + dc6*k6[i] + dc7*k7[i])
			scale := r.atol + r.rtol*math.Max(math.Abs(r.x[i]), math.Abs(xNew[i]))
			errv[i] = est / scale
		}
		errNorm := rmsNorm(errv)

		if errNorm < 1 {
			var factor float64
			if errNorm == 0 {
				factor = maxFactor
			} else {
				factor = math.Min(maxFactor, safety*math.Pow(errNorm, errExp))
			}
			if rejected {
				factor = math.Min(1, factor)
			}
			r.h = h * factor
			r.hLast = h

			r.tOld = r.t
			r.xOld = r.x
			r.t = tNew
			r.x = xNew
			r.fCur = k7
			r.k = [7][]float64{k1, k2, k3, k4, k5, k6, k7}
			return
		}

		h *= math.Max(minFactor, safety*math.Pow(errNorm, errExp))
		rejected = true
	}
}

// DenseOutput evaluates the fourth-order interpolant of the last step at t.
func (r *AdaptiveRungeKutta) DenseOutput(t float64) ([]float64, error) {
	if r.hLast == 0 {
		return nil, ErrNoStep
	}
	span := r.t - r.tOld
	if (t-r.tOld)*span < 0 && math.Abs(t-r.tOld) > 1e-12 {
		return nil, ErrOutsideStep
	}
	if (t-r.t)*span > 0 && math.Abs(t-r.t) > 1e-12 {
		return nil, ErrOutsideStep
	}

	theta := (t - r.tOld) / r.hLast
	// powers of theta: theta, theta^2, theta^3, theta^4
	var pw [4]float64
	pw[0] = theta
	for j := 1; j < 4; j++ {
		pw[j] = pw[j-1] * theta
	}

	n := len(r.xOld)
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		acc := 0.0
		for j := 0; j < 4; j++ {
			qj := 0.0
			for s := 0; s < 7; s++ {
				qj += r.k[s][i] * denseP[s][j]
			}
			acc += qj * pw[j]
		}
		out[i] = r.xOld[i] + r.hLast*acc
	}
	return out, nil
}
