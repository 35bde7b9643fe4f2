package sim

import (
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/mwaldron/f16sim/internal/autopilot"
	"github.com/mwaldron/f16sim/internal/f16"
	"github.com/mwaldron/f16sim/internal/ode"
)

// IntegratorKind selects the stepping strategy.
type IntegratorKind string

const (
	RK45  IntegratorKind = "rk45"
	Euler IntegratorKind = "euler"
)

// timeTol is the coincidence tolerance for output sample times.
const timeTol = 1e-7

// Config controls engine construction. Step is the uniform output sample
// interval; for the Euler strategy it is also the integration step.
type Config struct {
	Step           float64
	Integrator     IntegratorKind
	ExtendedStates bool
	V2Integrators  bool
	ReportErrors   bool
	Logger         *slog.Logger
}

func DefaultConfig() Config {
	return Config{
		Step:         1.0 / 30.0,
		Integrator:   RK45,
		ReportErrors: true,
	}
}

// Engine owns the integrator instance and the accumulated trajectory. All
// fields are set at construction; histories only ever grow, and recorded
// states are copies that are never mutated afterwards.
type Engine struct {
	cfg     Config
	ap      autopilot.Autopilot
	modelID string
	numVars int

	deriv         ode.DerivFunc
	newIntegrator func(t float64, x []float64) ode.Integrator
	integ         ode.Integrator

	times    []float64
	states   []f16.State
	modes    []autopilot.Mode
	extended []ExtendedSample

	apDone      bool
	failHandled bool
	curSimTime  float64
	runtime      time.Duration
	log          *slog.Logger
}

// New builds an engine at t=0. A short initial state is zero-padded to the
// full per-aircraft length (base states plus the controller's integrator
// states); the result must be an exact multiple of that length. The
// autopilot's mode is advanced once at t=0, so the first recorded mode may
// already differ from its construction mode.
func New(initial []float64, ap autopilot.Autopilot, cfg Config) (*Engine, error) {
	if cfg.Step <= 0 {
		return nil, fmt.Errorf("sim: step must be positive, got %g", cfg.Step)
	}
	if cfg.Integrator == "" {
		cfg.Integrator = RK45
	}
	if cfg.Integrator != RK45 && cfg.Integrator != Euler {
		return nil, fmt.Errorf("sim: unknown integrator %q", cfg.Integrator)
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	llc := ap.LLC()
	numVars := f16.NumStates + llc.NumIntegrators()

	x0 := make(f16.State, 0, len(initial))
	x0 = append(x0, initial...)
	if len(x0) < numVars {
		x0 = append(x0, make(f16.State, numVars-len(x0))...)
	}
	if len(x0)%numVars != 0 {
		return nil, fmt.Errorf("sim: initial state (%d vars) must be a multiple of %d vars", len(x0), numVars)
	}

	e := &Engine{
		cfg:     cfg,
		ap:      ap,
		modelID: llc.ModelID,
		numVars: numVars,
		times:   []float64{0},
		states:  []f16.State{x0},
		log:     cfg.Logger,
	}

	e.deriv = derivFunc(ap, e.modelID, cfg.V2Integrators)
	e.newIntegrator = func(t float64, x []float64) ode.Integrator {
		if cfg.Integrator == Euler {
			return ode.NewFixedStepEuler(e.deriv, t, x, cfg.Step)
		}
		return ode.NewAdaptiveRungeKutta(e.deriv, t, x)
	}

	// mode can change at time 0
	ap.AdvanceDiscreteMode(0, x0)
	e.modes = []autopilot.Mode{ap.Mode()}

	if cfg.ExtendedStates {
		ext, err := extendedStates(ap, 0, x0, e.modelID, cfg.V2Integrators)
		if err != nil {
			return nil, err
		}
		e.extended = []ExtendedSample{ext}
	}

	e.integ = e.newIntegrator(0, x0.Clone())
	return e, nil
}

// Status reports the engine's state machine: Running until the autopilot
// declares completion or the integrator fails; Result maps a still-running
// engine that covered its horizon to Finished.
func (e *Engine) Status() ode.Status {
	switch {
	case e.apDone:
		return ode.AutopilotFinished
	case e.integ.Status() == ode.Failed:
		return ode.Failed
	default:
		return ode.Running
	}
}

// Err returns the failure cause when Status is Failed.
func (e *Engine) Err() error { return e.integ.Err() }

func (e *Engine) Times() []float64        { return e.times }
func (e *Engine) States() []f16.State     { return e.states }
func (e *Engine) Modes() []autopilot.Mode { return e.modes }
func (e *Engine) Runtime() time.Duration  { return e.runtime }

// NumAircraft is the number of concatenated aircraft in the state vector.
func (e *Engine) NumAircraft() int { return len(e.states[0]) / e.numVars }

// SimulateTo extends the trajectory up to tmax on the uniform output grid.
// It may be called repeatedly with non-decreasing horizons; asking again
// for an already covered horizon records nothing.
//
// Contract violations (horizon regression, entry on a terminal engine)
// return an error. An integrator or model failure does not: the call that
// surfaces it moves Status to Failed, warns once, and leaves every already
// recorded sample intact. Driving the engine again after that is a
// contract error like any other terminal entry.
func (e *Engine) SimulateTo(tmax float64) error {
	start := time.Now()
	defer func() { e.runtime += time.Since(start) }()

	if tmax < e.curSimTime {
		return fmt.Errorf("sim: horizon %g before current simulation time %g", tmax, e.curSimTime)
	}
	switch e.Status() {
	case ode.AutopilotFinished:
		return fmt.Errorf("sim: status was %q in call to SimulateTo", ode.AutopilotFinished)
	case ode.Failed:
		if e.failHandled {
			return fmt.Errorf("sim: status was %q in call to SimulateTo", ode.Failed)
		}
		// a construction-time failure is surfaced by the first call: the
		// partial trajectory stays usable and no error is returned
		e.reportFailure()
		return nil
	}
	e.curSimTime = tmax

	for {
		last := e.times[len(e.times)-1]
		next := last + e.cfg.Step

		if math.Abs(last-tmax) > timeTol && next > tmax {
			// use a small last step
			next = tmax
		}
		if next >= tmax+timeTol {
			break
		}

		// advance the integrator until it passes the next sample time
		for next >= e.integ.T()+timeTol {
			e.integ.Step()
			if e.integ.Status() != ode.Running {
				break
			}
		}
		if e.integ.Status() != ode.Running {
			break
		}

		var xNew f16.State
		if math.Abs(e.integ.T()-next) < timeTol {
			xNew = f16.State(e.integ.X()).Clone()
		} else {
			out, err := e.integ.DenseOutput(next)
			if err != nil {
				return fmt.Errorf("sim: dense output at t=%g: %w", next, err)
			}
			xNew = f16.State(out)
		}

		e.times = append(e.times, next)
		e.states = append(e.states, xNew)

		modeChanged := e.ap.AdvanceDiscreteMode(next, xNew)
		e.modes = append(e.modes, e.ap.Mode())

		// re-run dynamics at the recorded state for the non-state outputs
		if e.cfg.ExtendedStates {
			ext, err := extendedStates(e.ap, next, xNew, e.modelID, e.cfg.V2Integrators)
			if err != nil {
				return err
			}
			e.extended = append(e.extended, ext)
		}

		if e.ap.IsFinished(next, xNew) {
			e.apDone = true
			break
		}

		if modeChanged {
			// the old integrator's derivative branch is stale now
			e.integ = e.newIntegrator(next, xNew.Clone())
		}
	}

	if e.integ.Status() == ode.Failed {
		e.reportFailure()
	}
	return nil
}

func (e *Engine) reportFailure() {
	if e.failHandled {
		return
	}
	e.failHandled = true
	if !e.cfg.ReportErrors {
		return
	}
	e.log.Warn("integrator failed",
		"t", e.times[len(e.times)-1],
		"err", e.integ.Err())
}
