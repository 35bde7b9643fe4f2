package sim

import (
	"fmt"
	"math"
	"time"

	"github.com/mwaldron/f16sim/internal/autopilot"
	"github.com/mwaldron/f16sim/internal/f16"
	"github.com/mwaldron/f16sim/internal/ode"
)

// Result is a completed trajectory. The extended lists are populated only
// when the engine was built with ExtendedStates; each entry is indexed by
// aircraft.
type Result struct {
	Status  ode.Status
	Times   []float64
	States  []f16.State
	Modes   []autopilot.Mode
	Xd      [][]f16.State
	U       [][][]float64
	Nz      [][]float64
	Ps      [][]float64
	NyR     [][]float64
	Runtime time.Duration
}

// Result snapshots the trajectory accumulated so far. A non-terminal
// engine reports Finished: it covered every horizon it was asked for.
func (e *Engine) Result() *Result {
	status := e.Status()
	if status == ode.Running {
		status = ode.Finished
	}

	res := &Result{
		Status:  status,
		Times:   e.times,
		States:  e.states,
		Modes:   e.modes,
		Runtime: e.runtime,
	}
	if e.cfg.ExtendedStates {
		for _, ext := range e.extended {
			res.Xd = append(res.Xd, ext.Xd)
			res.U = append(res.U, ext.U)
			res.Nz = append(res.Nz, ext.Nz)
			res.Ps = append(res.Ps, ext.Ps)
			res.NyR = append(res.NyR, ext.NyR)
		}
	}
	return res
}

// Run is the single-shot convenience wrapper: build an engine, simulate to
// tmax, and return the trajectory. When the run neither fails nor is ended
// by the autopilot, the final recorded time must land on tmax; anything
// else is a stepping bug, not a model failure.
func Run(initial []float64, tmax float64, ap autopilot.Autopilot, cfg Config) (*Result, error) {
	e, err := New(initial, ap, cfg)
	if err != nil {
		return nil, err
	}
	if err := e.SimulateTo(tmax); err != nil {
		return nil, err
	}

	if e.Status() == ode.Running {
		if last := e.times[len(e.times)-1]; math.Abs(last-tmax) > timeTol {
			return nil, fmt.Errorf("sim: asked for simulation to %g with step %g, got final time %g",
				tmax, cfg.Step, last)
		}
	}
	return e.Result(), nil
}
