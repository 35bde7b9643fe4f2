// Package autopilot defines the discrete-mode controller contract the
// simulation engine drives, plus the stock autopilots shipped with the
// simulator.
//
// An autopilot owns an opaque discrete mode and the outer-loop control law
// active in that mode. The engine advances the mode at every recorded
// sample and treats the label itself as nothing more than an
// equality-comparable tag.
package autopilot

import (
	"fmt"

	"github.com/mwaldron/f16sim/internal/f16"
)

// Mode is an autopilot-defined discrete mode label. The engine only
// compares and stores it.
type Mode string

// Autopilot is the discrete-mode collaborator of the simulation engine.
//
// AdvanceDiscreteMode mutates the autopilot's own mode as a side effect and
// reports whether it changed; the engine is the sole caller during a
// simulation. CheckedCtrlRef returns one clipped [NzRef, psRef, NyRRef,
// throttle] 4-tuple per aircraft, concatenated in aircraft order.
type Autopilot interface {
	AdvanceDiscreteMode(t float64, x f16.State) bool
	Mode() Mode
	IsFinished(t float64, x f16.State) bool
	CheckedCtrlRef(t float64, x f16.State) ([]float64, error)
	LLC() *f16.LowLevelController
}

// perAircraft slices a concatenated multi-aircraft state and applies ref
// for each sub-state, concatenating the 4-tuples.
func perAircraft(x f16.State, llc *f16.LowLevelController, ref func(sub f16.State) []float64) ([]float64, error) {
	numVars := f16.NumStates + llc.NumIntegrators()
	if len(x) == 0 || len(x)%numVars != 0 {
		return nil, fmt.Errorf("autopilot: state length %d not a multiple of %d", len(x), numVars)
	}
	n := len(x) / numVars
	out := make([]float64, 0, 4*n)
	for i := 0; i < n; i++ {
		sub := x[numVars*i : numVars*(i+1)]
		out = append(out, llc.CheckCtrlRef(ref(sub))...)
	}
	return out, nil
}
