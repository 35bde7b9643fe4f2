// Package metrics computes flight-quality measures over recorded
// trajectories: peak load factor, actuator effort, and how close the
// flight came to the edge of the validated envelope.
package metrics

import (
	"github.com/mwaldron/f16sim/internal/f16"
	"github.com/mwaldron/f16sim/internal/sim"
)

// Sample is one observed point of a single aircraft's trajectory.
type Sample struct {
	T  float64
	X  f16.State
	U  []float64
	Nz float64
}

type Metric interface {
	Name() string
	Observe(s Sample)
	Value() float64
	Reset()
}

// Collect feeds every recorded sample of every aircraft through the
// given metrics. Applied inputs and load factors are only available
// when the run recorded extended states.
func Collect(res *sim.Result, numVars int, ms ...Metric) {
	numAircraft := 1
	if numVars > 0 && len(res.States) > 0 {
		numAircraft = len(res.States[0]) / numVars
	}
	for i, x := range res.States {
		for a := 0; a < numAircraft; a++ {
			s := Sample{T: res.Times[i]}
			if numVars > 0 {
				s.X = f16.State(x[a*numVars : (a+1)*numVars])
			} else {
				s.X = f16.State(x)
			}
			if i < len(res.U) && a < len(res.U[i]) {
				s.U = res.U[i][a]
			}
			if i < len(res.Nz) && a < len(res.Nz[i]) {
				s.Nz = res.Nz[i][a]
			}
			for _, m := range ms {
				m.Observe(s)
			}
		}
	}
}
