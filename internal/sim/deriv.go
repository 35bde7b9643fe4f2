package sim

import (
	"fmt"

	"github.com/mwaldron/f16sim/internal/autopilot"
	"github.com/mwaldron/f16sim/internal/f16"
	"github.com/mwaldron/f16sim/internal/ode"
)

// derivFunc builds the combined derivative function for integration,
// generalized for multiple aircraft. Per aircraft it validates the flight
// envelope, obtains the checked control reference from the autopilot, and
// evaluates the closed-loop dynamics, concatenating derivatives in
// aircraft order.
func derivFunc(ap autopilot.Autopilot, modelID string, v2 bool) ode.DerivFunc {
	llc := ap.LLC()
	numVars := f16.NumStates + llc.NumIntegrators()

	return func(t float64, full []float64) ([]float64, error) {
		if len(full) == 0 || len(full)%numVars != 0 {
			return nil, fmt.Errorf("sim: state length %d not a multiple of %d", len(full), numVars)
		}
		numAircraft := len(full) / numVars

		for i := 0; i < numAircraft; i++ {
			if err := f16.CheckEnvelope(f16.State(full[numVars*i : numVars*(i+1)])); err != nil {
				return nil, err
			}
		}

		uRefs, err := ap.CheckedCtrlRef(t, full)
		if err != nil {
			return nil, err
		}
		if len(uRefs) != 4*numAircraft {
			return nil, fmt.Errorf("sim: got %d reference values for %d aircraft", len(uRefs), numAircraft)
		}

		xd := make([]float64, 0, len(full))
		for i := 0; i < numAircraft; i++ {
			sub := f16.State(full[numVars*i : numVars*(i+1)])
			d, _, _, _, _, err := f16.Controlled(t, sub, uRefs[4*i:4*(i+1)], llc, modelID, v2)
			if err != nil {
				return nil, err
			}
			xd = append(xd, d...)
		}
		return xd, nil
	}
}

// ExtendedSample holds the non-integrated diagnostic outputs recomputed at
// one recorded sample, indexed by aircraft: derivative, applied input
// (throttle, elevator, aileron, rudder, NzRef, psRef, NyRRef), and the
// three flight-quality scalars.
type ExtendedSample struct {
	Xd  []f16.State
	U   [][]float64
	Nz  []float64
	Ps  []float64
	NyR []float64
}

// extendedStates re-runs the dynamics at (t, full) to extract the
// ExtendedSample. It is read-only with respect to the simulation: nothing
// here feeds back into the integrator or the trajectory.
func extendedStates(ap autopilot.Autopilot, t float64, full f16.State, modelID string, v2 bool) (ExtendedSample, error) {
	llc := ap.LLC()
	numVars := f16.NumStates + llc.NumIntegrators()
	numAircraft := len(full) / numVars

	uRefs, err := ap.CheckedCtrlRef(t, full)
	if err != nil {
		return ExtendedSample{}, err
	}

	ext := ExtendedSample{
		Xd:  make([]f16.State, 0, numAircraft),
		U:   make([][]float64, 0, numAircraft),
		Nz:  make([]float64, 0, numAircraft),
		Ps:  make([]float64, 0, numAircraft),
		NyR: make([]float64, 0, numAircraft),
	}

	for i := 0; i < numAircraft; i++ {
		sub := full[numVars*i : numVars*(i+1)]
		xd, u, nz, ps, nyr, err := f16.Controlled(t, sub, uRefs[4*i:4*(i+1)], llc, modelID, v2)
		if err != nil {
			return ExtendedSample{}, err
		}
		ext.Xd = append(ext.Xd, xd)
		ext.U = append(ext.U, u)
		ext.Nz = append(ext.Nz, nz)
		ext.Ps = append(ext.Ps, ps)
		ext.NyR = append(ext.NyR, nyr)
	}
	return ext, nil
}
