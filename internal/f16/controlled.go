package f16

import (
	"fmt"
	"math"
)

// Model identifiers selecting the aerodynamic coefficient build.
const (
	ModelStevens = "stevens"
	ModelMorelli = "morelli"
)

// errIntClip bounds the tracking-error derivative fed into the integral
// states under the v2 integrator scheme.
const errIntClip = 5.0

// Controlled closes the inner loop around one aircraft: it turns the
// reference 4-tuple [NzRef, psRef, NyRRef, throttle] into surface
// deflections through llc, evaluates the airframe, and appends the
// derivatives of the three tracking-error integrators.
//
// x must have length NumStates+llc.NumIntegrators(). The returned applied
// input is a 7-tuple: throttle, elevator, aileron, rudder, NzRef, psRef,
// NyRRef. v2 selects the clipped tracking-error integration scheme.
func Controlled(t float64, x State, uRef []float64, llc *LowLevelController, modelID string, v2 bool) (State, []float64, float64, float64, float64, error) {
	numVars := NumStates + llc.NumIntegrators()
	if len(x) != numVars {
		return nil, nil, 0, 0, 0, fmt.Errorf("f16: state has %d vars, want %d", len(x), numVars)
	}
	if len(uRef) != 4 {
		return nil, nil, 0, 0, 0, fmt.Errorf("f16: control reference has %d vars, want 4", len(uRef))
	}
	if modelID != ModelStevens && modelID != ModelMorelli {
		return nil, nil, 0, 0, 0, fmt.Errorf("f16: unknown model %q", modelID)
	}

	surf := llc.Surfaces(x, uRef)
	xdBase, nz, ps, nyr := Derivatives(t, x, surf, modelID)

	xd := make(State, numVars)
	copy(xd, xdBase)

	// tracking-error integrators: d/dt int = measured - reference
	eNz := nz - uRef[0]
	ePs := ps - uRef[1]
	eNyR := nyr - uRef[2]
	if v2 {
		eNz = clamp(eNz, -errIntClip, errIntClip)
		ePs = clamp(ePs, -errIntClip, errIntClip)
		eNyR = clamp(eNyR, -errIntClip, errIntClip)
	}
	xd[NumStates] = eNz
	xd[NumStates+1] = ePs
	xd[NumStates+2] = eNyR

	u := []float64{surf[0], surf[1], surf[2], surf[3], uRef[0], uRef[1], uRef[2]}

	if !State(xd).IsValid() {
		return nil, nil, 0, 0, 0, fmt.Errorf("f16: non-finite derivative at t=%g", t)
	}

	return xd, u, nz, ps, nyr, nil
}

// TrimState returns a level-flight state near the llc design point,
// including zeroed integrator states.
func TrimState(llc *LowLevelController) State {
	x := make(State, NumStates+llc.NumIntegrators())
	x[Vt] = llc.VtTrim
	x[Alpha] = llc.AlphaTrim
	x[Theta] = llc.AlphaTrim // level flight path
	x[Alt] = llc.AltTrim
	x[Pow] = llc.PowTrim
	return x
}

// TrimThrottle is the throttle position that commands the trim power
// setting through the engine gearing.
func TrimThrottle(llc *LowLevelController) float64 {
	return math.Min(llc.PowTrim/64.94, ThrottleMax)
}
