package f16

import "math"

// Control surface limits (deg) and throttle limits.
const (
	ThrottleMin = 0.0
	ThrottleMax = 1.0
	ElevatorMax = 25.0
	AileronMax  = 21.5
	RudderMax   = 30.0
)

// Reference command limits applied by CheckCtrlRef.
const (
	NzRefMin  = -2.0
	NzRefMax  = 9.0
	PsRefMax  = 5.0
	NyRRefMax = 5.0
)

// LowLevelController holds the inner-loop gain set that turns reference
// commands (Nz, ps, Ny+r, throttle) into surface deflections. It also
// declares how many trailing integral-error states it appends to the base
// aircraft state.
type LowLevelController struct {
	ModelID string // "stevens" or "morelli"

	// trim point the gains were designed around
	VtTrim    float64
	AltTrim   float64
	AlphaTrim float64
	EleTrim   float64
	PowTrim   float64

	// proportional gains
	KAlpha float64 // elevator per alpha deviation (deg/rad)
	KQ     float64 // elevator pitch damping (deg per rad/s)
	KP     float64 // aileron roll damping
	KR     float64 // rudder yaw damping
	KBeta  float64 // rudder per sideslip

	// integral gains on the tracking-error states
	KIntNz  float64
	KIntPs  float64
	KIntNyR float64
}

// NewLLC returns the stock inner-loop controller for the given model
// identifier.
func NewLLC(modelID string) *LowLevelController {
	return &LowLevelController{
		ModelID:   modelID,
		VtTrim:    502.0,
		AltTrim:   1000.0,
		AlphaTrim: 0.0389,
		EleTrim:   -0.74,
		PowTrim:   9.05,
		KAlpha:    25.0,
		KQ:        12.0,
		KP:        4.0,
		KR:        8.0,
		KBeta:     30.0,
		KIntNz:    6.0,
		KIntPs:    4.0,
		KIntNyR:   5.0,
	}
}

// NumIntegrators is the count of integral-error states appended after the
// base aircraft state: Nz error, ps error, and Ny+r error, in that order.
func (llc *LowLevelController) NumIntegrators() int { return 3 }

// Surfaces computes the applied inputs (throttle, elevator, aileron,
// rudder) from the current state, its integral-error tail, and the
// reference 4-tuple [NzRef, psRef, NyRRef, throttle].
func (llc *LowLevelController) Surfaces(x State, uRef []float64) [4]float64 {
	intNz := x[NumStates]
	intPs := x[NumStates+1]
	intNyR := x[NumStates+2]

	throttle := clamp(uRef[3], ThrottleMin, ThrottleMax)

	ele := llc.EleTrim +
		llc.KAlpha*(x[Alpha]-llc.AlphaTrim) +
		llc.KQ*x[Q] +
		llc.KIntNz*intNz
	ail := -llc.KP*x[P] - llc.KIntPs*intPs
	rud := -llc.KR*x[R] - llc.KBeta*x[Beta] + llc.KIntNyR*intNyR

	return [4]float64{
		throttle,
		clamp(ele, -ElevatorMax, ElevatorMax),
		clamp(ail, -AileronMax, AileronMax),
		clamp(rud, -RudderMax, RudderMax),
	}
}

// CheckCtrlRef clips a raw reference 4-tuple to the ranges the inner loop
// was designed for.
func (llc *LowLevelController) CheckCtrlRef(uRef []float64) []float64 {
	out := make([]float64, 4)
	out[0] = clamp(uRef[0], NzRefMin, NzRefMax)
	out[1] = clamp(uRef[1], -PsRefMax, PsRefMax)
	out[2] = clamp(uRef[2], -NyRRefMax, NyRRefMax)
	out[3] = clamp(uRef[3], ThrottleMin, ThrottleMax)
	return out
}

func clamp(v, lo, hi float64) float64 {
	return math.Min(math.Max(v, lo), hi)
}
