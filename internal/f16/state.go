package f16

import (
	"fmt"
	"math"
)

// State indices for the 13 base aircraft states. Trailing entries beyond
// NumStates are integral-error states owned by the low-level controller.
const (
	Vt    = 0  // true airspeed (ft/s)
	Alpha = 1  // angle of attack (rad)
	Beta  = 2  // sideslip angle (rad)
	Phi   = 3  // roll angle (rad)
	Theta = 4  // pitch angle (rad)
	Psi   = 5  // yaw angle (rad)
	P     = 6  // roll rate (rad/s)
	Q     = 7  // pitch rate (rad/s)
	R     = 8  // yaw rate (rad/s)
	Pn    = 9  // north position (ft)
	Pe    = 10 // east position (ft)
	Alt   = 11 // altitude (ft)
	Pow   = 12 // engine power lag state (percent)
)

// NumStates is the number of base states per aircraft, excluding the
// controller's integral-error states.
const NumStates = 13

var stateNames = []string{
	"vt", "alpha", "beta", "phi", "theta", "psi",
	"p", "q", "r", "pn", "pe", "alt", "pow",
}

// StateNames returns the names of the base states in index order.
func StateNames() []string {
	names := make([]string, len(stateNames))
	copy(names, stateNames)
	return names
}

type State []float64

func (s State) Clone() State {
	c := make(State, len(s))
	copy(c, s)
	return c
}

func (s State) IsValid() bool {
	for _, v := range s {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// Flight envelope bounds. Outside these the model's outputs are meaningless.
const (
	AlphaMin = -2.0
	AlphaMax = 2.0
	VtMin    = 200.0
	VtMax    = 3000.0
	AltMin   = -10000.0
	AltMax   = 100000.0
)

// EnvelopeError reports a state component outside the model's valid
// flight envelope.
type EnvelopeError struct {
	Quantity string
	Value    float64
}

func (e *EnvelopeError) Error() string {
	return fmt.Sprintf("f16: %s (%g) out of bounds", e.Quantity, e.Value)
}

// CheckEnvelope validates a single aircraft's state against the flight
// envelope. The returned error is an *EnvelopeError naming the offending
// quantity.
func CheckEnvelope(x State) error {
	if a := x[Alpha]; !(a > AlphaMin && a < AlphaMax) {
		return &EnvelopeError{Quantity: "alpha", Value: a}
	}
	if v := x[Vt]; !(v >= VtMin && v <= VtMax) {
		return &EnvelopeError{Quantity: "velocity", Value: v}
	}
	if h := x[Alt]; !(h > AltMin && h < AltMax) {
		return &EnvelopeError{Quantity: "altitude", Value: h}
	}
	return nil
}
