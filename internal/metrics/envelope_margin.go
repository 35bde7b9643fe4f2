package metrics

import (
	"math"

	"github.com/mwaldron/f16sim/internal/f16"
)

// EnvelopeMargin tracks the smallest normalized distance to any flight
// envelope bound seen over a run. 1 means the quantity sat mid-range
// the whole time, 0 means it touched a bound.
type EnvelopeMargin struct {
	name    string
	min     float64
	samples int
}

func NewEnvelopeMargin() *EnvelopeMargin {
	return &EnvelopeMargin{name: "envelope_margin", min: math.Inf(1)}
}

func (e *EnvelopeMargin) Name() string {
	return e.name
}

func (e *EnvelopeMargin) Observe(s Sample) {
	if len(s.X) < f16.NumStates {
		return
	}
	m := margin(s.X[f16.Alpha], f16.AlphaMin, f16.AlphaMax)
	m = math.Min(m, margin(s.X[f16.Vt], f16.VtMin, f16.VtMax))
	m = math.Min(m, margin(s.X[f16.Alt], f16.AltMin, f16.AltMax))
	e.min = math.Min(e.min, m)
	e.samples++
}

func (e *EnvelopeMargin) Value() float64 {
	if e.samples == 0 {
		return 1.0
	}
	return math.Max(e.min, 0)
}

func (e *EnvelopeMargin) Reset() {
	e.min = math.Inf(1)
	e.samples = 0
}

// margin is the distance from v to the nearest of [lo, hi], scaled so
// the midpoint maps to 1.
func margin(v, lo, hi float64) float64 {
	half := (hi - lo) / 2
	return math.Min(v-lo, hi-v) / half
}
