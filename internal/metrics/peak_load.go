package metrics

import "math"

// PeakLoad tracks the largest absolute excess load factor seen over a
// run. Useful for checking recovery maneuvers stay inside structural
// limits.
type PeakLoad struct {
	name string
	peak float64
}

func NewPeakLoad() *PeakLoad {
	return &PeakLoad{name: "peak_load"}
}

func (p *PeakLoad) Name() string {
	return p.name
}

func (p *PeakLoad) Observe(s Sample) {
	p.peak = math.Max(p.peak, math.Abs(s.Nz))
}

func (p *PeakLoad) Value() float64 {
	return p.peak
}

func (p *PeakLoad) Reset() {
	p.peak = 0
}
