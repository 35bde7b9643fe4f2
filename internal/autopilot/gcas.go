package autopilot

import (
	"math"

	"github.com/mwaldron/f16sim/internal/f16"
)

// GCAS modes, in the order the recovery progresses.
const (
	ModeStandby   Mode = "standby"
	ModeRoll      Mode = "roll"
	ModePull      Mode = "pull"
	ModeRecovered Mode = "recovered"
)

// GCAS is a ground-collision-avoidance autopilot: it waits until the
// aircraft is diving, rolls wings level, pulls up at PullNz, and declares
// the run finished once the flight path points upward again.
//
// The mode machine watches the first aircraft; with several aircraft the
// recovery commands are issued to all of them.
type GCAS struct {
	llc  *f16.LowLevelController
	mode Mode

	PullNz        float64 // load factor commanded during the pull
	DiveTheta     float64 // pitch below which recovery triggers (rad)
	WingsLevelTol float64 // bank tolerance to leave the roll phase (rad)
	KPhi          float64
}

func NewGCAS(llc *f16.LowLevelController) *GCAS {
	return &GCAS{
		llc:           llc,
		mode:          ModeStandby,
		PullNz:        5.0,
		DiveTheta:     -0.05,
		WingsLevelTol: 0.087,
		KPhi:          4.0,
	}
}

func (g *GCAS) LLC() *f16.LowLevelController { return g.llc }

func (g *GCAS) Mode() Mode { return g.mode }

func (g *GCAS) IsFinished(t float64, x f16.State) bool {
	return g.mode == ModeRecovered
}

func (g *GCAS) AdvanceDiscreteMode(t float64, x f16.State) bool {
	sub := x[:f16.NumStates+g.llc.NumIntegrators()]
	old := g.mode

	switch g.mode {
	case ModeStandby:
		if sub[f16.Theta] < g.DiveTheta {
			g.mode = ModeRoll
		}
	case ModeRoll:
		if math.Abs(sub[f16.Phi]) < g.WingsLevelTol && math.Abs(sub[f16.P]) < 0.5 {
			g.mode = ModePull
		}
	case ModePull:
		if sub[f16.Theta]-sub[f16.Alpha] > 0 {
			g.mode = ModeRecovered
		}
	}

	return g.mode != old
}

func (g *GCAS) CheckedCtrlRef(t float64, x f16.State) ([]float64, error) {
	return perAircraft(x, g.llc, func(sub f16.State) []float64 {
		throttle := f16.TrimThrottle(g.llc)
		switch g.mode {
		case ModeRoll:
			return []float64{0, -g.KPhi * sub[f16.Phi], 0, throttle}
		case ModePull:
			return []float64{g.PullNz, -g.KPhi * sub[f16.Phi], 0, throttle}
		default:
			return []float64{0, -g.KPhi * sub[f16.Phi], 0, throttle}
		}
	})
}
