package autopilot

import (
	"math"

	"github.com/mwaldron/f16sim/internal/f16"
)

// ModeLevel is the single mode of the LevelFlight autopilot.
const ModeLevel Mode = "level"

// LevelFlight holds altitude and airspeed around fixed setpoints. It never
// changes mode and never declares the simulation finished, which makes it
// the default autopilot for open-ended runs.
type LevelFlight struct {
	llc *f16.LowLevelController

	AltSetpoint float64
	VtSetpoint  float64

	KAlt float64 // g per ft of altitude error
	KVz  float64 // g per ft/s of climb rate
	KPhi float64 // ps ref per rad of bank
	KVt  float64 // throttle per ft/s of airspeed error
}

func NewLevelFlight(llc *f16.LowLevelController, altSetpoint, vtSetpoint float64) *LevelFlight {
	return &LevelFlight{
		llc:         llc,
		AltSetpoint: altSetpoint,
		VtSetpoint:  vtSetpoint,
		KAlt:        0.005,
		KVz:         0.015,
		KPhi:        2.0,
		KVt:         0.005,
	}
}

func (a *LevelFlight) LLC() *f16.LowLevelController { return a.llc }

func (a *LevelFlight) Mode() Mode { return ModeLevel }

func (a *LevelFlight) AdvanceDiscreteMode(t float64, x f16.State) bool { return false }

func (a *LevelFlight) IsFinished(t float64, x f16.State) bool { return false }

func (a *LevelFlight) CheckedCtrlRef(t float64, x f16.State) ([]float64, error) {
	return perAircraft(x, a.llc, func(sub f16.State) []float64 {
		vz := sub[f16.Vt] * math.Sin(sub[f16.Theta]-sub[f16.Alpha])
		nzRef := a.KAlt*(a.AltSetpoint-sub[f16.Alt]) - a.KVz*vz
		psRef := -a.KPhi * sub[f16.Phi]
		throttle := f16.TrimThrottle(a.llc) + a.KVt*(a.VtSetpoint-sub[f16.Vt])
		return []float64{nzRef, psRef, 0, throttle}
	})
}
