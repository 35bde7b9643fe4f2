package config

import (
	"sort"

	"github.com/mwaldron/f16sim/internal/f16"
)

var Presets = map[string]*Config{
	"trim": {
		Model: f16.ModelStevens, Integrator: "rk45", Autopilot: "level",
		Step: DefaultStep, Tmax: 30.0, Aircraft: 1,
		InitState:    InitStateConfig{Vt: DefaultVt, Alpha: 0.0389, Theta: 0.0389, Alt: DefaultAlt},
		AutopilotCfg: AutopilotConfig{AltSetpoint: DefaultAlt, VtSetpoint: DefaultVt},
	},
	"climb": {
		Model: f16.ModelStevens, Integrator: "rk45", Autopilot: "level",
		Step: DefaultStep, Tmax: 60.0, Aircraft: 1,
		InitState:    InitStateConfig{Vt: DefaultVt, Alpha: 0.0389, Theta: 0.0389, Alt: 1000},
		AutopilotCfg: AutopilotConfig{AltSetpoint: 3000, VtSetpoint: DefaultVt},
	},
	"gcas-dive": {
		Model: f16.ModelStevens, Integrator: "rk45", Autopilot: "gcas",
		Step: DefaultStep, Tmax: 30.0, Aircraft: 1,
		InitState:    InitStateConfig{Vt: 540, Alpha: 0.035, Theta: -0.25, Phi: 0.8, Alt: 3600},
		AutopilotCfg: AutopilotConfig{PullNz: 5.0},
	},
	"formation-pair": {
		Model: f16.ModelStevens, Integrator: "rk45", Autopilot: "level",
		Step: DefaultStep, Tmax: 30.0, Aircraft: 2,
		InitState:    InitStateConfig{Vt: DefaultVt, Alpha: 0.0389, Theta: 0.0389, Alt: DefaultAlt},
		AutopilotCfg: AutopilotConfig{AltSetpoint: DefaultAlt, VtSetpoint: DefaultVt},
	},
	"euler-baseline": {
		Model: f16.ModelStevens, Integrator: "euler", Autopilot: "level",
		Step: DefaultStep, Tmax: 15.0, Aircraft: 1,
		InitState:    InitStateConfig{Vt: DefaultVt, Alpha: 0.0389, Theta: 0.0389, Alt: DefaultAlt},
		AutopilotCfg: AutopilotConfig{AltSetpoint: DefaultAlt, VtSetpoint: DefaultVt},
	},
}

// GetPreset returns a copy of the named preset, or nil if it is unknown.
func GetPreset(name string) *Config {
	p, ok := Presets[name]
	if !ok {
		return nil
	}
	cp := *p
	return &cp
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
