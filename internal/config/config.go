package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/mwaldron/f16sim/internal/f16"
)

const (
	DefaultStep = 1.0 / 30.0
	DefaultTmax = 15.0
	DefaultVt   = 502.0
	DefaultAlt  = 1000.0
)

// Config is a full scenario description: model build, integrator strategy,
// autopilot selection, initial flight condition, and output options.
type Config struct {
	Model         string          `yaml:"model"`      // stevens | morelli
	Integrator    string          `yaml:"integrator"` // rk45 | euler
	Autopilot     string          `yaml:"autopilot"`  // level | gcas
	Step          float64         `yaml:"step"`
	Tmax          float64         `yaml:"tmax"`
	Extended      bool            `yaml:"extended"`
	V2Integrators bool            `yaml:"v2_integrators"`
	Aircraft      int             `yaml:"aircraft"`
	InitState     InitStateConfig `yaml:"init_state"`
	AutopilotCfg  AutopilotConfig `yaml:"autopilot_params"`
}

// InitStateConfig is the per-aircraft initial flight condition. Zero
// values that would be physically meaningless (airspeed, power) fall back
// to trim in BuildInitState.
type InitStateConfig struct {
	Vt    float64 `yaml:"vt"`
	Alpha float64 `yaml:"alpha"`
	Beta  float64 `yaml:"beta"`
	Phi   float64 `yaml:"phi"`
	Theta float64 `yaml:"theta"`
	Psi   float64 `yaml:"psi"`
	P     float64 `yaml:"p"`
	Q     float64 `yaml:"q"`
	R     float64 `yaml:"r"`
	Alt   float64 `yaml:"alt"`
	Pow   float64 `yaml:"pow"`
}

type AutopilotConfig struct {
	AltSetpoint float64 `yaml:"alt_setpoint"`
	VtSetpoint  float64 `yaml:"vt_setpoint"`
	PullNz      float64 `yaml:"pull_nz"`
}

func DefaultConfig() *Config {
	return &Config{
		Model:      f16.ModelStevens,
		Integrator: "rk45",
		Autopilot:  "level",
		Step:       DefaultStep,
		Tmax:       DefaultTmax,
		Aircraft:   1,
		InitState: InitStateConfig{
			Vt:  DefaultVt,
			Alt: DefaultAlt,
		},
		AutopilotCfg: AutopilotConfig{
			AltSetpoint: DefaultAlt,
			VtSetpoint:  DefaultVt,
		},
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, cfg.Validate()
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func (c *Config) Validate() error {
	if c.Model != f16.ModelStevens && c.Model != f16.ModelMorelli {
		return fmt.Errorf("config: unknown model %q", c.Model)
	}
	if c.Integrator != "rk45" && c.Integrator != "euler" {
		return fmt.Errorf("config: unknown integrator %q", c.Integrator)
	}
	if c.Autopilot != "level" && c.Autopilot != "gcas" {
		return fmt.Errorf("config: unknown autopilot %q", c.Autopilot)
	}
	if c.Step <= 0 {
		return fmt.Errorf("config: step must be positive, got %g", c.Step)
	}
	if c.Tmax <= 0 {
		return fmt.Errorf("config: tmax must be positive, got %g", c.Tmax)
	}
	if c.Aircraft < 1 {
		return fmt.Errorf("config: aircraft count must be at least 1, got %d", c.Aircraft)
	}
	return nil
}

// BuildInitState assembles the concatenated initial state for the
// configured number of aircraft, with zeroed controller integrators.
func (c *Config) BuildInitState(llc *f16.LowLevelController) f16.State {
	numVars := f16.NumStates + llc.NumIntegrators()

	one := make(f16.State, numVars)
	one[f16.Vt] = c.InitState.Vt
	if one[f16.Vt] == 0 {
		one[f16.Vt] = llc.VtTrim
	}
	one[f16.Alpha] = c.InitState.Alpha
	one[f16.Beta] = c.InitState.Beta
	one[f16.Phi] = c.InitState.Phi
	one[f16.Theta] = c.InitState.Theta
	one[f16.Psi] = c.InitState.Psi
	one[f16.P] = c.InitState.P
	one[f16.Q] = c.InitState.Q
	one[f16.R] = c.InitState.R
	one[f16.Alt] = c.InitState.Alt
	one[f16.Pow] = c.InitState.Pow
	if one[f16.Pow] == 0 {
		one[f16.Pow] = llc.PowTrim
	}

	full := make(f16.State, 0, numVars*c.Aircraft)
	for i := 0; i < c.Aircraft; i++ {
		full = append(full, one...)
	}
	return full
}
