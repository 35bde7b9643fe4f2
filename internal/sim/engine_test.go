package sim

import (
	"errors"
	"math"
	"testing"

	"github.com/mwaldron/f16sim/internal/autopilot"
	"github.com/mwaldron/f16sim/internal/f16"
	"github.com/mwaldron/f16sim/internal/ode"
)

// scriptedAP is a minimal autopilot with a scripted mode switch and
// finish time, holding trim references otherwise.
type scriptedAP struct {
	llc      *f16.LowLevelController
	mode     autopilot.Mode
	switchAt float64 // 0 = never
	finishAt float64 // 0 = never
}

func newScriptedAP() *scriptedAP {
	return &scriptedAP{llc: f16.NewLLC(f16.ModelStevens), mode: "a"}
}

func (s *scriptedAP) LLC() *f16.LowLevelController { return s.llc }
func (s *scriptedAP) Mode() autopilot.Mode         { return s.mode }

func (s *scriptedAP) AdvanceDiscreteMode(t float64, x f16.State) bool {
	if s.switchAt > 0 && t >= s.switchAt && s.mode == "a" {
		s.mode = "b"
		return true
	}
	return false
}

func (s *scriptedAP) IsFinished(t float64, x f16.State) bool {
	return s.finishAt > 0 && t >= s.finishAt
}

func (s *scriptedAP) CheckedCtrlRef(t float64, x f16.State) ([]float64, error) {
	numVars := f16.NumStates + s.llc.NumIntegrators()
	n := len(x) / numVars
	out := make([]float64, 0, 4*n)
	for i := 0; i < n; i++ {
		out = append(out, 0, 0, 0, f16.TrimThrottle(s.llc))
	}
	return out, nil
}

func trimInit(llc *f16.LowLevelController) f16.State {
	return f16.TrimState(llc)
}

func TestTrajectoryInvariants(t *testing.T) {
	ap := newScriptedAP()
	e, err := New(trimInit(ap.llc), ap, DefaultConfig())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if err := e.SimulateTo(2.0); err != nil {
		t.Fatalf("SimulateTo failed: %v", err)
	}

	if len(e.Times()) != len(e.States()) || len(e.Times()) != len(e.Modes()) {
		t.Fatalf("history lengths diverged: %d times, %d states, %d modes",
			len(e.Times()), len(e.States()), len(e.Modes()))
	}
	if e.Times()[0] != 0 {
		t.Errorf("first time = %g, want 0", e.Times()[0])
	}
	for i := 1; i < len(e.Times()); i++ {
		if e.Times()[i] <= e.Times()[i-1] {
			t.Fatalf("times not strictly increasing at %d: %g <= %g",
				i, e.Times()[i], e.Times()[i-1])
		}
	}
}

func TestSimulateToIdempotent(t *testing.T) {
	ap := newScriptedAP()
	e, err := New(trimInit(ap.llc), ap, DefaultConfig())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if err := e.SimulateTo(1.0); err != nil {
		t.Fatalf("first SimulateTo failed: %v", err)
	}
	n := len(e.Times())
	st := e.Status()

	if err := e.SimulateTo(1.0); err != nil {
		t.Fatalf("repeat SimulateTo failed: %v", err)
	}
	if len(e.Times()) != n {
		t.Errorf("repeat call appended samples: %d -> %d", n, len(e.Times()))
	}
	if e.Status() != st {
		t.Errorf("repeat call changed status: %q -> %q", st, e.Status())
	}
}

func TestIncrementalEquivalence(t *testing.T) {
	ap1 := newScriptedAP()
	e1, err := New(trimInit(ap1.llc), ap1, DefaultConfig())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if err := e1.SimulateTo(1.0); err != nil {
		t.Fatal(err)
	}
	if err := e1.SimulateTo(2.0); err != nil {
		t.Fatal(err)
	}

	ap2 := newScriptedAP()
	e2, err := New(trimInit(ap2.llc), ap2, DefaultConfig())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if err := e2.SimulateTo(2.0); err != nil {
		t.Fatal(err)
	}

	if len(e1.Times()) != len(e2.Times()) {
		t.Fatalf("sample counts differ: %d vs %d", len(e1.Times()), len(e2.Times()))
	}
	for i := range e1.Times() {
		if e1.Times()[i] != e2.Times()[i] {
			t.Fatalf("time %d differs: %g vs %g", i, e1.Times()[i], e2.Times()[i])
		}
		for j := range e1.States()[i] {
			if e1.States()[i][j] != e2.States()[i][j] {
				t.Fatalf("state %d[%d] differs: %g vs %g",
					i, j, e1.States()[i][j], e2.States()[i][j])
			}
		}
	}
}

func TestFineGridDenseResampling(t *testing.T) {
	ap := newScriptedAP()
	cfg := DefaultConfig()
	cfg.Step = 1.0 / 300.0
	e, err := New(trimInit(ap.llc), ap, cfg)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if err := e.SimulateTo(1.0); err != nil {
		t.Fatalf("SimulateTo failed: %v", err)
	}

	times := e.Times()
	if len(times) != 301 {
		t.Fatalf("samples = %d, want 301", len(times))
	}
	for i := 1; i < len(times); i++ {
		if times[i] <= times[i-1] {
			t.Fatalf("times not strictly increasing at %d: %g <= %g", i, times[i], times[i-1])
		}
	}

	// near trim the adaptive integrator outgrows the output interval, so
	// the grid must have been filled by interpolation, not stepping
	rk, ok := e.integ.(*ode.AdaptiveRungeKutta)
	if !ok {
		t.Fatalf("integrator is %T, want adaptive", e.integ)
	}
	if span := rk.T() - rk.TOld(); span <= cfg.Step {
		t.Errorf("internal step %g never exceeded output interval %g", span, cfg.Step)
	}

	// the integrator's internal trajectory does not depend on the output
	// grid, so a 10x coarser grid must sample the same states at shared times
	ap2 := newScriptedAP()
	coarse, err := New(trimInit(ap2.llc), ap2, DefaultConfig()) // step 1/30
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if err := coarse.SimulateTo(1.0); err != nil {
		t.Fatalf("SimulateTo failed: %v", err)
	}

	for i, tc := range coarse.Times() {
		tf := times[10*i]
		if math.Abs(tf-tc) > 1e-9 {
			t.Fatalf("grid mismatch at %d: %g vs %g", i, tf, tc)
		}
		for j := range coarse.States()[i] {
			a := coarse.States()[i][j]
			b := e.States()[10*i][j]
			if math.Abs(a-b) > 1e-8 {
				t.Fatalf("sample %d var %d: coarse %g, fine %g", i, j, a, b)
			}
		}
	}
}

func TestOutOfBoundsInitialStateFails(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(x f16.State)
		quantity string
	}{
		{"slow", func(x f16.State) { x[f16.Vt] = 100 }, "velocity"},
		{"deep", func(x f16.State) { x[f16.Alt] = -20000 }, "altitude"},
		{"stalled", func(x f16.State) { x[f16.Alpha] = 2.5 }, "alpha"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ap := newScriptedAP()
			x0 := trimInit(ap.llc)
			tt.mutate(x0)

			e, err := New(x0, ap, DefaultConfig())
			if err != nil {
				t.Fatalf("New failed: %v", err)
			}
			if err := e.SimulateTo(1.0); err != nil {
				t.Fatalf("SimulateTo returned contract error: %v", err)
			}
			if e.Status() != ode.Failed {
				t.Fatalf("status = %q, want failed", e.Status())
			}
			if len(e.Times()) < 1 {
				t.Error("trajectory lost the initial sample")
			}
			var envErr *f16.EnvelopeError
			if !errors.As(e.Err(), &envErr) {
				t.Fatalf("error %v is not an EnvelopeError", e.Err())
			}
			if envErr.Quantity != tt.quantity {
				t.Errorf("quantity = %q, want %q", envErr.Quantity, tt.quantity)
			}
		})
	}
}

func TestFailedEngineReentryRejected(t *testing.T) {
	ap := newScriptedAP()
	x0 := trimInit(ap.llc)
	x0[f16.Vt] = 100 // below the envelope floor

	e, err := New(x0, ap, DefaultConfig())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	// the first call surfaces the failure: no error, trajectory intact
	if err := e.SimulateTo(1.0); err != nil {
		t.Fatalf("first SimulateTo returned %v, want nil", err)
	}
	if e.Status() != ode.Failed {
		t.Fatalf("status = %q, want failed", e.Status())
	}
	n := len(e.Times())

	// driving a failed engine again is a contract error
	if err := e.SimulateTo(2.0); err == nil {
		t.Fatal("expected error re-entering a failed engine")
	}
	if len(e.Times()) != n {
		t.Errorf("re-entry recorded samples: %d -> %d", n, len(e.Times()))
	}
}

func TestModeChangeReinitializesIntegrator(t *testing.T) {
	ap := newScriptedAP()
	ap.switchAt = 0.5

	cfg := DefaultConfig()
	cfg.Step = 0.1
	e, err := New(trimInit(ap.llc), ap, cfg)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	before := e.integ

	if err := e.SimulateTo(0.5); err != nil {
		t.Fatalf("SimulateTo failed: %v", err)
	}
	if e.integ == before {
		t.Fatal("integrator was not replaced on mode change")
	}
	if e.integ.T() != 0.5 {
		t.Errorf("new integrator seeded at t=%g, want 0.5", e.integ.T())
	}

	last := e.States()[len(e.States())-1]
	seed := e.integ.X()
	for i := range last {
		if seed[i] != last[i] {
			t.Fatalf("reseed state[%d] = %g, want %g", i, seed[i], last[i])
		}
	}

	modes := e.Modes()
	if modes[len(modes)-1] != "b" {
		t.Errorf("final mode = %q, want b", modes[len(modes)-1])
	}
}

func TestTwoAircraftMatchesSingle(t *testing.T) {
	apSingle := newScriptedAP()
	single, err := Run(trimInit(apSingle.llc), 1.0, apSingle, DefaultConfig())
	if err != nil {
		t.Fatalf("single run failed: %v", err)
	}

	apDouble := newScriptedAP()
	x0 := trimInit(apDouble.llc)
	both := append(x0.Clone(), x0.Clone()...)
	double, err := Run(both, 1.0, apDouble, DefaultConfig())
	if err != nil {
		t.Fatalf("double run failed: %v", err)
	}

	if len(single.Times) != len(double.Times) {
		t.Fatalf("sample counts differ: %d vs %d", len(single.Times), len(double.Times))
	}
	numVars := f16.NumStates + apSingle.llc.NumIntegrators()
	for i := range single.Times {
		for j := 0; j < numVars; j++ {
			a := single.States[i][j]
			b0 := double.States[i][j]
			b1 := double.States[i][numVars+j]
			if math.Abs(a-b0) > 1e-6 || math.Abs(a-b1) > 1e-6 {
				t.Fatalf("step %d var %d: single %g, double %g / %g", i, j, a, b0, b1)
			}
		}
	}
}

func TestRunLevelFlightScenario(t *testing.T) {
	llc := f16.NewLLC(f16.ModelStevens)
	ap := autopilot.NewLevelFlight(llc, 1000, 500)

	x0 := make(f16.State, f16.NumStates)
	x0[f16.Vt] = 500
	x0[f16.Alpha] = llc.AlphaTrim
	x0[f16.Theta] = llc.AlphaTrim
	x0[f16.Alt] = 1000
	x0[f16.Pow] = llc.PowTrim

	cfg := DefaultConfig()
	cfg.ExtendedStates = true
	res, err := Run(x0, 5.0, ap, cfg)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if res.Status != ode.Finished {
		t.Fatalf("status = %q, want finished", res.Status)
	}
	if last := res.Times[len(res.Times)-1]; math.Abs(last-5.0) > 1e-7 {
		t.Errorf("final time = %g, want 5", last)
	}
	if len(res.Times) != 151 {
		t.Errorf("samples = %d, want 151", len(res.Times))
	}
	if len(res.Nz) != len(res.Times) || len(res.U) != len(res.Times) || len(res.Xd) != len(res.Times) {
		t.Errorf("extended lists not aligned with times")
	}
	for i, s := range res.States {
		if !s.IsValid() {
			t.Fatalf("state %d has non-finite values", i)
		}
	}
}

func TestEulerStrategy(t *testing.T) {
	ap := newScriptedAP()
	cfg := DefaultConfig()
	cfg.Integrator = Euler
	res, err := Run(trimInit(ap.llc), 5.0, ap, cfg)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if res.Status != ode.Finished {
		t.Fatalf("status = %q, want finished", res.Status)
	}
	if len(res.Times) != 151 {
		t.Errorf("samples = %d, want 151", len(res.Times))
	}
}

func TestShortInitialStatePadded(t *testing.T) {
	ap := newScriptedAP()
	x0 := make(f16.State, f16.NumStates) // no integrator states
	x0[f16.Vt] = 500
	x0[f16.Alt] = 1000
	x0[f16.Pow] = ap.llc.PowTrim

	e, err := New(x0, ap, DefaultConfig())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	numVars := f16.NumStates + ap.llc.NumIntegrators()
	got := e.States()[0]
	if len(got) != numVars {
		t.Fatalf("padded state has %d vars, want %d", len(got), numVars)
	}
	for i := f16.NumStates; i < numVars; i++ {
		if got[i] != 0 {
			t.Errorf("integrator state %d = %g, want 0", i, got[i])
		}
	}
}

func TestMalformedInitialStateRejected(t *testing.T) {
	ap := newScriptedAP()
	numVars := f16.NumStates + ap.llc.NumIntegrators()
	if _, err := New(make(f16.State, numVars+1), ap, DefaultConfig()); err == nil {
		t.Error("expected error for non-multiple state length")
	}
	cfg := DefaultConfig()
	cfg.Step = 0
	if _, err := New(make(f16.State, numVars), ap, cfg); err == nil {
		t.Error("expected error for zero step")
	}
}

func TestAutopilotFinished(t *testing.T) {
	ap := newScriptedAP()
	ap.finishAt = 0.5

	cfg := DefaultConfig()
	cfg.Step = 0.1
	e, err := New(trimInit(ap.llc), ap, cfg)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if err := e.SimulateTo(2.0); err != nil {
		t.Fatalf("SimulateTo failed: %v", err)
	}
	if e.Status() != ode.AutopilotFinished {
		t.Fatalf("status = %q, want autopilot finished", e.Status())
	}
	if last := e.Times()[len(e.Times())-1]; math.Abs(last-0.5) > 1e-7 {
		t.Errorf("final time = %g, want 0.5", last)
	}
	if err := e.SimulateTo(3.0); err == nil {
		t.Error("expected error calling SimulateTo on a finished engine")
	}
}

func TestHorizonRegressionRejected(t *testing.T) {
	ap := newScriptedAP()
	e, err := New(trimInit(ap.llc), ap, DefaultConfig())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if err := e.SimulateTo(1.0); err != nil {
		t.Fatal(err)
	}
	if err := e.SimulateTo(0.5); err == nil {
		t.Error("expected error for horizon regression")
	}
}
