package main

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"

	"github.com/mwaldron/f16sim/internal/analysis"
	"github.com/mwaldron/f16sim/internal/autopilot"
	"github.com/mwaldron/f16sim/internal/config"
	"github.com/mwaldron/f16sim/internal/f16"
	"github.com/mwaldron/f16sim/internal/metrics"
	"github.com/mwaldron/f16sim/internal/sim"
	"github.com/mwaldron/f16sim/internal/storage"
	"github.com/mwaldron/f16sim/internal/viz"
)

var (
	dataDir    string
	configFile string
	preset     string
	model      string
	integrator string
	autopilotN string
	step       float64
	tmax       float64
	aircraft   int
	extended   bool
	v2         bool
	alt        float64
	vt         float64
	theta      float64
	phi        float64
	altSet     float64
	vtSet      float64
	pullNz     float64
)

func main() {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, nil)))

	rootCmd := &cobra.Command{
		Use:   "f16sim",
		Short: "F-16 flight dynamics and autopilot simulation",
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".f16sim", "data directory")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run a simulation and store the trajectory",
		RunE:  runSimulation,
	}
	addScenarioFlags(runCmd)

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list stored runs",
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot a stored trajectory",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}

	exportCmd := &cobra.Command{
		Use:   "export [run_id]",
		Short: "export run metadata as JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  exportRun,
	}

	exportCSVCmd := &cobra.Command{
		Use:   "export-csv [run_id]",
		Short: "export trajectory data to CSV on stdout",
		Args:  cobra.ExactArgs(1),
		RunE:  exportCSV,
	}

	exportJSONCmd := &cobra.Command{
		Use:   "export-json [run_id]",
		Short: "export metadata and trajectory as JSON on stdout",
		Args:  cobra.ExactArgs(1),
		RunE:  exportJSON,
	}

	liveCmd := &cobra.Command{
		Use:   "live",
		Short: "run with a live terminal flight display",
		RunE:  runLive,
	}
	addScenarioFlags(liveCmd)

	compareCmd := &cobra.Command{
		Use:   "compare [integrator1] [integrator2] ...",
		Short: "run the same scenario under different integrators",
		Args:  cobra.MinimumNArgs(2),
		RunE:  compareIntegrators,
	}
	addScenarioFlags(compareCmd)

	analyzeCmd := &cobra.Command{
		Use:   "analyze [run_id]",
		Short: "frequency analysis of a stored trajectory",
		Args:  cobra.ExactArgs(1),
		RunE:  analyzeRun,
	}

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list available scenario presets",
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, name := range config.ListPresets() {
				p := config.GetPreset(name)
				fmt.Printf("  %-16s %s / %s, %d aircraft, %.0fs\n",
					name, p.Autopilot, p.Integrator, p.Aircraft, p.Tmax)
			}
			return nil
		},
	}

	rootCmd.AddCommand(runCmd, listCmd, plotCmd, exportCmd, exportCSVCmd, exportJSONCmd, liveCmd, compareCmd, analyzeCmd, presetsCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func addScenarioFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&configFile, "config", "", "scenario file path (yaml)")
	cmd.Flags().StringVar(&preset, "preset", "", "use a named preset scenario")
	cmd.Flags().StringVar(&model, "model", f16.ModelStevens, "aerodynamic model build (stevens|morelli)")
	cmd.Flags().StringVar(&integrator, "integrator", "rk45", "integrator (rk45|euler)")
	cmd.Flags().StringVar(&autopilotN, "autopilot", "level", "autopilot (level|gcas)")
	cmd.Flags().Float64Var(&step, "step", config.DefaultStep, "output sample interval (s)")
	cmd.Flags().Float64Var(&tmax, "time", config.DefaultTmax, "simulation horizon (s)")
	cmd.Flags().IntVar(&aircraft, "aircraft", 1, "number of aircraft")
	cmd.Flags().BoolVar(&extended, "extended", false, "record derivatives, applied inputs, and load factors")
	cmd.Flags().BoolVar(&v2, "v2", false, "clip controller error integrator derivatives")
	cmd.Flags().Float64Var(&alt, "alt", config.DefaultAlt, "initial altitude (ft)")
	cmd.Flags().Float64Var(&vt, "vt", config.DefaultVt, "initial airspeed (ft/s)")
	cmd.Flags().Float64Var(&theta, "theta", 0, "initial pitch angle (rad)")
	cmd.Flags().Float64Var(&phi, "phi", 0, "initial roll angle (rad)")
	cmd.Flags().Float64Var(&altSet, "alt-setpoint", config.DefaultAlt, "level autopilot altitude setpoint (ft)")
	cmd.Flags().Float64Var(&vtSet, "vt-setpoint", config.DefaultVt, "level autopilot airspeed setpoint (ft/s)")
	cmd.Flags().Float64Var(&pullNz, "pull-nz", 5.0, "gcas recovery load factor (g)")
}

// buildConfig resolves the scenario: preset first, then config file, then
// any explicitly set flags on top.
func buildConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.DefaultConfig()

	if preset != "" {
		p := config.GetPreset(preset)
		if p == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets())
		}
		cfg = p
	}

	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
	}

	flags := cmd.Flags()
	if flags.Changed("model") {
		cfg.Model = model
	}
	if flags.Changed("integrator") {
		cfg.Integrator = integrator
	}
	if flags.Changed("autopilot") {
		cfg.Autopilot = autopilotN
	}
	if flags.Changed("step") {
		cfg.Step = step
	}
	if flags.Changed("time") {
		cfg.Tmax = tmax
	}
	if flags.Changed("aircraft") {
		cfg.Aircraft = aircraft
	}
	if flags.Changed("extended") {
		cfg.Extended = extended
	}
	if flags.Changed("v2") {
		cfg.V2Integrators = v2
	}
	if flags.Changed("alt") {
		cfg.InitState.Alt = alt
	}
	if flags.Changed("vt") {
		cfg.InitState.Vt = vt
	}
	if flags.Changed("theta") {
		cfg.InitState.Theta = theta
	}
	if flags.Changed("phi") {
		cfg.InitState.Phi = phi
	}
	if flags.Changed("alt-setpoint") {
		cfg.AutopilotCfg.AltSetpoint = altSet
	}
	if flags.Changed("vt-setpoint") {
		cfg.AutopilotCfg.VtSetpoint = vtSet
	}
	if flags.Changed("pull-nz") {
		cfg.AutopilotCfg.PullNz = pullNz
	}

	return cfg, cfg.Validate()
}

func buildAutopilot(cfg *config.Config) (autopilot.Autopilot, error) {
	llc := f16.NewLLC(cfg.Model)
	switch cfg.Autopilot {
	case "level":
		altSetpoint := cfg.AutopilotCfg.AltSetpoint
		if altSetpoint == 0 {
			altSetpoint = cfg.InitState.Alt
		}
		vtSetpoint := cfg.AutopilotCfg.VtSetpoint
		if vtSetpoint == 0 {
			vtSetpoint = llc.VtTrim
		}
		return autopilot.NewLevelFlight(llc, altSetpoint, vtSetpoint), nil
	case "gcas":
		g := autopilot.NewGCAS(llc)
		if cfg.AutopilotCfg.PullNz > 0 {
			g.PullNz = cfg.AutopilotCfg.PullNz
		}
		return g, nil
	}
	return nil, fmt.Errorf("unknown autopilot: %s", cfg.Autopilot)
}

func simConfig(cfg *config.Config) sim.Config {
	sc := sim.DefaultConfig()
	sc.Step = cfg.Step
	sc.Integrator = sim.IntegratorKind(cfg.Integrator)
	sc.ExtendedStates = cfg.Extended
	sc.V2Integrators = cfg.V2Integrators
	return sc
}

// collectMetrics runs the flight-quality metrics over a finished
// trajectory and returns them keyed by name.
func collectMetrics(res *sim.Result, numVars int) map[string]float64 {
	ms := []metrics.Metric{
		metrics.NewPeakLoad(),
		metrics.NewControlEffort(),
		metrics.NewEnvelopeMargin(),
	}
	metrics.Collect(res, numVars, ms...)
	out := make(map[string]float64, len(ms))
	for _, m := range ms {
		out[m.Name()] = m.Value()
	}
	return out
}

func runSimulation(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd)
	if err != nil {
		return err
	}

	ap, err := buildAutopilot(cfg)
	if err != nil {
		return err
	}

	st := storage.New(dataDir)
	if err := st.Init(); err != nil {
		return err
	}

	llc := ap.LLC()
	numVars := f16.NumStates + llc.NumIntegrators()
	initial := cfg.BuildInitState(llc)

	fmt.Printf("running %s / %s scenario (%d aircraft)...\n", cfg.Autopilot, cfg.Model, cfg.Aircraft)
	start := time.Now()

	res, err := sim.Run(initial, cfg.Tmax, ap, simConfig(cfg))
	if err != nil {
		return err
	}

	elapsed := time.Since(start)
	vals := collectMetrics(res, numVars)

	runID, err := st.Save(cfg, res, vals)
	if err != nil {
		return err
	}

	fmt.Printf("completed in %v\n", elapsed)
	fmt.Printf("run id: %s\n", runID)
	fmt.Printf("status: %s\n", res.Status)
	fmt.Printf("samples: %d\n", len(res.States))
	fmt.Println("\nmetrics:")
	for _, name := range []string{"peak_load", "control_effort", "envelope_margin"} {
		fmt.Printf("  %s: %.4f\n", name, vals[name])
	}

	return nil
}

func listRuns(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	runs, err := st.List()
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tMODEL\tAUTOPILOT\tINTEG\tTIME\tTMAX\tSTATUS")
	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%.1fs\t%s\n",
			run.ID,
			run.Model,
			run.Autopilot,
			run.Integrator,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Tmax,
			run.Status,
		)
	}
	return w.Flush()
}

func plotRun(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	meta, err := st.Load(args[0])
	if err != nil {
		return err
	}
	_, _, states, err := st.LoadTrajectory(args[0])
	if err != nil {
		return err
	}
	if len(states) == 0 {
		return fmt.Errorf("no data to plot")
	}

	fmt.Printf("run: %s\n", meta.ID)
	fmt.Printf("model: %s, autopilot: %s\n", meta.Model, meta.Autopilot)
	fmt.Printf("samples: %d\n\n", len(states))

	// lead aircraft only
	plots := []struct {
		idx     int
		caption string
	}{
		{f16.Alt, "altitude (ft)"},
		{f16.Vt, "airspeed (ft/s)"},
		{f16.Alpha, "angle of attack (rad)"},
		{f16.Theta, "pitch angle (rad)"},
		{f16.Phi, "roll angle (rad)"},
	}

	for _, p := range plots {
		data := make([]float64, len(states))
		for i := range states {
			if p.idx < len(states[i]) {
				data[i] = states[i][p.idx]
			}
		}
		graph := asciigraph.Plot(data,
			asciigraph.Height(10),
			asciigraph.Width(80),
			asciigraph.Caption(p.caption),
		)
		fmt.Println(graph)
		fmt.Println()
	}

	return nil
}

// analyzeRun plots the power spectrum of the lead aircraft's pitch
// response and reports the dominant oscillation mode.
func analyzeRun(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	meta, err := st.Load(args[0])
	if err != nil {
		return err
	}
	times, _, states, err := st.LoadTrajectory(args[0])
	if err != nil {
		return err
	}
	if len(states) < 2 {
		return fmt.Errorf("not enough data to analyze")
	}

	fmt.Printf("frequency analysis: %s\n", meta.ID)
	fmt.Printf("model: %s, autopilot: %s\n\n", meta.Model, meta.Autopilot)

	data := make([]float64, len(states))
	for i := range states {
		data[i] = states[i][f16.Theta]
	}
	dt := times[1] - times[0]

	ps := analysis.PowerSpectrum(data)
	graph := asciigraph.Plot(ps[:len(ps)/4],
		asciigraph.Height(15),
		asciigraph.Width(80),
		asciigraph.Caption("power spectrum (pitch angle)"),
	)
	fmt.Println(graph)
	fmt.Println()

	freq := analysis.DominantFrequency(data, dt)
	fmt.Printf("dominant frequency: %.3f hz\n", freq)
	if freq > 0 {
		fmt.Printf("period: %.3f s\n", 1.0/freq)
	}
	return nil
}

func exportRun(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	meta, err := st.Load(args[0])
	if err != nil {
		return err
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(meta)
}

func exportCSV(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	times, modes, states, err := st.LoadTrajectory(args[0])
	if err != nil {
		return err
	}
	if len(states) == 0 {
		return fmt.Errorf("no data to export")
	}

	w := csv.NewWriter(os.Stdout)
	defer w.Flush()

	header := []string{"time", "mode"}
	for i := range states[0] {
		header = append(header, fmt.Sprintf("x%d", i))
	}
	if err := w.Write(header); err != nil {
		return err
	}

	for i := range states {
		row := []string{strconv.FormatFloat(times[i], 'f', 6, 64), modes[i]}
		for _, val := range states[i] {
			row = append(row, strconv.FormatFloat(val, 'g', -1, 64))
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	return w.Error()
}

func exportJSON(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	meta, err := st.Load(args[0])
	if err != nil {
		return err
	}
	times, modes, states, err := st.LoadTrajectory(args[0])
	if err != nil {
		return err
	}

	out := struct {
		Metadata *storage.RunMetadata `json:"metadata"`
		Times    []float64            `json:"times"`
		Modes    []string             `json:"modes"`
		States   []f16.State          `json:"states"`
	}{meta, times, modes, states}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func runLive(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd)
	if err != nil {
		return err
	}
	ap, err := buildAutopilot(cfg)
	if err != nil {
		return err
	}

	engine, err := sim.New(cfg.BuildInitState(ap.LLC()), ap, simConfig(cfg))
	if err != nil {
		return err
	}

	m := viz.NewModel(engine, cfg.Step, cfg.Tmax)
	p := tea.NewProgram(m)
	if _, err := p.Run(); err != nil {
		return err
	}
	return nil
}

func compareIntegrators(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd)
	if err != nil {
		return err
	}

	fmt.Printf("comparing integrators on %s / %s (step=%.4f, time=%.1fs)\n\n",
		cfg.Autopilot, cfg.Model, cfg.Step, cfg.Tmax)
	fmt.Printf("%-10s  %-10s  %12s  %12s  %10s\n", "integrator", "status", "final_alt", "final_vt", "time_ms")
	fmt.Println(strings.Repeat("-", 62))

	for _, name := range args {
		runCfg := *cfg
		runCfg.Integrator = name
		if err := runCfg.Validate(); err != nil {
			fmt.Printf("%-10s  error: %v\n", name, err)
			continue
		}

		ap, err := buildAutopilot(&runCfg)
		if err != nil {
			return err
		}

		res, err := sim.Run(runCfg.BuildInitState(ap.LLC()), runCfg.Tmax, ap, simConfig(&runCfg))
		if err != nil {
			fmt.Printf("%-10s  error: %v\n", name, err)
			continue
		}

		final := res.States[len(res.States)-1]
		fmt.Printf("%-10s  %-10s  %12.2f  %12.2f  %10.2f\n",
			name, res.Status, final[f16.Alt], final[f16.Vt],
			float64(res.Runtime.Microseconds())/1000)
	}
	return nil
}
