// Package storage persists completed runs to disk as a metadata JSON
// plus a trajectory CSV, one directory per run.
package storage

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/mwaldron/f16sim/internal/config"
	"github.com/mwaldron/f16sim/internal/f16"
	"github.com/mwaldron/f16sim/internal/sim"
)

type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

type RunMetadata struct {
	ID         string             `json:"id"`
	Model      string             `json:"model"`
	Autopilot  string             `json:"autopilot"`
	Integrator string             `json:"integrator"`
	Timestamp  time.Time          `json:"timestamp"`
	Step       float64            `json:"step"`
	Tmax       float64            `json:"tmax"`
	Aircraft   int                `json:"aircraft"`
	Status     string             `json:"status"`
	Metrics    map[string]float64 `json:"metrics,omitempty"`
}

// columnNames builds the CSV header for the concatenated state vector.
// Single-aircraft runs use bare names; multi-aircraft runs suffix the
// aircraft index (vt_0, vt_1, ...).
func columnNames(numVars, numAircraft int) []string {
	base := f16.StateNames()
	base = append(base, "int_nz", "int_ps", "int_nyr")
	for len(base) < numVars {
		base = append(base, fmt.Sprintf("x%d", len(base)))
	}
	base = base[:numVars]

	if numAircraft <= 1 {
		return base
	}
	cols := make([]string, 0, numVars*numAircraft)
	for a := 0; a < numAircraft; a++ {
		for _, n := range base {
			cols = append(cols, fmt.Sprintf("%s_%d", n, a))
		}
	}
	return cols
}

func (s *Store) Save(cfg *config.Config, res *sim.Result, metrics map[string]float64) (string, error) {
	runID := fmt.Sprintf("%s_%s_%d", cfg.Autopilot, cfg.Model, time.Now().Unix())
	runDir := filepath.Join(s.baseDir, runID)

	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	meta := RunMetadata{
		ID:         runID,
		Model:      cfg.Model,
		Autopilot:  cfg.Autopilot,
		Integrator: cfg.Integrator,
		Timestamp:  time.Now(),
		Step:       cfg.Step,
		Tmax:       cfg.Tmax,
		Aircraft:   cfg.Aircraft,
		Status:     string(res.Status),
		Metrics:    metrics,
	}

	metaFile, err := os.Create(filepath.Join(runDir, "metadata.json"))
	if err != nil {
		return "", err
	}
	defer metaFile.Close()

	enc := json.NewEncoder(metaFile)
	enc.SetIndent("", "  ")
	if err := enc.Encode(meta); err != nil {
		return "", err
	}

	csvFile, err := os.Create(filepath.Join(runDir, "trajectory.csv"))
	if err != nil {
		return "", err
	}
	defer csvFile.Close()

	w := csv.NewWriter(csvFile)
	defer w.Flush()

	if len(res.States) == 0 {
		return runID, nil
	}

	numVars := len(res.States[0]) / cfg.Aircraft
	header := append([]string{"time", "mode"}, columnNames(numVars, cfg.Aircraft)...)
	if err := w.Write(header); err != nil {
		return "", err
	}

	for i := range res.States {
		row := make([]string, 0, len(header))
		row = append(row, strconv.FormatFloat(res.Times[i], 'f', 6, 64))

		mode := ""
		if i < len(res.Modes) {
			mode = string(res.Modes[i])
		}
		row = append(row, mode)

		for _, val := range res.States[i] {
			row = append(row, strconv.FormatFloat(val, 'g', -1, 64))
		}
		if err := w.Write(row); err != nil {
			return "", err
		}
	}

	return runID, w.Error()
}

func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, err
	}

	runs := make([]RunMetadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		meta, err := s.Load(entry.Name())
		if err != nil {
			continue
		}
		runs = append(runs, *meta)
	}
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, "metadata.json"))
	if err != nil {
		return nil, err
	}
	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

// LoadTrajectory reads back the recorded times, modes, and states of a
// saved run.
func (s *Store) LoadTrajectory(runID string) ([]float64, []string, []f16.State, error) {
	file, err := os.Open(filepath.Join(s.baseDir, runID, "trajectory.csv"))
	if err != nil {
		return nil, nil, nil, err
	}
	defer file.Close()

	r := csv.NewReader(file)
	r.FieldsPerRecord = -1

	records, err := r.ReadAll()
	if err != nil {
		return nil, nil, nil, err
	}
	if len(records) < 2 {
		return []float64{}, []string{}, []f16.State{}, nil
	}

	times := make([]float64, 0, len(records)-1)
	modes := make([]string, 0, len(records)-1)
	states := make([]f16.State, 0, len(records)-1)

	for _, record := range records[1:] {
		if len(record) < 2 {
			continue
		}
		t, err := strconv.ParseFloat(record[0], 64)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("storage: bad time value %q: %w", record[0], err)
		}

		x := make(f16.State, 0, len(record)-2)
		for _, field := range record[2:] {
			val, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, nil, nil, fmt.Errorf("storage: bad state value %q: %w", field, err)
			}
			x = append(x, val)
		}

		times = append(times, t)
		modes = append(modes, record[1])
		states = append(states, x)
	}

	return times, modes, states, nil
}
