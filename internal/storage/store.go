package storage

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/san-kum/pendulab/internal/dynamo"
	"github.com/san-kum/pendulab/internal/sim"
)

// Store keeps one directory per run: metadata.json plus a history CSV for
// each body.
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
	ID        string         `json:"id"`
	Scene     string         `json:"scene"`
	Timestamp time.Time      `json:"timestamp"`
	Dt        float64        `json:"dt"`
	Ticks     int            `json:"ticks"`
	Bodies    []BodyMetadata `json:"bodies"`
}

type BodyMetadata struct {
	Name         string             `json:"name"`
	Controller   string             `json:"controller"`
	Params       dynamo.Params      `json:"params"`
	Gains        map[string]float64 `json:"gains,omitempty"`
	Initial      dynamo.State       `json:"initial"`
	Final        dynamo.State       `json:"final"`
	Failures     int                `json:"failures"`
	HistoryStart int                `json:"history_start"`
	Metrics      map[string]float64 `json:"metrics"`
}

// Describe summarizes a world's bodies at the current tick.
func Describe(w *sim.World) []BodyMetadata {
	out := make([]BodyMetadata, 0, len(w.Bodies()))
	for _, b := range w.Bodies() {
		bm := BodyMetadata{
			Name:         b.Name,
			Controller:   b.Kind().String(),
			Params:       b.Params,
			Initial:      b.Initial(),
			Final:        b.State,
			Failures:     b.Failures(),
			HistoryStart: b.History().Control.Start(),
			Metrics:      b.Metrics(),
		}
		if c := b.Controller(); c != nil {
			bm.Gains = c.GetParams()
		}
		out = append(out, bm)
	}
	return out
}

// HistoryFile is the CSV name used for a body's history.
func HistoryFile(body string) string {
	return "history_" + body + ".csv"
}

// Save writes the world's current histories under a new run directory and
// returns the run ID.
func (s *Store) Save(scene string, w *sim.World) (string, error) {
	now := time.Now()
	runID := fmt.Sprintf("%s_%d", scene, now.UnixNano())
	runDir := filepath.Join(s.baseDir, runID)

	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	meta := RunMetadata{
		ID:        runID,
		Scene:     scene,
		Timestamp: now,
		Dt:        w.Dt(),
		Ticks:     w.Tick(),
		Bodies:    Describe(w),
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

	for _, b := range w.Bodies() {
		if err := writeHistory(filepath.Join(runDir, HistoryFile(b.Name)), b.History(), w.Dt()); err != nil {
			return "", fmt.Errorf("body %q: %w", b.Name, err)
		}
	}

	return runID, nil
}

// Columns orders a history's series for export: control first, then the
// PID series when present.
func Columns(h *sim.History) []string {
	names := make([]string, 0, 3)
	for name := range h.Series() {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool { return columnRank(names[i]) < columnRank(names[j]) })
	return names
}

func columnRank(name string) int {
	switch name {
	case "control":
		return 0
	case "error":
		return 1
	case "accumulator":
		return 2
	}
	return 3
}

// span is the tick range every tracked series covers. Series added to a body
// mid-run start later than Control.
func span(h *sim.History) (start, n int) {
	start = h.Control.Start()
	end := start + h.Control.Len()
	for _, s := range h.Series() {
		start = max(start, s.Start())
	}
	return start, max(end-start, 0)
}

func valueAt(s *sim.Series, tick int) float64 {
	return s.At(tick - s.Start())
}

func writeHistory(path string, h *sim.History, dt float64) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	w := csv.NewWriter(file)
	defer w.Flush()

	cols := Columns(h)
	series := h.Series()

	header := append([]string{"time"}, cols...)
	if err := w.Write(header); err != nil {
		return err
	}

	start, n := span(h)
	for i := 0; i < n; i++ {
		row := []string{strconv.FormatFloat(float64(start+i)*dt, 'f', 6, 64)}
		for _, c := range cols {
			row = append(row, strconv.FormatFloat(valueAt(series[c], start+i), 'f', 6, 64))
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	return w.Error()
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

	sort.Slice(runs, func(i, j int) bool { return runs[i].Timestamp.Before(runs[j].Timestamp) })
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

// HistoryData is a body history read back from disk.
type HistoryData struct {
	Times   []float64
	Names   []string
	Columns map[string][]float64
}

func (s *Store) LoadHistory(runID, body string) (*HistoryData, error) {
	file, err := os.Open(filepath.Join(s.baseDir, runID, HistoryFile(body)))
	if err != nil {
		return nil, err
	}
	defer file.Close()

	r := csv.NewReader(file)
	records, err := r.ReadAll()
	if err != nil {
		return nil, err
	}

	out := &HistoryData{Columns: make(map[string][]float64)}
	if len(records) == 0 {
		return out, nil
	}

	out.Names = records[0][1:]
	for i := 1; i < len(records); i++ {
		record := records[i]

		t, err := strconv.ParseFloat(record[0], 64)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		out.Times = append(out.Times, t)

		for j, name := range out.Names {
			val, err := strconv.ParseFloat(record[j+1], 64)
			if err != nil {
				return nil, fmt.Errorf("row %d, %s: %w", i, name, err)
			}
			out.Columns[name] = append(out.Columns[name], val)
		}
	}

	return out, nil
}

// Snapshot copies an in-memory history into the same shape LoadHistory
// returns.
func Snapshot(h *sim.History, dt float64) *HistoryData {
	out := &HistoryData{
		Names:   Columns(h),
		Columns: make(map[string][]float64),
	}
	start, n := span(h)
	series := h.Series()
	for i := 0; i < n; i++ {
		out.Times = append(out.Times, float64(start+i)*dt)
		for _, name := range out.Names {
			out.Columns[name] = append(out.Columns[name], valueAt(series[name], start+i))
		}
	}
	return out
}
