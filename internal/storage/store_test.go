package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/san-kum/pendulab/internal/control"
	"github.com/san-kum/pendulab/internal/dynamo"
	"github.com/san-kum/pendulab/internal/sim"
)

func duelWorld(t *testing.T, ticks int) *sim.World {
	t.Helper()

	w, err := sim.NewWorld(sim.DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}
	pid, _ := w.NewBody("pid", dynamo.DefaultState(), dynamo.DefaultParams())
	pid.AttachPID(control.DefaultPID())
	lqr, _ := w.NewBody("lqr", dynamo.DefaultState(), dynamo.DefaultParams())
	lqr.AttachLQR(control.DefaultLQR())

	if err := w.Run(context.Background(), ticks); err != nil {
		t.Fatal(err)
	}
	return w
}

func TestStoreSaveLoad(t *testing.T) {
	tmpDir := t.TempDir()
	st := New(tmpDir)

	if err := st.Init(); err != nil {
		t.Fatalf("init failed: %v", err)
	}

	runID, err := st.Save("duel", duelWorld(t, 20))
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}

	if runID == "" {
		t.Error("expected non-empty run id")
	}

	meta, err := st.Load(runID)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if meta.Scene != "duel" {
		t.Errorf("expected scene 'duel', got '%s'", meta.Scene)
	}
	if meta.Ticks != 20 {
		t.Errorf("expected 20 ticks, got %d", meta.Ticks)
	}
	if len(meta.Bodies) != 2 {
		t.Fatalf("expected 2 bodies, got %d", len(meta.Bodies))
	}
	if meta.Bodies[0].Controller != "pid" || meta.Bodies[0].Gains["kp"] != -8 {
		t.Errorf("unexpected pid metadata %+v", meta.Bodies[0])
	}
	if meta.Bodies[1].Params.ControlPower != 5 {
		t.Errorf("expected control power 5, got %f", meta.Bodies[1].Params.ControlPower)
	}

	pid, err := st.LoadHistory(runID, "pid")
	if err != nil {
		t.Fatalf("load history failed: %v", err)
	}
	if len(pid.Times) != 20 {
		t.Errorf("expected 20 rows, got %d", len(pid.Times))
	}
	if len(pid.Names) != 3 || pid.Names[0] != "control" || pid.Names[1] != "error" {
		t.Errorf("unexpected columns %v", pid.Names)
	}
	if math.Abs(pid.Times[1]-dynamo.Dt) > 1e-9 {
		t.Errorf("expected second row at dt, got %f", pid.Times[1])
	}
	if math.Abs(pid.Columns["error"][0]+0.5) > 1e-6 {
		t.Errorf("expected first error -0.5, got %f", pid.Columns["error"][0])
	}

	lqr, err := st.LoadHistory(runID, "lqr")
	if err != nil {
		t.Fatalf("load history failed: %v", err)
	}
	if len(lqr.Names) != 1 {
		t.Errorf("lqr history should only carry control, got %v", lqr.Names)
	}
}

func TestStoreList(t *testing.T) {
	tmpDir := t.TempDir()
	st := New(tmpDir)

	if err := st.Init(); err != nil {
		t.Fatalf("init failed: %v", err)
	}

	runs, err := st.List()
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}

	if len(runs) != 0 {
		t.Errorf("expected 0 runs, got %d", len(runs))
	}

	if _, err := st.Save("duel", duelWorld(t, 1)); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if _, err := st.Save("duel", duelWorld(t, 2)); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	runs, err = st.List()
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}

	if len(runs) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(runs))
	}
	if runs[0].Ticks != 1 {
		t.Error("runs should be listed oldest first")
	}
}

func TestStoreListMissingDir(t *testing.T) {
	st := New(filepath.Join(t.TempDir(), "absent"))
	runs, err := st.List()
	if err != nil || len(runs) != 0 {
		t.Errorf("expected empty list, got %v, %v", runs, err)
	}
}

func TestStoreFileStructure(t *testing.T) {
	tmpDir := t.TempDir()
	st := New(tmpDir)

	if err := st.Init(); err != nil {
		t.Fatalf("init failed: %v", err)
	}

	runID, err := st.Save("duel", duelWorld(t, 3))
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}

	runDir := filepath.Join(tmpDir, runID)
	for _, name := range []string{"metadata.json", "history_pid.csv", "history_lqr.csv"} {
		if _, err := os.Stat(filepath.Join(runDir, name)); os.IsNotExist(err) {
			t.Errorf("%s not created", name)
		}
	}
}

func TestExportJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := ExportJSON(&buf, "duel", duelWorld(t, 10)); err != nil {
		t.Fatal(err)
	}

	var data ExportData
	if err := json.Unmarshal(buf.Bytes(), &data); err != nil {
		t.Fatal(err)
	}

	if data.Ticks != 10 || len(data.Bodies) != 2 {
		t.Fatalf("unexpected export %+v", data)
	}
	pid := data.Bodies[0]
	if pid.Name != "pid" || len(pid.Times) != 10 || len(pid.History["accumulator"]) != 10 {
		t.Errorf("unexpected pid export: name=%s times=%d", pid.Name, len(pid.Times))
	}
	if _, ok := data.Bodies[1].History["error"]; ok {
		t.Error("lqr export should not carry an error series")
	}
}

func TestSnapshot(t *testing.T) {
	w := duelWorld(t, 5)
	pid, _ := w.Body("pid")

	h := Snapshot(pid.History(), w.Dt())
	if len(h.Times) != 5 || len(h.Columns["control"]) != 5 {
		t.Fatalf("unexpected snapshot sizes: %d times", len(h.Times))
	}
	if h.Names[2] != "accumulator" {
		t.Errorf("unexpected column order %v", h.Names)
	}
	if h.Columns["control"][4] != pid.Control() {
		t.Error("last control sample should match the body")
	}
}

func TestSnapshotPIDAttachedMidRun(t *testing.T) {
	w, err := sim.NewWorld(sim.DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}
	b, _ := w.NewBody("late", dynamo.DefaultState(), dynamo.DefaultParams())
	if err := w.Run(context.Background(), 5); err != nil {
		t.Fatal(err)
	}
	b.AttachPID(control.DefaultPID())
	if err := w.Run(context.Background(), 3); err != nil {
		t.Fatal(err)
	}

	h := Snapshot(b.History(), w.Dt())
	if len(h.Times) != 3 {
		t.Fatalf("expected 3 shared ticks, got %d", len(h.Times))
	}
	if math.Abs(h.Times[0]-5*w.Dt()) > 1e-12 {
		t.Errorf("expected first row at t=%f, got %f", 5*w.Dt(), h.Times[0])
	}
	for _, name := range h.Names {
		if len(h.Columns[name]) != 3 {
			t.Errorf("column %s has %d values, want 3", name, len(h.Columns[name]))
		}
	}
	if h.Columns["control"][2] != b.Control() {
		t.Error("last control sample should match the body")
	}
}
