package storage

import (
	"encoding/json"
	"io"

	"github.com/san-kum/pendulab/internal/sim"
)

type ExportData struct {
	Scene  string       `json:"scene"`
	Dt     float64      `json:"dt"`
	Ticks  int          `json:"ticks"`
	Bodies []ExportBody `json:"bodies"`
}

type ExportBody struct {
	BodyMetadata
	Times   []float64            `json:"times"`
	History map[string][]float64 `json:"history"`
}

// ExportJSON writes the world's metadata and full retained histories as a
// single JSON document.
func ExportJSON(out io.Writer, scene string, w *sim.World) error {
	data := ExportData{
		Scene:  scene,
		Dt:     w.Dt(),
		Ticks:  w.Tick(),
		Bodies: make([]ExportBody, 0, len(w.Bodies())),
	}

	meta := Describe(w)
	for i, b := range w.Bodies() {
		snap := Snapshot(b.History(), w.Dt())
		eb := ExportBody{
			BodyMetadata: meta[i],
			Times:        snap.Times,
			History:      snap.Columns,
		}
		data.Bodies = append(data.Bodies, eb)
	}

	encoder := json.NewEncoder(out)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}
