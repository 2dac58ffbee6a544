package metrics

import "github.com/san-kum/pendulab/internal/sim"

// Standard returns the metric set recorded for every body in a run.
func Standard() []sim.Metric {
	return []sim.Metric{
		NewEnergyDrift(),
		NewControlEffort(),
		NewSaturation(),
		NewFailures(),
		NewSettling(DefaultSettlingBand, DefaultSettlingWindow),
		NewPeakDeviation(),
	}
}

// Attach adds the standard metrics to every body in w.
func Attach(w *sim.World) {
	for _, b := range w.Bodies() {
		for _, m := range Standard() {
			b.AddMetric(m)
		}
	}
}
