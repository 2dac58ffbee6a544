package metrics

import (
	"math"

	"github.com/san-kum/pendulab/internal/physics"
	"github.com/san-kum/pendulab/internal/sim"
)

// Energy is the mean mechanical energy per unit mass over the observed ticks.
type Energy struct {
	name    string
	total   float64
	samples int
}

func NewEnergy() *Energy {
	return &Energy{name: "energy"}
}

func (e *Energy) Name() string { return e.name }

func (e *Energy) Observe(s sim.Sample) {
	e.total += physics.Energy(s.State, s.Params)
	e.samples++
}

func (e *Energy) Value() float64 {
	if e.samples == 0 {
		return 0
	}
	return e.total / float64(e.samples)
}

func (e *Energy) Reset() {
	e.total = 0
	e.samples = 0
}

// EnergyDrift is the largest absolute departure from the energy seen on the
// first observed tick. Only meaningful for uncontrolled, frictionless bodies,
// where it measures integrator error.
type EnergyDrift struct {
	name     string
	initial  float64
	maxDrift float64
	samples  int
}

func NewEnergyDrift() *EnergyDrift {
	return &EnergyDrift{name: "energy_drift"}
}

func (e *EnergyDrift) Name() string { return e.name }

func (e *EnergyDrift) Observe(s sim.Sample) {
	energy := physics.Energy(s.State, s.Params)
	if e.samples == 0 {
		e.initial = energy
	}
	e.samples++
	e.maxDrift = math.Max(e.maxDrift, math.Abs(energy-e.initial))
}

func (e *EnergyDrift) Value() float64 { return e.maxDrift }

func (e *EnergyDrift) Reset() {
	e.initial = 0
	e.maxDrift = 0
	e.samples = 0
}
