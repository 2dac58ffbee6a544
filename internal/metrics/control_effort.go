package metrics

import (
	"math"

	"github.com/san-kum/pendulab/internal/dynamo"
	"github.com/san-kum/pendulab/internal/sim"
)

// ControlEffort is the mean |u| over the observed ticks.
type ControlEffort struct {
	name    string
	sum     float64
	samples int
}

func NewControlEffort() *ControlEffort {
	return &ControlEffort{
		name: "control_effort",
	}
}

func (c *ControlEffort) Name() string {
	return c.name
}

func (c *ControlEffort) Observe(s sim.Sample) {
	c.sum += math.Abs(s.Control)
	c.samples++
}

func (c *ControlEffort) Value() float64 {
	if c.samples == 0 {
		return 0
	}
	return c.sum / float64(c.samples)
}

func (c *ControlEffort) Reset() {
	c.sum = 0
	c.samples = 0
}

// Saturation is the fraction of ticks on which the control sat on a limit.
type Saturation struct {
	name      string
	saturated int
	samples   int
}

func NewSaturation() *Saturation {
	return &Saturation{name: "saturation"}
}

func (c *Saturation) Name() string { return c.name }

func (c *Saturation) Observe(s sim.Sample) {
	if math.Abs(s.Control) >= dynamo.MaxControl {
		c.saturated++
	}
	c.samples++
}

func (c *Saturation) Value() float64 {
	if c.samples == 0 {
		return 0
	}
	return float64(c.saturated) / float64(c.samples)
}

func (c *Saturation) Reset() {
	c.saturated = 0
	c.samples = 0
}

// Failures counts ticks on which the controller reported an error.
type Failures struct {
	name  string
	count int
}

func NewFailures() *Failures {
	return &Failures{name: "failures"}
}

func (f *Failures) Name() string { return f.name }

func (f *Failures) Observe(s sim.Sample) {
	if s.Err != nil {
		f.count++
	}
}

func (f *Failures) Value() float64 { return float64(f.count) }

func (f *Failures) Reset() { f.count = 0 }
