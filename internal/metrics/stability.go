package metrics

import (
	"math"

	"github.com/asecurityteam/rolling"

	"github.com/san-kum/pendulab/internal/sim"
)

const (
	DefaultSettlingBand   = 0.05
	DefaultSettlingWindow = 40
)

// Unsettled is what Settling reports while the body is outside its band.
const Unsettled = -1.0

// Settling reports the time at which |angle − set point| last entered the
// band and stayed inside it for a full window of ticks. Bodies with no
// controller never settle.
type Settling struct {
	name   string
	band   float64
	size   int
	window *rolling.PointPolicy
	filled int

	settledAt float64
}

func NewSettling(band float64, window int) *Settling {
	if band <= 0 {
		band = DefaultSettlingBand
	}
	if window <= 0 {
		window = DefaultSettlingWindow
	}
	return &Settling{
		name:      "settling_time",
		band:      band,
		size:      window,
		window:    rolling.NewPointPolicy(rolling.NewWindow(window)),
		settledAt: Unsettled,
	}
}

func (s *Settling) Name() string { return s.name }

func (s *Settling) Observe(sample sim.Sample) {
	if !sample.HasTarget {
		return
	}
	s.window.Append(math.Abs(sample.State.Angle - sample.Target))
	if s.filled < s.size {
		s.filled++
	}
	if s.filled < s.size {
		return
	}

	inside := s.window.Reduce(rolling.Max) < s.band
	switch {
	case !inside:
		s.settledAt = Unsettled
	case s.settledAt == Unsettled:
		dt := sample.Time / float64(sample.Tick+1)
		s.settledAt = sample.Time - float64(s.size-1)*dt
	}
}

// Value is the settling time in seconds, or Unsettled.
func (s *Settling) Value() float64 { return s.settledAt }

// Recent is the mean |angle − set point| over the current window.
func (s *Settling) Recent() float64 {
	if s.filled == 0 {
		return 0
	}
	return s.window.Reduce(rolling.Avg)
}

func (s *Settling) Reset() {
	s.window = rolling.NewPointPolicy(rolling.NewWindow(s.size))
	s.filled = 0
	s.settledAt = Unsettled
}

// PeakDeviation is the largest |angle − set point| observed.
type PeakDeviation struct {
	name string
	peak float64
}

func NewPeakDeviation() *PeakDeviation {
	return &PeakDeviation{name: "peak_deviation"}
}

func (p *PeakDeviation) Name() string { return p.name }

func (p *PeakDeviation) Observe(s sim.Sample) {
	if !s.HasTarget {
		return
	}
	p.peak = math.Max(p.peak, math.Abs(s.State.Angle-s.Target))
}

func (p *PeakDeviation) Value() float64 { return p.peak }

func (p *PeakDeviation) Reset() { p.peak = 0 }
