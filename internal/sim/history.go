package sim

import "fmt"

// DefaultHistoryCapacity keeps a little under 14 minutes of ticks at the
// default rate.
const DefaultHistoryCapacity = 1 << 14

// Series is a fixed-capacity ring of per-tick values. Once full, each append
// drops the oldest value.
type Series struct {
	buf   []float64
	head  int
	total int
	limit int
}

func NewSeries(capacity int) *Series {
	if capacity <= 0 {
		capacity = DefaultHistoryCapacity
	}
	return &Series{
		buf:   make([]float64, 0, min(capacity, 1024)),
		limit: capacity,
	}
}

func (s *Series) Append(v float64) {
	s.total++
	if len(s.buf) < s.limit {
		s.buf = append(s.buf, v)
		return
	}
	s.buf[s.head] = v
	s.head = (s.head + 1) % s.limit
}

func (s *Series) Len() int { return len(s.buf) }

func (s *Series) Cap() int { return s.limit }

// Start is the tick index of the oldest retained value.
func (s *Series) Start() int { return s.total - len(s.buf) }

// At returns the i-th retained value, oldest first. It panics unless
// 0 <= i < Len().
func (s *Series) At(i int) float64 {
	if i < 0 || i >= len(s.buf) {
		panic(fmt.Sprintf("sim: series index %d out of range [0, %d)", i, len(s.buf)))
	}
	return s.buf[(s.head+i)%len(s.buf)]
}

func (s *Series) Last() (float64, bool) {
	if len(s.buf) == 0 {
		return 0, false
	}
	return s.At(len(s.buf) - 1), true
}

// Values copies the retained values out, oldest first.
func (s *Series) Values() []float64 {
	out := make([]float64, len(s.buf))
	n := copy(out, s.buf[s.head:])
	copy(out[n:], s.buf[:s.head])
	return out
}

// Points pairs each retained value with its time, tick index · dt.
func (s *Series) Points(dt float64) [][2]float64 {
	start := s.Start()
	out := make([][2]float64, len(s.buf))
	for i := range out {
		out[i] = [2]float64{float64(start+i) * dt, s.At(i)}
	}
	return out
}

func (s *Series) Reset() {
	s.buf = s.buf[:0]
	s.head = 0
	s.total = 0
}

// History holds a body's recorded sequences. Error and Accumulator are nil
// unless a PID is attached. Error is recorded as set point − angle.
type History struct {
	Control     *Series
	Error       *Series
	Accumulator *Series

	capacity int
}

func NewHistory(capacity int) *History {
	return &History{
		Control:  NewSeries(capacity),
		capacity: capacity,
	}
}

func (h *History) trackPID(on bool) {
	if !on {
		h.Error, h.Accumulator = nil, nil
		return
	}
	if h.Error == nil {
		// aligned with Control so tick indices agree when attached mid-run
		h.Error = NewSeries(h.capacity)
		h.Accumulator = NewSeries(h.capacity)
		h.Error.total = h.Control.total
		h.Accumulator.total = h.Control.total
	}
}

// Series returns the named sequences that are currently tracked.
func (h *History) Series() map[string]*Series {
	out := map[string]*Series{"control": h.Control}
	if h.Error != nil {
		out["error"] = h.Error
		out["accumulator"] = h.Accumulator
	}
	return out
}

func (h *History) Reset() {
	for _, s := range h.Series() {
		s.Reset()
	}
}
