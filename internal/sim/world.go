package sim

import (
	"context"
	"fmt"

	"github.com/san-kum/pendulab/internal/dynamo"
)

// World advances a set of independent bodies in fixed ticks. It is not safe
// for concurrent use; configuration writes must happen between ticks.
type World struct {
	cfg    Config
	bodies []*Body
	tick   int
}

func NewWorld(cfg Config, bodies ...*Body) (*World, error) {
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}
	w := &World{cfg: cfg}
	for _, b := range bodies {
		if err := w.Add(b); err != nil {
			return nil, err
		}
	}
	return w, nil
}

func validateConfig(cfg Config) error {
	if !(cfg.Dt > 0) {
		return fmt.Errorf("dt must be positive, got %f", cfg.Dt)
	}
	if cfg.HistoryCapacity < 0 {
		return fmt.Errorf("history capacity must not be negative, got %d", cfg.HistoryCapacity)
	}
	return nil
}

func (w *World) Add(b *Body) error {
	if _, ok := w.Body(b.Name); ok {
		return fmt.Errorf("duplicate body name %q", b.Name)
	}
	if err := b.Params.Validate(); err != nil {
		return fmt.Errorf("body %q: %w", b.Name, err)
	}
	w.bodies = append(w.bodies, b)
	return nil
}

// NewBody creates a body sized to this world's history capacity and adds it.
func (w *World) NewBody(name string, x dynamo.State, p dynamo.Params) (*Body, error) {
	b := NewBody(name, x, p, w.cfg.HistoryCapacity)
	if err := w.Add(b); err != nil {
		return nil, err
	}
	return b, nil
}

// Advance runs one tick of length dt on every body.
func (w *World) Advance(dt float64) {
	for _, b := range w.bodies {
		b.step(w.tick, dt)
	}
	w.tick++
}

// Step advances by the configured tick.
func (w *World) Step() { w.Advance(w.cfg.Dt) }

// Run advances ticks times, checking ctx between ticks.
func (w *World) Run(ctx context.Context, ticks int) error {
	for i := 0; i < ticks; i++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		w.Step()
	}
	return nil
}

// RunWithCallback advances until ticks are exhausted or callback returns
// false. The callback runs after each tick.
func (w *World) RunWithCallback(ctx context.Context, ticks int, callback func(w *World) bool) error {
	for i := 0; i < ticks; i++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		w.Step()
		if !callback(w) {
			return nil
		}
	}
	return nil
}

func (w *World) Tick() int { return w.tick }

// Time is tick · dt.
func (w *World) Time() float64 { return float64(w.tick) * w.cfg.Dt }

func (w *World) Dt() float64 { return w.cfg.Dt }

func (w *World) Config() Config { return w.cfg }

func (w *World) Bodies() []*Body { return w.bodies }

func (w *World) Body(name string) (*Body, bool) {
	for _, b := range w.bodies {
		if b.Name == name {
			return b, true
		}
	}
	return nil, false
}

// Reset returns every body to its initial state and rewinds the clock.
func (w *World) Reset() {
	for _, b := range w.bodies {
		b.Reset()
	}
	w.tick = 0
}
