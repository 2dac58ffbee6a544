package optim

import (
	"context"
	"errors"
	"math"
	"runtime"

	"github.com/san-kum/pendulab/internal/metrics"
	"github.com/san-kum/pendulab/internal/sim"
)

// BuildFunc creates a fresh world for one candidate parameter set.
type BuildFunc func(params map[string]float64) (*sim.World, error)

// ScoreFunc rates a finished world. Lower is better.
type ScoreFunc func(w *sim.World) float64

type Result struct {
	Params    map[string]float64
	Score     float64
	Evaluated int
}

// GridSearch tries every combination of the given parameter values. Each
// candidate runs in its own world, Workers at a time.
type GridSearch struct {
	paramNames []string
	ranges     [][]float64

	Workers int
}

func NewGridSearch(params []string, ranges [][]float64) *GridSearch {
	return &GridSearch{paramNames: params, ranges: ranges, Workers: runtime.NumCPU()}
}

// Candidates lists every parameter combination in search order.
func (g *GridSearch) Candidates() []map[string]float64 {
	var out []map[string]float64
	g.collect(0, make(map[string]float64), &out)
	return out
}

func (g *GridSearch) collect(depth int, current map[string]float64, out *[]map[string]float64) {
	if depth == len(g.paramNames) {
		*out = append(*out, current)
		return
	}

	paramName := g.paramNames[depth]
	for _, val := range g.ranges[depth] {
		newParams := make(map[string]float64, len(current)+1)
		for k, v := range current {
			newParams[k] = v
		}
		newParams[paramName] = val

		g.collect(depth+1, newParams, out)
	}
}

// Search runs every candidate for ticks ticks with the standard metrics
// attached and returns the lowest-scoring one. Candidates that fail to build
// are skipped.
func (g *GridSearch) Search(ctx context.Context, build BuildFunc, score ScoreFunc, ticks int) (*Result, error) {
	if len(g.paramNames) != len(g.ranges) {
		return nil, errors.New("parameter names and ranges differ in length")
	}

	workers := g.Workers
	if workers <= 0 {
		workers = 1
	}

	res := &Result{Score: math.Inf(1)}
	candidates := g.Candidates()

	for lo := 0; lo < len(candidates); lo += workers {
		hi := min(lo+workers, len(candidates))

		var (
			worlds []*sim.World
			params []map[string]float64
		)
		for _, c := range candidates[lo:hi] {
			w, err := build(c)
			if err != nil {
				continue
			}
			metrics.Attach(w)
			worlds = append(worlds, w)
			params = append(params, c)
		}

		if err := sim.RunAll(ctx, worlds, ticks); err != nil {
			return nil, err
		}

		for i, w := range worlds {
			res.Evaluated++
			if s := score(w); s < res.Score {
				res.Score = s
				res.Params = params[i]
			}
		}
	}

	if res.Params == nil {
		return nil, errors.New("no candidate could be evaluated")
	}
	return res, nil
}

// ApplyParams sets each named value on the controller of every body that
// has one.
func ApplyParams(w *sim.World, params map[string]float64) error {
	for _, b := range w.Bodies() {
		c := b.Controller()
		if c == nil {
			continue
		}
		for name, v := range params {
			if err := c.SetParam(name, v); err != nil {
				return err
			}
		}
	}
	return nil
}

// SettlingScore rates a world by the settling time of the named body, plus
// effortWeight times its mean control effort. A body that never settles
// scores as if it settled at the end of the run, doubled.
func SettlingScore(body string, effortWeight float64) ScoreFunc {
	return func(w *sim.World) float64 {
		b, ok := w.Body(body)
		if !ok {
			return math.Inf(1)
		}
		m := b.Metrics()

		settle := m["settling_time"]
		if settle == metrics.Unsettled {
			settle = 2 * w.Time()
		}
		return settle + effortWeight*m["control_effort"] + m["failures"]
	}
}

// Range returns n evenly spaced values from lo to hi inclusive.
func Range(lo, hi float64, n int) []float64 {
	if n <= 1 {
		return []float64{lo}
	}
	out := make([]float64, n)
	step := (hi - lo) / float64(n-1)
	for i := range out {
		out[i] = lo + float64(i)*step
	}
	return out
}
