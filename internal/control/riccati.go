package control

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/pendulab/internal/dynamo"
)

const (
	DefaultTolerance     = 1e-7
	DefaultMaxIterations = 5000
)

// ConvergenceError reports a Riccati iteration that ran out of iterations.
type ConvergenceError struct {
	Iterations int
	Delta      float64
}

func (e *ConvergenceError) Error() string {
	return fmt.Sprintf("%v after %d iterations (last delta %.3g)", dynamo.ErrDidNotConverge, e.Iterations, e.Delta)
}

func (e *ConvergenceError) Unwrap() error {
	return dynamo.ErrDidNotConverge
}

// SolveDARE iterates the discrete algebraic Riccati recursion
//
//	P_{k+1} = Q + AᵀP_kA − AᵀP_kB (R + BᵀP_kB)⁻¹ BᵀP_kA
//
// from P_0 = Q until the largest elementwise change drops below tol.
// It returns the converged P and the number of iterations used.
func SolveDARE(a, b, q, r mat.Matrix, tol float64, maxIter int) (*mat.Dense, int, error) {
	n, _ := a.Dims()
	if tol <= 0 {
		tol = DefaultTolerance
	}
	if maxIter <= 0 {
		maxIter = DefaultMaxIterations
	}

	p := mat.DenseCopyOf(q)
	next := mat.NewDense(n, n, nil)
	delta := math.Inf(1)

	for k := 1; k <= maxIter; k++ {
		var ap mat.Dense
		ap.Mul(a.T(), p)

		var apa mat.Dense
		apa.Mul(&ap, a)

		var bp, bpa mat.Dense
		bp.Mul(b.T(), p)
		bpa.Mul(&bp, a)

		sInv, err := invertGainTerm(b, p, r)
		if err != nil {
			return nil, k, err
		}

		var apb, apbs, corr mat.Dense
		apb.Mul(&ap, b)
		apbs.Mul(&apb, sInv)
		corr.Mul(&apbs, &bpa)

		next.Add(q, &apa)
		next.Sub(next, &corr)

		delta = maxAbsDiff(next, p)
		p.Copy(next)
		if delta < tol {
			return p, k, nil
		}
	}

	return nil, maxIter, &ConvergenceError{Iterations: maxIter, Delta: delta}
}

// Gain derives the state-feedback gain K = (R + BᵀPB)⁻¹ BᵀPA.
func Gain(a, b, r mat.Matrix, p *mat.Dense) (*mat.Dense, error) {
	sInv, err := invertGainTerm(b, p, r)
	if err != nil {
		return nil, err
	}

	var bp, bpa mat.Dense
	bp.Mul(b.T(), p)
	bpa.Mul(&bp, a)

	var k mat.Dense
	k.Mul(sInv, &bpa)
	return &k, nil
}

// Residual is the largest elementwise violation of the Riccati equation by P.
func Residual(a, b, q, r mat.Matrix, p *mat.Dense) (float64, error) {
	k, err := Gain(a, b, r, p)
	if err != nil {
		return 0, err
	}

	// Q + AᵀPA − AᵀPB·K
	var ap, apb, rhs, corr mat.Dense
	ap.Mul(a.T(), p)
	rhs.Mul(&ap, a)
	rhs.Add(&rhs, q)
	apb.Mul(&ap, b)
	corr.Mul(&apb, k)
	rhs.Sub(&rhs, &corr)

	return maxAbsDiff(&rhs, p), nil
}

// invertGainTerm returns (R + BᵀPB)⁻¹. The single-input case is a scalar
// reciprocal and fails only on an exact zero.
func invertGainTerm(b mat.Matrix, p *mat.Dense, r mat.Matrix) (*mat.Dense, error) {
	var bp, s mat.Dense
	bp.Mul(b.T(), p)
	s.Mul(&bp, b)
	s.Add(&s, r)

	m, _ := s.Dims()
	if m == 1 {
		v := s.At(0, 0)
		if v == 0 {
			return nil, dynamo.ErrSingularGainMatrix
		}
		return mat.NewDense(1, 1, []float64{1 / v}), nil
	}

	var inv mat.Dense
	if err := inv.Inverse(&s); err != nil {
		return nil, fmt.Errorf("%w: %v", dynamo.ErrSingularGainMatrix, err)
	}
	return &inv, nil
}

func maxAbsDiff(x, y mat.Matrix) float64 {
	r, c := x.Dims()
	out := 0.0
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			out = math.Max(out, math.Abs(x.At(i, j)-y.At(i, j)))
		}
	}
	return out
}
