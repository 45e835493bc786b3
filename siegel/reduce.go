// Package siegel reduces period matrices towards the Siegel fundamental
// domain and carries theta values across the symplectic moves it makes.
package siegel

import (
	"fmt"
	"math"
	"math/big"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"

	"riemann-theta/ball"
	"riemann-theta/errs"
	"riemann-theta/sp2gz"
)

const (
	// DefaultMaxIter bounds the number of reduction rounds.
	DefaultMaxIter = 64
	// DefaultEps is the margin below 1 that |det(Cτ + D)| must clear for a
	// generator to be applied.
	DefaultEps = 1.0 / 1024
)

// Params tunes the reduction loop. The zero value uses the defaults.
type Params struct {
	MaxIter int
	Eps     float64
	Log     *zap.Logger
}

func (p Params) withDefaults() Params {
	if p.MaxIter <= 0 {
		p.MaxIter = DefaultMaxIter
	}
	if p.Eps <= 0 || p.Eps >= 1 {
		p.Eps = DefaultEps
	}
	if p.Log == nil {
		p.Log = zap.NewNop()
	}
	return p
}

// Reduction is the outcome of Reduce: Tau = M·τ with M the matrix of Word.
type Reduction struct {
	Tau  *ball.Mat
	M    *sp2gz.Matrix
	Word Word
}

// Reduce moves τ towards the fundamental domain by rounds of LLL reduction
// of Im τ, translation of Re τ into [-1/2, 1/2) and application of the best
// fundamental generator while it increases det Im τ. The choice of moves
// only affects cost: every move is exact and tracked in the word.
func Reduce(tau *ball.Mat, prec uint, p Params) (*Reduction, error) {
	p = p.withDefaults()
	if tau == nil || !tau.IsSquare() || tau.Rows < 1 {
		return nil, fmt.Errorf("siegel: reduce: tau must be a non-empty square matrix: %w", errs.ErrDomain)
	}
	g := tau.Rows
	gens := sp2gz.FundamentalGenerators(g)
	cur := tau.Round(prec)
	var word Word
	push := func(s Step) error {
		next, _, _, err := s.apply(cur, nil, prec)
		if err != nil {
			return err
		}
		cur = next
		word = append(word, s)
		return nil
	}

	iter := 0
	for ; iter < p.MaxIter; iter++ {
		y, err := imMid(cur)
		if err != nil {
			return nil, err
		}
		b, binv := lll(y)
		u := sp2gz.FromInt64(b).Transpose()
		if !u.IsIdentity() {
			if err := push(BlockStep(u, sp2gz.FromInt64(binv).Transpose())); err != nil {
				return nil, err
			}
		}
		if s := roundingShift(cur); !s.IsZero() {
			if err := push(TranslateStep(s)); err != nil {
				return nil, err
			}
		}
		best, bestDet := -1, 1-p.Eps
		for i, gen := range gens {
			d, ok := cocycleDetUpper(cur, gen, prec)
			if ok && d < bestDet {
				best, bestDet = i, d
			}
		}
		if best < 0 {
			break
		}
		gen := gens[best]
		if !gen.D0.IsZero() {
			if err := push(TranslateStep(gen.D0)); err != nil {
				return nil, err
			}
		}
		if err := push(InvertStep(gen.S)); err != nil {
			return nil, err
		}
	}
	m, err := word.Matrix(g)
	if err != nil {
		return nil, err
	}
	p.Log.Debug("siegel reduction",
		zap.Int("genus", g),
		zap.Int("rounds", iter),
		zap.Int("steps", len(word)),
		zap.Bool("budget_exhausted", iter == p.MaxIter))
	return &Reduction{Tau: cur, M: m, Word: word}, nil
}

// imMid returns mid(Im τ), symmetrised, as a gonum matrix. It fails when the
// matrix is not positive definite in float64.
func imMid(tau *ball.Mat) (*mat.SymDense, error) {
	g := tau.Rows
	y := mat.NewSymDense(g, nil)
	for i := 0; i < g; i++ {
		for j := i; j < g; j++ {
			v := (tau.At(i, j).Im.Float64() + tau.At(j, i).Im.Float64()) / 2
			y.SetSym(i, j, v)
		}
	}
	var ch mat.Cholesky
	if !ch.Factorize(y) {
		return nil, fmt.Errorf("siegel: Im(tau) is not positive definite: %w", errs.ErrInsufficientPrecision)
	}
	return y, nil
}

// roundingShift returns S = -floor(Re τ + 1/2), which moves the real part
// into [-1/2, 1/2).
func roundingShift(tau *ball.Mat) *sp2gz.Matrix {
	g := tau.Rows
	s := sp2gz.NewMatrix(g, g)
	half := big.NewFloat(0.5)
	for i := 0; i < g; i++ {
		for j := i; j < g; j++ {
			x := new(big.Float).SetPrec(tau.At(i, j).Re.Mid.Prec()+2).Add(tau.At(i, j).Re.Mid, half)
			f := floorInt(x)
			f.Neg(f)
			s.Set(i, j, f)
			s.Set(j, i, f)
		}
	}
	return s
}

func floorInt(x *big.Float) *big.Int {
	n, acc := x.Int(nil)
	if acc == big.Above {
		n.Sub(n, big.NewInt(1))
	}
	return n
}

// cocycleDetUpper returns an upper bound for |det((τ + D0)_SS)|, the
// modulus of the cocycle determinant of the generator.
func cocycleDetUpper(tau *ball.Mat, gen sp2gz.Generator, prec uint) (float64, bool) {
	sub := tau.Submatrix(gen.S, gen.S)
	for i, r := range gen.S {
		for j, c := range gen.S {
			if d := gen.D0.At(r, c); d.Sign() != 0 {
				sub.Set(i, j, sub.At(i, j).Add(ball.NewComplex(ball.FromBigInt(d, prec), ball.Zero(prec)), prec))
			}
		}
	}
	det, ok := sub.Det(prec)
	if !ok {
		return 0, false
	}
	v, _ := det.AbsUpper().Float64()
	if math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// Cocycle returns Cτ + D for M = (A, B; C, D).
func Cocycle(m *sp2gz.Matrix, tau *ball.Mat, prec uint) (*ball.Mat, error) {
	if err := sp2gz.Check(m, tau.Rows); err != nil {
		return nil, err
	}
	_, _, c, d := sp2gz.Blocks(m)
	return intMat(c, prec).Mul(tau, prec).Add(intMat(d, prec), prec), nil
}

// Act returns M·τ = (Aτ + B)(Cτ + D)⁻¹.
func Act(m *sp2gz.Matrix, tau *ball.Mat, prec uint) (*ball.Mat, error) {
	if err := sp2gz.Check(m, tau.Rows); err != nil {
		return nil, err
	}
	a, b, _, _ := sp2gz.Blocks(m)
	cd, err := Cocycle(m, tau, prec)
	if err != nil {
		return nil, err
	}
	inv, ok := cd.Inverse(prec)
	if !ok {
		return nil, fmt.Errorf("siegel: act: cocycle not certified invertible: %w", errs.ErrInsufficientPrecision)
	}
	return intMat(a, prec).Mul(tau, prec).Add(intMat(b, prec), prec).Mul(inv, prec), nil
}
