package siegel

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"riemann-theta/ball"
	"riemann-theta/chars"
	"riemann-theta/errs"
)

// ZReduction records z' = z + m + τn, chosen so that Im z' is close to 0 in
// the metric of Im τ and Re z' is in [-1/2, 1/2]. Then
//
//	θ_{a,b}(z, τ) = (-1)^{a·m + b·n} exp(-πi nᵗτn + 2πi nᵗz') θ_{a,b}(z', τ).
type ZReduction struct {
	Z    []*ball.Complex
	N, M []int64

	base *ball.Complex
	prec uint
}

// ReduceZ reduces z modulo the lattice Z^g + τZ^g.
func ReduceZ(tau *ball.Mat, z []*ball.Complex, prec uint) (*ZReduction, error) {
	g := tau.Rows
	if len(z) != g {
		return nil, fmt.Errorf("siegel: reduce z: dimension %d, want %d: %w", len(z), g, errs.ErrDomain)
	}
	y, err := imMid(tau)
	if err != nil {
		return nil, err
	}
	var ch mat.Cholesky
	ch.Factorize(y)
	yz := mat.NewVecDense(g, nil)
	for i, zi := range z {
		yz.SetVec(i, zi.Im.Float64())
	}
	var c mat.VecDense
	if err := ch.SolveVecTo(&c, yz); err != nil {
		return nil, fmt.Errorf("siegel: reduce z: %v: %w", err, errs.ErrInsufficientPrecision)
	}
	r := &ZReduction{N: make([]int64, g), M: make([]int64, g), prec: prec}
	nb := make([]*ball.Complex, g)
	for i := 0; i < g; i++ {
		v := c.AtVec(i)
		if math.IsNaN(v) || math.Abs(v) > 1<<52 {
			return nil, fmt.Errorf("siegel: reduce z: Im z out of range: %w", errs.ErrInsufficientPrecision)
		}
		r.N[i] = -int64(math.Round(v))
		nb[i] = ball.ComplexFromInt(r.N[i], prec)
	}
	// z + τn, then m from its real part
	tn := tau.MulVec(nb, prec)
	zp := make([]*ball.Complex, g)
	for i := range z {
		zp[i] = z[i].Add(tn[i], prec)
		r.M[i] = -int64(math.Round(zp[i].Re.Float64()))
		zp[i] = zp[i].Add(ball.ComplexFromInt(r.M[i], prec), prec)
	}
	r.Z = zp

	// exp(πi(2nᵗz' - nᵗτn))
	e := ball.ComplexZero(prec)
	for i := 0; i < g; i++ {
		e = e.Add(zp[i].MulInt(2*r.N[i], prec), prec)
		e = e.Sub(tn[i].MulInt(r.N[i], prec), prec)
	}
	r.base = e.MulReal(ball.Pi(prec), prec).MulI().Exp(prec)
	return r, nil
}

// IsTrivial reports whether z was left unchanged.
func (r *ZReduction) IsTrivial() bool {
	for i := range r.N {
		if r.N[i] != 0 || r.M[i] != 0 {
			return false
		}
	}
	return true
}

// Factor returns f with θ_ch(z, τ) = f·θ_ch(z', τ).
func (r *ZReduction) Factor(ch chars.Char) *ball.Complex {
	g := len(r.N)
	a, b := chars.Split(ch, g)
	var s int64
	for i := 0; i < g; i++ {
		s += int64(chars.Bit(a, i, g))*r.M[i] + int64(chars.Bit(b, i, g))*r.N[i]
	}
	if s&1 == 1 {
		return r.base.Neg()
	}
	return r.base.Copy()
}
