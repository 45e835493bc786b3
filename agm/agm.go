// Package agm evaluates theta values in quasi-linear time by running the
// duplication formulas down a ladder of period matrices 2^k τ, starting
// from naive summation at the deepest level.
package agm

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"riemann-theta/ball"
	"riemann-theta/chars"
	"riemann-theta/errs"
	"riemann-theta/naive"
	"riemann-theta/newton"
	"riemann-theta/siegel"
	"riemann-theta/sp2gz"
)

// DefaultCutover is the precision up to which genus one and two use naive
// summation.
const DefaultCutover = 1500

// Strategy names an evaluation path.
type Strategy int

const (
	Naive Strategy = iota
	QuasiLinear
)

func (s Strategy) String() string {
	switch s {
	case Naive:
		return "naive"
	case QuasiLinear:
		return "quasilinear"
	}
	return fmt.Sprintf("Strategy(%d)", int(s))
}

// Select returns Naive for g <= 2 and prec <= cutover, QuasiLinear
// otherwise. A zero cutover means DefaultCutover.
func Select(g int, prec uint, cutover uint) Strategy {
	if cutover == 0 {
		cutover = DefaultCutover
	}
	if g <= 2 && prec <= cutover {
		return Naive
	}
	return QuasiLinear
}

// Hadamard returns the unnormalised transform (Hx)_b = Σ_a (-1)^{a·b} x_a of
// a vector of length 2^g.
func Hadamard(x []*ball.Complex, prec uint) []*ball.Complex {
	out := make([]*ball.Complex, len(x))
	copy(out, x)
	for h := 1; h < len(out); h <<= 1 {
		for i := 0; i < len(out); i += 2 * h {
			for j := i; j < i+h; j++ {
				u, v := out[j], out[j+h]
				out[j], out[j+h] = u.Add(v, prec), u.Sub(v, prec)
			}
		}
	}
	return out
}

// Mul returns the dyadic convolution (x ⋆ y)_a = Σ_b x_b y_{a+b}, computed
// as 2^{-g} H(Hx·Hy). With x = θ_{·,0}(2z, 2τ) and y = θ_{·,0}(0, 2τ) it is
// the vector of squares θ_{a,0}(z, τ)².
func Mul(x, y []*ball.Complex, prec uint) []*ball.Complex {
	g := log2Len(len(x))
	hx, hy := Hadamard(x, prec), Hadamard(y, prec)
	for i := range hx {
		hx[i] = hx[i].Mul(hy[i], prec)
	}
	return scale(Hadamard(hx, prec), -g)
}

// Sqr is Mul(x, x).
func Sqr(x []*ball.Complex, prec uint) []*ball.Complex {
	g := log2Len(len(x))
	hx := Hadamard(x, prec)
	for i := range hx {
		hx[i] = hx[i].Sqr(prec)
	}
	return scale(Hadamard(hx, prec), -g)
}

func scale(x []*ball.Complex, k int) []*ball.Complex {
	for i := range x {
		x[i] = x[i].Mul2Exp(k)
	}
	return x
}

func log2Len(n int) int {
	g := 0
	for 1<<g < n {
		g++
	}
	return g
}

// pickRoot returns the square root of sq that agrees with ref: s when ref
// cannot be -s, -s when it cannot be s.
func pickRoot(sq, ref *ball.Complex, prec uint) (*ball.Complex, error) {
	s, ok := sq.Sqrt(prec)
	if !ok {
		return nil, fmt.Errorf("agm: square root of a ball around 0: %w", errs.ErrInsufficientPrecision)
	}
	neg := s.Neg()
	switch {
	case !ref.Overlaps(neg):
		return s, nil
	case !ref.Overlaps(s):
		return neg, nil
	}
	return nil, fmt.Errorf("agm: reference overlaps both square roots: %w", errs.ErrNotConverged)
}

// baseRoot takes the square root of sq for characteristic ch at point i on
// level 0. When both the square and its reference may vanish the root is
// enclosed around 0; an ambiguous reference is refined while the context
// allows it.
func baseRoot(ctx *newton.Context, sq *ball.Complex, i int, ch chars.Char, prec uint) (*ball.Complex, error) {
	for {
		ref := ctx.Levels[0].Refs[i][ch]
		if sq.ContainsZero() && ref.ContainsZero() {
			return sq.SqrtAroundZero(prec), nil
		}
		r, err := pickRoot(sq, ref, prec)
		if !errors.Is(err, errs.ErrNotConverged) || !ctx.CanRefine(0) {
			return r, err
		}
		if _, err := ctx.Refine(0); err != nil {
			return nil, err
		}
	}
}

// Eval returns every θ_{a,b}(z, τ), indexed by characteristic, at each
// point. Odd characteristics at z = 0 are exact zeros.
func Eval(tau *ball.Mat, zs [][]*ball.Complex, prec uint, p newton.Params) ([][]*ball.Complex, error) {
	p = p.WithDefaults()
	ctx, err := newton.New(tau, zs, prec, p)
	if err != nil {
		return nil, err
	}
	defer ctx.Release()
	g := ctx.G
	n := ctx.N

	x, c, err := base(ctx.Levels[n], g)
	if err != nil {
		return nil, err
	}
	for k := n - 1; k >= 1; k-- {
		l := ctx.Levels[k]
		wp := ctx.Levels[k+1].Prec
		for i := range x {
			sq := Mul(x[i], c, wp)
			for a := range sq {
				if x[i][a], err = pickRoot(sq[a], l.Refs[i][a], wp); err != nil {
					return nil, fmt.Errorf("agm: level %d point %d: %w", k, i, err)
				}
				x[i][a] = x[i][a].Round(l.Prec)
			}
		}
		sq := Sqr(c, wp)
		for a := range sq {
			if c[a], err = pickRoot(sq[a], l.Const[a], wp); err != nil {
				return nil, fmt.Errorf("agm: level %d constants: %w", k, err)
			}
			c[a] = c[a].Round(l.Prec)
		}
	}

	// θ_{a,b}(z, τ)² = Σ_{a'} (-1)^{a'·b} θ_{a',0}(2z, 2τ) θ_{a+a',0}(0, 2τ)
	wp := ctx.Levels[1].Prec
	out := make([][]*ball.Complex, len(zs))
	for i := range zs {
		out[i] = make([]*ball.Complex, chars.Count(g))
		zero := ball.IsZeroVec(zs[i])
		for a := 0; a < 1<<g; a++ {
			w := make([]*ball.Complex, 1<<g)
			for ap := range w {
				w[ap] = x[i][ap].Mul(c[a^ap], wp)
			}
			h := Hadamard(w, wp)
			for b := 0; b < 1<<g; b++ {
				ch := chars.Join(uint64(a), uint64(b), g)
				if zero && chars.Dot(uint64(a), uint64(b)) == 1 {
					out[i][ch] = ball.ComplexZero(prec)
					continue
				}
				r, err := baseRoot(ctx, h[b], i, ch, wp)
				if err != nil {
					return nil, fmt.Errorf("agm: level 0 point %d char %s: %w", i, chars.String(ch, g), err)
				}
				out[i][ch] = r.Round(prec)
			}
		}
	}
	p.Log.Debug("agm evaluation",
		zap.Int("genus", g),
		zap.Int("points", len(zs)),
		zap.Int("levels", n),
		zap.Uint("prec", prec),
		zap.Uint("base_prec", ctx.Levels[n].Prec))
	return out, nil
}

// base evaluates θ_{a,0}(2^n z, 2^n τ) and θ_{a,0}(0, 2^n τ) by naive
// summation at τ' = 2^n τ - S, with the translation law carrying the
// values back to 2^n τ.
func base(l *newton.Level, g int) (x [][]*ball.Complex, c []*ball.Complex, err error) {
	prec := l.Prec
	shifted := l.Tau.Sub(intMat(l.S, prec), prec)
	cs := make([]chars.Char, 1<<g)
	ks := make([]int, 1<<g)
	for a := range cs {
		nb, k := siegel.TranslateChar(uint64(a), 0, l.S, g)
		cs[a] = chars.Join(uint64(a), nb, g)
		ks[a] = k
	}
	pts := append(append([][]*ball.Complex(nil), l.Z...), ball.ZeroVec(g, prec))
	vals, err := naive.Eval(shifted, pts, cs, 0, prec)
	if err != nil {
		return nil, nil, fmt.Errorf("agm: base level %d: %w", l.K, err)
	}
	x = make([][]*ball.Complex, len(l.Z))
	for i := range x {
		x[i] = make([]*ball.Complex, len(cs))
		for a := range cs {
			x[i][a] = vals.At(i, a, 0).MulRootOfUnity(ks[a], prec)
		}
	}
	c = make([]*ball.Complex, len(cs))
	for a := range cs {
		c[a] = vals.At(len(l.Z), a, 0).MulRootOfUnity(ks[a], prec)
	}
	return x, c, nil
}

func intMat(m *sp2gz.Matrix, prec uint) *ball.Mat {
	out := ball.NewMat(m.Rows, m.Cols, prec)
	for i := 0; i < m.Rows; i++ {
		for j := 0; j < m.Cols; j++ {
			out.Set(i, j, ball.NewComplex(ball.FromBigInt(m.At(i, j), prec), ball.Zero(prec)))
		}
	}
	return out
}
