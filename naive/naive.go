// Package naive evaluates theta functions by direct summation over the
// integer points of an ellipsoid, with a rigorous bound on the neglected
// tail.
package naive

import (
	"fmt"
	"math"
	"math/big"
	"sort"

	"riemann-theta/ball"
	"riemann-theta/chars"
	"riemann-theta/eld"
	"riemann-theta/errs"
)

const (
	// MinPrec is the smallest working precision used for a single term.
	MinPrec = 32

	guardBits = 16
	enumPrec  = 96
)

// Precomp holds the data that depends on τ only. It is read-only after
// construction and may be shared by concurrent Eval calls.
type Precomp struct {
	G    int
	Tau  *ball.Mat
	Prec uint

	pi     *ball.Real
	piY    *ball.RealMat
	chol   *ball.RealMat // πY = L·Lᵗ
	yinv   *ball.RealMat
	trYinv *ball.Real
	plan   *plan
}

// NewPrecomp prepares summation for τ at working precision prec.
func NewPrecomp(tau *ball.Mat, prec uint) (*Precomp, error) {
	if tau == nil || !tau.IsSquare() || tau.Rows < 1 {
		return nil, fmt.Errorf("naive: tau must be a non-empty square matrix: %w", errs.ErrDomain)
	}
	g := tau.Rows
	wp := prec + guardBits
	pi := ball.Pi(wp)
	y := tau.Im()
	piY := y.Scale(pi, wp)
	chol, ok := piY.Cholesky(wp)
	if !ok {
		return nil, fmt.Errorf("naive: Im(tau) not certified positive definite at %d bits: %w", prec, errs.ErrInsufficientPrecision)
	}
	yinv, ok := y.SPDInverse(wp)
	if !ok {
		return nil, fmt.Errorf("naive: Im(tau) not invertible at %d bits: %w", prec, errs.ErrInsufficientPrecision)
	}
	pl, ok := newPlan(piY.Float64s(), g)
	if !ok {
		return nil, fmt.Errorf("naive: Im(tau) not positive definite: %w", errs.ErrInsufficientPrecision)
	}
	return &Precomp{
		G: g, Tau: tau, Prec: prec,
		pi: pi, piY: piY, chol: chol, yinv: yinv, trYinv: yinv.Trace(wp), plan: pl,
	}, nil
}

// Gamma returns float64 estimates of the Cholesky diagonal of πY.
func (p *Precomp) Gamma() []float64 { return append([]float64(nil), p.plan.gamma...) }

// Values holds theta values ordered by point, then characteristic, then
// derivative tuple.
type Values struct {
	G       int
	NPoints int
	Chars   []chars.Char
	Tuples  [][]int
	Data    []*ball.Complex
}

func (v *Values) index(point, char, tuple int) int {
	return (point*len(v.Chars)+char)*len(v.Tuples) + tuple
}

// At returns the value for point index, characteristic index and tuple
// index.
func (v *Values) At(point, char, tuple int) *ball.Complex {
	return v.Data[v.index(point, char, tuple)]
}

// Lookup returns the value of characteristic ch at a point, or nil when ch
// was not evaluated.
func (v *Values) Lookup(point int, ch chars.Char, tuple int) *ball.Complex {
	for i, c := range v.Chars {
		if c == ch {
			return v.At(point, i, tuple)
		}
	}
	return nil
}

// Eval is NewPrecomp followed by Precomp.Eval.
func Eval(tau *ball.Mat, zs [][]*ball.Complex, cs []chars.Char, ord int, prec uint) (*Values, error) {
	p, err := NewPrecomp(tau, prec)
	if err != nil {
		return nil, err
	}
	return p.Eval(zs, cs, ord, prec)
}

type group struct {
	a    uint64
	idx  []int // positions in the characteristic list
	bits []uint64
}

func groupByA(cs []chars.Char, g int) []group {
	byA := map[uint64]*group{}
	for i, ch := range cs {
		a, b := chars.Split(ch, g)
		gr, ok := byA[a]
		if !ok {
			gr = &group{a: a}
			byA[a] = gr
		}
		gr.idx = append(gr.idx, i)
		gr.bits = append(gr.bits, b)
	}
	out := make([]group, 0, len(byA))
	for _, gr := range byA {
		out = append(out, *gr)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].a < out[j].a })
	return out
}

// Eval returns θ_{a,b} and its z-derivatives up to order ord at every point
// and for every characteristic in cs.
func (p *Precomp) Eval(zs [][]*ball.Complex, cs []chars.Char, ord int, prec uint) (*Values, error) {
	g := p.G
	if ord < 0 {
		return nil, fmt.Errorf("naive: negative derivative order %d: %w", ord, errs.ErrDomain)
	}
	for _, ch := range cs {
		if !chars.Valid(ch, g) {
			return nil, fmt.Errorf("naive: characteristic %d invalid in genus %d: %w", ch, g, errs.ErrDomain)
		}
	}
	for i, z := range zs {
		if len(z) != g {
			return nil, fmt.Errorf("naive: point %d has dimension %d, want %d: %w", i, len(z), g, errs.ErrDomain)
		}
	}
	tuples := Tuples(g, ord)
	vals := &Values{
		G: g, NPoints: len(zs),
		Chars:  append([]chars.Char(nil), cs...),
		Tuples: tuples,
		Data:   make([]*ball.Complex, len(zs)*len(cs)*len(tuples)),
	}
	groups := groupByA(cs, g)
	for i, z := range zs {
		if err := p.evalPoint(vals, i, z, groups, ord, prec); err != nil {
			return nil, err
		}
	}
	return vals, nil
}

// pointBounds holds the enumeration radius and certified tails of one point.
type pointBounds struct {
	r      float64 // enumeration radius
	r2     *ball.Real
	tail   []*big.Float // per tuple order
	offset []*ball.Real // -Y⁻¹y
}

// bounds chooses the enumeration radius for z and certifies the tail.
func (p *Precomp) bounds(z []*ball.Complex, ord int, prec uint) (*pointBounds, error) {
	g := p.G
	wp := prec + guardBits
	y := make([]*ball.Real, g)
	for i, zi := range z {
		y[i] = zi.Im
	}
	yinvy := p.yinv.MulVec(y, wp)
	u := ball.Zero(wp)
	for i := range y {
		u = u.Add(y[i].Mul(yinvy[i], wp), wp)
	}
	u = u.Mul(p.pi, wp)
	if !u.IsFinite() {
		return nil, fmt.Errorf("naive: cannot bound the imaginary part of z: %w", errs.ErrInsufficientPrecision)
	}
	offset := make([]*ball.Real, g)
	for i := range yinvy {
		offset[i] = yinvy[i].Neg()
	}

	// polydisc radius for the Cauchy estimate of derivatives
	lowp := uint(ball.RadPrec)
	rad := ball.FromInt(1, lowp)
	var delta *ball.Real
	deltaF := 0.0
	if ord > 0 {
		s := p.pi.Mul(p.trYinv, lowp).MulInt(int64(g), lowp).Sqrt(lowp)
		if !s.IsFinite() {
			return nil, fmt.Errorf("naive: cannot bound tr(Y^-1): %w", errs.ErrInsufficientPrecision)
		}
		if s.Float64() > 1 {
			rad = ball.FromFloat64(1/s.Float64(), lowp)
		}
		delta = rad.Mul(s, lowp)
		deltaF = delta.Float64() + 1e-9
	}
	sqrtU := math.Sqrt(math.Max(u.Float64(), 0))
	extra := derivLogConst(g, ord, rad.Float64()) + 2*sqrtU*deltaF + deltaF*deltaF
	r := chooseRadius(g, prec, p.plan.gamma, extra, deltaF)

	rBall := ball.FromFloat64(r, lowp)
	pb := &pointBounds{r: r, r2: rBall.Sqr(64), offset: offset, tail: make([]*big.Float, ord+1)}

	// 2^{2g+2} ∏(1 + sqrt(2π)/γ_j)
	c := ball.FromInt(1, lowp).Mul2Exp(2*g + 2)
	s2pi := p.pi.Mul2Exp(1).Sqrt(lowp)
	for i := 0; i < g; i++ {
		c = c.Mul(ball.FromInt(1, lowp).Add(s2pi.Div(p.chol.At(i, i), lowp), lowp), lowp)
	}
	uHi := ball.FromFloat(u.Hi(), lowp)
	pb.tail[0] = tailBound(c, uHi, rBall, g, lowp)
	if ord > 0 {
		// sup of the tail over the polydisc: radius R - Δ, exponent (√u + Δ)²
		rEff := rBall.Sub(delta, lowp)
		if rEff.Lo().Cmp(big.NewFloat(2)) < 0 {
			return nil, fmt.Errorf("naive: truncation radius too small for derivatives: %w", errs.ErrInsufficientPrecision)
		}
		var uEff *ball.Real
		if uHi.IsPositive() {
			uEff = uHi.Sqrt(lowp).Add(delta, lowp).Sqr(lowp)
		} else {
			uEff = delta.Sqr(lowp)
		}
		sup := tailBound(c, uEff, rEff, g, lowp)
		for k := 1; k <= ord; k++ {
			// k!·C(k+g, g)·2^k / r^k
			f := ball.FromInt(int64(TupleCount(g, k)), lowp).Mul2Exp(k)
			for j := 2; j <= k; j++ {
				f = f.MulInt(int64(j), lowp)
			}
			for j := 0; j < k; j++ {
				f = f.Div(rad, lowp)
			}
			pb.tail[k] = f.Mul(ball.FromFloat(sup, lowp), lowp).Hi()
		}
	}
	return pb, nil
}

// tailBound returns an upper bound for e^u·c·R^{g-1}·e^{-R²}.
func tailBound(c, u, r *ball.Real, g int, prec uint) *big.Float {
	t := c.Mul(u.Exp(prec), prec)
	for i := 0; i < g-1; i++ {
		t = t.Mul(r, prec)
	}
	t = t.Mul(r.Sqr(prec).Neg().Exp(prec), prec)
	return t.Hi()
}

func (p *Precomp) evalPoint(vals *Values, pt int, z []*ball.Complex, groups []group, ord int, prec uint) error {
	g := p.G
	wp := prec + guardBits
	pb, err := p.bounds(z, ord, prec)
	if err != nil {
		return err
	}
	tuples := vals.Tuples
	nt := len(tuples)
	half := ball.FromInt(1, wp).Mul2Exp(-1)
	offMid := make([]float64, g)

	for _, gr := range groups {
		off := make([]*ball.Real, g)
		aBits := chars.Unpack(gr.a, g)
		for j := 0; j < g; j++ {
			off[j] = pb.offset[j]
			if aBits[j] == 1 {
				off[j] = off[j].Sub(half, wp)
			}
			offMid[j] = off[j].Float64()
		}
		tree, err := eld.New(p.chol, pb.r2, off, enumPrec)
		if err != nil {
			return fmt.Errorf("naive: enumerate: %w", err)
		}
		acc := make([]*ball.Complex, len(gr.idx)*nt)
		for i := range acc {
			acc[i] = ball.ComplexZero(wp)
		}
		w := make([]float64, g)
		v := make([]*ball.Real, g)
		tree.Walk(func(n []int64) {
			maxCoord := 0.0
			for j := 0; j < g; j++ {
				w[j] = float64(n[j]) - offMid[j]
				v[j] = ball.FromInt(2*n[j]+int64(aBits[j]), wp).Mul2Exp(-1)
				maxCoord = math.Max(maxCoord, math.Abs(float64(n[j])+float64(aBits[j])/2))
			}
			pp := pointPrec(wp, math.Sqrt(p.plan.dist2(w)), pb.r, ord, maxCoord)
			term := p.term(v, z, pp)
			monos := monomials(v, tuples, wp)
			for ci, b := range gr.bits {
				k := 0
				for j := 0; j < g; j++ {
					if chars.Bit(b, j, g) == 1 {
						k += int(2*n[j]) + int(aBits[j])
					}
				}
				tb := term.MulIPow(k)
				for ti := range tuples {
					x := tb
					if ti > 0 {
						x = tb.MulReal(monos[ti], wp)
					}
					acc[ci*nt+ti] = acc[ci*nt+ti].Add(x, wp)
				}
			}
		})
		tree.Release()

		twoPi := p.pi.Mul2Exp(1)
		for ci, idx := range gr.idx {
			for ti, k := range tuples {
				d := order(k)
				x := acc[ci*nt+ti]
				if d > 0 {
					f := ball.FromInt(1, wp)
					for j := 0; j < d; j++ {
						f = f.Mul(twoPi, wp)
					}
					x = x.MulReal(f, wp).MulIPow(d)
				}
				vals.Data[vals.index(pt, idx, ti)] = x.AddError(pb.tail[d]).Round(prec)
			}
		}
	}
	return nil
}

// term returns exp(πi(vᵗτv + 2vᵗz)) at precision prec.
func (p *Precomp) term(v []*ball.Real, z []*ball.Complex, prec uint) *ball.Complex {
	g := p.G
	wp := prec + 8
	q := ball.ComplexZero(wp)
	for i := 0; i < g; i++ {
		// τ_ii v_i² + 2 Σ_{j<i} τ_ij v_i v_j + 2 v_i z_i
		row := p.Tau.At(i, i).MulReal(v[i], wp)
		for j := 0; j < i; j++ {
			row = row.Add(p.Tau.At(i, j).MulReal(v[j], wp).Mul2Exp(1), wp)
		}
		row = row.Add(z[i].Mul2Exp(1), wp)
		q = q.Add(row.MulReal(v[i], wp), wp)
	}
	pi := p.pi.Round(wp)
	// πi·q = -π Im q + i π Re q
	arg := ball.NewComplex(q.Im.Mul(pi, wp).Neg(), q.Re.Mul(pi, wp))
	return arg.Exp(prec)
}

// monomials returns ∏ v_j^{k_j} for every tuple.
func monomials(v []*ball.Real, tuples [][]int, prec uint) []*ball.Real {
	out := make([]*ball.Real, len(tuples))
	for i, k := range tuples {
		m := ball.FromInt(1, prec)
		for j, e := range k {
			for r := 0; r < e; r++ {
				m = m.Mul(v[j], prec)
			}
		}
		out[i] = m
	}
	return out
}
