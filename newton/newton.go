// Package newton plans the precision of the duplication ladder used by the
// quasi-linear evaluator and holds the low precision references that fix
// square root signs.
//
// Level k of the ladder works at (2^k z, 2^k τ). Level 0 carries every
// characteristic, deeper levels only θ_{a,0} at the points and at 0.
package newton

import (
	"fmt"
	"math"
	"math/big"

	"go.uber.org/zap"

	"riemann-theta/ball"
	"riemann-theta/chars"
	"riemann-theta/errs"
	"riemann-theta/naive"
	"riemann-theta/sp2gz"
)

// Defaults for Params.
const (
	DefaultLowPrec         = 64
	DefaultGuard           = 32
	DefaultLevelMultiplier = 0.25
	DefaultMaxLevels       = 64
	DefaultMaxBadSteps     = 8
)

// Params tunes the ladder. None of them affects correctness. The zero value
// uses the defaults.
type Params struct {
	LowPrec         uint
	Guard           uint
	LevelMultiplier float64
	MaxLevels       int
	MaxBadSteps     int
	Log             *zap.Logger
}

// WithDefaults fills unset fields.
func (p Params) WithDefaults() Params {
	if p.LowPrec < naive.MinPrec {
		p.LowPrec = DefaultLowPrec
	}
	if p.Guard == 0 {
		p.Guard = DefaultGuard
	}
	if p.LevelMultiplier <= 0 {
		p.LevelMultiplier = DefaultLevelMultiplier
	}
	if p.MaxLevels <= 0 {
		p.MaxLevels = DefaultMaxLevels
	}
	if p.MaxBadSteps <= 0 {
		p.MaxBadSteps = DefaultMaxBadSteps
	}
	if p.Log == nil {
		p.Log = zap.NewNop()
	}
	return p
}

// Level holds the data of one rung of the ladder.
type Level struct {
	K   int
	Tau *ball.Mat         // 2^k τ
	Z   [][]*ball.Complex // 2^k z
	S   *sp2gz.Matrix     // round(Re 2^k τ)

	// Refs[i] are the references at point i: indexed by characteristic at
	// level 0, by a at deeper levels. Odd characteristics at z = 0 are nil.
	Refs [][]*ball.Complex
	// Const are the references θ_{a,0}(0, 2^k τ), unused at level 0.
	Const []*ball.Complex

	Prec     uint // working precision of the duplication step producing this level
	RefPrec  uint // precision of the references
	BadSteps int  // refinement rounds spent on this level

	M0, Minf   *big.Float // max upper and min lower bound of |ref|
	Rho        *big.Float // sign separation radius
	InvDer     *big.Float // 1/(2 Minf), bound on the derivative of the inverse of squaring
	maxRad     *big.Float
	zeroPoints []bool
}

// Good reports whether every reference is within Rho/2 of its value, so
// that a reference can only overlap one of ±sqrt.
func (l *Level) Good() bool {
	if l.Minf.Sign() <= 0 || l.maxRad.IsInf() {
		return false
	}
	half := new(big.Float).SetPrec(ball.RadPrec).Quo(l.Rho, big.NewFloat(2))
	return l.maxRad.Cmp(half) < 0
}

// Context is the precision plan of one evaluation. It is owned by a single
// call and released as a whole.
type Context struct {
	G      int
	N      int // deepest level
	Prec   uint
	Levels []*Level
	params Params
}

// New plans the ladder for τ and the points zs at target precision prec,
// computing references at every level and refining bad levels. It fails
// with ErrNotConverged when a level stays bad after MaxBadSteps rounds or
// once references would need more than twice the working precision.
func New(tau *ball.Mat, zs [][]*ball.Complex, prec uint, p Params) (*Context, error) {
	p = p.WithDefaults()
	if tau == nil || !tau.IsSquare() || tau.Rows < 1 {
		return nil, fmt.Errorf("newton: tau must be a non-empty square matrix: %w", errs.ErrDomain)
	}
	g := tau.Rows
	for i, z := range zs {
		if len(z) != g {
			return nil, fmt.Errorf("newton: point %d has dimension %d, want %d: %w", i, len(z), g, errs.ErrDomain)
		}
	}
	pre, rp, err := lowPrecomp(tau, prec, p)
	if err != nil {
		return nil, err
	}
	n := LevelCount(pre.Gamma(), prec, p)

	ctx := &Context{G: g, N: n, Prec: prec, Levels: make([]*Level, n+1), params: p}
	zero := make([]bool, len(zs))
	for i, z := range zs {
		zero[i] = ball.IsZeroVec(z)
	}
	for k := 0; k <= n; k++ {
		l := &Level{K: k, Tau: tau.Scale2Exp(k), RefPrec: rp, zeroPoints: zero}
		l.Z = make([][]*ball.Complex, len(zs))
		for i, z := range zs {
			l.Z[i] = make([]*ball.Complex, g)
			for j := range z {
				l.Z[i][j] = z[j].Mul2Exp(k)
			}
		}
		l.S = roundRe(l.Tau)
		if err := l.references(rp); err != nil {
			ctx.Release()
			return nil, err
		}
		ctx.Levels[k] = l
	}

	// The base level is evaluated directly and needs no signs.
	for k := 0; k < n; k++ {
		l := ctx.Levels[k]
		for !l.Good() {
			if !ctx.CanRefine(k) {
				p.Log.Debug("newton: level stays bad", zap.Int("level", k), zap.Uint("ref_prec", l.RefPrec))
				ctx.Release()
				return nil, fmt.Errorf("newton: level %d: square root signs ambiguous after %d refinements: %w",
					k, l.BadSteps, errs.ErrNotConverged)
			}
			if _, err := ctx.Refine(k); err != nil {
				ctx.Release()
				return nil, err
			}
		}
	}
	ctx.plan()
	p.Log.Debug("newton context",
		zap.Int("genus", g),
		zap.Int("levels", n),
		zap.Uint("prec", prec),
		zap.Uint("base_prec", ctx.Levels[n].Prec),
		zap.Int("bad_steps", ctx.BadSteps()))
	return ctx, nil
}

// lowPrecomp builds the reference precomputation at LowPrec, doubling while
// Im τ cannot be certified. Past prec + Guard it gives up with
// ErrNotConverged so that callers fall back to naive summation.
func lowPrecomp(tau *ball.Mat, prec uint, p Params) (*naive.Precomp, uint, error) {
	for rp := p.LowPrec; ; rp *= 2 {
		pre, err := naive.NewPrecomp(tau, rp)
		if err == nil {
			return pre, rp, nil
		}
		if !errs.Retryable(err) {
			return nil, 0, fmt.Errorf("newton: %w", err)
		}
		if 2*rp > prec+p.Guard {
			return nil, 0, fmt.Errorf("newton: references need more than %d bits: %w: %w", rp, errs.ErrNotConverged, err)
		}
		p.Log.Debug("newton: raising reference precision", zap.Uint("ref_prec", 2*rp), zap.Error(err))
	}
}

// LevelCount returns clamp(ceil(log2(prec·ln2·LevelMultiplier/γ_min²)), 1,
// MaxLevels) where γ are the Cholesky diagonal entries of πY.
func LevelCount(gamma []float64, prec uint, p Params) int {
	p = p.WithDefaults()
	gmin := math.Inf(1)
	for _, x := range gamma {
		gmin = math.Min(gmin, x)
	}
	x := math.Ceil(math.Log2(float64(prec) * math.Ln2 * p.LevelMultiplier / (gmin * gmin)))
	switch {
	case math.IsNaN(x) || x < 1:
		return 1
	case x > float64(p.MaxLevels):
		return p.MaxLevels
	}
	return int(x)
}

// roundRe returns round(Re τ) as an integer matrix.
func roundRe(tau *ball.Mat) *sp2gz.Matrix {
	g := tau.Rows
	s := sp2gz.NewMatrix(g, g)
	for i := 0; i < g; i++ {
		for j := 0; j < g; j++ {
			s.Set(i, j, ball.RoundToInt(tau.At(i, j).Re.Mid))
		}
	}
	return s
}

// references computes the coarse values of the level at precision rp and
// updates its statistics.
func (l *Level) references(rp uint) error {
	g := l.Tau.Rows
	pre, err := naive.NewPrecomp(l.Tau, rp)
	if err != nil {
		return fmt.Errorf("newton: level %d: %w", l.K, err)
	}
	l.RefPrec = rp
	if l.K == 0 {
		vals, err := pre.Eval(l.Z, chars.All(g), 0, rp)
		if err != nil {
			return fmt.Errorf("newton: level 0: %w", err)
		}
		l.Refs = make([][]*ball.Complex, len(l.Z))
		for i := range l.Z {
			l.Refs[i] = make([]*ball.Complex, chars.Count(g))
			for ch := range l.Refs[i] {
				if l.zeroPoints[i] && !isEven(chars.Char(ch), g) {
					continue
				}
				l.Refs[i][ch] = vals.At(i, ch, 0)
			}
		}
	} else {
		cs := make([]chars.Char, 1<<g)
		for a := range cs {
			cs[a] = chars.Join(uint64(a), 0, g)
		}
		pts := append(append([][]*ball.Complex(nil), l.Z...), ball.ZeroVec(g, rp))
		vals, err := pre.Eval(pts, cs, 0, rp)
		if err != nil {
			return fmt.Errorf("newton: level %d: %w", l.K, err)
		}
		l.Refs = make([][]*ball.Complex, len(l.Z))
		for i := range l.Z {
			l.Refs[i] = make([]*ball.Complex, len(cs))
			for a := range cs {
				l.Refs[i][a] = vals.At(i, a, 0)
			}
		}
		l.Const = make([]*ball.Complex, len(cs))
		for a := range cs {
			l.Const[a] = vals.At(len(l.Z), a, 0)
		}
	}
	l.stats()
	return nil
}

func isEven(ch chars.Char, g int) bool {
	a, b := chars.Split(ch, g)
	return chars.Dot(a, b) == 0
}

func (l *Level) each(f func(*ball.Complex)) {
	for _, r := range l.Refs {
		for _, v := range r {
			if v != nil {
				f(v)
			}
		}
	}
	for _, v := range l.Const {
		f(v)
	}
}

// stats bounds the references. At level 0 a reference around 0 is left out:
// its root is the last one taken, and a square that may vanish is enclosed
// around 0 instead of signed.
func (l *Level) stats() {
	m0 := new(big.Float).SetPrec(ball.RadPrec)
	minf := new(big.Float).SetPrec(ball.RadPrec).SetInf(false)
	maxRad := new(big.Float).SetPrec(ball.RadPrec)
	l.each(func(v *ball.Complex) {
		if l.K == 0 && v.ContainsZero() {
			return
		}
		if up := v.AbsUpper(); up.Cmp(m0) > 0 {
			m0.Set(up)
		}
		if lo := v.AbsLower(); lo.Cmp(minf) < 0 {
			minf.Set(lo)
		}
		if r := v.RadUpper(); r.Cmp(maxRad) > 0 {
			maxRad.Set(r)
		}
	})
	if minf.IsInf() {
		minf.SetInt64(0)
	}
	l.M0, l.Minf, l.maxRad = m0, minf, maxRad
	l.Rho = new(big.Float).SetPrec(ball.RadPrec).Set(minf)
	if minf.Sign() > 0 {
		l.InvDer = new(big.Float).SetPrec(ball.RadPrec).SetMode(big.ToPositiveInf).Quo(big.NewFloat(0.5), minf)
	} else {
		l.InvDer = new(big.Float).SetPrec(ball.RadPrec).SetInf(false)
	}
}

// Refine recomputes the references of level k at doubled precision and
// reports whether the level became good.
func (c *Context) Refine(k int) (bool, error) {
	if k < 0 || k >= len(c.Levels) {
		return false, fmt.Errorf("newton: refine: level %d out of range: %w", k, errs.ErrDomain)
	}
	l := c.Levels[k]
	l.BadSteps++
	if err := l.references(2 * l.RefPrec); err != nil {
		return false, err
	}
	c.params.Log.Debug("newton: refined level",
		zap.Int("level", k), zap.Uint("ref_prec", l.RefPrec), zap.Bool("good", l.Good()))
	return l.Good(), nil
}

// CanRefine reports whether level k may still be refined: it has spent
// fewer than MaxBadSteps rounds and its references are within Guard bits of
// the target precision.
func (c *Context) CanRefine(k int) bool {
	if k < 0 || k >= len(c.Levels) {
		return false
	}
	l := c.Levels[k]
	return l.BadSteps < c.params.MaxBadSteps && l.RefPrec <= c.Prec+c.params.Guard
}

// plan sets the working precision of every level:
// prec_0 = prec + Guard and prec_{k+1} = prec_k + max(0, ceil(g + 2 log2(M0_{k+1}/Minf_k))).
func (c *Context) plan() {
	c.Levels[0].Prec = c.Prec + c.params.Guard
	for k := 0; k < c.N; k++ {
		cur, next := c.Levels[k], c.Levels[k+1]
		extra := float64(c.G)
		if cur.Minf.Sign() > 0 && next.M0.Sign() > 0 {
			extra += 2 * (ball.Log2(next.M0) - ball.Log2(cur.Minf))
		}
		add := uint(0)
		if e := math.Ceil(extra); e > 0 {
			add = uint(e)
		}
		next.Prec = cur.Prec + add
	}
}

// BadSteps returns the total number of refinement rounds.
func (c *Context) BadSteps() int {
	n := 0
	for _, l := range c.Levels {
		if l != nil {
			n += l.BadSteps
		}
	}
	return n
}

// Release drops every per-level array.
func (c *Context) Release() {
	for i := len(c.Levels) - 1; i >= 0; i-- {
		if l := c.Levels[i]; l != nil {
			l.Refs, l.Const, l.Z, l.Tau = nil, nil, nil, nil
		}
		c.Levels[i] = nil
	}
	c.Levels = nil
}
