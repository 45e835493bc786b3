// Package theta evaluates Riemann theta functions with characteristics and
// their derivatives in z, in ball arithmetic.
//
// Eval reduces τ towards the Siegel fundamental domain and z modulo the
// period lattice, evaluates the mapped characteristics with naive
// summation or the quasi-linear AGM path, and carries the values back
// with the transformation factors. Every returned ball contains the true
// value.
package theta

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"riemann-theta/agm"
	"riemann-theta/ball"
	"riemann-theta/chars"
	"riemann-theta/errs"
	"riemann-theta/naive"
	"riemann-theta/siegel"
)

// Error kinds returned by this package.
var (
	ErrInvalidGeometry       = errs.ErrInvalidGeometry
	ErrInsufficientPrecision = errs.ErrInsufficientPrecision
	ErrDomain                = errs.ErrDomain
	ErrNotConverged          = errs.ErrNotConverged
)

// Strategy is the evaluation algorithm.
type Strategy = agm.Strategy

const (
	Naive       = agm.Naive
	QuasiLinear = agm.QuasiLinear
)

// Result holds theta values ordered by point, then characteristic, then
// derivative tuple.
type Result struct {
	G       int
	NPoints int

	chars    []chars.Char
	tuples   [][]int
	data     []*ball.Complex
	strategy agm.Strategy
	reduced  bool
	prec     uint
	retries  int
}

func (r *Result) index(point, char, tuple int) int {
	return (point*len(r.chars)+char)*len(r.tuples) + tuple
}

// At returns the value at point index, characteristic index and tuple
// index.
func (r *Result) At(point, char, tuple int) *ball.Complex {
	return r.data[r.index(point, char, tuple)]
}

// Lookup returns the value of characteristic ch, or nil when it was not
// selected.
func (r *Result) Lookup(point int, ch chars.Char, tuple int) *ball.Complex {
	for i, c := range r.chars {
		if c == ch {
			return r.At(point, i, tuple)
		}
	}
	return nil
}

// Chars returns the evaluated characteristics in result order.
func (r *Result) Chars() []chars.Char { return append([]chars.Char(nil), r.chars...) }

// Tuples returns the derivative multi-indices in result order.
func (r *Result) Tuples() [][]int {
	out := make([][]int, len(r.tuples))
	for i, t := range r.tuples {
		out[i] = append([]int(nil), t...)
	}
	return out
}

// Strategy returns the algorithm that produced the values.
func (r *Result) Strategy() agm.Strategy { return r.strategy }

// Reduced reports whether τ or any point was moved before summation.
func (r *Result) Reduced() bool { return r.reduced }

// Prec returns the working precision of the successful attempt.
func (r *Result) Prec() uint { return r.prec }

// Retries returns the number of precision doublings.
func (r *Result) Retries() int { return r.retries }

func validate(tau *ball.Mat, zs [][]*ball.Complex, ord int, prec uint) (int, error) {
	if tau == nil || !tau.IsSquare() || tau.Rows < 1 {
		return 0, fmt.Errorf("theta: tau must be a non-empty square matrix: %w", ErrDomain)
	}
	g := tau.Rows
	if g > chars.MaxGenus {
		return 0, fmt.Errorf("theta: genus %d above %d: %w", g, chars.MaxGenus, ErrDomain)
	}
	for i, z := range zs {
		if len(z) != g {
			return 0, fmt.Errorf("theta: point %d has dimension %d, want %d: %w", i, len(z), g, ErrDomain)
		}
	}
	if ord < 0 {
		return 0, fmt.Errorf("theta: negative derivative order %d: %w", ord, ErrDomain)
	}
	if prec == 0 {
		return 0, fmt.Errorf("theta: zero precision: %w", ErrDomain)
	}
	return g, nil
}

func (o *options) precCap(prec uint) uint {
	c := o.maxPrec
	if c == 0 {
		f := o.tuning.MaxPrecFactor
		if f == 0 {
			f = DefaultMaxPrecFactor
		}
		c = f * prec
	}
	if c < prec {
		c = prec
	}
	return c
}

// Eval returns θ_{a,b} and its z-derivatives up to total order ord for the
// selected characteristics at every point of zs, with precision prec.
//
// Precision failures are retried at doubled working precision up to the
// cap set by WithMaxPrecision, then reported as ErrInsufficientPrecision.
// A quasi-linear evaluation that cannot certify a square root sign falls
// back to naive summation.
func Eval(tau *ball.Mat, zs [][]*ball.Complex, sel Selector, ord int, prec uint, opts ...Option) (*Result, error) {
	o := gatherOptions(opts)
	g, err := validate(tau, zs, ord, prec)
	if err != nil {
		return nil, err
	}
	cs, err := sel.resolve(g)
	if err != nil {
		return nil, err
	}
	strategy := agm.Select(g, prec, o.tuning.Cutover)
	if o.strategy != nil {
		strategy = *o.strategy
	}
	if ord > 0 {
		strategy = agm.Naive
	}
	if len(zs) == 0 {
		return &Result{G: g, chars: cs, tuples: naive.Tuples(g, ord), strategy: strategy, prec: prec}, nil
	}
	maxPrec := o.precCap(prec)

	wp, retries := prec, 0
	for {
		res, err := o.evalAt(tau, zs, cs, ord, prec, wp, strategy)
		switch {
		case err == nil:
			res.retries = retries
			o.log.Debug("theta eval",
				zap.Int("genus", g),
				zap.Int("points", len(zs)),
				zap.Int("chars", len(cs)),
				zap.Int("order", ord),
				zap.Stringer("strategy", strategy),
				zap.Uint("prec", prec),
				zap.Uint("working_prec", wp),
				zap.Int("retries", retries),
				zap.Bool("reduced", res.reduced))
			return res, nil
		case errors.Is(err, ErrNotConverged) && strategy == agm.QuasiLinear:
			o.log.Debug("theta fallback to naive summation", zap.Uint("working_prec", wp), zap.Error(err))
			strategy = agm.Naive
		case errs.Retryable(err):
			if 2*wp > maxPrec {
				return nil, fmt.Errorf("theta: eval gave up at %d bits: %w: %w", wp, ErrInsufficientPrecision, err)
			}
			o.log.Debug("theta retry", zap.Uint("working_prec", 2*wp), zap.Error(err))
			wp *= 2
			retries++
		default:
			return nil, err
		}
	}
}

// EvalConstants evaluates at z = 0.
func EvalConstants(tau *ball.Mat, sel Selector, ord int, prec uint, opts ...Option) (*Result, error) {
	g, err := validate(tau, nil, ord, prec)
	if err != nil {
		return nil, err
	}
	return Eval(tau, [][]*ball.Complex{ball.ZeroVec(g, prec)}, sel, ord, prec, opts...)
}

// Reduce moves τ towards the Siegel fundamental domain and returns the
// reduced matrix with the symplectic matrix that produced it.
func Reduce(tau *ball.Mat, prec uint, opts ...Option) (*siegel.Reduction, error) {
	o := gatherOptions(opts)
	if _, err := validate(tau, nil, 0, prec); err != nil {
		return nil, err
	}
	sp := o.tuning.siegelParams()
	sp.Log = o.log
	maxPrec := o.precCap(prec)
	for wp := prec; ; wp *= 2 {
		start := time.Now()
		red, err := siegel.Reduce(tau, wp, sp)
		o.rec.Track(start, "reduce")
		if err == nil {
			return red, nil
		}
		if !errs.Retryable(err) {
			return nil, err
		}
		if 2*wp > maxPrec {
			return nil, fmt.Errorf("theta: reduce gave up at %d bits: %w: %w", wp, ErrInsufficientPrecision, err)
		}
	}
}

// evalAt is one attempt at working precision wp.
func (o *options) evalAt(tau *ball.Mat, zs [][]*ball.Complex, cs []chars.Char, ord int, prec, wp uint, strategy agm.Strategy) (*Result, error) {
	g := tau.Rows
	res := &Result{
		G:        g,
		NPoints:  len(zs),
		chars:    cs,
		tuples:   naive.Tuples(g, ord),
		strategy: strategy,
		prec:     wp,
	}
	curTau := tau
	curZ := make([][]*ball.Complex, len(zs))
	copy(curZ, zs)

	var act *siegel.Action
	var zr []*siegel.ZReduction
	if ord == 0 && o.reduce {
		start := time.Now()
		sp := o.tuning.siegelParams()
		sp.Log = o.log
		red, err := siegel.Reduce(tau, wp, sp)
		if err != nil {
			return nil, err
		}
		if !red.M.IsIdentity() {
			if act, err = red.Word.Apply(tau, zs, wp); err != nil {
				return nil, err
			}
			curTau = act.Tau
			for i := range curZ {
				curZ[i] = act.Z(i)
			}
			res.reduced = true
		}
		zr = make([]*siegel.ZReduction, len(zs))
		for i := range curZ {
			if zr[i], err = siegel.ReduceZ(curTau, curZ[i], wp); err != nil {
				return nil, err
			}
			curZ[i] = zr[i].Z
			if !zr[i].IsTrivial() {
				res.reduced = true
			}
		}
		o.rec.Track(start, "reduce")
	}

	targets := make([]chars.Char, len(cs))
	for j, ch := range cs {
		targets[j] = ch
		if act != nil {
			targets[j] = act.Target(ch)
		}
	}

	var lookup func(point int, ch chars.Char, tuple int) *ball.Complex
	if strategy == agm.QuasiLinear {
		start := time.Now()
		np := o.tuning.newtonParams()
		np.Log = o.log
		vals, err := agm.Eval(curTau, curZ, wp, np)
		if err != nil {
			o.rec.Track(start, "agm-failed")
			return nil, err
		}
		o.rec.Track(start, "agm")
		lookup = func(point int, ch chars.Char, _ int) *ball.Complex { return vals[point][ch] }
	} else {
		start := time.Now()
		vals, err := naive.Eval(curTau, curZ, distinct(targets), ord, wp)
		o.rec.Track(start, "naive")
		if err != nil {
			return nil, err
		}
		lookup = vals.Lookup
	}

	start := time.Now()
	res.data = make([]*ball.Complex, len(zs)*len(cs)*len(res.tuples))
	for i := range zs {
		for j := range cs {
			tc := targets[j]
			var f *ball.Complex
			if zr != nil {
				f = zr[i].Factor(tc)
			}
			if act != nil {
				inv := act.Factor(i, tc).Inv(wp)
				if f == nil {
					f = inv
				} else {
					f = f.Mul(inv, wp)
				}
			}
			for t := range res.tuples {
				v := lookup(i, tc, t)
				if f != nil {
					v = f.Mul(v, wp)
				}
				res.data[res.index(i, j, t)] = v.Round(prec)
			}
		}
	}
	o.rec.Track(start, "undo")
	return res, nil
}

func distinct(cs []chars.Char) []chars.Char {
	seen := make(map[chars.Char]bool, len(cs))
	out := make([]chars.Char, 0, len(cs))
	for _, ch := range cs {
		if !seen[ch] {
			seen[ch] = true
			out = append(out, ch)
		}
	}
	return out
}
