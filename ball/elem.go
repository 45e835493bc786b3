package ball

import (
	"math"
	"math/big"
	"sync"
)

// Arguments with |x| >= 2^maxExpExponent overflow the exponent range of
// big.Float once exponentiated.
const maxExpExponent = 30

// exponent returns e with |x| < 2^e.
func exponent(x *big.Float) int {
	if x.Sign() == 0 {
		return math.MinInt32
	}
	return x.MantExp(nil)
}

// reductionBits is the number of halvings applied before a Taylor series.
func reductionBits(prec uint) int {
	l := int(math.Sqrt(float64(prec)) / 2)
	if l < 4 {
		l = 4
	}
	return l
}

// expm1Upper returns an upper bound for e^r - 1, r >= 0.
func expm1Upper(r *big.Float) *big.Float {
	switch {
	case r.Sign() == 0:
		return newRad()
	case r.IsInf():
		return radInf()
	case r.Cmp(radOne) <= 0:
		// Σ_{k>=2} r^k/k! <= r² for r <= 1
		return radAdd(r, radMul(r, r))
	}
	return FromFloat(r, RadPrec).Exp(RadPrec).Upper()
}

// Exp returns e^x.
func (x *Real) Exp(prec uint) *Real {
	if !x.IsFinite() {
		return Indeterminate(prec)
	}
	if x.Mid.Sign() == 0 {
		return FromInt(1, prec).AddError(expm1Upper(x.Rad))
	}
	e := exponent(x.Mid)
	if e > maxExpExponent {
		return Indeterminate(prec)
	}
	j := e + reductionBits(prec)
	if j < 0 {
		j = 0
	}
	wp := prec + uint(j) + 16
	s := &Real{Mid: new(big.Float).SetPrec(x.Mid.Prec()).SetMantExp(x.Mid, -j), Rad: newRad()}
	y := expTaylor(s, wp)
	for i := 0; i < j; i++ {
		y = y.Sqr(wp)
	}
	y = y.AddError(radMul(y.Upper(), expm1Upper(x.Rad)))
	return y.Round(prec)
}

// expTaylor sums e^s for |s| <= 1/2 with a rigorous remainder.
func expTaylor(s *Real, wp uint) *Real {
	sum := FromInt(1, wp)
	term := FromInt(1, wp)
	eps := pow2(-int(wp) - 4)
	k := int64(1)
	for ; ; k++ {
		term = term.Mul(s, wp).DivInt(k, wp)
		sum = sum.Add(term, wp)
		if term.Upper().Cmp(eps) < 0 {
			break
		}
	}
	// Σ_{i>k} |s|^i/i! <= 2 |s|^k/k! · |s|/(k+1)
	return sum.AddError(tailBound(term, s, k))
}

func tailBound(term, s *Real, k int64) *big.Float {
	t := radMul(radMul(term.Upper(), s.Upper()), radTwo)
	return radQuo(t, new(big.Float).SetInt64(k+1))
}

// sinCosTaylor sums cos s and sin s for |s| <= 1/2.
func sinCosTaylor(s *Real, wp uint) (c, sn *Real) {
	c = FromInt(1, wp)
	sn = Zero(wp)
	term := FromInt(1, wp)
	eps := pow2(-int(wp) - 4)
	k := int64(1)
	for ; ; k++ {
		term = term.Mul(s, wp).DivInt(k, wp)
		switch k % 4 {
		case 1:
			sn = sn.Add(term, wp)
		case 2:
			c = c.Sub(term, wp)
		case 3:
			sn = sn.Sub(term, wp)
		default:
			c = c.Add(term, wp)
		}
		if term.Upper().Cmp(eps) < 0 {
			break
		}
	}
	t := tailBound(term, s, k)
	return c.AddError(t), sn.AddError(t)
}

// ExpI returns e^{ix} = cos x + i sin x.
func (x *Real) ExpI(prec uint) *Complex {
	if !x.IsFinite() {
		return IndeterminateComplex(prec)
	}
	if x.Mid.Sign() == 0 {
		return &Complex{Re: FromInt(1, prec).AddError(x.Rad), Im: Zero(prec).AddError(x.Rad)}
	}
	e := exponent(x.Mid)
	if e > maxExpExponent {
		return IndeterminateComplex(prec)
	}
	wp := prec + 24
	if e > 0 {
		wp += uint(e)
	}
	r := &Real{Mid: new(big.Float).Copy(x.Mid), Rad: newRad()}
	if e > 2 {
		// reduce modulo 2π
		twoPi := Pi(wp + uint(e) + 8).Mul2Exp(1)
		q := new(big.Float).SetPrec(uint(e)+64).Quo(x.Mid, twoPi.Mid)
		k := RoundToInt(q)
		r = r.Sub(twoPi.Mul(FromBigInt(k, wp+uint(e)), wp), wp)
	}
	j := reductionBits(wp) + 3
	wp2 := wp + uint(j)
	c, sn := sinCosTaylor(r.Mul2Exp(-j), wp2)
	for i := 0; i < j; i++ {
		c, sn = c.Sqr(wp2).Sub(sn.Sqr(wp2), wp2), c.Mul(sn, wp2).Mul2Exp(1)
	}
	// |e^{it} - e^{it'}| <= |t - t'|
	return &Complex{Re: c.AddError(x.Rad).Round(prec), Im: sn.AddError(x.Rad).Round(prec)}
}

// Cos returns cos x.
func (x *Real) Cos(prec uint) *Real { return x.ExpI(prec).Re }

// Sin returns sin x.
func (x *Real) Sin(prec uint) *Real { return x.ExpI(prec).Im }

// RoundToInt returns the integer nearest to x, ties away from zero.
func RoundToInt(x *big.Float) *big.Int {
	h := new(big.Float).SetPrec(x.Prec() + 2).SetFloat64(0.5)
	if x.Sign() < 0 {
		h.Neg(h)
	}
	t := new(big.Float).SetPrec(x.Prec()+2).Add(x, h)
	n, _ := t.Int(nil)
	return n
}

// ---- π ----

var piMemo struct {
	sync.Mutex
	val *Real
}

// Pi returns a ball containing π. Values are memoised at the highest
// precision requested so far and never mutated afterwards.
func Pi(prec uint) *Real {
	piMemo.Lock()
	defer piMemo.Unlock()
	if piMemo.val == nil || piMemo.val.Mid.Prec() < prec+16 {
		piMemo.val = machinPi(prec + 32)
	}
	return piMemo.val.Round(prec)
}

// machinPi uses π = 16 atan(1/5) - 4 atan(1/239).
func machinPi(wp uint) *Real {
	a := atanInv(5, wp)
	b := atanInv(239, wp)
	return a.MulInt(16, wp).Sub(b.MulInt(4, wp), wp)
}

// atanInv returns atan(1/k) for k >= 2.
func atanInv(k int64, wp uint) *Real {
	x := FromInt(1, wp).DivInt(k, wp)
	x2 := x.Sqr(wp)
	pow, sum := x, x
	eps := pow2(-int(wp) - 4)
	for n := int64(1); ; n++ {
		pow = pow.Mul(x2, wp)
		term := pow.DivInt(2*n+1, wp)
		if n%2 == 1 {
			sum = sum.Sub(term, wp)
		} else {
			sum = sum.Add(term, wp)
		}
		if term.Upper().Cmp(eps) < 0 {
			// alternating with decreasing terms
			return sum.AddError(term.Upper())
		}
	}
}

// Log2 returns a float64 estimate of log2|x|, for planning only.
// It returns -Inf for zero.
func Log2(x *big.Float) float64 {
	if x.Sign() == 0 {
		return math.Inf(-1)
	}
	if x.IsInf() {
		return math.Inf(1)
	}
	mant := new(big.Float)
	e := x.MantExp(mant)
	m, _ := mant.Float64()
	return float64(e) + math.Log2(math.Abs(m))
}
