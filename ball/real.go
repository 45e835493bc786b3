package ball

import (
	"fmt"
	"math/big"
)

// RadPrec is the precision of every error radius.
const RadPrec = 64

var (
	radOne = big.NewFloat(1)
	radTwo = big.NewFloat(2)
)

// Real is a ball [Mid - Rad, Mid + Rad] containing a real number.
//
// Mid carries the working precision, Rad is kept at RadPrec bits and is
// always rounded upward. A radius of +Inf marks an indeterminate value.
// Operations never modify their receivers or arguments.
type Real struct {
	Mid *big.Float
	Rad *big.Float
}

// ---- radius helpers ----

func newRad() *big.Float {
	return new(big.Float).SetPrec(RadPrec).SetMode(big.ToPositiveInf)
}

func newLow() *big.Float {
	return new(big.Float).SetPrec(RadPrec).SetMode(big.ToNegativeInf)
}

func radInf() *big.Float { return newRad().SetInf(false) }

func radAdd(a, b *big.Float) *big.Float { return newRad().Add(a, b) }

func radMul(a, b *big.Float) *big.Float {
	if a.IsInf() || b.IsInf() {
		return radInf()
	}
	return newRad().Mul(a, b)
}

// radQuo returns a/b rounded up; b must be a positive lower bound.
func radQuo(a, b *big.Float) *big.Float {
	if a.IsInf() || b.Sign() <= 0 {
		return radInf()
	}
	return newRad().Quo(a, b)
}

func radAbs(x *big.Float) *big.Float { return newRad().Abs(x) }

func radMax(a, b *big.Float) *big.Float {
	if a.Cmp(b) >= 0 {
		return newRad().Set(a)
	}
	return newRad().Set(b)
}

// pow2 returns 2^e as a radius.
func pow2(e int) *big.Float { return newRad().SetMantExp(radOne, e) }

// roundErr bounds the error committed when m was last rounded.
func roundErr(m *big.Float) *big.Float {
	if m.Acc() == big.Exact || m.Sign() == 0 || m.IsInf() {
		return newRad()
	}
	return pow2(m.MantExp(nil) - int(m.Prec()))
}

// ---- construction ----

// Zero returns the exact ball 0.
func Zero(prec uint) *Real {
	return &Real{Mid: new(big.Float).SetPrec(prec), Rad: newRad()}
}

// Indeterminate returns a ball with infinite radius.
func Indeterminate(prec uint) *Real {
	return &Real{Mid: new(big.Float).SetPrec(prec), Rad: radInf()}
}

// FromInt returns n, exact when prec is large enough.
func FromInt(n int64, prec uint) *Real {
	m := new(big.Float).SetPrec(prec).SetInt64(n)
	return &Real{Mid: m, Rad: roundErr(m)}
}

// FromBigInt returns n rounded to prec.
func FromBigInt(n *big.Int, prec uint) *Real {
	m := new(big.Float).SetPrec(prec).SetInt(n)
	return &Real{Mid: m, Rad: roundErr(m)}
}

// FromFloat64 returns x rounded to prec. x must be finite.
func FromFloat64(x float64, prec uint) *Real {
	m := new(big.Float).SetPrec(prec).SetFloat64(x)
	return &Real{Mid: m, Rad: roundErr(m)}
}

// FromRat returns r rounded to prec.
func FromRat(r *big.Rat, prec uint) *Real {
	m := new(big.Float).SetPrec(prec).SetRat(r)
	return &Real{Mid: m, Rad: roundErr(m)}
}

// FromFloat returns x rounded to prec.
func FromFloat(x *big.Float, prec uint) *Real {
	m := new(big.Float).SetPrec(prec).Set(x)
	return &Real{Mid: m, Rad: roundErr(m)}
}

// NewReal returns the ball mid +/- rad, copying both.
func NewReal(mid, rad *big.Float) *Real {
	return &Real{Mid: new(big.Float).Copy(mid), Rad: radAbs(rad)}
}

// Copy returns a deep copy.
func (x *Real) Copy() *Real {
	return &Real{Mid: new(big.Float).Copy(x.Mid), Rad: newRad().Set(x.Rad)}
}

// ---- arithmetic ----

// Neg returns -x.
func (x *Real) Neg() *Real {
	return &Real{Mid: new(big.Float).Neg(x.Mid), Rad: newRad().Set(x.Rad)}
}

// Add returns x + y.
func (x *Real) Add(y *Real, prec uint) *Real {
	m := new(big.Float).SetPrec(prec).Add(x.Mid, y.Mid)
	return &Real{Mid: m, Rad: radAdd(radAdd(x.Rad, y.Rad), roundErr(m))}
}

// Sub returns x - y.
func (x *Real) Sub(y *Real, prec uint) *Real {
	m := new(big.Float).SetPrec(prec).Sub(x.Mid, y.Mid)
	return &Real{Mid: m, Rad: radAdd(radAdd(x.Rad, y.Rad), roundErr(m))}
}

// Mul returns x * y.
func (x *Real) Mul(y *Real, prec uint) *Real {
	m := new(big.Float).SetPrec(prec).Mul(x.Mid, y.Mid)
	r := radAdd(radMul(radAbs(x.Mid), y.Rad), radMul(radAbs(y.Mid), x.Rad))
	r = radAdd(r, radMul(x.Rad, y.Rad))
	return &Real{Mid: m, Rad: radAdd(r, roundErr(m))}
}

// Sqr returns x².
func (x *Real) Sqr(prec uint) *Real {
	m := new(big.Float).SetPrec(prec).Mul(x.Mid, x.Mid)
	r := radMul(radMul(radAbs(x.Mid), x.Rad), radTwo)
	r = radAdd(r, radMul(x.Rad, x.Rad))
	return &Real{Mid: m, Rad: radAdd(r, roundErr(m))}
}

// MulInt returns n·x.
func (x *Real) MulInt(n int64, prec uint) *Real {
	nf := new(big.Float).SetInt64(n)
	m := new(big.Float).SetPrec(prec).Mul(x.Mid, nf)
	return &Real{Mid: m, Rad: radAdd(radMul(x.Rad, radAbs(nf)), roundErr(m))}
}

// DivInt returns x/n for n != 0.
func (x *Real) DivInt(n int64, prec uint) *Real {
	if n == 0 {
		return Indeterminate(prec)
	}
	nf := new(big.Float).SetInt64(n)
	m := new(big.Float).SetPrec(prec).Quo(x.Mid, nf)
	return &Real{Mid: m, Rad: radAdd(radQuo(x.Rad, radAbs(nf)), roundErr(m))}
}

// Mul2Exp returns x·2^k, exactly.
func (x *Real) Mul2Exp(k int) *Real {
	m := new(big.Float).SetPrec(x.Mid.Prec()).SetMantExp(x.Mid, k)
	return &Real{Mid: m, Rad: newRad().SetMantExp(x.Rad, k)}
}

// Inv returns 1/x, indeterminate when x may vanish.
func (x *Real) Inv(prec uint) *Real {
	lo := x.Lower()
	if lo.Sign() <= 0 {
		return Indeterminate(prec)
	}
	m := new(big.Float).SetPrec(prec).Quo(radOne, x.Mid)
	den := newLow().Mul(newLow().Abs(x.Mid), lo)
	return &Real{Mid: m, Rad: radAdd(radQuo(x.Rad, den), roundErr(m))}
}

// Div returns x/y, indeterminate when y may vanish.
func (x *Real) Div(y *Real, prec uint) *Real {
	lo := y.Lower()
	if lo.Sign() <= 0 {
		return Indeterminate(prec)
	}
	m := new(big.Float).SetPrec(prec).Quo(x.Mid, y.Mid)
	em := roundErr(m)
	// |x/y - xm/ym| <= (xr + |xm/ym| yr) / |y|
	q := radMul(radAdd(radAbs(m), em), y.Rad)
	return &Real{Mid: m, Rad: radAdd(radQuo(radAdd(x.Rad, q), lo), em)}
}

// Sqrt returns the square root of x, indeterminate unless x is certified
// positive.
func (x *Real) Sqrt(prec uint) *Real {
	lo := newLow().Sub(x.Mid, x.Rad)
	if lo.Sign() <= 0 || lo.IsInf() {
		return Indeterminate(prec)
	}
	m := new(big.Float).SetPrec(prec).Sqrt(x.Mid)
	// big.Float.Sqrt does not report accuracy: allow two ulps.
	em := pow2(m.MantExp(nil) - int(prec) + 1)
	sl := newLow().Sqrt(lo)
	sl = newLow().Mul(sl, sqrtSlack)
	return &Real{Mid: m, Rad: radAdd(radQuo(x.Rad, sl), em)}
}

var sqrtSlack = new(big.Float).SetPrec(RadPrec).SetFloat64(1 - 0x1p-40)

// Round returns x with its midpoint rounded to prec.
func (x *Real) Round(prec uint) *Real {
	m := new(big.Float).SetPrec(prec).Set(x.Mid)
	return &Real{Mid: m, Rad: radAdd(x.Rad, roundErr(m))}
}

// AddError returns x with its radius widened by e.
func (x *Real) AddError(e *big.Float) *Real {
	return &Real{Mid: new(big.Float).Copy(x.Mid), Rad: radAdd(x.Rad, radAbs(e))}
}

// ---- bounds and predicates ----

// Upper returns an upper bound for |x|.
func (x *Real) Upper() *big.Float { return radAdd(radAbs(x.Mid), x.Rad) }

// Lower returns a lower bound for |x|; zero when x may vanish.
func (x *Real) Lower() *big.Float {
	l := newLow().Sub(newLow().Abs(x.Mid), x.Rad)
	if l.Sign() < 0 {
		return newLow()
	}
	return l
}

// Hi returns an upper bound for the largest point of x.
func (x *Real) Hi() *big.Float { return newRad().Add(x.Mid, x.Rad) }

// Lo returns a lower bound for the smallest point of x.
func (x *Real) Lo() *big.Float { return newLow().Sub(x.Mid, x.Rad) }

// IsFinite reports whether the radius is finite.
func (x *Real) IsFinite() bool { return !x.Rad.IsInf() }

// IsExact reports whether the radius is zero.
func (x *Real) IsExact() bool { return x.Rad.Sign() == 0 }

// IsZero reports whether x is exactly zero.
func (x *Real) IsZero() bool { return x.IsExact() && x.Mid.Sign() == 0 }

// IsPositive reports whether every point of x is > 0.
func (x *Real) IsPositive() bool { return newLow().Sub(x.Mid, x.Rad).Sign() > 0 }

// IsNegative reports whether every point of x is < 0.
func (x *Real) IsNegative() bool { return newRad().Add(x.Mid, x.Rad).Sign() < 0 }

// ContainsZero reports whether 0 may lie in x.
func (x *Real) ContainsZero() bool { return !x.IsPositive() && !x.IsNegative() }

// Overlaps reports whether x and y may share a point.
func (x *Real) Overlaps(y *Real) bool {
	d1 := newLow().Sub(x.Mid, y.Mid)
	d2 := newLow().Sub(y.Mid, x.Mid)
	if d2.Cmp(d1) > 0 {
		d1 = d2
	}
	return d1.Cmp(radAdd(x.Rad, y.Rad)) <= 0
}

// Contains reports whether y ⊆ x.
func (x *Real) Contains(y *Real) bool {
	u := radMax(newRad().Sub(x.Mid, y.Mid), newRad().Sub(y.Mid, x.Mid))
	return radAdd(u, y.Rad).Cmp(x.Rad) <= 0
}

// ContainsFloat64 reports whether v ∈ x.
func (x *Real) ContainsFloat64(v float64) bool {
	return x.Contains(FromFloat64(v, 64))
}

// Float64 returns the midpoint as a float64.
func (x *Real) Float64() float64 {
	f, _ := x.Mid.Float64()
	return f
}

// Text formats x with the given number of significant digits.
func (x *Real) Text(digits int) string {
	return fmt.Sprintf("[%s +/- %s]", x.Mid.Text('g', digits), x.Rad.Text('e', 3))
}

func (x *Real) String() string {
	d := int(float64(x.Mid.Prec()) * 0.30103)
	if d < 6 {
		d = 6
	}
	if d > 40 {
		d = 40
	}
	return x.Text(d)
}
