package ball

import (
	"fmt"
	"math/big"
)

// Complex is a rectangular ball: a pair of real balls.
type Complex struct {
	Re *Real
	Im *Real
}

// NewComplex returns re + i·im, sharing the parts.
func NewComplex(re, im *Real) *Complex { return &Complex{Re: re, Im: im} }

// ComplexZero returns the exact complex 0.
func ComplexZero(prec uint) *Complex { return &Complex{Re: Zero(prec), Im: Zero(prec)} }

// ComplexOne returns the exact complex 1.
func ComplexOne(prec uint) *Complex { return &Complex{Re: FromInt(1, prec), Im: Zero(prec)} }

// IndeterminateComplex returns a complex ball with infinite radii.
func IndeterminateComplex(prec uint) *Complex {
	return &Complex{Re: Indeterminate(prec), Im: Indeterminate(prec)}
}

// ComplexFromFloat64 returns re + i·im rounded to prec.
func ComplexFromFloat64(re, im float64, prec uint) *Complex {
	return &Complex{Re: FromFloat64(re, prec), Im: FromFloat64(im, prec)}
}

// ComplexFromInt returns the exact integer n.
func ComplexFromInt(n int64, prec uint) *Complex {
	return &Complex{Re: FromInt(n, prec), Im: Zero(prec)}
}

// Copy returns a deep copy.
func (x *Complex) Copy() *Complex { return &Complex{Re: x.Re.Copy(), Im: x.Im.Copy()} }

// Neg returns -x.
func (x *Complex) Neg() *Complex { return &Complex{Re: x.Re.Neg(), Im: x.Im.Neg()} }

// Conj returns the complex conjugate.
func (x *Complex) Conj() *Complex { return &Complex{Re: x.Re.Copy(), Im: x.Im.Neg()} }

// Add returns x + y.
func (x *Complex) Add(y *Complex, prec uint) *Complex {
	return &Complex{Re: x.Re.Add(y.Re, prec), Im: x.Im.Add(y.Im, prec)}
}

// Sub returns x - y.
func (x *Complex) Sub(y *Complex, prec uint) *Complex {
	return &Complex{Re: x.Re.Sub(y.Re, prec), Im: x.Im.Sub(y.Im, prec)}
}

// Mul returns x * y.
func (x *Complex) Mul(y *Complex, prec uint) *Complex {
	ac := x.Re.Mul(y.Re, prec)
	bd := x.Im.Mul(y.Im, prec)
	ad := x.Re.Mul(y.Im, prec)
	bc := x.Im.Mul(y.Re, prec)
	return &Complex{Re: ac.Sub(bd, prec), Im: ad.Add(bc, prec)}
}

// Sqr returns x².
func (x *Complex) Sqr(prec uint) *Complex {
	re := x.Re.Sqr(prec).Sub(x.Im.Sqr(prec), prec)
	im := x.Re.Mul(x.Im, prec).Mul2Exp(1)
	return &Complex{Re: re, Im: im}
}

// MulReal returns r·x.
func (x *Complex) MulReal(r *Real, prec uint) *Complex {
	return &Complex{Re: x.Re.Mul(r, prec), Im: x.Im.Mul(r, prec)}
}

// MulInt returns n·x.
func (x *Complex) MulInt(n int64, prec uint) *Complex {
	return &Complex{Re: x.Re.MulInt(n, prec), Im: x.Im.MulInt(n, prec)}
}

// Mul2Exp returns x·2^k.
func (x *Complex) Mul2Exp(k int) *Complex {
	return &Complex{Re: x.Re.Mul2Exp(k), Im: x.Im.Mul2Exp(k)}
}

// MulI returns i·x.
func (x *Complex) MulI() *Complex { return &Complex{Re: x.Im.Neg(), Im: x.Re.Copy()} }

// MulNegI returns -i·x.
func (x *Complex) MulNegI() *Complex { return &Complex{Re: x.Im.Copy(), Im: x.Re.Neg()} }

// MulIPow returns i^k·x.
func (x *Complex) MulIPow(k int) *Complex {
	switch ((k % 4) + 4) % 4 {
	case 1:
		return x.MulI()
	case 2:
		return x.Neg()
	case 3:
		return x.MulNegI()
	}
	return x.Copy()
}

// MulRootOfUnity returns e^{iπk/4}·x.
func (x *Complex) MulRootOfUnity(k int, prec uint) *Complex {
	k = ((k % 8) + 8) % 8
	y := x
	if k%2 == 1 {
		h := FromInt(2, prec+8).Sqrt(prec + 8).Mul2Exp(-1)
		y = x.Mul(&Complex{Re: h, Im: h}, prec)
		k--
	}
	return y.MulIPow(k / 2)
}

// Inv returns 1/x, indeterminate when x may vanish.
func (x *Complex) Inv(prec uint) *Complex {
	wp := prec + 8
	d := x.Re.Sqr(wp).Add(x.Im.Sqr(wp), wp).Inv(wp)
	return &Complex{Re: x.Re.Mul(d, prec), Im: x.Im.Neg().Mul(d, prec)}
}

// Div returns x/y.
func (x *Complex) Div(y *Complex, prec uint) *Complex {
	return x.Mul(y.Inv(prec+8), prec)
}

// Exp returns e^x.
func (x *Complex) Exp(prec uint) *Complex {
	m := x.Re.Exp(prec + 4)
	return x.Im.ExpI(prec + 4).MulReal(m, prec)
}

// Sqrt returns a square root of x that is continuous on the ball: the
// principal root when Re(mid) >= 0, i·sqrt(-x) otherwise. ok is false when
// the ball may contain 0 or the branch cut.
func (x *Complex) Sqrt(prec uint) (r *Complex, ok bool) {
	if x.Re.Mid.Sign() < 0 {
		r, ok = x.Neg().PrincipalSqrt(prec)
		if !ok {
			return nil, false
		}
		return r.MulI(), true
	}
	return x.PrincipalSqrt(prec)
}

// PrincipalSqrt returns the principal square root, with ok false when the
// ball may meet the closed negative real axis.
func (x *Complex) PrincipalSqrt(prec uint) (*Complex, bool) {
	wp := prec + 10
	n := x.Re.Sqr(wp).Add(x.Im.Sqr(wp), wp).Sqrt(wp)
	if !n.IsFinite() {
		return nil, false
	}
	// t = sqrt((|x| + a)/2), u = b/(2t)
	t := n.Add(x.Re, wp).Mul2Exp(-1).Sqrt(wp)
	if !t.IsFinite() {
		return nil, false
	}
	u := x.Im.Div(t.Mul2Exp(1), wp)
	if !u.IsFinite() {
		return nil, false
	}
	return &Complex{Re: t.Round(prec), Im: u.Round(prec)}, true
}

// AbsUpper returns an upper bound for |x|.
func (x *Complex) AbsUpper() *big.Float {
	a, b := x.Re.Upper(), x.Im.Upper()
	if a.IsInf() || b.IsInf() {
		return radInf()
	}
	s := radAdd(radMul(a, a), radMul(b, b))
	return newRad().Mul(newRad().Sqrt(s), sqrtSlackUp)
}

// AbsLower returns a lower bound for |x|.
func (x *Complex) AbsLower() *big.Float {
	a, b := x.Re.Lower(), x.Im.Lower()
	s := newLow().Add(newLow().Mul(a, a), newLow().Mul(b, b))
	return newLow().Mul(newLow().Sqrt(s), sqrtSlack)
}

// SqrtAroundZero returns 0 ± sqrt(|x|), which contains both square roots of
// every point of x.
func (x *Complex) SqrtAroundZero(prec uint) *Complex {
	u := x.AbsUpper()
	if u.IsInf() {
		return IndeterminateComplex(prec)
	}
	r := newRad().Mul(newRad().Sqrt(u), sqrtSlackUp)
	return ComplexZero(prec).AddError(r)
}

var sqrtSlackUp = new(big.Float).SetPrec(RadPrec).SetFloat64(1 + 0x1p-40)

// RadUpper bounds the distance from the midpoint to any point of x.
func (x *Complex) RadUpper() *big.Float { return radAdd(x.Re.Rad, x.Im.Rad) }

// AddError widens both parts by e.
func (x *Complex) AddError(e *big.Float) *Complex {
	return &Complex{Re: x.Re.AddError(e), Im: x.Im.AddError(e)}
}

// Round rounds both midpoints to prec.
func (x *Complex) Round(prec uint) *Complex {
	return &Complex{Re: x.Re.Round(prec), Im: x.Im.Round(prec)}
}

// IsFinite reports whether both radii are finite.
func (x *Complex) IsFinite() bool { return x.Re.IsFinite() && x.Im.IsFinite() }

// IsZero reports whether x is exactly zero.
func (x *Complex) IsZero() bool { return x.Re.IsZero() && x.Im.IsZero() }

// IsReal reports whether the imaginary part is exactly zero.
func (x *Complex) IsReal() bool { return x.Im.IsZero() }

// ContainsZero reports whether 0 may lie in x.
func (x *Complex) ContainsZero() bool { return x.Re.ContainsZero() && x.Im.ContainsZero() }

// Overlaps reports whether x and y may share a point.
func (x *Complex) Overlaps(y *Complex) bool { return x.Re.Overlaps(y.Re) && x.Im.Overlaps(y.Im) }

// Contains reports whether y ⊆ x.
func (x *Complex) Contains(y *Complex) bool { return x.Re.Contains(y.Re) && x.Im.Contains(y.Im) }

// ContainsComplex128 reports whether v ∈ x.
func (x *Complex) ContainsComplex128(v complex128) bool {
	return x.Re.ContainsFloat64(real(v)) && x.Im.ContainsFloat64(imag(v))
}

// Complex128 returns the midpoint as a complex128.
func (x *Complex) Complex128() complex128 { return complex(x.Re.Float64(), x.Im.Float64()) }

// Text formats x with the given number of significant digits.
func (x *Complex) Text(digits int) string {
	return fmt.Sprintf("%s + i*%s", x.Re.Text(digits), x.Im.Text(digits))
}

func (x *Complex) String() string { return x.Re.String() + " + i*" + x.Im.String() }
