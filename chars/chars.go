// Package chars packs theta characteristics into integers.
//
// A characteristic (a, b) with a, b ∈ {0,1}^g is stored as the integer
// ch = A·2^g + B where A and B read a and b as binary numbers with the first
// coordinate as most significant bit. Addition of characteristics is XOR
// and the parity of a·b is the popcount of A&B.
package chars

import (
	"fmt"
	"math/bits"

	"riemann-theta/errs"
)

// MaxGenus bounds g so that 2^{2g} characteristics fit in a Char.
const MaxGenus = 16

// Char is a packed characteristic in [0, 2^{2g}).
type Char uint64

func checkGenus(g int) error {
	if g < 1 || g > MaxGenus {
		return fmt.Errorf("chars: genus %d outside [1, %d]: %w", g, MaxGenus, errs.ErrDomain)
	}
	return nil
}

// Count returns 2^{2g}.
func Count(g int) int { return 1 << (2 * g) }

// Valid reports whether ch is a characteristic in genus g.
func Valid(ch Char, g int) bool {
	return g >= 1 && g <= MaxGenus && uint64(ch) < uint64(1)<<(2*g)
}

// Encode packs (a, b).
func Encode(a, b []uint8) (Char, error) {
	g := len(a)
	if err := checkGenus(g); err != nil {
		return 0, err
	}
	if len(b) != g {
		return 0, fmt.Errorf("chars: encode: len(a)=%d, len(b)=%d: %w", g, len(b), errs.ErrDomain)
	}
	var ch Char
	for _, v := range [][]uint8{a, b} {
		for i, x := range v {
			if x > 1 {
				return 0, fmt.Errorf("chars: encode: entry %d is %d, not a bit: %w", i, x, errs.ErrDomain)
			}
			ch = ch<<1 | Char(x)
		}
	}
	return ch, nil
}

// Decode unpacks ch into (a, b).
func Decode(ch Char, g int) (a, b []uint8, err error) {
	if err := checkGenus(g); err != nil {
		return nil, nil, err
	}
	if !Valid(ch, g) {
		return nil, nil, fmt.Errorf("chars: decode: %d outside [0, 2^%d): %w", ch, 2*g, errs.ErrDomain)
	}
	a = make([]uint8, g)
	b = make([]uint8, g)
	for i := 0; i < g; i++ {
		a[i] = uint8(ch >> (2*g - 1 - i) & 1)
		b[i] = uint8(ch >> (g - 1 - i) & 1)
	}
	return a, b, nil
}

// IsEven reports whether a·b is even.
func IsEven(ch Char, g int) (bool, error) {
	if err := checkGenus(g); err != nil {
		return false, err
	}
	if !Valid(ch, g) {
		return false, fmt.Errorf("chars: parity: %d outside [0, 2^%d): %w", ch, 2*g, errs.ErrDomain)
	}
	a, b := Split(ch, g)
	return Dot(a, b) == 0, nil
}

// Split returns the packed halves A and B of ch.
func Split(ch Char, g int) (a, b uint64) {
	mask := uint64(1)<<g - 1
	return uint64(ch) >> g & mask, uint64(ch) & mask
}

// Join packs halves A and B.
func Join(a, b uint64, g int) Char { return Char(a<<g | b) }

// Dot returns x·y mod 2 for packed bit vectors.
func Dot(x, y uint64) int { return bits.OnesCount64(x&y) & 1 }

// Weight returns x·y over the integers for packed bit vectors.
func Weight(x, y uint64) int { return bits.OnesCount64(x & y) }

// Bit returns coordinate i of a packed vector of length g.
func Bit(x uint64, i, g int) uint8 { return uint8(x >> (g - 1 - i) & 1) }

// Pack reads a bit vector with the first coordinate as most significant bit.
func Pack(v []uint8) uint64 {
	var x uint64
	for _, b := range v {
		x = x<<1 | uint64(b&1)
	}
	return x
}

// Unpack is the inverse of Pack for vectors of length g.
func Unpack(x uint64, g int) []uint8 {
	v := make([]uint8, g)
	for i := range v {
		v[i] = Bit(x, i, g)
	}
	return v
}

// Even lists the even characteristics of genus g in increasing order.
func Even(g int) []Char {
	out := make([]Char, 0, (1<<g)*((1<<g)+1)/2)
	for ch := 0; ch < Count(g); ch++ {
		a, b := Split(Char(ch), g)
		if Dot(a, b) == 0 {
			out = append(out, Char(ch))
		}
	}
	return out
}

// All lists every characteristic of genus g.
func All(g int) []Char {
	out := make([]Char, Count(g))
	for i := range out {
		out[i] = Char(i)
	}
	return out
}

// String formats ch as its two bit strings.
func String(ch Char, g int) string {
	a, b := Split(ch, g)
	return fmt.Sprintf("[%0*b|%0*b]", g, a, g, b)
}
