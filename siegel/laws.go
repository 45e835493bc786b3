package siegel

import (
	"math/bits"

	"riemann-theta/chars"
	"riemann-theta/sp2gz"
)

// mod2 returns x mod 2 in {0, 1}.
func mod2(x int64) int64 { return x & 1 }

func unpack(x uint64, g int) []int64 {
	v := make([]int64, g)
	for i := range v {
		v[i] = int64(chars.Bit(x, i, g))
	}
	return v
}

func pack(v []int64) uint64 {
	var x uint64
	for _, c := range v {
		x = x<<1 | uint64(mod2(c))
	}
	return x
}

// TranslateChar gives the law of τ ↦ τ + S:
//
//	θ_{a,b}(z, τ + S) = ζ8^k θ_{a,b'}(z, τ)
//
// with w = diag(S) + S·a, b' = b + w mod 2, m = (b + w - b')/2 and
// k = aᵗSa - 2aᵗw + 4aᵗm mod 8.
func TranslateChar(a, b uint64, s *sp2gz.Matrix, g int) (uint64, int) {
	av, bv := unpack(a, g), unpack(b, g)
	w := make([]int64, g)
	for i := 0; i < g; i++ {
		w[i] = s.Int64(i, i)
		for j := 0; j < g; j++ {
			w[i] += s.Int64(i, j) * av[j]
		}
	}
	var k int64
	nb := make([]int64, g)
	for i := 0; i < g; i++ {
		nb[i] = mod2(bv[i] + w[i])
		m := (bv[i] + w[i] - nb[i]) / 2
		for j := 0; j < g; j++ {
			k += av[i] * s.Int64(i, j) * av[j]
		}
		k += -2*av[i]*w[i] + 4*av[i]*m
	}
	return pack(nb), int(((k % 8) + 8) % 8)
}

// BlockChar gives the law of (z, τ) ↦ (Uz, UτUᵗ):
//
//	θ_{a,b}(Uz, UτUᵗ) = (-1)^s θ_{a',b'}(z, τ)
//
// with a' = Uᵗa mod 2, β = U⁻¹b, b' = β mod 2 and s = a'·(β - b')/2.
func BlockChar(a, b uint64, u, uinv *sp2gz.Matrix, g int) (na, nb uint64, s int) {
	av, bv := unpack(a, g), unpack(b, g)
	ap := make([]int64, g)
	beta := make([]int64, g)
	for i := 0; i < g; i++ {
		for j := 0; j < g; j++ {
			ap[i] += u.Int64(j, i) * av[j]
			beta[i] += uinv.Int64(i, j) * bv[j]
		}
	}
	var sign int64
	for i := 0; i < g; i++ {
		bi := mod2(beta[i])
		sign += mod2(ap[i]) * ((beta[i] - bi) / 2)
	}
	return pack(ap), pack(beta), int(mod2(sign))
}

// unblockChar inverts BlockChar on characteristics.
func unblockChar(na, nb uint64, u, uinv *sp2gz.Matrix, g int) (a, b uint64) {
	apv, bpv := unpack(na, g), unpack(nb, g)
	av := make([]int64, g)
	bv := make([]int64, g)
	for i := 0; i < g; i++ {
		for j := 0; j < g; j++ {
			// a = U⁻ᵗa', b = U b'
			av[i] += uinv.Int64(j, i) * apv[j]
			bv[i] += u.Int64(i, j) * bpv[j]
		}
	}
	return pack(av), pack(bv)
}

func subsetMask(subset []int, g int) uint64 {
	var m uint64
	for _, i := range subset {
		m |= 1 << (g - 1 - i)
	}
	return m
}

// PartialJChar gives the characteristic part of the law of the partial
// inversion on subset: a and b are exchanged on the subset and the factor
// carries (-i)^w with w = a_S·b_S counted over the integers.
func PartialJChar(a, b uint64, subset []int, g int) (na, nb uint64, w int) {
	m := subsetMask(subset, g)
	na = a&^m | b&m
	nb = b&^m | a&m
	return na, nb, bits.OnesCount64(a & b & m)
}
