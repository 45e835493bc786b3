// Package sample produces deterministic random fixtures: period matrices,
// positive definite forms and points, all derived from a text label.
//
// The label is expanded with SHAKE128 into the key of a lattigo keyed PRNG,
// which drives a uniform sampler over a small NTT ring. Each polynomial read
// from the sampler yields a block of residues that are combined into
// float64 values, so a label always maps to the same fixtures.
package sample

import (
	"fmt"
	"math"

	"github.com/tuneinsight/lattigo/v4/ring"
	"github.com/tuneinsight/lattigo/v4/utils"
	"golang.org/x/crypto/sha3"
)

const (
	ringN = 16
	ringQ = 12289 // NTT friendly for N = 16
)

// Source is a deterministic fixture stream. It is not safe for concurrent
// use.
type Source struct {
	r       *ring.Ring
	sampler *ring.UniformSampler
	poly    *ring.Poly
	pos     int
}

// New returns the stream attached to label.
func New(label string) (*Source, error) {
	key := make([]byte, 32)
	h := sha3.NewShake128()
	h.Write([]byte("riemann-theta/sample:"))
	h.Write([]byte(label))
	if _, err := h.Read(key); err != nil {
		return nil, fmt.Errorf("sample: derive key: %w", err)
	}
	prng, err := utils.NewKeyedPRNG(key)
	if err != nil {
		return nil, fmt.Errorf("sample: prng: %w", err)
	}
	r, err := ring.NewRing(ringN, []uint64{ringQ})
	if err != nil {
		return nil, fmt.Errorf("sample: ring: %w", err)
	}
	return &Source{r: r, sampler: ring.NewUniformSampler(prng, r), poly: r.NewPoly(), pos: ringN}, nil
}

// MustNew is New for tests and fixed labels.
func MustNew(label string) *Source {
	s, err := New(label)
	if err != nil {
		panic(err)
	}
	return s
}

// residue returns the next uniform value in [0, ringQ).
func (s *Source) residue() uint64 {
	if s.pos == ringN {
		s.sampler.Read(s.poly)
		s.pos = 0
	}
	v := s.poly.Coeffs[0][s.pos]
	s.pos++
	return v
}

// Float64 returns a uniform value in [0, 1) with about 40 bits of entropy.
// Three residues keep every intermediate exact in a float64.
func (s *Source) Float64() float64 {
	var acc float64
	for i := 0; i < 3; i++ {
		acc = acc*ringQ + float64(s.residue())
	}
	return acc / (ringQ * ringQ * ringQ)
}

// Uniform returns a value in [lo, hi).
func (s *Source) Uniform(lo, hi float64) float64 { return lo + (hi-lo)*s.Float64() }

// Intn returns a value in [0, n).
func (s *Source) Intn(n int) int {
	v := int(s.Float64() * float64(n))
	if v >= n {
		v = n - 1
	}
	return v
}

// PosDef returns a symmetric positive definite g×g matrix AAᵗ + shift·I
// with A uniform in [-1, 1].
func (s *Source) PosDef(g int, shift float64) [][]float64 {
	a := make([][]float64, g)
	for i := range a {
		a[i] = make([]float64, g)
		for j := range a[i] {
			a[i][j] = s.Uniform(-1, 1)
		}
	}
	y := make([][]float64, g)
	for i := range y {
		y[i] = make([]float64, g)
		for j := range y[i] {
			for k := 0; k < g; k++ {
				y[i][j] += a[i][k] * a[j][k]
			}
			if i == j {
				y[i][j] += shift
			}
		}
	}
	return y
}

// Symmetric returns a symmetric matrix with entries uniform in [lo, hi).
func (s *Source) Symmetric(g int, lo, hi float64) [][]float64 {
	x := make([][]float64, g)
	for i := range x {
		x[i] = make([]float64, g)
	}
	for i := 0; i < g; i++ {
		for j := 0; j <= i; j++ {
			v := s.Uniform(lo, hi)
			x[i][j], x[j][i] = v, v
		}
	}
	return x
}

// Tau returns a period matrix X + iY with X uniform in [-1/2, 1/2) and
// Y = AAᵗ + shift·I.
func (s *Source) Tau(g int, shift float64) [][]complex128 {
	x := s.Symmetric(g, -0.5, 0.5)
	y := s.PosDef(g, shift)
	tau := make([][]complex128, g)
	for i := range tau {
		tau[i] = make([]complex128, g)
		for j := range tau[i] {
			tau[i][j] = complex(x[i][j], y[i][j])
		}
	}
	return tau
}

// Point returns z with real and imaginary parts uniform in [-scale, scale).
func (s *Source) Point(g int, scale float64) []complex128 {
	z := make([]complex128, g)
	for i := range z {
		z[i] = complex(s.Uniform(-scale, scale), s.Uniform(-scale, scale))
	}
	return z
}

// Round returns x rounded to a multiple of 2^-bits, so that fixtures are
// exact dyadic numbers.
func Round(x float64, bits int) float64 {
	f := math.Ldexp(1, bits)
	return math.Round(x*f) / f
}
