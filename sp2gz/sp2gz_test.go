package sp2gz

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"riemann-theta/errs"
)

func TestDet(t *testing.T) {
	cases := []struct {
		m    [][]int64
		want int64
	}{
		{[][]int64{{2}}, 2},
		{[][]int64{{1, 2}, {3, 4}}, -2},
		{[][]int64{{0, 1}, {1, 0}}, -1},
		{[][]int64{{2, -1, 0}, {-1, 2, -1}, {0, -1, 2}}, 4},
		{[][]int64{{0, 0, 1}, {0, 1, 0}, {1, 0, 0}}, -1},
		{[][]int64{{1, 2, 3}, {4, 5, 6}, {7, 8, 9}}, 0},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, FromInt64(c.m).Det().Int64(), "det %v", c.m)
	}
}

func TestUnimodularInverse(t *testing.T) {
	u := FromInt64([][]int64{{2, 1, 0}, {1, 1, 0}, {3, 0, 1}})
	ui, err := u.Inverse()
	require.NoError(t, err)
	assert.True(t, u.Mul(ui).IsIdentity())
	assert.True(t, ui.Mul(u).IsIdentity())

	_, err = FromInt64([][]int64{{2, 0}, {0, 1}}).Inverse()
	assert.True(t, errors.Is(err, errs.ErrDomain))
}

func TestConstructorsAreSymplectic(t *testing.T) {
	for g := 1; g <= 4; g++ {
		assert.True(t, IsSymplectic(J(g)))
		assert.True(t, IsSymplectic(Identity(g)))
		s := NewMatrix(g, g)
		for i := 0; i < g; i++ {
			for j := 0; j <= i; j++ {
				s.SetInt64(i, j, int64(i-2*j))
				s.SetInt64(j, i, int64(i-2*j))
			}
		}
		tr, err := Translation(s)
		require.NoError(t, err)
		assert.True(t, IsSymplectic(tr))

		u := Eye(g)
		if g > 1 {
			u.SetInt64(0, g-1, 3)
		}
		b, err := Block(u)
		require.NoError(t, err)
		assert.True(t, IsSymplectic(b))

		for mask := 0; mask < 1<<g; mask++ {
			var sub []int
			for i := 0; i < g; i++ {
				if mask>>i&1 == 1 {
					sub = append(sub, i)
				}
			}
			pj, err := PartialJ(g, sub)
			require.NoError(t, err)
			assert.True(t, IsSymplectic(pj), "partial J %v", sub)
		}
	}
	assert.False(t, IsSymplectic(FromInt64([][]int64{{2, 0}, {0, 1}})))
}

func TestPartialJFullIsJ(t *testing.T) {
	pj, err := PartialJ(3, []int{0, 1, 2})
	require.NoError(t, err)
	// (I-E, -E; E, I-E) with E = I is (0, -I; I, 0) = -J
	assert.True(t, pj.Equal(J(3).Neg()))

	_, err = PartialJ(2, []int{0, 0})
	assert.True(t, errors.Is(err, errs.ErrDomain))
	_, err = PartialJ(2, []int{2})
	assert.True(t, errors.Is(err, errs.ErrDomain))
}

func TestTranslationRejectsAsymmetric(t *testing.T) {
	_, err := Translation(FromInt64([][]int64{{0, 1}, {0, 0}}))
	assert.True(t, errors.Is(err, errs.ErrDomain))
}

func TestSymplecticInverse(t *testing.T) {
	gens := Fundamental(2)
	m := gens[3].Mul(gens[10]).Mul(gens[17])
	require.True(t, IsSymplectic(m))
	assert.True(t, m.Mul(Inverse(m)).IsIdentity())
	// -J mᵗ J
	alt := J(2).Neg().Mul(m.Transpose()).Mul(J(2))
	if diff := cmp.Diff(alt.Int64s(), Inverse(m).Int64s()); diff != "" {
		t.Fatalf("inverse mismatch (-want +got):\n%s", diff)
	}
}

func TestBlocksRoundTrip(t *testing.T) {
	m := Fundamental(3)[5]
	a, b, c, d := Blocks(m)
	if diff := cmp.Diff(m.Int64s(), FromBlocks(a, b, c, d).Int64s()); diff != "" {
		t.Fatalf("blocks (-want +got):\n%s", diff)
	}
}

func TestFundamental(t *testing.T) {
	for g := 1; g <= 4; g++ {
		ms := Fundamental(g)
		assert.Len(t, ms, FundamentalCount(g))
		for i, m := range ms {
			assert.NoError(t, Check(m, g), "generator %d of genus %d", i, g)
		}
	}
	assert.Equal(t, 1, FundamentalCount(1))
	assert.Equal(t, 19, FundamentalCount(2))
	assert.Equal(t, 19*3+8, FundamentalCount(3))
	if diff := cmp.Diff(J(1).Neg().Int64s(), Fundamental(1)[0].Int64s()); diff != "" {
		t.Fatalf("genus one generator (-want +got):\n%s", diff)
	}
}

func TestGeneratorCocycle(t *testing.T) {
	// C = E and D = E·D0 + I - E
	gen := pair(3, 0, 2, 1, -1, 0)
	m := gen.Matrix(3)
	_, _, c, d := Blocks(m)
	wantC := [][]int64{{1, 0, 0}, {0, 0, 0}, {0, 0, 1}}
	wantD := [][]int64{{1, 0, -1}, {0, 1, 0}, {-1, 0, 0}}
	if diff := cmp.Diff(wantC, c.Int64s()); diff != "" {
		t.Fatalf("C (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(wantD, d.Int64s()); diff != "" {
		t.Fatalf("D (-want +got):\n%s", diff)
	}
}
