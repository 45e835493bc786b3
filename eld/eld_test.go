package eld

import (
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"riemann-theta/ball"
	"riemann-theta/errs"
	"riemann-theta/internal/sample"
)

const prec = 128

func realMat(y [][]float64) *ball.RealMat {
	g := len(y)
	m := ball.NewRealMat(g, g, prec)
	for i := range y {
		for j := range y[i] {
			m.Set(i, j, ball.FromFloat64(y[i][j], prec))
		}
	}
	return m
}

func realVec(v []float64) []*ball.Real {
	out := make([]*ball.Real, len(v))
	for i, x := range v {
		out[i] = ball.FromFloat64(x, prec)
	}
	return out
}

func quad(y [][]float64, n []int64, v []float64) float64 {
	var q float64
	for i := range y {
		for j := range y {
			q += (float64(n[i]) - v[i]) * y[i][j] * (float64(n[j]) - v[j])
		}
	}
	return q
}

// scan visits every point of the box [-b, b]^g.
func scan(g int, b int64, f func([]int64)) {
	n := make([]int64, g)
	var rec func(i int)
	rec = func(i int) {
		if i == g {
			f(n)
			return
		}
		for x := -b; x <= b; x++ {
			n[i] = x
			rec(i + 1)
		}
	}
	rec(0)
}

func TestMatchesBruteForce(t *testing.T) {
	src := sample.MustNew("eld/brute-force")
	for g := 1; g <= 4; g++ {
		for trial := 0; trial < 3; trial++ {
			y := src.PosDef(g, 0.3)
			v := make([]float64, g)
			for i := range v {
				v[i] = src.Uniform(-1, 1)
			}
			r2 := src.Uniform(2, 9)
			l, ok := realMat(y).Cholesky(prec)
			require.True(t, ok)
			tree, err := New(l, ball.FromFloat64(r2, prec), realVec(v), prec)
			require.NoError(t, err)

			// every eigenvalue of Y is >= 0.3
			b := int64(math.Ceil(math.Sqrt(r2/0.3))) + 2
			inside := 0
			scan(g, b, func(n []int64) {
				q := quad(y, n, v)
				if q <= r2*(1-1e-9) {
					inside++
					require.True(t, tree.Contains(n), "g=%d missing %v (q=%g, R²=%g)", g, n, q, r2)
				}
			})
			pts := tree.Points()
			assert.Len(t, pts, tree.Count())
			assert.GreaterOrEqual(t, len(pts), inside)
			for _, n := range pts {
				assert.LessOrEqual(t, quad(y, n, v), r2*(1+1e-9), "g=%d extra point %v", g, n)
			}
			tree.Release()
			assert.Equal(t, 0, tree.Count())
		}
	}
}

func TestDiagonalCount(t *testing.T) {
	// Y = I, v = 0, R² = 2: the 9 points of {-1, 0, 1}²
	l := realMat([][]float64{{1, 0}, {0, 1}})
	tree, err := New(l, ball.FromInt(2, prec), realVec([]float64{0, 0}), prec)
	require.NoError(t, err)
	assert.Equal(t, 9, tree.Count())
	assert.Equal(t, []int64{1, 1}, tree.Box())
	assert.True(t, tree.Contains([]int64{-1, 1}))
	assert.False(t, tree.Contains([]int64{2, 0}))

	dump := tree.String()
	assert.Equal(t, 4, strings.Count(dump, "\n"))
	assert.Contains(t, dump, "d=2")
	t.Log("\n" + dump)
}

func TestSplitAroundCentre(t *testing.T) {
	l := realMat([][]float64{{1}})
	tree, err := New(l, ball.FromFloat64(6.25, prec), realVec([]float64{0.4}), prec)
	require.NoError(t, err)
	// |n - 0.4| <= 2.5
	assert.Equal(t, [][]int64{{-2}, {-1}, {0}, {1}, {2}}, tree.Points())
}

func TestEmpty(t *testing.T) {
	l := realMat([][]float64{{1, 0}, {0, 1}})
	tree, err := New(l, ball.FromFloat64(0.01, prec), realVec([]float64{0.5, 0.5}), prec)
	require.NoError(t, err)
	assert.Equal(t, 0, tree.Count())
	assert.Empty(t, tree.Points())
	assert.Equal(t, "(empty)\n", tree.String())

	tree, err = New(l, ball.FromInt(-1, prec), realVec([]float64{0, 0}), prec)
	require.NoError(t, err)
	assert.Equal(t, 0, tree.Count())
}

func TestInvalidGeometry(t *testing.T) {
	l := realMat([][]float64{{1, 0}, {0.5, 0}})
	_, err := New(l, ball.FromInt(1, prec), realVec([]float64{0, 0}), prec)
	assert.True(t, errors.Is(err, errs.ErrInvalidGeometry))

	_, err = New(realMat([][]float64{{1}}), ball.FromInt(1, prec), realVec([]float64{0, 0}), prec)
	assert.True(t, errors.Is(err, errs.ErrInvalidGeometry))
}
