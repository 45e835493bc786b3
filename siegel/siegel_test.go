package siegel

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"riemann-theta/ball"
	"riemann-theta/chars"
	"riemann-theta/errs"
	"riemann-theta/internal/sample"
	"riemann-theta/naive"
	"riemann-theta/sp2gz"
)

const prec = 96

func thetaAt(t *testing.T, tau *ball.Mat, z []*ball.Complex, cs []chars.Char) *naive.Values {
	t.Helper()
	v, err := naive.Eval(tau, [][]*ball.Complex{z}, cs, 0, prec)
	require.NoError(t, err)
	return v
}

// checkLaw verifies θ_χ(image) = Factor·θ_{Source(χ)}(z, τ) for every χ.
func checkLaw(t *testing.T, w Word, tau [][]complex128, z []complex128) {
	t.Helper()
	g := len(tau)
	bt := ball.MatFromComplex128(tau, prec)
	bz := ball.VecFromComplex128(z, prec)
	act, err := w.Apply(bt, [][]*ball.Complex{bz}, prec)
	require.NoError(t, err)

	cs := chars.All(g)
	lhs := thetaAt(t, act.Tau, act.Z(0), cs)
	rhs := thetaAt(t, bt, bz, cs)
	for ci, ch := range cs {
		src := act.Source(ch)
		assert.Equal(t, ch, act.Target(src))
		want := act.Factor(0, ch).Mul(rhs.Lookup(0, src, 0), prec)
		got := lhs.At(0, ci, 0)
		require.True(t, got.IsFinite())
		assert.True(t, got.Overlaps(want), "word %s ch %s: %s vs %s", w, chars.String(ch, g), got.Text(12), want.Text(12))
	}
}

func TestStepLaws(t *testing.T) {
	src := sample.MustNew("siegel/laws")
	tau := src.Tau(2, 0.6)
	z := src.Point(2, 0.4)
	steps := []Step{
		TranslateStep(sp2gz.FromInt64([][]int64{{1, 2}, {2, -1}})),
		TranslateStep(sp2gz.FromInt64([][]int64{{3, -1}, {-1, 0}})),
		BlockStep(sp2gz.FromInt64([][]int64{{1, 1}, {0, 1}}), sp2gz.FromInt64([][]int64{{1, -1}, {0, 1}})),
		BlockStep(sp2gz.FromInt64([][]int64{{2, 1}, {1, 1}}), sp2gz.FromInt64([][]int64{{1, -1}, {-1, 2}})),
		InvertStep([]int{0}),
		InvertStep([]int{1}),
		InvertStep([]int{0, 1}),
	}
	for _, s := range steps {
		t.Run(s.String(), func(t *testing.T) {
			checkLaw(t, Word{s}, tau, z)
		})
	}
}

func TestGenusOneInversion(t *testing.T) {
	// θ_00(z/τ, -1/τ) = sqrt(-iτ) e^{πi z²/τ} θ_00(z, τ)
	checkLaw(t, Word{InvertStep([]int{0})}, [][]complex128{{complex(0.2, 0.9)}}, []complex128{complex(0.1, -0.2)})
}

func TestWordComposition(t *testing.T) {
	src := sample.MustNew("siegel/word")
	tau := src.Tau(2, 0.5)
	z := src.Point(2, 0.3)
	w := Word{
		TranslateStep(sp2gz.FromInt64([][]int64{{1, 0}, {0, -1}})),
		InvertStep([]int{0}),
		BlockStep(sp2gz.FromInt64([][]int64{{1, 0}, {1, 1}}), sp2gz.FromInt64([][]int64{{1, 0}, {-1, 1}})),
		InvertStep([]int{0, 1}),
		TranslateStep(sp2gz.FromInt64([][]int64{{0, 1}, {1, 0}})),
	}
	checkLaw(t, w, tau, z)

	m, err := w.Matrix(2)
	require.NoError(t, err)
	assert.True(t, sp2gz.IsSymplectic(m))
	act, err := w.Apply(ball.MatFromComplex128(tau, prec), nil, prec)
	require.NoError(t, err)
	direct, err := Act(m, ball.MatFromComplex128(tau, prec), prec)
	require.NoError(t, err)
	assert.True(t, direct.Overlaps(act.Tau))
}

func TestTargetInvertsSource(t *testing.T) {
	w := Word{
		BlockStep(sp2gz.FromInt64([][]int64{{2, 1, 0}, {1, 1, 0}, {0, 0, 1}}), sp2gz.FromInt64([][]int64{{1, -1, 0}, {-1, 2, 0}, {0, 0, 1}})),
		InvertStep([]int{0, 2}),
		TranslateStep(sp2gz.FromInt64([][]int64{{1, 1, 0}, {1, 0, 1}, {0, 1, 1}})),
	}
	seen := map[chars.Char]bool{}
	for _, ch := range chars.All(3) {
		s := w.Source(ch, 3)
		assert.Equal(t, ch, w.Target(s, 3))
		assert.False(t, seen[s])
		seen[s] = true
	}
}

func detIm(t *testing.T, tau *ball.Mat) float64 {
	t.Helper()
	g := tau.Rows
	y := mat.NewDense(g, g, nil)
	for i := 0; i < g; i++ {
		for j := 0; j < g; j++ {
			y.Set(i, j, tau.At(i, j).Im.Float64())
		}
	}
	return mat.Det(y)
}

func TestReduceGenusOne(t *testing.T) {
	tau := ball.MatFromComplex128([][]complex128{{complex(0.37, 0.05)}}, prec)
	red, err := Reduce(tau, prec, Params{})
	require.NoError(t, err)
	assert.NotEmpty(t, red.Word)
	assert.True(t, sp2gz.IsSymplectic(red.M))

	v := red.Tau.At(0, 0).Complex128()
	assert.LessOrEqual(t, real(v), 0.5)
	assert.GreaterOrEqual(t, real(v), -0.5)
	assert.GreaterOrEqual(t, real(v)*real(v)+imag(v)*imag(v), 1-DefaultEps)

	direct, err := Act(red.M, tau, prec)
	require.NoError(t, err)
	assert.True(t, direct.Overlaps(red.Tau))
}

func TestReduceGenusTwo(t *testing.T) {
	src := sample.MustNew("siegel/reduce")
	for trial := 0; trial < 4; trial++ {
		raw := src.Tau(2, 0.02)
		// shrink Im τ to force inversions
		for i := range raw {
			for j := range raw[i] {
				raw[i][j] = complex(real(raw[i][j])*3, imag(raw[i][j])*0.2)
			}
		}
		tau := ball.MatFromComplex128(raw, prec)
		red, err := Reduce(tau, prec, Params{})
		require.NoError(t, err)
		assert.True(t, sp2gz.IsSymplectic(red.M))
		assert.Greater(t, detIm(t, red.Tau), detIm(t, tau))

		direct, err := Act(red.M, tau, prec)
		require.NoError(t, err)
		assert.True(t, direct.Overlaps(red.Tau))

		again, err := Reduce(red.Tau, prec, Params{})
		require.NoError(t, err)
		assert.Empty(t, again.Word, "reduction is not idempotent: %s", again.Word)
		assert.True(t, again.M.IsIdentity())
	}
}

func TestReduceThenLaw(t *testing.T) {
	src := sample.MustNew("siegel/reduce-law")
	raw := src.Tau(2, 0.1)
	for i := range raw {
		for j := range raw[i] {
			raw[i][j] = complex(real(raw[i][j]), imag(raw[i][j])*0.4)
		}
	}
	red, err := Reduce(ball.MatFromComplex128(raw, prec), prec, Params{})
	require.NoError(t, err)
	checkLaw(t, red.Word, raw, src.Point(2, 0.2))
}

func TestReduceZ(t *testing.T) {
	tau := [][]complex128{{complex(0.1, 1.2), complex(0.3, 0.2)}, {complex(0.3, 0.2), complex(-0.2, 0.9)}}
	bt := ball.MatFromComplex128(tau, prec)
	z := ball.VecFromComplex128([]complex128{complex(2.3, 2.9), complex(-1.6, -1.7)}, prec)
	r, err := ReduceZ(bt, z, prec)
	require.NoError(t, err)
	assert.False(t, r.IsTrivial())
	for _, zi := range r.Z {
		assert.LessOrEqual(t, zi.Re.Float64(), 0.5+1e-12)
		assert.GreaterOrEqual(t, zi.Re.Float64(), -0.5-1e-12)
	}

	cs := chars.All(2)
	orig := thetaAt(t, bt, z, cs)
	red := thetaAt(t, bt, r.Z, cs)
	for ci, ch := range cs {
		want := r.Factor(ch).Mul(red.At(0, ci, 0), prec)
		assert.True(t, orig.At(0, ci, 0).Overlaps(want), "ch %s", chars.String(ch, 2))
	}

	_, err = ReduceZ(bt, z[:1], prec)
	assert.True(t, errors.Is(err, errs.ErrDomain))
}

func TestLLL(t *testing.T) {
	y := mat.NewSymDense(3, []float64{
		10, 9, 1,
		9, 10, 2,
		1, 2, 5,
	})
	b, binv := lll(y)
	bm := mat.NewDense(3, 3, nil)
	bi := mat.NewDense(3, 3, nil)
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			bm.Set(i, j, float64(b[i][j]))
			bi.Set(i, j, float64(binv[i][j]))
		}
	}
	var prod mat.Dense
	prod.Mul(bm, bi)
	assert.True(t, mat.EqualApprox(&prod, mat.NewDiagDense(3, []float64{1, 1, 1}), 1e-12))

	mu, bb := gramSchmidt(gram(y, b))
	for k := 1; k < 3; k++ {
		for j := 0; j < k; j++ {
			assert.LessOrEqual(t, mu[k][j]*mu[k][j], 0.25+1e-9)
		}
		assert.GreaterOrEqual(t, bb[k], (lllDelta-mu[k][k-1]*mu[k][k-1])*bb[k-1]-1e-9)
	}
	// the short vector (1, -1, 0) has norm 2
	g := gram(y, b)
	assert.InDelta(t, 2, g.At(0, 0), 1e-9)
}

func TestCocycle(t *testing.T) {
	tau := ball.MatFromComplex128([][]complex128{{complex(0.1, 1)}}, prec)
	c, err := Cocycle(sp2gz.J(1), tau, prec)
	require.NoError(t, err)
	assert.True(t, c.At(0, 0).Overlaps(tau.At(0, 0).Neg()))

	_, err = Cocycle(sp2gz.FromInt64([][]int64{{2, 0}, {0, 1}}), tau, prec)
	assert.True(t, errors.Is(err, errs.ErrDomain))
}
