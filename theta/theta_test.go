package theta

import (
	"context"
	"errors"
	"math/big"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"golang.org/x/sync/errgroup"

	"riemann-theta/ball"
	"riemann-theta/chars"
	"riemann-theta/internal/sample"
	"riemann-theta/naive"
	"riemann-theta/prof"
	"riemann-theta/siegel"
	"riemann-theta/sp2gz"
)

func requireOverlap(t *testing.T, want, got *Result) {
	t.Helper()
	require.Equal(t, want.Chars(), got.Chars())
	require.Equal(t, want.NPoints, got.NPoints)
	for i := 0; i < want.NPoints; i++ {
		for j, ch := range want.Chars() {
			for k := range want.Tuples() {
				w, g := want.At(i, j, k), got.At(i, j, k)
				require.True(t, w.IsFinite() && g.IsFinite(), "point %d char %s", i, chars.String(ch, want.G))
				assert.True(t, w.Overlaps(g), "point %d char %s: %s vs %s",
					i, chars.String(ch, want.G), w.Text(12), g.Text(12))
			}
		}
	}
}

// farTau maps τ0 away from the fundamental domain by τ ↦ -(τ + S)⁻¹.
func farTau(t *testing.T, tau0 *ball.Mat, prec uint) *ball.Mat {
	t.Helper()
	g := tau0.Rows
	s := sp2gz.NewMatrix(g, g)
	for i := 0; i < g; i++ {
		s.SetInt64(i, i, int64(1-2*(i&1)))
	}
	tr, err := sp2gz.Translation(s)
	require.NoError(t, err)
	tau, err := siegel.Act(sp2gz.J(g).Mul(tr), tau0, prec)
	require.NoError(t, err)
	return tau
}

func TestTheta3AtTwoI(t *testing.T) {
	tau := ball.MatFromComplex128([][]complex128{{2i}}, 53)
	res, err := EvalConstants(tau, Chars(0), 0, 53)
	require.NoError(t, err)

	v := res.At(0, 0, 0)
	want := ball.ComplexFromFloat64(1.0037348854877393, 0, 53).AddError(big.NewFloat(1e-15))
	assert.True(t, v.Overlaps(want), "%s", v.Text(20))
	assert.Equal(t, Naive, res.Strategy())
	assert.False(t, res.Reduced())
}

func TestDiagonalNaiveAgainstQuasiLinear(t *testing.T) {
	tau := ball.MatFromComplex128([][]complex128{{2i, 0}, {0, 3i}}, 256)
	low, err := EvalConstants(tau, All(), 0, 64, WithStrategy(Naive))
	require.NoError(t, err)
	high, err := EvalConstants(tau, All(), 0, 256, WithStrategy(QuasiLinear))
	require.NoError(t, err)
	assert.Equal(t, QuasiLinear, high.Strategy())
	require.Len(t, high.Chars(), 16)
	requireOverlap(t, low, high)

	// θ_{11,11}(0, diag τ) is a product of two vanishing genus one constants
	assert.True(t, high.Lookup(0, 0b1111, 0).ContainsZero())

	// odd characteristics vanish at z = 0
	for j, ch := range high.Chars() {
		if even, _ := chars.IsEven(ch, 2); !even {
			assert.True(t, high.At(0, j, 0).ContainsZero())
		}
	}
}

func TestQuasiLinearMatchesNaive(t *testing.T) {
	src := sample.MustNew("theta/agm")
	for g := 1; g <= 2; g++ {
		tau := ball.MatFromComplex128(src.Tau(g, 0.5), 160)
		zs := [][]*ball.Complex{
			ball.VecFromComplex128(src.Point(g, 0.4), 160),
			ball.ZeroVec(g, 160),
		}
		rec := prof.New()
		fast, err := Eval(tau, zs, All(), 0, 128, WithStrategy(QuasiLinear), WithRecorder(rec))
		require.NoError(t, err)
		assert.Equal(t, QuasiLinear, fast.Strategy())
		slow, err := Eval(tau, zs, All(), 0, 128, WithStrategy(Naive), WithReduction(false))
		require.NoError(t, err)
		requireOverlap(t, slow, fast)

		tot := rec.Totals()
		assert.Contains(t, tot, "agm")
		assert.NotContains(t, tot, "agm-failed")
		assert.Contains(t, tot, "reduce")
	}
}

func TestReductionIsUndone(t *testing.T) {
	src := sample.MustNew("theta/reduce")
	for g := 1; g <= 2; g++ {
		tau := farTau(t, ball.MatFromComplex128(src.Tau(g, 1), 128), 128)
		z := make([]complex128, g)
		for i := range z {
			z[i] = complex(0.4-0.3*float64(i), 0.8+0.2*float64(i))
		}
		zs := [][]*ball.Complex{ball.VecFromComplex128(z, 128)}

		rec := prof.New()
		red, err := Eval(tau, zs, All(), 0, 64, WithStrategy(Naive), WithRecorder(rec))
		require.NoError(t, err)
		assert.True(t, red.Reduced())
		assert.Contains(t, rec.Totals(), "undo")

		plain, err := Eval(tau, zs, All(), 0, 64, WithReduction(false))
		require.NoError(t, err)
		assert.False(t, plain.Reduced())
		requireOverlap(t, plain, red)
	}
}

func TestDerivativesSkipReduction(t *testing.T) {
	src := sample.MustNew("theta/deriv")
	const prec = 96
	tau := ball.MatFromComplex128(src.Tau(2, 0.5), prec)
	z := ball.VecFromComplex128(src.Point(2, 0.3), prec)
	cs := []chars.Char{0, 5, 9}

	res, err := Eval(tau, [][]*ball.Complex{z}, Chars(cs...), 2, prec, WithStrategy(QuasiLinear))
	require.NoError(t, err)
	assert.Equal(t, Naive, res.Strategy())
	assert.False(t, res.Reduced())
	assert.Equal(t, naive.Tuples(2, 2), res.Tuples())

	ref, err := naive.Eval(tau, [][]*ball.Complex{z}, cs, 2, prec)
	require.NoError(t, err)
	for j := range cs {
		for k := range res.Tuples() {
			assert.True(t, ref.At(0, j, k).Overlaps(res.At(0, j, k)), "char %d tuple %d", j, k)
		}
	}
}

func TestSelectors(t *testing.T) {
	tau := ball.MatFromComplex128([][]complex128{{1.5i, 0.25}, {0.25, 2i}}, 64)

	res, err := EvalConstants(tau, ZeroA(), 0, 64)
	require.NoError(t, err)
	require.Len(t, res.Chars(), 4)
	for _, ch := range res.Chars() {
		a, _ := chars.Split(ch, 2)
		assert.Zero(t, a)
	}
	assert.NotNil(t, res.Lookup(0, 3, 0))
	assert.Nil(t, res.Lookup(0, 4, 0))

	all, err := EvalConstants(tau, All(), 0, 64)
	require.NoError(t, err)
	for _, ch := range res.Chars() {
		assert.True(t, all.Lookup(0, ch, 0).Overlaps(res.Lookup(0, ch, 0)))
	}

	_, err = EvalConstants(tau, Chars(16), 0, 64)
	assert.ErrorIs(t, err, ErrDomain)
	_, err = EvalConstants(tau, Chars(), 0, 64)
	assert.ErrorIs(t, err, ErrDomain)
}

func TestDomainErrors(t *testing.T) {
	tau := ball.MatFromComplex128([][]complex128{{1i}}, 64)
	z := [][]*ball.Complex{ball.ZeroVec(1, 64)}

	_, err := Eval(nil, z, All(), 0, 64)
	assert.ErrorIs(t, err, ErrDomain)
	_, err = Eval(ball.NewMat(1, 2, 64), z, All(), 0, 64)
	assert.ErrorIs(t, err, ErrDomain)
	_, err = Eval(tau, [][]*ball.Complex{ball.ZeroVec(2, 64)}, All(), 0, 64)
	assert.ErrorIs(t, err, ErrDomain)
	_, err = Eval(tau, z, All(), -1, 64)
	assert.ErrorIs(t, err, ErrDomain)
	_, err = Eval(tau, z, All(), 0, 0)
	assert.ErrorIs(t, err, ErrDomain)
	_, err = Reduce(nil, 64)
	assert.ErrorIs(t, err, ErrDomain)
}

func TestRetryCap(t *testing.T) {
	// Im τ is indefinite, so no precision certifies it
	tau := ball.MatFromComplex128([][]complex128{{1i, 0}, {0, -1i}}, 64)
	core, logs := observer.New(zap.DebugLevel)

	_, err := EvalConstants(tau, All(), 0, 64, WithLogger(zap.New(core)), WithMaxPrecision(256))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInsufficientPrecision)
	assert.Equal(t, 2, logs.FilterMessage("theta retry").Len())

	_, err = Reduce(tau, 64, WithMaxPrecision(64))
	assert.ErrorIs(t, err, ErrInsufficientPrecision)
}

func TestFallbackIsTimedSeparately(t *testing.T) {
	// Im τ = [[2^50, 2^50-1], [2^50-1, 2^50]] cannot be certified with the
	// references capped at 20 + Guard bits
	const prec = 256
	n := new(big.Int).Lsh(big.NewInt(1), 50)
	m := new(big.Int).Sub(n, big.NewInt(1))
	entry := func(v *big.Int) *ball.Complex { return ball.NewComplex(ball.Zero(prec), ball.FromBigInt(v, prec)) }
	tau := ball.NewMat(2, 2, prec)
	tau.Set(0, 0, entry(n))
	tau.Set(1, 1, entry(n))
	tau.Set(0, 1, entry(m))
	tau.Set(1, 0, entry(m))

	tu := DefaultTuning()
	tu.LowPrec = 32
	core, logs := observer.New(zap.DebugLevel)
	rec := prof.New()
	res, err := EvalConstants(tau, All(), 0, 20,
		WithTuning(tu), WithStrategy(QuasiLinear), WithReduction(false),
		WithRecorder(rec), WithLogger(zap.New(core)))
	require.NoError(t, err)
	assert.Equal(t, Naive, res.Strategy())
	assert.Equal(t, 1, logs.FilterMessage("theta fallback to naive summation").Len())

	tot := rec.Totals()
	assert.Contains(t, tot, "agm-failed")
	assert.NotContains(t, tot, "agm")
	assert.Contains(t, tot, "naive")
}

func TestEvalLogs(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	tau := ball.MatFromComplex128([][]complex128{{0.3 + 0.4i}}, 64)
	res, err := EvalConstants(tau, All(), 0, 64, WithLogger(zap.New(core)))
	require.NoError(t, err)
	assert.True(t, res.Reduced())
	assert.Zero(t, res.Retries())

	entries := logs.FilterMessage("theta eval").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "naive", fields["strategy"])
	assert.Equal(t, true, fields["reduced"])
	assert.Equal(t, 1, logs.FilterMessage("siegel reduction").Len())
}

func TestReduce(t *testing.T) {
	src := sample.MustNew("theta/reduce-api")
	tau := farTau(t, ball.MatFromComplex128(src.Tau(2, 1), 128), 128)
	red, err := Reduce(tau, 128)
	require.NoError(t, err)
	assert.True(t, sp2gz.IsSymplectic(red.M))
	assert.False(t, red.M.IsIdentity())

	img, err := siegel.Act(red.M, tau, 128)
	require.NoError(t, err)
	assert.True(t, img.Overlaps(red.Tau))
}

func TestLoadTuning(t *testing.T) {
	tu, err := LoadTuning(strings.NewReader("agm_cutover: 100\nguard_bits: 48\nmax_prec_factor: 4\n"))
	require.NoError(t, err)
	want := DefaultTuning()
	want.Cutover = 100
	want.Guard = 48
	want.MaxPrecFactor = 4
	assert.Equal(t, want, tu)

	tu, err = LoadTuning(strings.NewReader(""))
	require.NoError(t, err)
	assert.Equal(t, DefaultTuning(), tu)

	_, err = LoadTuning(strings.NewReader("cutover: 100\n"))
	assert.Error(t, err)
	_, err = LoadTuning(strings.NewReader("reduction_eps: 2\n"))
	assert.ErrorIs(t, err, ErrDomain)
}

func TestTuningCutover(t *testing.T) {
	tu := DefaultTuning()
	tu.Cutover = 32
	src := sample.MustNew("theta/cutover")
	tau := ball.MatFromComplex128(src.Tau(1, 0.5), 96)
	z := [][]*ball.Complex{ball.VecFromComplex128(src.Point(1, 0.3), 96)}

	rec := prof.New()
	fast, err := Eval(tau, z, All(), 0, 64, WithTuning(tu), WithRecorder(rec))
	require.NoError(t, err)
	assert.Equal(t, QuasiLinear, fast.Strategy())
	assert.Contains(t, rec.Totals(), "agm")

	slow, err := Eval(tau, z, All(), 0, 64)
	require.NoError(t, err)
	assert.Equal(t, Naive, slow.Strategy())
	requireOverlap(t, slow, fast)
}

func TestConcurrentEval(t *testing.T) {
	defer goleak.VerifyNone(t)
	src := sample.MustNew("theta/concurrent")
	taus := make([]*ball.Mat, 4)
	for i := range taus {
		taus[i] = ball.MatFromComplex128(src.Tau(2, 0.5), 80)
	}
	out := make([]*Result, len(taus))
	eg, _ := errgroup.WithContext(context.Background())
	for i := range taus {
		i := i
		eg.Go(func() error {
			var err error
			out[i], err = EvalConstants(taus[i], All(), 0, 64)
			return err
		})
	}
	require.NoError(t, eg.Wait())
	for i, tau := range taus {
		ref, err := EvalConstants(tau, All(), 0, 64, WithReduction(false))
		require.NoError(t, err)
		requireOverlap(t, ref, out[i])
	}
}

func TestRetryableErrorsAreTyped(t *testing.T) {
	tau := ball.MatFromComplex128([][]complex128{{-1i}}, 64)
	_, err := EvalConstants(tau, All(), 0, 64, WithReduction(false), WithMaxPrecision(64))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInsufficientPrecision))
}
