package newton

import (
	"errors"
	"math"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"riemann-theta/ball"
	"riemann-theta/errs"
	"riemann-theta/internal/sample"
)

func TestLevelCount(t *testing.T) {
	gamma := []float64{math.Sqrt(math.Pi), 3}
	// ceil(log2(1000·ln2·0.25/π)) = ceil(log2(55.16)) = 6
	assert.Equal(t, 6, LevelCount(gamma, 1000, Params{}))
	assert.Equal(t, 1, LevelCount([]float64{10}, 64, Params{}))
	assert.Equal(t, 3, LevelCount([]float64{0.01}, 1000, Params{MaxLevels: 3}))
	assert.Equal(t, 1, LevelCount(nil, 64, Params{}))
}

func TestContextLevels(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	src := sample.MustNew("newton/context")
	const prec = 256
	tau := ball.MatFromComplex128(src.Tau(2, 0.6), prec)
	zs := [][]*ball.Complex{ball.VecFromComplex128(src.Point(2, 0.3), prec), ball.ZeroVec(2, prec)}
	ctx, err := New(tau, zs, prec, Params{Log: zap.New(core)})
	require.NoError(t, err)

	require.Len(t, ctx.Levels, ctx.N+1)
	assert.GreaterOrEqual(t, ctx.N, 1)
	assert.Equal(t, uint(prec+DefaultGuard), ctx.Levels[0].Prec)
	for k, l := range ctx.Levels {
		assert.Equal(t, k, l.K)
		require.NotNil(t, l.S)
		if k > 0 {
			assert.GreaterOrEqual(t, l.Prec, ctx.Levels[k-1].Prec)
			assert.Len(t, l.Const, 4)
			assert.Len(t, l.Refs[0], 4)
		}
		if k < ctx.N {
			assert.True(t, l.Good(), "level %d", k)
			assert.Positive(t, l.Minf.Sign())
			assert.False(t, l.InvDer.IsInf())
		}
	}
	// odd characteristics at z = 0 carry no reference
	l0 := ctx.Levels[0]
	assert.Len(t, l0.Refs[1], 16)
	assert.Nil(t, l0.Refs[1][0b0101])
	assert.NotNil(t, l0.Refs[0][0b0101])
	assert.Equal(t, 1, logs.FilterMessage("newton context").Len())

	before, steps := l0.RefPrec, ctx.BadSteps()
	good, err := ctx.Refine(0)
	require.NoError(t, err)
	assert.True(t, good)
	assert.Equal(t, 2*before, l0.RefPrec)
	assert.Equal(t, steps+1, ctx.BadSteps())

	_, err = ctx.Refine(ctx.N + 1)
	assert.True(t, errors.Is(err, errs.ErrDomain))

	ctx.Release()
	assert.Nil(t, ctx.Levels)
}

func TestVanishingConstantAtLevelZero(t *testing.T) {
	// θ_{11,11}(0, diag(2i, 3i)) = 0 is left out of the level 0 bounds
	const prec = 128
	tau := ball.MatFromComplex128([][]complex128{{2i, 0}, {0, 3i}}, prec)
	ctx, err := New(tau, [][]*ball.Complex{ball.ZeroVec(2, prec)}, prec, Params{})
	require.NoError(t, err)
	defer ctx.Release()

	l0 := ctx.Levels[0]
	assert.True(t, l0.Good())
	assert.True(t, l0.Refs[0][0b1111].ContainsZero())
	assert.Positive(t, l0.Minf.Sign())
	for k := 1; k < ctx.N; k++ {
		assert.True(t, ctx.Levels[k].Good(), "level %d", k)
	}
}

// wideTau returns i·[[2^50, 2^50-1], [2^50-1, 2^50]], whose Cholesky pivot
// cancels about 50 bits.
func wideTau(prec uint) *ball.Mat {
	n := new(big.Int).Lsh(big.NewInt(1), 50)
	m := new(big.Int).Sub(n, big.NewInt(1))
	entry := func(v *big.Int) *ball.Complex { return ball.NewComplex(ball.Zero(prec), ball.FromBigInt(v, prec)) }
	tau := ball.NewMat(2, 2, prec)
	tau.Set(0, 0, entry(n))
	tau.Set(1, 1, entry(n))
	tau.Set(0, 1, entry(m))
	tau.Set(1, 0, entry(m))
	return tau
}

func TestReferencePrecisionEscalates(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	tau := wideTau(256)
	zs := [][]*ball.Complex{ball.ZeroVec(2, 256)}

	ctx, err := New(tau, zs, 256, Params{LowPrec: 32, Log: zap.New(core)})
	require.NoError(t, err)
	assert.GreaterOrEqual(t, ctx.Levels[0].RefPrec, uint(64))
	assert.Positive(t, logs.FilterMessage("newton: raising reference precision").Len())
	ctx.Release()

	// the references may not exceed 20 + Guard bits
	_, err = New(tau, zs, 20, Params{LowPrec: 32})
	assert.True(t, errors.Is(err, errs.ErrNotConverged), "got %v", err)
	assert.True(t, errors.Is(err, errs.ErrInsufficientPrecision))
}

func TestBadLevelsAreRefined(t *testing.T) {
	src := sample.MustNew("newton/bad-levels")
	const prec = 192
	for i := 0; i < 40; i++ {
		tau := ball.MatFromComplex128(src.Tau(2, 0.6), prec)
		zs := [][]*ball.Complex{ball.VecFromComplex128(src.Point(2, 0.3), prec)}
		ctx, err := New(tau, zs, prec, Params{LowPrec: 32})
		if err != nil || ctx.BadSteps() == 0 {
			continue
		}
		for k := 0; k < ctx.N; k++ {
			l := ctx.Levels[k]
			assert.True(t, l.Good(), "level %d", k)
			if l.BadSteps > 0 {
				assert.Equal(t, uint(32)<<l.BadSteps, l.RefPrec, "level %d", k)
			}
		}
		ctx.Release()
		return
	}
	t.Fatal("no sample needed a refinement at 32 bits")
}

func TestDomain(t *testing.T) {
	tau := ball.MatFromComplex128([][]complex128{{1i}}, 64)
	_, err := New(tau, [][]*ball.Complex{ball.ZeroVec(2, 64)}, 64, Params{})
	assert.True(t, errors.Is(err, errs.ErrDomain))
	_, err = New(ball.NewMat(1, 2, 64), nil, 64, Params{})
	assert.True(t, errors.Is(err, errs.ErrDomain))
}
