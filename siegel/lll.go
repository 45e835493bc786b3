package siegel

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

const lllDelta = 0.99

// lll reduces the positive definite Gram matrix y. It returns the basis B
// (columns are the reduced vectors) and its inverse, both unimodular, so
// that Bᵗ·y·B is LLL reduced.
func lll(y *mat.SymDense) (b, binv [][]int64) {
	g, _ := y.Dims()
	b = identity(g)
	binv = identity(g)
	if g < 2 {
		return b, binv
	}
	mu, bb := gramSchmidt(gram(y, b))
	k := 1
	for iter := 0; k < g && iter < 1000*g*g; iter++ {
		for j := k - 1; j >= 0; j-- {
			q := math.Round(mu[k][j])
			if q == 0 {
				continue
			}
			qi := int64(q)
			// b_k -= q·b_j, binv row j += q·(binv row k)
			for r := 0; r < g; r++ {
				b[r][k] -= qi * b[r][j]
				binv[j][r] += qi * binv[k][r]
			}
			mu, bb = gramSchmidt(gram(y, b))
		}
		if bb[k] >= (lllDelta-mu[k][k-1]*mu[k][k-1])*bb[k-1] {
			k++
			continue
		}
		for r := 0; r < g; r++ {
			b[r][k], b[r][k-1] = b[r][k-1], b[r][k]
		}
		binv[k], binv[k-1] = binv[k-1], binv[k]
		mu, bb = gramSchmidt(gram(y, b))
		if k > 1 {
			k--
		}
	}
	return b, binv
}

func identity(g int) [][]int64 {
	m := make([][]int64, g)
	for i := range m {
		m[i] = make([]int64, g)
		m[i][i] = 1
	}
	return m
}

// gram returns Bᵗ·y·B.
func gram(y *mat.SymDense, b [][]int64) *mat.Dense {
	g := len(b)
	bd := mat.NewDense(g, g, nil)
	for i := range b {
		for j := range b[i] {
			bd.Set(i, j, float64(b[i][j]))
		}
	}
	var yb, out mat.Dense
	yb.Mul(y, bd)
	out.Mul(bd.T(), &yb)
	return &out
}

// gramSchmidt returns the coefficients μ and the squared norms of the
// Gram-Schmidt vectors of the basis with Gram matrix gm.
func gramSchmidt(gm *mat.Dense) (mu [][]float64, bb []float64) {
	g, _ := gm.Dims()
	mu = make([][]float64, g)
	bb = make([]float64, g)
	for i := 0; i < g; i++ {
		mu[i] = make([]float64, g)
		for j := 0; j < i; j++ {
			s := gm.At(i, j)
			for l := 0; l < j; l++ {
				s -= mu[j][l] * mu[i][l] * bb[l]
			}
			mu[i][j] = s / bb[j]
		}
		s := gm.At(i, i)
		for l := 0; l < i; l++ {
			s -= mu[i][l] * mu[i][l] * bb[l]
		}
		bb[i] = s
		mu[i][i] = 1
	}
	return mu, bb
}
