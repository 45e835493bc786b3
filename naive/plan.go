package naive

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

const ln2 = math.Ln2

// plan holds float64 data used only to choose radii and precisions. Nothing
// in it affects the certified radius of a result.
type plan struct {
	g     int
	l     mat.TriDense // lower Cholesky factor of mid(πY)
	gamma []float64
}

func newPlan(piY []float64, g int) (*plan, bool) {
	var ch mat.Cholesky
	if !ch.Factorize(mat.NewSymDense(g, piY)) {
		return nil, false
	}
	p := &plan{g: g, gamma: make([]float64, g)}
	ch.LTo(&p.l)
	for i := 0; i < g; i++ {
		p.gamma[i] = p.l.At(i, i)
	}
	return p, true
}

// dist2 returns ‖Lᵗw‖².
func (p *plan) dist2(w []float64) float64 {
	var s float64
	for i := 0; i < p.g; i++ {
		var t float64
		for j := i; j < p.g; j++ {
			t += p.l.At(j, i) * w[j]
		}
		s += t * t
	}
	return s
}

// tailLogConst returns the log of the factor 2^{2g+2} ∏(1 + sqrt(2π)/γ_j).
func tailLogConst(gamma []float64) float64 {
	c := float64(2*len(gamma)+2) * ln2
	for _, x := range gamma {
		c += math.Log1p(math.Sqrt(2*math.Pi) / x)
	}
	return c
}

// derivLogConst returns the log of ord!·C(ord+g, g)·2^ord / r^ord.
func derivLogConst(g, ord int, r float64) float64 {
	if ord == 0 {
		return 0
	}
	lf, _ := math.Lgamma(float64(ord + 1))
	return lf + math.Log(float64(TupleCount(g, ord))) + float64(ord)*ln2 - float64(ord)*math.Log(r)
}

// chooseRadius returns R, a multiple of 1/16, such that the tail beyond
// R - delta stays below 2^-prec·e^u, with extra the log of any factor
// multiplying the bound.
func chooseRadius(g int, prec uint, gamma []float64, extra, delta float64) float64 {
	target := float64(prec)*ln2 + tailLogConst(gamma) + extra
	if target < 4 {
		target = 4
	}
	s := target
	for i := 0; i < 8; i++ {
		s = target + float64(g-1)/2*math.Log(s)
	}
	r := math.Sqrt(s) + delta
	if r < 2+delta {
		r = 2 + delta
	}
	return math.Ceil(r*16) / 16
}

// pointPrec is the working precision of a term at distance dist from the
// centre of an ellipsoid of radius maxdist.
func pointPrec(prec uint, dist, maxdist float64, ord int, coord float64) uint {
	f := dist / (maxdist + 2)
	p := math.Ceil(float64(prec) - f*f*float64(prec) + float64(ord)*math.Log2(1+coord))
	if p < MinPrec {
		return MinPrec
	}
	return uint(p)
}
