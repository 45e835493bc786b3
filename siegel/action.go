package siegel

import (
	"fmt"

	"riemann-theta/ball"
	"riemann-theta/chars"
	"riemann-theta/errs"
)

// Action is a word applied to a period matrix and a batch of points. For
// every characteristic χ and point i,
//
//	θ_χ(z'_i, τ') = Factor(i, χ)·θ_{Source(χ)}(z_i, τ)
//
// where (z'_i, τ') is the image of (z_i, τ) under the word.
type Action struct {
	G    int
	Word Word
	Tau  *ball.Mat // image of τ
	Prec uint

	zs [][]*ball.Complex
	// per step and point, the characteristic independent part of the
	// factor; nil when it is 1
	scal [][]*ball.Complex
}

// Apply carries τ and the points zs along the word.
func (w Word) Apply(tau *ball.Mat, zs [][]*ball.Complex, prec uint) (*Action, error) {
	if tau == nil || !tau.IsSquare() {
		return nil, fmt.Errorf("siegel: apply: tau must be square: %w", errs.ErrDomain)
	}
	g := tau.Rows
	for i, z := range zs {
		if len(z) != g {
			return nil, fmt.Errorf("siegel: apply: point %d has dimension %d, want %d: %w", i, len(z), g, errs.ErrDomain)
		}
	}
	act := &Action{G: g, Word: w, Prec: prec, scal: make([][]*ball.Complex, len(w))}
	cur := tau.Round(prec)
	pts := make([][]*ball.Complex, len(zs))
	for i, z := range zs {
		pts[i] = ball.CopyVec(z)
	}
	for k, s := range w {
		var err error
		cur, pts, act.scal[k], err = s.apply(cur, pts, prec)
		if err != nil {
			return nil, fmt.Errorf("siegel: apply step %d (%s): %w", k, s, err)
		}
	}
	act.Tau = cur
	act.zs = pts
	return act, nil
}

// Z returns the image of point i.
func (a *Action) Z(i int) []*ball.Complex { return a.zs[i] }

// Source returns the characteristic at the original arguments.
func (a *Action) Source(ch chars.Char) chars.Char { return a.Word.Source(ch, a.G) }

// Target returns the characteristic χ with Source(χ) = ch.
func (a *Action) Target(ch chars.Char) chars.Char { return a.Word.Target(ch, a.G) }

// Factor returns the factor relating θ_χ at the image of point i to
// θ_{Source(χ)} at point i.
func (a *Action) Factor(i int, ch chars.Char) *ball.Complex {
	f := ball.ComplexOne(a.Prec)
	k := 0
	for j := len(a.Word) - 1; j >= 0; j-- {
		var e int
		ch, e = a.Word[j].source(ch, a.G)
		k += e
		if a.scal[j] != nil {
			f = f.Mul(a.scal[j][i], a.Prec)
		}
	}
	return f.MulRootOfUnity(k, a.Prec)
}

// apply maps (τ, zs) through one step and returns the characteristic
// independent factor per point.
func (s Step) apply(tau *ball.Mat, zs [][]*ball.Complex, prec uint) (*ball.Mat, [][]*ball.Complex, []*ball.Complex, error) {
	g := tau.Rows
	switch s.Kind {
	case Translate:
		return tau.Add(intMat(s.S, prec), prec), zs, nil, nil
	case Block:
		u := intMat(s.U, prec)
		nt := u.Mul(tau, prec).Mul(u.Transpose(), prec)
		out := make([][]*ball.Complex, len(zs))
		for i, z := range zs {
			out[i] = u.MulVec(z, prec)
		}
		return nt, out, nil, nil
	case Invert:
		return invert(tau, zs, s.Subset, g, prec)
	}
	return nil, nil, nil, fmt.Errorf("siegel: unknown step kind %d: %w", s.Kind, errs.ErrDomain)
}

// invert applies J_S. With τ split into blocks τ1 = τ_SS, τ12, τ21, τ2:
//
//	τ' = (-τ1⁻¹, τ1⁻¹τ12; τ21τ1⁻¹, τ2 - τ21τ1⁻¹τ12)
//	z' = (τ1⁻¹z1, z2 - τ21τ1⁻¹z1)
//
// and the factor is sqrt(det(-iτ1))·exp(πi z1ᵗτ1⁻¹z1).
func invert(tau *ball.Mat, zs [][]*ball.Complex, subset []int, g int, prec uint) (*ball.Mat, [][]*ball.Complex, []*ball.Complex, error) {
	in := make([]bool, g)
	for _, i := range subset {
		in[i] = true
	}
	var rest []int
	for i := 0; i < g; i++ {
		if !in[i] {
			rest = append(rest, i)
		}
	}
	t1 := tau.Submatrix(subset, subset)
	inv, ok := t1.Inverse(prec)
	if !ok {
		return nil, nil, nil, fmt.Errorf("siegel: tau_S not certified invertible: %w", errs.ErrInsufficientPrecision)
	}
	sq, err := sqrtDetNegI(t1, prec)
	if err != nil {
		return nil, nil, nil, err
	}
	out := ball.NewMat(g, g, prec)
	put := func(rows, cols []int, m *ball.Mat) {
		for i, r := range rows {
			for j, c := range cols {
				out.Set(r, c, m.At(i, j))
			}
		}
	}
	put(subset, subset, inv.Neg())
	if len(rest) > 0 {
		t12 := tau.Submatrix(subset, rest)
		t21 := tau.Submatrix(rest, subset)
		t2 := tau.Submatrix(rest, rest)
		t21inv := t21.Mul(inv, prec)
		put(subset, rest, inv.Mul(t12, prec))
		put(rest, subset, t21inv)
		put(rest, rest, t2.Sub(t21inv.Mul(t12, prec), prec))
	}

	pi := ball.Pi(prec)
	nz := make([][]*ball.Complex, len(zs))
	scal := make([]*ball.Complex, len(zs))
	for i, z := range zs {
		z1 := make([]*ball.Complex, len(subset))
		for j, c := range subset {
			z1[j] = z[c]
		}
		w := inv.MulVec(z1, prec)
		q := ball.ComplexZero(prec)
		for j := range z1 {
			q = q.Add(z1[j].Mul(w[j], prec), prec)
		}
		// exp(πi q)
		e := q.MulReal(pi, prec).MulI().Exp(prec)
		scal[i] = sq.Mul(e, prec)

		p := make([]*ball.Complex, g)
		for j, c := range subset {
			p[c] = w[j]
		}
		if len(rest) > 0 {
			t21 := tau.Submatrix(rest, subset)
			corr := t21.MulVec(w, prec)
			for j, c := range rest {
				p[c] = z[c].Sub(corr[j], prec)
			}
		}
		nz[i] = p
	}
	return out, nz, scal, nil
}

// sqrtDetNegI returns the branch of sqrt(det(-iτ)) that is positive on
// purely imaginary τ: the product of principal roots of the symmetric
// pivots of -iτ, whose real parts are positive.
func sqrtDetNegI(t *ball.Mat, prec uint) (*ball.Complex, error) {
	m := t.Scale(ball.ComplexFromFloat64(0, -1, prec), prec)
	piv, ok := m.SymPivots(prec)
	if !ok {
		return nil, fmt.Errorf("siegel: pivots of -i*tau_S not certified: %w", errs.ErrInsufficientPrecision)
	}
	acc := ball.ComplexOne(prec)
	for _, d := range piv {
		r, ok := d.PrincipalSqrt(prec)
		if !ok {
			return nil, fmt.Errorf("siegel: pivot near the branch cut: %w", errs.ErrInsufficientPrecision)
		}
		acc = acc.Mul(r, prec)
	}
	return acc, nil
}
