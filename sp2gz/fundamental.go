package sp2gz

// Generator is the symplectic matrix J_S·T(D0): a translation of τ by the
// symmetric integer matrix D0, supported on S×S, followed by the partial
// inversion on the coordinates in S. Its cocycle is Cτ + D = E(τ + D0) + I - E,
// so |det(Cτ + D)| = |det((τ + D0)_S)|.
type Generator struct {
	S  []int
	D0 *Matrix
}

// Matrix returns the 2g×2g matrix of the generator.
func (gen Generator) Matrix(g int) *Matrix {
	j, err := PartialJ(g, gen.S)
	if err != nil {
		panic(err)
	}
	t, err := Translation(gen.D0)
	if err != nil {
		panic(err)
	}
	return j.Mul(t)
}

func singleton(g, i int, d int64) Generator {
	d0 := NewMatrix(g, g)
	d0.SetInt64(i, i, d)
	return Generator{S: []int{i}, D0: d0}
}

func pair(g, i, j int, a, b, c int64) Generator {
	d0 := NewMatrix(g, g)
	d0.SetInt64(i, i, a)
	d0.SetInt64(i, j, b)
	d0.SetInt64(j, i, b)
	d0.SetInt64(j, j, c)
	return Generator{S: []int{i, j}, D0: d0}
}

// pairGenerators lists the 19 genus-two generators embedded on coordinates
// i < j: partial inversions on {i} and {j} after a diagonal shift in
// {-1, 0, 1}, the full inversion on {i, j} after diag(d1, d2), and the
// four off-diagonal shifts.
func pairGenerators(g, i, j int) []Generator {
	out := make([]Generator, 0, 19)
	for _, k := range []int{i, j} {
		for d := int64(-1); d <= 1; d++ {
			out = append(out, singleton(g, k, d))
		}
	}
	for d1 := int64(-1); d1 <= 1; d1++ {
		for d2 := int64(-1); d2 <= 1; d2++ {
			out = append(out, pair(g, i, j, d1, 0, d2))
		}
	}
	out = append(out,
		pair(g, i, j, 0, 1, 0),
		pair(g, i, j, 0, -1, 0),
		pair(g, i, j, 1, -1, 1),
		pair(g, i, j, -1, 1, -1),
	)
	return out
}

// FundamentalGenerators returns the generators tested by the reduction loop:
// J for g = 1, the 19 genus-two generators for g = 2, and for g >= 3 the
// genus-two generators on every pair of coordinates followed by the full
// inversion after every 0/1 diagonal shift.
func FundamentalGenerators(g int) []Generator {
	if g == 1 {
		return []Generator{singleton(1, 0, 0)}
	}
	var out []Generator
	for i := 0; i < g; i++ {
		for j := i + 1; j < g; j++ {
			out = append(out, pairGenerators(g, i, j)...)
		}
	}
	if g == 2 {
		return out
	}
	all := make([]int, g)
	for i := range all {
		all[i] = i
	}
	for mask := 0; mask < 1<<g; mask++ {
		d0 := NewMatrix(g, g)
		for i := 0; i < g; i++ {
			d0.SetInt64(i, i, int64(mask>>i&1))
		}
		out = append(out, Generator{S: all, D0: d0})
	}
	return out
}

// Fundamental returns the matrices of FundamentalGenerators(g).
func Fundamental(g int) []*Matrix {
	gens := FundamentalGenerators(g)
	out := make([]*Matrix, len(gens))
	for i, gen := range gens {
		out[i] = gen.Matrix(g)
	}
	return out
}

// FundamentalCount returns len(Fundamental(g)).
func FundamentalCount(g int) int {
	switch g {
	case 1:
		return 1
	case 2:
		return 19
	}
	return 19*g*(g-1)/2 + 1<<g
}
