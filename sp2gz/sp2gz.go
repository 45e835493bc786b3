package sp2gz

import (
	"fmt"

	"riemann-theta/errs"
)

// Genus returns g for a 2g×2g matrix.
func Genus(m *Matrix) int { return m.Rows / 2 }

// Identity returns the 2g×2g identity.
func Identity(g int) *Matrix { return Eye(2 * g) }

// FromBlocks assembles (A, B; C, D) from four g×g blocks.
func FromBlocks(a, b, c, d *Matrix) *Matrix {
	g := a.Rows
	m := NewMatrix(2*g, 2*g)
	for i := 0; i < g; i++ {
		for j := 0; j < g; j++ {
			m.At(i, j).Set(a.At(i, j))
			m.At(i, j+g).Set(b.At(i, j))
			m.At(i+g, j).Set(c.At(i, j))
			m.At(i+g, j+g).Set(d.At(i, j))
		}
	}
	return m
}

// Blocks splits m into (A, B, C, D).
func Blocks(m *Matrix) (a, b, c, d *Matrix) {
	g := Genus(m)
	return m.Submatrix(0, g, 0, g), m.Submatrix(0, g, g, 2*g),
		m.Submatrix(g, 2*g, 0, g), m.Submatrix(g, 2*g, g, 2*g)
}

// J returns (0, I; -I, 0).
func J(g int) *Matrix {
	m := NewMatrix(2*g, 2*g)
	for i := 0; i < g; i++ {
		m.SetInt64(i, i+g, 1)
		m.SetInt64(i+g, i, -1)
	}
	return m
}

// Translation returns (I, S; 0, I) for a symmetric integer S.
func Translation(s *Matrix) (*Matrix, error) {
	if !s.IsSymmetric() {
		return nil, fmt.Errorf("sp2gz: translation by a non-symmetric matrix: %w", errs.ErrDomain)
	}
	g := s.Rows
	return FromBlocks(Eye(g), s, NewMatrix(g, g), Eye(g)), nil
}

// Block returns diag(U, U⁻ᵗ) for a unimodular U.
func Block(u *Matrix) (*Matrix, error) {
	ui, err := u.Inverse()
	if err != nil {
		return nil, err
	}
	return BlockPair(u, ui), nil
}

// BlockPair returns diag(U, U⁻ᵗ) given U and its inverse.
func BlockPair(u, uinv *Matrix) *Matrix {
	g := u.Rows
	return FromBlocks(u, NewMatrix(g, g), NewMatrix(g, g), uinv.Transpose())
}

// PartialJ returns the embedding of J on the coordinates in subset:
// (I - E, -E; E, I - E) with E the diagonal indicator of subset.
func PartialJ(g int, subset []int) (*Matrix, error) {
	e := make([]bool, g)
	for _, i := range subset {
		if i < 0 || i >= g || e[i] {
			return nil, fmt.Errorf("sp2gz: invalid subset %v for genus %d: %w", subset, g, errs.ErrDomain)
		}
		e[i] = true
	}
	m := NewMatrix(2*g, 2*g)
	for i := 0; i < g; i++ {
		if e[i] {
			m.SetInt64(i, i+g, -1)
			m.SetInt64(i+g, i, 1)
		} else {
			m.SetInt64(i, i, 1)
			m.SetInt64(i+g, i+g, 1)
		}
	}
	return m, nil
}

// IsSymplectic reports whether mᵗ J m = J.
func IsSymplectic(m *Matrix) bool {
	if m.Rows != m.Cols || m.Rows%2 != 0 {
		return false
	}
	j := J(Genus(m))
	return m.Transpose().Mul(j).Mul(m).Equal(j)
}

// Inverse returns the inverse of a symplectic matrix, -J mᵗ J =
// (Dᵗ, -Bᵗ; -Cᵗ, Aᵗ).
func Inverse(m *Matrix) *Matrix {
	a, b, c, d := Blocks(m)
	return FromBlocks(d.Transpose(), b.Transpose().Neg(), c.Transpose().Neg(), a.Transpose())
}

// Check returns ErrDomain unless m is a symplectic 2g×2g matrix.
func Check(m *Matrix, g int) error {
	if m.Rows != 2*g || m.Cols != 2*g {
		return fmt.Errorf("sp2gz: expected %dx%d matrix, got %dx%d: %w", 2*g, 2*g, m.Rows, m.Cols, errs.ErrDomain)
	}
	if !IsSymplectic(m) {
		return fmt.Errorf("sp2gz: matrix is not symplectic: %w", errs.ErrDomain)
	}
	return nil
}
