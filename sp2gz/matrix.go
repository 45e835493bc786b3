package sp2gz

import (
	"fmt"
	"math/big"
	"strings"

	"riemann-theta/errs"
)

// Matrix is a dense row-major matrix of integers.
type Matrix struct {
	Rows, Cols int
	Data       []*big.Int
}

// NewMatrix returns the r×c zero matrix.
func NewMatrix(r, c int) *Matrix {
	m := &Matrix{Rows: r, Cols: c, Data: make([]*big.Int, r*c)}
	for i := range m.Data {
		m.Data[i] = new(big.Int)
	}
	return m
}

// Eye returns the n×n identity.
func Eye(n int) *Matrix {
	m := NewMatrix(n, n)
	for i := 0; i < n; i++ {
		m.Data[i*n+i].SetInt64(1)
	}
	return m
}

// FromInt64 builds a matrix from rows of int64.
func FromInt64(rows [][]int64) *Matrix {
	r := len(rows)
	c := 0
	if r > 0 {
		c = len(rows[0])
	}
	m := NewMatrix(r, c)
	for i, row := range rows {
		for j, v := range row {
			m.Data[i*c+j].SetInt64(v)
		}
	}
	return m
}

// At returns entry (i, j). The result aliases the matrix.
func (m *Matrix) At(i, j int) *big.Int { return m.Data[i*m.Cols+j] }

// Int64 returns entry (i, j) as an int64.
func (m *Matrix) Int64(i, j int) int64 { return m.At(i, j).Int64() }

// Set stores a copy of v at (i, j).
func (m *Matrix) Set(i, j int, v *big.Int) { m.Data[i*m.Cols+j] = new(big.Int).Set(v) }

// SetInt64 stores v at (i, j).
func (m *Matrix) SetInt64(i, j int, v int64) { m.Data[i*m.Cols+j] = big.NewInt(v) }

// Copy returns a deep copy.
func (m *Matrix) Copy() *Matrix {
	out := &Matrix{Rows: m.Rows, Cols: m.Cols, Data: make([]*big.Int, len(m.Data))}
	for i, v := range m.Data {
		out.Data[i] = new(big.Int).Set(v)
	}
	return out
}

// Equal reports whether m and b hold the same integers.
func (m *Matrix) Equal(b *Matrix) bool {
	if m.Rows != b.Rows || m.Cols != b.Cols {
		return false
	}
	for i := range m.Data {
		if m.Data[i].Cmp(b.Data[i]) != 0 {
			return false
		}
	}
	return true
}

// IsIdentity reports whether m is a square identity matrix.
func (m *Matrix) IsIdentity() bool {
	return m.Rows == m.Cols && m.Equal(Eye(m.Rows))
}

// IsZero reports whether every entry is zero.
func (m *Matrix) IsZero() bool {
	for _, v := range m.Data {
		if v.Sign() != 0 {
			return false
		}
	}
	return true
}

// IsSymmetric reports whether m = mᵗ.
func (m *Matrix) IsSymmetric() bool {
	if m.Rows != m.Cols {
		return false
	}
	for i := 0; i < m.Rows; i++ {
		for j := 0; j < i; j++ {
			if m.At(i, j).Cmp(m.At(j, i)) != 0 {
				return false
			}
		}
	}
	return true
}

// Mul returns m·b.
func (m *Matrix) Mul(b *Matrix) *Matrix {
	out := NewMatrix(m.Rows, b.Cols)
	t := new(big.Int)
	for i := 0; i < m.Rows; i++ {
		for j := 0; j < b.Cols; j++ {
			acc := out.At(i, j)
			for k := 0; k < m.Cols; k++ {
				acc.Add(acc, t.Mul(m.At(i, k), b.At(k, j)))
			}
		}
	}
	return out
}

// Add returns m + b.
func (m *Matrix) Add(b *Matrix) *Matrix {
	out := NewMatrix(m.Rows, m.Cols)
	for i := range m.Data {
		out.Data[i].Add(m.Data[i], b.Data[i])
	}
	return out
}

// Neg returns -m.
func (m *Matrix) Neg() *Matrix {
	out := NewMatrix(m.Rows, m.Cols)
	for i := range m.Data {
		out.Data[i].Neg(m.Data[i])
	}
	return out
}

// Transpose returns mᵗ.
func (m *Matrix) Transpose() *Matrix {
	out := NewMatrix(m.Cols, m.Rows)
	for i := 0; i < m.Rows; i++ {
		for j := 0; j < m.Cols; j++ {
			out.At(j, i).Set(m.At(i, j))
		}
	}
	return out
}

// MulVec returns m·v for a vector of integers.
func (m *Matrix) MulVec(v []*big.Int) []*big.Int {
	out := make([]*big.Int, m.Rows)
	t := new(big.Int)
	for i := 0; i < m.Rows; i++ {
		acc := new(big.Int)
		for k := 0; k < m.Cols; k++ {
			acc.Add(acc, t.Mul(m.At(i, k), v[k]))
		}
		out[i] = acc
	}
	return out
}

// Submatrix returns rows [r0, r1) and columns [c0, c1).
func (m *Matrix) Submatrix(r0, r1, c0, c1 int) *Matrix {
	out := NewMatrix(r1-r0, c1-c0)
	for i := r0; i < r1; i++ {
		for j := c0; j < c1; j++ {
			out.At(i-r0, j-c0).Set(m.At(i, j))
		}
	}
	return out
}

// Det returns the determinant, computed with fraction-free Bareiss
// elimination.
func (m *Matrix) Det() *big.Int {
	n := m.Rows
	if n != m.Cols {
		panic("sp2gz: determinant of a non-square matrix")
	}
	if n == 0 {
		return big.NewInt(1)
	}
	a := m.Copy()
	sign := 1
	prev := big.NewInt(1)
	t := new(big.Int)
	for k := 0; k < n-1; k++ {
		if a.At(k, k).Sign() == 0 {
			p := -1
			for r := k + 1; r < n; r++ {
				if a.At(r, k).Sign() != 0 {
					p = r
					break
				}
			}
			if p < 0 {
				return new(big.Int)
			}
			for j := 0; j < n; j++ {
				a.Data[k*n+j], a.Data[p*n+j] = a.Data[p*n+j], a.Data[k*n+j]
			}
			sign = -sign
		}
		for i := k + 1; i < n; i++ {
			for j := k + 1; j < n; j++ {
				// a_ij = (a_ij a_kk - a_ik a_kj) / prev, exact
				v := new(big.Int).Mul(a.At(i, j), a.At(k, k))
				v.Sub(v, t.Mul(a.At(i, k), a.At(k, j)))
				v.Quo(v, prev)
				a.Data[i*n+j] = v
			}
		}
		prev = a.At(k, k)
	}
	d := new(big.Int).Set(a.At(n-1, n-1))
	if sign < 0 {
		d.Neg(d)
	}
	return d
}

// Inverse returns m⁻¹ for a unimodular m (det = ±1). It fails with
// ErrDomain otherwise.
func (m *Matrix) Inverse() (*Matrix, error) {
	n := m.Rows
	if n != m.Cols {
		return nil, fmt.Errorf("sp2gz: inverse of %dx%d matrix: %w", m.Rows, m.Cols, errs.ErrDomain)
	}
	if d := m.Det(); d.CmpAbs(big.NewInt(1)) != 0 {
		return nil, fmt.Errorf("sp2gz: matrix not unimodular (det %s): %w", d, errs.ErrDomain)
	}
	a := make([]*big.Rat, n*n)
	inv := make([]*big.Rat, n*n)
	for i := range a {
		a[i] = new(big.Rat).SetInt(m.Data[i])
		inv[i] = new(big.Rat)
	}
	for i := 0; i < n; i++ {
		inv[i*n+i].SetInt64(1)
	}
	t := new(big.Rat)
	for col := 0; col < n; col++ {
		p := col
		for p < n && a[p*n+col].Sign() == 0 {
			p++
		}
		for j := 0; j < n; j++ {
			a[col*n+j], a[p*n+j] = a[p*n+j], a[col*n+j]
			inv[col*n+j], inv[p*n+j] = inv[p*n+j], inv[col*n+j]
		}
		piv := new(big.Rat).Inv(a[col*n+col])
		for j := 0; j < n; j++ {
			a[col*n+j].Mul(a[col*n+j], piv)
			inv[col*n+j].Mul(inv[col*n+j], piv)
		}
		for r := 0; r < n; r++ {
			if r == col || a[r*n+col].Sign() == 0 {
				continue
			}
			f := new(big.Rat).Set(a[r*n+col])
			for j := 0; j < n; j++ {
				a[r*n+j].Sub(a[r*n+j], t.Mul(f, a[col*n+j]))
				inv[r*n+j].Sub(inv[r*n+j], t.Mul(f, inv[col*n+j]))
			}
		}
	}
	out := NewMatrix(n, n)
	for i, v := range inv {
		// unimodular: the inverse is integral
		out.Data[i].Set(v.Num())
	}
	return out, nil
}

func (m *Matrix) String() string {
	var sb strings.Builder
	for i := 0; i < m.Rows; i++ {
		sb.WriteByte('[')
		for j := 0; j < m.Cols; j++ {
			if j > 0 {
				sb.WriteByte(' ')
			}
			sb.WriteString(m.At(i, j).String())
		}
		sb.WriteString("]\n")
	}
	return sb.String()
}

// Int64s returns the entries as rows of int64, for display and tests.
func (m *Matrix) Int64s() [][]int64 {
	out := make([][]int64, m.Rows)
	for i := range out {
		out[i] = make([]int64, m.Cols)
		for j := range out[i] {
			out[i][j] = m.Int64(i, j)
		}
	}
	return out
}
