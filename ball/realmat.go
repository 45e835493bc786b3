package ball

import (
	"fmt"
	"strings"
)

// RealMat is a dense row-major matrix of real balls.
type RealMat struct {
	Rows, Cols int
	Data       []*Real
}

// NewRealMat returns an exact zero r×c matrix.
func NewRealMat(r, c int, prec uint) *RealMat {
	m := &RealMat{Rows: r, Cols: c, Data: make([]*Real, r*c)}
	for i := range m.Data {
		m.Data[i] = Zero(prec)
	}
	return m
}

// At returns entry (i, j).
func (m *RealMat) At(i, j int) *Real { return m.Data[i*m.Cols+j] }

// Set stores v at (i, j).
func (m *RealMat) Set(i, j int, v *Real) { m.Data[i*m.Cols+j] = v }

// Copy returns a deep copy.
func (m *RealMat) Copy() *RealMat {
	out := &RealMat{Rows: m.Rows, Cols: m.Cols, Data: make([]*Real, len(m.Data))}
	for i, v := range m.Data {
		out.Data[i] = v.Copy()
	}
	return out
}

// Transpose returns mᵗ.
func (m *RealMat) Transpose() *RealMat {
	out := &RealMat{Rows: m.Cols, Cols: m.Rows, Data: make([]*Real, len(m.Data))}
	for i := 0; i < m.Rows; i++ {
		for j := 0; j < m.Cols; j++ {
			out.Set(j, i, m.At(i, j).Copy())
		}
	}
	return out
}

// Scale returns s·m.
func (m *RealMat) Scale(s *Real, prec uint) *RealMat {
	out := &RealMat{Rows: m.Rows, Cols: m.Cols, Data: make([]*Real, len(m.Data))}
	for i, v := range m.Data {
		out.Data[i] = v.Mul(s, prec)
	}
	return out
}

// Mul returns m·b.
func (m *RealMat) Mul(b *RealMat, prec uint) *RealMat {
	out := NewRealMat(m.Rows, b.Cols, prec)
	for i := 0; i < m.Rows; i++ {
		for j := 0; j < b.Cols; j++ {
			acc := Zero(prec)
			for k := 0; k < m.Cols; k++ {
				acc = acc.Add(m.At(i, k).Mul(b.At(k, j), prec), prec)
			}
			out.Set(i, j, acc)
		}
	}
	return out
}

// MulVec returns m·v.
func (m *RealMat) MulVec(v []*Real, prec uint) []*Real {
	out := make([]*Real, m.Rows)
	for i := 0; i < m.Rows; i++ {
		acc := Zero(prec)
		for k := 0; k < m.Cols; k++ {
			acc = acc.Add(m.At(i, k).Mul(v[k], prec), prec)
		}
		out[i] = acc
	}
	return out
}

// Quad returns vᵗ m v.
func (m *RealMat) Quad(v []*Real, prec uint) *Real {
	w := m.MulVec(v, prec)
	acc := Zero(prec)
	for i := range v {
		acc = acc.Add(v[i].Mul(w[i], prec), prec)
	}
	return acc
}

// Trace returns the sum of the diagonal.
func (m *RealMat) Trace(prec uint) *Real {
	acc := Zero(prec)
	for i := 0; i < m.Rows && i < m.Cols; i++ {
		acc = acc.Add(m.At(i, i), prec)
	}
	return acc
}

// Cholesky returns the lower triangular L with m = L·Lᵗ. ok is false when
// a pivot cannot be certified positive.
func (m *RealMat) Cholesky(prec uint) (l *RealMat, ok bool) {
	n := m.Rows
	if n != m.Cols {
		return nil, false
	}
	l = NewRealMat(n, n, prec)
	for j := 0; j < n; j++ {
		s := m.At(j, j).Round(prec)
		for k := 0; k < j; k++ {
			s = s.Sub(l.At(j, k).Sqr(prec), prec)
		}
		if !s.IsPositive() {
			return nil, false
		}
		d := s.Sqrt(prec)
		if !d.IsFinite() {
			return nil, false
		}
		l.Set(j, j, d)
		for i := j + 1; i < n; i++ {
			t := m.At(i, j).Round(prec)
			for k := 0; k < j; k++ {
				t = t.Sub(l.At(i, k).Mul(l.At(j, k), prec), prec)
			}
			l.Set(i, j, t.Div(d, prec))
		}
	}
	return l, true
}

// LowerInverse inverts a lower triangular matrix by forward substitution.
func (m *RealMat) LowerInverse(prec uint) *RealMat {
	n := m.Rows
	out := NewRealMat(n, n, prec)
	for j := 0; j < n; j++ {
		out.Set(j, j, m.At(j, j).Inv(prec))
		for i := j + 1; i < n; i++ {
			acc := Zero(prec)
			for k := j; k < i; k++ {
				acc = acc.Add(m.At(i, k).Mul(out.At(k, j), prec), prec)
			}
			out.Set(i, j, acc.Neg().Div(m.At(i, i), prec))
		}
	}
	return out
}

// SPDInverse returns m⁻¹ for a symmetric positive definite m, through its
// Cholesky factor. ok is false when m is not certified positive definite.
func (m *RealMat) SPDInverse(prec uint) (*RealMat, bool) {
	l, ok := m.Cholesky(prec)
	if !ok {
		return nil, false
	}
	li := l.LowerInverse(prec)
	return li.Transpose().Mul(li, prec), true
}

// Float64s returns the midpoints in row-major order.
func (m *RealMat) Float64s() []float64 {
	out := make([]float64, len(m.Data))
	for i, v := range m.Data {
		out[i] = v.Float64()
	}
	return out
}

// IsFinite reports whether every entry has a finite radius.
func (m *RealMat) IsFinite() bool {
	for _, v := range m.Data {
		if !v.IsFinite() {
			return false
		}
	}
	return true
}

func (m *RealMat) String() string {
	var sb strings.Builder
	for i := 0; i < m.Rows; i++ {
		for j := 0; j < m.Cols; j++ {
			if j > 0 {
				sb.WriteString("  ")
			}
			fmt.Fprint(&sb, m.At(i, j).Text(10))
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}
