package ball

import (
	"fmt"
	"strings"
)

// Mat is a dense row-major matrix of complex balls. Period matrices are
// passed around as *Mat and never modified by the engine.
type Mat struct {
	Rows, Cols int
	Data       []*Complex
}

// NewMat returns an exact zero r×c matrix.
func NewMat(r, c int, prec uint) *Mat {
	m := &Mat{Rows: r, Cols: c, Data: make([]*Complex, r*c)}
	for i := range m.Data {
		m.Data[i] = ComplexZero(prec)
	}
	return m
}

// Identity returns the g×g identity.
func Identity(g int, prec uint) *Mat {
	m := NewMat(g, g, prec)
	for i := 0; i < g; i++ {
		m.Set(i, i, ComplexOne(prec))
	}
	return m
}

// MatFromComplex128 builds a matrix from rows of complex128 values.
func MatFromComplex128(rows [][]complex128, prec uint) *Mat {
	r := len(rows)
	c := 0
	if r > 0 {
		c = len(rows[0])
	}
	m := NewMat(r, c, prec)
	for i, row := range rows {
		for j, v := range row {
			m.Set(i, j, ComplexFromFloat64(real(v), imag(v), prec))
		}
	}
	return m
}

// FromParts returns re + i·im.
func FromParts(re, im *RealMat) *Mat {
	m := &Mat{Rows: re.Rows, Cols: re.Cols, Data: make([]*Complex, len(re.Data))}
	for i := range m.Data {
		m.Data[i] = &Complex{Re: re.Data[i].Copy(), Im: im.Data[i].Copy()}
	}
	return m
}

// At returns entry (i, j).
func (m *Mat) At(i, j int) *Complex { return m.Data[i*m.Cols+j] }

// Set stores v at (i, j).
func (m *Mat) Set(i, j int, v *Complex) { m.Data[i*m.Cols+j] = v }

// IsSquare reports whether m is square.
func (m *Mat) IsSquare() bool { return m.Rows == m.Cols }

// Copy returns a deep copy.
func (m *Mat) Copy() *Mat {
	out := &Mat{Rows: m.Rows, Cols: m.Cols, Data: make([]*Complex, len(m.Data))}
	for i, v := range m.Data {
		out.Data[i] = v.Copy()
	}
	return out
}

func (m *Mat) apply(f func(*Complex) *Complex) *Mat {
	out := &Mat{Rows: m.Rows, Cols: m.Cols, Data: make([]*Complex, len(m.Data))}
	for i, v := range m.Data {
		out.Data[i] = f(v)
	}
	return out
}

// Add returns m + b.
func (m *Mat) Add(b *Mat, prec uint) *Mat {
	out := &Mat{Rows: m.Rows, Cols: m.Cols, Data: make([]*Complex, len(m.Data))}
	for i := range m.Data {
		out.Data[i] = m.Data[i].Add(b.Data[i], prec)
	}
	return out
}

// Sub returns m - b.
func (m *Mat) Sub(b *Mat, prec uint) *Mat {
	out := &Mat{Rows: m.Rows, Cols: m.Cols, Data: make([]*Complex, len(m.Data))}
	for i := range m.Data {
		out.Data[i] = m.Data[i].Sub(b.Data[i], prec)
	}
	return out
}

// Neg returns -m.
func (m *Mat) Neg() *Mat { return m.apply((*Complex).Neg) }

// Scale2Exp returns 2^k·m.
func (m *Mat) Scale2Exp(k int) *Mat {
	return m.apply(func(c *Complex) *Complex { return c.Mul2Exp(k) })
}

// Scale returns s·m.
func (m *Mat) Scale(s *Complex, prec uint) *Mat {
	return m.apply(func(c *Complex) *Complex { return c.Mul(s, prec) })
}

// Round rounds every midpoint to prec.
func (m *Mat) Round(prec uint) *Mat {
	return m.apply(func(c *Complex) *Complex { return c.Round(prec) })
}

// Mul returns m·b.
func (m *Mat) Mul(b *Mat, prec uint) *Mat {
	out := NewMat(m.Rows, b.Cols, prec)
	for i := 0; i < m.Rows; i++ {
		for j := 0; j < b.Cols; j++ {
			acc := ComplexZero(prec)
			for k := 0; k < m.Cols; k++ {
				acc = acc.Add(m.At(i, k).Mul(b.At(k, j), prec), prec)
			}
			out.Set(i, j, acc)
		}
	}
	return out
}

// MulVec returns m·v.
func (m *Mat) MulVec(v []*Complex, prec uint) []*Complex {
	out := make([]*Complex, m.Rows)
	for i := 0; i < m.Rows; i++ {
		acc := ComplexZero(prec)
		for k := 0; k < m.Cols; k++ {
			acc = acc.Add(m.At(i, k).Mul(v[k], prec), prec)
		}
		out[i] = acc
	}
	return out
}

// Transpose returns mᵗ.
func (m *Mat) Transpose() *Mat {
	out := &Mat{Rows: m.Cols, Cols: m.Rows, Data: make([]*Complex, len(m.Data))}
	for i := 0; i < m.Rows; i++ {
		for j := 0; j < m.Cols; j++ {
			out.Set(j, i, m.At(i, j).Copy())
		}
	}
	return out
}

// Submatrix returns the entries with row in rows and column in cols.
func (m *Mat) Submatrix(rows, cols []int) *Mat {
	out := &Mat{Rows: len(rows), Cols: len(cols), Data: make([]*Complex, len(rows)*len(cols))}
	for i, r := range rows {
		for j, c := range cols {
			out.Set(i, j, m.At(r, c).Copy())
		}
	}
	return out
}

// Re returns the real part.
func (m *Mat) Re() *RealMat {
	out := &RealMat{Rows: m.Rows, Cols: m.Cols, Data: make([]*Real, len(m.Data))}
	for i, v := range m.Data {
		out.Data[i] = v.Re.Copy()
	}
	return out
}

// Im returns the imaginary part.
func (m *Mat) Im() *RealMat {
	out := &RealMat{Rows: m.Rows, Cols: m.Cols, Data: make([]*Real, len(m.Data))}
	for i, v := range m.Data {
		out.Data[i] = v.Im.Copy()
	}
	return out
}

// Inverse returns m⁻¹ by Gauss-Jordan elimination with partial pivoting on
// the midpoints. ok is false when a pivot may vanish.
func (m *Mat) Inverse(prec uint) (*Mat, bool) {
	n := m.Rows
	if n != m.Cols {
		return nil, false
	}
	a := m.Round(prec)
	inv := Identity(n, prec)
	for col := 0; col < n; col++ {
		p := col
		best := a.At(col, col).AbsLower()
		for r := col + 1; r < n; r++ {
			if v := a.At(r, col).AbsLower(); v.Cmp(best) > 0 {
				p, best = r, v
			}
		}
		if best.Sign() <= 0 {
			return nil, false
		}
		if p != col {
			a.swapRows(p, col)
			inv.swapRows(p, col)
		}
		pi := a.At(col, col).Inv(prec)
		for j := 0; j < n; j++ {
			a.Set(col, j, a.At(col, j).Mul(pi, prec))
			inv.Set(col, j, inv.At(col, j).Mul(pi, prec))
		}
		for r := 0; r < n; r++ {
			if r == col {
				continue
			}
			f := a.At(r, col)
			if f.IsZero() {
				continue
			}
			for j := 0; j < n; j++ {
				a.Set(r, j, a.At(r, j).Sub(f.Mul(a.At(col, j), prec), prec))
				inv.Set(r, j, inv.At(r, j).Sub(f.Mul(inv.At(col, j), prec), prec))
			}
		}
	}
	return inv, inv.IsFinite()
}

func (m *Mat) swapRows(i, j int) {
	for k := 0; k < m.Cols; k++ {
		a, b := m.At(i, k), m.At(j, k)
		m.Set(i, k, b)
		m.Set(j, k, a)
	}
}

// SymPivots returns the pivots d_k of the symmetric factorisation
// m = L·diag(d)·Lᵗ computed without pivoting. ok is false when a pivot may
// vanish. The product of the pivots is det m.
func (m *Mat) SymPivots(prec uint) ([]*Complex, bool) {
	n := m.Rows
	if n != m.Cols {
		return nil, false
	}
	a := m.Round(prec)
	d := make([]*Complex, n)
	for k := 0; k < n; k++ {
		dk := a.At(k, k)
		if dk.ContainsZero() || !dk.IsFinite() {
			return nil, false
		}
		d[k] = dk
		inv := dk.Inv(prec)
		for i := k + 1; i < n; i++ {
			f := a.At(i, k).Mul(inv, prec)
			for j := k + 1; j < n; j++ {
				a.Set(i, j, a.At(i, j).Sub(f.Mul(a.At(k, j), prec), prec))
			}
		}
	}
	return d, true
}

// Det returns det m through SymPivots; m must be symmetric.
func (m *Mat) Det(prec uint) (*Complex, bool) {
	d, ok := m.SymPivots(prec)
	if !ok {
		return nil, false
	}
	acc := ComplexOne(prec)
	for _, v := range d {
		acc = acc.Mul(v, prec)
	}
	return acc, true
}

// IsFinite reports whether every entry has finite radii.
func (m *Mat) IsFinite() bool {
	for _, v := range m.Data {
		if !v.IsFinite() {
			return false
		}
	}
	return true
}

// Overlaps reports whether every entry of m overlaps the one of b.
func (m *Mat) Overlaps(b *Mat) bool {
	if m.Rows != b.Rows || m.Cols != b.Cols {
		return false
	}
	for i := range m.Data {
		if !m.Data[i].Overlaps(b.Data[i]) {
			return false
		}
	}
	return true
}

// Mid128 returns the midpoints as complex128 rows.
func (m *Mat) Mid128() [][]complex128 {
	out := make([][]complex128, m.Rows)
	for i := range out {
		out[i] = make([]complex128, m.Cols)
		for j := range out[i] {
			out[i][j] = m.At(i, j).Complex128()
		}
	}
	return out
}

// Prec returns the smallest midpoint precision in m.
func (m *Mat) Prec() uint {
	var p uint
	for i, v := range m.Data {
		q := v.Re.Mid.Prec()
		if w := v.Im.Mid.Prec(); w < q {
			q = w
		}
		if i == 0 || q < p {
			p = q
		}
	}
	return p
}

func (m *Mat) String() string {
	var sb strings.Builder
	for i := 0; i < m.Rows; i++ {
		for j := 0; j < m.Cols; j++ {
			if j > 0 {
				sb.WriteString("  ")
			}
			fmt.Fprintf(&sb, "(%s)", m.At(i, j).Text(12))
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}

// VecFromComplex128 builds a vector of complex balls.
func VecFromComplex128(v []complex128, prec uint) []*Complex {
	out := make([]*Complex, len(v))
	for i, x := range v {
		out[i] = ComplexFromFloat64(real(x), imag(x), prec)
	}
	return out
}

// ZeroVec returns the exact zero vector of length g.
func ZeroVec(g int, prec uint) []*Complex {
	out := make([]*Complex, g)
	for i := range out {
		out[i] = ComplexZero(prec)
	}
	return out
}

// IsZeroVec reports whether every entry of v is exactly zero.
func IsZeroVec(v []*Complex) bool {
	for _, x := range v {
		if !x.IsZero() {
			return false
		}
	}
	return true
}

// CopyVec returns a deep copy of v.
func CopyVec(v []*Complex) []*Complex {
	out := make([]*Complex, len(v))
	for i, x := range v {
		out[i] = x.Copy()
	}
	return out
}
