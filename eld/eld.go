// Package eld enumerates the integer points of an ellipsoid.
//
// Given a lower triangular L with Y = L·Lᵗ, a radius R² and an offset v,
// a Tree describes every n ∈ Z^g with ‖Lᵗ(n - v)‖² <= R². Coordinates are
// fixed from the last one down to the first; the interval of each
// coordinate is rounded outward, so the tree may hold a few extra boundary
// points but never misses one.
//
// Nodes live in one arena per dimension and refer to their children by
// index, so a tree has no pointer cycles and is released in one pass.
package eld

import (
	"fmt"
	"math/big"
	"strings"

	"riemann-theta/ball"
	"riemann-theta/errs"
)

// maxWidth bounds the number of values of one coordinate in a node.
const maxWidth = 1 << 24

// Node is one slice of the search: coordinate Dim-1 ranges over [Min, Max]
// while coordinates Dim..g-1 are fixed to Fixed.
type Node struct {
	Dim   int
	Fixed []int64
	Min   int64
	Max   int64
	Mid   int64
	// Right holds the children for Mid..Max, Left those for Mid-1 down to
	// Min, as indices into the arena of dimension Dim-1. Leaves have none.
	Right []int32
	Left  []int32
	count int
}

// Tree owns the arenas of one enumeration.
type Tree struct {
	G      int
	levels [][]Node
	root   int32
	empty  bool
}

type builder struct {
	t     *Tree
	l     *ball.RealMat
	v     []*ball.Real
	prec  uint
	w     []*ball.Real // n_j - v_j for fixed j
	fixed []int64
}

// New enumerates the points n with ‖Lᵗ(n - v)‖² <= R².
func New(l *ball.RealMat, r2 *ball.Real, v []*ball.Real, prec uint) (*Tree, error) {
	g := l.Rows
	if g < 1 || l.Cols != g || len(v) != g {
		return nil, fmt.Errorf("eld: L is %dx%d with offset of length %d: %w", l.Rows, l.Cols, len(v), errs.ErrInvalidGeometry)
	}
	for i := 0; i < g; i++ {
		if !l.At(i, i).IsPositive() {
			return nil, fmt.Errorf("eld: diagonal entry %d not certified positive: %w", i, errs.ErrInvalidGeometry)
		}
	}
	if !r2.IsFinite() {
		return nil, fmt.Errorf("eld: radius is not finite: %w", errs.ErrInvalidGeometry)
	}
	t := &Tree{G: g, levels: make([][]Node, g)}
	b := &builder{t: t, l: l, v: v, prec: prec, w: make([]*ball.Real, g), fixed: make([]int64, g)}
	root, ok, err := b.node(g, r2)
	if err != nil {
		return nil, err
	}
	t.root = root
	t.empty = !ok
	return t, nil
}

// interval returns the admissible range of coordinate k = d-1 given the
// remaining squared radius, and the partial form t_k.
func (b *builder) interval(k int, rem *ball.Real) (lo, hi, mid int64, tk *ball.Real, ok bool, err error) {
	prec := b.prec
	tk = ball.Zero(prec)
	for j := k + 1; j < b.t.G; j++ {
		tk = tk.Add(b.l.At(j, k).Mul(b.w[j], prec), prec)
	}
	remHi := rem.Hi()
	if remHi.Sign() < 0 {
		return 0, 0, 0, nil, false, nil
	}
	lkk := b.l.At(k, k)
	c := b.v[k].Sub(tk.Div(lkk, prec), prec)
	// half width sqrt(rem)/L_kk, rounded up
	h := new(big.Float).SetPrec(ball.RadPrec).SetMode(big.ToPositiveInf).Sqrt(remHi)
	h.Mul(h, sqrtUp)
	h.Quo(h, lkk.Lo())
	if h.IsInf() || !c.IsFinite() {
		return 0, 0, 0, nil, false, fmt.Errorf("eld: unbounded interval for coordinate %d: %w", k, errs.ErrInvalidGeometry)
	}
	l := new(big.Float).SetPrec(ball.RadPrec).SetMode(big.ToNegativeInf).Sub(c.Lo(), h)
	u := new(big.Float).SetPrec(ball.RadPrec).SetMode(big.ToPositiveInf).Add(c.Hi(), h)
	lo, err1 := ceil(l)
	hi, err2 := floor(u)
	if err1 != nil || err2 != nil || hi-lo > maxWidth {
		return 0, 0, 0, nil, false, fmt.Errorf("eld: coordinate %d range too wide: %w", k, errs.ErrInvalidGeometry)
	}
	if lo > hi {
		return 0, 0, 0, nil, false, nil
	}
	m := ball.RoundToInt(c.Mid)
	mid = m.Int64()
	if !m.IsInt64() || mid > hi {
		mid = hi + 1
	}
	if mid < lo {
		mid = lo
	}
	return lo, hi, mid, tk, true, nil
}

// sqrtUp absorbs the rounding of big.Float.Sqrt, which is not directed.
var sqrtUp = new(big.Float).SetPrec(ball.RadPrec).SetFloat64(1 + 0x1p-50)

func (b *builder) node(d int, rem *ball.Real) (int32, bool, error) {
	k := d - 1
	lo, hi, mid, tk, ok, err := b.interval(k, rem)
	if err != nil || !ok {
		return 0, false, err
	}
	n := Node{Dim: d, Min: lo, Max: hi, Mid: mid}
	n.Fixed = append([]int64(nil), b.fixed[d:]...)
	if d == 1 {
		n.count = int(hi - lo + 1)
	} else {
		prec := b.prec
		lkk := b.l.At(k, k)
		child := func(x int64) (int32, bool, error) {
			b.fixed[k] = x
			b.w[k] = ball.FromInt(x, prec).Sub(b.v[k], prec)
			y := lkk.Mul(b.w[k], prec).Add(tk, prec)
			return b.node(d-1, rem.Sub(y.Sqr(prec), prec))
		}
		for x := mid; x <= hi; x++ {
			c, ok, err := child(x)
			if err != nil {
				return 0, false, err
			}
			if ok {
				n.Right = append(n.Right, c)
				n.count += b.t.levels[d-2][c].count
			}
		}
		for x := mid - 1; x >= lo; x-- {
			c, ok, err := child(x)
			if err != nil {
				return 0, false, err
			}
			if ok {
				n.Left = append(n.Left, c)
				n.count += b.t.levels[d-2][c].count
			}
		}
		b.w[k] = nil
		if n.count == 0 {
			return 0, false, nil
		}
	}
	lvl := &b.t.levels[d-1]
	*lvl = append(*lvl, n)
	return int32(len(*lvl) - 1), true, nil
}

func floor(x *big.Float) (int64, error) {
	n, acc := x.Int(nil)
	if acc == big.Above && x.Sign() < 0 {
		n.Sub(n, big.NewInt(1))
	}
	if !n.IsInt64() {
		return 0, fmt.Errorf("eld: %s out of range", x.Text('g', 10))
	}
	return n.Int64(), nil
}

func ceil(x *big.Float) (int64, error) {
	n, acc := x.Int(nil)
	if acc == big.Below && x.Sign() > 0 {
		n.Add(n, big.NewInt(1))
	}
	if !n.IsInt64() {
		return 0, fmt.Errorf("eld: %s out of range", x.Text('g', 10))
	}
	return n.Int64(), nil
}

// Count returns the number of points in the tree.
func (t *Tree) Count() int {
	if t.empty || t.levels == nil {
		return 0
	}
	return t.levels[t.G-1][t.root].count
}

// Walk calls f on every point of the tree. The slice passed to f is reused
// between calls.
func (t *Tree) Walk(f func(n []int64)) {
	if t.empty || t.levels == nil {
		return
	}
	buf := make([]int64, t.G)
	t.walk(t.G, t.root, buf, f)
}

func (t *Tree) walk(d int, idx int32, buf []int64, f func([]int64)) {
	n := &t.levels[d-1][idx]
	copy(buf[d:], n.Fixed)
	if d == 1 {
		for x := n.Min; x <= n.Max; x++ {
			buf[0] = x
			f(buf)
		}
		return
	}
	for _, c := range n.Right {
		t.walk(d-1, c, buf, f)
	}
	for _, c := range n.Left {
		t.walk(d-1, c, buf, f)
	}
}

// Points returns every point of the tree.
func (t *Tree) Points() [][]int64 {
	out := make([][]int64, 0, t.Count())
	t.Walk(func(n []int64) {
		out = append(out, append([]int64(nil), n...))
	})
	return out
}

// Contains reports whether n is one of the points of the tree.
func (t *Tree) Contains(n []int64) bool {
	if t.empty || t.levels == nil || len(n) != t.G {
		return false
	}
	d, idx := t.G, t.root
	for {
		node := &t.levels[d-1][idx]
		x := n[d-1]
		if x < node.Min || x > node.Max {
			return false
		}
		if d == 1 {
			return true
		}
		next := int32(-1)
		for _, lst := range [][]int32{node.Right, node.Left} {
			for _, c := range lst {
				if t.levels[d-2][c].Fixed[0] == x {
					next = c
				}
			}
		}
		if next < 0 {
			return false
		}
		d, idx = d-1, next
	}
}

// Box returns max |n_i| over the points, per coordinate.
func (t *Tree) Box() []int64 {
	box := make([]int64, t.G)
	t.Walk(func(n []int64) {
		for i, x := range n {
			if x < 0 {
				x = -x
			}
			if x > box[i] {
				box[i] = x
			}
		}
	})
	return box
}

// Release drops every node, children before parents.
func (t *Tree) Release() {
	if t.levels == nil {
		return
	}
	if !t.empty {
		t.release(t.G, t.root)
	}
	for d := range t.levels {
		t.levels[d] = nil
	}
	t.levels = nil
}

func (t *Tree) release(d int, idx int32) {
	n := &t.levels[d-1][idx]
	if d > 1 {
		for _, c := range n.Right {
			t.release(d-1, c)
		}
		for _, c := range n.Left {
			t.release(d-1, c)
		}
	}
	n.Right, n.Left, n.Fixed = nil, nil, nil
}

// String dumps the tree with one indented line per node. The format is
// meant for debugging only.
func (t *Tree) String() string {
	if t.empty || t.levels == nil {
		return "(empty)\n"
	}
	var sb strings.Builder
	t.dump(&sb, t.G, t.root, 0)
	return sb.String()
}

func (t *Tree) dump(sb *strings.Builder, d int, idx int32, depth int) {
	n := &t.levels[d-1][idx]
	fmt.Fprintf(sb, "%sd=%d fixed=%v range=[%d,%d] mid=%d points=%d\n",
		strings.Repeat("  ", depth), n.Dim, n.Fixed, n.Min, n.Max, n.Mid, n.count)
	if d == 1 {
		return
	}
	for _, c := range n.Right {
		t.dump(sb, d-1, c, depth+1)
	}
	for _, c := range n.Left {
		t.dump(sb, d-1, c, depth+1)
	}
}
