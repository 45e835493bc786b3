package siegel

import (
	"fmt"
	"strings"

	"riemann-theta/ball"
	"riemann-theta/chars"
	"riemann-theta/errs"
	"riemann-theta/sp2gz"
)

// StepKind names the three kinds of elementary symplectic moves.
type StepKind int

const (
	// Translate maps τ to τ + S.
	Translate StepKind = iota
	// Block maps (z, τ) to (Uz, UτUᵗ).
	Block
	// Invert is the partial inversion J_S on a subset of coordinates.
	Invert
)

func (k StepKind) String() string {
	switch k {
	case Translate:
		return "translate"
	case Block:
		return "block"
	case Invert:
		return "invert"
	}
	return fmt.Sprintf("StepKind(%d)", int(k))
}

// Step is one elementary move. Only the fields of its kind are set.
type Step struct {
	Kind    StepKind
	S       *sp2gz.Matrix // Translate
	U, Uinv *sp2gz.Matrix // Block
	Subset  []int         // Invert
}

// TranslateStep returns the step τ ↦ τ + s.
func TranslateStep(s *sp2gz.Matrix) Step { return Step{Kind: Translate, S: s} }

// BlockStep returns the step diag(U, U⁻ᵗ).
func BlockStep(u, uinv *sp2gz.Matrix) Step { return Step{Kind: Block, U: u, Uinv: uinv} }

// InvertStep returns the partial inversion on subset.
func InvertStep(subset []int) Step {
	return Step{Kind: Invert, Subset: append([]int(nil), subset...)}
}

// Matrix returns the 2g×2g symplectic matrix of the step.
func (s Step) Matrix(g int) (*sp2gz.Matrix, error) {
	switch s.Kind {
	case Translate:
		return sp2gz.Translation(s.S)
	case Block:
		return sp2gz.BlockPair(s.U, s.Uinv), nil
	case Invert:
		return sp2gz.PartialJ(g, s.Subset)
	}
	return nil, fmt.Errorf("siegel: unknown step kind %d: %w", s.Kind, errs.ErrDomain)
}

func (s Step) String() string {
	switch s.Kind {
	case Translate:
		return fmt.Sprintf("T%v", s.S.Int64s())
	case Block:
		return fmt.Sprintf("U%v", s.U.Int64s())
	case Invert:
		return fmt.Sprintf("J%v", s.Subset)
	}
	return s.Kind.String()
}

// source maps a characteristic at the output of the step to the one at its
// input, together with the ζ8 exponent of the characteristic dependent
// factor.
func (s Step) source(ch chars.Char, g int) (chars.Char, int) {
	a, b := chars.Split(ch, g)
	switch s.Kind {
	case Translate:
		nb, k := TranslateChar(a, b, s.S, g)
		return chars.Join(a, nb, g), k
	case Block:
		na, nb, sg := BlockChar(a, b, s.U, s.Uinv, g)
		return chars.Join(na, nb, g), 4 * sg
	default:
		na, nb, w := PartialJChar(a, b, s.Subset, g)
		// (-i)^w = ζ8^{-2w}
		return chars.Join(na, nb, g), ((-2*w)%8 + 8) % 8
	}
}

// target inverts source on characteristics.
func (s Step) target(ch chars.Char, g int) chars.Char {
	a, b := chars.Split(ch, g)
	switch s.Kind {
	case Translate:
		// b ↦ b + w(a) mod 2 is an involution for fixed a.
		nb, _ := TranslateChar(a, b, s.S, g)
		return chars.Join(a, nb, g)
	case Block:
		na, nb := unblockChar(a, b, s.U, s.Uinv, g)
		return chars.Join(na, nb, g)
	default:
		na, nb, _ := PartialJChar(a, b, s.Subset, g)
		return chars.Join(na, nb, g)
	}
}

// Word is a sequence of steps applied in order: the matrix of the word is
// M = M_m ⋯ M_1.
type Word []Step

// Matrix returns the product of the step matrices.
func (w Word) Matrix(g int) (*sp2gz.Matrix, error) {
	m := sp2gz.Identity(g)
	for _, s := range w {
		sm, err := s.Matrix(g)
		if err != nil {
			return nil, err
		}
		m = sm.Mul(m)
	}
	return m, nil
}

func (w Word) String() string {
	parts := make([]string, len(w))
	for i, s := range w {
		parts[i] = s.String()
	}
	return strings.Join(parts, " ")
}

// Source returns χ' with θ_χ(M·(z, τ)) proportional to θ_χ'(z, τ).
func (w Word) Source(ch chars.Char, g int) chars.Char {
	for k := len(w) - 1; k >= 0; k-- {
		ch, _ = w[k].source(ch, g)
	}
	return ch
}

// Target inverts Source.
func (w Word) Target(ch chars.Char, g int) chars.Char {
	for _, s := range w {
		ch = s.target(ch, g)
	}
	return ch
}

// intMat embeds an integer matrix as exact balls.
func intMat(m *sp2gz.Matrix, prec uint) *ball.Mat {
	out := ball.NewMat(m.Rows, m.Cols, prec)
	for i := 0; i < m.Rows; i++ {
		for j := 0; j < m.Cols; j++ {
			out.Set(i, j, ball.NewComplex(ball.FromBigInt(m.At(i, j), prec), ball.Zero(prec)))
		}
	}
	return out
}
