package theta

import (
	"fmt"

	"riemann-theta/chars"
)

type selKind int

const (
	selAll selKind = iota
	selZeroA
	selList
)

// Selector chooses the characteristics to evaluate.
type Selector struct {
	kind selKind
	list []chars.Char
}

// All selects every characteristic.
func All() Selector { return Selector{kind: selAll} }

// ZeroA selects the characteristics θ_{0,b}.
func ZeroA() Selector { return Selector{kind: selZeroA} }

// Chars selects an explicit list, in the given order.
func Chars(cs ...chars.Char) Selector {
	return Selector{kind: selList, list: append([]chars.Char(nil), cs...)}
}

func (s Selector) resolve(g int) ([]chars.Char, error) {
	switch s.kind {
	case selAll:
		return chars.All(g), nil
	case selZeroA:
		out := make([]chars.Char, 1<<g)
		for b := range out {
			out[b] = chars.Join(0, uint64(b), g)
		}
		return out, nil
	}
	if len(s.list) == 0 {
		return nil, fmt.Errorf("theta: empty characteristic list: %w", ErrDomain)
	}
	for _, ch := range s.list {
		if !chars.Valid(ch, g) {
			return nil, fmt.Errorf("theta: characteristic %d invalid in genus %d: %w", ch, g, ErrDomain)
		}
	}
	return append([]chars.Char(nil), s.list...), nil
}
