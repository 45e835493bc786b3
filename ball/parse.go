package ball

import (
	"fmt"
	"math/big"
	"strings"
)

// ParseReal reads a decimal or rational literal ("0.5", "-3/7", "1e-3")
// into a ball rounded to prec.
func ParseReal(s string, prec uint) (*Real, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Zero(prec), nil
	}
	r, ok := new(big.Rat).SetString(s)
	if !ok {
		return nil, fmt.Errorf("ball: cannot parse %q as a real number", s)
	}
	return FromRat(r, prec), nil
}

// ParseComplex reads re + i·im from two literals.
func ParseComplex(re, im string, prec uint) (*Complex, error) {
	x, err := ParseReal(re, prec)
	if err != nil {
		return nil, err
	}
	y, err := ParseReal(im, prec)
	if err != nil {
		return nil, err
	}
	return &Complex{Re: x, Im: y}, nil
}
