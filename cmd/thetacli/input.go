package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"riemann-theta/ball"
	"riemann-theta/chars"
	"riemann-theta/theta"
)

// complexIn is a complex entry written as two decimal or rational
// literals. Missing parts are zero.
type complexIn struct {
	Re string `yaml:"re"`
	Im string `yaml:"im"`
}

// charIn is a characteristic written as two bit strings, first coordinate
// first.
type charIn struct {
	A string `yaml:"a"`
	B string `yaml:"b"`
}

// input is the document read by eval and reduce:
//
//	prec: 128
//	order: 0
//	tau:
//	  - [{im: "2"}, {re: "1/2"}]
//	  - [{re: "1/2"}, {im: "3"}]
//	z:
//	  - [{re: "0.1"}, {im: "0.2"}]
//	chars:
//	  - {a: "00", b: "01"}
type input struct {
	Prec  uint          `yaml:"prec"`
	Order int           `yaml:"order"`
	Tau   [][]complexIn `yaml:"tau"`
	Z     [][]complexIn `yaml:"z"`
	Chars []charIn      `yaml:"chars"`
}

const defaultInputPrec = 128

func readInput(path string) (*input, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open input: %w", err)
	}
	defer f.Close()
	in := &input{}
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(in); err != nil {
		return nil, fmt.Errorf("decode input %s: %w", path, err)
	}
	if in.Prec == 0 {
		in.Prec = defaultInputPrec
	}
	return in, nil
}

func (in *input) tau() (*ball.Mat, error) {
	g := len(in.Tau)
	if g == 0 {
		return nil, fmt.Errorf("input: empty tau: %w", theta.ErrDomain)
	}
	m := ball.NewMat(g, g, in.Prec)
	for i, row := range in.Tau {
		if len(row) != g {
			return nil, fmt.Errorf("input: tau row %d has %d entries, want %d: %w", i, len(row), g, theta.ErrDomain)
		}
		for j, e := range row {
			v, err := ball.ParseComplex(e.Re, e.Im, in.Prec)
			if err != nil {
				return nil, fmt.Errorf("input: tau[%d][%d]: %w", i, j, err)
			}
			m.Set(i, j, v)
		}
	}
	return m, nil
}

// points returns the z vectors, or a single zero vector when none is given.
func (in *input) points(g int) ([][]*ball.Complex, error) {
	if len(in.Z) == 0 {
		return [][]*ball.Complex{ball.ZeroVec(g, in.Prec)}, nil
	}
	out := make([][]*ball.Complex, len(in.Z))
	for i, row := range in.Z {
		out[i] = make([]*ball.Complex, len(row))
		for j, e := range row {
			v, err := ball.ParseComplex(e.Re, e.Im, in.Prec)
			if err != nil {
				return nil, fmt.Errorf("input: z[%d][%d]: %w", i, j, err)
			}
			out[i][j] = v
		}
	}
	return out, nil
}

func (in *input) selector() (theta.Selector, error) {
	if len(in.Chars) == 0 {
		return theta.All(), nil
	}
	cs := make([]chars.Char, len(in.Chars))
	for i, c := range in.Chars {
		a, err := bitString(c.A)
		if err != nil {
			return theta.Selector{}, err
		}
		b, err := bitString(c.B)
		if err != nil {
			return theta.Selector{}, err
		}
		if cs[i], err = chars.Encode(a, b); err != nil {
			return theta.Selector{}, fmt.Errorf("input: chars[%d]: %w", i, err)
		}
	}
	return theta.Chars(cs...), nil
}

func bitString(s string) ([]uint8, error) {
	out := make([]uint8, len(s))
	for i, r := range s {
		switch r {
		case '0':
		case '1':
			out[i] = 1
		default:
			return nil, fmt.Errorf("input: %q is not a bit string: %w", s, theta.ErrDomain)
		}
	}
	return out, nil
}
