package theta

import (
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"riemann-theta/agm"
	"riemann-theta/newton"
	"riemann-theta/siegel"
)

// Tuning holds the performance knobs of an evaluation. No value changes
// what is certified, only how fast and at which working precision it is
// reached. Zero fields fall back to the defaults.
type Tuning struct {
	// Cutover is the precision up to which genus 1 and 2 use naive
	// summation.
	Cutover uint `yaml:"agm_cutover"`
	// LowPrec is the precision of the sign references.
	LowPrec uint `yaml:"low_prec"`
	// Guard is added to the target precision at the top of the ladder.
	Guard           uint    `yaml:"guard_bits"`
	LevelMultiplier float64 `yaml:"level_multiplier"`
	MaxLevels       int     `yaml:"max_levels"`
	MaxBadSteps     int     `yaml:"max_bad_steps"`
	ReductionIter   int     `yaml:"reduction_iterations"`
	ReductionEps    float64 `yaml:"reduction_eps"`
	// MaxPrecFactor caps retries at MaxPrecFactor times the target
	// precision.
	MaxPrecFactor uint `yaml:"max_prec_factor"`
}

// DefaultMaxPrecFactor is the default retry cap relative to the target
// precision.
const DefaultMaxPrecFactor = 8

// DefaultTuning returns the tuning used when none is given.
func DefaultTuning() Tuning {
	return Tuning{
		Cutover:         agm.DefaultCutover,
		LowPrec:         newton.DefaultLowPrec,
		Guard:           newton.DefaultGuard,
		LevelMultiplier: newton.DefaultLevelMultiplier,
		MaxLevels:       newton.DefaultMaxLevels,
		MaxBadSteps:     newton.DefaultMaxBadSteps,
		ReductionIter:   siegel.DefaultMaxIter,
		ReductionEps:    siegel.DefaultEps,
		MaxPrecFactor:   DefaultMaxPrecFactor,
	}
}

// LoadTuning decodes a YAML tuning document on top of DefaultTuning.
// Unknown keys are rejected. An empty document yields the defaults.
func LoadTuning(r io.Reader) (Tuning, error) {
	t := DefaultTuning()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&t); err != nil && !errors.Is(err, io.EOF) {
		return Tuning{}, fmt.Errorf("theta: decode tuning: %w", err)
	}
	if t.LevelMultiplier < 0 || t.ReductionEps < 0 || t.ReductionEps >= 1 {
		return Tuning{}, fmt.Errorf("theta: tuning out of range: level_multiplier=%g reduction_eps=%g: %w",
			t.LevelMultiplier, t.ReductionEps, ErrDomain)
	}
	return t, nil
}

func (t Tuning) newtonParams() newton.Params {
	return newton.Params{
		LowPrec:         t.LowPrec,
		Guard:           t.Guard,
		LevelMultiplier: t.LevelMultiplier,
		MaxLevels:       t.MaxLevels,
		MaxBadSteps:     t.MaxBadSteps,
	}
}

func (t Tuning) siegelParams() siegel.Params {
	return siegel.Params{MaxIter: t.ReductionIter, Eps: t.ReductionEps}
}
