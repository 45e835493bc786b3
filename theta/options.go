package theta

import (
	"go.uber.org/zap"

	"riemann-theta/agm"
	"riemann-theta/prof"
)

// Option configures an evaluation.
type Option func(*options)

type options struct {
	log      *zap.Logger
	tuning   Tuning
	strategy *agm.Strategy
	reduce   bool
	maxPrec  uint
	rec      *prof.Recorder
}

func gatherOptions(opts []Option) options {
	o := options{
		log:    zap.NewNop(),
		tuning: DefaultTuning(),
		reduce: true,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithLogger sets the logger. Evaluations log at debug level only.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.log = l
		}
	}
}

// WithTuning replaces the performance tuning.
func WithTuning(t Tuning) Option {
	return func(o *options) { o.tuning = t }
}

// WithStrategy forces an evaluation strategy instead of agm.Select.
// Derivatives are always summed naively.
func WithStrategy(s agm.Strategy) Option {
	return func(o *options) { o.strategy = &s }
}

// WithReduction enables or disables reduction of τ and z before summing.
// It is on by default.
func WithReduction(on bool) Option {
	return func(o *options) { o.reduce = on }
}

// WithMaxPrecision caps the working precision reached by retries.
func WithMaxPrecision(prec uint) Option {
	return func(o *options) { o.maxPrec = prec }
}

// WithRecorder records stage timings into r.
func WithRecorder(r *prof.Recorder) Option {
	return func(o *options) { o.rec = r }
}
