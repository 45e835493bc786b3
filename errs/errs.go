// Package errs holds the error kinds shared by every evaluation layer.
//
// Layers wrap these sentinels with context, fmt.Errorf("naive: eval: %w", errs.ErrX),
// and callers match them with errors.Is.
package errs

import "errors"

var (
	// ErrInvalidGeometry reports a quadratic form that could not be certified
	// positive definite at the working precision. Retrying at a higher
	// precision may succeed.
	ErrInvalidGeometry = errors.New("theta: quadratic form not certifiably positive definite")

	// ErrInsufficientPrecision reports a sign or non-vanishing fact that could
	// not be certified. Callers should retry at a higher precision.
	ErrInsufficientPrecision = errors.New("theta: insufficient precision")

	// ErrDomain reports caller misuse: dimension mismatch, non-square matrix,
	// characteristic out of range. Never recovered.
	ErrDomain = errors.New("theta: domain error")

	// ErrNotConverged reports a duplication step whose square-root sign stayed
	// ambiguous after every correction round.
	ErrNotConverged = errors.New("theta: duplication did not converge")
)

// Retryable reports whether err may go away at a higher working precision.
func Retryable(err error) bool {
	return errors.Is(err, ErrInvalidGeometry) || errors.Is(err, ErrInsufficientPrecision)
}
