// Package ball implements midpoint-radius arithmetic over math/big.
//
// A Real is a big.Float midpoint together with a 64-bit radius that is
// always rounded toward +Inf, so every operation returns a ball that
// contains the exact result for every choice of inputs in the argument
// balls. Complex numbers are rectangular pairs of Reals; Mat and RealMat
// are dense matrices of them.
//
// The working precision is passed explicitly to every operation. Values
// are immutable once built.
package ball
