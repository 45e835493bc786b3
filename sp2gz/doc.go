// Package sp2gz provides exact integer matrices and the elements of the
// symplectic group Sp(2g, Z) used by the reduction: translations, block
// changes of basis, partial inversions and the fundamental generators.
package sp2gz
