package estimate

import (
	"fmt"

	mtx "github.com/milosgajdos/matrix"
	"github.com/milosgajdos/go-kalman/matrix"
	"gonum.org/v1/gonum/mat"
)

// Base is base estimate
type Base struct {
	// val is estimated value
	val *mat.VecDense
	// cov is estimated covariance
	cov *mat.SymDense
}

// NewBase returns base estimate given val with zero covariance.
// It returns error if val is nil or empty.
func NewBase(val mat.Vector) (*Base, error) {
	if val == nil || val.Len() == 0 {
		return nil, &matrix.DimensionError{Op: "estimate", Got: [2]int{0, 1}, Want: [2]int{matrix.Any, 1}}
	}

	v := &mat.VecDense{}
	v.CloneFromVec(val)

	c := mat.NewSymDense(v.Len(), nil)

	return &Base{
		val: v,
		cov: c,
	}, nil
}

// NewBaseWithCov returns base estimate given value and covariance.
// It returns error if the covariance does not match the value dimension.
func NewBaseWithCov(val mat.Vector, cov mat.Symmetric) (*Base, error) {
	if val == nil || val.Len() == 0 {
		return nil, &matrix.DimensionError{Op: "estimate", Got: [2]int{0, 1}, Want: [2]int{matrix.Any, 1}}
	}

	n := val.Len()
	if cov == nil {
		return nil, &matrix.DimensionError{Op: "estimate covariance", Want: [2]int{n, n}}
	}

	if rc := cov.SymmetricDim(); rc != n {
		return nil, &matrix.DimensionError{Op: "estimate covariance", Got: [2]int{rc, rc}, Want: [2]int{n, n}}
	}

	v := &mat.VecDense{}
	v.CloneFromVec(val)

	c := mat.NewSymDense(n, nil)
	c.CopySym(cov)

	return &Base{
		val: v,
		cov: c,
	}, nil
}

// Val returns estimated value
func (b *Base) Val() mat.Vector {
	v := &mat.VecDense{}
	v.CloneFromVec(b.val)

	return v
}

// Cov returns covariance estimate
func (b *Base) Cov() mat.Symmetric {
	cov := mat.NewSymDense(b.cov.SymmetricDim(), nil)
	cov.CopySym(b.cov)

	return cov
}

// String implements the Stringer interface.
func (b *Base) String() string {
	return fmt.Sprintf("Estimate{\nVal=%v\nCov=%v\n}", mtx.Format(b.val), mtx.Format(b.cov))
}
