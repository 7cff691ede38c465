// Package matrix provides dense linear algebra primitives used by the filters.
// All functions allocate their results and never modify their arguments.
package matrix

import (
	"math"

	mtx "github.com/milosgajdos/matrix"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/floats/scalar"
	"gonum.org/v1/gonum/mat"
)

// MaxCond is the largest condition number a matrix may have to be inverted.
const MaxCond = 1e14

// CheckDims returns DimensionError if m is not rows x cols.
// Either of rows or cols can be Any.
func CheckDims(op string, m mat.Matrix, rows, cols int) error {
	r, c := m.Dims()
	if (rows != Any && r != rows) || (cols != Any && c != cols) {
		return &DimensionError{Op: op, Got: [2]int{r, c}, Want: [2]int{rows, cols}}
	}

	return nil
}

// CheckVec returns DimensionError if v is nil or its length is not n.
func CheckVec(op string, v mat.Vector, n int) error {
	if v == nil {
		return &DimensionError{Op: op, Want: [2]int{n, 1}}
	}

	if v.Len() != n {
		return &DimensionError{Op: op, Got: [2]int{v.Len(), 1}, Want: [2]int{n, 1}}
	}

	return nil
}

// Identity returns n x n identity matrix.
// It panics if n is not positive.
func Identity(n int) *mat.Dense {
	eye, err := mtx.NewDenseValIdentity(n, 1.0)
	if err != nil {
		panic(err)
	}

	return eye
}

// Mul returns a*b.
func Mul(a, b mat.Matrix) (*mat.Dense, error) {
	_, ac := a.Dims()
	if err := CheckDims("Mul", b, ac, Any); err != nil {
		return nil, err
	}

	out := &mat.Dense{}
	out.Mul(a, b)

	return out, nil
}

// MulVec returns a*x.
func MulVec(a mat.Matrix, x mat.Vector) (*mat.VecDense, error) {
	_, ac := a.Dims()
	if err := CheckVec("MulVec", x, ac); err != nil {
		return nil, err
	}

	out := &mat.VecDense{}
	out.MulVec(a, x)

	return out, nil
}

// Add returns a+b.
func Add(a, b mat.Matrix) (*mat.Dense, error) {
	r, c := a.Dims()
	if err := CheckDims("Add", b, r, c); err != nil {
		return nil, err
	}

	out := &mat.Dense{}
	out.Add(a, b)

	return out, nil
}

// Sub returns a-b.
func Sub(a, b mat.Matrix) (*mat.Dense, error) {
	r, c := a.Dims()
	if err := CheckDims("Sub", b, r, c); err != nil {
		return nil, err
	}

	out := &mat.Dense{}
	out.Sub(a, b)

	return out, nil
}

// Transpose returns a copy of a transposed.
func Transpose(a mat.Matrix) *mat.Dense {
	return mat.DenseCopyOf(a.T())
}

// Symmetrize returns (a + a')/2.
// It returns DimensionError if a is not square.
func Symmetrize(a mat.Matrix) (*mat.SymDense, error) {
	r, _ := a.Dims()
	if err := CheckDims("Symmetrize", a, r, r); err != nil {
		return nil, err
	}

	s := mat.NewSymDense(r, nil)
	for i := 0; i < r; i++ {
		for j := i; j < r; j++ {
			s.SetSym(i, j, 0.5*(a.At(i, j)+a.At(j, i)))
		}
	}

	return s, nil
}

// Inverse returns inverse of the square matrix a.
// Symmetric matrices are inverted via Cholesky factorization first,
// everything else (or matrices which are not positive definite) via LU.
// It returns DimensionError if a is not square and SingularMatrixError if a is
// singular or its condition number exceeds MaxCond.
func Inverse(a mat.Matrix) (*mat.Dense, error) {
	r, _ := a.Dims()
	if err := CheckDims("Inverse", a, r, r); err != nil {
		return nil, err
	}

	if s, ok := a.(mat.Symmetric); ok {
		var chol mat.Cholesky
		if chol.Factorize(s) && chol.Cond() <= MaxCond {
			inv := &mat.SymDense{}
			if err := chol.InverseTo(inv); err == nil {
				return mat.DenseCopyOf(inv), nil
			}
		}
	}

	var lu mat.LU
	lu.Factorize(a)
	if c := lu.Cond(); !wellConditioned(c) {
		return nil, &SingularMatrixError{Op: "Inverse", Cond: c}
	}

	inv := &mat.Dense{}
	if err := lu.SolveTo(inv, false, Identity(r)); err != nil {
		return nil, &SingularMatrixError{Op: "Inverse", Cond: lu.Cond()}
	}

	return inv, nil
}

// SolveSym solves s*X = b for X.
// It attempts Cholesky factorization of s and falls back to LU when s is not
// positive definite. It returns DimensionError if b does not have as many rows
// as s and SingularMatrixError if s is singular or ill-conditioned.
func SolveSym(s mat.Symmetric, b mat.Matrix) (*mat.Dense, error) {
	n := s.SymmetricDim()
	if err := CheckDims("SolveSym", b, n, Any); err != nil {
		return nil, err
	}

	x := &mat.Dense{}

	var chol mat.Cholesky
	if chol.Factorize(s) && chol.Cond() <= MaxCond {
		if err := chol.SolveTo(x, b); err == nil {
			return x, nil
		}
	}

	var lu mat.LU
	lu.Factorize(s)
	if c := lu.Cond(); !wellConditioned(c) {
		return nil, &SingularMatrixError{Op: "SolveSym", Cond: c}
	}

	if err := lu.SolveTo(x, false, b); err != nil {
		return nil, &SingularMatrixError{Op: "SolveSym", Cond: lu.Cond()}
	}

	return x, nil
}

func wellConditioned(c float64) bool {
	return !math.IsNaN(c) && !math.IsInf(c, 0) && c <= MaxCond
}

// Trace returns the sum of diagonal elements of the square matrix a.
func Trace(a mat.Matrix) float64 {
	return mat.Trace(a)
}

// IsSymmetric returns true if a is square and |a[i,j]-a[j,i]| <= tol for all elements.
func IsSymmetric(a mat.Matrix, tol float64) bool {
	r, c := a.Dims()
	if r != c {
		return false
	}

	for i := 0; i < r; i++ {
		for j := i + 1; j < c; j++ {
			if !scalar.EqualWithinAbs(a.At(i, j), a.At(j, i), tol) {
				return false
			}
		}
	}

	return true
}

// IsPSD returns true if all eigenvalues of a are greater than or equal to -tol.
// It returns false if eigen decomposition of a fails.
func IsPSD(a mat.Symmetric, tol float64) bool {
	var eig mat.EigenSym
	if ok := eig.Factorize(a, false); !ok {
		return false
	}

	vals := eig.Values(nil)
	if len(vals) == 0 {
		return true
	}

	return floats.Min(vals) >= -tol
}
