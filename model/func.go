package model

import (
	"fmt"

	"github.com/milosgajdos/go-kalman/matrix"
	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/mat"
)

// VecFunc is a vector valued function of a vector
type VecFunc func(x mat.Vector) mat.Vector

// JacFunc returns Jacobian of a vector function evaluated at x
type JacFunc func(x mat.Vector) mat.Matrix

// Func implements filter.Func
type Func struct {
	f   VecFunc
	jac JacFunc
	// Step is finite difference step used when no Jacobian function was given.
	// Zero means the default step of the central difference formula.
	Step float64
}

// NewFunc creates new Func from function f and its Jacobian jac and returns it.
// If jac is nil the Jacobian is approximated with central finite differences.
// It returns error if f is nil.
func NewFunc(f VecFunc, jac JacFunc) (*Func, error) {
	if f == nil {
		return nil, fmt.Errorf("invalid function: %v", f)
	}

	return &Func{
		f:   f,
		jac: jac,
	}, nil
}

// Eval evaluates the function at x
func (fn *Func) Eval(x mat.Vector) (mat.Vector, error) {
	y := fn.f(x)
	if y == nil {
		return nil, fmt.Errorf("function returned nil at %v", mat.Formatted(x.T()))
	}

	return y, nil
}

// Jacobian returns Jacobian matrix of the function evaluated at x
func (fn *Func) Jacobian(x mat.Vector) (mat.Matrix, error) {
	if fn.jac != nil {
		j := fn.jac(x)
		if j == nil {
			return nil, fmt.Errorf("jacobian returned nil at %v", mat.Formatted(x.T()))
		}
		return j, nil
	}

	y, err := fn.Eval(x)
	if err != nil {
		return nil, err
	}

	ny := y.Len()
	if ny == 0 {
		return nil, fmt.Errorf("function returned empty vector at %v", mat.Formatted(x.T()))
	}
	j := mat.NewDense(ny, x.Len(), nil)

	fd.Jacobian(j, func(out, xs []float64) {
		v := fn.f(mat.NewVecDense(len(xs), xs))
		for i := range out {
			out[i] = v.AtVec(i)
		}
	}, mat.Col(nil, 0, x), &fd.JacobianSettings{
		Formula: fd.Central,
		Step:    fn.Step,
	})

	return j, nil
}

// MatFunc is a linear function x -> M*x whose Jacobian is M
type MatFunc struct {
	M mat.Matrix
}

// Eval returns M*x
func (f *MatFunc) Eval(x mat.Vector) (mat.Vector, error) {
	return matrix.MulVec(f.M, x)
}

// Jacobian returns a copy of M
func (f *MatFunc) Jacobian(x mat.Vector) (mat.Matrix, error) {
	_, c := f.M.Dims()
	if err := matrix.CheckVec("MatFunc", x, c); err != nil {
		return nil, err
	}

	return mat.DenseCopyOf(f.M), nil
}
