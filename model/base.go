package model

import (
	"fmt"

	filter "github.com/milosgajdos/go-kalman"
	"github.com/milosgajdos/go-kalman/matrix"
	"gonum.org/v1/gonum/mat"
)

// InitCond implements filter.InitCond
type InitCond struct {
	state *mat.VecDense
	cov   *mat.SymDense
}

// NewInitCond creates new InitCond and returns it
func NewInitCond(state mat.Vector, cov mat.Symmetric) *InitCond {
	s := &mat.VecDense{}
	s.CloneFromVec(state)

	c := mat.NewSymDense(cov.SymmetricDim(), nil)
	c.CopySym(cov)

	return &InitCond{
		state: s,
		cov:   c,
	}
}

// State returns initial state
func (c *InitCond) State() mat.Vector {
	state := mat.NewVecDense(c.state.Len(), nil)
	state.CopyVec(c.state)

	return state
}

// Cov returns initial covariance
func (c *InitCond) Cov() mat.Symmetric {
	cov := mat.NewSymDense(c.cov.SymmetricDim(), nil)
	cov.CopySym(c.cov)

	return cov
}

// Linear is a linear, discrete-time model of a dynamical system:
//
//	x[k+1] = F*x[k] + B*u[k]
//	z[k] = H*x[k]
type Linear struct {
	// F is state transition matrix
	F *mat.Dense
	// B is control matrix
	B *mat.Dense
	// H is observation matrix
	H *mat.Dense
}

// NewLinear creates a linear model and returns it.
// B can be nil if the system has no control input.
// It returns error if either F or H is nil.
func NewLinear(F, B, H *mat.Dense) (*Linear, error) {
	if F == nil || H == nil {
		return nil, fmt.Errorf("transition and observation matrices must be defined for a model")
	}

	l := &Linear{
		F: mat.DenseCopyOf(F),
		H: mat.DenseCopyOf(H),
	}

	if B != nil {
		l.B = mat.DenseCopyOf(B)
	}

	return l, nil
}

// Dims returns state (nx), input (nu) and output (ny) vector lengths.
func (l *Linear) Dims() (nx, nu, ny int) {
	_, nx = l.F.Dims()
	if l.B != nil {
		_, nu = l.B.Dims()
	}
	ny, _ = l.H.Dims()

	return nx, nu, ny
}

// TransitionMatrix returns state transition matrix F
func (l *Linear) TransitionMatrix() mat.Matrix { return l.F }

// ControlMatrix returns control matrix B or nil
func (l *Linear) ControlMatrix() mat.Matrix {
	if l.B == nil {
		return nil
	}
	return l.B
}

// ObservationMatrix returns observation matrix H
func (l *Linear) ObservationMatrix() mat.Matrix { return l.H }

// Propagate returns the next state F*x + B*u.
// u is ignored if it is nil or the model has no control matrix.
func (l *Linear) Propagate(x, u mat.Vector) (mat.Vector, error) {
	out, err := matrix.MulVec(l.F, x)
	if err != nil {
		return nil, fmt.Errorf("invalid state vector: %w", err)
	}

	if u != nil && l.B != nil {
		bu, err := matrix.MulVec(l.B, u)
		if err != nil {
			return nil, fmt.Errorf("invalid input vector: %w", err)
		}
		out.AddVec(out, bu)
	}

	return out, nil
}

// Observe returns the model output H*x
func (l *Linear) Observe(x mat.Vector) (mat.Vector, error) {
	out, err := matrix.MulVec(l.H, x)
	if err != nil {
		return nil, fmt.Errorf("invalid state vector: %w", err)
	}

	return out, nil
}

// Transition returns state transition function x -> F*x
func (l *Linear) Transition() filter.Func {
	return &MatFunc{M: l.F}
}

// Observation returns observation function x -> H*x
func (l *Linear) Observation() filter.Func {
	return &MatFunc{M: l.H}
}
