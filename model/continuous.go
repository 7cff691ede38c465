package model

import (
	"fmt"

	mtx "github.com/milosgajdos/matrix"
	"github.com/milosgajdos/go-kalman/matrix"
	"gonum.org/v1/gonum/mat"
)

// number of trapezoidal integration nodes used by Discretize for singular A
const c2dNodes = 100

// Continuous is a linear continuous-time model of a dynamical system:
//
//	dx/dt = A*x + B*u
//	z = H*x
type Continuous struct {
	// A is system matrix
	A *mat.Dense
	// B is control matrix
	B *mat.Dense
	// H is observation matrix
	H *mat.Dense
}

// NewContinuous creates a linear continuous-time model and returns it.
// B can be nil if the system has no control input.
// It returns error if A is nil or not square, or if H is nil.
func NewContinuous(A, B, H *mat.Dense) (*Continuous, error) {
	if A == nil || H == nil {
		return nil, fmt.Errorf("system and observation matrices must be defined for a model")
	}

	r, _ := A.Dims()
	if err := matrix.CheckDims("A", A, r, r); err != nil {
		return nil, err
	}

	c := &Continuous{
		A: mat.DenseCopyOf(A),
		H: mat.DenseCopyOf(H),
	}

	if B != nil {
		if err := matrix.CheckDims("B", B, r, matrix.Any); err != nil {
			return nil, err
		}
		c.B = mat.DenseCopyOf(B)
	}

	return c, nil
}

// Discretize converts the model to a discrete-time model with sampling time dt.
//
//	F = exp(A*dt)
//	Bd = (F - I)*inv(A)*B
//
// If A is singular Bd is computed by integrating exp(A*t)*B over [0, dt]
// with the trapezoidal rule.
// See Discrete-Time Control Systems by Katsuhiko Ogata, Eq. (5-73) and (5-74).
func (c *Continuous) Discretize(dt float64) (*Linear, error) {
	if dt <= 0 {
		return nil, fmt.Errorf("invalid sampling time: %v", dt)
	}

	nx, _ := c.A.Dims()

	adt := &mat.Dense{}
	adt.Scale(dt, c.A)
	F := &mat.Dense{}
	F.Exp(adt)

	if c.B == nil {
		return NewLinear(F, nil, c.H)
	}

	eye, err := mtx.NewDenseValIdentity(nx, 1.0)
	if err != nil {
		return nil, err
	}

	Bd := &mat.Dense{}

	if aInv, err := matrix.Inverse(c.A); err == nil {
		fi := &mat.Dense{}
		fi.Sub(F, eye)
		aux := &mat.Dense{}
		aux.Mul(fi, aInv)
		Bd.Mul(aux, c.B)

		return NewLinear(F, Bd, c.H)
	}

	sum := mat.NewDense(nx, nx, nil)
	at := &mat.Dense{}
	eat := &mat.Dense{}
	h := dt / float64(c2dNodes-1)
	for i := 0; i < c2dNodes; i++ {
		at.Scale(h*float64(i), c.A)
		eat.Exp(at)
		w := h
		if i == 0 || i == c2dNodes-1 {
			w = h / 2
		}
		eat.Scale(w, eat)
		sum.Add(sum, eat)
	}
	Bd.Mul(sum, c.B)

	return NewLinear(F, Bd, c.H)
}
