package kf

import (
	"fmt"

	filter "github.com/milosgajdos/go-kalman"
	"github.com/milosgajdos/go-kalman/estimate"
	"github.com/milosgajdos/go-kalman/kalman"
	"github.com/milosgajdos/go-kalman/matrix"
	"gonum.org/v1/gonum/mat"
)

// KF is Kalman Filter
type KF struct {
	// m is KF system model
	m filter.LinearModel
	// f is state transition matrix
	f *mat.Dense
	// b is control matrix; nil if the model has no input
	b *mat.Dense
	// h is observation matrix
	h *mat.Dense
	// q is state noise a.k.a. process noise
	q filter.Noise
	// r is output noise a.k.a. measurement noise
	r filter.Noise
	// x is KF state estimate
	x *mat.VecDense
	// p is the KF covariance matrix
	p *mat.SymDense
}

// New creates new KF and returns it.
// It accepts the following parameters:
//   - m:  linear dynamical system model
//   - ic: initial condition of the filter
//   - q:  state noise a.k.a. process noise; nil means no noise
//   - r:  output noise a.k.a. measurement noise; nil means no noise
//
// It returns DimensionError if either of the following conditions is met:
//   - initial state is empty or initial covariance does not match it
//   - model matrices do not match the state or have an empty output
//   - state or output noise covariance does not match the model dimensions
func New(m filter.LinearModel, ic filter.InitCond, q, r filter.Noise) (*KF, error) {
	if m == nil || ic == nil {
		return nil, fmt.Errorf("invalid model or initial condition")
	}

	x0 := ic.State()
	if x0 == nil || x0.Len() == 0 {
		return nil, &matrix.DimensionError{Op: "kf: initial state", Want: [2]int{matrix.Any, 1}}
	}
	nx := x0.Len()

	p0 := ic.Cov()
	if p0 == nil {
		return nil, &matrix.DimensionError{Op: "kf: initial covariance", Want: [2]int{nx, nx}}
	}
	if err := matrix.CheckDims("kf: initial covariance", p0, nx, nx); err != nil {
		return nil, err
	}

	F := m.TransitionMatrix()
	if F == nil {
		return nil, &matrix.DimensionError{Op: "kf: transition matrix", Want: [2]int{nx, nx}}
	}
	if err := matrix.CheckDims("kf: transition matrix", F, nx, nx); err != nil {
		return nil, err
	}

	H := m.ObservationMatrix()
	if H == nil {
		return nil, &matrix.DimensionError{Op: "kf: observation matrix", Want: [2]int{matrix.Any, nx}}
	}
	if err := matrix.CheckDims("kf: observation matrix", H, matrix.Any, nx); err != nil {
		return nil, err
	}
	ny, _ := H.Dims()

	var b *mat.Dense
	if B := m.ControlMatrix(); B != nil {
		if err := matrix.CheckDims("kf: control matrix", B, nx, matrix.Any); err != nil {
			return nil, err
		}
		b = mat.DenseCopyOf(B)
	}

	q, err := kalman.Noise("kf: state noise", q, nx)
	if err != nil {
		return nil, err
	}

	r, err = kalman.Noise("kf: output noise", r, ny)
	if err != nil {
		return nil, err
	}

	x := &mat.VecDense{}
	x.CloneFromVec(x0)

	p := mat.NewSymDense(nx, nil)
	p.CopySym(p0)

	return &KF{
		m: m,
		f: mat.DenseCopyOf(F),
		b: b,
		h: mat.DenseCopyOf(H),
		q: q,
		r: r,
		x: x,
		p: p,
	}, nil
}

// Predict propagates KF state and its covariance to the next step.
// It returns error if it fails to propagate the covariance.
func (k *KF) Predict() error {
	x := &mat.VecDense{}
	x.MulVec(k.f, k.x)

	return k.predict(x)
}

// PredictCtl propagates KF state to the next step given control input u.
// It returns DimensionError if the model has no control matrix or u has invalid dimension.
func (k *KF) PredictCtl(u mat.Vector) error {
	if k.b == nil {
		return &matrix.DimensionError{Op: "kf: control matrix", Want: [2]int{k.x.Len(), matrix.Any}}
	}

	_, nu := k.b.Dims()
	if u == nil {
		return &matrix.DimensionError{Op: "kf: control input", Want: [2]int{nu, 1}}
	}

	if err := matrix.CheckVec("kf: control input", u, nu); err != nil {
		return err
	}

	x := &mat.VecDense{}
	x.MulVec(k.f, k.x)

	bu := &mat.VecDense{}
	bu.MulVec(k.b, u)
	x.AddVec(x, bu)

	return k.predict(x)
}

func (k *KF) predict(x *mat.VecDense) error {
	p, err := kalman.Propagate(k.f, k.p, k.q.Cov())
	if err != nil {
		return fmt.Errorf("kf: covariance propagation failed: %w", err)
	}

	k.x = x
	k.p = p

	return nil
}

// Update corrects KF state using the measurement z.
// It returns DimensionError if z has invalid dimension and
// SingularMatrixError if the innovation covariance can not be inverted.
// KF state is left unchanged if Update fails.
func (k *KF) Update(z mat.Vector) error {
	ny, _ := k.h.Dims()
	if err := matrix.CheckVec("kf: measurement", z, ny); err != nil {
		return err
	}

	// innovation vector
	inn := &mat.VecDense{}
	inn.MulVec(k.h, k.x)
	inn.SubVec(z, inn)

	x, p, err := kalman.Correct(k.x, k.p, inn, k.h, k.r.Cov())
	if err != nil {
		return fmt.Errorf("kf: update failed: %w", err)
	}

	k.x = x
	k.p = p

	return nil
}

// State returns KF state estimate
func (k *KF) State() mat.Vector {
	x := &mat.VecDense{}
	x.CloneFromVec(k.x)

	return x
}

// Cov returns KF covariance
func (k *KF) Cov() mat.Symmetric {
	cov := mat.NewSymDense(k.p.SymmetricDim(), nil)
	cov.CopySym(k.p)

	return cov
}

// Output returns output estimated from the current state: H*x
func (k *KF) Output() (mat.Vector, error) {
	return matrix.MulVec(k.h, k.x)
}

// Estimate returns current KF estimate
func (k *KF) Estimate() (filter.Estimate, error) {
	return estimate.NewBaseWithCov(k.x, k.p)
}

// Model returns KF model
func (k *KF) Model() filter.LinearModel {
	return k.m
}

// StateNoise returns state noise
func (k *KF) StateNoise() filter.Noise {
	return k.q
}

// OutputNoise returns output noise
func (k *KF) OutputNoise() filter.Noise {
	return k.r
}
