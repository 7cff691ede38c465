package ekf

import (
	"fmt"

	filter "github.com/milosgajdos/go-kalman"
	"github.com/milosgajdos/go-kalman/estimate"
	"github.com/milosgajdos/go-kalman/kalman"
	"github.com/milosgajdos/go-kalman/matrix"
	"gonum.org/v1/gonum/mat"
)

// EKF is Extended Kalman Filter
type EKF struct {
	// f is state transition function
	f filter.Func
	// h is observation function
	h filter.Func
	// q is state noise a.k.a. process noise
	q filter.Noise
	// r is output noise a.k.a. measurement noise
	r filter.Noise
	// ny is output dimension
	ny int
	// x is EKF state estimate
	x *mat.VecDense
	// p is the EKF covariance matrix
	p *mat.SymDense
}

// New creates new EKF and returns it.
// It accepts the following parameters:
//   - f:  state transition function and its Jacobian
//   - h:  observation function and its Jacobian
//   - ic: initial condition of the filter
//   - q:  state a.k.a. process noise; nil means no noise
//   - r:  output a.k.a. measurement noise; nil means no noise
//
// Output dimension is the dimension of h evaluated at the initial state.
// It returns error if either of the following conditions is met:
//   - f or h is nil or h fails to evaluate at the initial state
//   - initial state is empty or initial covariance does not match it
//   - state or output noise covariance does not match the model dimensions
func New(f, h filter.Func, ic filter.InitCond, q, r filter.Noise) (*EKF, error) {
	if f == nil || h == nil || ic == nil {
		return nil, fmt.Errorf("invalid model functions or initial condition")
	}

	x0 := ic.State()
	if x0 == nil || x0.Len() == 0 {
		return nil, &matrix.DimensionError{Op: "ekf: initial state", Want: [2]int{matrix.Any, 1}}
	}
	nx := x0.Len()

	p0 := ic.Cov()
	if p0 == nil {
		return nil, &matrix.DimensionError{Op: "ekf: initial covariance", Want: [2]int{nx, nx}}
	}
	if err := matrix.CheckDims("ekf: initial covariance", p0, nx, nx); err != nil {
		return nil, err
	}

	y0, err := h.Eval(x0)
	if err != nil {
		return nil, fmt.Errorf("ekf: failed to observe initial state: %w", err)
	}
	if y0 == nil || y0.Len() == 0 {
		return nil, &matrix.DimensionError{Op: "ekf: output", Want: [2]int{matrix.Any, 1}}
	}
	ny := y0.Len()

	q, err = kalman.Noise("ekf: state noise", q, nx)
	if err != nil {
		return nil, err
	}

	r, err = kalman.Noise("ekf: output noise", r, ny)
	if err != nil {
		return nil, err
	}

	x := &mat.VecDense{}
	x.CloneFromVec(x0)

	p := mat.NewSymDense(nx, nil)
	p.CopySym(p0)

	return &EKF{
		f:  f,
		h:  h,
		q:  q,
		r:  r,
		ny: ny,
		x:  x,
		p:  p,
	}, nil
}

// Predict propagates EKF state to the next step through the transition function.
// Covariance is propagated using the transition Jacobian evaluated at the current state.
// It returns error if the transition function or its Jacobian fail or return invalid dimensions.
// EKF state is left unchanged if Predict fails.
func (k *EKF) Predict() error {
	nx := k.x.Len()

	F, err := k.f.Jacobian(k.x)
	if err != nil {
		return fmt.Errorf("ekf: transition Jacobian failed: %w", err)
	}
	if F == nil {
		return &matrix.DimensionError{Op: "ekf: transition Jacobian", Want: [2]int{nx, nx}}
	}
	if err := matrix.CheckDims("ekf: transition Jacobian", F, nx, nx); err != nil {
		return err
	}

	xNext, err := k.f.Eval(k.x)
	if err != nil {
		return fmt.Errorf("ekf: state propagation failed: %w", err)
	}
	if err := matrix.CheckVec("ekf: propagated state", xNext, nx); err != nil {
		return err
	}

	p, err := kalman.Propagate(F, k.p, k.q.Cov())
	if err != nil {
		return fmt.Errorf("ekf: covariance propagation failed: %w", err)
	}

	x := &mat.VecDense{}
	x.CloneFromVec(xNext)

	k.x = x
	k.p = p

	return nil
}

// Update corrects EKF state using the measurement z.
// Observation function is linearized at the current state.
// It returns DimensionError if z or the observation function results have invalid
// dimensions and SingularMatrixError if the innovation covariance can not be inverted.
// EKF state is left unchanged if Update fails.
func (k *EKF) Update(z mat.Vector) error {
	nx := k.x.Len()

	if err := matrix.CheckVec("ekf: measurement", z, k.ny); err != nil {
		return err
	}

	y, err := k.h.Eval(k.x)
	if err != nil {
		return fmt.Errorf("ekf: failed to observe state: %w", err)
	}
	if err := matrix.CheckVec("ekf: observed output", y, k.ny); err != nil {
		return err
	}

	H, err := k.h.Jacobian(k.x)
	if err != nil {
		return fmt.Errorf("ekf: observation Jacobian failed: %w", err)
	}
	if H == nil {
		return &matrix.DimensionError{Op: "ekf: observation Jacobian", Want: [2]int{k.ny, nx}}
	}
	if err := matrix.CheckDims("ekf: observation Jacobian", H, k.ny, nx); err != nil {
		return err
	}

	// innovation vector
	inn := &mat.VecDense{}
	inn.SubVec(z, y)

	x, p, err := kalman.Correct(k.x, k.p, inn, H, k.r.Cov())
	if err != nil {
		return fmt.Errorf("ekf: update failed: %w", err)
	}

	k.x = x
	k.p = p

	return nil
}

// State returns EKF state estimate
func (k *EKF) State() mat.Vector {
	x := &mat.VecDense{}
	x.CloneFromVec(k.x)

	return x
}

// Cov returns EKF covariance
func (k *EKF) Cov() mat.Symmetric {
	cov := mat.NewSymDense(k.p.SymmetricDim(), nil)
	cov.CopySym(k.p)

	return cov
}

// Output returns output estimated from the current state
func (k *EKF) Output() (mat.Vector, error) {
	return k.h.Eval(k.x)
}

// Estimate returns current EKF estimate
func (k *EKF) Estimate() (filter.Estimate, error) {
	return estimate.NewBaseWithCov(k.x, k.p)
}

// Transition returns EKF state transition function
func (k *EKF) Transition() filter.Func {
	return k.f
}

// Observation returns EKF observation function
func (k *EKF) Observation() filter.Func {
	return k.h
}

// StateNoise returns state noise
func (k *EKF) StateNoise() filter.Noise {
	return k.q
}

// OutputNoise returns output noise
func (k *EKF) OutputNoise() filter.Noise {
	return k.r
}
