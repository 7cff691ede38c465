// Package sim simulates noisy dynamical systems used to exercise the filters.
package sim

import (
	"fmt"

	filter "github.com/milosgajdos/go-kalman"
	"github.com/milosgajdos/go-kalman/matrix"
	"github.com/milosgajdos/go-kalman/noise"
	"gonum.org/v1/gonum/mat"
)

// System is a simulated dynamical system:
//
//	x[k+1] = f(x[k]) + w[k]
//	z[k+1] = h(x[k+1]) + v[k]
//
// where w and v are state and output noise samples.
type System struct {
	// f is state transition function
	f filter.Func
	// h is observation function
	h filter.Func
	// q is state noise
	q filter.Noise
	// r is output noise
	r filter.Noise
	// x is true system state
	x *mat.VecDense
}

// New creates new System starting in state x0 and returns it.
// Nil q or r means the system is simulated without the respective noise.
// It returns error if f or h are nil, h fails to observe x0 or
// the noise dimensions do not match the state or output dimensions.
func New(f, h filter.Func, x0 mat.Vector, q, r filter.Noise) (*System, error) {
	if f == nil || h == nil {
		return nil, fmt.Errorf("invalid system functions")
	}

	if x0 == nil || x0.Len() == 0 {
		return nil, &matrix.DimensionError{Op: "sim: initial state", Want: [2]int{matrix.Any, 1}}
	}

	y, err := h.Eval(x0)
	if err != nil {
		return nil, fmt.Errorf("sim: failed to observe initial state: %w", err)
	}
	if y == nil || y.Len() == 0 {
		return nil, &matrix.DimensionError{Op: "sim: output", Want: [2]int{matrix.Any, 1}}
	}

	q, err = checkNoise("sim: state noise", q, x0.Len())
	if err != nil {
		return nil, err
	}

	r, err = checkNoise("sim: output noise", r, y.Len())
	if err != nil {
		return nil, err
	}

	x := &mat.VecDense{}
	x.CloneFromVec(x0)

	return &System{
		f: f,
		h: h,
		q: q,
		r: r,
		x: x,
	}, nil
}

func checkNoise(op string, nz filter.Noise, n int) (filter.Noise, error) {
	if nz == nil {
		return noise.NewZero(n)
	}

	if d := nz.Cov().SymmetricDim(); d != n {
		return nil, &matrix.DimensionError{Op: op, Got: [2]int{d, d}, Want: [2]int{n, n}}
	}

	return nz, nil
}

// Step advances the system state by one step and returns its noisy measurement.
// It returns error if the system functions fail.
func (s *System) Step() (mat.Vector, error) {
	x, err := s.f.Eval(s.x)
	if err != nil {
		return nil, fmt.Errorf("sim: state propagation failed: %w", err)
	}
	if err := matrix.CheckVec("sim: propagated state", x, s.x.Len()); err != nil {
		return nil, err
	}

	xNext := &mat.VecDense{}
	xNext.AddVec(x, s.q.Sample())

	y, err := s.h.Eval(xNext)
	if err != nil {
		return nil, fmt.Errorf("sim: failed to observe state: %w", err)
	}
	if err := matrix.CheckVec("sim: output", y, s.r.Cov().SymmetricDim()); err != nil {
		return nil, err
	}

	z := &mat.VecDense{}
	z.AddVec(y, s.r.Sample())

	s.x = xNext

	return z, nil
}

// Run advances the system by n steps and returns the measurements.
// It returns error if any of the steps fails.
func (s *System) Run(n int) ([]mat.Vector, error) {
	if n < 0 {
		return nil, fmt.Errorf("invalid number of steps: %d", n)
	}

	meas := make([]mat.Vector, 0, n)
	for i := 0; i < n; i++ {
		z, err := s.Step()
		if err != nil {
			return nil, fmt.Errorf("step %d: %w", i, err)
		}
		meas = append(meas, z)
	}

	return meas, nil
}

// State returns true system state
func (s *System) State() mat.Vector {
	x := &mat.VecDense{}
	x.CloneFromVec(s.x)

	return x
}

// Reset moves the system to state x and resets its noise.
// It returns error if x has invalid dimension or the noise fails to reset.
func (s *System) Reset(x mat.Vector) error {
	if err := matrix.CheckVec("sim: state", x, s.x.Len()); err != nil {
		return err
	}

	if err := s.q.Reset(); err != nil {
		return err
	}

	if err := s.r.Reset(); err != nil {
		return err
	}

	s.x.CopyVec(x)

	return nil
}
