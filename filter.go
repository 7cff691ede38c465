package filter

import "gonum.org/v1/gonum/mat"

// Filter is a recursive state estimator of a dynamical system.
type Filter interface {
	// Predict advances the state estimate one step in time
	Predict() error
	// Update corrects the state estimate using measurement z
	Update(z mat.Vector) error
	// State returns current state estimate
	State() mat.Vector
	// Cov returns current state covariance
	Cov() mat.Symmetric
}

// Func is a vector function together with its first order linearization.
type Func interface {
	// Eval evaluates the function at x
	Eval(x mat.Vector) (mat.Vector, error)
	// Jacobian returns the Jacobian matrix of the function evaluated at x
	Jacobian(x mat.Vector) (mat.Matrix, error)
}

// LinearModel is a linear, discrete-time model of a dynamical system:
//
//	x[k+1] = F*x[k] + B*u[k]
//	z[k] = H*x[k]
type LinearModel interface {
	// Dims returns state (nx), input (nu) and output (ny) dimensions
	Dims() (nx, nu, ny int)
	// TransitionMatrix returns state transition matrix F
	TransitionMatrix() mat.Matrix
	// ControlMatrix returns control matrix B or nil if the model has no input
	ControlMatrix() mat.Matrix
	// ObservationMatrix returns observation matrix H
	ObservationMatrix() mat.Matrix
}

// InitCond is initial state condition of the filter
type InitCond interface {
	// State returns initial filter state
	State() mat.Vector
	// Cov returns initial state covariance
	Cov() mat.Symmetric
}

// Estimate is dynamical system filter estimate
type Estimate interface {
	// Val returns estimate value
	Val() mat.Vector
	// Cov returns estimate covariance
	Cov() mat.Symmetric
}

// Noise is dynamical system noise
type Noise interface {
	// Mean returns noise mean
	Mean() []float64
	// Cov returns covariance matrix of the noise
	Cov() mat.Symmetric
	// Sample returns a sample of the noise
	Sample() mat.Vector
	// Reset resets the noise
	Reset() error
}

// Smoother is a fixed-interval filter smoother
type Smoother interface {
	// Smooth computes smoothed estimates from filtered estimates est
	Smooth(est []Estimate) ([]Estimate, error)
}
