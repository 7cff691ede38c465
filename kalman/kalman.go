// Package kalman provides the covariance algebra shared by Kalman filters.
package kalman

import (
	"fmt"

	filter "github.com/milosgajdos/go-kalman"
	"github.com/milosgajdos/go-kalman/matrix"
	"github.com/milosgajdos/go-kalman/noise"
	"gonum.org/v1/gonum/mat"
)

// Kalman is Kalman Filter
type Kalman interface {
	// filter.Filter is dynamical system filter
	filter.Filter
	// Output returns the output estimated from the current state
	Output() (mat.Vector, error)
	// Estimate returns a snapshot of the current state estimate
	Estimate() (filter.Estimate, error)
}

// Noise returns nz if its covariance is n x n or zero noise of size n if nz is nil.
// It returns DimensionError if nz covariance has wrong dimensions.
func Noise(op string, nz filter.Noise, n int) (filter.Noise, error) {
	if nz == nil {
		return noise.NewZero(n)
	}

	cov := nz.Cov()
	if cov == nil {
		return nil, &matrix.DimensionError{Op: op, Want: [2]int{n, n}}
	}

	if d := cov.SymmetricDim(); d != n {
		return nil, &matrix.DimensionError{Op: op, Got: [2]int{d, d}, Want: [2]int{n, n}}
	}

	return nz, nil
}

// Propagate returns propagated covariance F*P*F' + Q.
// It returns DimensionError if F, P and Q dimensions do not match.
func Propagate(f mat.Matrix, p, q mat.Symmetric) (*mat.SymDense, error) {
	n := p.SymmetricDim()
	if err := matrix.CheckDims("propagate: transition", f, n, n); err != nil {
		return nil, err
	}

	if err := matrix.CheckDims("propagate: process noise", q, n, n); err != nil {
		return nil, err
	}

	fp := &mat.Dense{}
	fp.Mul(f, p)

	fpf := &mat.Dense{}
	fpf.Mul(fp, f.T())
	fpf.Add(fpf, q)

	return matrix.Symmetrize(fpf)
}

// Correct corrects state x with covariance p given innovation y, observation
// matrix h and measurement noise covariance r. It returns corrected state and
// its covariance computed in Joseph form (I-K*H)*P*(I-K*H)' + K*R*K' with
// the gain K = P*H'*inv(H*P*H' + R). Neither x nor p is modified.
// It returns DimensionError if the dimensions do not match and
// SingularMatrixError if the innovation covariance can not be inverted.
func Correct(x mat.Vector, p mat.Symmetric, y mat.Vector, h mat.Matrix, r mat.Symmetric) (*mat.VecDense, *mat.SymDense, error) {
	n, m := x.Len(), y.Len()

	if err := matrix.CheckDims("correct: covariance", p, n, n); err != nil {
		return nil, nil, err
	}

	if err := matrix.CheckDims("correct: observation", h, m, n); err != nil {
		return nil, nil, err
	}

	if err := matrix.CheckDims("correct: measurement noise", r, m, m); err != nil {
		return nil, nil, err
	}

	// P*H'
	pht := &mat.Dense{}
	pht.Mul(p, h.T())

	// innovation covariance: H*P*H' + R
	hph := &mat.Dense{}
	hph.Mul(h, pht)
	hph.Add(hph, r)

	s, err := matrix.Symmetrize(hph)
	if err != nil {
		return nil, nil, err
	}

	// S is symmetric so S*K' = H*P yields the gain without explicit inverse
	kt, err := matrix.SolveSym(s, pht.T())
	if err != nil {
		return nil, nil, fmt.Errorf("kalman gain: %w", err)
	}
	gain := matrix.Transpose(kt)

	corr := &mat.VecDense{}
	corr.MulVec(gain, y)

	xc := &mat.VecDense{}
	xc.AddVec(x, corr)

	// I - K*H
	a := &mat.Dense{}
	a.Mul(gain, h)
	a.Sub(matrix.Identity(n), a)

	apa := &mat.Dense{}
	apa.Mul(a, p)
	apa.Mul(apa, a.T())

	// K*R*K'
	krk := &mat.Dense{}
	krk.Mul(gain, r)
	krk.Mul(krk, gain.T())

	apa.Add(apa, krk)

	pc, err := matrix.Symmetrize(apa)
	if err != nil {
		return nil, nil, err
	}

	return xc, pc, nil
}
