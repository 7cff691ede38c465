// Package rts implements Rauch-Tung-Striebel fixed-interval smoother.
package rts

import (
	"fmt"

	filter "github.com/milosgajdos/go-kalman"
	"github.com/milosgajdos/go-kalman/estimate"
	"github.com/milosgajdos/go-kalman/kalman"
	"github.com/milosgajdos/go-kalman/matrix"
	"gonum.org/v1/gonum/mat"
)

// RTS is Rauch-Tung-Striebel smoother
type RTS struct {
	// f is state transition function
	f filter.Func
	// q is state noise a.k.a. process noise
	q filter.Noise
}

// New creates new RTS for the state transition function f and state noise q and returns it.
// Nil q means no state noise. Linear models are smoothed by passing their transition
// as filter.Func, nonlinear ones are linearized at every filtered estimate.
// It returns error if f is nil.
func New(f filter.Func, q filter.Noise) (*RTS, error) {
	if f == nil {
		return nil, fmt.Errorf("invalid transition function")
	}

	return &RTS{
		f: f,
		q: q,
	}, nil
}

// Smooth implements Rauch-Tung-Striebel smoothing algorithm.
// It accepts filtered estimates est ordered in time and returns smoothed estimates.
// The last smoothed estimate is the last filtered one.
// It returns error if est is empty, estimates have mismatched dimensions or
// the predicted covariance can not be inverted.
func (s *RTS) Smooth(est []filter.Estimate) ([]filter.Estimate, error) {
	if len(est) == 0 {
		return nil, fmt.Errorf("invalid estimates size: %d", len(est))
	}

	last := est[len(est)-1]
	n := last.Val().Len()

	q, err := kalman.Noise("rts: state noise", s.q, n)
	if err != nil {
		return nil, err
	}
	qCov := q.Cov()

	sx := make([]filter.Estimate, len(est))

	e, err := estimate.NewBaseWithCov(last.Val(), last.Cov())
	if err != nil {
		return nil, err
	}
	sx[len(est)-1] = e

	for k := len(est) - 2; k >= 0; k-- {
		xk, pk := est[k].Val(), est[k].Cov()
		if err := matrix.CheckVec("rts: estimate", xk, n); err != nil {
			return nil, fmt.Errorf("estimate %d: %w", k, err)
		}

		F, err := s.f.Jacobian(xk)
		if err != nil {
			return nil, fmt.Errorf("estimate %d: transition Jacobian failed: %w", k, err)
		}

		xPred, err := s.f.Eval(xk)
		if err != nil {
			return nil, fmt.Errorf("estimate %d: state propagation failed: %w", k, err)
		}
		if err := matrix.CheckVec("rts: propagated state", xPred, n); err != nil {
			return nil, fmt.Errorf("estimate %d: %w", k, err)
		}

		pPred, err := kalman.Propagate(F, pk, qCov)
		if err != nil {
			return nil, fmt.Errorf("estimate %d: %w", k, err)
		}

		// smoother gain C = Pk*F'*inv(P_(k+1|k)), solved as P_(k+1|k)*C' = F*Pk
		fp := &mat.Dense{}
		fp.Mul(F, pk)
		ct, err := matrix.SolveSym(pPred, fp)
		if err != nil {
			return nil, fmt.Errorf("estimate %d: smoother gain: %w", k, err)
		}
		c := matrix.Transpose(ct)

		// xk + C*(x_s(k+1) - x(k+1|k))
		dx := &mat.VecDense{}
		dx.SubVec(e.Val(), xPred)
		x := &mat.VecDense{}
		x.MulVec(c, dx)
		x.AddVec(xk, x)

		// Pk + C*(P_s(k+1) - P(k+1|k))*C'
		dp := &mat.Dense{}
		dp.Sub(e.Cov(), pPred)
		cov := &mat.Dense{}
		cov.Mul(c, dp)
		cov.Mul(cov, c.T())
		cov.Add(pk, cov)

		pSmooth, err := matrix.Symmetrize(cov)
		if err != nil {
			return nil, err
		}

		e, err = estimate.NewBaseWithCov(x, pSmooth)
		if err != nil {
			return nil, err
		}
		sx[k] = e
	}

	return sx, nil
}
