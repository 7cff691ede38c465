package noise

import (
	"fmt"
	"math"
	"time"

	"golang.org/x/exp/rand"

	"github.com/milosgajdos/go-kalman/matrix"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distmv"
)

// psdTol is the tolerance of negative eigenvalues of a singular covariance
const psdTol = 1e-12

// Gaussian is gaussian noise
type Gaussian struct {
	// dist is a multivariate normal distribution; nil if cov is singular
	dist *distmv.Normal
	// factor is a square root of singular cov used when dist is nil
	factor *mat.Dense
	// rnd draws samples when cov is singular
	rnd *rand.Rand
	// mean is Gaussian mean
	mean []float64
	// cov is Gaussian covariance
	cov *mat.SymDense
	// seed is random source seed; zero seeds from the clock
	seed uint64
}

// NewGaussian creates new Gaussian noise with given mean and covariance.
// The random source is seeded from the current time.
// It returns error if it fails to create Gaussian.
func NewGaussian(mean []float64, cov mat.Symmetric) (*Gaussian, error) {
	return NewGaussianSeeded(mean, cov, 0)
}

// NewGaussianSeeded creates new Gaussian noise with given mean and covariance
// whose samples are drawn from a random source seeded with seed.
// Zero seed seeds the source from the current time.
// Covariance must be positive semi-definite; singular covariance yields
// samples which do not vary along its null space.
// It returns error if it fails to create Gaussian.
func NewGaussianSeeded(mean []float64, cov mat.Symmetric, seed uint64) (*Gaussian, error) {
	if cov == nil || len(mean) != cov.SymmetricDim() {
		return nil, fmt.Errorf("invalid Gaussian noise dimensions: mean %d", len(mean))
	}

	m := make([]float64, len(mean))
	copy(m, mean)

	c := mat.NewSymDense(cov.SymmetricDim(), nil)
	c.CopySym(cov)

	g := &Gaussian{
		mean: m,
		cov:  c,
		seed: seed,
	}

	if err := g.Reset(); err != nil {
		return nil, err
	}

	return g, nil
}

// Sample generates a sample from Gaussian noise and returns it.
func (g *Gaussian) Sample() mat.Vector {
	if g.dist != nil {
		r := g.dist.Rand(nil)
		return mat.NewVecDense(len(r), r)
	}

	n := len(g.mean)
	norm := mat.NewVecDense(n, nil)
	for i := 0; i < n; i++ {
		norm.SetVec(i, g.rnd.NormFloat64())
	}

	sample := &mat.VecDense{}
	sample.MulVec(g.factor, norm)
	sample.AddVec(sample, mat.NewVecDense(n, g.mean))

	return sample
}

// Cov returns covariance matrix of Gaussian noise.
func (g *Gaussian) Cov() mat.Symmetric {
	cov := mat.NewSymDense(g.cov.SymmetricDim(), nil)
	cov.CopySym(g.cov)

	return cov
}

// Mean returns Gaussian mean.
func (g *Gaussian) Mean() []float64 {
	mean := make([]float64, len(g.mean))
	copy(mean, g.mean)

	return mean
}

// Reset resets Gaussian noise: seeded noise restarts its sample sequence,
// clock seeded noise is reseeded from the current time.
// It returns error if covariance is not positive semi-definite.
func (g *Gaussian) Reset() error {
	seed := g.seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	src := rand.New(rand.NewSource(seed))

	if dist, ok := distmv.NewNormal(g.mean, g.cov, src); ok {
		g.dist = dist
		return nil
	}

	if !matrix.IsPSD(g.cov, psdTol) {
		return fmt.Errorf("failed to create Gaussian noise: covariance is not positive semi-definite")
	}

	// Cholesky fails for singular cov so sample via its SVD factor U*sqrt(S)
	var svd mat.SVD
	if ok := svd.Factorize(g.cov, mat.SVDFull); !ok {
		return fmt.Errorf("failed to create Gaussian noise: SVD factorization failed")
	}

	U := &mat.Dense{}
	svd.UTo(U)
	vals := svd.Values(nil)
	for i := range vals {
		vals[i] = math.Sqrt(vals[i])
	}
	U.Mul(U, mat.NewDiagDense(len(vals), vals))

	g.dist = nil
	g.factor = U
	g.rnd = src

	return nil
}

// String implements the Stringer interface.
func (g *Gaussian) String() string {
	return fmt.Sprintf("Gaussian{\nMean=%v\nCov=%v\n}", g.mean, mat.Formatted(g.cov, mat.Prefix("    "), mat.Squeeze()))
}
