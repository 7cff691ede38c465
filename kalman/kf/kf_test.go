package kf

import (
	"math"
	"os"
	"testing"

	filter "github.com/milosgajdos/go-kalman"
	"github.com/milosgajdos/go-kalman/matrix"
	"github.com/milosgajdos/go-kalman/model"
	"github.com/milosgajdos/go-kalman/noise"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

type invalidModel struct {
	filter.LinearModel
	f mat.Matrix
}

func (m *invalidModel) TransitionMatrix() mat.Matrix {
	return m.f
}

var (
	okModel *model.Linear
	ic      *model.InitCond
	q       filter.Noise
	r       filter.Noise
	u       *mat.VecDense
	z       *mat.VecDense
)

func setup() {
	u = mat.NewVecDense(1, []float64{-1.0})
	z = mat.NewVecDense(1, []float64{1.05})

	// initial condition: position and velocity
	initState := mat.NewVecDense(2, []float64{0.0, 1.0})
	initCov := mat.NewSymDense(2, []float64{1, 0, 0, 1})
	ic = model.NewInitCond(initState, initCov)

	// state and output noise
	q, _ = noise.NewGaussian([]float64{0, 0}, mat.NewSymDense(2, []float64{1e-4, 0, 0, 1e-4}))
	r, _ = noise.NewGaussian([]float64{0}, mat.NewSymDense(1, []float64{0.1}))

	F := mat.NewDense(2, 2, []float64{1.0, 1.0, 0.0, 1.0})
	B := mat.NewDense(2, 1, []float64{0.5, 1.0})
	H := mat.NewDense(1, 2, []float64{1.0, 0.0})

	okModel, _ = model.NewLinear(F, B, H)
}

func TestMain(m *testing.M) {
	// set up tests
	setup()
	// run the tests
	retCode := m.Run()
	// call with result of m.Run()
	os.Exit(retCode)
}

func TestKFNew(t *testing.T) {
	assert := assert.New(t)

	f, err := New(okModel, ic, q, r)
	assert.NoError(err)
	assert.NotNil(f)

	var dimErr *matrix.DimensionError

	// invalid model: non-square transition matrix
	badModel := &invalidModel{LinearModel: okModel, f: mat.NewDense(2, 3, nil)}
	f, err = New(badModel, ic, q, r)
	assert.Nil(f)
	assert.ErrorAs(err, &dimErr)

	// invalid initial condition
	badIC := model.NewInitCond(mat.NewVecDense(2, nil), mat.NewSymDense(3, nil))
	f, err = New(okModel, badIC, q, r)
	assert.Nil(f)
	assert.ErrorAs(err, &dimErr)

	// invalid state noise dimension
	_q, _ := noise.NewZero(20)
	f, err = New(okModel, ic, _q, r)
	assert.Nil(f)
	assert.ErrorAs(err, &dimErr)

	// invalid output noise dimension
	_r, _ := noise.NewZero(20)
	f, err = New(okModel, ic, q, _r)
	assert.Nil(f)
	assert.ErrorAs(err, &dimErr)

	// zero [state and output] noise
	f, err = New(okModel, ic, nil, nil)
	assert.NotNil(f)
	assert.NoError(err)
	assert.Equal(0.0, mat.Trace(f.StateNoise().Cov()))
	assert.Equal(0.0, mat.Trace(f.OutputNoise().Cov()))
}

func TestKFScenario(t *testing.T) {
	assert := assert.New(t)

	f, err := New(okModel, ic, q, r)
	require.NoError(t, err)

	err = f.Predict()
	assert.NoError(err)
	assert.InDelta(1.0, f.State().AtVec(0), 1e-12)
	assert.InDelta(1.0, f.State().AtVec(1), 1e-12)

	err = f.Update(z)
	assert.NoError(err)
	pos := f.State().AtVec(0)
	assert.Greater(pos, 1.0)
	assert.Less(pos, 1.05)

	// P = F*F' + Q, S = P[0][0] + R
	p00 := 2 + 1e-4
	assert.InDelta(1+0.05*p00/(p00+0.1), pos, 1e-12)

	out, err := f.Output()
	assert.NoError(err)
	assert.InDelta(pos, out.AtVec(0), 1e-12)

	est, err := f.Estimate()
	assert.NoError(err)
	assert.True(mat.Equal(f.State(), est.Val()))
	assert.True(mat.Equal(f.Cov(), est.Cov()))
}

func TestKFPredictCtl(t *testing.T) {
	assert := assert.New(t)

	f, err := New(okModel, ic, nil, nil)
	require.NoError(t, err)

	err = f.PredictCtl(u)
	assert.NoError(err)
	// F*x + B*u
	assert.InDelta(0.5, f.State().AtVec(0), 1e-12)
	assert.InDelta(0.0, f.State().AtVec(1), 1e-12)

	var dimErr *matrix.DimensionError
	err = f.PredictCtl(mat.NewVecDense(3, nil))
	assert.ErrorAs(err, &dimErr)
	assert.InDelta(0.5, f.State().AtVec(0), 1e-12)

	err = f.PredictCtl(nil)
	assert.ErrorAs(err, &dimErr)

	// model without control matrix
	noCtl, err := model.NewLinear(mat.NewDense(1, 1, []float64{1}), nil, mat.NewDense(1, 1, []float64{1}))
	require.NoError(t, err)
	icNoCtl := model.NewInitCond(mat.NewVecDense(1, []float64{0}), mat.NewSymDense(1, []float64{1}))
	f, err = New(noCtl, icNoCtl, nil, nil)
	require.NoError(t, err)

	err = f.PredictCtl(mat.NewVecDense(1, []float64{1}))
	assert.ErrorAs(err, &dimErr)
}

func TestKFUpdateInvalid(t *testing.T) {
	assert := assert.New(t)

	f, err := New(okModel, ic, q, r)
	require.NoError(t, err)

	x := f.State()
	p := f.Cov()

	// invalid measurement vector
	var dimErr *matrix.DimensionError
	err = f.Update(mat.NewVecDense(3, nil))
	assert.ErrorAs(err, &dimErr)

	err = f.Update(nil)
	assert.ErrorAs(err, &dimErr)

	assert.True(mat.Equal(x, f.State()))
	assert.True(mat.Equal(p, f.Cov()))
}

func TestKFUpdateSingular(t *testing.T) {
	assert := assert.New(t)

	zeroIC := model.NewInitCond(mat.NewVecDense(2, []float64{1, 2}), mat.NewSymDense(2, nil))
	f, err := New(okModel, zeroIC, nil, nil)
	require.NoError(t, err)

	var singErr *matrix.SingularMatrixError
	err = f.Update(z)
	assert.ErrorAs(err, &singErr)

	assert.Equal(1.0, f.State().AtVec(0))
	assert.Equal(2.0, f.State().AtVec(1))
}

func TestKFExactRecovery(t *testing.T) {
	assert := assert.New(t)

	eye := mat.NewDense(2, 2, []float64{1, 0, 0, 1})
	m, err := model.NewLinear(eye, nil, eye)
	require.NoError(t, err)

	ic0 := model.NewInitCond(mat.NewVecDense(2, []float64{3, -2}), mat.NewSymDense(2, []float64{2, 0.5, 0.5, 1}))
	f, err := New(m, ic0, nil, nil)
	require.NoError(t, err)

	meas := mat.NewVecDense(2, []float64{0.25, 7})
	err = f.Update(meas)
	assert.NoError(err)

	assert.True(mat.EqualApprox(meas, f.State(), 1e-12))
	assert.True(mat.EqualApprox(mat.NewSymDense(2, nil), f.Cov(), 1e-12))
}

func TestKFPredictTrace(t *testing.T) {
	assert := assert.New(t)

	eye := mat.NewDense(2, 2, []float64{1, 0, 0, 1})
	m, err := model.NewLinear(eye, nil, mat.NewDense(1, 2, []float64{1, 0}))
	require.NoError(t, err)

	f, err := New(m, ic, q, r)
	require.NoError(t, err)

	prev := mat.Trace(f.Cov())
	for i := 0; i < 50; i++ {
		assert.NoError(f.Predict())
		tr := mat.Trace(f.Cov())
		assert.GreaterOrEqual(tr, prev)
		prev = tr
	}
}

func TestKFUpdateTrace(t *testing.T) {
	assert := assert.New(t)

	m, err := model.NewLinear(
		mat.NewDense(2, 2, []float64{1, 1, 0, 1}),
		nil,
		mat.NewDense(2, 2, []float64{1, 0, 0, 1}),
	)
	require.NoError(t, err)

	rr, err := noise.NewGaussian([]float64{0, 0}, mat.NewSymDense(2, []float64{0.5, 0, 0, 0.5}))
	require.NoError(t, err)

	f, err := New(m, ic, q, rr)
	require.NoError(t, err)

	for i := 0; i < 20; i++ {
		assert.NoError(f.Predict())
		before := mat.Trace(f.Cov())
		assert.NoError(f.Update(mat.NewVecDense(2, []float64{float64(i), 1})))
		assert.LessOrEqual(mat.Trace(f.Cov()), before+1e-12)
	}
}

func TestKFCovInvariants(t *testing.T) {
	assert := assert.New(t)

	f, err := New(okModel, ic, q, r)
	require.NoError(t, err)

	check := func() {
		cov := f.Cov()
		assert.True(matrix.IsSymmetric(cov, 1e-12))
		assert.True(matrix.IsPSD(cov, 1e-9))
	}

	for k := 0; k < 200; k++ {
		switch k % 3 {
		case 0:
			assert.NoError(f.Predict())
		case 1:
			assert.NoError(f.PredictCtl(mat.NewVecDense(1, []float64{math.Cos(float64(k))})))
		default:
			assert.NoError(f.Update(mat.NewVecDense(1, []float64{float64(k) + math.Sin(float64(k))})))
		}
		check()
	}
}

func TestKFModelNoise(t *testing.T) {
	assert := assert.New(t)

	f, err := New(okModel, ic, q, r)
	assert.NotNil(f)
	assert.NoError(err)

	assert.Equal(okModel, f.Model())
	assert.Equal(q, f.StateNoise())
	assert.Equal(r, f.OutputNoise())
}

func TestKFCopies(t *testing.T) {
	assert := assert.New(t)

	f, err := New(okModel, ic, q, r)
	require.NoError(t, err)

	x := f.State().(*mat.VecDense)
	x.SetVec(0, 100)
	assert.Equal(0.0, f.State().AtVec(0))

	p := f.Cov().(*mat.SymDense)
	p.SetSym(0, 0, 100)
	assert.Equal(1.0, f.Cov().At(0, 0))
}
