package matrix

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/mat"
)

func TestCheckDims(t *testing.T) {
	assert := assert.New(t)

	m := mat.NewDense(2, 3, nil)
	assert.NoError(CheckDims("m", m, 2, 3))
	assert.NoError(CheckDims("m", m, Any, 3))
	assert.NoError(CheckDims("m", m, 2, Any))

	err := CheckDims("m", m, 3, 3)
	var dimErr *DimensionError
	assert.ErrorAs(err, &dimErr)
	assert.Equal([2]int{2, 3}, dimErr.Got)
	assert.Equal([2]int{3, 3}, dimErr.Want)
	assert.Equal("m: invalid dimensions: [2 x 3], expected: [3 x 3]", err.Error())

	err = CheckVec("v", mat.NewVecDense(2, nil), 3)
	assert.ErrorAs(err, &dimErr)
	assert.Equal("v: invalid dimensions: [2 x 1], expected: [3 x 1]", err.Error())

	err = CheckVec("v", nil, 3)
	assert.ErrorAs(err, &dimErr)
}

func TestIdentity(t *testing.T) {
	assert := assert.New(t)

	eye := Identity(3)
	r, c := eye.Dims()
	assert.Equal(3, r)
	assert.Equal(3, c)
	assert.Equal(3.0, Trace(eye))

	assert.Panics(func() { Identity(0) })
}

func TestMul(t *testing.T) {
	assert := assert.New(t)

	a := mat.NewDense(2, 2, []float64{1, 1, 0, 1})
	b := mat.NewDense(2, 1, []float64{2, 3})

	out, err := Mul(a, b)
	assert.NoError(err)
	assert.True(mat.Equal(mat.NewDense(2, 1, []float64{5, 3}), out))

	out, err = Mul(b, a)
	assert.Nil(out)
	var dimErr *DimensionError
	assert.ErrorAs(err, &dimErr)

	v, err := MulVec(a, mat.NewVecDense(2, []float64{2, 3}))
	assert.NoError(err)
	assert.InDeltaSlice([]float64{5, 3}, v.RawVector().Data, 1e-12)

	v, err = MulVec(a, mat.NewVecDense(3, nil))
	assert.Nil(v)
	assert.ErrorAs(err, &dimErr)
}

func TestAddSub(t *testing.T) {
	assert := assert.New(t)

	a := mat.NewDense(2, 2, []float64{1, 2, 3, 4})
	b := mat.NewDense(2, 2, []float64{4, 3, 2, 1})

	sum, err := Add(a, b)
	assert.NoError(err)
	assert.True(mat.Equal(mat.NewDense(2, 2, []float64{5, 5, 5, 5}), sum))

	diff, err := Sub(a, b)
	assert.NoError(err)
	assert.True(mat.Equal(mat.NewDense(2, 2, []float64{-3, -1, 1, 3}), diff))

	var dimErr *DimensionError
	_, err = Add(a, mat.NewDense(3, 2, nil))
	assert.ErrorAs(err, &dimErr)
	_, err = Sub(a, mat.NewDense(2, 3, nil))
	assert.ErrorAs(err, &dimErr)

	// arguments are left intact
	assert.Equal(1.0, a.At(0, 0))
	assert.Equal(4.0, b.At(0, 0))
}

func TestTransposeSymmetrize(t *testing.T) {
	assert := assert.New(t)

	a := mat.NewDense(2, 3, []float64{1, 2, 3, 4, 5, 6})
	at := Transpose(a)
	r, c := at.Dims()
	assert.Equal(3, r)
	assert.Equal(2, c)
	assert.Equal(4.0, at.At(0, 1))

	_, err := Symmetrize(a)
	var dimErr *DimensionError
	assert.ErrorAs(err, &dimErr)

	s, err := Symmetrize(mat.NewDense(2, 2, []float64{1, 2, 4, 1}))
	assert.NoError(err)
	assert.Equal(3.0, s.At(0, 1))
	assert.Equal(3.0, s.At(1, 0))
	assert.True(IsSymmetric(s, 0))
	assert.False(IsSymmetric(mat.NewDense(2, 2, []float64{1, 2, 4, 1}), 1e-9))
	assert.False(IsSymmetric(a, 1e-9))
}

func TestInverse(t *testing.T) {
	assert := assert.New(t)

	// symmetric positive definite
	s := mat.NewSymDense(2, []float64{4, 1, 1, 3})
	inv, err := Inverse(s)
	assert.NoError(err)
	prod := &mat.Dense{}
	prod.Mul(s, inv)
	assert.True(mat.EqualApprox(Identity(2), prod, 1e-12))

	// general square matrix
	a := mat.NewDense(2, 2, []float64{0, 1, 1, 1})
	inv, err = Inverse(a)
	assert.NoError(err)
	prod.Mul(a, inv)
	assert.True(mat.EqualApprox(Identity(2), prod, 1e-12))

	// singular
	inv, err = Inverse(mat.NewDense(2, 2, []float64{1, 2, 2, 4}))
	assert.Nil(inv)
	var singErr *SingularMatrixError
	assert.ErrorAs(err, &singErr)

	inv, err = Inverse(mat.NewSymDense(2, nil))
	assert.Nil(inv)
	assert.ErrorAs(err, &singErr)

	// not square
	inv, err = Inverse(mat.NewDense(2, 3, nil))
	assert.Nil(inv)
	var dimErr *DimensionError
	assert.ErrorAs(err, &dimErr)
}

func TestSolveSym(t *testing.T) {
	assert := assert.New(t)

	s := mat.NewSymDense(2, []float64{4, 1, 1, 3})
	b := mat.NewDense(2, 1, []float64{1, 2})

	x, err := SolveSym(s, b)
	assert.NoError(err)
	sx := &mat.Dense{}
	sx.Mul(s, x)
	assert.True(mat.EqualApprox(b, sx, 1e-12))

	// symmetric indefinite falls back to LU
	s = mat.NewSymDense(2, []float64{1, 2, 2, 1})
	x, err = SolveSym(s, b)
	assert.NoError(err)
	sx.Mul(s, x)
	assert.True(mat.EqualApprox(b, sx, 1e-12))

	x, err = SolveSym(mat.NewSymDense(2, []float64{1, 1, 1, 1}), b)
	assert.Nil(x)
	var singErr *SingularMatrixError
	assert.ErrorAs(err, &singErr)

	x, err = SolveSym(s, mat.NewDense(3, 1, nil))
	assert.Nil(x)
	var dimErr *DimensionError
	assert.ErrorAs(err, &dimErr)
}

func TestIsPSD(t *testing.T) {
	assert := assert.New(t)

	assert.True(IsPSD(mat.NewSymDense(2, []float64{2, 1, 1, 2}), 1e-12))
	assert.True(IsPSD(mat.NewSymDense(2, nil), 1e-12))
	assert.False(IsPSD(mat.NewSymDense(2, []float64{1, 2, 2, 1}), 1e-12))
}
