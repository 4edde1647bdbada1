package testutil

import (
	"errors"
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"
)

func TestAssertMatrixEqual(t *testing.T) {
	t.Parallel()

	a := mat.NewDense(2, 2, []float64{1, 2, math.NaN(), 4})
	b := mat.NewDense(2, 2, []float64{1, 2 + 1e-12, math.NaN(), 4})
	AssertMatrixEqual(t, a, b, 1e-9)
}

func TestAssertColumnSum(t *testing.T) {
	t.Parallel()

	m := mat.NewDense(3, 2, []float64{0.2, 1, 0.3, 2, 0.5, 3})
	AssertColumnSum(t, m, 0, 1.0, 1e-12)
	AssertColumnSum(t, m, 1, 6.0, 1e-12)
}

func TestAssertAllFinite(t *testing.T) {
	t.Parallel()

	AssertAllFinite(t, mat.NewDense(2, 2, []float64{1, 2, 3, 4}))
}

func TestAssertNoError(t *testing.T) {
	t.Parallel()

	AssertNoError(t, nil)
}

func TestAssertError(t *testing.T) {
	t.Parallel()

	AssertError(t, errors.New("test error"))
}
