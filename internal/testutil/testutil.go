// Package testutil provides shared test utilities and fixtures.
//
// This package centralises common test helpers to reduce code duplication
// across test files and improve test maintainability.
package testutil

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"
)

// AssertMatrixEqual checks that two matrices have the same shape and that
// every pair of cells agrees within tol. NaN cells match NaN cells.
func AssertMatrixEqual(t *testing.T, got, want mat.Matrix, tol float64) {
	t.Helper()

	gr, gc := got.Dims()
	wr, wc := want.Dims()
	if gr != wr || gc != wc {
		t.Fatalf("matrix shape = %dx%d, want %dx%d", gr, gc, wr, wc)
	}
	for i := 0; i < gr; i++ {
		for j := 0; j < gc; j++ {
			g, w := got.At(i, j), want.At(i, j)
			if math.IsNaN(g) && math.IsNaN(w) {
				continue
			}
			if math.Abs(g-w) > tol {
				t.Errorf("cell (%d,%d) = %g, want %g (tol %g)", i, j, g, w, tol)
			}
		}
	}
}

// AssertColumnSum checks that one matrix column sums to want within tol.
func AssertColumnSum(t *testing.T, m mat.Matrix, col int, want, tol float64) {
	t.Helper()

	r, _ := m.Dims()
	sum := 0.0
	for i := 0; i < r; i++ {
		sum += m.At(i, col)
	}
	if math.Abs(sum-want) > tol {
		t.Errorf("column %d sum = %g, want %g (tol %g)", col, sum, want, tol)
	}
}

// AssertAllFinite fails if any cell of m is NaN or infinite.
func AssertAllFinite(t *testing.T, m mat.Matrix) {
	t.Helper()

	r, c := m.Dims()
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			v := m.At(i, j)
			if math.IsNaN(v) || math.IsInf(v, 0) {
				t.Errorf("cell (%d,%d) = %g, want finite", i, j, v)
			}
		}
	}
}

// AssertNoError fails the test if err is not nil.
func AssertNoError(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// AssertError fails the test if err is nil.
func AssertError(t *testing.T, err error) {
	t.Helper()
	if err == nil {
		t.Fatal("expected error, got nil")
	}
}
