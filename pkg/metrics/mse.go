// Package metrics provides patch similarity measures used by the drift search.
package metrics

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// ErrShapeMismatch is returned when two patches do not have the same dimensions
var ErrShapeMismatch = errors.New("patch shapes differ")

// MSE returns the mean squared error between two equally shaped patches.
// It is zero only for identical patches and symmetric in its arguments.
func MSE(a, b mat.Matrix) (float64, error) {
	ar, ac := a.Dims()
	br, bc := b.Dims()
	if ar != br || ac != bc {
		return 0, fmt.Errorf("%w: %dx%d vs %dx%d", ErrShapeMismatch, ar, ac, br, bc)
	}
	if ar == 0 || ac == 0 {
		return 0, nil
	}

	ra, okA := a.(mat.RawRowViewer)
	rb, okB := b.(mat.RawRowViewer)

	var sum float64
	rowA := make([]float64, ac)
	rowB := make([]float64, bc)
	for i := 0; i < ar; i++ {
		if okA && okB {
			rowA = ra.RawRowView(i)
			rowB = rb.RawRowView(i)
		} else {
			mat.Row(rowA, i, a)
			mat.Row(rowB, i, b)
		}
		d := floats.Distance(rowA, rowB, 2)
		sum += d * d
	}

	return sum / float64(ar*ac), nil
}
