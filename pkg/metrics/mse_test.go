package metrics

import (
	"errors"
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"
)

// TestMSEIdentical verifies that a patch compared to itself scores zero
func TestMSEIdentical(t *testing.T) {
	a := mat.NewDense(3, 3, []float64{1, 2, 3, 4, 5, 6, 7, 8, 9})

	got, err := MSE(a, a)
	if err != nil {
		t.Fatalf("MSE failed: %v", err)
	}
	if got != 0 {
		t.Errorf("Expected 0 for identical patches, got %f", got)
	}
}

// TestMSEKnownValue checks the score against a hand-computed value
func TestMSEKnownValue(t *testing.T) {
	a := mat.NewDense(2, 2, []float64{0, 0, 0, 0})
	b := mat.NewDense(2, 2, []float64{1, 2, 3, 4})

	got, err := MSE(a, b)
	if err != nil {
		t.Fatalf("MSE failed: %v", err)
	}

	// (1 + 4 + 9 + 16) / 4
	if math.Abs(got-7.5) > 1e-12 {
		t.Errorf("Expected 7.5, got %f", got)
	}
}

// TestMSESymmetricAndPositive checks symmetry and strict positivity for differing patches
func TestMSESymmetricAndPositive(t *testing.T) {
	a := mat.NewDense(2, 3, []float64{1, 5, 2, 8, 3, 3})
	b := mat.NewDense(2, 3, []float64{1, 5, 2, 8, 3, 4})

	ab, err := MSE(a, b)
	if err != nil {
		t.Fatalf("MSE failed: %v", err)
	}
	ba, err := MSE(b, a)
	if err != nil {
		t.Fatalf("MSE failed: %v", err)
	}

	if ab <= 0 {
		t.Errorf("Expected positive score for differing patches, got %f", ab)
	}
	if ab != ba {
		t.Errorf("MSE is not symmetric: %f vs %f", ab, ba)
	}
}

// TestMSESubmatrixView ensures views into a larger frame are scored like copies
func TestMSESubmatrixView(t *testing.T) {
	frame := mat.NewDense(4, 4, []float64{
		0, 0, 0, 0,
		0, 1, 2, 0,
		0, 3, 4, 0,
		0, 0, 0, 0,
	})
	view := frame.Slice(1, 3, 1, 3)
	patch := mat.NewDense(2, 2, []float64{1, 2, 3, 4})

	got, err := MSE(view, patch)
	if err != nil {
		t.Fatalf("MSE failed: %v", err)
	}
	if got != 0 {
		t.Errorf("Expected 0 between a view and its copy, got %f", got)
	}

	// Non-raw matrices go through the generic row path
	got, err = MSE(patch.T(), mat.NewDense(2, 2, []float64{1, 3, 2, 4}))
	if err != nil {
		t.Fatalf("MSE failed: %v", err)
	}
	if got != 0 {
		t.Errorf("Expected 0 for transposed patch, got %f", got)
	}
}

// TestMSEShapeMismatch verifies that differently shaped patches are rejected
func TestMSEShapeMismatch(t *testing.T) {
	a := mat.NewDense(2, 2, nil)
	b := mat.NewDense(2, 3, nil)

	_, err := MSE(a, b)
	if !errors.Is(err, ErrShapeMismatch) {
		t.Errorf("Expected ErrShapeMismatch, got %v", err)
	}
}
