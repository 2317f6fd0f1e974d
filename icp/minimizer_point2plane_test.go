package icp

import (
	"errors"
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"
)

func TestPointToPlaneErrorMinimizerRequiresNormals(t *testing.T) {
	reading := makeCloud(t, [][]float64{{0, 0, 0}})
	reference := makeCloud(t, [][]float64{{0, 0, 1}})
	e := ErrorElements{Reading: reading, Reference: reference, Weights: []float64{1}}
	_, err := (PointToPlaneErrorMinimizer{}).Compute(e)
	if err == nil {
		t.Fatalf("expected a MissingDescriptorError")
	}
	var missing *MissingDescriptorError
	if !errors.As(err, &missing) {
		t.Errorf("expected *MissingDescriptorError, got %T: %v", err, err)
	}
}

func TestPointToPlaneErrorMinimizerRecoversSmallOffset(t *testing.T) {
	// A flat reference plane z=0 with an upward normal; the reading sits a
	// known small distance below along z everywhere, so the minimizer
	// should recover a pure +z translation.
	coords := [][]float64{
		{0, 0, -0.05}, {1, 0, -0.05}, {0, 1, -0.05}, {1, 1, -0.05}, {0.5, 0.5, -0.05},
	}
	reading := makeCloud(t, coords)

	refCoords := [][]float64{
		{0, 0, 0}, {1, 0, 0}, {0, 1, 0}, {1, 1, 0}, {0.5, 0.5, 0},
	}
	reference := makeCloud(t, refCoords)
	reference.Descriptors = mat.NewDense(3, 5, []float64{
		0, 0, 0, 0, 0,
		0, 0, 0, 0, 0,
		1, 1, 1, 1, 1,
	})
	reference.DescriptorLabels = LabelList{{Text: "normals", Span: 3}}

	w := make([]float64, 5)
	for i := range w {
		w[i] = 1
	}
	e := ErrorElements{Reading: reading, Reference: reference, Weights: w}

	got, err := (PointToPlaneErrorMinimizer{}).Compute(e)
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	if math.Abs(got.At(2, 3)-0.05) > 1e-6 {
		t.Errorf("z translation = %v, want ~0.05", got.At(2, 3))
	}
}
