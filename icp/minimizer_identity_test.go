package icp

import (
	"testing"

	"gonum.org/v1/gonum/mat"
)

func TestIdentityErrorMinimizerReturnsIdentity(t *testing.T) {
	m := IdentityErrorMinimizer{Dim: 2}
	elements := ErrorElements{}
	got, err := m.Compute(elements)
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	n, _ := got.Dims()
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			want := 0.0
			if i == j {
				want = 1
			}
			if got.At(i, j) != want {
				t.Errorf("At(%d,%d) = %v, want %v", i, j, got.At(i, j), want)
			}
		}
	}
}

func TestBuildErrorElementsSkipsZeroWeightMatches(t *testing.T) {
	reading := makeCloud(t, [][]float64{{0, 0}, {1, 1}, {2, 2}})
	reference := makeCloud(t, [][]float64{{10, 10}, {11, 11}, {12, 12}})
	matches := Matches{
		Dists: mat.NewDense(1, 3, nil),
		IDs:   [][]int{{0, 1, 2}},
	}
	weights := NewOutlierWeights(1, 3, 1)
	weights.Weights.Set(0, 1, 0)

	e := buildErrorElements(reading, reference, matches, weights)
	if e.Reading.NumPoints() != 2 {
		t.Errorf("expected 2 surviving matches, got %d", e.Reading.NumPoints())
	}
}
