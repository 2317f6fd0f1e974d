package icp

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"
)

func planarCloud(t *testing.T) DataPoints {
	t.Helper()
	coords := [][]float64{
		{0, 0, 0}, {1, 0, 0}, {0, 1, 0}, {1, 1, 0}, {0.5, 0.5, 0},
		{-1, 0, 0}, {0, -1, 0}, {-1, -1, 0}, {2, 0, 0}, {0, 2, 0},
	}
	return makeCloud(t, coords)
}

func TestSurfaceNormalDataPointsFilterPlanarNormal(t *testing.T) {
	d := planarCloud(t)
	f := SurfaceNormalDataPointsFilter{KNN: 6, KeepNormals: true}
	out, iterate, err := f.PreFilter(d)
	if err != nil || !iterate {
		t.Fatalf("PreFilter: iterate=%v err=%v", iterate, err)
	}
	offset, span, ok := out.DescriptorLabels.Find("normals")
	if !ok || span != 3 {
		t.Fatalf("normals descriptor missing or wrong span: %d", span)
	}
	for j := 0; j < out.NumPoints(); j++ {
		nx, ny, nz := out.Descriptors.At(offset, j), out.Descriptors.At(offset+1, j), out.Descriptors.At(offset+2, j)
		if math.Abs(nx) > 1e-6 || math.Abs(ny) > 1e-6 || math.Abs(math.Abs(nz)-1) > 1e-6 {
			t.Errorf("point %d normal = (%v,%v,%v), want (0,0,+-1)", j, nx, ny, nz)
		}
	}
}

func TestSurfaceNormalDataPointsFilterKeepsMatchedIds(t *testing.T) {
	d := planarCloud(t)
	f := SurfaceNormalDataPointsFilter{KNN: 4, KeepMatchedIds: true}
	out, _, err := f.PreFilter(d)
	if err != nil {
		t.Fatalf("PreFilter: %v", err)
	}
	offset, span, ok := out.DescriptorLabels.Find("matchedIds")
	if !ok || span != 4 {
		t.Fatalf("matchedIds descriptor missing or wrong span: %d", span)
	}
	for j := 0; j < out.NumPoints(); j++ {
		for r := 0; r < span; r++ {
			id := out.Descriptors.At(offset+r, j)
			if id < 0 || id >= float64(out.NumPoints()) {
				t.Errorf("point %d rank %d matched id = %v, want a valid column index", j, r, id)
			}
		}
	}
}

func TestOrientNormalsDataPointsFilterFlipsAwayFromOrigin(t *testing.T) {
	d := makeCloud(t, [][]float64{{1, 0, 0}})
	d.Descriptors = mat.NewDense(3, 1, []float64{-1, 0, 0})
	d.DescriptorLabels = LabelList{{Text: "normals", Span: 3}}

	f := OrientNormalsDataPointsFilter{}
	out, _, err := f.PreFilter(d)
	if err != nil {
		t.Fatalf("PreFilter: %v", err)
	}
	if out.Descriptors.At(0, 0) <= 0 {
		t.Errorf("normal should have flipped to point outward, got %v", out.Descriptors.At(0, 0))
	}
}
