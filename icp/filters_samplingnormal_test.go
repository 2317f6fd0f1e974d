package icp

import (
	"testing"

	"gonum.org/v1/gonum/mat"
)

func TestSamplingSurfaceNormalDataPointsFilterReducesPointCount(t *testing.T) {
	d := bigCloud(t, 100)
	f := SamplingSurfaceNormalDataPointsFilter{K: 10, KeepNormals: true}
	out, iterate, err := f.PreFilter(d)
	if err != nil || !iterate {
		t.Fatalf("PreFilter: iterate=%v err=%v", iterate, err)
	}
	if out.NumPoints() >= d.NumPoints() {
		t.Errorf("expected fewer points after partitioning, got %d from %d", out.NumPoints(), d.NumPoints())
	}
	if out.NumPoints() == 0 {
		t.Errorf("partitioning should not eliminate every point")
	}
}

func TestSamplingSurfaceNormalDataPointsFilterSmallCloudIsSinglePartition(t *testing.T) {
	d := bigCloud(t, 5)
	f := SamplingSurfaceNormalDataPointsFilter{K: 10}
	out, _, err := f.PreFilter(d)
	if err != nil {
		t.Fatalf("PreFilter: %v", err)
	}
	if out.NumPoints() != 1 {
		t.Errorf("cloud smaller than K should collapse to a single partition, got %d", out.NumPoints())
	}
}

func TestSamplingSurfaceNormalDataPointsFilterRejectsKBelowTwo(t *testing.T) {
	d := bigCloud(t, 5)
	f := SamplingSurfaceNormalDataPointsFilter{K: 1}
	if _, _, err := f.PreFilter(d); err == nil {
		t.Fatalf("expected an error for K < 2, got nil")
	}
}

func intensityCloud(t *testing.T, n int) DataPoints {
	t.Helper()
	d := bigCloud(t, n)
	vals := make([]float64, n)
	for i := range vals {
		vals[i] = float64(i)
	}
	d.Descriptors = mat.NewDense(1, n, vals)
	d.DescriptorLabels = LabelList{{Text: "intensity", Span: 1}}
	return d
}

func TestSamplingSurfaceNormalDataPointsFilterAveragesExistingDescriptors(t *testing.T) {
	d := intensityCloud(t, 10)
	f := SamplingSurfaceNormalDataPointsFilter{K: 10, AverageExistingDescriptors: true}
	out, _, err := f.PreFilter(d)
	if err != nil {
		t.Fatalf("PreFilter: %v", err)
	}
	offset, span, ok := out.DescriptorLabels.Find("intensity")
	if !ok || span != 1 {
		t.Fatalf("intensity descriptor missing or wrong span: %d", span)
	}
	if out.NumPoints() != 1 {
		t.Fatalf("expected a single partition, got %d", out.NumPoints())
	}
	want := 4.5 // mean of 0..9
	if got := out.Descriptors.At(offset, 0); got != want {
		t.Errorf("averaged intensity = %v, want %v", got, want)
	}
}

func TestSamplingSurfaceNormalDataPointsFilterKeepsFirstPointDescriptorByDefault(t *testing.T) {
	d := intensityCloud(t, 10)
	f := SamplingSurfaceNormalDataPointsFilter{K: 10}
	out, _, err := f.PreFilter(d)
	if err != nil {
		t.Fatalf("PreFilter: %v", err)
	}
	offset, _, ok := out.DescriptorLabels.Find("intensity")
	if !ok {
		t.Fatalf("intensity descriptor missing")
	}
	if got := out.Descriptors.At(offset, 0); got != 0 {
		t.Errorf("non-averaged intensity = %v, want the partition's first member's value 0", got)
	}
}
