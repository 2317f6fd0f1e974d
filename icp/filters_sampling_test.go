package icp

import (
	"math/rand"
	"testing"
)

func bigCloud(t *testing.T, n int) DataPoints {
	t.Helper()
	coords := make([][]float64, n)
	for i := range coords {
		coords[i] = []float64{float64(i), float64(i)}
	}
	return makeCloud(t, coords)
}

func TestRandomSamplingDataPointsFilterRatio(t *testing.T) {
	d := bigCloud(t, 1000)
	f := RandomSamplingDataPointsFilter{
		Ratio:     0.3,
		RNG:       rand.New(rand.NewSource(42)),
		EnablePre: true,
	}
	out, iterate, err := f.PreFilter(d)
	if err != nil || !iterate {
		t.Fatalf("PreFilter: iterate=%v err=%v", iterate, err)
	}
	got := out.NumPoints()
	if got < 200 || got > 400 {
		t.Errorf("sampled %d of 1000 at ratio 0.3, want roughly 300", got)
	}
}

func TestRandomSamplingDataPointsFilterDisabledStageIsNoop(t *testing.T) {
	d := bigCloud(t, 10)
	f := RandomSamplingDataPointsFilter{Ratio: 0.1, EnablePre: false}
	out, _, err := f.PreFilter(d)
	if err != nil {
		t.Fatalf("PreFilter: %v", err)
	}
	if out.NumPoints() != d.NumPoints() {
		t.Errorf("disabled stage changed point count")
	}
}

func TestFixstepSamplingDataPointsFilter(t *testing.T) {
	d := bigCloud(t, 10)
	f := FixstepSamplingDataPointsFilter{Step: 3, EnablePre: true}
	out, _, err := f.PreFilter(d)
	if err != nil {
		t.Fatalf("PreFilter: %v", err)
	}
	if out.NumPoints() != 4 { // indices 0,3,6,9
		t.Errorf("NumPoints = %d, want 4", out.NumPoints())
	}
	if out.Features.At(0, 1) != 3 {
		t.Errorf("second kept point x = %v, want 3", out.Features.At(0, 1))
	}
}
