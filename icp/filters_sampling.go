package icp

import (
	"math/rand"

	"gonum.org/v1/gonum/mat"
)

// RandomSamplingDataPointsFilter keeps each column independently with
// probability ratio. RNG is injected so callers get deterministic behavior
// in tests, mirroring the teacher's own *rand.Rand-field convention; when
// RNG is nil a source seeded with 1 is used.
type RandomSamplingDataPointsFilter struct {
	Ratio     float64
	RNG       *rand.Rand
	EnablePre bool
	EnableStep bool
}

func (f RandomSamplingDataPointsFilter) PreFilter(input DataPoints) (DataPoints, bool, error) {
	if !f.EnablePre {
		return input, true, nil
	}
	return f.apply(input)
}

func (f RandomSamplingDataPointsFilter) StepFilter(input DataPoints) (DataPoints, bool, error) {
	if !f.EnableStep {
		return input, true, nil
	}
	return f.apply(input)
}

func (f RandomSamplingDataPointsFilter) apply(input DataPoints) (DataPoints, bool, error) {
	if f.Ratio >= 1 {
		return input, true, nil
	}
	rng := f.RNG
	if rng == nil {
		rng = rand.New(rand.NewSource(1))
	}
	keep := make([]int, 0, input.NumPoints())
	for j := 0; j < input.NumPoints(); j++ {
		if rng.Float64() < f.Ratio {
			keep = append(keep, j)
		}
	}
	return selectColumns(input, keep), true, nil
}

// FixstepSamplingDataPointsFilter keeps every step-th column, starting at 0.
type FixstepSamplingDataPointsFilter struct {
	Step       int
	EnablePre  bool
	EnableStep bool
}

func (f FixstepSamplingDataPointsFilter) PreFilter(input DataPoints) (DataPoints, bool, error) {
	if !f.EnablePre {
		return input, true, nil
	}
	return f.apply(input)
}

func (f FixstepSamplingDataPointsFilter) StepFilter(input DataPoints) (DataPoints, bool, error) {
	if !f.EnableStep {
		return input, true, nil
	}
	return f.apply(input)
}

func (f FixstepSamplingDataPointsFilter) apply(input DataPoints) (DataPoints, bool, error) {
	if f.Step <= 1 {
		return input, true, nil
	}
	keep := make([]int, 0, input.NumPoints()/f.Step+1)
	for j := 0; j < input.NumPoints(); j += f.Step {
		keep = append(keep, j)
	}
	return selectColumns(input, keep), true, nil
}

// selectColumns builds a new DataPoints containing only the named columns,
// preserving both label lists unchanged (spans are row-wise, not affected by
// column selection). An empty keep list yields a cloud with no points.
func selectColumns(input DataPoints, keep []int) DataPoints {
	out := DataPoints{
		FeatureLabels:    input.FeatureLabels,
		DescriptorLabels: input.DescriptorLabels,
	}
	if len(keep) == 0 {
		return out
	}
	fr := input.FeatureDim()
	out.Features = mat.NewDense(fr, len(keep), nil)
	for newJ, oldJ := range keep {
		for i := 0; i < fr; i++ {
			out.Features.Set(i, newJ, input.Features.At(i, oldJ))
		}
	}
	if dr := input.DescriptorDim(); dr > 0 {
		out.Descriptors = mat.NewDense(dr, len(keep), nil)
		for newJ, oldJ := range keep {
			for i := 0; i < dr; i++ {
				out.Descriptors.Set(i, newJ, input.Descriptors.At(i, oldJ))
			}
		}
	}
	return out
}
