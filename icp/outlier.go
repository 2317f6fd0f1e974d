package icp

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// FeatureOutlierFilter assigns a reliability weight in [0, 1] to each
// Matches entry based on feature-space (geometric) distance alone.
type FeatureOutlierFilter interface {
	Compute(matches Matches) (OutlierWeights, error)
}

// DescriptorOutlierFilter assigns a reliability weight based on descriptor
// (e.g. normal, color) agreement between matched points.
type DescriptorOutlierFilter interface {
	Compute(reading, reference DataPoints, matches Matches) (OutlierWeights, error)
}

// FeatureOutlierFilters runs a chain of FeatureOutlierFilter and multiplies
// their weights elementwise; the driver then blends this product with the
// descriptor weights using the Strategy's OutlierMixingWeight.
type FeatureOutlierFilters []FeatureOutlierFilter

func (fs FeatureOutlierFilters) Compute(matches Matches) (OutlierWeights, error) {
	k, n := matches.K(), matches.N()
	out := NewOutlierWeights(k, n, 1)
	for _, f := range fs {
		w, err := f.Compute(matches)
		if err != nil {
			return OutlierWeights{}, err
		}
		for i := 0; i < k; i++ {
			for j := 0; j < n; j++ {
				out.Weights.Set(i, j, out.Weights.At(i, j)*w.Weights.At(i, j))
			}
		}
	}
	return out, nil
}

// NullFeatureOutlierFilter accepts every match with weight 1.
type NullFeatureOutlierFilter struct{}

func (NullFeatureOutlierFilter) Compute(matches Matches) (OutlierWeights, error) {
	return NewOutlierWeights(matches.K(), matches.N(), 1), nil
}

// MaxDistOutlierFilter rejects (weight 0) any match farther than MaxDist
// (squared distance) from its pair.
type MaxDistOutlierFilter struct {
	MaxDist float64 // squared distance threshold
}

func (f MaxDistOutlierFilter) Compute(matches Matches) (OutlierWeights, error) {
	k, n := matches.K(), matches.N()
	out := NewOutlierWeights(k, n, 0)
	for i := 0; i < k; i++ {
		for j := 0; j < n; j++ {
			if matches.Dists.At(i, j) <= f.MaxDist {
				out.Weights.Set(i, j, 1)
			}
		}
	}
	return out, nil
}

// MinDistOutlierFilter rejects any match closer than MinDist, the mirror
// image of MaxDistOutlierFilter, used to discard degenerate zero-distance
// correspondences.
type MinDistOutlierFilter struct {
	MinDist float64
}

func (f MinDistOutlierFilter) Compute(matches Matches) (OutlierWeights, error) {
	k, n := matches.K(), matches.N()
	out := NewOutlierWeights(k, n, 0)
	for i := 0; i < k; i++ {
		for j := 0; j < n; j++ {
			if matches.Dists.At(i, j) >= f.MinDist {
				out.Weights.Set(i, j, 1)
			}
		}
	}
	return out, nil
}

// MedianDistOutlierFilter rejects matches farther than Factor times the
// median match distance, using gonum/stat's quantile estimator for the
// median.
type MedianDistOutlierFilter struct {
	Factor float64
}

func (f MedianDistOutlierFilter) Compute(matches Matches) (OutlierWeights, error) {
	k, n := matches.K(), matches.N()
	out := NewOutlierWeights(k, n, 0)
	for i := 0; i < k; i++ {
		row := make([]float64, n)
		for j := 0; j < n; j++ {
			row[j] = matches.Dists.At(i, j)
		}
		sorted := append([]float64(nil), row...)
		sort.Float64s(sorted)
		median := stat.Quantile(0.5, stat.Empirical, sorted, nil)
		threshold := median * f.Factor * f.Factor
		for j := 0; j < n; j++ {
			if row[j] <= threshold {
				out.Weights.Set(i, j, 1)
			}
		}
	}
	return out, nil
}

// TrimmedDistOutlierFilter keeps only the Ratio closest fraction of matches
// (per neighbor rank row), rejecting the rest.
type TrimmedDistOutlierFilter struct {
	Ratio float64
}

func (f TrimmedDistOutlierFilter) Compute(matches Matches) (OutlierWeights, error) {
	k, n := matches.K(), matches.N()
	out := NewOutlierWeights(k, n, 0)
	keepCount := int(math.Ceil(float64(n) * f.Ratio))
	if keepCount < 1 {
		keepCount = 1
	}
	if keepCount > n {
		keepCount = n
	}
	for i := 0; i < k; i++ {
		type rd struct {
			col  int
			dist float64
		}
		row := make([]rd, n)
		for j := 0; j < n; j++ {
			row[j] = rd{j, matches.Dists.At(i, j)}
		}
		sort.Slice(row, func(a, b int) bool { return row[a].dist < row[b].dist })
		for r := 0; r < keepCount; r++ {
			out.Weights.Set(i, row[r].col, 1)
		}
	}
	return out, nil
}

// NullDescriptorOutlierFilter accepts every match with weight 1, ignoring
// descriptors entirely.
type NullDescriptorOutlierFilter struct{}

func (NullDescriptorOutlierFilter) Compute(reading, reference DataPoints, matches Matches) (OutlierWeights, error) {
	return NewOutlierWeights(matches.K(), matches.N(), 1), nil
}
