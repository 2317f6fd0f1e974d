package icp

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"
)

// SamplingSurfaceNormalDataPointsFilter recursively splits the cloud along
// its widest axis until each partition holds at most K points, then reduces
// every partition to its centroid plus a PCA normal estimated from the
// partition's own members. Any descriptor already on the input cloud that
// isn't one of the freshly-computed geometry descriptors (normals,
// densities, eigValues, eigVectors) is carried over per partition: averaged
// across the partition's members when AverageExistingDescriptors is set,
// or copied from the partition's first member otherwise.
//
// The partition index vector is built once, explicitly sized [0, N) (see
// SPEC_FULL.md §9) rather than left zero-valued-but-reserved,
// since a reserved-only slice would partition on stale zero indices.
type SamplingSurfaceNormalDataPointsFilter struct {
	K                          int
	AverageExistingDescriptors bool
	KeepNormals                bool
	KeepDensities              bool
	KeepEigenValues            bool
	KeepEigenVectors           bool
}

// computedDescriptorNames are the geometry descriptors this filter itself
// derives per partition; any other descriptor label on the input passes
// through via the AverageExistingDescriptors contract instead.
var computedDescriptorNames = map[string]bool{
	"normals":    true,
	"densities":  true,
	"eigValues":  true,
	"eigVectors": true,
}

func existingDescriptorLabels(labels LabelList) LabelList {
	var out LabelList
	for _, l := range labels {
		if !computedDescriptorNames[l.Text] {
			out = append(out, l)
		}
	}
	return out
}

func (f SamplingSurfaceNormalDataPointsFilter) PreFilter(input DataPoints) (DataPoints, bool, error) {
	if f.K < 2 {
		return DataPoints{}, false, &ShapeError{Reason: "SamplingSurfaceNormalDataPointsFilter: K must be >= 2"}
	}
	dim := input.GeometricDim()
	n := input.NumPoints()
	if n == 0 {
		return input, true, nil
	}

	indices := make([]int, n)
	for i := range indices {
		indices[i] = i
	}

	var partitions [][]int
	f.partition(input, dim, indices, &partitions)

	outN := len(partitions)
	features := mat.NewDense(input.FeatureDim(), outN, nil)
	normals := mat.NewDense(dim, outN, nil)
	densities := make([]float64, outN)
	eigenValues := mat.NewDense(dim, outN, nil)
	eigenVectors := mat.NewDense(dim*dim, outN, nil)

	existing := existingDescriptorLabels(input.DescriptorLabels)
	existingBlocks := make(map[string]*mat.Dense, len(existing))
	for _, lbl := range existing {
		existingBlocks[lbl.Text] = mat.NewDense(lbl.Span, outN, nil)
	}

	for pj, members := range partitions {
		cen := make([]float64, dim)
		for _, idx := range members {
			for i := 0; i < dim; i++ {
				cen[i] += input.Features.At(i, idx)
			}
		}
		nn := float64(len(members))
		for i := range cen {
			cen[i] /= nn
		}

		cov := make([]float64, dim*dim)
		for _, idx := range members {
			d := make([]float64, dim)
			for i := 0; i < dim; i++ {
				d[i] = input.Features.At(i, idx) - cen[i]
			}
			for a := 0; a < dim; a++ {
				for b := 0; b < dim; b++ {
					cov[a*dim+b] += d[a] * d[b]
				}
			}
		}
		for i := range cov {
			cov[i] /= nn
		}

		covMat := mat.NewSymDense(dim, cov)
		var eigen mat.EigenSym
		vals := make([]float64, dim)
		vecs := mat.NewDense(dim, dim, nil)
		if eigen.Factorize(covMat, true) {
			vals = eigen.Values(nil)
			eigen.VectorsTo(vecs)
		}

		for i := 0; i < dim; i++ {
			features.Set(i, pj, cen[i])
			normals.Set(i, pj, vecs.At(i, 0))
			eigenValues.Set(i, pj, vals[i])
			for c := 0; c < dim; c++ {
				eigenVectors.Set(i*dim+c, pj, vecs.At(i, c))
			}
		}
		for i := dim; i < input.FeatureDim(); i++ {
			features.Set(i, pj, 1) // homogeneous row
		}
		densities[pj] = nn

		for _, lbl := range existing {
			offset, span, _ := input.DescriptorLabels.Find(lbl.Text)
			block := existingBlocks[lbl.Text]
			if f.AverageExistingDescriptors {
				for r := 0; r < span; r++ {
					sum := 0.0
					for _, idx := range members {
						sum += input.Descriptors.At(offset+r, idx)
					}
					block.Set(r, pj, sum/nn)
				}
			} else {
				first := members[0]
				for r := 0; r < span; r++ {
					block.Set(r, pj, input.Descriptors.At(offset+r, first))
				}
			}
		}
	}

	out := DataPoints{
		Features:      features,
		FeatureLabels: input.FeatureLabels,
	}
	if f.KeepNormals {
		appendDescriptor(&out, Label{Text: "normals", Span: dim}, normals)
	}
	if f.KeepDensities {
		appendDescriptor(&out, Label{Text: "densities", Span: 1}, mat.NewDense(1, outN, densities))
	}
	if f.KeepEigenValues {
		appendDescriptor(&out, Label{Text: "eigValues", Span: dim}, eigenValues)
	}
	if f.KeepEigenVectors {
		appendDescriptor(&out, Label{Text: "eigVectors", Span: dim * dim}, eigenVectors)
	}
	for _, lbl := range existing {
		appendDescriptor(&out, lbl, existingBlocks[lbl.Text])
	}
	return out, true, nil
}

func (f SamplingSurfaceNormalDataPointsFilter) StepFilter(input DataPoints) (DataPoints, bool, error) {
	return input, true, nil
}

// partition recursively bisects indices along its widest axis until each
// leaf has at most K members, appending leaves to out.
func (f SamplingSurfaceNormalDataPointsFilter) partition(input DataPoints, dim int, indices []int, out *[][]int) {
	if len(indices) <= f.K || len(indices) <= 1 {
		leaf := make([]int, len(indices))
		copy(leaf, indices)
		*out = append(*out, leaf)
		return
	}

	axis := f.widestAxis(input, dim, indices)
	sort.Slice(indices, func(a, b int) bool {
		return input.Features.At(axis, indices[a]) < input.Features.At(axis, indices[b])
	})
	mid := len(indices) / 2
	left := make([]int, mid)
	right := make([]int, len(indices)-mid)
	copy(left, indices[:mid])
	copy(right, indices[mid:])
	f.partition(input, dim, left, out)
	f.partition(input, dim, right, out)
}

func (f SamplingSurfaceNormalDataPointsFilter) widestAxis(input DataPoints, dim int, indices []int) int {
	best := 0
	bestSpread := -1.0
	for a := 0; a < dim; a++ {
		min, max := math.Inf(1), math.Inf(-1)
		for _, idx := range indices {
			v := input.Features.At(a, idx)
			if v < min {
				min = v
			}
			if v > max {
				max = v
			}
		}
		if spread := max - min; spread > bestSpread {
			bestSpread = spread
			best = a
		}
	}
	return best
}
