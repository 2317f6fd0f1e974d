package icp

import (
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/kdtree"
)

// SurfaceNormalDataPointsFilter estimates, for every point, a local PCA
// normal from its KNN neighborhood, and optionally appends density,
// eigenvalue, eigenvector, and the KNN integer matched-id descriptors
// alongside it. Runs only in PreFilter; StepFilter is a no-op since
// recomputing normals every iteration is wasteful and the spec scopes normal
// estimation to the static preprocessing pass.
type SurfaceNormalDataPointsFilter struct {
	KNN              int
	Epsilon          float64
	KeepNormals      bool
	KeepDensities    bool
	KeepEigenValues  bool
	KeepEigenVectors bool
	KeepMatchedIds   bool
}

func (f SurfaceNormalDataPointsFilter) PreFilter(input DataPoints) (DataPoints, bool, error) {
	dim := input.GeometricDim()
	n := input.NumPoints()
	if n == 0 {
		return input, true, nil
	}

	points := newIndexedPoints(input, dim)
	tree := kdtree.New(points, true)

	normals := mat.NewDense(dim, n, nil)
	densities := make([]float64, n)
	eigenValues := mat.NewDense(dim, n, nil)
	eigenVectors := mat.NewDense(dim*dim, n, nil)
	matchedIds := mat.NewDense(f.KNN, n, nil)
	for i := 0; i < f.KNN; i++ {
		for j := 0; j < n; j++ {
			matchedIds.Set(i, j, -1)
		}
	}

	for j := 0; j < n; j++ {
		neighbors := kNearest(tree, points[j], f.KNN)
		for r, nb := range neighbors {
			p := nb.Comparable.(indexedPoint)
			matchedIds.Set(r, j, float64(p.idx))
		}
		if len(neighbors) < dim {
			continue
		}

		cen := make([]float64, dim)
		for _, nb := range neighbors {
			p := nb.Comparable.(indexedPoint)
			for i := 0; i < dim; i++ {
				cen[i] += p.coords[i]
			}
		}
		nn := float64(len(neighbors))
		for i := range cen {
			cen[i] /= nn
		}

		cov := make([]float64, dim*dim)
		for _, nb := range neighbors {
			p := nb.Comparable.(indexedPoint)
			d := make([]float64, dim)
			for i := 0; i < dim; i++ {
				d[i] = p.coords[i] - cen[i]
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
		if !eigen.Factorize(covMat, true) {
			continue
		}
		vals := eigen.Values(nil)
		var vecs mat.Dense
		eigen.VectorsTo(&vecs)

		// Eigenvalues ascending; the smallest eigenvalue's eigenvector is
		// the surface normal direction.
		for i := 0; i < dim; i++ {
			eigenValues.Set(i, j, vals[i])
			normals.Set(i, j, vecs.At(i, 0))
			for c := 0; c < dim; c++ {
				eigenVectors.Set(i*dim+c, j, vecs.At(i, c))
			}
		}

		radius := maxNeighborDist(points[j], neighbors)
		volume := hypersphereVolume(dim, radius)
		if volume > 0 {
			densities[j] = nn / volume
		}
	}

	out := input.Clone()
	if f.KeepNormals {
		appendDescriptor(&out, Label{Text: "normals", Span: dim}, normals)
	}
	if f.KeepDensities {
		d := mat.NewDense(1, n, densities)
		appendDescriptor(&out, Label{Text: "densities", Span: 1}, d)
	}
	if f.KeepEigenValues {
		appendDescriptor(&out, Label{Text: "eigValues", Span: dim}, eigenValues)
	}
	if f.KeepEigenVectors {
		appendDescriptor(&out, Label{Text: "eigVectors", Span: dim * dim}, eigenVectors)
	}
	if f.KeepMatchedIds {
		appendDescriptor(&out, Label{Text: "matchedIds", Span: f.KNN}, matchedIds)
	}
	return out, true, nil
}

func (f SurfaceNormalDataPointsFilter) StepFilter(input DataPoints) (DataPoints, bool, error) {
	return input, true, nil
}

// OrientNormalsDataPointsFilter flips each normal so it points away from a
// fixed viewpoint (the sensor origin by convention).
type OrientNormalsDataPointsFilter struct {
	Viewpoint []float64 // length dim; nil means the origin
}

func (f OrientNormalsDataPointsFilter) PreFilter(input DataPoints) (DataPoints, bool, error) {
	return f.apply(input), true, nil
}

func (f OrientNormalsDataPointsFilter) StepFilter(input DataPoints) (DataPoints, bool, error) {
	return f.apply(input), true, nil
}

func (f OrientNormalsDataPointsFilter) apply(input DataPoints) DataPoints {
	offset, span, ok := input.DescriptorLabels.Find("normals")
	if !ok {
		return input
	}
	out := input.Clone()
	dim := span
	n := out.NumPoints()
	vp := f.Viewpoint
	if vp == nil {
		vp = make([]float64, dim)
	}
	for j := 0; j < n; j++ {
		dot := 0.0
		for i := 0; i < dim; i++ {
			toPoint := out.Features.At(i, j) - vp[i]
			dot += toPoint * out.Descriptors.At(offset+i, j)
		}
		if dot < 0 {
			for i := 0; i < dim; i++ {
				out.Descriptors.Set(offset+i, j, -out.Descriptors.At(offset+i, j))
			}
		}
	}
	return out
}

// appendDescriptor concatenates a new labelled row-block onto out's
// descriptor matrix, allocating it if absent.
func appendDescriptor(out *DataPoints, label Label, block *mat.Dense) {
	_, n := block.Dims()
	oldRows := 0
	if out.Descriptors != nil {
		oldRows, _ = out.Descriptors.Dims()
	}
	merged := mat.NewDense(oldRows+label.Span, n, nil)
	if oldRows > 0 {
		merged.Copy(out.Descriptors)
	}
	for i := 0; i < label.Span; i++ {
		for j := 0; j < n; j++ {
			merged.Set(oldRows+i, j, block.At(i, j))
		}
	}
	out.Descriptors = merged
	out.DescriptorLabels = append(out.DescriptorLabels, label)
}

func maxNeighborDist(center indexedPoint, neighbors []kdtree.ComparableDist) float64 {
	max := 0.0
	for _, nb := range neighbors {
		if nb.Dist > max {
			max = nb.Dist
		}
	}
	return math.Sqrt(max)
}

// hypersphereVolume returns the volume of a dim-ball of the given radius
// (dim is 2 or 3: circle area or sphere volume).
func hypersphereVolume(dim int, radius float64) float64 {
	switch dim {
	case 2:
		return math.Pi * radius * radius
	case 3:
		return (4.0 / 3.0) * math.Pi * radius * radius * radius
	default:
		return 0
	}
}
