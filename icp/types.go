// Package icp implements the core of an Iterative Closest Point engine for
// rigid registration of point clouds in 2D or 3D: a labelled point-cloud
// model, nearest-neighbor matching, outlier rejection, error minimization,
// convergence checking, and their composition through a pluggable Strategy.
package icp

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Scalar is the one real scalar type the engine operates over. gonum's mat
// package is float64-only, so "parametric over single/double precision" is
// resolved to float64 here (see SPEC_FULL.md §9).
type Scalar = float64

// Label names a contiguous run of rows ("span") in a feature or descriptor
// matrix, e.g. ("normals", 3).
type Label struct {
	Text string
	Span int
}

// LabelList is an ordered sequence of Labels. The sum of spans must equal
// the row count of the matrix it describes.
type LabelList []Label

// TotalSpan returns the sum of all label spans.
func (ll LabelList) TotalSpan() int {
	total := 0
	for _, l := range ll {
		total += l.Span
	}
	return total
}

// Find returns the row range [offset, offset+span) owned by the first label
// matching name, and whether it was found.
func (ll LabelList) Find(name string) (offset, span int, ok bool) {
	row := 0
	for _, l := range ll {
		if l.Text == name {
			return row, l.Span, true
		}
		row += l.Span
	}
	return 0, 0, false
}

// DataPoints is a labelled point cloud: a D×N feature matrix (columns are
// points, D is typically 3 or 4 with the last row homogeneous) plus an
// optional M×N descriptor matrix sharing the same column count.
type DataPoints struct {
	Features         *mat.Dense
	FeatureLabels    LabelList
	Descriptors      *mat.Dense // nil or 0 rows means "no descriptors"
	DescriptorLabels LabelList
}

// NumPoints returns the column count (point count) of the cloud.
func (d DataPoints) NumPoints() int {
	if d.Features == nil {
		return 0
	}
	_, n := d.Features.Dims()
	return n
}

// FeatureDim returns the row count of the feature matrix (D, including the
// homogeneous row if present).
func (d DataPoints) FeatureDim() int {
	if d.Features == nil {
		return 0
	}
	r, _ := d.Features.Dims()
	return r
}

// DescriptorDim returns the row count of the descriptor matrix (0 if the
// cloud carries no descriptors).
func (d DataPoints) DescriptorDim() int {
	if d.Descriptors == nil {
		return 0
	}
	r, _ := d.Descriptors.Dims()
	return r
}

// Validate checks the DataPoints invariants: label spans sum to the
// corresponding matrix's row count, and descriptors (if present) share the
// feature matrix's column count.
func (d DataPoints) Validate() error {
	if d.Features == nil {
		return &ShapeError{Reason: "features matrix is nil"}
	}
	fr, fc := d.Features.Dims()
	if d.FeatureLabels.TotalSpan() != fr {
		return &ShapeError{Reason: fmt.Sprintf(
			"feature label spans sum to %d, features has %d rows",
			d.FeatureLabels.TotalSpan(), fr)}
	}
	if d.Descriptors != nil {
		dr, dc := d.Descriptors.Dims()
		if dr > 0 && dc != fc {
			return &ShapeError{Reason: fmt.Sprintf(
				"descriptors has %d cols, features has %d cols", dc, fc)}
		}
		if d.DescriptorLabels.TotalSpan() != dr {
			return &ShapeError{Reason: fmt.Sprintf(
				"descriptor label spans sum to %d, descriptors has %d rows",
				d.DescriptorLabels.TotalSpan(), dr)}
		}
	}
	return nil
}

// GetDescriptorByName returns the row block owned by name, or an empty
// (0x0) matrix if the name is absent. Never errors.
func (d DataPoints) GetDescriptorByName(name string) *mat.Dense {
	if d.Descriptors == nil {
		return &mat.Dense{}
	}
	offset, span, ok := d.DescriptorLabels.Find(name)
	if !ok || span == 0 {
		return &mat.Dense{}
	}
	_, n := d.Descriptors.Dims()
	block := mat.NewDense(span, n, nil)
	block.Copy(d.Descriptors.Slice(offset, offset+span, 0, n))
	return block
}

// GeometricDim returns the number of geometric (non-homogeneous) coordinate
// rows: the span of the "coords" feature label if present, otherwise
// FeatureDim()-1 on the assumption that the last feature row is the
// homogeneous padding row (or FeatureDim() itself if there is only one row).
func (d DataPoints) GeometricDim() int {
	if _, span, ok := d.FeatureLabels.Find("coords"); ok {
		return span
	}
	fd := d.FeatureDim()
	if fd > 1 {
		return fd - 1
	}
	return fd
}

// Swap exchanges features, descriptors, and both label lists between a and
// b, replacing a cloud with its filtered successor without reallocation.
func Swap(a, b *DataPoints) {
	a.Features, b.Features = b.Features, a.Features
	a.FeatureLabels, b.FeatureLabels = b.FeatureLabels, a.FeatureLabels
	a.Descriptors, b.Descriptors = b.Descriptors, a.Descriptors
	a.DescriptorLabels, b.DescriptorLabels = b.DescriptorLabels, a.DescriptorLabels
}

// Clone makes a deep copy of the cloud so the original is untouched by
// subsequent in-place mutation.
func (d DataPoints) Clone() DataPoints {
	out := DataPoints{
		FeatureLabels: append(LabelList(nil), d.FeatureLabels...),
	}
	if d.Features != nil {
		r, c := d.Features.Dims()
		out.Features = mat.NewDense(r, c, nil)
		out.Features.Copy(d.Features)
	}
	if d.Descriptors != nil {
		r, c := d.Descriptors.Dims()
		out.Descriptors = mat.NewDense(r, c, nil)
		out.Descriptors.Copy(d.Descriptors)
		out.DescriptorLabels = append(LabelList(nil), d.DescriptorLabels...)
	}
	return out
}

// TransformationParameters is a (D+1)x(D+1) homogeneous rigid transform: the
// leading DxD block is an orthonormal rotation with determinant +1, the
// last column is the translation, and the last row is [0 ... 0 1].
type TransformationParameters = *mat.Dense

// Identity returns the (dim+1)x(dim+1) identity transform for a dim-D space
// (dim is 2 or 3; the matrix size is dim+1 to account for the homogeneous
// row/column).
func Identity(dim int) TransformationParameters {
	n := dim + 1
	t := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		t.Set(i, i, 1)
	}
	return t
}

// Matches holds, for each reading column, its K nearest reference columns.
// dists[k][i] is the squared distance from reading point i to its k-th
// neighbor (k=0 is nearest); ids[k][i] is the reference column index.
// +Inf marks an invalid slot.
type Matches struct {
	Dists *mat.Dense
	IDs   [][]int // IDs[k][i], shape K x N (kept as ints, not float, for exactness)
}

// K returns the number of neighbors per reading point.
func (m Matches) K() int {
	if m.Dists == nil {
		return 0
	}
	r, _ := m.Dists.Dims()
	return r
}

// N returns the number of reading points.
func (m Matches) N() int {
	if m.Dists == nil {
		return 0
	}
	_, c := m.Dists.Dims()
	return c
}

// OutlierWeights is a K×N nonnegative matrix of per-match reliability
// weights; 0 means "rejected". Shape always equals a Matches.Dists shape.
type OutlierWeights struct {
	Weights *mat.Dense
}

// NewOutlierWeights allocates a K×N weights matrix filled with fill.
func NewOutlierWeights(k, n int, fill float64) OutlierWeights {
	if k == 0 || n == 0 {
		return OutlierWeights{Weights: &mat.Dense{}}
	}
	w := mat.NewDense(k, n, nil)
	if fill != 0 {
		for i := 0; i < k; i++ {
			for j := 0; j < n; j++ {
				w.Set(i, j, fill)
			}
		}
	}
	return OutlierWeights{Weights: w}
}

// ErrorElements is the filtered, weighted, paired-up view used by error
// minimizers: co-indexed reading/reference columns with identical column
// counts, plus the weights and matches they were drawn from.
type ErrorElements struct {
	Reading   DataPoints
	Reference DataPoints
	Weights   []float64 // one weight per paired column, same order as Reading/Reference columns
	Matches   Matches
}
