package icp

import (
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/kdtree"
)

// Matcher finds, for each reading column, its K nearest reference columns.
// Init is called once per ICP call with the (possibly pre-filtered)
// reference cloud; FindClosests is called once per iteration with the
// current reading cloud.
type Matcher interface {
	Init(reference DataPoints) error
	FindClosests(reading DataPoints) (Matches, error)
}

// NullMatcher pairs reading column i with reference column i, requiring
// equal column counts. Useful for tests with known correspondences and as
// the degenerate "no search" baseline.
type NullMatcher struct {
	n int
}

func (m *NullMatcher) Init(reference DataPoints) error {
	m.n = reference.NumPoints()
	return nil
}

func (m *NullMatcher) FindClosests(reading DataPoints) (Matches, error) {
	n := reading.NumPoints()
	if n != m.n {
		return Matches{}, &ShapeError{Reason: "NullMatcher: reading/reference column counts differ"}
	}
	dists := mat.NewDense(1, n, nil)
	ids := make([][]int, 1)
	ids[0] = make([]int, n)
	for j := 0; j < n; j++ {
		ids[0][j] = j
	}
	return Matches{Dists: dists, IDs: ids}, nil
}

// KDTreeMatcher wraps a gonum kd-tree over the reference cloud's features,
// grounded on the same Comparable/Interface/NKeeper usage a k-nearest
// spatial interpolator in this codebase already relies on.
type KDTreeMatcher struct {
	KNN     int
	Epsilon float64 // accepted for contract parity with the original matcher; gonum's exact NearestSet has no approximate mode

	dim  int
	tree *kdtree.Tree
}

func (m *KDTreeMatcher) Init(reference DataPoints) error {
	m.dim = reference.GeometricDim()
	points := newIndexedPoints(reference, m.dim)
	m.tree = kdtree.New(points, true)
	return nil
}

func (m *KDTreeMatcher) FindClosests(reading DataPoints) (Matches, error) {
	if m.tree == nil {
		return Matches{}, &ShapeError{Reason: "KDTreeMatcher: Init was not called"}
	}
	k := m.KNN
	if k < 1 {
		k = 1
	}
	n := reading.NumPoints()
	dists := mat.NewDense(k, n, nil)
	ids := make([][]int, k)
	for r := range ids {
		ids[r] = make([]int, n)
	}

	query := newIndexedPoints(reading, m.dim)
	for j := 0; j < n; j++ {
		found := kNearest(m.tree, query[j], k)
		for r := 0; r < k; r++ {
			if r < len(found) {
				p := found[r].Comparable.(indexedPoint)
				dists.Set(r, j, found[r].Dist)
				ids[r][j] = p.idx
			} else {
				dists.Set(r, j, math.Inf(1))
				ids[r][j] = -1
			}
		}
	}
	return Matches{Dists: dists, IDs: ids}, nil
}
