package icp

import (
	"sort"

	"gonum.org/v1/gonum/spatial/kdtree"
)

// indexedPoint is a D-dimensional point carrying the column index it was
// built from, so a kd-tree query result can be mapped straight back to a
// reference cloud column without a linear re-scan.
type indexedPoint struct {
	coords []float64
	idx    int
}

func (p indexedPoint) Compare(c kdtree.Comparable, d kdtree.Dim) float64 {
	q := c.(indexedPoint)
	return p.coords[int(d)] - q.coords[int(d)]
}

func (p indexedPoint) Dims() int { return len(p.coords) }

func (p indexedPoint) Distance(c kdtree.Comparable) float64 {
	q := c.(indexedPoint)
	sum := 0.0
	for i, v := range p.coords {
		diff := v - q.coords[i]
		sum += diff * diff
	}
	return sum
}

// indexedPoints satisfies kdtree.Interface over a slice of indexedPoint.
type indexedPoints []indexedPoint

func (p indexedPoints) Index(i int) kdtree.Comparable         { return p[i] }
func (p indexedPoints) Len() int                              { return len(p) }
func (p indexedPoints) Slice(start, end int) kdtree.Interface { return p[start:end] }

func (p indexedPoints) Pivot(d kdtree.Dim) int {
	return kdtree.Partition(indexedPlane{indexedPoints: p, Dim: d},
		kdtree.MedianOfRandoms(indexedPlane{indexedPoints: p, Dim: d}, 100))
}

// indexedPlane implements sort.Interface/kdtree.SortSlicer for a single
// axis, the split mechanism gonum's kdtree.Partition requires.
type indexedPlane struct {
	indexedPoints
	kdtree.Dim
}

func (p indexedPlane) Less(i, j int) bool {
	return p.indexedPoints[i].coords[int(p.Dim)] < p.indexedPoints[j].coords[int(p.Dim)]
}

func (p indexedPlane) Slice(start, end int) kdtree.SortSlicer {
	return indexedPlane{indexedPoints: p.indexedPoints[start:end], Dim: p.Dim}
}

func (p indexedPlane) Swap(i, j int) {
	p.indexedPoints[i], p.indexedPoints[j] = p.indexedPoints[j], p.indexedPoints[i]
}

// newIndexedPoints builds one indexedPoint per column of the first dim rows
// of features.
func newIndexedPoints(d DataPoints, dim int) indexedPoints {
	n := d.NumPoints()
	out := make(indexedPoints, n)
	for j := 0; j < n; j++ {
		coords := make([]float64, dim)
		for i := 0; i < dim; i++ {
			coords[i] = d.Features.At(i, j)
		}
		out[j] = indexedPoint{coords: coords, idx: j}
	}
	return out
}

// kNearest returns up to k neighbors of query from tree, sorted nearest
// first. NKeeper.Heap is a bounded max-heap (its internal order is not
// distance-sorted), so results are re-sorted by distance after draining the
// nil sentinel slots.
func kNearest(tree *kdtree.Tree, query indexedPoint, k int) []kdtree.ComparableDist {
	keeper := kdtree.NewNKeeper(k)
	tree.NearestSet(keeper, query)
	out := make([]kdtree.ComparableDist, 0, k)
	for _, item := range keeper.Heap {
		if item.Comparable == nil {
			continue
		}
		out = append(out, item)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Dist < out[j].Dist })
	return out
}
