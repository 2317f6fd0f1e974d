package icp

// ErrorMinimizer computes the transform that best aligns a reading cloud to
// its matched reference points, given per-match weights.
type ErrorMinimizer interface {
	Compute(elements ErrorElements) (TransformationParameters, error)
}

// buildErrorElements expands each reading column into one pair per neighbor
// rank whose weight is > 0 and whose reference id is valid, producing the
// co-indexed view every ErrorMinimizer consumes. Pairs are ordered by
// reading column first, then by neighbor rank (nearest first).
func buildErrorElements(reading, reference DataPoints, matches Matches, weights OutlierWeights) ErrorElements {
	k, n := matches.K(), matches.N()
	readIdx := make([]int, 0, n*k)
	refIdx := make([]int, 0, n*k)
	w := make([]float64, 0, n*k)
	for j := 0; j < n; j++ {
		for r := 0; r < k; r++ {
			weight := weights.Weights.At(r, j)
			if weight <= 0 {
				continue
			}
			refCol := matches.IDs[r][j]
			if refCol < 0 {
				continue
			}
			readIdx = append(readIdx, j)
			refIdx = append(refIdx, refCol)
			w = append(w, weight)
		}
	}
	return ErrorElements{
		Reading:   selectColumns(reading, readIdx),
		Reference: selectColumns(reference, refIdx),
		Weights:   w,
		Matches:   matches,
	}
}

// IdentityErrorMinimizer always returns the identity transform, ignoring
// the matched elements. Used for tests and as a no-op placeholder.
type IdentityErrorMinimizer struct {
	Dim int
}

func (m IdentityErrorMinimizer) Compute(elements ErrorElements) (TransformationParameters, error) {
	return Identity(m.Dim), nil
}
