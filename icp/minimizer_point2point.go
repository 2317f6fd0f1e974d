package icp

import (
	"gonum.org/v1/gonum/mat"
)

// PointToPointErrorMinimizer finds the rigid transform minimizing the
// weighted sum of squared point-to-point distances, via the Kabsch/Umeyama
// solution: weighted centroids, a cross-covariance matrix, and an SVD whose
// U/V factors compose the rotation (with the standard reflection sign-fix),
// grounded on this codebase's own SVD usage (mat.SVD.Factorize/VTo) and
// generalizing the teacher's 2D atan2 Procrustes solver to D dimensions.
type PointToPointErrorMinimizer struct{}

func (PointToPointErrorMinimizer) Compute(e ErrorElements) (TransformationParameters, error) {
	n := e.Reading.NumPoints()
	if n == 0 {
		return nil, &DegenerateError{Minimizer: "PointToPointErrorMinimizer", Reason: "no matched points"}
	}
	dim := e.Reading.GeometricDim()

	readCen := centroid(e.Reading.Features, dim, e.Weights)
	refCen := centroid(e.Reference.Features, dim, e.Weights)

	h := mat.NewDense(dim, dim, nil)
	totalWeight := 0.0
	for j := 0; j < n; j++ {
		w := e.Weights[j]
		totalWeight += w
		for a := 0; a < dim; a++ {
			ra := e.Reading.Features.At(a, j) - readCen[a]
			for b := 0; b < dim; b++ {
				rb := e.Reference.Features.At(b, j) - refCen[b]
				h.Set(a, b, h.At(a, b)+w*ra*rb)
			}
		}
	}
	if totalWeight <= 0 {
		return nil, &DegenerateError{Minimizer: "PointToPointErrorMinimizer", Reason: "matched weights sum to zero"}
	}

	var svd mat.SVD
	if !svd.Factorize(h, mat.SVDFull) {
		return nil, &DegenerateError{Minimizer: "PointToPointErrorMinimizer", Reason: "SVD factorization failed"}
	}
	var u, v mat.Dense
	svd.UTo(&u)
	svd.VTo(&v)

	var vut mat.Dense
	vut.Mul(&v, u.T())

	det := determinant(&vut)
	sign := mat.NewDense(dim, dim, nil)
	for i := 0; i < dim; i++ {
		sign.Set(i, i, 1)
	}
	if det < 0 {
		sign.Set(dim-1, dim-1, -1)
	}

	var rot mat.Dense
	rot.Mul(&v, sign)
	var rotFinal mat.Dense
	rotFinal.Mul(&rot, u.T())

	trans := make([]float64, dim)
	rc := mat.NewVecDense(dim, readCen)
	var rotRc mat.VecDense
	rotRc.MulVec(&rotFinal, rc)
	for i := 0; i < dim; i++ {
		trans[i] = refCen[i] - rotRc.AtVec(i)
	}

	t := Identity(dim)
	for i := 0; i < dim; i++ {
		for j := 0; j < dim; j++ {
			t.Set(i, j, rotFinal.At(i, j))
		}
		t.Set(i, dim, trans[i])
	}
	return t, nil
}
