package icp

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// PointToPlaneErrorMinimizer finds the rigid transform minimizing the
// weighted sum of squared point-to-plane distances (reading point to the
// tangent plane of its matched reference point, oriented by the reference
// normal). It linearizes the rotation around the identity (small-angle
// approximation: sin(theta) ~= theta, cos(theta) ~= 1) and solves the
// resulting weighted normal-equations system by least squares (the
// minimum-norm SVD solution, so motions the matches leave unconstrained,
// such as sliding within a single plane, stay at zero), then
// re-orthonormalizes the recovered rotation block.
type PointToPlaneErrorMinimizer struct{}

func (PointToPlaneErrorMinimizer) Compute(e ErrorElements) (TransformationParameters, error) {
	n := e.Reading.NumPoints()
	if n == 0 {
		return nil, &DegenerateError{Minimizer: "PointToPlaneErrorMinimizer", Reason: "no matched points"}
	}
	dim := e.Reading.GeometricDim()

	offset, span, ok := e.Reference.DescriptorLabels.Find("normals")
	if !ok || span != dim {
		return nil, &MissingDescriptorError{Stage: "PointToPlaneErrorMinimizer", Descriptor: "normals"}
	}

	// Unknowns: dim==3 -> [a b c tx ty tz] (rotation about x,y,z then
	// translation); dim==2 -> [theta tx ty].
	unknowns := 6
	if dim == 2 {
		unknowns = 3
	}

	ata := mat.NewDense(unknowns, unknowns, nil)
	atb := mat.NewVecDense(unknowns, nil)

	jac := make([]float64, unknowns)
	for j := 0; j < n; j++ {
		w := e.Weights[j]
		if w <= 0 {
			continue
		}
		px := e.Reading.Features.At(0, j)
		py := e.Reading.Features.At(1, j)
		qx := e.Reference.Features.At(0, j)
		qy := e.Reference.Features.At(1, j)
		nx := e.Reference.Descriptors.At(offset+0, j)
		ny := e.Reference.Descriptors.At(offset+1, j)

		var resid float64
		if dim == 2 {
			jac[0] = -py*nx + px*ny
			jac[1] = nx
			jac[2] = ny
			resid = (qx-px)*nx + (qy-py)*ny
		} else {
			pz := e.Reading.Features.At(2, j)
			qz := e.Reference.Features.At(2, j)
			nz := e.Reference.Descriptors.At(offset+2, j)
			// Cross product (p x n) gives the rotation Jacobian columns
			// for small angles about x, y, z respectively.
			jac[0] = py*nz - pz*ny
			jac[1] = pz*nx - px*nz
			jac[2] = px*ny - py*nx
			jac[3] = nx
			jac[4] = ny
			jac[5] = nz
			resid = (qx-px)*nx + (qy-py)*ny + (qz-pz)*nz
		}

		for a := 0; a < unknowns; a++ {
			for b := 0; b < unknowns; b++ {
				ata.Set(a, b, ata.At(a, b)+w*jac[a]*jac[b])
			}
			atb.SetVec(a, atb.AtVec(a)+w*jac[a]*resid)
		}
	}

	var svd mat.SVD
	if !svd.Factorize(ata, mat.SVDThin) {
		return nil, &DegenerateError{Minimizer: "PointToPlaneErrorMinimizer", Reason: "SVD factorization of the normal equations failed"}
	}
	rank := svd.Rank(1e-12)
	if rank == 0 {
		return nil, &DegenerateError{Minimizer: "PointToPlaneErrorMinimizer", Reason: "normal-equations system has rank 0"}
	}
	var x mat.VecDense
	svd.SolveVecTo(&x, atb, rank)

	t := Identity(dim)
	if dim == 2 {
		theta := x.AtVec(0)
		t.Set(0, 0, math.Cos(theta))
		t.Set(0, 1, -math.Sin(theta))
		t.Set(1, 0, math.Sin(theta))
		t.Set(1, 1, math.Cos(theta))
		t.Set(0, 2, x.AtVec(1))
		t.Set(1, 2, x.AtVec(2))
		return t, nil
	}

	omega := mat.NewDense(3, 3, []float64{
		0, -x.AtVec(2), x.AtVec(1),
		x.AtVec(2), 0, -x.AtVec(0),
		-x.AtVec(1), x.AtVec(0), 0,
	})
	rot := exponentiateSmallRotation(omega)
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			t.Set(i, j, rot.At(i, j))
		}
		t.Set(i, 3, x.AtVec(3+i))
	}
	return t, nil
}

// exponentiateSmallRotation maps a skew-symmetric generator to a proper
// rotation via Rodrigues' formula, recovering an orthonormal matrix from the
// linearized solution rather than truncating at R ~= I + omega.
func exponentiateSmallRotation(omega *mat.Dense) *mat.Dense {
	wx, wy, wz := omega.At(2, 1), omega.At(0, 2), omega.At(1, 0)
	theta := math.Sqrt(wx*wx + wy*wy + wz*wz)
	if theta < 1e-12 {
		out := mat.NewDense(3, 3, nil)
		for i := 0; i < 3; i++ {
			out.Set(i, i, 1)
		}
		out.Add(out, omega)
		return out
	}
	var omega2 mat.Dense
	omega2.Mul(omega, omega)

	out := mat.NewDense(3, 3, nil)
	for i := 0; i < 3; i++ {
		out.Set(i, i, 1)
	}
	sinTerm := math.Sin(theta) / theta
	cosTerm := (1 - math.Cos(theta)) / (theta * theta)

	var scaledOmega, scaledOmega2 mat.Dense
	scaledOmega.Scale(sinTerm, omega)
	scaledOmega2.Scale(cosTerm, &omega2)

	out.Add(out, &scaledOmega)
	out.Add(out, &scaledOmega2)
	return out
}
