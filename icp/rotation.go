package icp

import (
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/num/quat"
)

// rotationToQuaternion converts a DxD (D=2 or 3) orthonormal rotation block
// to a unit quaternion. 2D rotations are lifted into the xy-plane of 3-space
// (rotation about the z axis) so Checkers can treat 2D and 3D uniformly.
//
// Uses Shepherd's method (the same branch-on-largest-diagonal-term
// construction Eigen's Quaternion(Matrix3) constructor uses) for numerical
// stability near 180-degree rotations.
func rotationToQuaternion(r *mat.Dense) quat.Number {
	dim, _ := r.Dims()
	if dim == 2 {
		theta := math.Atan2(r.At(1, 0), r.At(0, 0))
		return quat.Number{Real: math.Cos(theta / 2), Imag: 0, Jmag: 0, Kmag: math.Sin(theta / 2)}
	}

	m00, m01, m02 := r.At(0, 0), r.At(0, 1), r.At(0, 2)
	m10, m11, m12 := r.At(1, 0), r.At(1, 1), r.At(1, 2)
	m20, m21, m22 := r.At(2, 0), r.At(2, 1), r.At(2, 2)

	trace := m00 + m11 + m22
	var w, x, y, z float64
	switch {
	case trace > 0:
		s := 0.5 / math.Sqrt(trace+1.0)
		w = 0.25 / s
		x = (m21 - m12) * s
		y = (m02 - m20) * s
		z = (m10 - m01) * s
	case m00 > m11 && m00 > m22:
		s := 2.0 * math.Sqrt(1.0+m00-m11-m22)
		w = (m21 - m12) / s
		x = 0.25 * s
		y = (m01 + m10) / s
		z = (m02 + m20) / s
	case m11 > m22:
		s := 2.0 * math.Sqrt(1.0+m11-m00-m22)
		w = (m02 - m20) / s
		x = (m01 + m10) / s
		y = 0.25 * s
		z = (m12 + m21) / s
	default:
		s := 2.0 * math.Sqrt(1.0+m22-m00-m11)
		w = (m10 - m01) / s
		x = (m02 + m20) / s
		y = (m12 + m21) / s
		z = 0.25 * s
	}
	return quat.Number{Real: w, Imag: x, Jmag: y, Kmag: z}
}

// quaternionAngle returns the rotation angle (radians, in [0, pi]) encoded
// by a unit quaternion.
func quaternionAngle(q quat.Number) float64 {
	w := q.Real
	if w > 1 {
		w = 1
	} else if w < -1 {
		w = -1
	}
	return 2 * math.Acos(math.Abs(w))
}

// quaternionAngularDistance returns the angle (radians) of the relative
// rotation between two quaternions: the angle of q2 * conj(q1).
func quaternionAngularDistance(q1, q2 quat.Number) float64 {
	rel := quat.Mul(q2, quat.Conj(q1))
	return quaternionAngle(rel)
}
