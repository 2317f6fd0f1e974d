package icp

import (
	"gonum.org/v1/gonum/mat"
)

// Transformation maps a DataPoints cloud through a rigid transform without
// mutating its input.
type Transformation interface {
	Compute(input DataPoints, t TransformationParameters) (DataPoints, error)
}

// Transformations applies each registered Transformation in order.
type Transformations []Transformation

// Apply runs every transformation in registration order, returning the
// final cloud.
func (ts Transformations) Apply(input DataPoints, t TransformationParameters) (DataPoints, error) {
	cur := input
	for _, tr := range ts {
		var err error
		cur, err = tr.Compute(cur, t)
		if err != nil {
			return DataPoints{}, err
		}
	}
	return cur, nil
}

// rotationTranslation splits a (D+1)x(D+1) homogeneous transform into its
// DxD rotation block and D-length translation vector.
func rotationTranslation(t TransformationParameters) (rot *mat.Dense, trans []float64) {
	n, _ := t.Dims()
	d := n - 1
	rot = mat.NewDense(d, d, nil)
	rot.Copy(t.Slice(0, d, 0, d))
	trans = make([]float64, d)
	for i := 0; i < d; i++ {
		trans[i] = t.At(i, d)
	}
	return rot, trans
}

// TransformFeatures multiplies the first D rows of features by the
// transform's rotation block and adds the translation; the homogeneous row
// (if present) is left untouched. Shape is preserved.
type TransformFeatures struct{}

func (TransformFeatures) Compute(input DataPoints, t TransformationParameters) (DataPoints, error) {
	n, _ := t.Dims()
	d := n - 1
	if input.FeatureDim() < d {
		return DataPoints{}, &ShapeError{Reason: "TransformFeatures: input feature dim smaller than transform dim"}
	}

	rot, trans := rotationTranslation(t)
	_, cols := input.Features.Dims()

	out := input.Clone()
	src := input.Features.Slice(0, d, 0, cols).(*mat.Dense)

	var rotated mat.Dense
	rotated.Mul(rot, src)
	for i := 0; i < d; i++ {
		for j := 0; j < cols; j++ {
			out.Features.Set(i, j, rotated.At(i, j)+trans[i])
		}
	}
	return out, nil
}

// transformableDescriptors names the descriptor label classes that rotate
// with the cloud (but never translate): surface normals and the flattened
// eigenvector basis the surface-normal filters attach.
var transformableDescriptors = map[string]bool{
	"normals":     true,
	"eigVectors":  true,
}

// TransformDescriptors rotates any descriptor row-group whose label names a
// transformable vector/tensor class (normals, eigVectors); translation is
// never added to descriptors. Other descriptor rows (density, eigenvalues,
// matched ids) pass through unchanged.
type TransformDescriptors struct{}

func (TransformDescriptors) Compute(input DataPoints, t TransformationParameters) (DataPoints, error) {
	out := input.Clone()
	if out.Descriptors == nil || out.DescriptorDim() == 0 {
		return out, nil
	}

	n, _ := t.Dims()
	d := n - 1
	rot, _ := rotationTranslation(t)
	_, cols := out.Descriptors.Dims()

	row := 0
	for _, lbl := range out.DescriptorLabels {
		if transformableDescriptors[lbl.Text] {
			switch lbl.Text {
			case "normals":
				if lbl.Span != d {
					return DataPoints{}, &ShapeError{Reason: "TransformDescriptors: normals span does not match transform dim"}
				}
				block := out.Descriptors.Slice(row, row+d, 0, cols).(*mat.Dense)
				var rotated mat.Dense
				rotated.Mul(rot, block)
				for i := 0; i < d; i++ {
					for j := 0; j < cols; j++ {
						out.Descriptors.Set(row+i, j, rotated.At(i, j))
					}
				}
			case "eigVectors":
				// Stored per point as a flattened d*d block in row-major
				// order (element (r, c) of V at row r*d+c), the layout the
				// surface-normal filters write; the block is not in
				// column-major order. V is a basis that rotates as R * V.
				if lbl.Span != d*d {
					return DataPoints{}, &ShapeError{Reason: "TransformDescriptors: eigVectors span does not match d*d"}
				}
				for j := 0; j < cols; j++ {
					v := mat.NewDense(d, d, nil)
					for r := 0; r < d; r++ {
						for c := 0; c < d; c++ {
							v.Set(r, c, out.Descriptors.At(row+r*d+c, j))
						}
					}
					var rv mat.Dense
					rv.Mul(rot, v)
					for r := 0; r < d; r++ {
						for c := 0; c < d; c++ {
							out.Descriptors.Set(row+r*d+c, j, rv.At(r, c))
						}
					}
				}
			}
		}
		row += lbl.Span
	}
	return out, nil
}

// Compose returns a*b (applying b first, then a), matching the spec's
// T <- dT * T accumulation convention.
func Compose(a, b TransformationParameters) TransformationParameters {
	n, _ := a.Dims()
	out := mat.NewDense(n, n, nil)
	out.Mul(a, b)
	return out
}

// determinant is used by the point-to-point minimizer's reflection sign-fix
// and by ValidateRotation.
func determinant(m *mat.Dense) float64 {
	return mat.Det(m)
}

// ValidateRotation reports whether the leading DxD block of t is a proper
// rotation (orthonormal, determinant +1) within tolerance eps.
func ValidateRotation(t TransformationParameters, eps float64) bool {
	rot, _ := rotationTranslation(t)
	d, _ := rot.Dims()

	var rtr mat.Dense
	rtr.Mul(rot.T(), rot)
	for i := 0; i < d; i++ {
		for j := 0; j < d; j++ {
			want := 0.0
			if i == j {
				want = 1.0
			}
			if diff := rtr.At(i, j) - want; diff > eps || diff < -eps {
				return false
			}
		}
	}
	det := determinant(rot)
	return det > 1-eps && det < 1+eps
}

// centroid returns the weighted column-mean of m's first d rows. weights may
// be nil, meaning uniform weight 1.
func centroid(m *mat.Dense, d int, weights []float64) []float64 {
	_, n := m.Dims()
	out := make([]float64, d)
	total := 0.0
	for j := 0; j < n; j++ {
		w := 1.0
		if weights != nil {
			w = weights[j]
		}
		total += w
		for i := 0; i < d; i++ {
			out[i] += w * m.At(i, j)
		}
	}
	if total == 0 {
		return out
	}
	for i := range out {
		out[i] /= total
	}
	return out
}
