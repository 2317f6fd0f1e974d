package icp

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"gonum.org/v1/gonum/mat"
)

func unitSquare(t *testing.T) DataPoints {
	t.Helper()
	return makeCloud(t, [][]float64{{0, 0}, {1, 0}, {0, 1}, {1, 1}})
}

func offsetCloud(t *testing.T, base DataPoints, dx, dy float64) DataPoints {
	t.Helper()
	out := base.Clone()
	for j := 0; j < out.NumPoints(); j++ {
		out.Features.Set(0, j, out.Features.At(0, j)+dx)
		out.Features.Set(1, j, out.Features.At(1, j)+dy)
	}
	return out
}

func rotateCloud(t *testing.T, base DataPoints, theta, dx, dy float64) DataPoints {
	t.Helper()
	out := base.Clone()
	cos, sin := math.Cos(theta), math.Sin(theta)
	for j := 0; j < out.NumPoints(); j++ {
		x, y := out.Features.At(0, j), out.Features.At(1, j)
		out.Features.Set(0, j, cos*x-sin*y+dx)
		out.Features.Set(1, j, sin*x+cos*y+dy)
	}
	return out
}

// Scenario 1: identity fixed-point.
func TestICP_IdentityFixedPoint(t *testing.T) {
	reference := unitSquare(t)
	reading := unitSquare(t)

	strategy := &Strategy{
		ReadingDataPointsFilters:   DataPointsFilters{IdentityDataPointsFilter{}},
		ReferenceDataPointsFilters: DataPointsFilters{IdentityDataPointsFilter{}},
		Transformations:            Transformations{TransformFeatures{}, TransformDescriptors{}},
		Matcher:                    &NullMatcher{},
		FeatureOutlierFilters:      FeatureOutlierFilters{NullFeatureOutlierFilter{}},
		ErrorMinimizer:             PointToPointErrorMinimizer{},
		TransformationCheckers:     TransformationCheckers{&CounterTransformationChecker{MaxIterations: 5}},
	}

	got, err := Run(Identity(2), reading, reference, strategy)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !closeToIdentity(got, 1e-6) {
		t.Errorf("expected near-identity transform, got:\n%v", mat.Formatted(got))
	}
}

// Scenario 2: pure translation recovery.
func TestICP_PureTranslationRecovery(t *testing.T) {
	reference := unitSquare(t)
	reading := offsetCloud(t, reference, 0.5, 0.3)

	strategy := &Strategy{
		Transformations:        Transformations{TransformFeatures{}, TransformDescriptors{}},
		Matcher:                &KDTreeMatcher{KNN: 1},
		FeatureOutlierFilters:  FeatureOutlierFilters{MaxDistOutlierFilter{MaxDist: 10.0}},
		ErrorMinimizer:         PointToPointErrorMinimizer{},
		TransformationCheckers: TransformationCheckers{&CounterTransformationChecker{MaxIterations: 30}},
	}

	got, err := Run(Identity(2), reading, reference, strategy)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if math.Abs(got.At(0, 2)+0.5) > 1e-6 || math.Abs(got.At(1, 2)+0.3) > 1e-6 {
		t.Errorf("translation = (%v, %v), want (-0.5, -0.3)", got.At(0, 2), got.At(1, 2))
	}
	if !ValidateRotation(got, 1e-6) {
		t.Errorf("rotation block should remain identity")
	}
}

// Scenario 3: small rotation + translation.
func TestICP_SmallRotationAndTranslation(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	coords := make([][]float64, 40)
	for i := range coords {
		coords[i] = []float64{rng.Float64() * 10, rng.Float64() * 10}
	}
	reference := makeCloud(t, coords)
	reading := rotateCloud(t, reference, 0.2, 0.2, -0.1)

	strategy := &Strategy{
		Transformations:        Transformations{TransformFeatures{}, TransformDescriptors{}},
		Matcher:                &KDTreeMatcher{KNN: 1},
		FeatureOutlierFilters:  FeatureOutlierFilters{MaxDistOutlierFilter{MaxDist: 0.05}},
		ErrorMinimizer:         PointToPointErrorMinimizer{},
		TransformationCheckers: TransformationCheckers{
			&CounterTransformationChecker{MaxIterations: 60},
			&ErrorTransformationChecker{MinDeltaRotation: 1e-3, MinDeltaTranslation: 1e-3, Tail: 3},
		},
	}

	got, err := Run(Identity(2), reading, reference, strategy)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	gotTheta := math.Atan2(got.At(1, 0), got.At(0, 0))
	if math.Abs(gotTheta+0.2) > 0.05 {
		t.Errorf("recovered rotation = %v, want close to -0.2", gotTheta)
	}
	if math.Abs(got.At(0, 2)+0.2) > 0.05 || math.Abs(got.At(1, 2)-0.1) > 0.05 {
		t.Errorf("recovered translation = (%v, %v), want close to (-0.2, 0.1)", got.At(0, 2), got.At(1, 2))
	}
}

// Scenario 4: trimmed outlier rejection.
func TestICP_TrimmedOutlierRejection(t *testing.T) {
	reference := unitSquare(t)
	rng := rand.New(rand.NewSource(11))

	coords := [][]float64{{0, 0}, {1, 0}, {0, 1}, {1, 1}}
	for i := 0; i < 2; i++ { // 2 outliers added to 4 inliers ~ 30%+
		coords = append(coords, []float64{rng.Float64() * 50, rng.Float64() * 50})
	}
	reading := makeCloud(t, coords)

	strategy := &Strategy{
		Transformations:        Transformations{TransformFeatures{}, TransformDescriptors{}},
		Matcher:                &KDTreeMatcher{KNN: 1},
		FeatureOutlierFilters:  FeatureOutlierFilters{TrimmedDistOutlierFilter{Ratio: 0.6}},
		ErrorMinimizer:         PointToPointErrorMinimizer{},
		TransformationCheckers: TransformationCheckers{&CounterTransformationChecker{MaxIterations: 30}},
		// Feature weights only: with the default 0.5 blend against the Null
		// descriptor filter, trimmed matches would keep weight 0.5.
		OutlierMixingWeight: 1,
	}

	got, err := Run(Identity(2), reading, reference, strategy)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !closeToIdentity(got, 1e-3) {
		t.Errorf("expected near-identity transform despite outliers, got:\n%v", mat.Formatted(got))
	}
}

// Scenario 5: bound checker trips.
func TestICP_BoundCheckerTrips(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	coords := make([][]float64, 40)
	for i := range coords {
		coords[i] = []float64{rng.Float64() * 10, rng.Float64() * 10}
	}
	reference := makeCloud(t, coords)
	reading := rotateCloud(t, reference, 0.2, 0.2, -0.1)

	strategy := &Strategy{
		Transformations:       Transformations{TransformFeatures{}, TransformDescriptors{}},
		Matcher:               &KDTreeMatcher{KNN: 1},
		FeatureOutlierFilters: FeatureOutlierFilters{MaxDistOutlierFilter{MaxDist: 0.05}},
		ErrorMinimizer:        PointToPointErrorMinimizer{},
		TransformationCheckers: TransformationCheckers{
			&CounterTransformationChecker{MaxIterations: 60},
			&BoundTransformationChecker{MaxRotationAngle: 0.01, MaxTranslationNorm: 0.01},
		},
	}

	_, err := Run(Identity(2), reading, reference, strategy)
	var convErr *ConvergenceError
	if !errors.As(err, &convErr) {
		t.Fatalf("expected a ConvergenceError, got %v", err)
	}
}

// Scenario 6: point-to-plane on planar reference.
func TestICP_PointToPlaneOnPlanarReference(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	n := 60
	coords := make([][]float64, n)
	for i := 0; i < n; i++ {
		x, y := rng.Float64()*5, rng.Float64()*5
		coords[i] = []float64{x, y, 0}
	}
	reference := makeCloud(t, coords)
	normalMat := mat.NewDense(3, n, nil)
	for i := 0; i < n; i++ {
		normalMat.Set(2, i, 1)
	}
	reference.Descriptors = normalMat
	reference.DescriptorLabels = LabelList{{Text: "normals", Span: 3}}

	theta := 0.05
	cos, sin := math.Cos(theta), math.Sin(theta)
	readingCoords := make([][]float64, n)
	for i, c := range coords {
		// small rotation about the x axis plus translation along z.
		y, z := c[1], 0.0
		ry := cos*y - sin*z
		rz := sin*y + cos*z
		readingCoords[i] = []float64{c[0], ry, rz + 0.4}
	}
	reading := makeCloud(t, readingCoords)

	strategy := &Strategy{
		Transformations:        Transformations{TransformFeatures{}, TransformDescriptors{}},
		Matcher:                &KDTreeMatcher{KNN: 1},
		FeatureOutlierFilters:  FeatureOutlierFilters{NullFeatureOutlierFilter{}},
		ErrorMinimizer:         PointToPlaneErrorMinimizer{},
		TransformationCheckers: TransformationCheckers{&CounterTransformationChecker{MaxIterations: 10}},
	}

	got, err := Run(Identity(3), reading, reference, strategy)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	// The residual normal (z) displacement of every aligned reading point
	// from the z=0 reference plane should have shrunk close to 0.
	transformed, err := (TransformFeatures{}).Compute(reading, got)
	if err != nil {
		t.Fatalf("TransformFeatures: %v", err)
	}
	maxZ := 0.0
	for j := 0; j < transformed.NumPoints(); j++ {
		if z := math.Abs(transformed.Features.At(2, j)); z > maxZ {
			maxZ = z
		}
	}
	if maxZ > 1e-2 {
		t.Errorf("residual normal displacement = %v, want < 1e-2", maxZ)
	}
}

func closeToIdentity(t TransformationParameters, eps float64) bool {
	n, _ := t.Dims()
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			want := 0.0
			if i == j {
				want = 1
			}
			if math.Abs(t.At(i, j)-want) > eps {
				return false
			}
		}
	}
	return true
}
