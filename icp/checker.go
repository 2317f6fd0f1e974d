package icp

import (
	"math"

	"gonum.org/v1/gonum/num/quat"
)

// TransformationChecker inspects the transform sequence produced by the ICP
// loop and decides whether iteration should continue. init is called once
// before the first iteration; check is called after every iteration with
// the latest accumulated transform.
type TransformationChecker interface {
	Init(t TransformationParameters)
	Check(t TransformationParameters) (iterate bool, err error)
}

// CounterTransformationChecker stops after MaxIterations iterations.
type CounterTransformationChecker struct {
	MaxIterations int

	count int
}

func (c *CounterTransformationChecker) Init(t TransformationParameters) {
	c.count = 0
}

func (c *CounterTransformationChecker) Check(t TransformationParameters) (bool, error) {
	c.count++
	return c.count < c.MaxIterations, nil
}

// ErrorTransformationChecker stops once the MEAN rotation and translation
// deltas over the last Tail iterations have both fallen below their
// respective thresholds, mirroring the original's QuaternionVector
// rotations/VectorVector translations accumulation: a single small step is
// not enough to declare convergence, the whole tail window must be small on
// average.
type ErrorTransformationChecker struct {
	MinDeltaRotation    float64
	MinDeltaTranslation float64
	Tail                int

	rotations    []quat.Number
	translations [][]float64
}

func (c *ErrorTransformationChecker) Init(t TransformationParameters) {
	if c.Tail <= 0 {
		c.Tail = 3
	}
	rot, trans := rotationTranslation(t)
	c.rotations = []quat.Number{rotationToQuaternion(rot)}
	c.translations = [][]float64{trans}
}

func (c *ErrorTransformationChecker) Check(t TransformationParameters) (bool, error) {
	rot, trans := rotationTranslation(t)
	c.rotations = append(c.rotations, rotationToQuaternion(rot))
	c.translations = append(c.translations, trans)
	if len(c.rotations) > c.Tail+1 {
		c.rotations = c.rotations[len(c.rotations)-(c.Tail+1):]
		c.translations = c.translations[len(c.translations)-(c.Tail+1):]
	}
	if len(c.rotations) <= c.Tail {
		return true, nil
	}

	meanDeltaRot := 0.0
	meanDeltaTrans := 0.0
	for i := 1; i < len(c.rotations); i++ {
		meanDeltaRot += quaternionAngularDistance(c.rotations[i-1], c.rotations[i])

		d := 0.0
		for j := range c.translations[i] {
			diff := c.translations[i][j] - c.translations[i-1][j]
			d += diff * diff
		}
		meanDeltaTrans += math.Sqrt(d)
	}
	n := float64(len(c.rotations) - 1)
	meanDeltaRot /= n
	meanDeltaTrans /= n

	converged := meanDeltaRot < c.MinDeltaRotation && meanDeltaTrans < c.MinDeltaTranslation
	return !converged, nil
}

// BoundTransformationChecker raises a ConvergenceError once the transform's
// displacement FROM THE INITIAL TRANSFORM PASSED TO Init exceeds a hard
// bound, the safety net against an ICP run diverging into a physically
// implausible transform. Captures initialRotation/initialTranslation on
// init, mirroring the original's BoundTransformationChecker fields.
type BoundTransformationChecker struct {
	MaxRotationAngle   float64 // radians
	MaxTranslationNorm float64

	initialRotation    quat.Number
	initialTranslation []float64
}

func (c *BoundTransformationChecker) Init(t TransformationParameters) {
	rot, trans := rotationTranslation(t)
	c.initialRotation = rotationToQuaternion(rot)
	c.initialTranslation = trans
}

func (c *BoundTransformationChecker) Check(t TransformationParameters) (bool, error) {
	rot, trans := rotationTranslation(t)
	q := rotationToQuaternion(rot)
	angle := quaternionAngularDistance(c.initialRotation, q)
	if angle > c.MaxRotationAngle {
		return false, &ConvergenceError{Checker: "BoundTransformationChecker", Reason: "rotation angle exceeded bound"}
	}
	norm := 0.0
	for i, v := range trans {
		d := v - c.initialTranslation[i]
		norm += d * d
	}
	norm = math.Sqrt(norm)
	if norm > c.MaxTranslationNorm {
		return false, &ConvergenceError{Checker: "BoundTransformationChecker", Reason: "translation norm exceeded bound"}
	}
	return true, nil
}

// TransformationCheckers runs a sequence of checkers; the driver iterates
// while ALL of them return iterate=true.
type TransformationCheckers []TransformationChecker

func (cs TransformationCheckers) Init(t TransformationParameters) {
	for _, c := range cs {
		c.Init(t)
	}
}

func (cs TransformationCheckers) Check(t TransformationParameters) (bool, error) {
	iterate := true
	for _, c := range cs {
		it, err := c.Check(t)
		if err != nil {
			return false, err
		}
		iterate = iterate && it
	}
	return iterate, nil
}
