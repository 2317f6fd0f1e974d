package icp

import "fmt"

// ConvergenceError is raised by a TransformationChecker to abort iteration
// when the solution is diverging or a hard bound has been exceeded.
type ConvergenceError struct {
	Checker string
	Reason  string
}

func (e *ConvergenceError) Error() string {
	return fmt.Sprintf("icp: convergence error in %s: %s", e.Checker, e.Reason)
}

// DegenerateError is raised by an ErrorMinimizer when the weighted matched
// set is insufficient to compute a transform (e.g. all weights zero, or
// collinear points in 3D).
type DegenerateError struct {
	Minimizer string
	Reason    string
}

func (e *DegenerateError) Error() string {
	return fmt.Sprintf("icp: degenerate error in %s: %s", e.Minimizer, e.Reason)
}

// ShapeError is raised whenever matrix dimensions violate an invariant;
// this always indicates a caller bug.
type ShapeError struct {
	Reason string
}

func (e *ShapeError) Error() string {
	return fmt.Sprintf("icp: shape error: %s", e.Reason)
}

// MissingDescriptorError is raised by stages that require a named
// descriptor that is absent from the cloud they were given.
type MissingDescriptorError struct {
	Stage      string
	Descriptor string
}

func (e *MissingDescriptorError) Error() string {
	return fmt.Sprintf("icp: %s requires descriptor %q, which is absent", e.Stage, e.Descriptor)
}
