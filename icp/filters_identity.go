package icp

// IdentityDataPointsFilter passes the cloud through unchanged at every
// stage. An empty DataPointsFilters chain behaves the same way.
type IdentityDataPointsFilter struct{}

func (IdentityDataPointsFilter) PreFilter(input DataPoints) (DataPoints, bool, error) {
	return input, true, nil
}

func (IdentityDataPointsFilter) StepFilter(input DataPoints) (DataPoints, bool, error) {
	return input, true, nil
}
