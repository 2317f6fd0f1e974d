package icp

// Strategy bundles the concrete stage implementations and the one scalar
// knob an icp.Run call needs, mirroring the original library's Strategy
// ownership model: a single struct exclusively owns every stage it holds
// (Go's garbage collector retires the explicit destructor list).
type Strategy struct {
	ReadingDataPointsFilters   DataPointsFilters
	ReferenceDataPointsFilters DataPointsFilters
	Transformations            Transformations
	Matcher                    Matcher
	FeatureOutlierFilters      FeatureOutlierFilters
	DescriptorOutlierFilter    DescriptorOutlierFilter
	ErrorMinimizer             ErrorMinimizer
	TransformationCheckers     TransformationCheckers
	Inspector                  Inspector

	// OutlierMixingWeight (alpha, in [0, 1]) blends feature- and
	// descriptor-based outlier weights: weight = alpha*feature +
	// (1-alpha)*descriptor.
	OutlierMixingWeight float64
}

// Validate fills in defaults for any stage left nil (NullMatcher,
// NullDescriptorOutlierFilter, PointToPointErrorMinimizer, NoopInspector, a
// 40-iteration CounterTransformationChecker) and sets OutlierMixingWeight to
// 0.5 when it is 0, so a caller only needs to set the stages their
// configuration actually uses. Filter chains and Transformations are left
// as given.
func (s *Strategy) Validate(dim int) {
	if s.Matcher == nil {
		s.Matcher = &NullMatcher{}
	}
	if s.DescriptorOutlierFilter == nil {
		s.DescriptorOutlierFilter = NullDescriptorOutlierFilter{}
	}
	if s.ErrorMinimizer == nil {
		s.ErrorMinimizer = PointToPointErrorMinimizer{}
	}
	if s.Inspector == nil {
		s.Inspector = NoopInspector{}
	}
	if len(s.TransformationCheckers) == 0 {
		s.TransformationCheckers = TransformationCheckers{&CounterTransformationChecker{MaxIterations: 40}}
	}
	if s.OutlierMixingWeight == 0 {
		s.OutlierMixingWeight = 0.5
	}
}
