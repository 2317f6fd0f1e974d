package icp

// Run aligns reading onto reference: applies the strategy's pre-filters,
// then iterates matching/weighting/minimizing/checking until any checker
// asks to stop, returning the accumulated transform. The reading
// cloud passed in is never mutated; the working copy re-transformed every
// iteration is always derived from the ORIGINAL (pre-filtered) reading, so
// accumulated error cannot compound across iterations.
func Run(initial TransformationParameters, reading, reference DataPoints, strategy *Strategy) (TransformationParameters, error) {
	dim, _ := initial.Dims()
	dim--
	strategy.Validate(dim)

	filteredReading, _, err := strategy.ReadingDataPointsFilters.ApplyPre(reading)
	if err != nil {
		return nil, err
	}
	filteredReference, _, err := strategy.ReferenceDataPointsFilters.ApplyPre(reference)
	if err != nil {
		return nil, err
	}

	originalReading := filteredReading.Clone()

	t := initial
	working, err := strategy.Transformations.Apply(originalReading, t)
	if err != nil {
		return nil, err
	}

	if err := strategy.Matcher.Init(filteredReference); err != nil {
		return nil, err
	}
	strategy.TransformationCheckers.Init(t)
	strategy.Inspector.Init()
	strategy.Inspector.DumpFilteredReference(filteredReference)

	iteration := 0
	defer func() { strategy.Inspector.Finish(iteration) }()
	for {
		working, _, err = strategy.ReadingDataPointsFilters.ApplyStep(working)
		if err != nil {
			return nil, err
		}

		matches, err := strategy.Matcher.FindClosests(working)
		if err != nil {
			return nil, err
		}

		fw, err := strategy.FeatureOutlierFilters.Compute(matches)
		if err != nil {
			return nil, err
		}
		dw, err := strategy.DescriptorOutlierFilter.Compute(working, filteredReference, matches)
		if err != nil {
			return nil, err
		}
		weights := blendWeights(fw, dw, strategy.OutlierMixingWeight)

		elements := buildErrorElements(working, filteredReference, matches, weights)
		delta, err := strategy.ErrorMinimizer.Compute(elements)
		if err != nil {
			return nil, err
		}

		t = Compose(delta, t)

		working, err = strategy.Transformations.Apply(originalReading, t)
		if err != nil {
			return nil, err
		}

		strategy.Inspector.DumpIteration(iteration, t, filteredReference, working, matches, fw, dw, strategy.TransformationCheckers)

		iterate, err := strategy.TransformationCheckers.Check(t)
		if err != nil {
			return nil, err
		}
		iteration++
		if !iterate {
			break
		}
	}

	return t, nil
}

// blendWeights linearly combines feature and descriptor outlier weights:
// weight = alpha*feature + (1-alpha)*descriptor.
func blendWeights(fw, dw OutlierWeights, alpha float64) OutlierWeights {
	k, n := fw.Weights.Dims()
	out := NewOutlierWeights(k, n, 0)
	for i := 0; i < k; i++ {
		for j := 0; j < n; j++ {
			v := alpha*fw.Weights.At(i, j) + (1-alpha)*dw.Weights.At(i, j)
			out.Weights.Set(i, j, v)
		}
	}
	return out
}
