package icp

// DataPointsFilter transforms a cloud before (PreFilter) or during
// (StepFilter) the ICP loop. Either stage may change the column count or add
// descriptor rows, but must preserve the label-span invariant. The returned
// bool reports whether the driver should keep iterating; filters that have
// no opinion on convergence always return true.
type DataPointsFilter interface {
	PreFilter(input DataPoints) (output DataPoints, iterate bool, err error)
	StepFilter(input DataPoints) (output DataPoints, iterate bool, err error)
}

// DataPointsFilters runs a sequence of filters, threading the iterate flag
// as a logical AND across the chain.
type DataPointsFilters []DataPointsFilter

// ApplyPre runs PreFilter over every stage in order.
func (fs DataPointsFilters) ApplyPre(input DataPoints) (DataPoints, bool, error) {
	cur := input
	iterate := true
	for _, f := range fs {
		out, it, err := f.PreFilter(cur)
		if err != nil {
			return DataPoints{}, false, err
		}
		cur = out
		iterate = iterate && it
	}
	return cur, iterate, nil
}

// ApplyStep runs StepFilter over every stage in order.
func (fs DataPointsFilters) ApplyStep(input DataPoints) (DataPoints, bool, error) {
	cur := input
	iterate := true
	for _, f := range fs {
		out, it, err := f.StepFilter(cur)
		if err != nil {
			return DataPoints{}, false, err
		}
		cur = out
		iterate = iterate && it
	}
	return cur, iterate, nil
}
