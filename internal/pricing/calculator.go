// Package pricing turns slicer aggregates into a monetary estimate.
package pricing

// Inputs carries everything the calculator needs. Prices come from the
// material and machine documents; totals from the workflow's plate
// aggregation; overrides from the job record.
type Inputs struct {
	PricePerGram     float64
	PricePerHour     float64
	TotalWeightGrams float64
	TotalDurationSec float64
	WeightOverride   *float64
	DurationOverride *float64
}

// Estimate computes material cost plus machine time cost. A nil result means
// "cannot price yet" rather than "free": it is returned whenever the combined
// cost is not positive.
func Estimate(in Inputs) *float64 {
	weight := in.TotalWeightGrams
	if in.WeightOverride != nil {
		weight = *in.WeightOverride
	}
	duration := in.TotalDurationSec
	if in.DurationOverride != nil {
		duration = *in.DurationOverride
	}

	materialCost := 0.0
	if in.PricePerGram > 0 && weight > 0 {
		materialCost = in.PricePerGram * weight
	}

	timeCost := 0.0
	if in.PricePerHour > 0 && duration > 0 {
		timeCost = in.PricePerHour * (duration / 3600)
	}

	total := materialCost + timeCost
	if total <= 0 {
		return nil
	}
	return &total
}
