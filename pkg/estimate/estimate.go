// Package estimate is the rate-plan cost estimation engine: it composes
// aggregated usage, a validated rate structure, and a resolved delivery rate
// into a cost estimate, and evaluates many offers concurrently under a
// budget. Every function here is deterministic: identical inputs yield
// bit-identical estimates, so results can be cached and reused by callers.
package estimate

import (
	"sort"
	"time"

	"github.com/ratewise/ratewise/pkg/types"
	"github.com/ratewise/ratewise/pkg/usage"
)

// WindowDays is the default trailing evaluation window.
const WindowDays = 365

// Estimate evaluates one rate structure against a household snapshot over
// the trailing year ending at asOf. The delivery rate must already be
// resolved for asOf; see the delivery package.
func Estimate(snapshot types.UsageSnapshot, rs types.RateStructure, deliveryRate types.DeliveryRate, asOf time.Time) types.CostEstimate {
	windowStart := asOf.AddDate(0, 0, -WindowDays)
	agg := usage.Compute(snapshot, types.RateBuckets(rs), windowStart, asOf)
	return Compose(agg, rs, deliveryRate)
}

// Compose combines an aggregate, a rate structure, and a delivery rate into
// a cost estimate. It assumes the inputs passed classification and the rate
// structure passed construction-time validation.
func Compose(agg usage.Aggregate, rs types.RateStructure, deliveryRate types.DeliveryRate) types.CostEstimate {
	est := types.CostEstimate{
		Status:          types.ComputabilityOK,
		Confidence:      types.ConfidenceFull,
		TotalUsageKWH:   agg.TotalKWH,
		MonthsWithUsage: agg.Months(),
	}

	// 1. Energy cost.
	var energy float64
	switch r := rs.(type) {
	case types.FixedRate:
		energy = agg.TotalKWH * r.DollarsPerKWH
	case types.VariableRate:
		energy = agg.TotalKWH * r.CurrentDollarsPerKWH
		if r.RateEstimated {
			est.Status = types.ComputabilityApproximate
			est.Confidence = types.ConfidenceApproximate
		}
	case types.TimeOfUseRate:
		if agg.UnassignedKWH > 0 {
			// a defect in tier coverage, not a crash
			est.Status = types.ComputabilityNotComputable
			est.Reason = types.ReasonUnassignedUsage
			est.Confidence = 0
			return est
		}
		for _, tier := range r.Tiers {
			energy += bucketTotal(agg.BucketKWH[tier.Key]) * tier.DollarsPerKWH
		}
	}

	terms := rs.Terms()
	months := agg.Months()

	// 2. Fixed energy charge, once per month with any usage.
	fixedEnergy := terms.BaseMonthlyFeeDollars * float64(months)

	// 3. Credits and minimum-usage fees, evaluated per calendar month. A
	// firing rule's positive credit amount lowers the bill, so it lands in
	// the component as a negative number; a negative amount is a fee.
	var credits float64
	for _, ym := range sortedMonths(agg.MonthlyKWH) {
		monthKWH := agg.MonthlyKWH[ym]
		for _, rule := range terms.BillCredits {
			if rule.AppliesTo(ym, monthKWH) {
				credits -= rule.CreditDollars
			}
		}
	}

	// 4. Delivery charges. When the energy rate already embeds the per-kWh
	// delivery charge, only the fixed charge is added on top.
	var deliveryVariable float64
	if !terms.DeliveryIncluded {
		deliveryVariable = agg.TotalKWH * deliveryRate.DollarsPerKWH
	}
	deliveryFixed := deliveryRate.MonthlyFeeDollars * float64(months)

	// 5. Totals.
	total := energy + fixedEnergy + credits + deliveryVariable + deliveryFixed

	est.Components = types.CostComponents{
		Energy:           energy,
		FixedEnergy:      fixedEnergy,
		Credits:          credits,
		DeliveryVariable: deliveryVariable,
		DeliveryFixed:    deliveryFixed,
		Total:            total,
	}
	est.TotalAnnualDollars = total

	switch {
	case fullYearWindow(agg):
		est.TotalMonthlyDollars = total / 12
	case months > 0:
		est.TotalMonthlyDollars = total / float64(months)
	}

	if agg.TotalKWH > 0 {
		est.EffectiveDollarsPerKWH = total / agg.TotalKWH
		est.HasEffectiveRate = true
	}

	return est
}

// fullYearWindow reports whether the aggregation window spans a full year,
// in which case the monthly figure is total/12 regardless of how many
// calendar months the window touched.
func fullYearWindow(agg usage.Aggregate) bool {
	if agg.WindowStart.IsZero() || agg.WindowEnd.IsZero() {
		return false
	}
	return !agg.WindowStart.AddDate(0, 0, WindowDays).After(agg.WindowEnd)
}

// bucketTotal sums a bucket's monthly usage in month order so that float
// accumulation is reproducible across calls.
func bucketTotal(byMonth map[types.YearMonth]float64) float64 {
	var total float64
	for _, ym := range sortedMonths(byMonth) {
		total += byMonth[ym]
	}
	return total
}

func sortedMonths(m map[types.YearMonth]float64) []types.YearMonth {
	months := make([]types.YearMonth, 0, len(m))
	for ym := range m {
		months = append(months, ym)
	}
	sort.Slice(months, func(i, j int) bool { return months[i].Before(months[j]) })
	return months
}
