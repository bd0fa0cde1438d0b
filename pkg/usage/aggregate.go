// Package usage turns a household's interval readings into the calendar and
// bucket totals the cost composer prices.
package usage

import (
	"time"

	"github.com/ratewise/ratewise/pkg/types"
)

// Aggregate holds the monthly and per-bucket usage totals for one window.
// It is a pure function result with no retained references to the snapshot.
type Aggregate struct {
	WindowStart time.Time
	WindowEnd   time.Time

	// MonthlyKWH is the total consumption per calendar month. Partial months
	// at the window boundary are included with their partial totals.
	MonthlyKWH map[types.YearMonth]float64

	// BucketKWH is per-bucket-key monthly consumption. Bucket assignment is
	// tier-exclusive: an interval is consumed by the first bucket whose
	// predicate matches it.
	BucketKWH map[string]map[types.YearMonth]float64

	// UnassignedKWH is usage that matched no bucket. It is only meaningful
	// when buckets were requested; for a time-of-use plan any unassigned
	// usage makes the estimate not computable.
	UnassignedKWH float64

	TotalKWH float64
}

// Months returns the number of calendar months with at least one interval.
func (a Aggregate) Months() int {
	return len(a.MonthlyKWH)
}

// BucketTotalKWH sums a bucket's usage across all months.
func (a Aggregate) BucketTotalKWH(key string) float64 {
	var total float64
	for _, kwh := range a.BucketKWH[key] {
		total += kwh
	}
	return total
}

// BucketKeys returns the keys that accumulated any usage.
func (a Aggregate) BucketKeys() []string {
	keys := make([]string, 0, len(a.BucketKWH))
	for k := range a.BucketKWH {
		keys = append(keys, k)
	}
	return keys
}

// Compute aggregates the snapshot's intervals that start within
// [windowStart, windowEnd) into monthly totals and, when bucket definitions
// are given, into per-bucket monthly totals. Buckets are tested in
// declaration order and the first match consumes the interval. Usage
// quantities are bounded by the window; rates are never prorated here.
func Compute(snapshot types.UsageSnapshot, buckets []types.BucketDefinition, windowStart, windowEnd time.Time) Aggregate {
	agg := Aggregate{
		WindowStart: windowStart,
		WindowEnd:   windowEnd,
		MonthlyKWH:  make(map[types.YearMonth]float64),
		BucketKWH:   make(map[string]map[types.YearMonth]float64),
	}

	for _, iv := range snapshot.Intervals {
		if iv.Timestamp.Before(windowStart) || !iv.Timestamp.Before(windowEnd) {
			continue
		}

		ym := types.YearMonthOf(iv.Timestamp)
		agg.MonthlyKWH[ym] += iv.KWH
		agg.TotalKWH += iv.KWH

		if len(buckets) == 0 {
			continue
		}

		assigned := false
		for _, b := range buckets {
			if !b.Contains(iv.Timestamp) {
				continue
			}
			byMonth := agg.BucketKWH[b.Key]
			if byMonth == nil {
				byMonth = make(map[types.YearMonth]float64)
				agg.BucketKWH[b.Key] = byMonth
			}
			byMonth[ym] += iv.KWH
			assigned = true
			break
		}
		if !assigned {
			agg.UnassignedKWH += iv.KWH
		}
	}

	return agg
}
