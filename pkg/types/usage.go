package types

import (
	"fmt"
	"time"
)

// UsageInterval is a single fixed-duration meter reading produced by the
// ingestion pipeline. Intervals are immutable and never overlap for the
// same household.
type UsageInterval struct {
	Timestamp       time.Time `json:"timestamp"`
	DurationMinutes int       `json:"durationMinutes"`
	KWH             float64   `json:"kwh"`
}

// End returns the exclusive end of the interval.
func (i UsageInterval) End() time.Time {
	return i.Timestamp.Add(time.Duration(i.DurationMinutes) * time.Minute)
}

// UsageSnapshot is an ordered, deduplicated sequence of intervals covering a
// rolling window (typically the trailing 365 days) for one household. The
// engine never mutates a snapshot.
type UsageSnapshot struct {
	HouseholdID string          `json:"householdID"`
	Intervals   []UsageInterval `json:"intervals"`
}

// Validate checks ordering, durations, and that no two intervals overlap.
func (s UsageSnapshot) Validate() error {
	var prevEnd time.Time
	for i, iv := range s.Intervals {
		if iv.DurationMinutes <= 0 {
			return fmt.Errorf("interval %d: duration must be positive, got %d", i, iv.DurationMinutes)
		}
		if iv.KWH < 0 {
			return fmt.Errorf("interval %d: negative consumption %f", i, iv.KWH)
		}
		if iv.Timestamp.Before(prevEnd) {
			return fmt.Errorf("interval %d at %s overlaps previous interval ending %s", i, iv.Timestamp, prevEnd)
		}
		prevEnd = iv.End()
	}
	return nil
}

// TotalKWH sums the consumption of every interval in the snapshot.
func (s UsageSnapshot) TotalKWH() float64 {
	var total float64
	for _, iv := range s.Intervals {
		total += iv.KWH
	}
	return total
}

// YearMonth identifies one calendar month. It is comparable and used as the
// key for monthly aggregation maps.
type YearMonth struct {
	Year  int        `json:"year"`
	Month time.Month `json:"month"`
}

// YearMonthOf returns the calendar month containing t.
func YearMonthOf(t time.Time) YearMonth {
	return YearMonth{Year: t.Year(), Month: t.Month()}
}

// Next returns the month after ym.
func (ym YearMonth) Next() YearMonth {
	if ym.Month == time.December {
		return YearMonth{Year: ym.Year + 1, Month: time.January}
	}
	return YearMonth{Year: ym.Year, Month: ym.Month + 1}
}

// Before reports whether ym is strictly earlier than other.
func (ym YearMonth) Before(other YearMonth) bool {
	if ym.Year != other.Year {
		return ym.Year < other.Year
	}
	return ym.Month < other.Month
}

func (ym YearMonth) String() string {
	return fmt.Sprintf("%04d-%02d", ym.Year, int(ym.Month))
}
