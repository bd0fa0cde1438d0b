package types

import (
	"fmt"
	"time"
)

// BucketDefinition describes one named aggregation rule: a subset of usage
// intervals selected by day-of-week, time-of-day, and optionally
// month-of-year. Definitions are static catalog entries with no versioning.
type BucketDefinition struct {
	Key   string `json:"key"`
	Label string `json:"label"`

	// AllDays makes the bucket match every weekday. When false, DaysOfWeek
	// must be non-empty.
	AllDays    bool           `json:"allDays"`
	DaysOfWeek []time.Weekday `json:"daysOfWeek,omitempty"`

	// StartMinute/EndMinute bound the time of day as minutes since midnight,
	// inclusive start and exclusive end. A range with EndMinute <= StartMinute
	// wraps past midnight.
	StartMinute int `json:"startMinute"`
	EndMinute   int `json:"endMinute"`

	// MonthsOfYear restricts the bucket to specific calendar months.
	// Empty means every month.
	MonthsOfYear []time.Month `json:"monthsOfYear,omitempty"`
}

// Validate enforces the catalog invariants for a bucket definition.
func (b BucketDefinition) Validate() error {
	if b.Key == "" {
		return fmt.Errorf("bucket definition missing key")
	}
	if !b.AllDays && len(b.DaysOfWeek) == 0 {
		return fmt.Errorf("bucket %s: day set is empty and AllDays is not set", b.Key)
	}
	if b.StartMinute < 0 || b.StartMinute >= 24*60 {
		return fmt.Errorf("bucket %s: start minute %d out of range", b.Key, b.StartMinute)
	}
	if b.EndMinute < 0 || b.EndMinute > 24*60 {
		return fmt.Errorf("bucket %s: end minute %d out of range", b.Key, b.EndMinute)
	}
	for _, m := range b.MonthsOfYear {
		if m < time.January || m > time.December {
			return fmt.Errorf("bucket %s: invalid month %d", b.Key, m)
		}
	}
	return nil
}

// Contains reports whether the timestamp falls inside the bucket's day,
// time-of-day, and month predicates. The timestamp is evaluated in its own
// location; callers normalize to the household's timezone beforehand.
func (b BucketDefinition) Contains(t time.Time) bool {
	if len(b.MonthsOfYear) > 0 {
		var found bool
		for _, m := range b.MonthsOfYear {
			if t.Month() == m {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if !b.AllDays {
		var found bool
		dow := t.Weekday()
		for _, d := range b.DaysOfWeek {
			if d == dow {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	minute := t.Hour()*60 + t.Minute()
	if b.EndMinute <= b.StartMinute {
		// wraps past midnight
		return minute >= b.StartMinute || minute < b.EndMinute
	}
	return minute >= b.StartMinute && minute < b.EndMinute
}
