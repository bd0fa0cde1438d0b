package types

import (
	"fmt"
	"time"
)

// DeliveryRate is one time-versioned charge schedule for a delivery utility.
// A utility may have many; the record with the latest EffectiveDate that is
// not after the evaluation date is authoritative.
type DeliveryRate struct {
	DollarsPerKWH     float64   `json:"dollarsPerKWH"`
	MonthlyFeeDollars float64   `json:"monthlyFeeDollars"`
	EffectiveDate     time.Time `json:"effectiveDate"`
}

// Validate checks the charge fields are sane.
func (d DeliveryRate) Validate() error {
	if d.DollarsPerKWH < 0 {
		return fmt.Errorf("delivery rate per kWh must not be negative, got %f", d.DollarsPerKWH)
	}
	if d.MonthlyFeeDollars < 0 {
		return fmt.Errorf("delivery monthly fee must not be negative, got %f", d.MonthlyFeeDollars)
	}
	if d.EffectiveDate.IsZero() {
		return fmt.Errorf("delivery rate missing effective date")
	}
	return nil
}
