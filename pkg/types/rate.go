package types

import (
	"encoding/json"
	"fmt"
	"time"
)

// RateKind discriminates the closed set of rate structure variants.
type RateKind string

const (
	RateKindFixed     RateKind = "fixed"
	RateKindVariable  RateKind = "variable"
	RateKindTimeOfUse RateKind = "timeOfUse"
)

// BillCreditRule applies a credit (or, with a negative amount, a fee) to any
// calendar month whose total usage falls within [MinUsageKWH, MaxUsageKWH].
// The upper bound is open-ended when MaxUsageKWH is nil.
type BillCreditRule struct {
	Label         string       `json:"label"`
	CreditDollars float64      `json:"creditDollars"`
	MinUsageKWH   float64      `json:"minUsageKWH"`
	MaxUsageKWH   *float64     `json:"maxUsageKWH,omitempty"`
	Months        []time.Month `json:"months,omitempty"`
}

// Validate enforces the construction-time invariants for a credit rule.
func (r BillCreditRule) Validate() error {
	if r.MinUsageKWH < 0 {
		return fmt.Errorf("credit rule %q: minimum usage threshold must be >= 0", r.Label)
	}
	if r.MaxUsageKWH != nil && r.MinUsageKWH > *r.MaxUsageKWH {
		return fmt.Errorf("credit rule %q: minimum threshold %f exceeds maximum %f", r.Label, r.MinUsageKWH, *r.MaxUsageKWH)
	}
	for _, m := range r.Months {
		if m < time.January || m > time.December {
			return fmt.Errorf("credit rule %q: invalid month %d", r.Label, m)
		}
	}
	return nil
}

// AppliesTo reports whether the rule fires for the given month and that
// month's total usage. Both thresholds are inclusive.
func (r BillCreditRule) AppliesTo(ym YearMonth, usageKWH float64) bool {
	if len(r.Months) > 0 {
		var found bool
		for _, m := range r.Months {
			if ym.Month == m {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if usageKWH < r.MinUsageKWH {
		return false
	}
	if r.MaxUsageKWH != nil && usageKWH > *r.MaxUsageKWH {
		return false
	}
	return true
}

// RateTerms carries the optional pricing terms shared by every rate
// structure variant.
type RateTerms struct {
	// BaseMonthlyFeeDollars is charged once per month that has any usage.
	BaseMonthlyFeeDollars float64 `json:"baseMonthlyFeeDollars,omitempty"`

	BillCredits []BillCreditRule `json:"billCredits,omitempty"`

	// DeliveryIncluded means the energy rate already embeds the per-kWh
	// delivery charge, so only the fixed delivery charge is added on top.
	DeliveryIncluded bool `json:"deliveryIncluded,omitempty"`
}

func (t RateTerms) validate() error {
	for _, r := range t.BillCredits {
		if err := r.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// RateStructure is the complete pricing definition of one plan. It is a
// sealed union: the only implementations are FixedRate, VariableRate, and
// TimeOfUseRate, and unknown kinds are rejected at decode time.
type RateStructure interface {
	Kind() RateKind
	Terms() RateTerms
	Validate() error
}

// FixedRate charges a single price per kWh for all usage.
type FixedRate struct {
	DollarsPerKWH float64 `json:"dollarsPerKWH"`
	RateTerms
}

func (f FixedRate) Kind() RateKind   { return RateKindFixed }
func (f FixedRate) Terms() RateTerms { return f.RateTerms }

func (f FixedRate) Validate() error {
	if f.DollarsPerKWH <= 0 {
		return fmt.Errorf("fixed rate must be positive, got %f", f.DollarsPerKWH)
	}
	return f.RateTerms.validate()
}

// VariableRate charges an indexed price that changes between billing
// periods. CurrentDollarsPerKWH is the rate in effect for the current
// billing period; when it came from an index feed instead of an observed
// bill, RateEstimated is set and estimates are downgraded to approximate.
type VariableRate struct {
	CurrentDollarsPerKWH float64 `json:"currentDollarsPerKWH"`
	IndexKind            string  `json:"indexKind,omitempty"`
	Notes                string  `json:"notes,omitempty"`
	RateEstimated        bool    `json:"rateEstimated,omitempty"`
	RateTerms
}

func (v VariableRate) Kind() RateKind   { return RateKindVariable }
func (v VariableRate) Terms() RateTerms { return v.RateTerms }

// Validate allows a zero current rate: a variable template can be
// materialized before any bill or index observation exists, and the
// computability classifier rejects it before composition. A negative rate
// is always invalid.
func (v VariableRate) Validate() error {
	if v.CurrentDollarsPerKWH < 0 {
		return fmt.Errorf("variable rate must not be negative, got %f", v.CurrentDollarsPerKWH)
	}
	return v.RateTerms.validate()
}

// Tier prices one bucket of a time-of-use plan. Its embedded
// BucketDefinition doubles as the aggregation rule for the tier.
type Tier struct {
	BucketDefinition
	DollarsPerKWH float64 `json:"dollarsPerKWH"`
}

// TimeOfUseRate prices usage by tier. Tier order matters: an interval is
// consumed by the first tier whose predicate matches it.
type TimeOfUseRate struct {
	Tiers []Tier `json:"tiers"`
	RateTerms
}

func (t TimeOfUseRate) Kind() RateKind   { return RateKindTimeOfUse }
func (t TimeOfUseRate) Terms() RateTerms { return t.RateTerms }

func (t TimeOfUseRate) Validate() error {
	if len(t.Tiers) == 0 {
		return fmt.Errorf("time-of-use rate must have at least one tier")
	}
	seen := make(map[string]bool, len(t.Tiers))
	for _, tier := range t.Tiers {
		if err := tier.BucketDefinition.Validate(); err != nil {
			return err
		}
		if tier.DollarsPerKWH < 0 {
			return fmt.Errorf("tier %s: negative price %f", tier.Key, tier.DollarsPerKWH)
		}
		if seen[tier.Key] {
			return fmt.Errorf("duplicate tier key %s", tier.Key)
		}
		seen[tier.Key] = true
	}
	return t.RateTerms.validate()
}

// Buckets returns the tier bucket definitions in declaration order.
func (t TimeOfUseRate) Buckets() []BucketDefinition {
	defs := make([]BucketDefinition, len(t.Tiers))
	for i, tier := range t.Tiers {
		defs[i] = tier.BucketDefinition
	}
	return defs
}

// RateBuckets returns the bucket definitions a rate structure needs for
// aggregation. Flat and variable rates need none.
func RateBuckets(rs RateStructure) []BucketDefinition {
	if tou, ok := rs.(TimeOfUseRate); ok {
		return tou.Buckets()
	}
	return nil
}

// rateEnvelope is the wire form of the RateStructure union. Exactly one
// variant field is set, matching Type.
type rateEnvelope struct {
	Type      RateKind       `json:"type"`
	Fixed     *FixedRate     `json:"fixed,omitempty"`
	Variable  *VariableRate  `json:"variable,omitempty"`
	TimeOfUse *TimeOfUseRate `json:"timeOfUse,omitempty"`
}

// MarshalRateStructure encodes a rate structure with its kind discriminator.
func MarshalRateStructure(rs RateStructure) ([]byte, error) {
	env := rateEnvelope{Type: rs.Kind()}
	switch r := rs.(type) {
	case FixedRate:
		env.Fixed = &r
	case VariableRate:
		env.Variable = &r
	case TimeOfUseRate:
		env.TimeOfUse = &r
	default:
		return nil, fmt.Errorf("unknown rate structure type %T", rs)
	}
	return json.Marshal(env)
}

// UnmarshalRateStructure decodes and validates a rate structure, rejecting
// unknown discriminators rather than defaulting.
func UnmarshalRateStructure(data []byte) (RateStructure, error) {
	var env rateEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("failed to decode rate structure: %w", err)
	}
	var rs RateStructure
	switch env.Type {
	case RateKindFixed:
		if env.Fixed == nil {
			return nil, fmt.Errorf("rate structure type %s missing payload", env.Type)
		}
		rs = *env.Fixed
	case RateKindVariable:
		if env.Variable == nil {
			return nil, fmt.Errorf("rate structure type %s missing payload", env.Type)
		}
		rs = *env.Variable
	case RateKindTimeOfUse:
		if env.TimeOfUse == nil {
			return nil, fmt.Errorf("rate structure type %s missing payload", env.Type)
		}
		rs = *env.TimeOfUse
	default:
		return nil, fmt.Errorf("unknown rate structure type %q", env.Type)
	}
	if err := rs.Validate(); err != nil {
		return nil, fmt.Errorf("invalid rate structure: %w", err)
	}
	return rs, nil
}
