package types

// Computability classifies whether a cost estimate can be produced from the
// inputs currently available, and with what confidence.
type Computability string

const (
	// ComputabilityOK means every required input is present and observed.
	ComputabilityOK Computability = "ok"
	// ComputabilityApproximate means usage is present but a secondary input,
	// such as an indexed rate, is estimated rather than observed.
	ComputabilityApproximate Computability = "approximate"
	// ComputabilityMissingUsage means no usage snapshot is available.
	ComputabilityMissingUsage Computability = "missingUsage"
	// ComputabilityMissingTemplate means the rate structure has not been
	// materialized by the template pipeline yet.
	ComputabilityMissingTemplate Computability = "missingTemplate"
	// ComputabilityMissingBuckets means the usage lacks bucket totals a
	// time-of-use structure requires.
	ComputabilityMissingBuckets Computability = "missingBuckets"
	// ComputabilityNotComputable means the structure is unsupported with the
	// inputs at hand, see the estimate's Reason.
	ComputabilityNotComputable Computability = "notComputable"
)

// Computable reports whether an estimate can be composed at this status.
func (c Computability) Computable() bool {
	return c == ComputabilityOK || c == ComputabilityApproximate
}

// NotComputableReason is the diagnostic detail attached to a
// ComputabilityNotComputable estimate.
type NotComputableReason string

const (
	// ReasonUnassignedUsage means some usage matched no tier of a
	// time-of-use structure, a defect in bucket-definition coverage.
	ReasonUnassignedUsage NotComputableReason = "UNASSIGNED_USAGE"
	// ReasonNoVariableRate means an indexed structure has neither an
	// observed current-bill rate nor an index feed estimate.
	ReasonNoVariableRate NotComputableReason = "NO_VARIABLE_RATE"
	// ReasonInternalError means the evaluation itself faulted. In a batch the
	// fault is contained to the one offer.
	ReasonInternalError NotComputableReason = "INTERNAL_ERROR"
)

// Confidence levels attached to computed estimates.
const (
	ConfidenceFull        = 1.0
	ConfidenceApproximate = 0.75
)

// CostComponents is the per-component dollar breakdown of an estimate. The
// components sum to Total. Credits is negative when the rules net out as
// credits and positive when they net out as minimum-usage fees.
type CostComponents struct {
	Energy           float64 `json:"energy"`
	FixedEnergy      float64 `json:"fixedEnergy"`
	Credits          float64 `json:"credits"`
	DeliveryVariable float64 `json:"deliveryVariable"`
	DeliveryFixed    float64 `json:"deliveryFixed"`
	Total            float64 `json:"total"`
}

// CostEstimate is the result of evaluating one rate structure against one
// household's usage. It is produced fresh per evaluation and never persisted
// by the engine itself.
type CostEstimate struct {
	Status Computability       `json:"status"`
	Reason NotComputableReason `json:"reason,omitempty"`

	TotalAnnualDollars  float64 `json:"totalAnnualDollars"`
	TotalMonthlyDollars float64 `json:"totalMonthlyDollars"`

	// EffectiveDollarsPerKWH is total cost divided by total usage. It is
	// meaningless when there was no usage, in which case HasEffectiveRate is
	// false and the field is zero.
	EffectiveDollarsPerKWH float64 `json:"effectiveDollarsPerKWH"`
	HasEffectiveRate       bool    `json:"hasEffectiveRate"`

	Confidence float64        `json:"confidence"`
	Components CostComponents `json:"components"`

	TotalUsageKWH   float64 `json:"totalUsageKWH"`
	MonthsWithUsage int     `json:"monthsWithUsage"`
}
