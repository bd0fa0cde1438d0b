package estimate

import (
	"github.com/ratewise/ratewise/pkg/types"
)

// Input describes what is actually available for one offer evaluation. The
// boundary layer fills it from its caches and providers; the classifier
// itself performs no I/O.
type Input struct {
	// UsageAvailable is true when a usage snapshot exists for the household.
	UsageAvailable bool

	// TemplateAvailable is true when the pipeline has materialized the
	// offer's rate structure. Rate must be non-nil when it is set.
	TemplateAvailable bool

	Rate types.RateStructure

	// KnownBucketKeys lists the bucket keys present in a previously
	// aggregated usage cache, when the caller has one. Nil means buckets
	// will be computed fresh from the snapshot and none are missing.
	KnownBucketKeys []string
}

// Classify decides, before any composition runs, whether an estimate can be
// produced and with what confidence. Outcomes are checked in priority
// order and the first match wins; the composer assumes a computable outcome
// and does not re-validate availability.
func Classify(in Input) (types.Computability, types.NotComputableReason) {
	if !in.UsageAvailable {
		return types.ComputabilityMissingUsage, ""
	}
	if !in.TemplateAvailable || in.Rate == nil {
		return types.ComputabilityMissingTemplate, ""
	}

	switch r := in.Rate.(type) {
	case types.FixedRate:
		return types.ComputabilityOK, ""
	case types.VariableRate:
		if r.CurrentDollarsPerKWH <= 0 {
			// no observed current-bill rate and no index feed estimate
			return types.ComputabilityNotComputable, types.ReasonNoVariableRate
		}
		if r.RateEstimated {
			return types.ComputabilityApproximate, ""
		}
		return types.ComputabilityOK, ""
	case types.TimeOfUseRate:
		if in.KnownBucketKeys != nil {
			known := make(map[string]bool, len(in.KnownBucketKeys))
			for _, k := range in.KnownBucketKeys {
				known[k] = true
			}
			for _, tier := range r.Tiers {
				if !known[tier.Key] {
					return types.ComputabilityMissingBuckets, ""
				}
			}
		}
		return types.ComputabilityOK, ""
	default:
		// the union is sealed, anything else is structurally unsupported
		return types.ComputabilityNotComputable, types.ReasonInternalError
	}
}
