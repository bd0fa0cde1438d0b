package estimate

import (
	"testing"

	"github.com/ratewise/ratewise/pkg/types"
	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	fixed := types.FixedRate{DollarsPerKWH: 0.1}

	t.Run("missing usage wins over everything", func(t *testing.T) {
		status, reason := Classify(Input{UsageAvailable: false})
		assert.Equal(t, types.ComputabilityMissingUsage, status)
		assert.Empty(t, reason)

		// even when the template is also missing
		status, _ = Classify(Input{UsageAvailable: false, TemplateAvailable: false})
		assert.Equal(t, types.ComputabilityMissingUsage, status)
	})

	t.Run("missing template", func(t *testing.T) {
		status, reason := Classify(Input{UsageAvailable: true})
		assert.Equal(t, types.ComputabilityMissingTemplate, status)
		assert.Empty(t, reason)
	})

	t.Run("fixed rate is ok", func(t *testing.T) {
		status, _ := Classify(Input{UsageAvailable: true, TemplateAvailable: true, Rate: fixed})
		assert.Equal(t, types.ComputabilityOK, status)
	})

	t.Run("variable without a current rate", func(t *testing.T) {
		status, reason := Classify(Input{
			UsageAvailable: true, TemplateAvailable: true,
			Rate: types.VariableRate{CurrentDollarsPerKWH: 0},
		})
		assert.Equal(t, types.ComputabilityNotComputable, status)
		assert.Equal(t, types.ReasonNoVariableRate, reason)
	})

	t.Run("variable with an observed rate", func(t *testing.T) {
		status, _ := Classify(Input{
			UsageAvailable: true, TemplateAvailable: true,
			Rate: types.VariableRate{CurrentDollarsPerKWH: 0.08},
		})
		assert.Equal(t, types.ComputabilityOK, status)
	})

	t.Run("variable with an index estimate is approximate", func(t *testing.T) {
		status, _ := Classify(Input{
			UsageAvailable: true, TemplateAvailable: true,
			Rate: types.VariableRate{CurrentDollarsPerKWH: 0.08, RateEstimated: true},
		})
		assert.Equal(t, types.ComputabilityApproximate, status)
	})

	tou := types.TimeOfUseRate{Tiers: []types.Tier{
		{BucketDefinition: types.BucketDefinition{Key: "night", AllDays: true, StartMinute: 21 * 60, EndMinute: 7 * 60}},
		{BucketDefinition: types.BucketDefinition{Key: "day", AllDays: true, StartMinute: 0, EndMinute: 24 * 60}},
	}}

	t.Run("time of use with fresh aggregation", func(t *testing.T) {
		// nil KnownBucketKeys means buckets are computed from the snapshot
		status, _ := Classify(Input{UsageAvailable: true, TemplateAvailable: true, Rate: tou})
		assert.Equal(t, types.ComputabilityOK, status)
	})

	t.Run("time of use with a complete cache", func(t *testing.T) {
		status, _ := Classify(Input{
			UsageAvailable: true, TemplateAvailable: true, Rate: tou,
			KnownBucketKeys: []string{"night", "day"},
		})
		assert.Equal(t, types.ComputabilityOK, status)
	})

	t.Run("time of use missing a cached bucket", func(t *testing.T) {
		status, _ := Classify(Input{
			UsageAvailable: true, TemplateAvailable: true, Rate: tou,
			KnownBucketKeys: []string{"night"},
		})
		assert.Equal(t, types.ComputabilityMissingBuckets, status)
	})
}
