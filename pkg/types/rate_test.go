package types

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFixedRateValidate(t *testing.T) {
	t.Run("positive rate", func(t *testing.T) {
		r := FixedRate{DollarsPerKWH: 0.12}
		require.NoError(t, r.Validate())
	})

	t.Run("zero rate rejected", func(t *testing.T) {
		r := FixedRate{DollarsPerKWH: 0}
		require.Error(t, r.Validate())
	})

	t.Run("negative rate rejected", func(t *testing.T) {
		r := FixedRate{DollarsPerKWH: -0.01}
		require.Error(t, r.Validate())
	})

	t.Run("bad credit rule rejected", func(t *testing.T) {
		max := 500.0
		r := FixedRate{
			DollarsPerKWH: 0.12,
			RateTerms: RateTerms{
				BillCredits: []BillCreditRule{{MinUsageKWH: 1000, MaxUsageKWH: &max}},
			},
		}
		require.Error(t, r.Validate())
	})
}

func TestVariableRateValidate(t *testing.T) {
	t.Run("zero current rate allowed", func(t *testing.T) {
		// a template can exist before any bill or index observation
		r := VariableRate{CurrentDollarsPerKWH: 0}
		require.NoError(t, r.Validate())
	})

	t.Run("negative current rate rejected", func(t *testing.T) {
		r := VariableRate{CurrentDollarsPerKWH: -0.05}
		require.Error(t, r.Validate())
	})
}

func TestTimeOfUseRateValidate(t *testing.T) {
	night := BucketDefinition{Key: "night", AllDays: true, StartMinute: 21 * 60, EndMinute: 7 * 60}
	day := BucketDefinition{Key: "day", AllDays: true, StartMinute: 0, EndMinute: 24 * 60}

	t.Run("valid tiers", func(t *testing.T) {
		r := TimeOfUseRate{Tiers: []Tier{
			{BucketDefinition: night, DollarsPerKWH: 0},
			{BucketDefinition: day, DollarsPerKWH: 0.15},
		}}
		require.NoError(t, r.Validate())
	})

	t.Run("no tiers rejected", func(t *testing.T) {
		r := TimeOfUseRate{}
		require.Error(t, r.Validate())
	})

	t.Run("duplicate tier key rejected", func(t *testing.T) {
		r := TimeOfUseRate{Tiers: []Tier{
			{BucketDefinition: day, DollarsPerKWH: 0.15},
			{BucketDefinition: day, DollarsPerKWH: 0.1},
		}}
		require.Error(t, r.Validate())
	})

	t.Run("negative tier price rejected", func(t *testing.T) {
		r := TimeOfUseRate{Tiers: []Tier{
			{BucketDefinition: day, DollarsPerKWH: -0.1},
		}}
		require.Error(t, r.Validate())
	})
}

func TestBillCreditRuleAppliesTo(t *testing.T) {
	max := 2000.0
	rule := BillCreditRule{
		CreditDollars: 30,
		MinUsageKWH:   1000,
		MaxUsageKWH:   &max,
	}
	jan := YearMonth{Year: 2024, Month: time.January}

	t.Run("fires at exactly the minimum", func(t *testing.T) {
		assert.True(t, rule.AppliesTo(jan, 1000))
	})

	t.Run("does not fire just below the minimum", func(t *testing.T) {
		assert.False(t, rule.AppliesTo(jan, 999.999))
	})

	t.Run("fires at exactly the maximum", func(t *testing.T) {
		assert.True(t, rule.AppliesTo(jan, 2000))
	})

	t.Run("does not fire above the maximum", func(t *testing.T) {
		assert.False(t, rule.AppliesTo(jan, 2000.001))
	})

	t.Run("open-ended maximum", func(t *testing.T) {
		open := BillCreditRule{CreditDollars: 30, MinUsageKWH: 1000}
		assert.True(t, open.AppliesTo(jan, 50000))
	})

	t.Run("month restriction", func(t *testing.T) {
		summer := BillCreditRule{
			CreditDollars: 30,
			MinUsageKWH:   1000,
			Months:        []time.Month{time.June, time.July, time.August},
		}
		assert.True(t, summer.AppliesTo(YearMonth{Year: 2024, Month: time.July}, 1500))
		assert.False(t, summer.AppliesTo(jan, 1500))
	})
}

func TestRateStructureRoundTrip(t *testing.T) {
	max := 2000.0
	cases := []struct {
		name string
		rate RateStructure
	}{
		{
			name: "fixed",
			rate: FixedRate{
				DollarsPerKWH: 0.102,
				RateTerms: RateTerms{
					BaseMonthlyFeeDollars: 4.95,
					BillCredits: []BillCreditRule{{
						Label: "credit", CreditDollars: 30, MinUsageKWH: 1000, MaxUsageKWH: &max,
					}},
				},
			},
		},
		{
			name: "variable",
			rate: VariableRate{CurrentDollarsPerKWH: 0.08, IndexKind: "rtm-hub-avg"},
		},
		{
			name: "timeOfUse",
			rate: TimeOfUseRate{
				Tiers: []Tier{
					{
						BucketDefinition: BucketDefinition{
							Key: "night", AllDays: true, StartMinute: 21 * 60, EndMinute: 7 * 60,
						},
						DollarsPerKWH: 0,
					},
					{
						BucketDefinition: BucketDefinition{
							Key: "day", AllDays: true, StartMinute: 0, EndMinute: 24 * 60,
						},
						DollarsPerKWH: 0.168,
					},
				},
				RateTerms: RateTerms{DeliveryIncluded: true},
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			data, err := MarshalRateStructure(tc.rate)
			require.NoError(t, err)

			decoded, err := UnmarshalRateStructure(data)
			require.NoError(t, err)
			assert.Equal(t, tc.rate, decoded)
			assert.Equal(t, tc.rate.Kind(), decoded.Kind())
		})
	}
}

func TestUnmarshalRateStructureRejects(t *testing.T) {
	t.Run("unknown discriminator", func(t *testing.T) {
		_, err := UnmarshalRateStructure([]byte(`{"type":"blockPricing","fixed":{"dollarsPerKWH":0.1}}`))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unknown rate structure type")
	})

	t.Run("missing payload", func(t *testing.T) {
		_, err := UnmarshalRateStructure([]byte(`{"type":"fixed"}`))
		require.Error(t, err)
	})

	t.Run("invalid payload", func(t *testing.T) {
		// zero fixed rate fails construction-time validation
		_, err := UnmarshalRateStructure([]byte(`{"type":"fixed","fixed":{"dollarsPerKWH":0}}`))
		require.Error(t, err)
	})
}

func TestRateBuckets(t *testing.T) {
	t.Run("time of use returns tiers in order", func(t *testing.T) {
		tou := TimeOfUseRate{Tiers: []Tier{
			{BucketDefinition: BucketDefinition{Key: "a", AllDays: true, EndMinute: 24 * 60}},
			{BucketDefinition: BucketDefinition{Key: "b", AllDays: true, EndMinute: 24 * 60}},
		}}
		defs := RateBuckets(tou)
		require.Len(t, defs, 2)
		assert.Equal(t, "a", defs[0].Key)
		assert.Equal(t, "b", defs[1].Key)
	})

	t.Run("flat rates need none", func(t *testing.T) {
		assert.Nil(t, RateBuckets(FixedRate{DollarsPerKWH: 0.1}))
		assert.Nil(t, RateBuckets(VariableRate{CurrentDollarsPerKWH: 0.1}))
	})
}
