// Command seed populates a Firestore emulator with a demo household, offer
// catalog, templates, and delivery rate tables so the API can be exercised
// locally.
package main

import (
	"context"
	"math"
	"math/rand"
	"os"
	"time"

	"github.com/levenlabs/go-lflag"
	"github.com/ratewise/ratewise/pkg/log"
	"github.com/ratewise/ratewise/pkg/storage"
	"github.com/ratewise/ratewise/pkg/types"
)

const (
	householdID  = "demo-household"
	deliverySlug = "oncor"

	// daily shape of the synthetic household
	baseLoadKW    = 0.8
	eveningPeakKW = 2.5
	middayKW      = 1.2
)

func main() {
	os.Setenv("FIRESTORE_EMULATOR_HOST", "127.0.0.1:8087")
	db := storage.Configured()
	lflag.Configure()

	ctx := context.Background()
	log.Ctx(ctx).InfoContext(ctx, "seeding demo data")

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	seedDeliveryRates(ctx, db)
	seedOffers(ctx, db)
	seedUsage(ctx, db, rng)

	if err := db.Close(); err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to close storage", "error", err)
		os.Exit(1)
	}
	log.Ctx(ctx).InfoContext(ctx, "seed complete")
}

func seedDeliveryRates(ctx context.Context, db storage.Database) {
	rates := []types.DeliveryRate{
		{
			DollarsPerKWH:     0.038,
			MonthlyFeeDollars: 3.42,
			EffectiveDate:     time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC),
		},
		{
			DollarsPerKWH:     0.041,
			MonthlyFeeDollars: 3.75,
			EffectiveDate:     time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		},
		{
			DollarsPerKWH:     0.045,
			MonthlyFeeDollars: 4.23,
			EffectiveDate:     time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
		},
	}
	for _, r := range rates {
		if err := db.UpsertDeliveryRate(ctx, deliverySlug, r); err != nil {
			log.Ctx(ctx).ErrorContext(ctx, "failed to seed delivery rate", "error", err)
			os.Exit(1)
		}
	}
}

func seedOffers(ctx context.Context, db storage.Database) {
	maxCredit := 2000.0
	offers := []struct {
		offer types.Offer
		rate  types.RateStructure
	}{
		{
			offer: types.Offer{
				ID: "steady-12", Name: "Steady Saver 12", Supplier: "Lonestar Power",
				TermMonths: 12, DeliverySlug: deliverySlug,
			},
			rate: types.FixedRate{
				DollarsPerKWH: 0.102,
				RateTerms:     types.RateTerms{BaseMonthlyFeeDollars: 4.95},
			},
		},
		{
			offer: types.Offer{
				ID: "credit-24", Name: "Usage Credit 24", Supplier: "Bluebonnet Energy",
				TermMonths: 24, DeliverySlug: deliverySlug,
			},
			rate: types.FixedRate{
				DollarsPerKWH: 0.129,
				RateTerms: types.RateTerms{
					BillCredits: []types.BillCreditRule{{
						Label:         "1000 kWh credit",
						CreditDollars: 30,
						MinUsageKWH:   1000,
						MaxUsageKWH:   &maxCredit,
					}},
				},
			},
		},
		{
			offer: types.Offer{
				ID: "wholesale-mtm", Name: "Wholesale Month-to-Month", Supplier: "GridDirect",
				TermMonths: 1, DeliverySlug: deliverySlug,
			},
			rate: types.VariableRate{
				IndexKind: "rtm-hub-avg",
				Notes:     "settles against the real-time market hub average",
			},
		},
		{
			offer: types.Offer{
				ID: "nights-free-12", Name: "Free Nights 12", Supplier: "Lonestar Power",
				TermMonths: 12, DeliverySlug: deliverySlug,
			},
			rate: types.TimeOfUseRate{
				Tiers: []types.Tier{
					{
						BucketDefinition: types.BucketDefinition{
							Key: "night", Label: "Night (9pm-7am)",
							AllDays:     true,
							StartMinute: 21 * 60,
							EndMinute:   7 * 60,
						},
						DollarsPerKWH: 0,
					},
					{
						BucketDefinition: types.BucketDefinition{
							Key: "day", Label: "Day",
							AllDays:     true,
							StartMinute: 0,
							EndMinute:   24 * 60,
						},
						DollarsPerKWH: 0.168,
					},
				},
				RateTerms: types.RateTerms{DeliveryIncluded: true, BaseMonthlyFeeDollars: 9.95},
			},
		},
	}

	for _, o := range offers {
		if err := db.UpsertOffer(ctx, o.offer); err != nil {
			log.Ctx(ctx).ErrorContext(ctx, "failed to seed offer", "error", err)
			os.Exit(1)
		}
		if err := db.SetTemplate(ctx, storage.Template{OfferID: o.offer.ID, Rate: o.rate}); err != nil {
			log.Ctx(ctx).ErrorContext(ctx, "failed to seed template", "error", err)
			os.Exit(1)
		}
	}
}

// seedUsage writes a year of hourly intervals with a bell-ish evening peak
// and some jitter so time-of-use buckets get realistic shares.
func seedUsage(ctx context.Context, db storage.Database, rng *rand.Rand) {
	now := time.Now().UTC().Truncate(time.Hour)
	start := now.AddDate(0, 0, -365)

	var intervals []types.UsageInterval
	for t := start; t.Before(now); t = t.Add(time.Hour) {
		hour := t.Hour()

		kw := baseLoadKW
		switch {
		case hour >= 17 && hour < 22:
			dist := math.Abs(float64(hour) - 19.5)
			kw = eveningPeakKW * math.Exp(-(dist*dist)/4.0)
		case hour >= 10 && hour < 17:
			kw = middayKW
		}

		// summer cooling load
		if t.Month() >= time.June && t.Month() <= time.September {
			kw *= 1.6
		}
		kw += rng.Float64()*0.3 - 0.15
		if kw < 0.1 {
			kw = 0.1
		}

		intervals = append(intervals, types.UsageInterval{
			Timestamp:       t,
			DurationMinutes: 60,
			KWH:             kw,
		})
	}

	if err := db.UpsertUsageIntervals(ctx, householdID, intervals); err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to seed usage", "error", err)
		os.Exit(1)
	}
}
