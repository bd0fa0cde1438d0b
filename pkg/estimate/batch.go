package estimate

import (
	"context"
	"log/slog"
	"time"

	"github.com/ratewise/ratewise/pkg/delivery"
	"github.com/ratewise/ratewise/pkg/log"
	"github.com/ratewise/ratewise/pkg/types"
)

// DefaultMaxOffers bounds batch concurrency when the caller does not.
const DefaultMaxOffers = 4

// evaluate is swapped out in tests to observe scheduling.
var evaluate = evaluateCandidate

// Candidate is one offer queued for batch evaluation, with whatever inputs
// the boundary layer managed to preload. Rate is nil when the template
// pipeline has not materialized the offer yet.
type Candidate struct {
	Offer         types.Offer
	Rate          types.RateStructure
	DeliveryRates []types.DeliveryRate
}

// Options controls a batch evaluation run.
type Options struct {
	// TimeBudget is the wall-clock budget for the whole batch. Once it is
	// exhausted no new evaluations start and in-flight ones are abandoned.
	TimeBudget time.Duration

	// MaxOffers caps how many evaluations run concurrently.
	MaxOffers int

	// AsOf anchors the trailing evaluation window and delivery rate
	// selection. Zero means now.
	AsOf time.Time
}

// Result reports what a batch run produced. Completed+len(Remaining) always
// equals the number of candidates submitted.
type Result struct {
	// Estimates holds the finished estimate per offer ID. Each entry is
	// all-or-nothing; no partially computed estimate is ever returned.
	Estimates map[string]types.CostEstimate

	Completed int

	// Remaining lists offer IDs that were not finished within the budget,
	// in submission order.
	Remaining []string
}

// EvaluateMany runs classification and composition for up to MaxOffers
// candidates at a time until the candidates are exhausted or the time
// budget runs out. One offer's fault never aborts its siblings; a panicking
// evaluation is reported as not computable for that offer alone. The
// evaluator keeps no shared state and never touches caches; callers own
// persistence of the returned estimates.
func EvaluateMany(ctx context.Context, candidates []Candidate, snapshot types.UsageSnapshot, opts Options) Result {
	maxOffers := opts.MaxOffers
	if maxOffers <= 0 {
		maxOffers = DefaultMaxOffers
	}
	asOf := opts.AsOf
	if asOf.IsZero() {
		asOf = time.Now()
	}

	batchCtx := ctx
	if opts.TimeBudget > 0 {
		var cancel context.CancelFunc
		batchCtx, cancel = context.WithTimeout(ctx, opts.TimeBudget)
		defer cancel()
	}

	type offerResult struct {
		offerID string
		est     types.CostEstimate
	}

	// buffered so abandoned workers never block sending a discarded result
	out := make(chan offerResult, len(candidates))
	sem := make(chan struct{}, maxOffers)
	eval := evaluate

	started := 0
dispatch:
	for _, c := range candidates {
		select {
		case sem <- struct{}{}:
		case <-batchCtx.Done():
			break dispatch
		}
		started++
		go func(c Candidate) {
			defer func() { <-sem }()
			out <- offerResult{offerID: c.Offer.ID, est: eval(c, snapshot, asOf)}
		}(c)
	}

	estimates := make(map[string]types.CostEstimate, started)
collect:
	for received := 0; received < started; received++ {
		select {
		case r := <-out:
			estimates[r.offerID] = r.est
		case <-batchCtx.Done():
			break collect
		}
	}

	result := Result{
		Estimates: estimates,
		Completed: len(estimates),
	}
	for _, c := range candidates {
		if _, ok := estimates[c.Offer.ID]; !ok {
			result.Remaining = append(result.Remaining, c.Offer.ID)
		}
	}

	log.Ctx(ctx).DebugContext(ctx, "batch evaluation finished",
		slog.Int("candidates", len(candidates)),
		slog.Int("completed", result.Completed),
		slog.Int("remaining", len(result.Remaining)),
	)
	return result
}

// evaluateCandidate classifies then composes a single offer. Panics are
// contained here so one bad template cannot take down a batch.
func evaluateCandidate(c Candidate, snapshot types.UsageSnapshot, asOf time.Time) (est types.CostEstimate) {
	defer func() {
		if p := recover(); p != nil {
			est = types.CostEstimate{
				Status: types.ComputabilityNotComputable,
				Reason: types.ReasonInternalError,
			}
		}
	}()

	status, reason := Classify(Input{
		UsageAvailable:    len(snapshot.Intervals) > 0,
		TemplateAvailable: c.Rate != nil,
		Rate:              c.Rate,
	})
	if !status.Computable() {
		return types.CostEstimate{Status: status, Reason: reason}
	}

	rate, err := delivery.Resolve(c.DeliveryRates, asOf)
	if err != nil {
		// no delivery schedule in effect is a missing-template condition
		return types.CostEstimate{Status: types.ComputabilityMissingTemplate}
	}

	return Estimate(snapshot, c.Rate, rate, asOf)
}
