package server

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/ratewise/ratewise/pkg/delivery"
	"github.com/ratewise/ratewise/pkg/estimate"
	"github.com/ratewise/ratewise/pkg/log"
	"github.com/ratewise/ratewise/pkg/storage"
	"github.com/ratewise/ratewise/pkg/types"
)

const snapshotWindow = estimate.WindowDays * 24 * time.Hour

// estimateResponse is the JSON body for a single-offer estimate.
type estimateResponse struct {
	OfferID     string             `json:"offerID"`
	HouseholdID string             `json:"householdID"`
	Estimate    types.CostEstimate `json:"estimate"`
}

// batchResponse is the JSON body for a batch estimate run.
type batchResponse struct {
	HouseholdID string                        `json:"householdID"`
	Estimates   map[string]types.CostEstimate `json:"estimates"`
	Completed   int                           `json:"completed"`
	Remaining   []string                      `json:"remaining,omitempty"`
}

func (s *Server) handleEstimate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	householdID := r.URL.Query().Get("householdID")
	offerID := r.URL.Query().Get("offerID")
	if householdID == "" || offerID == "" {
		writeJSONError(w, "householdID and offerID are required", http.StatusBadRequest)
		return
	}

	offer, err := s.storage.GetOffer(ctx, offerID)
	if err != nil {
		if errors.Is(err, storage.ErrOfferNotFound) {
			writeJSONError(w, fmt.Sprintf("unknown offer: %s", offerID), http.StatusNotFound)
			return
		}
		log.Ctx(ctx).ErrorContext(ctx, "failed to get offer", slog.Any("error", err))
		writeJSONError(w, "failed to get offer", http.StatusInternalServerError)
		return
	}

	rate, err := s.loadRate(r, offerID)
	if err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to load template", slog.Any("error", err))
		writeJSONError(w, "failed to load template", http.StatusInternalServerError)
		return
	}

	snapshot, err := s.loadSnapshot(r, householdID)
	if err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to load usage snapshot", slog.Any("error", err))
		writeJSONError(w, "failed to load usage snapshot", http.StatusInternalServerError)
		return
	}

	resp := estimateResponse{OfferID: offerID, HouseholdID: householdID}

	status, reason := estimate.Classify(estimate.Input{
		UsageAvailable:    len(snapshot.Intervals) > 0,
		TemplateAvailable: rate != nil,
		Rate:              rate,
	})
	if !status.Computable() {
		resp.Estimate = types.CostEstimate{Status: status, Reason: reason}
		writeJSON(w, resp)
		return
	}

	asOf := time.Now()
	rates, err := s.storage.GetDeliveryRates(ctx, offer.DeliverySlug)
	if err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to get delivery rates", slog.Any("error", err))
		writeJSONError(w, "failed to get delivery rates", http.StatusInternalServerError)
		return
	}
	deliveryRate, err := delivery.Resolve(rates, asOf)
	if err != nil {
		// treated as a missing-template condition, not a fault
		resp.Estimate = types.CostEstimate{Status: types.ComputabilityMissingTemplate}
		writeJSON(w, resp)
		return
	}

	resp.Estimate = estimate.Estimate(snapshot, rate, deliveryRate, asOf)
	writeJSON(w, resp)
}

func (s *Server) handleEstimates(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	householdID := r.URL.Query().Get("householdID")
	if householdID == "" {
		writeJSONError(w, "householdID is required", http.StatusBadRequest)
		return
	}

	budget := s.defaultBudget
	if ms := r.URL.Query().Get("budgetMs"); ms != "" {
		v, err := strconv.Atoi(ms)
		if err != nil || v <= 0 {
			writeJSONError(w, "invalid budgetMs", http.StatusBadRequest)
			return
		}
		budget = time.Duration(v) * time.Millisecond
	}

	offers, err := s.storage.ListOffers(ctx)
	if err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to list offers", slog.Any("error", err))
		writeJSONError(w, "failed to list offers", http.StatusInternalServerError)
		return
	}

	snapshot, err := s.loadSnapshot(r, householdID)
	if err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to load usage snapshot", slog.Any("error", err))
		writeJSONError(w, "failed to load usage snapshot", http.StatusInternalServerError)
		return
	}

	// preload templates and delivery tables so the engine itself does no I/O
	var candidates []estimate.Candidate
	deliveryTables := make(map[string][]types.DeliveryRate)
	for _, offer := range offers {
		if offer.Hidden && !s.showHidden {
			continue
		}

		rate, err := s.loadRate(r, offer.ID)
		if err != nil {
			log.Ctx(ctx).ErrorContext(ctx, "failed to load template", slog.String("offerID", offer.ID), slog.Any("error", err))
			writeJSONError(w, "failed to load template", http.StatusInternalServerError)
			return
		}

		rates, ok := deliveryTables[offer.DeliverySlug]
		if !ok {
			rates, err = s.storage.GetDeliveryRates(ctx, offer.DeliverySlug)
			if err != nil {
				log.Ctx(ctx).ErrorContext(ctx, "failed to get delivery rates", slog.String("deliverySlug", offer.DeliverySlug), slog.Any("error", err))
				writeJSONError(w, "failed to get delivery rates", http.StatusInternalServerError)
				return
			}
			deliveryTables[offer.DeliverySlug] = rates
		}

		candidates = append(candidates, estimate.Candidate{
			Offer:         offer,
			Rate:          rate,
			DeliveryRates: rates,
		})
	}

	result := estimate.EvaluateMany(ctx, candidates, snapshot, estimate.Options{
		TimeBudget: budget,
		MaxOffers:  s.maxOffers,
	})

	writeJSON(w, batchResponse{
		HouseholdID: householdID,
		Estimates:   result.Estimates,
		Completed:   result.Completed,
		Remaining:   result.Remaining,
	})
}

// loadRate fetches the offer's materialized template. A missing template is
// returned as a nil rate, not an error; the classifier reports it. When an
// indexed rate has no observed current-bill rate, the index feed fills in
// an estimate and marks it as such.
func (s *Server) loadRate(r *http.Request, offerID string) (types.RateStructure, error) {
	ctx := r.Context()
	tmpl, err := s.storage.GetTemplate(ctx, offerID)
	if err != nil {
		if errors.Is(err, storage.ErrTemplateNotFound) {
			return nil, nil
		}
		return nil, err
	}

	if v, ok := tmpl.Rate.(types.VariableRate); ok && v.CurrentDollarsPerKWH <= 0 && s.feed != nil {
		indexRate, err := s.feed.CurrentRate(ctx)
		if err != nil {
			// leave the rate unfilled, classification will reject it
			log.Ctx(ctx).WarnContext(ctx, "index feed unavailable", slog.String("offerID", offerID), slog.Any("error", err))
			return tmpl.Rate, nil
		}
		v.CurrentDollarsPerKWH = indexRate
		v.RateEstimated = true
		return v, nil
	}

	return tmpl.Rate, nil
}

// loadSnapshot fetches the household's trailing-window usage. A household
// with no readings is returned as an empty snapshot, not an error.
func (s *Server) loadSnapshot(r *http.Request, householdID string) (types.UsageSnapshot, error) {
	snapshot, err := s.storage.GetUsageSnapshot(r.Context(), householdID, snapshotWindow)
	if err != nil {
		if errors.Is(err, storage.ErrSnapshotNotFound) {
			return types.UsageSnapshot{HouseholdID: householdID}, nil
		}
		return types.UsageSnapshot{}, err
	}
	return snapshot, nil
}
