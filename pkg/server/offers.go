package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/ratewise/ratewise/pkg/delivery"
	"github.com/ratewise/ratewise/pkg/log"
	"github.com/ratewise/ratewise/pkg/types"
)

func (s *Server) handleListOffers(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	offers, err := s.storage.ListOffers(ctx)
	if err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to list offers", slog.Any("error", err))
		writeJSONError(w, "failed to list offers", http.StatusInternalServerError)
		return
	}

	visible := make([]types.Offer, 0, len(offers))
	for _, o := range offers {
		if o.Hidden && !s.showHidden {
			continue
		}
		visible = append(visible, o)
	}

	writeJSON(w, struct {
		Offers []types.Offer `json:"offers"`
	}{Offers: visible})
}

func (s *Server) handleDeliveryRates(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	slug := r.URL.Query().Get("slug")
	if slug == "" {
		writeJSONError(w, "slug is required", http.StatusBadRequest)
		return
	}

	rates, err := s.storage.GetDeliveryRates(ctx, slug)
	if err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to get delivery rates", slog.Any("error", err))
		writeJSONError(w, "failed to get delivery rates", http.StatusInternalServerError)
		return
	}

	resp := struct {
		Slug    string               `json:"slug"`
		Rates   []types.DeliveryRate `json:"rates"`
		Current *types.DeliveryRate  `json:"current,omitempty"`
	}{Slug: slug, Rates: rates}

	if current, err := delivery.Resolve(rates, time.Now()); err == nil {
		resp.Current = &current
	}

	writeJSON(w, resp)
}
