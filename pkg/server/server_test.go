package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ratewise/ratewise/pkg/storage"
	"github.com/ratewise/ratewise/pkg/storage/storagemock"
	"github.com/ratewise/ratewise/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newTestServer(db storage.Database) *Server {
	return &Server{
		storage:       db,
		serverName:    "test",
		defaultBudget: time.Second,
		maxOffers:     2,
	}
}

func doRequest(t *testing.T, s *Server, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	s.setupHandler().ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v))
}

func TestHealthz(t *testing.T) {
	s := newTestServer(&storagemock.MockDatabase{})
	rec := doRequest(t, s, "/healthz")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestResponseHeaders(t *testing.T) {
	s := newTestServer(&storagemock.MockDatabase{})
	rec := doRequest(t, s, "/healthz")

	assert.Equal(t, "test", rec.Header().Get("Server"))
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
	assert.NotEmpty(t, rec.Header().Get("Strict-Transport-Security"))
}

func TestListOffers(t *testing.T) {
	offers := []types.Offer{
		{ID: "a", Name: "Plan A", DeliverySlug: "oncor"},
		{ID: "b", Name: "Plan B", DeliverySlug: "oncor", Hidden: true},
	}

	t.Run("hidden offers filtered", func(t *testing.T) {
		m := &storagemock.MockDatabase{}
		m.On("ListOffers", mock.Anything).Return(offers, nil)
		s := newTestServer(m)

		rec := doRequest(t, s, "/api/offers")
		require.Equal(t, http.StatusOK, rec.Code)

		var body struct {
			Offers []types.Offer `json:"offers"`
		}
		decodeBody(t, rec, &body)
		require.Len(t, body.Offers, 1)
		assert.Equal(t, "a", body.Offers[0].ID)
	})

	t.Run("show hidden", func(t *testing.T) {
		m := &storagemock.MockDatabase{}
		m.On("ListOffers", mock.Anything).Return(offers, nil)
		s := newTestServer(m)
		s.showHidden = true

		rec := doRequest(t, s, "/api/offers")
		require.Equal(t, http.StatusOK, rec.Code)

		var body struct {
			Offers []types.Offer `json:"offers"`
		}
		decodeBody(t, rec, &body)
		assert.Len(t, body.Offers, 2)
	})
}

func TestDeliveryRates(t *testing.T) {
	t.Run("missing slug", func(t *testing.T) {
		s := newTestServer(&storagemock.MockDatabase{})
		rec := doRequest(t, s, "/api/delivery")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("returns records and the current rate", func(t *testing.T) {
		m := &storagemock.MockDatabase{}
		m.On("GetDeliveryRates", mock.Anything, "oncor").Return([]types.DeliveryRate{
			{DollarsPerKWH: 0.038, EffectiveDate: time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)},
			{DollarsPerKWH: 0.041, EffectiveDate: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)},
		}, nil)
		s := newTestServer(m)

		rec := doRequest(t, s, "/api/delivery?slug=oncor")
		require.Equal(t, http.StatusOK, rec.Code)

		var body struct {
			Slug    string               `json:"slug"`
			Rates   []types.DeliveryRate `json:"rates"`
			Current *types.DeliveryRate  `json:"current"`
		}
		decodeBody(t, rec, &body)
		assert.Equal(t, "oncor", body.Slug)
		assert.Len(t, body.Rates, 2)
		require.NotNil(t, body.Current)
		assert.Equal(t, 0.041, body.Current.DollarsPerKWH)
	})
}

func testSnapshot() types.UsageSnapshot {
	now := time.Now().UTC().Truncate(time.Hour)
	var intervals []types.UsageInterval
	for i := 0; i < 30; i++ {
		intervals = append(intervals, types.UsageInterval{
			Timestamp:       now.AddDate(0, 0, -30+i),
			DurationMinutes: 60,
			KWH:             2,
		})
	}
	return types.UsageSnapshot{HouseholdID: "h1", Intervals: intervals}
}

func TestEstimate(t *testing.T) {
	offer := types.Offer{ID: "steady-12", DeliverySlug: "oncor"}
	deliveryRates := []types.DeliveryRate{
		{DollarsPerKWH: 0.041, MonthlyFeeDollars: 3.75, EffectiveDate: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)},
	}

	t.Run("missing params", func(t *testing.T) {
		s := newTestServer(&storagemock.MockDatabase{})
		rec := doRequest(t, s, "/api/estimate?householdID=h1")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("unknown offer", func(t *testing.T) {
		m := &storagemock.MockDatabase{}
		m.On("GetOffer", mock.Anything, "nope").Return(types.Offer{}, storage.ErrOfferNotFound)
		s := newTestServer(m)

		rec := doRequest(t, s, "/api/estimate?householdID=h1&offerID=nope")
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("fixed rate estimate", func(t *testing.T) {
		m := &storagemock.MockDatabase{}
		m.On("GetOffer", mock.Anything, "steady-12").Return(offer, nil)
		m.On("GetTemplate", mock.Anything, "steady-12").Return(storage.Template{
			OfferID: "steady-12",
			Rate:    types.FixedRate{DollarsPerKWH: 0.102},
		}, nil)
		m.On("GetUsageSnapshot", mock.Anything, "h1", snapshotWindow).Return(testSnapshot(), nil)
		m.On("GetDeliveryRates", mock.Anything, "oncor").Return(deliveryRates, nil)
		s := newTestServer(m)

		rec := doRequest(t, s, "/api/estimate?householdID=h1&offerID=steady-12")
		require.Equal(t, http.StatusOK, rec.Code)

		var body estimateResponse
		decodeBody(t, rec, &body)
		assert.Equal(t, "steady-12", body.OfferID)
		assert.Equal(t, "h1", body.HouseholdID)
		assert.Equal(t, types.ComputabilityOK, body.Estimate.Status)
		assert.Greater(t, body.Estimate.TotalAnnualDollars, 0.0)
		m.AssertExpectations(t)
	})

	t.Run("template not materialized", func(t *testing.T) {
		m := &storagemock.MockDatabase{}
		m.On("GetOffer", mock.Anything, "steady-12").Return(offer, nil)
		m.On("GetTemplate", mock.Anything, "steady-12").Return(storage.Template{}, storage.ErrTemplateNotFound)
		m.On("GetUsageSnapshot", mock.Anything, "h1", snapshotWindow).Return(testSnapshot(), nil)
		s := newTestServer(m)

		rec := doRequest(t, s, "/api/estimate?householdID=h1&offerID=steady-12")
		require.Equal(t, http.StatusOK, rec.Code)

		var body estimateResponse
		decodeBody(t, rec, &body)
		assert.Equal(t, types.ComputabilityMissingTemplate, body.Estimate.Status)
	})

	t.Run("no usage on file", func(t *testing.T) {
		m := &storagemock.MockDatabase{}
		m.On("GetOffer", mock.Anything, "steady-12").Return(offer, nil)
		m.On("GetTemplate", mock.Anything, "steady-12").Return(storage.Template{
			OfferID: "steady-12",
			Rate:    types.FixedRate{DollarsPerKWH: 0.102},
		}, nil)
		m.On("GetUsageSnapshot", mock.Anything, "h1", snapshotWindow).Return(types.UsageSnapshot{}, storage.ErrSnapshotNotFound)
		s := newTestServer(m)

		rec := doRequest(t, s, "/api/estimate?householdID=h1&offerID=steady-12")
		require.Equal(t, http.StatusOK, rec.Code)

		var body estimateResponse
		decodeBody(t, rec, &body)
		assert.Equal(t, types.ComputabilityMissingUsage, body.Estimate.Status)
	})

	t.Run("no delivery schedule in effect", func(t *testing.T) {
		m := &storagemock.MockDatabase{}
		m.On("GetOffer", mock.Anything, "steady-12").Return(offer, nil)
		m.On("GetTemplate", mock.Anything, "steady-12").Return(storage.Template{
			OfferID: "steady-12",
			Rate:    types.FixedRate{DollarsPerKWH: 0.102},
		}, nil)
		m.On("GetUsageSnapshot", mock.Anything, "h1", snapshotWindow).Return(testSnapshot(), nil)
		m.On("GetDeliveryRates", mock.Anything, "oncor").Return([]types.DeliveryRate{}, nil)
		s := newTestServer(m)

		rec := doRequest(t, s, "/api/estimate?householdID=h1&offerID=steady-12")
		require.Equal(t, http.StatusOK, rec.Code)

		var body estimateResponse
		decodeBody(t, rec, &body)
		assert.Equal(t, types.ComputabilityMissingTemplate, body.Estimate.Status)
	})
}

func TestEstimates(t *testing.T) {
	offers := []types.Offer{
		{ID: "a", DeliverySlug: "oncor"},
		{ID: "b", DeliverySlug: "oncor"},
		{ID: "hidden", DeliverySlug: "oncor", Hidden: true},
	}
	deliveryRates := []types.DeliveryRate{
		{DollarsPerKWH: 0.041, EffectiveDate: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)},
	}

	t.Run("missing household", func(t *testing.T) {
		s := newTestServer(&storagemock.MockDatabase{})
		rec := doRequest(t, s, "/api/estimates")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("invalid budget", func(t *testing.T) {
		s := newTestServer(&storagemock.MockDatabase{})
		rec := doRequest(t, s, "/api/estimates?householdID=h1&budgetMs=banana")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("batch over visible offers", func(t *testing.T) {
		m := &storagemock.MockDatabase{}
		m.On("ListOffers", mock.Anything).Return(offers, nil)
		m.On("GetUsageSnapshot", mock.Anything, "h1", snapshotWindow).Return(testSnapshot(), nil)
		m.On("GetTemplate", mock.Anything, "a").Return(storage.Template{
			OfferID: "a", Rate: types.FixedRate{DollarsPerKWH: 0.102},
		}, nil)
		m.On("GetTemplate", mock.Anything, "b").Return(storage.Template{
			OfferID: "b", Rate: types.FixedRate{DollarsPerKWH: 0.129},
		}, nil)
		// delivery table is fetched once per slug, not once per offer
		m.On("GetDeliveryRates", mock.Anything, "oncor").Return(deliveryRates, nil).Once()
		s := newTestServer(m)

		rec := doRequest(t, s, "/api/estimates?householdID=h1")
		require.Equal(t, http.StatusOK, rec.Code)

		var body batchResponse
		decodeBody(t, rec, &body)
		assert.Equal(t, "h1", body.HouseholdID)
		assert.Equal(t, 2, body.Completed)
		assert.Empty(t, body.Remaining)
		require.Len(t, body.Estimates, 2)
		assert.Equal(t, types.ComputabilityOK, body.Estimates["a"].Status)
		assert.Equal(t, types.ComputabilityOK, body.Estimates["b"].Status)
		m.AssertExpectations(t)
	})
}
