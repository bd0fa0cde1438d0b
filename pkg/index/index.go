// Package index fetches the real-time wholesale index price used to
// estimate the current rate of indexed (variable) plans when no observed
// bill rate is available. Estimates built from it carry approximate
// confidence.
package index

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/levenlabs/go-lflag"
	"github.com/ratewise/ratewise/pkg/common"
	"github.com/ratewise/ratewise/pkg/log"
)

// Feed is a cached HTTP client for an hourly-pricing style API that returns
// 5-minute index prices in cents per kWh.
type Feed struct {
	apiURL string
	client *http.Client

	mu            sync.Mutex
	lastFetchTime time.Time
	cachedRate    float64
}

// Configured sets up flags for the index feed and returns the instance.
func Configured() *Feed {
	f := &Feed{
		client: common.HTTPClient(10 * time.Second),
	}
	apiURL := lflag.String("index-api-url", "https://hourlypricing.comed.com/api", "URL for the hourly index pricing API")

	lflag.Do(func() {
		f.apiURL = *apiURL
	})

	return f
}

// Validate ensures the configuration is usable.
func (f *Feed) Validate() error {
	if f.apiURL == "" {
		return fmt.Errorf("index-api-url is required")
	}
	if _, err := url.Parse(f.apiURL); err != nil {
		return fmt.Errorf("failed to parse index url (%s): %w", f.apiURL, err)
	}
	return nil
}

// priceEntry matches the JSON shape of the 5-minute feed.
type priceEntry struct {
	MillisUTC string `json:"millisUTC"`
	Price     string `json:"price"`
}

// CurrentRate returns the average index price over the trailing hour in
// dollars per kWh. The result is cached for 5 minutes.
func (f *Feed) CurrentRate(ctx context.Context) (float64, error) {
	now := time.Now()

	f.mu.Lock()
	if !f.lastFetchTime.IsZero() && !now.Truncate(5*time.Minute).After(f.lastFetchTime) {
		rate := f.cachedRate
		f.mu.Unlock()
		return rate, nil
	}
	f.mu.Unlock()

	rate, err := f.fetchAverage(ctx, now.Add(-time.Hour), now)
	if err != nil {
		return 0, err
	}

	f.mu.Lock()
	f.cachedRate = rate
	f.lastFetchTime = now
	f.mu.Unlock()

	return rate, nil
}

// fetchAverage requests the 5-minute feed for [start, end] and averages the
// returned prices.
func (f *Feed) fetchAverage(ctx context.Context, start, end time.Time) (float64, error) {
	u, err := url.Parse(f.apiURL)
	if err != nil {
		return 0, fmt.Errorf("invalid api url: %w", err)
	}

	q := u.Query()
	q.Set("type", "5minutefeed")
	q.Set("datestart", start.Format("200601021504"))
	q.Set("dateend", end.Format("200601021504"))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return 0, fmt.Errorf("failed to build index request: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("index feed request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("index feed returned status %d", resp.StatusCode)
	}

	var entries []priceEntry
	if err := json.NewDecoder(resp.Body).Decode(&entries); err != nil {
		return 0, fmt.Errorf("failed to decode index feed response: %w", err)
	}
	if len(entries) == 0 {
		return 0, fmt.Errorf("index feed returned no prices")
	}

	var sum float64
	for _, e := range entries {
		// prices come back in cents per kWh
		cents, err := strconv.ParseFloat(e.Price, 64)
		if err != nil {
			return 0, fmt.Errorf("failed to parse index price %q: %w", e.Price, err)
		}
		sum += cents / 100
	}
	avg := sum / float64(len(entries))

	log.Ctx(ctx).DebugContext(ctx, "fetched index prices",
		slog.Int("samples", len(entries)),
		slog.Float64("avgDollarsPerKWH", avg),
	)
	return avg, nil
}
