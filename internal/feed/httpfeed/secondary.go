package httpfeed

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"golang.org/x/time/rate"

	"indexpulse/pkg/contracts/domain"
)

// SecondaryClient fetches daily history from the secondary provider.
// Free tiers throttle hard, so every call waits on a rate limiter.
type SecondaryClient struct {
	client  *Client
	limiter *rate.Limiter
}

// NewSecondaryClient creates a rate-limited secondary history client.
func NewSecondaryClient(baseURL, apiKey string, timeout time.Duration, rps float64, burst int) *SecondaryClient {
	return &SecondaryClient{
		client:  NewClient(baseURL, apiKey, timeout),
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
	}
}

// Daily fetches the full daily history for a single ticker.
func (s *SecondaryClient) Daily(ctx context.Context, ticker domain.Ticker, start time.Time) ([]domain.Bar, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter wait failed for %s: %w", ticker, err)
	}

	params := url.Values{}
	params.Set("symbol", string(ticker))
	params.Set("interval", "1day")
	params.Set("start_date", start.Format(dateLayout))

	var resp seriesResponse
	if err := s.client.get(ctx, "/time_series", params, &resp); err != nil {
		return nil, fmt.Errorf("secondary fetch failed for %s: %w", ticker, err)
	}
	if resp.Status == "error" {
		return nil, fmt.Errorf("secondary fetch failed for %s: %s", ticker, resp.Message)
	}

	bars, err := parseSeries(resp)
	if err != nil {
		return nil, fmt.Errorf("failed to parse secondary series for %s: %w", ticker, err)
	}
	return bars, nil
}
