// Package httpfeed implements the feed interfaces against a JSON quote
// API. Daily series come from /time_series (batched for the bulk
// fetch), reference data from /statistics and /shares_history.
package httpfeed

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"indexpulse/internal/infrastructure"
	"indexpulse/pkg/contracts/domain"
)

const dateLayout = "2006-01-02"

var validate = validator.New()

// Client talks to the primary quote API.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewClient creates a feed client for the API at baseURL.
func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type seriesResponse struct {
	Values []struct {
		Datetime string `json:"datetime"`
		Close    string `json:"close"`
		Volume   string `json:"volume"`
	} `json:"values"`
	Status  string `json:"status"`
	Message string `json:"message"`
}

type statisticsResponse struct {
	Statistics struct {
		SharesOutstanding        *float64 `json:"shares_outstanding"`
		ImpliedSharesOutstanding *float64 `json:"implied_shares_outstanding"`
		ForwardDividendYield     *float64 `json:"forward_dividend_yield"`
	} `json:"statistics"`
	Status  string `json:"status"`
	Message string `json:"message"`
}

type sharesHistoryResponse struct {
	Values []struct {
		Date   string  `json:"date"`
		Shares float64 `json:"shares"`
	} `json:"values"`
	Status  string `json:"status"`
	Message string `json:"message"`
}

// BulkDaily fetches daily bars for all tickers in one batched request.
// Tickers absent from the response map to an empty slice so the
// reconciler can fall back for them.
func (c *Client) BulkDaily(ctx context.Context, tickers []domain.Ticker, start time.Time) (map[domain.Ticker][]domain.Bar, error) {
	params := url.Values{}
	params.Set("symbol", joinTickers(tickers))
	params.Set("interval", "1day")
	params.Set("start_date", start.Format(dateLayout))

	var payload map[string]json.RawMessage
	if err := c.get(ctx, "/time_series", params, &payload); err != nil {
		return nil, fmt.Errorf("bulk daily fetch failed: %w", err)
	}

	result := make(map[domain.Ticker][]domain.Bar, len(tickers))
	for _, ticker := range tickers {
		result[ticker] = nil

		raw, ok := payload[string(ticker)]
		if !ok {
			continue
		}
		var resp seriesResponse
		if err := json.Unmarshal(raw, &resp); err != nil {
			return nil, fmt.Errorf("failed to decode series for %s: %w", ticker, err)
		}
		if resp.Status == "error" {
			// Per-ticker errors mean the feed has no data, not a failed call.
			continue
		}
		bars, err := parseSeries(resp)
		if err != nil {
			return nil, fmt.Errorf("failed to parse series for %s: %w", ticker, err)
		}
		result[ticker] = bars
	}

	return result, nil
}

// IndexDaily fetches the adjusted-close series of a benchmark index.
func (c *Client) IndexDaily(ctx context.Context, indexTicker domain.Ticker, start time.Time) ([]domain.IndexBar, error) {
	params := url.Values{}
	params.Set("symbol", string(indexTicker))
	params.Set("interval", "1day")
	params.Set("start_date", start.Format(dateLayout))

	var resp seriesResponse
	if err := c.get(ctx, "/time_series", params, &resp); err != nil {
		return nil, fmt.Errorf("index fetch failed for %s: %w", indexTicker, err)
	}
	if resp.Status == "error" {
		return nil, fmt.Errorf("index fetch failed for %s: %s", indexTicker, resp.Message)
	}

	bars, err := parseSeries(resp)
	if err != nil {
		return nil, fmt.Errorf("failed to parse index series for %s: %w", indexTicker, err)
	}

	indexBars := make([]domain.IndexBar, len(bars))
	for i, bar := range bars {
		indexBars[i] = domain.IndexBar{Date: bar.Date, AdjClose: bar.Close}
	}
	return indexBars, nil
}

// SharesHistory returns the feed's reported shares-outstanding history.
func (c *Client) SharesHistory(ctx context.Context, ticker domain.Ticker, start time.Time) ([]domain.SharesObservation, error) {
	params := url.Values{}
	params.Set("symbol", string(ticker))
	params.Set("start_date", start.Format(dateLayout))

	var resp sharesHistoryResponse
	if err := c.get(ctx, "/shares_history", params, &resp); err != nil {
		return nil, fmt.Errorf("shares history fetch failed for %s: %w", ticker, err)
	}
	if resp.Status == "error" {
		return nil, fmt.Errorf("shares history fetch failed for %s: %s", ticker, resp.Message)
	}

	observations := make([]domain.SharesObservation, 0, len(resp.Values))
	for _, value := range resp.Values {
		date, err := time.Parse(dateLayout, value.Date)
		if err != nil {
			return nil, fmt.Errorf("invalid shares date %q for %s: %w", value.Date, ticker, err)
		}
		observation := domain.SharesObservation{
			Date:   domain.Day(date),
			Shares: value.Shares,
		}
		if err := validate.Struct(observation); err != nil {
			return nil, fmt.Errorf("invalid shares observation on %s for %s: %w", value.Date, ticker, err)
		}
		observations = append(observations, observation)
	}
	return observations, nil
}

// CurrentShares returns the feed's current shares-outstanding scalar.
func (c *Client) CurrentShares(ctx context.Context, ticker domain.Ticker) (float64, bool, error) {
	stats, err := c.statistics(ctx, ticker)
	if err != nil {
		return 0, false, err
	}
	if stats.Statistics.SharesOutstanding == nil {
		return 0, false, nil
	}
	return *stats.Statistics.SharesOutstanding, true, nil
}

// ImpliedShares returns the implied shares-outstanding scalar covering
// all share classes.
func (c *Client) ImpliedShares(ctx context.Context, ticker domain.Ticker) (float64, bool, error) {
	stats, err := c.statistics(ctx, ticker)
	if err != nil {
		return 0, false, err
	}
	if stats.Statistics.ImpliedSharesOutstanding == nil {
		return 0, false, nil
	}
	return *stats.Statistics.ImpliedSharesOutstanding, true, nil
}

// DividendYield returns the most recent forward dividend yield.
func (c *Client) DividendYield(ctx context.Context, ticker domain.Ticker) (float64, bool, error) {
	stats, err := c.statistics(ctx, ticker)
	if err != nil {
		return 0, false, err
	}
	if stats.Statistics.ForwardDividendYield == nil {
		return 0, false, nil
	}
	return *stats.Statistics.ForwardDividendYield, true, nil
}

func (c *Client) statistics(ctx context.Context, ticker domain.Ticker) (*statisticsResponse, error) {
	params := url.Values{}
	params.Set("symbol", string(ticker))

	var resp statisticsResponse
	if err := c.get(ctx, "/statistics", params, &resp); err != nil {
		return nil, fmt.Errorf("statistics fetch failed for %s: %w", ticker, err)
	}
	if resp.Status == "error" {
		return nil, fmt.Errorf("statistics fetch failed for %s: %s", ticker, resp.Message)
	}
	return &resp, nil
}

// get performs a GET request against endpoint and decodes the JSON body
// into out.
func (c *Client) get(ctx context.Context, endpoint string, params url.Values, out any) error {
	if c.apiKey != "" {
		params.Set("apikey", c.apiKey)
	}
	requestURL := c.baseURL + endpoint + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		infrastructure.FeedRequests.WithLabelValues(endpoint, "error").Inc()
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		infrastructure.FeedRequests.WithLabelValues(endpoint, "error").Inc()
		return fmt.Errorf("unexpected status %d from %s", resp.StatusCode, endpoint)
	}
	infrastructure.FeedRequests.WithLabelValues(endpoint, "ok").Inc()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response from %s: %w", endpoint, err)
	}
	return nil
}

func joinTickers(tickers []domain.Ticker) string {
	parts := make([]string, len(tickers))
	for i, t := range tickers {
		parts[i] = string(t)
	}
	return strings.Join(parts, ",")
}

func parseSeries(resp seriesResponse) ([]domain.Bar, error) {
	bars := make([]domain.Bar, 0, len(resp.Values))
	for _, value := range resp.Values {
		date, err := time.Parse(dateLayout, value.Datetime)
		if err != nil {
			return nil, fmt.Errorf("invalid datetime %q: %w", value.Datetime, err)
		}
		closePrice, err := strconv.ParseFloat(value.Close, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid close %q: %w", value.Close, err)
		}
		volume := 0.0
		if value.Volume != "" {
			volume, err = strconv.ParseFloat(value.Volume, 64)
			if err != nil {
				return nil, fmt.Errorf("invalid volume %q: %w", value.Volume, err)
			}
		}
		bar := domain.Bar{Date: domain.Day(date), Close: closePrice, Volume: volume}
		if err := validate.Struct(bar); err != nil {
			return nil, fmt.Errorf("invalid bar on %s: %w", value.Datetime, err)
		}
		bars = append(bars, bar)
	}
	return bars, nil
}
