package httpfeed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"indexpulse/pkg/contracts/domain"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestBulkDaily(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/time_series", r.URL.Path)
		assert.Equal(t, "AAA,BBB", r.URL.Query().Get("symbol"))
		assert.Equal(t, "1day", r.URL.Query().Get("interval"))
		assert.Equal(t, "test-key", r.URL.Query().Get("apikey"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"AAA": {"status":"ok","values":[
				{"datetime":"2024-01-03","close":"101.5","volume":"2000"},
				{"datetime":"2024-01-02","close":"100.0","volume":"1500"}
			]},
			"BBB": {"status":"error","message":"symbol not found"}
		}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "test-key", 5*time.Second)
	bars, err := client.BulkDaily(context.Background(), []domain.Ticker{"AAA", "BBB"}, day(2024, 1, 1))
	require.NoError(t, err)

	require.Len(t, bars["AAA"], 2)
	assert.Equal(t, domain.Bar{Date: day(2024, 1, 3), Close: 101.5, Volume: 2000}, bars["AAA"][0])
	// Per-ticker feed errors surface as an empty slice, not a failure.
	assert.Empty(t, bars["BBB"])
}

func TestIndexDaily(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"ok","values":[{"datetime":"2024-01-02","close":"4800.25"}]}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "", 5*time.Second)
	bars, err := client.IndexDaily(context.Background(), "SPX", day(2024, 1, 1))
	require.NoError(t, err)
	require.Len(t, bars, 1)
	assert.Equal(t, domain.IndexBar{Date: day(2024, 1, 2), AdjClose: 4800.25}, bars[0])
}

func TestStatistics(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/statistics", r.URL.Path)
		w.Write([]byte(`{"status":"ok","statistics":{
			"shares_outstanding": 1000000,
			"forward_dividend_yield": 0.021
		}}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "", 5*time.Second)
	ctx := context.Background()

	shares, ok, err := client.CurrentShares(ctx, "AAA")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 1000000.0, shares)

	_, ok, err = client.ImpliedShares(ctx, "AAA")
	require.NoError(t, err)
	assert.False(t, ok)

	yield, ok, err := client.DividendYield(ctx, "AAA")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 0.021, yield)
}

func TestSharesHistory(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/shares_history", r.URL.Path)
		w.Write([]byte(`{"status":"ok","values":[
			{"date":"2024-01-02","shares":1000000},
			{"date":"2024-03-29","shares":1010000}
		]}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "", 5*time.Second)
	history, err := client.SharesHistory(context.Background(), "AAA", day(2024, 1, 1))
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, domain.SharesObservation{Date: day(2024, 3, 29), Shares: 1010000}, history[1])
}

func TestBulkDailyRejectsNegativePrices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"AAA": {"status":"ok","values":[
			{"datetime":"2024-01-02","close":"-1.5","volume":"100"}
		]}}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "", 5*time.Second)
	_, err := client.BulkDaily(context.Background(), []domain.Ticker{"AAA"}, day(2024, 1, 1))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid bar")
}

func TestSharesHistoryRejectsNegativeShares(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"ok","values":[{"date":"2024-01-02","shares":-500}]}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "", 5*time.Second)
	_, err := client.SharesHistory(context.Background(), "AAA", day(2024, 1, 1))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid shares observation")
}

func TestServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewClient(server.URL, "", 5*time.Second)
	_, err := client.IndexDaily(context.Background(), "SPX", day(2024, 1, 1))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected status 500")
}

func TestSecondaryDaily(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "DLST", r.URL.Query().Get("symbol"))
		w.Write([]byte(`{"status":"ok","values":[{"datetime":"2024-01-02","close":"5.5","volume":"300"}]}`))
	}))
	defer server.Close()

	secondary := NewSecondaryClient(server.URL, "", 5*time.Second, 100, 1)
	bars, err := secondary.Daily(context.Background(), "DLST", day(2024, 1, 1))
	require.NoError(t, err)
	require.Len(t, bars, 1)
	assert.Equal(t, domain.Bar{Date: day(2024, 1, 2), Close: 5.5, Volume: 300}, bars[0])
}
