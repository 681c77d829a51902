package exporter

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"indexpulse/internal/series"
	"indexpulse/pkg/contracts/domain"
)

func sampleSeries() series.Series {
	return series.Series{
		Name: "capitalization",
		Dates: []time.Time{
			time.Date(2024, 1, 8, 0, 0, 0, 0, time.UTC),
			time.Date(2024, 1, 9, 0, 0, 0, 0, time.UTC),
		},
		Values: []float64{2000, 1000},
	}
}

func TestWriteSeriesCSV(t *testing.T) {
	e := New(t.TempDir())

	path, err := e.WriteSeriesCSV("capitalization.csv", sampleSeries())
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	content := string(data)
	assert.Contains(t, content, "date,capitalization")
	assert.Contains(t, content, "2024-01-08,2000")
	assert.Contains(t, content, "2024-01-09,1000")
	// BOM for Excel.
	assert.Equal(t, []byte{0xEF, 0xBB, 0xBF}, data[:3])
}

func TestWriteTopNCSV(t *testing.T) {
	e := New(t.TempDir())

	entries := []domain.TopNEntry{
		{Ticker: "AAA", Capitalization: 1000, MarketShare: 0.5},
		{Ticker: "BBB", Capitalization: 600, MarketShare: 0.3},
	}
	path, err := e.WriteTopNCSV("top10_day.csv", entries)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "ticker,capitalization,market_share")
	assert.Contains(t, string(data), "AAA,1000.00,0.500000")
}

func TestWriteExcel(t *testing.T) {
	e := New(t.TempDir())

	report := Report{
		ForwardDividendYield: 0.018,
		TopN: map[string][]domain.TopNEntry{
			"day": {{Ticker: "AAA", Capitalization: 1000, MarketShare: 1}},
		},
		Series: []series.Series{sampleSeries()},
	}

	path, err := e.WriteExcel("report.xlsx", report)
	require.NoError(t, err)

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	assert.ElementsMatch(t, []string{"Summary", "Top N (day)", "capitalization"}, f.GetSheetList())

	yield, err := f.GetCellValue("Summary", "B1")
	require.NoError(t, err)
	assert.Equal(t, "0.018", yield)

	ticker, err := f.GetCellValue("Top N (day)", "A2")
	require.NoError(t, err)
	assert.Equal(t, "AAA", ticker)

	date, err := f.GetCellValue("capitalization", "A3")
	require.NoError(t, err)
	assert.Equal(t, "2024-01-09", date)
}
