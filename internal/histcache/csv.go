// Package histcache persists daily bars for tickers the primary feed no
// longer covers, so the secondary provider is only hit once per ticker.
// Two backends implement feed.HistoryCache: a directory of per-ticker
// CSV files and a single SQLite database.
package histcache

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"indexpulse/pkg/contracts/domain"
)

const csvDateLayout = "2006-01-02"

// CSVCache stores one CSV file per ticker under a directory.
type CSVCache struct {
	dir string
}

// NewCSVCache creates a CSV-backed cache rooted at dir, creating the
// directory if needed.
func NewCSVCache(dir string) (*CSVCache, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory %s: %w", dir, err)
	}
	return &CSVCache{dir: dir}, nil
}

func (c *CSVCache) path(ticker domain.Ticker) string {
	return filepath.Join(c.dir, string(ticker)+".csv")
}

// Load reads the cached bars for a ticker. ok is false when no file
// exists for the ticker.
func (c *CSVCache) Load(ctx context.Context, ticker domain.Ticker) ([]domain.Bar, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	file, err := os.Open(c.path(ticker))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to open cache file for %s: %w", ticker, err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	records, err := reader.ReadAll()
	if err != nil {
		return nil, false, fmt.Errorf("failed to read cache file for %s: %w", ticker, err)
	}

	bars := make([]domain.Bar, 0, len(records))
	for i, record := range records {
		if i == 0 && record[0] == "date" {
			continue
		}
		bar, err := parseBarRecord(record)
		if err != nil {
			return nil, false, fmt.Errorf("invalid cache row %d for %s: %w", i+1, ticker, err)
		}
		bars = append(bars, bar)
	}

	return bars, true, nil
}

// Store writes the bars for a ticker, replacing any existing file.
func (c *CSVCache) Store(ctx context.Context, ticker domain.Ticker, bars []domain.Bar) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	file, err := os.Create(c.path(ticker))
	if err != nil {
		return fmt.Errorf("failed to create cache file for %s: %w", ticker, err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.Write([]string{"date", "close", "volume"}); err != nil {
		return fmt.Errorf("failed to write cache header for %s: %w", ticker, err)
	}
	for _, bar := range bars {
		record := []string{
			bar.Date.Format(csvDateLayout),
			strconv.FormatFloat(bar.Close, 'f', -1, 64),
			strconv.FormatFloat(bar.Volume, 'f', -1, 64),
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write cache row for %s: %w", ticker, err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("failed to flush cache file for %s: %w", ticker, err)
	}

	return nil
}

func parseBarRecord(record []string) (domain.Bar, error) {
	if len(record) < 3 {
		return domain.Bar{}, fmt.Errorf("expected 3 fields, got %d", len(record))
	}
	date, err := time.Parse(csvDateLayout, record[0])
	if err != nil {
		return domain.Bar{}, fmt.Errorf("invalid date %q: %w", record[0], err)
	}
	closePrice, err := strconv.ParseFloat(record[1], 64)
	if err != nil {
		return domain.Bar{}, fmt.Errorf("invalid close %q: %w", record[1], err)
	}
	volume, err := strconv.ParseFloat(record[2], 64)
	if err != nil {
		return domain.Bar{}, fmt.Errorf("invalid volume %q: %w", record[2], err)
	}
	return domain.Bar{Date: domain.Day(date), Close: closePrice, Volume: volume}, nil
}
