// Package exporter writes metric series and top-N tables to CSV and
// Excel report files under the configured reports directory.
package exporter

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"indexpulse/internal/series"
	"indexpulse/pkg/contracts/domain"
)

const dateLayout = "2006-01-02"

// Exporter writes report files under a base directory.
type Exporter struct {
	dir string
}

// New creates an exporter rooted at dir.
func New(dir string) *Exporter {
	return &Exporter{dir: dir}
}

// WriteSeriesCSV writes one metric series as date,value rows and
// returns the written path.
func (e *Exporter) WriteSeriesCSV(filename string, s series.Series) (string, error) {
	records := make([][]string, s.Len())
	for i := range s.Dates {
		records[i] = []string{
			s.Dates[i].Format(dateLayout),
			strconv.FormatFloat(s.Values[i], 'f', -1, 64),
		}
	}
	return e.writeCSV(filename, []string{"date", s.Name}, records)
}

// WriteTopNCSV writes a top-N capitalization table and returns the
// written path.
func (e *Exporter) WriteTopNCSV(filename string, entries []domain.TopNEntry) (string, error) {
	records := make([][]string, len(entries))
	for i, entry := range entries {
		records[i] = []string{
			string(entry.Ticker),
			strconv.FormatFloat(entry.Capitalization, 'f', 2, 64),
			strconv.FormatFloat(entry.MarketShare, 'f', 6, 64),
		}
	}
	return e.writeCSV(filename, []string{"ticker", "capitalization", "market_share"}, records)
}

// writeCSV writes headers and records to a file under the reports
// directory, prefixed with a UTF-8 BOM so Excel opens it cleanly.
func (e *Exporter) writeCSV(filename string, headers []string, records [][]string) (string, error) {
	fullPath := filepath.Join(e.dir, filename)
	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return "", fmt.Errorf("failed to create report directory: %w", err)
	}

	file, err := os.Create(fullPath)
	if err != nil {
		return "", fmt.Errorf("failed to create report file: %w", err)
	}
	defer file.Close()

	if _, err := file.Write([]byte{0xEF, 0xBB, 0xBF}); err != nil {
		return "", fmt.Errorf("failed to write BOM: %w", err)
	}

	writer := csv.NewWriter(file)
	if err := writer.Write(headers); err != nil {
		return "", fmt.Errorf("failed to write headers: %w", err)
	}
	for i, record := range records {
		if err := writer.Write(record); err != nil {
			return "", fmt.Errorf("failed to write record %d: %w", i, err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return "", fmt.Errorf("failed to flush report file: %w", err)
	}

	return fullPath, nil
}
