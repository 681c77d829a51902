package exporter

import (
	"fmt"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"indexpulse/internal/series"
	"indexpulse/pkg/contracts/domain"
)

// Report is the content of one Excel workbook: a summary of scalar
// metrics, top-N tables per anchor and any number of metric series,
// each on its own sheet.
type Report struct {
	ForwardDividendYield float64
	TopN                 map[string][]domain.TopNEntry
	Series               []series.Series
}

// WriteExcel writes the report workbook and returns the written path.
func (e *Exporter) WriteExcel(filename string, report Report) (string, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := writeSummarySheet(f, report); err != nil {
		return "", err
	}
	for anchor, entries := range report.TopN {
		if err := writeTopNSheet(f, "Top N ("+anchor+")", entries); err != nil {
			return "", err
		}
	}
	for _, s := range report.Series {
		if err := writeSeriesSheet(f, s); err != nil {
			return "", err
		}
	}

	fullPath := filepath.Join(e.dir, filename)
	if err := f.SaveAs(fullPath); err != nil {
		return "", fmt.Errorf("failed to save workbook: %w", err)
	}
	return fullPath, nil
}

func writeSummarySheet(f *excelize.File, report Report) error {
	const sheet = "Summary"
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return fmt.Errorf("failed to rename summary sheet: %w", err)
	}
	if err := f.SetCellValue(sheet, "A1", "forward_dividend_yield"); err != nil {
		return fmt.Errorf("failed to write summary: %w", err)
	}
	if err := f.SetCellValue(sheet, "B1", report.ForwardDividendYield); err != nil {
		return fmt.Errorf("failed to write summary: %w", err)
	}
	return nil
}

func writeTopNSheet(f *excelize.File, sheet string, entries []domain.TopNEntry) error {
	if _, err := f.NewSheet(sheet); err != nil {
		return fmt.Errorf("failed to create sheet %s: %w", sheet, err)
	}
	if err := f.SetSheetRow(sheet, "A1", &[]any{"ticker", "capitalization", "market_share"}); err != nil {
		return fmt.Errorf("failed to write header on %s: %w", sheet, err)
	}
	for i, entry := range entries {
		cell := fmt.Sprintf("A%d", i+2)
		row := []any{string(entry.Ticker), entry.Capitalization, entry.MarketShare}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write row %d on %s: %w", i+2, sheet, err)
		}
	}
	return nil
}

func writeSeriesSheet(f *excelize.File, s series.Series) error {
	sheet := s.Name
	if sheet == "" {
		sheet = "series"
	}
	if _, err := f.NewSheet(sheet); err != nil {
		return fmt.Errorf("failed to create sheet %s: %w", sheet, err)
	}
	if err := f.SetSheetRow(sheet, "A1", &[]any{"date", s.Name}); err != nil {
		return fmt.Errorf("failed to write header on %s: %w", sheet, err)
	}
	for i := range s.Dates {
		cell := fmt.Sprintf("A%d", i+2)
		row := []any{s.Dates[i].Format(dateLayout), s.Values[i]}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write row %d on %s: %w", i+2, sheet, err)
		}
	}
	return nil
}
