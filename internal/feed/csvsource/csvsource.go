// Package csvsource loads the index composition and manual
// shares-outstanding overrides from CSV files.
//
// The membership file holds one ticker per row. The change-log file has
// a header and rows of date,added,removed where added and removed are
// quoted comma-separated ticker lists, newest first or oldest first
// (order does not matter, the registry sorts by date). Override files
// live one per ticker as <TICKER>.csv with date,shares rows.
package csvsource

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"indexpulse/pkg/contracts/domain"
)

const dateLayout = "2006-01-02"

var validate = validator.New()

// MembershipFiles reads the current member list and change log from CSV.
type MembershipFiles struct {
	membershipPath string
	changeLogPath  string
}

// NewMembershipFiles creates a source over the two composition files.
func NewMembershipFiles(membershipPath, changeLogPath string) *MembershipFiles {
	return &MembershipFiles{membershipPath: membershipPath, changeLogPath: changeLogPath}
}

// Current returns the current index members in file order.
func (m *MembershipFiles) Current(ctx context.Context) ([]domain.Ticker, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	records, err := readCSV(m.membershipPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read membership file: %w", err)
	}

	var tickers []domain.Ticker
	for i, record := range records {
		if len(record) == 0 {
			continue
		}
		ticker := strings.TrimSpace(record[0])
		if ticker == "" || (i == 0 && strings.EqualFold(ticker, "ticker")) {
			continue
		}
		tickers = append(tickers, domain.Ticker(ticker))
	}

	if len(tickers) == 0 {
		return nil, fmt.Errorf("membership file %s has no tickers", m.membershipPath)
	}
	return tickers, nil
}

// ChangeLog returns the membership change events in chronological
// order regardless of file order; published change logs are usually
// newest first.
func (m *MembershipFiles) ChangeLog(ctx context.Context) ([]domain.ChangeEvent, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	records, err := readCSV(m.changeLogPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read change log: %w", err)
	}

	var events []domain.ChangeEvent
	for i, record := range records {
		if i == 0 && len(record) > 0 && strings.EqualFold(strings.TrimSpace(record[0]), "date") {
			continue
		}
		if len(record) < 3 {
			return nil, fmt.Errorf("change log row %d: expected 3 fields, got %d", i+1, len(record))
		}
		date, err := time.Parse(dateLayout, strings.TrimSpace(record[0]))
		if err != nil {
			return nil, fmt.Errorf("change log row %d: invalid date %q: %w", i+1, record[0], err)
		}
		events = append(events, domain.ChangeEvent{
			Date:    domain.Day(date),
			Added:   splitTickers(record[1]),
			Removed: splitTickers(record[2]),
		})
	}

	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Date.Before(events[j].Date)
	})
	return events, nil
}

// OverrideFiles reads per-ticker shares-outstanding overrides from a
// directory of <TICKER>.csv files. A missing directory means no
// overrides.
type OverrideFiles struct {
	dir string
}

// NewOverrideFiles creates a source over the overrides directory.
func NewOverrideFiles(dir string) *OverrideFiles {
	return &OverrideFiles{dir: dir}
}

// SharesOverrides loads every override file in the directory.
func (o *OverrideFiles) SharesOverrides(ctx context.Context) (map[domain.Ticker][]domain.SharesObservation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(o.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return map[domain.Ticker][]domain.SharesObservation{}, nil
		}
		return nil, fmt.Errorf("failed to read overrides directory: %w", err)
	}

	overrides := make(map[domain.Ticker][]domain.SharesObservation)
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".csv") {
			continue
		}
		ticker := domain.Ticker(strings.TrimSuffix(name, ".csv"))

		observations, err := readOverrideFile(filepath.Join(o.dir, name))
		if err != nil {
			return nil, fmt.Errorf("failed to read override file %s: %w", name, err)
		}
		overrides[ticker] = observations
	}
	return overrides, nil
}

func readOverrideFile(path string) ([]domain.SharesObservation, error) {
	records, err := readCSV(path)
	if err != nil {
		return nil, err
	}

	observations := make([]domain.SharesObservation, 0, len(records))
	for i, record := range records {
		if i == 0 && len(record) > 0 && strings.EqualFold(strings.TrimSpace(record[0]), "date") {
			continue
		}
		if len(record) < 2 {
			return nil, fmt.Errorf("row %d: expected 2 fields, got %d", i+1, len(record))
		}
		date, err := time.Parse(dateLayout, strings.TrimSpace(record[0]))
		if err != nil {
			return nil, fmt.Errorf("row %d: invalid date %q: %w", i+1, record[0], err)
		}
		shares, err := strconv.ParseFloat(strings.TrimSpace(record[1]), 64)
		if err != nil {
			return nil, fmt.Errorf("row %d: invalid shares %q: %w", i+1, record[1], err)
		}
		observation := domain.SharesObservation{Date: domain.Day(date), Shares: shares}
		if err := validate.Struct(observation); err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}
		observations = append(observations, observation)
	}

	sort.Slice(observations, func(i, j int) bool {
		return observations[i].Date.Before(observations[j].Date)
	})
	return observations, nil
}

func readCSV(path string) ([][]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	return reader.ReadAll()
}

// splitTickers parses a comma-separated ticker list field.
func splitTickers(field string) []domain.Ticker {
	var tickers []domain.Ticker
	for _, part := range strings.Split(field, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		tickers = append(tickers, domain.Ticker(part))
	}
	return tickers
}
