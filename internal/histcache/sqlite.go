package histcache

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"indexpulse/pkg/contracts/domain"
)

// SQLiteCache stores all tickers' bars in a single SQLite database.
// Useful when the cache grows past a handful of files.
type SQLiteCache struct {
	db *sql.DB
}

// NewSQLiteCache opens (and if needed initializes) the cache database at
// path. The caller owns the returned cache and must Close it.
func NewSQLiteCache(path string) (*SQLiteCache, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache database %s: %w", path, err)
	}

	schema := `
	CREATE TABLE IF NOT EXISTS daily_bars (
		ticker TEXT NOT NULL,
		date   TEXT NOT NULL,
		close  REAL NOT NULL,
		volume REAL NOT NULL,
		PRIMARY KEY (ticker, date)
	);`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize cache schema: %w", err)
	}

	return &SQLiteCache{db: db}, nil
}

// Close releases the underlying database handle.
func (c *SQLiteCache) Close() error {
	return c.db.Close()
}

// Load reads the cached bars for a ticker in date order. ok is false
// when the ticker has no rows.
func (c *SQLiteCache) Load(ctx context.Context, ticker domain.Ticker) ([]domain.Bar, bool, error) {
	rows, err := c.db.QueryContext(ctx,
		`SELECT date, close, volume FROM daily_bars WHERE ticker = ? ORDER BY date`,
		string(ticker))
	if err != nil {
		return nil, false, fmt.Errorf("failed to query cache for %s: %w", ticker, err)
	}
	defer rows.Close()

	var bars []domain.Bar
	for rows.Next() {
		var dateStr string
		var bar domain.Bar
		if err := rows.Scan(&dateStr, &bar.Close, &bar.Volume); err != nil {
			return nil, false, fmt.Errorf("failed to scan cache row for %s: %w", ticker, err)
		}
		date, err := time.Parse(csvDateLayout, dateStr)
		if err != nil {
			return nil, false, fmt.Errorf("invalid cached date %q for %s: %w", dateStr, ticker, err)
		}
		bar.Date = domain.Day(date)
		bars = append(bars, bar)
	}
	if err := rows.Err(); err != nil {
		return nil, false, fmt.Errorf("failed to read cache rows for %s: %w", ticker, err)
	}

	if len(bars) == 0 {
		return nil, false, nil
	}
	return bars, true, nil
}

// Store replaces the cached bars for a ticker inside a transaction.
func (c *SQLiteCache) Store(ctx context.Context, ticker domain.Ticker, bars []domain.Bar) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin cache transaction for %s: %w", ticker, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM daily_bars WHERE ticker = ?`, string(ticker)); err != nil {
		return fmt.Errorf("failed to clear cache rows for %s: %w", ticker, err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO daily_bars (ticker, date, close, volume) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare cache insert for %s: %w", ticker, err)
	}
	defer stmt.Close()

	for _, bar := range bars {
		if _, err := stmt.ExecContext(ctx,
			string(ticker), bar.Date.Format(csvDateLayout), bar.Close, bar.Volume); err != nil {
			return fmt.Errorf("failed to insert cache row for %s: %w", ticker, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit cache rows for %s: %w", ticker, err)
	}
	return nil
}
