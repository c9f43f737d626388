package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver.
)

// Compile-time interface check.
var _ CalendarStore = (*SQLiteStore)(nil)

// SQLiteStore implements CalendarStore backed by a SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath, runs the
// schema migration, and returns a ready-to-use store.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS trading_days (
			symbol TEXT    NOT NULL,
			year   INTEGER NOT NULL,
			day    TEXT    NOT NULL,
			PRIMARY KEY (symbol, year, day)
		)
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// TradingDays returns the cached trading days for symbol in year, ordered
// ascending. A year that was never cached returns (nil, nil).
func (s *SQLiteStore) TradingDays(ctx context.Context, symbol string, year int) ([]time.Time, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT day FROM trading_days WHERE symbol = ? AND year = ? ORDER BY day`,
		symbol, year,
	)
	if err != nil {
		return nil, fmt.Errorf("querying trading days: %w", err)
	}
	defer rows.Close()

	var days []time.Time
	for rows.Next() {
		var day string
		if err := rows.Scan(&day); err != nil {
			return nil, err
		}
		t, err := time.Parse("2006-01-02", day)
		if err != nil {
			return nil, fmt.Errorf("malformed day %q for %s/%d: %w", day, symbol, year, err)
		}
		days = append(days, t)
	}
	return days, rows.Err()
}

// SaveTradingDays stores the trading days for symbol in year inside a single
// transaction, replacing any previous entry for that symbol and year.
func (s *SQLiteStore) SaveTradingDays(ctx context.Context, symbol string, year int, days []time.Time) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM trading_days WHERE symbol = ? AND year = ?`, symbol, year,
	); err != nil {
		return fmt.Errorf("clearing trading days: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO trading_days (symbol, year, day) VALUES (?, ?, ?)`,
	)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, d := range days {
		if _, err := stmt.ExecContext(ctx, symbol, year, d.Format("2006-01-02")); err != nil {
			return fmt.Errorf("inserting trading day: %w", err)
		}
	}

	return tx.Commit()
}
