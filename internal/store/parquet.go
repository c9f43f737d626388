package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/parquet-go/parquet-go"

	"leapsim/internal/domain"
)

// Compile-time interface check.
var _ Journal = (*ParquetJournal)(nil)

// ParquetJournal implements Journal using one Parquet file per
// strategy-year under <DataDir>/journal/.
type ParquetJournal struct {
	DataDir string
}

// NewParquetJournal creates a journal rooted at the given data directory.
func NewParquetJournal(dataDir string) *ParquetJournal {
	return &ParquetJournal{DataDir: dataDir}
}

// ---------------------------------------------------------------------------
// Parquet record type (on-disk schema)
// ---------------------------------------------------------------------------

// CycleRecord is the Parquet schema for one journaled cycle. Dates are
// YYYY-MM-DD strings; greek columns are zero when the vendor had no greeks.
type CycleRecord struct {
	Strategy   string `parquet:"strategy"`
	Year       int64  `parquet:"year"`
	Period     string `parquet:"period"`
	EntryDate  string `parquet:"entry_date"`
	ExitDate   string `parquet:"exit_date"`
	Skipped    bool   `parquet:"skipped"`
	SkipReason string `parquet:"skip_reason"`

	Symbol            string  `parquet:"symbol"`
	Strike            float64 `parquet:"strike"`
	Expiration        string  `parquet:"expiration"`
	Right             string  `parquet:"right"`
	MonthsToExpiry    float64 `parquet:"months_to_expiry"`
	UnderlyingAtEntry float64 `parquet:"underlying_at_entry"`

	Delta float64 `parquet:"delta"`
	Gamma float64 `parquet:"gamma"`
	Theta float64 `parquet:"theta"`
	Vega  float64 `parquet:"vega"`
	IV    float64 `parquet:"iv"`

	CapitalAtEntry float64 `parquet:"capital_at_entry"`
	EntryPrice     float64 `parquet:"entry_price"`
	Contracts      int64   `parquet:"contracts"`
	EntryCost      float64 `parquet:"entry_cost"`
	Leftover       float64 `parquet:"leftover"`

	SplitRatio     int64   `parquet:"split_ratio"`
	ExitStrike     float64 `parquet:"exit_strike"`
	ExitPrice      float64 `parquet:"exit_price"`
	Proceeds       float64 `parquet:"proceeds"`
	PnLPerContract float64 `parquet:"pnl_per_contract"`
	PnL            float64 `parquet:"pnl"`
	ReturnPct      float64 `parquet:"return_pct"`
}

// ---------------------------------------------------------------------------
// Journal implementation
// ---------------------------------------------------------------------------

// WriteYear persists all trade records of one strategy-year.
// Layout: <DataDir>/journal/<strategy>/<YYYY>.parquet
func (j *ParquetJournal) WriteYear(_ context.Context, result domain.YearlyResult) error {
	records := make([]CycleRecord, 0, len(result.Trades))
	for i := range result.Trades {
		records = append(records, toCycleRecord(&result.Trades[i]))
	}

	path := j.yearPath(result.Strategy, result.Year)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	if err := parquet.WriteFile(path, records); err != nil {
		return fmt.Errorf("writing journal for %s/%d: %w", result.Strategy, result.Year, err)
	}
	return nil
}

// ReadYear returns the journaled trade records for a strategy-year. A
// strategy-year that was never journaled returns an empty slice.
func (j *ParquetJournal) ReadYear(_ context.Context, strategy domain.Strategy, year int) ([]domain.TradeRecord, error) {
	path := j.yearPath(strategy, year)
	rows, err := parquet.ReadFile[CycleRecord](path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading journal %s: %w", path, err)
	}

	trades := make([]domain.TradeRecord, 0, len(rows))
	for i := range rows {
		rec, err := fromCycleRecord(&rows[i])
		if err != nil {
			return nil, fmt.Errorf("journal %s: %w", path, err)
		}
		trades = append(trades, rec)
	}
	return trades, nil
}

// yearPath returns the filesystem path for a strategy-year journal file.
func (j *ParquetJournal) yearPath(strategy domain.Strategy, year int) string {
	return filepath.Join(j.DataDir, "journal", string(strategy), fmt.Sprintf("%d.parquet", year))
}

// ---------------------------------------------------------------------------
// Conversions
// ---------------------------------------------------------------------------

const dayFormat = "2006-01-02"

func toCycleRecord(t *domain.TradeRecord) CycleRecord {
	rec := CycleRecord{
		Strategy:       string(t.Strategy),
		Year:           int64(t.Year),
		Period:         t.Period,
		EntryDate:      formatDay(t.EntryDate),
		ExitDate:       formatDay(t.ExitDate),
		Skipped:        t.Skipped,
		SkipReason:     t.SkipReason,
		CapitalAtEntry: t.CapitalAtEntry,
		Contracts:      int64(t.Position.Contracts),
		EntryCost:      t.Position.EntryCost,
		Leftover:       t.Position.Leftover,
		SplitRatio:     int64(t.SplitRatio),
		ExitStrike:     t.ExitStrike,
		ExitPrice:      t.ExitPrice,
		Proceeds:       t.Proceeds,
		PnL:            t.PnL,
		ReturnPct:      t.ReturnPct,
	}

	if c := t.Contract; c != nil {
		rec.Symbol = c.Symbol
		rec.Strike = c.Strike
		rec.Expiration = formatDay(c.Expiration)
		rec.Right = string(c.Right)
		rec.MonthsToExpiry = c.MonthsToExpiry
		rec.UnderlyingAtEntry = c.UnderlyingAtEntry
		rec.EntryPrice = c.EntryPrice
		if t.Position.Contracts > 0 && c.EntryPrice > 0 {
			rec.PnLPerContract = t.ExitPrice*float64(t.SplitRatio) - c.EntryPrice
		}
		if g := c.EntryGreeks; g != nil {
			rec.Delta = g.Delta
			rec.Gamma = g.Gamma
			rec.Theta = g.Theta
			rec.Vega = g.Vega
			rec.IV = g.IV
		}
	}

	return rec
}

func fromCycleRecord(r *CycleRecord) (domain.TradeRecord, error) {
	entry, err := parseDay(r.EntryDate)
	if err != nil {
		return domain.TradeRecord{}, err
	}
	exit, err := parseDay(r.ExitDate)
	if err != nil {
		return domain.TradeRecord{}, err
	}

	rec := domain.TradeRecord{
		Strategy:       domain.Strategy(r.Strategy),
		Year:           int(r.Year),
		Period:         r.Period,
		EntryDate:      entry,
		ExitDate:       exit,
		CapitalAtEntry: r.CapitalAtEntry,
		Position: domain.Position{
			Contracts: int(r.Contracts),
			EntryCost: r.EntryCost,
			Leftover:  r.Leftover,
		},
		SplitRatio: int(r.SplitRatio),
		ExitStrike: r.ExitStrike,
		ExitPrice:  r.ExitPrice,
		Proceeds:   r.Proceeds,
		PnL:        r.PnL,
		ReturnPct:  r.ReturnPct,
		Skipped:    r.Skipped,
		SkipReason: r.SkipReason,
	}

	if r.Expiration != "" {
		exp, err := parseDay(r.Expiration)
		if err != nil {
			return domain.TradeRecord{}, err
		}
		rec.Contract = &domain.OptionContract{
			Symbol:            r.Symbol,
			Strike:            r.Strike,
			Expiration:        exp,
			Right:             domain.OptionRight(r.Right),
			UnderlyingAtEntry: r.UnderlyingAtEntry,
			EntryPrice:        r.EntryPrice,
			MonthsToExpiry:    r.MonthsToExpiry,
			EntryGreeks: &domain.Greeks{
				Delta: r.Delta,
				Gamma: r.Gamma,
				Theta: r.Theta,
				Vega:  r.Vega,
				IV:    r.IV,
			},
		}
	}

	return rec, nil
}

func formatDay(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(dayFormat)
}

func parseDay(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(dayFormat, s)
}
