// Package store defines storage for the two things the backtester persists:
// the trading-day calendar cache and the per-cycle trade journal.
package store

import (
	"context"
	"time"

	"leapsim/internal/domain"
)

// CalendarStore caches trading days per symbol and year. Historical trading
// days never change, so cached years are served forever.
type CalendarStore interface {
	// TradingDays returns the cached trading days for symbol in year,
	// ordered ascending. A nil slice with nil error means a cache miss.
	TradingDays(ctx context.Context, symbol string, year int) ([]time.Time, error)

	// SaveTradingDays stores the trading days for symbol in year, replacing
	// any previous entry.
	SaveTradingDays(ctx context.Context, symbol string, year int, days []time.Time) error
}

// Journal persists the per-cycle trade records for downstream analysis.
type Journal interface {
	// WriteYear persists all trade records of one strategy-year, replacing
	// any previous journal for that strategy and year.
	WriteYear(ctx context.Context, result domain.YearlyResult) error

	// ReadYear returns the journaled trade records for a strategy-year in
	// cycle order. A missing journal returns an empty slice.
	ReadYear(ctx context.Context, strategy domain.Strategy, year int) ([]domain.TradeRecord, error)
}
