// Package marketdata resolves option contracts, quotes, and trading
// calendars from external vendors. The backtest engine only sees the
// interfaces defined here; vendor clients live behind them.
package marketdata

import (
	"context"
	"errors"
	"time"

	"leapsim/internal/domain"
)

// Sentinel errors. Callers branch with errors.Is; every vendor failure
// that simply means "no usable data" maps to ErrNoData so the engine can
// skip the cycle instead of aborting the run.
var (
	// ErrNoData means the vendor has no usable quote or listing for the
	// request. A cycle hitting this is skipped, never failed.
	ErrNoData = errors.New("no market data available")

	// ErrNoExpirations means the vendor lists no candidate expirations
	// for the requested horizon.
	ErrNoExpirations = errors.New("no candidate expirations")
)

// EntryRequest describes the contract the resolver should pick at the
// start of a cycle.
type EntryRequest struct {
	Symbol    string
	EntryDate time.Time
	Spot      float64 // underlying price at entry, > 0

	Strategy     domain.Strategy
	TargetMonths int     // quarterly horizon, ignored for annual
	Moneyness    float64 // ITM bound: strike <= Spot * Moneyness
}

// ExitRequest describes the closing quote lookup for an open contract.
// Strike is the split-adjusted strike in dollars.
type ExitRequest struct {
	Symbol     string
	Expiration time.Time
	Strike     float64
	Right      domain.OptionRight
	ExitDate   time.Time
}

// OptionResolver picks an entry contract and prices its exit.
type OptionResolver interface {
	// ResolveEntry returns the contract for the cycle with its entry-side
	// pricing filled in. It returns ErrNoData (possibly wrapped) when no
	// candidate expiration has a complete entry quote.
	ResolveEntry(ctx context.Context, req EntryRequest) (*domain.OptionContract, error)

	// ExitQuote returns the per-contract closing price on the exit date.
	// A zero price is a valid quote for a worthless contract.
	ExitQuote(ctx context.Context, req ExitRequest) (float64, error)
}

// SpotSource quotes the underlying at the session open.
type SpotSource interface {
	OpenPrice(ctx context.Context, symbol string, day time.Time) (float64, error)
}

// DayLister lists the trading days of one calendar year in order.
type DayLister interface {
	ListTradingDays(ctx context.Context, year int) ([]time.Time, error)
}
