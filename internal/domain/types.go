// Package domain defines the shared types of the backtester: strategies,
// option contracts, positions, per-cycle trade records, and yearly results.
package domain

import (
	"time"
)

// Strategy identifies one of the two LEAPS holding disciplines.
type Strategy string

const (
	// StrategyAnnual buys a single next-January LEAP on the first trading
	// day of the year and holds it until the last trading day.
	StrategyAnnual Strategy = "annual"

	// StrategyQuarterly rolls a ~15-month LEAP at the end of every calendar
	// quarter, compounding capital from one quarter into the next.
	StrategyQuarterly Strategy = "quarterly"
)

// CyclesPerYear returns how many buy-hold-sell cycles the strategy runs in
// one year.
func (s Strategy) CyclesPerYear() int {
	if s == StrategyQuarterly {
		return 4
	}
	return 1
}

// CycleState is a phase of a single buy-hold-sell cycle.
type CycleState string

const (
	StateSelecting CycleState = "selecting_option"
	StateSizing    CycleState = "sizing"
	StateHolding   CycleState = "holding"
	StateClosing   CycleState = "closing"
	StateDone      CycleState = "done"
	StateSkipped   CycleState = "skipped"
)

// OptionRight is the option type. Only calls are traded here.
type OptionRight string

const (
	RightCall OptionRight = "C"
	RightPut  OptionRight = "P"
)

// Greeks holds the option sensitivities quoted by the data vendor.
type Greeks struct {
	Delta float64
	Gamma float64
	Theta float64
	Vega  float64
	IV    float64
}

// OptionContract is the contract chosen for a cycle, with its entry-side
// pricing. It is produced once by the option resolver and read-only after.
type OptionContract struct {
	Symbol            string
	Strike            float64 // dollars
	Expiration        time.Time
	Right             OptionRight
	UnderlyingAtEntry float64
	EntryPrice        float64 // per contract
	MonthsToExpiry    float64
	EntryGreeks       *Greeks // nil when the vendor had no greeks
}

// SplitEvent is a corporate action that rescales strike and contract count.
type SplitEvent struct {
	Ratio         int // shares-out per share-in, > 1
	EffectiveDate time.Time
}

// CapitalState is the cash available to a strategy at a point in the year.
// It is mutated only by the compounding driver between cycles.
type CapitalState struct {
	AvailableCash float64
	Year          int
	PeriodIndex   int // 0 for annual; 0..3 for quarterly
}

// Position is the sized holding for one cycle.
//
// Invariant: Contracts*(entry price+commission) + Leftover == capital at
// entry (within rounding), and Contracts never exceeds the liquidity cap.
type Position struct {
	Contracts int
	EntryCost float64 // contracts * (price + commission)
	Leftover  float64
}

// TradeRecord is the immutable outcome of one cycle, skipped or not.
// Records are append-only; the metrics aggregator and journal consume them.
type TradeRecord struct {
	Strategy       Strategy
	Year           int
	Period         string // "FY", "Q1".."Q4"
	EntryDate      time.Time
	ExitDate       time.Time
	CapitalAtEntry float64

	Contract *OptionContract // nil when skipped before selection completed
	Position Position

	SplitRatio int     // combined ratio applied during the holding period, 1 = none
	ExitStrike float64 // strike used for the exit lookup (split-adjusted)
	ExitPrice  float64 // per contract, post-split quote

	Proceeds  float64 // exit price * contracts * split ratio
	PnL       float64 // proceeds + leftover - capital at entry
	ReturnPct float64 // on capital at entry

	Skipped    bool
	SkipReason string
}

// CapitalAfter returns the cash carried into the next cycle: sale proceeds
// plus leftover, or the untouched entry capital for a skipped cycle.
func (t *TradeRecord) CapitalAfter() float64 {
	if t.Skipped {
		return t.CapitalAtEntry
	}
	return t.Proceeds + t.Position.Leftover
}

// YearlyResult aggregates the cycles of one strategy-year.
type YearlyResult struct {
	Strategy        Strategy
	Year            int
	StartingCapital float64
	FinalCapital    float64
	ReturnPct       float64
	Commissions     float64 // total entry commissions paid during the year
	Trades          []TradeRecord
}

// Metrics summarizes a sequence of yearly results for one strategy.
// Sharpe and Sortino are NaN when undefined (zero dispersion, or no losing
// years for Sortino).
type Metrics struct {
	Years        int
	WinningYears int
	LosingYears  int
	WinRate      float64 // fraction of years with return > 0
	AvgReturn    float64 // mean yearly return, fraction
	AvgWinner    float64
	AvgLoser     float64
	BestYear     float64
	WorstYear    float64
	Sharpe       float64
	Sortino      float64
	MaxDrawdown  float64 // peak-to-trough fraction, >= 0
	Commissions  float64
}
