package backtest

import (
	"context"
	"log/slog"
	"time"

	"leapsim/internal/domain"
	"leapsim/internal/marketdata"
)

// CycleSpec identifies one buy-hold-sell cycle on the calendar.
type CycleSpec struct {
	Strategy    domain.Strategy
	Year        int
	Period      string // "FY", "Q1".."Q4"
	PeriodIndex int
	EntryDate   time.Time
	ExitDate    time.Time
}

// CycleRunner executes single cycles against the market-data
// collaborators. Collaborator failures skip the cycle; they never abort
// the run.
type CycleRunner struct {
	Spots    marketdata.SpotSource
	Resolver marketdata.OptionResolver
	Splits   []domain.SplitEvent

	Symbol       string
	Sizing       SizeParams
	TargetMonths int
	Moneyness    float64

	Log *slog.Logger
}

// Run walks one cycle through selection, sizing, holding, and closing,
// and returns its trade record. A skipped cycle leaves the entry capital
// untouched (CapitalAfter == CapitalAtEntry).
func (r *CycleRunner) Run(ctx context.Context, spec CycleSpec, capital float64) domain.TradeRecord {
	rec := domain.TradeRecord{
		Strategy:       spec.Strategy,
		Year:           spec.Year,
		Period:         spec.Period,
		EntryDate:      spec.EntryDate,
		CapitalAtEntry: capital,
		SplitRatio:     1,
	}
	log := r.log().With(
		"strategy", spec.Strategy,
		"year", spec.Year,
		"period", spec.Period,
	)

	// Selecting: price the underlying, then resolve the contract.
	state := domain.StateSelecting
	spot, err := r.Spots.OpenPrice(ctx, r.Symbol, spec.EntryDate)
	if err != nil {
		return r.skip(rec, log, state, "no underlying price: "+err.Error())
	}
	contract, err := r.Resolver.ResolveEntry(ctx, marketdata.EntryRequest{
		Symbol:       r.Symbol,
		EntryDate:    spec.EntryDate,
		Spot:         spot,
		Strategy:     spec.Strategy,
		TargetMonths: r.TargetMonths,
		Moneyness:    r.Moneyness,
	})
	if err != nil {
		return r.skip(rec, log, state, "no entry contract: "+err.Error())
	}
	rec.Contract = contract

	// Sizing.
	state = domain.StateSizing
	if contract.EntryPrice <= 0 {
		return r.skip(rec, log, state, "zero entry price")
	}
	pos := Size(capital, contract.EntryPrice, r.Sizing)
	if pos.Contracts == 0 {
		return r.skip(rec, log, state, "capital buys zero contracts")
	}
	rec.Position = pos

	// Holding. Nothing trades here; the state exists so a run can be
	// observed mid-cycle.
	state = domain.StateHolding
	log.Debug("holding", "state", state,
		"contracts", pos.Contracts,
		"strike", contract.Strike,
		"expiration", contract.Expiration.Format("2006-01-02"))

	// Closing: apply splits, look up the exit quote, book the sale.
	state = domain.StateClosing
	rec.ExitDate = spec.ExitDate
	rec.SplitRatio = CombinedSplitRatio(r.Splits, spec.EntryDate, spec.ExitDate)
	rec.ExitStrike = AdjustedStrike(contract.Strike, rec.SplitRatio)

	exitPrice, err := r.Resolver.ExitQuote(ctx, marketdata.ExitRequest{
		Symbol:     r.Symbol,
		Expiration: contract.Expiration,
		Strike:     rec.ExitStrike,
		Right:      contract.Right,
		ExitDate:   spec.ExitDate,
	})
	if err != nil {
		return r.skip(rec, log, state, "no exit quote: "+err.Error())
	}

	rec.ExitPrice = exitPrice
	rec.Proceeds = exitPrice * float64(pos.Contracts) * float64(rec.SplitRatio)
	rec.PnL = rec.Proceeds + pos.Leftover - capital
	rec.ReturnPct = rec.PnL / capital

	log.Info("cycle done", "state", domain.StateDone,
		"contracts", pos.Contracts,
		"split_ratio", rec.SplitRatio,
		"proceeds", rec.Proceeds,
		"return_pct", rec.ReturnPct)
	return rec
}

// skip finalizes a record as skipped from the given state. The position,
// if already sized, stays on the record for the journal; CapitalAfter
// ignores it for skipped cycles.
func (r *CycleRunner) skip(rec domain.TradeRecord, log *slog.Logger, state domain.CycleState, reason string) domain.TradeRecord {
	rec.Skipped = true
	rec.SkipReason = reason
	log.Warn("cycle skipped", "state", state, "reason", reason)
	return rec
}

func (r *CycleRunner) log() *slog.Logger {
	if r.Log != nil {
		return r.Log
	}
	return slog.Default()
}
