package backtest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"leapsim/internal/domain"
	"leapsim/internal/marketdata"
	"leapsim/internal/store"
)

// ErrYearNotStarted marks a year with no finished trading days before the
// as-of horizon. Such years are omitted from results; every other planning
// failure yields a skipped year, never an aborted run.
var ErrYearNotStarted = errors.New("year not started")

// Driver compounds cycles into yearly results. Every year starts from the
// same StartingCapital; within a year, each cycle's proceeds plus leftover
// fund the next cycle.
type Driver struct {
	Calendar *marketdata.Calendar
	Runner   *CycleRunner
	Journal  store.Journal // nil disables journaling

	StartingCapital float64
	AsOf            time.Time // cycles never exit after this date

	Log *slog.Logger
}

// quarterPeriods indexes the period labels by quarter.
var quarterPeriods = [4]string{"Q1", "Q2", "Q3", "Q4"}

// RunYear backtests one strategy-year. It returns ErrYearNotStarted for a
// year with nothing to run; any other data problem, calendar included,
// produces skipped records with capital unchanged instead of an error.
func (d *Driver) RunYear(ctx context.Context, strategy domain.Strategy, year int) (domain.YearlyResult, error) {
	result := domain.YearlyResult{
		Strategy:        strategy,
		Year:            year,
		StartingCapital: d.StartingCapital,
	}

	cycles, err := d.planCycles(ctx, strategy, year)
	if err != nil {
		if errors.Is(err, ErrYearNotStarted) {
			return domain.YearlyResult{}, err
		}
		return d.skipYear(ctx, result, "calendar unavailable: "+err.Error()), nil
	}

	state := domain.CapitalState{AvailableCash: d.StartingCapital, Year: year}
	for _, spec := range cycles {
		state.PeriodIndex = spec.PeriodIndex
		rec := d.Runner.Run(ctx, spec, state.AvailableCash)
		state.AvailableCash = rec.CapitalAfter()
		if !rec.Skipped {
			result.Commissions += float64(rec.Position.Contracts) * d.Runner.Sizing.Commission
		}
		result.Trades = append(result.Trades, rec)
	}

	result.FinalCapital = state.AvailableCash
	result.ReturnPct = state.AvailableCash/d.StartingCapital - 1

	d.journal(ctx, result)
	return result, nil
}

// skipYear fills a year whose cycles could not even be planned: one
// skipped record per expected cycle, capital untouched.
func (d *Driver) skipYear(ctx context.Context, result domain.YearlyResult, reason string) domain.YearlyResult {
	d.log().Warn("year skipped", "strategy", result.Strategy, "year", result.Year, "reason", reason)
	for i := 0; i < result.Strategy.CyclesPerYear(); i++ {
		result.Trades = append(result.Trades, domain.TradeRecord{
			Strategy:       result.Strategy,
			Year:           result.Year,
			Period:         periodLabel(result.Strategy, i),
			CapitalAtEntry: result.StartingCapital,
			SplitRatio:     1,
			Skipped:        true,
			SkipReason:     reason,
		})
	}
	result.FinalCapital = result.StartingCapital
	result.ReturnPct = 0
	d.journal(ctx, result)
	return result
}

func (d *Driver) journal(ctx context.Context, result domain.YearlyResult) {
	if d.Journal == nil {
		return
	}
	if err := d.Journal.WriteYear(ctx, result); err != nil {
		d.log().Warn("journal write failed", "strategy", result.Strategy, "year", result.Year, "err", err)
	}
}

func periodLabel(strategy domain.Strategy, i int) string {
	if strategy == domain.StrategyQuarterly {
		return quarterPeriods[i]
	}
	return "FY"
}

// planCycles lays out the year's cycles on the trading calendar, clamping
// the final exit to the as-of date. Cycles whose clamped window collapses
// to a single day are dropped; a year with no runnable cycle is
// ErrYearNotStarted.
func (d *Driver) planCycles(ctx context.Context, strategy domain.Strategy, year int) ([]CycleSpec, error) {
	horizon, err := d.Calendar.MostRecentTradingDay(ctx, d.AsOf)
	if err != nil {
		return nil, err
	}

	if strategy == domain.StrategyAnnual {
		entry, err := d.Calendar.FirstTradingDay(ctx, year)
		if err != nil {
			return nil, err
		}
		exit, err := d.Calendar.LastTradingDay(ctx, year)
		if err != nil {
			return nil, err
		}
		if exit.After(horizon) {
			exit = horizon
		}
		if !entry.Before(exit) {
			return nil, fmt.Errorf("%w: %d has no finished trading days before %s",
				ErrYearNotStarted, year, horizon.Format("2006-01-02"))
		}
		return []CycleSpec{{
			Strategy:  strategy,
			Year:      year,
			Period:    "FY",
			EntryDate: entry,
			ExitDate:  exit,
		}}, nil
	}

	var cycles []CycleSpec
	for q := 1; q <= 4; q++ {
		entry, exit, err := d.Calendar.QuarterBounds(ctx, year, q)
		if err != nil {
			return nil, err
		}
		if exit.After(horizon) {
			exit = horizon
		}
		if !entry.Before(exit) {
			break
		}
		cycles = append(cycles, CycleSpec{
			Strategy:    strategy,
			Year:        year,
			Period:      quarterPeriods[q-1],
			PeriodIndex: q - 1,
			EntryDate:   entry,
			ExitDate:    exit,
		})
	}
	if len(cycles) == 0 {
		return nil, fmt.Errorf("%w: %d has no finished trading days before %s",
			ErrYearNotStarted, year, horizon.Format("2006-01-02"))
	}
	return cycles, nil
}

// RunStrategy backtests every year in [startYear, endYear]. Years that
// have not started are logged and omitted; all other years appear in the
// results, skipped cycles included.
func (d *Driver) RunStrategy(ctx context.Context, strategy domain.Strategy, startYear, endYear int) ([]domain.YearlyResult, error) {
	var results []domain.YearlyResult
	for year := startYear; year <= endYear; year++ {
		res, err := d.RunYear(ctx, strategy, year)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			d.log().Warn("year not started", "strategy", strategy, "year", year, "err", err)
			continue
		}
		results = append(results, res)
	}
	if len(results) == 0 {
		return nil, fmt.Errorf("no started years in %d..%d", startYear, endYear)
	}
	return results, nil
}

// Comparison holds both strategies' results over the same years.
type Comparison struct {
	Annual    []domain.YearlyResult
	Quarterly []domain.YearlyResult
}

// Compare runs both strategies over the year range, concurrently. Each
// strategy sees its own independent capital.
func (d *Driver) Compare(ctx context.Context, startYear, endYear int) (*Comparison, error) {
	var (
		wg         sync.WaitGroup
		cmp        Comparison
		annualErr  error
		quarterErr error
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		cmp.Annual, annualErr = d.RunStrategy(ctx, domain.StrategyAnnual, startYear, endYear)
	}()
	go func() {
		defer wg.Done()
		cmp.Quarterly, quarterErr = d.RunStrategy(ctx, domain.StrategyQuarterly, startYear, endYear)
	}()
	wg.Wait()

	if annualErr != nil {
		return nil, fmt.Errorf("annual strategy: %w", annualErr)
	}
	if quarterErr != nil {
		return nil, fmt.Errorf("quarterly strategy: %w", quarterErr)
	}
	return &cmp, nil
}

func (d *Driver) log() *slog.Logger {
	if d.Log != nil {
		return d.Log
	}
	return slog.Default()
}
