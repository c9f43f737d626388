// Package report renders backtest results as plain-text tables for the
// CLI.
package report

import (
	"fmt"
	"io"
	"strings"

	"leapsim/internal/backtest"
	"leapsim/internal/domain"
)

// Report pairs each strategy's yearly results with its summary metrics.
type Report struct {
	Symbol    string
	Annual    []domain.YearlyResult
	Quarterly []domain.YearlyResult

	AnnualMetrics    domain.Metrics
	QuarterlyMetrics domain.Metrics

	Verbose bool // include the per-trade log
}

// New builds a report from a comparison run.
func New(symbol string, cmp *backtest.Comparison, riskFree float64, verbose bool) *Report {
	return &Report{
		Symbol:           symbol,
		Annual:           cmp.Annual,
		Quarterly:        cmp.Quarterly,
		AnnualMetrics:    backtest.Summarize(cmp.Annual, riskFree),
		QuarterlyMetrics: backtest.Summarize(cmp.Quarterly, riskFree),
		Verbose:          verbose,
	}
}

// Write renders the full report.
func (r *Report) Write(w io.Writer) error {
	title := fmt.Sprintf("%s LEAPS backtest: annual buy-and-hold vs quarterly roll", r.Symbol)
	fmt.Fprintf(w, "%s\n%s\n\n", title, strings.Repeat("=", len(title)))

	if len(r.Annual) > 0 {
		r.writeStrategy(w, "Annual (hold next-January LEAP all year)", r.Annual, r.AnnualMetrics)
	}
	if len(r.Quarterly) > 0 {
		r.writeStrategy(w, "Quarterly (roll ~15-month LEAP each quarter)", r.Quarterly, r.QuarterlyMetrics)
	}
	if len(r.Annual) > 0 && len(r.Quarterly) > 0 {
		r.writeComparison(w)
	}
	return nil
}

func (r *Report) writeStrategy(w io.Writer, label string, results []domain.YearlyResult, m domain.Metrics) {
	fmt.Fprintf(w, "%s\n%s\n", label, strings.Repeat("-", len(label)))

	fmt.Fprintf(w, "%-6s %16s %16s %10s %12s %7s\n",
		"Year", "Start", "Final", "Return", "Commissions", "Cycles")
	for _, res := range results {
		executed := 0
		for _, t := range res.Trades {
			if !t.Skipped {
				executed++
			}
		}
		fmt.Fprintf(w, "%-6d %16s %16s %10s %12s %4d/%-2d\n",
			res.Year,
			FormatMoney(res.StartingCapital),
			FormatMoney(res.FinalCapital),
			FormatPct(res.ReturnPct),
			FormatMoney(res.Commissions),
			executed, len(res.Trades))
	}

	fmt.Fprintf(w, "\n")
	fmt.Fprintf(w, "  win rate     %s (%d of %d years)\n", FormatPct(m.WinRate), m.WinningYears, m.Years)
	fmt.Fprintf(w, "  avg return   %s (winners %s, losers %s)\n",
		FormatPct(m.AvgReturn), FormatPct(m.AvgWinner), FormatPct(m.AvgLoser))
	fmt.Fprintf(w, "  best/worst   %s / %s\n", FormatPct(m.BestYear), FormatPct(m.WorstYear))
	fmt.Fprintf(w, "  sharpe       %s\n", FormatRatio(m.Sharpe))
	fmt.Fprintf(w, "  sortino      %s\n", FormatRatio(m.Sortino))
	fmt.Fprintf(w, "  max drawdown %s\n", FormatPct(m.MaxDrawdown))
	fmt.Fprintf(w, "  commissions  %s\n\n", FormatMoney(m.Commissions))

	if r.Verbose {
		r.writeTrades(w, results)
	}
}

func (r *Report) writeTrades(w io.Writer, results []domain.YearlyResult) {
	fmt.Fprintf(w, "%-6s %-4s %-12s %-12s %8s %10s %10s %6s %10s %10s\n",
		"Year", "Per", "Entry", "Exit", "Strike", "Price", "Exit px", "Qty", "Split", "Return")
	for _, res := range results {
		for _, t := range res.Trades {
			if t.Skipped {
				fmt.Fprintf(w, "%-6d %-4s %-12s %-12s skipped: %s\n",
					t.Year, t.Period, t.EntryDate.Format("2006-01-02"), "-", t.SkipReason)
				continue
			}
			split := "-"
			if t.SplitRatio > 1 {
				split = fmt.Sprintf("%d:1", t.SplitRatio)
			}
			strike := 0.0
			entryPrice := 0.0
			if t.Contract != nil {
				strike = t.Contract.Strike
				entryPrice = t.Contract.EntryPrice
			}
			fmt.Fprintf(w, "%-6d %-4s %-12s %-12s %8.2f %10.2f %10.2f %6d %10s %10s\n",
				t.Year, t.Period,
				t.EntryDate.Format("2006-01-02"),
				t.ExitDate.Format("2006-01-02"),
				strike, entryPrice, t.ExitPrice,
				t.Position.Contracts, split,
				FormatPct(t.ReturnPct))
		}
	}
	fmt.Fprintf(w, "\n")
}

func (r *Report) writeComparison(w io.Writer) {
	fmt.Fprintf(w, "Head to head\n------------\n")
	fmt.Fprintf(w, "%-14s %12s %12s\n", "", "Annual", "Quarterly")
	rows := []struct {
		label            string
		annual, quarterl string
	}{
		{"avg return", FormatPct(r.AnnualMetrics.AvgReturn), FormatPct(r.QuarterlyMetrics.AvgReturn)},
		{"win rate", FormatPct(r.AnnualMetrics.WinRate), FormatPct(r.QuarterlyMetrics.WinRate)},
		{"sharpe", FormatRatio(r.AnnualMetrics.Sharpe), FormatRatio(r.QuarterlyMetrics.Sharpe)},
		{"sortino", FormatRatio(r.AnnualMetrics.Sortino), FormatRatio(r.QuarterlyMetrics.Sortino)},
		{"max drawdown", FormatPct(r.AnnualMetrics.MaxDrawdown), FormatPct(r.QuarterlyMetrics.MaxDrawdown)},
		{"commissions", FormatMoney(r.AnnualMetrics.Commissions), FormatMoney(r.QuarterlyMetrics.Commissions)},
	}
	for _, row := range rows {
		fmt.Fprintf(w, "%-14s %12s %12s\n", row.label, row.annual, row.quarterl)
	}

	winner := "annual"
	if r.QuarterlyMetrics.AvgReturn > r.AnnualMetrics.AvgReturn {
		winner = "quarterly"
	}
	fmt.Fprintf(w, "\nHigher average yearly return: %s\n", winner)
}
