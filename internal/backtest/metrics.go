package backtest

import (
	"math"

	"leapsim/internal/domain"
)

// dispersionEps is the smallest standard deviation treated as nonzero.
// Identical returns leave round-off residue in the order of 1e-17, which
// must not slip past the zero-dispersion guard and blow up the ratios.
const dispersionEps = 1e-12

// Summarize aggregates a strategy's yearly results. riskFree is the
// annual risk-free rate as a fraction. Sharpe and Sortino are NaN when
// their denominators are undefined.
func Summarize(results []domain.YearlyResult, riskFree float64) domain.Metrics {
	m := domain.Metrics{
		Years:     len(results),
		BestYear:  math.Inf(-1),
		WorstYear: math.Inf(1),
		Sharpe:    math.NaN(),
		Sortino:   math.NaN(),
	}
	if len(results) == 0 {
		m.BestYear = 0
		m.WorstYear = 0
		return m
	}

	returns := make([]float64, 0, len(results))
	var sumWin, sumLoss float64
	for _, r := range results {
		returns = append(returns, r.ReturnPct)
		m.Commissions += r.Commissions
		if r.ReturnPct > m.BestYear {
			m.BestYear = r.ReturnPct
		}
		if r.ReturnPct < m.WorstYear {
			m.WorstYear = r.ReturnPct
		}
		switch {
		case r.ReturnPct > 0:
			m.WinningYears++
			sumWin += r.ReturnPct
		case r.ReturnPct < 0:
			m.LosingYears++
			sumLoss += r.ReturnPct
		}
	}

	m.WinRate = float64(m.WinningYears) / float64(len(results))
	m.AvgReturn = mean(returns)
	if m.WinningYears > 0 {
		m.AvgWinner = sumWin / float64(m.WinningYears)
	}
	if m.LosingYears > 0 {
		m.AvgLoser = sumLoss / float64(m.LosingYears)
	}

	if sd := stdev(returns); sd > dispersionEps {
		m.Sharpe = (m.AvgReturn - riskFree) / sd
	}
	var downside []float64
	for _, r := range returns {
		if r < 0 {
			downside = append(downside, r)
		}
	}
	if sd := stdev(downside); sd > dispersionEps {
		m.Sortino = (m.AvgReturn - riskFree) / sd
	}

	m.MaxDrawdown = MaxDrawdown(equityCurve(results))
	return m
}

// equityCurve stitches the per-cycle returns of consecutive years into
// one compounded series starting at 1. Skipped cycles contribute a flat
// point.
func equityCurve(results []domain.YearlyResult) []float64 {
	curve := []float64{1}
	equity := 1.0
	for _, year := range results {
		if len(year.Trades) == 0 {
			equity *= 1 + year.ReturnPct
			curve = append(curve, equity)
			continue
		}
		for _, t := range year.Trades {
			if !t.Skipped && t.CapitalAtEntry > 0 {
				equity *= 1 + t.ReturnPct
			}
			curve = append(curve, equity)
		}
	}
	return curve
}

// MaxDrawdown returns the largest peak-to-trough decline of the series as
// a fraction in [0, 1). A non-decreasing series has zero drawdown.
func MaxDrawdown(series []float64) float64 {
	var maxDD float64
	peak := math.Inf(-1)
	for _, v := range series {
		if v > peak {
			peak = v
		}
		if peak > 0 {
			if dd := (peak - v) / peak; dd > maxDD {
				maxDD = dd
			}
		}
	}
	return maxDD
}

func mean(vals []float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	var sum float64
	for _, v := range vals {
		sum += v
	}
	return sum / float64(len(vals))
}

// stdev is the population standard deviation; zero for fewer than two
// samples.
func stdev(vals []float64) float64 {
	if len(vals) < 2 {
		return 0
	}
	mu := mean(vals)
	var ss float64
	for _, v := range vals {
		d := v - mu
		ss += d * d
	}
	return math.Sqrt(ss / float64(len(vals)))
}
