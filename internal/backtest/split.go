package backtest

import (
	"math"
	"time"

	"leapsim/internal/domain"
)

// CombinedSplitRatio returns the product of split ratios whose effective
// date falls strictly between entry and exit. A split on the entry or
// exit date itself does not affect the held contract. Returns 1 when no
// split applies.
func CombinedSplitRatio(splits []domain.SplitEvent, entry, exit time.Time) int {
	ratio := 1
	for _, s := range splits {
		if s.Ratio <= 1 {
			continue
		}
		if s.EffectiveDate.After(entry) && s.EffectiveDate.Before(exit) {
			ratio *= s.Ratio
		}
	}
	return ratio
}

// AdjustedStrike returns the post-split strike for the exit lookup,
// rounded to the vendor's millidollar quote granularity.
func AdjustedStrike(strike float64, ratio int) float64 {
	if ratio <= 1 {
		return strike
	}
	return math.Round(strike/float64(ratio)*1000) / 1000
}
