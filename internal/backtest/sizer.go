// Package backtest holds the compounding engine: position sizing, split
// adjustment, the per-cycle state machine, the yearly driver, and the
// performance metrics.
package backtest

import (
	"math"

	"leapsim/internal/domain"
)

// SizeParams carries the sizing knobs for a run. Utilization is the
// fraction of capital put at risk (0, 1]; MaxContracts caps the position
// regardless of capital.
type SizeParams struct {
	Utilization  float64
	Commission   float64 // per contract, charged at entry
	MaxContracts int
}

// Size computes the position for the given capital and per-contract entry
// price. A non-positive price yields a zero position with all capital as
// leftover.
//
// Invariant: EntryCost + Leftover == capital, and Leftover >= 0.
func Size(capital, price float64, p SizeParams) domain.Position {
	if price <= 0 || capital <= 0 {
		return domain.Position{Contracts: 0, EntryCost: 0, Leftover: capital}
	}

	usable := capital * p.Utilization
	perContract := price + p.Commission
	n := int(math.Floor(usable / perContract))
	if n > p.MaxContracts {
		n = p.MaxContracts
	}
	if n < 0 {
		n = 0
	}

	cost := float64(n) * perContract
	return domain.Position{
		Contracts: n,
		EntryCost: cost,
		Leftover:  capital - cost,
	}
}
