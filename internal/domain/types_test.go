package domain

import (
	"testing"
)

func TestStrategyCyclesPerYear(t *testing.T) {
	if got := StrategyAnnual.CyclesPerYear(); got != 1 {
		t.Errorf("StrategyAnnual.CyclesPerYear() = %d, want 1", got)
	}
	if got := StrategyQuarterly.CyclesPerYear(); got != 4 {
		t.Errorf("StrategyQuarterly.CyclesPerYear() = %d, want 4", got)
	}
}

func TestEnumValues(t *testing.T) {
	if StrategyAnnual != "annual" {
		t.Errorf("StrategyAnnual = %q, want %q", StrategyAnnual, "annual")
	}
	if StrategyQuarterly != "quarterly" {
		t.Errorf("StrategyQuarterly = %q, want %q", StrategyQuarterly, "quarterly")
	}
	if RightCall != "C" {
		t.Errorf("RightCall = %q, want %q", RightCall, "C")
	}
	if StateSkipped != "skipped" {
		t.Errorf("StateSkipped = %q, want %q", StateSkipped, "skipped")
	}
	if StateDone != "done" {
		t.Errorf("StateDone = %q, want %q", StateDone, "done")
	}
}

func TestCapitalAfter(t *testing.T) {
	executed := TradeRecord{
		CapitalAtEntry: 100000,
		Position:       Position{Contracts: 10, EntryCost: 99000, Leftover: 1000},
		Proceeds:       105000,
	}
	if got := executed.CapitalAfter(); got != 106000 {
		t.Errorf("CapitalAfter() = %f, want 106000 (proceeds + leftover)", got)
	}

	skipped := TradeRecord{
		CapitalAtEntry: 100000,
		Skipped:        true,
		SkipReason:     "no matching contract",
	}
	if got := skipped.CapitalAfter(); got != 100000 {
		t.Errorf("skipped CapitalAfter() = %f, want capital unchanged", got)
	}
}

func TestTradeRecordZeroValue(t *testing.T) {
	rec := TradeRecord{}
	if rec.Contract != nil {
		t.Error("expected nil Contract for zero-value TradeRecord")
	}
	if rec.Skipped || rec.SkipReason != "" {
		t.Error("expected zero-value TradeRecord to not be skipped")
	}
	if !rec.EntryDate.IsZero() || !rec.ExitDate.IsZero() {
		t.Error("expected zero dates for zero-value TradeRecord")
	}
}
