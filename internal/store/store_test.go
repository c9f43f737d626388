package store

import (
	"context"
	"math"
	"path/filepath"
	"testing"
	"time"

	"leapsim/internal/domain"
)

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestSQLiteTradingDaysRoundtrip(t *testing.T) {
	ctx := context.Background()
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "cache.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer s.Close()

	// Miss before any save.
	got, err := s.TradingDays(ctx, "GOOG", 2022)
	if err != nil {
		t.Fatalf("TradingDays: %v", err)
	}
	if got != nil {
		t.Fatalf("expected cache miss, got %d days", len(got))
	}

	days := []time.Time{day("2022-01-03"), day("2022-01-04"), day("2022-01-05")}
	if err := s.SaveTradingDays(ctx, "GOOG", 2022, days); err != nil {
		t.Fatalf("SaveTradingDays: %v", err)
	}

	got, err = s.TradingDays(ctx, "GOOG", 2022)
	if err != nil {
		t.Fatalf("TradingDays after save: %v", err)
	}
	if len(got) != len(days) {
		t.Fatalf("got %d days, want %d", len(got), len(days))
	}
	for i := range days {
		if !got[i].Equal(days[i]) {
			t.Errorf("day[%d] = %v, want %v", i, got[i], days[i])
		}
	}

	// Re-saving a year replaces rather than appends.
	if err := s.SaveTradingDays(ctx, "GOOG", 2022, days[:2]); err != nil {
		t.Fatalf("re-save: %v", err)
	}
	got, err = s.TradingDays(ctx, "GOOG", 2022)
	if err != nil {
		t.Fatalf("TradingDays after re-save: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("after re-save got %d days, want 2", len(got))
	}

	// Other symbols and years stay independent.
	got, err = s.TradingDays(ctx, "AAPL", 2022)
	if err != nil {
		t.Fatalf("TradingDays other symbol: %v", err)
	}
	if got != nil {
		t.Fatalf("unexpected cache hit for other symbol")
	}
}

func TestParquetJournalRoundtrip(t *testing.T) {
	ctx := context.Background()
	j := NewParquetJournal(t.TempDir())

	executed := domain.TradeRecord{
		Strategy:       domain.StrategyQuarterly,
		Year:           2022,
		Period:         "Q2",
		EntryDate:      day("2022-04-01"),
		ExitDate:       day("2022-06-30"),
		CapitalAtEntry: 100000,
		Contract: &domain.OptionContract{
			Symbol:            "GOOG",
			Strike:            2280,
			Expiration:        day("2023-06-16"),
			Right:             domain.RightCall,
			UnderlyingAtEntry: 2300.5,
			EntryPrice:        31250,
			MonthsToExpiry:    14.5,
			EntryGreeks: &domain.Greeks{
				Delta: 0.62, Gamma: 0.0004, Theta: -0.35, Vega: 9.1, IV: 0.33,
			},
		},
		Position:   domain.Position{Contracts: 3, EntryCost: 93751.05, Leftover: 6248.95},
		SplitRatio: 20,
		ExitStrike: 114.0,
		ExitPrice:  1620,
		Proceeds:   97200,
		PnL:        3448.95,
		ReturnPct:  0.0344895,
	}
	skipped := domain.TradeRecord{
		Strategy:       domain.StrategyQuarterly,
		Year:           2022,
		Period:         "Q3",
		EntryDate:      day("2022-07-01"),
		CapitalAtEntry: 103448.95,
		Position:       domain.Position{},
		SplitRatio:     1,
		Skipped:        true,
		SkipReason:     "no entry quote",
	}

	result := domain.YearlyResult{
		Strategy:        domain.StrategyQuarterly,
		Year:            2022,
		StartingCapital: 100000,
		FinalCapital:    103448.95,
		Trades:          []domain.TradeRecord{executed, skipped},
	}
	if err := j.WriteYear(ctx, result); err != nil {
		t.Fatalf("WriteYear: %v", err)
	}

	got, err := j.ReadYear(ctx, domain.StrategyQuarterly, 2022)
	if err != nil {
		t.Fatalf("ReadYear: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d records, want 2", len(got))
	}

	back := got[0]
	if back.Period != "Q2" || back.Year != 2022 {
		t.Fatalf("record identity mismatch: %+v", back)
	}
	if back.Contract == nil {
		t.Fatal("executed record lost its contract")
	}
	if back.Contract.Symbol != "GOOG" || back.Contract.Strike != 2280 {
		t.Errorf("contract = %+v", back.Contract)
	}
	if !back.Contract.Expiration.Equal(day("2023-06-16")) {
		t.Errorf("expiration = %v", back.Contract.Expiration)
	}
	if back.Contract.EntryGreeks == nil || back.Contract.EntryGreeks.Delta != 0.62 {
		t.Errorf("greeks = %+v", back.Contract.EntryGreeks)
	}
	if back.SplitRatio != 20 || back.ExitStrike != 114.0 {
		t.Errorf("split fields = ratio %d strike %v", back.SplitRatio, back.ExitStrike)
	}
	if math.Abs(back.Proceeds-97200) > 1e-9 || math.Abs(back.PnL-3448.95) > 1e-9 {
		t.Errorf("proceeds/pnl = %v/%v", back.Proceeds, back.PnL)
	}

	sk := got[1]
	if !sk.Skipped || sk.SkipReason != "no entry quote" {
		t.Errorf("skipped record = %+v", sk)
	}
	if sk.Contract != nil {
		t.Errorf("skipped record grew a contract: %+v", sk.Contract)
	}
	if sk.ExitDate != (time.Time{}) {
		t.Errorf("skipped exit date = %v", sk.ExitDate)
	}
	if got := sk.CapitalAfter(); got != sk.CapitalAtEntry {
		t.Errorf("CapitalAfter for skipped = %v, want %v", got, sk.CapitalAtEntry)
	}
}

func TestParquetJournalMissingYear(t *testing.T) {
	j := NewParquetJournal(t.TempDir())
	got, err := j.ReadYear(context.Background(), domain.StrategyAnnual, 1999)
	if err != nil {
		t.Fatalf("ReadYear on missing file: %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil for missing year, got %d records", len(got))
	}
}
