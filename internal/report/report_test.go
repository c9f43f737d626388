package report

import (
	"math"
	"strings"
	"testing"
	"time"

	"leapsim/internal/backtest"
	"leapsim/internal/domain"
)

func TestFormatInt(t *testing.T) {
	cases := []struct {
		in   int
		want string
	}{
		{0, "0"},
		{999, "999"},
		{1000, "1,000"},
		{100000, "100,000"},
		{90288, "90,288"},
		{-12345, "-12,345"},
	}
	for _, tc := range cases {
		if got := FormatInt(tc.in); got != tc.want {
			t.Errorf("FormatInt(%d) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestFormatMoney(t *testing.T) {
	cases := []struct {
		in   float64
		want string
	}{
		{100000, "$100,000.00"},
		{90288.5, "$90,288.50"},
		{-1.05, "-$1.05"},
		{0.999, "$1.00"},
	}
	for _, tc := range cases {
		if got := FormatMoney(tc.in); got != tc.want {
			t.Errorf("FormatMoney(%v) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestFormatPctAndRatio(t *testing.T) {
	if got := FormatPct(0.1234); got != "+12.34%" {
		t.Errorf("FormatPct = %q", got)
	}
	if got := FormatPct(math.NaN()); got != "n/a" {
		t.Errorf("FormatPct(NaN) = %q", got)
	}
	if got := FormatRatio(math.NaN()); got != "n/a" {
		t.Errorf("FormatRatio(NaN) = %q", got)
	}
}

func TestReportWrite(t *testing.T) {
	entry := time.Date(2022, 1, 3, 0, 0, 0, 0, time.UTC)
	exit := time.Date(2022, 12, 30, 0, 0, 0, 0, time.UTC)
	cmp := &backtest.Comparison{
		Annual: []domain.YearlyResult{{
			Strategy:        domain.StrategyAnnual,
			Year:            2022,
			StartingCapital: 100000,
			FinalCapital:    120000,
			ReturnPct:       0.20,
			Trades: []domain.TradeRecord{{
				Strategy:       domain.StrategyAnnual,
				Year:           2022,
				Period:         "FY",
				EntryDate:      entry,
				ExitDate:       exit,
				CapitalAtEntry: 100000,
				Contract: &domain.OptionContract{
					Symbol: "GOOG", Strike: 2280, EntryPrice: 31250,
					Right: domain.RightCall,
				},
				Position:   domain.Position{Contracts: 3, EntryCost: 93751.05, Leftover: 6248.95},
				SplitRatio: 20,
				ExitStrike: 114,
				ExitPrice:  1895,
				Proceeds:   113700,
				PnL:        19948.95,
				ReturnPct:  0.1994895,
			}},
		}},
		Quarterly: []domain.YearlyResult{{
			Strategy:        domain.StrategyQuarterly,
			Year:            2022,
			StartingCapital: 100000,
			FinalCapital:    100000,
			Trades: []domain.TradeRecord{{
				Strategy: domain.StrategyQuarterly, Year: 2022, Period: "Q1",
				EntryDate: entry, CapitalAtEntry: 100000,
				Skipped: true, SkipReason: "no entry contract",
			}},
		}},
	}

	var sb strings.Builder
	rep := New("GOOG", cmp, 0.02, true)
	if err := rep.Write(&sb); err != nil {
		t.Fatalf("Write: %v", err)
	}
	out := sb.String()

	for _, want := range []string{
		"GOOG LEAPS backtest",
		"$100,000.00",
		"$120,000.00",
		"+20.00%",
		"20:1",
		"skipped: no entry contract",
		"Head to head",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("report missing %q\n%s", want, out)
		}
	}
}
