package backtest

import (
	"math"
	"testing"
)

func TestSizeIdentity(t *testing.T) {
	cases := []struct {
		name    string
		capital float64
		price   float64
		params  SizeParams
	}{
		{"full utilization", 100000, 16.05, SizeParams{Utilization: 1.0, Commission: 0.35, MaxContracts: 999999}},
		{"partial utilization", 100000, 16.05, SizeParams{Utilization: 0.95, Commission: 0.35, MaxContracts: 999999}},
		{"capped", 100000, 16.05, SizeParams{Utilization: 0.95, Commission: 0.35, MaxContracts: 500}},
		{"expensive contract", 50000, 31250, SizeParams{Utilization: 1.0, Commission: 0.35, MaxContracts: 999999}},
		{"tiny capital", 10, 16.05, SizeParams{Utilization: 1.0, Commission: 0.35, MaxContracts: 999999}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			pos := Size(tc.capital, tc.price, tc.params)
			if pos.Leftover < 0 {
				t.Errorf("leftover = %v, want >= 0", pos.Leftover)
			}
			if pos.Contracts > tc.params.MaxContracts {
				t.Errorf("contracts = %d exceeds cap %d", pos.Contracts, tc.params.MaxContracts)
			}
			if got := pos.EntryCost + pos.Leftover; math.Abs(got-tc.capital) > 1e-9 {
				t.Errorf("cost + leftover = %v, want %v", got, tc.capital)
			}
			wantCost := float64(pos.Contracts) * (tc.price + tc.params.Commission)
			if math.Abs(pos.EntryCost-wantCost) > 1e-9 {
				t.Errorf("cost = %v, want %v", pos.EntryCost, wantCost)
			}
		})
	}
}

func TestSizeArithmetic(t *testing.T) {
	pos := Size(100000, 16.05, SizeParams{Utilization: 0.95, Commission: 0.35, MaxContracts: 999999})
	// floor(95000 / 16.40) = 5792
	if pos.Contracts != 5792 {
		t.Errorf("contracts = %d, want 5792", pos.Contracts)
	}
	if math.Abs(pos.EntryCost-5792*16.40) > 1e-6 {
		t.Errorf("cost = %v, want %v", pos.EntryCost, 5792*16.40)
	}
}

func TestSizeCapClamp(t *testing.T) {
	pos := Size(100000, 16.05, SizeParams{Utilization: 0.95, Commission: 0.35, MaxContracts: 500})
	if pos.Contracts != 500 {
		t.Errorf("contracts = %d, want the cap 500", pos.Contracts)
	}
}

func TestSizeNoTrade(t *testing.T) {
	cases := []struct {
		name    string
		capital float64
		price   float64
	}{
		{"zero price", 100000, 0},
		{"negative price", 100000, -1},
		{"zero capital", 0, 16.05},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			pos := Size(tc.capital, tc.price, SizeParams{Utilization: 1.0, Commission: 0.35, MaxContracts: 999999})
			if pos.Contracts != 0 || pos.EntryCost != 0 {
				t.Errorf("pos = %+v, want no trade", pos)
			}
			if pos.Leftover != tc.capital {
				t.Errorf("leftover = %v, want untouched capital %v", pos.Leftover, tc.capital)
			}
		})
	}
}
