package backtest

import (
	"testing"
	"time"

	"leapsim/internal/domain"
)

var googSplit = domain.SplitEvent{
	Ratio:         20,
	EffectiveDate: time.Date(2022, 7, 15, 0, 0, 0, 0, time.UTC),
}

func TestCombinedSplitRatio(t *testing.T) {
	day := func(s string) time.Time {
		d, _ := time.Parse("2006-01-02", s)
		return d
	}

	cases := []struct {
		name   string
		splits []domain.SplitEvent
		entry  string
		exit   string
		want   int
	}{
		{"split inside window", []domain.SplitEvent{googSplit}, "2022-07-01", "2022-09-30", 20},
		{"no split configured", nil, "2022-07-01", "2022-09-30", 1},
		{"split before entry", []domain.SplitEvent{googSplit}, "2022-10-03", "2022-12-30", 1},
		{"split after exit", []domain.SplitEvent{googSplit}, "2022-04-01", "2022-06-30", 1},
		{"split on entry date excluded", []domain.SplitEvent{googSplit}, "2022-07-15", "2022-09-30", 1},
		{"split on exit date excluded", []domain.SplitEvent{googSplit}, "2022-07-01", "2022-07-15", 1},
		{"two splits compound", []domain.SplitEvent{
			googSplit,
			{Ratio: 2, EffectiveDate: day("2022-08-01")},
		}, "2022-07-01", "2022-09-30", 40},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := CombinedSplitRatio(tc.splits, day(tc.entry), day(tc.exit))
			if got != tc.want {
				t.Errorf("ratio = %d, want %d", got, tc.want)
			}
		})
	}
}

func TestAdjustedStrike(t *testing.T) {
	cases := []struct {
		strike float64
		ratio  int
		want   float64
	}{
		{2280, 20, 114},
		{2280, 1, 2280},
		{2275, 20, 113.75},
		{100, 3, 33.333},
	}
	for _, tc := range cases {
		if got := AdjustedStrike(tc.strike, tc.ratio); got != tc.want {
			t.Errorf("AdjustedStrike(%v, %d) = %v, want %v", tc.strike, tc.ratio, got, tc.want)
		}
	}
}
