package marketdata

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"leapsim/internal/store"
)

// Calendar answers trading-day questions for one symbol's market. Lookups
// go memory, then the persistent cache, then the source; both caches are
// filled on the way back.
type Calendar struct {
	symbol string
	source DayLister
	cache  store.CalendarStore
	log    *slog.Logger

	mu    sync.RWMutex
	years map[int][]time.Time
}

// NewCalendar creates a calendar for the symbol. cache may be nil to skip
// persistence.
func NewCalendar(symbol string, source DayLister, cache store.CalendarStore) *Calendar {
	return &Calendar{
		symbol: symbol,
		source: source,
		cache:  cache,
		log:    slog.Default().With("component", "calendar"),
		years:  make(map[int][]time.Time),
	}
}

// TradingDays returns all trading days of the year in order.
func (c *Calendar) TradingDays(ctx context.Context, year int) ([]time.Time, error) {
	c.mu.RLock()
	days, ok := c.years[year]
	c.mu.RUnlock()
	if ok {
		return days, nil
	}

	if c.cache != nil {
		cached, err := c.cache.TradingDays(ctx, c.symbol, year)
		if err != nil {
			c.log.Warn("calendar cache read failed", "year", year, "err", err)
		} else if cached != nil {
			c.memoize(year, cached)
			return cached, nil
		}
	}

	days, err := c.source.ListTradingDays(ctx, year)
	if err != nil {
		return nil, err
	}
	if c.cache != nil {
		if err := c.cache.SaveTradingDays(ctx, c.symbol, year, days); err != nil {
			c.log.Warn("calendar cache write failed", "year", year, "err", err)
		}
	}
	c.memoize(year, days)
	return days, nil
}

func (c *Calendar) memoize(year int, days []time.Time) {
	c.mu.Lock()
	c.years[year] = days
	c.mu.Unlock()
}

// FirstTradingDay returns the first trading day of the year.
func (c *Calendar) FirstTradingDay(ctx context.Context, year int) (time.Time, error) {
	days, err := c.TradingDays(ctx, year)
	if err != nil {
		return time.Time{}, err
	}
	if len(days) == 0 {
		return time.Time{}, fmt.Errorf("no trading days in %d", year)
	}
	return days[0], nil
}

// LastTradingDay returns the last trading day of the year.
func (c *Calendar) LastTradingDay(ctx context.Context, year int) (time.Time, error) {
	days, err := c.TradingDays(ctx, year)
	if err != nil {
		return time.Time{}, err
	}
	if len(days) == 0 {
		return time.Time{}, fmt.Errorf("no trading days in %d", year)
	}
	return days[len(days)-1], nil
}

// QuarterBounds returns the first and last trading day of quarter q
// (1..4) of the year.
func (c *Calendar) QuarterBounds(ctx context.Context, year, q int) (first, last time.Time, err error) {
	if q < 1 || q > 4 {
		return time.Time{}, time.Time{}, fmt.Errorf("quarter out of range: %d", q)
	}
	days, err := c.TradingDays(ctx, year)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}

	startMonth := time.Month(3*(q-1) + 1)
	endMonth := startMonth + 2
	for _, d := range days {
		if d.Month() < startMonth || d.Month() > endMonth {
			continue
		}
		if first.IsZero() {
			first = d
		}
		last = d
	}
	if first.IsZero() {
		return time.Time{}, time.Time{}, fmt.Errorf("no trading days in %d Q%d", year, q)
	}
	return first, last, nil
}

// MostRecentTradingDay returns the latest trading day on or before asOf.
func (c *Calendar) MostRecentTradingDay(ctx context.Context, asOf time.Time) (time.Time, error) {
	for year := asOf.Year(); year >= asOf.Year()-1; year-- {
		days, err := c.TradingDays(ctx, year)
		if err != nil {
			return time.Time{}, err
		}
		for i := len(days) - 1; i >= 0; i-- {
			if !days[i].After(asOf) {
				return days[i], nil
			}
		}
	}
	return time.Time{}, fmt.Errorf("no trading day on or before %s", asOf.Format("2006-01-02"))
}
