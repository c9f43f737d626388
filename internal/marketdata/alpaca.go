package marketdata

import (
	"context"
	"fmt"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/alpaca"
	alpacamd "github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"
)

// Compile-time interface checks.
var _ DayLister = (*AlpacaCalendar)(nil)
var _ SpotSource = (*AlpacaData)(nil)

// AlpacaCalendar lists US trading days via the Alpaca trading calendar
// API.
type AlpacaCalendar struct {
	client *alpaca.Client
}

// NewAlpacaCalendar creates a calendar source with the given credentials.
// baseURL may be empty for the default live endpoint.
func NewAlpacaCalendar(apiKey, apiSecret, baseURL string) *AlpacaCalendar {
	return &AlpacaCalendar{
		client: alpaca.NewClient(alpaca.ClientOpts{
			APIKey:    apiKey,
			APISecret: apiSecret,
			BaseURL:   baseURL,
		}),
	}
}

// ListTradingDays returns every trading day of the year in order.
func (a *AlpacaCalendar) ListTradingDays(_ context.Context, year int) ([]time.Time, error) {
	start := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(year, time.December, 31, 0, 0, 0, 0, time.UTC)

	days, err := a.client.GetCalendar(alpaca.GetCalendarRequest{
		Start: start,
		End:   end,
	})
	if err != nil {
		return nil, fmt.Errorf("GetCalendar %d: %w", year, err)
	}
	if len(days) == 0 {
		return nil, fmt.Errorf("%w: empty calendar for %d", ErrNoData, year)
	}

	out := make([]time.Time, 0, len(days))
	for _, d := range days {
		t, err := time.Parse("2006-01-02", d.Date)
		if err != nil {
			return nil, fmt.Errorf("calendar date %q: %w", d.Date, err)
		}
		out = append(out, t)
	}
	return out, nil
}

// AlpacaData quotes the underlying via the Alpaca market-data API.
type AlpacaData struct {
	client *alpacamd.Client
}

// NewAlpacaData creates a spot source with the given credentials. dataURL
// may be empty for the default data endpoint.
func NewAlpacaData(apiKey, apiSecret, dataURL string) *AlpacaData {
	opts := alpacamd.ClientOpts{
		APIKey:    apiKey,
		APISecret: apiSecret,
	}
	if dataURL != "" {
		opts.BaseURL = dataURL
	}
	return &AlpacaData{client: alpacamd.NewClient(opts)}
}

// OpenPrice returns the session open of the symbol on the given trading
// day.
func (a *AlpacaData) OpenPrice(_ context.Context, symbol string, day time.Time) (float64, error) {
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, 1)

	bars, err := a.client.GetBars(symbol, alpacamd.GetBarsRequest{
		TimeFrame: alpacamd.OneDay,
		Start:     start,
		End:       end,
	})
	if err != nil {
		return 0, fmt.Errorf("GetBars %s %s: %w", symbol, day.Format("2006-01-02"), err)
	}
	if len(bars) == 0 {
		return 0, fmt.Errorf("%w: no bar for %s on %s", ErrNoData, symbol, day.Format("2006-01-02"))
	}
	return bars[0].Open, nil
}
