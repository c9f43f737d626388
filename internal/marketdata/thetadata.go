package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"time"

	"leapsim/internal/domain"
	"leapsim/internal/util"
)

// Compile-time interface check.
var _ OptionResolver = (*ThetaDataClient)(nil)

// Options contracts cover 100 shares; vendor quotes are per share.
const contractMultiplier = 100

// Entry quotes are taken at 10:00 AM ET, expressed as ms since midnight.
const entryQuoteMS = 36_000_000

// Tick column offsets in ThetaData v2 responses.
const (
	eodClose = 5
	eodBid   = 10
	eodAsk   = 14

	quoteBid = 3
	quoteAsk = 7

	greekDelta = 15
	greekTheta = 16
	greekVega  = 17
	greekGamma = 21
	greekIV    = 33
)

// ThetaDataClient resolves LEAPS contracts against a local ThetaData
// terminal. All calls go through the shared rate limiter and retry with
// exponential backoff.
type ThetaDataClient struct {
	baseURL     string
	http        *http.Client
	limiter     *util.RateLimiter
	maxAttempts int
	baseDelay   time.Duration
	log         *slog.Logger
}

// NewThetaDataClient creates a client for the terminal at baseURL
// (typically http://127.0.0.1:25510).
func NewThetaDataClient(baseURL string, perMinute, maxAttempts int, baseDelay time.Duration) *ThetaDataClient {
	return &ThetaDataClient{
		baseURL:     baseURL,
		http:        &http.Client{Timeout: 60 * time.Second},
		limiter:     util.NewRateLimiter(perMinute),
		maxAttempts: maxAttempts,
		baseDelay:   baseDelay,
		log:         slog.Default().With("source", "thetadata"),
	}
}

// ---------------------------------------------------------------------------
// Entry resolution
// ---------------------------------------------------------------------------

// ResolveEntry picks the ITM call for the cycle. Candidate expirations are
// tried in preference order; the first one with a complete 10 AM entry
// quote wins. Greeks are attached best-effort and never fail the entry.
func (c *ThetaDataClient) ResolveEntry(ctx context.Context, req EntryRequest) (*domain.OptionContract, error) {
	if req.Spot <= 0 {
		return nil, fmt.Errorf("%w: non-positive underlying price %.2f", ErrNoData, req.Spot)
	}

	expirations, err := c.listExpirations(ctx, req.Symbol)
	if err != nil {
		return nil, err
	}

	candidates := candidateExpirations(expirations, req)
	if len(candidates) == 0 {
		return nil, fmt.Errorf("%w for %s on %s", ErrNoExpirations, req.Symbol, req.EntryDate.Format("2006-01-02"))
	}

	var lastErr error = ErrNoData
	for _, exp := range candidates {
		contract, err := c.resolveAtExpiration(ctx, req, exp)
		if err != nil {
			c.log.Debug("expiration unusable, trying next",
				"symbol", req.Symbol, "expiration", exp.Format("2006-01-02"), "err", err)
			lastErr = err
			continue
		}
		return contract, nil
	}
	return nil, lastErr
}

// candidateExpirations orders the listed expirations by preference for the
// strategy. Annual wants January of the following year; quarterly wants at
// least a year out, closest to the target horizon first.
func candidateExpirations(expirations []time.Time, req EntryRequest) []time.Time {
	if req.Strategy == domain.StrategyAnnual {
		targetYear := req.EntryDate.Year() + 1
		var out []time.Time
		for _, exp := range expirations {
			if exp.Year() == targetYear && exp.Month() == time.January {
				out = append(out, exp)
			}
		}
		return out
	}

	minExp := req.EntryDate.AddDate(1, 0, 0)
	target := req.EntryDate.AddDate(0, req.TargetMonths, 0)
	var out []time.Time
	for _, exp := range expirations {
		if exp.Before(minExp) {
			continue
		}
		out = append(out, exp)
	}
	sort.SliceStable(out, func(i, j int) bool {
		di := absDuration(out[i].Sub(target))
		dj := absDuration(out[j].Sub(target))
		return di < dj
	})
	return out
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}

// resolveAtExpiration selects the strike and prices the entry for one
// candidate expiration. Errors mean the expiration has no complete data.
func (c *ThetaDataClient) resolveAtExpiration(ctx context.Context, req EntryRequest, exp time.Time) (*domain.OptionContract, error) {
	quotes, err := c.bulkEntryQuotes(ctx, req.Symbol, exp, req.EntryDate)
	if err != nil {
		// The 10 AM snapshot is not always captured for older dates;
		// fall back to the entry day's EOD quote.
		quotes, err = c.bulkEODQuotes(ctx, req.Symbol, exp, req.EntryDate)
		if err != nil {
			return nil, err
		}
	}

	strike, price, ok := selectITMCall(quotes, req.Spot, req.Moneyness)
	if !ok {
		return nil, fmt.Errorf("%w: no priced ITM call at %s", ErrNoData, exp.Format("2006-01-02"))
	}

	contract := &domain.OptionContract{
		Symbol:            req.Symbol,
		Strike:            strike,
		Expiration:        exp,
		Right:             domain.RightCall,
		UnderlyingAtEntry: req.Spot,
		EntryPrice:        price * contractMultiplier,
		MonthsToExpiry:    exp.Sub(req.EntryDate).Hours() / 24 / 30.44,
	}

	if greeks, err := c.entryGreeks(ctx, req.Symbol, exp, strike, req.EntryDate); err != nil {
		c.log.Debug("greeks unavailable", "symbol", req.Symbol, "strike", strike, "err", err)
	} else {
		contract.EntryGreeks = greeks
	}

	return contract, nil
}

// strikeQuote is one strike's entry pricing from a bulk quote response.
type strikeQuote struct {
	strike float64 // dollars
	bid    float64 // per share
	ask    float64 // per share
}

// selectITMCall picks the in-the-money strike closest to spot, preferring
// the lower strike on a tie, and returns its per-share entry price. The
// ask is used when positive, otherwise the bid.
func selectITMCall(quotes []strikeQuote, spot, moneyness float64) (strike, price float64, ok bool) {
	bound := spot * moneyness
	bestDist := math.MaxFloat64
	for _, q := range quotes {
		if q.strike > bound {
			continue
		}
		p := q.ask
		if p <= 0 {
			p = q.bid
		}
		if p <= 0 {
			continue
		}
		dist := math.Abs(spot - q.strike)
		if dist < bestDist || (dist == bestDist && q.strike < strike) {
			bestDist = dist
			strike = q.strike
			price = p
			ok = true
		}
	}
	return strike, price, ok
}

// ---------------------------------------------------------------------------
// Exit pricing
// ---------------------------------------------------------------------------

// ExitQuote returns the per-contract price at the close of the exit date.
// The EOD close is used, falling back to the bid; zero is a valid price
// for a contract that expired worthless.
func (c *ThetaDataClient) ExitQuote(ctx context.Context, req ExitRequest) (float64, error) {
	day := dateInt(req.ExitDate)
	params := url.Values{
		"root":       {req.Symbol},
		"exp":        {strconv.Itoa(dateInt(req.Expiration))},
		"strike":     {strconv.Itoa(strikeMilli(req.Strike))},
		"right":      {string(req.Right)},
		"start_date": {strconv.Itoa(day)},
		"end_date":   {strconv.Itoa(day)},
	}

	var resp histResponse
	if err := c.get(ctx, "/v2/hist/option/eod", params, &resp); err != nil {
		return 0, err
	}
	if len(resp.Response) == 0 {
		return 0, fmt.Errorf("%w: no EOD row for exit %s", ErrNoData, req.ExitDate.Format("2006-01-02"))
	}

	tick := resp.Response[len(resp.Response)-1]
	if len(tick) <= eodBid {
		return 0, fmt.Errorf("%w: short EOD tick", ErrNoData)
	}
	price := tick[eodClose]
	if price <= 0 {
		price = tick[eodBid]
	}
	if price < 0 {
		price = 0
	}
	return price * contractMultiplier, nil
}

// ---------------------------------------------------------------------------
// Vendor endpoints
// ---------------------------------------------------------------------------

type listResponse struct {
	Response []int `json:"response"`
}

// histResponse covers single-contract endpoints whose rows are bare tick
// arrays.
type histResponse struct {
	Response [][]float64 `json:"response"`
}

// bulkResponse covers bulk endpoints whose rows carry a contract header.
type bulkResponse struct {
	Response []struct {
		Ticks    [][]float64 `json:"ticks"`
		Contract struct {
			Root       string `json:"root"`
			Expiration int    `json:"expiration"`
			Strike     int    `json:"strike"` // millidollars
			Right      string `json:"right"`
		} `json:"contract"`
	} `json:"response"`
}

func (c *ThetaDataClient) listExpirations(ctx context.Context, symbol string) ([]time.Time, error) {
	var resp listResponse
	err := c.get(ctx, "/v2/list/expirations", url.Values{"root": {symbol}}, &resp)
	if err != nil {
		return nil, err
	}

	out := make([]time.Time, 0, len(resp.Response))
	for _, d := range resp.Response {
		t, err := parseDateInt(d)
		if err != nil {
			continue
		}
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out, nil
}

// bulkEntryQuotes fetches the 10 AM quote for every call at the
// expiration on the entry date.
func (c *ThetaDataClient) bulkEntryQuotes(ctx context.Context, symbol string, exp, entryDate time.Time) ([]strikeQuote, error) {
	day := dateInt(entryDate)
	params := url.Values{
		"root":       {symbol},
		"exp":        {strconv.Itoa(dateInt(exp))},
		"start_date": {strconv.Itoa(day)},
		"end_date":   {strconv.Itoa(day)},
		"ivl":        {strconv.Itoa(entryQuoteMS)},
	}

	var resp bulkResponse
	if err := c.get(ctx, "/v2/bulk_at_time/option/quote", params, &resp); err != nil {
		return nil, err
	}

	var quotes []strikeQuote
	for _, row := range resp.Response {
		if row.Contract.Right != string(domain.RightCall) || len(row.Ticks) == 0 {
			continue
		}
		tick := row.Ticks[len(row.Ticks)-1]
		if len(tick) <= quoteAsk {
			continue
		}
		quotes = append(quotes, strikeQuote{
			strike: float64(row.Contract.Strike) / 1000,
			bid:    tick[quoteBid],
			ask:    tick[quoteAsk],
		})
	}
	if len(quotes) == 0 {
		return nil, fmt.Errorf("%w: empty entry quote for exp %s", ErrNoData, exp.Format("2006-01-02"))
	}
	return quotes, nil
}

// bulkEODQuotes fetches end-of-day bids and asks for every call at the
// expiration on the entry date.
func (c *ThetaDataClient) bulkEODQuotes(ctx context.Context, symbol string, exp, entryDate time.Time) ([]strikeQuote, error) {
	day := dateInt(entryDate)
	params := url.Values{
		"root":       {symbol},
		"exp":        {strconv.Itoa(dateInt(exp))},
		"start_date": {strconv.Itoa(day)},
		"end_date":   {strconv.Itoa(day)},
	}

	var resp bulkResponse
	if err := c.get(ctx, "/v2/bulk_hist/option/eod", params, &resp); err != nil {
		return nil, err
	}

	var quotes []strikeQuote
	for _, row := range resp.Response {
		if row.Contract.Right != string(domain.RightCall) || len(row.Ticks) == 0 {
			continue
		}
		tick := row.Ticks[len(row.Ticks)-1]
		if len(tick) <= eodAsk {
			continue
		}
		q := strikeQuote{
			strike: float64(row.Contract.Strike) / 1000,
			bid:    tick[eodBid],
			ask:    tick[eodAsk],
		}
		// EOD rows carry a close; prefer it over the spread when set.
		if settle := tick[eodClose]; settle > 0 {
			q.bid = settle
			q.ask = settle
		}
		quotes = append(quotes, q)
	}
	if len(quotes) == 0 {
		return nil, fmt.Errorf("%w: empty EOD quote for exp %s", ErrNoData, exp.Format("2006-01-02"))
	}
	return quotes, nil
}

// entryGreeks fetches EOD greeks for the selected strike on the entry
// date. Missing greeks are reported as an error, not zeroes.
func (c *ThetaDataClient) entryGreeks(ctx context.Context, symbol string, exp time.Time, strike float64, entryDate time.Time) (*domain.Greeks, error) {
	day := dateInt(entryDate)
	params := url.Values{
		"root":       {symbol},
		"exp":        {strconv.Itoa(dateInt(exp))},
		"start_date": {strconv.Itoa(day)},
		"end_date":   {strconv.Itoa(day)},
	}

	var resp bulkResponse
	if err := c.get(ctx, "/v2/bulk_hist/option/eod_greeks", params, &resp); err != nil {
		return nil, err
	}

	wantMilli := strikeMilli(strike)
	for _, row := range resp.Response {
		if row.Contract.Right != string(domain.RightCall) || row.Contract.Strike != wantMilli {
			continue
		}
		if len(row.Ticks) == 0 {
			break
		}
		tick := row.Ticks[len(row.Ticks)-1]
		if len(tick) <= greekIV {
			break
		}
		return &domain.Greeks{
			Delta: tick[greekDelta],
			Theta: tick[greekTheta],
			Vega:  tick[greekVega],
			Gamma: tick[greekGamma],
			IV:    tick[greekIV],
		}, nil
	}
	return nil, fmt.Errorf("%w: no greeks for strike %.2f", ErrNoData, strike)
}

// ---------------------------------------------------------------------------
// Transport
// ---------------------------------------------------------------------------

// get performs one rate-limited, retried GET and decodes the JSON body.
// HTTP 472 is the terminal's "no data" status and maps to ErrNoData
// without retrying.
func (c *ThetaDataClient) get(ctx context.Context, path string, params url.Values, out any) error {
	u := c.baseURL + path + "?" + params.Encode()

	var noData error
	err := util.Retry(ctx, c.maxAttempts, c.baseDelay, func() error {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return err
		}
		resp, err := c.http.Do(req)
		if err != nil {
			return fmt.Errorf("GET %s: %w", path, err)
		}
		defer resp.Body.Close()

		if resp.StatusCode == 472 {
			io.Copy(io.Discard, resp.Body)
			noData = fmt.Errorf("%w: %s", ErrNoData, path)
			return nil
		}
		if resp.StatusCode != http.StatusOK {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
			return fmt.Errorf("GET %s: status %d: %s", path, resp.StatusCode, body)
		}

		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decoding %s: %w", path, err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	return noData
}

// dateInt converts a time to the vendor's YYYYMMDD integer form.
func dateInt(t time.Time) int {
	return t.Year()*10000 + int(t.Month())*100 + t.Day()
}

func parseDateInt(d int) (time.Time, error) {
	return time.Parse("20060102", strconv.Itoa(d))
}

// strikeMilli converts a dollar strike to the vendor's millidollar form.
func strikeMilli(strike float64) int {
	return int(math.Round(strike * 1000))
}
