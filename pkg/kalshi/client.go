package kalshi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"

	"github.com/halfcourt/kalshi-edge/pkg/nba"
)

const (
	// DefaultBaseURL is the Trade API base URL.
	DefaultBaseURL = "https://api.elections.kalshi.com"

	// DefaultWSSURL is the market data stream URL.
	DefaultWSSURL = "wss://api.elections.kalshi.com/trade-api/ws/v2"

	// apiPrefix is prepended to every REST path; signatures cover the
	// full path.
	apiPrefix = "/trade-api/v2"

	// Rate limits for the basic access tier.
	defaultRateLimit = 10.0 // requests per second
	defaultBurst     = 5
)

var eastern = mustLoadLocation("America/New_York")

func mustLoadLocation(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		panic(fmt.Sprintf("load tz %s: %v (import time/tzdata to embed the database)", name, err))
	}
	return loc
}

// TodayEastern formats now as the exchange's trading date. Game codes
// in event tickers are dated in US Eastern time.
func TodayEastern(now time.Time) string {
	return now.In(eastern).Format("2006-01-02")
}

// Client is a Trade API client. Without a signer it is read-only;
// portfolio calls return ErrReadOnly.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	signer     *Signer
	now        func() time.Time
}

// ClientOption configures the client.
type ClientOption func(*Client)

// WithBaseURL sets a custom base URL.
func WithBaseURL(url string) ClientOption {
	return func(c *Client) {
		c.baseURL = url
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = client
	}
}

// WithRateLimit sets custom rate limiting.
func WithRateLimit(rps float64, burst int) ClientOption {
	return func(c *Client) {
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithSigner enables authenticated portfolio operations.
func WithSigner(signer *Signer) ClientOption {
	return func(c *Client) {
		c.signer = signer
	}
}

// WithClock sets the time source for signatures and trading dates.
func WithClock(now func() time.Time) ClientOption {
	return func(c *Client) {
		c.now = now
	}
}

// NewClient creates a new Trade API client.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:        20,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		limiter: rate.NewLimiter(rate.Limit(defaultRateLimit), defaultBurst),
		now:     time.Now,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// CanTrade reports whether the client holds signing credentials.
func (c *Client) CanTrade() bool {
	return c.signer != nil
}

// ListMarkets fetches one page of markets.
func (c *Client) ListMarkets(ctx context.Context, filter *MarketsFilter) (*MarketsResponse, error) {
	params := url.Values{}
	if filter != nil {
		if filter.SeriesTicker != "" {
			params.Set("series_ticker", filter.SeriesTicker)
		}
		if filter.EventTicker != "" {
			params.Set("event_ticker", filter.EventTicker)
		}
		if filter.Status != "" {
			params.Set("status", filter.Status)
		}
		if filter.Tickers != "" {
			params.Set("tickers", filter.Tickers)
		}
		if filter.Limit > 0 {
			params.Set("limit", strconv.Itoa(filter.Limit))
		}
		if filter.Cursor != "" {
			params.Set("cursor", filter.Cursor)
		}
	}

	var resp MarketsResponse
	if err := c.get(ctx, "/markets", params, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetMarket fetches a single market by ticker.
func (c *Client) GetMarket(ctx context.Context, ticker string) (*Market, error) {
	var resp struct {
		Market Market `json:"market"`
	}
	if err := c.get(ctx, "/markets/"+ticker, nil, &resp); err != nil {
		return nil, err
	}
	return &resp.Market, nil
}

// GetOrderbook fetches the resting book for a market.
func (c *Client) GetOrderbook(ctx context.Context, ticker string) (*Orderbook, error) {
	var resp OrderbookResponse
	if err := c.get(ctx, "/markets/"+ticker+"/orderbook", nil, &resp); err != nil {
		return nil, err
	}
	return &resp.Orderbook, nil
}

// FetchExtremeTotals fetches today's open NBA totals markets with a
// floor strike at or above minStrike, as quotes ready for evaluation.
// today is an ISO date from TodayEastern; markets whose game code does
// not parse to it are dropped. Results are sorted by strike descending.
func (c *Client) FetchExtremeTotals(ctx context.Context, minStrike int, today string) ([]nba.MarketQuote, error) {
	floor := decimal.NewFromInt(int64(minStrike))
	filter := &MarketsFilter{
		SeriesTicker: SeriesNBATotal,
		Status:       MarketStatusOpen,
		Limit:        200,
	}

	var quotes []nba.MarketQuote
	for {
		page, err := c.ListMarkets(ctx, filter)
		if err != nil {
			return nil, fmt.Errorf("list totals markets: %w", err)
		}

		for i := range page.Markets {
			m := &page.Markets[i]
			if m.FloorStrike.IsZero() || m.FloorStrike.LessThan(floor) {
				continue
			}
			quote, ok := quoteFromMarket(m, today)
			if !ok {
				continue
			}
			quotes = append(quotes, quote)
		}

		if page.Cursor == "" {
			break
		}
		filter.Cursor = page.Cursor
	}

	// Highest strike first; stable so the API's order breaks ties.
	sort.SliceStable(quotes, func(i, j int) bool {
		return quotes[i].Strike.GreaterThan(quotes[j].Strike)
	})
	return quotes, nil
}

// quoteFromMarket resolves a market's game code against today's date
// and the team table. Markets with malformed event tickers or game
// codes for other days are excluded.
func quoteFromMarket(m *Market, today string) (nba.MarketQuote, bool) {
	parts := strings.Split(m.EventTicker, "-")
	if len(parts) < 2 {
		return nba.MarketQuote{}, false
	}
	gameCode := parts[1]

	date, ok := nba.ParseGameDate(gameCode)
	if !ok || date != today {
		return nba.MarketQuote{}, false
	}
	away, home, ok := nba.ParseTeamsFromTicker(gameCode)
	if !ok {
		return nba.MarketQuote{}, false
	}

	return nba.MarketQuote{
		Ticker:      m.Ticker,
		EventTicker: m.EventTicker,
		Strike:      m.FloorStrike,
		AwayTeam:    away,
		HomeTeam:    home,
		YesAsk:      m.YesAsk,
		NoAsk:       m.BestNoAsk(),
		Volume:      int(m.Volume),
	}, true
}

// --- Internal helpers ---

func (c *Client) authHeaders(method, path string) (map[string]string, error) {
	if c.signer == nil {
		return nil, ErrReadOnly
	}
	return c.signer.Headers(method, apiPrefix+path, c.now())
}

func (c *Client) get(ctx context.Context, path string, params url.Values, result interface{}) error {
	return c.do(ctx, "GET", path, nil, params, nil, result)
}

func (c *Client) getAuthed(ctx context.Context, path string, params url.Values, result interface{}) error {
	headers, err := c.authHeaders("GET", path)
	if err != nil {
		return err
	}
	return c.do(ctx, "GET", path, headers, params, nil, result)
}

func (c *Client) postAuthed(ctx context.Context, path string, body []byte, result interface{}) error {
	headers, err := c.authHeaders("POST", path)
	if err != nil {
		return err
	}
	return c.do(ctx, "POST", path, headers, nil, body, result)
}

func (c *Client) deleteAuthed(ctx context.Context, path string, result interface{}) error {
	headers, err := c.authHeaders("DELETE", path)
	if err != nil {
		return err
	}
	return c.do(ctx, "DELETE", path, headers, nil, nil, result)
}

func (c *Client) do(ctx context.Context, method, path string, headers map[string]string, params url.Values, body []byte, result interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}

	u := c.baseURL + apiPrefix + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	var bodyReader io.Reader
	if body != nil {
		bodyReader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, bodyReader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		raw, _ := io.ReadAll(resp.Body)
		var apiErr APIError
		if json.Unmarshal(raw, &apiErr) == nil && apiErr.Error.Message != "" {
			return fmt.Errorf("api error %d: %s", resp.StatusCode, apiErr.Error.Message)
		}
		return fmt.Errorf("api error %d: %s", resp.StatusCode, string(raw))
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}

	return nil
}
