package espn

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"

	"github.com/halfcourt/kalshi-edge/pkg/nba"
)

const (
	// DefaultBaseURL is the public ESPN NBA API base URL.
	DefaultBaseURL = "https://site.api.espn.com/apis/site/v2/sports/basketball/nba"

	// The feed is unauthenticated; poll politely.
	defaultRateLimit = 2.0 // requests per second
	defaultBurst     = 2
)

// Client is an ESPN scoreboard client.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
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

// NewClient creates a new ESPN scoreboard client.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		limiter: rate.NewLimiter(rate.Limit(defaultRateLimit), defaultBurst),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// FetchScoreboard fetches today's scoreboard and indexes it by game key.
// Events missing a competitor are skipped, not errors.
func (c *Client) FetchScoreboard(ctx context.Context) (*Scoreboard, error) {
	var resp ScoreboardResponse
	if err := c.get(ctx, "/scoreboard", nil, &resp); err != nil {
		return nil, err
	}

	board := &Scoreboard{
		FetchedAt: time.Now(),
		Games:     make(map[string]nba.GameSnapshot, len(resp.Events)),
	}
	for i := range resp.Events {
		snap, ok := resp.Events[i].Snapshot()
		if !ok {
			continue
		}
		board.Games[snap.Key()] = snap
	}
	return board, nil
}

// get performs a GET request with rate limiting.
func (c *Client) get(ctx context.Context, path string, params url.Values, result interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}

	u := c.baseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, "GET", u, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("api error %d: %s", resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}

	return nil
}
