// Package kalshi provides clients for the Kalshi Trade API v2: REST
// market data, RSA-PSS signed order entry, and the real-time ticker
// stream.
package kalshi

import (
	"time"

	"github.com/shopspring/decimal"
)

// Series and status constants for the markets the engine trades.
const (
	SeriesNBATotal   = "KXNBATOTAL"
	MarketStatusOpen = "open"

	// DefaultMinStrike is the lowest floor strike considered an
	// extreme total.
	DefaultMinStrike = 245
)

// OrderAction is the taker intent of an order.
type OrderAction string

const (
	OrderActionBuy  OrderAction = "buy"
	OrderActionSell OrderAction = "sell"
)

// OrderSide is the contract side an order trades.
type OrderSide string

const (
	OrderSideYes OrderSide = "yes"
	OrderSideNo  OrderSide = "no"
)

// OrderType is the execution style of an order.
type OrderType string

const (
	OrderTypeLimit  OrderType = "limit"
	OrderTypeMarket OrderType = "market"
)

// Market is one market as returned by the Trade API. Prices are in
// cents; floor_strike carries the totals threshold (e.g. 249.5).
type Market struct {
	Ticker      string `json:"ticker"`
	EventTicker string `json:"event_ticker"`
	MarketType  string `json:"market_type"`
	Title       string `json:"title"`
	Subtitle    string `json:"subtitle"`
	Status      string `json:"status"`

	YesBid    int `json:"yes_bid"`
	YesAsk    int `json:"yes_ask"`
	NoBid     int `json:"no_bid"`
	NoAsk     int `json:"no_ask"`
	LastPrice int `json:"last_price"`

	Volume       int64 `json:"volume"`
	Volume24h    int64 `json:"volume_24h"`
	OpenInterest int64 `json:"open_interest"`
	Liquidity    int64 `json:"liquidity"`

	StrikeType  string          `json:"strike_type"`
	FloorStrike decimal.Decimal `json:"floor_strike"`
	CapStrike   decimal.Decimal `json:"cap_strike"`

	OpenTime       time.Time `json:"open_time"`
	CloseTime      time.Time `json:"close_time"`
	ExpirationTime time.Time `json:"expiration_time"`
	Result         string    `json:"result"`
}

// BestNoAsk returns the NO ask in cents, falling back to the YES-side
// complement when the API omits it. Zero means no offer at all.
func (m *Market) BestNoAsk() int {
	if m.NoAsk > 0 {
		return m.NoAsk
	}
	if m.YesAsk > 0 {
		return 100 - m.YesAsk
	}
	return 0
}

// MarketsResponse is the paginated markets listing.
type MarketsResponse struct {
	Markets []Market `json:"markets"`
	Cursor  string   `json:"cursor"`
}

// MarketsFilter contains filter parameters for listing markets.
type MarketsFilter struct {
	SeriesTicker string
	EventTicker  string
	Status       string
	Tickers      string // comma-separated
	Limit        int
	Cursor       string
}

// Orderbook is the resting book for one market. Each level is a
// [price, count] pair in cents, sorted by price ascending, so the best
// bid on either side is the last level.
type Orderbook struct {
	Yes [][2]int `json:"yes"`
	No  [][2]int `json:"no"`
}

// OrderbookResponse wraps the orderbook endpoint payload.
type OrderbookResponse struct {
	Orderbook Orderbook `json:"orderbook"`
}

// BestYes returns the best YES bid as (price, count).
func (o *Orderbook) BestYes() (price, count int, ok bool) {
	return bestLevel(o.Yes)
}

// BestNo returns the best NO bid as (price, count).
func (o *Orderbook) BestNo() (price, count int, ok bool) {
	return bestLevel(o.No)
}

func bestLevel(levels [][2]int) (price, count int, ok bool) {
	if len(levels) == 0 {
		return 0, 0, false
	}
	best := levels[len(levels)-1]
	return best[0], best[1], true
}

// OrderRequest is the order entry payload. ExpirationTS nil encodes as
// null, which the API reads as good-til-canceled.
type OrderRequest struct {
	Ticker        string      `json:"ticker"`
	Action        OrderAction `json:"action"`
	Side          OrderSide   `json:"side"`
	Count         int         `json:"count"`
	Type          OrderType   `json:"type"`
	YesPrice      int         `json:"yes_price,omitempty"`
	NoPrice       int         `json:"no_price,omitempty"`
	ClientOrderID string      `json:"client_order_id"`
	ExpirationTS  *int64      `json:"expiration_ts"`
}

// Order is an accepted order as echoed back by the API.
type Order struct {
	OrderID        string      `json:"order_id"`
	ClientOrderID  string      `json:"client_order_id"`
	Ticker         string      `json:"ticker"`
	Action         OrderAction `json:"action"`
	Side           OrderSide   `json:"side"`
	Type           OrderType   `json:"type"`
	Status         string      `json:"status"`
	YesPrice       int         `json:"yes_price"`
	NoPrice        int         `json:"no_price"`
	InitialCount   int         `json:"initial_count"`
	RemainingCount int         `json:"remaining_count"`
	CreatedTime    time.Time   `json:"created_time"`
}

// OrderResponse wraps a single order payload.
type OrderResponse struct {
	Order Order `json:"order"`
}

// OrdersResponse is the paginated orders listing.
type OrdersResponse struct {
	Orders []Order `json:"orders"`
	Cursor string  `json:"cursor"`
}

// Balance is the account balance in cents.
type Balance struct {
	Balance int64 `json:"balance"`
}

// APIError is the error envelope the Trade API returns on failures.
type APIError struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}
