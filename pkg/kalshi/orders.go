package kalshi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"

	"github.com/google/uuid"
)

// ErrReadOnly is returned by portfolio operations on a client built
// without a signer.
var ErrReadOnly = errors.New("kalshi: no signing credentials, order entry disabled")

// CreateOrder submits an order. A missing client_order_id gets a fresh
// UUID so retries after transport errors stay idempotent on the
// exchange side.
func (c *Client) CreateOrder(ctx context.Context, req *OrderRequest) (*Order, error) {
	if c.signer == nil {
		return nil, ErrReadOnly
	}
	if req.ClientOrderID == "" {
		req.ClientOrderID = uuid.NewString()
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode order: %w", err)
	}

	var resp OrderResponse
	if err := c.postAuthed(ctx, "/portfolio/orders", body, &resp); err != nil {
		return nil, err
	}
	return &resp.Order, nil
}

// BuyNoLimit places a resting limit order to buy NO contracts at
// priceCents. This is the only order shape the engine places.
func (c *Client) BuyNoLimit(ctx context.Context, ticker string, priceCents, count int) (*Order, error) {
	return c.CreateOrder(ctx, &OrderRequest{
		Ticker:  ticker,
		Action:  OrderActionBuy,
		Side:    OrderSideNo,
		Count:   count,
		Type:    OrderTypeLimit,
		NoPrice: priceCents,
	})
}

// CancelOrder cancels a resting order by ID.
func (c *Client) CancelOrder(ctx context.Context, orderID string) error {
	if c.signer == nil {
		return ErrReadOnly
	}
	return c.deleteAuthed(ctx, "/portfolio/orders/"+orderID, nil)
}

// GetOrders fetches the account's orders, optionally filtered by
// ticker and status ("resting", "executed", "canceled").
func (c *Client) GetOrders(ctx context.Context, ticker, status string) ([]Order, error) {
	if c.signer == nil {
		return nil, ErrReadOnly
	}

	params := url.Values{}
	if ticker != "" {
		params.Set("ticker", ticker)
	}
	if status != "" {
		params.Set("status", status)
	}

	var resp OrdersResponse
	if err := c.getAuthed(ctx, "/portfolio/orders", params, &resp); err != nil {
		return nil, err
	}
	return resp.Orders, nil
}

// GetBalance fetches the account balance in cents.
func (c *Client) GetBalance(ctx context.Context) (int64, error) {
	if c.signer == nil {
		return 0, ErrReadOnly
	}

	var resp Balance
	if err := c.getAuthed(ctx, "/portfolio/balance", nil, &resp); err != nil {
		return 0, err
	}
	return resp.Balance, nil
}
