// Package paper provides a dry-run order ledger. Bids rest in the
// ledger and fill against live quotes, so the daemon exercises the
// full execution path without touching the exchange.
package paper

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus represents the lifecycle state of a ledger order.
type OrderStatus int

const (
	OrderStatusOpen OrderStatus = iota
	OrderStatusFilled
	OrderStatusCanceled
)

func (s OrderStatus) String() string {
	switch s {
	case OrderStatusOpen:
		return "OPEN"
	case OrderStatusFilled:
		return "FILLED"
	case OrderStatusCanceled:
		return "CANCELED"
	default:
		return "UNKNOWN"
	}
}

// Order is one simulated limit bid for NO contracts.
type Order struct {
	ID         string      `json:"id"`
	Ticker     string      `json:"ticker"`
	Count      int         `json:"count"`
	PriceCents int         `json:"price_cents"`
	FillCents  int         `json:"fill_cents,omitempty"`
	Status     OrderStatus `json:"status"`
	CreatedAt  time.Time   `json:"created_at"`
	FilledAt   time.Time   `json:"filled_at"`
}

// LedgerStats summarizes ledger activity. Costs are in dollars.
type LedgerStats struct {
	Orders    int             `json:"orders"`
	Fills     int             `json:"fills"`
	Open      int             `json:"open"`
	Canceled  int             `json:"canceled"`
	TotalCost decimal.Decimal `json:"total_cost"`
	OpenValue decimal.Decimal `json:"open_value"`
}
