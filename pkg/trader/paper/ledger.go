package paper

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/halfcourt/kalshi-edge/pkg/nba"
)

// Ledger records simulated orders and fills them against quotes.
type Ledger struct {
	mu     sync.RWMutex
	orders []*Order          // every order placed, in placement order
	open   map[string]*Order // order ID -> resting order
	now    func() time.Time

	onFill func(*Order)
}

// NewLedger creates an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{
		open: make(map[string]*Order),
		now:  time.Now,
	}
}

// OnFill sets a callback invoked after an order fills.
func (l *Ledger) OnFill(fn func(*Order)) {
	l.onFill = fn
}

// PlaceOrder records a resting bid for count NO contracts at
// priceCents. The context mirrors the live client's signature; the
// ledger itself never blocks.
func (l *Ledger) PlaceOrder(ctx context.Context, ticker string, count, priceCents int) (*Order, error) {
	if ticker == "" {
		return nil, fmt.Errorf("ticker is required")
	}
	if count < 1 {
		return nil, fmt.Errorf("contract count must be positive, got %d", count)
	}
	if priceCents < 1 || priceCents > 99 {
		return nil, fmt.Errorf("price %dc outside the contract range", priceCents)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	order := &Order{
		ID:         uuid.NewString(),
		Ticker:     ticker,
		Count:      count,
		PriceCents: priceCents,
		Status:     OrderStatusOpen,
		CreatedAt:  l.now(),
	}
	l.orders = append(l.orders, order)
	l.open[order.ID] = order
	return order, nil
}

// CancelOrder cancels a resting order.
func (l *Ledger) CancelOrder(orderID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	order, ok := l.open[orderID]
	if !ok {
		return fmt.Errorf("order not found: %s", orderID)
	}
	order.Status = OrderStatusCanceled
	delete(l.open, orderID)
	return nil
}

// MarkQuotes checks every resting order against the latest quotes. An
// order fills at the current NO ask once its bid is at or through the
// ask; a zero ask means no offer, so the order keeps resting. Fill
// callbacks run after the ledger lock is released. Returns the orders
// filled by this mark, oldest first.
func (l *Ledger) MarkQuotes(quotes []nba.MarketQuote) []*Order {
	asks := make(map[string]int, len(quotes))
	for _, q := range quotes {
		if q.NoAsk > 0 {
			asks[q.Ticker] = q.NoAsk
		}
	}

	l.mu.Lock()
	var filled []*Order
	for id, order := range l.open {
		ask, ok := asks[order.Ticker]
		if !ok || order.PriceCents < ask {
			continue
		}
		order.Status = OrderStatusFilled
		order.FillCents = ask
		order.FilledAt = l.now()
		delete(l.open, id)
		filled = append(filled, order)
	}
	l.mu.Unlock()

	sort.Slice(filled, func(i, j int) bool {
		return filled[i].CreatedAt.Before(filled[j].CreatedAt)
	})

	if l.onFill != nil {
		for _, o := range filled {
			l.onFill(o)
		}
	}
	return filled
}

// GetOrder returns a copy of an order by ID.
func (l *Ledger) GetOrder(orderID string) (Order, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	for _, o := range l.orders {
		if o.ID == orderID {
			return *o, true
		}
	}
	return Order{}, false
}

// OpenOrders returns copies of the resting orders, oldest first.
func (l *Ledger) OpenOrders() []Order {
	l.mu.RLock()
	defer l.mu.RUnlock()

	orders := make([]Order, 0, len(l.open))
	for _, o := range l.open {
		orders = append(orders, *o)
	}
	sort.Slice(orders, func(i, j int) bool {
		return orders[i].CreatedAt.Before(orders[j].CreatedAt)
	})
	return orders
}

// Orders returns copies of every order placed, oldest first.
func (l *Ledger) Orders() []Order {
	l.mu.RLock()
	defer l.mu.RUnlock()

	orders := make([]Order, 0, len(l.orders))
	for _, o := range l.orders {
		orders = append(orders, *o)
	}
	return orders
}

// Stats summarizes ledger activity.
func (l *Ledger) Stats() LedgerStats {
	l.mu.RLock()
	defer l.mu.RUnlock()

	stats := LedgerStats{TotalCost: decimal.Zero, OpenValue: decimal.Zero}
	for _, o := range l.orders {
		stats.Orders++
		switch o.Status {
		case OrderStatusFilled:
			stats.Fills++
			stats.TotalCost = stats.TotalCost.Add(contractCost(o.Count, o.FillCents))
		case OrderStatusOpen:
			stats.Open++
			stats.OpenValue = stats.OpenValue.Add(contractCost(o.Count, o.PriceCents))
		case OrderStatusCanceled:
			stats.Canceled++
		}
	}
	return stats
}

// Reset clears the ledger.
func (l *Ledger) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.orders = nil
	l.open = make(map[string]*Order)
}

// contractCost converts a contract count at a cents price into dollars.
func contractCost(count, priceCents int) decimal.Decimal {
	return decimal.NewFromInt(int64(count) * int64(priceCents)).Div(decimal.NewFromInt(100))
}
