// Package policy provides order-entry limits for the signal daemon.
// Every order, paper or live, passes CheckOrder before placement.
package policy

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// ErrRejected is wrapped by every CheckOrder failure so callers can
// tell a policy stop from a transport error.
var ErrRejected = errors.New("order rejected by policy")

func rejection(format string, args ...interface{}) error {
	return fmt.Errorf(format+": %w", append(args, ErrRejected)...)
}

// OrderLimits defines the guardrails for NO-side order entry.
type OrderLimits struct {
	// Per-order limits
	MaxContractsPerOrder int // Max contracts in a single order
	MaxNoPriceCents      int // Never pay more than this per contract
	MinNoPriceCents      int // A quote below this is stale or mispriced

	// Daily limits
	MaxOrdersPerDay int             // Max orders per trading day
	MaxDailySpend   decimal.Decimal // Max dollars committed per day

	// Market restrictions
	BlockedTickers []string // Contracts to never trade
}

// DefaultOrderLimits returns conservative defaults. The price ceiling
// matches the best post-Q1 tolerance; the engine never recommends
// above it and the policy layer backstops that.
func DefaultOrderLimits() *OrderLimits {
	return &OrderLimits{
		MaxContractsPerOrder: 10,
		MaxNoPriceCents:      78,
		MinNoPriceCents:      40,

		MaxOrdersPerDay: 20,
		MaxDailySpend:   decimal.NewFromInt(200), // $200 per day
	}
}

// TightOrderLimits returns very conservative limits for testing.
func TightOrderLimits() *OrderLimits {
	return &OrderLimits{
		MaxContractsPerOrder: 2,
		MaxNoPriceCents:      70,
		MinNoPriceCents:      50,

		MaxOrdersPerDay: 5,
		MaxDailySpend:   decimal.NewFromInt(50),
	}
}

// PolicyEngine enforces order limits and tracks daily usage.
type PolicyEngine struct {
	limits *OrderLimits
	now    func() time.Time

	mu           sync.RWMutex
	dailyOrders  int
	dailySpend   decimal.Decimal
	lastTradeDay int // Day of year
}

// NewPolicyEngine creates a policy engine with the given limits.
func NewPolicyEngine(limits *OrderLimits) *PolicyEngine {
	if limits == nil {
		limits = DefaultOrderLimits()
	}
	return &PolicyEngine{
		limits:       limits,
		now:          time.Now,
		dailySpend:   decimal.Zero,
		lastTradeDay: time.Now().YearDay(),
	}
}

// CheckOrder validates an order against the limits. A nil return means
// the order may be placed.
func (p *PolicyEngine) CheckOrder(ticker string, count, priceCents int) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	// Reset daily counters if new day
	p.resetDailyIfNeeded()

	for _, blocked := range p.limits.BlockedTickers {
		if ticker == blocked {
			return rejection("ticker %s is blocked", ticker)
		}
	}

	if count < 1 {
		return rejection("contract count must be positive, got %d", count)
	}
	if count > p.limits.MaxContractsPerOrder {
		return rejection("contract count %d exceeds max %d", count, p.limits.MaxContractsPerOrder)
	}

	if priceCents > p.limits.MaxNoPriceCents {
		return rejection("price %dc exceeds max %dc", priceCents, p.limits.MaxNoPriceCents)
	}
	if priceCents < p.limits.MinNoPriceCents {
		return rejection("price %dc below min %dc", priceCents, p.limits.MinNoPriceCents)
	}

	if p.dailyOrders >= p.limits.MaxOrdersPerDay {
		return rejection("daily order limit reached: %d", p.limits.MaxOrdersPerDay)
	}

	cost := orderCost(count, priceCents)
	if p.dailySpend.Add(cost).GreaterThan(p.limits.MaxDailySpend) {
		return rejection("order cost $%s would exceed daily spend limit $%s", cost, p.limits.MaxDailySpend)
	}

	return nil
}

// RecordOrder records a placed order against the daily budgets.
func (p *PolicyEngine) RecordOrder(ticker string, count, priceCents int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.resetDailyIfNeeded()
	p.dailyOrders++
	p.dailySpend = p.dailySpend.Add(orderCost(count, priceCents))
}

// DailyStats returns today's usage.
func (p *PolicyEngine) DailyStats() (orders int, spend decimal.Decimal) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.dailyOrders, p.dailySpend
}

// --- Internal helpers ---

func (p *PolicyEngine) resetDailyIfNeeded() {
	day := p.now().YearDay()
	if p.lastTradeDay != day {
		p.dailyOrders = 0
		p.dailySpend = decimal.Zero
		p.lastTradeDay = day
	}
}

// orderCost converts a contract count at a cents price into dollars.
func orderCost(count, priceCents int) decimal.Decimal {
	return decimal.NewFromInt(int64(count) * int64(priceCents)).Div(decimal.NewFromInt(100))
}

// PolicyStatus is a summary of the current policy state.
type PolicyStatus struct {
	DailyOrders    int      `json:"daily_orders"`
	MaxDailyOrders int      `json:"max_daily_orders"`
	DailySpend     string   `json:"daily_spend"`
	MaxDailySpend  string   `json:"max_daily_spend"`
	MaxContracts   int      `json:"max_contracts_per_order"`
	MinPriceCents  int      `json:"min_price_cents"`
	MaxPriceCents  int      `json:"max_price_cents"`
	BlockedTickers []string `json:"blocked_tickers,omitempty"`
}

// Status returns the current policy status.
func (p *PolicyEngine) Status() PolicyStatus {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return PolicyStatus{
		DailyOrders:    p.dailyOrders,
		MaxDailyOrders: p.limits.MaxOrdersPerDay,
		DailySpend:     p.dailySpend.String(),
		MaxDailySpend:  p.limits.MaxDailySpend.String(),
		MaxContracts:   p.limits.MaxContractsPerOrder,
		MinPriceCents:  p.limits.MinNoPriceCents,
		MaxPriceCents:  p.limits.MaxNoPriceCents,
		BlockedTickers: p.limits.BlockedTickers,
	}
}
