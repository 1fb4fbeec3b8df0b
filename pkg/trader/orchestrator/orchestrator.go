// Package orchestrator coordinates the daemon's poll pipeline: score
// refresh, market fetch, signal evaluation, and order execution.
package orchestrator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/halfcourt/kalshi-edge/pkg/engine"
	"github.com/halfcourt/kalshi-edge/pkg/espn"
	"github.com/halfcourt/kalshi-edge/pkg/kalshi"
	"github.com/halfcourt/kalshi-edge/pkg/nba"
	"github.com/halfcourt/kalshi-edge/pkg/trader/paper"
	"github.com/halfcourt/kalshi-edge/pkg/trader/policy"
)

// Stage represents a stage in the poll pipeline.
type Stage string

const (
	StageScores   Stage = "scores"
	StageMarkets  Stage = "markets"
	StageEvaluate Stage = "evaluate"
	StageExecute  Stage = "execute"
)

// StageResult holds the result of a stage execution.
type StageResult struct {
	Stage     Stage         `json:"stage"`
	Success   bool          `json:"success"`
	Error     string        `json:"error,omitempty"`
	Data      interface{}   `json:"data,omitempty"`
	Duration  time.Duration `json:"duration"`
	Timestamp time.Time     `json:"timestamp"`
}

// OrderEvent reports an order placed by the execute stage or a manual
// lift, on either the paper or the live path.
type OrderEvent struct {
	Ticker     string    `json:"ticker"`
	OrderID    string    `json:"order_id"`
	Count      int       `json:"count"`
	PriceCents int       `json:"price_cents"`
	Paper      bool      `json:"paper"`
	Manual     bool      `json:"manual"`
	PlacedAt   time.Time `json:"placed_at"`
}

// Config configures the poll pipeline.
type Config struct {
	// Market filters
	MinStrike  int
	MaxMarkets int

	// Timing
	PollInterval  time.Duration
	ScoreInterval time.Duration

	// Execution
	DryRun        bool
	AutoLift      bool
	ContractCount int

	// Now is injectable for tests.
	Now func() time.Time
}

// DefaultConfig returns default configuration.
func DefaultConfig() *Config {
	return &Config{
		MinStrike:     245,
		MaxMarkets:    40,
		PollInterval:  30 * time.Second,
		ScoreInterval: 30 * time.Second,
		DryRun:        true,
		AutoLift:      false,
		ContractCount: 1,
	}
}

// ScoreSource supplies the live scoreboard. *espn.Client satisfies it.
type ScoreSource interface {
	FetchScoreboard(ctx context.Context) (*espn.Scoreboard, error)
}

// MarketSource supplies contract quotes and order entry. *kalshi.Client
// satisfies it.
type MarketSource interface {
	FetchExtremeTotals(ctx context.Context, minStrike int, today string) ([]nba.MarketQuote, error)
	CanTrade() bool
	BuyNoLimit(ctx context.Context, ticker string, priceCents, count int) (*kalshi.Order, error)
}

// Orchestrator coordinates the poll pipeline.
type Orchestrator struct {
	config  *Config
	scores  ScoreSource
	markets MarketSource
	engine  *engine.SignalEngine
	policy  *policy.PolicyEngine
	ledger  *paper.Ledger

	mu      sync.RWMutex
	running bool
	stopCh  chan struct{}

	// State
	board       *espn.Scoreboard
	quotes      []nba.MarketQuote
	evaluations []engine.Evaluation
	lastPoll    time.Time

	// Callbacks
	onStageComplete func(*StageResult)
	onEvaluation    func(*engine.Evaluation)
	onOrder         func(*OrderEvent)
	onError         func(error)
}

// NewOrchestrator creates a new pipeline orchestrator.
func NewOrchestrator(
	config *Config,
	scores ScoreSource,
	markets MarketSource,
	eng *engine.SignalEngine,
	policyEngine *policy.PolicyEngine,
	ledger *paper.Ledger,
) *Orchestrator {
	if config == nil {
		config = DefaultConfig()
	}
	if config.Now == nil {
		config.Now = time.Now
	}

	return &Orchestrator{
		config:  config,
		scores:  scores,
		markets: markets,
		engine:  eng,
		policy:  policyEngine,
		ledger:  ledger,
		stopCh:  make(chan struct{}),
	}
}

// OnStageComplete sets a callback for stage completions.
func (o *Orchestrator) OnStageComplete(fn func(*StageResult)) {
	o.onStageComplete = fn
}

// OnEvaluation sets a callback invoked for every evaluation produced
// by the evaluate stage.
func (o *Orchestrator) OnEvaluation(fn func(*engine.Evaluation)) {
	o.onEvaluation = fn
}

// OnOrder sets a callback for order placements.
func (o *Orchestrator) OnOrder(fn func(*OrderEvent)) {
	o.onOrder = fn
}

// OnError sets a callback for errors.
func (o *Orchestrator) OnError(fn func(error)) {
	o.onError = fn
}

// Start starts the poll pipeline.
func (o *Orchestrator) Start(ctx context.Context) error {
	o.mu.Lock()
	if o.running {
		o.mu.Unlock()
		return fmt.Errorf("orchestrator already running")
	}
	o.running = true
	o.stopCh = make(chan struct{})
	o.mu.Unlock()

	// Warm the state so the first poll evaluates against live scores.
	if err := o.RunOnce(ctx); err != nil {
		o.handleError(fmt.Errorf("initial cycle failed: %w", err))
	}

	// Start background loops
	go o.scoreLoop(ctx)
	go o.pollLoop(ctx)

	return nil
}

// Stop stops the poll pipeline.
func (o *Orchestrator) Stop() {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.running {
		close(o.stopCh)
		o.running = false
	}
}

// IsRunning returns true if the orchestrator is running.
func (o *Orchestrator) IsRunning() bool {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.running
}

// RunOnce executes a single pipeline cycle.
func (o *Orchestrator) RunOnce(ctx context.Context) error {
	stages := []Stage{
		StageScores,
		StageMarkets,
		StageEvaluate,
		StageExecute,
	}

	for _, stage := range stages {
		if err := o.runStage(ctx, stage); err != nil {
			return fmt.Errorf("stage %s failed: %w", stage, err)
		}
	}

	return nil
}

// LiftAsk places a NO order at the contract's current ask. It is the
// manual entry path behind the HTTP API; every bid still passes the
// spike veto and the policy checks.
func (o *Orchestrator) LiftAsk(ctx context.Context, ticker string, count int) (string, error) {
	if count <= 0 {
		count = o.config.ContractCount
	}

	o.mu.RLock()
	var quote nba.MarketQuote
	found := false
	for _, q := range o.quotes {
		if q.Ticker == ticker {
			quote = q
			found = true
			break
		}
	}
	o.mu.RUnlock()

	if !found {
		return "", fmt.Errorf("unknown ticker %s", ticker)
	}
	if quote.NoAsk <= 0 {
		return "", fmt.Errorf("no ask on the book for %s", ticker)
	}
	if o.engine.IsSpiked(ticker) {
		return "", fmt.Errorf("spike alert active on %s, clear it first", ticker)
	}

	return o.placeOrder(ctx, ticker, count, quote.NoAsk, true)
}

// GetEvaluations returns the latest evaluation set.
func (o *Orchestrator) GetEvaluations() []engine.Evaluation {
	o.mu.RLock()
	defer o.mu.RUnlock()

	evals := make([]engine.Evaluation, len(o.evaluations))
	copy(evals, o.evaluations)
	return evals
}

// GetQuotes returns the latest market quotes.
func (o *Orchestrator) GetQuotes() []nba.MarketQuote {
	o.mu.RLock()
	defer o.mu.RUnlock()

	quotes := make([]nba.MarketQuote, len(o.quotes))
	copy(quotes, o.quotes)
	return quotes
}

// GetScoreboard returns the latest scoreboard. The board is replaced
// wholesale on refresh and never mutated after storage.
func (o *Orchestrator) GetScoreboard() *espn.Scoreboard {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.board
}

// ClearSpike resets the sticky spike alert for one ticker.
func (o *Orchestrator) ClearSpike(ticker string) {
	o.engine.ClearSpike(ticker)
}

// ClearAllSpikes resets every sticky spike alert.
func (o *Orchestrator) ClearAllSpikes() {
	o.engine.ClearAllSpikes()
}

// --- Background Loops ---

func (o *Orchestrator) scoreLoop(ctx context.Context) {
	ticker := time.NewTicker(o.config.ScoreInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-o.stopCh:
			return
		case <-ticker.C:
			if err := o.runStage(ctx, StageScores); err != nil {
				o.handleError(fmt.Errorf("score refresh failed: %w", err))
			}
		}
	}
}

func (o *Orchestrator) pollLoop(ctx context.Context) {
	ticker := time.NewTicker(o.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-o.stopCh:
			return
		case <-ticker.C:
			stages := []Stage{
				StageMarkets,
				StageEvaluate,
				StageExecute,
			}

			for _, stage := range stages {
				if err := o.runStage(ctx, stage); err != nil {
					o.handleError(fmt.Errorf("stage %s failed: %w", stage, err))
					break
				}
			}
		}
	}
}

// --- Stage Execution ---

func (o *Orchestrator) runStage(ctx context.Context, stage Stage) error {
	start := time.Now()
	var err error
	var data interface{}

	switch stage {
	case StageScores:
		data, err = o.executeScores(ctx)
	case StageMarkets:
		data, err = o.executeMarkets(ctx)
	case StageEvaluate:
		data, err = o.executeEvaluate(ctx)
	case StageExecute:
		data, err = o.executeExecute(ctx)
	default:
		err = fmt.Errorf("unknown stage: %s", stage)
	}

	result := &StageResult{
		Stage:     stage,
		Success:   err == nil,
		Data:      data,
		Duration:  time.Since(start),
		Timestamp: time.Now(),
	}
	if err != nil {
		result.Error = err.Error()
	}

	if o.onStageComplete != nil {
		o.onStageComplete(result)
	}

	return err
}

func (o *Orchestrator) executeScores(ctx context.Context) (interface{}, error) {
	board, err := o.scores.FetchScoreboard(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch scoreboard: %w", err)
	}

	o.mu.Lock()
	o.board = board
	o.mu.Unlock()

	return map[string]interface{}{
		"games": board.Len(),
	}, nil
}

func (o *Orchestrator) executeMarkets(ctx context.Context) (interface{}, error) {
	today := kalshi.TodayEastern(o.config.Now())
	quotes, err := o.markets.FetchExtremeTotals(ctx, o.config.MinStrike, today)
	if err != nil {
		return nil, fmt.Errorf("fetch markets: %w", err)
	}

	// Quotes arrive highest strike first; keep the most extreme ones.
	if o.config.MaxMarkets > 0 && len(quotes) > o.config.MaxMarkets {
		quotes = quotes[:o.config.MaxMarkets]
	}

	o.mu.Lock()
	o.quotes = quotes
	o.lastPoll = o.config.Now()
	o.mu.Unlock()

	return map[string]interface{}{
		"markets": len(quotes),
	}, nil
}

func (o *Orchestrator) executeEvaluate(ctx context.Context) (interface{}, error) {
	o.mu.RLock()
	quotes := o.quotes
	board := o.board
	o.mu.RUnlock()

	evals := make([]engine.Evaluation, 0, len(quotes))
	for _, q := range quotes {
		var snap *nba.GameSnapshot
		if s, ok := board.Find(q.AwayTeam, q.HomeTeam); ok {
			snap = s
		}

		evals = append(evals, o.engine.Evaluate(q, snap))

		if o.onEvaluation != nil {
			o.onEvaluation(&evals[len(evals)-1])
		}
	}

	o.mu.Lock()
	o.evaluations = evals
	o.mu.Unlock()

	return map[string]interface{}{
		"evaluations": len(evals),
	}, nil
}

func (o *Orchestrator) executeExecute(ctx context.Context) (interface{}, error) {
	o.mu.RLock()
	evals := o.evaluations
	quotes := o.quotes
	o.mu.RUnlock()

	placed := 0
	if o.config.AutoLift {
		for i := range evals {
			ev := &evals[i]
			if ev.Recommendation.Label != engine.LabelAskAcceptable || ev.Spiked {
				continue
			}

			if _, err := o.placeOrder(ctx, ev.Quote.Ticker, o.config.ContractCount, ev.Quote.NoAsk, false); err != nil {
				o.handleError(err)
				continue
			}
			placed++
		}
	}

	// Resting paper bids fill against the freshest quotes.
	fills := 0
	if o.ledger != nil {
		fills = len(o.ledger.MarkQuotes(quotes))
	}

	return map[string]interface{}{
		"orders_placed": placed,
		"paper_fills":   fills,
	}, nil
}

// placeOrder routes one order through the policy gate to the paper
// ledger or the live exchange.
func (o *Orchestrator) placeOrder(ctx context.Context, ticker string, count, priceCents int, manual bool) (string, error) {
	if o.policy != nil {
		if err := o.policy.CheckOrder(ticker, count, priceCents); err != nil {
			return "", fmt.Errorf("policy rejected %s: %w", ticker, err)
		}
	}

	var orderID string
	paperTrade := o.config.DryRun || !o.markets.CanTrade()
	if paperTrade {
		if o.ledger == nil {
			return "", fmt.Errorf("dry run without a paper ledger")
		}
		order, err := o.ledger.PlaceOrder(ctx, ticker, count, priceCents)
		if err != nil {
			return "", fmt.Errorf("paper order %s: %w", ticker, err)
		}
		orderID = order.ID
	} else {
		order, err := o.markets.BuyNoLimit(ctx, ticker, priceCents, count)
		if err != nil {
			return "", fmt.Errorf("live order %s: %w", ticker, err)
		}
		orderID = order.OrderID
	}

	if o.policy != nil {
		o.policy.RecordOrder(ticker, count, priceCents)
	}

	if o.onOrder != nil {
		o.onOrder(&OrderEvent{
			Ticker:     ticker,
			OrderID:    orderID,
			Count:      count,
			PriceCents: priceCents,
			Paper:      paperTrade,
			Manual:     manual,
			PlacedAt:   o.config.Now(),
		})
	}

	return orderID, nil
}

func (o *Orchestrator) handleError(err error) {
	if o.onError != nil {
		o.onError(err)
	}
}

// Status is the daemon state snapshot served by the HTTP API.
type Status struct {
	Running      bool      `json:"running"`
	DryRun       bool      `json:"dry_run"`
	AutoLift     bool      `json:"auto_lift"`
	Markets      int       `json:"markets"`
	Games        int       `json:"games"`
	Evaluations  int       `json:"evaluations"`
	ActiveSpikes []string  `json:"active_spikes,omitempty"`
	LastPoll     time.Time `json:"last_poll"`

	Policy *policy.PolicyStatus `json:"policy,omitempty"`
	Paper  *paper.LedgerStats   `json:"paper,omitempty"`
}

// GetStatus returns the current status.
func (o *Orchestrator) GetStatus() *Status {
	o.mu.RLock()
	defer o.mu.RUnlock()

	status := &Status{
		Running:      o.running,
		DryRun:       o.config.DryRun,
		AutoLift:     o.config.AutoLift,
		Markets:      len(o.quotes),
		Evaluations:  len(o.evaluations),
		ActiveSpikes: o.engine.ActiveSpikes(),
		LastPoll:     o.lastPoll,
	}

	if o.board != nil {
		status.Games = o.board.Len()
	}

	if o.policy != nil {
		ps := o.policy.Status()
		status.Policy = &ps
	}

	if o.ledger != nil {
		ls := o.ledger.Stats()
		status.Paper = &ls
	}

	return status
}
