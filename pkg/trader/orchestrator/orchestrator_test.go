package orchestrator

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/halfcourt/kalshi-edge/pkg/engine"
	"github.com/halfcourt/kalshi-edge/pkg/espn"
	"github.com/halfcourt/kalshi-edge/pkg/kalshi"
	"github.com/halfcourt/kalshi-edge/pkg/nba"
	"github.com/halfcourt/kalshi-edge/pkg/trader/paper"
	"github.com/halfcourt/kalshi-edge/pkg/trader/policy"
)

const testTicker = "KXNBATOTAL-25NOV01DETLAL-B250.5"

type fakeScores struct {
	board *espn.Scoreboard
	err   error
	calls int
}

func (f *fakeScores) FetchScoreboard(ctx context.Context) (*espn.Scoreboard, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.board, nil
}

type fakeMarkets struct {
	quotes   []nba.MarketQuote
	err      error
	canTrade bool
	bought   []string
	buyErr   error
}

func (f *fakeMarkets) FetchExtremeTotals(ctx context.Context, minStrike int, today string) ([]nba.MarketQuote, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.quotes, nil
}

func (f *fakeMarkets) CanTrade() bool { return f.canTrade }

func (f *fakeMarkets) BuyNoLimit(ctx context.Context, ticker string, priceCents, count int) (*kalshi.Order, error) {
	if f.buyErr != nil {
		return nil, f.buyErr
	}
	f.bought = append(f.bought, ticker)
	return &kalshi.Order{
		OrderID:      "ord-123",
		Ticker:       ticker,
		NoPrice:      priceCents,
		InitialCount: count,
	}, nil
}

func postQ1Snapshot(away, home string, awayScore, homeScore int) nba.GameSnapshot {
	return nba.GameSnapshot{
		AwayTeam:     away,
		HomeTeam:     home,
		AwayScore:    awayScore,
		HomeScore:    homeScore,
		Period:       1,
		PeriodEnded:  true,
		QuarterLabel: "End Q1",
		Status:       nba.StatusLive,
	}
}

func boardWith(snaps ...nba.GameSnapshot) *espn.Scoreboard {
	board := &espn.Scoreboard{
		FetchedAt: time.Now(),
		Games:     make(map[string]nba.GameSnapshot),
	}
	for _, s := range snaps {
		board.Games[s.Key()] = s
	}
	return board
}

func marketQuote(ticker string, noAsk int, away, home string) nba.MarketQuote {
	return nba.MarketQuote{
		Ticker:      ticker,
		EventTicker: "KXNBATOTAL-25NOV01DETLAL",
		Strike:      decimal.RequireFromString("250.5"),
		AwayTeam:    away,
		HomeTeam:    home,
		YesAsk:      100 - noAsk,
		NoAsk:       noAsk,
	}
}

func testConfig(now time.Time) *Config {
	return &Config{
		MinStrike:     245,
		MaxMarkets:    40,
		PollInterval:  time.Hour,
		ScoreInterval: time.Hour,
		DryRun:        true,
		ContractCount: 1,
		Now:           func() time.Time { return now },
	}
}

func TestRunOnce_StageOrder(t *testing.T) {
	scores := &fakeScores{board: boardWith()}
	markets := &fakeMarkets{}
	orch := NewOrchestrator(testConfig(time.Now()), scores, markets,
		engine.New(engine.Config{}), policy.NewPolicyEngine(nil), paper.NewLedger())

	var got []Stage
	orch.OnStageComplete(func(r *StageResult) {
		got = append(got, r.Stage)
		if !r.Success {
			t.Errorf("stage %s failed: %s", r.Stage, r.Error)
		}
		if r.Timestamp.IsZero() {
			t.Errorf("stage %s result not timestamped", r.Stage)
		}
	})

	if err := orch.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce failed: %v", err)
	}

	want := []Stage{StageScores, StageMarkets, StageEvaluate, StageExecute}
	if len(got) != len(want) {
		t.Fatalf("Expected %d stages, got %d", len(want), len(got))
	}
	for i, stage := range want {
		if got[i] != stage {
			t.Errorf("stage[%d] = %s, want %s", i, got[i], stage)
		}
	}
}

func TestRunOnce_PopulatesState(t *testing.T) {
	now := time.Date(2025, 11, 1, 19, 30, 0, 0, time.UTC)
	scores := &fakeScores{board: boardWith(postQ1Snapshot("Detroit", "LA Lakers", 20, 24))}
	markets := &fakeMarkets{quotes: []nba.MarketQuote{
		marketQuote(testTicker, 70, "Detroit", "LA Lakers"),
	}}
	orch := NewOrchestrator(testConfig(now), scores, markets,
		engine.New(engine.Config{}), policy.NewPolicyEngine(nil), paper.NewLedger())

	evalCalls := 0
	orch.OnEvaluation(func(ev *engine.Evaluation) {
		evalCalls++
		if ev.Quote.Ticker != testTicker {
			t.Errorf("evaluation for %s, want %s", ev.Quote.Ticker, testTicker)
		}
		if ev.State != engine.StatePostQ1 {
			t.Errorf("State = %s, want %s", ev.State, engine.StatePostQ1)
		}
	})

	if err := orch.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce failed: %v", err)
	}
	if evalCalls != 1 {
		t.Errorf("OnEvaluation fired %d times, want 1", evalCalls)
	}

	if quotes := orch.GetQuotes(); len(quotes) != 1 {
		t.Errorf("GetQuotes() returned %d quotes, want 1", len(quotes))
	}
	if evals := orch.GetEvaluations(); len(evals) != 1 {
		t.Errorf("GetEvaluations() returned %d, want 1", len(evals))
	}
	if board := orch.GetScoreboard(); board == nil || board.Len() != 1 {
		t.Error("GetScoreboard() did not return the stored board")
	}

	status := orch.GetStatus()
	if status.Markets != 1 || status.Games != 1 || status.Evaluations != 1 {
		t.Errorf("Status counts = %+v, want 1/1/1", status)
	}
	if !status.LastPoll.Equal(now) {
		t.Errorf("LastPoll = %v, want the injected clock %v", status.LastPoll, now)
	}
	if !status.DryRun {
		t.Error("Status.DryRun = false, want true")
	}
	if status.Policy == nil || status.Paper == nil {
		t.Error("Status missing policy or paper sections")
	}
}

func TestRunOnce_MarketsFailure(t *testing.T) {
	scores := &fakeScores{board: boardWith()}
	markets := &fakeMarkets{err: errors.New("api down")}
	orch := NewOrchestrator(testConfig(time.Now()), scores, markets,
		engine.New(engine.Config{}), nil, nil)

	var results []*StageResult
	orch.OnStageComplete(func(r *StageResult) { results = append(results, r) })

	err := orch.RunOnce(context.Background())
	if err == nil {
		t.Fatal("RunOnce should surface the markets failure")
	}
	if !strings.Contains(err.Error(), "stage markets failed") {
		t.Errorf("error = %v, want a stage markets failure", err)
	}

	// Scores succeeded, markets failed, nothing after ran.
	if len(results) != 2 {
		t.Fatalf("Expected 2 stage results, got %d", len(results))
	}
	if results[0].Stage != StageScores || !results[0].Success {
		t.Errorf("first stage = %+v, want a successful scores stage", results[0])
	}
	if results[1].Stage != StageMarkets || results[1].Success || results[1].Error == "" {
		t.Errorf("second stage = %+v, want a failed markets stage", results[1])
	}
}

func TestRunOnce_MaxMarketsTruncates(t *testing.T) {
	cfg := testConfig(time.Now())
	cfg.MaxMarkets = 2
	markets := &fakeMarkets{quotes: []nba.MarketQuote{
		marketQuote("T1", 60, "Detroit", "LA Lakers"),
		marketQuote("T2", 61, "Orlando", "Boston"),
		marketQuote("T3", 62, "Utah", "Miami"),
	}}
	orch := NewOrchestrator(cfg, &fakeScores{board: boardWith()}, markets,
		engine.New(engine.Config{}), nil, nil)

	if err := orch.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce failed: %v", err)
	}

	quotes := orch.GetQuotes()
	if len(quotes) != 2 {
		t.Fatalf("Expected 2 quotes after truncation, got %d", len(quotes))
	}
	if quotes[0].Ticker != "T1" || quotes[1].Ticker != "T2" {
		t.Error("truncation should keep the head of the list")
	}
}

func TestAutoLift_PlacesPaperOrder(t *testing.T) {
	now := time.Date(2025, 11, 1, 19, 30, 0, 0, time.UTC)
	cfg := testConfig(now)
	cfg.AutoLift = true
	cfg.ContractCount = 2

	scores := &fakeScores{board: boardWith(postQ1Snapshot("Detroit", "LA Lakers", 20, 24))}
	markets := &fakeMarkets{quotes: []nba.MarketQuote{
		marketQuote(testTicker, 70, "Detroit", "LA Lakers"),
	}}
	pol := policy.NewPolicyEngine(nil)
	ledger := paper.NewLedger()
	orch := NewOrchestrator(cfg, scores, markets, engine.New(engine.Config{}), pol, ledger)

	var orders []*OrderEvent
	orch.OnOrder(func(e *OrderEvent) { orders = append(orders, e) })

	if err := orch.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce failed: %v", err)
	}

	if len(orders) != 1 {
		t.Fatalf("Expected 1 order event, got %d", len(orders))
	}
	if !orders[0].Paper || orders[0].Manual {
		t.Errorf("order event = %+v, want an automatic paper order", orders[0])
	}
	if orders[0].PriceCents != 70 || orders[0].Count != 2 {
		t.Errorf("order = %d @ %dc, want 2 @ 70c", orders[0].Count, orders[0].PriceCents)
	}

	// The bid at the ask fills against the same cycle's quotes.
	stats := ledger.Stats()
	if stats.Orders != 1 || stats.Fills != 1 {
		t.Errorf("ledger stats = %+v, want 1 order and 1 fill", stats)
	}

	dailyOrders, spend := pol.DailyStats()
	if dailyOrders != 1 {
		t.Errorf("policy recorded %d orders, want 1", dailyOrders)
	}
	if !spend.Equal(decimal.RequireFromString("1.4")) {
		t.Errorf("policy recorded spend %s, want 1.4", spend)
	}

	if !markets.canTrade && len(markets.bought) != 0 {
		t.Error("dry run must not reach the live exchange")
	}
}

func TestAutoLift_SkipsWithoutAcceptableAsk(t *testing.T) {
	cfg := testConfig(time.Now())
	cfg.AutoLift = true

	// No snapshot: the game classifies as pregame, which parks a bid
	// instead of lifting the ask.
	markets := &fakeMarkets{quotes: []nba.MarketQuote{
		marketQuote(testTicker, 70, "Detroit", "LA Lakers"),
	}}
	ledger := paper.NewLedger()
	orch := NewOrchestrator(cfg, &fakeScores{board: boardWith()}, markets,
		engine.New(engine.Config{}), nil, ledger)

	if err := orch.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce failed: %v", err)
	}
	if stats := ledger.Stats(); stats.Orders != 0 {
		t.Errorf("ledger has %d orders, want none before Q1 confirms", stats.Orders)
	}
}

func TestAutoLift_PolicyRejection(t *testing.T) {
	cfg := testConfig(time.Now())
	cfg.AutoLift = true

	scores := &fakeScores{board: boardWith(postQ1Snapshot("Detroit", "LA Lakers", 20, 24))}
	// 72c is an acceptable ask post-Q1 but above the tight price cap.
	markets := &fakeMarkets{quotes: []nba.MarketQuote{
		marketQuote(testTicker, 72, "Detroit", "LA Lakers"),
	}}
	pol := policy.NewPolicyEngine(policy.TightOrderLimits())
	ledger := paper.NewLedger()
	orch := NewOrchestrator(cfg, scores, markets, engine.New(engine.Config{}), pol, ledger)

	var errs []error
	orch.OnError(func(err error) { errs = append(errs, err) })
	orderEvents := 0
	orch.OnOrder(func(*OrderEvent) { orderEvents++ })

	if err := orch.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce failed: %v", err)
	}

	if len(errs) != 1 || !strings.Contains(errs[0].Error(), "policy rejected") {
		t.Errorf("OnError got %v, want a policy rejection", errs)
	}
	if orderEvents != 0 {
		t.Error("rejected order still produced an order event")
	}
	if stats := ledger.Stats(); stats.Orders != 0 {
		t.Error("rejected order reached the ledger")
	}
}

func TestAutoLift_SpikeVeto(t *testing.T) {
	clock := time.Date(2025, 11, 1, 19, 30, 0, 0, time.UTC)
	eng := engine.New(engine.Config{Now: func() time.Time { return clock }})

	// Latch a spike alert through the stream path.
	eng.ObservePrice(testTicker, 60)
	clock = clock.Add(35 * time.Second)
	if spiked, _ := eng.ObservePrice(testTicker, 70); !spiked {
		t.Fatal("spike did not latch")
	}

	cfg := testConfig(clock)
	cfg.AutoLift = true
	scores := &fakeScores{board: boardWith(postQ1Snapshot("Detroit", "LA Lakers", 20, 24))}
	markets := &fakeMarkets{quotes: []nba.MarketQuote{
		marketQuote(testTicker, 70, "Detroit", "LA Lakers"),
	}}
	ledger := paper.NewLedger()
	orch := NewOrchestrator(cfg, scores, markets, eng, nil, ledger)

	if err := orch.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce failed: %v", err)
	}
	if stats := ledger.Stats(); stats.Orders != 0 {
		t.Error("spiked market still traded")
	}

	status := orch.GetStatus()
	if len(status.ActiveSpikes) != 1 || status.ActiveSpikes[0] != testTicker {
		t.Errorf("ActiveSpikes = %v, want the latched ticker", status.ActiveSpikes)
	}

	orch.ClearSpike(testTicker)
	if len(orch.GetStatus().ActiveSpikes) != 0 {
		t.Error("ClearSpike did not reset the alert")
	}
}

func TestLiftAsk(t *testing.T) {
	now := time.Date(2025, 11, 1, 19, 30, 0, 0, time.UTC)
	scores := &fakeScores{board: boardWith(postQ1Snapshot("Detroit", "LA Lakers", 20, 24))}
	markets := &fakeMarkets{quotes: []nba.MarketQuote{
		marketQuote(testTicker, 70, "Detroit", "LA Lakers"),
	}}
	ledger := paper.NewLedger()
	orch := NewOrchestrator(testConfig(now), scores, markets,
		engine.New(engine.Config{}), policy.NewPolicyEngine(nil), ledger)

	var orders []*OrderEvent
	orch.OnOrder(func(e *OrderEvent) { orders = append(orders, e) })

	if err := orch.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce failed: %v", err)
	}

	orderID, err := orch.LiftAsk(context.Background(), testTicker, 3)
	if err != nil {
		t.Fatalf("LiftAsk failed: %v", err)
	}
	if orderID == "" {
		t.Error("LiftAsk returned an empty order ID")
	}
	if len(orders) != 1 || !orders[0].Manual || orders[0].PriceCents != 70 || orders[0].Count != 3 {
		t.Errorf("order events = %+v, want one manual 3 @ 70c", orders)
	}

	if _, err := orch.LiftAsk(context.Background(), "KXNBATOTAL-NOPE", 1); err == nil {
		t.Error("LiftAsk on an unknown ticker should fail")
	}
}

func TestLiftAsk_SpikeBlocks(t *testing.T) {
	clock := time.Date(2025, 11, 1, 19, 30, 0, 0, time.UTC)
	eng := engine.New(engine.Config{Now: func() time.Time { return clock }})
	eng.ObservePrice(testTicker, 60)
	clock = clock.Add(35 * time.Second)
	eng.ObservePrice(testTicker, 70)

	markets := &fakeMarkets{quotes: []nba.MarketQuote{
		marketQuote(testTicker, 70, "Detroit", "LA Lakers"),
	}}
	orch := NewOrchestrator(testConfig(clock), &fakeScores{board: boardWith()}, markets,
		eng, nil, paper.NewLedger())

	if err := orch.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce failed: %v", err)
	}
	if _, err := orch.LiftAsk(context.Background(), testTicker, 1); err == nil {
		t.Error("LiftAsk should refuse a spiked market")
	}
}

func TestLiftAsk_LivePath(t *testing.T) {
	cfg := testConfig(time.Now())
	cfg.DryRun = false

	scores := &fakeScores{board: boardWith(postQ1Snapshot("Detroit", "LA Lakers", 20, 24))}
	markets := &fakeMarkets{
		canTrade: true,
		quotes: []nba.MarketQuote{
			marketQuote(testTicker, 70, "Detroit", "LA Lakers"),
		},
	}
	ledger := paper.NewLedger()
	orch := NewOrchestrator(cfg, scores, markets,
		engine.New(engine.Config{}), policy.NewPolicyEngine(nil), ledger)

	if err := orch.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce failed: %v", err)
	}

	orderID, err := orch.LiftAsk(context.Background(), testTicker, 1)
	if err != nil {
		t.Fatalf("LiftAsk failed: %v", err)
	}
	if orderID != "ord-123" {
		t.Errorf("order ID = %s, want the exchange's ID", orderID)
	}
	if len(markets.bought) != 1 || markets.bought[0] != testTicker {
		t.Errorf("live orders = %v, want one for %s", markets.bought, testTicker)
	}
	if stats := ledger.Stats(); stats.Orders != 0 {
		t.Error("live order leaked into the paper ledger")
	}
}

func TestStartStop(t *testing.T) {
	orch := NewOrchestrator(testConfig(time.Now()), &fakeScores{board: boardWith()},
		&fakeMarkets{}, engine.New(engine.Config{}), nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := orch.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if !orch.IsRunning() {
		t.Error("IsRunning() = false after Start")
	}
	if err := orch.Start(ctx); err == nil {
		t.Error("second Start should fail while running")
	}

	orch.Stop()
	if orch.IsRunning() {
		t.Error("IsRunning() = true after Stop")
	}
}
