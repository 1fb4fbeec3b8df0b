// edged is the NBA extreme totals edge daemon. It polls the live
// scoreboard and the exchange's totals markets, runs every contract
// through the signal engine, and serves the resulting recommendations
// over an HTTP status API, a WebSocket event stream, and an optional
// terminal dashboard.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/halfcourt/kalshi-edge/pkg/config"
	"github.com/halfcourt/kalshi-edge/pkg/engine"
	"github.com/halfcourt/kalshi-edge/pkg/espn"
	"github.com/halfcourt/kalshi-edge/pkg/kalshi"
	"github.com/halfcourt/kalshi-edge/pkg/nba"
	"github.com/halfcourt/kalshi-edge/pkg/trader/metrics"
	"github.com/halfcourt/kalshi-edge/pkg/trader/orchestrator"
	"github.com/halfcourt/kalshi-edge/pkg/trader/paper"
	"github.com/halfcourt/kalshi-edge/pkg/trader/policy"
	"github.com/halfcourt/kalshi-edge/pkg/trader/streaming"
	"github.com/halfcourt/kalshi-edge/pkg/ui"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"
)

var (
	// Flags override the environment; zero values fall back to it.
	httpAddr   = flag.String("http", "", "HTTP server address for the status API (default from EDGE_HTTP_ADDR)")
	minStrike  = flag.Int("min-strike", 0, "Minimum floor strike to scan (default from EDGE_MIN_STRIKE)")
	pollEvery  = flag.Duration("poll", 0, "Market poll interval (default from EDGE_POLL_INTERVAL_SEC)")
	scoreEvery = flag.Duration("scores", 0, "Scoreboard refresh interval (default from EDGE_SCORE_INTERVAL_SEC)")
	liveMode   = flag.Bool("live", false, "Enable live order entry (requires credentials; overrides EDGE_DRY_RUN)")
	autoLift   = flag.Bool("auto-lift", false, "Lift acceptable asks automatically (overrides EDGE_AUTO_LIFT)")
	tuiMode    = flag.Bool("tui", false, "Run the terminal dashboard")
	onceMode   = flag.Bool("once", false, "Run a single poll cycle, print the signals, and exit")
	verbose    = flag.Bool("verbose", false, "Verbose logging")
)

func main() {
	flag.Parse()

	log.SetFlags(log.Ldate | log.Ltime | log.Lmicroseconds)
	log.Println("Starting NBA extreme totals edge daemon")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	applyFlagOverrides(cfg)

	// Context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	d, err := newDaemon(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to initialize daemon: %v", err)
	}
	d.wireCallbacks()

	go d.streamHub.Run(ctx)

	if *onceMode {
		if err := d.orch.RunOnce(ctx); err != nil {
			log.Fatalf("Poll cycle failed: %v", err)
		}
		d.printSignals()
		return
	}

	go d.startHTTP()

	if err := d.orch.Start(ctx); err != nil {
		log.Fatalf("Failed to start orchestrator: %v", err)
	}
	d.startStream(ctx)

	mode := "PAPER"
	if !cfg.DryRun {
		mode = "LIVE"
	}
	log.Printf("Daemon running (mode=%s, min-strike=%d, http=%s)", mode, cfg.MinStrike, cfg.HTTPAddr)
	log.Printf("WebSocket event stream available at ws://%s/ws", cfg.HTTPAddr)

	if *tuiMode {
		// The dashboard owns the terminal; a signal stops it and
		// unwinds through the normal shutdown path.
		app := ui.NewApp(d.orch)
		go func() {
			<-sigCh
			app.Stop()
		}()
		if err := app.Run(); err != nil {
			log.Printf("[ERROR] dashboard: %v", err)
		}
	} else {
		log.Println("Press Ctrl+C to stop")
		<-sigCh
	}

	log.Println("Shutting down...")
	d.orch.Stop()
	if d.stream != nil {
		d.stream.Close()
	}
	cancel()

	stats := d.ledger.Stats()
	orders, spend := d.policyEngine.DailyStats()
	log.Printf("Final stats: orders=%d fills=%d open=%d cost=$%s (today: %d orders, $%s)",
		stats.Orders, stats.Fills, stats.Open, stats.TotalCost, orders, spend)
	log.Println("Goodbye!")
}

// applyFlagOverrides layers explicit flags over the environment config.
func applyFlagOverrides(cfg *config.Config) {
	if *httpAddr != "" {
		cfg.HTTPAddr = *httpAddr
	}
	if *minStrike > 0 {
		cfg.MinStrike = *minStrike
	}
	if *pollEvery > 0 {
		cfg.PollInterval = *pollEvery
	}
	if *scoreEvery > 0 {
		cfg.ScoreInterval = *scoreEvery
	}
	if *liveMode {
		cfg.DryRun = false
	}
	if *autoLift {
		cfg.AutoLift = true
	}
}

type edgeDaemon struct {
	cfg *config.Config

	espnClient   *espn.Client
	kalshiClient *kalshi.Client
	eng          *engine.SignalEngine
	policyEngine *policy.PolicyEngine
	ledger       *paper.Ledger
	orch         *orchestrator.Orchestrator
	metrics      *metrics.EdgeMetrics
	streamHub    *streaming.Hub
	stream       *kalshi.StreamClient

	mu         sync.Mutex
	alerted    map[string]bool // tickers already announced as spiked
	streamSubs map[string]bool
	cycleSecs  float64
}

func newDaemon(ctx context.Context, cfg *config.Config) (*edgeDaemon, error) {
	d := &edgeDaemon{
		cfg:        cfg,
		metrics:    metrics.NewEdgeMetrics(),
		streamHub:  streaming.NewHub(),
		alerted:    make(map[string]bool),
		streamSubs: make(map[string]bool),
	}

	d.espnClient = espn.NewClient()

	// The market client signs requests only when both credentials are
	// configured; otherwise it is read-only and order entry stays on
	// the paper ledger.
	var signer *kalshi.Signer
	if cfg.HasCredentials() {
		pem, err := cfg.PrivateKeyPEM()
		if err != nil {
			return nil, err
		}
		signer, err = kalshi.NewSigner(cfg.KalshiAPIKeyID, pem)
		if err != nil {
			return nil, fmt.Errorf("load signing key: %w", err)
		}
		log.Printf("Exchange client initialized (key %s)", cfg.MaskedAPIKeyID())
		d.kalshiClient = kalshi.NewClient(kalshi.WithSigner(signer))
	} else {
		log.Println("No exchange credentials - client in read-only mode")
		d.kalshiClient = kalshi.NewClient()
	}

	if !cfg.DryRun {
		if !d.kalshiClient.CanTrade() {
			log.Println("[ERROR] Live mode requires credentials, staying in paper mode")
			cfg.DryRun = true
		} else if err := checkJurisdiction(ctx); err != nil {
			log.Printf("[ERROR] %v - staying in paper mode", err)
			cfg.DryRun = true
		}
	}

	watchlist := nba.BuildWatchlist()
	log.Printf("Watchlist: %s", strings.Join(nba.WatchlistTeams(), ", "))

	d.eng = engine.New(engine.Config{
		Watchlist:      watchlist,
		SpreadEstimate: cfg.SpreadEstimate,
	})

	limits := policy.DefaultOrderLimits()
	limits.MaxDailySpend = decimal.NewFromFloat(cfg.MaxDailySpend)
	d.policyEngine = policy.NewPolicyEngine(limits)

	d.ledger = paper.NewLedger()
	d.ledger.OnFill(func(o *paper.Order) {
		log.Printf("[FILL] %s x%d @ %dc (paper)", o.Ticker, o.Count, o.FillCents)
		d.metrics.RecordOrder("paper", "filled", o.FillCents)
		d.streamHub.BroadcastOrder(o)
	})

	orchConfig := orchestrator.DefaultConfig()
	orchConfig.MinStrike = cfg.MinStrike
	orchConfig.MaxMarkets = cfg.MaxMarkets
	orchConfig.PollInterval = cfg.PollInterval
	orchConfig.ScoreInterval = cfg.ScoreInterval
	orchConfig.DryRun = cfg.DryRun
	orchConfig.AutoLift = cfg.AutoLift
	orchConfig.ContractCount = cfg.ContractCount

	d.orch = orchestrator.NewOrchestrator(
		orchConfig,
		d.espnClient,
		d.kalshiClient,
		d.eng,
		d.policyEngine,
		d.ledger,
	)

	if cfg.EnableWSS {
		if signer == nil {
			log.Println("EDGE_ENABLE_WSS set without credentials - market data stream disabled")
		} else {
			stream, err := kalshi.NewStreamClient(kalshi.StreamConfig{
				Signer: signer,
				Handlers: kalshi.StreamHandlers{
					OnTicker: d.handleTick,
					OnConnect: func() {
						log.Println("[WSS] Market data stream connected")
					},
					OnDisconnect: func(err error) {
						log.Printf("[WSS] Market data stream dropped: %v", err)
						d.metrics.RecordStreamReconnect()
					},
					OnError: func(err error) {
						log.Printf("[WSS] %v", err)
					},
				},
			})
			if err != nil {
				return nil, fmt.Errorf("market data stream: %w", err)
			}
			d.stream = stream
		}
	}

	return d, nil
}

// checkJurisdiction screens the operator's location before live order
// entry is allowed.
func checkJurisdiction(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	checker := policy.NewJurisdictionChecker()
	check, err := checker.Check(ctx)
	if err != nil {
		return fmt.Errorf("jurisdiction check failed: %w", err)
	}
	if !check.Allowed {
		return errors.New(check.Reason)
	}
	log.Printf("Jurisdiction check passed (%s, %s)", check.RegionName, check.CountryCode)
	return nil
}

// wireCallbacks connects orchestrator events to logging, metrics, and
// the WebSocket hub. Library packages return errors and data; all
// operational logging happens here.
func (d *edgeDaemon) wireCallbacks() {
	d.orch.OnStageComplete(func(result *orchestrator.StageResult) {
		d.metrics.RecordStage(string(result.Stage), result.Duration.Seconds())
		d.streamHub.BroadcastStage(result)

		if *verbose || !result.Success {
			log.Printf("[STAGE] %s %s (%.1fms)", result.Stage, statusStr(result.Success),
				float64(result.Duration.Microseconds())/1000)
			if result.Error != "" {
				log.Printf("  error: %s", result.Error)
			}
		}

		switch result.Stage {
		case orchestrator.StageScores:
			d.metrics.RecordAPIRequest("espn", statusStr(result.Success), result.Duration.Seconds())
			d.streamHub.BroadcastScores(d.orch.GetScoreboard())

		case orchestrator.StageMarkets:
			d.metrics.RecordAPIRequest("kalshi", statusStr(result.Success), result.Duration.Seconds())
			d.mu.Lock()
			d.cycleSecs = result.Duration.Seconds()
			d.mu.Unlock()
			d.subscribeMarkets()

		case orchestrator.StageEvaluate:
			d.mu.Lock()
			d.cycleSecs += result.Duration.Seconds()
			d.mu.Unlock()

			status := d.orch.GetStatus()
			d.metrics.UpdateTracked(status.Markets, status.Games)
			d.metrics.UpdateActiveSpikes(len(status.ActiveSpikes))

		case orchestrator.StageExecute:
			d.mu.Lock()
			cycle := d.cycleSecs + result.Duration.Seconds()
			d.cycleSecs = 0
			d.mu.Unlock()
			d.metrics.RecordPoll(statusStr(result.Success), cycle)
			d.streamHub.BroadcastStatus(d.orch.GetStatus())
		}
	})

	d.orch.OnEvaluation(func(ev *engine.Evaluation) {
		d.metrics.RecordEvaluation(ev.Quote.Ticker, ev.Verdict, ev.Score, ev.Quote.NoAsk)
		d.streamHub.BroadcastEvaluation(ev)
		d.noteSpike(ev.Quote.Ticker, ev.Spiked, ev.SpikeDelta)

		if *verbose || ev.Score >= 60 {
			log.Printf("[SIGNAL] %s score=%d (%s) state=%s regime=%s %s",
				ev.Quote.Ticker, ev.Score, ev.Verdict, ev.State, ev.Regime,
				recommendationStr(&ev.Recommendation))
		}
	})

	d.orch.OnOrder(func(ev *orchestrator.OrderEvent) {
		mode := "live"
		if ev.Paper {
			mode = "paper"
		}
		entry := "auto"
		if ev.Manual {
			entry = "manual"
		}
		log.Printf("[ORDER] %s x%d @ %dc (%s, %s) id=%s",
			ev.Ticker, ev.Count, ev.PriceCents, mode, entry, ev.OrderID)

		d.metrics.RecordOrder(mode, "placed", ev.PriceCents)
		orders, spend := d.policyEngine.DailyStats()
		d.metrics.UpdateDailyUsage(orders, spend)
		d.streamHub.BroadcastOrder(ev)
	})

	d.orch.OnError(func(err error) {
		log.Printf("[ERROR] %v", err)
		if errors.Is(err, policy.ErrRejected) {
			d.metrics.RecordPolicyRejection("limits")
		}
		d.streamHub.BroadcastError(err, "orchestrator")
	})
}

// noteSpike announces a spike alert once per latch. The alert itself
// stays sticky in the engine; this only deduplicates the log line and
// the metric, re-arming after the alert is cleared.
func (d *edgeDaemon) noteSpike(ticker string, spiked bool, delta int) {
	d.mu.Lock()
	fresh := spiked && !d.alerted[ticker]
	if spiked {
		d.alerted[ticker] = true
	} else {
		delete(d.alerted, ticker)
	}
	d.mu.Unlock()

	if fresh {
		log.Printf("[SPIKE] %s jumped +%dc inside the window, bidding disabled", ticker, delta)
		d.metrics.RecordSpike(ticker, delta)
		d.streamHub.BroadcastSpike(ticker, delta)
	}
}

// startStream connects the optional market data stream, which feeds
// ticks into the spike tracker between polls.
func (d *edgeDaemon) startStream(ctx context.Context) {
	if d.stream == nil {
		return
	}
	if err := d.stream.Connect(ctx); err != nil {
		log.Printf("[WSS] Connect failed, continuing on polls alone: %v", err)
	}
}

// handleTick feeds one stream tick into the engine's price tracker.
func (d *edgeDaemon) handleTick(t kalshi.TickerUpdate) {
	noAsk := t.NoAsk()
	if noAsk <= 0 {
		return
	}
	d.metrics.RecordStreamTick()
	spiked, delta := d.eng.ObservePrice(t.MarketTicker, noAsk)
	d.noteSpike(t.MarketTicker, spiked || d.eng.IsSpiked(t.MarketTicker), delta)
}

// subscribeMarkets syncs the stream subscription set to the latest
// scan, dropping tickers that fell out of it.
func (d *edgeDaemon) subscribeMarkets() {
	if d.stream == nil {
		return
	}

	quotes := d.orch.GetQuotes()
	current := make(map[string]bool, len(quotes))
	for _, q := range quotes {
		current[q.Ticker] = true
	}

	d.mu.Lock()
	add := make([]string, 0, len(quotes))
	for t := range current {
		if !d.streamSubs[t] {
			add = append(add, t)
		}
	}
	var drop []string
	for t := range d.streamSubs {
		if !current[t] {
			drop = append(drop, t)
		}
	}
	d.streamSubs = current
	d.mu.Unlock()

	if len(drop) > 0 {
		d.stream.Unsubscribe(drop...)
	}
	if len(add) > 0 {
		if err := d.stream.Subscribe(add...); err != nil {
			log.Printf("[WSS] Subscribe failed: %v", err)
		}
	}
}

// printSignals writes the one-shot evaluation summary, best score
// first as delivered by the orchestrator.
func (d *edgeDaemon) printSignals() {
	evals := d.orch.GetEvaluations()
	if len(evals) == 0 {
		log.Println("No extreme totals markets for today's slate")
		return
	}

	for i := range evals {
		ev := &evals[i]
		log.Printf("%-34s strike=%s NO=%dc score=%d (%s)",
			ev.Quote.Ticker, ev.Quote.Strike, ev.Quote.NoAsk, ev.Score, ev.Verdict)
		log.Printf("  state=%s regime=%s ceiling=%dc spiked=%v %s",
			ev.State, ev.Regime, ev.Ceiling, ev.Spiked, recommendationStr(&ev.Recommendation))
		for _, entry := range ev.Breakdown {
			log.Printf("    %-18s %s", entry.Rule, entry.Detail)
		}
	}
}

// --- HTTP status API ---

func (d *edgeDaemon) startHTTP() {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]string{"status": "ok"})
	})

	mux.HandleFunc("/status", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, d.orch.GetStatus())
	})

	mux.HandleFunc("/markets", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, d.orch.GetQuotes())
	})

	mux.HandleFunc("/signals", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, d.orch.GetEvaluations())
	})

	mux.HandleFunc("/scores", func(w http.ResponseWriter, r *http.Request) {
		board := d.orch.GetScoreboard()
		if board == nil {
			board = &espn.Scoreboard{}
		}
		writeJSON(w, map[string]interface{}{
			"fetched_at": board.FetchedAt,
			"games":      board.Games,
		})
	})

	mux.HandleFunc("/policy", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, d.policyEngine.Status())
	})

	mux.HandleFunc("/paper", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]interface{}{
			"stats":  d.ledger.Stats(),
			"open":   d.ledger.OpenOrders(),
			"orders": d.ledger.Orders(),
		})
	})

	mux.HandleFunc("/spikes", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]interface{}{"active": d.eng.ActiveSpikes()})
	})

	// Clearing is the only mutating endpoint: the kill switch stays
	// latched until the operator acknowledges it here or in the TUI.
	mux.HandleFunc("/spikes/clear", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "POST required", http.StatusMethodNotAllowed)
			return
		}
		if ticker := r.URL.Query().Get("ticker"); ticker != "" {
			d.orch.ClearSpike(ticker)
			log.Printf("[SPIKE] %s cleared by operator", ticker)
		} else {
			d.orch.ClearAllSpikes()
			log.Println("[SPIKE] All alerts cleared by operator")
		}
		d.metrics.UpdateActiveSpikes(len(d.eng.ActiveSpikes()))
		writeJSON(w, map[string]interface{}{"active": d.eng.ActiveSpikes()})
	})

	mux.HandleFunc("/lift", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "POST required", http.StatusMethodNotAllowed)
			return
		}
		ticker := r.URL.Query().Get("ticker")
		if ticker == "" {
			http.Error(w, "ticker required", http.StatusBadRequest)
			return
		}

		orderID, err := d.orch.LiftAsk(r.Context(), ticker, 0)
		if err != nil {
			status := http.StatusBadRequest
			if errors.Is(err, policy.ErrRejected) {
				status = http.StatusConflict
				d.metrics.RecordPolicyRejection("limits")
			}
			http.Error(w, err.Error(), status)
			return
		}
		writeJSON(w, map[string]string{"order_id": orderID})
	})

	mux.Handle("/metrics", promhttp.HandlerFor(d.metrics.Registry(), promhttp.HandlerOpts{}))

	mux.HandleFunc("/ws", d.streamHub.ServeWS)

	server := &http.Server{
		Addr:         d.cfg.HTTPAddr,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	log.Printf("HTTP server listening on %s", d.cfg.HTTPAddr)
	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		log.Printf("HTTP server error: %v", err)
	}
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func statusStr(success bool) string {
	if success {
		return "OK"
	}
	return "FAILED"
}

func recommendationStr(rec *engine.Recommendation) string {
	if rec.HasBid {
		return fmt.Sprintf("bid %dc (%s)", rec.Bid, rec.Label)
	}
	return fmt.Sprintf("%s - %s", rec.Label, rec.Rationale)
}
