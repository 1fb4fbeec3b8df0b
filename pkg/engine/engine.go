// Package engine implements the signal pipeline for NO-side extreme
// totals contracts: rolling price history with a sticky spike kill
// switch, game lifecycle classification, price tolerance regimes,
// additive confidence scoring, and bid recommendations.
//
// The engine performs no I/O. Collaborators hand it already-resolved
// quotes and score snapshots; it hands back plain Evaluation records.
package engine

import (
	"fmt"
	"time"

	"github.com/halfcourt/kalshi-edge/pkg/nba"
)

// Config tunes a SignalEngine. Zero values fall back to the stock
// parameters; Now is injectable for tests.
type Config struct {
	Watchlist      map[string]bool
	SpreadEstimate int
	SpikeThreshold int
	SpikeWindow    time.Duration
	Now            func() time.Time
}

// SignalEngine owns the session's mutable state (the price tracker) and
// static inputs (watchlist, spread estimate). One instance per process;
// all evaluation calls share it by reference.
type SignalEngine struct {
	tracker   *Tracker
	watchlist map[string]bool
	spreadEst int
	now       func() time.Time
}

// New creates a SignalEngine from cfg.
func New(cfg Config) *SignalEngine {
	if cfg.SpreadEstimate == 0 {
		cfg.SpreadEstimate = DefaultSpreadEstimate
	}
	if cfg.SpikeThreshold == 0 {
		cfg.SpikeThreshold = DefaultSpikeThresholdCents
	}
	if cfg.SpikeWindow == 0 {
		cfg.SpikeWindow = DefaultSpikeWindow
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Watchlist == nil {
		cfg.Watchlist = make(map[string]bool)
	}
	return &SignalEngine{
		tracker:   NewTracker(cfg.SpikeThreshold, cfg.SpikeWindow),
		watchlist: cfg.Watchlist,
		spreadEst: cfg.SpreadEstimate,
		now:       cfg.Now,
	}
}

// Evaluation is the full signal record for one market, consumed by the
// HTTP API, the stream hub, and the terminal UI.
type Evaluation struct {
	Quote    nba.MarketQuote   `json:"quote"`
	GameKey  string            `json:"game_key"`
	Snapshot *nba.GameSnapshot `json:"snapshot,omitempty"`

	State        GameState `json:"state"`
	LockImminent bool      `json:"lock_imminent"`
	Q1Total      int       `json:"q1_total"`
	Q1Known      bool      `json:"q1_known"`

	Spiked     bool `json:"spiked"`
	SpikeDelta int  `json:"spike_delta"`

	Ceiling int    `json:"ceiling"`
	Regime  string `json:"regime"`

	Score     int              `json:"score"`
	Verdict   string           `json:"verdict"`
	Severity  Severity         `json:"severity"`
	Breakdown []BreakdownEntry `json:"breakdown,omitempty"`

	Recommendation Recommendation `json:"recommendation"`

	WatchlistTeam string    `json:"watchlist_team,omitempty"`
	PriceBand     Band      `json:"price_band"`
	UnlockHint    string    `json:"unlock_hint,omitempty"`
	URL           string    `json:"url"`
	EvaluatedAt   time.Time `json:"evaluated_at"`
}

// Evaluate records the quote's price, runs spike detection, classifies
// the game, and produces the complete signal record. It is total:
// missing snapshots or empty quotes still yield a record, never an
// error. Per-market evaluations are independent; the tracker is the
// only shared mutable state.
func (e *SignalEngine) Evaluate(quote nba.MarketQuote, snap *nba.GameSnapshot) Evaluation {
	now := e.now()

	e.tracker.RecordPrice(quote.Ticker, quote.NoAsk, now)
	spiked, delta := e.tracker.CheckSpike(quote.Ticker, quote.NoAsk, now)
	if !spiked {
		spiked = e.tracker.IsSpiked(quote.Ticker)
	}

	state, lockImminent, q1Total, q1Known := Classify(snap)
	ceiling, regime := MaxPrice(q1Total, q1Known)
	score, verdict, severity, breakdown := Score(quote, q1Total, q1Known, e.watchlist, e.spreadEst)
	rec := Recommend(quote.NoAsk, state, q1Total, q1Known, spiked, lockImminent)

	watchlistTeam := ""
	if e.watchlist[quote.AwayTeam] {
		watchlistTeam = quote.AwayTeam
	} else if e.watchlist[quote.HomeTeam] {
		watchlistTeam = quote.HomeTeam
	}

	return Evaluation{
		Quote:          quote,
		GameKey:        nba.GameKey(quote.AwayTeam, quote.HomeTeam),
		Snapshot:       snap,
		State:          state,
		LockImminent:   lockImminent,
		Q1Total:        q1Total,
		Q1Known:        q1Known,
		Spiked:         spiked,
		SpikeDelta:     delta,
		Ceiling:        ceiling,
		Regime:         regime,
		Score:          score,
		Verdict:        verdict,
		Severity:       severity,
		Breakdown:      breakdown,
		Recommendation: rec,
		WatchlistTeam:  watchlistTeam,
		PriceBand:      PriceBandFor(quote.NoAsk),
		UnlockHint:     UnlockHint(quote.NoAsk),
		URL:            nba.KalshiURL(quote.EventTicker),
		EvaluatedAt:    now,
	}
}

// ObservePrice feeds an out-of-band price into the tracker and runs
// spike detection without a full evaluation. The market data stream
// uses it to tighten the kill switch between polls.
func (e *SignalEngine) ObservePrice(ticker string, noAsk int) (spiked bool, delta int) {
	now := e.now()
	e.tracker.RecordPrice(ticker, noAsk, now)
	return e.tracker.CheckSpike(ticker, noAsk, now)
}

// IsSpiked reports the sticky alert for a ticker.
func (e *SignalEngine) IsSpiked(ticker string) bool {
	return e.tracker.IsSpiked(ticker)
}

// ClearSpike resets the sticky alert for one ticker.
func (e *SignalEngine) ClearSpike(ticker string) {
	e.tracker.ClearSpike(ticker)
}

// ClearAllSpikes resets every sticky alert.
func (e *SignalEngine) ClearAllSpikes() {
	e.tracker.ClearAllSpikes()
}

// ActiveSpikes returns the tickers with a latched alert, sorted.
func (e *SignalEngine) ActiveSpikes() []string {
	return e.tracker.ActiveSpikes()
}

// Watchlist returns the engine's watchlist set.
func (e *SignalEngine) Watchlist() map[string]bool {
	return e.watchlist
}

// PriceBandFor buckets a NO ask for display: at or under the pregame
// ceiling is ok, within the best post-Q1 ceiling is wait, above that
// is expensive.
func PriceBandFor(noAsk int) Band {
	switch {
	case noAsk <= 68:
		return BandOK
	case noAsk <= 78:
		return BandWait
	default:
		return BandExpensive
	}
}

// UnlockHint explains which first-quarter regime would make an
// above-pregame price acceptable. Empty for prices already inside the
// pregame ceiling.
func UnlockHint(noAsk int) string {
	switch {
	case noAsk <= 68:
		return ""
	case noAsk <= 70:
		return fmt.Sprintf("Price %dc unlocks at Q1 50-54", noAsk)
	case noAsk <= 75:
		return fmt.Sprintf("Price %dc unlocks at Q1 48-49", noAsk)
	case noAsk <= 78:
		return fmt.Sprintf("Price %dc unlocks at Q1 < 48", noAsk)
	default:
		return fmt.Sprintf("Price %dc too expensive even with a great Q1", noAsk)
	}
}
