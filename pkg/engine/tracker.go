package engine

import (
	"sort"
	"sync"
	"time"
)

const (
	// retentionWindow bounds how much price history is kept per ticker.
	retentionWindow = 120 * time.Second

	// DefaultSpikeThresholdCents and DefaultSpikeWindow are the stock
	// kill-switch parameters: a +5c move against a baseline at least
	// 30s old trips the alert.
	DefaultSpikeThresholdCents = 5
	DefaultSpikeWindow         = 30 * time.Second
)

// PriceSample is one observed NO ask price for a contract.
type PriceSample struct {
	Time  time.Time
	Cents int
}

// Tracker keeps a short rolling price history per contract ticker and a
// sticky spike alert per ticker. The alert survives the history aging
// out and clears only on an explicit operator action.
//
// A ticker with no history behaves exactly like one whose history has
// aged out; no method returns an error.
type Tracker struct {
	mu        sync.RWMutex
	history   map[string][]PriceSample
	alerts    map[string]bool
	threshold int
	window    time.Duration
}

// NewTracker creates a tracker that flags upward moves of at least
// thresholdCents against a baseline older than window.
func NewTracker(thresholdCents int, window time.Duration) *Tracker {
	return &Tracker{
		history:   make(map[string][]PriceSample),
		alerts:    make(map[string]bool),
		threshold: thresholdCents,
		window:    window,
	}
}

// RecordPrice appends a sample for the ticker and prunes everything
// older than the retention window relative to now.
func (t *Tracker) RecordPrice(ticker string, cents int, now time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()

	samples := append(t.history[ticker], PriceSample{Time: now, Cents: cents})
	cutoff := now.Add(-retentionWindow)

	kept := samples[:0]
	for _, s := range samples {
		if s.Time.After(cutoff) {
			kept = append(kept, s)
		}
	}
	t.history[ticker] = kept
}

// CheckSpike compares the current price against the earliest sample at
// least one window old. Without such a baseline it reports (false, 0):
// insufficient history is never a false positive. A delta at or above
// the threshold latches the sticky alert.
func (t *Tracker) CheckSpike(ticker string, currentCents int, now time.Time) (bool, int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	cutoff := now.Add(-t.window)
	baseline, ok := 0, false
	for _, s := range t.history[ticker] {
		if !s.Time.After(cutoff) {
			baseline, ok = s.Cents, true
			break
		}
	}
	if !ok {
		return false, 0
	}

	delta := currentCents - baseline
	if delta >= t.threshold {
		t.alerts[ticker] = true
		return true, delta
	}
	return false, delta
}

// IsSpiked reports the sticky alert for the ticker (default false).
func (t *Tracker) IsSpiked(ticker string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.alerts[ticker]
}

// ClearSpike resets the sticky alert for one ticker. History is kept.
func (t *Tracker) ClearSpike(ticker string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.alerts[ticker] = false
}

// ClearAllSpikes resets every sticky alert.
func (t *Tracker) ClearAllSpikes() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.alerts = make(map[string]bool)
}

// ActiveSpikes returns the tickers with a latched alert, sorted.
func (t *Tracker) ActiveSpikes() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var tickers []string
	for ticker, spiked := range t.alerts {
		if spiked {
			tickers = append(tickers, ticker)
		}
	}
	sort.Strings(tickers)
	return tickers
}
