// Package metrics provides Prometheus metrics for the signal daemon.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
)

// EdgeMetrics collects and exposes daemon-level Prometheus metrics.
type EdgeMetrics struct {
	registry *prometheus.Registry

	// Poll metrics
	PollRuns     *prometheus.CounterVec
	PollDuration *prometheus.HistogramVec
	StageLatency *prometheus.HistogramVec

	// Upstream API metrics
	APIRequests *prometheus.CounterVec
	APILatency  *prometheus.HistogramVec

	// Market metrics
	TrackedMarkets *prometheus.GaugeVec
	TrackedGames   *prometheus.GaugeVec
	NoAskCents     *prometheus.GaugeVec

	// Signal metrics
	EvaluationsTotal  *prometheus.CounterVec
	SignalScore       *prometheus.GaugeVec
	ScoreDistribution *prometheus.HistogramVec

	// Spike metrics
	SpikesTotal  *prometheus.CounterVec
	SpikeDelta   *prometheus.HistogramVec
	ActiveSpikes *prometheus.GaugeVec

	// Order metrics
	OrdersTotal      *prometheus.CounterVec
	OrderPrice       *prometheus.HistogramVec
	PolicyRejections *prometheus.CounterVec
	DailyOrders      *prometheus.GaugeVec
	DailySpend       *prometheus.GaugeVec

	// Stream metrics
	StreamTicks      *prometheus.CounterVec
	StreamReconnects *prometheus.CounterVec
}

// NewEdgeMetrics creates a new daemon metrics collector.
func NewEdgeMetrics() *EdgeMetrics {
	registry := prometheus.NewRegistry()

	em := &EdgeMetrics{
		registry: registry,

		// Poll metrics
		PollRuns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "edge_poll_runs_total",
				Help: "Total number of poll cycles",
			},
			[]string{"status"},
		),
		PollDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "edge_poll_duration_seconds",
				Help:    "Full poll cycle duration",
				Buckets: prometheus.ExponentialBuckets(0.1, 2, 10), // 100ms to ~50s
			},
			[]string{},
		),
		StageLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "edge_stage_latency_seconds",
				Help:    "Individual stage latency",
				Buckets: prometheus.ExponentialBuckets(0.01, 2, 12), // 10ms to ~40s
			},
			[]string{"stage"},
		),

		// Upstream API metrics
		APIRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "edge_api_requests_total",
				Help: "Total upstream API requests",
			},
			[]string{"api", "status"},
		),
		APILatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "edge_api_latency_seconds",
				Help:    "Upstream API request latency",
				Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
			},
			[]string{"api"},
		),

		// Market metrics
		TrackedMarkets: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "edge_tracked_markets",
				Help: "Number of contracts on the last poll",
			},
			[]string{},
		),
		TrackedGames: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "edge_tracked_games",
				Help: "Number of games on today's scoreboard",
			},
			[]string{},
		),
		NoAskCents: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "edge_no_ask_cents",
				Help: "Latest NO ask per contract in cents",
			},
			[]string{"ticker"},
		),

		// Signal metrics
		EvaluationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "edge_evaluations_total",
				Help: "Total signal evaluations by verdict",
			},
			[]string{"verdict"},
		),
		SignalScore: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "edge_signal_score",
				Help: "Latest confidence score per contract (0-100)",
			},
			[]string{"ticker"},
		),
		ScoreDistribution: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "edge_score_distribution",
				Help:    "Distribution of confidence scores",
				Buckets: prometheus.LinearBuckets(0, 10, 11), // 0 to 100
			},
			[]string{},
		),

		// Spike metrics
		SpikesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "edge_price_spikes_total",
				Help: "Total price spike alerts",
			},
			[]string{"ticker"},
		),
		SpikeDelta: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "edge_spike_delta_cents",
				Help:    "Size of detected price spikes in cents",
				Buckets: []float64{5, 6, 8, 10, 15, 20, 30, 50},
			},
			[]string{},
		),
		ActiveSpikes: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "edge_active_spikes",
				Help: "Contracts currently under a spike alert",
			},
			[]string{},
		),

		// Order metrics
		OrdersTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "edge_orders_total",
				Help: "Total orders by mode and outcome",
			},
			[]string{"mode", "status"},
		),
		OrderPrice: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "edge_order_price_cents",
				Help:    "Limit price of placed orders in cents",
				Buckets: prometheus.LinearBuckets(40, 5, 13), // 40c to 100c
			},
			[]string{"mode"},
		),
		PolicyRejections: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "edge_policy_rejections_total",
				Help: "Orders rejected before placement",
			},
			[]string{"reason"},
		),
		DailyOrders: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "edge_daily_orders",
				Help: "Orders placed today",
			},
			[]string{},
		),
		DailySpend: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "edge_daily_spend_usd",
				Help: "Order cost committed today in USD",
			},
			[]string{},
		),

		// Stream metrics
		StreamTicks: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "edge_stream_ticks_total",
				Help: "Price ticks received over the market data stream",
			},
			[]string{},
		),
		StreamReconnects: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "edge_stream_reconnects_total",
				Help: "Market data stream reconnects",
			},
			[]string{},
		),
	}

	// Register all metrics
	em.registerAll()

	return em
}

func (em *EdgeMetrics) registerAll() {
	em.registry.MustRegister(
		em.PollRuns,
		em.PollDuration,
		em.StageLatency,
		em.APIRequests,
		em.APILatency,
		em.TrackedMarkets,
		em.TrackedGames,
		em.NoAskCents,
		em.EvaluationsTotal,
		em.SignalScore,
		em.ScoreDistribution,
		em.SpikesTotal,
		em.SpikeDelta,
		em.ActiveSpikes,
		em.OrdersTotal,
		em.OrderPrice,
		em.PolicyRejections,
		em.DailyOrders,
		em.DailySpend,
		em.StreamTicks,
		em.StreamReconnects,
	)
}

// Registry returns the prometheus registry.
func (em *EdgeMetrics) Registry() *prometheus.Registry {
	return em.registry
}

// --- Helper methods for recording metrics ---

// RecordPoll records a completed poll cycle.
func (em *EdgeMetrics) RecordPoll(status string, durationSec float64) {
	em.PollRuns.WithLabelValues(status).Inc()
	if durationSec > 0 {
		em.PollDuration.WithLabelValues().Observe(durationSec)
	}
}

// RecordStage records a stage execution.
func (em *EdgeMetrics) RecordStage(stage string, durationSec float64) {
	em.StageLatency.WithLabelValues(stage).Observe(durationSec)
}

// RecordAPIRequest records an upstream API call.
func (em *EdgeMetrics) RecordAPIRequest(api, status string, latencySec float64) {
	em.APIRequests.WithLabelValues(api, status).Inc()
	if latencySec > 0 {
		em.APILatency.WithLabelValues(api).Observe(latencySec)
	}
}

// UpdateTracked updates the market and game counts.
func (em *EdgeMetrics) UpdateTracked(markets, games int) {
	em.TrackedMarkets.WithLabelValues().Set(float64(markets))
	em.TrackedGames.WithLabelValues().Set(float64(games))
}

// RecordEvaluation records one signal evaluation.
func (em *EdgeMetrics) RecordEvaluation(ticker, verdict string, score, noAskCents int) {
	em.EvaluationsTotal.WithLabelValues(verdict).Inc()
	em.SignalScore.WithLabelValues(ticker).Set(float64(score))
	em.ScoreDistribution.WithLabelValues().Observe(float64(score))
	if noAskCents > 0 {
		em.NoAskCents.WithLabelValues(ticker).Set(float64(noAskCents))
	}
}

// RecordSpike records a price spike alert.
func (em *EdgeMetrics) RecordSpike(ticker string, deltaCents int) {
	em.SpikesTotal.WithLabelValues(ticker).Inc()
	em.SpikeDelta.WithLabelValues().Observe(float64(deltaCents))
}

// UpdateActiveSpikes updates the live spike alert count.
func (em *EdgeMetrics) UpdateActiveSpikes(count int) {
	em.ActiveSpikes.WithLabelValues().Set(float64(count))
}

// RecordOrder records an order attempt.
func (em *EdgeMetrics) RecordOrder(mode, status string, priceCents int) {
	em.OrdersTotal.WithLabelValues(mode, status).Inc()
	if priceCents > 0 {
		em.OrderPrice.WithLabelValues(mode).Observe(float64(priceCents))
	}
}

// RecordPolicyRejection records an order stopped before placement.
func (em *EdgeMetrics) RecordPolicyRejection(reason string) {
	em.PolicyRejections.WithLabelValues(reason).Inc()
}

// UpdateDailyUsage updates the daily order and spend gauges.
func (em *EdgeMetrics) UpdateDailyUsage(orders int, spend decimal.Decimal) {
	em.DailyOrders.WithLabelValues().Set(float64(orders))
	em.DailySpend.WithLabelValues().Set(DecimalToFloat64(spend))
}

// RecordStreamTick records one price tick from the market data stream.
func (em *EdgeMetrics) RecordStreamTick() {
	em.StreamTicks.WithLabelValues().Inc()
}

// RecordStreamReconnect records a market data stream reconnect.
func (em *EdgeMetrics) RecordStreamReconnect() {
	em.StreamReconnects.WithLabelValues().Inc()
}

// --- Decimal helpers ---

// DecimalToFloat64 safely converts decimal.Decimal to float64 for metrics.
func DecimalToFloat64(d decimal.Decimal) float64 {
	f, _ := d.Float64()
	return f
}

// Global instance for convenience
var defaultMetrics *EdgeMetrics
var once sync.Once

// Default returns the default global metrics instance.
func Default() *EdgeMetrics {
	once.Do(func() {
		defaultMetrics = NewEdgeMetrics()
	})
	return defaultMetrics
}
