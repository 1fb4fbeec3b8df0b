// Package nba holds the canonical team tables and game/market data types
// shared by the score and market collaborators and the signal engine.
package nba

import (
	"github.com/shopspring/decimal"
)

// GameStatus is the lifecycle status of a game as reported by the
// score provider, reduced to a closed set.
type GameStatus string

const (
	StatusScheduled GameStatus = "SCHEDULED"
	StatusLive      GameStatus = "LIVE"
	StatusHalftime  GameStatus = "HALFTIME"
	StatusFinal     GameStatus = "FINAL"
	StatusPending   GameStatus = "PENDING"
)

// GameSnapshot is one poll's view of a single game. It is transient:
// produced fresh each poll, never stored across cycles.
type GameSnapshot struct {
	AwayTeam  string `json:"away_team"`
	HomeTeam  string `json:"home_team"`
	AwayScore int    `json:"away_score"`
	HomeScore int    `json:"home_score"`
	Period    int    `json:"period"`
	// QuarterLabel is for display only ("Q1", "End Q3", "HALF", "FINAL").
	QuarterLabel string `json:"quarter"`
	// PeriodEnded is set when the provider reports the current period as
	// finished (between-quarters break). Decision logic uses this flag,
	// never the label text.
	PeriodEnded bool       `json:"period_ended"`
	Clock       string     `json:"clock"`
	Status      GameStatus `json:"status"`
}

// Total returns the combined score.
func (g *GameSnapshot) Total() int {
	return g.AwayScore + g.HomeScore
}

// Key returns the canonical "Away@Home" game key.
func (g *GameSnapshot) Key() string {
	return GameKey(g.AwayTeam, g.HomeTeam)
}

// GameKey builds the join key between score snapshots and market quotes.
func GameKey(away, home string) string {
	return away + "@" + home
}

// MarketQuote is one poll's view of a single total-points contract.
// Prices are integer cents in [0,100].
type MarketQuote struct {
	Ticker      string          `json:"ticker"`
	EventTicker string          `json:"event_ticker"`
	Strike      decimal.Decimal `json:"strike"`
	AwayTeam    string          `json:"away_team"`
	HomeTeam    string          `json:"home_team"`
	YesAsk      int             `json:"yes_ask"`
	NoAsk       int             `json:"no_ask"`
	Volume      int             `json:"volume"`
}
