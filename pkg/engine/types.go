package engine

// GameState is the derived lifecycle state of a game. It is recomputed
// from the latest snapshot on every evaluation, never stored.
type GameState string

const (
	StatePregame GameState = "pregame"
	StateLiveQ1  GameState = "live_q1"
	StatePostQ1  GameState = "post_q1"
)

// Severity classifies a confidence result for display.
type Severity string

const (
	SeverityRed    Severity = "red"
	SeverityGray   Severity = "gray"
	SeverityGreen  Severity = "green"
	SeverityYellow Severity = "yellow"
	SeverityOrange Severity = "orange"
)

// Band buckets a NO ask price for display.
type Band string

const (
	BandOK        Band = "ok"
	BandWait      Band = "wait"
	BandExpensive Band = "expensive"
)

// BreakdownEntry records one scoring rule's contribution. The breakdown
// keeps evaluation order, so it is a slice rather than a map.
type BreakdownEntry struct {
	Rule   string `json:"rule"`
	Detail string `json:"detail"`
}
