package engine

import "fmt"

// Labels for recommendations that carry no bid price; callers branch on
// these (the execute stage lifts the ask only on LabelAskAcceptable).
const (
	LabelDoNotBid      = "DO NOT BID"
	LabelNoTrade       = "NO TRADE"
	LabelAskAcceptable = "ASK ACCEPTABLE"
)

// Recommendation is the bid decision for one market. HasBid is false
// for the veto, no-trade, and lift-the-ask outcomes.
type Recommendation struct {
	Bid       int    `json:"bid"`
	HasBid    bool   `json:"has_bid"`
	Label     string `json:"label"`
	Rationale string `json:"rationale"`
}

// Recommend computes the bid for one market. Pure and total: first
// matching rule wins, every input produces a decision.
func Recommend(noAsk int, state GameState, q1Total int, q1Known, spiked, lockImminent bool) Recommendation {
	switch {
	case spiked:
		return Recommendation{Label: LabelDoNotBid, Rationale: "Market moved too fast, wait for cooldown"}

	case state == StatePregame:
		return bid(max(noAsk-10, 60), "Patient Pregame Bid", "Let price come to you, don't chase")

	case state == StateLiveQ1 && lockImminent:
		return bid(min(noAsk-5, 75), "Early Live Bid", "Q1 lock-in forming, tighten if desired")

	case state == StateLiveQ1:
		return bid(max(noAsk-8, 60), "Live Q1 Bid", "Waiting for Q1 end, park conservatively")

	case state == StatePostQ1:
		if q1Known && q1Total >= 55 {
			return Recommendation{Label: LabelNoTrade, Rationale: "Q1 too high, skip this game"}
		}
		if noAsk <= 75 {
			return Recommendation{Label: LabelAskAcceptable, Rationale: fmt.Sprintf("Lift ask at %dc if desired", noAsk)}
		}
		return bid(noAsk-3, "Post-Q1 Value Bid", "Information edge confirmed, tight spread OK")

	default:
		return bid(max(noAsk-10, 60), "Default Bid", "Conservative parking")
	}
}

func bid(cents int, label, rationale string) Recommendation {
	return Recommendation{Bid: cents, HasBid: true, Label: label, Rationale: rationale}
}
