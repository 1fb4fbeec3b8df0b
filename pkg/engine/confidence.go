package engine

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/halfcourt/kalshi-edge/pkg/nba"
)

// DefaultSpreadEstimate is the assumed closing spread when no per-game
// estimate is supplied; wider spreads mean less overtime risk for the
// NO side.
const DefaultSpreadEstimate = 5

var (
	strike252 = decimal.NewFromInt(252)
	strike250 = decimal.NewFromInt(250)
	strike248 = decimal.NewFromInt(248)
)

// Score rates a market 0-88 against the current tolerance regime.
// Vetoes short-circuit to zero: a first quarter at 55 or more, or a NO
// ask above the regime ceiling, is red; a missing first-quarter total
// is a gray deferral, not a rejection. The breakdown records the exact
// contribution of every rule it evaluated, including zeros.
func Score(quote nba.MarketQuote, q1Total int, q1Known bool, watchlist map[string]bool, spreadEst int) (score int, verdict string, severity Severity, breakdown []BreakdownEntry) {
	if q1Known && q1Total >= 55 {
		return 0, "Q1 >= 55 - NO TRADE", SeverityRed,
			[]BreakdownEntry{{Rule: "REJECTED", Detail: "Q1 too high"}}
	}

	ceiling, regime := MaxPrice(q1Total, q1Known)
	if q1Known && quote.NoAsk > ceiling {
		return 0, fmt.Sprintf("Price %dc > %dc for %s", quote.NoAsk, ceiling, regime), SeverityRed,
			[]BreakdownEntry{{Rule: "REJECTED", Detail: "Overpriced"}}
	}
	if !q1Known {
		return 0, "WAIT FOR Q1", SeverityGray, nil
	}

	var q1Pts int
	switch {
	case q1Total < 45:
		q1Pts = 30
	case q1Total < 48:
		q1Pts = 27
	case q1Total < 50:
		q1Pts = 22
	default:
		q1Pts = 15
	}
	score += q1Pts
	breakdown = append(breakdown, BreakdownEntry{"Q1 Regime", fmt.Sprintf("%d/30", q1Pts)})

	wlPts := 0
	if watchlist[quote.AwayTeam] || watchlist[quote.HomeTeam] {
		wlPts = 20
	}
	score += wlPts
	breakdown = append(breakdown, BreakdownEntry{"Watchlist", fmt.Sprintf("+%d", wlPts)})

	buffer := ceiling - quote.NoAsk
	var pricePts int
	switch {
	case buffer >= 10:
		pricePts = 20
	case buffer >= 6:
		pricePts = 15
	case buffer >= 3:
		pricePts = 10
	default:
		pricePts = 5
	}
	score += pricePts
	breakdown = append(breakdown, BreakdownEntry{"Price Buffer", fmt.Sprintf("%d/20 (buffer %dc)", pricePts, buffer)})

	var strikePts int
	switch {
	case quote.Strike.GreaterThanOrEqual(strike252):
		strikePts = 10
	case quote.Strike.GreaterThanOrEqual(strike250):
		strikePts = 7
	case quote.Strike.GreaterThanOrEqual(strike248):
		strikePts = 5
	default:
		strikePts = 3
	}
	score += strikePts
	breakdown = append(breakdown, BreakdownEntry{"Threshold", fmt.Sprintf("%d/10 (strike %s)", strikePts, quote.Strike)})

	var spreadPts int
	switch {
	case spreadEst >= 7:
		spreadPts = 8
	case spreadEst >= 5:
		spreadPts = 5
	default:
		spreadPts = 2
	}
	score += spreadPts
	breakdown = append(breakdown, BreakdownEntry{"OT Risk", fmt.Sprintf("%d/8 (spread %d)", spreadPts, spreadEst)})

	switch {
	case score >= 75:
		return score, "STRONG BET", SeverityGreen, breakdown
	case score >= 60:
		return score, "GOOD BET", SeverityGreen, breakdown
	case score >= 45:
		return score, "MARGINAL", SeverityYellow, breakdown
	default:
		return score, "WEAK", SeverityOrange, breakdown
	}
}
