package ui

import (
	"fmt"

	"github.com/rivo/tview"

	"github.com/halfcourt/kalshi-edge/pkg/engine"
)

// WatchlistView displays NO entries on games with a watchlist team,
// split by whether the ask is inside the pregame ceiling.
type WatchlistView struct {
	textView *tview.TextView
}

// NewWatchlistView creates a new watchlist view.
func NewWatchlistView() *WatchlistView {
	textView := tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(true)

	textView.SetTitle(" Watchlist NO Entries ").SetBorder(true)

	return &WatchlistView{
		textView: textView,
	}
}

// Widget returns the tview primitive.
func (v *WatchlistView) Widget() tview.Primitive {
	return v.textView
}

// Update refreshes the view from the latest evaluations.
func (v *WatchlistView) Update(evals []engine.Evaluation) {
	v.textView.Clear()

	var ok, high []engine.Evaluation
	for _, ev := range evals {
		if ev.WatchlistTeam == "" {
			continue
		}
		if ev.PriceBand == engine.BandOK {
			ok = append(ok, ev)
		} else {
			high = append(high, ev)
		}
	}

	if len(ok) == 0 && len(high) == 0 {
		fmt.Fprint(v.textView, "\n  No watchlist games on the board today")
		v.textView.SetTitle(" Watchlist NO Entries ")
		return
	}

	fmt.Fprint(v.textView, "[green]PRICE OK (<= 68c)[-]\n")
	if len(ok) == 0 {
		fmt.Fprint(v.textView, "  none\n")
	}
	for _, ev := range ok {
		fmt.Fprintf(v.textView, "  %s @ %s  %s  NO %dc  [%s]%s (%d)[-]\n",
			ev.Quote.AwayTeam, ev.Quote.HomeTeam,
			ev.Quote.Strike.String(), ev.Quote.NoAsk,
			severityColor(ev.Severity), ev.Verdict, ev.Score)
	}

	fmt.Fprint(v.textView, "\n[yellow]PRICE HIGH (> 68c)[-]\n")
	if len(high) == 0 {
		fmt.Fprint(v.textView, "  none\n")
	}
	for _, ev := range high {
		hint := ev.UnlockHint
		if hint == "" {
			hint = fmt.Sprintf("NO %dc", ev.Quote.NoAsk)
		}
		fmt.Fprintf(v.textView, "  %s @ %s  %s  %s\n",
			ev.Quote.AwayTeam, ev.Quote.HomeTeam,
			ev.Quote.Strike.String(), hint)
	}

	v.textView.SetTitle(fmt.Sprintf(" Watchlist NO Entries (%d) ", len(ok)+len(high)))
}

// severityColor maps a verdict severity to a tview color tag.
func severityColor(s engine.Severity) string {
	switch s {
	case engine.SeverityGreen:
		return "green"
	case engine.SeverityYellow:
		return "yellow"
	case engine.SeverityOrange:
		return "orange"
	case engine.SeverityRed:
		return "red"
	default:
		return "gray"
	}
}
