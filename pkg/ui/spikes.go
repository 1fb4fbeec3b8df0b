package ui

import (
	"fmt"

	"github.com/rivo/tview"

	"github.com/halfcourt/kalshi-edge/pkg/engine"
)

// SpikesView lists contracts with a latched spike alert. The selected
// entry is the target of the clear-spike key.
type SpikesView struct {
	list    *tview.List
	tickers []string
}

// NewSpikesView creates a new spike alerts view.
func NewSpikesView() *SpikesView {
	list := tview.NewList().
		ShowSecondaryText(true)

	list.SetTitle(" Spike Alerts ").SetBorder(true)

	return &SpikesView{
		list: list,
	}
}

// Widget returns the tview primitive.
func (v *SpikesView) Widget() tview.Primitive {
	return v.list
}

// Update rebuilds the alert list, keeping the selection stable.
func (v *SpikesView) Update(tickers []string, evals []engine.Evaluation) {
	current := v.list.GetCurrentItem()
	v.list.Clear()
	v.tickers = append(v.tickers[:0], tickers...)

	if len(tickers) == 0 {
		v.list.AddItem("No spike alerts", "kill switch disarmed", 0, nil)
		v.list.SetTitle(" Spike Alerts ")
		return
	}

	deltas := make(map[string]int, len(evals))
	for _, ev := range evals {
		if ev.Spiked && ev.SpikeDelta > 0 {
			deltas[ev.Quote.Ticker] = ev.SpikeDelta
		}
	}

	for _, ticker := range tickers {
		secondary := "bidding disabled until cleared"
		if d, ok := deltas[ticker]; ok {
			secondary = fmt.Sprintf("+%dc inside the window, bidding disabled", d)
		}
		v.list.AddItem(ticker, secondary, 0, nil)
	}

	if current >= 0 && current < len(tickers) {
		v.list.SetCurrentItem(current)
	}

	v.list.SetTitle(fmt.Sprintf(" Spike Alerts (%d) ", len(tickers)))
}

// SelectedTicker returns the ticker under the cursor, or "" when the
// list is empty.
func (v *SpikesView) SelectedTicker() string {
	if len(v.tickers) == 0 {
		return ""
	}
	i := v.list.GetCurrentItem()
	if i < 0 || i >= len(v.tickers) {
		return ""
	}
	return v.tickers[i]
}
