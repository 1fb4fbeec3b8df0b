package ui

import (
	"fmt"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/halfcourt/kalshi-edge/pkg/engine"
)

// MarketsView displays every tracked extreme-totals contract.
type MarketsView struct {
	table *tview.Table
}

// NewMarketsView creates a new markets view.
func NewMarketsView() *MarketsView {
	table := tview.NewTable().
		SetBorders(false).
		SetFixed(1, 0)

	table.SetTitle(" Extreme Totals ").SetBorder(true)

	return &MarketsView{
		table: table,
	}
}

// Widget returns the tview primitive.
func (v *MarketsView) Widget() tview.Primitive {
	return v.table
}

var marketHeaders = []string{"GAME", "SCORE", "STATE", "STRIKE", "NO", "BAND", "VERDICT"}

// Update refreshes the table from the latest evaluations.
func (v *MarketsView) Update(evals []engine.Evaluation) {
	v.table.Clear()

	for col, header := range marketHeaders {
		cell := tview.NewTableCell(header).
			SetTextColor(tview.Styles.SecondaryTextColor).
			SetAlign(tview.AlignLeft).
			SetSelectable(false).
			SetExpansion(1)
		v.table.SetCell(0, col, cell)
	}

	for i, ev := range evals {
		row := i + 1

		score := "-"
		state := string(ev.State)
		if ev.Snapshot != nil {
			score = fmt.Sprintf("%d-%d (%d)", ev.Snapshot.AwayScore, ev.Snapshot.HomeScore, ev.Snapshot.Total())
			if ev.Snapshot.QuarterLabel != "" {
				state = ev.Snapshot.QuarterLabel
			}
		}

		verdict := ev.Verdict
		if ev.Spiked {
			verdict = "SPIKE " + verdict
		}

		cells := []string{
			ev.GameKey,
			score,
			state,
			ev.Quote.Strike.String(),
			fmt.Sprintf("%dc", ev.Quote.NoAsk),
			string(ev.PriceBand),
			fmt.Sprintf("%s (%d)", verdict, ev.Score),
		}

		for col, text := range cells {
			cell := tview.NewTableCell(text).
				SetAlign(tview.AlignLeft).
				SetExpansion(1)
			switch col {
			case 4, 5:
				cell.SetTextColor(bandColor(ev.PriceBand))
			case 6:
				cell.SetTextColor(verdictColor(ev))
			}
			v.table.SetCell(row, col, cell)
		}
	}

	v.table.SetTitle(fmt.Sprintf(" Extreme Totals (%d) ", len(evals)))
}

// bandColor maps a price band to a cell color.
func bandColor(band engine.Band) tcell.Color {
	switch band {
	case engine.BandOK:
		return tcell.ColorGreen
	case engine.BandWait:
		return tcell.ColorYellow
	default:
		return tcell.ColorRed
	}
}

// verdictColor maps an evaluation's severity to a cell color, with the
// spike veto overriding everything.
func verdictColor(ev engine.Evaluation) tcell.Color {
	if ev.Spiked {
		return tcell.ColorRed
	}
	switch ev.Severity {
	case engine.SeverityGreen:
		return tcell.ColorGreen
	case engine.SeverityYellow:
		return tcell.ColorYellow
	case engine.SeverityOrange:
		return tcell.ColorOrange
	case engine.SeverityRed:
		return tcell.ColorRed
	default:
		return tcell.ColorGray
	}
}
