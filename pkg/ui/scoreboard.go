package ui

import (
	"fmt"
	"sort"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/halfcourt/kalshi-edge/pkg/espn"
	"github.com/halfcourt/kalshi-edge/pkg/nba"
)

// ScoreboardView displays today's games. The combined total is
// highlighted while the first quarter is still running, since that is
// the number the whole strategy keys on.
type ScoreboardView struct {
	table *tview.Table
}

// NewScoreboardView creates a new scoreboard view.
func NewScoreboardView() *ScoreboardView {
	table := tview.NewTable().
		SetBorders(false).
		SetFixed(1, 0)

	table.SetTitle(" Scoreboard ").SetBorder(true)

	return &ScoreboardView{
		table: table,
	}
}

// Widget returns the tview primitive.
func (v *ScoreboardView) Widget() tview.Primitive {
	return v.table
}

var scoreboardHeaders = []string{"GAME", "SCORE", "TOTAL", "PERIOD", "CLOCK", "STATUS"}

// Update refreshes the grid from the latest scoreboard.
func (v *ScoreboardView) Update(board *espn.Scoreboard) {
	v.table.Clear()

	for col, header := range scoreboardHeaders {
		cell := tview.NewTableCell(header).
			SetTextColor(tview.Styles.SecondaryTextColor).
			SetAlign(tview.AlignLeft).
			SetSelectable(false).
			SetExpansion(1)
		v.table.SetCell(0, col, cell)
	}

	if board == nil {
		v.table.SetTitle(" Scoreboard ")
		return
	}

	keys := make([]string, 0, len(board.Games))
	for key := range board.Games {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for i, key := range keys {
		game := board.Games[key]
		row := i + 1

		period := "-"
		if game.Period > 0 {
			period = game.QuarterLabel
		}

		cells := []string{
			key,
			fmt.Sprintf("%d-%d", game.AwayScore, game.HomeScore),
			fmt.Sprintf("%d", game.Total()),
			period,
			game.Clock,
			string(game.Status),
		}

		for col, text := range cells {
			cell := tview.NewTableCell(text).
				SetAlign(tview.AlignLeft).
				SetExpansion(1)
			if col == 2 && q1Running(game) {
				cell.SetTextColor(tcell.ColorYellow)
			}
			v.table.SetCell(row, col, cell)
		}
	}

	v.table.SetTitle(fmt.Sprintf(" Scoreboard (%d games, %s) ", len(keys), formatTimeAgo(board.FetchedAt)))
}

// q1Running reports whether the first quarter is still in progress.
func q1Running(game nba.GameSnapshot) bool {
	return game.Status == nba.StatusLive && game.Period == 1 && !game.PeriodEnded
}
