// Package ui provides the terminal dashboard for the signal daemon.
package ui

import (
	"context"
	"fmt"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/halfcourt/kalshi-edge/pkg/trader/orchestrator"
)

// App is the main TUI application.
type App struct {
	app    *tview.Application
	layout *tview.Flex

	// Views
	watchlist  *WatchlistView
	markets    *MarketsView
	scoreboard *ScoreboardView
	spikes     *SpikesView
	statusBar  *tview.TextView

	orch *orchestrator.Orchestrator

	ctx    context.Context
	cancel context.CancelFunc
}

// NewApp creates the dashboard around a running orchestrator.
func NewApp(orch *orchestrator.Orchestrator) *App {
	ctx, cancel := context.WithCancel(context.Background())

	a := &App{
		app:    tview.NewApplication(),
		orch:   orch,
		ctx:    ctx,
		cancel: cancel,
	}

	// Initialize views
	a.watchlist = NewWatchlistView()
	a.markets = NewMarketsView()
	a.scoreboard = NewScoreboardView()
	a.spikes = NewSpikesView()
	a.statusBar = tview.NewTextView().SetDynamicColors(true)

	// Setup layout
	a.setupLayout()

	// Setup keyboard shortcuts
	a.setupKeyboard()

	return a
}

// setupLayout creates the panel layout.
func (a *App) setupLayout() {
	// Top row: Watchlist entries (left) | Spike alerts (right)
	topRow := tview.NewFlex().
		AddItem(a.watchlist.Widget(), 0, 2, false).
		AddItem(a.spikes.Widget(), 0, 1, true)

	// Main vertical layout with a one-line status bar at the bottom
	a.layout = tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(topRow, 0, 2, false).
		AddItem(a.markets.Widget(), 0, 2, false).
		AddItem(a.scoreboard.Widget(), 0, 2, false).
		AddItem(a.statusBar, 1, 0, false)

	a.app.SetRoot(a.layout, true)
}

// setupKeyboard configures keyboard shortcuts.
func (a *App) setupKeyboard() {
	a.app.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		switch event.Key() {
		case tcell.KeyCtrlC:
			a.Stop()
			return nil
		case tcell.KeyRune:
			switch event.Rune() {
			case 'q', 'Q':
				a.Stop()
				return nil
			case 'r', 'R':
				// Force a poll cycle; errors surface on the
				// orchestrator's error callback.
				go a.orch.RunOnce(a.ctx)
				return nil
			case 'c':
				if ticker := a.spikes.SelectedTicker(); ticker != "" {
					a.orch.ClearSpike(ticker)
					a.refresh()
				}
				return nil
			case 'C':
				a.orch.ClearAllSpikes()
				a.refresh()
				return nil
			}
		}
		return event
	})
}

// Run starts the TUI (blocking).
func (a *App) Run() error {
	go a.updateLoop()

	if err := a.app.Run(); err != nil {
		return fmt.Errorf("app run failed: %w", err)
	}

	return nil
}

// Stop gracefully stops the application.
func (a *App) Stop() {
	a.cancel()
	a.app.Stop()
}

// updateLoop periodically redraws the views from orchestrator state.
func (a *App) updateLoop() {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-a.ctx.Done():
			return
		case <-ticker.C:
			a.refresh()
		}
	}
}

// refresh pulls the latest state and redraws every view.
func (a *App) refresh() {
	evals := a.orch.GetEvaluations()
	board := a.orch.GetScoreboard()
	status := a.orch.GetStatus()

	a.app.QueueUpdateDraw(func() {
		a.watchlist.Update(evals)
		a.markets.Update(evals)
		a.scoreboard.Update(board)
		a.spikes.Update(status.ActiveSpikes, evals)
		a.updateStatusBar(status)
	})
}

// updateStatusBar rebuilds the bottom status line.
func (a *App) updateStatusBar(status *orchestrator.Status) {
	mode := "[green]PAPER[-]"
	if !status.DryRun {
		mode = "[red]LIVE[-]"
	}

	spikes := "none"
	if n := len(status.ActiveSpikes); n > 0 {
		spikes = fmt.Sprintf("[red]%d active[-]", n)
	}

	a.statusBar.Clear()
	fmt.Fprintf(a.statusBar,
		" %s | mode %s | markets %d | games %d | spikes %s | last poll %s | q quit  r refresh  c/C clear spikes",
		time.Now().Format("2006-01-02 15:04:05"),
		mode,
		status.Markets,
		status.Games,
		spikes,
		formatTimeAgo(status.LastPoll),
	)
}

// formatTimeAgo formats a time as "X ago".
func formatTimeAgo(t time.Time) string {
	if t.IsZero() {
		return "never"
	}

	elapsed := time.Since(t)

	if elapsed < time.Minute {
		return fmt.Sprintf("%.0fs ago", elapsed.Seconds())
	}
	if elapsed < time.Hour {
		return fmt.Sprintf("%.0fm ago", elapsed.Minutes())
	}
	return fmt.Sprintf("%.0fh ago", elapsed.Hours())
}
