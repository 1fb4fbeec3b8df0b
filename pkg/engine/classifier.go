package engine

import (
	"strconv"
	"strings"

	"github.com/halfcourt/kalshi-edge/pkg/nba"
)

// Classify derives the lifecycle state for one game from its latest
// snapshot. Pure function: no stored state, re-run on every poll.
//
// q1Known is true only once the first quarter has actually ended
// (directly into the break, or any later period); the running total
// during a live first quarter is not a first-quarter result.
func Classify(snap *nba.GameSnapshot) (state GameState, lockImminent bool, q1Total int, q1Known bool) {
	if snap == nil || snap.Period == 0 || snap.Status == nba.StatusScheduled {
		return StatePregame, false, 0, false
	}

	switch {
	case snap.Period == 1 && snap.PeriodEnded:
		return StatePostQ1, false, snap.Total(), true
	case snap.Period == 1:
		return StateLiveQ1, lockInImminent(snap.Clock, snap.Total()), 0, false
	case snap.Period > 1:
		return StatePostQ1, false, snap.Total(), true
	default:
		return StatePregame, false, 0, false
	}
}

// lockInImminent reports whether the first quarter is about to close
// with a low combined score: 75 seconds or less on the clock and fewer
// than 50 points on the board. Unparseable clocks leave it false.
func lockInImminent(clock string, total int) bool {
	remaining, ok := clockSeconds(clock)
	if !ok {
		return false
	}
	return remaining <= 75 && total < 50
}

// clockSeconds parses a "MM:SS" game clock, tolerating a fractional
// seconds tail ("0:45.7") in the final minute.
func clockSeconds(clock string) (int, bool) {
	parts := strings.Split(clock, ":")
	if len(parts) != 2 {
		return 0, false
	}
	mins, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, false
	}
	secs, err := strconv.ParseFloat(parts[1], 64)
	if err != nil {
		return 0, false
	}
	return mins*60 + int(secs), true
}
