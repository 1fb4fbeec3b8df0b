package nba

import "sort"

// Season-level shooting and tempo profiles keyed by canonical team.
// Static for the session; refreshed by hand between slates.
var teamThreePtPct = map[string]float64{
	"Atlanta": 0.362, "Boston": 0.382, "Brooklyn": 0.348, "Charlotte": 0.341,
	"Chicago": 0.352, "Cleveland": 0.358, "Dallas": 0.371, "Denver": 0.365,
	"Detroit": 0.339, "Golden State": 0.378, "Houston": 0.344, "Indiana": 0.374,
	"LA Clippers": 0.356, "LA Lakers": 0.349, "Memphis": 0.332, "Miami": 0.355,
	"Milwaukee": 0.363, "Minnesota": 0.357, "New Orleans": 0.346, "New York": 0.361,
	"Oklahoma City": 0.369, "Orlando": 0.343, "Philadelphia": 0.359, "Phoenix": 0.367,
	"Portland": 0.347, "Sacramento": 0.364, "San Antonio": 0.338, "Toronto": 0.351,
	"Utah": 0.345, "Washington": 0.336,
}

var teamPace = map[string]float64{
	"Atlanta": 100.2, "Boston": 98.1, "Brooklyn": 99.4, "Charlotte": 101.3,
	"Chicago": 97.8, "Cleveland": 96.5, "Dallas": 98.7, "Denver": 97.2,
	"Detroit": 99.1, "Golden State": 100.8, "Houston": 101.5, "Indiana": 102.4,
	"LA Clippers": 97.4, "LA Lakers": 99.8, "Memphis": 99.6, "Miami": 96.8,
	"Milwaukee": 98.3, "Minnesota": 97.1, "New Orleans": 100.1, "New York": 96.2,
	"Oklahoma City": 99.3, "Orlando": 97.6, "Philadelphia": 98.5, "Phoenix": 99.9,
	"Portland": 100.6, "Sacramento": 101.1, "San Antonio": 98.9, "Toronto": 100.4,
	"Utah": 98.2, "Washington": 101.8,
}

// BuildWatchlist returns the teams structurally prone to low-scoring,
// slow-paced starts: bottom eight by three-point percentage intersected
// with bottom ten by pace.
func BuildWatchlist() map[string]bool {
	slowShooters := bottomN(teamThreePtPct, 8)
	slowPace := bottomN(teamPace, 10)

	watchlist := make(map[string]bool)
	for team := range slowShooters {
		if slowPace[team] {
			watchlist[team] = true
		}
	}
	return watchlist
}

// WatchlistTeams returns the watchlist as a sorted slice for display.
func WatchlistTeams() []string {
	watchlist := BuildWatchlist()
	teams := make([]string, 0, len(watchlist))
	for team := range watchlist {
		teams = append(teams, team)
	}
	sort.Strings(teams)
	return teams
}

func bottomN(stats map[string]float64, n int) map[string]bool {
	type entry struct {
		team  string
		value float64
	}

	entries := make([]entry, 0, len(stats))
	for team, value := range stats {
		entries = append(entries, entry{team, value})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].value != entries[j].value {
			return entries[i].value < entries[j].value
		}
		return entries[i].team < entries[j].team
	})

	if n > len(entries) {
		n = len(entries)
	}
	result := make(map[string]bool, n)
	for _, e := range entries[:n] {
		result[e.team] = true
	}
	return result
}
