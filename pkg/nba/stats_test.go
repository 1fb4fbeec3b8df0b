package nba

import (
	"reflect"
	"testing"
)

func TestBuildWatchlist(t *testing.T) {
	watchlist := BuildWatchlist()

	// With the current season tables, only two teams sit in both the
	// bottom-8 shooting group and the bottom-10 pace group.
	want := map[string]bool{"Orlando": true, "Utah": true}
	if !reflect.DeepEqual(watchlist, want) {
		t.Errorf("BuildWatchlist() = %v, want %v", watchlist, want)
	}

	for team := range watchlist {
		if _, ok := teamThreePtPct[team]; !ok {
			t.Errorf("watchlist team %q missing from shooting table", team)
		}
		if _, ok := teamPace[team]; !ok {
			t.Errorf("watchlist team %q missing from pace table", team)
		}
	}
}

func TestWatchlistTeams_Sorted(t *testing.T) {
	teams := WatchlistTeams()
	want := []string{"Orlando", "Utah"}
	if !reflect.DeepEqual(teams, want) {
		t.Errorf("WatchlistTeams() = %v, want %v", teams, want)
	}
}

func TestBottomN(t *testing.T) {
	stats := map[string]float64{"a": 3, "b": 1, "c": 2, "d": 4}

	got := bottomN(stats, 2)
	want := map[string]bool{"b": true, "c": true}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("bottomN(2) = %v, want %v", got, want)
	}

	if got := bottomN(stats, 10); len(got) != 4 {
		t.Errorf("bottomN(10) returned %d entries, want 4", len(got))
	}
}

func TestStatTables_Complete(t *testing.T) {
	if len(teamThreePtPct) != 30 {
		t.Errorf("shooting table has %d teams, want 30", len(teamThreePtPct))
	}
	if len(teamPace) != 30 {
		t.Errorf("pace table has %d teams, want 30", len(teamPace))
	}
	for team := range teamThreePtPct {
		if _, ok := teamPace[team]; !ok {
			t.Errorf("team %q in shooting table but not pace table", team)
		}
	}
}
