// Package espn provides a read-only client for the public ESPN NBA
// scoreboard feed, the source of live game state for signal evaluation.
package espn

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/halfcourt/kalshi-edge/pkg/nba"
)

// Status type names used by the feed.
const (
	statusScheduled  = "STATUS_SCHEDULED"
	statusInProgress = "STATUS_IN_PROGRESS"
	statusHalftime   = "STATUS_HALFTIME"
	statusEndPeriod  = "STATUS_END_PERIOD"
	statusFinal      = "STATUS_FINAL"
)

// ScoreboardResponse is the top-level scoreboard payload. Only the
// fields the engine consumes are declared; the feed carries far more.
type ScoreboardResponse struct {
	Events []Event `json:"events"`
}

// Event is one game on the scoreboard.
type Event struct {
	ID           string        `json:"id"`
	Name         string        `json:"name"`
	ShortName    string        `json:"shortName"`
	Competitions []Competition `json:"competitions"`
	Status       EventStatus   `json:"status"`
}

// Competition holds the two competitors of an event.
type Competition struct {
	ID          string       `json:"id"`
	Competitors []Competitor `json:"competitors"`
}

// Competitor is one side of a game.
type Competitor struct {
	HomeAway string  `json:"homeAway"`
	Score    JSONInt `json:"score"`
	Team     Team    `json:"team"`
}

// Team identifies a competitor's franchise.
type Team struct {
	DisplayName  string `json:"displayName"`
	Abbreviation string `json:"abbreviation"`
}

// EventStatus is the game clock and lifecycle state.
type EventStatus struct {
	DisplayClock string     `json:"displayClock"`
	Period       int        `json:"period"`
	Type         StatusType `json:"type"`
}

// StatusType names the lifecycle state.
type StatusType struct {
	Name      string `json:"name"`
	State     string `json:"state"`
	Completed bool   `json:"completed"`
}

// JSONInt handles both numeric and string JSON values; the feed encodes
// scores as strings.
type JSONInt int

func (j *JSONInt) UnmarshalJSON(data []byte) error {
	var n int
	if err := json.Unmarshal(data, &n); err == nil {
		*j = JSONInt(n)
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}

	if s == "" {
		*j = 0
		return nil
	}

	n, err := strconv.Atoi(s)
	if err != nil {
		return err
	}
	*j = JSONInt(n)
	return nil
}

func (j JSONInt) Int() int {
	return int(j)
}

// Snapshot converts a feed event into a game snapshot with canonical
// team names. Events missing either competitor return ok=false.
func (e *Event) Snapshot() (nba.GameSnapshot, bool) {
	if len(e.Competitions) == 0 {
		return nba.GameSnapshot{}, false
	}

	var snap nba.GameSnapshot
	var haveHome, haveAway bool
	for _, c := range e.Competitions[0].Competitors {
		name := nba.Normalize(c.Team.DisplayName)
		switch c.HomeAway {
		case "home":
			snap.HomeTeam, snap.HomeScore, haveHome = name, c.Score.Int(), true
		case "away":
			snap.AwayTeam, snap.AwayScore, haveAway = name, c.Score.Int(), true
		}
	}
	if !haveHome || !haveAway {
		return nba.GameSnapshot{}, false
	}

	snap.Period = e.Status.Period
	snap.Clock = e.Status.DisplayClock

	switch e.Status.Type.Name {
	case statusScheduled:
		snap.Status = nba.StatusScheduled
	case statusInProgress:
		snap.Status = nba.StatusLive
		snap.QuarterLabel = fmt.Sprintf("Q%d", e.Status.Period)
	case statusHalftime:
		snap.Status = nba.StatusHalftime
		snap.QuarterLabel = "HALF"
	case statusEndPeriod:
		snap.Status = nba.StatusLive
		snap.QuarterLabel = fmt.Sprintf("End Q%d", e.Status.Period)
		snap.PeriodEnded = true
	case statusFinal:
		snap.Status = nba.StatusFinal
		snap.QuarterLabel = "FINAL"
	default:
		snap.Status = nba.StatusPending
	}
	return snap, true
}

// Scoreboard is one fetch of the feed, indexed by "Away@Home" game key.
type Scoreboard struct {
	FetchedAt time.Time
	Games     map[string]nba.GameSnapshot
}

// Find locates a game by its teams. The feed's home/away orientation may
// not match the market's, so the reversed key is tried too, with teams
// and scores swapped into the caller's orientation.
func (s *Scoreboard) Find(away, home string) (*nba.GameSnapshot, bool) {
	if s == nil {
		return nil, false
	}
	if g, ok := s.Games[nba.GameKey(away, home)]; ok {
		return &g, true
	}
	if g, ok := s.Games[nba.GameKey(home, away)]; ok {
		g.AwayTeam, g.HomeTeam = away, home
		g.AwayScore, g.HomeScore = g.HomeScore, g.AwayScore
		return &g, true
	}
	return nil, false
}

// Len reports the number of games on the board.
func (s *Scoreboard) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Games)
}
