package nba

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// canonicalNames maps the score provider's display names (and common
// variants) to the short canonical keys used everywhere else.
var canonicalNames = map[string]string{
	"Atlanta Hawks":          "Atlanta",
	"Boston Celtics":         "Boston",
	"Brooklyn Nets":          "Brooklyn",
	"Charlotte Hornets":      "Charlotte",
	"Chicago Bulls":          "Chicago",
	"Cleveland Cavaliers":    "Cleveland",
	"Dallas Mavericks":       "Dallas",
	"Denver Nuggets":         "Denver",
	"Detroit Pistons":        "Detroit",
	"Golden State Warriors":  "Golden State",
	"Houston Rockets":        "Houston",
	"Indiana Pacers":         "Indiana",
	"LA Clippers":            "LA Clippers",
	"Los Angeles Clippers":   "LA Clippers",
	"LA Lakers":              "LA Lakers",
	"Los Angeles Lakers":     "LA Lakers",
	"Memphis Grizzlies":      "Memphis",
	"Miami Heat":             "Miami",
	"Milwaukee Bucks":        "Milwaukee",
	"Minnesota Timberwolves": "Minnesota",
	"New Orleans Pelicans":   "New Orleans",
	"New York Knicks":        "New York",
	"Oklahoma City Thunder":  "Oklahoma City",
	"Orlando Magic":          "Orlando",
	"Philadelphia 76ers":     "Philadelphia",
	"Phoenix Suns":           "Phoenix",
	"Portland Trail Blazers": "Portland",
	"Sacramento Kings":       "Sacramento",
	"San Antonio Spurs":      "San Antonio",
	"Toronto Raptors":        "Toronto",
	"Utah Jazz":              "Utah",
	"Washington Wizards":     "Washington",
}

// nameIndex holds canonicalNames re-keyed by folded name so lookups are
// insensitive to case and accents. Built once, read-only afterwards.
var nameIndex = buildNameIndex()

func buildNameIndex() map[string]string {
	idx := make(map[string]string, len(canonicalNames))
	for name, canonical := range canonicalNames {
		idx[foldName(name)] = canonical
	}
	return idx
}

// Normalize maps a free-text team name to its canonical key. Unknown
// names pass through unchanged; this never fails.
func Normalize(name string) string {
	if canonical, ok := nameIndex[foldName(name)]; ok {
		return canonical
	}
	return name
}

// foldName normalizes a team name for index lookups.
func foldName(name string) string {
	name = strings.ToLower(name)

	// Remove accents
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	name, _, _ = transform.String(t, name)

	// Normalize spaces
	return strings.Join(strings.Fields(name), " ")
}
