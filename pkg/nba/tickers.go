package nba

import "strings"

// tickerAbbrevs maps the exchange's ticker abbreviations to canonical
// team keys. Some games pack a 2-letter home code when the away code
// runs long, so the short aliases are listed too.
var tickerAbbrevs = map[string]string{
	"ATL": "Atlanta",
	"BOS": "Boston",
	"BRO": "Brooklyn",
	"BKN": "Brooklyn",
	"CHA": "Charlotte",
	"CHI": "Chicago",
	"CLE": "Cleveland",
	"DAL": "Dallas",
	"DEN": "Denver",
	"DET": "Detroit",
	"GSW": "Golden State",
	"GS":  "Golden State",
	"HOU": "Houston",
	"IND": "Indiana",
	"LAC": "LA Clippers",
	"LAL": "LA Lakers",
	"MEM": "Memphis",
	"MIA": "Miami",
	"MIL": "Milwaukee",
	"MIN": "Minnesota",
	"NOP": "New Orleans",
	"NO":  "New Orleans",
	"NYK": "New York",
	"NY":  "New York",
	"OKC": "Oklahoma City",
	"ORL": "Orlando",
	"PHI": "Philadelphia",
	"PHX": "Phoenix",
	"PHO": "Phoenix",
	"POR": "Portland",
	"SAC": "Sacramento",
	"SAS": "San Antonio",
	"SA":  "San Antonio",
	"TOR": "Toronto",
	"UTA": "Utah",
	"WAS": "Washington",
}

var monthNumbers = map[string]string{
	"JAN": "01", "FEB": "02", "MAR": "03", "APR": "04",
	"MAY": "05", "JUN": "06", "JUL": "07", "AUG": "08",
	"SEP": "09", "OCT": "10", "NOV": "11", "DEC": "12",
}

// ParseTeamsFromTicker extracts the away and home teams from a game
// code like "25NOV01DETLAL". The teams part starts at offset 7: three
// characters for away, up to three for home (short codes like "GS" or
// "NO" leave a 2-letter tail). Unknown abbreviations fall back to the
// raw substring.
func ParseTeamsFromTicker(code string) (away, home string, ok bool) {
	if len(code) < 12 {
		return "", "", false
	}
	teams := code[7:]
	end := 6
	if len(teams) < end {
		end = len(teams)
	}
	return abbrevTeam(teams[:3]), abbrevTeam(teams[3:end]), true
}

func abbrevTeam(abbrev string) string {
	if name, ok := tickerAbbrevs[strings.ToUpper(abbrev)]; ok {
		return name
	}
	return abbrev
}

// ParseGameDate converts the packed date prefix of a game code
// ("25NOV01...") to an ISO date ("2025-11-01"). Malformed input returns
// ok=false; callers must exclude the record, never treat it as today.
func ParseGameDate(code string) (string, bool) {
	if len(code) < 7 {
		return "", false
	}
	year, day := code[:2], code[5:7]
	if !isDigits(year) || !isDigits(day) {
		return "", false
	}
	month, ok := monthNumbers[strings.ToUpper(code[2:5])]
	if !ok {
		return "", false
	}
	return "20" + year + "-" + month + "-" + day, true
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// KalshiURL returns the exchange deep link for a market's event, or the
// basketball landing page when the event ticker is unknown.
func KalshiURL(eventTicker string) string {
	if eventTicker == "" {
		return "https://kalshi.com/sports/basketball/Pro%20Basketball%20(M)"
	}
	return "https://kalshi.com/markets/kxnbatotal/pro-basketball-total-points/" + strings.ToLower(eventTicker)
}
