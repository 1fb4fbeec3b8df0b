package kalshi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

const marketsPage = `{
  "cursor": "",
  "markets": [
    {
      "ticker": "KXNBATOTAL-25NOV01ORLBOS-B252.5",
      "event_ticker": "KXNBATOTAL-25NOV01ORLBOS",
      "status": "open",
      "floor_strike": 252.5,
      "yes_ask": 57,
      "no_ask": 45,
      "volume": 1200
    },
    {
      "ticker": "KXNBATOTAL-25NOV01DETLAL-B249.5",
      "event_ticker": "KXNBATOTAL-25NOV01DETLAL",
      "status": "open",
      "floor_strike": 249.5,
      "yes_ask": 30,
      "no_ask": 0,
      "volume": 800
    },
    {
      "ticker": "KXNBATOTAL-25NOV01MIACHI-B240.5",
      "event_ticker": "KXNBATOTAL-25NOV01MIACHI",
      "status": "open",
      "floor_strike": 240.5,
      "yes_ask": 80,
      "no_ask": 22
    },
    {
      "ticker": "KXNBATOTAL-25NOV02DENPHI-B250.5",
      "event_ticker": "KXNBATOTAL-25NOV02DENPHI",
      "status": "open",
      "floor_strike": 250.5,
      "yes_ask": 60,
      "no_ask": 42
    },
    {
      "ticker": "KXNBATOTAL-BAD",
      "event_ticker": "NODATE",
      "status": "open",
      "floor_strike": 251.5,
      "yes_ask": 60,
      "no_ask": 42
    },
    {
      "ticker": "KXNBASERIES-OTHER",
      "event_ticker": "KXNBASERIES-25NOV01ORLBOS",
      "status": "open",
      "yes_ask": 60,
      "no_ask": 42
    }
  ]
}`

func TestFetchExtremeTotals(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/trade-api/v2/markets" {
			t.Errorf("Expected path /trade-api/v2/markets, got %s", r.URL.Path)
		}
		query := r.URL.Query()
		if query.Get("series_ticker") != "KXNBATOTAL" {
			t.Errorf("series_ticker = %q", query.Get("series_ticker"))
		}
		if query.Get("status") != "open" {
			t.Errorf("status = %q", query.Get("status"))
		}
		if query.Get("limit") != "200" {
			t.Errorf("limit = %q", query.Get("limit"))
		}

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(marketsPage))
	}))
	defer server.Close()

	client := NewClient(WithBaseURL(server.URL))

	quotes, err := client.FetchExtremeTotals(context.Background(), DefaultMinStrike, "2025-11-01")
	if err != nil {
		t.Fatalf("FetchExtremeTotals failed: %v", err)
	}

	// Below-strike, wrong-day, unparseable, and strikeless markets
	// are all dropped; survivors sort by strike descending.
	if len(quotes) != 2 {
		t.Fatalf("Expected 2 quotes, got %d: %+v", len(quotes), quotes)
	}

	if quotes[0].Strike.String() != "252.5" {
		t.Errorf("quotes[0].Strike = %s, want the highest strike first", quotes[0].Strike)
	}
	if quotes[0].AwayTeam != "Orlando" || quotes[0].HomeTeam != "Boston" {
		t.Errorf("teams = %s@%s, want Orlando@Boston", quotes[0].AwayTeam, quotes[0].HomeTeam)
	}
	if quotes[0].NoAsk != 45 {
		t.Errorf("NoAsk = %d, want the quoted ask", quotes[0].NoAsk)
	}

	if quotes[1].AwayTeam != "Detroit" || quotes[1].HomeTeam != "LA Lakers" {
		t.Errorf("teams = %s@%s, want Detroit@LA Lakers", quotes[1].AwayTeam, quotes[1].HomeTeam)
	}
	if quotes[1].NoAsk != 70 {
		t.Errorf("NoAsk = %d, want 100 - yes_ask when the NO side is unquoted", quotes[1].NoAsk)
	}
}

func TestFetchExtremeTotals_Pagination(t *testing.T) {
	pages := []string{
		`{"cursor": "page2", "markets": [{
			"ticker": "KXNBATOTAL-25NOV01ORLBOS-B252.5",
			"event_ticker": "KXNBATOTAL-25NOV01ORLBOS",
			"floor_strike": 252.5, "yes_ask": 57, "no_ask": 45
		}]}`,
		`{"cursor": "", "markets": [{
			"ticker": "KXNBATOTAL-25NOV01DETLAL-B249.5",
			"event_ticker": "KXNBATOTAL-25NOV01DETLAL",
			"floor_strike": 249.5, "yes_ask": 30, "no_ask": 40
		}]}`,
	}

	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cursor := r.URL.Query().Get("cursor")
		if calls == 0 && cursor != "" {
			t.Errorf("first page requested with cursor %q", cursor)
		}
		if calls == 1 && cursor != "page2" {
			t.Errorf("second page cursor = %q, want page2", cursor)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(pages[calls]))
		calls++
	}))
	defer server.Close()

	client := NewClient(WithBaseURL(server.URL))

	quotes, err := client.FetchExtremeTotals(context.Background(), DefaultMinStrike, "2025-11-01")
	if err != nil {
		t.Fatalf("FetchExtremeTotals failed: %v", err)
	}
	if calls != 2 {
		t.Errorf("Expected 2 page fetches, got %d", calls)
	}
	if len(quotes) != 2 {
		t.Fatalf("Expected 2 quotes across pages, got %d", len(quotes))
	}
}

func TestFetchExtremeTotals_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error": {"code": "internal", "message": "something broke"}}`))
	}))
	defer server.Close()

	client := NewClient(WithBaseURL(server.URL))

	_, err := client.FetchExtremeTotals(context.Background(), DefaultMinStrike, "2025-11-01")
	if err == nil {
		t.Fatal("Expected error for 500 response")
	}
}

func TestGetOrderbook(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/trade-api/v2/markets/KXNBATOTAL-25NOV01ORLBOS-B252.5/orderbook" {
			t.Errorf("Wrong path: %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"orderbook": {"yes": [[40, 100], [45, 50]], "no": [[52, 200]]}}`))
	}))
	defer server.Close()

	client := NewClient(WithBaseURL(server.URL))

	book, err := client.GetOrderbook(context.Background(), "KXNBATOTAL-25NOV01ORLBOS-B252.5")
	if err != nil {
		t.Fatalf("GetOrderbook failed: %v", err)
	}

	price, count, ok := book.BestYes()
	if !ok || price != 45 || count != 50 {
		t.Errorf("BestYes() = (%d, %d, %v), want (45, 50, true)", price, count, ok)
	}
	price, count, ok = book.BestNo()
	if !ok || price != 52 || count != 200 {
		t.Errorf("BestNo() = (%d, %d, %v), want (52, 200, true)", price, count, ok)
	}

	empty := &Orderbook{}
	if _, _, ok := empty.BestYes(); ok {
		t.Error("empty book reported a best bid")
	}
}

func TestMarketBestNoAsk(t *testing.T) {
	tests := []struct {
		name   string
		market Market
		want   int
	}{
		{"quoted directly", Market{NoAsk: 45, YesAsk: 57}, 45},
		{"complement of yes ask", Market{NoAsk: 0, YesAsk: 30}, 70},
		{"no offers at all", Market{}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.market.BestNoAsk(); got != tt.want {
				t.Errorf("BestNoAsk() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestTodayEastern(t *testing.T) {
	tests := []struct {
		utc  time.Time
		want string
	}{
		// Midday UTC is the same calendar day in New York.
		{time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC), "2026-01-15"},
		// Late-night games: just after midnight UTC is still the
		// previous evening on the east coast.
		{time.Date(2026, 1, 15, 3, 0, 0, 0, time.UTC), "2026-01-14"},
	}
	for _, tt := range tests {
		if got := TodayEastern(tt.utc); got != tt.want {
			t.Errorf("TodayEastern(%v) = %q, want %q", tt.utc, got, tt.want)
		}
	}
}
