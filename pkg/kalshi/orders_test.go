package kalshi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
)

func TestBuyNoLimit(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != "POST" || r.URL.Path != "/trade-api/v2/portfolio/orders" {
			t.Errorf("Wrong request: %s %s", r.Method, r.URL.Path)
		}
		for _, h := range []string{"KALSHI-ACCESS-KEY", "KALSHI-ACCESS-SIGNATURE", "KALSHI-ACCESS-TIMESTAMP"} {
			if r.Header.Get(h) == "" {
				t.Errorf("missing %s header", h)
			}
		}

		raw, _ := io.ReadAll(r.Body)
		var body map[string]interface{}
		if err := json.Unmarshal(raw, &body); err != nil {
			t.Fatalf("body is not JSON: %v", err)
		}
		if body["action"] != "buy" || body["side"] != "no" || body["type"] != "limit" {
			t.Errorf("order shape = %v, want buy/no/limit", body)
		}
		if body["no_price"] != float64(70) || body["count"] != float64(5) {
			t.Errorf("(no_price, count) = (%v, %v), want (70, 5)", body["no_price"], body["count"])
		}
		if _, err := uuid.Parse(body["client_order_id"].(string)); err != nil {
			t.Errorf("client_order_id %v is not a UUID", body["client_order_id"])
		}
		// GTC is encoded as an explicit null, not an absent key.
		if v, present := body["expiration_ts"]; !present || v != nil {
			t.Errorf("expiration_ts = %v (present %v), want explicit null", v, present)
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"order": {"order_id": "ord-123", "status": "resting", "no_price": 70}}`))
	}))
	defer server.Close()

	client := NewClient(WithBaseURL(server.URL), WithSigner(testSigner(t)))

	order, err := client.BuyNoLimit(context.Background(), "KXNBATOTAL-25NOV01ORLBOS-B252.5", 70, 5)
	if err != nil {
		t.Fatalf("BuyNoLimit failed: %v", err)
	}
	if order.OrderID != "ord-123" {
		t.Errorf("OrderID = %q, want ord-123", order.OrderID)
	}
}

func TestCreateOrder_PreservesClientOrderID(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]interface{}
		json.NewDecoder(r.Body).Decode(&body)
		if body["client_order_id"] != "my-idempotency-key" {
			t.Errorf("client_order_id = %v, caller's key was replaced", body["client_order_id"])
		}
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"order": {"order_id": "ord-456"}}`))
	}))
	defer server.Close()

	client := NewClient(WithBaseURL(server.URL), WithSigner(testSigner(t)))

	_, err := client.CreateOrder(context.Background(), &OrderRequest{
		Ticker:        "KXNBATOTAL-25NOV01ORLBOS-B252.5",
		Action:        OrderActionBuy,
		Side:          OrderSideNo,
		Count:         1,
		Type:          OrderTypeLimit,
		NoPrice:       60,
		ClientOrderID: "my-idempotency-key",
	})
	if err != nil {
		t.Fatalf("CreateOrder failed: %v", err)
	}
}

func TestPortfolio_ReadOnlyWithoutSigner(t *testing.T) {
	client := NewClient()

	if _, err := client.BuyNoLimit(context.Background(), "T", 60, 1); !errors.Is(err, ErrReadOnly) {
		t.Errorf("BuyNoLimit error = %v, want ErrReadOnly", err)
	}
	if _, err := client.GetBalance(context.Background()); !errors.Is(err, ErrReadOnly) {
		t.Errorf("GetBalance error = %v, want ErrReadOnly", err)
	}
	if err := client.CancelOrder(context.Background(), "ord-1"); !errors.Is(err, ErrReadOnly) {
		t.Errorf("CancelOrder error = %v, want ErrReadOnly", err)
	}
	if client.CanTrade() {
		t.Error("CanTrade() = true without a signer")
	}
}

func TestCreateOrder_SurfacesAPIMessage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error": {"code": "insufficient_balance", "message": "insufficient balance"}}`))
	}))
	defer server.Close()

	client := NewClient(WithBaseURL(server.URL), WithSigner(testSigner(t)))

	_, err := client.BuyNoLimit(context.Background(), "T", 60, 1)
	if err == nil {
		t.Fatal("Expected error for rejected order")
	}
	if got := err.Error(); got != "api error 400: insufficient balance" {
		t.Errorf("error = %q, want the API's message surfaced", got)
	}
}

func TestGetBalance(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != "GET" || r.URL.Path != "/trade-api/v2/portfolio/balance" {
			t.Errorf("Wrong request: %s %s", r.Method, r.URL.Path)
		}
		if r.Header.Get("KALSHI-ACCESS-SIGNATURE") == "" {
			t.Error("balance request was not signed")
		}
		w.Write([]byte(`{"balance": 102550}`))
	}))
	defer server.Close()

	client := NewClient(WithBaseURL(server.URL), WithSigner(testSigner(t)))

	balance, err := client.GetBalance(context.Background())
	if err != nil {
		t.Fatalf("GetBalance failed: %v", err)
	}
	if balance != 102550 {
		t.Errorf("balance = %d, want 102550", balance)
	}
}

func TestCancelOrder(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != "DELETE" || r.URL.Path != "/trade-api/v2/portfolio/orders/ord-789" {
			t.Errorf("Wrong request: %s %s", r.Method, r.URL.Path)
		}
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	client := NewClient(WithBaseURL(server.URL), WithSigner(testSigner(t)))

	if err := client.CancelOrder(context.Background(), "ord-789"); err != nil {
		t.Fatalf("CancelOrder failed: %v", err)
	}
}

func TestGetOrders(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query()
		if query.Get("ticker") != "KXNBATOTAL-25NOV01ORLBOS-B252.5" || query.Get("status") != "resting" {
			t.Errorf("query = %v", query)
		}
		w.Write([]byte(`{"orders": [{"order_id": "ord-1", "status": "resting"}], "cursor": ""}`))
	}))
	defer server.Close()

	client := NewClient(WithBaseURL(server.URL), WithSigner(testSigner(t)))

	orders, err := client.GetOrders(context.Background(), "KXNBATOTAL-25NOV01ORLBOS-B252.5", "resting")
	if err != nil {
		t.Fatalf("GetOrders failed: %v", err)
	}
	if len(orders) != 1 || orders[0].OrderID != "ord-1" {
		t.Errorf("orders = %+v", orders)
	}
}
