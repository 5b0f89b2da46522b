package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

// configCall records one POST to the item configuration endpoint, so tests
// can assert on what configureItem actually sent.
type configCall struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// fakeCartServer emulates the minimal OVH cart/order sequence PlaceOrder
// drives through: create, assign, add item, fetch required configuration,
// configure, validate, checkout. configCalls, if non-nil, accumulates every
// configuration POST body in request order.
func fakeCartServer(t *testing.T, addItemStatus int, configCalls *[]configCall) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()

	mux.HandleFunc("/order/cart", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{"cartId": "cart-1"})
	})
	mux.HandleFunc("/order/cart/cart-1/assign", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/order/cart/cart-1/baremetalServers", func(w http.ResponseWriter, r *http.Request) {
		if addItemStatus != http.StatusOK {
			w.WriteHeader(addItemStatus)
			_ = json.NewEncoder(w).Encode(map[string]string{"class": "whatever", "message": "no stock"})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]int{"itemId": 42})
	})
	mux.HandleFunc("/order/cart/cart-1/item/42/requiredConfiguration", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode([]requiredConfigEntry{
			{Label: "region", Required: true, Type: "string", AllowedValues: []string{"placeholder-region"}},
			{Label: "os_template", Required: true, Type: "string", AllowedValues: []string{"debian12_64"}},
			{Label: "optional_note", Required: false, Type: "string", AllowedValues: []string{"unused"}},
		})
	})
	mux.HandleFunc("/order/cart/cart-1/item/42/configuration", func(w http.ResponseWriter, r *http.Request) {
		if configCalls != nil {
			var call configCall
			_ = json.NewDecoder(r.Body).Decode(&call)
			*configCalls = append(*configCalls, call)
		}
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/order/cart/cart-1/checkout", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			_ = json.NewEncoder(w).Encode(map[string]any{
				"prices": map[string]any{
					"withTax":    map[string]float64{"value": 12.0},
					"withoutTax": map[string]float64{"value": 10.0},
					"tax":        map[string]float64{"value": 2.0},
				},
				"currencyCode": "EUR",
			})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"orderId": 99, "url": "https://ovh.example/order/99"})
	})
	mux.HandleFunc("/me/order/99/status", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "delivered"})
	})

	return httptest.NewServer(mux)
}

func TestOrderDriverPlaceOrderSuccess(t *testing.T) {
	server := fakeCartServer(t, http.StatusOK, nil)
	defer server.Close()

	pool := NewPool(5*time.Second, zerolog.Nop())
	driver := NewOrderDriver(pool)
	account := testAccount(server.URL)

	result, err := driver.PlaceOrder(context.Background(), account, "24sk01", "gra", []string{"ram-64g"}, false)
	if err != nil {
		t.Fatalf("PlaceOrder returned error: %v", err)
	}
	if result.OrderID != "99" {
		t.Fatalf("expected orderID 99, got %s", result.OrderID)
	}
	if result.Price == nil || result.Price.CurrencyCode != "EUR" {
		t.Fatalf("expected price breakdown with EUR currency, got %+v", result.Price)
	}
}

func TestOrderDriverPlaceOrderAppliesRequiredConfigurationBeforeOptions(t *testing.T) {
	var calls []configCall
	server := fakeCartServer(t, http.StatusOK, &calls)
	defer server.Close()

	pool := NewPool(5*time.Second, zerolog.Nop())
	driver := NewOrderDriver(pool)
	account := testAccount(server.URL)

	if _, err := driver.PlaceOrder(context.Background(), account, "24sk01", "gra", []string{"ram-64g"}, false); err != nil {
		t.Fatalf("PlaceOrder returned error: %v", err)
	}

	if len(calls) != 3 {
		t.Fatalf("expected 2 required-configuration calls + 1 option call, got %+v", calls)
	}
	if calls[0].Label != "region" || calls[0].Value != "gra" {
		t.Fatalf("expected region configured to the purchase datacenter first, got %+v", calls[0])
	}
	if calls[1].Label != "os_template" || calls[1].Value != "debian12_64" {
		t.Fatalf("expected os_template from the plan's required configuration, got %+v", calls[1])
	}
	if calls[2].Label != "option" || calls[2].Value != "ram-64g" {
		t.Fatalf("expected task option configured last, got %+v", calls[2])
	}

	// A second purchase of the same plan must reuse the cached required
	// configuration instead of refetching it.
	calls = nil
	if _, err := driver.PlaceOrder(context.Background(), account, "24sk01", "gra", nil, false); err != nil {
		t.Fatalf("second PlaceOrder returned error: %v", err)
	}
	if len(calls) != 2 {
		t.Fatalf("expected cached required-configuration to still apply 2 calls, got %+v", calls)
	}
}

func TestOrderDriverPlaceOrderNotAvailableOnConflict(t *testing.T) {
	server := fakeCartServer(t, http.StatusConflict, nil)
	defer server.Close()

	pool := NewPool(5*time.Second, zerolog.Nop())
	driver := NewOrderDriver(pool)
	account := testAccount(server.URL)

	_, err := driver.PlaceOrder(context.Background(), account, "24sk01", "gra", nil, false)
	var notAvailable *NotAvailableError
	if !strings.Contains(err.Error(), "not available") {
		t.Fatalf("expected not-available error, got %v", err)
	}
	if e, ok := err.(*NotAvailableError); ok {
		notAvailable = e
	} else {
		t.Fatalf("expected *NotAvailableError, got %T", err)
	}
	if notAvailable.Datacenter != "gra" {
		t.Fatalf("expected datacenter gra, got %s", notAvailable.Datacenter)
	}
}

func TestItemEndpointPicksPlanFamily(t *testing.T) {
	if itemEndpoint("eco-2021") != "eco" {
		t.Fatal("expected eco-prefixed plan to route to /eco")
	}
	if itemEndpoint("24sk01") != "baremetalServers" {
		t.Fatal("expected non-eco plan to route to /baremetalServers")
	}
}
