package handler_test

import (
	"net/http"
	"net/url"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/tapntake/api/internal/cart"
	"github.com/tapntake/api/internal/catalog"
	"github.com/tapntake/api/internal/handler"
)

func newCartRouter() http.Handler {
	r := chi.NewRouter()
	handler.NewCartHandler(cart.NewService(cart.NewMemoryStore(), catalog.Default())).RegisterRoutes(r)
	return r
}

func createCart(t *testing.T, r http.Handler) string {
	t.Helper()
	rr := doJSON(t, r, "POST", "/carts", nil, "")
	if rr.Code != http.StatusCreated {
		t.Fatalf("create cart: got %d", rr.Code)
	}
	return decodeResponse(t, rr)["id"].(string)
}

func TestCart_CoffeeDealScenario(t *testing.T) {
	r := newCartRouter()
	id := createCart(t, r)

	var resp map[string]interface{}
	for i := 0; i < 3; i++ {
		rr := doJSON(t, r, "POST", "/carts/"+id+"/items", map[string]interface{}{"product_id": "hot-coffees-2"}, "")
		if rr.Code != http.StatusOK {
			t.Fatalf("add item: got %d; body: %s", rr.Code, rr.Body.String())
		}
		resp = decodeResponse(t, rr)
	}

	items := resp["items"].([]interface{})
	if len(items) != 1 {
		t.Fatalf("expected one merged line, got %d", len(items))
	}
	line := items[0].(map[string]interface{})
	if line["quantity"] != float64(3) || line["free_units"] != float64(1) {
		t.Errorf("line: quantity=%v free_units=%v", line["quantity"], line["free_units"])
	}
	if resp["subtotal"] != "465" || resp["coffee_discount"] != "155" || resp["total"] != "310" {
		t.Errorf("totals: subtotal=%v discount=%v total=%v", resp["subtotal"], resp["coffee_discount"], resp["total"])
	}

	key := line["key"].(string)
	rr := doJSON(t, r, "PUT", "/carts/"+id+"/items/"+url.PathEscape(key), map[string]int{"quantity": 0}, "")
	if rr.Code != http.StatusOK {
		t.Fatalf("update quantity: got %d", rr.Code)
	}
	if items := decodeResponse(t, rr)["items"].([]interface{}); len(items) != 0 {
		t.Errorf("quantity 0 should remove the line, got %d items", len(items))
	}
}

func TestCart_ComboAndClear(t *testing.T) {
	r := newCartRouter()
	id := createCart(t, r)

	rr := doJSON(t, r, "POST", "/carts/"+id+"/combos", map[string]interface{}{
		"offer_id":    "today-offer-1",
		"product_ids": []string{"mocktails-iced-teas-2", "thin-crust-pizza-1"},
	}, "")
	if rr.Code != http.StatusOK {
		t.Fatalf("add combo: got %d; body: %s", rr.Code, rr.Body.String())
	}
	if total := decodeResponse(t, rr)["total"]; total != "550" {
		t.Errorf("combo total: got %v, want 550", total)
	}

	rr = doJSON(t, r, "DELETE", "/carts/"+id, nil, "")
	if rr.Code != http.StatusOK {
		t.Fatalf("clear: got %d", rr.Code)
	}
	if total := decodeResponse(t, rr)["total"]; total != "0" {
		t.Errorf("cleared total: got %v", total)
	}
}

func TestCart_Errors(t *testing.T) {
	r := newCartRouter()
	id := createCart(t, r)

	tests := []struct {
		name   string
		method string
		path   string
		body   interface{}
		want   int
	}{
		{"unknown cart", "GET", "/carts/nope", nil, http.StatusNotFound},
		{"unknown product", "POST", "/carts/" + id + "/items", map[string]string{"product_id": "nope"}, http.StatusBadRequest},
		{"missing product", "POST", "/carts/" + id + "/items", map[string]string{}, http.StatusBadRequest},
		{"add-on alone", "POST", "/carts/" + id + "/items", map[string]string{"product_id": "addon-extra-shot"}, http.StatusBadRequest},
		{"bad combo", "POST", "/carts/" + id + "/combos", map[string]interface{}{"offer_id": "today-offer-1", "product_ids": []string{"burgers-1"}}, http.StatusBadRequest},
		{"missing quantity", "PUT", "/carts/" + id + "/items/x", map[string]string{}, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := doJSON(t, r, tt.method, tt.path, tt.body, "")
			if rr.Code != tt.want {
				t.Errorf("status: got %d, want %d; body: %s", rr.Code, tt.want, rr.Body.String())
			}
		})
	}
}
