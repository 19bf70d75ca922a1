//go:build integration

package integration

import (
	"net/http"
	"testing"
)

func TestListProducts(t *testing.T) {
	resp := doGet(t, "/api/products")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	products := decodeJSON[[]productResponse](t, resp)
	if len(products) < 9 {
		t.Fatalf("expected at least 9 products, got %d", len(products))
	}
}

func TestListProducts_Fields(t *testing.T) {
	resp := doGet(t, "/api/products")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	products := decodeJSON[[]productResponse](t, resp)

	var widget *productResponse
	for i := range products {
		if products[i].Name == "Widget" {
			widget = &products[i]
			break
		}
	}

	if widget == nil {
		t.Fatal("seeded product Widget not found")
	}
	if widget.ID == 0 {
		t.Error("id is zero")
	}
	if widget.Price != 9.99 {
		t.Errorf("price: got %v, want 9.99", widget.Price)
	}
}

func TestProductLifecycle(t *testing.T) {
	// Create.
	resp := doJSON(t, http.MethodPost, "/api/products", productRequest{Name: "Flux Capacitor", Price: 121.21})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create: expected 201, got %d", resp.StatusCode)
	}
	created := decodeJSON[productResponse](t, resp)
	resp.Body.Close()

	if created.Name != "Flux Capacitor" {
		t.Errorf("name: got %q", created.Name)
	}
	if created.ID == 0 {
		t.Fatal("created product has no id")
	}

	// Update.
	resp = doJSON(t, http.MethodPut, productPath(created.ID), productRequest{Name: "Flux Capacitor v2", Price: 150})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("update: expected 200, got %d", resp.StatusCode)
	}
	updated := decodeJSON[productResponse](t, resp)
	resp.Body.Close()

	if updated.Name != "Flux Capacitor v2" {
		t.Errorf("updated name: got %q", updated.Name)
	}
	if updated.Price != 150 {
		t.Errorf("updated price: got %v, want 150", updated.Price)
	}

	// Delete.
	resp = doRequest(t, http.MethodDelete, productPath(created.ID), nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("delete: expected 204, got %d", resp.StatusCode)
	}
}

func TestCreateProduct_EmptyName(t *testing.T) {
	resp := doJSON(t, http.MethodPost, "/api/products", productRequest{Name: "", Price: 1})
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}
