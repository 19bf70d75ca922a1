package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avolkov/orderdesk/internal/domain/order"
	"github.com/avolkov/orderdesk/internal/domain/product"
)

// --- Mock repositories ---

type mockProductRepo struct {
	byID   map[int64]*product.Product
	nextID int64
}

func newProductRepo(products ...product.Product) *mockProductRepo {
	byID := make(map[int64]*product.Product, len(products))
	var maxID int64
	for i := range products {
		byID[products[i].ID] = &products[i]
		if products[i].ID > maxID {
			maxID = products[i].ID
		}
	}
	return &mockProductRepo{byID: byID, nextID: maxID + 1}
}

func (m *mockProductRepo) List(_ context.Context) ([]product.Product, error) {
	out := make([]product.Product, 0, len(m.byID))
	for _, p := range m.byID {
		out = append(out, *p)
	}
	return out, nil
}

func (m *mockProductRepo) GetByID(_ context.Context, id int64) (*product.Product, error) {
	p, ok := m.byID[id]
	if !ok {
		return nil, product.ErrNotFound
	}
	return p, nil
}

func (m *mockProductRepo) GetByIDs(_ context.Context, ids []int64) ([]product.Product, error) {
	var out []product.Product
	for _, id := range ids {
		if p, ok := m.byID[id]; ok {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (m *mockProductRepo) Create(_ context.Context, name string, price decimal.Decimal) (*product.Product, error) {
	p := &product.Product{ID: m.nextID, Name: name, Price: price}
	m.byID[p.ID] = p
	m.nextID++
	return p, nil
}

func (m *mockProductRepo) Update(_ context.Context, id int64, name string, price decimal.Decimal) (*product.Product, error) {
	p, ok := m.byID[id]
	if !ok {
		return nil, product.ErrNotFound
	}
	p.Name = name
	p.Price = price
	return p, nil
}

func (m *mockProductRepo) Delete(_ context.Context, id int64) (bool, error) {
	if _, ok := m.byID[id]; !ok {
		return false, nil
	}
	delete(m.byID, id)
	return true, nil
}

type mockOrderRepo struct {
	byID   map[int64]*order.Order
	nextID int64
}

func newOrderRepo(orders ...order.Order) *mockOrderRepo {
	byID := make(map[int64]*order.Order, len(orders))
	var maxID int64
	for i := range orders {
		byID[orders[i].ID] = &orders[i]
		if orders[i].ID > maxID {
			maxID = orders[i].ID
		}
	}
	return &mockOrderRepo{byID: byID, nextID: maxID + 1}
}

func (m *mockOrderRepo) List(_ context.Context) ([]order.Order, error) {
	out := make([]order.Order, 0, len(m.byID))
	for _, o := range m.byID {
		out = append(out, *o)
	}
	return out, nil
}

func (m *mockOrderRepo) GetByID(_ context.Context, id int64) (*order.Order, error) {
	o, ok := m.byID[id]
	if !ok {
		return nil, order.ErrNotFound
	}
	return o, nil
}

func (m *mockOrderRepo) Create(_ context.Context, draft order.Draft) (*order.Order, error) {
	o := &order.Order{
		ID:         m.nextID,
		Number:     draft.Number,
		Date:       draft.Date,
		Status:     draft.Status,
		FinalPrice: draft.FinalPrice,
		Items:      make([]order.LineItem, len(draft.Items)),
	}
	for i, it := range draft.Items {
		it.ID = int64(i + 1)
		it.OrderID = o.ID
		o.Items[i] = it
	}
	m.byID[o.ID] = o
	m.nextID++
	return o, nil
}

func (m *mockOrderRepo) UpdateStatus(_ context.Context, id int64, status order.Status) (*order.Order, error) {
	o, ok := m.byID[id]
	if !ok {
		return nil, order.ErrNotFound
	}
	o.Status = status
	return o, nil
}

func (m *mockOrderRepo) Delete(_ context.Context, id int64) (bool, error) {
	if _, ok := m.byID[id]; !ok {
		return false, nil
	}
	delete(m.byID, id)
	return true, nil
}

// --- Helpers ---

func newTestServer(products *mockProductRepo, orders *mockOrderRepo) *httptest.Server {
	h := NewHandler(product.NewService(products), order.NewService(products, orders))
	mux := http.NewServeMux()
	h.Register(mux)
	return httptest.NewServer(mux)
}

func doRequest(t *testing.T, srv *httptest.Server, method, path, body string) *http.Response {
	t.Helper()

	var reader *strings.Reader
	if body != "" {
		reader = strings.NewReader(body)
	} else {
		reader = strings.NewReader("")
	}

	req, err := http.NewRequest(method, srv.URL+path, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	return resp
}

func decodeJSON[T any](t *testing.T, resp *http.Response) T {
	t.Helper()

	defer resp.Body.Close()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func widgetRepo() *mockProductRepo {
	return newProductRepo(
		product.Product{ID: 1, Name: "Widget", Price: decimal.RequireFromString("9.99")},
		product.Product{ID: 2, Name: "Gadget", Price: decimal.RequireFromString("24.50")},
	)
}

// --- Product endpoint tests ---

func TestListProducts(t *testing.T) {
	srv := newTestServer(widgetRepo(), newOrderRepo())
	defer srv.Close()

	resp := doRequest(t, srv, http.MethodGet, "/api/products", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	products := decodeJSON[[]productJSON](t, resp)
	assert.Len(t, products, 2)
}

func TestCreateProduct(t *testing.T) {
	srv := newTestServer(newProductRepo(), newOrderRepo())
	defer srv.Close()

	resp := doRequest(t, srv, http.MethodPost, "/api/products", `{"name":"Widget","price":9.99}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	p := decodeJSON[productJSON](t, resp)
	assert.Equal(t, "Widget", p.Name)
	assert.InDelta(t, 9.99, p.Price, 0.001)
	assert.NotZero(t, p.ID)
}

func TestCreateProduct_EmptyName(t *testing.T) {
	srv := newTestServer(newProductRepo(), newOrderRepo())
	defer srv.Close()

	resp := doRequest(t, srv, http.MethodPost, "/api/products", `{"name":"","price":1}`)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestCreateProduct_InvalidBody(t *testing.T) {
	srv := newTestServer(newProductRepo(), newOrderRepo())
	defer srv.Close()

	resp := doRequest(t, srv, http.MethodPost, "/api/products", `{not json`)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestUpdateProduct(t *testing.T) {
	srv := newTestServer(widgetRepo(), newOrderRepo())
	defer srv.Close()

	resp := doRequest(t, srv, http.MethodPut, "/api/products/1", `{"name":"Deluxe Widget","price":14.5}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	p := decodeJSON[productJSON](t, resp)
	assert.Equal(t, "Deluxe Widget", p.Name)
	assert.InDelta(t, 14.5, p.Price, 0.001)
}

func TestUpdateProduct_NotFound(t *testing.T) {
	srv := newTestServer(newProductRepo(), newOrderRepo())
	defer srv.Close()

	resp := doRequest(t, srv, http.MethodPut, "/api/products/42", `{"name":"Widget","price":1}`)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestDeleteProduct(t *testing.T) {
	srv := newTestServer(widgetRepo(), newOrderRepo())
	defer srv.Close()

	resp := doRequest(t, srv, http.MethodDelete, "/api/products/1", "")
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
}

// --- Order endpoint tests ---

func TestCreateOrder(t *testing.T) {
	srv := newTestServer(widgetRepo(), newOrderRepo())
	defer srv.Close()

	resp := doRequest(t, srv, http.MethodPost, "/api/orders",
		`{"lineItems":[{"productId":1,"quantity":3}]}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	o := decodeJSON[orderJSON](t, resp)
	assert.Equal(t, "Pending", o.Status)
	assert.InDelta(t, 29.97, o.FinalPrice, 0.001)
	require.Len(t, o.LineItems, 1)
	it := o.LineItems[0]
	assert.Equal(t, int64(1), it.ProductID)
	assert.Equal(t, "Widget", it.ProductName)
	assert.InDelta(t, 9.99, it.ProductPrice, 0.001)
	assert.Equal(t, 3, it.Quantity)
	assert.InDelta(t, 29.97, it.TotalPrice, 0.001)
}

func TestCreateOrder_UnknownProduct(t *testing.T) {
	srv := newTestServer(widgetRepo(), newOrderRepo())
	defer srv.Close()

	resp := doRequest(t, srv, http.MethodPost, "/api/orders",
		`{"lineItems":[{"productId":99,"quantity":1}]}`)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	e := decodeJSON[errorJSON](t, resp)
	assert.Contains(t, e.Message, "99")
}

func TestCreateOrder_EmptyItems(t *testing.T) {
	srv := newTestServer(widgetRepo(), newOrderRepo())
	defer srv.Close()

	resp := doRequest(t, srv, http.MethodPost, "/api/orders", `{"lineItems":[]}`)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestCreateOrder_ZeroQuantity(t *testing.T) {
	srv := newTestServer(widgetRepo(), newOrderRepo())
	defer srv.Close()

	resp := doRequest(t, srv, http.MethodPost, "/api/orders",
		`{"lineItems":[{"productId":1,"quantity":0}]}`)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestGetOrder(t *testing.T) {
	orders := newOrderRepo(order.Order{
		ID:         1,
		Number:     "ORD-1",
		Date:       time.Now().UTC(),
		Status:     order.StatusPending,
		FinalPrice: decimal.RequireFromString("29.97"),
	})
	srv := newTestServer(widgetRepo(), orders)
	defer srv.Close()

	resp := doRequest(t, srv, http.MethodGet, "/api/orders/1", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	o := decodeJSON[orderJSON](t, resp)
	assert.Equal(t, int64(1), o.ID)
	assert.Equal(t, "ORD-1", o.Number)
}

func TestGetOrder_NotFound(t *testing.T) {
	srv := newTestServer(widgetRepo(), newOrderRepo())
	defer srv.Close()

	resp := doRequest(t, srv, http.MethodGet, "/api/orders/42", "")
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestUpdateOrderStatus(t *testing.T) {
	orders := newOrderRepo(order.Order{ID: 1, Status: order.StatusPending})
	srv := newTestServer(widgetRepo(), orders)
	defer srv.Close()

	resp := doRequest(t, srv, http.MethodPatch, "/api/orders/1/status", `{"status":"InProgress"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	o := decodeJSON[orderJSON](t, resp)
	assert.Equal(t, "InProgress", o.Status)
}

func TestUpdateOrderStatus_UnknownStatus(t *testing.T) {
	orders := newOrderRepo(order.Order{ID: 1, Status: order.StatusPending})
	srv := newTestServer(widgetRepo(), orders)
	defer srv.Close()

	resp := doRequest(t, srv, http.MethodPatch, "/api/orders/1/status", `{"status":"Shipped"}`)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestUpdateOrderStatus_Completed(t *testing.T) {
	orders := newOrderRepo(order.Order{ID: 1, Status: order.StatusCompleted})
	srv := newTestServer(widgetRepo(), orders)
	defer srv.Close()

	resp := doRequest(t, srv, http.MethodPatch, "/api/orders/1/status", `{"status":"Pending"}`)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	e := decodeJSON[errorJSON](t, resp)
	assert.Contains(t, e.Message, "immutable")
}

func TestUpdateOrderStatus_NotFound(t *testing.T) {
	srv := newTestServer(widgetRepo(), newOrderRepo())
	defer srv.Close()

	resp := doRequest(t, srv, http.MethodPatch, "/api/orders/42/status", `{"status":"Pending"}`)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestDeleteOrder(t *testing.T) {
	orders := newOrderRepo(order.Order{ID: 1, Status: order.StatusPending})
	srv := newTestServer(widgetRepo(), orders)
	defer srv.Close()

	resp := doRequest(t, srv, http.MethodDelete, "/api/orders/1", "")
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
}

func TestDeleteOrder_Completed(t *testing.T) {
	orders := newOrderRepo(order.Order{ID: 1, Status: order.StatusCompleted})
	srv := newTestServer(widgetRepo(), orders)
	defer srv.Close()

	resp := doRequest(t, srv, http.MethodDelete, "/api/orders/1", "")
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestDeleteOrder_NotFound(t *testing.T) {
	srv := newTestServer(widgetRepo(), newOrderRepo())
	defer srv.Close()

	resp := doRequest(t, srv, http.MethodDelete, "/api/orders/42", "")
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestInvalidID(t *testing.T) {
	srv := newTestServer(widgetRepo(), newOrderRepo())
	defer srv.Close()

	resp := doRequest(t, srv, http.MethodGet, "/api/orders/abc", "")
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
