// Package handler maps the HTTP surface onto the catalog and order services.
package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/avolkov/orderdesk/internal/domain/order"
	"github.com/avolkov/orderdesk/internal/domain/product"
)

// Handler serves the REST API, delegating business logic to the injected
// services.
type Handler struct {
	catalog *product.Service
	orders  *order.Service
}

// NewHandler constructs a Handler with the required domain dependencies.
func NewHandler(catalog *product.Service, orders *order.Service) *Handler {
	return &Handler{
		catalog: catalog,
		orders:  orders,
	}
}

// Register mounts all API routes on the given mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/products", h.ListProducts)
	mux.HandleFunc("POST /api/products", h.CreateProduct)
	mux.HandleFunc("PUT /api/products/{id}", h.UpdateProduct)
	mux.HandleFunc("DELETE /api/products/{id}", h.DeleteProduct)

	mux.HandleFunc("GET /api/orders", h.ListOrders)
	mux.HandleFunc("GET /api/orders/{id}", h.GetOrder)
	mux.HandleFunc("POST /api/orders", h.CreateOrder)
	mux.HandleFunc("PATCH /api/orders/{id}/status", h.UpdateOrderStatus)
	mux.HandleFunc("DELETE /api/orders/{id}", h.DeleteOrder)
}

// --- Wire representations ---

type productJSON struct {
	ID    int64   `json:"id"`
	Name  string  `json:"name"`
	Price float64 `json:"price"`
}

type productBodyJSON struct {
	Name  string  `json:"name"`
	Price float64 `json:"price"`
}

type orderJSON struct {
	ID         int64          `json:"id"`
	Number     string         `json:"orderNumber"`
	Date       time.Time      `json:"date"`
	Status     string         `json:"status"`
	FinalPrice float64        `json:"finalPrice"`
	LineItems  []lineItemJSON `json:"lineItems"`
}

type lineItemJSON struct {
	ID           int64   `json:"id"`
	OrderID      int64   `json:"orderId"`
	ProductID    int64   `json:"productId"`
	ProductName  string  `json:"productName"`
	ProductPrice float64 `json:"productPrice"`
	Quantity     int     `json:"quantity"`
	TotalPrice   float64 `json:"totalPrice"`
}

type errorJSON struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func toProductJSON(p product.Product) productJSON {
	return productJSON{
		ID:    p.ID,
		Name:  p.Name,
		Price: p.Price.InexactFloat64(),
	}
}

func toOrderJSON(o order.Order) orderJSON {
	items := make([]lineItemJSON, len(o.Items))
	for i, it := range o.Items {
		items[i] = lineItemJSON{
			ID:           it.ID,
			OrderID:      it.OrderID,
			ProductID:    it.ProductID,
			ProductName:  it.ProductName,
			ProductPrice: it.ProductPrice.InexactFloat64(),
			Quantity:     it.Quantity,
			TotalPrice:   it.TotalPrice.InexactFloat64(),
		}
	}
	return orderJSON{
		ID:         o.ID,
		Number:     o.Number,
		Date:       o.Date,
		Status:     string(o.Status),
		FinalPrice: o.FinalPrice.InexactFloat64(),
		LineItems:  items,
	}
}

// --- Response helpers ---

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorJSON{Code: status, Message: message})
}

// writeStorageError logs the unexpected failure and responds 500 without
// leaking internals to the client.
func writeStorageError(w http.ResponseWriter, r *http.Request, err error) {
	zctx.From(r.Context()).Error("storage failure", zap.Error(err))
	writeError(w, http.StatusInternalServerError, "internal error")
}

// pathID parses the {id} path segment. It reports false after writing a 400
// response when the segment is not a valid integer.
func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return 0, false
	}
	return id, true
}

// decodeBody parses a JSON request body into v, responding 400 on failure.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}
