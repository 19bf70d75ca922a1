package handler

import (
	"net/http"

	"github.com/go-faster/errors"

	"github.com/avolkov/orderdesk/internal/domain/order"
)

type createOrderJSON struct {
	LineItems []createLineItemJSON `json:"lineItems"`
}

type createLineItemJSON struct {
	ProductID int64 `json:"productId"`
	Quantity  int   `json:"quantity"`
}

type updateStatusJSON struct {
	Status string `json:"status"`
}

// ListOrders returns all orders, hydrated, newest first.
func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.orders.List(r.Context())
	if err != nil {
		writeStorageError(w, r, err)
		return
	}

	out := make([]orderJSON, len(orders))
	for i, o := range orders {
		out[i] = toOrderJSON(o)
	}
	writeJSON(w, http.StatusOK, out)
}

// GetOrder returns a single hydrated order.
func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	o, err := h.orders.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, order.ErrNotFound) {
			writeError(w, http.StatusNotFound, "order not found")
			return
		}
		writeStorageError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toOrderJSON(*o))
}

// CreateOrder creates an order from the requested line items. Any business
// rule failure, including an unknown product, maps to 400.
func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var body createOrderJSON
	if !decodeBody(w, r, &body) {
		return
	}

	items := make([]order.ItemRequest, len(body.LineItems))
	for i, it := range body.LineItems {
		items[i] = order.ItemRequest{
			ProductID: it.ProductID,
			Quantity:  it.Quantity,
		}
	}

	o, err := h.orders.Create(r.Context(), order.CreateRequest{Items: items})
	if err != nil {
		if mapped, ok := orderErrorMessage(err); ok {
			writeError(w, http.StatusBadRequest, mapped)
			return
		}
		writeStorageError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, toOrderJSON(*o))
}

// UpdateOrderStatus moves an order to a new status. Conflicts with the
// terminal state and unknown orders both map to 400.
func (h *Handler) UpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var body updateStatusJSON
	if !decodeBody(w, r, &body) {
		return
	}

	status, err := order.ParseStatus(body.Status)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	o, err := h.orders.UpdateStatus(r.Context(), id, status)
	if err != nil {
		if errors.Is(err, order.ErrNotFound) || errors.Is(err, order.ErrCompleted) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeStorageError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toOrderJSON(*o))
}

// DeleteOrder removes an order and its line items.
func (h *Handler) DeleteOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	if err := h.orders.Delete(r.Context(), id); err != nil {
		if errors.Is(err, order.ErrNotFound) || errors.Is(err, order.ErrCompleted) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeStorageError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// orderErrorMessage reports whether err is an order-creation business rule
// failure and returns its client-visible message.
func orderErrorMessage(err error) (string, bool) {
	if errors.Is(err, order.ErrEmptyItems) {
		return err.Error(), true
	}

	var iqErr *order.InvalidQuantityError
	if errors.As(err, &iqErr) {
		return iqErr.Error(), true
	}

	var pnfErr *order.ProductNotFoundError
	if errors.As(err, &pnfErr) {
		return pnfErr.Error(), true
	}

	return "", false
}
