package handler

import (
	"net/http"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/avolkov/orderdesk/internal/domain/product"
)

// ListProducts returns every product in the catalog.
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.catalog.List(r.Context())
	if err != nil {
		writeStorageError(w, r, err)
		return
	}

	out := make([]productJSON, len(products))
	for i, p := range products {
		out[i] = toProductJSON(p)
	}
	writeJSON(w, http.StatusOK, out)
}

// CreateProduct adds a product to the catalog.
func (h *Handler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var body productBodyJSON
	if !decodeBody(w, r, &body) {
		return
	}

	p, err := h.catalog.Create(r.Context(), body.Name, decimal.NewFromFloat(body.Price))
	if err != nil {
		if isValidationError(err) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusBadRequest, "could not create product")
		return
	}

	writeJSON(w, http.StatusCreated, toProductJSON(*p))
}

// UpdateProduct replaces the name and price of an existing product.
func (h *Handler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var body productBodyJSON
	if !decodeBody(w, r, &body) {
		return
	}

	p, err := h.catalog.Update(r.Context(), id, body.Name, decimal.NewFromFloat(body.Price))
	if err != nil {
		if errors.Is(err, product.ErrNotFound) || isValidationError(err) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusBadRequest, "could not update product")
		return
	}

	writeJSON(w, http.StatusOK, toProductJSON(*p))
}

// DeleteProduct removes a product from the catalog. Snapshotted line items in
// existing orders are unaffected.
func (h *Handler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	if _, err := h.catalog.Delete(r.Context(), id); err != nil {
		writeStorageError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func isValidationError(err error) bool {
	return errors.Is(err, product.ErrEmptyName) || errors.Is(err, product.ErrNegativePrice)
}
