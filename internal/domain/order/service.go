package order

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/avolkov/orderdesk/internal/domain/product"
)

// Sentinel errors for order validation and mutation.
var (
	ErrNotFound   = fmt.Errorf("order not found")
	ErrEmptyItems = fmt.Errorf("line items required")

	// ErrCompleted guards the terminal state: a completed order can neither
	// change status nor be deleted.
	ErrCompleted = fmt.Errorf("completed orders are immutable")
)

// ProductNotFoundError indicates a requested product does not exist in the
// catalog at order-creation time.
type ProductNotFoundError struct {
	ProductID int64
}

func (e *ProductNotFoundError) Error() string {
	return fmt.Sprintf("product %d not found", e.ProductID)
}

// InvalidQuantityError indicates a line item has a non-positive quantity.
type InvalidQuantityError struct {
	ProductID int64
}

func (e *InvalidQuantityError) Error() string {
	return fmt.Sprintf("quantity must be greater than 0 for product %d", e.ProductID)
}

// ItemRequest is one requested (product, quantity) pair.
type ItemRequest struct {
	ProductID int64
	Quantity  int
}

// CreateRequest holds the input for creating an order.
type CreateRequest struct {
	Items []ItemRequest
}

// Service encapsulates the order workflow: price snapshotting on creation and
// the terminal-state gate on mutation.
type Service struct {
	products product.Repository
	orders   Repository
	now      func() time.Time
}

// NewService creates an order Service with the required domain dependencies.
func NewService(products product.Repository, orders Repository) *Service {
	return &Service{
		products: products,
		orders:   orders,
		now:      time.Now,
	}
}

// List returns all orders, hydrated, newest first.
func (s *Service) List(ctx context.Context) ([]Order, error) {
	return s.orders.List(ctx)
}

// Get returns a single hydrated order.
func (s *Service) Get(ctx context.Context, id int64) (*Order, error) {
	return s.orders.GetByID(ctx, id)
}

// Create resolves every requested line against the catalog, snapshots product
// names and prices, and persists the order atomically. If any product is
// missing the whole operation fails and nothing is written.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*Order, error) {
	if len(req.Items) == 0 {
		return nil, ErrEmptyItems
	}

	// Validate quantities and collect product IDs.
	ids := make([]int64, len(req.Items))
	for i, item := range req.Items {
		if item.Quantity <= 0 {
			return nil, &InvalidQuantityError{ProductID: item.ProductID}
		}
		ids[i] = item.ProductID
	}

	// Batch fetch all referenced products in a single query.
	fetched, err := s.products.GetByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("get products: %w", err)
	}

	byID := make(map[int64]product.Product, len(fetched))
	for _, p := range fetched {
		byID[p.ID] = p
	}

	// Snapshot name and price per line, preserving the input order.
	items := make([]LineItem, len(req.Items))
	finalPrice := decimal.Zero
	for i, item := range req.Items {
		p, ok := byID[item.ProductID]
		if !ok {
			return nil, &ProductNotFoundError{ProductID: item.ProductID}
		}

		total := p.Price.Mul(decimal.NewFromInt(int64(item.Quantity)))
		items[i] = LineItem{
			ProductID:    p.ID,
			ProductName:  p.Name,
			ProductPrice: p.Price,
			Quantity:     item.Quantity,
			TotalPrice:   total,
		}
		finalPrice = finalPrice.Add(total)
	}

	created, err := s.orders.Create(ctx, Draft{
		Number:     s.newOrderNumber(),
		Date:       s.now().UTC(),
		Status:     StatusPending,
		FinalPrice: finalPrice,
		Items:      items,
	})
	if err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}

	return created, nil
}

// UpdateStatus moves an order to a new status. Completed orders are terminal:
// the change is rejected with ErrCompleted before anything is written. All
// other transitions, including back to Pending, are allowed.
func (s *Service) UpdateStatus(ctx context.Context, id int64, status Status) (*Order, error) {
	current, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if current.Status.Terminal() {
		return nil, ErrCompleted
	}

	updated, err := s.orders.UpdateStatus(ctx, id, status)
	if err != nil {
		return nil, fmt.Errorf("update order %d status: %w", id, err)
	}
	return updated, nil
}

// Delete removes an order and its line items, unless the order is completed.
func (s *Service) Delete(ctx context.Context, id int64) error {
	current, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if current.Status.Terminal() {
		return ErrCompleted
	}

	if _, err := s.orders.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete order %d: %w", id, err)
	}
	return nil
}

// newOrderNumber generates a human-readable, time-based order number. The
// random suffix keeps numbers unique when two orders land on the same
// millisecond.
func (s *Service) newOrderNumber() string {
	return fmt.Sprintf("ORD-%d-%s", s.now().UnixMilli(), uuid.NewString()[:8])
}
