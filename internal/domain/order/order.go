package order

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Status is the lifecycle state of an order.
type Status string

// Order statuses. Completed is terminal: a completed order can neither change
// status nor be deleted.
const (
	StatusPending    Status = "Pending"
	StatusInProgress Status = "InProgress"
	StatusCompleted  Status = "Completed"
)

// ParseStatus validates a status string coming from the outside.
func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusPending, StatusInProgress, StatusCompleted:
		return Status(s), nil
	}
	return "", errors.Errorf("unknown order status %q", s)
}

// Terminal reports whether the status permits no further mutation.
func (s Status) Terminal() bool {
	return s == StatusCompleted
}

// Order represents a customer order together with its line items. FinalPrice
// is stored at creation time and never recomputed on read.
type Order struct {
	ID         int64
	Number     string
	Date       time.Time
	Status     Status
	FinalPrice decimal.Decimal
	Items      []LineItem
}

// LineItem is one product-quantity entry within an order. ProductName and
// ProductPrice are snapshots taken at order creation; later catalog edits do
// not alter them.
type LineItem struct {
	ID           int64
	OrderID      int64
	ProductID    int64
	ProductName  string
	ProductPrice decimal.Decimal
	Quantity     int
	TotalPrice   decimal.Decimal
}

// Draft holds the fields of an order that has not been persisted yet. Line
// item IDs and the order ID are assigned by the store.
type Draft struct {
	Number     string
	Date       time.Time
	Status     Status
	FinalPrice decimal.Decimal
	Items      []LineItem
}

// Repository defines persistence operations for orders. Implementations must
// persist a draft's header and line items atomically and hydrate line items
// on every read. GetByID and UpdateStatus return ErrNotFound when no order
// with the given ID exists.
type Repository interface {
	List(ctx context.Context) ([]Order, error)
	GetByID(ctx context.Context, id int64) (*Order, error)
	Create(ctx context.Context, draft Draft) (*Order, error)
	UpdateStatus(ctx context.Context, id int64, status Status) (*Order, error)
	Delete(ctx context.Context, id int64) (bool, error)
}
