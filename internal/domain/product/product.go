package product

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a requested product does not exist.
var ErrNotFound = errors.New("product not found")

// Product represents a catalog item available for ordering.
type Product struct {
	ID    int64
	Name  string
	Price decimal.Decimal
}

// Repository defines persistence operations for the product catalog.
type Repository interface {
	List(ctx context.Context) ([]Product, error)
	GetByID(ctx context.Context, id int64) (*Product, error)
	GetByIDs(ctx context.Context, ids []int64) ([]Product, error)
	Create(ctx context.Context, name string, price decimal.Decimal) (*Product, error)
	Update(ctx context.Context, id int64, name string, price decimal.Decimal) (*Product, error)
	Delete(ctx context.Context, id int64) (bool, error)
}
