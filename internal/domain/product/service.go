package product

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Sentinel errors for catalog validation.
var (
	ErrEmptyName     = errors.New("product name required")
	ErrNegativePrice = errors.New("product price must not be negative")
)

// Service exposes catalog operations. It is a thin pass-through over the
// repository: the catalog carries no cross-row invariants, only input checks.
type Service struct {
	products Repository
}

// NewService creates a catalog Service backed by the given repository.
func NewService(products Repository) *Service {
	return &Service{products: products}
}

// List returns every product in the catalog.
func (s *Service) List(ctx context.Context) ([]Product, error) {
	return s.products.List(ctx)
}

// Get returns a single product by ID.
func (s *Service) Get(ctx context.Context, id int64) (*Product, error) {
	return s.products.GetByID(ctx, id)
}

// Create adds a new product to the catalog.
func (s *Service) Create(ctx context.Context, name string, price decimal.Decimal) (*Product, error) {
	if err := validate(name, price); err != nil {
		return nil, err
	}
	return s.products.Create(ctx, name, price)
}

// Update replaces the name and price of an existing product.
func (s *Service) Update(ctx context.Context, id int64, name string, price decimal.Decimal) (*Product, error) {
	if err := validate(name, price); err != nil {
		return nil, err
	}
	return s.products.Update(ctx, id, name, price)
}

// Delete removes a product. Existing orders keep their snapshotted copies of
// the product's name and price.
func (s *Service) Delete(ctx context.Context, id int64) (bool, error) {
	return s.products.Delete(ctx, id)
}

func validate(name string, price decimal.Decimal) error {
	if name == "" {
		return ErrEmptyName
	}
	if price.IsNegative() {
		return ErrNegativePrice
	}
	return nil
}
