package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/avolkov/orderdesk/internal/domain/product"
)

const (
	listProductsSQL = `SELECT id, name, price FROM products ORDER BY id`

	getProductByIDSQL = `SELECT id, name, price FROM products WHERE id = $1`

	getProductsByIDsSQL = `SELECT id, name, price FROM products WHERE id = ANY($1)`

	createProductSQL = `INSERT INTO products (name, price) VALUES ($1, $2)
		RETURNING id, name, price`

	updateProductSQL = `UPDATE products SET name = $2, price = $3 WHERE id = $1
		RETURNING id, name, price`

	deleteProductSQL = `DELETE FROM products WHERE id = $1`
)

var _ product.Repository = (*ProductRepository)(nil)

// ProductRepository implements product.Repository backed by PostgreSQL.
type ProductRepository struct {
	pool *pgxpool.Pool
}

// NewProductRepository returns a ProductRepository that uses the given pool.
func NewProductRepository(pool *pgxpool.Pool) *ProductRepository {
	return &ProductRepository{pool: pool}
}

// List returns all products from the catalog ordered by ID.
func (r *ProductRepository) List(ctx context.Context) ([]product.Product, error) {
	rows, err := r.pool.Query(ctx, listProductsSQL)
	if err != nil {
		return nil, fmt.Errorf("listing products: %w", err)
	}
	return pgx.CollectRows(rows, scanProduct)
}

// GetByID returns a single product by its identifier.
func (r *ProductRepository) GetByID(ctx context.Context, id int64) (*product.Product, error) {
	rows, err := r.pool.Query(ctx, getProductByIDSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting product %d: %w", id, err)
	}

	p, err := pgx.CollectExactlyOneRow(rows, scanProduct)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, product.ErrNotFound
		}
		return nil, fmt.Errorf("getting product %d: %w", id, err)
	}
	return &p, nil
}

// GetByIDs returns products matching any of the given IDs in a single query.
func (r *ProductRepository) GetByIDs(ctx context.Context, ids []int64) ([]product.Product, error) {
	rows, err := r.pool.Query(ctx, getProductsByIDsSQL, ids)
	if err != nil {
		return nil, fmt.Errorf("getting products by ids: %w", err)
	}
	return pgx.CollectRows(rows, scanProduct)
}

// Create inserts a new product and returns it with its assigned ID.
func (r *ProductRepository) Create(ctx context.Context, name string, price decimal.Decimal) (*product.Product, error) {
	rows, err := r.pool.Query(ctx, createProductSQL, name, price)
	if err != nil {
		return nil, fmt.Errorf("creating product %q: %w", name, err)
	}

	p, err := pgx.CollectExactlyOneRow(rows, scanProduct)
	if err != nil {
		return nil, fmt.Errorf("creating product %q: %w", name, err)
	}
	return &p, nil
}

// Update replaces the name and price of an existing product.
func (r *ProductRepository) Update(ctx context.Context, id int64, name string, price decimal.Decimal) (*product.Product, error) {
	rows, err := r.pool.Query(ctx, updateProductSQL, id, name, price)
	if err != nil {
		return nil, fmt.Errorf("updating product %d: %w", id, err)
	}

	p, err := pgx.CollectExactlyOneRow(rows, scanProduct)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, product.ErrNotFound
		}
		return nil, fmt.Errorf("updating product %d: %w", id, err)
	}
	return &p, nil
}

// Delete removes a product. It reports whether a row was actually deleted.
func (r *ProductRepository) Delete(ctx context.Context, id int64) (bool, error) {
	tag, err := r.pool.Exec(ctx, deleteProductSQL, id)
	if err != nil {
		return false, fmt.Errorf("deleting product %d: %w", id, err)
	}
	return tag.RowsAffected() > 0, nil
}

func scanProduct(row pgx.CollectableRow) (product.Product, error) {
	var (
		p     product.Product
		price decimal.Decimal
	)
	err := row.Scan(&p.ID, &p.Name, &price)
	p.Price = price
	return p, err
}
