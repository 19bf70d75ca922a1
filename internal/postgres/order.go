package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/avolkov/orderdesk/internal/domain/order"
)

const (
	listOrdersSQL = `SELECT id, order_number, date, status, final_price
		FROM orders ORDER BY date DESC, id DESC`

	getOrderByIDSQL = `SELECT id, order_number, date, status, final_price
		FROM orders WHERE id = $1`

	listItemsByOrderIDsSQL = `SELECT id, order_id, product_id, product_name, product_price, quantity, total_price
		FROM order_products WHERE order_id = ANY($1) ORDER BY id`

	createOrderSQL = `INSERT INTO orders (order_number, date, status, final_price)
		VALUES ($1, $2, $3, $4) RETURNING id`

	createOrderItemSQL = `INSERT INTO order_products (order_id, product_id, product_name, product_price, quantity, total_price)
		VALUES ($1, $2, $3, $4, $5, $6)`

	updateOrderStatusSQL = `UPDATE orders SET status = $2 WHERE id = $1`

	deleteOrderSQL = `DELETE FROM orders WHERE id = $1`
)

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL. Line items
// live in the order_products table with ON DELETE CASCADE, so deleting an
// order never leaves orphan rows.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// List returns all orders newest first, each hydrated with its line items.
// Hydration is bounded at two queries total: one for the headers, one for all
// line items of the collected order IDs.
func (r *OrderRepository) List(ctx context.Context) ([]order.Order, error) {
	rows, err := r.pool.Query(ctx, listOrdersSQL)
	if err != nil {
		return nil, fmt.Errorf("listing orders: %w", err)
	}

	orders, err := pgx.CollectRows(rows, scanOrder)
	if err != nil {
		return nil, fmt.Errorf("listing orders: %w", err)
	}
	if len(orders) == 0 {
		return orders, nil
	}

	ids := make([]int64, len(orders))
	for i, o := range orders {
		ids[i] = o.ID
	}

	items, err := r.itemsByOrderIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	byOrder := make(map[int64][]order.LineItem, len(orders))
	for _, it := range items {
		byOrder[it.OrderID] = append(byOrder[it.OrderID], it)
	}
	for i := range orders {
		orders[i].Items = byOrder[orders[i].ID]
	}

	return orders, nil
}

// GetByID returns a single order hydrated with its line items. It returns
// order.ErrNotFound when no matching order exists.
func (r *OrderRepository) GetByID(ctx context.Context, id int64) (*order.Order, error) {
	rows, err := r.pool.Query(ctx, getOrderByIDSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting order %d: %w", id, err)
	}

	o, err := pgx.CollectExactlyOneRow(rows, scanOrder)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, fmt.Errorf("getting order %d: %w", id, err)
	}

	o.Items, err = r.itemsByOrderIDs(ctx, []int64{id})
	if err != nil {
		return nil, err
	}

	return &o, nil
}

// Create persists the order header and all line items in a single
// transaction. On any failure the whole write rolls back; a header without
// items is never observable. The committed order is re-read so the caller
// gets store-assigned IDs.
func (r *OrderRepository) Create(ctx context.Context, draft order.Draft) (*order.Order, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("beginning order transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var orderID int64
	err = tx.QueryRow(ctx, createOrderSQL,
		draft.Number, draft.Date, draft.Status, draft.FinalPrice,
	).Scan(&orderID)
	if err != nil {
		return nil, fmt.Errorf("inserting order %q: %w", draft.Number, err)
	}

	// All line items go in as one batched write keyed to the new order ID.
	batch := &pgx.Batch{}
	for _, it := range draft.Items {
		batch.Queue(createOrderItemSQL,
			orderID, it.ProductID, it.ProductName, it.ProductPrice, it.Quantity, it.TotalPrice,
		)
	}

	br := tx.SendBatch(ctx, batch)
	for range draft.Items {
		if _, err := br.Exec(); err != nil {
			_ = br.Close()
			return nil, fmt.Errorf("inserting line items for order %q: %w", draft.Number, err)
		}
	}
	if err := br.Close(); err != nil {
		return nil, fmt.Errorf("inserting line items for order %q: %w", draft.Number, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("committing order %q: %w", draft.Number, err)
	}

	return r.GetByID(ctx, orderID)
}

// UpdateStatus persists the new status and returns the hydrated order.
func (r *OrderRepository) UpdateStatus(ctx context.Context, id int64, status order.Status) (*order.Order, error) {
	tag, err := r.pool.Exec(ctx, updateOrderStatusSQL, id, status)
	if err != nil {
		return nil, fmt.Errorf("updating order %d status: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return nil, order.ErrNotFound
	}
	return r.GetByID(ctx, id)
}

// Delete removes an order. Its line items are removed by the ON DELETE
// CASCADE constraint in the same statement.
func (r *OrderRepository) Delete(ctx context.Context, id int64) (bool, error) {
	tag, err := r.pool.Exec(ctx, deleteOrderSQL, id)
	if err != nil {
		return false, fmt.Errorf("deleting order %d: %w", id, err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *OrderRepository) itemsByOrderIDs(ctx context.Context, ids []int64) ([]order.LineItem, error) {
	rows, err := r.pool.Query(ctx, listItemsByOrderIDsSQL, ids)
	if err != nil {
		return nil, fmt.Errorf("listing order items: %w", err)
	}

	items, err := pgx.CollectRows(rows, scanLineItem)
	if err != nil {
		return nil, fmt.Errorf("listing order items: %w", err)
	}
	return items, nil
}

func scanOrder(row pgx.CollectableRow) (order.Order, error) {
	var o order.Order
	err := row.Scan(&o.ID, &o.Number, &o.Date, &o.Status, &o.FinalPrice)
	return o, err
}

func scanLineItem(row pgx.CollectableRow) (order.LineItem, error) {
	var it order.LineItem
	err := row.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.ProductName, &it.ProductPrice, &it.Quantity, &it.TotalPrice)
	return it, err
}
