//go:build integration

package integration

import (
	"context"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	pgxdecimal "github.com/jackc/pgx-shopspring-decimal"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/avolkov/orderdesk/internal/postgres"
)

// queryCounter counts every statement sent over connections it traces.
type queryCounter struct {
	n atomic.Int64
}

func (c *queryCounter) TraceQueryStart(ctx context.Context, _ *pgx.Conn, _ pgx.TraceQueryStartData) context.Context {
	c.n.Add(1)
	return ctx
}

func (c *queryCounter) TraceQueryEnd(context.Context, *pgx.Conn, pgx.TraceQueryEndData) {}

// TestListOrders_TwoQueryHydration verifies that listing orders issues at
// most two statements however many orders exist: one for the headers, one
// for all of their line items.
func TestListOrders_TwoQueryHydration(t *testing.T) {
	widget := findProduct(t, "Widget")
	for range 3 {
		o := createOrder(t, lineItemRequest{ProductID: widget.ID, Quantity: 1})
		t.Cleanup(func() {
			resp := doRequest(t, http.MethodDelete, orderPath(o.ID), nil)
			resp.Body.Close()
		})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	counter := &queryCounter{}

	cfg, err := pgxpool.ParseConfig(postgresURL)
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	cfg.ConnConfig.Tracer = counter
	cfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		pgxdecimal.Register(conn.TypeMap())
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		t.Fatalf("create pool: %v", err)
	}
	defer pool.Close()

	repo := postgres.NewOrderRepository(pool)

	counter.n.Store(0)
	orders, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("list orders: %v", err)
	}

	if len(orders) < 3 {
		t.Fatalf("expected at least 3 orders, got %d", len(orders))
	}
	for _, o := range orders {
		if len(o.Items) == 0 {
			t.Errorf("order %d not hydrated", o.ID)
		}
	}

	if got := counter.n.Load(); got > 2 {
		t.Errorf("listing issued %d queries, want at most 2", got)
	}
}
