// Command seed-db runs migrations and loads an initial product catalog from a
// JSON file. Seeding is skipped when the catalog already has products.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"os/signal"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/avolkov/orderdesk/internal/postgres"
)

type productJSON struct {
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
}

func main() {
	var (
		databaseURL  string
		productsFile string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&productsFile, "products-file", "db/seed/products.json", "path to products JSON file")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, productsFile); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL, productsFile string) error {
	slog.Info("connecting to database")

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	slog.Info("running migrations")

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	return seedProducts(ctx, pool, productsFile)
}

func seedProducts(ctx context.Context, pool *pgxpool.Pool, productsFile string) error {
	var existing int64
	if err := pool.QueryRow(ctx, `SELECT COUNT(*) FROM products`).Scan(&existing); err != nil {
		return errors.Wrap(err, "count products")
	}
	if existing > 0 {
		slog.Info("catalog already seeded, skipping", slog.Int64("products", existing))
		return nil
	}

	slog.Info("reading products file", slog.String("path", productsFile))

	data, err := os.ReadFile(productsFile)
	if err != nil {
		return errors.Wrap(err, "read products file")
	}

	var products []productJSON
	if err := json.Unmarshal(data, &products); err != nil {
		return errors.Wrap(err, "parse products JSON")
	}

	slog.Info("inserting products", slog.Int("count", len(products)))

	for _, p := range products {
		if _, err := pool.Exec(ctx,
			`INSERT INTO products (name, price) VALUES ($1, $2)`,
			p.Name, p.Price,
		); err != nil {
			return errors.Wrapf(err, "insert product %s", p.Name)
		}

		slog.Info("inserted product", slog.String("name", p.Name), slog.String("price", p.Price.String()))
	}

	return nil
}
