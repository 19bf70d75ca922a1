// Command catalog-import bulk-loads the product catalog from gzipped JSONL
// supplier feeds. Each feed line is one product object. Feeds from different
// suppliers overlap heavily, so lines are screened through a bloom filter
// keyed by product name before insertion. The filter is pre-seeded with the
// names already in the catalog, which makes re-running the same feeds a
// no-op. Screening is probabilistic, with a false-positive rate that may
// drop a small fraction of distinct products.
package main

import (
	"bufio"
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"strings"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/jackc/pgx/v5/pgxpool"
	pgzip "github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/avolkov/orderdesk/internal/postgres"
)

const (
	bloomCapacity = 1_000_000
	bloomFPR      = 0.001
	progressEvery = 100_000
)

type feedProduct struct {
	Name  string
	Price decimal.Decimal
}

func main() {
	var (
		feedList    string
		databaseURL string
	)

	flag.StringVar(&feedList, "feeds", "", "comma-separated list of gzipped JSONL feed files")
	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}
	if feedList == "" {
		slog.Error("at least one feed file is required: set --feeds")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, strings.Split(feedList, ","), databaseURL); err != nil {
		slog.Error("catalog import failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("catalog import completed successfully")
}

func run(ctx context.Context, feeds []string, databaseURL string) error {
	for _, f := range feeds {
		if _, err := os.Stat(f); err != nil {
			return errors.Wrapf(err, "check feed %s", f)
		}
	}

	slog.Info("connecting to database")

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	// The catalog's existing names pre-seed the duplicate screen so a re-run
	// of the same feeds does not insert the catalog twice.
	filter := bloom.NewWithEstimates(bloomCapacity, bloomFPR)
	if err := seedFilterFromCatalog(ctx, pool, filter); err != nil {
		return errors.Wrap(err, "load existing catalog names")
	}

	// Pass 1: parse all feeds concurrently.
	slog.Info("parsing feeds", slog.Int("feeds", len(feeds)))

	parsed, err := parseFeeds(ctx, feeds)
	if err != nil {
		return errors.Wrap(err, "parse feeds")
	}

	// Pass 2: merge in feed order, screening duplicates.
	unique := screenProducts(filter, parsed)

	slog.Info("unique products found", slog.Int("count", len(unique)))

	if len(unique) == 0 {
		slog.Info("no products to insert")
		return nil
	}

	return writeProducts(ctx, pool, unique)
}

// seedFilterFromCatalog adds every product name already in the catalog to the
// duplicate screen.
func seedFilterFromCatalog(ctx context.Context, pool *pgxpool.Pool, filter *bloom.BloomFilter) error {
	rows, err := pool.Query(ctx, `SELECT name FROM products`)
	if err != nil {
		return err
	}
	defer rows.Close()

	var count int
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return err
		}
		filter.AddString(name)
		count++
	}
	if err := rows.Err(); err != nil {
		return err
	}

	slog.Info("existing catalog names loaded", slog.Int("count", count))
	return nil
}

// screenProducts merges parsed feeds in feed order, dropping any product
// whose name is already in the filter. Names that survive are added to the
// filter, so duplicates within and across feeds collapse to their first
// occurrence.
func screenProducts(filter *bloom.BloomFilter, parsed [][]feedProduct) []feedProduct {
	var unique []feedProduct
	for _, products := range parsed {
		for _, p := range products {
			if filter.TestString(p.Name) {
				continue
			}
			filter.AddString(p.Name)
			unique = append(unique, p)
		}
	}
	return unique
}

// parseFeeds streams every feed concurrently. Results are indexed by feed so
// merge order stays deterministic.
func parseFeeds(ctx context.Context, feeds []string) ([][]feedProduct, error) {
	results := make([][]feedProduct, len(feeds))

	g, ctx := errgroup.WithContext(ctx)
	for i, f := range feeds {
		g.Go(parseFeedFile(ctx, i, f, results))
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return results, nil
}

func parseFeedFile(ctx context.Context, idx int, path string, results [][]feedProduct) func() error {
	return func() error {
		var (
			products []feedProduct
			count    uint64
		)

		if err := streamGzFile(ctx, path, func(line []byte) error {
			p, err := decodeProduct(line)
			if err != nil {
				return errors.Wrapf(err, "feed %s line %d", path, count+1)
			}

			products = append(products, p)
			count++
			if count%progressEvery == 0 {
				slog.Info("parse progress",
					slog.Int("feed", idx+1),
					slog.Uint64("lines", count),
				)
			}
			return nil
		}); err != nil {
			return err
		}

		slog.Info("feed parsed",
			slog.Int("feed", idx+1),
			slog.Uint64("total_lines", count),
		)

		results[idx] = products
		return nil
	}
}

// decodeProduct parses one JSONL line of the form
// {"name": "Widget", "price": 9.99}.
func decodeProduct(line []byte) (feedProduct, error) {
	var p feedProduct

	d := jx.DecodeBytes(line)
	if err := d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "name":
			name, err := d.Str()
			if err != nil {
				return errors.Wrap(err, "name")
			}
			p.Name = name
			return nil
		case "price":
			num, err := d.Num()
			if err != nil {
				return errors.Wrap(err, "price")
			}
			price, err := decimal.NewFromString(num.String())
			if err != nil {
				return errors.Wrap(err, "price")
			}
			p.Price = price
			return nil
		default:
			return d.Skip()
		}
	}); err != nil {
		return feedProduct{}, err
	}

	if p.Name == "" {
		return feedProduct{}, errors.New("missing product name")
	}
	if p.Price.IsNegative() {
		return feedProduct{}, errors.Errorf("negative price for %q", p.Name)
	}

	return p, nil
}

// streamGzFile opens a gzip-compressed file and calls fn for each line.
func streamGzFile(ctx context.Context, path string, fn func(line []byte) error) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(err, "open %s", path)
	}
	defer func() { _ = f.Close() }()

	gz, err := pgzip.NewReader(f)
	if err != nil {
		return errors.Wrapf(err, "create gzip reader for %s", path)
	}
	defer func() { _ = gz.Close() }()

	scanner := bufio.NewScanner(gz)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		if len(scanner.Bytes()) == 0 {
			continue
		}
		if err := fn(scanner.Bytes()); err != nil {
			return err
		}
	}

	if err := scanner.Err(); err != nil {
		return errors.Wrapf(err, "scan %s", path)
	}

	return nil
}

// writeProducts inserts all unique products into the catalog.
func writeProducts(ctx context.Context, pool *pgxpool.Pool, products []feedProduct) error {
	slog.Info("writing products to database", slog.Int("count", len(products)))

	for i, p := range products {
		if _, err := pool.Exec(ctx,
			`INSERT INTO products (name, price) VALUES ($1, $2)`,
			p.Name, p.Price,
		); err != nil {
			return errors.Wrapf(err, "insert product %q", p.Name)
		}

		if (i+1)%100 == 0 || i+1 == len(products) {
			slog.Info("write progress", slog.Int("written", i+1), slog.Int("total", len(products)))
		}
	}

	return nil
}
