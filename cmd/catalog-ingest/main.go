// Command catalog-ingest bulk-imports supplier catalog feeds into the product
// and inventory tables. Feeds are gzip-compressed text files with one record
// per line:
//
//	sku|name|price_minor_units|stock
//
// Supplier feeds repeat SKUs across files and across full-feed re-exports, so
// a bloom filter screens out already-ingested SKUs cheaply before touching
// the database; the first occurrence of a SKU wins.
package main

import (
	"bufio"
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgzip "github.com/klauspost/pgzip"
	"golang.org/x/sync/errgroup"

	"github.com/kartelle/storefront/internal/postgres"
)

const (
	bloomCapacity = 10_000_000
	bloomFPR      = 0.001
	batchSize     = 500
	progressEvery = 100_000
)

type record struct {
	sku   string
	name  string
	price int64
	stock int64
}

func main() {
	var (
		dataDir     string
		databaseURL string
	)

	flag.StringVar(&dataDir, "data-dir", "data", "directory containing catalog feed .gz files")
	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
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

	if err := run(ctx, dataDir, databaseURL); err != nil {
		slog.Error("catalog ingest failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("catalog ingest completed successfully")
}

func run(ctx context.Context, dataDir, databaseURL string) error {
	files, err := filepath.Glob(filepath.Join(dataDir, "*.gz"))
	if err != nil {
		return errors.Wrap(err, "list feed files")
	}
	if len(files) == 0 {
		return errors.Errorf("no .gz feed files in %s", dataDir)
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

	ing := newIngester(pool)

	slog.Info("ingesting catalog feeds", slog.Int("files", len(files)))

	g, ctx := errgroup.WithContext(ctx)
	records := make(chan record, batchSize)

	for _, f := range files {
		g.Go(parseFeedFile(ctx, f, records))
	}

	done := make(chan error, 1)
	go func() {
		done <- ing.consume(ctx, records)
	}()

	err = g.Wait()
	close(records)
	if werr := <-done; werr != nil && err == nil {
		err = werr
	}
	if err != nil {
		return err
	}

	slog.Info("ingest summary",
		slog.Uint64("parsed", ing.parsed),
		slog.Uint64("written", ing.written),
		slog.Uint64("duplicates", ing.dupes),
		slog.Uint64("malformed", ing.malformed),
	)
	return nil
}

// parseFeedFile streams one gzip feed and sends parsed records downstream.
func parseFeedFile(ctx context.Context, path string, out chan<- record) func() error {
	return func() error {
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

		var lines uint64
		scanner := bufio.NewScanner(gz)
		for scanner.Scan() {
			rec, ok := parseLine(scanner.Text())
			if !ok {
				rec = record{} // counted downstream as malformed
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case out <- rec:
			}
			lines++
			if lines%progressEvery == 0 {
				slog.Info("feed progress", slog.String("file", filepath.Base(path)), slog.Uint64("lines", lines))
			}
		}
		if err := scanner.Err(); err != nil {
			return errors.Wrapf(err, "scan %s", path)
		}

		slog.Info("feed complete", slog.String("file", filepath.Base(path)), slog.Uint64("lines", lines))
		return nil
	}
}

// parseLine parses `sku|name|price|stock`. Price and stock must be
// non-negative integers.
func parseLine(line string) (record, bool) {
	parts := strings.Split(line, "|")
	if len(parts) != 4 {
		return record{}, false
	}

	sku := strings.TrimSpace(parts[0])
	name := strings.TrimSpace(parts[1])
	if sku == "" || name == "" {
		return record{}, false
	}

	price, err := strconv.ParseInt(strings.TrimSpace(parts[2]), 10, 64)
	if err != nil || price < 0 {
		return record{}, false
	}
	stock, err := strconv.ParseInt(strings.TrimSpace(parts[3]), 10, 64)
	if err != nil || stock < 0 {
		return record{}, false
	}

	return record{sku: sku, name: name, price: price, stock: stock}, true
}

// ingester dedups records and writes them to the database in batches. It is
// the single consumer of the record channel, so the bloom filter and counters
// need no locking.
type ingester struct {
	pool *pgxpool.Pool
	seen *bloom.BloomFilter

	parsed    uint64
	written   uint64
	dupes     uint64
	malformed uint64
}

func newIngester(pool *pgxpool.Pool) *ingester {
	return &ingester{
		pool: pool,
		seen: bloom.NewWithEstimates(bloomCapacity, bloomFPR),
	}
}

// consume drains the record channel, dropping duplicate SKUs and flushing a
// batch every batchSize records.
func (ing *ingester) consume(ctx context.Context, records <-chan record) error {
	batch := make([]record, 0, batchSize)

	for rec := range records {
		if rec.sku == "" {
			ing.malformed++
			continue
		}
		ing.parsed++

		if ing.seen.TestOrAddString(rec.sku) {
			ing.dupes++
			continue
		}

		batch = append(batch, rec)
		if len(batch) >= batchSize {
			if err := ing.flush(ctx, batch); err != nil {
				return err
			}
			batch = batch[:0]
		}
	}

	return ing.flush(ctx, batch)
}

func (ing *ingester) flush(ctx context.Context, recs []record) error {
	if len(recs) == 0 {
		return nil
	}

	b := &pgx.Batch{}
	for _, rec := range recs {
		b.Queue(
			`INSERT INTO products (id, name, price) VALUES ($1, $2, $3)
			 ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, price = EXCLUDED.price`,
			rec.sku, rec.name, rec.price,
		)
		b.Queue(
			`INSERT INTO inventory (product_id, quantity) VALUES ($1, $2)
			 ON CONFLICT (product_id) DO UPDATE SET quantity = EXCLUDED.quantity, updated_at = now()`,
			rec.sku, rec.stock,
		)
	}

	if err := ing.pool.SendBatch(ctx, b).Close(); err != nil {
		return errors.Wrap(err, "flush batch")
	}

	ing.written += uint64(len(recs))
	slog.Info("batch written", slog.Uint64("total", ing.written))
	return nil
}
