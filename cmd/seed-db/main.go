// Command seed-db populates a database with demo accounts, API keys,
// products, and inventory for local development and smoke testing.
package main

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"os/signal"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kartelle/storefront/internal/postgres"
)

type productJSON struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Price int64  `json:"price"`
	Stock int64  `json:"stock"`
}

type seedAccount struct {
	id    string
	email string
	name  string
	admin bool
	key   string
}

func main() {
	var (
		databaseURL  string
		productsFile string
		customerKey  string
		adminKey     string
		apiKeyPepper string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&productsFile, "products-file", "db/seed/products.json", "path to products JSON file")
	flag.StringVar(&customerKey, "customer-key", "", "customer API key to seed (or ORDERS_SEED_CUSTOMER_KEY env)")
	flag.StringVar(&adminKey, "admin-key", "", "admin API key to seed (or ORDERS_SEED_ADMIN_KEY env)")
	flag.StringVar(&apiKeyPepper, "api-key-pepper", "", "HMAC pepper for API key hashing (or ORDERS_API_KEY_PEPPER env)")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}
	if customerKey == "" {
		customerKey = os.Getenv("ORDERS_SEED_CUSTOMER_KEY")
	}
	if adminKey == "" {
		adminKey = os.Getenv("ORDERS_SEED_ADMIN_KEY")
	}
	if customerKey == "" || adminKey == "" {
		slog.Error("API keys are required: set --customer-key/--admin-key or the ORDERS_SEED_* envs")
		os.Exit(1)
	}
	if apiKeyPepper == "" {
		apiKeyPepper = os.Getenv("ORDERS_API_KEY_PEPPER")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	accounts := []seedAccount{
		{id: "acc-demo-customer", email: "customer@example.com", name: "Demo Customer", key: customerKey},
		{id: "acc-demo-admin", email: "admin@example.com", name: "Demo Admin", admin: true, key: adminKey},
	}

	if err := run(ctx, databaseURL, productsFile, apiKeyPepper, accounts); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL, productsFile, pepper string, accounts []seedAccount) error {
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

	if err := seedProducts(ctx, pool, productsFile); err != nil {
		return errors.Wrap(err, "seed products")
	}

	if err := seedAccounts(ctx, pool, accounts, pepper); err != nil {
		return errors.Wrap(err, "seed accounts")
	}

	return nil
}

func seedProducts(ctx context.Context, pool *pgxpool.Pool, productsFile string) error {
	slog.Info("reading products file", slog.String("path", productsFile))

	data, err := os.ReadFile(productsFile)
	if err != nil {
		return errors.Wrap(err, "read products file")
	}

	var products []productJSON
	if err := json.Unmarshal(data, &products); err != nil {
		return errors.Wrap(err, "parse products JSON")
	}

	slog.Info("upserting products", slog.Int("count", len(products)))

	for _, p := range products {
		if _, err := pool.Exec(ctx,
			`INSERT INTO products (id, name, price) VALUES ($1, $2, $3)
			 ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, price = EXCLUDED.price`,
			p.ID, p.Name, p.Price,
		); err != nil {
			return errors.Wrapf(err, "upsert product %s", p.ID)
		}

		if _, err := pool.Exec(ctx,
			`INSERT INTO inventory (product_id, quantity) VALUES ($1, $2)
			 ON CONFLICT (product_id) DO UPDATE SET quantity = EXCLUDED.quantity, updated_at = now()`,
			p.ID, p.Stock,
		); err != nil {
			return errors.Wrapf(err, "upsert inventory %s", p.ID)
		}

		slog.Info("upserted product",
			slog.String("id", p.ID),
			slog.String("name", p.Name),
			slog.Int64("stock", p.Stock),
		)
	}

	return nil
}

func seedAccounts(ctx context.Context, pool *pgxpool.Pool, accounts []seedAccount, pepper string) error {
	slog.Info("seeding demo accounts", slog.Int("count", len(accounts)))

	for _, a := range accounts {
		if _, err := pool.Exec(ctx,
			`INSERT INTO accounts (id, email, name, is_admin) VALUES ($1, $2, $3, $4)
			 ON CONFLICT (id) DO UPDATE SET email = EXCLUDED.email, name = EXCLUDED.name, is_admin = EXCLUDED.is_admin`,
			a.id, a.email, a.name, a.admin,
		); err != nil {
			return errors.Wrapf(err, "upsert account %s", a.id)
		}

		mac := hmac.New(sha256.New, []byte(pepper))
		mac.Write([]byte(a.key))
		keyHash := hex.EncodeToString(mac.Sum(nil))

		if _, err := pool.Exec(ctx,
			`INSERT INTO api_keys (id, account_id, key_hash, name) VALUES ($1, $2, $3, $4)
			 ON CONFLICT (id) DO UPDATE SET key_hash = EXCLUDED.key_hash`,
			"key-"+a.id, a.id, keyHash, a.name+" key",
		); err != nil {
			return errors.Wrapf(err, "upsert api key for %s", a.id)
		}

		slog.Info("upserted account", slog.String("id", a.id), slog.Bool("admin", a.admin))
	}

	return nil
}
