// Command seed-db populates a development database with a small catalog, a
// demo wishlist, and an API key for the mutating endpoints.
package main

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"flag"
	"log/slog"
	"os"
	"os/signal"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/appmate-io/wishlist-engine/internal/domain/product"
	"github.com/appmate-io/wishlist-engine/internal/repository"
)

func main() {
	var (
		databaseURL  string
		apiKey       string
		apiKeyPepper string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&apiKey, "api-key", "", "API key to seed (or WISHLIST_SEED_API_KEY env)")
	flag.StringVar(&apiKeyPepper, "api-key-pepper", "", "HMAC pepper for API key hashing (or WISHLIST_API_KEY_PEPPER env)")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}
	if apiKey == "" {
		apiKey = os.Getenv("WISHLIST_SEED_API_KEY")
	}
	if apiKey == "" {
		slog.Error("API key is required: set --api-key or WISHLIST_SEED_API_KEY")
		os.Exit(1)
	}
	if apiKeyPepper == "" {
		apiKeyPepper = os.Getenv("WISHLIST_API_KEY_PEPPER")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, apiKey, apiKeyPepper); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL, apiKey, pepper string) error {
	slog.Info("connecting to database")

	pool, err := repository.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	slog.Info("running migrations")

	if err := repository.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	if err := seedProducts(ctx, pool); err != nil {
		return errors.Wrap(err, "seed products")
	}
	if err := seedWishlist(ctx, pool); err != nil {
		return errors.Wrap(err, "seed wishlist")
	}
	if err := seedAPIKey(ctx, pool, apiKey, pepper); err != nil {
		return errors.Wrap(err, "seed api key")
	}

	return nil
}

func price(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func seedProducts(ctx context.Context, pool *pgxpool.Pool) error {
	writer := repository.NewCatalogWriter(pool)

	products := []product.Product{
		{
			ID:     "prod-tee",
			Handle: "classic-tee",
			Title:  "Classic Tee",
			Vendor: "Acme Apparel",
			Options: []product.Option{
				{Name: "Colour", Values: []string{"Black", "White", "Navy"}},
				{Name: "Size", Values: []string{"S", "M", "L"}},
			},
			Variants: []product.Variant{
				{ID: "var-tee-black-s", OptionValues: []string{"Black", "S"}, Price: price("24.00"), Available: true},
				{ID: "var-tee-black-m", OptionValues: []string{"Black", "M"}, Price: price("24.00"), Available: true},
				{ID: "var-tee-black-l", OptionValues: []string{"Black", "L"}, Price: price("24.00"), Available: false},
				{ID: "var-tee-white-s", OptionValues: []string{"White", "S"}, Price: price("24.00"), Available: true},
				{ID: "var-tee-white-m", OptionValues: []string{"White", "M"}, Price: price("24.00"), CompareAtPrice: price("29.00"), Available: true},
				{ID: "var-tee-navy-l", OptionValues: []string{"Navy", "L"}, Price: price("26.00"), Available: true},
			},
			PriceMin: price("24.00"),
			PriceMax: price("26.00"),
		},
		{
			ID:                    "prod-mug",
			Handle:                "camp-mug",
			Title:                 "Camp Mug",
			Vendor:                "Acme Home",
			HasOnlyDefaultVariant: true,
			Options: []product.Option{
				{Name: "Title", Values: []string{"Default Title"}},
			},
			Variants: []product.Variant{
				{ID: "var-mug", OptionValues: []string{"Default Title"}, Price: price("14.50"), Available: true},
			},
			PriceMin: price("14.50"),
			PriceMax: price("14.50"),
		},
	}

	slog.Info("upserting products", slog.Int("count", len(products)))

	for i := range products {
		p := &products[i]
		if err := writer.UpsertProduct(ctx, p); err != nil {
			return errors.Wrapf(err, "upsert product %s", p.ID)
		}
		slog.Info("upserted product", slog.String("id", p.ID), slog.String("title", p.Title))
	}
	return nil
}

const (
	upsertWishlistSQL = `INSERT INTO wishlists (id, public_id, owner_token)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET public_id = EXCLUDED.public_id, owner_token = EXCLUDED.owner_token`

	upsertWishlistItemSQL = `INSERT INTO wishlist_items (id, wishlist_id, product_id, variant_id)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET variant_id = EXCLUDED.variant_id`

	upsertAPIKeySQL = `INSERT INTO api_keys (id, key_hash, name, scopes, active)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET key_hash = EXCLUDED.key_hash, active = EXCLUDED.active`
)

func seedWishlist(ctx context.Context, pool *pgxpool.Pool) error {
	slog.Info("seeding demo wishlist")

	if _, err := pool.Exec(ctx, upsertWishlistSQL,
		"demo-wishlist", uuid.New().String(), "demo-owner",
	); err != nil {
		return errors.Wrap(err, "upsert demo wishlist")
	}

	items := [][3]string{
		{"demo-item-tee", "prod-tee", "var-tee-black-m"},
		{"demo-item-mug", "prod-mug", ""},
	}
	for _, it := range items {
		var variantID *string
		if it[2] != "" {
			variantID = &it[2]
		}
		if _, err := pool.Exec(ctx, upsertWishlistItemSQL, it[0], "demo-wishlist", it[1], variantID); err != nil {
			return errors.Wrapf(err, "upsert wishlist item %s", it[0])
		}
	}

	slog.Info("seeded wishlist", slog.String("id", "demo-wishlist"), slog.Int("items", len(items)))
	return nil
}

func seedAPIKey(ctx context.Context, pool *pgxpool.Pool, apiKey, pepper string) error {
	slog.Info("seeding default API key")

	mac := hmac.New(sha256.New, []byte(pepper))
	mac.Write([]byte(apiKey))
	keyHash := hex.EncodeToString(mac.Sum(nil))

	if _, err := pool.Exec(ctx, upsertAPIKeySQL,
		"default", keyHash, "Default test key", []string{"wishlist_write"}, true,
	); err != nil {
		return errors.Wrap(err, "upsert default API key")
	}

	slog.Info("upserted API key", slog.String("id", "default"), slog.String("name", "Default test key"))
	return nil
}
