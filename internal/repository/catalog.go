package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/appmate-io/wishlist-engine/internal/domain/product"
)

const (
	upsertProductSQL = `INSERT INTO products (id, handle, title, vendor, has_only_default_variant, price_min, price_max, hidden, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now())
		ON CONFLICT (id) DO UPDATE SET
			handle = EXCLUDED.handle,
			title = EXCLUDED.title,
			vendor = EXCLUDED.vendor,
			has_only_default_variant = EXCLUDED.has_only_default_variant,
			price_min = EXCLUDED.price_min,
			price_max = EXCLUDED.price_max,
			hidden = EXCLUDED.hidden,
			updated_at = now()`

	deleteOptionsSQL  = `DELETE FROM product_options WHERE product_id = $1`
	deleteVariantsSQL = `DELETE FROM product_variants WHERE product_id = $1`

	insertOptionSQL = `INSERT INTO product_options (product_id, position, name, option_values)
		VALUES ($1, $2, $3, $4)`

	insertVariantSQL = `INSERT INTO product_variants (id, product_id, position, option_values, price, compare_at_price, available)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
)

// CatalogWriter writes full product records (options and variants included)
// into the catalog tables.
type CatalogWriter struct {
	pool *pgxpool.Pool
}

// NewCatalogWriter returns a CatalogWriter that uses the given pool.
func NewCatalogWriter(pool *pgxpool.Pool) *CatalogWriter {
	return &CatalogWriter{pool: pool}
}

// UpsertProduct replaces the stored product, its options, and its variants
// in one transaction.
func (w *CatalogWriter) UpsertProduct(ctx context.Context, p *product.Product) error {
	tx, err := w.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin upsert of product %q: %w", p.ID, err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx, upsertProductSQL,
		p.ID, p.Handle, p.Title, p.Vendor,
		p.HasOnlyDefaultVariant, p.PriceMin, p.PriceMax, p.Hidden,
	)
	if err != nil {
		return fmt.Errorf("upserting product %q: %w", p.ID, err)
	}

	if _, err := tx.Exec(ctx, deleteOptionsSQL, p.ID); err != nil {
		return fmt.Errorf("clearing options of product %q: %w", p.ID, err)
	}
	if _, err := tx.Exec(ctx, deleteVariantsSQL, p.ID); err != nil {
		return fmt.Errorf("clearing variants of product %q: %w", p.ID, err)
	}

	for i, o := range p.Options {
		if _, err := tx.Exec(ctx, insertOptionSQL, p.ID, i, o.Name, o.Values); err != nil {
			return fmt.Errorf("inserting option %q of product %q: %w", o.Name, p.ID, err)
		}
	}
	for i := range p.Variants {
		v := &p.Variants[i]
		_, err := tx.Exec(ctx, insertVariantSQL,
			v.ID, p.ID, i, v.OptionValues, v.Price, v.CompareAtPrice, v.Available,
		)
		if err != nil {
			return fmt.Errorf("inserting variant %q of product %q: %w", v.ID, p.ID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit upsert of product %q: %w", p.ID, err)
	}
	return nil
}
