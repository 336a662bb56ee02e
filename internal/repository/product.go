package repository

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/appmate-io/wishlist-engine/internal/domain/product"
)

const (
	getProductByIDSQL = `SELECT id, handle, title, vendor, has_only_default_variant, price_min, price_max, hidden
		FROM products WHERE id = $1`

	getProductsByIDsSQL = `SELECT id, handle, title, vendor, has_only_default_variant, price_min, price_max, hidden
		FROM products WHERE id = ANY($1) ORDER BY id`

	getOptionsSQL = `SELECT product_id, name, option_values
		FROM product_options WHERE product_id = ANY($1) ORDER BY product_id, position`

	getVariantsSQL = `SELECT product_id, id, option_values, price, compare_at_price, available
		FROM product_variants WHERE product_id = ANY($1) ORDER BY product_id, position`
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

// GetByID returns a single product, with its options and variants, by its
// identifier.
func (r *ProductRepository) GetByID(ctx context.Context, id string) (*product.Product, error) {
	rows, err := r.pool.Query(ctx, getProductByIDSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting product %q: %w", id, err)
	}

	p, err := pgx.CollectExactlyOneRow(rows, scanProduct)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, product.ErrNotFound
		}
		return nil, fmt.Errorf("getting product %q: %w", id, err)
	}

	if err := r.attachMatrix(ctx, []string{id}, map[string]*product.Product{id: &p}); err != nil {
		return nil, err
	}
	return &p, nil
}

// GetByIDs returns products matching any of the given IDs, each with its
// options and variants. Missing IDs are silently absent from the result.
func (r *ProductRepository) GetByIDs(ctx context.Context, ids []string) ([]product.Product, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	rows, err := r.pool.Query(ctx, getProductsByIDsSQL, ids)
	if err != nil {
		return nil, fmt.Errorf("getting products by ids: %w", err)
	}
	products, err := pgx.CollectRows(rows, scanProduct)
	if err != nil {
		return nil, fmt.Errorf("getting products by ids: %w", err)
	}

	byID := make(map[string]*product.Product, len(products))
	for i := range products {
		byID[products[i].ID] = &products[i]
	}
	if err := r.attachMatrix(ctx, ids, byID); err != nil {
		return nil, err
	}
	return products, nil
}

// attachMatrix loads the options and variants for the given products and
// attaches them in stored order.
func (r *ProductRepository) attachMatrix(ctx context.Context, ids []string, byID map[string]*product.Product) error {
	rows, err := r.pool.Query(ctx, getOptionsSQL, ids)
	if err != nil {
		return fmt.Errorf("getting product options: %w", err)
	}
	options, err := pgx.CollectRows(rows, scanOption)
	if err != nil {
		return fmt.Errorf("getting product options: %w", err)
	}
	for _, o := range options {
		if p, ok := byID[o.productID]; ok {
			p.Options = append(p.Options, o.option)
		}
	}

	rows, err = r.pool.Query(ctx, getVariantsSQL, ids)
	if err != nil {
		return fmt.Errorf("getting product variants: %w", err)
	}
	variants, err := pgx.CollectRows(rows, scanVariant)
	if err != nil {
		return fmt.Errorf("getting product variants: %w", err)
	}
	for _, v := range variants {
		if p, ok := byID[v.productID]; ok {
			p.Variants = append(p.Variants, v.variant)
		}
	}
	return nil
}

func scanProduct(row pgx.CollectableRow) (product.Product, error) {
	var p product.Product
	err := row.Scan(
		&p.ID, &p.Handle, &p.Title, &p.Vendor,
		&p.HasOnlyDefaultVariant, &p.PriceMin, &p.PriceMax, &p.Hidden,
	)
	return p, err
}

type optionRow struct {
	productID string
	option    product.Option
}

func scanOption(row pgx.CollectableRow) (optionRow, error) {
	var o optionRow
	err := row.Scan(&o.productID, &o.option.Name, &o.option.Values)
	return o, err
}

type variantRow struct {
	productID string
	variant   product.Variant
}

func scanVariant(row pgx.CollectableRow) (variantRow, error) {
	var v variantRow
	err := row.Scan(
		&v.productID, &v.variant.ID, &v.variant.OptionValues,
		&v.variant.Price, &v.variant.CompareAtPrice, &v.variant.Available,
	)
	return v, err
}
