package repository

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/appmate-io/wishlist-engine/internal/domain/wishlist"
)

const (
	getWishlistSQL = `SELECT id, public_id, owner_token, created_at
		FROM wishlists WHERE id = $1`

	getWishlistByPublicIDSQL = `SELECT id, public_id, owner_token, created_at
		FROM wishlists WHERE public_id = $1`

	// Newest additions first; the storefront renders the list top-down.
	getWishlistItemsSQL = `SELECT id, wishlist_id, product_id, variant_id, created_at
		FROM wishlist_items WHERE wishlist_id = $1 ORDER BY created_at DESC, id DESC`

	addWishlistItemSQL = `INSERT INTO wishlist_items (id, wishlist_id, product_id, variant_id, created_at)
		VALUES ($1, $2, $3, $4, $5)`

	removeWishlistItemSQL = `DELETE FROM wishlist_items WHERE id = $1`

	updateItemVariantSQL = `UPDATE wishlist_items SET variant_id = $2 WHERE id = $1`
)

var _ wishlist.Repository = (*WishlistRepository)(nil)

// WishlistRepository implements wishlist.Repository backed by PostgreSQL.
type WishlistRepository struct {
	pool *pgxpool.Pool
}

// NewWishlistRepository returns a WishlistRepository that uses the given pool.
func NewWishlistRepository(pool *pgxpool.Pool) *WishlistRepository {
	return &WishlistRepository{pool: pool}
}

// Get returns a wishlist with its items by internal identifier.
func (r *WishlistRepository) Get(ctx context.Context, id string) (*wishlist.Wishlist, error) {
	return r.get(ctx, getWishlistSQL, id)
}

// GetByPublicID returns a wishlist with its items by its shareable identifier.
func (r *WishlistRepository) GetByPublicID(ctx context.Context, publicID string) (*wishlist.Wishlist, error) {
	return r.get(ctx, getWishlistByPublicIDSQL, publicID)
}

func (r *WishlistRepository) get(ctx context.Context, query, arg string) (*wishlist.Wishlist, error) {
	var w wishlist.Wishlist
	err := r.pool.QueryRow(ctx, query, arg).Scan(
		&w.ID, &w.PublicID, &w.OwnerToken, &w.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, wishlist.ErrNotFound
		}
		return nil, fmt.Errorf("getting wishlist %q: %w", arg, err)
	}

	rows, err := r.pool.Query(ctx, getWishlistItemsSQL, w.ID)
	if err != nil {
		return nil, fmt.Errorf("getting items of wishlist %q: %w", w.ID, err)
	}
	w.Items, err = pgx.CollectRows(rows, scanItem)
	if err != nil {
		return nil, fmt.Errorf("getting items of wishlist %q: %w", w.ID, err)
	}
	return &w, nil
}

// AddItem persists a new wishlist item.
func (r *WishlistRepository) AddItem(ctx context.Context, item *wishlist.Item) error {
	_, err := r.pool.Exec(ctx, addWishlistItemSQL,
		item.ID, item.WishlistID, item.ProductID, nullable(item.VariantID), item.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("adding wishlist item %q: %w", item.ID, err)
	}
	return nil
}

// RemoveItem deletes a wishlist item.
func (r *WishlistRepository) RemoveItem(ctx context.Context, itemID string) error {
	tag, err := r.pool.Exec(ctx, removeWishlistItemSQL, itemID)
	if err != nil {
		return fmt.Errorf("removing wishlist item %q: %w", itemID, err)
	}
	if tag.RowsAffected() == 0 {
		return wishlist.ErrItemNotFound
	}
	return nil
}

// UpdateItemVariant overwrites the item's variant choice. The statement is a
// plain overwrite, so repeating it with the same variant changes nothing.
func (r *WishlistRepository) UpdateItemVariant(ctx context.Context, itemID, variantID string) error {
	tag, err := r.pool.Exec(ctx, updateItemVariantSQL, itemID, nullable(variantID))
	if err != nil {
		return fmt.Errorf("updating variant of wishlist item %q: %w", itemID, err)
	}
	if tag.RowsAffected() == 0 {
		return wishlist.ErrItemNotFound
	}
	return nil
}

func scanItem(row pgx.CollectableRow) (wishlist.Item, error) {
	var (
		item      wishlist.Item
		variantID *string
	)
	err := row.Scan(&item.ID, &item.WishlistID, &item.ProductID, &variantID, &item.CreatedAt)
	if variantID != nil {
		item.VariantID = *variantID
	}
	return item, err
}

// nullable maps an empty string to SQL NULL.
func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
