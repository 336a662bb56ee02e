package wishlist

import (
	"context"
	"time"

	"github.com/go-faster/errors"
)

var (
	// ErrNotFound is returned when a wishlist or wishlist item does not exist.
	ErrNotFound = errors.New("wishlist not found")
	// ErrItemNotFound is returned when a wishlist item does not exist.
	ErrItemNotFound = errors.New("wishlist item not found")
	// ErrNotOwner is returned when a viewer attempts to modify a wishlist
	// they do not own.
	ErrNotOwner = errors.New("wishlist does not belong to viewer")
)

// Wishlist is a shopper's saved product list.
type Wishlist struct {
	ID string

	// PublicID is the shareable identifier; it leaks no ownership information.
	PublicID string

	// OwnerToken identifies the owning shopper session. Never exposed.
	OwnerToken string

	// IsMine is derived per viewer, not stored. All writes require it.
	IsMine bool

	Items     []Item
	CreatedAt time.Time
}

// NumItems returns the badge count for the wishlist.
func (w *Wishlist) NumItems() int {
	return len(w.Items)
}

// Item is one saved product reference inside a wishlist.
type Item struct {
	ID         string
	WishlistID string
	ProductID  string

	// VariantID is the persisted variant choice; empty when the shopper
	// saved the product without picking one.
	VariantID string

	// Loading is true while product data has not been fetched yet.
	Loading bool

	// Hidden is true when the underlying product was removed or delisted.
	Hidden bool

	CreatedAt time.Time
}

// Repository defines persistence for wishlists and their items.
type Repository interface {
	Get(ctx context.Context, id string) (*Wishlist, error)
	GetByPublicID(ctx context.Context, publicID string) (*Wishlist, error)

	AddItem(ctx context.Context, item *Item) error
	RemoveItem(ctx context.Context, itemID string) error

	// UpdateItemVariant overwrites the item's persisted variant choice. The
	// write is a total overwrite and must be safely repeatable with the same
	// payload.
	UpdateItemVariant(ctx context.Context, itemID, variantID string) error
}
