// Package cart defines the contract with the storefront shopping cart. The
// add-to-cart protocol itself lives behind Client; this engine only checks
// its own preconditions and surfaces the call's result unchanged.
package cart

import "context"

// AddRequest describes one line to add to the shopping cart.
type AddRequest struct {
	VariantID      string
	Quantity       int
	WishlistID     string
	WishlistItemID string
}

// Client submits cart mutations to the storefront.
type Client interface {
	Add(ctx context.Context, req AddRequest) error
}
