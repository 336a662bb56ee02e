package product

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a requested product does not exist.
var ErrNotFound = errors.New("product not found")

// Product represents a storefront product with its full option/variant matrix.
type Product struct {
	ID     string
	Handle string
	Title  string
	Vendor string

	// Options are the product's variation axes in declared order. A variant's
	// identity is the ordered tuple of one value per option.
	Options  []Option
	Variants []Variant

	// HasOnlyDefaultVariant is true for products with a single implicit
	// variant and no real options.
	HasOnlyDefaultVariant bool

	PriceMin decimal.Decimal
	PriceMax decimal.Decimal

	// Hidden marks a product that has been removed or delisted upstream.
	Hidden bool
}

// Option is a named variation axis with its ordered list of values.
type Option struct {
	Name   string
	Values []string
}

// Variant is one concrete, purchasable combination of option values.
// Variants are immutable once loaded.
type Variant struct {
	ID string

	// OptionValues holds one value per product option, in option order.
	OptionValues []string

	Price          decimal.Decimal
	CompareAtPrice decimal.Decimal
	Available      bool
}

// OnSale reports whether the variant is currently discounted.
func (v *Variant) OnSale() bool {
	return v.CompareAtPrice.GreaterThan(v.Price)
}

// ConfigError indicates malformed product data: a variant tuple whose length
// does not match the option count, a product with no variants at all, or two
// variants sharing the same tuple. Trusted product data never produces it;
// when it occurs the card must fail loudly instead of guessing.
type ConfigError struct {
	ProductID string
	Reason    string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("product %s: invalid configuration: %s", e.ProductID, e.Reason)
}

// Repository defines read operations for the product catalog.
type Repository interface {
	GetByID(ctx context.Context, id string) (*Product, error)
	GetByIDs(ctx context.Context, ids []string) ([]Product, error)
}
