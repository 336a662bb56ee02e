package wishlist

import (
	"context"

	"go.uber.org/zap"

	"github.com/appmate-io/wishlist-engine/internal/domain/cart"
	"github.com/appmate-io/wishlist-engine/internal/domain/product"
	"github.com/appmate-io/wishlist-engine/internal/events"
)

// CardState is the life-cycle of one rendered wishlist line item.
type CardState uint8

const (
	// CardLoading: product data has not arrived yet. Initial state.
	CardLoading CardState = iota
	// CardAvailable: product data arrived and the buy form is live. Terminal.
	CardAvailable
	// CardHidden: the product is gone or its data is unusable; only the
	// remove affordance remains. Terminal.
	CardHidden
)

// String returns the wire/display name of the card state.
func (s CardState) String() string {
	switch s {
	case CardLoading:
		return "loading"
	case CardAvailable:
		return "available"
	case CardHidden:
		return "hidden"
	default:
		return "unknown"
	}
}

// CardDeps bundles the collaborators a card needs once its product arrives.
type CardDeps struct {
	Cart       cart.Client
	Updater    ItemUpdater
	Bus        *events.Bus
	AutoSelect product.AutoSelectSettings
	IsMine     bool
	Logger     *zap.Logger
}

// Card gates which engine pieces exist for one wishlist line item. The form
// and synchronizer are constructed exactly once, on the Loading→Available
// transition; a Hidden card never gets them.
type Card struct {
	deps  CardDeps
	item  Item
	state CardState

	form *FormController
	sync *Synchronizer
}

// NewCard creates a card in the Loading state.
func NewCard(item Item, deps CardDeps) *Card {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	return &Card{deps: deps, item: item, state: CardLoading}
}

// State returns the card's current life-cycle state.
func (c *Card) State() CardState {
	return c.state
}

// Item returns the wishlist item this card renders.
func (c *Card) Item() Item {
	return c.item
}

// Form returns the card's form controller, or nil unless the card is
// Available.
func (c *Card) Form() *FormController {
	return c.form
}

// DisplayVariantID returns the variant id to surface on the card's markup.
func (c *Card) DisplayVariantID() string {
	if c.sync == nil {
		return c.item.VariantID
	}
	return c.sync.DisplayVariantID()
}

// ProductLoaded feeds fetched product data into the card. A delisted (or
// missing) product parks the card in Hidden for good. Malformed product data
// does the same, after logging: the shopper sees the unavailable layout
// rather than a crash. Otherwise the card becomes Available and the form is
// seeded from the item's persisted variant.
//
// Calling ProductLoaded again on an Available card rebinds the form (card
// recycled for fresh product data); a Hidden card ignores further loads.
func (c *Card) ProductLoaded(ctx context.Context, p *product.Product) error {
	if c.state == CardHidden {
		return nil
	}
	if p == nil || p.Hidden {
		c.hide()
		return nil
	}

	if c.form == nil {
		c.form = NewFormController(c.deps.Cart)
		c.sync = NewSynchronizer(c.item, c.deps.IsMine, c.deps.Updater, c.deps.Bus, c.deps.Logger)
		c.sync.Bind(c.form)
	}

	if err := c.form.SetProduct(ctx, p, c.item.VariantID, c.deps.AutoSelect.OnInit); err != nil {
		c.deps.Logger.Error("unusable product data for wishlist card",
			zap.String("wishlist_item_id", c.item.ID),
			zap.String("product_id", p.ID),
			zap.Error(err),
		)
		c.hide()
		return err
	}

	c.state = CardAvailable
	return nil
}

func (c *Card) hide() {
	c.state = CardHidden
	if c.sync != nil {
		c.sync.Close()
	}
	c.form = nil
	c.sync = nil
}

// Close releases the card's bus subscription.
func (c *Card) Close() {
	if c.sync != nil {
		c.sync.Close()
	}
}
