package wishlist

import (
	"context"
	"net/url"
	"sync"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/appmate-io/wishlist-engine/internal/domain/cart"
	"github.com/appmate-io/wishlist-engine/internal/domain/product"
	"github.com/appmate-io/wishlist-engine/internal/events"
)

// Settings carries the per-storefront policy knobs the engine consumes.
type Settings struct {
	AutoSelect   product.AutoSelectSettings
	ShareBaseURL string
	SessionTTL   time.Duration
}

// Service orchestrates wishlists: viewer-scoped reads, ownership-gated
// writes, card sessions, share links, and the buy-all fan-out.
type Service struct {
	wishlists Repository
	products  product.Repository
	cart      cart.Client
	bus       *events.Bus
	sessions  *Sessions
	settings  Settings
	lg        *zap.Logger
}

// NewService creates a wishlist Service with the required dependencies.
func NewService(
	wishlists Repository,
	products product.Repository,
	cartClient cart.Client,
	bus *events.Bus,
	settings Settings,
	lg *zap.Logger,
) *Service {
	if lg == nil {
		lg = zap.NewNop()
	}
	ttl := settings.SessionTTL
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &Service{
		wishlists: wishlists,
		products:  products,
		cart:      cartClient,
		bus:       bus,
		sessions:  NewSessions(ttl),
		settings:  settings,
		lg:        lg,
	}
}

// Start launches background maintenance (card session eviction).
func (s *Service) Start(ctx context.Context) {
	s.sessions.StartSweep(ctx, time.Minute)
}

// GetForViewer loads a wishlist and stamps IsMine for the given viewer token.
func (s *Service) GetForViewer(ctx context.Context, id, viewerToken string) (*Wishlist, error) {
	w, err := s.wishlists.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	w.IsMine = viewerToken != "" && w.OwnerToken == viewerToken
	return w, nil
}

// AddItem saves a product (optionally with a chosen variant) onto the
// viewer's wishlist. Adding a product that is already on the list returns
// the existing item unchanged with created=false.
func (s *Service) AddItem(ctx context.Context, wishlistID, viewerToken, productID, variantID string) (item *Item, created bool, err error) {
	w, err := s.requireOwned(ctx, wishlistID, viewerToken)
	if err != nil {
		return nil, false, err
	}

	for i := range w.Items {
		if w.Items[i].ProductID == productID {
			return &w.Items[i], false, nil
		}
	}

	item = &Item{
		ID:         uuid.New().String(),
		WishlistID: w.ID,
		ProductID:  productID,
		VariantID:  variantID,
		CreatedAt:  time.Now(),
	}
	if err := s.wishlists.AddItem(ctx, item); err != nil {
		return nil, false, errors.Wrap(err, "add wishlist item")
	}
	return item, true, nil
}

// RemoveItem deletes an item from the viewer's wishlist and drops any live
// card session for it.
func (s *Service) RemoveItem(ctx context.Context, wishlistID, viewerToken, itemID string) error {
	w, err := s.requireOwned(ctx, wishlistID, viewerToken)
	if err != nil {
		return err
	}
	if _, err := findItem(w, itemID); err != nil {
		return err
	}
	if err := s.wishlists.RemoveItem(ctx, itemID); err != nil {
		return errors.Wrap(err, "remove wishlist item")
	}
	s.sessions.Drop(viewerToken, itemID)
	return nil
}

// UpdateItemVariant overwrites an item's persisted variant choice and
// announces the change on the notification bus. The underlying write is
// idempotent; repeating the call with the same variant is harmless.
func (s *Service) UpdateItemVariant(ctx context.Context, wishlistID, viewerToken, itemID, variantID string) error {
	w, err := s.requireOwned(ctx, wishlistID, viewerToken)
	if err != nil {
		return err
	}
	item, err := findItem(w, itemID)
	if err != nil {
		return err
	}
	if err := s.wishlists.UpdateItemVariant(ctx, itemID, variantID); err != nil {
		return errors.Wrap(err, "update wishlist item variant")
	}
	if s.bus != nil {
		s.bus.Publish(events.VariantChanged{ProductID: item.ProductID, VariantID: variantID})
	}
	return nil
}

// ShareURL returns the public link for a wishlist.
func (s *Service) ShareURL(ctx context.Context, wishlistID string) (string, error) {
	w, err := s.wishlists.Get(ctx, wishlistID)
	if err != nil {
		return "", err
	}
	base, err := url.Parse(s.settings.ShareBaseURL)
	if err != nil {
		return "", errors.Wrap(err, "parse share base URL")
	}
	return base.JoinPath(w.PublicID).String(), nil
}

// CardFor returns the viewer's live card for a wishlist item, creating one
// (and loading its product) on first use. The card keeps the in-progress
// selection between requests.
//
// A viewer without a token gets a fresh card every call: caching under the
// empty token would hand every anonymous shopper the same live selection.
func (s *Service) CardFor(ctx context.Context, wishlistID, viewerToken, itemID string) (*Card, error) {
	if viewerToken != "" {
		if card := s.sessions.Get(viewerToken, itemID); card != nil {
			return card, nil
		}
	}

	w, err := s.GetForViewer(ctx, wishlistID, viewerToken)
	if err != nil {
		return nil, err
	}
	item, err := findItem(w, itemID)
	if err != nil {
		return nil, err
	}

	deps := CardDeps{
		Cart:       s.cart,
		Updater:    s.wishlists,
		Bus:        s.bus,
		AutoSelect: s.settings.AutoSelect,
		IsMine:     w.IsMine,
		Logger:     s.lg,
	}
	if viewerToken == "" {
		// An ephemeral card must not leave a bus subscription behind.
		deps.Bus = nil
	}
	card := NewCard(*item, deps)

	p, err := s.products.GetByID(ctx, item.ProductID)
	switch {
	case errors.Is(err, product.ErrNotFound):
		_ = card.ProductLoaded(ctx, nil) // delisted upstream: card goes Hidden
	case err != nil:
		return nil, errors.Wrap(err, "load product")
	default:
		// ConfigError is already absorbed into the Hidden state; anything the
		// card reports here is for the caller's log only.
		if err := card.ProductLoaded(ctx, p); err != nil {
			var cfgErr *product.ConfigError
			if !errors.As(err, &cfgErr) {
				return nil, err
			}
		}
	}

	if viewerToken != "" {
		s.sessions.Put(viewerToken, itemID, card)
	}
	return card, nil
}

// ChangeOption applies one option change on the viewer's card for an item.
func (s *Service) ChangeOption(ctx context.Context, wishlistID, viewerToken, itemID, option, value string) (View, error) {
	card, err := s.CardFor(ctx, wishlistID, viewerToken, itemID)
	if err != nil {
		return View{}, err
	}
	form := card.Form()
	if form == nil {
		return View{}, ErrItemNotFound
	}
	return form.ChangeOption(ctx, option, value, s.settings.AutoSelect.OnChange)
}

// BuyAllResult reports the outcome of a buy-all run per item.
type BuyAllResult struct {
	Added   []string          // item ids added to the cart
	Skipped map[string]string // item id -> reason
}

// buyAllConcurrency bounds parallel cart calls during buy-all.
const buyAllConcurrency = 4

// BuyAll adds every resolvable, purchasable wishlist item to the cart.
// Items whose variant cannot be resolved (even with auto-select) or is sold
// out are skipped and reported, not treated as failures of the whole run.
func (s *Service) BuyAll(ctx context.Context, wishlistID, viewerToken string) (*BuyAllResult, error) {
	w, err := s.GetForViewer(ctx, wishlistID, viewerToken)
	if err != nil {
		return nil, err
	}

	result := &BuyAllResult{Skipped: make(map[string]string)}
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(buyAllConcurrency)

	for i := range w.Items {
		item := w.Items[i]
		g.Go(func() error {
			reason, err := s.buyOne(gctx, w.ID, item)
			if err != nil {
				return err
			}
			mu.Lock()
			defer mu.Unlock()
			if reason == "" {
				result.Added = append(result.Added, item.ID)
			} else {
				result.Skipped[item.ID] = reason
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return result, nil
}

// buyOne resolves and carts a single item. It returns a skip reason for
// per-item conditions and an error only for infrastructure failures.
func (s *Service) buyOne(ctx context.Context, wishlistID string, item Item) (reason string, err error) {
	p, err := s.products.GetByID(ctx, item.ProductID)
	if errors.Is(err, product.ErrNotFound) {
		return "product removed", nil
	}
	if err != nil {
		return "", errors.Wrapf(err, "load product %s", item.ProductID)
	}
	if p.Hidden {
		return "product removed", nil
	}

	form := NewFormController(s.cart)
	// Auto-select is forced here: buy-all has no shopper to prompt.
	if err := form.SetProduct(ctx, p, item.VariantID, true); err != nil {
		return "unusable product data", nil
	}

	err = form.AddToCart(ctx, 1, wishlistID, item.ID)
	switch {
	case errors.Is(err, ErrNoVariantSelected):
		return "no variant resolvable", nil
	case errors.Is(err, ErrVariantUnavailable):
		return "sold out", nil
	case err != nil:
		return "", errors.Wrapf(err, "add item %s to cart", item.ID)
	}
	return "", nil
}

// requireOwned loads a wishlist and enforces viewer ownership.
func (s *Service) requireOwned(ctx context.Context, wishlistID, viewerToken string) (*Wishlist, error) {
	w, err := s.GetForViewer(ctx, wishlistID, viewerToken)
	if err != nil {
		return nil, err
	}
	if !w.IsMine {
		return nil, ErrNotOwner
	}
	return w, nil
}

func findItem(w *Wishlist, itemID string) (*Item, error) {
	for i := range w.Items {
		if w.Items[i].ID == itemID {
			return &w.Items[i], nil
		}
	}
	return nil, ErrItemNotFound
}
