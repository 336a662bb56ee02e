package wishlist

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/appmate-io/wishlist-engine/internal/events"
)

// ItemUpdater persists a wishlist item's variant choice. Repository satisfies
// it; so does a remote wishlist API client. The write must be idempotent.
type ItemUpdater interface {
	UpdateItemVariant(ctx context.Context, itemID, variantID string) error
}

// Synchronizer keeps one wishlist item's persisted variant choice in step
// with its card's form state, and reconciles external variant-change
// notifications back onto the card.
//
// Writes only happen when the viewer owns the wishlist. Consecutive
// resolutions to the same variant are deduplicated, so rapid option toggling
// that lands back on the same variant issues a single write. Failed writes
// are logged and dropped: the next successful change overwrites the stale
// value, and the on-screen selection always reflects shopper intent.
type Synchronizer struct {
	updater ItemUpdater
	isMine  bool
	lg      *zap.Logger
	unsub   events.UnsubscribeFunc

	mu sync.Mutex
	// item mirrors the persisted row as this card last knew it.
	item Item
	// lastSynced is the variant id of the most recent write (or skip-because-
	// already-persisted decision); the dedup key.
	lastSynced string
	// displayVariantID is what the card surfaces as its variant id; external
	// notifications may adjust it without touching the selection.
	displayVariantID string
	// localTouched flips once this card's own form produces a non-empty
	// selection; from then on external notifications are ignored.
	localTouched bool
}

// NewSynchronizer creates a synchronizer for one wishlist item and, when a
// bus is given, subscribes to variant-change notifications for the item's
// product. Call Close when the card is torn down.
func NewSynchronizer(item Item, isMine bool, updater ItemUpdater, bus *events.Bus, lg *zap.Logger) *Synchronizer {
	if lg == nil {
		lg = zap.NewNop()
	}
	s := &Synchronizer{
		updater:          updater,
		isMine:           isMine,
		lg:               lg,
		item:             item,
		displayVariantID: item.VariantID,
	}
	if bus != nil {
		s.unsub = bus.Subscribe(item.ProductID, s.handleExternal)
	}
	return s
}

// Bind attaches the synchronizer to a form's resolution stream.
func (s *Synchronizer) Bind(f *FormController) {
	f.OnResolve(s.HandleResolution)
}

// HandleResolution reacts to a recomputed form view. A concrete resolved
// variant that differs from the persisted one is pushed to storage; anything
// else is a no-op.
func (s *Synchronizer) HandleResolution(ctx context.Context, v View) {
	s.mu.Lock()

	if v.HasSelection {
		s.localTouched = true
	}
	if v.Variant == nil {
		s.mu.Unlock()
		return
	}

	variantID := v.Variant.ID
	s.displayVariantID = variantID

	if !s.isMine || variantID == s.lastSynced {
		s.mu.Unlock()
		return
	}
	if s.lastSynced == "" && s.item.VariantID == variantID {
		// Persisted choice already matches the first resolution; remember it
		// so a later change back to this variant is still deduplicated.
		s.lastSynced = variantID
		s.mu.Unlock()
		return
	}

	s.lastSynced = variantID
	s.item.VariantID = variantID
	itemID := s.item.ID
	s.mu.Unlock()

	if err := s.updater.UpdateItemVariant(ctx, itemID, variantID); err != nil {
		// No retry and no rollback: the write is idempotent on the latest
		// resolved variant and self-corrects on the next change.
		s.lg.Warn("wishlist item variant update failed",
			zap.String("wishlist_item_id", itemID),
			zap.String("variant_id", variantID),
			zap.Error(err),
		)
	}
}

// handleExternal adopts a variant id reported by another instance of the
// same product. It is display-only reconciliation: it never rewrites the
// selection and never wins over a selection the shopper already started.
func (s *Synchronizer) handleExternal(ev events.VariantChanged) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.localTouched || s.item.VariantID == "" {
		return
	}
	s.displayVariantID = ev.VariantID
}

// DisplayVariantID returns the variant id the card should surface.
func (s *Synchronizer) DisplayVariantID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.displayVariantID
}

// Close detaches the synchronizer from the notification bus. Safe to call
// multiple times.
func (s *Synchronizer) Close() {
	if s.unsub != nil {
		s.unsub()
		s.unsub = nil
	}
}
