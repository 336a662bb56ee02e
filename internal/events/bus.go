// Package events carries cross-instance storefront notifications. The only
// event today is VariantChanged: some other surface showing the same product
// (another card, the product page, a live-update channel) switched its
// selected variant. Subscribers treat it as advisory, never authoritative.
package events

import "sync"

// VariantChanged announces that a product's selected variant changed in some
// other instance of the product UI.
type VariantChanged struct {
	ProductID string
	VariantID string
}

// Handler consumes a single VariantChanged notification.
type Handler func(VariantChanged)

// UnsubscribeFunc removes a subscription. Safe to call more than once.
type UnsubscribeFunc func()

// Bus is an in-process publish/subscribe hub keyed by product ID.
// Subscriptions are scoped to the subscriber's own lifetime: subscribe on
// construction, unsubscribe on teardown.
type Bus struct {
	mu     sync.RWMutex
	nextID uint64
	subs   map[string]map[uint64]Handler
}

// NewBus creates an empty Bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[string]map[uint64]Handler)}
}

// Subscribe registers a handler for events about the given product and
// returns the matching unsubscribe func.
func (b *Bus) Subscribe(productID string, h Handler) UnsubscribeFunc {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++

	if b.subs[productID] == nil {
		b.subs[productID] = make(map[uint64]Handler)
	}
	b.subs[productID][id] = h

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if handlers, ok := b.subs[productID]; ok {
			delete(handlers, id)
			if len(handlers) == 0 {
				delete(b.subs, productID)
			}
		}
	}
}

// Publish delivers the event to every handler subscribed to its product.
// Handlers run synchronously on the publishing goroutine, in no particular
// order.
func (b *Bus) Publish(ev VariantChanged) {
	b.mu.RLock()
	handlers := make([]Handler, 0, len(b.subs[ev.ProductID]))
	for _, h := range b.subs[ev.ProductID] {
		handlers = append(handlers, h)
	}
	b.mu.RUnlock()

	for _, h := range handlers {
		h(ev)
	}
}
