package wishlist

import (
	"context"
	"sync"
	"time"
)

// Sessions keeps the live card per (viewer, wishlist item) between requests,
// so a shopper's in-progress option selection survives across option-change
// calls without ever being persisted. Entries expire after a TTL of
// inactivity; expired cards are closed to release their bus subscriptions.
type Sessions struct {
	ttl time.Duration

	mu    sync.Mutex
	cards map[sessionKey]*sessionEntry
}

type sessionKey struct {
	viewer string
	itemID string
}

type sessionEntry struct {
	card      *Card
	expiresAt time.Time
}

// NewSessions creates a session registry with the given idle TTL.
func NewSessions(ttl time.Duration) *Sessions {
	return &Sessions{
		ttl:   ttl,
		cards: make(map[sessionKey]*sessionEntry),
	}
}

// Get returns the live card for the viewer and item, refreshing its TTL,
// or nil when none exists.
func (s *Sessions) Get(viewer, itemID string) *Card {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := sessionKey{viewer: viewer, itemID: itemID}
	e, ok := s.cards[key]
	if !ok {
		return nil
	}
	if time.Now().After(e.expiresAt) {
		e.card.Close()
		delete(s.cards, key)
		return nil
	}
	e.expiresAt = time.Now().Add(s.ttl)
	return e.card
}

// Put stores the card for the viewer and item, replacing (and closing) any
// previous card under the same key.
func (s *Sessions) Put(viewer, itemID string, card *Card) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := sessionKey{viewer: viewer, itemID: itemID}
	if prev, ok := s.cards[key]; ok && prev.card != card {
		prev.card.Close()
	}
	s.cards[key] = &sessionEntry{card: card, expiresAt: time.Now().Add(s.ttl)}
}

// Drop removes and closes the card for the viewer and item, if any.
func (s *Sessions) Drop(viewer, itemID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := sessionKey{viewer: viewer, itemID: itemID}
	if e, ok := s.cards[key]; ok {
		e.card.Close()
		delete(s.cards, key)
	}
}

// StartSweep launches a background goroutine that evicts expired cards until
// the context is cancelled.
func (s *Sessions) StartSweep(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				s.sweep(now)
			}
		}
	}()
}

func (s *Sessions) sweep(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for key, e := range s.cards {
		if now.After(e.expiresAt) {
			e.card.Close()
			delete(s.cards, key)
		}
	}
}
