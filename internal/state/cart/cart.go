// Package cart keeps the local mirror of the server-side cart.
//
// The store never computes totals or merges lines. Every mutation replaces the
// whole snapshot with what the server last returned.
package cart

import (
	"context"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/example/ec-storefront/internal/infrastructure/store"
	"github.com/example/ec-storefront/internal/logging"
	"github.com/example/ec-storefront/internal/readmodel"
	"github.com/example/ec-storefront/internal/state"
)

// Store is the cart store. All methods are safe for concurrent use.
// Observers run while the store holds its writer lock and must not mutate it.
type Store struct {
	// writeMu serialises replace, persist and notify so the saved blob and
	// the last notification always match memory.
	writeMu   sync.Mutex
	mu        sync.RWMutex
	kv        store.KV
	snapshot  readmodel.CartSnapshot
	observers state.Observers[readmodel.CartSnapshot]
	log       *logrus.Entry
}

// NewStore creates an empty cart backed by kv
func NewStore(kv store.KV) *Store {
	return &Store{
		kv:       kv,
		snapshot: emptySnapshot(),
		log:      logging.Component("cart-store"),
	}
}

// Load restores the persisted snapshot. A missing blob leaves the cart empty.
func (s *Store) Load(ctx context.Context) error {
	raw, found, err := s.kv.Get(ctx, store.KeyCartStorage)
	if err != nil {
		return fmt.Errorf("failed to read cart: %w", err)
	}
	if !found {
		return nil
	}

	persisted, err := state.DecodeEnvelope[readmodel.CartSnapshot](raw)
	if err != nil {
		s.log.WithError(err).Warn("discarding unreadable cart blob")
		return err
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	snap := s.replace(persisted.Items, persisted.TotalAmount)
	s.observers.Notify(snap)
	return nil
}

// SetCart replaces the snapshot with items and total exactly as given.
// The in-memory state changes even if persisting fails.
func (s *Store) SetCart(ctx context.Context, items []readmodel.CartLine, total decimal.Decimal) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	snap := s.replace(items, total)
	err := s.persist(ctx, snap)
	s.observers.Notify(snap)

	s.log.WithFields(logrus.Fields{
		"lines": len(snap.Items),
		"total": snap.TotalAmount.String(),
	}).Debug("cart replaced")
	return err
}

// ClearCart empties the local snapshot without contacting the server
func (s *Store) ClearCart(ctx context.Context) error {
	return s.SetCart(ctx, nil, decimal.Zero)
}

// Snapshot returns a copy of the current cart
func (s *Store) Snapshot() readmodel.CartSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return copySnapshot(s.snapshot)
}

// Items returns a copy of the current lines
func (s *Store) Items() []readmodel.CartLine {
	return s.Snapshot().Items
}

// TotalAmount returns the server-reported total
func (s *Store) TotalAmount() decimal.Decimal {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot.TotalAmount
}

// ItemCount sums the quantities of all lines, as shown on the navbar badge
func (s *Store) ItemCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, line := range s.snapshot.Items {
		n += line.Quantity
	}
	return n
}

// IsEmpty reports whether the cart has no lines
func (s *Store) IsEmpty() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.snapshot.Items) == 0
}

// Subscribe registers fn for every replacement
func (s *Store) Subscribe(fn func(readmodel.CartSnapshot)) func() {
	return s.observers.Subscribe(fn)
}

func (s *Store) replace(items []readmodel.CartLine, total decimal.Decimal) readmodel.CartSnapshot {
	next := readmodel.CartSnapshot{
		Items:       make([]readmodel.CartLine, len(items)),
		TotalAmount: total,
	}
	copy(next.Items, items)

	s.mu.Lock()
	s.snapshot = next
	s.mu.Unlock()

	return copySnapshot(next)
}

func (s *Store) persist(ctx context.Context, snap readmodel.CartSnapshot) error {
	raw, err := state.EncodeEnvelope(snap)
	if err != nil {
		return err
	}
	if err := s.kv.Set(ctx, store.KeyCartStorage, raw); err != nil {
		s.log.WithError(err).Error("failed to persist cart")
		return fmt.Errorf("failed to persist cart: %w", err)
	}
	return nil
}

func emptySnapshot() readmodel.CartSnapshot {
	return readmodel.CartSnapshot{Items: []readmodel.CartLine{}, TotalAmount: decimal.Zero}
}

func copySnapshot(s readmodel.CartSnapshot) readmodel.CartSnapshot {
	items := make([]readmodel.CartLine, len(s.Items))
	copy(items, s.Items)
	return readmodel.CartSnapshot{Items: items, TotalAmount: s.TotalAmount}
}
