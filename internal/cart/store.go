// Package cart keeps the shopping cart as a persisted snapshot of line items.
package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/storage"
)

// SharedKey is the storage key of the cart when it is not scoped to a subject.
const SharedKey = "cart"

const storeTimeout = 2 * time.Second

// KeyFor returns the storage key of owner's cart. The empty owner maps to SharedKey.
func KeyFor(owner string) string {
	if owner == "" {
		return SharedKey
	}
	return fmt.Sprintf("cart:%s", owner)
}

// Store holds at most one line item per product id, each with a positive
// quantity. Every mutation re-persists the full snapshot. Storage failures are
// logged and never surface to callers.
type Store struct {
	mu      sync.Mutex
	backend storage.Store
	logger  *slog.Logger
	owner   string
	items   []domain.LineItem
	now     func() time.Time
}

func NewStore(backend storage.Store, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Store{
		backend: backend,
		logger:  logger,
		now:     time.Now,
	}
	s.items = s.load(SharedKey)
	return s
}

// AddToCart increments the quantity of an existing line or appends item with
// quantity 1. The quantity carried by item is ignored.
func (s *Store) AddToCart(item domain.LineItem) {
	if item.ProductID == "" {
		s.logger.Warn("ignoring cart item without product id", slog.String("name", item.ProductName))
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if i := s.indexOf(item.ProductID); i >= 0 {
		s.items[i].Quantity++
	} else {
		item.Quantity = 1
		if item.AddedAt.IsZero() {
			item.AddedAt = s.now()
		}
		s.items = append(s.items, item)
	}
	s.persist()
}

// DecreaseQuantity removes the line when its quantity is 1 and decrements it
// otherwise. Unknown ids are a no-op.
func (s *Store) DecreaseQuantity(productID domain.ID) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(productID)
	if i < 0 {
		return
	}
	if s.items[i].Quantity <= 1 {
		s.items = append(s.items[:i], s.items[i+1:]...)
	} else {
		s.items[i].Quantity--
	}
	s.persist()
}

func (s *Store) RemoveFromCart(productID domain.ID) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if i := s.indexOf(productID); i >= 0 {
		s.items = append(s.items[:i], s.items[i+1:]...)
	}
	s.persist()
}

func (s *Store) ClearCart() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.items = []domain.LineItem{}
	s.persist()
}

// Snapshot returns a copy of the current cart.
func (s *Store) Snapshot() domain.Cart {
	s.mu.Lock()
	defer s.mu.Unlock()

	items := make([]domain.LineItem, len(s.items))
	copy(items, s.items)
	return domain.Cart{Owner: s.owner, Items: items}
}

func (s *Store) Items() []domain.LineItem {
	return s.Snapshot().Items
}

func (s *Store) TotalItems() int {
	return s.Snapshot().TotalItems()
}

func (s *Store) TotalPrice() float64 {
	return s.Snapshot().TotalPrice()
}

func (s *Store) Quantity(productID domain.ID) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	if i := s.indexOf(productID); i >= 0 {
		return s.items[i].Quantity
	}
	return 0
}

func (s *Store) indexOf(productID domain.ID) int {
	for i := range s.items {
		if s.items[i].ProductID == productID {
			return i
		}
	}
	return -1
}

// persist must be called with s.mu held.
func (s *Store) persist() {
	data, err := json.Marshal(s.items)
	if err != nil {
		s.logger.Warn("marshal cart failed", slog.String("error", err.Error()))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()

	key := KeyFor(s.owner)
	if err := s.backend.Set(ctx, key, data); err != nil {
		s.logger.Warn("cart write failed", slog.String("key", key), slog.String("error", err.Error()))
	}
}

// load reads the snapshot under key. Absent or corrupt data yields an empty cart.
func (s *Store) load(key string) []domain.LineItem {
	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()

	data, err := s.backend.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			s.logger.Warn("cart read failed", slog.String("key", key), slog.String("error", err.Error()))
		}
		return []domain.LineItem{}
	}

	var items []domain.LineItem
	if err := json.Unmarshal(data, &items); err != nil {
		s.logger.Warn("discarding corrupt cart snapshot", slog.String("key", key), slog.String("error", err.Error()))
		return []domain.LineItem{}
	}
	return normalize(items)
}

// normalize restores the store invariants on a snapshot written elsewhere:
// duplicate ids are merged and non-positive quantities dropped.
func normalize(items []domain.LineItem) []domain.LineItem {
	out := make([]domain.LineItem, 0, len(items))
	index := make(map[domain.ID]int, len(items))
	for _, item := range items {
		if item.ProductID == "" || item.Quantity < 1 {
			continue
		}
		if i, ok := index[item.ProductID]; ok {
			out[i].Quantity += item.Quantity
			continue
		}
		index[item.ProductID] = len(out)
		out = append(out, item)
	}
	return out
}
