package cart

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// Scope decides whether the persisted cart follows the logged-in subject.
type Scope string

const (
	// ScopeShared keeps one cart per client regardless of who is logged in.
	ScopeShared Scope = "shared"
	// ScopeSubject keys the cart by the credential subject.
	ScopeSubject Scope = "subject"
)

func ParseScope(v string) (Scope, error) {
	switch Scope(strings.ToLower(strings.TrimSpace(v))) {
	case ScopeShared, "":
		return ScopeShared, nil
	case ScopeSubject:
		return ScopeSubject, nil
	default:
		return "", fmt.Errorf("unknown cart scope %q", v)
	}
}

// Owner returns the subject the cart is currently bound to.
func (s *Store) Owner() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.owner
}

// Bind switches the store to owner's snapshot. Moving from the anonymous cart
// to a subject merges the anonymous lines into the subject's cart and clears
// the anonymous snapshot, so items picked before logging in are kept.
func (s *Store) Bind(owner string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if owner == s.owner {
		return
	}

	guest := s.items
	fromGuest := s.owner == ""

	s.owner = owner
	s.items = s.load(KeyFor(owner))

	if fromGuest && owner != "" && len(guest) > 0 {
		s.items = normalize(append(s.items, guest...))
		s.persist()
		s.deleteKey(SharedKey)
	}

	s.logger.Debug("cart bound", slog.String("owner", owner), slog.Int("lines", len(s.items)))
}

func (s *Store) deleteKey(key string) {
	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()

	if err := s.backend.Delete(ctx, key); err != nil {
		s.logger.Warn("cart delete failed", slog.String("key", key), slog.String("error", err.Error()))
	}
}
