// Package token persists the bearer credential issued by the authentication API.
package token

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/fjod/go_cart/storefront/internal/storage"
)

// Key is the fixed storage key of the credential.
const Key = "token"

const storeTimeout = 2 * time.Second

// Store wraps the persisted credential. It never returns errors: a medium that
// fails on read is reported as "no credential", and failed writes are logged.
type Store struct {
	backend storage.Store
	logger  *slog.Logger
}

func NewStore(backend storage.Store, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{backend: backend, logger: logger}
}

// Get returns the persisted credential and whether one was present.
func (s *Store) Get() (string, bool) {
	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()

	v, err := s.backend.Get(ctx, Key)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			s.logger.Warn("token read failed", slog.String("key", Key), slog.String("error", err.Error()))
		}
		return "", false
	}
	if len(v) == 0 {
		return "", false
	}
	return string(v), true
}

// Set overwrites any previous credential.
func (s *Store) Set(token string) {
	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()

	if err := s.backend.Set(ctx, Key, []byte(token)); err != nil {
		s.logger.Warn("token write failed", slog.String("key", Key), slog.String("error", err.Error()))
	}
}

func (s *Store) Clear() {
	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()

	if err := s.backend.Delete(ctx, Key); err != nil {
		s.logger.Warn("token delete failed", slog.String("key", Key), slog.String("error", err.Error()))
	}
}
