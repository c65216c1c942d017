// Package storage provides the client-local key/value medium that the token
// and cart stores persist their snapshots into.
package storage

import (
	"context"
	"errors"
)

// Store is a flat key/value persistence medium. Values are opaque bytes.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Close() error
}

var ErrNotFound = errors.New("key not found")
