// Package kvstore abstracts the opaque string-keyed settings store the client
// core persists into. The session manager is the sole writer of its key; UI
// collaborators only read derived signals through the manager's surface.
package kvstore

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a key has no value.
var ErrNotFound = errors.New("kvstore: key not found")

// Store is a minimal get/set/delete contract over string keys. Values are
// opaque bytes; callers own serialization.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}
