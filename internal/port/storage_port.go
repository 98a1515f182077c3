package port

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("key not found")

// Storage is a profile-scoped key/value store. Get returns ErrNotFound for an
// absent key; Remove of an absent key is not an error.
type Storage interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Remove(ctx context.Context, key string) error
}

// Updater is implemented by backends that can run a read-modify-write
// atomically. When fn returns an error nothing is written and the error is
// returned wrapped.
type Updater interface {
	Update(ctx context.Context, key string, fn func(value []byte, found bool) ([]byte, error)) error
}
