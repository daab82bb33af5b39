package contract

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Get when no blob exists under the key.
var ErrNotFound = errors.New("blob not found")

// BlobStore is the persistence abstraction for the whole system: opaque
// values addressed by hierarchical slash-separated keys.
//
// Implementations must guarantee that Put creates any missing parent scope
// (writing sessions/<id>/participants/<key>/perspective.json never fails
// because the session directory is new) and that writes are atomic whole
// value replacements — a concurrent Get observes either the previous or the
// new value, never a torn one.
type BlobStore interface {
	Put(ctx context.Context, key string, data []byte) error
	Get(ctx context.Context, key string) ([]byte, error)
}
