// Package store provides the (namespace, key) value store backing the
// idempotency records, recipient-seen records, and any other small keyed
// state the engine keeps.
//
// The only concurrency primitive the engine relies on is PutIfAbsent: an
// atomic insert-if-absent whose uniqueness guarantee is the sole source of
// mutual exclusion for "first writer wins" flows. No implementation may relax
// that guarantee.
package store

import (
	"context"
	"errors"
)

// ErrClosed is returned by operations on a closed store.
var ErrClosed = errors.New("store is closed")

// KV is the namespaced key/value contract consumed by the engine packages.
type KV interface {
	// Get returns the value for (namespace, key) and whether it exists.
	Get(ctx context.Context, namespace, key string) ([]byte, bool, error)

	// Put unconditionally writes the value for (namespace, key).
	Put(ctx context.Context, namespace, key string, value []byte) error

	// PutIfAbsent atomically inserts the value when (namespace, key) has no
	// current value. It reports true when this caller won the insert.
	PutIfAbsent(ctx context.Context, namespace, key string, value []byte) (bool, error)
}
