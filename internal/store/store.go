// Package store defines the document-store contract the engine runs on.
// Implementations live under internal/infra; the engine only relies on
// single-document reads/writes, an optimistic multi-document transaction,
// and atomic list push/pop for attack tickets.
package store

import (
	"context"
	"errors"
	"time"
)

// ErrConflict signals an optimistic-concurrency failure inside AtomicUpdate.
// Callers that care retry the whole transaction; nothing was written.
var ErrConflict = errors.New("store: transaction conflict")

// Tx is the view a mutator gets inside AtomicUpdate. Reads observe the state
// the transaction was validated against; writes are buffered and applied
// atomically only if no watched key changed underneath.
type Tx interface {
	// Get unmarshals the document at key into out, reporting whether it exists.
	Get(key string, out any) (bool, error)
	// Set buffers a document write. A zero ttl means no expiry.
	Set(key string, val any, ttl time.Duration)
	// Append buffers a push onto the list at key.
	Append(key string, val any)
	// Delete buffers a document removal.
	Delete(key string)
}

// KV is the persistence collaborator.
type KV interface {
	// Get unmarshals the document at key into out, reporting whether it exists.
	Get(ctx context.Context, key string, out any) (bool, error)
	// Put writes a single document. A zero ttl means no expiry.
	Put(ctx context.Context, key string, val any, ttl time.Duration) error
	// AtomicUpdate runs fn against a transactional view of keys and applies
	// its buffered writes atomically. Returns ErrConflict if any watched key
	// was modified concurrently; any error from fn aborts with nothing written.
	AtomicUpdate(ctx context.Context, keys []string, fn func(tx Tx) error) error
	// PopList atomically removes the oldest element of the list at key,
	// unmarshalling it into out and reporting whether one existed.
	PopList(ctx context.Context, key string, out any) (bool, error)
	// Scan visits every document whose key starts with prefix. Used only by
	// batch projections outside the hot path; no consistency guarantee
	// across documents.
	Scan(ctx context.Context, prefix string, fn func(key string, data []byte) error) error
}
