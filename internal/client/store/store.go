// Package store defines the persistent key-value port shared by every
// JobRefMe surface. The store is the only channel through which independent
// processes (cli, agent) observe each other's state: every backend delivers
// change events to all open handles except the one that performed the write,
// mirroring how extension storage notifies every context but the writer.
package store

import "context"

// Change describes a single external mutation of a key.
type Change struct {
	Key     string
	Value   []byte
	Deleted bool
}

// Store is the persistence port.
//
// Contract:
//   - Get returns common.ErrNotFound for missing keys.
//   - Watch returns a channel that receives changes made through other
//     handles of the same backing store. The channel is closed when ctx is
//     cancelled or the store is closed. The handle's own writes are never
//     delivered to its subscribers.
//   - There is no locking across handles; concurrent writers to the same key
//     are resolved by event ordering (last write observed wins).
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	List(ctx context.Context) (map[string][]byte, error)
	Watch(ctx context.Context) (<-chan Change, error)
	Close() error
}
