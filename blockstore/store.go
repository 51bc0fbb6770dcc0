package blockstore

import (
	"context"
	"os"
)

// ErrNotFound is returned when a block or metadata key does not exist.
//
// Implementations should return an error that satisfies `errors.Is(err, ErrNotFound)`.
// The default maps to `os.ErrNotExist`.
var ErrNotFound = os.ErrNotExist

// BlockStore is the host storage boundary for node blocks.
//
// The engine persists nothing on its own: every node block lives in a
// host-provided key/value store addressed by the node's rowid. Durability,
// transactions and crash recovery are the host's responsibility; the engine
// only moves whole fixed-size blocks through this interface.
type BlockStore interface {
	// ReadBlock returns the block stored under id, or ErrNotFound.
	// The returned slice is owned by the caller.
	ReadBlock(ctx context.Context, id uint64) ([]byte, error)

	// WriteBlock stores buf under id, overwriting any previous content.
	WriteBlock(ctx context.Context, id uint64, buf []byte) error

	// AllocateBlock creates a zeroed block of the given size under id.
	AllocateBlock(ctx context.Context, id uint64, size int) error

	// DeleteBlock removes the block stored under id.
	DeleteBlock(ctx context.Context, id uint64) error

	// CountBlocks returns the number of stored blocks. Implementations must
	// answer in amortized O(1); a full scan per call is not acceptable.
	CountBlocks(ctx context.Context) (uint64, error)

	// RandomBlockID returns the id of an approximately uniformly chosen
	// existing block, or ErrNotFound if the store is empty.
	RandomBlockID(ctx context.Context) (uint64, error)
}

// MetaStore is a small key/value store for index configuration,
// written once at creation and read at every open.
type MetaStore interface {
	// GetMeta returns the value stored under key, or ErrNotFound.
	GetMeta(ctx context.Context, key string) ([]byte, error)

	// PutMeta stores value under key.
	PutMeta(ctx context.Context, key string, value []byte) error
}

// Store is the full host interface consumed by the engine.
type Store interface {
	BlockStore
	MetaStore
}

// HandleReleaser is an optional interface for stores that keep long-lived
// host-side handles open (cursors, read transactions). The engine's cache
// calls ReleaseHandles at host-transaction boundaries so a commit is not
// blocked by open handles; handles are reopened lazily on the next access.
type HandleReleaser interface {
	ReleaseHandles() error
}
