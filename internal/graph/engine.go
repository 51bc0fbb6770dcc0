// Package graph implements the disk-resident Vamana graph engine: beam
// search traversal, diversity-aware edge pruning, and the insert, delete and
// batch-repair operations that maintain the graph.
//
// The engine is single-threaded and cooperative: every operation runs to
// completion on the caller's goroutine, and the caller serializes all calls
// against one engine instance. Mutating operations are expected to run
// inside a host-provided transaction; on a mid-operation I/O failure the
// engine returns the error with its cache intact and the host rolls back.
package graph

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/vecdisk/vecdisk/blockstore"
	"github.com/vecdisk/vecdisk/distance"
	"github.com/vecdisk/vecdisk/internal/cache"
	"github.com/vecdisk/vecdisk/internal/codec"
)

// Engine is one open graph index over a host block store.
type Engine struct {
	cfg    Config
	store  blockstore.Store
	cache  *cache.Cache
	layout codec.Layout
	dist   distance.Func
	logger *slog.Logger

	// liveNodes shadows the host's block count so entry-point selection
	// and Count stay O(1). -1 until first read from the host.
	liveNodes int64

	batch *deferredList
}

// New opens an engine over store with the given configuration. The
// configuration must match what the store was created with; in particular
// the derived block size is checked against the persisted one.
func New(cfg Config, store blockstore.Store, cacheCapacity int, logger *slog.Logger) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	layout := codec.NewLayout(cfg.Dims, cfg.MaxNeighbors)
	if cfg.BlockSize != 0 && cfg.BlockSize != layout.BlockSize() {
		return nil, fmt.Errorf("%w: stored block size %d does not match derived size %d",
			ErrConfig, cfg.BlockSize, layout.BlockSize())
	}
	cfg.BlockSize = layout.BlockSize()

	dist, err := distance.Provider(cfg.Metric)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfig, err)
	}
	if cacheCapacity <= 0 {
		return nil, fmt.Errorf("%w: cache capacity must be positive, got %d", ErrConfig, cacheCapacity)
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Engine{
		cfg:       cfg,
		store:     store,
		cache:     cache.New(store, layout, cacheCapacity),
		layout:    layout,
		dist:      dist,
		logger:    logger,
		liveNodes: -1,
	}, nil
}

// Config returns the engine's configuration, including the derived block size.
func (e *Engine) Config() Config {
	return e.cfg
}

// Count returns the number of live nodes. The host count is read once and
// shadowed; inserts and deletes keep the shadow current.
func (e *Engine) Count(ctx context.Context) (uint64, error) {
	if e.liveNodes < 0 {
		n, err := e.store.CountBlocks(ctx)
		if err != nil {
			return 0, fmt.Errorf("count blocks: %w", err)
		}
		e.liveNodes = int64(n)
	}
	return uint64(e.liveNodes), nil
}

// CacheStats returns the block cache hit/miss counters.
func (e *Engine) CacheStats() (hits, misses int64) {
	return e.cache.Stats()
}

// ReleaseHandles closes any host-side handles held by the cache so a host
// transaction can commit. Cached buffer contents are preserved.
func (e *Engine) ReleaseHandles() error {
	return e.cache.ReleaseHandles()
}

// Close discards all unpinned cached blocks. An open batch is aborted; its
// deferred edges are lost, matching a host rollback.
func (e *Engine) Close() error {
	if e.batch != nil {
		e.logger.Warn("closing engine with an active batch, deferred edges discarded",
			slog.Int("deferred", len(e.batch.edges)))
		e.batch = nil
	}
	e.cache.Purge()
	return nil
}

// entryPoint picks a uniformly random live node to start a traversal from.
// Returns blockstore.ErrNotFound on an empty index.
func (e *Engine) entryPoint(ctx context.Context) (uint64, error) {
	return e.store.RandomBlockID(ctx)
}

func (e *Engine) checkVector(vec []float32) error {
	if len(vec) != e.cfg.Dims {
		return &DimensionMismatchError{Expected: e.cfg.Dims, Actual: len(vec)}
	}
	return nil
}

func isNotFound(err error) bool {
	return errors.Is(err, blockstore.ErrNotFound)
}
