package vecdisk

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/vecdisk/vecdisk/blockstore"
	"github.com/vecdisk/vecdisk/internal/graph"
	"github.com/vecdisk/vecdisk/internal/searcher"
)

// SearchResult is one nearest-neighbor hit.
type SearchResult struct {
	ID       uint64
	Distance float32
}

// FilterFunc is an opaque result-admission predicate over rowids. The query
// layer is responsible for turning its own filter expressions into this
// callback; the index has no knowledge of attribute storage. The predicate
// gates results only, never traversal.
type FilterFunc func(id uint64) bool

// Index is one open vector index over a host block store.
//
// The index is single-threaded and cooperative: every operation runs to
// completion on the caller's goroutine, and the caller must serialize all
// calls against one instance. Mutating operations are expected to run inside
// a host-provided transaction; on failure the caller rolls the host back.
type Index struct {
	engine  *graph.Engine
	store   blockstore.Store
	logger  *Logger
	metrics MetricsCollector
	closed  bool
}

// Create initializes a new index in an empty host store and opens it.
// The configuration is persisted to the store's metadata; a store that
// already holds an index is rejected.
func Create(ctx context.Context, store blockstore.Store, co CreateOptions, optFns ...Option) (*Index, error) {
	if _, err := graph.LoadConfig(ctx, store); err == nil {
		return nil, fmt.Errorf("%w: store already holds an index", ErrConfig)
	} else if !errors.Is(err, blockstore.ErrNotFound) {
		return nil, translateError(err)
	}

	cfg := graph.Config{
		IndexID:        uuid.New(),
		Dims:           co.Dims,
		Metric:         co.Metric,
		MaxNeighbors:   co.MaxNeighbors,
		Alpha:          co.Alpha,
		InsertListSize: co.InsertListSize,
		SearchListSize: co.SearchListSize,
	}
	ix, err := newIndex(cfg, store, optFns)
	if err != nil {
		return nil, err
	}
	if err := graph.SaveConfig(ctx, store, ix.engine.Config()); err != nil {
		return nil, translateError(err)
	}
	ix.logger.Info("index created",
		"index_id", cfg.IndexID.String(),
		"dims", cfg.Dims,
		"metric", cfg.Metric.String())
	return ix, nil
}

// Open opens an existing index from the host store's persisted
// configuration. Returns ErrNotFound when the store holds no index.
func Open(ctx context.Context, store blockstore.Store, optFns ...Option) (*Index, error) {
	cfg, err := graph.LoadConfig(ctx, store)
	if err != nil {
		return nil, translateError(err)
	}
	return newIndex(cfg, store, optFns)
}

func newIndex(cfg graph.Config, store blockstore.Store, optFns []Option) (*Index, error) {
	o := applyOptions(optFns)
	logger := o.logger.WithIndexID(cfg.IndexID.String())
	engine, err := graph.New(cfg, store, o.cacheCapacity, logger.Logger)
	if err != nil {
		return nil, translateError(err)
	}
	return &Index{
		engine:  engine,
		store:   store,
		logger:  logger,
		metrics: o.metricsCollector,
	}, nil
}

// ID returns the index's creation-time identifier.
func (ix *Index) ID() string {
	return ix.engine.Config().IndexID.String()
}

// Close releases the index's cached blocks. The host store stays open; it
// belongs to the caller. An active batch is discarded, matching a host
// rollback.
func (ix *Index) Close() error {
	if ix.closed {
		return nil
	}
	ix.closed = true
	return ix.engine.Close()
}

// Insert adds a vector under the given rowid.
func (ix *Index) Insert(ctx context.Context, id uint64, vector []float32) error {
	if ix.closed {
		return ErrClosed
	}
	start := time.Now()
	err := translateError(ix.engine.Insert(ctx, id, vector))
	ix.metrics.RecordInsert(time.Since(start), err)
	return err
}

// Delete removes the vector stored under the given rowid. Edges elsewhere in
// the graph that still point at it become dangling and are tolerated by
// traversal; heavy-delete workloads should rebuild periodically.
func (ix *Index) Delete(ctx context.Context, id uint64) error {
	if ix.closed {
		return ErrClosed
	}
	start := time.Now()
	err := translateError(ix.engine.Delete(ctx, id))
	ix.metrics.RecordDelete(time.Since(start), err)
	return err
}

// Search returns the k nearest neighbors of query, sorted ascending by
// distance. An empty index yields an empty result, not an error.
func (ix *Index) Search(ctx context.Context, query []float32, k int, optFns ...SearchOption) ([]SearchResult, error) {
	return ix.search(ctx, query, k, nil, optFns)
}

// SearchFiltered is Search restricted to rowids admitted by filter. The
// traversal beam is widened internally to compensate for rejected results;
// non-matching nodes still bridge the walk into matching regions.
func (ix *Index) SearchFiltered(ctx context.Context, query []float32, k int, filter FilterFunc, optFns ...SearchOption) ([]SearchResult, error) {
	if filter == nil {
		return ix.search(ctx, query, k, nil, optFns)
	}
	return ix.search(ctx, query, k, filter, optFns)
}

func (ix *Index) search(ctx context.Context, query []float32, k int, filter FilterFunc, optFns []SearchOption) ([]SearchResult, error) {
	if ix.closed {
		return nil, ErrClosed
	}
	if k <= 0 {
		return nil, ErrInvalidK
	}
	so := searchOptions{searchList: ix.engine.Config().SearchListSize}
	for _, fn := range optFns {
		fn(&so)
	}

	start := time.Now()
	var (
		candidates []searcher.Candidate
		err        error
	)
	if filter == nil {
		candidates, err = ix.engine.Search(ctx, query, k, so.searchList)
	} else {
		candidates, err = ix.engine.SearchFiltered(ctx, query, k, so.searchList, searcher.Filter(filter))
	}
	err = translateError(err)
	ix.metrics.RecordSearch(k, time.Since(start), err)
	ix.metrics.RecordCacheAccess(ix.engine.CacheStats())
	if err != nil {
		return nil, err
	}

	results := make([]SearchResult, len(candidates))
	for i, c := range candidates {
		results[i] = SearchResult{ID: c.ID, Distance: c.Distance}
	}
	return results, nil
}

// BeginBatch switches subsequent inserts to deferred back-edge mode until
// EndBatch or AbortBatch. Batched inserts trade write amplification for a
// single sorted repair pass at batch end.
func (ix *Index) BeginBatch() error {
	if ix.closed {
		return ErrClosed
	}
	return translateError(ix.engine.BeginBatch())
}

// EndBatch applies all deferred back-edges and leaves batch mode.
func (ix *Index) EndBatch(ctx context.Context) error {
	if ix.closed {
		return ErrClosed
	}
	start := time.Now()
	applied, err := ix.engine.EndBatch(ctx)
	err = translateError(err)
	ix.metrics.RecordBatch(applied, time.Since(start), err)
	return err
}

// AbortBatch discards all deferred back-edges without applying them. Used
// when the host transaction rolls back.
func (ix *Index) AbortBatch() {
	if ix.closed {
		return
	}
	ix.engine.AbortBatch()
}

// ReleaseHandles closes any host-side handles the block cache holds so a
// host transaction can commit. Cached contents are preserved; handles are
// reopened lazily on the next access.
func (ix *Index) ReleaseHandles() error {
	if ix.closed {
		return ErrClosed
	}
	return ix.engine.ReleaseHandles()
}

// Stats is a point-in-time snapshot of the index.
type Stats struct {
	IndexID      string
	Dims         int
	Metric       string
	MaxNeighbors int
	NodeCount    uint64
	CacheHits    int64
	CacheMisses  int64
}

// Stats returns a snapshot of index configuration and counters.
func (ix *Index) Stats(ctx context.Context) (Stats, error) {
	if ix.closed {
		return Stats{}, ErrClosed
	}
	count, err := ix.engine.Count(ctx)
	if err != nil {
		return Stats{}, translateError(err)
	}
	hits, misses := ix.engine.CacheStats()
	cfg := ix.engine.Config()
	return Stats{
		IndexID:      cfg.IndexID.String(),
		Dims:         cfg.Dims,
		Metric:       cfg.Metric.String(),
		MaxNeighbors: cfg.MaxNeighbors,
		NodeCount:    count,
		CacheHits:    hits,
		CacheMisses:  misses,
	}, nil
}
