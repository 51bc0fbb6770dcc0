package graph

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
)

// deferredEdge is one pending back-edge target -> source recorded during a
// batch of inserts. The source vector is copied because the source block may
// be evicted from the cache before the repair pass runs.
type deferredEdge struct {
	target uint64
	source uint64
	dist   float32
	vec    []float32
}

// deferredList accumulates back-edges for the batch repair pass. Capacity
// is bounded; once full, further back-edges spill over to the immediate
// write path instead of being deferred.
type deferredList struct {
	edges []deferredEdge
	cap   int
}

func (l *deferredList) add(target, source uint64, dist float32, vec []float32) {
	cp := make([]float32, len(vec))
	copy(cp, vec)
	l.edges = append(l.edges, deferredEdge{target: target, source: source, dist: dist, vec: cp})
}

func (l *deferredList) full() bool {
	return len(l.edges) >= l.cap
}

// mark and truncate bracket one insert's deferrals so a failed insert can
// discard exactly its own entries.
func (l *deferredList) mark() int {
	return len(l.edges)
}

func (l *deferredList) truncate(n int) {
	l.edges = l.edges[:n]
}

// BeginBatch switches subsequent inserts to deferred back-edge mode until
// EndBatch or AbortBatch.
func (e *Engine) BeginBatch() error {
	if e.batch != nil {
		return ErrBatchActive
	}
	e.batch = &deferredList{
		cap: e.cfg.InsertListSize * e.cfg.MaxNeighbors,
	}
	return nil
}

// EndBatch applies all deferred back-edges and leaves batch mode. The list
// is sorted by target so each affected node is resolved and flushed exactly
// once, turning scattered per-edge writes into one sequential pass.
//
// Each edge is re-proposed against the node's current state: earlier edges
// in the same group may have changed the outcome since the insert-time
// pre-filter, and pruning runs per accepted edge because every addition
// changes the node's diversity set.
//
// Batch mode ends even on error; the host transaction rolls back the
// partial writes. Returns the number of deferred edges actually written.
func (e *Engine) EndBatch(ctx context.Context) (int, error) {
	if e.batch == nil {
		return 0, nil
	}
	edges := e.batch.edges
	e.batch = nil

	sort.SliceStable(edges, func(i, j int) bool {
		return edges[i].target < edges[j].target
	})

	applied := 0
	for i := 0; i < len(edges); {
		j := i
		for j < len(edges) && edges[j].target == edges[i].target {
			j++
		}
		n, err := e.applyGroup(ctx, edges[i:j])
		if err != nil {
			return applied, err
		}
		applied += n
		i = j
	}

	e.logger.Debug("batch repair complete",
		slog.Int("deferred", len(edges)),
		slog.Int("applied", applied))
	return applied, nil
}

// AbortBatch discards all deferred edges without applying them. Used when
// the host transaction rolls back.
func (e *Engine) AbortBatch() {
	if e.batch == nil {
		return
	}
	e.logger.Debug("batch aborted", slog.Int("discarded", len(e.batch.edges)))
	e.batch = nil
}

// InBatch reports whether a batch is active.
func (e *Engine) InBatch() bool {
	return e.batch != nil
}

// applyGroup writes one target node's pending back-edges and flushes the
// block once. A target deleted mid-batch is skipped; its edges die with it.
func (e *Engine) applyGroup(ctx context.Context, group []deferredEdge) (int, error) {
	h, err := e.cache.Get(ctx, group[0].target)
	if err != nil {
		if isNotFound(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("resolve node %d: %w", group[0].target, err)
	}
	defer h.Release()

	applied := 0
	for _, de := range group {
		ok, err := e.tryAddEdge(h.Block(), de.source, de.dist, de.vec, false)
		if err != nil {
			return applied, err
		}
		if ok {
			applied++
		}
	}
	if applied == 0 {
		return 0, nil
	}
	if err := e.cache.Flush(ctx, h); err != nil {
		return applied, err
	}
	return applied, nil
}
