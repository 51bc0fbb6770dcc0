package graph

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/vecdisk/vecdisk/internal/cache"
	"github.com/vecdisk/vecdisk/internal/searcher"
)

// Insert adds a new node for id with the given vector and links it into the
// graph. The insert runs a beam search to discover neighbors, writes forward
// edges on the new node and back edges on the discovered neighbors, and
// flushes every touched block. In batch mode accepted back-edges are
// deferred instead of flushed (see batch.go).
//
// On any host I/O failure the error propagates with the cache intact and no
// deferred edges left behind; the host transaction rolls back the partial
// writes.
func (e *Engine) Insert(ctx context.Context, id uint64, vec []float32) error {
	if err := e.checkVector(vec); err != nil {
		return err
	}
	if h, err := e.cache.Get(ctx, id); err == nil {
		h.Release()
		return fmt.Errorf("node %d: %w", id, ErrAlreadyExists)
	} else if !isNotFound(err) {
		return fmt.Errorf("check node %d: %w", id, err)
	}

	entry, err := e.entryPoint(ctx)
	if err != nil {
		if isNotFound(err) {
			return e.insertFirst(ctx, id, vec)
		}
		return fmt.Errorf("pick entry point: %w", err)
	}

	// One traversal serves double duty: its result buffer is unused, but
	// its visited list is the edge candidate pool below.
	l := e.cfg.InsertListSize
	tc := searcher.NewContext(l, l, nil)
	tc.Push(entry, 0)
	if err := e.beamSearch(ctx, vec, tc); err != nil {
		return err
	}

	mark := 0
	if e.batch != nil {
		mark = e.batch.mark()
	}

	if err := e.store.AllocateBlock(ctx, id, e.layout.BlockSize()); err != nil {
		return fmt.Errorf("allocate block %d: %w", id, err)
	}
	h := e.cache.Create(id)
	h.Block().SetVector(vec)

	if err := e.connect(ctx, h, vec, tc.VisitedNodes()); err != nil {
		h.Release()
		e.rollbackInsert(id, mark)
		return err
	}
	if err := e.cache.Flush(ctx, h); err != nil {
		h.Release()
		e.rollbackInsert(id, mark)
		return err
	}
	edges := h.Block().EdgeCount()
	h.Release()

	if e.liveNodes >= 0 {
		e.liveNodes++
	}
	e.logger.Debug("inserted node",
		slog.Uint64("id", id),
		slog.Int("edges", edges),
		slog.Int("visited", len(tc.VisitedNodes())))
	return nil
}

// insertFirst handles the empty-index case: the node is written with an
// empty edge list and becomes the graph's sole entry point.
func (e *Engine) insertFirst(ctx context.Context, id uint64, vec []float32) error {
	if err := e.store.AllocateBlock(ctx, id, e.layout.BlockSize()); err != nil {
		return fmt.Errorf("allocate block %d: %w", id, err)
	}
	h := e.cache.Create(id)
	h.Block().SetVector(vec)
	err := e.cache.Flush(ctx, h)
	h.Release()
	if err != nil {
		e.rollbackInsert(id, 0)
		return err
	}
	e.liveNodes = 1
	e.logger.Debug("inserted first node", slog.Uint64("id", id))
	return nil
}

// connect links the new node to its discovered neighbors: a forward edge on
// the new node and a back edge on each neighbor, both subject to the
// domination check and pruning. Candidates are taken closest-first so the
// cheap rejection path fires as often as possible.
func (e *Engine) connect(ctx context.Context, nh *cache.Handle, vec []float32, visited []searcher.Candidate) error {
	sort.Slice(visited, func(i, j int) bool {
		return visited[i].Distance < visited[j].Distance
	})

	newBlk := nh.Block()
	for _, cand := range visited {
		vh, err := e.cache.Get(ctx, cand.ID)
		if err != nil {
			if isNotFound(err) {
				continue
			}
			return fmt.Errorf("resolve neighbor %d: %w", cand.ID, err)
		}

		if _, err := e.tryAddEdge(newBlk, cand.ID, cand.Distance, vh.Block().Vector(), false); err != nil {
			vh.Release()
			return err
		}
		if err := e.backEdge(ctx, vh, nh.ID(), cand.Distance, vec); err != nil {
			vh.Release()
			return err
		}
		vh.Release()
	}
	return nil
}

// backEdge proposes the reverse edge neighbor -> source. Outside a batch an
// accepted edge is applied and flushed immediately. Inside a batch the
// decision is pre-filtered with a dry run and the accepted edge deferred;
// when the deferred list is full the edge spills over to the immediate path.
func (e *Engine) backEdge(ctx context.Context, vh *cache.Handle, source uint64, dist float32, vec []float32) error {
	if e.batch != nil && !e.batch.full() {
		ok, err := e.tryAddEdge(vh.Block(), source, dist, vec, true)
		if err != nil {
			return err
		}
		if ok {
			e.batch.add(vh.ID(), source, dist, vec)
		}
		return nil
	}

	ok, err := e.tryAddEdge(vh.Block(), source, dist, vec, false)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}
	return e.cache.Flush(ctx, vh)
}

// rollbackInsert undoes the engine-side effects of a failed insert: deferred
// back-edges recorded by this insert are discarded and the new node's cache
// entry is dropped. Host-side writes are the host transaction's rollback.
func (e *Engine) rollbackInsert(id uint64, mark int) {
	if e.batch != nil {
		e.batch.truncate(mark)
	}
	if err := e.cache.Drop(id); err != nil {
		e.logger.Warn("drop rolled-back node from cache",
			slog.Uint64("id", id), slog.Any("error", err))
	}
}
