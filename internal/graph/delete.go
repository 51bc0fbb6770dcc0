package graph

import (
	"context"
	"fmt"
	"log/slog"
)

// Delete removes the node for id and the back-edges its neighbors hold
// toward it. Nothing else is repaired: edges elsewhere in the graph that
// still point at id become dangling and are skipped by traversal. Workloads
// with heavy deletion should rebuild the index periodically.
//
// Returns blockstore.ErrNotFound when id is not indexed.
func (e *Engine) Delete(ctx context.Context, id uint64) error {
	h, err := e.cache.Get(ctx, id)
	if err != nil {
		return fmt.Errorf("resolve node %d: %w", id, err)
	}
	blk := h.Block()

	removed := 0
	n := blk.EdgeCount()
	for i := 0; i < n; i++ {
		neighbor := blk.EdgeTarget(i)
		nh, err := e.cache.Get(ctx, neighbor)
		if err != nil {
			// An already-deleted neighbor has no back-edge to remove.
			if isNotFound(err) {
				continue
			}
			h.Release()
			return fmt.Errorf("resolve neighbor %d: %w", neighbor, err)
		}
		if j := nh.Block().FindEdge(id); j >= 0 {
			nh.Block().DeleteEdge(j)
			if err := e.cache.Flush(ctx, nh); err != nil {
				nh.Release()
				h.Release()
				return err
			}
			removed++
		}
		nh.Release()
	}
	h.Release()

	if err := e.store.DeleteBlock(ctx, id); err != nil {
		return fmt.Errorf("delete block %d: %w", id, err)
	}
	if err := e.cache.Drop(id); err != nil {
		return fmt.Errorf("drop node %d from cache: %w", id, err)
	}

	if e.liveNodes > 0 {
		e.liveNodes--
	}
	e.logger.Debug("deleted node",
		slog.Uint64("id", id),
		slog.Int("back_edges_removed", removed))
	return nil
}
