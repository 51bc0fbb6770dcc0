package graph

import (
	"context"
	"fmt"

	"github.com/vecdisk/vecdisk/internal/searcher"
)

// beamSearch runs the bounded greedy traversal from the seeded frontier in
// tc, populating tc's result buffer and visited list. Edges whose target
// block no longer exists are skipped silently: deletes never repair neighbor
// lists, so dangling edges are the expected steady state of the graph.
func (e *Engine) beamSearch(ctx context.Context, query []float32, tc *searcher.Context) error {
	for {
		cand, ok := tc.Pop()
		if !ok {
			return nil
		}

		h, err := e.cache.Get(ctx, cand.ID)
		if err != nil {
			if isNotFound(err) {
				continue
			}
			return fmt.Errorf("resolve node %d: %w", cand.ID, err)
		}
		blk := h.Block()

		// The exact distance uses the node's own vector. Admission to
		// the result buffer is filter-gated inside Visit; the visited
		// record is unconditional so rejected nodes still bridge the
		// traversal into matching regions.
		tc.Visit(cand.ID, e.dist(query, blk.Vector()))

		// Candidate distances come from the edge vector copies stored
		// in this block, so expansion costs no extra block reads.
		n := blk.EdgeCount()
		for i := 0; i < n; i++ {
			target := blk.EdgeTarget(i)
			if tc.Seen(target) {
				continue
			}
			tc.Push(target, e.dist(query, blk.EdgeVector(i)))
		}

		h.Release()
	}
}

// Search returns the k nearest neighbors of query, sorted ascending by
// distance. searchList bounds the traversal frontier; it is raised to k
// when smaller. An empty index returns an empty result, not an error.
func (e *Engine) Search(ctx context.Context, query []float32, k, searchList int) ([]searcher.Candidate, error) {
	return e.search(ctx, query, k, searchList, nil)
}

// SearchFiltered is Search with a result-admission predicate. The frontier
// is widened to max(2*searchList, 4*k) to compensate for rejected results;
// the predicate never gates traversal.
func (e *Engine) SearchFiltered(ctx context.Context, query []float32, k, searchList int, filter searcher.Filter) ([]searcher.Candidate, error) {
	widened := max(2*searchList, 4*k)
	return e.search(ctx, query, k, widened, filter)
}

func (e *Engine) search(ctx context.Context, query []float32, k, searchList int, filter searcher.Filter) ([]searcher.Candidate, error) {
	if err := e.checkVector(query); err != nil {
		return nil, err
	}
	if searchList < k {
		searchList = k
	}

	entry, err := e.entryPoint(ctx)
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("pick entry point: %w", err)
	}

	tc := searcher.NewContext(searchList, k, filter)
	tc.Push(entry, 0)
	if err := e.beamSearch(ctx, query, tc); err != nil {
		return nil, err
	}
	return tc.Results(), nil
}
