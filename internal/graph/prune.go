package graph

import (
	"sort"

	"github.com/vecdisk/vecdisk/internal/codec"
)

// tryAddEdge proposes the edge blk -> target at the given source distance.
// It returns false without modifying the block when the edge already exists
// or when an existing edge dominates the candidate, meaning the existing
// neighbor is a better path to the candidate than a direct edge would be:
//
//	dist(existing, candidate) * alpha < dist(source, candidate)
//
// Most proposed back-edges are rejected by this check, which is what keeps
// bulk inserts cheap. With dryRun set the decision is reported but nothing
// is written; batch mode uses this to pre-filter deferred back-edges.
//
// On an accepted write the edge is appended and, if the list now exceeds
// the degree bound, pruned back down. The codec's capacity margin covers
// the overshoot between append and prune.
func (e *Engine) tryAddEdge(blk *codec.Block, target uint64, dist float32, vec []float32, dryRun bool) (bool, error) {
	if blk.FindEdge(target) >= 0 {
		return false, nil
	}

	n := blk.EdgeCount()
	for i := 0; i < n; i++ {
		if e.dist(blk.EdgeVector(i), vec)*e.cfg.Alpha < dist {
			return false, nil
		}
	}
	if dryRun {
		return true, nil
	}

	if err := blk.AppendEdge(target, dist, vec); err != nil {
		return false, err
	}
	if blk.EdgeCount() > e.cfg.MaxNeighbors {
		e.pruneEdges(blk)
	}
	return true, nil
}

type pruneCand struct {
	target uint64
	dist   float32
	vec    []float32
}

// pruneEdges reduces blk's edge list to a diverse subset of at most
// MaxNeighbors edges. Candidates are taken closest-first; keeping one
// discards every remaining candidate it dominates. The closest candidate
// is always kept, so a node never ends up with an empty edge list.
func (e *Engine) pruneEdges(blk *codec.Block) {
	n := blk.EdgeCount()
	cands := make([]pruneCand, n)
	for i := 0; i < n; i++ {
		// The kept subset is compacted over the live edge slots, so
		// the candidate vectors must be copied out first.
		vec := make([]float32, len(blk.EdgeVector(i)))
		copy(vec, blk.EdgeVector(i))
		cands[i] = pruneCand{target: blk.EdgeTarget(i), dist: blk.EdgeDistance(i), vec: vec}
	}
	sort.Slice(cands, func(i, j int) bool {
		return cands[i].dist < cands[j].dist
	})

	dropped := make([]bool, n)
	kept := 0
	for i := 0; i < n && kept < e.cfg.MaxNeighbors; i++ {
		if dropped[i] {
			continue
		}
		c := cands[i]
		blk.SetEdge(kept, c.target, c.dist, c.vec)
		kept++
		for j := i + 1; j < n; j++ {
			if dropped[j] {
				continue
			}
			if e.dist(c.vec, cands[j].vec)*e.cfg.Alpha < cands[j].dist {
				dropped[j] = true
			}
		}
	}
	blk.TruncateEdges(kept)
}
