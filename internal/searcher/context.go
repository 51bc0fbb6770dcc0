// Package searcher implements the per-operation traversal state shared by
// search, insert and delete: a visited set, a bounded candidate frontier
// ordered by approximate distance, a bounded top-K result buffer ordered by
// exact distance, and an optional result-admission predicate.
//
// A Context lives for the duration of one engine call and is never persisted.
package searcher

import "sort"

// Candidate pairs a node id with a distance to the current query.
type Candidate struct {
	ID       uint64
	Distance float32
}

// Filter is a result-admission predicate. It gates admission to the result
// buffer only — never traversal — so non-matching nodes remain usable as
// bridges to matching regions of the graph.
type Filter func(id uint64) bool

// Context carries the state of one traversal.
type Context struct {
	beamWidth int
	k         int
	filter    Filter

	// One membership table covers both the visited set and the frontier:
	// seen[id] is set when id enters the frontier and stays set after it is
	// popped, which is exactly the "unvisited and not already a candidate"
	// test beam search needs.
	seen     map[uint64]struct{}
	frontier []Candidate // sorted ascending by approximate distance
	visited  []Candidate // popped nodes with exact distances, append order
	results  []Candidate // sorted ascending by exact distance, ≤ k
}

// NewContext creates a traversal context with the given frontier bound and
// result bound. filter may be nil.
func NewContext(beamWidth, k int, filter Filter) *Context {
	return &Context{
		beamWidth: beamWidth,
		k:         k,
		filter:    filter,
		seen:      make(map[uint64]struct{}, beamWidth*2),
		frontier:  make([]Candidate, 0, beamWidth),
		visited:   make([]Candidate, 0, beamWidth),
		results:   make([]Candidate, 0, k),
	}
}

// Push offers a candidate to the frontier. Nodes already seen — visited or
// currently queued — are ignored, as are candidates worse than a full
// frontier's tail. Reports whether the candidate was queued.
func (c *Context) Push(id uint64, dist float32) bool {
	if _, ok := c.seen[id]; ok {
		return false
	}
	i := sort.Search(len(c.frontier), func(j int) bool {
		return c.frontier[j].Distance > dist
	})
	if i >= c.beamWidth {
		return false
	}
	// When the frontier is full the shift drops the worst entry; it stays
	// in seen, so it cannot re-enter at a distance it already lost with.
	if len(c.frontier) < c.beamWidth {
		c.frontier = append(c.frontier, Candidate{})
	}
	copy(c.frontier[i+1:], c.frontier[i:])
	c.frontier[i] = Candidate{ID: id, Distance: dist}
	c.seen[id] = struct{}{}
	return true
}

// Pop removes and returns the closest queued candidate, marking it visited.
// ok is false when the frontier is exhausted (the traversal's terminal state).
func (c *Context) Pop() (Candidate, bool) {
	if len(c.frontier) == 0 {
		return Candidate{}, false
	}
	head := c.frontier[0]
	copy(c.frontier, c.frontier[1:])
	c.frontier = c.frontier[:len(c.frontier)-1]
	return head, true
}

// Seen reports whether id was ever queued or visited.
func (c *Context) Seen(id uint64) bool {
	_, ok := c.seen[id]
	return ok
}

// Visit records a resolved node with its exact distance and, if the filter
// admits it, inserts it into the bounded result buffer. The visited record
// is unconditional; only result admission is filtered.
func (c *Context) Visit(id uint64, exact float32) {
	c.visited = append(c.visited, Candidate{ID: id, Distance: exact})

	if c.filter != nil && !c.filter(id) {
		return
	}
	i := sort.Search(len(c.results), func(j int) bool {
		return c.results[j].Distance > exact
	})
	if i >= c.k {
		return
	}
	if len(c.results) < c.k {
		c.results = append(c.results, Candidate{})
	}
	copy(c.results[i+1:], c.results[i:])
	c.results[i] = Candidate{ID: id, Distance: exact}
}

// Results returns the top-K buffer, sorted ascending by exact distance.
func (c *Context) Results() []Candidate {
	return c.results
}

// VisitedNodes returns every resolved node in visit order with its exact
// distance. Insert uses this as its edge candidate pool.
func (c *Context) VisitedNodes() []Candidate {
	return c.visited
}
