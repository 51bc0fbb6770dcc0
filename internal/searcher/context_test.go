package searcher

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPushPopOrdering(t *testing.T) {
	c := NewContext(8, 4, nil)

	c.Push(1, 3.0)
	c.Push(2, 1.0)
	c.Push(3, 2.0)

	got := make([]uint64, 0, 3)
	for {
		cand, ok := c.Pop()
		if !ok {
			break
		}
		got = append(got, cand.ID)
	}
	assert.Equal(t, []uint64{2, 3, 1}, got)
}

func TestPushRejectsSeen(t *testing.T) {
	c := NewContext(8, 4, nil)

	require.True(t, c.Push(1, 1.0))
	assert.False(t, c.Push(1, 0.5), "queued candidate must not re-enter")

	cand, ok := c.Pop()
	require.True(t, ok)
	assert.Equal(t, uint64(1), cand.ID)
	assert.False(t, c.Push(1, 0.1), "visited candidate must not re-enter")
	assert.True(t, c.Seen(1))
}

func TestFrontierBounded(t *testing.T) {
	c := NewContext(2, 4, nil)

	c.Push(1, 1.0)
	c.Push(2, 2.0)
	// Worse than the full frontier's tail: rejected outright.
	assert.False(t, c.Push(3, 3.0))
	// Better: admitted, dropping the current worst.
	assert.True(t, c.Push(4, 0.5))

	first, _ := c.Pop()
	second, _ := c.Pop()
	_, ok := c.Pop()
	assert.Equal(t, uint64(4), first.ID)
	assert.Equal(t, uint64(1), second.ID)
	assert.False(t, ok)
}

func TestVisitTopK(t *testing.T) {
	c := NewContext(8, 2, nil)

	c.Visit(1, 3.0)
	c.Visit(2, 1.0)
	c.Visit(3, 2.0)

	res := c.Results()
	require.Len(t, res, 2)
	assert.Equal(t, uint64(2), res[0].ID)
	assert.Equal(t, uint64(3), res[1].ID)

	assert.Len(t, c.VisitedNodes(), 3, "visited list is unfiltered and unbounded by k")
}

func TestVisitFilterGatesResultsOnly(t *testing.T) {
	admit := func(id uint64) bool { return id%2 == 0 }
	c := NewContext(8, 4, admit)

	c.Visit(1, 0.5)
	c.Visit(2, 1.0)
	c.Visit(3, 1.5)
	c.Visit(4, 2.0)

	res := c.Results()
	require.Len(t, res, 2)
	assert.Equal(t, uint64(2), res[0].ID)
	assert.Equal(t, uint64(4), res[1].ID)

	// Rejected nodes are still recorded as visited (bridge property).
	assert.Len(t, c.VisitedNodes(), 4)
}
