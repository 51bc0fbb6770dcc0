// Package cache implements a reference-counted LRU cache of decoded node
// blocks in front of the host block store.
//
// Sharing discipline: any number of holders may pin an entry via Get; an
// entry is eligible for eviction only once its reference count reaches zero.
// Eviction order is least-recently-gotten first, skipping pinned entries.
// Releasing a handle is mandatory on every exit path.
//
// The cache is not safe for concurrent use. The engine runs single-threaded
// and serializes all access (see the index-level concurrency contract).
package cache

import (
	"container/list"
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/vecdisk/vecdisk/blockstore"
	"github.com/vecdisk/vecdisk/internal/codec"
)

// ErrPinned is returned when dropping an entry that still has holders.
var ErrPinned = errors.New("cache entry still referenced")

// Cache is a bounded, reference-counted node block cache.
type Cache struct {
	store     blockstore.BlockStore
	layout    codec.Layout
	capacity  int
	items     map[uint64]*entry
	evictList *list.List // front = most recently gotten

	hits   atomic.Int64
	misses atomic.Int64
}

type entry struct {
	id    uint64
	block *codec.Block
	refs  int
	elem  *list.Element
}

// Handle is a pinned reference to a cached block. The holder may read the
// block, and — by the single-writer contract — mutate it, until Release.
type Handle struct {
	c        *Cache
	e        *entry
	released bool
}

// New creates a cache holding at most capacity blocks. Capacity must be
// positive; the cache may exceed it temporarily while all entries are pinned.
func New(store blockstore.BlockStore, layout codec.Layout, capacity int) *Cache {
	return &Cache{
		store:     store,
		layout:    layout,
		capacity:  capacity,
		items:     make(map[uint64]*entry),
		evictList: list.New(),
	}
}

// Get returns a pinned handle for the node's block, reading it from the
// host store on a miss. Missing blocks surface blockstore.ErrNotFound;
// traversal treats that as a zombie edge, not an error.
func (c *Cache) Get(ctx context.Context, id uint64) (*Handle, error) {
	if e, ok := c.items[id]; ok {
		c.hits.Add(1)
		e.refs++
		c.evictList.MoveToFront(e.elem)
		return &Handle{c: c, e: e}, nil
	}
	c.misses.Add(1)

	buf, err := c.store.ReadBlock(ctx, id)
	if err != nil {
		return nil, err
	}
	block, err := c.layout.Wrap(buf)
	if err != nil {
		return nil, fmt.Errorf("block %d: %w", id, err)
	}

	return c.insert(id, block), nil
}

// Create inserts a fresh zeroed block for a new node and returns it pinned.
// The caller is responsible for allocating the block host-side and flushing
// once the node is populated.
func (c *Cache) Create(id uint64) *Handle {
	return c.insert(id, c.layout.NewBlock(id))
}

func (c *Cache) insert(id uint64, block *codec.Block) *Handle {
	e := &entry{id: id, block: block, refs: 1}
	e.elem = c.evictList.PushFront(e)
	c.items[id] = e
	c.evict()
	return &Handle{c: c, e: e}
}

// Flush writes the handle's block back through the host store without
// evicting it. On a write failure the entry is dropped from the cache so a
// failed write is never served as if it had succeeded; the handle itself
// stays valid until released.
func (c *Cache) Flush(ctx context.Context, h *Handle) error {
	if err := c.store.WriteBlock(ctx, h.e.id, h.e.block.Bytes()); err != nil {
		c.forget(h.e)
		return fmt.Errorf("flush block %d: %w", h.e.id, err)
	}
	return nil
}

// Drop removes the entry for id, if cached. Used after deleting the node
// host-side. The entry must not be pinned.
func (c *Cache) Drop(id uint64) error {
	e, ok := c.items[id]
	if !ok {
		return nil
	}
	if e.refs > 0 {
		return ErrPinned
	}
	c.forget(e)
	return nil
}

// ReleaseHandles closes any open host-side handles while preserving cached
// buffer contents, so a host transaction commit is not blocked. Handles are
// reopened lazily on the next store access.
func (c *Cache) ReleaseHandles() error {
	if r, ok := c.store.(blockstore.HandleReleaser); ok {
		return r.ReleaseHandles()
	}
	return nil
}

// Len returns the number of cached blocks.
func (c *Cache) Len() int {
	return len(c.items)
}

// Stats returns hit/miss counters. Observability only, no behavioral effect.
func (c *Cache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

// Purge drops every unpinned entry. Called on index close.
func (c *Cache) Purge() {
	for _, e := range c.items {
		if e.refs == 0 {
			c.forget(e)
		}
	}
}

// evict removes least-recently-gotten unpinned entries until the cache is
// within capacity. Pinned entries are skipped, never reclaimed; if every
// entry is pinned the cache grows past capacity (bounded by beam width).
func (c *Cache) evict() {
	for el := c.evictList.Back(); el != nil && len(c.items) > c.capacity; {
		prev := el.Prev()
		e := el.Value.(*entry)
		if e.refs == 0 {
			c.forget(e)
		}
		el = prev
	}
}

func (c *Cache) forget(e *entry) {
	if e.elem != nil {
		c.evictList.Remove(e.elem)
		e.elem = nil
		delete(c.items, e.id)
	}
}

// Block returns the handle's decoded block.
func (h *Handle) Block() *codec.Block {
	return h.e.block
}

// ID returns the cached node's rowid.
func (h *Handle) ID() uint64 {
	return h.e.id
}

// Release unpins the handle. Safe to call more than once; releasing the
// last reference makes the entry eligible for eviction.
func (h *Handle) Release() {
	if h.released {
		return
	}
	h.released = true
	h.e.refs--
	if h.e.refs == 0 && h.e.elem != nil && len(h.c.items) > h.c.capacity {
		h.c.evict()
	}
}
