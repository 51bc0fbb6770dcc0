// Package codec implements the fixed-size on-disk encoding of a graph node.
//
// Block layout (little-endian):
//
//	[0:8)    node id (rowid)
//	[8:10)   edge count
//	[10:16)  reserved
//	[16:16+d*4)              node vector, d float32s
//	[.. + maxEdges*d*4)      edge vectors, packed contiguously
//	[.. + maxEdges*16)       edge metadata, packed contiguously:
//	                         [0:4) cached distance, [4:8) reserved, [8:16) target id
//
// Edge metadata is kept out of the vector region so a distance-only scan of
// neighbor vectors never touches metadata cache lines. The edge capacity
// carries a 10% margin over the configured degree bound because pruning runs
// after a tentative edge is appended.
package codec

import (
	"encoding/binary"
	"errors"
	"math"
	"unsafe"
)

const (
	// HeaderSize is the fixed node block header size in bytes.
	HeaderSize = 16

	// EdgeMetaSize is the per-edge metadata record size in bytes.
	EdgeMetaSize = 16
)

var (
	// ErrBlockSize is returned when a buffer's size does not match the layout.
	ErrBlockSize = errors.New("buffer size does not match block layout")

	// ErrBlockFull is returned when appending an edge beyond the margin
	// capacity. Hitting this at runtime is a configuration bug; the layout
	// is validated at index creation.
	ErrBlockFull = errors.New("block edge capacity exceeded")
)

// Layout describes the fixed geometry of an encoded node block. It is
// derived from the index's dimension and degree bound, both immutable after
// index creation.
type Layout struct {
	Dims         int
	MaxNeighbors int
	// MaxEdges is the encoded edge capacity: MaxNeighbors plus a 10% margin
	// so pruning may run after a tentative append.
	MaxEdges int
}

// NewLayout computes the block layout for the given dimension and degree bound.
func NewLayout(dims, maxNeighbors int) Layout {
	margin := maxNeighbors / 10
	if margin == 0 {
		margin = 1
	}
	return Layout{
		Dims:         dims,
		MaxNeighbors: maxNeighbors,
		MaxEdges:     maxNeighbors + margin,
	}
}

// BlockSize returns the total encoded size of one node block.
func (l Layout) BlockSize() int {
	return HeaderSize + l.vectorSize() + l.MaxEdges*(l.vectorSize()+EdgeMetaSize)
}

func (l Layout) vectorSize() int {
	return l.Dims * 4
}

func (l Layout) edgeVectorOffset(i int) int {
	return HeaderSize + l.vectorSize() + i*l.vectorSize()
}

func (l Layout) edgeMetaOffset(i int) int {
	return HeaderSize + (1+l.MaxEdges)*l.vectorSize() + i*EdgeMetaSize
}

// Wrap interprets buf as a node block with this layout. The block aliases
// buf; mutations write through.
func (l Layout) Wrap(buf []byte) (*Block, error) {
	if len(buf) != l.BlockSize() {
		return nil, ErrBlockSize
	}
	return &Block{layout: l, buf: buf}, nil
}

// NewBlock allocates a zeroed block for a new node with the given id and
// an empty edge list.
func (l Layout) NewBlock(id uint64) *Block {
	b := &Block{layout: l, buf: make([]byte, l.BlockSize())}
	binary.LittleEndian.PutUint64(b.buf[0:], id)
	return b
}

// Block is a decoded view over one node's fixed-size buffer.
type Block struct {
	layout Layout
	buf    []byte
}

// Bytes returns the underlying buffer.
func (b *Block) Bytes() []byte {
	return b.buf
}

// Layout returns the block's layout.
func (b *Block) Layout() Layout {
	return b.layout
}

// ID returns the node's rowid.
func (b *Block) ID() uint64 {
	return binary.LittleEndian.Uint64(b.buf[0:])
}

// EdgeCount returns the number of encoded edges.
func (b *Block) EdgeCount() int {
	return int(binary.LittleEndian.Uint16(b.buf[8:]))
}

func (b *Block) setEdgeCount(n int) {
	binary.LittleEndian.PutUint16(b.buf[8:], uint16(n))
}

// Vector returns a zero-copy view of the node's own vector.
// Note: assumes a little-endian architecture matching the file format.
func (b *Block) Vector() []float32 {
	return b.floatView(HeaderSize)
}

// SetVector writes the node's own vector into the block.
func (b *Block) SetVector(vec []float32) {
	copy(b.Vector(), vec)
}

// EdgeVector returns a zero-copy view of edge i's cached target vector.
func (b *Block) EdgeVector(i int) []float32 {
	return b.floatView(b.layout.edgeVectorOffset(i))
}

// EdgeTarget returns edge i's target rowid.
func (b *Block) EdgeTarget(i int) uint64 {
	return binary.LittleEndian.Uint64(b.buf[b.layout.edgeMetaOffset(i)+8:])
}

// EdgeDistance returns edge i's cached distance from the source node.
func (b *Block) EdgeDistance(i int) float32 {
	bits := binary.LittleEndian.Uint32(b.buf[b.layout.edgeMetaOffset(i):])
	return math.Float32frombits(bits)
}

// FindEdge returns the index of the edge pointing at target, or -1.
// Linear scan: degree is small, so this beats a secondary index.
func (b *Block) FindEdge(target uint64) int {
	n := b.EdgeCount()
	for i := 0; i < n; i++ {
		if b.EdgeTarget(i) == target {
			return i
		}
	}
	return -1
}

// AppendEdge adds an edge at the end of the list. The margin allows a
// temporary overshoot past MaxNeighbors; exceeding MaxEdges returns
// ErrBlockFull.
func (b *Block) AppendEdge(target uint64, dist float32, vec []float32) error {
	n := b.EdgeCount()
	if n >= b.layout.MaxEdges {
		return ErrBlockFull
	}
	b.writeEdge(n, target, dist, vec)
	b.setEdgeCount(n + 1)
	return nil
}

// SetEdge overwrites edge i in place.
func (b *Block) SetEdge(i int, target uint64, dist float32, vec []float32) {
	b.writeEdge(i, target, dist, vec)
}

// DeleteEdge removes edge i by swapping the last edge into its slot.
// O(1); edge order is not preserved and is not semantically meaningful.
func (b *Block) DeleteEdge(i int) {
	n := b.EdgeCount()
	last := n - 1
	if i != last {
		copy(b.EdgeVector(i), b.EdgeVector(last))
		meta := b.buf[b.layout.edgeMetaOffset(last) : b.layout.edgeMetaOffset(last)+EdgeMetaSize]
		copy(b.buf[b.layout.edgeMetaOffset(i):], meta)
	}
	b.setEdgeCount(last)
}

// TruncateEdges drops all edges past n. Used by pruning after the kept
// subset has been compacted to the front of the list.
func (b *Block) TruncateEdges(n int) {
	b.setEdgeCount(n)
}

func (b *Block) writeEdge(i int, target uint64, dist float32, vec []float32) {
	copy(b.EdgeVector(i), vec)
	off := b.layout.edgeMetaOffset(i)
	binary.LittleEndian.PutUint32(b.buf[off:], math.Float32bits(dist))
	binary.LittleEndian.PutUint32(b.buf[off+4:], 0)
	binary.LittleEndian.PutUint64(b.buf[off+8:], target)
}

func (b *Block) floatView(off int) []float32 {
	if b.layout.Dims == 0 {
		return nil
	}
	return unsafe.Slice((*float32)(unsafe.Pointer(&b.buf[off])), b.layout.Dims)
}
