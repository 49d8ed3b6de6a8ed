// Package block provides the small value types the storage engine core
// shares with the storage pool boundary: block counts, disk offsets and
// storage tier preferences. The storage pool itself (block device
// aggregation, redundancy, vdev layout) lives outside this module; the core
// only ever sees the types defined here.
package block

import "math/bits"

// Count is the underlying integer kinds a Block may be parameterized over.
type Count interface {
	~uint32 | ~uint64
}

// Block is a typed count or index of fixed-size storage blocks. Arithmetic
// saturates at the domain's natural bound instead of wrapping, and there is
// no implicit conversion between a Block[uint32] and a Block[uint64].
type Block[T Count] struct {
	Value T
}

// NewBlock wraps a raw count in a Block.
func NewBlock[T Count](v T) Block[T] {
	return Block[T]{Value: v}
}

// Add returns b+other, saturating at the maximum representable value of T
// instead of overflowing.
func (b Block[T]) Add(other Block[T]) Block[T] {
	sum := b.Value + other.Value
	if sum < b.Value {
		return Block[T]{Value: maxOf[T]()}
	}
	return Block[T]{Value: sum}
}

// Sub returns b-other, saturating at zero instead of underflowing.
func (b Block[T]) Sub(other Block[T]) Block[T] {
	if other.Value > b.Value {
		return Block[T]{Value: 0}
	}
	return Block[T]{Value: b.Value - other.Value}
}

// AsU64 widens the block count to a uint64 for accounting purposes.
func (b Block[T]) AsU64() uint64 {
	return uint64(b.Value)
}

// AsU32 narrows the block count to a uint32. Callers must only use this
// where the value is already known to fit, e.g. a single segment's worth of
// blocks.
func (b Block[T]) AsU32() uint32 {
	return uint32(b.Value)
}

func maxOf[T Count]() T {
	return ^T(0)
}

// BitLength returns the number of bits required to represent v, used by
// callers sizing bitmaps.
func BitLength(v uint64) int {
	return bits.Len64(v)
}
