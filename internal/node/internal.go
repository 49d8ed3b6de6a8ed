package node

import (
	"bytes"
	"sort"

	"github.com/iamNilotpal/betree/internal/message"
)

// Child is one child reference of an internal node: the opaque pointer to
// the child node itself, plus the buffer of messages not yet delivered to
// its subtree.
type Child struct {
	Ref    ObjectRef
	Buffer *ChildBuffer
}

func (c Child) size() int {
	return 8 + c.Buffer.Size() // ObjectRef is a fixed-width handle.
}

// Internal is an internal tree node: n-1 strictly sorted pivots and n
// children, where child i owns the key range (pivots[i-1], pivots[i]]
// (open below at the left sentinel, closed above at the right sentinel).
type Internal struct {
	pivots   [][]byte
	children []Child
}

// NewInternal builds an internal node from two children split by pivot.
func NewInternal(left, right ObjectRef, pivot []byte) *Internal {
	return &Internal{
		pivots: [][]byte{pivot},
		children: []Child{
			{Ref: left, Buffer: NewChildBuffer()},
			{Ref: right, Buffer: NewChildBuffer()},
		},
	}
}

// Size returns the internal node's total footprint: pivots plus every
// child buffer (child references themselves are fixed-width handles).
func (n *Internal) Size() int {
	size := 0
	for _, p := range n.pivots {
		size += len(p)
	}
	for _, c := range n.children {
		size += c.size()
	}
	return size
}

// Fanout returns the number of children.
func (n *Internal) Fanout() int {
	return len(n.children)
}

// Pivots returns the node's pivot keys, strictly sorted. Callers must not
// mutate the returned slice.
func (n *Internal) Pivots() [][]byte {
	return n.pivots
}

// Children returns the node's child references in key order. Callers must
// not mutate the returned slice.
func (n *Internal) Children() []Child {
	return n.children
}

// ChildIndex returns the index of the child whose range contains key:
// the smallest i such that key <= pivots[i], or len(children)-1 if key
// exceeds every pivot.
func (n *Internal) ChildIndex(key []byte) int {
	i := sort.Search(len(n.pivots), func(i int) bool {
		return bytes.Compare(key, n.pivots[i]) <= 0
	})
	return i
}

// InsertMessage deposits msg for key into the child buffer whose range
// contains key.
func (n *Internal) InsertMessage(action message.Action, key []byte, info KeyInfo, msg message.Message) {
	idx := n.ChildIndex(key)
	n.children[idx].Buffer.Insert(action, key, info, msg)
}

// LookupMessages collects the buffered message for key, if any, from the
// single child buffer whose range contains it.
func (n *Internal) LookupMessages(key []byte) (BufferEntry, bool) {
	idx := n.ChildIndex(key)
	return n.children[idx].Buffer.Lookup(key)
}

// RangeMessages collects buffered messages in [low, high] from every child
// buffer the range spans, in child (and thus key) order.
func (n *Internal) RangeMessages(low, high []byte) []BufferEntry {
	startIdx := n.ChildIndex(low)
	endIdx := n.ChildIndex(high)
	var out []BufferEntry
	for i := startIdx; i <= endIdx && i < len(n.children); i++ {
		out = append(out, n.children[i].Buffer.Range(low, high)...)
	}
	return out
}

// FlushCandidate returns the index of the largest child buffer whose size
// is at least minFlushSize, or -1 if none qualifies.
func (n *Internal) FlushCandidate(minFlushSize int) int {
	best := -1
	bestSize := 0
	for i, c := range n.children {
		if c.Buffer.Size() >= minFlushSize && c.Buffer.Size() > bestSize {
			best = i
			bestSize = c.Buffer.Size()
		}
	}
	return best
}

// DrainBuffer empties the buffer at index idx and returns its entries.
func (n *Internal) DrainBuffer(idx int) []BufferEntry {
	return n.children[idx].Buffer.TakeAll()
}

// ReplaceChild swaps the object reference at index idx, used after a child
// is rewritten (e.g. after a flush or split materializes new children).
func (n *Internal) ReplaceChild(idx int, ref ObjectRef) {
	n.children[idx].Ref = ref
}

// SpliceChild inserts a new pivot and child right after index idx, used when
// the child at idx has just been split into itself (unchanged ref) plus a
// new right sibling. The child at idx keeps its existing buffer; the new
// child gets a fresh, empty one.
func (n *Internal) SpliceChild(idx int, pivot []byte, right ObjectRef) {
	pivots := make([][]byte, 0, len(n.pivots)+1)
	pivots = append(pivots, n.pivots[:idx]...)
	pivots = append(pivots, pivot)
	pivots = append(pivots, n.pivots[idx:]...)
	n.pivots = pivots

	children := make([]Child, 0, len(n.children)+1)
	children = append(children, n.children[:idx+1]...)
	children = append(children, Child{Ref: right, Buffer: NewChildBuffer()})
	children = append(children, n.children[idx+1:]...)
	n.children = children
}

// RemoveChildMergedInto removes the child at idx+1, used after it has been
// merged into the child at idx, along with the pivot that used to separate
// them.
func (n *Internal) RemoveChildMergedInto(idx int) {
	n.pivots = append(n.pivots[:idx], n.pivots[idx+1:]...)
	n.children = append(n.children[:idx+1], n.children[idx+2:]...)
}

// SplitPoint returns the index at which to split the node's children so
// each half is as close to half the total size as possible, never
// producing a half with fewer than minFanout children.
func (n *Internal) SplitPoint(minFanout int) int {
	target := n.Size() / 2
	running := 0
	for i, c := range n.children {
		running += c.size()
		if i < len(n.pivots) {
			running += len(n.pivots[i])
		}
		if running >= target {
			idx := i + 1
			if idx < minFanout {
				idx = minFanout
			}
			if len(n.children)-idx < minFanout {
				idx = len(n.children) - minFanout
			}
			if idx < 1 {
				idx = 1
			}
			if idx > len(n.children)-1 {
				idx = len(n.children) - 1
			}
			return idx
		}
	}
	return len(n.children) / 2
}

// SplitAt divides the node at child index idx: children/pivots [0, idx)
// stay in n, and a new internal node holding [idx, len) is returned along
// with the pivot that now separates them (the pivot formerly at idx-1's
// right edge, promoted to the parent).
func (n *Internal) SplitAt(idx int) (*Internal, []byte) {
	promoted := n.pivots[idx-1]

	right := &Internal{
		pivots:   append([][]byte(nil), n.pivots[idx:]...),
		children: append([]Child(nil), n.children[idx:]...),
	}

	n.pivots = append([][]byte(nil), n.pivots[:idx-1]...)
	n.children = append([]Child(nil), n.children[:idx]...)

	return right, promoted
}

// MergeWith absorbs other (n's right sibling, joined by pivot) into n.
func (n *Internal) MergeWith(pivot []byte, other *Internal) {
	n.pivots = append(n.pivots, pivot)
	n.pivots = append(n.pivots, other.pivots...)
	n.children = append(n.children, other.children...)
}

// SoleChild returns the single remaining child's reference when the node
// has collapsed to fanout 1 (used by the root-collapse path), and whether
// that condition holds.
func (n *Internal) SoleChild() (ObjectRef, bool) {
	if len(n.children) != 1 {
		return Zero, false
	}
	return n.children[0].Ref, true
}
