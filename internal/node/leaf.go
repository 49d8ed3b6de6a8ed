package node

import (
	"bytes"
	"sort"
)

// LeafEntry is one stored key's base value, as held directly in a leaf
// (as opposed to a buffered, not-yet-folded message higher in the tree).
type LeafEntry struct {
	Key   []byte
	Info  KeyInfo
	Value []byte
}

func (e LeafEntry) size() int {
	return len(e.Key) + e.Info.Size() + len(e.Value)
}

// Leaf is an ordered mapping from non-empty key to (KeyInfo, value). Entries
// are kept sorted by Key so Get, Range and split can binary-search and
// slice directly.
type Leaf struct {
	entries []LeafEntry
	size    int
}

// NewLeaf returns an empty leaf.
func NewLeaf() *Leaf {
	return &Leaf{}
}

// Size returns the leaf's total footprint in bytes.
func (l *Leaf) Size() int {
	return l.size
}

// Len returns the number of entries in the leaf.
func (l *Leaf) Len() int {
	return len(l.entries)
}

// Entries returns the leaf's entries in key order. Callers must not mutate
// the returned slice.
func (l *Leaf) Entries() []LeafEntry {
	return l.entries
}

func (l *Leaf) search(key []byte) (int, bool) {
	i := sort.Search(len(l.entries), func(i int) bool {
		return bytes.Compare(l.entries[i].Key, key) >= 0
	})
	found := i < len(l.entries) && bytes.Equal(l.entries[i].Key, key)
	return i, found
}

// Get returns the entry for key, if present.
func (l *Leaf) Get(key []byte) (LeafEntry, bool) {
	i, found := l.search(key)
	if !found {
		return LeafEntry{}, false
	}
	return l.entries[i], true
}

// Put inserts or replaces the entry for key.
func (l *Leaf) Put(key []byte, info KeyInfo, value []byte) {
	i, found := l.search(key)
	entry := LeafEntry{Key: key, Info: info, Value: value}
	if found {
		l.size += entry.size() - l.entries[i].size()
		l.entries[i] = entry
		return
	}
	l.entries = append(l.entries, LeafEntry{})
	copy(l.entries[i+1:], l.entries[i:])
	l.entries[i] = entry
	l.size += entry.size()
}

// Delete removes the entry for key, if present.
func (l *Leaf) Delete(key []byte) {
	i, found := l.search(key)
	if !found {
		return
	}
	l.size -= l.entries[i].size()
	l.entries = append(l.entries[:i], l.entries[i+1:]...)
}

// Range returns every entry with Key in [low, high].
func (l *Leaf) Range(low, high []byte) []LeafEntry {
	start := sort.Search(len(l.entries), func(i int) bool {
		return bytes.Compare(l.entries[i].Key, low) >= 0
	})
	end := sort.Search(len(l.entries), func(i int) bool {
		return bytes.Compare(l.entries[i].Key, high) > 0
	})
	if start >= end {
		return nil
	}
	return l.entries[start:end]
}

// SplitAt divides the leaf at index idx: entries [0, idx) stay in l, and a
// new leaf holding [idx, len) is returned along with the pivot key (the
// first key of the new right half).
func (l *Leaf) SplitAt(idx int) (*Leaf, []byte) {
	right := &Leaf{entries: append([]LeafEntry(nil), l.entries[idx:]...)}
	for _, e := range right.entries {
		right.size += e.size()
	}
	pivot := right.entries[0].Key

	kept := l.entries[:idx]
	l.entries = append([]LeafEntry(nil), kept...)
	l.size = 0
	for _, e := range l.entries {
		l.size += e.size()
	}
	return right, pivot
}

// SplitPoint returns the index at which to split the leaf so that each
// half is as close to half the total size as possible.
func (l *Leaf) SplitPoint() int {
	target := l.size / 2
	running := 0
	for i, e := range l.entries {
		running += e.size()
		if running >= target {
			if i+1 < len(l.entries) {
				return i + 1
			}
			return i
		}
	}
	return len(l.entries) / 2
}

// Merge absorbs other's entries into l, which must hold entries strictly
// less than other's (other is l's right sibling).
func (l *Leaf) Merge(other *Leaf) {
	l.entries = append(l.entries, other.entries...)
	l.size += other.size
}
