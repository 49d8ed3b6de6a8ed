package node

import (
	"bytes"
	"sort"

	"github.com/iamNilotpal/betree/internal/message"
)

// BufferEntry is one undelivered message waiting in a child buffer.
type BufferEntry struct {
	Key  []byte
	Info KeyInfo
	Msg  message.Message
}

func (e BufferEntry) size() int {
	return len(e.Key) + e.Info.Size() + e.Msg.Size()
}

// ChildBuffer holds undelivered messages bound for one child's subtree, at
// most one (possibly pre-merged) message per key.
type ChildBuffer struct {
	entries []BufferEntry
	size    int
}

// NewChildBuffer returns an empty child buffer.
func NewChildBuffer() *ChildBuffer {
	return &ChildBuffer{}
}

// Size returns the buffer's footprint in bytes.
func (b *ChildBuffer) Size() int {
	return b.size
}

// Len returns the number of distinct keys buffered.
func (b *ChildBuffer) Len() int {
	return len(b.entries)
}

// Entries returns the buffer's entries in key order. Callers must not
// mutate the returned slice.
func (b *ChildBuffer) Entries() []BufferEntry {
	return b.entries
}

func (b *ChildBuffer) search(key []byte) (int, bool) {
	i := sort.Search(len(b.entries), func(i int) bool {
		return bytes.Compare(b.entries[i].Key, key) >= 0
	})
	found := i < len(b.entries) && bytes.Equal(b.entries[i].Key, key)
	return i, found
}

// Insert deposits msg for key, merging it with whatever message already
// occupies that slot via action.Merge, and folding info with the existing
// slot's KeyInfo (faster-tier wins).
func (b *ChildBuffer) Insert(action message.Action, key []byte, info KeyInfo, msg message.Message) {
	i, found := b.search(key)
	if found {
		old := b.entries[i]
		merged := action.Merge(key, old.Msg, msg)
		newEntry := BufferEntry{Key: key, Info: old.Info.MergeWithUpper(info), Msg: merged}
		b.size += newEntry.size() - old.size()
		b.entries[i] = newEntry
		return
	}

	entry := BufferEntry{Key: key, Info: info, Msg: msg}
	b.entries = append(b.entries, BufferEntry{})
	copy(b.entries[i+1:], b.entries[i:])
	b.entries[i] = entry
	b.size += entry.size()
}

// Remove deletes the buffered entry for key, if present.
func (b *ChildBuffer) Remove(key []byte) {
	i, found := b.search(key)
	if !found {
		return
	}
	b.size -= b.entries[i].size()
	b.entries = append(b.entries[:i], b.entries[i+1:]...)
}

// TakeAll drains every entry out of the buffer, leaving it empty, and
// returns them in key order.
func (b *ChildBuffer) TakeAll() []BufferEntry {
	out := b.entries
	b.entries = nil
	b.size = 0
	return out
}

// Lookup returns the buffered entry for key (there is at most one per
// buffer) and whether one was found.
func (b *ChildBuffer) Lookup(key []byte) (BufferEntry, bool) {
	i, found := b.search(key)
	if !found {
		return BufferEntry{}, false
	}
	return b.entries[i], true
}

// Range returns every buffered entry with Key in [low, high].
func (b *ChildBuffer) Range(low, high []byte) []BufferEntry {
	start := sort.Search(len(b.entries), func(i int) bool {
		return bytes.Compare(b.entries[i].Key, low) >= 0
	})
	end := sort.Search(len(b.entries), func(i int) bool {
		return bytes.Compare(b.entries[i].Key, high) > 0
	})
	if start >= end {
		return nil
	}
	return b.entries[start:end]
}

// SplitAt divides the buffer at index idx: entries [0, idx) stay, and a new
// buffer holding [idx, len) is returned.
func (b *ChildBuffer) SplitAt(idx int) *ChildBuffer {
	right := &ChildBuffer{entries: append([]BufferEntry(nil), b.entries[idx:]...)}
	for _, e := range right.entries {
		right.size += e.size()
	}

	kept := append([]BufferEntry(nil), b.entries[:idx]...)
	b.entries = kept
	b.size = 0
	for _, e := range b.entries {
		b.size += e.size()
	}
	return right
}

// Merge absorbs other's entries into b. other must hold entries strictly
// greater than b's (other is b's right sibling buffer).
func (b *ChildBuffer) Merge(other *ChildBuffer) {
	b.entries = append(b.entries, other.entries...)
	b.size += other.size
}
