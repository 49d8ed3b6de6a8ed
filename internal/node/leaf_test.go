package node

import (
	"testing"

	"github.com/iamNilotpal/betree/pkg/block"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLeafPutGetOrdering(t *testing.T) {
	l := NewLeaf()
	l.Put([]byte("c"), KeyInfo{}, []byte("3"))
	l.Put([]byte("a"), KeyInfo{}, []byte("1"))
	l.Put([]byte("b"), KeyInfo{}, []byte("2"))

	require.Equal(t, 3, l.Len())
	entries := l.Entries()
	assert.Equal(t, []byte("a"), entries[0].Key)
	assert.Equal(t, []byte("b"), entries[1].Key)
	assert.Equal(t, []byte("c"), entries[2].Key)

	v, ok := l.Get([]byte("b"))
	require.True(t, ok)
	assert.Equal(t, []byte("2"), v.Value)
}

func TestLeafPutReplacesExisting(t *testing.T) {
	l := NewLeaf()
	l.Put([]byte("k"), KeyInfo{}, []byte("old"))
	l.Put([]byte("k"), KeyInfo{}, []byte("new"))

	require.Equal(t, 1, l.Len())
	v, _ := l.Get([]byte("k"))
	assert.Equal(t, []byte("new"), v.Value)
}

func TestLeafDelete(t *testing.T) {
	l := NewLeaf()
	l.Put([]byte("k"), KeyInfo{}, []byte("v"))
	l.Delete([]byte("k"))

	_, ok := l.Get([]byte("k"))
	assert.False(t, ok)
	assert.Equal(t, 0, l.Size())
}

func TestLeafRangeInclusive(t *testing.T) {
	l := NewLeaf()
	for _, k := range []string{"a", "b", "c", "d"} {
		l.Put([]byte(k), KeyInfo{}, []byte(k))
	}
	got := l.Range([]byte("b"), []byte("c"))
	require.Len(t, got, 2)
	assert.Equal(t, []byte("b"), got[0].Key)
	assert.Equal(t, []byte("c"), got[1].Key)
}

func TestLeafSplitAtPartitions(t *testing.T) {
	l := NewLeaf()
	for _, k := range []string{"a", "b", "c", "d"} {
		l.Put([]byte(k), KeyInfo{}, []byte(k))
	}
	right, pivot := l.SplitAt(2)

	assert.Equal(t, 2, l.Len())
	assert.Equal(t, 2, right.Len())
	assert.Equal(t, []byte("c"), pivot)
	assert.Equal(t, []byte("c"), right.Entries()[0].Key)
}

func TestLeafMergeRestoresOriginal(t *testing.T) {
	l := NewLeaf()
	for _, k := range []string{"a", "b", "c", "d"} {
		l.Put([]byte(k), KeyInfo{}, []byte(k))
	}
	originalSize := l.Size()
	right, _ := l.SplitAt(2)
	l.Merge(right)

	assert.Equal(t, 4, l.Len())
	assert.Equal(t, originalSize, l.Size())
}

func TestPackUnpackRoundTrip(t *testing.T) {
	l := NewLeaf()
	l.Put([]byte("x"), KeyInfo{Preference: block.PreferenceFast}, []byte("hello"))
	l.Put([]byte("y"), KeyInfo{}, []byte(""))

	packed := Pack(l)
	restored, err := packed.Unpack()
	require.NoError(t, err)

	require.Equal(t, l.Len(), restored.Len())
	v, ok := restored.Get([]byte("x"))
	require.True(t, ok)
	assert.Equal(t, []byte("hello"), v.Value)
	assert.Equal(t, block.PreferenceFast, v.Info.Preference)
}
