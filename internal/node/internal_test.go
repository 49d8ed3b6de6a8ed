package node

import (
	"testing"

	"github.com/iamNilotpal/betree/internal/message"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInternalChildIndexRouting(t *testing.T) {
	n := NewInternal(ObjectRef(1), ObjectRef(2), []byte("m"))

	assert.Equal(t, 0, n.ChildIndex([]byte("a")))
	assert.Equal(t, 0, n.ChildIndex([]byte("m")))
	assert.Equal(t, 1, n.ChildIndex([]byte("z")))
}

func TestInternalInsertMessageRoutesToCorrectBuffer(t *testing.T) {
	n := NewInternal(ObjectRef(1), ObjectRef(2), []byte("m"))
	action := message.DefaultAction{}

	msg, err := message.NewInsert([]byte("v"), 0, 4096)
	require.NoError(t, err)
	n.InsertMessage(action, []byte("z"), KeyInfo{}, msg)

	assert.Equal(t, 0, n.Children()[0].Buffer.Len())
	assert.Equal(t, 1, n.Children()[1].Buffer.Len())
}

func TestInternalFlushCandidatePicksLargest(t *testing.T) {
	n := NewInternal(ObjectRef(1), ObjectRef(2), []byte("m"))
	action := message.DefaultAction{}

	small, _ := message.NewInsert([]byte("x"), 0, 4096)
	n.InsertMessage(action, []byte("a"), KeyInfo{}, small)

	big, _ := message.NewInsert(make([]byte, 4000), 0, 4096)
	n.InsertMessage(action, []byte("z"), KeyInfo{}, big)

	idx := n.FlushCandidate(10)
	assert.Equal(t, 1, idx)
}

func TestInternalSplitAtPromotesPivot(t *testing.T) {
	n := &Internal{
		pivots: [][]byte{[]byte("b"), []byte("d"), []byte("f")},
		children: []Child{
			{Ref: 1, Buffer: NewChildBuffer()},
			{Ref: 2, Buffer: NewChildBuffer()},
			{Ref: 3, Buffer: NewChildBuffer()},
			{Ref: 4, Buffer: NewChildBuffer()},
		},
	}

	right, promoted := n.SplitAt(2)
	assert.Equal(t, []byte("d"), promoted)
	assert.Equal(t, 2, n.Fanout())
	assert.Equal(t, 2, right.Fanout())
	assert.Equal(t, ObjectRef(3), right.Children()[0].Ref)
}

func TestInternalMergeWithRestoresFanout(t *testing.T) {
	n := NewInternal(ObjectRef(1), ObjectRef(2), []byte("m"))
	other := NewInternal(ObjectRef(3), ObjectRef(4), []byte("s"))

	n.MergeWith([]byte("p"), other)
	assert.Equal(t, 4, n.Fanout())
	assert.Equal(t, 3, len(n.Pivots()))
}
