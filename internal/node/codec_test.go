package node

import (
	"testing"

	"github.com/iamNilotpal/betree/internal/message"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalUnmarshalLeaf(t *testing.T) {
	l := NewLeaf()
	l.Put([]byte("a"), KeyInfo{}, []byte("1"))
	l.Put([]byte("b"), KeyInfo{}, []byte("2"))
	n := WrapLeaf(l)

	raw, err := Marshal(&n)
	require.NoError(t, err)

	restored, err := Unmarshal(raw)
	require.NoError(t, err)
	require.True(t, restored.IsLeaf())

	restoredLeaf, err := restored.AsLeaf()
	require.NoError(t, err)
	assert.Equal(t, l.Len(), restoredLeaf.Len())

	v, ok := restoredLeaf.Get([]byte("a"))
	require.True(t, ok)
	assert.Equal(t, []byte("1"), v.Value)
}

func TestMarshalUnmarshalInternal(t *testing.T) {
	internal := NewInternal(ObjectRef(1), ObjectRef(2), []byte("m"))
	action := message.DefaultAction{}
	msg, err := message.NewInsert([]byte("v"), 0, 4096)
	require.NoError(t, err)
	internal.InsertMessage(action, []byte("z"), KeyInfo{}, msg)

	n := WrapInternal(internal)
	raw, err := Marshal(&n)
	require.NoError(t, err)

	restored, err := Unmarshal(raw)
	require.NoError(t, err)
	require.Equal(t, KindInternal, restored.Kind)
	assert.Equal(t, 2, restored.Internal.Fanout())
	assert.Equal(t, 1, restored.Internal.Children()[1].Buffer.Len())
}
