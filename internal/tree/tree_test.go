package tree

import (
	"context"
	"fmt"
	"testing"

	"github.com/iamNilotpal/betree/internal/dml"
	"github.com/iamNilotpal/betree/internal/index"
	"github.com/iamNilotpal/betree/internal/message"
	"github.com/iamNilotpal/betree/internal/node"
	"github.com/iamNilotpal/betree/internal/storage"
	"github.com/iamNilotpal/betree/pkg/block"
	"github.com/iamNilotpal/betree/pkg/logger"
	"github.com/iamNilotpal/betree/pkg/options"
	"github.com/stretchr/testify/require"
)

func newTestTree(t *testing.T, treeOpts options.TreeOptions) *Tree {
	t.Helper()

	opts := options.NewDefaultOptions()
	opts.DataDir = t.TempDir()
	opts.SegmentOptions.Directory = "segments"
	opts.SegmentOptions.Prefix = "seg"

	st, err := storage.New(context.Background(), &storage.Config{Options: &opts, Logger: logger.NewNop()})
	require.NoError(t, err)

	idx, err := index.New(context.Background(), &index.Config{DataDir: opts.DataDir, Logger: logger.NewNop()})
	require.NoError(t, err)

	store, err := dml.New(&dml.Config{Storage: st, Index: idx, Logger: logger.NewNop()})
	require.NoError(t, err)

	tr, err := New(&Config{
		Store:  store,
		Action: message.DefaultAction{},
		Opts:   treeOpts,
		Logger: logger.NewNop(),
	})
	require.NoError(t, err)
	return tr
}

func smallTreeOptions() options.TreeOptions {
	return options.TreeOptions{
		MaxInternalNodeSize: 4096,
		MinLeafNodeSize:     16,
		MaxLeafNodeSize:     256,
		MinFlushSize:        64,
		MinFanout:           2,
		MaxMessageSize:      4096,
	}
}

func TestInsertGetRoundTrip(t *testing.T) {
	tr := newTestTree(t, smallTreeOptions())

	msg, err := message.NewInsert([]byte("v1"), block.PreferenceNone, 4096)
	require.NoError(t, err)
	require.NoError(t, tr.Insert([]byte("a"), msg))

	v, err := tr.Get([]byte("a"))
	require.NoError(t, err)
	require.True(t, v.Present)
	require.Equal(t, []byte("v1"), v.Data)
}

func TestGetMissingKeyIsAbsent(t *testing.T) {
	tr := newTestTree(t, smallTreeOptions())

	v, err := tr.Get([]byte("missing"))
	require.NoError(t, err)
	require.False(t, v.Present)
}

func TestInsertEmptyKeyRejected(t *testing.T) {
	tr := newTestTree(t, smallTreeOptions())
	msg := message.NewDelete()
	err := tr.Insert(nil, msg)
	require.Error(t, err)
}

func TestDeleteClearsValue(t *testing.T) {
	tr := newTestTree(t, smallTreeOptions())

	ins, err := message.NewInsert([]byte("v1"), block.PreferenceNone, 4096)
	require.NoError(t, err)
	require.NoError(t, tr.Insert([]byte("a"), ins))

	require.NoError(t, tr.Insert([]byte("a"), message.NewDelete()))

	v, err := tr.Get([]byte("a"))
	require.NoError(t, err)
	require.False(t, v.Present)
}

func TestManyInsertsTriggerSplit(t *testing.T) {
	tr := newTestTree(t, smallTreeOptions())

	for i := 0; i < 64; i++ {
		key := []byte(fmt.Sprintf("key-%04d", i))
		msg, err := message.NewInsert([]byte(fmt.Sprintf("value-%04d", i)), block.PreferenceNone, 4096)
		require.NoError(t, err)
		require.NoError(t, tr.Insert(key, msg))
	}

	for i := 0; i < 64; i++ {
		key := []byte(fmt.Sprintf("key-%04d", i))
		v, err := tr.Get(key)
		require.NoError(t, err)
		require.True(t, v.Present, "key %s should be present", key)
		require.Equal(t, []byte(fmt.Sprintf("value-%04d", i)), v.Data)
	}
}

func TestRangeReturnsKeysInBounds(t *testing.T) {
	tr := newTestTree(t, smallTreeOptions())

	for i := 0; i < 20; i++ {
		key := []byte(fmt.Sprintf("k%02d", i))
		msg, err := message.NewInsert([]byte("v"), block.PreferenceNone, 4096)
		require.NoError(t, err)
		require.NoError(t, tr.Insert(key, msg))
	}

	entries, err := tr.Range([]byte("k05"), []byte("k09"))
	require.NoError(t, err)
	require.Len(t, entries, 5)
	require.Equal(t, []byte("k05"), entries[0].Key)
	require.Equal(t, []byte("k09"), entries[len(entries)-1].Key)
}

func TestRangeRejectsInvertedBounds(t *testing.T) {
	tr := newTestTree(t, smallTreeOptions())
	_, err := tr.Range([]byte("z"), []byte("a"))
	require.Error(t, err)
}

func TestNodeIterVisitsEveryReachableNode(t *testing.T) {
	tr := newTestTree(t, smallTreeOptions())

	for i := 0; i < 64; i++ {
		key := []byte(fmt.Sprintf("key-%04d", i))
		msg, err := message.NewInsert([]byte(fmt.Sprintf("value-%04d", i)), block.PreferenceNone, 4096)
		require.NoError(t, err)
		require.NoError(t, tr.Insert(key, msg))
	}

	var visited []node.ObjectRef
	require.NoError(t, tr.NodeIter(func(ref node.ObjectRef) {
		visited = append(visited, ref)
	}))

	require.NotEmpty(t, visited)
	require.Equal(t, tr.Root(), visited[0])
}

func TestSyncReturnsNonZeroRoot(t *testing.T) {
	tr := newTestTree(t, smallTreeOptions())

	msg, err := message.NewInsert([]byte("v1"), block.PreferenceNone, 4096)
	require.NoError(t, err)
	require.NoError(t, tr.Insert([]byte("a"), msg))

	root, err := tr.Sync()
	require.NoError(t, err)
	require.NotZero(t, root)
}
