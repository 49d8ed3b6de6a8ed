package dml

import (
	"context"
	"testing"

	"github.com/iamNilotpal/betree/internal/index"
	"github.com/iamNilotpal/betree/internal/node"
	"github.com/iamNilotpal/betree/internal/storage"
	"github.com/iamNilotpal/betree/pkg/logger"
	"github.com/iamNilotpal/betree/pkg/options"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *ObjectStore {
	t.Helper()

	opts := options.NewDefaultOptions()
	opts.DataDir = t.TempDir()
	opts.SegmentOptions.Directory = "segments"
	opts.SegmentOptions.Prefix = "seg"

	st, err := storage.New(context.Background(), &storage.Config{Options: &opts, Logger: logger.NewNop()})
	require.NoError(t, err)

	idx, err := index.New(context.Background(), &index.Config{DataDir: opts.DataDir, Logger: logger.NewNop()})
	require.NoError(t, err)

	store, err := New(&Config{Storage: st, Index: idx, Logger: logger.NewNop()})
	require.NoError(t, err)
	return store
}

func TestInsertWriteBackGetRoundTrip(t *testing.T) {
	store := newTestStore(t)
	defer store.Close()

	ref := store.NewRef()
	leaf := node.NewLeaf()
	leaf.Put([]byte("k"), node.KeyInfo{}, []byte("v"))
	n := node.WrapLeaf(leaf)
	store.Insert(ref, &n)

	require.NoError(t, store.WriteBack(ref))

	got, err := store.Get(ref)
	require.NoError(t, err)
	require.True(t, got.IsLeaf())

	restoredLeaf, err := got.AsLeaf()
	require.NoError(t, err)
	v, ok := restoredLeaf.Get([]byte("k"))
	require.True(t, ok)
	require.Equal(t, []byte("v"), v.Value)
}

func TestTryGetMutFailsWhenLocked(t *testing.T) {
	store := newTestStore(t)
	defer store.Close()

	ref := store.NewRef()
	leaf := node.NewLeaf()
	n := node.WrapLeaf(leaf)
	store.Insert(ref, &n)

	_, release, err := store.GetMut(ref)
	require.NoError(t, err)
	defer release()

	_, _, ok := store.TryGetMut(ref)
	require.False(t, ok)
}

func TestEvictReloadsFromDisk(t *testing.T) {
	store := newTestStore(t)
	defer store.Close()

	ref := store.NewRef()
	leaf := node.NewLeaf()
	leaf.Put([]byte("k"), node.KeyInfo{}, []byte("v1"))
	n := node.WrapLeaf(leaf)
	store.Insert(ref, &n)

	require.NoError(t, store.Evict(ref))

	got, err := store.Get(ref)
	require.NoError(t, err)
	restoredLeaf, err := got.AsLeaf()
	require.NoError(t, err)
	v, ok := restoredLeaf.Get([]byte("k"))
	require.True(t, ok)
	require.Equal(t, []byte("v1"), v.Value)
}

func TestOperationsAfterCloseFail(t *testing.T) {
	store := newTestStore(t)
	ref := store.NewRef()
	leaf := node.NewLeaf()
	n := node.WrapLeaf(leaf)
	store.Insert(ref, &n)
	require.NoError(t, store.Close())

	_, err := store.Get(ref)
	require.ErrorIs(t, err, ErrStoreClosed)
}
