package dataset

import (
	"context"
	"testing"

	"github.com/iamNilotpal/betree/internal/dml"
	"github.com/iamNilotpal/betree/internal/handler"
	"github.com/iamNilotpal/betree/internal/index"
	"github.com/iamNilotpal/betree/internal/message"
	"github.com/iamNilotpal/betree/internal/storage"
	"github.com/iamNilotpal/betree/internal/tree"
	"github.com/iamNilotpal/betree/pkg/block"
	"github.com/iamNilotpal/betree/pkg/errors"
	"github.com/iamNilotpal/betree/pkg/logger"
	"github.com/iamNilotpal/betree/pkg/options"
	"github.com/stretchr/testify/require"
)

func datasetTreeOptions() options.TreeOptions {
	return options.TreeOptions{
		MaxInternalNodeSize: 4 * 1024 * 1024,
		MinLeafNodeSize:     1,
		MaxLeafNodeSize:     4 * 1024 * 1024,
		MinFlushSize:        256 * 1024,
		MinFanout:           4,
		MaxMessageSize:      512 * 1024,
	}
}

func newTestRouter(t *testing.T) *Router {
	t.Helper()

	opts := options.NewDefaultOptions()
	opts.DataDir = t.TempDir()
	opts.SegmentOptions.Directory = "segments"
	opts.SegmentOptions.Prefix = "seg"
	opts.AllocatorOptions.SegmentSize = 4096
	opts.AllocatorOptions.BlockSize = 512

	st, err := storage.New(context.Background(), &storage.Config{Options: &opts, Logger: logger.NewNop()})
	require.NoError(t, err)

	idx, err := index.New(context.Background(), &index.Config{DataDir: opts.DataDir, Logger: logger.NewNop()})
	require.NoError(t, err)

	store, err := dml.New(&dml.Config{Storage: st, Index: idx, Logger: logger.NewNop()})
	require.NoError(t, err)

	treeOpts := datasetTreeOptions()
	root, err := tree.New(&tree.Config{Store: store, Action: message.DefaultAction{}, Opts: treeOpts, Logger: logger.NewNop()})
	require.NoError(t, err)

	h, err := handler.New(&handler.Config{
		Root:       root,
		Action:     message.DefaultAction{},
		AllocOpts:  *opts.AllocatorOptions,
		MaxMsgSize: 512 * 1024,
		Logger:     logger.NewNop(),
	})
	require.NoError(t, err)

	r, err := New(&Config{
		Store:    store,
		Root:     root,
		Handler:  h,
		TreeOpts: treeOpts,
		Action:   message.DefaultAction{},
		Logger:   logger.NewNop(),
	})
	require.NoError(t, err)
	return r
}

func TestCreateThenOpenDataset(t *testing.T) {
	r := newTestRouter(t)

	require.NoError(t, r.CreateDataset("orders"))

	ds, err := r.OpenDataset("orders")
	require.NoError(t, err)

	name, err := ds.Name()
	require.NoError(t, err)
	require.Equal(t, "orders", name)

	require.NoError(t, r.CloseDataset(ds))
}

func TestCreateDatasetAlreadyExists(t *testing.T) {
	r := newTestRouter(t)
	require.NoError(t, r.CreateDataset("orders"))
	err := r.CreateDataset("orders")
	require.Equal(t, errors.ErrorCodeAlreadyExists, errors.GetErrorCode(err))
}

func TestOpenDatasetDoesNotExist(t *testing.T) {
	r := newTestRouter(t)
	_, err := r.OpenDataset("ghost")
	require.Equal(t, errors.ErrorCodeDoesNotExist, errors.GetErrorCode(err))
}

// TestDatasetExclusivity mirrors the open-twice scenario: a second open on
// a still-open dataset fails with InUse, but reopening after Close succeeds.
func TestDatasetExclusivity(t *testing.T) {
	r := newTestRouter(t)
	require.NoError(t, r.CreateDataset("orders"))

	first, err := r.OpenDataset("orders")
	require.NoError(t, err)

	_, err = r.OpenDataset("orders")
	require.Equal(t, errors.ErrorCodeInUse, errors.GetErrorCode(err))

	require.NoError(t, r.CloseDataset(first))

	second, err := r.OpenDataset("orders")
	require.NoError(t, err)
	require.NoError(t, r.CloseDataset(second))
}

func TestClosedDatasetFastFails(t *testing.T) {
	r := newTestRouter(t)
	require.NoError(t, r.CreateDataset("orders"))

	ds, err := r.OpenDataset("orders")
	require.NoError(t, err)
	require.NoError(t, r.CloseDataset(ds))

	_, err = ds.Get([]byte("k"))
	require.Equal(t, errors.ErrorCodeDoesNotExist, errors.GetErrorCode(err))

	err = r.CloseDataset(ds)
	require.Equal(t, errors.ErrorCodeDoesNotExist, errors.GetErrorCode(err))
}

func TestOpenOrCreateDatasetIdempotent(t *testing.T) {
	r := newTestRouter(t)

	ds1, err := r.OpenOrCreateDataset("orders")
	require.NoError(t, err)
	require.NoError(t, ds1.Insert([]byte("k1"), []byte("v1")))
	require.NoError(t, r.CloseDataset(ds1))

	ds2, err := r.OpenOrCreateDataset("orders")
	require.NoError(t, err)

	value, err := ds2.Get([]byte("k1"))
	require.NoError(t, err)
	require.True(t, value.Present)
	require.Equal(t, []byte("v1"), value.Data)

	require.NoError(t, r.CloseDataset(ds2))
}

func TestInsertGetDeleteRoundTrip(t *testing.T) {
	r := newTestRouter(t)
	require.NoError(t, r.CreateDataset("orders"))
	ds, err := r.OpenDataset("orders")
	require.NoError(t, err)

	require.NoError(t, ds.Insert([]byte("a"), []byte("1")))
	require.NoError(t, ds.Insert([]byte("b"), []byte("2")))

	v, err := ds.Get([]byte("a"))
	require.NoError(t, err)
	require.True(t, v.Present)
	require.Equal(t, []byte("1"), v.Data)

	require.NoError(t, ds.Delete([]byte("a")))
	v, err = ds.Get([]byte("a"))
	require.NoError(t, err)
	require.False(t, v.Present)

	entries, err := ds.Range([]byte("a"), []byte("z"))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, []byte("b"), entries[0].Key)

	require.NoError(t, r.CloseDataset(ds))
}

func TestRangeDeleteRemovesEveryKeyInBounds(t *testing.T) {
	r := newTestRouter(t)
	require.NoError(t, r.CreateDataset("orders"))
	ds, err := r.OpenDataset("orders")
	require.NoError(t, err)

	require.NoError(t, ds.Insert([]byte("a"), []byte("1")))
	require.NoError(t, ds.Insert([]byte("b"), []byte("2")))
	require.NoError(t, ds.Insert([]byte("c"), []byte("3")))

	require.NoError(t, ds.RangeDelete([]byte("a"), []byte("b")))

	entries, err := ds.Range([]byte("a"), []byte("z"))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, []byte("c"), entries[0].Key)

	require.NoError(t, r.CloseDataset(ds))
}

func TestIterDatasetsListsEveryCreatedDataset(t *testing.T) {
	r := newTestRouter(t)
	require.NoError(t, r.CreateDataset("orders"))
	require.NoError(t, r.CreateDataset("inventory"))

	ids, err := r.IterDatasets()
	require.NoError(t, err)
	require.Len(t, ids, 2)
}

// TestSnapshotPinsDataset mirrors the scenario where a live snapshot keeps a
// dataset's pre-snapshot blocks alive across a copy-on-write decision.
func TestSnapshotPinsDataset(t *testing.T) {
	r := newTestRouter(t)
	require.NoError(t, r.CreateDataset("orders"))
	ds, err := r.OpenDataset("orders")
	require.NoError(t, err)

	gen, err := r.SnapshotDataset(ds)
	require.NoError(t, err)

	has, err := ds.HasOpenSnapshot(gen)
	require.NoError(t, err)
	require.True(t, has)

	count, err := ds.OpenSnapshotCount()
	require.NoError(t, err)
	require.Equal(t, 1, count)

	require.NoError(t, r.DropSnapshot(ds, gen))
	has, err = ds.HasOpenSnapshot(gen)
	require.NoError(t, err)
	require.False(t, has)

	require.NoError(t, r.CloseDataset(ds))
}

// TestOpenCustomDatasetIgnoresStoragePreference documents the preserved bug:
// the storage preference passed to OpenCustomDataset never reaches the
// opened handle's default preference.
func TestOpenCustomDatasetIgnoresStoragePreference(t *testing.T) {
	r := newTestRouter(t)
	require.NoError(t, r.CreateCustomDataset("orders", block.PreferenceFast))

	ds, err := r.OpenCustomDataset("orders", block.PreferenceFast)
	require.NoError(t, err)

	inner, err := ds.get()
	require.NoError(t, err)
	require.Equal(t, block.PreferenceNone, inner.storagePreference)

	require.NoError(t, r.CloseDataset(ds))
}
