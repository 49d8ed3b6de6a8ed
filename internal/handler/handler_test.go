package handler

import (
	"context"
	"testing"

	"github.com/iamNilotpal/betree/internal/allocator"
	"github.com/iamNilotpal/betree/internal/dml"
	"github.com/iamNilotpal/betree/internal/index"
	"github.com/iamNilotpal/betree/internal/message"
	"github.com/iamNilotpal/betree/internal/storage"
	"github.com/iamNilotpal/betree/internal/tree"
	"github.com/iamNilotpal/betree/pkg/block"
	"github.com/iamNilotpal/betree/pkg/logger"
	"github.com/iamNilotpal/betree/pkg/options"
	"github.com/stretchr/testify/require"
)

func newTestHandler(t *testing.T) *Handler {
	t.Helper()

	opts := options.NewDefaultOptions()
	opts.DataDir = t.TempDir()
	opts.SegmentOptions.Directory = "segments"
	opts.SegmentOptions.Prefix = "seg"
	opts.AllocatorOptions.SegmentSize = 4096
	opts.AllocatorOptions.BlockSize = 512 // 8 blocks per segment.

	st, err := storage.New(context.Background(), &storage.Config{Options: &opts, Logger: logger.NewNop()})
	require.NoError(t, err)

	idx, err := index.New(context.Background(), &index.Config{DataDir: opts.DataDir, Logger: logger.NewNop()})
	require.NoError(t, err)

	store, err := dml.New(&dml.Config{Storage: st, Index: idx, Logger: logger.NewNop()})
	require.NoError(t, err)

	root, err := tree.New(&tree.Config{
		Store:  store,
		Action: message.DefaultAction{},
		Opts: options.TreeOptions{
			MaxInternalNodeSize: 4 * 1024 * 1024,
			MinLeafNodeSize:     1,
			MaxLeafNodeSize:     4 * 1024 * 1024,
			MinFlushSize:        256 * 1024,
			MinFanout:           4,
			MaxMessageSize:      512 * 1024,
		},
		Logger: logger.NewNop(),
	})
	require.NoError(t, err)

	h, err := New(&Config{
		Root:       root,
		Action:     message.DefaultAction{},
		AllocOpts:  *opts.AllocatorOptions,
		MaxMsgSize: 512 * 1024,
		Logger:     logger.NewNop(),
	})
	require.NoError(t, err)
	return h
}

func testSegmentId() allocator.SegmentId {
	return allocator.SegmentId{Disk: block.GlobalDiskId{StorageClass: 0, DiskIndex: 1}, Index: 7}
}

func TestUpdateAndGetAllocationBitmapRoundTrip(t *testing.T) {
	h := newTestHandler(t)
	segID := testSegmentId()

	seg, err := h.GetAllocationBitmap(segID, allocator.WorstFit{})
	require.NoError(t, err)

	offset, ok := seg.Allocate(3)
	require.True(t, ok)
	require.Equal(t, uint32(0), offset)

	require.NoError(t, h.UpdateAllocationBitmap(segID, seg, offset, 3, true, block.PreferenceNone))
	require.Equal(t, int64(-3), h.FreeSpaceDisk(segID.Disk))

	reloaded, err := h.GetAllocationBitmap(segID, allocator.WorstFit{})
	require.NoError(t, err)
	require.True(t, reloaded.Data().Get(0))
	require.True(t, reloaded.Data().Get(1))
	require.True(t, reloaded.Data().Get(2))
	require.False(t, reloaded.Data().Get(3))
}

func TestCopyOnWriteRemovedWithoutSnapshot(t *testing.T) {
	h := newTestHandler(t)
	segID := testSegmentId()

	seg, err := h.GetAllocationBitmap(segID, allocator.WorstFit{})
	require.NoError(t, err)
	offset, ok := seg.Allocate(2)
	require.True(t, ok)
	require.NoError(t, h.UpdateAllocationBitmap(segID, seg, offset, 2, true, block.PreferenceNone))

	outcome, err := h.CopyOnWrite(segID, seg, offset, 2, Generation(1), DatasetId(1), block.PreferenceNone)
	require.NoError(t, err)
	require.Equal(t, Removed, outcome)

	require.NoError(t, h.Flush())
}

func TestCopyOnWritePreservedUnderLiveSnapshot(t *testing.T) {
	h := newTestHandler(t)
	segID := testSegmentId()

	seg, err := h.GetAllocationBitmap(segID, allocator.WorstFit{})
	require.NoError(t, err)
	offset, ok := seg.Allocate(2)
	require.True(t, ok)
	require.NoError(t, h.UpdateAllocationBitmap(segID, seg, offset, 2, true, block.PreferenceNone))

	h.SetLastSnapshotGeneration(DatasetId(1), Generation(5))

	outcome, err := h.CopyOnWrite(segID, seg, offset, 2, Generation(1), DatasetId(1), block.PreferenceNone)
	require.NoError(t, err)
	require.Equal(t, Preserved, outcome)
}
