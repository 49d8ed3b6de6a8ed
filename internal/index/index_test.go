package index

import (
	"context"
	"testing"

	"github.com/iamNilotpal/betree/pkg/logger"
	"github.com/stretchr/testify/require"
)

func newTestIndex(t *testing.T) *Index {
	t.Helper()
	idx, err := New(context.Background(), &Config{DataDir: t.TempDir(), Logger: logger.NewNop()})
	require.NoError(t, err)
	return idx
}

func TestPutGetRoundTrip(t *testing.T) {
	idx := newTestIndex(t)

	err := idx.Put("k1", RecordPointer{SegmentID: 1, Offset: 42, EntrySize: 10})
	require.NoError(t, err)

	ptr, ok, err := idx.Get("k1")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, int64(42), ptr.Offset)
	require.Equal(t, "k1", ptr.Key)
}

func TestGetMissingKey(t *testing.T) {
	idx := newTestIndex(t)
	_, ok, err := idx.Get("missing")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestDeleteRemovesEntry(t *testing.T) {
	idx := newTestIndex(t)
	require.NoError(t, idx.Put("k1", RecordPointer{}))
	require.Equal(t, 1, idx.Len())

	require.NoError(t, idx.Delete("k1"))
	require.Equal(t, 0, idx.Len())

	_, ok, _ := idx.Get("k1")
	require.False(t, ok)
}

func TestOperationsAfterCloseFail(t *testing.T) {
	idx := newTestIndex(t)
	require.NoError(t, idx.Close())

	require.ErrorIs(t, idx.Put("k1", RecordPointer{}), ErrIndexClosed)
	_, _, err := idx.Get("k1")
	require.ErrorIs(t, err, ErrIndexClosed)
}
