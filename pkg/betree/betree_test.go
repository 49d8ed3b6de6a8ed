package betree

import (
	"context"
	"testing"

	"github.com/iamNilotpal/betree/pkg/options"
	"github.com/stretchr/testify/require"
)

func newTestDatabase(t *testing.T) *Database {
	t.Helper()

	dir := t.TempDir()
	db, err := Open(context.Background(), "betree-test",
		options.WithDataDir(dir),
		options.WithSegmentDir("segments"),
		options.WithSegmentPrefix("seg"),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestOpenCreateOpenCloseDataset(t *testing.T) {
	db := newTestDatabase(t)

	require.NoError(t, db.CreateDataset("orders"))

	ds, err := db.OpenDataset("orders")
	require.NoError(t, err)

	require.NoError(t, ds.Insert([]byte("k"), []byte("v")))
	value, err := ds.Get([]byte("k"))
	require.NoError(t, err)
	require.True(t, value.Present)
	require.Equal(t, []byte("v"), value.Data)

	require.NoError(t, db.CloseDataset(ds))
}

func TestOpenOrCreateDatasetThenSnapshot(t *testing.T) {
	db := newTestDatabase(t)

	ds, err := db.OpenOrCreateDataset("events")
	require.NoError(t, err)

	gen, err := db.SnapshotDataset(ds)
	require.NoError(t, err)

	has, err := ds.HasOpenSnapshot(gen)
	require.NoError(t, err)
	require.True(t, has)

	require.NoError(t, db.DropSnapshot(ds, gen))
	require.NoError(t, db.CloseDataset(ds))
}

func TestIterDatasetsAcrossDatabase(t *testing.T) {
	db := newTestDatabase(t)

	require.NoError(t, db.CreateDataset("a"))
	require.NoError(t, db.CreateDataset("b"))

	ids, err := db.IterDatasets()
	require.NoError(t, err)
	require.Len(t, ids, 2)
}
