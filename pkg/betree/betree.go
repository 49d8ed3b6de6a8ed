// Package betree provides a persistent, copy-on-write, multi-tier key/value
// storage engine built on a B-epsilon tree. It combines an in-memory object
// cache (internal/dml) with an append-only segment log on disk
// (internal/storage) and a segment bitmap allocator (internal/allocator),
// coordinated by a generation-tracking handler (internal/handler) and routed
// through named, exclusively-opened datasets (internal/dataset).
//
// Database is the primary entry point: it owns the root tree that stores
// dataset bindings, segment bitmaps and space accounting, and hands out
// Dataset handles scoped to a single name.
package betree

import (
	"context"

	"github.com/iamNilotpal/betree/internal/dataset"
	"github.com/iamNilotpal/betree/internal/dml"
	"github.com/iamNilotpal/betree/internal/handler"
	"github.com/iamNilotpal/betree/internal/index"
	"github.com/iamNilotpal/betree/internal/message"
	"github.com/iamNilotpal/betree/internal/storage"
	"github.com/iamNilotpal/betree/internal/tree"
	"github.com/iamNilotpal/betree/pkg/block"
	"github.com/iamNilotpal/betree/pkg/logger"
	"github.com/iamNilotpal/betree/pkg/options"
	"go.uber.org/zap"
)

// Dataset is a handle to a single opened dataset, re-exported so callers
// never need to import internal/dataset directly.
type Dataset = dataset.Dataset

// Generation identifies a point-in-time snapshot of a dataset's tree.
type Generation = handler.Generation

// Database is a fully opened storage engine instance: the object store, the
// root tree, the space-accounting handler and the dataset router, all
// sharing one on-disk data directory.
type Database struct {
	options *options.Options
	log     *zap.SugaredLogger

	storage *storage.Storage
	index   *index.Index
	store   *dml.ObjectStore

	root    *tree.Tree
	handler *handler.Handler
	router  *dataset.Router
}

// Open initializes storage, the index, the object cache, the root tree and
// the dataset router for a single data directory, applying any supplied
// functional options over the defaults.
func Open(ctx context.Context, service string, opts ...options.OptionFunc) (*Database, error) {
	log := logger.New(service)

	cfg := options.NewDefaultOptions()
	for _, opt := range opts {
		opt(&cfg)
	}

	st, err := storage.New(ctx, &storage.Config{Options: &cfg, Logger: log})
	if err != nil {
		return nil, err
	}

	idx, err := index.New(ctx, &index.Config{DataDir: cfg.DataDir, Logger: log})
	if err != nil {
		st.Close()
		return nil, err
	}

	store, err := dml.New(&dml.Config{Storage: st, Index: idx, Logger: log})
	if err != nil {
		idx.Close()
		st.Close()
		return nil, err
	}

	action := message.DefaultAction{}

	root, err := tree.New(&tree.Config{Store: store, Action: action, Opts: *cfg.TreeOptions, Logger: log})
	if err != nil {
		store.Close()
		return nil, err
	}

	h, err := handler.New(&handler.Config{
		Root:       root,
		Action:     action,
		AllocOpts:  *cfg.AllocatorOptions,
		MaxMsgSize: int(cfg.TreeOptions.MaxMessageSize),
		Logger:     log,
	})
	if err != nil {
		store.Close()
		return nil, err
	}

	router, err := dataset.New(&dataset.Config{
		Store:    store,
		Root:     root,
		Handler:  h,
		TreeOpts: *cfg.TreeOptions,
		Action:   action,
		Logger:   log,
	})
	if err != nil {
		store.Close()
		return nil, err
	}

	return &Database{
		options: &cfg,
		log:     log,
		storage: st,
		index:   idx,
		store:   store,
		root:    root,
		handler: h,
		router:  router,
	}, nil
}

// CreateDataset creates a new, empty dataset.
func (d *Database) CreateDataset(name string) error {
	return d.router.CreateDataset(name)
}

// CreateCustomDataset creates a new, empty dataset. The pref argument is not
// recorded with the dataset; see Router.CreateCustomDataset.
func (d *Database) CreateCustomDataset(name string, pref block.StoragePreference) error {
	return d.router.CreateCustomDataset(name, pref)
}

// OpenDataset opens an existing dataset by name, failing with InUse if
// another handle already holds it open.
func (d *Database) OpenDataset(name string) (*Dataset, error) {
	return d.router.OpenDataset(name)
}

// OpenCustomDataset opens an existing dataset by name.
//
// The storagePreference argument is accepted but not applied to the opened
// handle's default preference; see Router.OpenCustomDataset.
func (d *Database) OpenCustomDataset(name string, storagePreference block.StoragePreference) (*Dataset, error) {
	return d.router.OpenCustomDataset(name, storagePreference)
}

// OpenOrCreateDataset opens name, creating it first if it doesn't exist.
func (d *Database) OpenOrCreateDataset(name string) (*Dataset, error) {
	return d.router.OpenOrCreateDataset(name)
}

// OpenOrCreateCustomDataset opens name, creating it first if it doesn't
// exist.
func (d *Database) OpenOrCreateCustomDataset(name string, pref block.StoragePreference) (*Dataset, error) {
	return d.router.OpenOrCreateCustomDataset(name, pref)
}

// CloseDataset syncs and releases ds, making its name available to be
// opened exclusively by another caller.
func (d *Database) CloseDataset(ds *Dataset) error {
	return d.router.CloseDataset(ds)
}

// IterDatasets lists the ids of every dataset currently registered in the
// database, open or not.
func (d *Database) IterDatasets() ([]handler.DatasetId, error) {
	return d.router.IterDatasets()
}

// SnapshotDataset pins ds's current generation so its pre-snapshot blocks
// survive later copy-on-write decisions until the snapshot is dropped.
func (d *Database) SnapshotDataset(ds *Dataset) (Generation, error) {
	return d.router.SnapshotDataset(ds)
}

// DropSnapshot releases a previously taken snapshot.
func (d *Database) DropSnapshot(ds *Dataset, gen Generation) error {
	return d.router.DropSnapshot(ds, gen)
}

// FreeSpaceDisk reports the current free-space estimate, in bytes, for the
// given physical disk.
func (d *Database) FreeSpaceDisk(disk block.GlobalDiskId) int64 {
	return d.handler.FreeSpaceDisk(disk)
}

// FreeSpaceTier reports the current free-space estimate, in bytes, summed
// across every disk backing the given storage tier.
func (d *Database) FreeSpaceTier(pref block.StoragePreference) int64 {
	return d.handler.FreeSpaceTier(pref)
}

// Sync flushes every dirty cached node and the root tree's own state to
// disk, advancing the current generation.
func (d *Database) Sync() (Generation, error) {
	if _, err := d.root.Sync(); err != nil {
		return 0, err
	}
	if err := d.handler.Flush(); err != nil {
		return 0, err
	}
	return d.handler.CurrentGeneration(), nil
}

// Close flushes and releases every resource the database opened: the
// object cache, the index and the underlying storage segments.
func (d *Database) Close() error {
	if err := d.store.Close(); err != nil {
		return err
	}
	if err := d.index.Close(); err != nil {
		return err
	}
	return d.storage.Close()
}
