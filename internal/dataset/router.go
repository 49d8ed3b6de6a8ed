package dataset

import (
	"encoding/binary"
	"sync"

	set3 "github.com/TomTonic/Set3"
	"go.uber.org/zap"
	"golang.org/x/text/unicode/norm"

	"github.com/iamNilotpal/betree/internal/dml"
	"github.com/iamNilotpal/betree/internal/handler"
	"github.com/iamNilotpal/betree/internal/message"
	"github.com/iamNilotpal/betree/internal/tree"
	"github.com/iamNilotpal/betree/pkg/block"
	"github.com/iamNilotpal/betree/pkg/errors"
	"github.com/iamNilotpal/betree/pkg/options"
)

// Router resolves user-visible dataset names to DatasetIds and forwards
// operations to each dataset's own tree. It maintains the name→id binding
// in the root tree and an in-memory open-dataset table enforcing
// single-opener exclusivity.
type Router struct {
	mu   sync.Mutex
	open map[handler.DatasetId]*Dataset

	store    *dml.ObjectStore
	root     *tree.Tree
	handler  *handler.Handler
	treeOpts options.TreeOptions
	action   message.Action
	log      *zap.SugaredLogger
}

// Config bundles a Router's dependencies.
type Config struct {
	Store    *dml.ObjectStore
	Root     *tree.Tree
	Handler  *handler.Handler
	TreeOpts options.TreeOptions
	Action   message.Action // defaults to message.DefaultAction{} if nil.
	Logger   *zap.SugaredLogger
}

// New builds a Router over the database's root tree.
func New(config *Config) (*Router, error) {
	if config == nil || config.Store == nil || config.Root == nil || config.Handler == nil || config.Logger == nil {
		return nil, errors.NewTreeError(nil, errors.ErrorCodeInvalidInput, "router configuration is required").
			WithOperation("dataset.router.new")
	}

	action := config.Action
	if action == nil {
		action = message.DefaultAction{}
	}

	return &Router{
		open:     make(map[handler.DatasetId]*Dataset),
		store:    config.Store,
		root:     config.Root,
		handler:  config.Handler,
		treeOpts: config.TreeOpts,
		action:   action,
		log:      config.Logger,
	}, nil
}

func normalizeName(name string) string {
	return norm.NFC.String(name)
}

func (r *Router) maxMsgSize() int {
	return int(r.treeOpts.MaxMessageSize)
}

func (r *Router) lookupDatasetId(name string) (handler.DatasetId, error) {
	value, err := r.root.Get(datasetNameKey(name))
	if err != nil {
		return 0, err
	}
	if !value.Present {
		return 0, errors.NewDoesNotExistError("dataset.lookup")
	}
	return handler.DatasetId(binary.BigEndian.Uint64(value.Data)), nil
}

func (r *Router) allocateDatasetId() (handler.DatasetId, error) {
	value, err := r.root.Get(nextDatasetIdKey())
	if err != nil {
		return 0, err
	}

	var last uint64
	if value.Present {
		last = binary.BigEndian.Uint64(value.Data)
	}
	next := last + 1

	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, next)
	msg, err := message.NewInsert(buf, block.PreferenceNone, r.maxMsgSize())
	if err != nil {
		return 0, err
	}
	if err := r.root.Insert(nextDatasetIdKey(), msg); err != nil {
		return 0, err
	}
	return handler.DatasetId(next), nil
}

// CreateDataset creates a new, empty dataset named name.
func (r *Router) CreateDataset(name string) error {
	return r.CreateCustomDataset(name, block.PreferenceNone)
}

// CreateCustomDataset creates a new, empty dataset named name. pref is not
// recorded with the dataset: handles opened on it start with the NONE
// default preference. Fails with AlreadyExists if name is already bound.
func (r *Router) CreateCustomDataset(name string, pref block.StoragePreference) error {
	normName := normalizeName(name)

	if _, err := r.lookupDatasetId(normName); err == nil {
		return errors.NewAlreadyExistsError("dataset.create")
	} else if errors.GetErrorCode(err) != errors.ErrorCodeDoesNotExist {
		return err
	}

	id, err := r.allocateDatasetId()
	if err != nil {
		return err
	}

	dsTree, err := tree.New(&tree.Config{Store: r.store, Action: r.action, Opts: r.treeOpts, Logger: r.log})
	if err != nil {
		return err
	}
	root, err := dsTree.Sync()
	if err != nil {
		return err
	}

	dataMsg, err := message.NewInsert(marshalDatasetData(datasetData{ptr: root}), block.PreferenceNone, r.maxMsgSize())
	if err != nil {
		return err
	}
	if err := r.root.Insert(datasetDataKey(uint64(id)), dataMsg); err != nil {
		return err
	}

	idBuf := make([]byte, 8)
	binary.BigEndian.PutUint64(idBuf, uint64(id))
	nameMsg, err := message.NewInsert(idBuf, block.PreferenceNone, r.maxMsgSize())
	if err != nil {
		return err
	}
	return r.root.Insert(datasetNameKey(normName), nameMsg)
}

// OpenDataset opens an existing dataset by name. Fails with InUse if it is
// already open, DoesNotExist if no such dataset exists.
func (r *Router) OpenDataset(name string) (*Dataset, error) {
	return r.OpenCustomDataset(name, block.PreferenceNone)
}

// OpenCustomDataset opens an existing dataset by name.
//
// BUG (preserved, not fixed): storagePreference is ignored here exactly as
// in the original source's open_custom_dataset, which hard-codes NONE when
// constructing the inner regardless of what the caller passed. Per-call
// overrides still work via InsertWithPreference/UpsertWithPreference; only
// the dataset's own default preference is affected.
func (r *Router) OpenCustomDataset(name string, storagePreference block.StoragePreference) (*Dataset, error) {
	_ = storagePreference // intentionally unused, see doc comment above.

	normName := normalizeName(name)
	id, err := r.lookupDatasetId(normName)
	if err != nil {
		return nil, err
	}
	return r.openDatasetWithIdAndName(id, normName, block.PreferenceNone)
}

// OpenOrCreateDataset opens name, creating it first if it doesn't exist.
func (r *Router) OpenOrCreateDataset(name string) (*Dataset, error) {
	return r.OpenOrCreateCustomDataset(name, block.PreferenceNone)
}

// OpenOrCreateCustomDataset opens name, creating it first if it doesn't
// exist.
func (r *Router) OpenOrCreateCustomDataset(name string, pref block.StoragePreference) (*Dataset, error) {
	normName := normalizeName(name)
	_, err := r.lookupDatasetId(normName)
	switch {
	case err == nil:
		return r.OpenCustomDataset(normName, pref)
	case errors.GetErrorCode(err) == errors.ErrorCodeDoesNotExist:
		if createErr := r.CreateCustomDataset(normName, pref); createErr != nil {
			return nil, createErr
		}
		return r.OpenCustomDataset(normName, pref)
	default:
		return nil, err
	}
}

func (r *Router) openDatasetWithIdAndName(id handler.DatasetId, name string, pref block.StoragePreference) (*Dataset, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.open[id]; ok {
		return nil, errors.NewInUseError("dataset.open")
	}

	value, err := r.root.Get(datasetDataKey(uint64(id)))
	if err != nil {
		return nil, err
	}
	if !value.Present {
		return nil, errors.NewDoesNotExistError("dataset.open")
	}
	data, ok := unmarshalDatasetData(value.Data)
	if !ok {
		return nil, errors.NewTreeError(nil, errors.ErrorCodeInternal, "corrupt dataset-data record").
			WithOperation("dataset.open")
	}

	dsTree, err := tree.New(&tree.Config{Store: r.store, Action: r.action, Opts: r.treeOpts, Logger: r.log})
	if err != nil {
		return nil, err
	}
	dsTree.SetRoot(data.ptr)

	if data.hasSnapshot {
		r.handler.SetLastSnapshotGeneration(id, data.previousSnapshot)
	}

	ds := newDataset(&datasetInner{
		id:                id,
		name:              name,
		tree:              dsTree,
		storagePreference: pref,
		openSnapshots:     set3.Empty[handler.Generation](),
	})
	r.open[id] = ds
	return ds, nil
}

// CloseDataset quiesces ds's tree (sync), removes it from the open-dataset
// table, and forgets its snapshot-generation entry. Calling it twice on the
// same handle fails with DoesNotExist on the second call.
func (r *Router) CloseDataset(ds *Dataset) error {
	inner := ds.take()
	if inner == nil {
		return errors.NewDoesNotExistError("dataset.close")
	}

	if _, err := inner.tree.Sync(); err != nil {
		return err
	}

	r.mu.Lock()
	delete(r.open, inner.id)
	r.mu.Unlock()

	r.handler.ForgetSnapshotGeneration(inner.id)
	return nil
}

// IterDatasets enumerates the ids of every dataset registered in the root
// tree, scanning the dataset-data key range.
func (r *Router) IterDatasets() ([]handler.DatasetId, error) {
	entries, err := r.root.Range(datasetDataLowerBound(), datasetScanUpperBound())
	if err != nil {
		return nil, err
	}

	ids := make([]handler.DatasetId, 0, len(entries))
	for _, e := range entries {
		if !e.Value.Present || len(e.Key) < 9 {
			continue
		}
		ids = append(ids, handler.DatasetId(binary.BigEndian.Uint64(e.Key[1:9])))
	}
	return ids, nil
}

// SnapshotDataset marks the handler's current generation as a live snapshot
// of ds, pinning its pre-snapshot blocks against reclamation until the
// snapshot is dropped (see Handler.CopyOnWrite). Returns the pinned
// generation.
func (r *Router) SnapshotDataset(ds *Dataset) (handler.Generation, error) {
	inner, err := ds.get()
	if err != nil {
		return 0, err
	}

	gen := r.handler.CurrentGeneration()
	inner.openSnapshots.Add(gen)
	inner.snapshotOrder = append(inner.snapshotOrder, gen)
	r.handler.SetLastSnapshotGeneration(inner.id, gen)
	return gen, nil
}

// DropSnapshot releases a previously taken snapshot. If other snapshots are
// still open against ds, the handler's last-snapshot-generation marker is
// lowered to the newest of those, so blocks born after that generation become
// reclaimable again; only once none remain is the marker forgotten entirely.
func (r *Router) DropSnapshot(ds *Dataset, gen handler.Generation) error {
	inner, err := ds.get()
	if err != nil {
		return err
	}

	inner.openSnapshots.Remove(gen)
	inner.snapshotOrder = removeGeneration(inner.snapshotOrder, gen)

	if len(inner.snapshotOrder) == 0 {
		r.handler.ForgetSnapshotGeneration(inner.id)
		return nil
	}

	newest := inner.snapshotOrder[0]
	for _, g := range inner.snapshotOrder[1:] {
		if g > newest {
			newest = g
		}
	}
	r.handler.SetLastSnapshotGeneration(inner.id, newest)
	return nil
}

// removeGeneration returns order with gen's first occurrence removed,
// preserving the relative order of the rest.
func removeGeneration(order []handler.Generation, gen handler.Generation) []handler.Generation {
	for i, g := range order {
		if g == gen {
			return append(order[:i], order[i+1:]...)
		}
	}
	return order
}
