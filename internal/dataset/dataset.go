package dataset

import (
	"sync"

	set3 "github.com/TomTonic/Set3"
	"go.uber.org/multierr"

	"github.com/iamNilotpal/betree/internal/handler"
	"github.com/iamNilotpal/betree/internal/message"
	"github.com/iamNilotpal/betree/internal/tree"
	"github.com/iamNilotpal/betree/pkg/block"
	"github.com/iamNilotpal/betree/pkg/errors"
)

// datasetInner holds everything an opened dataset needs to serve calls.
type datasetInner struct {
	id                handler.DatasetId
	name              string
	tree              *tree.Tree
	storagePreference block.StoragePreference
	openSnapshots     *set3.Set3[handler.Generation]

	// snapshotOrder holds the same generations as openSnapshots, in the
	// order SnapshotDataset pinned them. Set3 is the membership/count
	// structure callers see through HasOpenSnapshot/OpenSnapshotCount; this
	// slice exists only so DropSnapshot can recompute the newest remaining
	// generation without an enumeration API.
	snapshotOrder []handler.Generation
}

// Dataset is the user-facing handle returned by Open/Create/OpenOrCreate. It
// wraps an inner state behind a revocable pointer: Close clears the pointer
// so every call on a closed handle fast-fails with DoesNotExist rather than
// silently operating on state another opener may already have reclaimed.
type Dataset struct {
	mu    sync.RWMutex
	inner *datasetInner
}

func newDataset(inner *datasetInner) *Dataset {
	return &Dataset{inner: inner}
}

func (d *Dataset) get() (*datasetInner, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.inner == nil {
		return nil, errors.NewDoesNotExistError("dataset.closed")
	}
	return d.inner, nil
}

// take clears the handle and returns whatever inner it held, or nil if it
// was already closed.
func (d *Dataset) take() *datasetInner {
	d.mu.Lock()
	defer d.mu.Unlock()
	inner := d.inner
	d.inner = nil
	return inner
}

// Name returns the dataset's name, empty if it was opened by id alone.
func (d *Dataset) Name() (string, error) {
	inner, err := d.get()
	if err != nil {
		return "", err
	}
	return inner.name, nil
}

// Get returns key's current folded value.
func (d *Dataset) Get(key []byte) (message.Value, error) {
	inner, err := d.get()
	if err != nil {
		return message.Value{}, err
	}
	return inner.tree.Get(key)
}

// Range returns every key in [low, high] with its folded value.
func (d *Dataset) Range(low, high []byte) ([]tree.RangeEntry, error) {
	inner, err := d.get()
	if err != nil {
		return nil, err
	}
	return inner.tree.Range(low, high)
}

// Insert stores data for key, overwriting any existing value.
func (d *Dataset) Insert(key, data []byte) error {
	return d.InsertWithPreference(key, data, block.PreferenceNone)
}

// InsertWithPreference is Insert with a per-call storage preference
// override.
func (d *Dataset) InsertWithPreference(key, data []byte, pref block.StoragePreference) error {
	inner, err := d.get()
	if err != nil {
		return err
	}
	msg, err := message.NewInsert(data, pref.Or(inner.storagePreference), inner.tree.MaxMessageSize())
	if err != nil {
		return err
	}
	return inner.tree.Insert(key, msg)
}

// Upsert writes data at offset into key's value, zero-padding as needed.
func (d *Dataset) Upsert(key, data []byte, offset uint32) error {
	return d.UpsertWithPreference(key, data, offset, block.PreferenceNone)
}

// UpsertWithPreference is Upsert with a per-call storage preference
// override.
func (d *Dataset) UpsertWithPreference(key, data []byte, offset uint32, pref block.StoragePreference) error {
	inner, err := d.get()
	if err != nil {
		return err
	}
	msg, err := message.NewUpsert(offset, data, pref.Or(inner.storagePreference), inner.tree.MaxMessageSize())
	if err != nil {
		return err
	}
	return inner.tree.Insert(key, msg)
}

// Delete removes key's value, if any.
func (d *Dataset) Delete(key []byte) error {
	inner, err := d.get()
	if err != nil {
		return err
	}
	return inner.tree.Insert(key, message.NewDelete())
}

// Migrate hints that key's hosting leaf should move to pref on its next
// write. It is a best-effort nudge, not a guarantee: the core has no
// storage-pool disk-count abstraction to check tier availability against
// (that check is explicitly out of scope, see spec.md §1), so unlike the
// original this never fails with DoesNotExist for an empty tier.
func (d *Dataset) Migrate(key []byte, pref block.StoragePreference) error {
	inner, err := d.get()
	if err != nil {
		return err
	}
	return inner.tree.Insert(key, message.NewNoop(pref))
}

// RangeDelete deletes every key in [low, high]. It keeps going on a
// per-item failure and returns the earliest error encountered, matching the
// "report but don't abort" recovery policy.
func (d *Dataset) RangeDelete(low, high []byte) error {
	inner, err := d.get()
	if err != nil {
		return err
	}

	entries, err := inner.tree.Range(low, high)
	if err != nil {
		return err
	}

	var combined error
	for _, e := range entries {
		if delErr := inner.tree.Insert(e.Key, message.NewDelete()); delErr != nil {
			combined = multierr.Append(combined, delErr)
		}
	}
	if combined == nil {
		return nil
	}
	return multierr.Errors(combined)[0]
}

// MigrateRange nudges every key in [low, high] toward pref. Unlike
// RangeDelete it aborts on the first error, interpreted as the target tier
// being full.
func (d *Dataset) MigrateRange(low, high []byte, pref block.StoragePreference) error {
	inner, err := d.get()
	if err != nil {
		return err
	}

	entries, err := inner.tree.Range(low, high)
	if err != nil {
		return err
	}

	for _, e := range entries {
		if err := inner.tree.Insert(e.Key, message.NewNoop(pref)); err != nil {
			return err
		}
	}
	return nil
}

// HasOpenSnapshot reports whether gen is currently pinned open against this
// dataset.
func (d *Dataset) HasOpenSnapshot(gen handler.Generation) (bool, error) {
	inner, err := d.get()
	if err != nil {
		return false, err
	}
	return inner.openSnapshots.Contains(gen), nil
}

// OpenSnapshotCount returns how many snapshot generations are currently
// pinned open against this dataset.
func (d *Dataset) OpenSnapshotCount() (int, error) {
	inner, err := d.get()
	if err != nil {
		return 0, err
	}
	return int(inner.openSnapshots.Size()), nil
}
