// Package dml implements the abstract object store the tree engine
// consumes in place of an out-of-scope data management layer: a cache of
// live nodes backed by the segment-file log (internal/storage) and the
// in-memory pointer index (internal/index), the way the teacher's
// storage.Storage and index.Index back a Bitcask-style key-value store.
//
// The four suspension points of node access are Get, GetMut, WriteBack and
// Evict; TryGetMut is the non-blocking form of GetMut. The tree engine calls
// Get, GetMut, Evict and Sync (which runs WriteBack on every cached node),
// and registers nodes with NewRef, Insert and MarkDirty.
package dml

import (
	"strconv"
	"sync"
	"sync/atomic"

	stdErrors "errors"

	"github.com/iamNilotpal/betree/internal/index"
	"github.com/iamNilotpal/betree/internal/node"
	"github.com/iamNilotpal/betree/internal/storage"
	"github.com/iamNilotpal/betree/pkg/errors"
	"go.uber.org/zap"
)

// ErrStoreClosed is returned by every operation once Close has run.
var ErrStoreClosed = stdErrors.New("dml: object store is closed")

// entry is one cached node plus the per-node lock the descent protocol
// needs: exclusive access is acquired via mu, non-blocking via TryLock.
type entry struct {
	mu    sync.Mutex
	node  *node.Node
	dirty bool
}

// Config bundles an ObjectStore's dependencies.
type Config struct {
	Storage *storage.Storage
	Index   *index.Index
	Logger  *zap.SugaredLogger
}

// ObjectStore is the concrete, in-process object cache backing the tree
// engine: an in-memory map of live nodes, written through to segment files
// on WriteBack and reloaded from the index/storage pair on a cache miss.
type ObjectStore struct {
	storage *storage.Storage
	index   *index.Index
	log     *zap.SugaredLogger

	nextRef uint64
	closed  atomic.Bool

	mu    sync.RWMutex
	cache map[node.ObjectRef]*entry
}

// New builds an ObjectStore over the given storage and index.
func New(config *Config) (*ObjectStore, error) {
	if config == nil || config.Storage == nil || config.Index == nil || config.Logger == nil {
		return nil, errors.NewValidationError(
			nil, errors.ErrorCodeInvalidInput, "dml configuration is required",
		).WithField("config").WithRule("required").WithProvided(config)
	}

	return &ObjectStore{
		storage: config.Storage,
		index:   config.Index,
		log:     config.Logger,
		cache:   make(map[node.ObjectRef]*entry),
	}, nil
}

func refKey(ref node.ObjectRef) string {
	return strconv.FormatUint(uint64(ref), 10)
}

// NewRef allocates a fresh, never-before-used object reference.
func (s *ObjectStore) NewRef() node.ObjectRef {
	return node.ObjectRef(atomic.AddUint64(&s.nextRef, 1))
}

// Insert adopts n as the live node for ref, marking it dirty so the next
// Sync/WriteBack persists it. Used for freshly created nodes (splits, new
// roots) that have no on-disk image yet.
func (s *ObjectStore) Insert(ref node.ObjectRef, n *node.Node) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache[ref] = &entry{node: n, dirty: true}
}

// Cached reports whether ref is currently resident in memory, without
// forcing a disk load or taking its lock, i.e. whether a Get for it would
// be served without I/O.
func (s *ObjectStore) Cached(ref node.ObjectRef) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.cache[ref]
	return ok
}

// Get resolves ref to its node, blocking to load it from disk on a cache
// miss. This is the only read suspension point the descent protocol uses
// when it cannot proceed non-blocking.
func (s *ObjectStore) Get(ref node.ObjectRef) (*node.Node, error) {
	if s.closed.Load() {
		return nil, ErrStoreClosed
	}

	s.mu.RLock()
	e, ok := s.cache[ref]
	s.mu.RUnlock()
	if ok {
		e.mu.Lock()
		n := e.node
		e.mu.Unlock()
		return n, nil
	}

	n, err := s.load(ref)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.cache[ref]; ok {
		return existing.node, nil
	}
	s.cache[ref] = &entry{node: n}
	return n, nil
}

// GetMut resolves ref and returns it under its exclusive per-node lock,
// blocking until available. release must be called exactly once when the
// caller is done mutating the node.
func (s *ObjectStore) GetMut(ref node.ObjectRef) (n *node.Node, release func(), err error) {
	if s.closed.Load() {
		return nil, nil, ErrStoreClosed
	}

	e, err := s.entryFor(ref)
	if err != nil {
		return nil, nil, err
	}

	e.mu.Lock()
	return e.node, func() { e.mu.Unlock() }, nil
}

// TryGetMut attempts the same as GetMut but never blocks: if the node isn't
// already cached, or its lock is held, it returns ok=false immediately.
func (s *ObjectStore) TryGetMut(ref node.ObjectRef) (n *node.Node, release func(), ok bool) {
	if s.closed.Load() {
		return nil, nil, false
	}

	s.mu.RLock()
	e, cached := s.cache[ref]
	s.mu.RUnlock()
	if !cached {
		return nil, nil, false
	}

	if !e.mu.TryLock() {
		return nil, nil, false
	}

	return e.node, func() { e.mu.Unlock() }, true
}

// MarkDirty flags ref's cached node as needing a WriteBack, used once a
// caller holding its lock via GetMut/TryGetMut has actually mutated it.
func (s *ObjectStore) MarkDirty(ref node.ObjectRef) {
	s.mu.RLock()
	e, ok := s.cache[ref]
	s.mu.RUnlock()
	if ok {
		e.dirty = true
	}
}

func (s *ObjectStore) entryFor(ref node.ObjectRef) (*entry, error) {
	s.mu.RLock()
	e, ok := s.cache[ref]
	s.mu.RUnlock()
	if ok {
		return e, nil
	}

	n, err := s.load(ref)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.cache[ref]; ok {
		return existing, nil
	}
	e = &entry{node: n}
	s.cache[ref] = e
	return e, nil
}

func (s *ObjectStore) load(ref node.ObjectRef) (*node.Node, error) {
	ptr, ok, err := s.index.Get(refKey(ref))
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errors.NewDoesNotExistError("dml.load").WithDetail("ref", refKey(ref))
	}

	raw, err := s.storage.ReadAt(storage.Record{
		SegmentID: uint64(ptr.SegmentID),
		Offset:    ptr.Offset,
		Size:      ptr.EntrySize,
	})
	if err != nil {
		return nil, err
	}

	return node.Unmarshal(raw)
}

// WriteBack persists ref's current in-memory image to the segment log and
// updates the index pointer, clearing its dirty flag. A clean node is a
// no-op.
func (s *ObjectStore) WriteBack(ref node.ObjectRef) error {
	if s.closed.Load() {
		return ErrStoreClosed
	}

	s.mu.RLock()
	e, ok := s.cache[ref]
	s.mu.RUnlock()
	if !ok {
		return errors.NewDoesNotExistError("dml.WriteBack").WithDetail("ref", refKey(ref))
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.dirty {
		return nil
	}

	raw, err := node.Marshal(e.node)
	if err != nil {
		return err
	}

	rec, err := s.storage.Write(raw)
	if err != nil {
		return err
	}

	if err := s.index.Put(refKey(ref), index.RecordPointer{
		SegmentID: uint16(rec.SegmentID),
		Offset:    rec.Offset,
		EntrySize: rec.Size,
	}); err != nil {
		return err
	}

	e.dirty = false
	return nil
}

// Sync writes back every dirty cached node, used by the tree's top-level
// sync operation before it persists a new root pointer.
func (s *ObjectStore) Sync() error {
	s.mu.RLock()
	refs := make([]node.ObjectRef, 0, len(s.cache))
	for ref := range s.cache {
		refs = append(refs, ref)
	}
	s.mu.RUnlock()

	for _, ref := range refs {
		if err := s.WriteBack(ref); err != nil {
			return err
		}
	}
	return nil
}

// Evict drops ref from the in-memory cache, first writing it back if dirty
// so no mutation is lost. A subsequent Get reloads it from disk.
func (s *ObjectStore) Evict(ref node.ObjectRef) error {
	if err := s.WriteBack(ref); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.cache, ref)
	return nil
}

// Close flushes every dirty node and closes the underlying storage and
// index.
func (s *ObjectStore) Close() error {
	if s.closed.Load() {
		return nil
	}

	if err := s.Sync(); err != nil {
		s.log.Errorw("Failed to flush dirty nodes during close", "error", err)
	}

	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}

	if err := s.storage.Close(); err != nil {
		return err
	}
	return s.index.Close()
}
