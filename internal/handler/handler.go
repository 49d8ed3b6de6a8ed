package handler

import (
	"encoding/binary"
	"sync"
	"sync/atomic"

	"github.com/iamNilotpal/betree/internal/allocator"
	"github.com/iamNilotpal/betree/internal/message"
	"github.com/iamNilotpal/betree/internal/tree"
	"github.com/iamNilotpal/betree/pkg/block"
	"github.com/iamNilotpal/betree/pkg/errors"
	"github.com/iamNilotpal/betree/pkg/options"
	"go.uber.org/zap"
)

// Generation tags a global sync point used by snapshots.
type Generation uint64

// DatasetId identifies one dataset.
type DatasetId uint64

// CowOutcome is the result of a copy-on-write decision: whether the freed
// range was reclaimed immediately or is still pinned by a live snapshot.
type CowOutcome int

const (
	Removed CowOutcome = iota
	Preserved
)

// DeadListEntry records a block range tentatively freed but still
// referenced by a live snapshot, keyed by (dataset, generation, offset) in
// the root tree.
type DeadListEntry struct {
	Birth Generation
	Size  uint32
}

// delayedMessage is one root-tree write deferred until the next sync, used
// for bitmap/storage-info updates produced by an immediate reclamation.
type delayedMessage struct {
	key []byte
	msg message.Message
}

// blockRange is the pre-sync root's block range, kept live (marked
// allocated) in every bitmap read until the new root is durable.
type blockRange struct {
	disk   block.GlobalDiskId
	offset uint32
	size   uint32
	valid  bool
}

// Handler bridges the segment allocator and the root tree: it is the only
// component that both reads allocator state and writes tree messages, so
// the allocator and tree never reference each other directly.
type Handler struct {
	mu   sync.Mutex
	root *tree.Tree
	snap *tree.Tree // root_tree_snapshot: optional, for reading the previous generation's bitmap.

	action      message.Action
	allocOpts   options.AllocatorOptions
	maxMsgSize  int
	log         *zap.SugaredLogger

	currentGeneration atomic.Uint64

	spaceMu       sync.Mutex
	freeSpaceDisk map[block.GlobalDiskId]int64
	freeSpaceTier map[block.StoragePreference]int64

	delayedMu sync.Mutex
	delayed   []delayedMessage

	snapshotMu             sync.Mutex
	lastSnapshotGeneration map[DatasetId]Generation

	oldRootAllocation blockRange
}

// Config bundles a Handler's dependencies.
type Config struct {
	Root       *tree.Tree
	Snapshot   *tree.Tree // nil if there is no previous-generation snapshot yet.
	Action     message.Action
	AllocOpts  options.AllocatorOptions
	MaxMsgSize int
	Logger     *zap.SugaredLogger
}

// New builds a Handler over the given root tree.
func New(config *Config) (*Handler, error) {
	if config == nil || config.Root == nil || config.Action == nil || config.Logger == nil {
		return nil, errors.NewTreeError(nil, errors.ErrorCodeInvalidInput, "handler configuration is required").
			WithOperation("handler.new")
	}

	return &Handler{
		root:                   config.Root,
		snap:                   config.Snapshot,
		action:                 config.Action,
		allocOpts:              config.AllocOpts,
		maxMsgSize:             config.MaxMsgSize,
		log:                    config.Logger,
		freeSpaceDisk:          make(map[block.GlobalDiskId]int64),
		freeSpaceTier:          make(map[block.StoragePreference]int64),
		lastSnapshotGeneration: make(map[DatasetId]Generation),
	}, nil
}

// CurrentGeneration returns the handler's current global sync generation.
func (h *Handler) CurrentGeneration() Generation {
	return Generation(h.currentGeneration.Load())
}

// AdvanceGeneration increments and returns the new current generation,
// called once per completed sync.
func (h *Handler) AdvanceGeneration() Generation {
	return Generation(h.currentGeneration.Add(1))
}

// FreeSpaceDisk returns the relaxed free-block counter for disk.
func (h *Handler) FreeSpaceDisk(disk block.GlobalDiskId) int64 {
	h.spaceMu.Lock()
	defer h.spaceMu.Unlock()
	return h.freeSpaceDisk[disk]
}

// FreeSpaceTier returns the relaxed free-block counter for a storage tier.
func (h *Handler) FreeSpaceTier(pref block.StoragePreference) int64 {
	h.spaceMu.Lock()
	defer h.spaceMu.Unlock()
	return h.freeSpaceTier[pref]
}

// segmentBits returns the number of bitmap-addressable blocks in one
// segment, derived from the configured segment span and block granularity.
func (h *Handler) segmentBits() uint32 {
	if h.allocOpts.BlockSize == 0 {
		return 0
	}
	return uint32(h.allocOpts.SegmentSize / uint64(h.allocOpts.BlockSize))
}

func (h *Handler) adjustFreeSpace(disk block.GlobalDiskId, pref block.StoragePreference, delta int64) {
	h.spaceMu.Lock()
	defer h.spaceMu.Unlock()
	h.freeSpaceDisk[disk] += delta
	h.freeSpaceTier[pref] += delta
}

// SetLastSnapshotGeneration records dataset's newest snapshot generation,
// called when a snapshot is taken.
func (h *Handler) SetLastSnapshotGeneration(dataset DatasetId, gen Generation) {
	h.snapshotMu.Lock()
	defer h.snapshotMu.Unlock()
	h.lastSnapshotGeneration[dataset] = gen
}

// ForgetSnapshotGeneration drops a dataset's snapshot-generation entry,
// called when its snapshot is dropped.
func (h *Handler) ForgetSnapshotGeneration(dataset DatasetId) {
	h.snapshotMu.Lock()
	defer h.snapshotMu.Unlock()
	delete(h.lastSnapshotGeneration, dataset)
}

func (h *Handler) lastSnapshotGenerationOf(dataset DatasetId) (Generation, bool) {
	h.snapshotMu.Lock()
	defer h.snapshotMu.Unlock()
	gen, ok := h.lastSnapshotGeneration[dataset]
	return gen, ok
}

// SetOldRootAllocation records the pre-sync root's block range, kept
// allocated in every bitmap read until the new root is durable.
func (h *Handler) SetOldRootAllocation(disk block.GlobalDiskId, offset, size uint32) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.oldRootAllocation = blockRange{disk: disk, offset: offset, size: size, valid: true}
}

// ClearOldRootAllocation drops the pinned old-root range once the new root
// has been durably synced.
func (h *Handler) ClearOldRootAllocation() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.oldRootAllocation = blockRange{}
}

// UpdateAllocationBitmap records an allocation or deallocation against
// segID: it adjusts the per-disk/per-tier free-space counters, inserts a
// bitmap upsert message covering the affected byte range into the root
// tree, and writes an updated storage-info blob at the space-accounting
// key. seg must already reflect the new allocation state (the caller
// performs the in-memory Allocate/Deallocate first).
func (h *Handler) UpdateAllocationBitmap(
	segID allocator.SegmentId, seg *allocator.Segment, blockOffset, size uint32, allocated bool, pref block.StoragePreference,
) error {
	delta := int64(size)
	if allocated {
		delta = -delta
	}
	h.adjustFreeSpace(segID.Disk, pref, delta)

	byteStart := blockOffset / 8
	byteEnd := (blockOffset + size + 7) / 8
	bitmapBytes := seg.Data().Bytes()
	if byteEnd > uint32(len(bitmapBytes)) {
		byteEnd = uint32(len(bitmapBytes))
	}
	patch := append([]byte(nil), bitmapBytes[byteStart:byteEnd]...)

	bitmapMsg, err := message.NewUpsert(byteStart, patch, block.PreferenceNone, h.maxMsgSize)
	if err != nil {
		return err
	}
	if err := h.root.Insert(segmentBitmapKey(segID), bitmapMsg); err != nil {
		return err
	}

	info := StorageInfo{
		Free:  uint64(h.FreeSpaceDisk(segID.Disk)),
		Total: uint64(h.segmentBits()),
	}
	infoMsg, err := message.NewInsert(marshalStorageInfo(info), block.PreferenceNone, h.maxMsgSize)
	if err != nil {
		return err
	}
	return h.root.Insert(spaceAccountingKey(segID.Disk), infoMsg)
}

// GetAllocationBitmap reads segID's current bitmap from the root tree,
// OR-merges it with the previous snapshot's bitmap (a block still counts
// as in use if either generation says so), and additionally marks the
// pinned old-root range if it falls within this segment.
func (h *Handler) GetAllocationBitmap(segID allocator.SegmentId, selector allocator.FitSelector) (*allocator.Segment, error) {
	bits := h.segmentBits()

	current, err := h.readBitmap(h.root, segID, bits)
	if err != nil {
		return nil, err
	}

	if h.snap != nil {
		previous, err := h.readBitmap(h.snap, segID, bits)
		if err != nil {
			return nil, err
		}
		current.Or(previous)
	}

	h.mu.Lock()
	pin := h.oldRootAllocation
	h.mu.Unlock()
	if pin.valid && pin.disk == segID.Disk {
		current.SetRange(pin.offset, pin.size)
	}

	return allocator.NewSegment(current, selector), nil
}

func (h *Handler) readBitmap(t *tree.Tree, segID allocator.SegmentId, bits uint32) (allocator.Bitmap, error) {
	value, err := t.Get(segmentBitmapKey(segID))
	if err != nil {
		return allocator.Bitmap{}, err
	}
	if !value.Present {
		return allocator.NewEmptyBitmap(bits), nil
	}
	raw := make([]byte, (bits+7)/8)
	copy(raw, value.Data)
	return allocator.NewBitmap(raw, bits), nil
}

// CopyOnWrite decides, for a range freed by a copy-on-write rewrite,
// whether it can be reclaimed immediately or must be pinned by a live
// snapshot. In the Removed case CopyOnWrite deallocates the range from seg
// itself and queues the bitmap update for the next Flush, so seg must still
// show the range as allocated on entry.
func (h *Handler) CopyOnWrite(
	segID allocator.SegmentId, seg *allocator.Segment, offset, size uint32, generation Generation, dataset DatasetId, pref block.StoragePreference,
) (CowOutcome, error) {
	last, hasSnapshot := h.lastSnapshotGenerationOf(dataset)
	if !hasSnapshot || last < generation {
		seg.Deallocate(offset, size)
		if err := h.enqueueBitmapUpdate(segID, seg, offset, size, pref); err != nil {
			return Preserved, err
		}
		return Removed, nil
	}

	entry := DeadListEntry{Birth: generation, Size: size}
	msg, err := message.NewInsert(marshalDeadListEntry(entry), block.PreferenceNone, h.maxMsgSize)
	if err != nil {
		return Preserved, err
	}
	key := deadListKey(uint64(dataset), uint64(h.CurrentGeneration()), offset)
	if err := h.root.Insert(key, msg); err != nil {
		return Preserved, err
	}
	return Preserved, nil
}

// enqueueBitmapUpdate defers a bitmap/storage-info update produced by an
// immediate reclamation until the next sync, matching the delayed_messages
// queue spec.md describes.
func (h *Handler) enqueueBitmapUpdate(segID allocator.SegmentId, seg *allocator.Segment, offset, size uint32, pref block.StoragePreference) error {
	h.adjustFreeSpace(segID.Disk, pref, int64(size))

	byteStart := offset / 8
	byteEnd := (offset + size + 7) / 8
	bitmapBytes := seg.Data().Bytes()
	if byteEnd > uint32(len(bitmapBytes)) {
		byteEnd = uint32(len(bitmapBytes))
	}
	patch := append([]byte(nil), bitmapBytes[byteStart:byteEnd]...)

	bitmapMsg, err := message.NewUpsert(byteStart, patch, block.PreferenceNone, h.maxMsgSize)
	if err != nil {
		return err
	}

	info := StorageInfo{Free: uint64(h.FreeSpaceDisk(segID.Disk)), Total: uint64(h.segmentBits())}
	infoMsg, err := message.NewInsert(marshalStorageInfo(info), block.PreferenceNone, h.maxMsgSize)
	if err != nil {
		return err
	}

	h.delayedMu.Lock()
	h.delayed = append(h.delayed,
		delayedMessage{key: segmentBitmapKey(segID), msg: bitmapMsg},
		delayedMessage{key: spaceAccountingKey(segID.Disk), msg: infoMsg},
	)
	h.delayedMu.Unlock()
	return nil
}

// Flush applies every delayed message into the root tree and advances the
// generation counter. Database.Sync calls it after the root tree's dirty
// nodes have been written back.
func (h *Handler) Flush() error {
	h.delayedMu.Lock()
	pending := h.delayed
	h.delayed = nil
	h.delayedMu.Unlock()

	for _, m := range pending {
		if err := h.root.Insert(m.key, m.msg); err != nil {
			return err
		}
	}
	h.AdvanceGeneration()
	return nil
}

func marshalDeadListEntry(e DeadListEntry) []byte {
	buf := make([]byte, 12)
	binary.LittleEndian.PutUint64(buf[0:8], uint64(e.Birth))
	binary.LittleEndian.PutUint32(buf[8:12], e.Size)
	return buf
}
