package allocator

import "github.com/iamNilotpal/betree/pkg/block"

// SegmentId identifies one fixed-size, bitmap-addressable segment of a
// disk: the quantization of a DiskOffset down to segment granularity.
type SegmentId struct {
	Disk  block.GlobalDiskId
	Index uint64
}

// SegmentIdFor derives which segment a disk offset falls in, given the
// segment's block span.
func SegmentIdFor(off block.DiskOffset, segmentSize uint64) SegmentId {
	return SegmentId{Disk: off.ClassDiskId(), Index: off.BlockIndex() / segmentSize}
}

// BlockOffsetFor derives the block offset of off within its segment.
func BlockOffsetFor(off block.DiskOffset, segmentSize uint64) uint32 {
	return uint32(off.BlockIndex() % segmentSize)
}

// SegmentSizeBytes returns the byte length of a bitmap covering segmentSize
// blocks, one bit per block.
func SegmentSizeBytes(segmentSize uint64) uint64 {
	return (segmentSize + 7) / 8
}
