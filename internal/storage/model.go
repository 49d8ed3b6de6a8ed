package storage

// recordHeaderSize is the length-prefix written before every record appended
// to a segment file: a single big-endian uint32 giving the payload length.
const recordHeaderSize = 4

// Record identifies where a previously written payload lives: which segment
// file holds it, the byte offset of its header within that file, and the
// payload length (excluding the header itself).
type Record struct {
	SegmentID uint64
	Offset    int64
	Size      uint32
}
