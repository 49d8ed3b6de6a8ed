package options

import "time"

const (
	// Specifies the default base directory where IgniteDB will store its data files.
	// If no other directory is specified during initialization, this path will be used.
	DefaultDataDir = "/var/lib/ignitedb"

	// Defines the default time duration between automatic compaction operations.
	// By default, compaction will run every 5 hours.
	DefaultCompactInterval = time.Hour * 5

	// Represents the minimum allowed size for a segment file in bytes (512MB).
	MinSegmentSize uint64 = 512 * 1024 * 1024

	// Represents the maximum allowed size for a segment file in bytes (4GB).
	MaxSegmentSize uint64 = 4 * 1024 * 1024 * 1024

	// Specifies the default target size for a new segment file in bytes (1GB).
	DefaultSegmentSize uint64 = 1 * 1024 * 1024 * 1024

	// Specifies the default subdirectory within the main data directory
	// where segment files will be stored.
	DefaultSegmentDirectory = "/segments"

	// Defines the default prefix for segment file names.
	// For example, a segment file might be named "segment_00001_1716679260000000000.seg".
	DefaultSegmentPrefix = "segment"

	// DefaultMaxInternalNodeSize is the default internal-node split threshold (4 MiB).
	DefaultMaxInternalNodeSize uint32 = 4 * 1024 * 1024

	// DefaultMinLeafNodeSize is the default leaf merge-candidate threshold (1 MiB).
	DefaultMinLeafNodeSize uint32 = 1 * 1024 * 1024

	// DefaultMaxLeafNodeSize is the default leaf split threshold (4 MiB).
	DefaultMaxLeafNodeSize uint32 = 4 * 1024 * 1024

	// DefaultMinFlushSize is the default minimum child-buffer size eligible
	// for flushing (256 KiB).
	DefaultMinFlushSize uint32 = 256 * 1024

	// DefaultMinFanout is the default minimum number of children an
	// internal node must retain.
	DefaultMinFanout = 4

	// DefaultMaxMessageSize is the default largest single message the tree
	// will accept (512 KiB).
	DefaultMaxMessageSize uint32 = 512 * 1024

	// DefaultAllocatorSegmentSize is the default addressable span of a
	// single allocator segment (1 GiB).
	DefaultAllocatorSegmentSize uint64 = 1 * 1024 * 1024 * 1024

	// DefaultAllocatorBlockSize is the default bitmap block granularity (4 KiB).
	DefaultAllocatorBlockSize uint32 = 4 * 1024
)

// Holds the default configuration settings for an IgniteDB instance.
var defaultOptions = Options{
	DataDir:         DefaultDataDir,
	CompactInterval: DefaultCompactInterval,
	SegmentOptions: &segmentOptions{
		Size:      DefaultSegmentSize,
		Prefix:    DefaultSegmentPrefix,
		Directory: DefaultSegmentDirectory,
	},
	TreeOptions: &TreeOptions{
		MaxInternalNodeSize: DefaultMaxInternalNodeSize,
		MinLeafNodeSize:     DefaultMinLeafNodeSize,
		MaxLeafNodeSize:     DefaultMaxLeafNodeSize,
		MinFlushSize:        DefaultMinFlushSize,
		MinFanout:           DefaultMinFanout,
		MaxMessageSize:      DefaultMaxMessageSize,
	},
	AllocatorOptions: &AllocatorOptions{
		SegmentSize: DefaultAllocatorSegmentSize,
		BlockSize:   DefaultAllocatorBlockSize,
	},
}

func NewDefaultOptions() Options {
	return defaultOptions
}
