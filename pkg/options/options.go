// Package options provides data structures and functions for configuring
// the Ignite database. It defines various parameters that control Ignite's
// storage behavior, performance, and maintenance operations, such as
// directory paths, segment characteristics, and compaction intervals.
package options

import (
	"strings"
	"time"
)

// Defines configurable parameters for each segment.
// It provides fine-grained control over segment behavior, performance, and resource utilization.
type segmentOptions struct {
	// Defines the maximum size a segment can grow to before rotation.
	// When a segment reaches this size, a new segment will be created.
	// Larger segments mean fewer files but slower compaction and recovery.
	//
	//  - Default: 1GB
	//  - Maximum: 4GB
	//  - Minimum: 512MB
	Size uint64 `json:"maxSegmentSize"`

	// Specifies where segment files are stored.
	//
	// Default: "/var/lib/ignitedb/segments"
	Directory string `json:"directory"`

	// Defines the filename prefix for segment files.
	// Final filename will be: `prefix_segmentId_timestamp.seg`
	//
	// Default: "segment"
	//
	// Example: If Prefix is "mydata", a segment file might be "mydata_00001_1716679260000000000.seg".
	Prefix string `json:"prefix"`
}

// Defines the configuration parameters for Ignite DB.
// It provides control over storage, performance and maintenance aspects.
type Options struct {
	// Specifies the base path where files will be stored.
	//
	// Default: "/var/lib/ignitedb"
	DataDir string `json:"dataDir"`

	// Defines how often the compaction process runs to
	// merge old segments. More frequent compaction means more
	// optimal storage but higher overhead.
	//
	// Default: 5h
	CompactInterval time.Duration `json:"compactInterval"`

	// Configures segment management including size limits and naming convention.
	SegmentOptions *segmentOptions `json:"segmentOptions"`

	// Configures the node-size thresholds that drive the tree engine's
	// flush, split and merge decisions.
	TreeOptions *TreeOptions `json:"treeOptions"`

	// Configures the segment bitmap allocator's segment span and block
	// granularity.
	AllocatorOptions *AllocatorOptions `json:"allocatorOptions"`
}

// TreeOptions defines the size thresholds the tree engine uses to decide
// when a node must flush, split or merge. All sizes are in bytes unless
// noted otherwise.
type TreeOptions struct {
	// MaxInternalNodeSize is the size an internal node (pivots plus
	// per-child message buffers) may reach before it must split.
	//
	// Default: 4 MiB
	MaxInternalNodeSize uint32 `json:"maxInternalNodeSize"`

	// MinLeafNodeSize is the size below which a leaf becomes a merge
	// candidate with a sibling.
	//
	// Default: 1 MiB
	MinLeafNodeSize uint32 `json:"minLeafNodeSize"`

	// MaxLeafNodeSize is the size a leaf may reach before it must split.
	//
	// Default: 4 MiB
	MaxLeafNodeSize uint32 `json:"maxLeafNodeSize"`

	// MinFlushSize is the minimum accumulated size of a single child
	// buffer before it becomes eligible to be flushed toward its child.
	//
	// Default: 256 KiB
	MinFlushSize uint32 `json:"minFlushSize"`

	// MinFanout is the minimum number of children an internal node must
	// retain; merges and rebalances never drop below it.
	//
	// Default: 4
	MinFanout int `json:"minFanout"`

	// MaxMessageSize is the largest single message (insert/upsert payload)
	// the tree will accept.
	//
	// Default: 512 KiB
	MaxMessageSize uint32 `json:"maxMessageSize"`
}

// AllocatorOptions defines the segment bitmap allocator's granularity.
type AllocatorOptions struct {
	// SegmentSize is the block-addressable size of a single allocator
	// segment, i.e. the span one bitmap covers.
	//
	// Default: 1 GiB
	SegmentSize uint64 `json:"segmentSize"`

	// BlockSize is the size in bytes of a single addressable block, the
	// bitmap's bit granularity.
	//
	// Default: 4 KiB
	BlockSize uint32 `json:"blockSize"`
}

// OptionFunc is a function type that modifies the Ignite system's configuration.
type OptionFunc func(*Options)

// Applies a predefined set of default configuration values to the Options struct.
func WithDefaultOptions() OptionFunc {
	return func(o *Options) {
		opts := NewDefaultOptions()
		o.DataDir = opts.DataDir
		o.SegmentOptions = opts.SegmentOptions
		o.CompactInterval = opts.CompactInterval
		o.TreeOptions = opts.TreeOptions
		o.AllocatorOptions = opts.AllocatorOptions
	}
}

// Sets the primary data directory for Ignite.
func WithDataDir(directory string) OptionFunc {
	return func(o *Options) {
		directory = strings.TrimSpace(directory)
		if directory != "" {
			o.DataDir = directory
		}
	}
}

// Sets the interval at which Ignite performs compaction operations.
func WithCompactInterval(interval time.Duration) OptionFunc {
	return func(o *Options) {
		if interval > DefaultCompactInterval {
			o.CompactInterval = interval
		}
	}
}

// Sets the directory specifically for storing segment files.
func WithSegmentDir(directory string) OptionFunc {
	return func(o *Options) {
		directory = strings.TrimSpace(directory)
		if directory != "" {
			o.SegmentOptions.Directory = directory
		}
	}
}

// Sets the file name prefix for segment files.
func WithSegmentPrefix(prefix string) OptionFunc {
	return func(o *Options) {
		prefix = strings.TrimSpace(prefix)
		if prefix != "" {
			o.SegmentOptions.Prefix = prefix
		}
	}
}

// Sets the maximum size of individual segment files.
func WithSegmentSize(size uint64) OptionFunc {
	return func(o *Options) {
		if size > MinSegmentSize && size < MaxSegmentSize {
			o.SegmentOptions.Size = size
		}
	}
}

// Sets the internal node split threshold.
func WithMaxInternalNodeSize(size uint32) OptionFunc {
	return func(o *Options) {
		if size > 0 {
			o.TreeOptions.MaxInternalNodeSize = size
		}
	}
}

// Sets the leaf merge-candidate threshold.
func WithMinLeafNodeSize(size uint32) OptionFunc {
	return func(o *Options) {
		if size > 0 {
			o.TreeOptions.MinLeafNodeSize = size
		}
	}
}

// Sets the leaf split threshold.
func WithMaxLeafNodeSize(size uint32) OptionFunc {
	return func(o *Options) {
		if size > 0 {
			o.TreeOptions.MaxLeafNodeSize = size
		}
	}
}

// Sets the minimum child-buffer size eligible for flushing.
func WithMinFlushSize(size uint32) OptionFunc {
	return func(o *Options) {
		if size > 0 {
			o.TreeOptions.MinFlushSize = size
		}
	}
}

// Sets the minimum fanout an internal node must retain.
func WithMinFanout(fanout int) OptionFunc {
	return func(o *Options) {
		if fanout >= 2 {
			o.TreeOptions.MinFanout = fanout
		}
	}
}

// Sets the largest message the tree will accept.
func WithMaxMessageSize(size uint32) OptionFunc {
	return func(o *Options) {
		if size > 0 {
			o.TreeOptions.MaxMessageSize = size
		}
	}
}

// Sets the allocator segment's addressable span.
func WithAllocatorSegmentSize(size uint64) OptionFunc {
	return func(o *Options) {
		if size > 0 {
			o.AllocatorOptions.SegmentSize = size
		}
	}
}

// Sets the allocator bitmap's block granularity.
func WithAllocatorBlockSize(size uint32) OptionFunc {
	return func(o *Options) {
		if size > 0 {
			o.AllocatorOptions.BlockSize = size
		}
	}
}
