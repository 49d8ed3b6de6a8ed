package errors

// ErrorCode represents a standardized way to categorize different types of errors.
type ErrorCode string

// Base error codes represent the fundamental categories of failures that can
// occur across any software system. These codes provide the foundation layer
// of error classification.
const (
	// ErrorCodeIO represents failures in input/output operations across any
	// system boundary. This includes file system operations like reading or
	// writing segment files, network operations when communicating with remote
	// systems, and device I/O when accessing storage hardware.
	ErrorCodeIO ErrorCode = "IO_ERROR"

	// ErrorCodeInvalidInput represents client-side errors where the provided
	// data doesn't meet the system's requirements or constraints. This maps
	// to HTTP 400-series errors and indicates problems with the request itself
	// rather than system failures.
	ErrorCodeInvalidInput ErrorCode = "INVALID_INPUT"

	// ErrorCodeInternal represents unexpected system failures that don't fit
	// into other categories. These are the equivalent of HTTP 500 errors and
	// indicate bugs, assertion failures, or other programming errors that
	// shouldn't occur during normal operation.
	ErrorCodeInternal ErrorCode = "INTERNAL_ERROR"
)

// Storage-specific error codes extend the base error taxonomy to handle the
// unique failure modes that occur in persistent storage systems. These codes
// represent problems that are specific to the storage layer of your key-value
// store, particularly focusing on segment file management and data persistence.
const (
	// ErrorCodeSegmentCorrupted indicates that a segment file's data has been
	// damaged or is in an inconsistent state.
	ErrorCodeSegmentCorrupted ErrorCode = "SEGMENT_CORRUPTED"

	// ErrorCodeHeaderReadFailure occurs when the system cannot read the header
	// portion of a segment file. Headers contain critical metadata about the
	// segment's structure, so header read failures prevent access to the
	// entire segment and all data it contains.
	ErrorCodeHeaderReadFailure ErrorCode = "HEADER_READ_FAILURE"

	// ErrorCodePayloadReadFailure indicates problems reading the actual data
	// content from segment files after successfully reading the header. This
	// represents a more localized failure compared to header problems, as the
	// segment structure is intact but specific data regions are inaccessible.
	ErrorCodePayloadReadFailure ErrorCode = "PAYLOAD_READ_FAILURE"

	// ErrorCodeRecoveryFailed indicates that the storage system's attempt to
	// recover from a previous failure was unsuccessful. This represents a
	// compound failure where both the original problem and the recovery
	// mechanism have failed, creating a more serious operational situation.
	ErrorCodeRecoveryFailed ErrorCode = "STORAGE_RECOVERY_FAILED"

	// ErrorCodePermissionDenied indicates insufficient permissions to access a resource.
	// This is distinct from generic IO errors because it has a specific resolution path:
	// the user needs to adjust file/directory permissions or run with elevated privileges.
	ErrorCodePermissionDenied ErrorCode = "PERMISSION_DENIED"

	// ErrorCodeDiskFull indicates that the storage device has run out of space.
	// This requires specific handling like cleanup operations or alerting administrators.
	ErrorCodeDiskFull ErrorCode = "DISK_FULL"

	// ErrorCodeFilesystemReadonly indicates that the filesystem is mounted read-only.
	// This requires administrative intervention to remount the filesystem with write permissions.
	ErrorCodeFilesystemReadonly ErrorCode = "FILESYSTEM_READONLY"
)

// Index-specific error codes. These were referenced by pkg/errors/index.go's
// helper constructors but never defined; they are added here so those
// constructors compile and behave as documented.
const (
	// ErrorCodeIndexKeyNotFound indicates a lookup against the in-memory
	// index found no entry for the given key.
	ErrorCodeIndexKeyNotFound ErrorCode = "INDEX_KEY_NOT_FOUND"

	// ErrorCodeIndexInvalidSegmentID indicates an index entry pointed at a
	// segment ID that no longer exists on disk.
	ErrorCodeIndexInvalidSegmentID ErrorCode = "INDEX_INVALID_SEGMENT_ID"

	// ErrorCodeIndexTimestampExtraction indicates a segment filename could
	// not be parsed into its sequence/timestamp components.
	ErrorCodeIndexTimestampExtraction ErrorCode = "INDEX_TIMESTAMP_EXTRACTION_FAILED"

	// ErrorCodeIndexCorrupted indicates the in-memory index structure is in
	// an inconsistent state relative to what is on disk.
	ErrorCodeIndexCorrupted ErrorCode = "INDEX_CORRUPTED"
)

// Allocator-specific error codes covering the segment bitmap allocator.
const (
	// ErrorCodeAllocatorNoFit indicates no free run in a segment satisfies
	// a requested allocation size under the active fit strategy.
	ErrorCodeAllocatorNoFit ErrorCode = "ALLOCATOR_NO_FIT"

	// ErrorCodeAllocatorOutOfRange indicates a requested offset/size falls
	// outside the segment's block extent.
	ErrorCodeAllocatorOutOfRange ErrorCode = "ALLOCATOR_OUT_OF_RANGE"

	// ErrorCodeAllocatorConflict indicates an allocate-at request collided
	// with already-allocated blocks.
	ErrorCodeAllocatorConflict ErrorCode = "ALLOCATOR_CONFLICT"
)

// Tree-engine error codes surfaced at the dataset boundary.
const (
	// ErrorCodeEmptyKey indicates an operation was attempted with a
	// zero-length key, which the tree never accepts.
	ErrorCodeEmptyKey ErrorCode = "EMPTY_KEY"

	// ErrorCodeInvalidRange indicates a range query/delete was given bounds
	// that are not inclusive-non-empty.
	ErrorCodeInvalidRange ErrorCode = "INVALID_RANGE"

	// ErrorCodeMessageTooLarge indicates a message exceeded
	// tree.MaxMessageSize.
	ErrorCodeMessageTooLarge ErrorCode = "MESSAGE_TOO_LARGE"

	// ErrorCodeDoesNotExist indicates an operation referenced a dataset,
	// snapshot, or key that does not exist.
	ErrorCodeDoesNotExist ErrorCode = "DOES_NOT_EXIST"

	// ErrorCodeAlreadyExists indicates a create operation targeted a name
	// that is already bound.
	ErrorCodeAlreadyExists ErrorCode = "ALREADY_EXISTS"

	// ErrorCodeInUse indicates a dataset is already open under a different
	// handle and cannot be opened exclusively again.
	ErrorCodeInUse ErrorCode = "IN_USE"

	// ErrorCodeUnimplemented marks a documented, deliberate gap (see
	// DESIGN.md's Open Question decisions) rather than silently guessing at
	// behavior the source specification left unresolved.
	ErrorCodeUnimplemented ErrorCode = "UNIMPLEMENTED"
)
