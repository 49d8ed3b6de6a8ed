package errors

// TreeError provides specialized error handling for the B-epsilon tree
// engine. It follows the same embedding pattern as StorageError, IndexError
// and AllocatorError.
type TreeError struct {
	*baseError

	// nodeKind describes which node variant the failure occurred in, e.g.
	// "leaf", "internal", "packed". Empty when not applicable.
	nodeKind string
	// level is the tree depth the failing node lived at, root == 0.
	level int
	// operation names the tree-level operation in progress, e.g. "insert",
	// "range", "rebalance".
	operation string
}

// NewTreeError creates a new tree-engine-specific error.
func NewTreeError(err error, code ErrorCode, msg string) *TreeError {
	return &TreeError{baseError: NewBaseError(err, code, msg)}
}

// WithMessage updates the error message while maintaining the TreeError type.
func (te *TreeError) WithMessage(msg string) *TreeError {
	te.baseError.WithMessage(msg)
	return te
}

// WithCode sets the error code while preserving the TreeError type.
func (te *TreeError) WithCode(code ErrorCode) *TreeError {
	te.baseError.WithCode(code)
	return te
}

// WithDetail adds contextual information while maintaining the TreeError type.
func (te *TreeError) WithDetail(key string, value any) *TreeError {
	te.baseError.WithDetail(key, value)
	return te
}

// WithNodeKind records which node variant the failure occurred in.
func (te *TreeError) WithNodeKind(kind string) *TreeError {
	te.nodeKind = kind
	return te
}

// WithLevel records the tree depth the failing node lived at.
func (te *TreeError) WithLevel(level int) *TreeError {
	te.level = level
	return te
}

// WithOperation records the tree-level operation in progress.
func (te *TreeError) WithOperation(op string) *TreeError {
	te.operation = op
	return te
}

// NodeKind returns which node variant the failure occurred in.
func (te *TreeError) NodeKind() string { return te.nodeKind }

// Level returns the tree depth the failing node lived at.
func (te *TreeError) Level() int { return te.level }

// Operation returns the tree-level operation in progress.
func (te *TreeError) Operation() string { return te.operation }

// NewEmptyKeyError builds the error returned when an operation is attempted
// with a zero-length key.
func NewEmptyKeyError(operation string) *TreeError {
	return NewTreeError(nil, ErrorCodeEmptyKey, "key must not be empty").
		WithOperation(operation)
}

// NewInvalidRangeError builds the error returned when a range query or
// delete is given bounds that are not inclusive-non-empty (low > high).
func NewInvalidRangeError(operation string) *TreeError {
	return NewTreeError(nil, ErrorCodeInvalidRange, "range bounds must satisfy low <= high").
		WithOperation(operation)
}

// NewMessageTooLargeError builds the error returned when a message exceeds
// the configured maximum message size.
func NewMessageTooLargeError(size, max int) *TreeError {
	return NewTreeError(nil, ErrorCodeMessageTooLarge, "message exceeds maximum size").
		WithDetail("size", size).
		WithDetail("max", max)
}

// NewDoesNotExistError builds the error returned when an operation
// references a dataset, snapshot or key that does not exist.
func NewDoesNotExistError(operation string) *TreeError {
	return NewTreeError(nil, ErrorCodeDoesNotExist, "referenced entity does not exist").
		WithOperation(operation)
}

// NewAlreadyExistsError builds the error returned when a create operation
// targets a name that is already bound.
func NewAlreadyExistsError(operation string) *TreeError {
	return NewTreeError(nil, ErrorCodeAlreadyExists, "entity already exists").
		WithOperation(operation)
}

// NewInUseError builds the error returned when a dataset is already open
// under a different handle and cannot be opened exclusively again.
func NewInUseError(operation string) *TreeError {
	return NewTreeError(nil, ErrorCodeInUse, "entity is already open elsewhere").
		WithOperation(operation)
}

// NewUnimplementedError marks a documented, deliberate gap rather than
// silently guessing at behavior.
func NewUnimplementedError(operation string) *TreeError {
	return NewTreeError(nil, ErrorCodeUnimplemented, "operation path intentionally not implemented").
		WithOperation(operation)
}
