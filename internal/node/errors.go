package node

import "github.com/iamNilotpal/betree/pkg/errors"

var errNotALeaf = errors.NewTreeError(nil, errors.ErrorCodeInternal, "node is not a leaf").
	WithNodeKind("internal").
	WithOperation("AsLeaf")
