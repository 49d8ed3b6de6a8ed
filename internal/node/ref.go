package node

// ObjectRef is an opaque handle to a child node, resolved through the DML's
// object store. The tree engine never dereferences it directly; it always
// goes through the DML's Get/GetMut/WriteBack capability.
type ObjectRef uint64

// Zero is the sentinel "no reference" value, used before a child has ever
// been materialized (e.g. a brand-new root).
const Zero ObjectRef = 0
