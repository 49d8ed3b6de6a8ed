// Package tree implements the B-epsilon tree engine: branch-and-buffer
// inserts, path-folded reads, and the size-driven rebalance loop that keeps
// internal nodes and leaves within their configured bounds. It talks to
// nodes only through internal/dml's ObjectStore, never touching storage or
// the index directly.
package tree

import (
	"bytes"
	"sort"
	"sync"

	"github.com/iamNilotpal/betree/internal/dml"
	"github.com/iamNilotpal/betree/internal/message"
	"github.com/iamNilotpal/betree/internal/node"
	"github.com/iamNilotpal/betree/pkg/errors"
	"github.com/iamNilotpal/betree/pkg/options"
	"go.uber.org/zap"
)

// Tree is a single B-epsilon tree instance: a root object reference plus the
// object store backing every node it touches. Mutating operations
// (Insert, Sync) serialize on a single tree-wide mutex; Get and Range take
// the read side of the same lock, so readers never block behind each other.
type Tree struct {
	mu   sync.RWMutex
	root node.ObjectRef

	store  *dml.ObjectStore
	action message.Action
	opts   options.TreeOptions
	log    *zap.SugaredLogger
}

// Config bundles a Tree's dependencies.
type Config struct {
	Store  *dml.ObjectStore
	Action message.Action
	Opts   options.TreeOptions
	Logger *zap.SugaredLogger
}

// New creates an empty tree: a single, empty leaf as its root.
func New(config *Config) (*Tree, error) {
	if config == nil || config.Store == nil || config.Action == nil || config.Logger == nil {
		return nil, errors.NewTreeError(nil, errors.ErrorCodeInvalidInput, "tree configuration is required").
			WithOperation("new")
	}

	t := &Tree{
		store:  config.Store,
		action: config.Action,
		opts:   config.Opts,
		log:    config.Logger,
	}

	root := config.Store.NewRef()
	leaf := node.WrapLeaf(node.NewLeaf())
	config.Store.Insert(root, &leaf)
	t.root = root

	return t, nil
}

// MaxMessageSize returns the largest single message this tree will accept,
// used by callers building messages to pass to Insert.
func (t *Tree) MaxMessageSize() int {
	return int(t.opts.MaxMessageSize)
}

// Root returns the tree's current root reference, used by the handler to
// persist it alongside a generation's snapshot metadata.
func (t *Tree) Root() node.ObjectRef {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.root
}

// SetRoot replaces the tree's root reference, used when reopening a tree
// from a previously persisted root pointer.
func (t *Tree) SetRoot(ref node.ObjectRef) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.root = ref
}

// Get resolves key to its current value by descending from the root,
// collecting every buffered message that governs key along the way, and
// folding them against the leaf's stored base value. Messages are
// collected in root-to-leaf order but folded in the reverse of that order:
// the leaf-adjacent buffer's message is applied first, the root buffer's
// last, since a shallower buffer can hold a strictly newer write than one
// a prior flush already pushed deeper.
func (t *Tree) Get(key []byte) (message.Value, error) {
	if len(key) == 0 {
		return message.Value{}, errors.NewEmptyKeyError("get")
	}

	t.mu.RLock()
	defer t.mu.RUnlock()

	var collected []message.Message
	ref := t.root

	for {
		n, err := t.store.Get(ref)
		if err != nil {
			return message.Value{}, err
		}

		if n.IsLeaf() {
			leaf, err := n.AsLeaf()
			if err != nil {
				return message.Value{}, err
			}

			value := message.Value{}
			if entry, ok := leaf.Get(key); ok {
				value.Set(append([]byte(nil), entry.Value...))
			}
			for i := len(collected) - 1; i >= 0; i-- {
				t.action.Apply(key, collected[i], &value)
			}
			return value, nil
		}

		if entry, ok := n.Internal.LookupMessages(key); ok {
			collected = append(collected, entry.Msg)
		}
		ref = n.Internal.Children()[n.Internal.ChildIndex(key)].Ref
	}
}

// RangeEntry is one key's folded value returned by Range.
type RangeEntry struct {
	Key   []byte
	Value message.Value
}

// Range returns every key in [low, high] with its folded value. Bounds must
// satisfy low <= high.
func (t *Tree) Range(low, high []byte) ([]RangeEntry, error) {
	if bytes.Compare(low, high) > 0 {
		return nil, errors.NewInvalidRangeError("range")
	}

	t.mu.RLock()
	defer t.mu.RUnlock()

	return t.rangeNode(t.root, low, high, nil)
}

func (t *Tree) rangeNode(ref node.ObjectRef, low, high []byte, ancestor map[string][]message.Message) ([]RangeEntry, error) {
	n, err := t.store.Get(ref)
	if err != nil {
		return nil, err
	}

	if n.IsLeaf() {
		leaf, err := n.AsLeaf()
		if err != nil {
			return nil, err
		}

		entries := leaf.Range(low, high)
		out := make([]RangeEntry, 0, len(entries))
		for _, e := range entries {
			value := message.Value{}
			value.Set(append([]byte(nil), e.Value...))
			msgs := ancestor[string(e.Key)]
			for i := len(msgs) - 1; i >= 0; i-- {
				t.action.Apply(e.Key, msgs[i], &value)
			}
			out = append(out, RangeEntry{Key: append([]byte(nil), e.Key...), Value: value})
		}
		for k, msgs := range ancestor {
			if _, ok := leaf.Get([]byte(k)); ok {
				continue
			}
			value := message.Value{}
			for i := len(msgs) - 1; i >= 0; i-- {
				t.action.Apply([]byte(k), msgs[i], &value)
			}
			if value.Present {
				out = append(out, RangeEntry{Key: []byte(k), Value: value})
			}
		}
		sort.Slice(out, func(i, j int) bool { return bytes.Compare(out[i].Key, out[j].Key) < 0 })
		return out, nil
	}

	startIdx := n.Internal.ChildIndex(low)
	endIdx := n.Internal.ChildIndex(high)
	children := n.Internal.Children()

	var out []RangeEntry
	for i := startIdx; i <= endIdx && i < len(children); i++ {
		child := children[i]
		childAncestor := cloneMsgMap(ancestor)
		for _, be := range child.Buffer.Range(low, high) {
			childAncestor[string(be.Key)] = appendMsg(childAncestor[string(be.Key)], be.Msg)
		}

		sub, err := t.rangeNode(child.Ref, low, high, childAncestor)
		if err != nil {
			return nil, err
		}
		out = append(out, sub...)
	}
	return out, nil
}

func cloneMsgMap(m map[string][]message.Message) map[string][]message.Message {
	out := make(map[string][]message.Message, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func appendMsg(existing []message.Message, msg message.Message) []message.Message {
	out := make([]message.Message, len(existing)+1)
	copy(out, existing)
	out[len(existing)] = msg
	return out
}

// NodeIter walks every reachable node reference in the tree, root-first,
// and calls cb with each one. It is meant for external profiling sweeps
// (e.g. a migration scan deciding which nodes to move between tiers), not
// for serving reads, so it takes no snapshot of the tree and a concurrent
// mutation may cause it to see a node more than once or miss one entirely.
func (t *Tree) NodeIter(cb func(node.ObjectRef)) error {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.nodeIter(t.root, cb)
}

func (t *Tree) nodeIter(ref node.ObjectRef, cb func(node.ObjectRef)) error {
	cb(ref)

	n, err := t.store.Get(ref)
	if err != nil {
		return err
	}
	if n.IsLeaf() {
		return nil
	}

	for _, child := range n.Internal.Children() {
		if err := t.nodeIter(child.Ref, cb); err != nil {
			return err
		}
	}
	return nil
}

// Sync writes back every dirty cached node. The caller is responsible for
// persisting the returned root reference as part of a snapshot's metadata.
func (t *Tree) Sync() (node.ObjectRef, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.store.Sync(); err != nil {
		return node.Zero, err
	}
	return t.root, nil
}
