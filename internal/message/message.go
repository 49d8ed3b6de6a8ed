// Package message implements the opaque write messages deposited into leaf
// and child-buffer slots by tree inserts, and the MessageAction that later
// folds them into a value. A child buffer holds at most one (possibly
// already-merged) message per key; Merge combines a newly arriving message
// with whatever already occupies that slot so the buffer never needs more
// than one entry per key. Get/Range then fold at most one message per tree
// level visited, in reverse path order (deepest buffer first, root buffer
// last), using Apply.
package message

import (
	"github.com/iamNilotpal/betree/pkg/block"
	"github.com/iamNilotpal/betree/pkg/errors"
)

// Kind discriminates the payload carried by a Message.
type Kind uint8

const (
	// KindInsert replaces the value outright.
	KindInsert Kind = iota
	// KindUpsert patches a byte range of the value, zero-padding the value
	// if the patch extends past its current length.
	KindUpsert
	// KindDelete removes the value.
	KindDelete
	// KindNoop carries no value change, only a StoragePreference hint
	// (used by migrate to nudge a key onto a different storage tier).
	KindNoop
)

// String renders the kind for logging.
func (k Kind) String() string {
	switch k {
	case KindInsert:
		return "insert"
	case KindUpsert:
		return "upsert"
	case KindDelete:
		return "delete"
	case KindNoop:
		return "noop"
	default:
		return "unknown"
	}
}

// Patch is a single zero-padded byte-range write applied by an upsert
// message, in the order it must be replayed.
type Patch struct {
	Offset uint32
	Data   []byte
}

func (p Patch) size() int {
	return 4 + len(p.Data)
}

// Message is the unit of work a tree insert deposits at a leaf or child
// buffer. It stays under MaxMessageSize, enforced by New*.
type Message struct {
	Kind       Kind
	Value      []byte // KindInsert payload.
	Patches    []Patch
	Preference block.StoragePreference
}

// Size estimates the message's footprint for buffer/node size bookkeeping.
// It does not need to be exact, only monotonic in payload size.
func (m Message) Size() int {
	size := 1 // Kind tag.
	size += len(m.Value)
	for _, p := range m.Patches {
		size += p.size()
	}
	return size
}

// NewInsert builds a message that replaces the value outright.
func NewInsert(value []byte, pref block.StoragePreference, maxSize int) (Message, error) {
	m := Message{Kind: KindInsert, Value: value, Preference: pref}
	return validate(m, maxSize)
}

// NewUpsert builds a message that writes data at offset, zero-padding the
// value if necessary.
func NewUpsert(offset uint32, data []byte, pref block.StoragePreference, maxSize int) (Message, error) {
	m := Message{
		Kind:       KindUpsert,
		Patches:    []Patch{{Offset: offset, Data: data}},
		Preference: pref,
	}
	return validate(m, maxSize)
}

// NewDelete builds a message that removes the value.
func NewDelete() Message {
	return Message{Kind: KindDelete}
}

// NewNoop builds a preference-only message, used by migrate to relocate a
// key's hosting leaf onto a different storage tier without touching its
// value.
func NewNoop(pref block.StoragePreference) Message {
	return Message{Kind: KindNoop, Preference: pref}
}

func validate(m Message, maxSize int) (Message, error) {
	if size := m.Size(); size > maxSize {
		return Message{}, errors.NewMessageTooLargeError(size, maxSize)
	}
	return m, nil
}

// Value is the mutable fold target MessageAction.Apply updates, mirroring
// an Option<value>: Present distinguishes "key deleted/never set" from
// "key set to an empty byte string".
type Value struct {
	Present bool
	Data    []byte
}

// Clear marks the value absent.
func (v *Value) Clear() {
	v.Present = false
	v.Data = nil
}

// Set marks the value present with the given bytes.
func (v *Value) Set(data []byte) {
	v.Present = true
	v.Data = data
}

// Action is a pure function folding a message into the current value. It
// has exactly two laws it must uphold:
//
//   - Applying Insert to any value (present or absent) yields that value.
//   - Applying Delete to any value yields an absent value.
//
// Associativity of fold (Apply(m2, Apply(m1, v)) == Apply(Merge(m1,m2), v))
// is required of Merge, not Apply, and is exercised by this package's tests.
type Action interface {
	Apply(key []byte, msg Message, value *Value)
	Merge(key []byte, older, newer Message) Message
}

// DefaultAction is the reference MessageAction: Insert/Delete/Upsert behave
// as described in Kind's docs, and Noop is a pure no-op on the value.
type DefaultAction struct{}

var _ Action = DefaultAction{}

// Apply folds msg into value in place.
func (DefaultAction) Apply(_ []byte, msg Message, value *Value) {
	switch msg.Kind {
	case KindInsert:
		value.Set(append([]byte(nil), msg.Value...))
	case KindDelete:
		value.Clear()
	case KindUpsert:
		base := value.Data
		if !value.Present {
			base = nil
		}
		base = applyPatches(base, msg.Patches)
		value.Set(base)
	case KindNoop:
		// Preference-only; no value change.
	}
}

// applyPatches replays patches in order against base, zero-padding base as
// needed so every patch's range is in bounds.
func applyPatches(base []byte, patches []Patch) []byte {
	for _, p := range patches {
		end := int(p.Offset) + len(p.Data)
		if end > len(base) {
			grown := make([]byte, end)
			copy(grown, base)
			base = grown
		}
		copy(base[p.Offset:], p.Data)
	}
	return base
}

// Merge combines a newly arriving message with whatever already occupies a
// buffer slot for the same key, producing the single message that slot
// should hold going forward. Merge must satisfy
// Apply(Merge(older, newer), v) == Apply(newer, Apply(older, v)).
func (a DefaultAction) Merge(key []byte, older, newer Message) Message {
	switch newer.Kind {
	case KindInsert, KindDelete:
		// Newer fully determines the value regardless of older; older is
		// superseded outright.
		return newer
	case KindNoop:
		// Noop never changes the value; keep whichever message already
		// governs it, folding in the newer preference hint.
		merged := older
		merged.Preference = block.ChooseFaster(older.Preference, newer.Preference)
		return merged
	case KindUpsert:
		switch older.Kind {
		case KindDelete:
			// older wipes the value to absent regardless of whatever came
			// before it, so newer's patches apply against a known-empty
			// base: resolve to a concrete Insert rather than leaving an
			// Upsert that would read whatever value happens to be in
			// place when the merged message is eventually applied.
			value := &Value{}
			a.Apply(key, newer, value)
			return Message{Kind: KindInsert, Value: value.Data, Preference: newer.Preference}
		case KindNoop:
			// older leaves the value untouched, so newer's patches apply
			// against whatever base is current at apply time: newer alone
			// is the correct merged message.
			merged := newer
			merged.Preference = block.ChooseFaster(older.Preference, newer.Preference)
			return merged
		case KindInsert:
			// Resolve immediately: apply newer's patches to older's known
			// value, producing a single Insert.
			value := &Value{}
			a.Apply(key, older, value)
			a.Apply(key, newer, value)
			return Message{Kind: KindInsert, Value: value.Data, Preference: block.ChooseFaster(older.Preference, newer.Preference)}
		case KindUpsert:
			merged := Message{
				Kind:       KindUpsert,
				Patches:    append(append([]Patch(nil), older.Patches...), newer.Patches...),
				Preference: block.ChooseFaster(older.Preference, newer.Preference),
			}
			return merged
		}
	}
	return newer
}
