package node

import (
	"encoding/binary"
	"fmt"

	"github.com/iamNilotpal/betree/internal/message"
	"github.com/iamNilotpal/betree/pkg/errors"
)

// Marshal encodes n into a self-describing byte slice for writing to the
// object store. Packed leaves are serialized in their existing packed form;
// live leaves are packed first.
func Marshal(n *Node) ([]byte, error) {
	switch n.Kind {
	case KindLeaf:
		body := Pack(n.Leaf).Bytes()
		return append([]byte{byte(KindLeaf)}, body...), nil
	case KindPacked:
		return append([]byte{byte(KindLeaf)}, n.Packed.Bytes()...), nil
	case KindInternal:
		return append([]byte{byte(KindInternal)}, marshalInternal(n.Internal)...), nil
	default:
		return nil, errors.NewTreeError(nil, errors.ErrorCodeInternal,
			fmt.Sprintf("cannot marshal kind %s", n.Kind)).WithOperation("node.marshal")
	}
}

// Unmarshal decodes a byte slice produced by Marshal back into a Node.
// Leaves are returned in their Packed form, matching on-disk laziness:
// callers needing live access call AsLeaf.
func Unmarshal(raw []byte) (*Node, error) {
	if len(raw) < 1 {
		return nil, errors.NewTreeError(nil, errors.ErrorCodeInternal, "empty image").WithOperation("node.unmarshal")
	}

	switch Kind(raw[0]) {
	case KindLeaf:
		n := WrapPacked(NewPacked(append([]byte(nil), raw[1:]...)))
		return &n, nil
	case KindInternal:
		internal, err := unmarshalInternal(raw[1:])
		if err != nil {
			return nil, err
		}
		n := WrapInternal(internal)
		return &n, nil
	default:
		return nil, errors.NewTreeError(nil, errors.ErrorCodeInternal,
			fmt.Sprintf("unknown kind tag %d", raw[0])).WithOperation("node.unmarshal")
	}
}

func marshalInternal(n *Internal) []byte {
	var buf []byte
	buf = appendUint32(buf, uint32(len(n.pivots)))
	for _, p := range n.pivots {
		buf = appendUint32(buf, uint32(len(p)))
		buf = append(buf, p...)
	}

	buf = appendUint32(buf, uint32(len(n.children)))
	for _, c := range n.children {
		var refBuf [8]byte
		binary.BigEndian.PutUint64(refBuf[:], uint64(c.Ref))
		buf = append(buf, refBuf[:]...)
		buf = marshalBuffer(buf, c.Buffer)
	}

	return buf
}

func marshalBuffer(buf []byte, b *ChildBuffer) []byte {
	entries := b.Entries()
	buf = appendUint32(buf, uint32(len(entries)))
	for _, e := range entries {
		buf = appendUint32(buf, uint32(len(e.Key)))
		buf = append(buf, e.Key...)
		buf = append(buf, e.Info.Preference.AsU8())

		msgBytes := message.Marshal(e.Msg)
		buf = appendUint32(buf, uint32(len(msgBytes)))
		buf = append(buf, msgBytes...)
	}
	return buf
}

func unmarshalInternal(raw []byte) (*Internal, error) {
	off := 0

	if off+4 > len(raw) {
		return nil, errors.NewTreeError(nil, errors.ErrorCodeInternal, "truncated pivot count").WithOperation("node.unmarshalInternal")
	}
	pivotCount := binary.BigEndian.Uint32(raw[off : off+4])
	off += 4

	pivots := make([][]byte, 0, pivotCount)
	for i := uint32(0); i < pivotCount; i++ {
		p, n, err := readBytes32(raw, off)
		if err != nil {
			return nil, err
		}
		pivots = append(pivots, p)
		off = n
	}

	if off+4 > len(raw) {
		return nil, errors.NewTreeError(nil, errors.ErrorCodeInternal, "truncated child count").WithOperation("node.unmarshalInternal")
	}
	childCount := binary.BigEndian.Uint32(raw[off : off+4])
	off += 4

	children := make([]Child, 0, childCount)
	for i := uint32(0); i < childCount; i++ {
		if off+8 > len(raw) {
			return nil, errors.NewTreeError(nil, errors.ErrorCodeInternal, "truncated child ref").WithOperation("node.unmarshalInternal")
		}
		ref := ObjectRef(binary.BigEndian.Uint64(raw[off : off+8]))
		off += 8

		buffer, n, err := unmarshalBuffer(raw, off)
		if err != nil {
			return nil, err
		}
		off = n

		children = append(children, Child{Ref: ref, Buffer: buffer})
	}

	return &Internal{pivots: pivots, children: children}, nil
}

func unmarshalBuffer(raw []byte, off int) (*ChildBuffer, int, error) {
	if off+4 > len(raw) {
		return nil, 0, errors.NewTreeError(nil, errors.ErrorCodeInternal, "truncated entry count").WithOperation("node.unmarshalBuffer")
	}
	count := binary.BigEndian.Uint32(raw[off : off+4])
	off += 4

	buffer := NewChildBuffer()
	for i := uint32(0); i < count; i++ {
		key, n, err := readBytes32(raw, off)
		if err != nil {
			return nil, 0, err
		}
		off = n

		if off >= len(raw) {
			return nil, 0, errors.NewTreeError(nil, errors.ErrorCodeInternal, "truncated preference byte").WithOperation("node.unmarshalBuffer")
		}
		pref := asPreference(raw[off])
		off++

		msgBytes, n, err := readBytes32(raw, off)
		if err != nil {
			return nil, 0, err
		}
		off = n

		msg, _, err := message.Unmarshal(msgBytes)
		if err != nil {
			return nil, 0, err
		}

		entry := BufferEntry{Key: key, Info: KeyInfo{Preference: pref}, Msg: msg}
		buffer.entries = append(buffer.entries, entry)
		buffer.size += entry.size()
	}

	return buffer, off, nil
}
