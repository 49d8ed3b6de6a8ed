package node

import (
	"encoding/binary"
	"fmt"

	"github.com/iamNilotpal/betree/pkg/block"
	"github.com/iamNilotpal/betree/pkg/errors"
)

func asPreference(b byte) block.StoragePreference {
	return block.StoragePreference(b)
}

// Packed is a serialized, read-only form of a leaf: Node.AsLeaf unpacks it,
// in place, into a live Leaf the first time the leaf is read or mutated, and
// Marshal packs live leaves again when they are written out. It exists to let cold, never-written leaves sit on disk in a denser
// encoding than the live Leaf representation.
type Packed struct {
	raw []byte
}

// NewPacked wraps an already-encoded leaf image. Use Pack to build one
// from a live Leaf.
func NewPacked(raw []byte) *Packed {
	return &Packed{raw: raw}
}

// Size returns the packed image's byte length.
func (p *Packed) Size() int {
	return len(p.raw)
}

// Bytes returns the packed image.
func (p *Packed) Bytes() []byte {
	return p.raw
}

// Pack serializes a Leaf into its packed form: a count-prefixed sequence of
// (keyLen, key, preference, valueLen, value) records.
func Pack(l *Leaf) *Packed {
	buf := make([]byte, 0, l.Size()+4)
	var countBuf [4]byte
	binary.BigEndian.PutUint32(countBuf[:], uint32(l.Len()))
	buf = append(buf, countBuf[:]...)

	for _, e := range l.Entries() {
		buf = appendUint32(buf, uint32(len(e.Key)))
		buf = append(buf, e.Key...)
		buf = append(buf, e.Info.Preference.AsU8())
		buf = appendUint32(buf, uint32(len(e.Value)))
		buf = append(buf, e.Value...)
	}
	return &Packed{raw: buf}
}

// Unpack materializes the packed image back into a live Leaf.
func (p *Packed) Unpack() (*Leaf, error) {
	leaf := NewLeaf()
	if len(p.raw) < 4 {
		return nil, errors.NewTreeError(nil, errors.ErrorCodeInternal,
			fmt.Sprintf("packed leaf image truncated: %d bytes", len(p.raw))).WithOperation("node.unpack")
	}

	count := binary.BigEndian.Uint32(p.raw[:4])
	off := 4
	for i := uint32(0); i < count; i++ {
		key, n, err := readBytes32(p.raw, off)
		if err != nil {
			return nil, err
		}
		off = n

		if off >= len(p.raw) {
			return nil, errors.NewTreeError(nil, errors.ErrorCodeInternal,
				"packed leaf image truncated reading preference").WithOperation("node.unpack")
		}
		pref := p.raw[off]
		off++

		value, n, err := readBytes32(p.raw, off)
		if err != nil {
			return nil, err
		}
		off = n

		leaf.Put(key, KeyInfo{Preference: asPreference(pref)}, value)
	}
	return leaf, nil
}

func appendUint32(buf []byte, v uint32) []byte {
	var tmp [4]byte
	binary.BigEndian.PutUint32(tmp[:], v)
	return append(buf, tmp[:]...)
}

func readBytes32(raw []byte, off int) ([]byte, int, error) {
	if off+4 > len(raw) {
		return nil, 0, errors.NewTreeError(nil, errors.ErrorCodeInternal,
			"packed leaf image truncated reading length").WithOperation("node.readBytes32")
	}
	n := binary.BigEndian.Uint32(raw[off : off+4])
	off += 4
	if off+int(n) > len(raw) {
		return nil, 0, errors.NewTreeError(nil, errors.ErrorCodeInternal,
			"packed leaf image truncated reading payload").WithOperation("node.readBytes32")
	}
	return raw[off : off+int(n)], off + int(n), nil
}
