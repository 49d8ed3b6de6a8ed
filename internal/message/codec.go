package message

import (
	"encoding/binary"
	"fmt"

	"github.com/iamNilotpal/betree/pkg/block"
)

// Marshal encodes m into a self-describing byte slice suitable for
// persisting inside a child-buffer entry on disk.
func Marshal(m Message) []byte {
	buf := make([]byte, 0, m.Size()+16)
	buf = append(buf, byte(m.Kind), m.Preference.AsU8())
	buf = appendUint32(buf, uint32(len(m.Value)))
	buf = append(buf, m.Value...)
	buf = appendUint32(buf, uint32(len(m.Patches)))
	for _, p := range m.Patches {
		buf = appendUint32(buf, p.Offset)
		buf = appendUint32(buf, uint32(len(p.Data)))
		buf = append(buf, p.Data...)
	}
	return buf
}

// Unmarshal decodes a byte slice produced by Marshal.
func Unmarshal(raw []byte) (Message, int, error) {
	if len(raw) < 2 {
		return Message{}, 0, fmt.Errorf("message: truncated header")
	}

	m := Message{Kind: Kind(raw[0]), Preference: block.StoragePreference(raw[1])}
	off := 2

	value, off2, err := readBytes32(raw, off)
	if err != nil {
		return Message{}, 0, err
	}
	if len(value) > 0 {
		m.Value = value
	}
	off = off2

	if off+4 > len(raw) {
		return Message{}, 0, fmt.Errorf("message: truncated patch count")
	}
	patchCount := binary.BigEndian.Uint32(raw[off : off+4])
	off += 4

	for i := uint32(0); i < patchCount; i++ {
		if off+4 > len(raw) {
			return Message{}, 0, fmt.Errorf("message: truncated patch offset")
		}
		patchOffset := binary.BigEndian.Uint32(raw[off : off+4])
		off += 4

		data, off2, err := readBytes32(raw, off)
		if err != nil {
			return Message{}, 0, err
		}
		off = off2

		m.Patches = append(m.Patches, Patch{Offset: patchOffset, Data: data})
	}

	return m, off, nil
}

func appendUint32(buf []byte, v uint32) []byte {
	var tmp [4]byte
	binary.BigEndian.PutUint32(tmp[:], v)
	return append(buf, tmp[:]...)
}

func readBytes32(raw []byte, off int) ([]byte, int, error) {
	if off+4 > len(raw) {
		return nil, 0, fmt.Errorf("message: truncated length")
	}
	n := binary.BigEndian.Uint32(raw[off : off+4])
	off += 4
	if off+int(n) > len(raw) {
		return nil, 0, fmt.Errorf("message: truncated payload")
	}
	return raw[off : off+int(n)], off + int(n), nil
}
