package handler

import "encoding/binary"

// StorageInfo is the per-disk space-accounting record the handler persists
// at the space-accounting key: two 64-bit little-endian block counts.
type StorageInfo struct {
	Free  uint64
	Total uint64
}

// PercentFree reports the fraction of the disk currently free, in [0, 1].
// A disk with Total == 0 reports 0 rather than dividing by zero.
func (s StorageInfo) PercentFree() float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(s.Free) / float64(s.Total)
}

// PercentFull is the complement of PercentFree.
func (s StorageInfo) PercentFull() float64 {
	return 1 - s.PercentFree()
}

// BlockOvershoot returns how many blocks the disk is over a given fullness
// threshold (e.g. 0.9 for 90%), or 0 if it is under threshold.
func (s StorageInfo) BlockOvershoot(threshold float64) uint64 {
	if s.Total == 0 {
		return 0
	}
	limit := uint64(float64(s.Total) * (1 - threshold))
	if s.Free >= limit {
		return 0
	}
	return limit - s.Free
}

func marshalStorageInfo(info StorageInfo) []byte {
	buf := make([]byte, 16)
	binary.LittleEndian.PutUint64(buf[0:8], info.Free)
	binary.LittleEndian.PutUint64(buf[8:16], info.Total)
	return buf
}

func unmarshalStorageInfo(raw []byte) StorageInfo {
	if len(raw) < 16 {
		return StorageInfo{}
	}
	return StorageInfo{
		Free:  binary.LittleEndian.Uint64(raw[0:8]),
		Total: binary.LittleEndian.Uint64(raw[8:16]),
	}
}
