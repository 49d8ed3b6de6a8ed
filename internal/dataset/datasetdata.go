package dataset

import (
	"encoding/binary"

	"github.com/iamNilotpal/betree/internal/handler"
	"github.com/iamNilotpal/betree/internal/node"
)

// datasetData is the persistent root pointer and snapshot chain head stored
// at a dataset's datasetDataKey, mirroring the original's DatasetData.
type datasetData struct {
	ptr              node.ObjectRef
	previousSnapshot handler.Generation
	hasSnapshot      bool
}

// marshalDatasetData serializes ptr followed by an optional previous
// snapshot generation: an 8-byte root reference, a one-byte presence flag,
// and, if set, the 8-byte generation.
func marshalDatasetData(d datasetData) []byte {
	if !d.hasSnapshot {
		buf := make([]byte, 9)
		binary.LittleEndian.PutUint64(buf[0:8], uint64(d.ptr))
		return buf
	}

	buf := make([]byte, 17)
	binary.LittleEndian.PutUint64(buf[0:8], uint64(d.ptr))
	buf[8] = 1
	binary.LittleEndian.PutUint64(buf[9:17], uint64(d.previousSnapshot))
	return buf
}

func unmarshalDatasetData(raw []byte) (datasetData, bool) {
	if len(raw) < 9 {
		return datasetData{}, false
	}
	d := datasetData{ptr: node.ObjectRef(binary.LittleEndian.Uint64(raw[0:8]))}
	if raw[8] == 1 && len(raw) >= 17 {
		d.hasSnapshot = true
		d.previousSnapshot = handler.Generation(binary.LittleEndian.Uint64(raw[9:17]))
	}
	return d, true
}
