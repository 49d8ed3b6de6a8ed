// Package dataset is the thin router in front of the tree engine: it binds
// user-visible dataset names to DatasetIds in the root tree, enforces
// single-opener exclusivity, and relays Insert/Upsert/Delete/Migrate/Range
// calls from an opened Dataset down to its own tree. It never touches the
// allocator or storage directly.
package dataset

import "encoding/binary"

// Root-tree key namespace tags owned by the dataset router. Tags 2, 4 and 5
// belong to internal/handler (segment bitmap, dead list, space accounting)
// and must not be reused here.
//
// The external key layout names a literal "[3]" sentinel as the dataset-data
// scan's upper bound, but tags 1 and 2 (name binding, segment bitmap) would
// then fall inside the scanned range [ds_data_key(0), [3]) too, since
// ds_data_key(0) is an 8-byte all-zero key that sorts below any single-byte
// tag ≤ 3. Dataset-data keys are placed at tag 6 instead, with the scan
// sentinel one past it, so the range used by IterDatasets contains only
// dataset-data records.
const (
	tagNextDatasetId  byte = 0
	tagDatasetName    byte = 1
	tagDatasetData    byte = 6
	tagDatasetDataEnd byte = 7
)

// nextDatasetIdKey is the singleton key holding the last-allocated
// DatasetId.
func nextDatasetIdKey() []byte {
	return []byte{tagNextDatasetId}
}

// datasetNameKey binds a dataset's NFC-normalized name to its id.
func datasetNameKey(name string) []byte {
	return append([]byte{tagDatasetName}, []byte(name)...)
}

// datasetDataKey locates a dataset's DatasetData record (root pointer plus
// optional previous-snapshot generation).
func datasetDataKey(id uint64) []byte {
	key := make([]byte, 1+8)
	key[0] = tagDatasetData
	binary.BigEndian.PutUint64(key[1:9], id)
	return key
}

// datasetDataLowerBound is the inclusive start of a full dataset-data scan,
// the key for DatasetId 0.
func datasetDataLowerBound() []byte {
	return datasetDataKey(0)
}

// datasetScanUpperBound is the exclusive upper bound for a full
// dataset-data range scan.
func datasetScanUpperBound() []byte {
	return []byte{tagDatasetDataEnd}
}
