// Package node implements the B-epsilon tree's three node kinds — Leaf,
// Internal (with its per-child buffers), and Packed — plus the size and
// fanout bookkeeping the rebalance loop depends on.
package node

import "github.com/iamNilotpal/betree/pkg/block"

// KeyInfo is the per-entry metadata carried alongside every stored value
// and buffered message: currently just a storage tier preference.
type KeyInfo struct {
	Preference block.StoragePreference
}

// staticSize is KeyInfo's fixed on-disk footprint, one byte for the
// preference tag.
const staticSize = 1

// MergeWithUpper combines two KeyInfos bound for the same key, taking the
// faster-tier preference of the two.
func (k KeyInfo) MergeWithUpper(upper KeyInfo) KeyInfo {
	return KeyInfo{Preference: block.ChooseFaster(k.Preference, upper.Preference)}
}

// Size returns KeyInfo's footprint for node size bookkeeping.
func (KeyInfo) Size() int {
	return staticSize
}
