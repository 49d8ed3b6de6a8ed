package block

// StoragePreference is a small total-ordered enum describing how eagerly a
// key's value should be placed on faster storage tiers. NONE defers to
// whatever the ambient default preference is at the point of use.
type StoragePreference uint8

const (
	// PreferenceNone defers to the ambient default preference.
	PreferenceNone StoragePreference = iota
	// PreferenceFastest requests the fastest available tier.
	PreferenceFastest
	// PreferenceFast requests a fast, but not fastest, tier.
	PreferenceFast
	// PreferenceSlow requests a slow tier.
	PreferenceSlow
	// PreferenceSlowest requests the slowest available tier.
	PreferenceSlowest
)

// rank maps a preference to its speed order, fastest first. NONE sorts as
// the least specific and therefore "slowest" when compared directly, since
// it carries no preference of its own; callers resolve NONE via Or before
// comparing.
var rank = map[StoragePreference]int{
	PreferenceFastest: 0,
	PreferenceFast:    1,
	PreferenceSlow:    2,
	PreferenceSlowest: 3,
	PreferenceNone:    4,
}

// String renders the preference for logging.
func (p StoragePreference) String() string {
	switch p {
	case PreferenceFastest:
		return "FASTEST"
	case PreferenceFast:
		return "FAST"
	case PreferenceSlow:
		return "SLOW"
	case PreferenceSlowest:
		return "SLOWEST"
	default:
		return "NONE"
	}
}

// Or returns p if it carries an explicit preference, otherwise fallback.
func (p StoragePreference) Or(fallback StoragePreference) StoragePreference {
	if p == PreferenceNone {
		return fallback
	}
	return p
}

// AsU8 encodes the preference as its wire byte, matching the storage
// pool's disk-count-by-tier indexing.
func (p StoragePreference) AsU8() uint8 {
	return uint8(p)
}

// ChooseFaster returns whichever of a, b requests the faster tier. NONE is
// treated as less preferred than any explicit tier.
func ChooseFaster(a, b StoragePreference) StoragePreference {
	if rank[a] <= rank[b] {
		return a
	}
	return b
}
