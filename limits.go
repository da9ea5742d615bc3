package opc

type Limits struct {
	MaxEntries            int
	MaxEntrySize          uint64 // uncompressed bytes of a single entry
	MaxTotalUncompressed  uint64 // sum of uncompressed bytes across entries
	MaxManifestCompressed uint64 // stored manifest payload length
	MaxManifestSize       uint64 // manifest JSON bytes after decompression
}

func defaultLimits() Limits {
	return Limits{
		MaxEntries:            65_535,
		MaxEntrySize:          512 << 20, // 512 MiB
		MaxTotalUncompressed:  2 << 30,   // 2 GiB
		MaxManifestCompressed: 256 << 20,
		MaxManifestSize:       256 << 20,
	}
}

// DefaultLimits returns the limits applied when no WithReadLimits option is given.
func DefaultLimits() Limits {
	return defaultLimits()
}

func (l Limits) withDefaults() Limits {
	d := defaultLimits()
	if l.MaxEntries == 0 {
		l.MaxEntries = d.MaxEntries
	}
	if l.MaxEntrySize == 0 {
		l.MaxEntrySize = d.MaxEntrySize
	}
	if l.MaxTotalUncompressed == 0 {
		l.MaxTotalUncompressed = d.MaxTotalUncompressed
	}
	if l.MaxManifestCompressed == 0 {
		l.MaxManifestCompressed = d.MaxManifestCompressed
	}
	if l.MaxManifestSize == 0 {
		l.MaxManifestSize = d.MaxManifestSize
	}
	return l
}
