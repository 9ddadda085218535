package heap

import "fmt"

import "github.com/BurntSushi/toml"

import "github.com/bnclabs/slabheap/internal/lib"

// Settings is a loosely typed configuration map, kept identical in
// shape to the teacher package's lib.Settings: section/trim/filter by
// key prefix, mixin to override, typed accessors that panic on a
// missing or mistyped key.
type Settings = lib.Settings

// PageSize is the native page size used throughout §3/§4. 4096 covers
// every platform the VM adapter targets, and the zone layout math
// assumes this constant. internal/vmem probes the real OS page size
// into vmem.PageSize at init; nothing compares it with this constant.
const PageSize = int64(4096)

// ZoneSize is the fixed, ZoneSize-aligned size of a slab zone (§3).
const ZoneSize = int64(65536)

// ZonePageCount is the number of native pages inside one zone.
const ZonePageCount = ZoneSize / PageSize

// ZoneLimit is the largest request the slab engine will serve; at or
// above this the big-allocation path takes over (§4.1).
const ZoneLimit = int64(16 * 1024)

// MaxSlabPageAlign is the largest power-of-two request the slab
// engine will align by construction (§4.1, §4.8).
const MaxSlabPageAlign = 2 * PageSize

// NZones is the number of size-classes in the table (§3).
const NZones = 72

// MMaxRounds / MMinRounds bound magazine_capacity's linear ramp (§3).
const MMaxRounds = 509
const MMinRounds = 16

// MZoneHysteresis is how many zones are drained to the VM adapter at
// once when the zone magazine is full and another zone must be
// released (§3, §4.7).
const MZoneHysteresis = 32

// BigHashSize is the number of buckets in the bigalloc hash table.
const BigHashSize = 1024

// BigShardSize is the number of spinlocks sharding the bigalloc hash
// table (§3, §5).
const BigShardSize = 64

// BigcacheSlots is the number of reuse slots in the bigcache (§3).
const BigcacheSlots = 16

// BigcacheLimit is the largest size a freed bigalloc may be stashed
// in the bigcache instead of returned to the VM adapter (§3).
const BigcacheLimit = int64(1 * 1024 * 1024)

// BigcacheExcess is the excess-byte threshold that triggers a sweep
// of the bigalloc table (§3, §4.6).
const BigcacheExcess = int64(16 * 1024 * 1024)

// CacheChunks bounds how many extra chunks a single zone-list
// operation may bulk-fill into a caller's loaded magazine (§4.2).
const CacheChunks = 32

// AllocFlag values name the allocation flags of §4.2. No function in
// this package takes or stores an AllocFlag: zero-filling comes from
// Calloc and Options.ZeroAlways.
type AllocFlag int

const (
	// FlagZero requests a zero-filled region.
	FlagZero AllocFlag = 1 << iota
	// FlagPassive names a zone's "freshly used" provenance bit. It is
	// not set on zoneHeader.flags (formatZone always writes 0) and no
	// branch reads it.
	FlagPassive
	// FlagMagsInternal marks an allocation made to service the
	// magazine cache itself, so it must not recurse back into the
	// magazine cache (§4.4).
	FlagMagsInternal
)

// Defaultsettings returns the tuning defaults, mirroring the shape of
// the teacher's malloc.Defaultsettings.
func Defaultsettings() Settings {
	return Settings{
		"zone.size":       ZoneSize,
		"zone.limit":      ZoneLimit,
		"bigcache.limit":  BigcacheLimit,
		"bigcache.excess": BigcacheExcess,
		"options":         "",
	}
}

// Options holds the parsed form of the §6 tuning-option string.
type Options struct {
	Trace      bool // U / u
	ZeroAlways bool // Z / z
	PageHint   bool // H / h
	AutoExcess bool // A / a — scale the bigcache excess threshold off free system RAM
}

// ParseOptions recognizes the single-character tuning options of §6;
// unknown characters are ignored, matching the spec's "unknown chars
// ignored" contract.
func ParseOptions(s string) Options {
	var o Options
	for _, r := range s {
		switch r {
		case 'U':
			o.Trace = true
		case 'u':
			o.Trace = false
		case 'Z':
			o.ZeroAlways = true
		case 'z':
			o.ZeroAlways = false
		case 'H':
			o.PageHint = true
		case 'h':
			o.PageHint = false
		case 'A':
			o.AutoExcess = true
		case 'a':
			o.AutoExcess = false
		}
	}
	return o
}

// tomlTuning mirrors Options, as an alternative to the inline §6
// option string for embedders that keep their tuning in a config
// file alongside the rest of their service configuration.
type tomlTuning struct {
	Trace      bool `toml:"trace"`
	ZeroAll    bool `toml:"zero_always"`
	PageHint   bool `toml:"page_hint"`
	AutoExcess bool `toml:"auto_excess"`
}

// LoadTuning parses a TOML file into Options. It supplements §6's
// option string, it does not replace it.
func LoadTuning(path string) (Options, error) {
	var t tomlTuning
	if _, err := toml.DecodeFile(path, &t); err != nil {
		return Options{}, err
	}
	return Options{Trace: t.Trace, ZeroAlways: t.ZeroAll, PageHint: t.PageHint, AutoExcess: t.AutoExcess}, nil
}

func panicerr(format string, args ...interface{}) {
	panic(fmt.Errorf(format, args...))
}
