package heap

// sizeclass.go implements the fixed size-class table of §3 and the
// classify function of §4.1. The table itself is a contract, not a
// tunable: unlike the teacher's Blocksizes (malloc/util.go), which
// grows a geometric ladder to hit a configurable MEMUtilization
// ratio, the bands and strides here are fixed by the spec and must
// never move, so classify is table-driven range dispatch instead of
// a binary search over a generated slice.

type sizeband struct {
	limit    int64 // upper bound (inclusive) of this band
	chunking int64 // stride within this band
	base     int64 // class_index of the first size in this band
	end      int64 // class_index of the last size in this band
	baseSize int64 // smallest size that maps into this band
}

// bands mirrors the table in spec §3 exactly. Note that band
// (128-255) spans 9 chunking-16 rounded sizes (128..256) but the
// spec's own table only budgets 6 indices (12-17) to it, and every
// band from there up has the same shortfall. classify honors the
// literal index span by clamping: once the offset implied by
// chunking reaches end, the index saturates at end and the rounded
// size becomes the band's top size (limit+1), so every class still
// has exactly one chunk size and every zone of that class holds
// chunks large enough for any request mapped to it.
var bands = []sizeband{
	{limit: 15, chunking: 8, base: 0, end: 1, baseSize: 1},
	{limit: 127, chunking: 16, base: 3, end: 10, baseSize: 16},
	{limit: 255, chunking: 16, base: 12, end: 17, baseSize: 128},
	{limit: 511, chunking: 32, base: 23, end: 30, baseSize: 256},
	{limit: 1023, chunking: 64, base: 31, end: 38, baseSize: 512},
	{limit: 2047, chunking: 128, base: 39, end: 46, baseSize: 1024},
	{limit: 4095, chunking: 256, base: 47, end: 54, baseSize: 2048},
	{limit: 8191, chunking: 512, base: 55, end: 62, baseSize: 4096},
	{limit: 16383, chunking: 1024, base: 63, end: 70, baseSize: 8192},
}

// classify maps size to (class_index, rounded_size, chunking) per
// §4.1. The caller must have already normalized size to at least 1
// and confirmed size < ZoneLimit (oversized/page-aligned requests
// bypass classify entirely and go to the big path).
func classify(size int64) (classIndex int, rounded int64, chunking int64) {
	for _, b := range bands {
		if size <= b.limit {
			chunking = b.chunking
			rounded = roundUp(size, chunking)
			idx := b.base + (rounded-b.baseSize)/chunking
			if idx >= b.end {
				idx = b.end
				rounded = roundUp(b.limit, chunking)
			}
			classIndex = int(idx)
			return classIndex, rounded, chunking
		}
	}
	panicerr("classify: size %v exceeds zone limit", size)
	return 0, 0, 0
}

// isOversized reports whether size must bypass the slab engine per
// §4.1: size at or above the zone limit, or an exact multiple of the
// page size larger than MaxSlabPageAlign.
func isOversized(size int64) bool {
	if size >= ZoneLimit {
		return true
	}
	return size%PageSize == 0 && size > MaxSlabPageAlign
}

func roundUp(n, multiple int64) int64 {
	if multiple == 0 {
		return n
	}
	rem := n % multiple
	if rem == 0 {
		return n
	}
	return n + (multiple - rem)
}

// magazineCapacity implements nmalloc.c's zonecapacity() formula
// verbatim: `(NZONES - zoneIndex) * (M_MAX_ROUNDS - M_MIN_ROUNDS) /
// NZONES + M_MIN_ROUNDS`, M_MAX_ROUNDS at class 0 down toward (not
// exactly reaching, by integer division, same as the original)
// M_MIN_ROUNDS at the largest class. There is no teacher equivalent —
// the teacher's pools are capacity-unbounded — so this is grounded on
// the original source this spec distills rather than a pack library.
func magazineCapacity(classIndex int) int {
	span := MMaxRounds - MMinRounds
	capacity := (NZones-classIndex)*span/NZones + MMinRounds
	if capacity < MMinRounds {
		capacity = MMinRounds
	}
	return capacity
}
