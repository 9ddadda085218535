package heap

import "unsafe"

import "github.com/cloudfoundry/gosigar"
import "github.com/dustin/go-humanize"

import "github.com/bnclabs/slabheap/internal/api"
import "github.com/bnclabs/slabheap/internal/lib"

// stats.go wires Heap into the teacher's Mallocer contract
// (internal/api.Mallocer) and adds the accounting operations §9
// reserves for an embedder's monitoring: a live-allocation size
// histogram (lib.HistogramInt64, unused elsewhere in this package
// until now) and a popcount over which size classes currently hold at
// least one zone (lib.Bit32, ditto).
var _ api.Mallocer = (*Heap)(nil)

var classSizes = computeClassSizes()

func computeClassSizes() [NZones]int64 {
	var sizes [NZones]int64
	var seen [NZones]bool
	for size := int64(1); size < ZoneLimit; size++ {
		idx, rounded, _ := classify(size)
		if !seen[idx] {
			sizes[idx] = rounded
			seen[idx] = true
		}
	}
	return sizes
}

// Slabs reports the rounded chunk size each size class serves. Class
// indices that classify never produces report 0.
func (h *Heap) Slabs() []int64 {
	out := make([]int64, NZones)
	copy(out, classSizes[:])
	return out
}

// Alloc satisfies api.Mallocer by borrowing a pooled ThreadCache for
// the call, same as the package-level Malloc function.
func (h *Heap) Alloc(n int64) unsafe.Pointer {
	var p unsafe.Pointer
	h.withCache(func(tc *ThreadCache) { p = tc.Malloc(n) })
	return p
}

// Allocslab allocates exactly one chunk of the named slab size.
func (h *Heap) Allocslab(slab int64) unsafe.Pointer {
	return h.Alloc(slab)
}

// Slabsize reports the slab/page size backing ptr.
func (h *Heap) Slabsize(ptr unsafe.Pointer) int64 {
	return h.Chunklen(ptr)
}

// Chunklen reports how many bytes ptr's backing region spans.
func (h *Heap) Chunklen(ptr unsafe.Pointer) int64 {
	var n int64
	h.withCache(func(tc *ThreadCache) { n = tc.UsableSize(ptr) })
	return n
}

// Free satisfies api.Mallocer.
func (h *Heap) Free(ptr unsafe.Pointer) {
	h.withCache(func(tc *ThreadCache) { tc.Free(ptr) })
}

// Info reports coarse accounting: capacity is every byte currently
// mapped in from the OS (zones + big regions), alloc is the subset of
// that actually handed out to callers, overhead is the difference.
func (h *Heap) Info() (capacity, heapBytes, alloc, overhead int64) {
	for i := range h.classes {
		cs := &h.classes[i]
		cs.lock.Lock()
		addr := cs.zoneHead
		for addr != 0 {
			z := zoneAt(addr)
			capacity += ZoneSize
			alloc += (z.nMax - z.nFree) * z.chunkSize
			addr = z.next
		}
		cs.lock.Unlock()
	}
	for shard := range h.bigLocks {
		h.bigLocks[shard].Lock()
	}
	for bucket := range h.bigTable {
		for rec := h.bigTable[bucket]; rec != nil; rec = rec.next {
			capacity += rec.bytes
			alloc += rec.active
		}
	}
	for shard := range h.bigLocks {
		h.bigLocks[shard].Unlock()
	}
	heapBytes = capacity
	overhead = capacity - alloc
	return capacity, heapBytes, alloc, overhead
}

// Utilization reports, per size class, how many chunks are in use and
// what fraction of the class's carved chunks that represents.
func (h *Heap) Utilization() ([]int, []float64) {
	inuse := make([]int, NZones)
	ratio := make([]float64, NZones)
	for i := range h.classes {
		cs := &h.classes[i]
		cs.lock.Lock()
		var used, total int64
		addr := cs.zoneHead
		for addr != 0 {
			z := zoneAt(addr)
			used += z.nMax - z.nFree
			total += z.nMax
			addr = z.next
		}
		cs.lock.Unlock()
		inuse[i] = int(used)
		if total > 0 {
			ratio[i] = float64(used) / float64(total)
		}
	}
	return inuse, ratio
}

// SizeHistogram samples every live slab allocation's chunk size into a
// histogram bucketed across the size-class range. Walking every zone
// under its class lock is O(live zones), the same cost Info/Utilization
// already pay; this is a diagnostics entry point, not a hot path.
func (h *Heap) SizeHistogram() *lib.HistogramInt64 {
	hist := lib.NewhistorgramInt64(1, ZoneLimit, 64)
	for i := range h.classes {
		cs := &h.classes[i]
		cs.lock.Lock()
		addr := cs.zoneHead
		for addr != 0 {
			z := zoneAt(addr)
			used := z.nMax - z.nFree
			for n := int64(0); n < used; n++ {
				hist.Add(z.chunkSize)
			}
			addr = z.next
		}
		cs.lock.Unlock()
	}
	return hist
}

// DebugString renders a snapshot of Info/Utilization/ActiveClassCount
// as pretty-printed JSON, for ad hoc inspection in a debugger or log
// line — not meant to be parsed back.
func (h *Heap) DebugString() string {
	capacity, _, alloc, overhead := h.Info()
	inuse, _ := h.Utilization()
	total := 0
	for _, n := range inuse {
		total += n
	}
	return lib.Prettystats(map[string]interface{}{
		"capacity":       capacity,
		"alloc":          alloc,
		"overhead":       overhead,
		"live_chunks":    total,
		"active_classes": h.ActiveClassCount(),
	}, true)
}

// SystemMemoryInfo reports the host's total/used/free physical RAM via
// gosigar, the same probe the teacher's llrb/config.go and
// bogn/config.go use to size their arenas off free system memory.
// SizeBigcacheExcess uses it to scale the excess-sweep threshold,
// which addExcess applies in place of BigcacheExcess only when
// Options.AutoExcess is set.
func (h *Heap) SystemMemoryInfo() (total, used, free uint64) {
	mem := sigar.Mem{}
	mem.Get()
	return mem.Total, mem.Used, mem.Free
}

// SizeBigcacheExcess picks an excess-byte sweep threshold proportional
// to free system RAM (1/1024th of it), never below the built-in
// BigcacheExcess constant, and falling back to that constant on any
// gosigar read that reports zero.
func (h *Heap) SizeBigcacheExcess() int64 {
	_, _, free := h.SystemMemoryInfo()
	if free == 0 {
		return BigcacheExcess
	}
	scaled := int64(free / 1024)
	if scaled < BigcacheExcess {
		return BigcacheExcess
	}
	return scaled
}

// HumanCapacity renders Info()'s byte counts the way the teacher's
// llrb/stats.go humanizes its own log fields, for a log line or a
// terminal dump rather than machine parsing.
func (h *Heap) HumanCapacity() string {
	capacity, _, alloc, overhead := h.Info()
	return "capacity=" + humanize.Bytes(uint64(capacity)) +
		" alloc=" + humanize.Bytes(uint64(alloc)) +
		" overhead=" + humanize.Bytes(uint64(overhead))
}

// ActiveClassCount returns how many of the NZones size classes
// currently own at least one zone, via a Bit32 popcount over a bitmap
// built one word at a time.
func (h *Heap) ActiveClassCount() int {
	count := 0
	var word lib.Bit32
	var bit uint
	for i := range h.classes {
		h.classes[i].lock.Lock()
		active := h.classes[i].zoneHead != 0
		h.classes[i].lock.Unlock()
		if active {
			word |= lib.Bit32(1) << bit
		}
		bit++
		if bit == 32 {
			count += int(word.Ones())
			word, bit = 0, 0
		}
	}
	count += int(word.Ones())
	return count
}
