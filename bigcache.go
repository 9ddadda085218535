package heap

import "sync/atomic"

import "github.com/bnclabs/slabheap/internal/lib"
import "github.com/bnclabs/slabheap/internal/vmem"

// bigcache.go implements the §3/§4.6 bigcache: a small fixed array of
// lock-free reuse slots for recently-freed big allocations, plus an
// excess-byte counter that triggers a full sweep of the bigalloc table
// once enough memory is sitting idle inside over-sized mappings kept
// around by bigRealloc's shrink-in-place path.
//
// No pack repo has a free-list-of-recently-freed-blocks this shaped;
// the slot design is grounded on malloc/pool_flist.go's single
// linked free list, generalized from "one list, any size" to "N
// independent slots, each remembering the one size it holds" since
// bigcache must answer "do you have >= this many bytes" in O(1)
// without walking a list, and a handful of plain atomics gets there
// without a third-party lock-free structure.
type bigcacheSlot struct {
	addr atomic.Uintptr
	size atomic.Int64
}

type bigcache struct {
	slots [BigcacheSlots]bigcacheSlot
	hits  atomic.Int64
}

// tryReuse returns a stashed region of at least `need` bytes, or
// (0, 0). The match is first-fit, not best-fit: bigcache is a small
// bounded cache, not a general allocator, so the wasted tail (if any)
// is bounded by BigcacheLimit and gets reclaimed later by the excess
// sweep, same as a shrink-in-place realloc would leave behind. The
// returned size is the slot's real mapped size, not `need` — the
// caller must register the record with this size as bytes so any
// headroom above the caller's request is tracked in excessAlloc
// rather than silently forgotten.
func (bc *bigcache) tryReuse(need int64) (addr uintptr, size int64) {
	for i := range bc.slots {
		s := &bc.slots[i]
		slotSize := s.size.Load()
		if slotSize < need {
			continue
		}
		addr := s.addr.Swap(0)
		if addr == 0 {
			continue
		}
		s.size.Store(0)
		bc.hits.Add(1)
		return addr, slotSize
	}
	return 0, 0
}

// tryStash offers [addr, addr+size) to the cache, returning false if
// every slot is occupied.
func (bc *bigcache) tryStash(addr uintptr, size int64) bool {
	for i := range bc.slots {
		s := &bc.slots[i]
		if s.addr.CompareAndSwap(0, addr) {
			s.size.Store(size)
			return true
		}
	}
	return false
}

func (bc *bigcache) releaseAll() {
	for i := range bc.slots {
		s := &bc.slots[i]
		addr := s.addr.Swap(0)
		size := s.size.Swap(0)
		if addr != 0 {
			vmem.Free(addr, size)
		}
	}
}

// addExcess applies a signed delta to excessAlloc — positive when a
// shrink-in-place bigRealloc or a headroom-carrying registerBig adds
// idle-but-still-mapped bytes, negative when bigFree backs out a
// record's live excess on removal — and sweeps the bigalloc table
// once the running total crosses the heap's excess threshold —
// SizeBigcacheExcess's free-RAM-scaled value when the caller asked for
// one, else the BigcacheExcess default. This mirrors nmalloc.c's
// excess_alloc, which is likewise a running signed delta rather than
// a value recomputed from scratch per call.
func addExcess(h *Heap, bytes int64) {
	total := atomic.AddInt64(&h.excessAlloc, bytes)
	threshold := BigcacheExcess
	if h.opts.AutoExcess {
		threshold = h.SizeBigcacheExcess()
	}
	if total >= threshold {
		sweepExcess(h)
	}
}

// sweepExcess walks every bucket of the bigalloc table in bucket
// order, unmapping the idle tail of every record whose active size
// has fallen below its mapped size. Bucket order is not address
// order (bigHash scrambles the bits) but it is a fixed, repeatable
// order across runs for the same set of live allocations, which is
// enough to make sweep behavior reproducible in tests without a
// separate address-sorted index purely for that purpose.
func sweepExcess(h *Heap) {
	before := atomic.LoadInt64(&h.excessAlloc)
	var reclaimed int64
	for bucket := 0; bucket < BigHashSize; bucket++ {
		shard := bigShard(bucket)
		h.bigLocks[shard].Lock()
		for rec := h.bigTable[bucket]; rec != nil; rec = rec.next {
			activePages := roundUp(rec.active, PageSize)
			if activePages < rec.bytes {
				freedBytes := rec.bytes - activePages
				vmem.Free(rec.base+uintptr(activePages), freedBytes)
				rec.bytes = activePages
				reclaimed += freedBytes
			}
		}
		h.bigLocks[shard].Unlock()
	}
	after := atomic.AddInt64(&h.excessAlloc, -reclaimed)
	drift := lib.AbsInt64(before - reclaimed - after)
	if drift != 0 {
		log.Warnf("heap: excessAlloc drifted by %d bytes across a concurrent sweep", drift)
	}
}
