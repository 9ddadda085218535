package heap

// threadcache.go implements the ThreadCache collaborator of §4.4: the
// per-size-class (loaded, prev) magazine pair spec.md models as
// per-OS-thread state. Go has no portable, safe way to hang state off
// an OS thread the way C TLS does (goroutines are not threads and can
// migrate between them), and spec §1 places the host runtime's TLS
// mechanism itself out of CORE scope, stating only the guarantees a
// thread cache must uphold. This type implements those guarantees in
// full; Heap.BindThread hands the caller an explicit handle instead of
// an implicit one, and the package-level Malloc/Free convenience API
// layers a sync.Pool of these on top (Heap.cachePool, borrowed through
// Heap.withCache in api.go) as the idiomatic Go
// stand-in for "one of these per OS thread".
type ThreadCache struct {
	heap     *Heap
	classes  [NZones]tcSlot
	init     int32 // -1: released/mid-teardown, 1: alive
	sigDepth int32       // §5 signal-block nesting depth, see sigguard.go
	sigSaved interface{} // platform signal mask saved across the outermost call
}

type tcSlot struct {
	loaded *magazine
	prev   *magazine
}

func newThreadCache(h *Heap) *ThreadCache {
	return &ThreadCache{heap: h, init: 1}
}

// BindThread returns a fresh ThreadCache bound to this Heap. The
// caller owns its lifetime and must call Release when done with it —
// typically once per goroutine that performs a long-lived run of
// allocations, mirroring one-thread-cache-per-OS-thread in the
// original design.
func (h *Heap) BindThread() *ThreadCache {
	h.checkReleased()
	return newThreadCache(h)
}

// popFrom returns a chunk for classIndex from this thread's cache, or
// 0 if both the loaded and previous magazines are exhausted and the
// depot has no full magazine to swap in — in which case the caller
// must fall back to the zone-list carve path (slab.go).
func (tc *ThreadCache) popFrom(classIndex int) uintptr {
	cs := &tc.classes[classIndex]
	if cs.loaded != nil {
		if ptr := cs.loaded.pop(); ptr != 0 {
			return ptr
		}
	}
	if cs.prev != nil && !cs.prev.empty() {
		cs.loaded, cs.prev = cs.prev, cs.loaded
		return cs.loaded.pop()
	}
	d := &tc.heap.classes[classIndex].depot
	if full := d.getFull(); full != nil {
		if cs.loaded != nil {
			d.putEmpty(cs.loaded)
		}
		cs.loaded = full
		return cs.loaded.pop()
	}
	return 0
}

// pushTo returns ptr to this thread's cache for classIndex, retiring a
// full loaded magazine to the depot and obtaining an empty one
// (from the depot, or freshly allocated) when both loaded and prev are
// full.
func (tc *ThreadCache) pushTo(classIndex int, ptr uintptr) {
	cs := &tc.classes[classIndex]
	if cs.loaded == nil {
		cs.loaded = newMagazine(magazineCapacity(classIndex))
	}
	if cs.loaded.push(ptr) {
		return
	}
	if cs.prev != nil && !cs.prev.full() {
		cs.loaded, cs.prev = cs.prev, cs.loaded
		cs.loaded.push(ptr)
		return
	}
	d := &tc.heap.classes[classIndex].depot
	d.putFull(cs.loaded)
	if cs.prev != nil {
		cs.loaded, cs.prev = cs.prev, nil
	} else if e := d.getEmpty(); e != nil {
		cs.loaded = e
	} else {
		cs.loaded = newMagazine(magazineCapacity(classIndex))
	}
	cs.loaded.push(ptr)
}

// Release drains every loaded/prev magazine back to the owning zones
// directly (bypassing the depot, since these rounds are this thread's
// private inventory and need no further caching) and marks the cache
// dead. Calling Malloc/Free on a released ThreadCache panics.
func (tc *ThreadCache) Release() {
	if tc.init < 0 {
		return
	}
	tc.sigEnter()
	defer tc.sigExit()
	for classIndex := range tc.classes {
		cs := &tc.classes[classIndex]
		tc.drainDirect(classIndex, cs.loaded)
		tc.drainDirect(classIndex, cs.prev)
		cs.loaded = nil
		cs.prev = nil
	}
	tc.init = -1
}

func (tc *ThreadCache) drainDirect(classIndex int, m *magazine) {
	if m == nil {
		return
	}
	for {
		ptr := m.pop()
		if ptr == 0 {
			break
		}
		slabFreeDirect(tc.heap, classIndex, ptr)
	}
}
