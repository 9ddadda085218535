package heap

import "sync"
import "sync/atomic"

import "github.com/bnclabs/slabheap/internal/vmem"

// classState is the per-size-class state described in §3/§5: the
// zone list head (protected by a dedicated spinlock) and this
// class's depot.
type classState struct {
	lock     spinlock
	zoneHead uintptr // address of head zoneHeader, 0 if empty
	depot    depot
}

// Heap is the process-wide singleton described in §9: the size-class
// table's runtime state, the zone magazine, the bigalloc hash table
// and its shard locks, and the bigcache all live here. A Heap is
// created once (NewHeap, or the package-level default used by the
// top-level Malloc/Free/... functions) and torn down only at process
// exit or by an embedder that owns its lifetime end to end.
//
// Grounded on malloc/arena.go's Arena, generalized from "one arena,
// one map of independent pools" to "one heap, NZones size-classes
// each with its own zone list and depot, plus the shared bigalloc/
// bigcache machinery §3 describes as process-wide".
type Heap struct {
	classes [NZones]classState
	zoneMag zoneMagazine

	bigLocks [BigShardSize]spinlock
	bigTable [BigHashSize]*bigallocRecord

	bigcache bigcache

	excessAlloc int64 // atomic

	opts     Options
	cachePool sync.Pool

	released int32 // atomic
}

// NewHeap constructs a Heap using the given tuning options.
func NewHeap(opts Options) *Heap {
	h := &Heap{opts: opts}
	h.cachePool.New = func() interface{} {
		return newThreadCache(h)
	}
	return h
}

var defaultHeap = NewHeap(ParseOptions(""))

// DefaultHeap returns the process-wide heap used by the package-level
// Malloc/Calloc/Realloc/Free/... convenience functions.
func DefaultHeap() *Heap {
	return defaultHeap
}

func (h *Heap) checkReleased() {
	if atomic.LoadInt32(&h.released) != 0 {
		panicerr("heap: operation on a released Heap")
	}
}

// PreFork acquires the zone-magazine spinlock, then every depot
// spinlock, in that order — matching nmalloc.c's
// _nmalloc_thr_prepfork, which locks zone_mag_lock before
// depot_spinlock. nmalloc.c has one process-wide depot_spinlock; this
// port shards the depot lock per size class, so "then every depot
// lock" here means acquiring all NZones of them, innermost last,
// before returning. Wiring this to an actual fork() call is a
// host-runtime concern left to the embedder (§1: fork hook plumbing
// is out of scope for the CORE).
func (h *Heap) PreFork() {
	h.zoneMag.lock.Lock()
	for i := range h.classes {
		h.classes[i].depot.lock.Lock()
	}
}

// PostForkParent releases the locks PreFork acquired, in reverse
// order — depot locks first, then the zone-magazine lock, mirroring
// _nmalloc_thr_parentfork/_nmalloc_thr_childfork's unlock order.
func (h *Heap) PostForkParent() {
	for i := len(h.classes) - 1; i >= 0; i-- {
		h.classes[i].depot.lock.Unlock()
	}
	h.zoneMag.lock.Unlock()
}

// PostForkChild is identical to PostForkParent: the child inherits
// the locks in their acquired (locked) state and must release them
// exactly like the parent before resuming allocator use. Size-class
// and bigalloc-shard locks are not touched by PreFork per §5 — lock
// order and the rarity of mid-operation forks make re-acquiring them
// unnecessary.
func (h *Heap) PostForkChild() {
	h.PostForkParent()
}

// Release unmaps every zone and big allocation this Heap still owns.
// After Release the Heap must not be used again.
func (h *Heap) Release() {
	atomic.StoreInt32(&h.released, 1)
	for i := range h.classes {
		addr := h.classes[i].zoneHead
		for addr != 0 {
			z := zoneAt(addr)
			next := z.next
			vmem.Free(addr, ZoneSize)
			addr = next
		}
		h.classes[i].zoneHead = 0
	}
	h.zoneMag.releaseAll()
	h.bigcache.releaseAll()
	for i := range h.bigTable {
		rec := h.bigTable[i]
		for rec != nil {
			next := rec.next
			vmem.Free(rec.base, rec.bytes)
			rec = next
		}
		h.bigTable[i] = nil
	}
}
