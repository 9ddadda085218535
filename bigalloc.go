package heap

import "unsafe"

import "github.com/bnclabs/slabheap/internal/lib"
import "github.com/bnclabs/slabheap/internal/vmem"

// bigalloc.go implements the big-allocation path of §4.3 for requests
// at or above ZoneLimit, or an exact page multiple above
// MaxSlabPageAlign: round up to a page multiple (padding by one more
// page when the result is itself an exact multiple of two pages, so a
// run of same-size big allocations never land on a suspiciously
// regular address stride), probe the bigcache for a reusable region,
// and otherwise go straight to the VM adapter.
//
// bigallocRecord is the bookkeeping the teacher's cgo-backed arena
// never needed (C.malloc already tracks its own block sizes); here the
// VM adapter only knows page ranges, so the allocator must remember,
// per live big allocation, how many bytes the OS mapping actually
// spans (bytes) versus how many the caller is using (active) — the
// gap between them is what bigcache.go's sweep reclaims.
type bigallocRecord struct {
	base   uintptr
	bytes  int64
	active int64
	next   *bigallocRecord
}

// bigHash mixes a page-aligned base address into a bucket index.
// Addresses are already PageSize-aligned so the low bits carry no
// entropy; shift them out before the murmur3-finalizer-style mix.
func bigHash(base uintptr) uint32 {
	x := uint64(base) >> 12
	x ^= x >> 33
	x *= 0xff51afd7ed558ccd
	x ^= x >> 33
	return uint32(x)
}

func bigBucket(base uintptr) int {
	return int(bigHash(base) % uint32(BigHashSize))
}

func bigShard(bucket int) int {
	return bucket % BigShardSize
}

// bigRoundedSize applies §4.3's page-rounding rule.
func bigRoundedSize(size int64) int64 {
	rounded := roundUp(size, PageSize)
	if rounded%(2*PageSize) == 0 {
		rounded += PageSize
	}
	return rounded
}

func bigAlloc(h *Heap, size, align int64) (uintptr, error) {
	h.checkReleased()
	rounded := bigRoundedSize(size)

	// Cached regions are only known to be PageSize-aligned.
	if rounded <= BigcacheLimit && align <= PageSize {
		if addr, cached := h.bigcache.tryReuse(rounded); addr != 0 {
			registerBig(h, addr, cached, size)
			return addr, nil
		}
	}

	addr, err := vmem.Alloc(rounded, align)
	if err != nil {
		return 0, ErrOutOfMemory
	}
	registerBig(h, addr, rounded, size)
	return addr, nil
}

// registerBig records a new live big allocation and, per §4.3, credits
// any headroom already present at registration time — bytes exceeding
// active, as happens when bigcache hands back a stashed region larger
// than the caller asked for — to excessAlloc, matching nmalloc.c's
// _slaballoc/_slabmemalign big branches (`if (big->active <
// big->bytes) atomic_add_long(&excess_alloc, big->bytes -
// big->active)`).
func registerBig(h *Heap, base uintptr, bytes, active int64) {
	bucket := bigBucket(base)
	shard := bigShard(bucket)
	rec := &bigallocRecord{base: base, bytes: bytes, active: active}

	h.bigLocks[shard].Lock()
	rec.next = h.bigTable[bucket]
	h.bigTable[bucket] = rec
	h.bigLocks[shard].Unlock()

	if bytes > active {
		addExcess(h, bytes-active)
	}
}

// findBig locates the record for ptr without removing it. Returns nil
// if ptr is not a live big allocation.
func findBig(h *Heap, ptr uintptr) *bigallocRecord {
	bucket := bigBucket(ptr)
	shard := bigShard(bucket)
	h.bigLocks[shard].Lock()
	defer h.bigLocks[shard].Unlock()
	for rec := h.bigTable[bucket]; rec != nil; rec = rec.next {
		if rec.base == ptr {
			return rec
		}
	}
	return nil
}

// takeBig removes and returns the record for ptr, or nil.
func takeBig(h *Heap, ptr uintptr) *bigallocRecord {
	bucket := bigBucket(ptr)
	shard := bigShard(bucket)
	h.bigLocks[shard].Lock()
	defer h.bigLocks[shard].Unlock()
	var prev *bigallocRecord
	for rec := h.bigTable[bucket]; rec != nil; rec = rec.next {
		if rec.base == ptr {
			if prev == nil {
				h.bigTable[bucket] = rec.next
			} else {
				prev.next = rec.next
			}
			return rec
		}
		prev = rec
	}
	return nil
}

// bigFree removes a record and reconciles the headroom it was still
// carrying, per §4.3's `big_free` requirement (`excess_alloc +=
// active - bytes`, matching nmalloc.c's _slabfree: `atomic_add_long(
// &excess_alloc, big->active - big->bytes)`): once the record is
// gone, whatever excess it contributed at registration or picked up
// from a shrink-in-place realloc must be backed out, or it stays
// stranded in the counter forever.
func bigFree(h *Heap, ptr uintptr) {
	rec := takeBig(h, ptr)
	if rec == nil {
		corruption("free of %x does not match any live big allocation", ptr)
	}
	if rec.bytes > rec.active {
		addExcess(h, -(rec.bytes - rec.active))
	}
	if rec.bytes <= BigcacheLimit && h.bigcache.tryStash(rec.base, rec.bytes) {
		return
	}
	vmem.Free(rec.base, rec.bytes)
}

func bigUsableSize(h *Heap, ptr uintptr) int64 {
	rec := findBig(h, ptr)
	if rec == nil {
		return -1
	}
	return rec.bytes
}

// bigRealloc grows or shrinks a big allocation in place when possible
// (shrink always succeeds logically, by shrinking `active` and letting
// the excess get swept lazily; grow tries TryGrow before falling back
// to allocate-copy-free).
//
// Both branches add only the INCREMENTAL change in excess —
// (oldActive - newActive) when bytes does not change, or the general
// (oldActive - oldBytes) + (newBytes - newActive) delta when it
// does — the same running-delta invariant nmalloc.c's _slabrealloc
// keeps across its shrink-fits-in-bytes and grow-adjacent branches.
// Recomputing `bytes - newRounded` from scratch on every shrink (the
// bug this replaces) double-counts: rec.bytes never decreases on the
// shrink path, so a second shrink would re-add the gap already
// accounted by the first.
func bigRealloc(h *Heap, ptr uintptr, newSize int64) (uintptr, error) {
	rec := findBig(h, ptr)
	if rec == nil {
		corruption("realloc of %x does not match any live big allocation", ptr)
	}
	newRounded := bigRoundedSize(newSize)

	if newRounded <= rec.bytes {
		if rec.active != newSize {
			addExcess(h, rec.active-newSize)
		}
		rec.active = newSize
		return rec.base, nil
	}

	if vmem.TryGrow(rec.base, rec.bytes, newRounded) {
		addExcess(h, (rec.active-rec.bytes)+(newRounded-newSize))
		rec.bytes = newRounded
		rec.active = newSize
		return rec.base, nil
	}

	newPtr, err := bigAlloc(h, newSize, PageSize)
	if err != nil {
		return 0, err
	}
	n := rec.active
	if n > newSize {
		n = newSize
	}
	lib.Memcpy(unsafe.Pointer(newPtr), unsafe.Pointer(rec.base), int(n))
	bigFree(h, ptr)
	return newPtr, nil
}
