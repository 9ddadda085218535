package heap

// slab.go orchestrates the fast allocate/free path of §4.2/§4.5: try
// the thread cache first, and only take the per-size-class zone-list
// spinlock when both the loaded and previous magazines are exhausted.
// While that lock is held, a successful carve also opportunistically
// bulk-fills the caller's loaded magazine from the same zone, up to
// CacheChunks, amortizing the lock's cost across many future pops.
//
// Grounded on malloc/arena.go's Allocchunk/Free dispatch shape (try
// the fast structure, fall to the slower shared one on miss) with the
// locking granularity narrowed from one Arena-wide mutex to one
// spinlock per size class per §5.

// slabAlloc returns a chunk for classIndex, or 0 on OS memory
// exhaustion. tc may be nil, in which case the zone-list path runs
// directly with no bulk-fill destination.
func slabAlloc(h *Heap, classIndex int, rounded, chunking int64, tc *ThreadCache) uintptr {
	if tc != nil {
		if ptr := tc.popFrom(classIndex); ptr != 0 {
			return ptr
		}
	}

	cs := &h.classes[classIndex]
	cs.lock.Lock()
	defer cs.lock.Unlock()

	var prevAddr uintptr
	addr := cs.zoneHead
	for addr != 0 {
		z := zoneAt(addr)
		if z.nFree > 0 {
			return takeChunk(h, cs, tc, classIndex, prevAddr, addr, z)
		}
		prevAddr = addr
		addr = z.next
	}

	z, err := acquireZone(&h.zoneMag, classIndex, rounded, chunking)
	if err != nil {
		return 0
	}
	za := addrOfZone(z)
	z.next = cs.zoneHead
	cs.zoneHead = za
	return takeChunk(h, cs, tc, classIndex, 0, za, z)
}

// takeChunk pops one chunk from z, bulk-fills tc's loaded magazine
// from the remainder while the zone-list lock is still held, and
// unlinks z from the class's zone list if it is now fully carved.
func takeChunk(h *Heap, cs *classState, tc *ThreadCache, classIndex int, prevAddr, addr uintptr, z *zoneHeader) uintptr {
	ptr := z.popChunk()
	if ptr == 0 {
		corruption("slab: zone reported nFree>0 but popChunk returned nothing")
	}
	if tc != nil {
		tc.bulkFill(classIndex, z)
	}
	if z.nFree == 0 {
		if prevAddr == 0 {
			cs.zoneHead = z.next
		} else {
			zoneAt(prevAddr).next = z.next
		}
	}
	return ptr
}

// bulkFill tops up tc's loaded magazine for classIndex directly from
// z's remaining free chunks, bounded by the magazine's headroom, the
// zone's remaining free count, and CacheChunks (§4.2).
func (tc *ThreadCache) bulkFill(classIndex int, z *zoneHeader) {
	cs := &tc.classes[classIndex]
	if cs.loaded == nil {
		cs.loaded = newMagazine(magazineCapacity(classIndex))
	}
	limit := cs.loaded.capacity - cs.loaded.len()
	if int64(limit) > z.nFree {
		limit = int(z.nFree)
	}
	if limit > CacheChunks {
		limit = CacheChunks
	}
	for i := 0; i < limit; i++ {
		if z.nFree <= 0 {
			break
		}
		p := z.popChunk()
		if p == 0 {
			break
		}
		if !cs.loaded.push(p) {
			break
		}
	}
}

// slabFree returns ptr (known to belong to classIndex) to the
// allocator, via the thread cache when one is bound or straight back
// to its owning zone otherwise.
func slabFree(h *Heap, classIndex int, ptr uintptr, tc *ThreadCache) {
	if tc != nil {
		tc.pushTo(classIndex, ptr)
		return
	}
	slabFreeDirect(h, classIndex, ptr)
}

// slabFreeDirect pushes ptr directly onto its owning zone's per-page
// free list, relinking the zone into its class's zone list first if
// the zone had previously been unlinked for being fully carved.
func slabFreeDirect(h *Heap, classIndex int, ptr uintptr) {
	cs := &h.classes[classIndex]
	cs.lock.Lock()
	defer cs.lock.Unlock()

	zoneAddr := ptr &^ uintptr(ZoneSize-1)
	z := zoneAt(zoneAddr)
	if z.magic != zoneMagic {
		corruption("slab: free of %x does not belong to a live zone", ptr)
	}
	wasFull := z.nFree == 0
	z.pushFreeChunk(ptr)

	if z.nFree == z.nMax {
		// Every chunk this zone ever carved is back; hand the whole
		// region to the zone magazine (§4.7) instead of keeping an
		// idle zone linked for this class. wasFull zones were already
		// unlinked when they became fully carved, so only unlink when
		// necessary.
		if !wasFull {
			unlinkZoneFromClass(cs, zoneAddr, z)
		}
		releaseZone(&h.zoneMag, zoneAddr, h.opts.PageHint)
		return
	}

	if wasFull {
		z.next = cs.zoneHead
		cs.zoneHead = zoneAddr
	}
}

// unlinkZoneFromClass removes zoneAddr from cs's zone list. Used by
// slabFreeDirect's empty-zone release path, where the caller does not
// already track the previous-node address takeChunk's walk keeps.
func unlinkZoneFromClass(cs *classState, zoneAddr uintptr, z *zoneHeader) {
	if cs.zoneHead == zoneAddr {
		cs.zoneHead = z.next
		return
	}
	addr := cs.zoneHead
	for addr != 0 {
		cur := zoneAt(addr)
		if cur.next == zoneAddr {
			cur.next = z.next
			return
		}
		addr = cur.next
	}
}

// classOf reads back the size class a slab pointer was allocated
// from, by masking to its zone's base address. Callers must already
// know ptr is a slab pointer (i.e. not present in the bigalloc table).
func classOf(ptr uintptr) int {
	zoneAddr := ptr &^ uintptr(ZoneSize-1)
	z := zoneAt(zoneAddr)
	if z.magic != zoneMagic {
		corruption("slab: %x does not belong to a live zone", ptr)
	}
	return int(z.classIndex)
}

func chunkSizeOf(ptr uintptr) int64 {
	zoneAddr := ptr &^ uintptr(ZoneSize-1)
	z := zoneAt(zoneAddr)
	return z.chunkSize
}
