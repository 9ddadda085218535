package heap

import "unsafe"

import "github.com/bnclabs/slabheap/internal/lib"
import "github.com/bnclabs/slabheap/internal/vmem"

// api.go implements the public entry points of §4: Malloc, Calloc,
// Realloc, Free, AlignedAlloc, PosixMemalign, UsableSize. Each is a
// method on ThreadCache (the real dispatch, since every allocation
// decision needs a cache to pop from or bulk-fill into) plus a
// package-level function of the same name that borrows one from the
// default Heap's sync.Pool for the duration of the call — the
// approximation of "current OS thread's cache" documented in
// threadcache.go.
//
// Grounded on internal/api/alloc.go's Mallocer interface shape
// (Alloc/Allocslab/Slabsize/Free) for which operations a slab engine
// must expose, generalized to the full libc-shaped surface this spec
// requires.

const maxInt64 int64 = 1<<63 - 1

func (h *Heap) withCache(fn func(tc *ThreadCache)) {
	h.checkReleased()
	v := h.cachePool.Get()
	tc := v.(*ThreadCache)
	fn(tc)
	h.cachePool.Put(tc)
}

// Malloc allocates at least size bytes. size <= 0 is normalized to 1,
// so Malloc(0) returns a valid, non-null, distinct pointer rather than
// nil (§4.1).
//
// Wrapped in sigEnter/sigExit per §5, mirroring nmalloc.c's
// nmalloc_sigblockall/nmalloc_sigunblockall around __malloc — see
// sigguard.go.
func (tc *ThreadCache) Malloc(size int64) unsafe.Pointer {
	if tc.init < 0 {
		panicerr("heap: use of released ThreadCache")
	}
	tc.sigEnter()
	defer tc.sigExit()
	h := tc.heap
	h.checkReleased()
	if size <= 0 {
		size = 1
	}

	if isOversized(size) {
		addr, err := bigAlloc(h, size, PageSize)
		if err != nil {
			return nil
		}
		if h.opts.ZeroAlways {
			vmem.Zero(addr, bigRoundedSize(size))
		}
		return unsafe.Pointer(addr)
	}

	classIndex, rounded, chunking := classify(size)
	ptr := slabAlloc(h, classIndex, rounded, chunking, tc)
	if ptr == 0 {
		return nil
	}
	if h.opts.ZeroAlways {
		vmem.Zero(ptr, rounded)
	}
	if h.opts.Trace {
		log.Tracef("heap: malloc(%d) class=%d chunk=%d -> %x", size, classIndex, rounded, ptr)
	}
	return unsafe.Pointer(ptr)
}

// Calloc allocates space for n elements of size bytes each,
// zero-filled, failing (returning nil) on the overflow condition of
// §4.1: n or size at or above 2^(W/2) and n greater than
// maxInt64/size.
func (tc *ThreadCache) Calloc(n, size int64) unsafe.Pointer {
	tc.sigEnter()
	defer tc.sigExit()
	if n < 0 || size < 0 {
		return nil
	}
	if n != 0 && size != 0 {
		const half = int64(1) << 32
		if (n >= half || size >= half) && n > maxInt64/size {
			return nil
		}
	}
	total := n * size
	ptr := tc.Malloc(total)
	if ptr == nil {
		return nil
	}
	vmem.Zero(uintptr(ptr), total)
	return ptr
}

// Free returns ptr to the allocator. Free(nil) is a no-op.
func (tc *ThreadCache) Free(ptr unsafe.Pointer) {
	if ptr == nil {
		return
	}
	if tc.init < 0 {
		panicerr("heap: use of released ThreadCache")
	}
	tc.sigEnter()
	defer tc.sigExit()
	h := tc.heap
	addr := uintptr(ptr)
	if h.opts.Trace {
		log.Tracef("heap: free(%x)", addr)
	}
	if rec := findBig(h, addr); rec != nil {
		bigFree(h, addr)
		return
	}
	classIndex := classOf(addr)
	slabFree(h, classIndex, addr, tc)
}

// Realloc resizes the allocation at ptr to newSize bytes, preserving
// the lesser of the old and new sizes' worth of content. ptr == nil
// behaves as Malloc(newSize); newSize <= 0 is normalized to 1, the
// same as Malloc, rather than freeing ptr — keeping Realloc's "always
// returns a usable pointer on success" contract uniform with Malloc's
// size <= 0 behavior.
func (tc *ThreadCache) Realloc(ptr unsafe.Pointer, newSize int64) unsafe.Pointer {
	if ptr == nil {
		return tc.Malloc(newSize)
	}
	tc.sigEnter()
	defer tc.sigExit()
	if newSize <= 0 {
		newSize = 1
	}
	h := tc.heap
	addr := uintptr(ptr)

	if rec := findBig(h, addr); rec != nil {
		if isOversized(newSize) || rec.bytes >= bigRoundedSize(newSize) {
			newAddr, err := bigRealloc(h, addr, newSize)
			if err != nil {
				return nil
			}
			return unsafe.Pointer(newAddr)
		}
		newPtr := tc.Malloc(newSize)
		if newPtr == nil {
			return nil
		}
		lib.Memcpy(newPtr, ptr, int(newSize))
		bigFree(h, addr)
		return newPtr
	}

	oldClass := classOf(addr)
	oldChunk := chunkSizeOf(addr)
	if !isOversized(newSize) {
		newClass, _, _ := classify(newSize)
		if newClass == oldClass {
			return ptr
		}
	}
	newPtr := tc.Malloc(newSize)
	if newPtr == nil {
		return nil
	}
	copyLen := oldChunk
	if newSize < copyLen {
		copyLen = newSize
	}
	lib.Memcpy(newPtr, ptr, int(copyLen))
	slabFree(h, oldClass, addr, tc)
	return newPtr
}

// AlignedAlloc allocates size bytes aligned to align, which must be a
// power of two. Requests that already land in a power-of-two-sized
// slab class aligned at least as strictly as align are served from
// the slab engine; everything else goes to the big path, which can
// honor an arbitrary power-of-two alignment directly through the VM
// adapter.
func (tc *ThreadCache) AlignedAlloc(align, size int64) unsafe.Pointer {
	tc.sigEnter()
	defer tc.sigExit()
	if align <= 0 || align&(align-1) != 0 {
		return nil
	}
	if size <= 0 {
		size = 1
	}
	if !isOversized(size) {
		_, rounded, _ := classify(size)
		if isPow2(rounded) && rounded >= align {
			return tc.Malloc(size)
		}
	}
	h := tc.heap
	addr, err := bigAlloc(h, size, align)
	if err != nil {
		return nil
	}
	if h.opts.ZeroAlways {
		vmem.Zero(addr, bigRoundedSize(size))
	}
	return unsafe.Pointer(addr)
}

// PosixMemalign mirrors posix_memalign(3)'s argument validation: align
// must be a power of two at least sizeof(uintptr), or ErrInvalidArgument
// is returned in place of libc's EINVAL.
func (tc *ThreadCache) PosixMemalign(align, size int64) (unsafe.Pointer, error) {
	tc.sigEnter()
	defer tc.sigExit()
	const ptrSize = int64(unsafe.Sizeof(uintptr(0)))
	if align < ptrSize || align&(align-1) != 0 {
		return nil, ErrInvalidArgument
	}
	ptr := tc.AlignedAlloc(align, size)
	if ptr == nil {
		return nil, ErrOutOfMemory
	}
	return ptr, nil
}

// UsableSize reports how many bytes ptr's backing region actually
// spans, which may exceed the size originally requested.
func (tc *ThreadCache) UsableSize(ptr unsafe.Pointer) int64 {
	if ptr == nil {
		return 0
	}
	addr := uintptr(ptr)
	h := tc.heap
	if size := bigUsableSize(h, addr); size >= 0 {
		return size
	}
	return chunkSizeOf(addr)
}

// Package-level convenience API operating on DefaultHeap, borrowing a
// pooled ThreadCache for the duration of each call.

func Malloc(size int64) unsafe.Pointer {
	var p unsafe.Pointer
	defaultHeap.withCache(func(tc *ThreadCache) { p = tc.Malloc(size) })
	return p
}

func Calloc(n, size int64) unsafe.Pointer {
	var p unsafe.Pointer
	defaultHeap.withCache(func(tc *ThreadCache) { p = tc.Calloc(n, size) })
	return p
}

func Realloc(ptr unsafe.Pointer, newSize int64) unsafe.Pointer {
	var p unsafe.Pointer
	defaultHeap.withCache(func(tc *ThreadCache) { p = tc.Realloc(ptr, newSize) })
	return p
}

func Free(ptr unsafe.Pointer) {
	defaultHeap.withCache(func(tc *ThreadCache) { tc.Free(ptr) })
}

func AlignedAlloc(align, size int64) unsafe.Pointer {
	var p unsafe.Pointer
	defaultHeap.withCache(func(tc *ThreadCache) { p = tc.AlignedAlloc(align, size) })
	return p
}

func PosixMemalign(align, size int64) (unsafe.Pointer, error) {
	var p unsafe.Pointer
	var err error
	defaultHeap.withCache(func(tc *ThreadCache) { p, err = tc.PosixMemalign(align, size) })
	return p, err
}

func UsableSize(ptr unsafe.Pointer) int64 {
	var n int64
	defaultHeap.withCache(func(tc *ThreadCache) { n = tc.UsableSize(ptr) })
	return n
}
