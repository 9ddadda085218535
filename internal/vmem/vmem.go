// Package vmem is the VM Adapter collaborator described in spec §6:
// it obtains and releases aligned, page-multiple anonymous memory
// regions from the operating system. The CORE only ever sees this
// interface; it never reasons about mmap/VirtualAlloc directly.
//
// Grounded on the teacher's flock package's unix/windows build-tag
// split (flock/mutex_unix.go, flock/mutex_windows.go) for how to
// shape a platform-specific backend behind one Go-level API, and on
// golang.org/x/sys/unix usage in joshuapare-hivekit's
// hive/dirty/flush_unix.go for low-level raw-syscall style. This
// replaces the teacher's own backing choice in malloc/pool_fbit.go
// and malloc/pool_flist.go, which call cgo's C.malloc/C.free: that
// gives opaque heap memory with no alignment or page-multiple
// guarantee and no way to unmap a sub-region, both of which this
// contract requires.
package vmem

import "errors"

// ErrNoMemory is returned when the OS refuses a mapping request.
var ErrNoMemory = errors.New("vmem: out of memory")

// PageSize is the native OS page size, probed once at init.
var PageSize int64

// Alloc obtains size bytes (a multiple of PageSize) aligned to align
// (a power-of-two multiple of PageSize), zero-filled. Returns
// (0, ErrNoMemory) if the OS cannot satisfy the request.
func Alloc(size, align int64) (uintptr, error) {
	return alloc(size, align)
}

// Free unmaps exactly [ptr, ptr+size).
func Free(ptr uintptr, size int64) error {
	return free(ptr, size)
}

// TryGrow attempts a best-effort adjacent mapping of
// [base+oldSize, base+newSize) using a fixed address hint. It must
// fail without side effects — the region [base, base+oldSize) is
// left untouched either way.
func TryGrow(base uintptr, oldSize, newSize int64) bool {
	return tryGrow(base, oldSize, newSize)
}

// Advise hints to the OS that a range can be reclaimed lazily,
// without unmapping it (the §6 'H'/'h' page-hint option). Best
// effort: a failure here is not fatal to the caller.
func Advise(ptr uintptr, size int64) {
	advise(ptr, size)
}

// Zero zero-fills [ptr, ptr+size). Exposed for the ZERO allocation
// flag when reused memory is not known to be zero (§4.2).
func Zero(ptr uintptr, size int64) {
	zero(ptr, size)
}
