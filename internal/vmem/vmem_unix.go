//go:build darwin || dragonfly || freebsd || linux || netbsd || openbsd

package vmem

import "unsafe"
import "os"

import "golang.org/x/sys/unix"

func init() {
	PageSize = int64(os.Getpagesize())
}

// alloc over-maps by align bytes and trims the unaligned head/tail.
// It passes no address hint to mmap, so it never tries a plain
// mapping first for align above PageSize. A plain anonymous mmap is
// already aligned to PageSize; we only pay the over-map cost when
// align exceeds PageSize (zones at align == ZoneSize, i.e. 16 pages).
func alloc(size, align int64) (uintptr, error) {
	if align <= PageSize {
		addr, err := unix.Mmap(-1, 0, int(size),
			unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
		if err != nil {
			return 0, ErrNoMemory
		}
		return uintptr(unsafe.Pointer(&addr[0])), nil
	}

	total := size + align
	addr, err := unix.Mmap(-1, 0, int(total),
		unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
	if err != nil {
		return 0, ErrNoMemory
	}
	base := uintptr(unsafe.Pointer(&addr[0]))
	aligned := (base + uintptr(align) - 1) &^ (uintptr(align) - 1)

	if head := aligned - base; head > 0 {
		unix.Munmap(unsafeSlice(base, head))
	}
	tailStart := aligned + uintptr(size)
	origEnd := base + uintptr(total)
	if tail := origEnd - tailStart; tail > 0 {
		unix.Munmap(unsafeSlice(tailStart, tail))
	}
	return aligned, nil
}

func free(ptr uintptr, size int64) error {
	return unix.Munmap(unsafeSlice(ptr, uintptr(size)))
}

// tryGrow asks the kernel for `grow` bytes with `target` passed as
// the mmap address argument but WITHOUT MAP_FIXED, so the kernel
// treats it as a hint it is free to ignore rather than a command it
// must satisfy by replacing whatever is already there. x/sys/unix has
// no high-level wrapper that accepts an address argument at all (its
// Mmap always passes addr 0 to the underlying syscall), so this drops
// to the raw syscall the same way joshuapare-hivekit's hive/dirty
// files call unix-level primitives directly. tryGrow only counts it a
// success if the kernel actually placed the mapping at target;
// otherwise it unmaps whatever it got and reports failure, leaving
// the target region untouched either way.
//
// This is deliberately not MAP_FIXED: nmalloc.c's own realloc-grow
// path (_slabrealloc) uses MAP_TRYFIXED rather than plain MAP_FIXED
// for the identical call, with the comment that MAP_TRYFIXED "forces
// mmap to fail if there is already something at the address" instead
// of replacing it. Linux's closest equivalent, MAP_FIXED_NOREPLACE,
// is Linux-only and this file's build tag spans darwin/dragonfly/
// freebsd/linux/netbsd/openbsd, so tryGrow uses the hint-without-fixed
// form instead: portable across every target here, and it satisfies
// the same "fail without side effects" contract since nothing is
// mapped at target unless the kernel placed it there on its own.
func tryGrow(base uintptr, oldSize, newSize int64) bool {
	grow := newSize - oldSize
	if grow <= 0 {
		return true
	}
	target := base + uintptr(oldSize)
	addr, _, errno := unix.Syscall6(
		unix.SYS_MMAP, target, uintptr(grow),
		uintptr(unix.PROT_READ|unix.PROT_WRITE),
		uintptr(unix.MAP_ANON|unix.MAP_PRIVATE),
		^uintptr(0), 0)
	if errno != 0 {
		return false
	}
	if addr != target {
		unix.Syscall(unix.SYS_MUNMAP, addr, uintptr(grow), 0)
		return false
	}
	return true
}

func advise(ptr uintptr, size int64) {
	b := unsafeSlice(ptr, uintptr(size))
	_ = unix.Madvise(b, unix.MADV_DONTNEED)
}

func zero(ptr uintptr, size int64) {
	b := unsafeSlice(ptr, uintptr(size))
	for i := range b {
		b[i] = 0
	}
}

func unsafeSlice(addr uintptr, n uintptr) []byte {
	return unsafe.Slice((*byte)(unsafe.Pointer(addr)), int(n))
}
