//go:build windows

package vmem

import "unsafe"

import "golang.org/x/sys/windows"

func init() {
	var si windows.SystemInfo
	windows.GetSystemInfo(&si)
	PageSize = int64(si.PageSize)
}

// alloc reserves size+align bytes to find an aligned address, releases
// that reservation, then commits exactly size bytes at the aligned
// address (failing if another mapping took it in between). The unix
// backend trims instead; the two are the same split the teacher uses between
// flock/mutex_unix.go (flock(2)) and flock/mutex_windows.go
// (LockFileEx) for one logical operation with two OS backends.
func alloc(size, align int64) (uintptr, error) {
	if align <= PageSize {
		addr, err := windows.VirtualAlloc(0, uintptr(size),
			windows.MEM_COMMIT|windows.MEM_RESERVE, windows.PAGE_READWRITE)
		if err != nil {
			return 0, ErrNoMemory
		}
		return addr, nil
	}

	total := size + align
	addr, err := windows.VirtualAlloc(0, uintptr(total),
		windows.MEM_RESERVE, windows.PAGE_READWRITE)
	if err != nil {
		return 0, ErrNoMemory
	}
	windows.VirtualFree(addr, 0, windows.MEM_RELEASE)

	aligned := (addr + uintptr(align) - 1) &^ (uintptr(align) - 1)
	addr, err = windows.VirtualAlloc(aligned, uintptr(size),
		windows.MEM_COMMIT|windows.MEM_RESERVE, windows.PAGE_READWRITE)
	if err != nil || addr != aligned {
		if addr != 0 {
			windows.VirtualFree(addr, 0, windows.MEM_RELEASE)
		}
		return 0, ErrNoMemory
	}
	return aligned, nil
}

func free(ptr uintptr, size int64) error {
	return windows.VirtualFree(ptr, 0, windows.MEM_RELEASE)
}

// tryGrow on Windows has no atomic "extend this mapping" primitive;
// a fixed-address VirtualAlloc at the adjacent page either succeeds
// or fails without side effects, which satisfies the contract.
func tryGrow(base uintptr, oldSize, newSize int64) bool {
	grow := newSize - oldSize
	if grow <= 0 {
		return true
	}
	target := base + uintptr(oldSize)
	addr, err := windows.VirtualAlloc(target, uintptr(grow),
		windows.MEM_COMMIT|windows.MEM_RESERVE, windows.PAGE_READWRITE)
	return err == nil && addr == target
}

func advise(ptr uintptr, size int64) {
	// Windows has no MADV_DONTNEED-equivalent that keeps the mapping
	// live while discarding its contents cheaply; best effort no-op.
}

func zero(ptr uintptr, size int64) {
	b := unsafe.Slice((*byte)(unsafe.Pointer(ptr)), int(size))
	for i := range b {
		b[i] = 0
	}
}
