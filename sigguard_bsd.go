//go:build darwin || dragonfly || freebsd || netbsd || openbsd

package heap

import "runtime"

// x/sys/unix's Sigset_t is shaped differently per BSD flavor (a plain
// uint32 alias on darwin, a Bits[4]uint32 struct on freebsd/netbsd/
// openbsd/dragonfly), so there is no single portable "block every
// signal" value to build the way sigguard_linux.go does with
// Sigset_t.Val. Rather than special-case five more struct shapes,
// these targets get the OS-thread affinity half of the guarantee
// (LockOSThread, matching nmalloc_sigblockall's counter scope of "one
// thread") without the syscall-level mask; sigDepth in sigguard.go
// still nests and de-nests correctly across reentrant entry points on
// every platform.

func sigBlockAllOS() interface{} {
	runtime.LockOSThread()
	return nil
}

func sigUnblockAllOS(interface{}) {
	runtime.UnlockOSThread()
}
