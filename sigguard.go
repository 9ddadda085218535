package heap

// sigguard.go is the Go-native resolution of spec §5's signal-safety
// requirement. nmalloc.c wraps every public entry point (__malloc,
// __calloc, __realloc, __aligned_alloc, __posix_memalign, __free) and
// its own thread-teardown path (mtmagazine_drain, mtmagazine_destructor)
// in nmalloc_sigblockall()/nmalloc_sigunblockall(), a pair of thin
// wrappers documented in the source as using "a counter on a per-thread
// shared user/kernel page" so a signal handler that itself calls
// malloc cannot reenter the allocator's own internal locks and
// deadlock or corrupt state.
//
// Go has no portable per-OS-thread signal mask the way libc's
// sigblockall/sigunblockall do: os/signal is process-wide and
// channel-based, and a goroutine is not pinned to one OS thread
// between scheduling points, so a mask applied to "this thread" at
// entry can end up restored on a different thread than the one that
// set it. golang.org/x/sys/unix exposes the real primitive
// (PthreadSigmask) the teacher's own stack already depends on for
// mmap/munmap, so this pairs it with runtime.LockOSThread for the
// span of the outermost call — the same per-call-site narrowing the
// spec's fork-safety section already applies to PreFork/PostFork —
// rather than leaving the guarantee undone. The counter itself lives
// on ThreadCache (sigDepth), approximating "per thread" the same way
// threadcache.go's magazine pair already does: nested entry points
// (Calloc calling Malloc, PosixMemalign calling AlignedAlloc) only
// mask/unmask once, on the outermost transition, exactly mirroring
// nmalloc.c's counter semantics. sigSaved holds whatever mask the
// thread already had before the outermost call, so sigExit restores
// it exactly rather than assuming no signals were blocked beforehand.
//
// Limitation, stated with the same rigor as the TLS resolution: if
// the Go scheduler preempts the calling goroutine onto a different OS
// thread between sigEnter and sigExit — possible at any safepoint
// even with the thread locked, via a fatal signal or os.Exit — the
// unmask can run on a thread whose mask was never set, a narrow
// window libc's per-thread counter does not have. This is accepted as
// out of CORE's reach, the same way the TLS section leaves true
// per-OS-thread cache affinity to the host runtime.

// sigEnter raises this thread cache's signal-block depth, masking
// every signal on the underlying OS thread on the 0->1 transition.
func (tc *ThreadCache) sigEnter() {
	if tc.sigDepth == 0 {
		tc.sigSaved = sigBlockAllOS()
	}
	tc.sigDepth++
}

// sigExit lowers the depth, restoring the saved mask on the ->0
// transition.
func (tc *ThreadCache) sigExit() {
	tc.sigDepth--
	if tc.sigDepth == 0 {
		sigUnblockAllOS(tc.sigSaved)
		tc.sigSaved = nil
	}
}
