//go:build linux

package heap

import "runtime"

import "golang.org/x/sys/unix"

// sigBlockAllOS pins the calling goroutine to its current OS thread
// and masks every signal on it, mirroring nmalloc.c's
// nmalloc_sigblockall (a thin wrapper over sigblockall(3)). It returns
// the thread's previous mask so sigUnblockAllOS can restore it
// exactly rather than assuming nothing was blocked before.
// LockOSThread is paired 1:1 with UnlockOSThread in sigUnblockAllOS.
func sigBlockAllOS() interface{} {
	runtime.LockOSThread()
	var full, old unix.Sigset_t
	for i := range full.Val {
		full.Val[i] = ^uint64(0)
	}
	unix.PthreadSigmask(unix.SIG_SETMASK, &full, &old)
	return old
}

// sigUnblockAllOS restores the signal mask saved by sigBlockAllOS and
// releases the OS thread pin.
func sigUnblockAllOS(saved interface{}) {
	old := saved.(unix.Sigset_t)
	unix.PthreadSigmask(unix.SIG_SETMASK, &old, nil)
	runtime.UnlockOSThread()
}
