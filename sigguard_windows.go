//go:build windows

package heap

// Windows has no POSIX signal model for nmalloc_sigblockall to map
// onto (structured exception handling is a different mechanism, and
// is not what §5 is guarding against). sigDepth in sigguard.go still
// tracks entry-point nesting; there is simply nothing to mask here.
func sigBlockAllOS() interface{}  { return nil }
func sigUnblockAllOS(interface{}) {}
