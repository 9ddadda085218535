package lib

import "unsafe"
import "reflect"
import "encoding/json"
import "fmt"

// Memcpy copies a memory block of length ln from src to dst. Useful
// when the memory block was obtained outside the Go runtime's GC
// (e.g. an mmap'd region), where a plain Go slice copy is not
// available because there is no slice header for either address yet.
func Memcpy(dst, src unsafe.Pointer, ln int) int {
	var srcnd, dstnd []byte
	srcsl := (*reflect.SliceHeader)(unsafe.Pointer(&srcnd))
	srcsl.Len, srcsl.Cap = ln, ln
	srcsl.Data = uintptr(src)
	dstsl := (*reflect.SliceHeader)(unsafe.Pointer(&dstnd))
	dstsl.Len, dstsl.Cap = ln, ln
	dstsl.Data = uintptr(dst)
	return copy(dstnd, srcnd)
}

// Prettystats marshals stats as JSON, indented when pretty is true.
func Prettystats(stats map[string]interface{}, pretty bool) string {
	if pretty {
		data, err := json.MarshalIndent(stats, "", "  ")
		if err != nil {
			panic(err)
		}
		return string(data)
	}
	data, err := json.Marshal(stats)
	if err != nil {
		panic(err)
	}
	return string(data)
}

// AbsInt64 returns the absolute value of x, except for -2^63 where
// the returned value is the same as the input.
func AbsInt64(x int64) int64 {
	if x < 0 {
		return -x
	}
	return x
}

func panicerr(format string, args ...interface{}) {
	panic(fmt.Errorf(format, args...))
}
