package heap

import "testing"
import "unsafe"

func TestMallocZeroReturnsDistinctPointer(t *testing.T) {
	h := NewHeap(ParseOptions(""))
	tc := h.BindThread()
	defer tc.Release()

	a := tc.Malloc(0)
	b := tc.Malloc(0)
	if a == nil || b == nil {
		t.Fatalf("expected Malloc(0) to return non-null pointers")
	}
	if a == b {
		t.Errorf("expected two Malloc(0) calls to return distinct pointers")
	}
	tc.Free(a)
	tc.Free(b)
}

func TestMallocFreeSmallRoundTrip(t *testing.T) {
	h := NewHeap(ParseOptions(""))
	tc := h.BindThread()
	defer tc.Release()

	ptr := tc.Malloc(48)
	if ptr == nil {
		t.Fatalf("expected a live pointer")
	}
	b := (*[48]byte)(ptr)
	for i := range b {
		b[i] = byte(i)
	}
	tc.Free(ptr)
}

func TestCallocZerosMemory(t *testing.T) {
	h := NewHeap(ParseOptions(""))
	tc := h.BindThread()
	defer tc.Release()

	ptr := tc.Calloc(16, 8)
	if ptr == nil {
		t.Fatalf("expected a live pointer")
	}
	b := unsafe.Slice((*byte)(ptr), 128)
	for i, v := range b {
		if v != 0 {
			t.Fatalf("expected zero-filled memory at offset %v, got %v", i, v)
		}
	}
	tc.Free(ptr)
}

func TestCallocOverflowReturnsNil(t *testing.T) {
	h := NewHeap(ParseOptions(""))
	tc := h.BindThread()
	defer tc.Release()

	huge := int64(1) << 40
	if ptr := tc.Calloc(huge, huge); ptr != nil {
		t.Errorf("expected Calloc overflow to return nil")
	}
}

func TestReallocGrowPreservesPrefix(t *testing.T) {
	h := NewHeap(ParseOptions(""))
	tc := h.BindThread()
	defer tc.Release()

	ptr := tc.Malloc(16)
	b := unsafe.Slice((*byte)(ptr), 16)
	for i := range b {
		b[i] = byte(i + 1)
	}

	grown := tc.Realloc(ptr, 512)
	if grown == nil {
		t.Fatalf("expected realloc to succeed")
	}
	gb := unsafe.Slice((*byte)(grown), 16)
	for i := range gb {
		if gb[i] != byte(i+1) {
			t.Fatalf("expected prefix preserved at offset %v, got %v", i, gb[i])
		}
	}
	tc.Free(grown)
}

func TestReallocNilActsAsMalloc(t *testing.T) {
	h := NewHeap(ParseOptions(""))
	tc := h.BindThread()
	defer tc.Release()

	ptr := tc.Realloc(nil, 64)
	if ptr == nil {
		t.Fatalf("expected Realloc(nil, ...) to allocate")
	}
	tc.Free(ptr)
}

func TestAlignedAllocHonorsAlignment(t *testing.T) {
	h := NewHeap(ParseOptions(""))
	tc := h.BindThread()
	defer tc.Release()

	align := int64(128)
	ptr := tc.AlignedAlloc(align, 4000)
	if ptr == nil {
		t.Fatalf("expected a live pointer")
	}
	if uintptr(ptr)%uintptr(align) != 0 {
		t.Errorf("expected alignment %v, got address %x", align, ptr)
	}
	tc.Free(ptr)
}

func TestPosixMemalignRejectsBadAlignment(t *testing.T) {
	h := NewHeap(ParseOptions(""))
	tc := h.BindThread()
	defer tc.Release()

	if _, err := tc.PosixMemalign(3, 16); err != ErrInvalidArgument {
		t.Errorf("expected ErrInvalidArgument for non-power-of-two align, got %v", err)
	}
	if _, err := tc.PosixMemalign(4, 16); err != ErrInvalidArgument {
		t.Errorf("expected ErrInvalidArgument for align smaller than pointer size, got %v", err)
	}
}

func TestUsableSizeAtLeastRequested(t *testing.T) {
	h := NewHeap(ParseOptions(""))
	tc := h.BindThread()
	defer tc.Release()

	ptr := tc.Malloc(50)
	if got := tc.UsableSize(ptr); got < 50 {
		t.Errorf("expected usable size >= 50, got %v", got)
	}
	tc.Free(ptr)
}

func TestBigAllocationThroughPublicAPI(t *testing.T) {
	h := NewHeap(ParseOptions(""))
	tc := h.BindThread()
	defer tc.Release()

	ptr := tc.Malloc(ZoneLimit + 1)
	if ptr == nil {
		t.Fatalf("expected a live pointer for an oversized request")
	}
	if got := tc.UsableSize(ptr); got < ZoneLimit+1 {
		t.Errorf("expected usable size >= requested, got %v", got)
	}
	tc.Free(ptr)
}
