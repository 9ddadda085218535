package heap

import "testing"

func TestDefaultHeapPackageLevelAPI(t *testing.T) {
	ptr := Malloc(64)
	if ptr == nil {
		t.Fatalf("expected Malloc to return a live pointer")
	}
	if UsableSize(ptr) < 64 {
		t.Errorf("expected usable size >= 64")
	}
	Free(ptr)
}

func TestPreForkPostForkRoundTrip(t *testing.T) {
	h := NewHeap(ParseOptions(""))
	h.PreFork()
	h.PostForkParent()

	// Must be safe to use the heap again after the round trip.
	ptr := h.BindThread().Malloc(32)
	if ptr == nil {
		t.Errorf("expected heap to remain usable after PreFork/PostForkParent")
	}
}

func TestReleasePanicsOnFurtherUse(t *testing.T) {
	h := NewHeap(ParseOptions(""))
	tc := h.BindThread()
	ptr := tc.Malloc(32)
	_ = ptr
	h.Release()

	defer func() {
		if r := recover(); r == nil {
			t.Errorf("expected use of a released heap to panic")
		}
	}()
	h.BindThread().Malloc(32)
}
