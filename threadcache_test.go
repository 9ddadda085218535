package heap

import "testing"

func TestThreadCachePushPopSameClass(t *testing.T) {
	h := NewHeap(ParseOptions(""))
	tc := h.BindThread()
	defer tc.Release()

	classIndex, _, _ := classify(32)
	tc.pushTo(classIndex, 0x1000)
	tc.pushTo(classIndex, 0x2000)

	a := tc.popFrom(classIndex)
	b := tc.popFrom(classIndex)
	if a != 0x2000 || b != 0x1000 {
		t.Errorf("expected LIFO order 0x2000,0x1000, got %x,%x", a, b)
	}
	if tc.popFrom(classIndex) != 0 {
		t.Errorf("expected empty cache to report 0")
	}
}

func TestThreadCacheOverflowsToDepot(t *testing.T) {
	h := NewHeap(ParseOptions(""))
	tc := h.BindThread()
	defer tc.Release()

	classIndex := 0
	capacity := magazineCapacity(classIndex)

	for i := 0; i < capacity*2+1; i++ {
		tc.pushTo(classIndex, uintptr(0x1000+i))
	}

	d := &h.classes[classIndex].depot
	if d.full == nil {
		t.Errorf("expected at least one magazine retired to the depot's full list")
	}

	count := 0
	for tc.popFrom(classIndex) != 0 {
		count++
		if count > capacity*3 {
			t.Fatalf("popFrom looping past expected bound")
		}
	}
	if count != capacity*2+1 {
		t.Errorf("expected to pop back exactly %v rounds, got %v", capacity*2+1, count)
	}
}

func TestThreadCacheReleaseMarksDead(t *testing.T) {
	h := NewHeap(ParseOptions(""))
	tc := h.BindThread()
	tc.Release()
	if tc.init >= 0 {
		t.Errorf("expected Release to mark the cache dead")
	}

	defer func() {
		if r := recover(); r == nil {
			t.Errorf("expected Malloc on a released ThreadCache to panic")
		}
	}()
	tc.Malloc(16)
}
