package heap

import "encoding/json"
import "testing"

func jsonUnmarshalForTest(s string, out interface{}) error {
	return json.Unmarshal([]byte(s), out)
}

func TestInfoAccountsAllocatedBytes(t *testing.T) {
	h := NewHeap(ParseOptions(""))
	tc := h.BindThread()
	defer tc.Release()

	for i := 0; i < 100; i++ {
		tc.Malloc(32)
	}

	capacity, heapBytes, alloc, overhead := h.Info()
	if capacity == 0 {
		t.Errorf("expected nonzero capacity after allocating")
	}
	if heapBytes != capacity {
		t.Errorf("expected heapBytes == capacity")
	}
	if alloc <= 0 {
		t.Errorf("expected nonzero alloc after allocating")
	}
	if overhead < 0 {
		t.Errorf("expected nonnegative overhead, got %v", overhead)
	}
}

func TestUtilizationReflectsLiveChunks(t *testing.T) {
	h := NewHeap(ParseOptions(""))
	tc := h.BindThread()
	defer tc.Release()

	classIndex, _, _ := classify(32)
	for i := 0; i < 10; i++ {
		tc.Malloc(32)
	}

	inuse, ratio := h.Utilization()
	if inuse[classIndex] < 10 {
		t.Errorf("expected at least 10 in-use chunks for class %v, got %v", classIndex, inuse[classIndex])
	}
	if ratio[classIndex] <= 0 || ratio[classIndex] > 1 {
		t.Errorf("expected a utilization ratio in (0,1], got %v", ratio[classIndex])
	}
}

func TestActiveClassCountGrowsWithUse(t *testing.T) {
	h := NewHeap(ParseOptions(""))
	tc := h.BindThread()
	defer tc.Release()

	before := h.ActiveClassCount()
	tc.Malloc(16)
	tc.Malloc(2000)
	after := h.ActiveClassCount()
	if after <= before {
		t.Errorf("expected ActiveClassCount to grow after allocating in new classes, %v -> %v", before, after)
	}
}

func TestSizeHistogramTracksSamples(t *testing.T) {
	h := NewHeap(ParseOptions(""))
	tc := h.BindThread()
	defer tc.Release()

	for i := 0; i < 50; i++ {
		tc.Malloc(100)
	}
	hist := h.SizeHistogram()
	if hist.Samples() < 50 {
		t.Errorf("expected at least 50 samples, got %v", hist.Samples())
	}
}

func TestDebugStringIsWellFormedJSON(t *testing.T) {
	h := NewHeap(ParseOptions(""))
	tc := h.BindThread()
	defer tc.Release()
	tc.Malloc(32)

	s := h.DebugString()
	if len(s) == 0 {
		t.Fatalf("expected a nonempty debug string")
	}
	var out map[string]interface{}
	if err := jsonUnmarshalForTest(s, &out); err != nil {
		t.Fatalf("expected valid JSON, got error %v on %q", err, s)
	}
	if _, ok := out["capacity"]; !ok {
		t.Errorf("expected a capacity field in %q", s)
	}
}

func TestSlabsReportsRoundedSizes(t *testing.T) {
	h := NewHeap(ParseOptions(""))
	sizes := h.Slabs()
	if len(sizes) != NZones {
		t.Fatalf("expected %v entries, got %v", NZones, len(sizes))
	}
	// Class indices classify never produces (2, 11, 18-22, 71) serve
	// no size and report 0; the ordering holds across the used ones.
	prev := 0
	for i := 1; i < len(sizes); i++ {
		if sizes[i] == 0 {
			continue
		}
		if sizes[i] < sizes[prev] {
			t.Errorf("expected nondecreasing slab sizes, class %v (%v) < class %v (%v)", i, sizes[i], prev, sizes[prev])
		}
		prev = i
	}
}
