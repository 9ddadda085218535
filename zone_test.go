package heap

import "testing"

func TestFormatZoneLayout(t *testing.T) {
	classIndex, rounded, chunking := classify(32)
	zm := &zoneMagazine{}
	z, err := acquireZone(zm, classIndex, rounded, chunking)
	if err != nil {
		t.Fatalf("acquireZone failed: %v", err)
	}
	defer releaseZoneForTest(zm, z)

	if z.magic != zoneMagic {
		t.Errorf("expected magic %x, got %x", zoneMagic, z.magic)
	}
	if z.nFree != z.nMax {
		t.Errorf("expected nFree == nMax on a fresh zone, got %v != %v", z.nFree, z.nMax)
	}
	if z.nMax <= 0 {
		t.Fatalf("expected a positive chunk count, got %v", z.nMax)
	}
	if z.basePtr%uintptr(rounded) != 0 {
		t.Errorf("expected base pointer aligned to %v, got %x", rounded, z.basePtr)
	}
	if end := z.basePtr + uintptr(z.nMax)*uintptr(rounded); end > addrOfZone(z)+uintptr(ZoneSize) {
		t.Errorf("zone layout overruns its own region: end %x > zone end %x", end, addrOfZone(z)+uintptr(ZoneSize))
	}
}

func TestZoneCarveExhaustsTail(t *testing.T) {
	classIndex, rounded, chunking := classify(32)
	zm := &zoneMagazine{}
	z, err := acquireZone(zm, classIndex, rounded, chunking)
	if err != nil {
		t.Fatalf("acquireZone failed: %v", err)
	}
	defer releaseZoneForTest(zm, z)

	seen := map[uintptr]bool{}
	nMax := z.nMax
	for i := int64(0); i < nMax; i++ {
		ptr := z.popChunk()
		if ptr == 0 {
			t.Fatalf("popChunk returned 0 at iteration %v/%v", i, nMax)
		}
		if seen[ptr] {
			t.Fatalf("popChunk returned duplicate pointer %x", ptr)
		}
		seen[ptr] = true
	}
	if z.nFree != 0 {
		t.Errorf("expected nFree 0 after exhausting zone, got %v", z.nFree)
	}
	if ptr := z.popChunk(); ptr != 0 {
		t.Errorf("expected 0 from an exhausted zone, got %x", ptr)
	}
}

func TestZonePushPopRoundTrip(t *testing.T) {
	classIndex, rounded, chunking := classify(32)
	zm := &zoneMagazine{}
	z, err := acquireZone(zm, classIndex, rounded, chunking)
	if err != nil {
		t.Fatalf("acquireZone failed: %v", err)
	}
	defer releaseZoneForTest(zm, z)

	a := z.popChunk()
	b := z.popChunk()
	if a == 0 || b == 0 {
		t.Fatalf("expected two live chunks")
	}
	freeBefore := z.nFree
	z.pushFreeChunk(a)
	z.pushFreeChunk(b)
	if z.nFree != freeBefore+2 {
		t.Errorf("expected nFree to grow by 2, got %v -> %v", freeBefore, z.nFree)
	}
	if z.firstFreePg < 0 {
		t.Errorf("expected firstFreePg to point at a nonempty page after push")
	}

	out := z.popChunk()
	if out != b && out != a {
		t.Errorf("expected to pop back one of the pushed chunks, got %x", out)
	}
}

func TestZoneMagazineRecyclesBeforeVM(t *testing.T) {
	zm := &zoneMagazine{}
	classIndex, rounded, chunking := classify(64)

	z1, err := acquireZone(zm, classIndex, rounded, chunking)
	if err != nil {
		t.Fatalf("acquireZone failed: %v", err)
	}
	addr1 := addrOfZone(z1)
	releaseZone(zm, addr1, false)

	z2, err := acquireZone(zm, classIndex, rounded, chunking)
	if err != nil {
		t.Fatalf("acquireZone failed: %v", err)
	}
	if addrOfZone(z2) != addr1 {
		t.Errorf("expected the zone magazine to recycle the released region")
	}
	releaseZoneForTest(zm, z2)
}

func releaseZoneForTest(zm *zoneMagazine, z *zoneHeader) {
	addr := addrOfZone(z)
	releaseZone(zm, addr, false)
	zm.releaseAll()
}

func TestPageIndexOf(t *testing.T) {
	base := uintptr(0x10000)
	if idx := pageIndexOf(base, base); idx != 0 {
		t.Errorf("expected page 0, got %v", idx)
	}
	if idx := pageIndexOf(base, base+uintptr(PageSize)); idx != 1 {
		t.Errorf("expected page 1, got %v", idx)
	}
}
