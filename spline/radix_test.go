package spline

import "testing"

func TestRadixLookupNarrowsAroundKnownKey(t *testing.T) {
	r := NewRadixTable[uint32](4)
	for i, key := range []uint32{0, 10, 20, 30, 40, 50} {
		r.Add(key, i)
	}

	begin, end := r.Lookup(25, 5)
	if begin > end {
		t.Fatalf("expected begin <= end, got begin=%d end=%d", begin, end)
	}
	if end > 5 {
		t.Fatalf("expected end clamped to maxIndex 5, got %d", end)
	}
}

func TestRadixLookupBeforeAnyKeyClampsToZero(t *testing.T) {
	r := NewRadixTable[uint32](4)
	r.Add(100, 0)
	r.Add(200, 1)

	begin, _ := r.Lookup(0, 1)
	if begin != 0 {
		t.Fatalf("expected begin 0 for a key before everything seen, got %d", begin)
	}
}

func TestRadixRebuildsWhenKeyRangeOutgrowsBits(t *testing.T) {
	r := NewRadixTable[uint32](2) // 4 slots, covers a tiny range before rebuild
	shiftBefore := r.shift

	r.Add(0, 0)
	r.Add(1<<20, 1) // forces a rebuild: far exceeds what 2 bits can address raw

	if r.shift <= shiftBefore {
		t.Fatalf("expected rebuild to grow shift beyond %d, got %d", shiftBefore, r.shift)
	}
	begin, end := r.Lookup(1<<20, 1)
	if begin > end {
		t.Fatalf("begin=%d should not exceed end=%d after rebuild", begin, end)
	}
}

func TestRadixLookupNeverExceedsMaxIndex(t *testing.T) {
	r := NewRadixTable[uint32](4)
	for i, key := range []uint32{0, 5, 9} {
		r.Add(key, i)
	}
	_, end := r.Lookup(9, 2)
	if end > 2 {
		t.Fatalf("expected end clamped to maxIndex 2, got %d", end)
	}
}
