package bitmap

import "testing"

func TestSetAndTest(t *testing.T) {
	bm := New(2) // 16 buckets
	bm.Set(0).Set(15)

	if !bm.Test(0) || !bm.Test(15) {
		t.Fatal("expected buckets 0 and 15 to be set")
	}
	if bm.Test(1) {
		t.Fatal("expected bucket 1 to be unset")
	}
}

func TestBytesRoundTrip(t *testing.T) {
	bm := New(2)
	bm.Set(0).Set(9).Set(15)

	b := bm.Bytes()
	if len(b) != 2 {
		t.Fatalf("expected 2-byte encoding, got %d bytes", len(b))
	}

	decoded := FromBytes(b)
	for _, i := range []uint{0, 9, 15} {
		if !decoded.Test(i) {
			t.Fatalf("bucket %d lost across round trip", i)
		}
	}
	if decoded.Test(1) || decoded.Test(8) {
		t.Fatal("round trip set an unexpected bucket")
	}
}

func TestUnion(t *testing.T) {
	a := New(1).Set(0).Set(2)
	b := New(1).Set(2).Set(3)

	a.Union(b)

	for _, i := range []uint{0, 2, 3} {
		if !a.Test(i) {
			t.Fatalf("expected bucket %d set after union", i)
		}
	}
	if a.Test(1) {
		t.Fatal("union set an unexpected bucket")
	}
}

func TestIntersects(t *testing.T) {
	a := New(1).Set(0).Set(1)
	b := New(1).Set(1).Set(2)
	c := New(1).Set(5)

	if !a.Intersects(b) {
		t.Fatal("expected a and b to intersect on bucket 1")
	}
	if a.Intersects(c) {
		t.Fatal("a and c share no buckets, expected no intersection")
	}
}

func TestByteWidth(t *testing.T) {
	bm := New(4)
	if bm.ByteWidth() != 4 {
		t.Fatalf("expected ByteWidth 4, got %d", bm.ByteWidth())
	}
}
