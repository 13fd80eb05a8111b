package ringfile

import (
	"testing"

	"github.com/embeddb/embeddb-go/storage"
)

func openTestRing(t *testing.T, numPages, eraseSize int64) *RingFile {
	t.Helper()
	f := storage.NewMemFile(int(numPages) * 16)
	r, err := Open(f, storage.ReadWritePlusB, 16, numPages, eraseSize)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	return r
}

func TestOpenRejectsEraseSizeNotDividingNumPages(t *testing.T) {
	f := storage.NewMemFile(16 * 16)
	if _, err := Open(f, storage.ReadWritePlusB, 16, 10, 3); err == nil {
		t.Fatal("expected error when erase size does not divide page count")
	}
}

func TestWriteAssignsIncreasingLogicalIDs(t *testing.T) {
	r := openTestRing(t, 8, 2)

	page := make([]byte, 16)
	for i := 0; i < 5; i++ {
		id, err := r.Write(page, nil)
		if err != nil {
			t.Fatalf("write %d: %v", i, err)
		}
		if id != int64(i) {
			t.Fatalf("write %d: got logical id %d, want %d", i, id, i)
		}
	}
	if r.NextID() != 5 {
		t.Fatalf("NextID: got %d, want 5", r.NextID())
	}
}

func TestWriteReadRoundTrip(t *testing.T) {
	r := openTestRing(t, 8, 2)

	want := make([]byte, 16)
	for i := range want {
		want[i] = byte(i + 1)
	}
	id, err := r.Write(want, nil)
	if err != nil {
		t.Fatalf("write: %v", err)
	}

	got := make([]byte, 16)
	if err := r.Read(id, got); err != nil {
		t.Fatalf("read: %v", err)
	}
	for i := range got {
		if got[i] != want[i] {
			t.Fatalf("byte %d: got %x want %x", i, got[i], want[i])
		}
	}
}

func TestReadOutsideLiveWindowFails(t *testing.T) {
	r := openTestRing(t, 8, 2)
	buf := make([]byte, 16)
	if err := r.Read(0, buf); err == nil {
		t.Fatal("expected error reading before anything was written")
	}

	if _, err := r.Write(buf, nil); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := r.Read(1, buf); err == nil {
		t.Fatal("expected error reading a logical id past nextID")
	}
}

func TestWriteReclaimsOldestEraseBlockOnOverflow(t *testing.T) {
	r := openTestRing(t, 4, 2) // 2 erase blocks of 2 pages each

	page := make([]byte, 16)
	var reclaimed []int64
	onReclaim := func(blockStart int64, eraseSize int64) error {
		reclaimed = append(reclaimed, blockStart)
		return nil
	}

	// fill the ring exactly
	for i := 0; i < 4; i++ {
		if _, err := r.Write(page, onReclaim); err != nil {
			t.Fatalf("write %d: %v", i, err)
		}
	}
	if len(reclaimed) != 0 {
		t.Fatalf("expected no reclaim while the ring still has room, got %v", reclaimed)
	}

	// the 5th write overflows: one erase block (pages 0-1) must be reclaimed
	if _, err := r.Write(page, onReclaim); err != nil {
		t.Fatalf("write 5: %v", err)
	}
	if len(reclaimed) != 1 || reclaimed[0] != 0 {
		t.Fatalf("expected reclaim of block starting at 0, got %v", reclaimed)
	}
	if r.MinID() != 2 {
		t.Fatalf("MinID: got %d, want 2", r.MinID())
	}
}

func TestReadPhysicalBypassesLiveWindow(t *testing.T) {
	r := openTestRing(t, 4, 2)
	page := make([]byte, 16)
	for i := range page {
		page[i] = 0x77
	}
	if _, err := r.Write(page, nil); err != nil {
		t.Fatalf("write: %v", err)
	}

	out := make([]byte, 16)
	if err := r.ReadPhysical(0, out); err != nil {
		t.Fatalf("read physical: %v", err)
	}
	if out[0] != 0x77 {
		t.Fatalf("expected to read the physical slot directly, got %x", out[0])
	}
}

func TestSetCursorRestoresWindowWithoutIO(t *testing.T) {
	r := openTestRing(t, 8, 2)
	r.SetCursor(10, 4)

	if r.NextID() != 10 || r.MinID() != 4 {
		t.Fatalf("SetCursor: got next=%d min=%d, want next=10 min=4", r.NextID(), r.MinID())
	}
	if r.Avail() != r.NumPages()-(10-4) {
		t.Fatalf("Avail: got %d, want %d", r.Avail(), r.NumPages()-(10-4))
	}
}
