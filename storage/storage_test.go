package storage

import (
	"path/filepath"
	"testing"
)

func TestMemFileWriteReadRoundTrip(t *testing.T) {
	f := NewMemFile(4 * 16)
	if err := f.Open(ReadWritePlusB); err != nil {
		t.Fatalf("open: %v", err)
	}

	page := make([]byte, 16)
	for i := range page {
		page[i] = byte(i)
	}
	if err := f.WriteAt(page, 2, 16); err != nil {
		t.Fatalf("write: %v", err)
	}

	out := make([]byte, 16)
	if err := f.ReadAt(out, 2, 16); err != nil {
		t.Fatalf("read: %v", err)
	}
	for i := range out {
		if out[i] != page[i] {
			t.Fatalf("byte %d: got %x want %x", i, out[i], page[i])
		}
	}
}

func TestMemFileReadWriteOutOfRange(t *testing.T) {
	f := NewMemFile(2 * 16)
	if err := f.Open(ReadWritePlusB); err != nil {
		t.Fatalf("open: %v", err)
	}

	buf := make([]byte, 16)
	if err := f.WriteAt(buf, 5, 16); err == nil {
		t.Fatal("expected error writing past the end of the file")
	}
	if err := f.ReadAt(buf, 5, 16); err == nil {
		t.Fatal("expected error reading past the end of the file")
	}
}

func TestMemFileErase(t *testing.T) {
	f := NewMemFile(2 * 16)
	if err := f.Open(ReadWritePlusB); err != nil {
		t.Fatalf("open: %v", err)
	}

	page := make([]byte, 16)
	for i := range page {
		page[i] = 0x42
	}
	if err := f.WriteAt(page, 0, 16); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := f.Erase(0, 1, 16); err != nil {
		t.Fatalf("erase: %v", err)
	}

	out := make([]byte, 16)
	if err := f.ReadAt(out, 0, 16); err != nil {
		t.Fatalf("read: %v", err)
	}
	for i, b := range out {
		if b != 0xFF {
			t.Fatalf("byte %d: expected erase to leave 0xFF, got %x", i, b)
		}
	}
}

func TestOSFileWriteReadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	f := NewOSFile(filepath.Join(dir, "data.bin"))
	if err := f.Open(ReadWritePlusB); err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()

	page := []byte("0123456789abcdef")
	if err := f.WriteAt(page, 3, len(page)); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := f.Flush(); err != nil {
		t.Fatalf("flush: %v", err)
	}

	out := make([]byte, len(page))
	if err := f.ReadAt(out, 3, len(page)); err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(out) != string(page) {
		t.Fatalf("got %q want %q", out, page)
	}
}

func TestOSFileReadPastEOFZeroFills(t *testing.T) {
	dir := t.TempDir()
	f := NewOSFile(filepath.Join(dir, "data.bin"))
	if err := f.Open(ReadWritePlusB); err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()

	out := make([]byte, 16)
	for i := range out {
		out[i] = 0x11
	}
	if err := f.ReadAt(out, 0, 16); err != nil {
		t.Fatalf("read: %v", err)
	}
	for i, b := range out {
		if b != 0 {
			t.Fatalf("byte %d: expected zero-fill past EOF, got %x", i, b)
		}
	}
}
