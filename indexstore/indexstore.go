// Package indexstore implements IndexStore: a parallel circular log of
// per-data-page bitmaps used for range pruning (spec §4.9), mirroring
// LogStore's ring-file discipline but requiring at least two erase
// blocks (numIndexPages >= 2*eraseSize) since it is a pure acceleration
// structure layered on top of the data file.
package indexstore

import (
	"fmt"
	"hash/crc32"

	"github.com/embeddb/embeddb-go/bitmap"
	"github.com/embeddb/embeddb-go/errs"
	"github.com/embeddb/embeddb-go/internal/ringfile"
	"github.com/embeddb/embeddb-go/storage"
)

// IndexStore owns the index file's circular page ring. Its pages use a
// package-local codec rather than pagecodec.Page: a header of
// logical_page_id(4) + count(2) + the logical id of the first data page
// summarised on this index page(4), a payload of fixed-width bitmaps,
// and a trailing CRC32.
type IndexStore struct {
	ring      *ringfile.RingFile
	pageSize  int
	bmpWidth  int
	maxPerPg  int
}

// Open opens (or initializes) the index file. numPages must be a
// multiple of eraseSize and at least 2*eraseSize.
func Open(f storage.File, mode storage.Mode, pageSize, bitmapByteWidth int, numPages, eraseSize int64) (*IndexStore, error) {
	if numPages < 2*eraseSize {
		return nil, fmt.Errorf("%w: index file needs at least 2 erase blocks (%d < 2*%d)", errs.ErrConfigInvalid, numPages, eraseSize)
	}
	r, err := ringfile.Open(f, mode, pageSize, numPages, eraseSize)
	if err != nil {
		return nil, fmt.Errorf("indexstore: %w", err)
	}
	// header: logical_page_id(4) + count(2) + firstDataPageID(4), trailer: crc(4)
	headerSize := 10
	maxPerPg := (pageSize - headerSize - 4) / bitmapByteWidth
	if maxPerPg < 1 {
		return nil, fmt.Errorf("%w: index page too small for one bitmap", errs.ErrConfigInvalid)
	}
	return &IndexStore{ring: r, pageSize: pageSize, bmpWidth: bitmapByteWidth, maxPerPg: maxPerPg}, nil
}

// MaxBitmapsPerPage returns how many per-page bitmaps fit in one index
// page.
func (s *IndexStore) MaxBitmapsPerPage() int { return s.maxPerPg }

func (s *IndexStore) NumPages() int64       { return s.ring.NumPages() }
func (s *IndexStore) EraseSize() int64      { return s.ring.EraseSize() }
func (s *IndexStore) NextIndexPageID() int64 { return s.ring.NextID() }
func (s *IndexStore) MinIndexPageID() int64  { return s.ring.MinID() }
func (s *IndexStore) Avail() int64           { return s.ring.Avail() }

func (s *IndexStore) SetCursor(nextID, minID int64) { s.ring.SetCursor(nextID, minID) }

// WritePage holds one in-flight index page: the logical id of the
// first data page it summarises, plus the accumulated bitmaps.
type WritePage struct {
	FirstDataPageID uint32
	Bitmaps         [][]byte
}

// NewWritePage returns an empty write page seeded with the given first
// data page id.
func (s *IndexStore) NewWritePage(firstDataPageID uint32) *WritePage {
	return &WritePage{FirstDataPageID: firstDataPageID}
}

// Full reports whether wp has no room for another bitmap.
func (s *IndexStore) Full(wp *WritePage) bool {
	return len(wp.Bitmaps) >= s.maxPerPg
}

// Append adds bm's encoded bytes to wp.
func (s *IndexStore) Append(wp *WritePage, bm *bitmap.Bitmap) {
	wp.Bitmaps = append(wp.Bitmaps, bm.Bytes())
}

// Write encodes wp into a page buffer and persists it through the
// ring, reclaiming an erase block first if full. Erasing index blocks
// only advances min_index_page_id; it never touches key-space
// invariants (spec §4.9).
func (s *IndexStore) Write(wp *WritePage) (logicalID int64, err error) {
	buf := make([]byte, s.pageSize)
	encodeIndexPage(buf, wp, s.bmpWidth, uint32(s.ring.NextID()))
	id, err := s.ring.Write(buf, nil)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", errs.ErrIOFail, err)
	}
	return id, nil
}

func encodeIndexPage(buf []byte, wp *WritePage, bmpWidth int, logicalID uint32) []byte {
	putU32(buf[0:4], logicalID)
	putU16(buf[4:6], uint16(len(wp.Bitmaps)))
	putU32(buf[6:10], wp.FirstDataPageID)
	off := 10
	for _, b := range wp.Bitmaps {
		copy(buf[off:off+bmpWidth], b)
		off += bmpWidth
	}
	stampCRC(buf)
	return buf
}

func putU32(b []byte, v uint32) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
	b[2] = byte(v >> 16)
	b[3] = byte(v >> 24)
}

func putU16(b []byte, v uint16) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
}

func getU32(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}

func getU16(b []byte) uint16 {
	return uint16(b[0]) | uint16(b[1])<<8
}

// crcOffset mirrors pagecodec's trailing-CRC32 convention.
func crcOffset(pageSize int) int { return pageSize - 4 }

func stampCRC(buf []byte) {
	sum := crc32.ChecksumIEEE(buf[:crcOffset(len(buf))])
	putU32(buf[crcOffset(len(buf)):], sum)
}

func verifyCRC(buf []byte) bool {
	sum := crc32.ChecksumIEEE(buf[:crcOffset(len(buf))])
	return getU32(buf[crcOffset(len(buf)):]) == sum
}

// ReadPage fetches logicalID's index page and decodes its header plus
// raw bitmap payload.
func (s *IndexStore) ReadPage(logicalID int64) (firstDataPageID uint32, bitmaps [][]byte, err error) {
	buf := make([]byte, s.pageSize)
	if readErr := s.ring.Read(logicalID, buf); readErr != nil {
		return 0, nil, fmt.Errorf("%w: %v", errs.ErrIOFail, readErr)
	}
	if !verifyCRC(buf) {
		return 0, nil, errs.ErrCorrupt
	}
	count := int(getU16(buf[4:6]))
	firstDataPageID = getU32(buf[6:10])
	off := 10
	for i := 0; i < count; i++ {
		bm := make([]byte, s.bmpWidth)
		copy(bm, buf[off:off+s.bmpWidth])
		bitmaps = append(bitmaps, bm)
		off += s.bmpWidth
	}
	return firstDataPageID, bitmaps, nil
}

// ReadPhysical exposes the raw physical slot for recovery's logical-id
// scan.
func (s *IndexStore) ReadPhysical(slot int64, buf []byte) error {
	return s.ring.ReadPhysical(slot, buf)
}

// PageSize exposes the page geometry for recovery's scratch-buffer
// allocation.
func (s *IndexStore) PageSize() int { return s.pageSize }

// DecodePhysical reports a raw physical-slot page's logical id and
// whether its CRC trailer validates, for recovery's logical-id scan
// (spec §4.11).
func (s *IndexStore) DecodePhysical(buf []byte) (logicalID uint32, valid bool) {
	if !verifyCRC(buf) {
		return 0, false
	}
	return getU32(buf[0:4]), true
}

func (s *IndexStore) Flush() error { return s.ring.Flush() }
func (s *IndexStore) Close() error { return s.ring.Close() }
