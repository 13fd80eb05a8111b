// Package varstore implements VarStore: the circular log of
// variable-length blobs addressed by logical byte offset (spec §4.10),
// grounded on the FlashLogGo teacher's sst.diskSSTWriter block-append
// pattern (length-prefixed entries streamed across block boundaries,
// CRC-checked) adapted from SST data blocks to EmbedDB's var pages.
package varstore

import (
	"encoding/binary"
	"fmt"
	"hash/crc32"

	"github.com/embeddb/embeddb-go/errs"
	"github.com/embeddb/embeddb-go/internal/ringfile"
	"github.com/embeddb/embeddb-go/storage"
)

// NoVarData is the sentinel var_ptr value denoting "no variable
// payload", matching the spec's UINT32_MAX convention.
const NoVarData = ^uint32(0)

// crcTrailerSize is the trailing CRC32 reserved on every var page, the
// same convention pagecodec.Page and indexstore use, so recovery can
// tell a torn/never-written var page apart from a live one.
const crcTrailerSize = 4

// headerSize is the fixed var-page header: 4-byte logical id +
// keySize-byte max-key-on-page.
func headerSize(keySize int) int { return 4 + keySize }

// HeaderSize exposes the var-page header width for recovery's cursor
// seeding.
func HeaderSize(keySize int) int { return headerSize(keySize) }

// VarStore owns the variable-data file's circular page ring.
type VarStore struct {
	ring      *ringfile.RingFile
	pageSize  int
	keySize   int
	headerSz  int
	usableSz  int // pageSize - crcTrailerSize

	MinVarRecordID uint64 // spec I6: a record's var payload is readable iff key >= this

	current []byte // in-progress write page buffer
	curKey  []byte // max-key header scratch, keySize bytes
	curLoc  uint64 // logical byte address of the next write within current page
}

// Open opens (or initializes) the var file.
func Open(f storage.File, mode storage.Mode, pageSize, keySize int, numPages, eraseSize int64) (*VarStore, error) {
	r, err := ringfile.Open(f, mode, pageSize, numPages, eraseSize)
	if err != nil {
		return nil, fmt.Errorf("varstore: %w", err)
	}
	hs := headerSize(keySize)
	vs := &VarStore{
		ring:     r,
		pageSize: pageSize,
		keySize:  keySize,
		headerSz: hs,
		usableSz: pageSize - crcTrailerSize,
		current:  make([]byte, pageSize),
		curKey:   make([]byte, keySize),
	}
	vs.resetCurrent()
	vs.curLoc = uint64(hs)
	return vs, nil
}

func (s *VarStore) resetCurrent() {
	for i := range s.current {
		s.current[i] = 0
	}
	for i := range s.curKey {
		s.curKey[i] = 0
	}
}

func (s *VarStore) PageSize() int          { return s.pageSize }
func (s *VarStore) NumPages() int64        { return s.ring.NumPages() }
func (s *VarStore) EraseSize() int64       { return s.ring.EraseSize() }
func (s *VarStore) NextVarPageID() int64   { return s.ring.NextID() }
func (s *VarStore) MinVarPageID() int64    { return s.ring.MinID() }
func (s *VarStore) Avail() int64           { return s.ring.Avail() }
func (s *VarStore) SetCursor(next, min int64) { s.ring.SetCursor(next, min) }

// CurrentLoc returns the logical byte address the next write will
// land at: nextVarPageId*pageSize + offset-into-page.
func (s *VarStore) CurrentLoc() uint64 { return s.curLoc }

// SetCurrentLoc is used by recovery to seed the write cursor after
// scanning the var file's logical-id sequence.
func (s *VarStore) SetCurrentLoc(loc uint64) { s.curLoc = loc }

func (s *VarStore) pageOffset() int {
	return int(s.curLoc % uint64(s.pageSize))
}

// freeBytes returns how many bytes remain in the current page before
// the reserved CRC trailer.
func (s *VarStore) freeBytes() int {
	return s.usableSz - s.pageOffset()
}

// FreeForLengthPrefix reports whether the current page has room for a
// 4-byte length prefix (spec §4.6 step 1).
func (s *VarStore) FreeForLengthPrefix() bool {
	return s.freeBytes() >= 4
}

// flushCurrent stamps the page's header (logical id, max-key-on-page)
// and persists it, reclaiming an erase block first if needed. It
// advances curLoc to the start of the next page's payload area and
// resets the in-progress buffer.
func (s *VarStore) flushCurrent(maxKey []byte, onReclaim ringfile.ReclaimFunc) error {
	binary.LittleEndian.PutUint32(s.current[0:4], uint32(s.ring.NextID()))
	copy(s.current[4:4+s.keySize], maxKey)
	s.stampCRC(s.current)

	if _, err := s.ring.Write(s.current, onReclaim); err != nil {
		return fmt.Errorf("%w: %v", errs.ErrIOFail, err)
	}

	nextPageID := s.ring.NextID()
	s.curLoc = uint64(nextPageID)*uint64(s.pageSize) + uint64(s.headerSz)
	s.resetCurrent()
	return nil
}

// Flush forces the current partial page to disk, stamping maxKey as
// the page's max-key header. WriteLength and WriteBytes rotate pages
// through the same internal path when a write would not otherwise fit
// (spec §4.6 step 1); Engine.Flush does not call it.
func (s *VarStore) Flush(maxKey []byte, onReclaim ringfile.ReclaimFunc) error {
	return s.flushCurrent(maxKey, onReclaim)
}

// WriteLength writes the 4-byte little-endian length prefix for a new
// variable datum at the current write location, stamping key as the
// page's max-key header (spec §4.6 step 3). Returns the logical
// address of the length prefix (the var_ptr value callers should
// store).
func (s *VarStore) WriteLength(key []byte, length uint32, onReclaim ringfile.ReclaimFunc) (varPtr uint64, err error) {
	if !s.FreeForLengthPrefix() {
		if err := s.flushCurrent(s.curKey, onReclaim); err != nil {
			return 0, err
		}
	}
	copy(s.curKey, key)
	varPtr = s.curLoc
	off := s.pageOffset()
	binary.LittleEndian.PutUint32(s.current[off:off+4], length)
	s.curLoc += 4
	return varPtr, nil
}

// WriteBytes streams payload into the var log, flushing and
// re-stamping page headers at boundaries as needed (spec §4.6 step 3).
func (s *VarStore) WriteBytes(key []byte, payload []byte, onReclaim ringfile.ReclaimFunc) error {
	for len(payload) > 0 {
		free := s.freeBytes()
		if free == 0 {
			if err := s.flushCurrent(key, onReclaim); err != nil {
				return err
			}
			free = s.freeBytes()
		}
		n := len(payload)
		if n > free {
			n = free
		}
		off := s.pageOffset()
		copy(s.current[off:off+n], payload[:n])
		s.curLoc += uint64(n)
		payload = payload[n:]
	}
	return nil
}

// ReadAt reads n bytes starting at the on-disk var_ptr address (already
// reduced modulo numVarPages*pageSize, per spec §3 "VarPage"). Because
// that modulus exactly spans one cycle of physical slots, varPtr/pageSize
// IS the physical slot to read -- no logical-id lookup is needed, which
// is what lets GetVar address data whose page has since been reused by
// a newer generation without that reuse corrupting an in-range read
// (the key-based min_var_record_id check, done by the caller before
// calling ReadAt, is what actually detects expiry; spec I6). Bytes in
// the slot of the page still being written are served from the
// in-memory write page.
func (s *VarStore) ReadAt(varPtr uint32, n int) ([]byte, error) {
	out := make([]byte, 0, n)
	pageBuf := make([]byte, s.pageSize)
	numSlots := s.ring.NumPages()
	currentSlot := s.ring.NextID() % numSlots

	slot := int64(varPtr / uint32(s.pageSize))
	offset := int(varPtr % uint32(s.pageSize))

	for len(out) < n {
		if slot == currentSlot {
			copy(pageBuf, s.current)
		} else if err := s.ring.ReadPhysical(slot, pageBuf); err != nil {
			return nil, fmt.Errorf("%w: %v", errs.ErrIOFail, err)
		}
		take := s.usableSz - offset
		remaining := n - len(out)
		if take > remaining {
			take = remaining
		}
		out = append(out, pageBuf[offset:offset+take]...)
		slot = (slot + 1) % numSlots
		offset = s.headerSz
	}
	return out, nil
}

// stampCRC computes the trailing CRC32 over everything but the last
// crcTrailerSize bytes of buf.
func (s *VarStore) stampCRC(buf []byte) {
	sum := crc32.ChecksumIEEE(buf[:s.usableSz])
	binary.LittleEndian.PutUint32(buf[s.usableSz:], sum)
}

func (s *VarStore) verifyCRC(buf []byte) bool {
	sum := crc32.ChecksumIEEE(buf[:s.usableSz])
	return binary.LittleEndian.Uint32(buf[s.usableSz:]) == sum
}

// DecodePhysical reads a raw physical-slot buffer's logical id and
// reports whether its CRC trailer validates, for recovery's
// logical-id scan (spec §4.11).
func (s *VarStore) DecodePhysical(buf []byte) (logicalID uint32, valid bool) {
	if !s.verifyCRC(buf) {
		return 0, false
	}
	return binary.LittleEndian.Uint32(buf[0:4]), true
}

// MaxKeyOnPage reads the max-key header of the var page at logicalID.
func (s *VarStore) MaxKeyOnPage(logicalID int64) ([]byte, error) {
	buf := make([]byte, s.pageSize)
	if err := s.ring.Read(logicalID, buf); err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrIOFail, err)
	}
	out := make([]byte, s.keySize)
	copy(out, buf[4:4+s.keySize])
	return out, nil
}

// ReadPhysical exposes the raw physical slot for recovery's logical-id
// scan.
func (s *VarStore) ReadPhysical(slot int64, buf []byte) error {
	return s.ring.ReadPhysical(slot, buf)
}

func (s *VarStore) Flushed() error { return s.ring.Flush() }
func (s *VarStore) Close() error   { return s.ring.Close() }
