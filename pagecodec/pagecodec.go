// Package pagecodec implements EmbedDB's fixed page layout: a small
// header of configuration-dependent width followed by tightly packed,
// fixed-size records. No caller outside this package computes a byte
// offset into a page buffer directly (see SPEC_FULL.md §4.1 / Design
// Note "pointer arithmetic on a raw byte buffer").
package pagecodec

import (
	"encoding/binary"
	"fmt"
	"hash/crc32"
)

const (
	// OffLogicalID is the fixed offset of the logical page id, present
	// on every page kind.
	OffLogicalID = 0
	// OffCount is the fixed offset of the u16 record count, present on
	// every page kind except var-write pages.
	OffCount = 4

	crcSize = 4
)

// Layout describes the fixed, configuration-derived geometry of one
// page kind (data, index, or var). It is computed once at Open and
// never changes for the lifetime of the database.
type Layout struct {
	PageSize   int
	KeySize    int // 1..8
	DataSize   int
	RecordSize int // KeySize + DataSize (+4 if HasVarPtr)
	BitmapSize int // 0 if bitmaps disabled
	HasVarPtr  bool
	HasMinMax  bool // per-page min/max key & data header fields
	HeaderSize int  // computed by Compute
}

// Compute fills in RecordSize and HeaderSize from the other fields and
// validates geometry, returning an error the way embeddb's init does
// for any field mismatch.
func (l *Layout) Compute() error {
	if l.KeySize < 1 || l.KeySize > 8 {
		return fmt.Errorf("pagecodec: key size %d out of range [1,8]", l.KeySize)
	}
	if l.DataSize < 1 {
		return fmt.Errorf("pagecodec: data size must be positive")
	}

	l.RecordSize = l.KeySize + l.DataSize
	if l.HasVarPtr {
		l.RecordSize += 4
	}

	// header: logical_page_id(4) + count(2) + bitmap(B) [+ min/max key(2K) + min/max data(2D)] + crc trailer accounted separately
	header := 4 + 2 + l.BitmapSize
	if l.HasMinMax {
		header += 2*l.KeySize + 2*l.DataSize
	}
	l.HeaderSize = header

	maxRecords := (l.PageSize - l.HeaderSize - crcSize) / l.RecordSize
	if maxRecords < 1 {
		return fmt.Errorf("pagecodec: page size %d too small for header %d + record %d", l.PageSize, l.HeaderSize, l.RecordSize)
	}
	return nil
}

// MaxRecords returns the number of record slots a page of this layout
// can hold.
func (l Layout) MaxRecords() int {
	return (l.PageSize - l.HeaderSize - crcSize) / l.RecordSize
}

// Header field offsets within a fixed page, relative to the ones
// Compute has already validated fit inside HeaderSize.
func (l Layout) offMinKey() int  { return 6 + l.BitmapSize }
func (l Layout) offMaxKey() int  { return l.offMinKey() + l.KeySize }
func (l Layout) offMinData() int { return l.offMaxKey() + l.KeySize }
func (l Layout) offMaxData() int { return l.offMinData() + l.DataSize }

// Page wraps a page-sized buffer together with the layout that governs
// it. Every header and record accessor lives here; nothing else in the
// module pokes at buf directly.
type Page struct {
	Buf    []byte
	Layout Layout
}

// NewPage allocates a zeroed page-sized buffer for the given layout.
func NewPage(l Layout) *Page {
	return &Page{Buf: make([]byte, l.PageSize), Layout: l}
}

// Reset zeroes the page and, unless isVarWritePage, seeds min-key and
// min-data to all-ones per spec §4.1.
func (p *Page) Reset(isVarWritePage bool) {
	for i := range p.Buf {
		p.Buf[i] = 0
	}
	if isVarWritePage || !p.Layout.HasMinMax {
		return
	}
	setAllOnes(p.Buf[p.Layout.offMinKey() : p.Layout.offMinKey()+p.Layout.KeySize])
	setAllOnes(p.Buf[p.Layout.offMinData() : p.Layout.offMinData()+p.Layout.DataSize])
}

func setAllOnes(b []byte) {
	for i := range b {
		b[i] = 0xFF
	}
}

// LogicalID reads the 4-byte little-endian logical page id.
func (p *Page) LogicalID() uint32 {
	return binary.LittleEndian.Uint32(p.Buf[OffLogicalID:])
}

// SetLogicalID writes the 4-byte little-endian logical page id.
func (p *Page) SetLogicalID(id uint32) {
	binary.LittleEndian.PutUint32(p.Buf[OffLogicalID:], id)
}

// Count reads the u16 record count.
func (p *Page) Count() uint16 {
	return binary.LittleEndian.Uint16(p.Buf[OffCount:])
}

// SetCount writes the u16 record count.
func (p *Page) SetCount(n uint16) {
	binary.LittleEndian.PutUint16(p.Buf[OffCount:], n)
}

// IncCount increments the record count in place, the Page equivalent
// of the spec's INC_COUNT macro.
func (p *Page) IncCount() {
	p.SetCount(p.Count() + 1)
}

// Bitmap returns the page's column-bitmap bytes, or nil if disabled.
func (p *Page) Bitmap() []byte {
	if p.Layout.BitmapSize == 0 {
		return nil
	}
	return p.Buf[6 : 6+p.Layout.BitmapSize]
}

// MinKeyBytes / MaxKeyBytes / MinDataBytes / MaxDataBytes expose the
// raw header slices for min/max tracking. Keys are little-endian, so
// callers decode them via the key codec before comparing; pagecodec never
// interprets their contents itself beyond the byte-copy it is asked
// to do.
func (p *Page) MinKeyBytes() []byte {
	o := p.Layout.offMinKey()
	return p.Buf[o : o+p.Layout.KeySize]
}

func (p *Page) MaxKeyBytes() []byte {
	o := p.Layout.offMaxKey()
	return p.Buf[o : o+p.Layout.KeySize]
}

func (p *Page) MinDataBytes() []byte {
	o := p.Layout.offMinData()
	return p.Buf[o : o+p.Layout.DataSize]
}

func (p *Page) MaxDataBytes() []byte {
	o := p.Layout.offMaxData()
	return p.Buf[o : o+p.Layout.DataSize]
}

// RecordSlot returns the byte slice for record i (key || data [|| var_ptr]),
// without any bounds check beyond what slicing itself enforces.
func (p *Page) RecordSlot(i int) []byte {
	off := p.Layout.HeaderSize + i*p.Layout.RecordSize
	return p.Buf[off : off+p.Layout.RecordSize]
}

// RecordKeyBytes returns the key sub-slice of record slot i.
func (p *Page) RecordKeyBytes(i int) []byte {
	s := p.RecordSlot(i)
	return s[:p.Layout.KeySize]
}

// RecordDataBytes returns the data sub-slice of record slot i.
func (p *Page) RecordDataBytes(i int) []byte {
	s := p.RecordSlot(i)
	return s[p.Layout.KeySize : p.Layout.KeySize+p.Layout.DataSize]
}

// RecordVarPtr reads the trailing 4-byte little-endian var pointer of
// record slot i. Only valid when Layout.HasVarPtr.
func (p *Page) RecordVarPtr(i int) uint32 {
	s := p.RecordSlot(i)
	return binary.LittleEndian.Uint32(s[p.Layout.KeySize+p.Layout.DataSize:])
}

// SetRecordVarPtr writes the trailing var pointer of record slot i.
func (p *Page) SetRecordVarPtr(i int, ptr uint32) {
	s := p.RecordSlot(i)
	binary.LittleEndian.PutUint32(s[p.Layout.KeySize+p.Layout.DataSize:], ptr)
}

// crcOffset is where the trailing CRC32 is stored: the last 4 bytes of
// the page.
func (l Layout) crcOffset() int { return l.PageSize - crcSize }

// StampCRC computes the CRC32 over everything preceding the trailer and
// writes it into the trailer.
func (p *Page) StampCRC() {
	sum := crc32.ChecksumIEEE(p.Buf[:p.Layout.crcOffset()])
	binary.LittleEndian.PutUint32(p.Buf[p.Layout.crcOffset():], sum)
}

// VerifyCRC recomputes the CRC32 and reports whether it matches the
// stored trailer.
func (p *Page) VerifyCRC() bool {
	sum := crc32.ChecksumIEEE(p.Buf[:p.Layout.crcOffset()])
	return binary.LittleEndian.Uint32(p.Buf[p.Layout.crcOffset():]) == sum
}
