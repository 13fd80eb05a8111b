// Package bitmap implements the page-summary and query bitmaps used by
// IndexStore for range pruning (spec §4.9) and by the iterator's
// predicate pushdown (spec §4.8). It is grounded on
// github.com/bits-and-blooms/bitset, present but unwired in the
// FlashLogGo teacher's go.mod; this is its concrete home.
package bitmap

import "github.com/bits-and-blooms/bitset"

// Bitmap is a fixed-width summary of a data page's data values (one
// bit per configured bucket), or a query's requested value range. Its
// on-disk form is a byte-packed bit array of ByteWidth bytes; this
// wrapper only ever grows its backing bitset to that many bits so the
// encoded form has a stable width.
type Bitmap struct {
	bits      *bitset.BitSet
	byteWidth int
}

// New returns a zero Bitmap sized to hold byteWidth*8 buckets.
func New(byteWidth int) *Bitmap {
	return &Bitmap{bits: bitset.New(uint(byteWidth) * 8), byteWidth: byteWidth}
}

// FromBytes decodes a Bitmap from its on-disk byte-packed form.
func FromBytes(b []byte) *Bitmap {
	bm := New(len(b))
	words := make([]uint64, (len(b)+7)/8)
	for i, byteVal := range b {
		words[i/8] |= uint64(byteVal) << (8 * uint(i%8))
	}
	bm.bits = bitset.From(words)
	return bm
}

// Bytes encodes the Bitmap back into its on-disk byte-packed form,
// little-endian within each byte group, truncated/padded to
// byteWidth bytes.
func (b *Bitmap) Bytes() []byte {
	out := make([]byte, b.byteWidth)
	words := b.bits.Bytes()
	for i := range out {
		wordIdx := i / 8
		if wordIdx >= len(words) {
			break
		}
		out[i] = byte(words[wordIdx] >> (8 * uint(i%8)))
	}
	return out
}

// ByteWidth reports the Bitmap's on-disk packed width.
func (b *Bitmap) ByteWidth() int { return b.byteWidth }

// Set marks bucket i as present.
func (b *Bitmap) Set(i uint) *Bitmap {
	b.bits.Set(i)
	return b
}

// Test reports whether bucket i is present.
func (b *Bitmap) Test(i uint) bool {
	return b.bits.Test(i)
}

// Union folds other's set bits into b in place (used to merge a new
// record's bucket into a page's running bitmap).
func (b *Bitmap) Union(other *Bitmap) *Bitmap {
	b.bits = b.bits.Union(other.bits)
	return b
}

// Intersects reports whether b and other share at least one set bit --
// the IndexStore pruning test: a data page is skipped when its bitmap
// has no overlap with the query bitmap.
func (b *Bitmap) Intersects(other *Bitmap) bool {
	return b.bits.IntersectionCardinality(other.bits) > 0
}

// UpdateFunc folds one record's data value into a page's running
// bitmap. This is the capability-set equivalent of the spec's
// updateBitmap callback (Design Note: "function pointers in a state
// struct" -> one interface/func type per capability).
type UpdateFunc func(data []byte, bm *Bitmap)

// BuildRangeFunc constructs a query bitmap covering [min, max], the
// equivalent of the spec's buildBitmapFromRange callback.
type BuildRangeFunc func(min, max []byte, byteWidth int) *Bitmap

// InFunc reports whether data falls inside bm, the equivalent of the
// spec's inBitmap callback used by filter predicates.
type InFunc func(data []byte, bm *Bitmap) bool
