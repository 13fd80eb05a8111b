// Package logstore implements EmbedDB's LogStore: the circular,
// erase-block-aware data-page log (spec §4.4), adapted from
// internal/ringfile plus the running min_key/avg_key_diff bookkeeping
// the engine needs for spline training and linear-probe seeding.
package logstore

import (
	"fmt"

	"github.com/embeddb/embeddb-go/errs"
	"github.com/embeddb/embeddb-go/internal/ringfile"
	"github.com/embeddb/embeddb-go/pagecodec"
	"github.com/embeddb/embeddb-go/storage"
)

// MinKeyUnset is the sentinel for "no data page has ever been
// written", matching the spec's UINT32_MAX-style convention widened to
// 64 bits so it works for any supported key width.
const MinKeyUnset = ^uint64(0)

// CleanFunc is invoked on reclaim with the new min_key estimate so the
// caller (Engine) can drive Spline.Clean; LogStore itself has no
// spline dependency.
type CleanFunc func(newMinKey uint64)

// LogStore owns the data file's circular page ring.
type LogStore struct {
	ring   *ringfile.RingFile
	layout pagecodec.Layout

	MinKey     uint64
	AvgKeyDiff float64
	OnReclaim  CleanFunc
}

// Open opens (or initializes) the data file. numPages must be a
// multiple of eraseSize.
func Open(f storage.File, mode storage.Mode, layout pagecodec.Layout, numPages, eraseSize int64) (*LogStore, error) {
	r, err := ringfile.Open(f, mode, layout.PageSize, numPages, eraseSize)
	if err != nil {
		return nil, fmt.Errorf("logstore: %w", err)
	}
	return &LogStore{ring: r, layout: layout, MinKey: MinKeyUnset}, nil
}

// NumPages / EraseSize / NextDataPageID / MinDataPageID / Avail mirror the
// ring's cursor for the engine and recovery.
func (s *LogStore) NumPages() int64      { return s.ring.NumPages() }
func (s *LogStore) EraseSize() int64     { return s.ring.EraseSize() }
func (s *LogStore) NextDataPageID() int64 { return s.ring.NextID() }
func (s *LogStore) MinDataPageID() int64  { return s.ring.MinID() }
func (s *LogStore) Avail() int64          { return s.ring.Avail() }

// SetCursor restores the logical cursor during recovery.
func (s *LogStore) SetCursor(nextID, minID int64) { s.ring.SetCursor(nextID, minID) }

// keyOf decodes the low KeySize bytes of a key slice into a uint64,
// the host-side representation every key width is normalized to
// (DESIGN.md: KEY modeled as uint64, serialized to a configurable byte
// width).
func keyOf(b []byte) uint64 {
	var v uint64
	for i := len(b) - 1; i >= 0; i-- {
		v = v<<8 | uint64(b[i])
	}
	return v
}

// Write persists a fully packed page, reclaiming one erase block first
// if the ring is full. It estimates the new min_key the way spec §4.4
// describes: minKey advances by eraseSize * maxRecordsPerPage *
// avgKeyDiff, and the caller's CleanFunc (spline cleaning) is invoked
// with that estimate.
func (s *LogStore) Write(p *pagecodec.Page) (logicalID int64, err error) {
	p.SetLogicalID(uint32(s.ring.NextID()))
	p.StampCRC()

	id, err := s.ring.Write(p.Buf, func(blockStart, eraseSize int64) error {
		if s.MinKey == MinKeyUnset {
			return nil
		}
		estAdvance := float64(eraseSize) * float64(s.layout.MaxRecords()) * s.AvgKeyDiff
		newMinKey := s.MinKey + uint64(estAdvance)
		s.MinKey = newMinKey
		if s.OnReclaim != nil {
			s.OnReclaim(newMinKey)
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("%w: %v", errs.ErrIOFail, err)
	}

	maxKey := keyOf(p.MaxKeyBytes())
	minKeyOnPage := keyOf(p.MinKeyBytes())
	if s.MinKey == MinKeyUnset {
		s.MinKey = minKeyOnPage
	}
	s.AvgKeyDiff = float64(maxKey) - float64(s.MinKey)

	return id, nil
}

// Read fetches logicalID into p.Buf via the ring's single-page cache.
func (s *LogStore) Read(logicalID int64, p *pagecodec.Page) error {
	if err := s.ring.Read(logicalID, p.Buf); err != nil {
		return fmt.Errorf("%w: %v", errs.ErrIOFail, err)
	}
	return nil
}

// ReadPhysical bypasses the logical window, used by recovery to scan
// raw physical slots.
func (s *LogStore) ReadPhysical(slot int64, p *pagecodec.Page) error {
	return s.ring.ReadPhysical(slot, p.Buf)
}

// Layout exposes the page geometry for recovery's scratch-page
// allocation.
func (s *LogStore) Layout() pagecodec.Layout { return s.layout }

// DecodePhysical reports a raw physical-slot page's logical id and
// whether its CRC trailer validates, for recovery's logical-id scan
// (spec §4.11).
func (s *LogStore) DecodePhysical(p *pagecodec.Page) (logicalID uint32, valid bool) {
	if !p.VerifyCRC() {
		return 0, false
	}
	return p.LogicalID(), true
}

// BufferHits / BufferMiss expose the read-cache counters.
func (s *LogStore) BufferHits() int { return s.ring.BufferHits }
func (s *LogStore) BufferMiss() int { return s.ring.BufferMiss }

func (s *LogStore) Flush() error { return s.ring.Flush() }
func (s *LogStore) Close() error { return s.ring.Close() }
