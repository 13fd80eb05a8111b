// Package ringfile is the shared circular, erase-block-aware page file
// mechanics underneath LogStore, IndexStore, and VarStore. It is
// adapted from the FlashLogGo teacher's segmentmanager.diskSegmentManager
// (active-file handle, size-triggered rotation, functional options) and
// segments.SegmentsWriter interface, generalized from the teacher's
// unbounded-growth append-only segment files into a fixed-size ring:
// physical slot = logical id mod numPages, with erase-block-granularity
// reclaim instead of "create a new segment file".
package ringfile

import (
	"fmt"

	"github.com/embeddb/embeddb-go/storage"
)

// RingFile owns one storage.File as a fixed-size circular array of
// page-sized slots and tracks the logical cursor (next id to write,
// lowest id still live) common to all three EmbedDB log files.
type RingFile struct {
	file       storage.File
	pageSize   int
	numPages   int64
	eraseSize  int64 // pages per erase block; must divide numPages

	nextID int64 // next logical id to be written
	minID  int64 // lowest logical id still live

	bufID int64 // logical id currently held in readBuf; -1 if none
	buf   []byte

	BufferHits int
	BufferMiss int
}

// Open validates geometry (erase size must divide numPages, per spec
// §4.4) and opens the backing file.
func Open(f storage.File, mode storage.Mode, pageSize int, numPages, eraseSize int64) (*RingFile, error) {
	if eraseSize <= 0 || numPages%eraseSize != 0 {
		return nil, fmt.Errorf("ringfile: erase size %d does not divide page count %d", eraseSize, numPages)
	}
	if err := f.Open(mode); err != nil {
		return nil, fmt.Errorf("ringfile: open: %w", err)
	}
	return &RingFile{
		file:      f,
		pageSize:  pageSize,
		numPages:  numPages,
		eraseSize: eraseSize,
		bufID:     -1,
		buf:       make([]byte, pageSize),
	}, nil
}

// NumPages, EraseSize, PageSize expose frozen geometry.
func (r *RingFile) NumPages() int64  { return r.numPages }
func (r *RingFile) EraseSize() int64 { return r.eraseSize }
func (r *RingFile) PageSize() int    { return r.pageSize }

// NextID / MinID / Avail expose the live-window cursor (spec I3).
func (r *RingFile) NextID() int64 { return r.nextID }
func (r *RingFile) MinID() int64  { return r.minID }
func (r *RingFile) Avail() int64  { return r.numPages - (r.nextID - r.minID) }

// SetCursor is used by recovery to restore nextID/minID without
// performing any I/O.
func (r *RingFile) SetCursor(nextID, minID int64) {
	r.nextID = nextID
	r.minID = minID
}

func (r *RingFile) physicalSlot(logicalID int64) int64 {
	return logicalID % r.numPages
}

// ReclaimFunc is invoked just before a write that would overflow the
// ring, once per erase block reclaimed. It receives the logical id of
// the first page in the block about to be erased and numPages==eraseSize
// worth of old pages; the caller uses it to update any auxiliary
// key-range bookkeeping (LogStore's min_key/spline clean, VarStore's
// min_var_record_id) before the physical erase happens.
type ReclaimFunc func(blockStartID int64, eraseSize int64) error

// Write stamps buf's logical id is assumed already written by the
// caller (PageCodec owns that), reclaims one erase block first if the
// ring is full, then writes buf to the next physical slot and
// advances nextID.
func (r *RingFile) Write(buf []byte, onReclaim ReclaimFunc) (logicalID int64, err error) {
	if r.Avail() <= 0 {
		blockStart := r.minID
		if onReclaim != nil {
			if err := onReclaim(blockStart, r.eraseSize); err != nil {
				return 0, err
			}
		}
		startSlot := r.physicalSlot(blockStart)
		if err := r.file.Erase(startSlot, startSlot+r.eraseSize, r.pageSize); err != nil {
			return 0, fmt.Errorf("ringfile: erase: %w", err)
		}
		r.minID += r.eraseSize
	}

	id := r.nextID
	slot := r.physicalSlot(id)
	if err := r.file.WriteAt(buf, slot, r.pageSize); err != nil {
		return 0, fmt.Errorf("ringfile: write logical %d: %w", id, err)
	}
	r.nextID++

	if id == r.bufID {
		copy(r.buf, buf)
	}
	return id, nil
}

// Read serves logicalID from the single-page cache when possible,
// otherwise fetches the physical slot.
func (r *RingFile) Read(logicalID int64, out []byte) error {
	if logicalID < r.minID || logicalID >= r.nextID {
		return fmt.Errorf("ringfile: logical id %d outside live window [%d,%d)", logicalID, r.minID, r.nextID)
	}
	if logicalID == r.bufID {
		r.BufferHits++
		copy(out, r.buf)
		return nil
	}
	slot := r.physicalSlot(logicalID)
	if err := r.file.ReadAt(r.buf, slot, r.pageSize); err != nil {
		return fmt.Errorf("ringfile: read logical %d: %w", logicalID, err)
	}
	r.bufID = logicalID
	r.BufferMiss++
	copy(out, r.buf)
	return nil
}

// ReadPhysical bypasses the logical-window check and cache; used by
// recovery to scan the raw file.
func (r *RingFile) ReadPhysical(physicalSlot int64, out []byte) error {
	return r.file.ReadAt(out, physicalSlot, r.pageSize)
}

// Flush syncs the backing file.
func (r *RingFile) Flush() error {
	return r.file.Flush()
}

// Close closes the backing file.
func (r *RingFile) Close() error {
	return r.file.Close()
}
