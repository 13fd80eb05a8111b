package engine

import (
	"fmt"

	"github.com/embeddb/embeddb-go/errs"
	"github.com/embeddb/embeddb-go/logstore"
	"github.com/embeddb/embeddb-go/pagecodec"
	"github.com/embeddb/embeddb-go/varstore"
)

// recover rebuilds every in-memory structure (the spline, the radix
// table, min/last key bookkeeping, and the write buffer) from what is
// actually durable on disk, after an unclean shutdown (spec §4.11).
// Nothing about the recovered state depends on a clean-shutdown
// marker: the same scan runs whether or not the prior session closed
// cleanly, since a page's own CRC trailer and logical-id/physical-slot
// cross-check (Q2: reject any slot where slot != logicalID mod
// numPages) are what distinguish live data from a torn write or a
// never-written slot.
func (e *Engine[K]) recover() error {
	nextID, minID, err := e.recoverLogCursor()
	if err != nil {
		return fmt.Errorf("embeddb: recover data file: %w", err)
	}
	e.log.SetCursor(nextID, minID)

	if err := e.replayDataPages(nextID, minID); err != nil {
		return fmt.Errorf("embeddb: replay data pages: %w", err)
	}

	if e.idx != nil {
		idxNext, idxMin, err := e.recoverIndexCursor()
		if err != nil {
			return fmt.Errorf("embeddb: recover index file: %w", err)
		}
		e.idx.SetCursor(idxNext, idxMin)
		e.idxWrite = e.idx.NewWritePage(uint32(nextID))
	}

	if e.vs != nil {
		varNext, varMin, err := e.recoverVarCursor()
		if err != nil {
			return fmt.Errorf("embeddb: recover var file: %w", err)
		}
		e.vs.SetCursor(varNext, varMin)
		e.vs.SetCurrentLoc(uint64(varNext)*uint64(e.opts.PageSize) + uint64(varstore.HeaderSize(e.layout.KeySize)))
		// MinVarRecordID can't be reconstructed exactly without
		// re-reading every live var page's max key; conservatively
		// leave it at zero (no expiry) rather than guess, since a
		// false "not expired" is safe (GetVar still bounds-checks the
		// physical read) while a false "expired" would needlessly
		// reject live data.
	}

	if e.opts.RecordLevelConsistency {
		if err := e.recoverWriteBuffer(); err != nil {
			return fmt.Errorf("embeddb: recover write buffer: %w", err)
		}
	}

	return nil
}

// scanRingCursor performs the backward-contiguity scan common to all
// three ring files: find the highest valid, cross-checked logical id,
// then walk backward while ids remain contiguous and valid to find the
// oldest still-live id (spec §4.11, Q2).
func scanRingCursor(numPages int64, readSlot func(slot int64) (logicalID uint32, valid bool, err error)) (nextID, minID int64, err error) {
	haveAny := false
	var maxID int64

	for slot := int64(0); slot < numPages; slot++ {
		id, valid, rerr := readSlot(slot)
		if rerr != nil {
			return 0, 0, rerr
		}
		if !valid {
			continue
		}
		if int64(id)%numPages != slot {
			continue
		}
		if !haveAny || int64(id) > maxID {
			haveAny = true
			maxID = int64(id)
		}
	}
	if !haveAny {
		return 0, 0, nil
	}

	minID = maxID
	for steps := int64(1); steps < numPages; steps++ {
		candID := maxID - steps
		if candID < 0 {
			break
		}
		id, valid, rerr := readSlot(candID % numPages)
		if rerr != nil {
			return 0, 0, rerr
		}
		if !valid || int64(id) != candID {
			break
		}
		minID = candID
	}
	return maxID + 1, minID, nil
}

func (e *Engine[K]) recoverLogCursor() (nextID, minID int64, err error) {
	p := pagecodec.NewPage(e.log.Layout())
	return scanRingCursor(e.log.NumPages(), func(slot int64) (uint32, bool, error) {
		if err := e.log.ReadPhysical(slot, p); err != nil {
			return 0, false, err
		}
		id, valid := e.log.DecodePhysical(p)
		return id, valid, nil
	})
}

func (e *Engine[K]) recoverIndexCursor() (nextID, minID int64, err error) {
	buf := make([]byte, e.idx.PageSize())
	return scanRingCursor(e.idx.NumPages(), func(slot int64) (uint32, bool, error) {
		if err := e.idx.ReadPhysical(slot, buf); err != nil {
			return 0, false, err
		}
		id, valid := e.idx.DecodePhysical(buf)
		return id, valid, nil
	})
}

func (e *Engine[K]) recoverVarCursor() (nextID, minID int64, err error) {
	buf := make([]byte, e.vs.PageSize())
	return scanRingCursor(e.vs.NumPages(), func(slot int64) (uint32, bool, error) {
		if err := e.vs.ReadPhysical(slot, buf); err != nil {
			return 0, false, err
		}
		id, valid := e.vs.DecodePhysical(buf)
		return id, valid, nil
	})
}

// replayDataPages retrains the spline, the radix table, min/last key
// bookkeeping, and LogStore's avg_key_diff estimate by re-reading every
// live data page in logical order, exactly the updates flushWritePage
// performs as pages are written live (spec §4.11 step 3).
func (e *Engine[K]) replayDataPages(nextID, minID int64) error {
	if nextID == minID {
		return nil
	}

	p := pagecodec.NewPage(e.layout)
	for id := minID; id < nextID; id++ {
		if err := e.log.ReadPhysical(id%e.log.NumPages(), p); err != nil {
			return err
		}
		if !p.VerifyCRC() {
			return fmt.Errorf("%w: data page %d failed crc check during recovery", errs.ErrCorrupt, id)
		}

		minKeyOnPage := bytesToKey[K](p.MinKeyBytes())
		maxKeyOnPage := bytesToKey[K](p.MaxKeyBytes())

		if err := e.spl.Add(minKeyOnPage, uint32(id)); err != nil {
			e.log_.Printf("embeddb: recovery: spline add rejected for page %d: %v", id, err)
		}
		if e.radix != nil {
			e.radix.Add(minKeyOnPage, e.spl.Count()-1)
		}
		e.updateMaxErrorFromPage(p)

		if !e.haveMinKey {
			e.minKey = minKeyOnPage
			e.haveMinKey = true
		}
		e.lastKey = maxKeyOnPage
		e.haveLastKey = true

		if e.log.MinKey == logstore.MinKeyUnset {
			e.log.MinKey = uint64(minKeyOnPage)
		}
		e.log.AvgKeyDiff = float64(maxKeyOnPage) - float64(e.log.MinKey)
	}
	return nil
}

// recoverWriteBuffer restores the partially-full write page from the
// freshest valid RECORD_LEVEL_CONSISTENCY snapshot, replaying its
// records' keys into the last-key bookkeeping so Put's ordering check
// (I1) and Get's write-buffer probe see them immediately (spec §6).
// rlc.Recover already CRC-validates the whole frame (seq + page +
// crc32), so the page's own internal trailer -- never stamped for an
// in-progress write buffer, only at flushWritePage -- needs no
// separate check here.
func (e *Engine[K]) recoverWriteBuffer() error {
	buf, ok, err := e.rlc.Recover()
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}

	copy(e.writePage.Buf, buf)

	count := int(e.writePage.Count())
	if count == 0 {
		return nil
	}
	if !e.haveMinKey {
		e.minKey = bytesToKey[K](e.writePage.RecordKeyBytes(0))
		e.haveMinKey = true
	}
	e.lastKey = bytesToKey[K](e.writePage.RecordKeyBytes(count - 1))
	e.haveLastKey = true
	return nil
}
