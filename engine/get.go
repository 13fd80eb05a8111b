package engine

import (
	"fmt"

	"github.com/embeddb/embeddb-go/errs"
	"github.com/embeddb/embeddb-go/pagecodec"
	"github.com/embeddb/embeddb-go/varstore"
)

// Get looks up key and returns a copy of its fixed-size data, or
// ErrNotFound if key was never written or has since been reclaimed
// (spec §4.7).
func (e *Engine[K]) Get(key K) ([]byte, error) {
	if data, ok := e.probeWriteBuffer(key); ok {
		return data, nil
	}

	p, idx, err := e.findOnDisk(key)
	if err != nil {
		return nil, err
	}

	out := make([]byte, e.layout.DataSize)
	copy(out, p.RecordDataBytes(idx))
	e.stats.NumReads++
	return out, nil
}

// GetVar is Get plus the record's variable-length payload, per spec
// §4.6/§4.10. It returns ErrVarExpired if the payload's page has since
// been reclaimed (I6), and a nil payload if the record was written
// with Put, or with PutVar and a nil payload, and carries no variable
// data.
func (e *Engine[K]) GetVar(key K) (data []byte, payload []byte, err error) {
	if e.vs == nil {
		return nil, nil, fmt.Errorf("%w: variable data is not enabled", errs.ErrConfigInvalid)
	}

	if d, varPtr, ok := e.probeWriteBufferVar(key); ok {
		data = d
		payload, err = e.readVarPayload(key, varPtr)
		return data, payload, err
	}

	p, idx, err := e.findOnDisk(key)
	if err != nil {
		return nil, nil, err
	}

	out := make([]byte, e.layout.DataSize)
	copy(out, p.RecordDataBytes(idx))
	e.stats.NumReads++

	varPtr := p.RecordVarPtr(idx)
	payload, err = e.readVarPayload(key, varPtr)
	return out, payload, err
}

func (e *Engine[K]) readVarPayload(key K, varPtr uint32) ([]byte, error) {
	if varPtr == varstore.NoVarData {
		return nil, nil
	}
	if uint64(key) < e.vs.MinVarRecordID {
		return nil, errs.ErrVarExpired
	}

	lenBytes, err := e.vs.ReadAt(varPtr, 4)
	if err != nil {
		return nil, err
	}
	n := int(lenBytes[0]) | int(lenBytes[1])<<8 | int(lenBytes[2])<<16 | int(lenBytes[3])<<24

	payload, err := e.vs.ReadAt(varPtr+4, n)
	if err != nil {
		return nil, err
	}
	return payload, nil
}

// probeWriteBuffer checks the not-yet-flushed write page for key,
// which Get must consult before touching disk since I1 guarantees key
// is never older than the newest flushed page.
func (e *Engine[K]) probeWriteBuffer(key K) ([]byte, bool) {
	count := int(e.writePage.Count())
	for i := 0; i < count; i++ {
		if bytesToKey[K](e.writePage.RecordKeyBytes(i)) == key {
			out := make([]byte, e.layout.DataSize)
			copy(out, e.writePage.RecordDataBytes(i))
			return out, true
		}
	}
	return nil, false
}

func (e *Engine[K]) probeWriteBufferVar(key K) ([]byte, uint32, bool) {
	count := int(e.writePage.Count())
	for i := 0; i < count; i++ {
		if bytesToKey[K](e.writePage.RecordKeyBytes(i)) == key {
			out := make([]byte, e.layout.DataSize)
			copy(out, e.writePage.RecordDataBytes(i))
			var varPtr uint32
			if e.layout.HasVarPtr {
				varPtr = e.writePage.RecordVarPtr(i)
			} else {
				varPtr = varstore.NoVarData
			}
			return out, varPtr, true
		}
	}
	return nil, 0, false
}

// findOnDisk runs the spline/radix estimate, linear-probes the
// candidate page range, and binary-searches the page that brackets
// key (spec §4.7 steps 2-5). It returns the decoded page and the
// record index within it.
func (e *Engine[K]) findOnDisk(key K) (page *pagecodec.Page, idx int, err error) {
	if !e.haveMinKey || key < e.minKey {
		return nil, 0, errs.ErrNotFound
	}

	// Spline/radix estimates are expressed in the same logical page id
	// space LogStore.Write trains them with (spec §4.2), so loc/low/high
	// are logical ids directly, not offsets from the live window start.
	loc, low, high := e.splineFind(key)

	nextID := e.log.NextDataPageID()
	minID := e.log.MinDataPageID()
	if nextID == minID {
		return nil, 0, errs.ErrNotFound
	}
	lastLive := uint32(nextID - 1)
	if high > lastLive {
		high = lastLive
	}
	if low < uint32(minID) {
		low = uint32(minID)
	}
	if loc < low {
		loc = low
	}
	if loc > high {
		loc = high
	}

	cand := loc
	for {
		if cand > high {
			cand = high
		}
		if err := e.loadPage(int64(cand)); err != nil {
			return nil, 0, err
		}

		pageMin := bytesToKey[K](e.readPage.MinKeyBytes())
		pageMax := bytesToKey[K](e.readPage.MaxKeyBytes())

		switch {
		case key < pageMin:
			if cand == low {
				return nil, 0, errs.ErrNotFound
			}
			cand--
		case key > pageMax:
			if cand == high {
				return nil, 0, errs.ErrNotFound
			}
			cand++
		default:
			i, found := searchPage[K](e.readPage, key)
			if !found {
				return nil, 0, errs.ErrNotFound
			}
			return e.readPage, i, nil
		}
		if cand < low || cand > high {
			return nil, 0, errs.ErrNotFound
		}
	}
}

// splineFind runs the radix-narrowed (if configured) or plain spline
// lookup for key, returning a page-number estimate and its error
// corridor (spec §4.3/§4.2).
func (e *Engine[K]) splineFind(key K) (loc, low, high uint32) {
	if e.radix != nil && e.spl.Count() > 0 {
		begin, end := e.radix.Lookup(key, e.spl.Count()-1)
		return e.spl.FindInRange(key, begin, end)
	}
	return e.spl.Find(key)
}

// loadPage decodes logical data page id into e.readPage, using the
// single-page cache the way LinearProbe's teacher-equivalent (the
// ring buffer's bufferedPage) does.
func (e *Engine[K]) loadPage(logicalID int64) error {
	if e.cachedID == logicalID {
		return nil
	}
	if err := e.log.Read(logicalID, e.readPage); err != nil {
		return err
	}
	if !e.readPage.VerifyCRC() {
		return errs.ErrCorrupt
	}
	e.cachedID = logicalID
	return nil
}
