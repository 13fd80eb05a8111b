package engine

import (
	"fmt"

	"github.com/embeddb/embeddb-go/errs"
)

// Put inserts a new (key, data) record. key must be strictly greater
// than the last successfully inserted key (I1/I2; Non-goals: no
// update/delete, no arbitrary ordering); violating this returns
// ErrOutOfOrder and the write is rejected (spec §4.5 step 1, P2).
func (e *Engine[K]) Put(key K, data []byte) error {
	return e.put(key, data, nil)
}

// PutVar inserts a record with an attached variable-length payload
// (spec §4.6). variableData may be nil, in which case the record's
// var_ptr is stamped with the NO_VAR_DATA sentinel.
func (e *Engine[K]) PutVar(key K, data []byte, variableData []byte) error {
	if e.vs == nil {
		return fmt.Errorf("%w: variable data is not enabled", errs.ErrConfigInvalid)
	}
	return e.put(key, data, variableDataOrNil(variableData))
}

func variableDataOrNil(b []byte) *[]byte {
	if b == nil {
		return nil
	}
	return &b
}

func (e *Engine[K]) put(key K, data []byte, variableData *[]byte) error {
	if len(data) != e.layout.DataSize {
		return fmt.Errorf("%w: data length %d != configured size %d", errs.ErrConfigInvalid, len(data), e.layout.DataSize)
	}

	if e.haveLastKey && key <= e.lastKey {
		return errs.ErrOutOfOrder
	}

	if e.writePage.Count() == uint16(e.maxRecords()) {
		if err := e.flushWritePage(); err != nil {
			return err
		}
	}

	var varPtr uint32
	if e.vs != nil {
		ptr, err := e.putVarPayload(key, variableData)
		if err != nil {
			return err
		}
		varPtr = ptr
	}

	i := int(e.writePage.Count())
	keyBytes := make([]byte, e.layout.KeySize)
	keyToBytes(key, e.layout.KeySize, keyBytes)
	copy(e.writePage.RecordKeyBytes(i), keyBytes)
	copy(e.writePage.RecordDataBytes(i), data)
	if e.layout.HasVarPtr {
		e.writePage.SetRecordVarPtr(i, varPtr)
	}
	e.writePage.IncCount()

	if !e.haveMinKey {
		e.minKey = key
		e.haveMinKey = true
		copy(e.writePage.MinKeyBytes(), keyBytes)
		copy(e.writePage.MinDataBytes(), data)
	}
	if i == 0 {
		copy(e.writePage.MinKeyBytes(), keyBytes)
		copy(e.writePage.MinDataBytes(), data)
	}
	copy(e.writePage.MaxKeyBytes(), keyBytes)
	copy(e.writePage.MaxDataBytes(), data)

	if e.opts.BitmapWidth > 0 && e.opts.UpdateBitmap != nil {
		bm := bitmapFromBytes(e.writePage.Bitmap(), e.opts.BitmapWidth)
		e.opts.UpdateBitmap(data, bm)
		copy(e.writePage.Bitmap(), bm.Bytes())
	}

	e.lastKey = key
	e.haveLastKey = true
	e.stats.NumWrites++

	if e.rlc != nil {
		if err := e.rlc.WriteSnapshot(e.writePage.Buf); err != nil {
			return fmt.Errorf("%w: %v", errs.ErrIOFail, err)
		}
	}

	return nil
}

// flushWritePage persists a full write page (spec §4.5 step 2): writes
// it to LogStore, trains the spline and radix table with the page's
// min key, appends the page's bitmap to the index write buffer if
// indexing is enabled, updates avg_key_diff/max_error, and reinitializes
// the write page.
func (e *Engine[K]) flushWritePage() error {
	minKeyOnPage := bytesToKey[K](e.writePage.MinKeyBytes())

	pageNum, err := e.log.Write(e.writePage)
	if err != nil {
		return err
	}

	if err := e.spl.Add(minKeyOnPage, uint32(pageNum)); err != nil {
		e.log_.Printf("embeddb: spline add rejected for page %d: %v", pageNum, err)
	}
	if e.radix != nil {
		e.radix.Add(minKeyOnPage, e.spl.Count()-1)
	}

	if e.idx != nil {
		if e.idxWrite == nil {
			e.idxWrite = e.idx.NewWritePage(uint32(pageNum))
		}
		bm := bitmapFromBytes(e.writePage.Bitmap(), e.opts.BitmapWidth)
		e.idx.Append(e.idxWrite, bm)
		if e.idx.Full(e.idxWrite) {
			if _, err := e.idx.Write(e.idxWrite); err != nil {
				return err
			}
			e.stats.NumIdxWrites++
			e.idxWrite = e.idx.NewWritePage(uint32(pageNum) + 1)
		}
	}

	e.updateMaxErrorFromPage(e.writePage)

	e.writePage = newPageLike(e.writePage)
	e.writePage.Reset(false)
	return nil
}

// Flush forces a partially-full write page to disk immediately (spec
// §6 supplement, used by scenario S1's "Flush." step and exposed for
// hosts that need a durability checkpoint without filling the page).
func (e *Engine[K]) Flush() error {
	if e.writePage.Count() == 0 {
		return nil
	}
	return e.flushWritePage()
}
