package engine

import (
	"github.com/embeddb/embeddb-go/bitmap"
	"github.com/embeddb/embeddb-go/pagecodec"
)

// Iterator walks records in ascending key order across the flushed
// data log and the not-yet-flushed write buffer, optionally bounded by
// a key range and a data-value predicate pushed down to IndexStore's
// per-page bitmaps (spec §4.8/§4.9).
type Iterator[K Key] struct {
	e *Engine[K]

	haveMinKey bool
	minKey     K
	haveMaxKey bool
	maxKey     K

	queryBM *bitmap.Bitmap // nil if no predicate pushdown configured

	page       *pagecodec.Page
	curPage    int64
	lastPage   int64
	pos        int
	pageLoaded bool

	idxLogID int64
	idxFirst uint32
	idxBmps  [][]byte

	inTail  bool
	tailPos int

	done bool
}

// NewIterator returns an Iterator bounded by the given key range
// (either bound may be nil for "unbounded") and, when IndexStore and
// the bitmap callbacks are configured, an optional data-value range
// used to skip whole pages whose summary bitmap cannot match (spec
// §4.9). minData/maxData are ignored when index pruning isn't enabled.
func (e *Engine[K]) NewIterator(minKey, maxKey *K, minData, maxData []byte) *Iterator[K] {
	it := &Iterator[K]{e: e, page: pagecodec.NewPage(e.layout)}
	if minKey != nil {
		it.haveMinKey = true
		it.minKey = *minKey
	}
	if maxKey != nil {
		it.haveMaxKey = true
		it.maxKey = *maxKey
	}

	if e.idx != nil && e.opts.BuildBitmapFromRange != nil && (minData != nil || maxData != nil) {
		it.queryBM = e.opts.BuildBitmapFromRange(minData, maxData, e.opts.BitmapWidth)
		it.idxLogID = e.idx.MinIndexPageID()
	}

	nextID := e.log.NextDataPageID()
	minID := e.log.MinDataPageID()
	it.lastPage = nextID - 1

	it.curPage = minID
	if it.haveMinKey && nextID > minID {
		_, low, _ := e.splineFind(it.minKey)
		start := int64(low)
		if start < minID {
			start = minID
		}
		it.curPage = start
	}
	if it.lastPage < it.curPage {
		it.startTail()
	}
	return it
}

func (it *Iterator[K]) startTail() {
	it.inTail = true
	it.tailPos = 0
}

// pageBitmapIntersects reports whether the data page's summary bitmap
// overlaps the iterator's query bitmap, consulting IndexStore pages in
// increasing logical order (matching the iterator's own page-visit
// order, so each index page is decoded at most once per scan).
func (it *Iterator[K]) pageBitmapIntersects(pageID int64) bool {
	if it.queryBM == nil {
		return true
	}
	for {
		if it.idxBmps != nil && uint32(pageID) >= it.idxFirst && int(uint32(pageID)-it.idxFirst) < len(it.idxBmps) {
			bm := bitmapFromBytes(it.idxBmps[uint32(pageID)-it.idxFirst], it.e.opts.BitmapWidth)
			return bm.Intersects(it.queryBM)
		}
		if it.idxLogID >= it.e.idx.NextIndexPageID() {
			return true
		}
		first, bitmaps, err := it.e.idx.ReadPage(it.idxLogID)
		it.idxLogID++
		if err != nil {
			return true
		}
		it.idxFirst = first
		it.idxBmps = bitmaps
	}
}

// Next advances the iterator and reports the next matching (key, data)
// pair, or ok=false once the range/predicate is exhausted.
func (it *Iterator[K]) Next() (key K, data []byte, ok bool) {
	if it.done {
		return key, nil, false
	}

	for {
		if it.inTail {
			return it.nextFromTail()
		}

		if !it.pageLoaded {
			if it.curPage > it.lastPage {
				it.startTail()
				continue
			}
			if !it.pageBitmapIntersects(it.curPage) {
				it.curPage++
				continue
			}
			if err := it.e.log.Read(it.curPage, it.page); err != nil {
				it.done = true
				return key, nil, false
			}
			if !it.page.VerifyCRC() {
				it.done = true
				return key, nil, false
			}
			it.pos = 0
			it.pageLoaded = true
		}

		count := int(it.page.Count())
		if it.pos >= count {
			it.pageLoaded = false
			it.curPage++
			continue
		}

		k := bytesToKey[K](it.page.RecordKeyBytes(it.pos))
		d := it.page.RecordDataBytes(it.pos)
		it.pos++

		if it.haveMinKey && k < it.minKey {
			continue
		}
		if it.haveMaxKey && k > it.maxKey {
			it.done = true
			return key, nil, false
		}
		if it.queryBM != nil && it.e.opts.InBitmap != nil && !it.e.opts.InBitmap(d, it.queryBM) {
			continue
		}

		out := make([]byte, it.e.layout.DataSize)
		copy(out, d)
		return k, out, true
	}
}

// nextFromTail scans the engine's in-progress write page, which holds
// records newer than anything LogStore has flushed (spec §4.7's "check
// the write buffer first" rule applies symmetrically to iteration).
func (it *Iterator[K]) nextFromTail() (key K, data []byte, ok bool) {
	wp := it.e.writePage
	count := int(wp.Count())
	for it.tailPos < count {
		i := it.tailPos
		it.tailPos++

		k := bytesToKey[K](wp.RecordKeyBytes(i))
		d := wp.RecordDataBytes(i)

		if it.haveMinKey && k < it.minKey {
			continue
		}
		if it.haveMaxKey && k > it.maxKey {
			it.done = true
			return key, nil, false
		}
		if it.queryBM != nil && it.e.opts.InBitmap != nil && !it.e.opts.InBitmap(d, it.queryBM) {
			continue
		}

		out := make([]byte, it.e.layout.DataSize)
		copy(out, d)
		return k, out, true
	}
	it.done = true
	return key, nil, false
}

// Close releases the iterator's page buffer and query bitmap. It never
// returns an error; it exists so callers have a symmetric defer
// alongside Engine.Close (SPEC_FULL.md §6 supplement).
func (it *Iterator[K]) Close() {
	it.page = nil
	it.queryBM = nil
	it.idxBmps = nil
}
