package engine

import (
	"github.com/embeddb/embeddb-go/bitmap"
	"github.com/embeddb/embeddb-go/pagecodec"
)

func newPageLike(p *pagecodec.Page) *pagecodec.Page {
	return pagecodec.NewPage(p.Layout)
}

func bitmapFromBytes(buf []byte, width int) *bitmap.Bitmap {
	if width == 0 {
		return bitmap.New(0)
	}
	return bitmap.FromBytes(buf[:width])
}

// updateMaxErrorFromPage scans the page's own records against the
// linear slope implied by its first and last key, raising
// pageSearchMaxError to the largest deviation observed (spec §4.5
// "max error bookkeeping").
func (e *Engine[K]) updateMaxErrorFromPage(p *pagecodec.Page) {
	count := int(p.Count())
	if count < 2 {
		return
	}

	firstKey := bytesToKey[K](p.RecordKeyBytes(0))
	lastKey := bytesToKey[K](p.RecordKeyBytes(count - 1))
	keyRange := int64(uint64(lastKey) - uint64(firstKey))
	if keyRange == 0 {
		return
	}

	for i := 0; i < count; i++ {
		k := bytesToKey[K](p.RecordKeyBytes(i))
		offset := int64(uint64(k) - uint64(firstKey))
		est := offset * int64(count-1) / keyRange
		dev := est - int64(i)
		if dev < 0 {
			dev = -dev
		}
		if uint32(dev) > e.pageSearchMaxError {
			e.pageSearchMaxError = uint32(dev)
		}
	}
}

// estimateKeyLocation linearly interpolates key's expected slot index
// within p from its first/last record, the equivalent of the spec's
// embedDBEstimateKeyLocation.
func estimateKeyLocation[K Key](p *pagecodec.Page, key K) int {
	count := int(p.Count())
	if count == 0 {
		return 0
	}
	firstKey := bytesToKey[K](p.RecordKeyBytes(0))
	lastKey := bytesToKey[K](p.RecordKeyBytes(count - 1))
	keyRange := int64(uint64(lastKey) - uint64(firstKey))
	if keyRange == 0 {
		return 0
	}
	offset := int64(uint64(key) - uint64(firstKey))
	est := offset * int64(count-1) / keyRange
	if est < 0 {
		est = 0
	}
	if est >= int64(count) {
		est = int64(count - 1)
	}
	return int(est)
}

// searchPage binary-searches p for key, using estimateKeyLocation as
// the first probe and falling back to bisection over the whole page
// when that probe does not hit key (spec §4.7 step 5).
func searchPage[K Key](p *pagecodec.Page, key K) (idx int, found bool) {
	count := int(p.Count())
	if count == 0 {
		return 0, false
	}

	probe := estimateKeyLocation[K](p, key)
	if probe < 0 || probe >= count {
		probe = count / 2
	}
	if k := bytesToKey[K](p.RecordKeyBytes(probe)); k == key {
		return probe, true
	}

	lo, hi := 0, count-1
	for lo <= hi {
		mid := (lo + hi) / 2
		k := bytesToKey[K](p.RecordKeyBytes(mid))
		switch {
		case k == key:
			return mid, true
		case k < key:
			lo = mid + 1
		default:
			hi = mid - 1
		}
	}
	return 0, false
}
