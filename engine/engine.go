// Package engine glues PageCodec, Spline, RadixTable, LogStore,
// IndexStore, and VarStore into EmbedDB's Put/Get/Iterator surface and
// drives recovery after an unclean shutdown (spec §4.5-§4.11).
package engine

import (
	"fmt"
	"log"

	"github.com/embeddb/embeddb-go/errs"
	"github.com/embeddb/embeddb-go/indexstore"
	"github.com/embeddb/embeddb-go/logstore"
	"github.com/embeddb/embeddb-go/pagecodec"
	"github.com/embeddb/embeddb-go/rlc"
	"github.com/embeddb/embeddb-go/spline"
	"github.com/embeddb/embeddb-go/storage"
	"github.com/embeddb/embeddb-go/varstore"
)

// Stats mirrors the original implementation's counters (supplemented
// per SPEC_FULL.md §6: numWrites, numReads, numIdxWrites, bufferHits).
type Stats struct {
	NumWrites    int
	NumReads     int
	NumIdxWrites int
	BufferHits   int
}

// Engine is EmbedDB's top-level state object. It is generic over the
// host-side key representation K (spec: KEY is an unsigned integer of
// 1-8 bytes; Non-goals exclude arbitrary key ordering, so a numeric K
// loses nothing and buys plain comparison operators).
type Engine[K Key] struct {
	opts   Options
	layout pagecodec.Layout

	log   *logstore.LogStore
	idx   *indexstore.IndexStore
	vs    *varstore.VarStore
	rlc   *rlc.Window
	spl   *spline.Spline[K]
	radix *spline.RadixTable[K]

	writePage   *pagecodec.Page
	readPage    *pagecodec.Page // scratch for LinearProbe / Get
	cachedID    int64           // logical id currently decoded into readPage; -1 if none
	haveLastKey bool
	lastKey     K
	haveMinKey  bool
	minKey      K

	pageSearchMaxError uint32 // spec §4.5 "max error bookkeeping"

	idxWrite *indexstore.WritePage

	varWriteKey []byte

	stats Stats
	log_  *log.Logger
}

// Open validates the configuration, opens (or resets) the backing
// files, and, unless opts.Reset, recovers in-memory state from them
// (spec §4.11).
func Open[K Key](opts *Options) (*Engine[K], error) {
	if err := validate(opts); err != nil {
		return nil, err
	}

	layout := pagecodec.Layout{
		PageSize:   opts.PageSize,
		KeySize:    opts.KeySize,
		DataSize:   opts.DataSize,
		BitmapSize: opts.BitmapWidth,
		HasVarPtr:  opts.UseVarData,
		HasMinMax:  true,
	}
	if err := layout.Compute(); err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrConfigInvalid, err)
	}

	mode := storage.ReadPlusB
	if opts.Reset {
		mode = storage.ReadWritePlusB
	}

	ls, err := logstore.Open(opts.DataFile, mode, layout, opts.NumDataPages, opts.EraseSize)
	if err != nil {
		return nil, err
	}

	e := &Engine[K]{
		opts:      *opts,
		layout:    layout,
		log:       ls,
		spl:       spline.New[K](opts.SplineMaxError, opts.SplineCapacity),
		writePage: pagecodec.NewPage(layout),
		readPage:  pagecodec.NewPage(layout),
		cachedID:  -1,
		log_:      opts.Logger,
	}
	e.writePage.Reset(false)

	// Drive Spline.Clean from LogStore's reclaim, the way varReclaim
	// (varput.go) drives VarStore's min_var_record_id bookkeeping (spec
	// §4.10/§4.5's "invoke Spline.Clean(min_key)" step).
	ls.OnReclaim = func(newMinKey uint64) { e.spl.Clean(K(newMinKey)) }

	if opts.RadixBits > 0 {
		e.radix = spline.NewRadixTable[K](opts.RadixBits)
	}

	if opts.UseIndex {
		idx, err := indexstore.Open(opts.IndexFile, mode, opts.PageSize, opts.BitmapWidth, opts.NumIndexPages, opts.EraseSize)
		if err != nil {
			return nil, err
		}
		e.idx = idx
	}

	if opts.UseVarData {
		vs, err := varstore.Open(opts.VarFile, mode, opts.PageSize, opts.KeySize, opts.NumVarPages, opts.EraseSize)
		if err != nil {
			return nil, err
		}
		e.vs = vs
		e.varWriteKey = make([]byte, opts.KeySize)
	}

	if opts.RecordLevelConsistency {
		w, err := rlc.Open(opts.ConsistencyFile, mode, opts.PageSize, opts.EraseSize)
		if err != nil {
			return nil, err
		}
		e.rlc = w
	}

	if !opts.Reset {
		if err := e.recover(); err != nil {
			return nil, err
		}
	}

	return e, nil
}

func validate(o *Options) error {
	if o.KeySize < 1 || o.KeySize > 8 {
		return fmt.Errorf("%w: key size %d must be in [1,8]", errs.ErrConfigInvalid, o.KeySize)
	}
	if o.DataFile == nil {
		return fmt.Errorf("%w: data file is required", errs.ErrConfigInvalid)
	}
	if o.EraseSize <= 0 || o.NumDataPages%o.EraseSize != 0 {
		return fmt.Errorf("%w: erase size %d must divide data page count %d", errs.ErrConfigInvalid, o.EraseSize, o.NumDataPages)
	}
	if o.UseIndex {
		if o.IndexFile == nil {
			return fmt.Errorf("%w: index enabled but no index file supplied", errs.ErrConfigInvalid)
		}
		if o.NumIndexPages < 2*o.EraseSize {
			return fmt.Errorf("%w: index file needs at least 2 erase blocks", errs.ErrConfigInvalid)
		}
		if o.BitmapWidth <= 0 {
			return fmt.Errorf("%w: index enabled but bitmap width is 0", errs.ErrConfigInvalid)
		}
	}
	if o.UseVarData && o.VarFile == nil {
		return fmt.Errorf("%w: variable data enabled but no var file supplied", errs.ErrConfigInvalid)
	}
	if o.RecordLevelConsistency && o.ConsistencyFile == nil {
		return fmt.Errorf("%w: record-level consistency enabled but no consistency file supplied", errs.ErrConfigInvalid)
	}
	return nil
}

// Stats returns a snapshot of the engine's operation counters
// (SPEC_FULL.md §6 supplement).
func (e *Engine[K]) Stats() Stats {
	s := e.stats
	s.BufferHits = e.log.BufferHits()
	return s
}

// Close closes every backing file. It does not write out the partially
// filled data write page, index write page, or var write page.
func (e *Engine[K]) Close() error {
	if err := e.log.Close(); err != nil {
		return err
	}
	if e.idx != nil {
		if err := e.idx.Close(); err != nil {
			return err
		}
	}
	if e.vs != nil {
		if err := e.vs.Close(); err != nil {
			return err
		}
	}
	if e.rlc != nil {
		if err := e.rlc.Close(); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine[K]) maxRecords() int { return e.layout.MaxRecords() }
