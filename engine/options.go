package engine

import (
	"io"
	"log"

	"github.com/embeddb/embeddb-go/bitmap"
	"github.com/embeddb/embeddb-go/storage"
)

// Options configures an Engine. It is built with NewOptions plus the
// With* functional options, the same pattern the FlashLogGo teacher
// uses for segmentmanager.DiskSegmentManagerOption
// (WithMaxSegmentSize, WithLogFileExt).
type Options struct {
	KeySize      int
	DataSize     int
	PageSize     int
	NumDataPages int64
	EraseSize    int64

	UseIndex      bool
	NumIndexPages int64

	BitmapWidth int // 0 disables USE_BMAP

	UseVarData  bool
	NumVarPages int64

	RadixBits int // 0 disables the radix-table accelerator

	SplineMaxError uint32
	SplineCapacity int

	RecordLevelConsistency bool
	Reset                  bool

	Logger *log.Logger

	DataFile        storage.File
	IndexFile       storage.File
	VarFile         storage.File
	ConsistencyFile storage.File

	UpdateBitmap         bitmap.UpdateFunc
	BuildBitmapFromRange bitmap.BuildRangeFunc
	InBitmap             bitmap.InFunc
}

// Option mutates an Options during construction.
type Option func(*Options)

// NewOptions returns an Options with the required geometry set and
// sane defaults for everything optional (no index, no bitmap, no var
// data, no radix table, spline max error 1, spline capacity 128).
func NewOptions(keySize, dataSize, pageSize int, numDataPages, eraseSize int64, opts ...Option) *Options {
	o := &Options{
		KeySize:        keySize,
		DataSize:       dataSize,
		PageSize:       pageSize,
		NumDataPages:   numDataPages,
		EraseSize:      eraseSize,
		SplineMaxError: 1,
		SplineCapacity: 128,
		Logger:         log.New(io.Discard, "", 0),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// WithIndex enables USE_INDEX with an index file of numIndexPages
// pages and the given per-page bitmap byte width.
func WithIndex(numIndexPages int64, bitmapWidth int) Option {
	return func(o *Options) {
		o.UseIndex = true
		o.NumIndexPages = numIndexPages
		o.BitmapWidth = bitmapWidth
	}
}

// WithVarData enables USE_VDATA with a var file of numVarPages pages.
func WithVarData(numVarPages int64) Option {
	return func(o *Options) {
		o.UseVarData = true
		o.NumVarPages = numVarPages
	}
}

// WithRadix enables the radix-table accelerator with the given bit
// width.
func WithRadix(bits int) Option {
	return func(o *Options) { o.RadixBits = bits }
}

// WithSpline overrides the spline's maximum error and ring capacity.
func WithSpline(maxError uint32, capacity int) Option {
	return func(o *Options) {
		o.SplineMaxError = maxError
		o.SplineCapacity = capacity
	}
}

// WithRecordLevelConsistency enables the rotating two-erase-block
// write-ahead window (spec §6).
func WithRecordLevelConsistency(consistencyFile storage.File) Option {
	return func(o *Options) {
		o.RecordLevelConsistency = true
		o.ConsistencyFile = consistencyFile
	}
}

// WithReset truncates the files at Open instead of recovering from
// them (RESET_DATA).
func WithReset() Option {
	return func(o *Options) { o.Reset = true }
}

// WithLogger sets the diagnostic logger used for non-fatal events (a
// spline Add rejected while flushing or replaying a page). Defaults to
// a discard logger.
func WithLogger(l *log.Logger) Option {
	return func(o *Options) { o.Logger = l }
}

// WithFiles sets the backing storage.File handles. DataFile is always
// required; IndexFile/VarFile are required iff the corresponding
// feature is enabled.
func WithFiles(data, index, varFile storage.File) Option {
	return func(o *Options) {
		o.DataFile = data
		o.IndexFile = index
		o.VarFile = varFile
	}
}

// WithBitmapCallbacks installs the bitmap capability set (spec §6's
// updateBitmap/buildBitmapFromRange/inBitmap callback table).
func WithBitmapCallbacks(update bitmap.UpdateFunc, buildRange bitmap.BuildRangeFunc, in bitmap.InFunc) Option {
	return func(o *Options) {
		o.UpdateBitmap = update
		o.BuildBitmapFromRange = buildRange
		o.InBitmap = in
	}
}
