// Command embeddb-demo exercises Engine end to end against on-disk
// files: open, insert a run of keys with an attached variable payload,
// close, and reopen to show recovery picking the cursor back up.
package main

import (
	"encoding/binary"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/embeddb/embeddb-go/bitmap"
	"github.com/embeddb/embeddb-go/engine"
	"github.com/embeddb/embeddb-go/storage"
)

func main() {
	dir, err := os.MkdirTemp("", "embeddb-demo")
	if err != nil {
		log.Fatalf("mkdir: %v", err)
	}
	defer os.RemoveAll(dir)

	opts := engine.NewOptions(8, 16, 512, 64, 8,
		engine.WithIndex(16, 2),
		engine.WithVarData(32),
		engine.WithRadix(8),
		engine.WithBitmapCallbacks(updateBitmap, buildRangeBitmap, inBitmap),
		engine.WithFiles(
			storage.NewOSFile(filepath.Join(dir, "data.bin")),
			storage.NewOSFile(filepath.Join(dir, "index.bin")),
			storage.NewOSFile(filepath.Join(dir, "var.bin")),
		),
		engine.WithReset(),
	)

	db, err := engine.Open[uint64](opts)
	if err != nil {
		log.Fatalf("open: %v", err)
	}

	for i := uint64(0); i < 500; i++ {
		data := make([]byte, 16)
		binary.LittleEndian.PutUint64(data, i*i)
		note := []byte(fmt.Sprintf("record %d", i))
		if err := db.PutVar(i, data, note); err != nil {
			log.Fatalf("put %d: %v", i, err)
		}
	}

	data, payload, err := db.GetVar(123)
	if err != nil {
		log.Fatalf("get 123: %v", err)
	}
	fmt.Printf("key=123 data=%x payload=%q\n", data, payload)

	it := db.NewIterator(ptr(uint64(100)), ptr(uint64(110)), nil, nil)
	defer it.Close()
	for {
		k, d, ok := it.Next()
		if !ok {
			break
		}
		fmt.Printf("iter key=%d data=%x\n", k, d)
	}

	if err := db.Close(); err != nil {
		log.Fatalf("close: %v", err)
	}

	reopened, err := engine.Open[uint64](engine.NewOptions(8, 16, 512, 64, 8,
		engine.WithIndex(16, 2),
		engine.WithVarData(32),
		engine.WithRadix(8),
		engine.WithBitmapCallbacks(updateBitmap, buildRangeBitmap, inBitmap),
		engine.WithFiles(
			storage.NewOSFile(filepath.Join(dir, "data.bin")),
			storage.NewOSFile(filepath.Join(dir, "index.bin")),
			storage.NewOSFile(filepath.Join(dir, "var.bin")),
		),
	))
	if err != nil {
		log.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()

	data, err = reopened.Get(250)
	if err != nil {
		log.Fatalf("get after recovery: %v", err)
	}
	fmt.Printf("after recovery key=250 data=%x\n", data)
}

func ptr[T any](v T) *T { return &v }

// demoBitmapByteWidth matches the WithIndex bitmap width configured
// above: 2 bytes, 16 buckets.
const demoBitmapByteWidth = 2

// updateBitmap/buildRangeBitmap/inBitmap form a toy bitmap capability
// set: bucket i covers the data value range [i*1<<40, (i+1)*1<<40),
// read from the leading 8 bytes of data (spec §6's updateBitmap /
// buildBitmapFromRange / inBitmap callback table).
func bucketOf(data []byte, numBuckets int) uint {
	v := binary.LittleEndian.Uint64(data[:8])
	b := v >> 40
	if int(b) >= numBuckets {
		b = uint64(numBuckets - 1)
	}
	return uint(b)
}

func updateBitmap(data []byte, bm *bitmap.Bitmap) {
	bm.Set(bucketOf(data, demoBitmapByteWidth*8))
}

func buildRangeBitmap(min, max []byte, byteWidth int) *bitmap.Bitmap {
	bm := bitmap.New(byteWidth)
	lo, hi := uint(0), uint(byteWidth*8-1)
	if min != nil {
		lo = bucketOf(min, byteWidth*8)
	}
	if max != nil {
		hi = bucketOf(max, byteWidth*8)
	}
	for i := lo; i <= hi; i++ {
		bm.Set(i)
	}
	return bm
}

func inBitmap(data []byte, bm *bitmap.Bitmap) bool {
	return bm.Test(bucketOf(data, bm.ByteWidth()*8))
}
