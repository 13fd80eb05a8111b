package engine

import "github.com/embeddb/embeddb-go/spline"

// Key re-exports spline.Key so callers constructing an Engine[K] don't
// need to import the spline package directly.
type Key = spline.Key

// keyToBytes serializes k into size little-endian bytes, the on-disk
// representation every supported key width normalizes to (DESIGN.md:
// KEY modeled host-side as the widest unsigned type, truncated to the
// configured byte width at the page-codec boundary, per Design Note
// "global sentinels ... prefer a sum type internally, reserving the
// on-disk sentinel only at the codec boundary").
func keyToBytes[K Key](k K, size int, out []byte) {
	v := uint64(k)
	for i := 0; i < size; i++ {
		out[i] = byte(v)
		v >>= 8
	}
}

func bytesToKey[K Key](b []byte) K {
	var v uint64
	for i := len(b) - 1; i >= 0; i-- {
		v = v<<8 | uint64(b[i])
	}
	return K(v)
}

func cmpKeyBytes(a, b []byte) int {
	// little-endian byte slices of equal length: compare from the most
	// significant (last) byte down.
	for i := len(a) - 1; i >= 0; i-- {
		if a[i] != b[i] {
			if a[i] < b[i] {
				return -1
			}
			return 1
		}
	}
	return 0
}
