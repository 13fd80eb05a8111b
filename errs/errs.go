// Package errs holds the sentinel errors returned across embeddb's
// packages. Callers should use errors.Is against these rather than
// comparing strings.
package errs

import "errors"

var (
	// ErrConfigInvalid is returned at Open time when the requested
	// layout or file geometry cannot be satisfied (key size outside
	// [1,8] bytes, erase size not dividing a file's page count, an index
	// file under two erase blocks, a missing file handle for an enabled
	// feature), and by Put/PutVar/GetVar when a call does not fit the
	// configuration (wrong data length, variable data not enabled).
	ErrConfigInvalid = errors.New("embeddb: invalid configuration")

	// ErrIOFail wraps a storage callback returning failure. It is
	// never retried internally.
	ErrIOFail = errors.New("embeddb: storage i/o failed")

	// ErrOutOfOrder is returned by Put when the new key is not
	// strictly greater than the last accepted key.
	ErrOutOfOrder = errors.New("embeddb: key out of order")

	// ErrNotFound is returned by Get and GetVar when no record matches.
	// The iterator reports exhaustion with ok=false from Next instead.
	ErrNotFound = errors.New("embeddb: record not found")

	// ErrVarExpired is returned by GetVar when the fixed record was
	// found but its variable payload has already been reclaimed.
	ErrVarExpired = errors.New("embeddb: variable data expired")

	// ErrAllocFail names a failed allocation of a variable-length read
	// stream. No function in this module returns it.
	ErrAllocFail = errors.New("embeddb: allocation failed")

	// ErrCorrupt is returned when a page or record fails its CRC
	// check on read.
	ErrCorrupt = errors.New("embeddb: corrupt page")
)
