package spline

import "errors"

var (
	errOutOfOrder   = errors.New("spline: key out of order")
	errEraseTooMany = errors.New("spline: erase would leave fewer than one point")
)

// ErrOutOfOrder reports whether err is the duplicate/out-of-order
// rejection from Add.
func ErrOutOfOrder(err error) bool { return errors.Is(err, errOutOfOrder) }

// ErrEraseTooMany reports whether err is the "would leave no points"
// rejection from Erase.
func ErrEraseTooMany(err error) bool { return errors.Is(err, errEraseTooMany) }
