package fpfilter

import "errors"

// ErrFull is returned by Insert when the filter has no empty slots left.
var ErrFull = errors.New("fpfilter: filter is full")
