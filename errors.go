package qfilter

import "errors"

// ErrCapacityOverflow is returned by Reserve and Insert when growing to
// the requested capacity would require zero remainder bits — the
// configured FPBits is too narrow to distinguish that many quotients.
var ErrCapacityOverflow = errors.New("qfilter: capacity overflow: fingerprint too narrow for requested capacity")
