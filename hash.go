package qfilter

import "github.com/cespare/xxhash/v2"

// HashFunc maps a key to an unsigned integer fingerprint. It must be
// deterministic: equal keys must always hash to the same value. Unequal
// keys are permitted to collide — that collision is exactly what
// produces a false positive in a membership query.
type HashFunc[K any] func(K) uint64

// NewBytesHash returns the default hash function for []byte keys,
// backed by xxhash.
func NewBytesHash() HashFunc[[]byte] {
	return func(b []byte) uint64 { return xxhash.Sum64(b) }
}

// NewStringHash returns the default hash function for string keys,
// backed by xxhash.
func NewStringHash() HashFunc[string] {
	return func(s string) uint64 { return xxhash.Sum64String(s) }
}
