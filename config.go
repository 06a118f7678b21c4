package qfilter

import "go.uber.org/zap"

const (
	defaultCapacity      = 16
	defaultFPBits        = 64
	defaultMaxLoadFactor = 0.8
	minMaxLoadFactor     = 0.05
	maxMaxLoadFactor     = 1.0
)

// Config holds construction-time options for a Filter.
type Config[K any] struct {
	// Hash computes the fingerprint for a key. Required.
	Hash HashFunc[K]

	// InitialCapacity is the number of elements the filter should hold
	// without growing. Defaults to 16.
	InitialCapacity uint64

	// MaxLoadFactor bounds size/capacity before a growth is triggered on
	// insert. Clamped to [0.05, 1.0]. Defaults to 0.8.
	MaxLoadFactor float64

	// FPBits is the width, in bits, of the fingerprints derived from
	// Hash's output. Defaults to 64 (the full width of a uint64).
	FPBits uint64

	// Logger receives a Debug record whenever the filter rehashes.
	// Defaults to a no-op logger.
	Logger *zap.Logger
}

// DefaultConfig returns a Config using hash and otherwise every default
// value.
func DefaultConfig[K any](hash HashFunc[K]) Config[K] {
	return Config[K]{Hash: hash}.withDefaults()
}

func (c Config[K]) withDefaults() Config[K] {
	if c.InitialCapacity == 0 {
		c.InitialCapacity = defaultCapacity
	}
	if c.FPBits == 0 {
		c.FPBits = defaultFPBits
	}
	if c.MaxLoadFactor == 0 {
		c.MaxLoadFactor = defaultMaxLoadFactor
	}
	c.MaxLoadFactor = clampLoadFactor(c.MaxLoadFactor)
	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}
	return c
}

func clampLoadFactor(ml float64) float64 {
	if ml < minMaxLoadFactor {
		return minMaxLoadFactor
	}
	if ml > maxMaxLoadFactor {
		return maxMaxLoadFactor
	}
	return ml
}
