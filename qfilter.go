// Package qfilter implements a typed, growable Quotient Filter: an
// approximate-membership set that trades a bounded false-positive rate
// for space proportional to its capacity rather than to the size of the
// universe of possible keys.
//
// qfilter wraps the untyped fingerprint engine in internal/fpfilter
// (package fpfilter) with key hashing, a max-load-factor growth policy,
// and capacity-overflow detection. It never produces false negatives:
// every inserted key is found until explicitly erased.
package qfilter

import (
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/nfisher/qfilter/internal/fpfilter"
)

// ErrFull is re-exported from the underlying fingerprint filter. Under
// normal operation a *Filter never returns it directly — Insert grows
// before the underlying filter can fill — but it remains reachable via
// errors.Is for callers who construct degenerate configurations.
var ErrFull = fpfilter.ErrFull

// Iterator walks the fingerprints stored in a Filter in ascending
// order. It is invalidated by any subsequent Insert, Erase, Clear or
// Reserve on its Filter.
type Iterator = fpfilter.Iterator

// Filter is a typed, growable quotient filter over keys of type K.
type Filter[K any] struct {
	inner  *fpfilter.Filter
	hash   HashFunc[K]
	maxML  float64
	fpBits uint64
	logger *zap.Logger
}

// New constructs a Filter from cfg. It panics if cfg.Hash is nil.
func New[K any](cfg Config[K]) *Filter[K] {
	if cfg.Hash == nil {
		panic("qfilter: Config.Hash is required")
	}
	cfg = cfg.withDefaults()

	q := calcRequiredQ(uint64(math.Ceil(float64(cfg.InitialCapacity) / cfg.MaxLoadFactor)))
	if q >= cfg.FPBits {
		panic("qfilter: InitialCapacity requires more bits than FPBits provides")
	}
	r := cfg.FPBits - q

	return &Filter[K]{
		inner:  fpfilter.New(q, r),
		hash:   cfg.Hash,
		maxML:  cfg.MaxLoadFactor,
		fpBits: cfg.FPBits,
		logger: cfg.Logger,
	}
}

func calcRequiredQ(cap uint64) uint64 {
	q := uint64(0)
	for (uint64(1) << q) < cap {
		q++
	}
	return q
}

func (f *Filter[K]) fingerprint(key K) uint64 {
	fp := f.hash(key)
	if f.fpBits < 64 {
		fp &= (uint64(1) << f.fpBits) - 1
	}
	return fp
}

// Size returns the number of keys currently stored.
func (f *Filter[K]) Size() uint64 { return f.inner.Size() }

// Empty reports whether the filter holds no keys.
func (f *Filter[K]) Empty() bool { return f.inner.Empty() }

// MaxSize returns the largest size a Filter can theoretically reach: at
// least one remainder bit must always remain, so it is bounded by
// 2^(fp_bits-1).
func (f *Filter[K]) MaxSize() uint64 { return uint64(1) << (f.fpBits - 1) }

// SlotCount returns the current number of slots. Insert grows the
// filter before Size would exceed SlotCount() * MaxLoadFactor().
func (f *Filter[K]) SlotCount() uint64 { return f.inner.Capacity() }

// LoadFactor returns Size() / SlotCount().
func (f *Filter[K]) LoadFactor() float64 {
	if f.inner.Capacity() == 0 {
		return 0
	}
	return float64(f.inner.Size()) / float64(f.inner.Capacity())
}

// MaxLoadFactor returns the configured growth threshold.
func (f *Filter[K]) MaxLoadFactor() float64 { return f.maxML }

// SetMaxLoadFactor updates the growth threshold, clamped to [0.05, 1.0].
// If the new threshold makes the filter over-subscribed
// (LoadFactor() > ml), it immediately regenerates with the smallest
// valid slot count for the new threshold.
func (f *Filter[K]) SetMaxLoadFactor(ml float64) error {
	ml = clampLoadFactor(ml)
	f.maxML = ml
	if f.LoadFactor() > ml {
		return f.Reserve(f.inner.Size())
	}
	return nil
}

// Clear removes every key, leaving SlotCount unchanged.
func (f *Filter[K]) Clear() { f.inner.Clear() }

// Find reports whether key is present.
func (f *Filter[K]) Find(key K) bool {
	return f.inner.Find(f.fingerprint(key)).Valid()
}

// Count returns 1 if key is present, 0 otherwise.
func (f *Filter[K]) Count(key K) uint64 {
	return f.inner.Count(f.fingerprint(key))
}

// Erase removes key if present and reports whether it removed anything.
//
// A successful call invalidates every Iterator previously obtained from
// f.
func (f *Filter[K]) Erase(key K) bool {
	return f.inner.Erase(f.fingerprint(key))
}

// Insert adds key to the filter, growing it first if doing so would
// exceed MaxLoadFactor. It reports whether an insertion took place (it
// is false if the key, or a colliding fingerprint, was already
// present).
//
// Insert is atomic with respect to growth: if growth is required and
// fails with ErrCapacityOverflow, the filter is left unchanged.
//
// A successful call invalidates every Iterator previously obtained from
// f.
func (f *Filter[K]) Insert(key K) (bool, error) {
	fp := f.fingerprint(key)

	willExceedML := float64(f.inner.Size()+1) > f.maxML*float64(f.inner.Capacity())
	if willExceedML || f.inner.Full() {
		if it := f.inner.Find(fp); it.Valid() {
			return false, nil
		}

		if err := f.Reserve(f.inner.Size() + 1); err != nil {
			return false, err
		}
	}

	_, inserted, err := f.inner.Insert(fp)
	if err != nil {
		return false, fmt.Errorf("qfilter: insert: %w", err)
	}
	return inserted, nil
}

// Reserve grows or shrinks the filter so that, given the current
// MaxLoadFactor, it can hold at least n elements without triggering
// growth again, rehashing every stored fingerprint into a freshly sized
// filter. It never reduces capacity below the current Size.
//
// Per the minimum-valid-capacity rule, the target slot count is the
// smallest power of two q with 2^q >= ceil(max(n, Size()) / MaxLoadFactor()).
//
// It returns ErrCapacityOverflow if FPBits is too narrow to address the
// resulting capacity, leaving the filter unchanged.
func (f *Filter[K]) Reserve(n uint64) error {
	target := n
	if size := f.inner.Size(); target < size {
		target = size
	}

	minValidCapacity := uint64(math.Ceil(float64(target) / f.maxML))

	q := calcRequiredQ(minValidCapacity)
	if q >= f.fpBits {
		return fmt.Errorf("qfilter: reserve(%d): %w", n, ErrCapacityOverflow)
	}
	r := f.fpBits - q

	if q == f.inner.QuotientBits() && r == f.inner.RemainderBits() {
		return nil
	}

	next := fpfilter.New(q, r)
	for it := f.inner.Begin(); it.Valid(); it.Advance() {
		if _, _, err := next.Insert(it.Fingerprint()); err != nil {
			return fmt.Errorf("qfilter: reserve(%d): rehash: %w", n, err)
		}
	}

	f.inner = next
	f.logger.Debug("qfilter rehashed",
		zap.Uint64("q_bits", q),
		zap.Uint64("r_bits", r),
		zap.Uint64("slot_count", next.Capacity()),
	)
	return nil
}

// Begin returns an iterator to the first fingerprint stored, in
// ascending order, or the end iterator if f is empty.
func (f *Filter[K]) Begin() Iterator { return f.inner.Begin() }

// End returns the iterator that marks the end of iteration.
func (f *Filter[K]) End() Iterator { return f.inner.End() }

// Equal reports whether a and b store the same set of fingerprints,
// ignoring auxiliary construction state such as slot count or
// max-load-factor.
func Equal[K any](a, b *Filter[K]) bool {
	if a.Size() != b.Size() {
		return false
	}
	ai, bi := a.Begin(), b.Begin()
	for ai.Valid() && bi.Valid() {
		if ai.Fingerprint() != bi.Fingerprint() {
			return false
		}
		ai.Advance()
		bi.Advance()
	}
	return ai.Valid() == bi.Valid()
}
