// Package fpfilter implements the fingerprint-filter engine of a
// quotient filter: a fixed-capacity set of q+r bit fingerprints stored
// in 2^q slots using Knuth's quotienting scheme (each fingerprint's
// top q bits select a canonical slot; the bottom r bits are stored as
// a remainder, shifted right as far as needed to keep same-quotient
// remainders sorted and contiguous).
//
// This package has no notion of keys, hashing or growth — it stores and
// retrieves raw fingerprints. Package qfilter builds the typed,
// growable set on top of it.
package fpfilter

// Filter is a fixed-capacity fingerprint filter with 2^qBits slots,
// each holding an rBits-wide remainder plus three bookkeeping flags.
type Filter struct {
	qBits         uint64
	rBits         uint64
	numSlots      uint64
	numElements   uint64
	quotientMask  uint64
	remainderMask uint64

	occupied     *bitVector
	continuation *bitVector
	shifted      *bitVector
	remainders   *remainderArray
}

// New constructs a filter with 2^q slots, each holding an r-bit
// remainder. r must be positive.
func New(q, r uint64) *Filter {
	if r == 0 {
		panic("fpfilter: remainder must have at least one bit")
	}
	numSlots := uint64(1) << q
	return &Filter{
		qBits:         q,
		rBits:         r,
		numSlots:      numSlots,
		quotientMask:  lowMask(q),
		remainderMask: lowMask(r),
		occupied:      newBitVector(numSlots),
		continuation:  newBitVector(numSlots),
		shifted:       newBitVector(numSlots),
		remainders:    newRemainderArray(numSlots, r),
	}
}

// Size returns the number of fingerprints currently stored.
func (f *Filter) Size() uint64 { return f.numElements }

// Empty reports whether the filter holds no fingerprints.
func (f *Filter) Empty() bool { return f.numElements == 0 }

// Full reports whether the filter has no empty slots left.
func (f *Filter) Full() bool { return f.numElements == f.numSlots }

// Capacity returns the total number of slots (2^q).
func (f *Filter) Capacity() uint64 { return f.numSlots }

// QuotientBits returns q, the number of bits used for the quotient.
func (f *Filter) QuotientBits() uint64 { return f.qBits }

// RemainderBits returns r, the number of bits used for the remainder.
func (f *Filter) RemainderBits() uint64 { return f.rBits }

// Clear removes every fingerprint, leaving capacity unchanged.
func (f *Filter) Clear() {
	if f.numSlots == 0 {
		return
	}
	f.occupied.Clear()
	f.continuation.Clear()
	f.shifted.Clear()
	f.remainders.Clear()
	f.numElements = 0
}

func (f *Filter) incrPos(pos uint64) uint64 { return (pos + 1) & f.quotientMask }
func (f *Filter) decrPos(pos uint64) uint64 { return (pos - 1) & f.quotientMask }

func (f *Filter) extractQuotient(fp uint64) uint64 { return (fp >> f.rBits) & f.quotientMask }
func (f *Filter) extractRemainder(fp uint64) uint64 { return fp & f.remainderMask }

func (f *Filter) isEmptySlot(pos uint64) bool {
	return !f.occupied.Get(pos) && !f.continuation.Get(pos) && !f.shifted.Get(pos)
}

func (f *Filter) isRunStart(pos uint64) bool {
	return !f.continuation.Get(pos) && (f.shifted.Get(pos) || f.occupied.Get(pos))
}

// findNextOccupied returns the position of the next occupied canonical
// slot after pos. pos itself must be occupied.
func (f *Filter) findNextOccupied(pos uint64) uint64 {
	for {
		pos = f.incrPos(pos)
		if f.occupied.Get(pos) {
			return pos
		}
	}
}

// findNextRun returns the position of the first slot of the run that
// follows the run starting at runPos, within the same cluster.
func (f *Filter) findNextRun(runPos uint64) uint64 {
	for {
		runPos = f.incrPos(runPos)
		if !f.continuation.Get(runPos) {
			return runPos
		}
	}
}

// findRunOf returns the position of the first slot of the run belonging
// to the given quotient. The run must exist (quotient must be occupied).
func (f *Filter) findRunOf(quotient uint64) uint64 {
	pos := quotient

	if !f.shifted.Get(pos) {
		return pos
	}

	runningCount := uint64(0)
	for {
		pos = f.decrPos(pos)
		if f.occupied.Get(pos) {
			runningCount++
		}
		if !f.shifted.Get(pos) {
			break
		}
	}

	for ; runningCount != 0; runningCount-- {
		pos = f.findNextRun(pos)
	}

	return pos
}

// Find searches for fp and returns an iterator to it, or End() if fp is
// not present.
func (f *Filter) Find(fp uint64) Iterator {
	if f.numSlots == 0 {
		return f.End()
	}

	fpQuotient := f.extractQuotient(fp)
	fpRemainder := f.extractRemainder(fp)
	canonicalPos := fpQuotient

	if !f.occupied.Get(canonicalPos) {
		return f.End()
	}

	pos := f.findRunOf(fpQuotient)
	for {
		remainder := f.remainders.Get(pos)
		if remainder == fpRemainder {
			return Iterator{filter: f, pos: pos, canonicalPos: fpQuotient}
		}
		if remainder > fpRemainder {
			return f.End()
		}
		pos = f.incrPos(pos)
		if !f.continuation.Get(pos) {
			return f.End()
		}
	}
}

// Count returns 1 if fp is present, 0 otherwise.
func (f *Filter) Count(fp uint64) uint64 {
	if f.Find(fp).Valid() {
		return 1
	}
	return 0
}

// insertInto shifts every element from pos up to (and including) the
// next empty slot one position to the right, making room at pos for
// remainder/continuation. Every slot touched, including pos, is marked
// shifted; the caller is responsible for correcting is_shifted at pos if
// the inserted element actually lands on its own canonical slot.
func (f *Filter) insertInto(pos, remainder uint64, continuation bool) {
	for {
		foundEmptySlot := f.isEmptySlot(pos)
		continuation = f.continuation.Exchange(pos, continuation)
		remainder = f.remainders.Exchange(pos, remainder)
		f.shifted.Set(pos, true)
		pos = f.incrPos(pos)
		if foundEmptySlot {
			break
		}
	}
}

// Insert adds fp to the filter. It returns an iterator to fp (either the
// newly inserted element or the pre-existing one) and whether an
// insertion took place. It returns ErrFull only when fp is not already
// present and the filter has no empty slots left — re-inserting a
// fingerprint that is already present always succeeds with
// inserted=false, even on a full filter, since it requires no new slot.
//
// A successful insertion invalidates every iterator previously obtained
// from f.
func (f *Filter) Insert(fp uint64) (Iterator, bool, error) {
	if it := f.Find(fp); it.Valid() {
		return it, false, nil
	}
	if f.Full() {
		return Iterator{}, false, ErrFull
	}

	fpQuotient := f.extractQuotient(fp)
	fpRemainder := f.extractRemainder(fp)
	canonicalPos := fpQuotient

	if f.isEmptySlot(canonicalPos) {
		f.occupied.Set(canonicalPos, true)
		f.remainders.Set(canonicalPos, fpRemainder)
		f.numElements++
		return Iterator{filter: f, pos: canonicalPos, canonicalPos: fpQuotient}, true, nil
	}

	runIsEmpty := !f.occupied.Get(canonicalPos)
	if runIsEmpty {
		f.occupied.Set(canonicalPos, true)
	}

	pos := f.findRunOf(fpQuotient)
	runStart := pos

	if !runIsEmpty {
		for {
			remainder := f.remainders.Get(pos)
			if remainder > fpRemainder {
				break
			}
			pos = f.incrPos(pos)
			if !f.continuation.Get(pos) {
				break
			}
		}

		if pos == runStart {
			f.continuation.Set(pos, true)
		}
	}

	f.insertInto(pos, fpRemainder, pos != runStart)
	if pos == canonicalPos {
		f.shifted.Set(pos, false)
	}

	f.numElements++
	return Iterator{filter: f, pos: pos, canonicalPos: fpQuotient}, true, nil
}

// removeEntry deletes the entry at removePos, whose run belongs to
// canonicalPos, shifting the rest of the cluster left to fill the gap.
func (f *Filter) removeEntry(removePos, canonicalPos uint64) {
	wasHead := !f.continuation.Get(removePos)

	currentPos := removePos
	quotientPos := canonicalPos

	for {
		nextPos := f.incrPos(currentPos)

		if !f.shifted.Get(nextPos) {
			break
		}

		f.remainders.Set(currentPos, f.remainders.Get(nextPos))
		f.continuation.Set(currentPos, f.continuation.Get(nextPos))

		if !f.continuation.Get(currentPos) {
			quotientPos = f.findNextOccupied(quotientPos)
			if quotientPos == currentPos {
				f.shifted.Set(currentPos, false)
			}
		}

		currentPos = nextPos
	}

	f.shifted.Set(currentPos, false)
	f.continuation.Set(currentPos, false)
	f.remainders.Set(currentPos, 0)

	if wasHead {
		if f.continuation.Get(removePos) {
			f.continuation.Set(removePos, false)
		} else {
			f.occupied.Set(canonicalPos, false)
		}
	}
}

// EraseAt removes the element it points to. It panics if it does not
// belong to f. A successful call invalidates every iterator previously
// obtained from f, including it.
func (f *Filter) EraseAt(it Iterator) {
	if it.filter != f {
		panic("fpfilter: Erase called with an iterator from a different filter")
	}
	f.removeEntry(it.pos, it.canonicalPos)
	f.numElements--
}

// Erase removes fp if present and reports whether it removed anything.
func (f *Filter) Erase(fp uint64) bool {
	it := f.Find(fp)
	if !it.Valid() {
		return false
	}
	f.EraseAt(it)
	return true
}
