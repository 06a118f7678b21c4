package qfilter_test

import (
	"fmt"
	"sort"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nfisher/qfilter"
)

func testHash() qfilter.HashFunc[int] {
	return func(i int) uint64 {
		// A deterministic, well-spread hash that avoids relying on the
		// distribution of any particular third-party hash for these
		// tests.
		x := uint64(i)
		x = (x ^ (x >> 30)) * 0xbf58476d1ce4e5b9
		x = (x ^ (x >> 27)) * 0x94d049bb133111eb
		return x ^ (x >> 31)
	}
}

func newIntFilter(t *testing.T, initialCap uint64, maxLoadFactor float64) *qfilter.Filter[int] {
	t.Helper()
	cfg := qfilter.DefaultConfig(testHash())
	cfg.InitialCapacity = initialCap
	cfg.MaxLoadFactor = maxLoadFactor
	return qfilter.New(cfg)
}

func TestInsertFindErase(t *testing.T) {
	f := newIntFilter(t, 16, 0.8)

	inserted, err := f.Insert(42)
	require.NoError(t, err)
	require.True(t, inserted)
	require.True(t, f.Find(42))

	inserted, err = f.Insert(42)
	require.NoError(t, err)
	require.False(t, inserted)
	require.Equal(t, uint64(1), f.Size())

	require.True(t, f.Erase(42))
	require.False(t, f.Find(42))
	require.False(t, f.Erase(42))
}

func TestResizePreservesContents(t *testing.T) {
	f := newIntFilter(t, 16, 0.5)

	const n = 1000
	fingerprints := map[uint64]bool{}
	hash := testHash()
	for i := 0; i < n; i++ {
		inserted, err := f.Insert(i)
		require.NoError(t, err)
		if inserted {
			fingerprints[hash(i)] = true
		}
	}

	var want []uint64
	for fp := range fingerprints {
		want = append(want, fp)
	}
	sort.Slice(want, func(a, b int) bool { return want[a] < want[b] })

	var got []uint64
	for it := f.Begin(); it.Valid(); it.Advance() {
		got = append(got, it.Fingerprint())
	}

	require.Equal(t, want, got)
	require.GreaterOrEqual(t, f.SlotCount(), uint64(n))
}

func TestCapacityOverflow(t *testing.T) {
	cfg := qfilter.DefaultConfig(testHash())
	cfg.FPBits = 10
	cfg.MaxLoadFactor = 1.0
	cfg.InitialCapacity = 1
	f := qfilter.New(cfg)

	inserted := 0
	var lastErr error
	for i := 0; i < 2000; i++ {
		ok, err := f.Insert(i)
		if err != nil {
			lastErr = err
			break
		}
		if ok {
			inserted++
		}
	}

	require.ErrorIs(t, lastErr, qfilter.ErrCapacityOverflow)
	require.Greater(t, inserted, 0)
}

func TestCapacityOverflowLeavesFilterUnchanged(t *testing.T) {
	cfg := qfilter.DefaultConfig(testHash())
	cfg.FPBits = 4
	cfg.InitialCapacity = 8
	cfg.MaxLoadFactor = 1.0
	f := qfilter.New(cfg)

	// Drive the filter to exactly full capacity without growth (FPBits=4
	// means q=3,r=1 already uses all fingerprint bits at cap=8, so any
	// further growth attempt cannot get more remainder bits).
	for i := 0; f.Size() < 8; i++ {
		_, err := f.Insert(i)
		if err != nil {
			break
		}
	}

	// 1001's fingerprint is not among those stored, so inserting it needs
	// growth.
	sizeBefore := f.Size()
	_, err := f.Insert(1001)
	require.ErrorIs(t, err, qfilter.ErrCapacityOverflow)
	require.Equal(t, sizeBefore, f.Size())
}

func TestEqualIgnoresAuxiliaryState(t *testing.T) {
	hash := testHash()

	cfgA := qfilter.DefaultConfig(hash)
	cfgA.InitialCapacity = 8
	cfgA.MaxLoadFactor = 0.9
	a := qfilter.New(cfgA)

	cfgB := qfilter.DefaultConfig(hash)
	cfgB.InitialCapacity = 64
	cfgB.MaxLoadFactor = 0.3
	b := qfilter.New(cfgB)

	for i := 0; i < 20; i++ {
		_, err := a.Insert(i)
		require.NoError(t, err)
		_, err = b.Insert(i)
		require.NoError(t, err)
	}

	require.True(t, qfilter.Equal(a, b))

	_, err := b.Insert(999)
	require.NoError(t, err)
	require.False(t, qfilter.Equal(a, b))
}

func TestSetMaxLoadFactorClamps(t *testing.T) {
	f := newIntFilter(t, 16, 0.8)

	require.NoError(t, f.SetMaxLoadFactor(5))
	require.Equal(t, 1.0, f.MaxLoadFactor())

	require.NoError(t, f.SetMaxLoadFactor(0))
	require.Equal(t, 0.05, f.MaxLoadFactor())
}

func TestSetMaxLoadFactorRegeneratesWhenOverSubscribed(t *testing.T) {
	f := newIntFilter(t, 16, 1.0)

	for i := 0; i < 12; i++ {
		_, err := f.Insert(i)
		require.NoError(t, err)
	}
	slotsBefore := f.SlotCount()
	require.Equal(t, uint64(16), slotsBefore)

	// Lowering the threshold below the current load factor (12/16=0.75)
	// must regenerate immediately rather than waiting for the next insert.
	require.NoError(t, f.SetMaxLoadFactor(0.5))
	require.Greater(t, f.SlotCount(), slotsBefore)
	require.LessOrEqual(t, f.LoadFactor(), 0.5)

	for i := 0; i < 12; i++ {
		require.True(t, f.Find(i))
	}
}

func TestNewPanicsWithoutHash(t *testing.T) {
	require.Panics(t, func() {
		qfilter.New(qfilter.Config[int]{})
	})
}

func ExampleFilter_Insert() {
	f := qfilter.New(qfilter.DefaultConfig(qfilter.NewStringHash()))

	f.Insert("alice")
	f.Insert("bob")

	fmt.Println(f.Find("alice"), f.Find("carol"))
	// Output: true false
}
