package kmerbloom

import (
	"iter"
	"math/bits"

	"github.com/RoaringBitmap/roaring/v2"
)

// Counter is the set of counter types a CountingAgent can use.
type Counter interface {
	~uint8 | ~uint16 | ~uint32 | ~uint64
}

// CountingAgent counts, per bin, how many hashes of a query the bin may
// contain.
//
// Counters wrap on overflow; pick a counter type wide enough for the
// longest query. Like MembershipAgent, a CountingAgent is not safe for
// concurrent use.
type CountingAgent[T Counter] struct {
	membership *MembershipAgent
	counts     []T // one counter per technical bin
	binCount   uint64
}

// NewCountingAgent returns a counting agent bound to f with counter type T.
func NewCountingAgent[T Counter](f *Filter) *CountingAgent[T] {
	return &CountingAgent[T]{
		membership: f.MembershipAgent(),
		counts:     make([]T, f.technicalBins),
		binCount:   f.binCount,
	}
}

// CountingAgent returns a counting agent with 16-bit counters.
func (f *Filter) CountingAgent() *CountingAgent[uint16] {
	return NewCountingAgent[uint16](f)
}

// BulkCount returns, for every bin, the number of hashes the bin may
// contain. Counters start at zero on every call.
//
// The result is owned by the agent and overwritten by the next call.
func (a *CountingAgent[T]) BulkCount(hashes iter.Seq[uint64]) []T {
	clear(a.counts)
	for h := range hashes {
		a.add(h)
	}
	return a.counts[:a.binCount]
}

// BulkCountSlice is BulkCount over a slice.
func (a *CountingAgent[T]) BulkCountSlice(hashes []uint64) []T {
	clear(a.counts)
	for _, h := range hashes {
		a.add(h)
	}
	return a.counts[:a.binCount]
}

func (a *CountingAgent[T]) add(hash uint64) {
	set := a.membership.BulkContains(hash)
	for i, w := range set.words {
		counts := a.counts[i<<6 : (i+1)<<6]
		for w != 0 {
			counts[bits.TrailingZeros64(w)]++
			w &= w - 1
		}
	}
}

// BinsAtLeast returns the bins whose count reaches threshold, typically the
// candidate bins of a k-mer counting query.
func BinsAtLeast[T Counter](counts []T, threshold T) *roaring.Bitmap {
	bm := roaring.New()
	for bin, c := range counts {
		if c >= threshold {
			bm.Add(uint32(bin))
		}
	}
	return bm
}
