package kmerbloom

import (
	"iter"
	"math/bits"

	"github.com/RoaringBitmap/roaring/v2"
)

// BinSet is a bit vector with one bit per bin.
type BinSet struct {
	words []uint64
	n     uint64
}

func newBinSet(n uint64) BinSet {
	return BinSet{words: make([]uint64, (n+63)>>6), n: n}
}

// Contains reports whether bin is in the set.
func (s *BinSet) Contains(bin uint64) bool {
	return s.words[bin>>6]>>(bin&63)&1 == 1
}

// Count returns the number of bins in the set.
func (s *BinSet) Count() int {
	n := 0
	for _, w := range s.words {
		n += bits.OnesCount64(w)
	}
	return n
}

// Len returns the number of bins the set ranges over.
func (s *BinSet) Len() uint64 {
	return s.n
}

// Words returns the raw bit vector; bin b is bit b%64 of word b/64.
func (s *BinSet) Words() []uint64 {
	return s.words
}

// All yields the bins in the set in ascending order.
func (s *BinSet) All() iter.Seq[uint64] {
	return func(yield func(uint64) bool) {
		for i, w := range s.words {
			for w != 0 {
				if !yield(uint64(i)<<6 | uint64(bits.TrailingZeros64(w))) {
					return
				}
				w &= w - 1
			}
		}
	}
}

// Clone returns a copy that is not affected by later agent calls.
func (s *BinSet) Clone() *BinSet {
	return &BinSet{words: append([]uint64(nil), s.words...), n: s.n}
}

// Bitmap returns the set as a compressed bitmap.
// Bins at or above 2^32 are not representable.
func (s *BinSet) Bitmap() *roaring.Bitmap {
	bm := roaring.New()
	for bin := range s.All() {
		bm.Add(uint32(bin))
	}
	return bm
}

// MembershipAgent answers "which bins contain this hash" queries.
//
// An agent is not safe for concurrent use. Create one agent per goroutine;
// agents of the same filter may query concurrently.
type MembershipAgent struct {
	f        *Filter
	result   BinSet
	lastMask uint64
}

// MembershipAgent returns a new agent bound to f.
func (f *Filter) MembershipAgent() *MembershipAgent {
	a := &MembershipAgent{
		f:        f,
		result:   newBinSet(f.binCount),
		lastMask: ^uint64(0),
	}
	if r := f.binCount & 63; r != 0 {
		a.lastMask = 1<<r - 1
	}
	return a
}

// BulkContains returns the set of bins that may contain hash.
//
// The result is owned by the agent and overwritten by the next call; use
// BinSet.Clone to keep it.
func (a *MembershipAgent) BulkContains(hash uint64) *BinSet {
	f := a.f
	var starts [MaxHashFunctions]uint64
	k := int(f.hashCount)
	for i := 0; i < k; i++ {
		starts[i] = f.blockStart(hash, i)
	}

	dst := a.result.words
	for w := range dst {
		v := f.words[starts[0]+uint64(w)]
		for i := 1; i < k; i++ {
			v &= f.words[starts[i]+uint64(w)]
		}
		dst[w] = v
	}
	dst[len(dst)-1] &= a.lastMask
	return &a.result
}
