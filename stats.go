package kmerbloom

import (
	"math"
	"math/bits"
)

// Stats describes the fill state of a filter.
type Stats struct {
	BinCount          uint64
	BinSize           uint64
	HashFunctionCount uint64
	BitSize           uint64
	SizeBytes         int64

	// SetBits[b] is the number of set bits of bin b.
	SetBits []uint64

	// MeanOccupancy is the average fraction of set bits per bin.
	MeanOccupancy float64

	// MaxFPR is the largest per-bin false-positive rate estimate.
	MaxFPR float64

	// MeanFPR is the average per-bin false-positive rate estimate.
	MeanFPR float64
}

// Stats scans the filter and returns its fill statistics.
//
// The false-positive rate of a bin with occupancy q is q^k: a query for an
// absent value hits k independent set bits.
func (f *Filter) Stats() *Stats {
	setBits := make([]uint64, f.technicalBins)
	for block := uint64(0); block < uint64(len(f.words)); block += f.blockWords {
		for w := uint64(0); w < f.blockWords; w++ {
			word := f.words[block+w]
			for word != 0 {
				setBits[w<<6|uint64(bits.TrailingZeros64(word))]++
				word &= word - 1
			}
		}
	}
	setBits = setBits[:f.binCount]

	s := &Stats{
		BinCount:          f.binCount,
		BinSize:           f.binSize,
		HashFunctionCount: f.hashCount,
		BitSize:           f.BitSize(),
		SizeBytes:         int64(f.SerializedSize()),
		SetBits:           setBits,
	}
	var occupancy, fpr float64
	for _, n := range setBits {
		q := float64(n) / float64(f.binSize)
		p := math.Pow(q, float64(f.hashCount))
		occupancy += q
		fpr += p
		s.MaxFPR = max(s.MaxFPR, p)
	}
	s.MeanOccupancy = occupancy / float64(f.binCount)
	s.MeanFPR = fpr / float64(f.binCount)
	return s
}

// EstimateFPR returns the expected false-positive rate of one bin with
// binSize bits and hashFunctions hash functions after n distinct
// insertions: (1 - e^(-k*n/B))^k.
func EstimateFPR(binSize, hashFunctions, n uint64) float64 {
	if binSize == 0 {
		return 1
	}
	k := float64(hashFunctions)
	return math.Pow(1-math.Exp(-k*float64(n)/float64(binSize)), k)
}

// EstimateElements inverts the fill model: the number of distinct values
// that leaves setBits of binSize bits set with hashFunctions hash
// functions. Returns +Inf for a full bin.
func EstimateElements(binSize, hashFunctions, setBits uint64) float64 {
	if setBits >= binSize {
		return math.Inf(1)
	}
	b := float64(binSize)
	return -b / float64(hashFunctions) * math.Log(1-float64(setBits)/b)
}
