package kmerbloom

import (
	"math"
	"math/bits"
	"sync/atomic"

	"github.com/edsrzf/mmap-go"

	kberrors "github.com/tamirms/kmerbloom/errors"
	intbits "github.com/tamirms/kmerbloom/internal/bits"
)

// MaxHashFunctions is the largest supported hash function count.
const MaxHashFunctions = 5

// hashSeeds are the odd multipliers of the derived hash functions.
var hashSeeds = [MaxHashFunctions]uint64{
	13572355802537770549,
	13043817825332782213,
	10650232656628343401,
	16499269484942379435,
	4893150838803335377,
}

// goldenRatio is 2^64 divided by the golden ratio (Fibonacci hashing).
const goldenRatio = 11400714819323198485

// Filter is an interleaved Bloom filter: binCount Bloom filters of binSize
// bits each, sharing the same hash functions.
//
// Storage is one []uint64. Bins are padded to a multiple of 64 (technical
// bins) and, for every bit position p in [0, binSize), the bits of all
// bins at p form one contiguous block of technicalBins/64 words. Bin b owns
// bit b%64 of word b/64 of every block.
//
// Thread Safety:
//   - Agents, Stats, WriteTo and Verify only read the words and may run
//     concurrently with each other
//   - Emplace, Clear, ClearBins and IncreaseBinCount must not run
//     concurrently with any other method
//   - Builder writes with atomic word ORs and may share a filter across
//     its workers
type Filter struct {
	binCount      uint64
	technicalBins uint64
	blockWords    uint64 // technicalBins / 64
	binSize       uint64
	hashShift     uint64
	hashCount     uint64
	words         []uint64

	// Set when the filter was read from serialized data.
	checksum    uint64
	hasChecksum bool

	// Non-nil when words alias a file mapping (see Open).
	mmap   mmap.MMap
	closed atomic.Bool
}

// New creates an empty filter.
//
// binCount is the number of bins, binSize the number of bits per bin and
// hashFunctionCount the number of hash functions, between 1 and
// MaxHashFunctions.
func New(binCount, binSize, hashFunctionCount uint64) (*Filter, error) {
	f, err := newShell(binCount, binSize, hashFunctionCount)
	if err != nil {
		return nil, err
	}
	f.words = make([]uint64, f.wordCount())
	return f, nil
}

// newShell validates the dimensions and fills in everything except words.
func newShell(binCount, binSize, hashFunctionCount uint64) (*Filter, error) {
	switch {
	case binCount == 0:
		return nil, kberrors.ErrZeroBinCount
	case binSize == 0:
		return nil, kberrors.ErrZeroBinSize
	case hashFunctionCount == 0:
		return nil, kberrors.ErrZeroHashFunctions
	case hashFunctionCount > MaxHashFunctions:
		return nil, kberrors.ErrTooManyHashFunctions
	}
	if _, err := wordsFor(binCount, binSize); err != nil {
		return nil, err
	}
	technicalBins := intbits.RoundUp64(binCount)
	return &Filter{
		binCount:      binCount,
		technicalBins: technicalBins,
		blockWords:    technicalBins >> 6,
		binSize:       binSize,
		hashShift:     uint64(bits.LeadingZeros64(binSize)),
		hashCount:     hashFunctionCount,
	}, nil
}

// wordsFor returns the storage size in words for the given dimensions.
func wordsFor(binCount, binSize uint64) (uint64, error) {
	if binCount > math.MaxUint64-63 {
		return 0, kberrors.ErrFilterTooLarge
	}
	hi, n := bits.Mul64(intbits.WordsFor(binCount), binSize)
	if hi != 0 || n > math.MaxInt/8 {
		return 0, kberrors.ErrFilterTooLarge
	}
	return n, nil
}

func (f *Filter) wordCount() uint64 {
	return f.blockWords * f.binSize
}

// BinCount returns the number of bins.
func (f *Filter) BinCount() uint64 { return f.binCount }

// TechnicalBinCount returns the bin count rounded up to a multiple of 64.
func (f *Filter) TechnicalBinCount() uint64 { return f.technicalBins }

// BinSize returns the number of bits per bin.
func (f *Filter) BinSize() uint64 { return f.binSize }

// HashFunctionCount returns the number of hash functions.
func (f *Filter) HashFunctionCount() uint64 { return f.hashCount }

// BitSize returns the size of the underlying bit array, technical bins
// included.
func (f *Filter) BitSize() uint64 { return f.technicalBins * f.binSize }

// Words returns the underlying storage. The slice aliases the filter.
func (f *Filter) Words() []uint64 { return f.words }

// blockStart returns the first word of the block selected by hash function
// i for hash.
func (f *Filter) blockStart(hash uint64, i int) uint64 {
	hash *= hashSeeds[i]
	hash ^= hash >> f.hashShift
	hash *= goldenRatio
	return intbits.FastRange64(hash, f.binSize) * f.blockWords
}

// Emplace inserts hash into bin. Inserting the same value twice is a no-op.
// bin must be smaller than BinCount; this is not checked.
func (f *Filter) Emplace(hash, bin uint64) {
	word, mask := bin>>6, uint64(1)<<(bin&63)
	for i := 0; i < int(f.hashCount); i++ {
		f.words[f.blockStart(hash, i)+word] |= mask
	}
}

// emplaceAtomic is Emplace with atomic word updates.
func (f *Filter) emplaceAtomic(hash, bin uint64) {
	word, mask := bin>>6, uint64(1)<<(bin&63)
	for i := 0; i < int(f.hashCount); i++ {
		atomic.OrUint64(&f.words[f.blockStart(hash, i)+word], mask)
	}
}

// Clear removes every element of bin, leaving all other bins untouched.
func (f *Filter) Clear(bin uint64) {
	word, mask := bin>>6, uint64(1)<<(bin&63)
	for p := word; p < uint64(len(f.words)); p += f.blockWords {
		f.words[p] &^= mask
	}
}

// ClearBins clears several bins in one pass over the filter.
func (f *Filter) ClearBins(bins ...uint64) {
	if len(bins) == 0 {
		return
	}
	masks := make([]uint64, f.blockWords)
	for _, bin := range bins {
		masks[bin>>6] |= 1 << (bin & 63)
	}
	for block := uint64(0); block < uint64(len(f.words)); block += f.blockWords {
		for w, m := range masks {
			if m != 0 {
				f.words[block+uint64(w)] &^= m
			}
		}
	}
}

// IncreaseBinCount grows the filter to n bins. Existing bins keep their
// content and the new bins start empty. Fails with ErrBinCountDecrease when
// n is smaller than BinCount.
//
// Agents created before the call must be recreated.
func (f *Filter) IncreaseBinCount(n uint64) error {
	if n < f.binCount {
		return kberrors.ErrBinCountDecrease
	}
	count, err := wordsFor(n, f.binSize)
	if err != nil {
		return err
	}
	technicalBins := intbits.RoundUp64(n)
	if technicalBins == f.technicalBins {
		f.binCount = n
		return nil
	}

	newBlockWords := technicalBins >> 6
	words := make([]uint64, count)
	for p := uint64(0); p < f.binSize; p++ {
		copy(words[p*newBlockWords:], f.words[p*f.blockWords:(p+1)*f.blockWords])
	}

	f.words = words
	f.binCount = n
	f.technicalBins = technicalBins
	f.blockWords = newBlockWords
	return nil
}

// Equal reports whether f and other have the same dimensions and content.
func (f *Filter) Equal(other *Filter) bool {
	if f.binCount != other.binCount || f.binSize != other.binSize || f.hashCount != other.hashCount {
		return false
	}
	for i, w := range f.words {
		if other.words[i] != w {
			return false
		}
	}
	return true
}
