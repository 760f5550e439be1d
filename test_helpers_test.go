package kmerbloom

import (
	"encoding/binary"
	"hash/fnv"
	"math/rand/v2"
	"slices"
	"testing"

	"github.com/tamirms/kmerbloom/dna"
	"github.com/tamirms/kmerbloom/kmerhash"
	"github.com/tamirms/kmerbloom/shape"
)

// Named seeds for deterministic reproduction.
const (
	testSeed1 = 0x1234567890ABCDEF
	testSeed2 = 0xFEDCBA9876543210
)

// newTestRNG returns a PCG seeded from the test name, so every test gets its
// own reproducible stream.
func newTestRNG(t testing.TB) *rand.Rand {
	t.Helper()
	h := fnv.New128a()
	h.Write([]byte(t.Name()))
	sum := h.Sum(nil)
	s1 := binary.LittleEndian.Uint64(sum[:8])
	s2 := binary.LittleEndian.Uint64(sum[8:])
	return rand.New(rand.NewPCG(testSeed1^s1, testSeed2^s2))
}

// randomHashes returns n pseudo-random hash values.
func randomHashes(rng *rand.Rand, n int) []uint64 {
	out := make([]uint64, n)
	for i := range out {
		out[i] = rng.Uint64()
	}
	return out
}

// kmerHashes returns the ungapped k-mer hashes of seq.
func kmerHashes(t testing.TB, seq string, k int) []uint64 {
	t.Helper()
	sh, err := shape.Ungapped(k)
	if err != nil {
		t.Fatalf("shape.Ungapped(%d): %v", k, err)
	}
	h, err := kmerhash.New(sh)
	if err != nil {
		t.Fatalf("kmerhash.New: %v", err)
	}
	return slices.Collect(h.Hashes(dna.Ranks([]byte(seq))))
}

// Reference sequences of the 8-bin example filter.
const (
	refSeq1 = "ACTGACTGACTGATC"
	refSeq2 = "GTGACTGACTGACTCG"
	refSeq3 = "AAAAAAACGATCGACA"
)

// newReferenceFilter builds the 8-bin, 8192-bit, 2-hash filter holding the
// 5-mers of refSeq1 in bin 0, refSeq2 in bin 4 and refSeq3 in bin 7.
func newReferenceFilter(t testing.TB) *Filter {
	t.Helper()
	f, err := New(8, 8192, 2)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	for _, ref := range []struct {
		seq string
		bin uint64
	}{{refSeq1, 0}, {refSeq2, 4}, {refSeq3, 7}} {
		for _, h := range kmerHashes(t, ref.seq, 5) {
			f.Emplace(h, ref.bin)
		}
	}
	return f
}

// newRandomFilter returns a filter with n random hashes per bin, and the
// inserted hashes per bin.
func newRandomFilter(t testing.TB, bins, binSize, hashCount uint64, n int) (*Filter, [][]uint64) {
	t.Helper()
	rng := newTestRNG(t)
	f, err := New(bins, binSize, hashCount)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	inserted := make([][]uint64, bins)
	for bin := range inserted {
		inserted[bin] = randomHashes(rng, n)
		for _, h := range inserted[bin] {
			f.Emplace(h, uint64(bin))
		}
	}
	return f, inserted
}

// assertNoFalseNegatives checks that every inserted hash is reported in its
// bin.
func assertNoFalseNegatives(t *testing.T, f *Filter, inserted [][]uint64) {
	t.Helper()
	agent := f.MembershipAgent()
	for bin, hashes := range inserted {
		for _, h := range hashes {
			if !agent.BulkContains(h).Contains(uint64(bin)) {
				t.Fatalf("false negative: hash 0x%X not found in bin %d", h, bin)
			}
		}
	}
}
