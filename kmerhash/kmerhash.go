// Package kmerhash turns a rank sequence into the stream of its k-mer hash
// values.
//
// A k-mer hash packs the ranks at the shape's included positions into one
// integer, most significant first: sum rank_i * sigma^(weight-1-i). For DNA4
// and an ungapped shape this is the usual 2-bit encoding. Ungapped shapes
// roll in O(1) per position; gapped shapes recompute over the included
// positions.
//
// Sequences are consumed as alphabet ranks (see package dna). Every rank must
// be smaller than the alphabet size; this is not checked.
package kmerhash

import (
	"iter"
	"math/bits"

	kberrors "github.com/tamirms/kmerbloom/errors"
	"github.com/tamirms/kmerbloom/shape"
)

// Option configures a Hasher.
type Option func(*config)

type config struct {
	sigma uint64
	seed  uint64
}

func defaultConfig() *config {
	return &config{sigma: 4}
}

// WithAlphabetSize sets the number of symbols in the rank alphabet.
// Default is 4 (DNA4).
func WithAlphabetSize(sigma int) Option {
	return func(c *config) {
		c.sigma = uint64(sigma)
	}
}

// WithSeed XORs every emitted hash with seed. Default is 0.
func WithSeed(seed uint64) Option {
	return func(c *config) {
		c.seed = seed
	}
}

// Hasher computes k-mer hashes for one shape. It holds no per-sequence state
// and is safe for concurrent use.
type Hasher struct {
	shape     shape.Shape
	size      int
	positions []int
	ungapped  bool
	sigma     uint64
	roll      uint64 // sigma^(size-1), the weight of the oldest rank in an ungapped k-mer
	seed      uint64
}

// New returns a Hasher for sh.
// Fails with ErrShapeTooLarge when sigma^weight does not fit in 64 bits.
func New(sh shape.Shape, opts ...Option) (*Hasher, error) {
	if sh.Size() == 0 {
		return nil, kberrors.ErrInvalidShape
	}
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.sigma < 2 {
		return nil, kberrors.ErrAlphabetSize
	}

	// roll = sigma^(weight-1); the largest hash is roll*sigma - 1.
	roll := uint64(1)
	for i := 1; i < sh.Weight(); i++ {
		hi, lo := bits.Mul64(roll, cfg.sigma)
		if hi != 0 {
			return nil, kberrors.ErrShapeTooLarge
		}
		roll = lo
	}
	if hi, lo := bits.Mul64(roll, cfg.sigma); hi > 1 || (hi == 1 && lo != 0) {
		return nil, kberrors.ErrShapeTooLarge
	}

	return &Hasher{
		shape:     sh,
		size:      sh.Size(),
		positions: sh.Positions(),
		ungapped:  sh.IsUngapped(),
		sigma:     cfg.sigma,
		roll:      roll,
		seed:      cfg.seed,
	}, nil
}

// Shape returns the hasher's shape.
func (h *Hasher) Shape() shape.Shape { return h.shape }

// Seed returns the value XORed into every hash.
func (h *Hasher) Seed() uint64 { return h.seed }

// Count returns the number of hashes produced for a sequence of length n.
func (h *Hasher) Count(n int) int {
	if n < h.size {
		return 0
	}
	return n - h.size + 1
}

// Hash returns the hash of the k-mer starting at ranks[pos].
// Precondition: pos+Shape().Size() <= len(ranks).
func (h *Hasher) Hash(ranks []uint8, pos int) uint64 {
	return h.full(ranks, pos) ^ h.seed
}

func (h *Hasher) full(ranks []uint8, pos int) uint64 {
	var v uint64
	for _, p := range h.positions {
		v = v*h.sigma + uint64(ranks[pos+p])
	}
	return v
}

// Hashes returns the lazy hash stream of ranks. Ranging over the result
// twice restarts from the first k-mer.
func (h *Hasher) Hashes(ranks []uint8) iter.Seq[uint64] {
	return func(yield func(uint64) bool) {
		it := h.Iterator(ranks)
		for {
			v, ok := it.Next()
			if !ok || !yield(v) {
				return
			}
		}
	}
}

// Canonical returns, per position, the smaller of the forward hash and the
// reverse-complement hash. DNA4 only.
func (h *Hasher) Canonical(ranks []uint8) (iter.Seq[uint64], error) {
	if h.sigma != 4 {
		return nil, kberrors.ErrNoComplement
	}
	return func(yield func(uint64) bool) {
		it := h.newPairIterator(ranks)
		for {
			fwd, rc, ok := it.Next()
			if !ok || !yield(min(fwd, rc)) {
				return
			}
		}
	}, nil
}

// Pairs returns, per forward position, the forward hash and the hash of the
// reverse complement of the same k-mer. DNA4 only.
func (h *Hasher) Pairs(ranks []uint8) (iter.Seq2[uint64, uint64], error) {
	if h.sigma != 4 {
		return nil, kberrors.ErrNoComplement
	}
	return func(yield func(uint64, uint64) bool) {
		it := h.newPairIterator(ranks)
		for {
			fwd, rc, ok := it.Next()
			if !ok || !yield(fwd, rc) {
				return
			}
		}
	}, nil
}

// Iterator returns a fresh forward iterator over ranks.
func (h *Hasher) Iterator(ranks []uint8) *Iterator {
	return &Iterator{h: h, ranks: ranks}
}

// Iterator walks the k-mer hashes of one sequence.
//
// States: before the first k-mer (next == 0), rolling, exhausted
// (next+size > len(ranks)).
type Iterator struct {
	h     *Hasher
	ranks []uint8
	next  int    // start of the next k-mer
	value uint64 // unseeded hash of the k-mer at next-1
}

// Next returns the hash of the next k-mer, or false once the sequence is
// exhausted.
func (it *Iterator) Next() (uint64, bool) {
	h := it.h
	if it.next+h.size > len(it.ranks) {
		return 0, false
	}
	if h.ungapped && it.next > 0 {
		out := uint64(it.ranks[it.next-1])
		in := uint64(it.ranks[it.next+h.size-1])
		it.value = (it.value-out*h.roll)*h.sigma + in
	} else {
		it.value = h.full(it.ranks, it.next)
	}
	it.next++
	return it.value ^ h.seed, true
}

// Position returns the start of the k-mer last returned by Next, or -1
// before the first call.
func (it *Iterator) Position() int {
	return it.next - 1
}

// Remaining returns how many more hashes Next will produce.
func (it *Iterator) Remaining() int {
	if n := len(it.ranks) - it.h.size + 1 - it.next; n > 0 {
		return n
	}
	return 0
}

// Reset rewinds the iterator to the first k-mer.
func (it *Iterator) Reset() {
	it.next = 0
	it.value = 0
}

// PairIterator walks forward and reverse-complement hashes in lock-step.
type PairIterator struct {
	fwd  Iterator
	rc   uint64 // unseeded reverse-complement hash of the k-mer at fwd.next-1
	rcOK bool
}

// BothStrands returns an iterator yielding forward and reverse-complement
// hashes per position. DNA4 only.
func (h *Hasher) BothStrands(ranks []uint8) (*PairIterator, error) {
	if h.sigma != 4 {
		return nil, kberrors.ErrNoComplement
	}
	return h.newPairIterator(ranks), nil
}

func (h *Hasher) newPairIterator(ranks []uint8) *PairIterator {
	return &PairIterator{fwd: Iterator{h: h, ranks: ranks}}
}

// Next returns the forward and reverse-complement hash of the next k-mer.
func (p *PairIterator) Next() (fwd, rc uint64, ok bool) {
	it := &p.fwd
	h := it.h
	fwd, ok = it.Next()
	if !ok {
		return 0, 0, false
	}
	pos := it.next - 1
	if h.ungapped && p.rcOK {
		// The reverse complement reads the k-mer backwards, so the departing
		// base is its least significant digit and the entering base its most
		// significant.
		out := uint64(3 - it.ranks[pos-1])
		in := uint64(3 - it.ranks[pos+h.size-1])
		p.rc = (p.rc-out)>>2 + in*h.roll
	} else {
		p.rc = h.reverseComplement(it.ranks, pos)
		p.rcOK = true
	}
	return fwd, p.rc ^ h.seed, true
}

// Position returns the start of the k-mer last returned by Next.
func (p *PairIterator) Position() int {
	return p.fwd.Position()
}

// Reset rewinds the iterator to the first k-mer.
func (p *PairIterator) Reset() {
	p.fwd.Reset()
	p.rc, p.rcOK = 0, false
}

// reverseComplement hashes the reverse complement of the k-mer at pos under
// the hasher's shape. Position j of the reverse complement is the complement
// of position size-1-j of the k-mer.
func (h *Hasher) reverseComplement(ranks []uint8, pos int) uint64 {
	var v uint64
	last := pos + h.size - 1
	for _, p := range h.positions {
		v = v<<2 | uint64(3-ranks[last-p])
	}
	return v
}
