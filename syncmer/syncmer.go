// Package syncmer selects k-mers whose minimal s-mer sits at a fixed offset.
//
// Each k-mer holds w = k-s+1 s-mers. A k-mer is a syncmer for offset t when
// the leftmost minimal s-mer hash among them is the t-th one. Offset 0 gives
// open syncmers anchored at the start; offsets 0 and k-s together give the
// usual closed syncmers.
package syncmer

import (
	"iter"

	kberrors "github.com/tamirms/kmerbloom/errors"
	"github.com/tamirms/kmerbloom/internal/window"
	"github.com/tamirms/kmerbloom/kmerhash"
	"github.com/tamirms/kmerbloom/shape"
)

// Syncmer is one selected k-mer.
type Syncmer struct {
	Value    uint64 // k-mer hash on the selected strand
	Position int    // start of the k-mer on the forward strand
	Offset   int    // index of the minimal s-mer, in the selected strand's reading direction
	Reverse  bool   // selected from the reverse-complement strand
}

// Selector holds the hashers for one (k, s, offset) configuration.
// It is safe for concurrent use.
type Selector struct {
	k, s, offset int
	kmers        *kmerhash.Hasher
	smers        *kmerhash.Hasher
}

// New returns a Selector. Requires 1 <= s <= k and 0 <= offset <= k-s,
// otherwise it fails with ErrInvalidSyncmer.
func New(k, s, offset int) (*Selector, error) {
	if s < 1 || s > k || offset < 0 || offset > k-s {
		return nil, kberrors.ErrInvalidSyncmer
	}
	kshape, err := shape.Ungapped(k)
	if err != nil {
		return nil, err
	}
	sshape, err := shape.Ungapped(s)
	if err != nil {
		return nil, err
	}
	kmers, err := kmerhash.New(kshape)
	if err != nil {
		return nil, err
	}
	smers, err := kmerhash.New(sshape)
	if err != nil {
		return nil, err
	}
	return &Selector{k: k, s: s, offset: offset, kmers: kmers, smers: smers}, nil
}

// Window returns the number of s-mers per k-mer.
func (sel *Selector) Window() int {
	return sel.k - sel.s + 1
}

// All returns the forward-strand syncmers of ranks.
func (sel *Selector) All(ranks []uint8) iter.Seq[Syncmer] {
	return func(yield func(Syncmer) bool) {
		smers := sel.smers.Iterator(ranks)
		kmers := sel.kmers.Iterator(ranks)
		tr := window.New(sel.Window(), window.Leftmost)
		for {
			v, ok := smers.Next()
			if !ok {
				return
			}
			tr.Push(v)
			if !tr.Full() {
				continue
			}
			value, _ := kmers.Next()
			_, idx := tr.Min()
			if idx != sel.offset {
				continue
			}
			if !yield(Syncmer{Value: value, Position: kmers.Position(), Offset: idx}) {
				return
			}
		}
	}
}

// Hashes returns the k-mer hashes of the forward-strand syncmers of ranks.
func (sel *Selector) Hashes(ranks []uint8) iter.Seq[uint64] {
	return values(sel.All(ranks))
}

// CanonicalAll returns the strand-agnostic syncmers of ranks.
//
// For every k-mer both strands are considered. The strand whose minimal
// s-mer hash is smaller is selected, the forward strand on a tie, and the
// k-mer is emitted when the minimal s-mer sits at the configured offset
// counted in that strand's reading direction.
//
// Fails with ErrNoComplement if the hashers do not use the DNA4 alphabet.
func (sel *Selector) CanonicalAll(ranks []uint8) (iter.Seq[Syncmer], error) {
	smers, err := sel.smers.BothStrands(ranks)
	if err != nil {
		return nil, err
	}
	kmers, err := sel.kmers.BothStrands(ranks)
	if err != nil {
		return nil, err
	}
	return func(yield func(Syncmer) bool) {
		smers.Reset()
		kmers.Reset()
		// Reverse-complement s-mers are stored in forward order, so the
		// leftmost minimum on the reverse strand is the rightmost one here.
		fwd := window.New(sel.Window(), window.Leftmost)
		rev := window.New(sel.Window(), window.Rightmost)
		last := sel.Window() - 1
		for {
			f, r, ok := smers.Next()
			if !ok {
				return
			}
			fwd.Push(f)
			rev.Push(r)
			if !fwd.Full() {
				continue
			}
			kf, kr, _ := kmers.Next()

			fmin, fidx := fwd.Min()
			rmin, ridx := rev.Min()
			var m Syncmer
			if rmin < fmin {
				m = Syncmer{Value: kr, Offset: last - ridx, Reverse: true}
			} else {
				m = Syncmer{Value: kf, Offset: fidx}
			}
			if m.Offset != sel.offset {
				continue
			}
			m.Position = kmers.Position()
			if !yield(m) {
				return
			}
		}
	}, nil
}

// Canonical returns the k-mer hashes of the strand-agnostic syncmers of
// ranks.
func (sel *Selector) Canonical(ranks []uint8) (iter.Seq[uint64], error) {
	all, err := sel.CanonicalAll(ranks)
	if err != nil {
		return nil, err
	}
	return values(all), nil
}

func values(seq iter.Seq[Syncmer]) iter.Seq[uint64] {
	return func(yield func(uint64) bool) {
		for m := range seq {
			if !yield(m.Value) {
				return
			}
		}
	}
}

// Hashes is shorthand for New(k, s, offset) followed by Selector.Hashes.
func Hashes(ranks []uint8, k, s, offset int) (iter.Seq[uint64], error) {
	sel, err := New(k, s, offset)
	if err != nil {
		return nil, err
	}
	return sel.Hashes(ranks), nil
}

// All is shorthand for New(k, s, offset) followed by Selector.All.
func All(ranks []uint8, k, s, offset int) (iter.Seq[Syncmer], error) {
	sel, err := New(k, s, offset)
	if err != nil {
		return nil, err
	}
	return sel.All(ranks), nil
}

// Canonical is shorthand for New(k, s, offset) followed by
// Selector.Canonical.
func Canonical(ranks []uint8, k, s, offset int) (iter.Seq[uint64], error) {
	sel, err := New(k, s, offset)
	if err != nil {
		return nil, err
	}
	return sel.Canonical(ranks)
}
