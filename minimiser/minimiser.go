// Package minimiser selects the minimal hash of every sliding window over a
// k-mer hash stream.
//
// A window of w bases over k-mers covers w-k+1 consecutive hash values.
// Output is emitted once per change of the tracked minimum, not once per
// window: a minimum that stays in the window while it slides is reported a
// single time. Among equal minimal values the tracked one is kept until it
// leaves the window; its replacement is the newest minimal value.
package minimiser

import (
	"iter"

	kberrors "github.com/tamirms/kmerbloom/errors"
	"github.com/tamirms/kmerbloom/internal/window"
	"github.com/tamirms/kmerbloom/kmerhash"
	"github.com/tamirms/kmerbloom/shape"
)

// DefaultSeed is XORed into every k-mer hash before minimiser selection, so
// that low-complexity k-mers such as poly-A do not dominate every window.
const DefaultSeed uint64 = 0x8F3F73B5CF1C9ADE

// Option configures Hashes.
type Option func(*config)

type config struct {
	seed        uint64
	forwardOnly bool
}

func defaultConfig() *config {
	return &config{seed: DefaultSeed}
}

// WithSeed replaces DefaultSeed.
func WithSeed(seed uint64) Option {
	return func(c *config) {
		c.seed = seed
	}
}

// WithForwardOnly disables canonical hashing: only forward-strand k-mer
// hashes are considered.
func WithForwardOnly() Option {
	return func(c *config) {
		c.forwardOnly = true
	}
}

// Of returns the minimisers of values for windows of windowValues
// consecutive values. Nothing is emitted when values holds fewer than
// windowValues elements or windowValues < 1.
func Of(values iter.Seq[uint64], windowValues int) iter.Seq[uint64] {
	return func(yield func(uint64) bool) {
		if windowValues < 1 {
			return
		}
		tr := window.New(windowValues, window.Sticky)
		for v := range values {
			if !tr.Push(v) {
				continue
			}
			m, _ := tr.Min()
			if !yield(m) {
				return
			}
		}
	}
}

// Hashes returns the canonical seeded minimiser hashes of ranks for the
// given shape and a window of windowSize bases.
//
// At every position the smaller of the seeded forward hash and the seeded
// reverse-complement hash is used, so both strands of a sequence yield the
// same minimisers. Fails with ErrWindowTooSmall when windowSize is smaller
// than the shape size.
func Hashes(ranks []uint8, sh shape.Shape, windowSize int, opts ...Option) (iter.Seq[uint64], error) {
	if windowSize < sh.Size() {
		return nil, kberrors.ErrWindowTooSmall
	}
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	h, err := kmerhash.New(sh, kmerhash.WithSeed(cfg.seed))
	if err != nil {
		return nil, err
	}
	windowValues := windowSize - sh.Size() + 1

	if cfg.forwardOnly {
		return Of(h.Hashes(ranks), windowValues), nil
	}
	pairs, err := h.Pairs(ranks)
	if err != nil {
		return nil, err
	}
	canonical := func(yield func(uint64) bool) {
		for fwd, rc := range pairs {
			if !yield(min(fwd, rc)) {
				return
			}
		}
	}
	return Of(canonical, windowValues), nil
}

// Minimiser is one run of windows sharing the same minimal value.
type Minimiser struct {
	Value       uint64
	Window      int // index of the first window of the run
	Occurrences int // number of consecutive windows in the run
}

// Positions returns the run-length view of the per-window minima of values.
// Consecutive windows whose minimum has the same value form one run, even
// when the minimal element itself changes.
func Positions(values iter.Seq[uint64], windowValues int) iter.Seq[Minimiser] {
	return func(yield func(Minimiser) bool) {
		if windowValues < 1 {
			return
		}
		tr := window.New(windowValues, window.Sticky)
		var run Minimiser
		windows := 0
		for v := range values {
			tr.Push(v)
			if !tr.Full() {
				continue
			}
			m, _ := tr.Min()
			switch {
			case windows == 0:
				run = Minimiser{Value: m, Occurrences: 1}
			case m == run.Value:
				run.Occurrences++
			default:
				if !yield(run) {
					return
				}
				run = Minimiser{Value: m, Window: windows, Occurrences: 1}
			}
			windows++
		}
		if windows > 0 {
			yield(run)
		}
	}
}
