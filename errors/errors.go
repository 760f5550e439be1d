// Package errors defines all exported error sentinels for the kmerbloom library.
//
// This is the single source of truth for error values. The top-level
// kmerbloom package and the sequence packages (shape, kmerhash, minimiser,
// syncmer) import from here, ensuring errors.Is checks work across package
// boundaries.
package errors

import "errors"

// Construction errors
var (
	ErrZeroBinCount         = errors.New("kmerbloom: bin count must be positive")
	ErrZeroBinSize          = errors.New("kmerbloom: bin size must be positive")
	ErrZeroHashFunctions    = errors.New("kmerbloom: hash function count must be positive")
	ErrTooManyHashFunctions = errors.New("kmerbloom: hash function count exceeds maximum (5)")
	ErrBinCountDecrease     = errors.New("kmerbloom: bin count cannot be decreased")
	ErrFilterTooLarge       = errors.New("kmerbloom: filter size overflows addressable memory")
)

// Sequence view errors
var (
	ErrInvalidShape   = errors.New("kmerbloom: shape must start and end with an included position")
	ErrShapeTooLarge  = errors.New("kmerbloom: shape weight does not fit a 64-bit hash")
	ErrAlphabetSize   = errors.New("kmerbloom: alphabet size must be at least 2")
	ErrNoComplement   = errors.New("kmerbloom: reverse complement requires the DNA4 alphabet")
	ErrWindowTooSmall = errors.New("kmerbloom: window size must not be smaller than the shape size")
	ErrInvalidSyncmer = errors.New("kmerbloom: syncmer requires 1 <= s <= k and offset < k-s+1")
	ErrInvalidSymbol  = errors.New("kmerbloom: invalid nucleotide symbol")
)

// Format errors
var (
	ErrInvalidMagic    = errors.New("kmerbloom: invalid magic number")
	ErrInvalidVersion  = errors.New("kmerbloom: unsupported version")
	ErrChecksumFailed  = errors.New("kmerbloom: filter checksum verification failed")
	ErrTruncatedFile   = errors.New("kmerbloom: filter data is truncated")
	ErrCorruptedFilter = errors.New("kmerbloom: filter data is corrupted")
)

// Build errors
var (
	ErrBinOutOfRange = errors.New("kmerbloom: bin index out of range")
)

// Lifecycle errors
var (
	ErrFilterClosed  = errors.New("kmerbloom: filter is closed")
	ErrBuilderClosed = errors.New("kmerbloom: builder is closed")
)
