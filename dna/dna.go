// Package dna maps nucleotide characters to DNA4 alphabet ranks.
//
// Ranks are A=0, C=1, G=2, T=3. The complement of rank r is 3-r, so the
// rank table doubles as a complement table. U is read as T. Characters
// outside ACGTU are converted to A by Ranks, matching the usual DNA4
// conversion, or rejected by ParseStrict.
package dna

import (
	"strings"

	kberrors "github.com/tamirms/kmerbloom/errors"
)

// AlphabetSize is the number of DNA4 symbols.
const AlphabetSize = 4

const invalid = 0xFF

var rankOf [256]uint8

func init() {
	for i := range rankOf {
		rankOf[i] = invalid
	}
	rankOf['A'], rankOf['a'] = 0, 0
	rankOf['C'], rankOf['c'] = 1, 1
	rankOf['G'], rankOf['g'] = 2, 2
	rankOf['T'], rankOf['t'] = 3, 3
	rankOf['U'], rankOf['u'] = 3, 3
}

const symbols = "ACGT"

// Rank returns the rank of c and whether c is a valid nucleotide.
func Rank(c byte) (uint8, bool) {
	r := rankOf[c]
	if r == invalid {
		return 0, false
	}
	return r, true
}

// Ranks converts seq to ranks. Unknown characters (N, IUPAC codes, gaps)
// become A.
func Ranks(seq []byte) []uint8 {
	out := make([]uint8, len(seq))
	for i, c := range seq {
		r := rankOf[c]
		if r == invalid {
			r = 0
		}
		out[i] = r
	}
	return out
}

// ParseStrict converts seq to ranks, failing on the first character outside
// ACGTU.
func ParseStrict(seq []byte) ([]uint8, error) {
	out := make([]uint8, len(seq))
	for i, c := range seq {
		r := rankOf[c]
		if r == invalid {
			return nil, kberrors.ErrInvalidSymbol
		}
		out[i] = r
	}
	return out, nil
}

// Complement returns the rank of the complementary base.
func Complement(r uint8) uint8 {
	return 3 - r
}

// ReverseComplement returns the reverse complement of ranks as a new slice.
func ReverseComplement(ranks []uint8) []uint8 {
	n := len(ranks)
	out := make([]uint8, n)
	for i := 0; i < n; i++ {
		out[i] = 3 - ranks[n-1-i]
	}
	return out
}

// String renders ranks as an upper-case ACGT string.
func String(ranks []uint8) string {
	var sb strings.Builder
	sb.Grow(len(ranks))
	for _, r := range ranks {
		sb.WriteByte(symbols[r&3])
	}
	return sb.String()
}
