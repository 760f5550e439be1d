// Package shape describes which positions of a k-mer window contribute to
// its hash.
//
// A shape is a bit pattern read from the most significant set bit (the first
// position of the window) down to bit 0 (the last position). Set bits are
// included positions; clear bits are gaps. The first and last positions are
// always included, so a shape never has leading or trailing gaps.
package shape

import (
	"math/bits"
	"strings"

	kberrors "github.com/tamirms/kmerbloom/errors"
)

// MaxSize is the longest supported window.
const MaxSize = 64

// Shape is an immutable k-mer shape. The zero value is not a valid shape.
type Shape struct {
	pattern uint64
	size    uint8
	weight  uint8
}

// New builds a shape from a bit pattern, e.g. 0b1101 for "1101".
func New(pattern uint64) (Shape, error) {
	if pattern == 0 || pattern&1 == 0 {
		return Shape{}, kberrors.ErrInvalidShape
	}
	return Shape{
		pattern: pattern,
		size:    uint8(bits.Len64(pattern)),
		weight:  uint8(bits.OnesCount64(pattern)),
	}, nil
}

// Ungapped returns the shape of k consecutive included positions.
func Ungapped(k int) (Shape, error) {
	if k < 1 || k > MaxSize {
		return Shape{}, kberrors.ErrInvalidShape
	}
	if k == MaxSize {
		return New(^uint64(0))
	}
	return New(uint64(1)<<k - 1)
}

// Parse reads a shape written as a string of '1' and '0', e.g. "1101".
func Parse(s string) (Shape, error) {
	if len(s) == 0 || len(s) > MaxSize {
		return Shape{}, kberrors.ErrInvalidShape
	}
	var pattern uint64
	for i := 0; i < len(s); i++ {
		pattern <<= 1
		switch s[i] {
		case '1':
			pattern |= 1
		case '0':
		default:
			return Shape{}, kberrors.ErrInvalidShape
		}
	}
	if s[0] != '1' {
		return Shape{}, kberrors.ErrInvalidShape
	}
	return New(pattern)
}

// MustParse is like Parse but panics on error. Intended for constants and
// tests.
func MustParse(s string) Shape {
	sh, err := Parse(s)
	if err != nil {
		panic("shape: MustParse(" + s + "): " + err.Error())
	}
	return sh
}

// Size returns k, the number of positions spanned by the shape.
func (s Shape) Size() int { return int(s.size) }

// Weight returns the number of included positions.
func (s Shape) Weight() int { return int(s.weight) }

// Pattern returns the raw bit pattern.
func (s Shape) Pattern() uint64 { return s.pattern }

// IsUngapped reports whether every position is included.
func (s Shape) IsUngapped() bool { return s.size == s.weight }

// Included reports whether window position i (0 = first) contributes to the
// hash.
func (s Shape) Included(i int) bool {
	return s.pattern>>(int(s.size)-1-i)&1 == 1
}

// Positions returns the included window positions in ascending order.
func (s Shape) Positions() []int {
	out := make([]int, 0, s.weight)
	for i := 0; i < int(s.size); i++ {
		if s.Included(i) {
			out = append(out, i)
		}
	}
	return out
}

// String renders the shape as a string of '1' and '0'.
func (s Shape) String() string {
	var sb strings.Builder
	sb.Grow(int(s.size))
	for i := 0; i < int(s.size); i++ {
		if s.Included(i) {
			sb.WriteByte('1')
		} else {
			sb.WriteByte('0')
		}
	}
	return sb.String()
}
