// Package bits provides low-level bit manipulation primitives.
package bits

import "math/bits"

// FastRange64 maps a 64-bit hash uniformly to [0, n).
// Uses the "fastrange" technique: multiply and take the high 64 bits.
// This is the standard way to map hashes to ranges without modulo bias.
func FastRange64(hash, n uint64) uint64 {
	hi, _ := bits.Mul64(hash, n)
	return hi
}

// WordsFor returns the number of 64-bit words needed to hold n bits.
func WordsFor(n uint64) uint64 {
	return (n + 63) >> 6
}

// RoundUp64 rounds n up to the next multiple of 64.
func RoundUp64(n uint64) uint64 {
	return WordsFor(n) << 6
}
