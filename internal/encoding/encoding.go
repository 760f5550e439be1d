// Package encoding converts between the filter's 64-bit word storage and its
// little-endian byte representation.
//
// WordsView uses an unsafe reinterpretation and is only correct on
// little-endian architectures (amd64, arm64). PutWords and ReadWords are the
// safe, portable counterparts and are used on every streaming path.
package encoding

import (
	"encoding/binary"
	"unsafe"
)

// WordSize is the number of bytes in one storage word.
const WordSize = 8

// LittleEndianHost reports whether the native byte order is little-endian,
// the precondition for WordsView.
var LittleEndianHost = binary.NativeEndian.Uint16([]byte{1, 0}) == 1

// PutWords writes words to dst in little-endian order.
// Precondition: len(dst) >= len(words)*WordSize.
func PutWords(dst []byte, words []uint64) {
	if len(words) == 0 {
		return
	}
	_ = dst[len(words)*WordSize-1] // bounds check hint
	for i, w := range words {
		binary.LittleEndian.PutUint64(dst[i*WordSize:], w)
	}
}

// ReadWords fills dst from little-endian src.
// Precondition: len(src) >= len(dst)*WordSize.
func ReadWords(dst []uint64, src []byte) {
	if len(dst) == 0 {
		return
	}
	_ = src[len(dst)*WordSize-1] // bounds check hint
	for i := range dst {
		dst[i] = binary.LittleEndian.Uint64(src[i*WordSize:])
	}
}

// Aligned reports whether buf can be viewed as []uint64 without copying.
func Aligned(buf []byte) bool {
	return len(buf)%WordSize == 0 && uintptr(unsafe.Pointer(unsafe.SliceData(buf)))%WordSize == 0
}

// WordsView reinterprets buf as a word slice sharing the same memory.
// Panics if buf is not Aligned. Writes through the returned slice are
// visible in buf.
func WordsView(buf []byte) []uint64 {
	if len(buf) == 0 {
		return nil
	}
	if !Aligned(buf) {
		panic("encoding: WordsView: buffer is not word aligned")
	}
	return unsafe.Slice((*uint64)(unsafe.Pointer(unsafe.SliceData(buf))), len(buf)/WordSize)
}

// BytesView reinterprets words as their byte representation, sharing the
// same memory. Only little-endian hosts see the serialized byte order.
func BytesView(words []uint64) []byte {
	if len(words) == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(unsafe.SliceData(words))), len(words)*WordSize)
}
