package kmerbloom

import (
	"encoding/binary"

	kberrors "github.com/tamirms/kmerbloom/errors"
)

const (
	// magic number for serialized filters
	// "IBF1" in little-endian
	magic = uint32(0x31464249)

	// version is the current format version
	version = uint16(0x0001)

	// headerSize is the exact size of the serialized header (64 bytes)
	headerSize = 64

	// footerSize is the exact size of the serialized footer (16 bytes)
	footerSize = 16
)

// header is the 64-byte header of a serialized filter.
//
// Layout:
//
//	Offset  Size  Field              Type
//	0       4     Magic              0x31464249 ("IBF1")
//	4       2     Version            0x0001
//	6       2     Reserved           uint16 (zero)
//	8       8     BinCount           uint64_le
//	16      8     BinSize            uint64_le
//	24      8     HashFunctionCount  uint64_le
//	32      8     TechnicalWords     uint64_le (words in the word region)
//	40      24    Reserved           [24]byte (zero)
//
// The word region follows the header: TechnicalWords little-endian uint64s.
// The footer follows the word region.
type header struct {
	Magic             uint32
	Version           uint16
	BinCount          uint64
	BinSize           uint64
	HashFunctionCount uint64
	TechnicalWords    uint64
}

func headerFor(f *Filter) header {
	return header{
		Magic:             magic,
		Version:           version,
		BinCount:          f.binCount,
		BinSize:           f.binSize,
		HashFunctionCount: f.hashCount,
		TechnicalWords:    uint64(len(f.words)),
	}
}

// encodeTo serializes the header to an existing buffer.
func (h *header) encodeTo(buf []byte) {
	binary.LittleEndian.PutUint32(buf[0:4], h.Magic)
	binary.LittleEndian.PutUint16(buf[4:6], h.Version)
	clear(buf[6:8])
	binary.LittleEndian.PutUint64(buf[8:16], h.BinCount)
	binary.LittleEndian.PutUint64(buf[16:24], h.BinSize)
	binary.LittleEndian.PutUint64(buf[24:32], h.HashFunctionCount)
	binary.LittleEndian.PutUint64(buf[32:40], h.TechnicalWords)
	clear(buf[40:64])
}

// decodeHeader parses and validates a 64-byte header.
func decodeHeader(buf []byte) (*header, error) {
	if len(buf) < headerSize {
		return nil, kberrors.ErrTruncatedFile
	}

	h := &header{
		Magic:             binary.LittleEndian.Uint32(buf[0:4]),
		Version:           binary.LittleEndian.Uint16(buf[4:6]),
		BinCount:          binary.LittleEndian.Uint64(buf[8:16]),
		BinSize:           binary.LittleEndian.Uint64(buf[16:24]),
		HashFunctionCount: binary.LittleEndian.Uint64(buf[24:32]),
		TechnicalWords:    binary.LittleEndian.Uint64(buf[32:40]),
	}

	if h.Magic != magic {
		return nil, kberrors.ErrInvalidMagic
	}
	if h.Version != version {
		return nil, kberrors.ErrInvalidVersion
	}
	if h.BinCount == 0 || h.BinSize == 0 || h.HashFunctionCount == 0 || h.HashFunctionCount > MaxHashFunctions {
		return nil, kberrors.ErrCorruptedFilter
	}
	words, err := wordsFor(h.BinCount, h.BinSize)
	if err != nil || words != h.TechnicalWords {
		return nil, kberrors.ErrCorruptedFilter
	}
	return h, nil
}

// regionSize returns the size in bytes of the word region.
func (h *header) regionSize() uint64 {
	return h.TechnicalWords * 8
}

// footer is the 16-byte trailer of a serialized filter.
//
// Layout:
//
//	Offset  Size  Field       Type
//	0       8     WordsHash   uint64_le (xxHash64 of the word region)
//	8       8     Reserved    [8]byte (zero)
type footer struct {
	WordsHash uint64
}

// encodeTo serializes the footer into an existing buffer.
func (f *footer) encodeTo(buf []byte) {
	binary.LittleEndian.PutUint64(buf[0:8], f.WordsHash)
	clear(buf[8:16])
}

// decodeFooter parses a 16-byte footer.
func decodeFooter(buf []byte) (*footer, error) {
	if len(buf) < footerSize {
		return nil, kberrors.ErrTruncatedFile
	}
	return &footer{WordsHash: binary.LittleEndian.Uint64(buf[0:8])}, nil
}
