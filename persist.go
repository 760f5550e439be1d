package kmerbloom

import (
	"errors"
	"fmt"
	"io"
	"slices"

	"github.com/cespare/xxhash/v2"

	kberrors "github.com/tamirms/kmerbloom/errors"
	"github.com/tamirms/kmerbloom/internal/encoding"
)

// chunkWords is the number of words encoded per write on streaming paths.
const chunkWords = 8192

// SerializedSize returns the number of bytes WriteTo produces.
func (f *Filter) SerializedSize() int {
	return headerSize + len(f.words)*encoding.WordSize + footerSize
}

// WriteTo writes the filter to w in the serialized format:
// [Header 64B][Words][Footer 16B].
func (f *Filter) WriteTo(w io.Writer) (int64, error) {
	if f.closed.Load() {
		return 0, kberrors.ErrFilterClosed
	}

	buf := make([]byte, chunkWords*encoding.WordSize)
	var written int64
	write := func(b []byte) error {
		n, err := w.Write(b)
		written += int64(n)
		return err
	}

	hdr := headerFor(f)
	hdr.encodeTo(buf[:headerSize])
	if err := write(buf[:headerSize]); err != nil {
		return written, fmt.Errorf("write header: %w", err)
	}

	digest := xxhash.New()
	for start := 0; start < len(f.words); start += chunkWords {
		chunk := f.words[start:min(start+chunkWords, len(f.words))]
		b := buf[:len(chunk)*encoding.WordSize]
		encoding.PutWords(b, chunk)
		if _, err := digest.Write(b); err != nil {
			panic("hash.Hash.Write returned unexpected error: " + err.Error())
		}
		if err := write(b); err != nil {
			return written, fmt.Errorf("write words: %w", err)
		}
	}

	ftr := footer{WordsHash: digest.Sum64()}
	ftr.encodeTo(buf[:footerSize])
	if err := write(buf[:footerSize]); err != nil {
		return written, fmt.Errorf("write footer: %w", err)
	}
	return written, nil
}

// ReadFilter reads a filter written by WriteTo and verifies its checksum.
func ReadFilter(r io.Reader) (*Filter, error) {
	buf := make([]byte, chunkWords*encoding.WordSize)
	if _, err := io.ReadFull(r, buf[:headerSize]); err != nil {
		return nil, readError(err)
	}
	hdr, err := decodeHeader(buf[:headerSize])
	if err != nil {
		return nil, err
	}
	f, err := newShell(hdr.BinCount, hdr.BinSize, hdr.HashFunctionCount)
	if err != nil {
		return nil, errors.Join(kberrors.ErrCorruptedFilter, err)
	}

	// Storage grows with the data actually read, so a header claiming more
	// words than the stream holds fails with ErrTruncatedFile instead of
	// allocating up front.
	words := make([]uint64, 0, min(hdr.TechnicalWords, chunkWords))
	digest := xxhash.New()
	for remaining := hdr.TechnicalWords; remaining > 0; {
		n := int(min(remaining, chunkWords))
		b := buf[:n*encoding.WordSize]
		if _, err := io.ReadFull(r, b); err != nil {
			return nil, readError(err)
		}
		if _, err := digest.Write(b); err != nil {
			panic("hash.Hash.Write returned unexpected error: " + err.Error())
		}
		start := len(words)
		words = slices.Grow(words, n)[:start+n]
		encoding.ReadWords(words[start:], b)
		remaining -= uint64(n)
	}
	f.words = words

	if _, err := io.ReadFull(r, buf[:footerSize]); err != nil {
		return nil, readError(err)
	}
	ftr, err := decodeFooter(buf[:footerSize])
	if err != nil {
		return nil, err
	}
	if ftr.WordsHash != digest.Sum64() {
		return nil, kberrors.ErrChecksumFailed
	}
	f.checksum, f.hasChecksum = ftr.WordsHash, true
	return f, nil
}

// readError maps short reads to ErrTruncatedFile.
func readError(err error) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return kberrors.ErrTruncatedFile
	}
	return fmt.Errorf("read filter: %w", err)
}

// MarshalBinary implements encoding.BinaryMarshaler.
func (f *Filter) MarshalBinary() ([]byte, error) {
	if f.closed.Load() {
		return nil, kberrors.ErrFilterClosed
	}
	buf := make([]byte, f.SerializedSize())
	f.encodeInto(buf)
	return buf, nil
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler. The data is copied
// and its checksum verified.
func (f *Filter) UnmarshalBinary(data []byte) error {
	g, err := parseBytes(data, false)
	if err != nil {
		return err
	}
	if err := g.Verify(); err != nil {
		return err
	}
	f.binCount = g.binCount
	f.technicalBins = g.technicalBins
	f.blockWords = g.blockWords
	f.binSize = g.binSize
	f.hashShift = g.hashShift
	f.hashCount = g.hashCount
	f.words = g.words
	f.checksum, f.hasChecksum = g.checksum, g.hasChecksum
	return nil
}

// OpenBytes creates a filter from serialized data without copying when
// possible: on little-endian hosts with a word-aligned word region the
// filter's words alias data, so Emplace and Clear write through to it.
// The checksum is not verified; call Verify.
func OpenBytes(data []byte) (*Filter, error) {
	return parseBytes(data, true)
}

// encodeInto writes the complete serialized form into buf, which must hold
// SerializedSize bytes.
func (f *Filter) encodeInto(buf []byte) {
	hdr := headerFor(f)
	hdr.encodeTo(buf[:headerSize])
	region := buf[headerSize : headerSize+len(f.words)*encoding.WordSize]
	encoding.PutWords(region, f.words)
	ftr := footer{WordsHash: xxhash.Sum64(region)}
	ftr.encodeTo(buf[len(buf)-footerSize:])
}

// parseBytes decodes a serialized filter held in data.
func parseBytes(data []byte, alias bool) (*Filter, error) {
	if len(data) < headerSize+footerSize {
		return nil, kberrors.ErrTruncatedFile
	}
	hdr, err := decodeHeader(data[:headerSize])
	if err != nil {
		return nil, err
	}
	total := uint64(headerSize) + hdr.regionSize() + footerSize
	if uint64(len(data)) < total {
		return nil, kberrors.ErrTruncatedFile
	}
	if uint64(len(data)) > total {
		return nil, kberrors.ErrCorruptedFilter
	}

	f, err := newShell(hdr.BinCount, hdr.BinSize, hdr.HashFunctionCount)
	if err != nil {
		return nil, errors.Join(kberrors.ErrCorruptedFilter, err)
	}
	ftr, err := decodeFooter(data[total-footerSize:])
	if err != nil {
		return nil, err
	}
	f.checksum, f.hasChecksum = ftr.WordsHash, true

	region := data[headerSize : total-footerSize]
	if alias && encoding.LittleEndianHost && encoding.Aligned(region) {
		f.words = encoding.WordsView(region)
	} else {
		f.words = make([]uint64, hdr.TechnicalWords)
		encoding.ReadWords(f.words, region)
	}
	return f, nil
}

// Verify checks the words against the checksum recorded when the filter
// was serialized. It fails with ErrChecksumFailed when the data is corrupt
// or the filter was modified after loading. Filters that were never
// serialized always verify.
func (f *Filter) Verify() error {
	if f.closed.Load() {
		return kberrors.ErrFilterClosed
	}
	if !f.hasChecksum {
		return nil
	}
	if wordsChecksum(f.words) != f.checksum {
		return kberrors.ErrChecksumFailed
	}
	return nil
}

// wordsChecksum returns the xxHash64 of the little-endian encoding of words.
func wordsChecksum(words []uint64) uint64 {
	if encoding.LittleEndianHost {
		return xxhash.Sum64(encoding.BytesView(words))
	}
	digest := xxhash.New()
	buf := make([]byte, chunkWords*encoding.WordSize)
	for start := 0; start < len(words); start += chunkWords {
		chunk := words[start:min(start+chunkWords, len(words))]
		b := buf[:len(chunk)*encoding.WordSize]
		encoding.PutWords(b, chunk)
		if _, err := digest.Write(b); err != nil {
			panic("hash.Hash.Write returned unexpected error: " + err.Error())
		}
	}
	return digest.Sum64()
}
