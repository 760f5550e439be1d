package kmerbloom

import (
	"errors"
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"
)

// WriteCompressed writes the serialized filter to w as a zstd stream.
// Sparse filters compress well; use it for transport and archival, and
// Save for files that will be memory-mapped.
func (f *Filter) WriteCompressed(w io.Writer) error {
	enc, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return fmt.Errorf("create zstd encoder: %w", err)
	}
	if _, err := f.WriteTo(enc); err != nil {
		return errors.Join(err, enc.Close())
	}
	return enc.Close()
}

// ReadCompressed reads a filter written by WriteCompressed and verifies its
// checksum.
func ReadCompressed(r io.Reader) (*Filter, error) {
	dec, err := zstd.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("create zstd decoder: %w", err)
	}
	defer dec.Close()
	return ReadFilter(dec)
}
