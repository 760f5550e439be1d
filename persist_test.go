package kmerbloom

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"slices"
	"testing"

	"github.com/klauspost/compress/zstd"

	kberrors "github.com/tamirms/kmerbloom/errors"
	"github.com/tamirms/kmerbloom/internal/encoding"
)

// marshalTestFilter returns a populated filter and its serialized form.
func marshalTestFilter(t *testing.T) (*Filter, []byte) {
	t.Helper()
	f, _ := newRandomFilter(t, 70, 1<<10, 3, 50)
	data, err := f.MarshalBinary()
	if err != nil {
		t.Fatalf("MarshalBinary: %v", err)
	}
	return f, data
}

func TestWriteToReadFilter(t *testing.T) {
	f, inserted := newRandomFilter(t, 130, 1<<12, 2, 200)

	var buf bytes.Buffer
	n, err := f.WriteTo(&buf)
	if err != nil {
		t.Fatalf("WriteTo: %v", err)
	}
	if n != int64(buf.Len()) || n != int64(f.SerializedSize()) {
		t.Fatalf("WriteTo wrote %d bytes, buffer holds %d, SerializedSize %d", n, buf.Len(), f.SerializedSize())
	}

	g, err := ReadFilter(&buf)
	if err != nil {
		t.Fatalf("ReadFilter: %v", err)
	}
	if !f.Equal(g) || g.TechnicalBinCount() != f.TechnicalBinCount() {
		t.Fatal("round trip changed the filter")
	}
	if err := g.Verify(); err != nil {
		t.Fatalf("Verify: %v", err)
	}
	assertNoFalseNegatives(t, g, inserted)
}

// TestWriteToMultipleChunks covers word regions larger than one write chunk.
func TestWriteToMultipleChunks(t *testing.T) {
	f, _ := newRandomFilter(t, 64, chunkWords*2+17, 2, 1000)
	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		t.Fatal(err)
	}
	data, err := f.MarshalBinary()
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(buf.Bytes(), data) {
		t.Fatal("WriteTo and MarshalBinary disagree")
	}
	g, err := ReadFilter(bytes.NewReader(data))
	if err != nil {
		t.Fatal(err)
	}
	if !f.Equal(g) {
		t.Fatal("round trip changed the filter")
	}
}

func TestSerializedLayout(t *testing.T) {
	f, data := marshalTestFilter(t)
	if len(data) != headerSize+len(f.Words())*8+footerSize {
		t.Fatalf("len = %d", len(data))
	}
	if got := binary.LittleEndian.Uint32(data[0:4]); got != magic {
		t.Fatalf("magic = 0x%X", got)
	}
	if got := binary.LittleEndian.Uint64(data[8:16]); got != f.BinCount() {
		t.Fatalf("bin count = %d", got)
	}
	if got := binary.LittleEndian.Uint64(data[16:24]); got != f.BinSize() {
		t.Fatalf("bin size = %d", got)
	}
	for i, w := range f.Words() {
		if got := binary.LittleEndian.Uint64(data[headerSize+i*8:]); got != w {
			t.Fatalf("word %d = 0x%X, want 0x%X", i, got, w)
		}
	}
}

func TestMarshalUnmarshal(t *testing.T) {
	f, data := marshalTestFilter(t)

	var g Filter
	if err := g.UnmarshalBinary(data); err != nil {
		t.Fatalf("UnmarshalBinary: %v", err)
	}
	if !f.Equal(&g) {
		t.Fatal("round trip changed the filter")
	}

	// The result owns its storage.
	clear(data)
	if !f.Equal(&g) {
		t.Fatal("UnmarshalBinary aliases its input")
	}
}

func TestOpenBytes(t *testing.T) {
	f, data := marshalTestFilter(t)
	g, err := OpenBytes(data)
	if err != nil {
		t.Fatalf("OpenBytes: %v", err)
	}
	if !f.Equal(g) {
		t.Fatal("OpenBytes disagrees with the source filter")
	}
	if err := g.Verify(); err != nil {
		t.Fatalf("Verify: %v", err)
	}

	region := data[headerSize : len(data)-footerSize]
	if encoding.LittleEndianHost && encoding.Aligned(region) {
		g.Emplace(0xABCDEF, 69)
		if !slices.Equal(encoding.WordsView(region), g.Words()) {
			t.Fatal("aligned OpenBytes does not alias its input")
		}
	}
}

// TestVerifyAfterModification checks that a loaded filter stops verifying
// once it is modified.
func TestVerifyAfterModification(t *testing.T) {
	_, data := marshalTestFilter(t)
	g, err := OpenBytes(data)
	if err != nil {
		t.Fatal(err)
	}
	g.Clear(3)
	g.Emplace(1, 2)
	if err := g.Verify(); !errors.Is(err, kberrors.ErrChecksumFailed) {
		t.Fatalf("Verify after modification = %v, want ErrChecksumFailed", err)
	}

	fresh, err := New(4, 64, 1)
	if err != nil {
		t.Fatal(err)
	}
	fresh.Emplace(5, 1)
	if err := fresh.Verify(); err != nil {
		t.Fatalf("Verify of a never-serialized filter = %v", err)
	}
}

func TestCorruptedData(t *testing.T) {
	_, valid := marshalTestFilter(t)

	tests := []struct {
		name    string
		corrupt func([]byte) []byte
		want    error
	}{
		{"Magic", func(b []byte) []byte { b[0] ^= 0xFF; return b }, kberrors.ErrInvalidMagic},
		{"Version", func(b []byte) []byte { b[4] = 9; return b }, kberrors.ErrInvalidVersion},
		{"ZeroBins", func(b []byte) []byte { clear(b[8:16]); return b }, kberrors.ErrCorruptedFilter},
		{"BinSize", func(b []byte) []byte { b[16]++; return b }, kberrors.ErrCorruptedFilter},
		{"HashCount", func(b []byte) []byte { b[24] = 6; return b }, kberrors.ErrCorruptedFilter},
		{"WordCount", func(b []byte) []byte { b[32]++; return b }, kberrors.ErrCorruptedFilter},
		{"HeaderOnly", func(b []byte) []byte { return b[:headerSize] }, kberrors.ErrTruncatedFile},
		{"MissingFooter", func(b []byte) []byte { return b[:len(b)-1] }, kberrors.ErrTruncatedFile},
		{"Empty", func(b []byte) []byte { return nil }, kberrors.ErrTruncatedFile},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			data := tc.corrupt(slices.Clone(valid))
			if _, err := OpenBytes(data); !errors.Is(err, tc.want) {
				t.Errorf("OpenBytes: got %v, want %v", err, tc.want)
			}
			if _, err := ReadFilter(bytes.NewReader(data)); !errors.Is(err, tc.want) {
				t.Errorf("ReadFilter: got %v, want %v", err, tc.want)
			}
			var g Filter
			if err := g.UnmarshalBinary(data); !errors.Is(err, tc.want) {
				t.Errorf("UnmarshalBinary: got %v, want %v", err, tc.want)
			}
		})
	}
}

func TestCorruptedWords(t *testing.T) {
	_, valid := marshalTestFilter(t)
	data := slices.Clone(valid)
	data[headerSize+13] ^= 0x10

	g, err := OpenBytes(data)
	if err != nil {
		t.Fatalf("OpenBytes does not verify, got %v", err)
	}
	if err := g.Verify(); !errors.Is(err, kberrors.ErrChecksumFailed) {
		t.Errorf("Verify: got %v, want ErrChecksumFailed", err)
	}
	if _, err := ReadFilter(bytes.NewReader(data)); !errors.Is(err, kberrors.ErrChecksumFailed) {
		t.Errorf("ReadFilter: got %v, want ErrChecksumFailed", err)
	}
	var u Filter
	if err := u.UnmarshalBinary(data); !errors.Is(err, kberrors.ErrChecksumFailed) {
		t.Errorf("UnmarshalBinary: got %v, want ErrChecksumFailed", err)
	}

	footerFlip := slices.Clone(valid)
	footerFlip[len(footerFlip)-footerSize] ^= 1
	if _, err := ReadFilter(bytes.NewReader(footerFlip)); !errors.Is(err, kberrors.ErrChecksumFailed) {
		t.Errorf("ReadFilter with corrupt footer: got %v, want ErrChecksumFailed", err)
	}
}

func TestTrailingBytes(t *testing.T) {
	_, valid := marshalTestFilter(t)
	data := append(slices.Clone(valid), 0)
	if _, err := OpenBytes(data); !errors.Is(err, kberrors.ErrCorruptedFilter) {
		t.Fatalf("OpenBytes with trailing byte: got %v, want ErrCorruptedFilter", err)
	}
}

// TestReadOversizedHeader feeds headers whose dimensions are valid but far
// larger than the data that follows them.
func TestReadOversizedHeader(t *testing.T) {
	hdr := header{
		Magic:             magic,
		Version:           version,
		BinCount:          64,
		BinSize:           1 << 46,
		HashFunctionCount: 2,
		TechnicalWords:    1 << 46,
	}
	data := make([]byte, headerSize+3*chunkWords*encoding.WordSize)
	hdr.encodeTo(data)

	for _, n := range []int{headerSize, len(data)} {
		if _, err := ReadFilter(bytes.NewReader(data[:n])); !errors.Is(err, kberrors.ErrTruncatedFile) {
			t.Errorf("ReadFilter(%d bytes): got %v, want ErrTruncatedFile", n, err)
		}
		if _, err := OpenBytes(data[:n]); !errors.Is(err, kberrors.ErrTruncatedFile) {
			t.Errorf("OpenBytes(%d bytes): got %v, want ErrTruncatedFile", n, err)
		}
	}

	enc, err := zstd.NewWriter(nil)
	if err != nil {
		t.Fatal(err)
	}
	compressed := enc.EncodeAll(data, nil)
	if err := enc.Close(); err != nil {
		t.Fatal(err)
	}
	if _, err := ReadCompressed(bytes.NewReader(compressed)); !errors.Is(err, kberrors.ErrTruncatedFile) {
		t.Errorf("ReadCompressed: got %v, want ErrTruncatedFile", err)
	}
}

type failingWriter struct {
	remaining int
}

var errWriteFailed = errors.New("write failed")

func (w *failingWriter) Write(p []byte) (int, error) {
	if len(p) > w.remaining {
		n := w.remaining
		w.remaining = 0
		return n, errWriteFailed
	}
	w.remaining -= len(p)
	return len(p), nil
}

func TestWriteToPropagatesErrors(t *testing.T) {
	f, _ := marshalTestFilter(t)
	for _, limit := range []int{0, headerSize + 8, f.SerializedSize() - 1} {
		n, err := f.WriteTo(&failingWriter{remaining: limit})
		if !errors.Is(err, errWriteFailed) {
			t.Fatalf("limit %d: got %v, want errWriteFailed", limit, err)
		}
		if n != int64(limit) {
			t.Fatalf("limit %d: reported %d bytes written", limit, n)
		}
	}
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errWriteFailed }

func TestReadFilterPropagatesErrors(t *testing.T) {
	_, err := ReadFilter(failingReader{})
	if !errors.Is(err, errWriteFailed) {
		t.Fatalf("got %v, want the reader's error", err)
	}
	_, err = ReadFilter(io.LimitReader(bytes.NewReader(nil), 0))
	if !errors.Is(err, kberrors.ErrTruncatedFile) {
		t.Fatalf("empty reader: got %v, want ErrTruncatedFile", err)
	}
}

func TestClosedFilter(t *testing.T) {
	f, _ := marshalTestFilter(t)
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
	if _, err := f.MarshalBinary(); !errors.Is(err, kberrors.ErrFilterClosed) {
		t.Errorf("MarshalBinary: got %v", err)
	}
	if _, err := f.WriteTo(io.Discard); !errors.Is(err, kberrors.ErrFilterClosed) {
		t.Errorf("WriteTo: got %v", err)
	}
	if err := f.Verify(); !errors.Is(err, kberrors.ErrFilterClosed) {
		t.Errorf("Verify: got %v", err)
	}
	if err := f.Save(t.TempDir() + "/closed.ibf"); !errors.Is(err, kberrors.ErrFilterClosed) {
		t.Errorf("Save: got %v", err)
	}
}
