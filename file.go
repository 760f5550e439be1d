package kmerbloom

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/edsrzf/mmap-go"

	kberrors "github.com/tamirms/kmerbloom/errors"
)

// readBufferSize is the buffer size LoadFile reads with.
const readBufferSize = 1 << 20

// fileWriter writes a serialized filter through a pre-allocated read-write
// mapping of a temporary file, renamed over the destination on finalize.
type fileWriter struct {
	file *os.File
	mmap mmap.MMap
	data []byte
	path string // destination
}

// newFileWriter creates a temporary file of exactly size bytes next to path
// and maps it. On failure nothing is left behind.
func newFileWriter(path string, size int) (*fileWriter, error) {
	file, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create filter file: %w", err)
	}

	if err := file.Chmod(0o644); err != nil {
		primaryErr := fmt.Errorf("failed to set file mode: %w", err)
		return nil, errors.Join(primaryErr, file.Close(), os.Remove(file.Name()))
	}

	if err := reserveFile(file, int64(size)); err != nil {
		primaryErr := fmt.Errorf("failed to allocate disk space: %w", err)
		return nil, errors.Join(primaryErr, file.Close(), os.Remove(file.Name()))
	}

	mm, err := mmap.MapRegion(file, size, mmap.RDWR, 0, 0)
	if err != nil {
		primaryErr := fmt.Errorf("failed to mmap file: %w", err)
		return nil, errors.Join(primaryErr, file.Close(), os.Remove(file.Name()))
	}

	fw := &fileWriter{file: file, mmap: mm, data: []byte(mm), path: path}
	prefaultWords(fw.data[headerSize:])
	return fw, nil
}

// finalize flushes and unmaps the temporary file, then moves it to the
// destination. On error the temporary file is removed.
func (fw *fileWriter) finalize() error {
	tmp := fw.file.Name()
	if err := fw.mmap.Flush(); err != nil {
		primaryErr := fmt.Errorf("mmap flush failed: %w", err)
		return errors.Join(primaryErr, fw.close(), os.Remove(tmp))
	}

	// Nil mmap regardless of outcome to prevent close() from retrying.
	unmapErr := fw.mmap.Unmap()
	fw.mmap = nil
	if unmapErr != nil {
		primaryErr := fmt.Errorf("mmap unmap failed: %w", unmapErr)
		return errors.Join(primaryErr, fw.close(), os.Remove(tmp))
	}

	closeErr := fw.file.Close()
	fw.file = nil
	if closeErr != nil {
		return errors.Join(closeErr, os.Remove(tmp))
	}

	// Filters opened from the old file keep their mapping of its inode.
	if err := os.Rename(tmp, fw.path); err != nil {
		primaryErr := fmt.Errorf("failed to replace filter file: %w", err)
		return errors.Join(primaryErr, os.Remove(tmp))
	}
	return nil
}

// close releases the writer without finalizing.
// Idempotent: safe to call multiple times.
func (fw *fileWriter) close() error {
	var unmapErr error
	if fw.mmap != nil {
		unmapErr = fw.mmap.Unmap()
		fw.mmap = nil
	}
	var closeErr error
	if fw.file != nil {
		closeErr = fw.file.Close()
		fw.file = nil
	}
	return errors.Join(unmapErr, closeErr)
}

// Save writes the filter to path, replacing any existing file.
//
// The data goes to a temporary file in the same directory that is renamed
// over path, so a filter opened from path can be saved back to it. On
// failure path is left untouched.
func (f *Filter) Save(path string) error {
	if f.closed.Load() {
		return kberrors.ErrFilterClosed
	}
	fw, err := newFileWriter(path, f.SerializedSize())
	if err != nil {
		return err
	}
	f.encodeInto(fw.data)
	return fw.finalize()
}

// Open memory-maps a filter file.
//
// The mapping is copy-on-write: the filter can be modified, but changes
// never reach the file. The checksum is not verified; call Verify. Close
// releases the mapping, after which the filter must not be used.
func Open(path string) (*Filter, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open filter file: %w", err)
	}
	defer file.Close()
	return OpenFile(file)
}

// OpenFile is Open for an already open file. The caller is responsible for
// closing file; it may be closed as soon as OpenFile returns.
func OpenFile(file *os.File) (*Filter, error) {
	stat, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat filter file: %w", err)
	}
	if stat.Size() < headerSize+footerSize {
		return nil, kberrors.ErrTruncatedFile
	}

	mm, err := mmap.Map(file, mmap.COPY, 0)
	if err != nil {
		return nil, fmt.Errorf("mmap filter file: %w", err)
	}
	f, err := parseBytes([]byte(mm), true)
	if err != nil {
		return nil, errors.Join(err, mm.Unmap())
	}
	adviseRandomAccess([]byte(mm))
	f.mmap = mm
	return f, nil
}

// LoadFile reads a filter file into memory and verifies its checksum.
// Unlike Open, the result does not depend on the file after return.
func LoadFile(path string) (*Filter, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open filter file: %w", err)
	}
	defer file.Close()
	adviseStreaming(file)
	f, err := ReadFilter(bufio.NewReaderSize(file, readBufferSize))
	if err != nil {
		return nil, err
	}
	dropPageCache(file)
	return f, nil
}

// Close releases the file mapping of a filter returned by Open.
// For other filters it only marks the filter closed.
// Close is idempotent and must not run concurrently with other methods.
func (f *Filter) Close() error {
	if f.closed.Swap(true) {
		return nil
	}
	f.words = nil
	if f.mmap != nil {
		err := f.mmap.Unmap()
		f.mmap = nil
		return err
	}
	return nil
}
