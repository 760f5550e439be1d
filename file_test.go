package kmerbloom

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	kberrors "github.com/tamirms/kmerbloom/errors"
)

// saveTestFilter saves a random filter and returns it with its path and
// inserted hashes.
func saveTestFilter(t *testing.T) (*Filter, string, [][]uint64) {
	t.Helper()
	f, inserted := newRandomFilter(t, 100, 1<<12, 2, 150)
	path := filepath.Join(t.TempDir(), "test.ibf")
	if err := f.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}
	return f, path, inserted
}

func TestSaveMatchesWriteTo(t *testing.T) {
	f, path, _ := saveTestFilter(t)
	onDisk, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(onDisk, buf.Bytes()) {
		t.Fatal("Save and WriteTo produce different bytes")
	}
}

func TestSaveOpen(t *testing.T) {
	f, path, inserted := saveTestFilter(t)

	g, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer g.Close()

	if !f.Equal(g) {
		t.Fatal("opened filter differs from the saved one")
	}
	if err := g.Verify(); err != nil {
		t.Fatalf("Verify: %v", err)
	}
	assertNoFalseNegatives(t, g, inserted)
}

// TestOpenIsCopyOnWrite checks that modifying an opened filter never
// reaches the file.
func TestOpenIsCopyOnWrite(t *testing.T) {
	_, path, _ := saveTestFilter(t)
	before, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}

	g, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	g.Clear(0)
	g.Emplace(0x1234, 99)
	if err := g.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	after, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(before, after) {
		t.Fatal("modifying an opened filter changed the file")
	}
}

func TestOpenFile(t *testing.T) {
	f, path, _ := saveTestFilter(t)
	file, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	g, err := OpenFile(file)
	if err != nil {
		t.Fatalf("OpenFile: %v", err)
	}
	defer g.Close()

	// The mapping outlives the file handle.
	if err := file.Close(); err != nil {
		t.Fatal(err)
	}
	if !f.Equal(g) {
		t.Fatal("OpenFile disagrees with the saved filter")
	}
}

func TestLoadFile(t *testing.T) {
	f, path, inserted := saveTestFilter(t)
	g, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if err := os.Remove(path); err != nil {
		t.Fatal(err)
	}
	if !f.Equal(g) {
		t.Fatal("LoadFile disagrees with the saved filter")
	}
	assertNoFalseNegatives(t, g, inserted)
}

func TestSaveOverwrites(t *testing.T) {
	_, path, _ := saveTestFilter(t)
	small, err := New(1, 64, 1)
	if err != nil {
		t.Fatal(err)
	}
	if err := small.Save(path); err != nil {
		t.Fatal(err)
	}
	stat, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if stat.Size() != int64(small.SerializedSize()) {
		t.Fatalf("file size = %d, want %d", stat.Size(), small.SerializedSize())
	}
}

// TestSaveOverOpenedFile saves a filter back to the file it was opened
// from.
func TestSaveOverOpenedFile(t *testing.T) {
	_, path, inserted := saveTestFilter(t)
	g, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer g.Close()

	g.Emplace(0xFEEDFACE, 42)
	if err := g.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if !g.MembershipAgent().BulkContains(0xFEEDFACE).Contains(42) {
		t.Fatal("opened filter lost its contents during Save")
	}

	h, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if !g.Equal(h) {
		t.Fatal("saved file differs from the opened filter")
	}
	assertNoFalseNegatives(t, h, inserted)
	if !h.MembershipAgent().BulkContains(0xFEEDFACE).Contains(42) {
		t.Fatal("saved file is missing the new value")
	}

	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Fatalf("directory holds %d entries after Save, want 1", len(entries))
	}
}

func TestSaveBadPath(t *testing.T) {
	f, err := New(8, 64, 1)
	if err != nil {
		t.Fatal(err)
	}
	if err := f.Save(filepath.Join(t.TempDir(), "missing", "dir", "x.ibf")); err == nil {
		t.Fatal("expected error for a missing directory")
	}
}

func TestOpenErrors(t *testing.T) {
	dir := t.TempDir()

	if _, err := Open(filepath.Join(dir, "nonexistent.ibf")); err == nil {
		t.Error("expected error for a missing file")
	}
	if _, err := Open(dir); err == nil {
		t.Error("expected error when opening a directory")
	}

	empty := filepath.Join(dir, "empty.ibf")
	if err := os.WriteFile(empty, nil, 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Open(empty); !errors.Is(err, kberrors.ErrTruncatedFile) {
		t.Errorf("Open(empty) = %v, want ErrTruncatedFile", err)
	}
	if _, err := LoadFile(empty); !errors.Is(err, kberrors.ErrTruncatedFile) {
		t.Errorf("LoadFile(empty) = %v, want ErrTruncatedFile", err)
	}
}

func TestOpenCorruptedFile(t *testing.T) {
	_, path, _ := saveTestFilter(t)
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}

	magicPath := filepath.Join(t.TempDir(), "magic.ibf")
	bad := bytes.Clone(data)
	bad[0], bad[1] = 0xFF, 0xFF
	if err := os.WriteFile(magicPath, bad, 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Open(magicPath); !errors.Is(err, kberrors.ErrInvalidMagic) {
		t.Errorf("Open: got %v, want ErrInvalidMagic", err)
	}

	wordsPath := filepath.Join(t.TempDir(), "words.ibf")
	bad = bytes.Clone(data)
	bad[len(bad)/2] ^= 0x01
	if err := os.WriteFile(wordsPath, bad, 0644); err != nil {
		t.Fatal(err)
	}
	g, err := Open(wordsPath)
	if err != nil {
		t.Fatalf("Open does not verify, got %v", err)
	}
	defer g.Close()
	if err := g.Verify(); !errors.Is(err, kberrors.ErrChecksumFailed) {
		t.Errorf("Verify: got %v, want ErrChecksumFailed", err)
	}
	if _, err := LoadFile(wordsPath); !errors.Is(err, kberrors.ErrChecksumFailed) {
		t.Errorf("LoadFile: got %v, want ErrChecksumFailed", err)
	}
}

func TestCloseOpenedFilter(t *testing.T) {
	_, path, _ := saveTestFilter(t)
	g, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := g.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := g.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
	if err := g.Verify(); !errors.Is(err, kberrors.ErrFilterClosed) {
		t.Fatalf("Verify after Close = %v, want ErrFilterClosed", err)
	}
	if g.Words() != nil {
		t.Fatal("Words still set after Close")
	}
}
