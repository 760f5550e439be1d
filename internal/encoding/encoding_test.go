package encoding

import (
	"encoding/binary"
	"hash/fnv"
	"math/rand/v2"
	"testing"
)

// Named seeds for deterministic reproduction.
const (
	testSeed1 = 0x1234567890ABCDEF
	testSeed2 = 0xFEDCBA9876543210
)

func newTestRNG(t testing.TB) *rand.Rand {
	t.Helper()
	h := fnv.New128a()
	h.Write([]byte(t.Name()))
	sum := h.Sum(nil)
	s1 := binary.LittleEndian.Uint64(sum[:8])
	s2 := binary.LittleEndian.Uint64(sum[8:])
	return rand.New(rand.NewPCG(testSeed1^s1, testSeed2^s2))
}

func TestPutWordsLittleEndian(t *testing.T) {
	buf := make([]byte, 16)
	PutWords(buf, []uint64{0x0807060504030201, 0x100F0E0D0C0B0A09})
	for i := range buf {
		if buf[i] != byte(i+1) {
			t.Fatalf("byte %d = 0x%02X, want 0x%02X", i, buf[i], i+1)
		}
	}
}

func TestPutReadWordsRandom(t *testing.T) {
	rng := newTestRNG(t)
	for _, n := range []int{1, 2, 7, 64, 1000} {
		words := make([]uint64, n)
		for i := range words {
			words[i] = rng.Uint64()
		}
		buf := make([]byte, n*WordSize)
		PutWords(buf, words)

		got := make([]uint64, n)
		ReadWords(got, buf)
		for i := range words {
			if got[i] != words[i] {
				t.Fatalf("n=%d word %d: got 0x%X, want 0x%X", n, i, got[i], words[i])
			}
		}
	}
}

// TestWordsViewSharesMemory checks that writes through the view land in the
// backing buffer in little-endian order.
func TestWordsViewSharesMemory(t *testing.T) {
	buf := BytesView(make([]uint64, 4))
	if !Aligned(buf) {
		t.Fatal("word-backed buffer reported unaligned")
	}

	view := WordsView(buf)
	if len(view) != 4 {
		t.Fatalf("len(view) = %d, want 4", len(view))
	}
	view[1] = 0x1122334455667788
	if got := binary.LittleEndian.Uint64(buf[8:16]); got != 0x1122334455667788 {
		t.Fatalf("buf[8:16] = 0x%X, want 0x1122334455667788", got)
	}
}

func TestWordsViewRejectsUnaligned(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for odd-length buffer")
		}
	}()
	WordsView(make([]byte, 12))
}

func TestWordsViewEmpty(t *testing.T) {
	if v := WordsView(nil); v != nil {
		t.Fatalf("WordsView(nil) = %v, want nil", v)
	}
}

func TestBytesViewMatchesPutWords(t *testing.T) {
	if !LittleEndianHost {
		t.Skip("byte view only matches the serialized order on little-endian hosts")
	}
	rng := newTestRNG(t)
	words := make([]uint64, 33)
	for i := range words {
		words[i] = rng.Uint64()
	}
	want := make([]byte, len(words)*WordSize)
	PutWords(want, words)

	got := BytesView(words)
	if len(got) != len(want) {
		t.Fatalf("len = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("byte %d = 0x%02X, want 0x%02X", i, got[i], want[i])
		}
	}
	if BytesView(nil) != nil {
		t.Fatal("BytesView(nil) != nil")
	}
}
