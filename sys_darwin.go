//go:build darwin

package kmerbloom

import (
	"os"

	"golang.org/x/sys/unix"
)

// reserveFile sets the size of file and reserves its blocks with
// F_PREALLOCATE. F_PREALLOCATE only reserves space; the size is set by
// ftruncate either way.
func reserveFile(file *os.File, size int64) error {
	fst := unix.Fstore_t{
		Flags:   unix.F_ALLOCATEALL,
		Posmode: unix.F_PEOFPOSMODE,
		Length:  size,
	}
	_ = unix.FcntlFstore(file.Fd(), unix.F_PREALLOCATE, &fst)
	return unix.Ftruncate(int(file.Fd()), size)
}

func prefaultWords([]byte) {}

func adviseRandomAccess(data []byte) {
	if len(data) == 0 {
		return
	}
	_ = unix.Madvise(data, unix.MADV_RANDOM)
}

func adviseStreaming(*os.File) {}

func dropPageCache(*os.File) {}
