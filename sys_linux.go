//go:build linux

package kmerbloom

import (
	"errors"
	"os"

	"golang.org/x/sys/unix"
)

// madvPopulateWrite is MADV_POPULATE_WRITE, Linux 5.14+. Older kernels
// return EINVAL, which is ignored.
const madvPopulateWrite = 23

// reserveFile sets the size of file and allocates its blocks, so writes
// through a mapping cannot hit SIGBUS on a full disk. Filesystems without
// fallocate (NFS, some FUSE mounts) only get the size.
func reserveFile(file *os.File, size int64) error {
	fd := int(file.Fd())
	if err := unix.Fallocate(fd, 0, 0, size); errors.Is(err, unix.ENOSPC) {
		return err
	}
	return unix.Ftruncate(fd, size)
}

// prefaultWords populates the pages of a mapped word region for writing.
func prefaultWords(region []byte) {
	if len(region) == 0 {
		return
	}
	_ = unix.Madvise(region, madvPopulateWrite)
}

// adviseRandomAccess disables readahead on a mapped filter: queries touch
// hashFunctionCount scattered blocks each.
func adviseRandomAccess(data []byte) {
	if len(data) == 0 {
		return
	}
	_ = unix.Madvise(data, unix.MADV_RANDOM)
}

// adviseStreaming hints that file is about to be read once, front to back.
func adviseStreaming(file *os.File) {
	_ = unix.Fadvise(int(file.Fd()), 0, 0, unix.FADV_SEQUENTIAL)
}

// dropPageCache releases the cached pages of a file that was fully copied
// into memory.
func dropPageCache(file *os.File) {
	_ = unix.Fadvise(int(file.Fd()), 0, 0, unix.FADV_DONTNEED)
}
