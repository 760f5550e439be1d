//go:build !linux && !darwin

package kmerbloom

import "os"

// reserveFile only sets the size; blocks may be allocated lazily.
func reserveFile(file *os.File, size int64) error {
	return file.Truncate(size)
}

func prefaultWords([]byte) {}

func adviseRandomAccess([]byte) {}

func adviseStreaming(*os.File) {}

func dropPageCache(*os.File) {}
