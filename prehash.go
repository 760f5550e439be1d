package kmerbloom

import "github.com/zeebo/xxh3"

// HashKey maps an arbitrary key to a filter hash value with xxHash3-64.
//
// Use it to store non-sequence keys (read names, sample IDs, minimiser
// strings from another tool) in a filter. Sequence k-mers should go
// through package kmerhash instead, so that queries hash identically.
//
//	f.Emplace(kmerbloom.HashKey(key), bin)
//	set := agent.BulkContains(kmerbloom.HashKey(key))
func HashKey(key []byte) uint64 {
	return xxh3.Hash(key)
}

// HashString is HashKey for a string, without converting it to []byte.
func HashString(key string) uint64 {
	return xxh3.HashString(key)
}
