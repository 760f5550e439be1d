// Package kmerbloom implements an interleaved Bloom filter (IBF) for k-mer
// membership and counting queries over many reference bins.
//
// An IBF stores binCount Bloom filters, one per bin (a genome, sample or
// taxon), that share their hash functions. The bits of all bins at the same
// position are stored next to each other, so a single query reads
// hashFunctionCount blocks and learns the answer for every bin at once.
//
// # Basic Usage
//
// Building a filter:
//
//	f, err := kmerbloom.New(bins, 1<<20, 2)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	h, _ := kmerhash.New(shape.MustParse("11111111111111111111"))
//	for bin, seq := range references {
//	    for v := range h.Hashes(dna.Ranks(seq)) {
//	        f.Emplace(v, uint64(bin))
//	    }
//	}
//	if err := f.Save("refs.ibf"); err != nil {
//	    log.Fatal(err)
//	}
//
// Querying a filter:
//
//	f, err := kmerbloom.Open("refs.ibf")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer f.Close()
//
//	agent := f.CountingAgent()
//	counts := agent.BulkCount(h.Hashes(dna.Ranks(read)))
//	candidates := kmerbloom.BinsAtLeast(counts, threshold)
//
// # Package Structure
//
// The implementation is organized as follows:
//
//   - Filter: filter.go (New, Emplace, Clear, IncreaseBinCount)
//   - Queries: agent.go (MembershipAgent, BinSet), counting.go (CountingAgent, BinsAtLeast)
//   - Parallel: builder.go (Builder), builder_options.go, search.go (CountBatches)
//   - Serialization: header.go (header, footer), persist.go (WriteTo, ReadFilter, OpenBytes)
//   - Files: file.go (Save, Open, LoadFile), compress.go (zstd streams)
//   - Statistics: stats.go; key hashing: prehash.go
//   - Sequence views: dna/, shape/, kmerhash/, minimiser/, syncmer/
//   - Platform: sys_linux.go, sys_darwin.go, sys_other.go (preallocation and paging hints)
package kmerbloom
