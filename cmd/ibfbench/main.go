// Ibfbench is a benchmarking tool for measuring kmerbloom build throughput,
// query throughput, false-positive rate and memory usage.
//
// Usage:
//
//	go run ./cmd/ibfbench -bins 1024 -elements 100000 -hashes 2 -workers 8
//
// Flags:
//
//	-bins       Number of bins (default: 1024)
//	-elements   Distinct values inserted per bin (default: 100,000)
//	-size       Bits per bin, 0 to derive from -fpr (default: 0)
//	-fpr        Target false-positive rate per bin (default: 0.05)
//	-hashes     Number of hash functions (default: 2)
//	-workers    Number of parallel workers (default: 1)
//	-queries    Number of counting queries (default: 10,000)
//	-query-len  Hashes per counting query (default: 100)
//	-out        Save the filter here and re-open it (default: temp file)
//	-v          Log builder progress
package main

import (
	"context"
	"crypto/rand"
	"flag"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"runtime"
	"runtime/pprof"
	"syscall"
	"time"

	"github.com/spaolacci/murmur3"

	"github.com/tamirms/kmerbloom"
)

// getMaxRSS returns the maximum resident set size in bytes.
// Uses getrusage(RUSAGE_SELF) which tracks peak RSS since process start.
func getMaxRSS() uint64 {
	var rusage syscall.Rusage
	if err := syscall.Getrusage(syscall.RUSAGE_SELF, &rusage); err != nil {
		return 0
	}
	// On macOS, MaxRss is in bytes. On Linux, it's in kilobytes.
	maxRSS := uint64(rusage.Maxrss)
	if runtime.GOOS == "linux" {
		maxRSS *= 1024
	}
	return maxRSS
}

// binSizeFor returns the smallest bin size keeping the false-positive rate
// of n values with k hash functions at or below fpr.
func binSizeFor(n, k uint64, fpr float64) uint64 {
	kf := float64(k)
	return uint64(math.Ceil(-kf * float64(n) / math.Log(1-math.Pow(fpr, 1/kf))))
}

// hashValues returns n hash values: murmur3 of random 32-byte keys.
func hashValues(n int, seed uint32) []uint64 {
	out := make([]uint64, n)
	var key [32]byte
	for i := range out {
		_, _ = rand.Read(key[:]) // crypto/rand.Read error is fatal system issue; ignore for benchmark
		out[i] = murmur3.Sum64WithSeed(key[:], seed)
	}
	return out
}

func main() {
	binsFlag := flag.Uint64("bins", 1024, "number of bins")
	elementsFlag := flag.Int("elements", 100_000, "distinct values per bin")
	sizeFlag := flag.Uint64("size", 0, "bits per bin (0 = derive from -fpr)")
	fprFlag := flag.Float64("fpr", 0.05, "target false-positive rate per bin")
	hashesFlag := flag.Uint64("hashes", 2, "number of hash functions")
	workersFlag := flag.Int("workers", 1, "number of parallel workers for building")
	queriesFlag := flag.Int("queries", 10_000, "number of counting queries")
	queryLenFlag := flag.Int("query-len", 100, "hashes per counting query")
	outFlag := flag.String("out", "", "save the filter to this path (default: temp file)")
	verbose := flag.Bool("v", false, "log builder progress")
	cpuprofile := flag.String("cpuprofile", "", "write cpu profile to file (build phase only)")
	flag.Parse()

	bins := *binsFlag
	n := *elementsFlag
	logLevel := slog.LevelWarn
	if *verbose {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))

	binSize := *sizeFlag
	if binSize == 0 {
		if *fprFlag <= 0 || *fprFlag >= 1 || *hashesFlag == 0 {
			logger.Error("-fpr must be in (0, 1) and -hashes positive", "fpr", *fprFlag, "hashes", *hashesFlag)
			os.Exit(2)
		}
		binSize = binSizeFor(uint64(n), *hashesFlag, *fprFlag)
	}

	f, err := kmerbloom.New(bins, binSize, *hashesFlag)
	if err != nil {
		logger.Error("create filter", "err", err)
		os.Exit(1)
	}

	fmt.Println("Generating hash values...")
	hashStart := time.Now()
	values := make([][]uint64, bins)
	for bin := range values {
		values[bin] = hashValues(n, uint32(bin))
	}
	hashDuration := time.Since(hashStart)

	runtime.GC()
	baselineRSS := getMaxRSS()

	if *cpuprofile != "" {
		pf, err := os.Create(*cpuprofile)
		if err != nil {
			logger.Error("create CPU profile", "err", err)
			os.Exit(1)
		}
		defer func() { _ = pf.Close() }()
		if err := pprof.StartCPUProfile(pf); err != nil {
			logger.Error("start CPU profile", "err", err)
			os.Exit(1)
		}
	}

	fmt.Println("Building filter...")
	buildStart := time.Now()
	builder, err := kmerbloom.NewBuilder(context.Background(), f,
		kmerbloom.WithWorkers(*workersFlag),
		kmerbloom.WithLogger(logger))
	if err != nil {
		logger.Error("NewBuilder failed", "err", err)
		os.Exit(1)
	}
	for bin, hashes := range values {
		if err := builder.Add(uint64(bin), hashes); err != nil {
			_ = builder.Close() // Best-effort cleanup; primary error is Add failure
			logger.Error("Add failed", "bin", bin, "err", err)
			os.Exit(1)
		}
	}
	if err := builder.Finish(); err != nil {
		logger.Error("Build failed", "err", err)
		os.Exit(1)
	}
	buildDuration := time.Since(buildStart)

	if *cpuprofile != "" {
		pprof.StopCPUProfile()
	}
	peakRSSMem := getMaxRSS() - baselineRSS

	path := *outFlag
	if path == "" {
		tmpDir, err := os.MkdirTemp("", "ibfbench-")
		if err != nil {
			logger.Error("create temp dir", "err", err)
			os.Exit(1)
		}
		defer func() { _ = os.RemoveAll(tmpDir) }()
		path = filepath.Join(tmpDir, "bench.ibf")
	}

	saveStart := time.Now()
	if err := f.Save(path); err != nil {
		logger.Error("Save failed", "err", err)
		os.Exit(1)
	}
	saveDuration := time.Since(saveStart)

	idx, err := kmerbloom.Open(path)
	if err != nil {
		logger.Error("Open failed", "err", err)
		os.Exit(1)
	}
	defer func() { _ = idx.Close() }()
	if !idx.Equal(f) {
		logger.Error("re-opened filter differs from the built one")
		os.Exit(1)
	}

	// Half of each query comes from one bin, the rest is absent.
	queries := make([][]uint64, *queriesFlag)
	for i := range queries {
		bin := uint64(i) % bins
		half := min(*queryLenFlag/2, n)
		q := append([]uint64(nil), values[bin][:half]...)
		queries[i] = append(q, hashValues(*queryLenFlag-half, math.MaxUint32)...)
	}

	fmt.Println("Benchmarking queries...")
	queryStart := time.Now()
	results, err := kmerbloom.CountBatches[uint16](context.Background(), idx, queries, max(*workersFlag, 1))
	if err != nil {
		logger.Error("CountBatches failed", "err", err)
		os.Exit(1)
	}
	queryDuration := time.Since(queryStart)

	// Every other bin only sees false positives.
	var falseHits, trials uint64
	for i, counts := range results {
		for bin, c := range counts {
			if uint64(bin) != uint64(i)%bins {
				falseHits += uint64(c)
				trials += uint64(len(queries[i]))
			}
		}
	}
	measuredFPR := float64(falseHits) / float64(max(trials, 1))

	stats := idx.Stats()
	totalValues := float64(uint64(n) * bins)
	avgLatency := float64(queryDuration.Nanoseconds()) / float64(max(len(queries), 1)) / 1000

	fmt.Printf("\n")
	fmt.Printf("╔═════════════════════╦════════════════╦══════════════════╗\n")
	fmt.Printf("║ Bins: %-14d║ Hashes: %-6d ║ Workers: %-8d║\n", bins, *hashesFlag, *workersFlag)
	fmt.Printf("╠═════════════════════╬════════════════╬══════════════════╣\n")
	fmt.Printf("║ Metric              ║ Value          ║ Target           ║\n")
	fmt.Printf("╠═════════════════════╬════════════════╬══════════════════╣\n")
	fmt.Printf("║ Bin size            ║ %9d bits ║ -                ║\n", binSize)
	fmt.Printf("║ Filter size         ║ %9.1f MB   ║ -                ║\n", float64(stats.SizeBytes)/1_000_000)
	fmt.Printf("║ Bits per value      ║ %6.3f bits   ║ -                ║\n", float64(stats.BitSize)/totalValues)
	fmt.Printf("║ Mean occupancy      ║ %6.3f         ║ -                ║\n", stats.MeanOccupancy)
	fmt.Printf("║ Estimated FPR       ║ %8.5f       ║ %8.5f         ║\n", stats.MeanFPR, *fprFlag)
	fmt.Printf("║ Measured FPR        ║ %8.5f       ║ %8.5f         ║\n", measuredFPR, *fprFlag)
	fmt.Printf("║ Hash time           ║ %6.2f sec     ║ -                ║\n", hashDuration.Seconds())
	fmt.Printf("║ Build time          ║ %6.2f sec     ║ -                ║\n", buildDuration.Seconds())
	fmt.Printf("║ Build throughput    ║ %6.2f M/sec   ║ -                ║\n", totalValues/buildDuration.Seconds()/1_000_000)
	fmt.Printf("║ Save time           ║ %6.2f sec     ║ -                ║\n", saveDuration.Seconds())
	fmt.Printf("║ Query latency       ║ %6.2f μs      ║ -                ║\n", avgLatency)
	fmt.Printf("║ Peak RSS growth     ║ %6.1f MB      ║ -                ║\n", float64(peakRSSMem)/1_000_000)
	fmt.Printf("╚═════════════════════╩════════════════╩══════════════════╝\n")
}
