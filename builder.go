package kmerbloom

import (
	"context"
	"fmt"
	"iter"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	kberrors "github.com/tamirms/kmerbloom/errors"
)

const (
	// contextCheckInterval is how often to check for context cancellation during Add.
	contextCheckInterval = 1024

	// workChanBufferMultiplier is the multiplier for the work channel buffer size
	workChanBufferMultiplier = 2

	// defaultBatchSize is the number of hashes per batch built by AddSequence.
	defaultBatchSize = 4096
)

// batch is one unit of work: hashes to insert into one bin.
type batch struct {
	bin    uint64
	hashes []uint64
}

// Builder fills a filter from many batches of hashes using a worker pool.
//
// Workers set bits with atomic word ORs, so batches for bins that share a
// storage word may be inserted concurrently. The result equals inserting
// every hash with Filter.Emplace in any order.
//
// Usage:
//
//	b, err := kmerbloom.NewBuilder(ctx, f, kmerbloom.WithWorkers(8))
//	if err != nil { return err }
//	defer b.Close() // Clean up on error
//
//	for bin, hashes := range batches {
//	    if err := b.Add(bin, hashes); err != nil { return err }
//	}
//	return b.Finish()
//
// Builder methods must be called from a single goroutine. The filter must
// not be used otherwise until Finish or Close returns.
type Builder struct {
	ctx    context.Context
	f      *Filter
	cfg    *buildConfig
	logger *slog.Logger

	workers         int
	workChan        chan batch
	workerGroup     *errgroup.Group
	workerCtx       context.Context
	workerCancel    context.CancelFunc
	workersShutDown bool

	batchCounter int
	batches      uint64
	hashes       uint64
	started      time.Time
	closed       bool
}

// NewBuilder starts a builder for f.
//
// Use WithWorkers(N) to insert with N goroutines; the default is one.
func NewBuilder(ctx context.Context, f *Filter, opts ...BuildOption) (*Builder, error) {
	if f.closed.Load() {
		return nil, kberrors.ErrFilterClosed
	}

	cfg := defaultBuildConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	workers := cfg.workers
	if workers <= 0 {
		workers = 1 // Default to single-threaded
	}
	queueDepth := cfg.queueDepth
	if queueDepth <= 0 {
		queueDepth = workers * workChanBufferMultiplier
	}
	if cfg.batchSize <= 0 {
		cfg.batchSize = defaultBatchSize
	}

	b := &Builder{
		ctx:      ctx,
		f:        f,
		cfg:      cfg,
		logger:   cfg.logger,
		workers:  workers,
		workChan: make(chan batch, queueDepth),
		started:  time.Now(),
	}

	// Wrap in explicit cancel so Close can stop workers without draining.
	workerCtx, cancel := context.WithCancel(ctx)
	b.workerCancel = cancel
	b.workerGroup, b.workerCtx = errgroup.WithContext(workerCtx)
	for range workers {
		b.workerGroup.Go(b.runWorker)
	}

	b.logger.Debug("kmerbloom: builder started",
		"workers", workers,
		"queue_depth", queueDepth,
		"bins", f.binCount,
		"bin_size", f.binSize)
	return b, nil
}

// Add queues hashes for insertion into bin. The builder takes ownership of
// hashes: the caller must not modify the slice afterwards.
//
// Unlike Filter.Emplace, Add checks bin and fails with ErrBinOutOfRange.
func (b *Builder) Add(bin uint64, hashes []uint64) error {
	if b.closed {
		return kberrors.ErrBuilderClosed
	}
	if bin >= b.f.binCount {
		return fmt.Errorf("%w: %d >= %d", kberrors.ErrBinOutOfRange, bin, b.f.binCount)
	}
	if len(hashes) == 0 {
		return nil
	}

	// Check context periodically; the blocking send below covers the rest.
	b.batchCounter++
	if b.batchCounter >= contextCheckInterval {
		b.batchCounter = 0
		select {
		case <-b.ctx.Done():
			return b.ctx.Err()
		default:
		}
	}

	select {
	case b.workChan <- batch{bin: bin, hashes: hashes}:
		b.batches++
		b.hashes += uint64(len(hashes))
		return nil
	case <-b.workerCtx.Done():
		return b.workerCtx.Err()
	}
}

// AddSequence queues every hash of seq for insertion into bin, split into
// batches of the configured batch size.
func (b *Builder) AddSequence(bin uint64, seq iter.Seq[uint64]) error {
	buf := make([]uint64, 0, b.cfg.batchSize)
	for h := range seq {
		buf = append(buf, h)
		if len(buf) == cap(buf) {
			if err := b.Add(bin, buf); err != nil {
				return err
			}
			buf = make([]uint64, 0, b.cfg.batchSize)
		}
	}
	return b.Add(bin, buf)
}

// runWorker inserts batches until the work channel is closed.
func (b *Builder) runWorker() error {
	f := b.f
	for work := range b.workChan {
		select {
		case <-b.workerCtx.Done():
			return b.workerCtx.Err()
		default:
		}

		if b.workers == 1 {
			for _, h := range work.hashes {
				f.Emplace(h, work.bin)
			}
			continue
		}
		for _, h := range work.hashes {
			f.emplaceAtomic(h, work.bin)
		}
	}
	return nil
}

// Finish waits for all queued batches to be inserted.
// After calling Finish, the builder cannot be used again.
func (b *Builder) Finish() error {
	if b.closed {
		return kberrors.ErrBuilderClosed
	}
	b.closed = true

	close(b.workChan)
	b.workersShutDown = true
	err := b.workerGroup.Wait()
	b.workerCancel()
	if err != nil {
		return fmt.Errorf("worker error: %w", err)
	}

	b.logger.Info("kmerbloom: build finished",
		"batches", b.batches,
		"hashes", b.hashes,
		"workers", b.workers,
		"elapsed", time.Since(b.started))
	return nil
}

// Close aborts the build. Batches already inserted stay in the filter.
// Safe to call after Finish.
func (b *Builder) Close() error {
	b.closed = true
	b.shutdownWorkers()
	return nil
}

// shutdownWorkers cancels the workers and waits for them to exit.
// Safe to call multiple times (no-op after first call).
func (b *Builder) shutdownWorkers() {
	if b.workersShutDown {
		return
	}
	b.workersShutDown = true
	b.workerCancel()
	close(b.workChan)
	_ = b.workerGroup.Wait()
	b.logger.Debug("kmerbloom: build aborted", "batches", b.batches)
}
