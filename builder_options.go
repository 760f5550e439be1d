package kmerbloom

import "log/slog"

// BuildOption is a functional option for configuring a Builder.
type BuildOption func(*buildConfig)

type buildConfig struct {
	workers    int
	queueDepth int
	batchSize  int
	logger     *slog.Logger
}

func defaultBuildConfig() *buildConfig {
	return &buildConfig{
		workers:   0, // Default to single-threaded; use WithWorkers(n) to parallelize
		batchSize: defaultBatchSize,
		logger:    slog.New(slog.DiscardHandler),
	}
}

// WithWorkers sets the number of parallel workers.
func WithWorkers(n int) BuildOption {
	return func(c *buildConfig) {
		c.workers = n
	}
}

// WithQueueDepth sets how many batches may wait for a worker before Add
// blocks. Default is twice the worker count.
func WithQueueDepth(n int) BuildOption {
	return func(c *buildConfig) {
		c.queueDepth = n
	}
}

// WithBatchSize sets how many hashes AddSequence groups into one batch.
func WithBatchSize(n int) BuildOption {
	return func(c *buildConfig) {
		c.batchSize = n
	}
}

// WithLogger sets the logger for build progress. A nil logger discards.
// Default discards.
func WithLogger(l *slog.Logger) BuildOption {
	return func(c *buildConfig) {
		if l == nil {
			l = slog.New(slog.DiscardHandler)
		}
		c.logger = l
	}
}
