package imgdiff

import (
	"log/slog"
	"runtime"
)

// CompareOption represents options for Compare
type CompareOption func(*compareOptions)

type compareOptions struct {
	tolerance float64
	threshold uint8
	workers   int
	scan      []ScanOption
	write     []WriteOption
	logger    *slog.Logger
}

// defaultCompareOptions returns default compare options
func defaultCompareOptions() *compareOptions {
	return &compareOptions{
		tolerance: 0,
		threshold: 0,
		workers:   runtime.GOMAXPROCS(0),
		scan:      []ScanOption{},
		write:     []WriteOption{},
		logger:    slog.New(slog.DiscardHandler),
	}
}

// WithTolerance sets the maximum share of changed pixels, in percent,
// for a pair to still be unchanged. The bound is inclusive.
func WithTolerance(percent float64) CompareOption {
	return func(opts *compareOptions) {
		opts.tolerance = percent
	}
}

// WithPixelThreshold sets the per-pixel difference a pixel must exceed to count as changed
func WithPixelThreshold(threshold uint8) CompareOption {
	return func(opts *compareOptions) {
		opts.threshold = threshold
	}
}

// WithWorkers bounds the number of pairs compared concurrently
func WithWorkers(workers int) CompareOption {
	return func(opts *compareOptions) {
		if workers > 0 {
			opts.workers = workers
		}
	}
}

// WithScanOptions passes options to both tree scans
func WithScanOptions(options ...ScanOption) CompareOption {
	return func(opts *compareOptions) {
		opts.scan = append(opts.scan, options...)
	}
}

// WithLogger sets the logger used for progress messages
func WithLogger(logger *slog.Logger) CompareOption {
	return func(opts *compareOptions) {
		if logger != nil {
			opts.logger = logger
		}
	}
}
