package imgdiff

import "log/slog"

// FixOption represents options for Fix
type FixOption func(*fixOptions)

type fixOptions struct {
	dryRun    bool
	pruneDirs bool
	logger    *slog.Logger
}

// defaultFixOptions returns default fix options
func defaultFixOptions() *fixOptions {
	return &fixOptions{
		dryRun:    false,
		pruneDirs: false,
		logger:    slog.New(slog.DiscardHandler),
	}
}

// WithDryRun logs the actions fix would take without touching the expected tree
func WithDryRun(dryRun bool) FixOption {
	return func(opts *fixOptions) {
		opts.dryRun = dryRun
	}
}

// WithPruneEmptyDirs removes directories left empty by deletions
func WithPruneEmptyDirs() FixOption {
	return func(opts *fixOptions) {
		opts.pruneDirs = true
	}
}

// WithFixLogger sets the logger receiving one entry per action
func WithFixLogger(logger *slog.Logger) FixOption {
	return func(opts *fixOptions) {
		if logger != nil {
			opts.logger = logger
		}
	}
}
