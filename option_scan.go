package imgdiff

// ScanOption represents options for tree scans
type ScanOption func(*scanOptions)

type scanOptions struct {
	ignoreHidden    bool
	excludePatterns []string
	extensions      map[string]string
}

// defaultScanOptions returns default scan options
func defaultScanOptions() *scanOptions {
	return &scanOptions{
		ignoreHidden:    false,
		excludePatterns: []string{},
		extensions:      SupportedExtensions(),
	}
}

// WithIgnoreHidden skips dot files and dot directories
func WithIgnoreHidden() ScanOption {
	return func(opts *scanOptions) {
		opts.ignoreHidden = true
	}
}

// WithExcludePatterns skips paths matching any doublestar pattern.
// Patterns are matched against the slash-separated path relative to the root.
func WithExcludePatterns(patterns ...string) ScanOption {
	return func(opts *scanOptions) {
		opts.excludePatterns = append(opts.excludePatterns, patterns...)
	}
}

// WithExtensions restricts the scan to the given extensions.
// Extensions without a registered decoder are ignored.
func WithExtensions(extensions ...string) ScanOption {
	return func(opts *scanOptions) {
		supported := SupportedExtensions()
		opts.extensions = make(map[string]string, len(extensions))
		for _, ext := range extensions {
			ext = normalizeExtension(ext)
			if format, ok := supported[ext]; ok {
				opts.extensions[ext] = format
			}
		}
	}
}
