package imgdiff

import "os"

const defaultDirMode os.FileMode = 0o755

// DirectoryOption configures how report and expected tree directories are created
type DirectoryOption func(*directoryOptions)

type directoryOptions struct {
	mode os.FileMode
}

func defaultDirectoryOptions() *directoryOptions {
	return &directoryOptions{mode: defaultDirMode}
}

// WithDirPermissions sets the mode of every directory created along the path
func WithDirPermissions(mode os.FileMode) DirectoryOption {
	return func(opts *directoryOptions) {
		opts.mode = mode
	}
}
