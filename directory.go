package imgdiff

import (
	"os"
	"path/filepath"
	"strings"
)

func DirectoryExist(path string) bool {
	stat, _ := os.Stat(path)
	if stat == nil {
		return false
	}

	return stat.IsDir()
}

// CreateDirectories creates directory tree (like mkdir -p)
func CreateDirectories(path string, options ...DirectoryOption) error {
	opts := defaultDirectoryOptions()
	for _, opt := range options {
		opt(opts)
	}

	if err := os.MkdirAll(path, opts.mode); err != nil {
		return newCreateDirectoriesError(path, err)
	}

	return nil
}

// IsEmptyDirectory checks if directory is empty
func IsEmptyDirectory(path string) (bool, error) {
	entries, err := os.ReadDir(path)
	if err != nil {
		return false, newReadDirectoryError(path, err)
	}

	return len(entries) == 0, nil
}

// RequireEmptyDirectory accepts a missing or empty path and fails with
// ErrOutputNotEmpty if it already holds entries. Nothing is created.
func RequireEmptyDirectory(path string) error {
	if !DirectoryExist(path) {
		return nil
	}

	empty, err := IsEmptyDirectory(path)
	if err != nil {
		return err
	}

	if !empty {
		return newOutputNotEmptyError(path)
	}

	return nil
}

// ClearDirectory removes every entry inside path, keeping path itself
func ClearDirectory(path string) error {
	entries, err := os.ReadDir(path)
	if err != nil {
		return newReadDirectoryError(path, err)
	}

	for _, entry := range entries {
		target := filepath.Join(path, entry.Name())
		if err := os.RemoveAll(target); err != nil {
			return newDeleteFileError(target, err)
		}
	}

	return nil
}

// CleanEmptyParents removes the now-empty directories between path and root,
// deepest first. root itself is never removed, and nothing outside root is touched.
func CleanEmptyParents(root, path string) error {
	root = filepath.Clean(root)
	dir := filepath.Dir(filepath.Clean(path))

	for dir != root && isWithin(root, dir) {
		if !DirectoryExist(dir) {
			dir = filepath.Dir(dir)
			continue
		}

		empty, err := IsEmptyDirectory(dir)
		if err != nil {
			return err
		}

		if !empty {
			return nil
		}

		if err := os.Remove(dir); err != nil {
			return newDeleteFileError(dir, err)
		}

		dir = filepath.Dir(dir)
	}

	return nil
}

func isWithin(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}

	return rel != ".." && !strings.HasPrefix(rel, ".."+string(os.PathSeparator))
}
