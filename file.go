package imgdiff

import (
	"errors"
	"io"
	"os"
	"path/filepath"
)

func FileExist(path string) bool {
	stat, _ := os.Stat(path)
	if stat == nil {
		return false
	}

	return !stat.IsDir()
}

// FileOption represents optional parameters for file operations
type FileOption func(*fileOptions)

type fileOptions struct {
	perm       os.FileMode
	createDirs bool
	exclusive  bool
	bufferSize int
}

// defaultFileOptions returns default options for file operations
func defaultFileOptions() *fileOptions {
	return &fileOptions{
		perm:       0644,
		createDirs: false,
		exclusive:  false,
		bufferSize: 32 * 1024, // 32KB
	}
}

// WithPermissions sets custom file permissions
func WithPermissions(perm os.FileMode) FileOption {
	return func(opts *fileOptions) {
		opts.perm = perm
	}
}

// WithCreateDirs creates parent directories if they don't exist
func WithCreateDirs() FileOption {
	return func(opts *fileOptions) {
		opts.createDirs = true
	}
}

// WithExclusive leaves an existing destination untouched.
// Content-addressed writes use it: an existing name already holds the same bytes.
func WithExclusive() FileOption {
	return func(opts *fileOptions) {
		opts.exclusive = true
	}
}

// WithBufferSize sets custom buffer size for copy operations
func WithBufferSize(size int) FileOption {
	return func(opts *fileOptions) {
		opts.bufferSize = size
	}
}

func (opts *fileOptions) openFlags() int {
	if opts.exclusive {
		return os.O_CREATE | os.O_WRONLY | os.O_EXCL
	}

	return os.O_CREATE | os.O_WRONLY | os.O_TRUNC
}

func ensureParent(path string, opts *fileOptions) error {
	if !opts.createDirs {
		return nil
	}

	return CreateDirectories(filepath.Dir(path))
}

// ReadFile reads entire file content as bytes
func ReadFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, newReadFileError(path, err)
	}

	return data, nil
}

// WriteFile writes data to file. With WithExclusive an existing file is kept.
func WriteFile(path string, data []byte, options ...FileOption) error {
	opts := defaultFileOptions()
	for _, opt := range options {
		opt(opts)
	}

	if err := ensureParent(path, opts); err != nil {
		return err
	}

	file, err := os.OpenFile(path, opts.openFlags(), opts.perm)
	if err != nil {
		if opts.exclusive && errors.Is(err, os.ErrExist) {
			return nil
		}
		return newOpenFileError(path, err)
	}

	if _, err := file.Write(data); err != nil {
		_ = file.Close()
		return newCopyFileError(path, err)
	}

	if err := file.Close(); err != nil {
		return newCopyFileError(path, err)
	}

	return nil
}

// CopyFile copies file from source to destination
func CopyFile(src, dst string, options ...FileOption) error {
	opts := defaultFileOptions()
	for _, opt := range options {
		opt(opts)
	}

	if err := ensureParent(dst, opts); err != nil {
		return err
	}

	sourceFile, err := os.Open(src)
	if err != nil {
		return newOpenFileError(src, err)
	}
	defer sourceFile.Close()

	// Get source file info for permissions
	sourceInfo, err := sourceFile.Stat()
	if err != nil {
		return newStatFileError(src, err)
	}

	destFile, err := os.OpenFile(dst, opts.openFlags(), sourceInfo.Mode().Perm())
	if err != nil {
		if opts.exclusive && errors.Is(err, os.ErrExist) {
			return nil
		}
		return newOpenFileError(dst, err)
	}

	buf := make([]byte, opts.bufferSize)
	if _, err := io.CopyBuffer(destFile, sourceFile, buf); err != nil {
		_ = destFile.Close()
		return newCopyFileError(dst, err)
	}

	if err := destFile.Close(); err != nil {
		return newCopyFileError(dst, err)
	}

	return nil
}

// DeleteFile removes a file
func DeleteFile(path string) error {
	if !FileExist(path) {
		return nil // Already doesn't exist
	}

	if err := os.Remove(path); err != nil {
		return newDeleteFileError(path, err)
	}

	return nil
}
