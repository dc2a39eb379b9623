package imgdiff

import (
	"io/fs"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// extensionFormats maps lowercase extensions to the decoder registered for them
var extensionFormats = map[string]string{
	".png":  "png",
	".apng": "png",
	".jpg":  "jpeg",
	".jpeg": "jpeg",
	".jpe":  "jpeg",
	".jfif": "jpeg",
	".gif":  "gif",
	".bmp":  "bmp",
	".dib":  "bmp",
	".tif":  "tiff",
	".tiff": "tiff",
	".webp": "webp",
}

// SupportedExtensions returns a copy of the extension to format registry
func SupportedExtensions() map[string]string {
	return maps.Clone(extensionFormats)
}

// IsSupportedExtension reports whether files with ext can be decoded. The
// leading dot and case are optional.
func IsSupportedExtension(ext string) bool {
	_, ok := extensionFormats[normalizeExtension(ext)]
	return ok
}

func normalizeExtension(ext string) string {
	ext = strings.ToLower(ext)
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}

	return ext
}

// PathSet is a set of slash-separated paths relative to a scanned root
type PathSet map[string]struct{}

// Has reports whether name is in the set
func (s PathSet) Has(name string) bool {
	_, ok := s[name]
	return ok
}

// Sorted returns the set members in lexical order
func (s PathSet) Sorted() []string {
	return slices.Sorted(maps.Keys(s))
}

// Scan recursively lists image files under root. A file is included when its
// extension, compared case-insensitively, has a registered decoder.
// Any error while walking aborts the scan.
func Scan(root string, options ...ScanOption) (PathSet, error) {
	opts := defaultScanOptions()
	for _, opt := range options {
		opt(opts)
	}

	for _, pattern := range opts.excludePatterns {
		if !doublestar.ValidatePattern(pattern) {
			return nil, newInvalidPatternError(pattern)
		}
	}

	info, err := os.Stat(root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, newRootNotFoundError(root, err)
		}
		return nil, newScanDirectoryError(root, err)
	}
	if !info.IsDir() {
		return nil, newRootNotFoundError(root, fs.ErrInvalid)
	}

	paths := make(PathSet)
	err = filepath.WalkDir(root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if path == root {
			return nil
		}

		if opts.ignoreHidden && strings.HasPrefix(entry.Name(), ".") {
			if entry.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)

		if opts.excluded(rel) {
			if entry.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if entry.IsDir() {
			return nil
		}

		if _, ok := opts.extensions[strings.ToLower(filepath.Ext(path))]; !ok {
			return nil
		}

		// Symlinks count when they resolve to a regular file
		if !entry.Type().IsRegular() {
			target, err := os.Stat(path)
			if err != nil || !target.Mode().IsRegular() {
				return nil
			}
		}

		paths[rel] = struct{}{}
		return nil
	})
	if err != nil {
		return nil, newScanDirectoryError(root, err)
	}

	return paths, nil
}

func (opts *scanOptions) excluded(rel string) bool {
	for _, pattern := range opts.excludePatterns {
		if ok, _ := doublestar.Match(pattern, rel); ok {
			return true
		}
	}

	return false
}
