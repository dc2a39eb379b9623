package imgdiff

import (
	"bytes"
	"context"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/sourcegraph/conc/pool"
)

const (
	reasonAdded     = "Image added"
	reasonDeleted   = "Image deleted"
	reasonUnchanged = "Image unchanged"
)

// Compare classifies every image path found under expectedRoot or actualRoot.
//
// Paths only in the expected tree are deleted, paths only in the actual tree
// are added. Common paths are unchanged when byte-identical or when their
// pixel difference is within tolerance, and changed otherwise. Any scan,
// read or decode error aborts the whole comparison.
//
// The returned report is sorted by name and finalized; its pending artifacts
// are written by WriteReport.
func Compare(ctx context.Context, expectedRoot, actualRoot string, options ...CompareOption) (*Report, error) {
	opts := defaultCompareOptions()
	for _, opt := range options {
		opt(opts)
	}

	expectedPaths, err := Scan(expectedRoot, opts.scan...)
	if err != nil {
		return nil, err
	}

	actualPaths, err := Scan(actualRoot, opts.scan...)
	if err != nil {
		return nil, err
	}

	names := unionNames(expectedPaths, actualPaths)
	opts.logger.Debug("comparing trees",
		"expected", expectedRoot,
		"actual", actualRoot,
		"expected_files", len(expectedPaths),
		"actual_files", len(actualPaths),
	)

	c := &comparer{
		expectedRoot: expectedRoot,
		actualRoot:   actualRoot,
		opts:         opts,
	}

	report := NewReport()
	files := make([]Outcome, len(names))
	var mu sync.Mutex

	p := pool.New().
		WithContext(ctx).
		WithCancelOnError().
		WithFirstError().
		WithMaxGoroutines(opts.workers)

	for i, name := range names {
		p.Go(func(ctx context.Context) error {
			if err := ctx.Err(); err != nil {
				return err
			}

			outcome, outputs, err := c.classify(name, expectedPaths.Has(name), actualPaths.Has(name))
			if err != nil {
				return err
			}

			files[i] = outcome

			mu.Lock()
			defer mu.Unlock()
			for stored, out := range outputs {
				if _, exists := report.outputs[stored]; !exists {
					report.outputs[stored] = out
				}
			}

			return nil
		})
	}

	if err := p.Wait(); err != nil {
		return nil, err
	}

	slices.SortFunc(files, func(a, b Outcome) int {
		return strings.Compare(a.Base().Name, b.Base().Name)
	})

	report.Files = files
	report.Finalize()

	opts.logger.Debug("comparison finished",
		"added", report.Summary.Added,
		"deleted", report.Summary.Deleted,
		"changed", report.Summary.Changed,
		"unchanged", report.Summary.Unchanged,
	)

	return report, nil
}

func unionNames(expected, actual PathSet) []string {
	names := make([]string, 0, len(expected)+len(actual))
	for name := range expected {
		names = append(names, name)
	}
	for name := range actual {
		if !expected.Has(name) {
			names = append(names, name)
		}
	}

	slices.Sort(names)
	return names
}

type comparer struct {
	expectedRoot string
	actualRoot   string
	opts         *compareOptions
}

// source is a read file together with its content address
type source struct {
	path   string
	data   []byte
	digest string
	stored string
}

func readSource(root, name string) (source, error) {
	path := filepath.Join(root, filepath.FromSlash(name))
	data, err := ReadFile(path)
	if err != nil {
		return source{}, err
	}

	digest := HashBytes(data)
	return source{
		path:   path,
		data:   data,
		digest: digest,
		stored: StoredName(digest, path),
	}, nil
}

func (c *comparer) classify(name string, inExpected, inActual bool) (Outcome, map[string]artifact, error) {
	switch {
	case inExpected && !inActual:
		digest, err := HashFile(filepath.Join(c.expectedRoot, filepath.FromSlash(name)))
		if err != nil {
			return nil, nil, err
		}

		return DeletedImage{
			Entry:       Entry{Name: name, Reasons: []string{reasonDeleted}},
			ExpectedMD5: digest,
		}, nil, nil

	case !inExpected:
		actual, err := readSource(c.actualRoot, name)
		if err != nil {
			return nil, nil, err
		}

		return AddedImage{
			Entry:      Entry{Name: name, Reasons: []string{reasonAdded}},
			ActualMD5:  actual.digest,
			ActualFile: actual.stored,
		}, map[string]artifact{actual.stored: fileArtifact(actual.path)}, nil
	}

	expected, err := readSource(c.expectedRoot, name)
	if err != nil {
		return nil, nil, err
	}

	actual, err := readSource(c.actualRoot, name)
	if err != nil {
		return nil, nil, err
	}

	outputs := map[string]artifact{
		actual.stored:   fileArtifact(actual.path),
		expected.stored: fileArtifact(expected.path),
	}

	unchanged := UnchangedImage{
		Entry:        Entry{Name: name, Reasons: []string{reasonUnchanged}},
		ActualMD5:    actual.digest,
		ActualFile:   actual.stored,
		ExpectedMD5:  expected.digest,
		ExpectedFile: expected.stored,
	}

	if bytes.Equal(expected.data, actual.data) {
		return unchanged, outputs, nil
	}

	diff, err := diffData(expected.path, expected.data, actual.path, actual.data, c.opts.tolerance, c.opts.threshold)
	if err != nil {
		return nil, nil, err
	}

	if diff.WithinTolerance {
		c.opts.logger.Debug("difference within tolerance",
			"name", name,
			"percent", diff.Percent,
			"tolerance", c.opts.tolerance,
		)
		return unchanged, outputs, nil
	}

	changed := ChangedImage{
		Entry:        Entry{Name: name, Reasons: diff.Reasons},
		ActualMD5:    actual.digest,
		ActualFile:   actual.stored,
		ExpectedMD5:  expected.digest,
		ExpectedFile: expected.stored,
	}

	if diff.Highlight != nil {
		data, err := EncodePNG(diff.Highlight)
		if err != nil {
			return nil, nil, newEncodeImageError(name, err)
		}

		changed.DiffFile = HashBytes(data) + DiffExtension
		outputs[changed.DiffFile] = rasterArtifact(data)
	}

	return changed, outputs, nil
}
