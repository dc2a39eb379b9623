package imgdiff

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
)

// WriteReport materializes a report into reportDir: every pending artifact
// under its content-addressed name, then index.html and report.json.
//
// reportDir is created when missing. Callers wanting a fresh directory check
// it with RequireEmptyDirectory first. An artifact name that already exists is
// left as is since equal names mean equal content.
func WriteReport(report *Report, reportDir string, options ...WriteOption) error {
	opts := defaultWriteOptions()
	for _, opt := range options {
		opt(opts)
	}

	if err := CreateDirectories(reportDir); err != nil {
		return err
	}

	for _, name := range report.Outputs() {
		out := report.outputs[name]
		target := filepath.Join(reportDir, name)

		var err error
		if out.data != nil {
			err = WriteFile(target, out.data, WithExclusive())
		} else {
			err = CopyFile(out.source, target, WithExclusive())
		}
		if err != nil {
			return newWriteArtifactError(name, out.source, err)
		}
	}

	report.Finalize()

	if opts.renderer != nil {
		indexPath := filepath.Join(reportDir, IndexFile)

		var buf bytes.Buffer
		if err := opts.renderer.Render(&buf, report); err != nil {
			return newRenderReportError(indexPath, err)
		}

		if err := WriteFile(indexPath, buf.Bytes()); err != nil {
			return newRenderReportError(indexPath, err)
		}
	}

	reportPath := filepath.Join(reportDir, ReportFile)
	data, err := json.MarshalIndent(report, "", opts.indent)
	if err != nil {
		return newWriteReportError(reportPath, err)
	}

	if err := WriteFile(reportPath, data); err != nil {
		return newWriteReportError(reportPath, err)
	}

	return nil
}

// CompareAndWrite checks that reportDir is empty or missing, compares the
// trees and writes the report into reportDir. reportDir is only created once
// the comparison succeeded.
func CompareAndWrite(ctx context.Context, expectedRoot, actualRoot, reportDir string, options ...CompareOption) (*Report, error) {
	opts := defaultCompareOptions()
	for _, opt := range options {
		opt(opts)
	}

	if err := RequireEmptyDirectory(reportDir); err != nil {
		return nil, err
	}

	report, err := Compare(ctx, expectedRoot, actualRoot, options...)
	if err != nil {
		return nil, err
	}

	if err := WriteReport(report, reportDir, opts.write...); err != nil {
		return nil, err
	}

	opts.logger.Info("report written",
		"dir", reportDir,
		"has_changes", report.HasChanges,
	)

	return report, nil
}
