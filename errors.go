package imgdiff

import (
	"fmt"

	"github.com/boostgo/errorx"
)

var (
	ErrRootNotFound   = errorx.New("imgdiff.scan.root_not_found")
	ErrScanDirectory  = errorx.New("imgdiff.scan.directory")
	ErrInvalidPattern = errorx.New("imgdiff.scan.invalid_pattern")

	ErrReadFile          = errorx.New("imgdiff.file.read")
	ErrOpenFile          = errorx.New("imgdiff.file.open")
	ErrStatFile          = errorx.New("imgdiff.file.stat")
	ErrCopyFile          = errorx.New("imgdiff.file.copy")
	ErrDeleteFile        = errorx.New("imgdiff.file.delete")
	ErrCreateDirectories = errorx.New("imgdiff.directory.create")
	ErrReadDirectory     = errorx.New("imgdiff.directory.read")
	ErrOutputNotEmpty    = errorx.New("imgdiff.directory.not_empty")

	ErrDecodeImage = errorx.New("imgdiff.image.decode")
	ErrEncodeImage = errorx.New("imgdiff.image.encode")

	ErrWriteArtifact   = errorx.New("imgdiff.report.write_artifact")
	ErrRenderReport    = errorx.New("imgdiff.report.render")
	ErrWriteReport     = errorx.New("imgdiff.report.write")
	ErrReportNotFound  = errorx.New("imgdiff.report.not_found")
	ErrMalformedReport = errorx.New("imgdiff.report.malformed")

	ErrVerificationFailed = errorx.New("imgdiff.fix.verification_failed")
	ErrApplyChange        = errorx.New("imgdiff.fix.apply")

	ErrHasChanges = errorx.New("imgdiff.compare.has_changes")
)

// atPath prefixes err with the path it concerns so the message names it
func atPath(path string, err error) error {
	return fmt.Errorf("%s: %w", path, err)
}

type pathErrorContext struct {
	Path  string `json:"path"`
	Error error  `json:"error"`
}

func newRootNotFoundError(root string, err error) error {
	return ErrRootNotFound.
		SetError(err).
		SetData(pathErrorContext{
			Path:  root,
			Error: err,
		})
}

func newScanDirectoryError(root string, err error) error {
	return ErrScanDirectory.
		SetError(err).
		SetData(pathErrorContext{
			Path:  root,
			Error: err,
		})
}

func newReadFileError(path string, err error) error {
	return ErrReadFile.
		SetError(err).
		SetData(pathErrorContext{
			Path:  path,
			Error: err,
		})
}

func newOpenFileError(path string, err error) error {
	return ErrOpenFile.
		SetError(err).
		SetData(pathErrorContext{
			Path:  path,
			Error: err,
		})
}

func newStatFileError(path string, err error) error {
	return ErrStatFile.
		SetError(err).
		SetData(pathErrorContext{
			Path:  path,
			Error: err,
		})
}

func newCopyFileError(path string, err error) error {
	return ErrCopyFile.
		SetError(err).
		SetData(pathErrorContext{
			Path:  path,
			Error: err,
		})
}

func newDeleteFileError(path string, err error) error {
	return ErrDeleteFile.
		SetError(err).
		SetData(pathErrorContext{
			Path:  path,
			Error: err,
		})
}

func newCreateDirectoriesError(path string, err error) error {
	return ErrCreateDirectories.
		SetError(err).
		SetData(pathErrorContext{
			Path:  path,
			Error: err,
		})
}

func newReadDirectoryError(path string, err error) error {
	return ErrReadDirectory.
		SetError(err).
		SetData(pathErrorContext{
			Path:  path,
			Error: err,
		})
}

func newOutputNotEmptyError(path string) error {
	return ErrOutputNotEmpty.
		SetError(fmt.Errorf("output directory %s is not empty", path)).
		SetData(struct {
			Path string `json:"path"`
		}{
			Path: path,
		})
}

func newInvalidPatternError(pattern string) error {
	return ErrInvalidPattern.
		SetError(fmt.Errorf("invalid exclude pattern %q", pattern)).
		SetData(struct {
			Pattern string `json:"pattern"`
		}{
			Pattern: pattern,
		})
}

type decodeErrorContext struct {
	Path  string `json:"path"`
	Error error  `json:"error"`
}

func newDecodeImageError(path string, err error) error {
	return ErrDecodeImage.
		SetError(atPath(path, err)).
		SetData(decodeErrorContext{
			Path:  path,
			Error: err,
		})
}

func newEncodeImageError(name string, err error) error {
	return ErrEncodeImage.
		SetError(atPath(name, err)).
		SetData(pathErrorContext{
			Path:  name,
			Error: err,
		})
}

type artifactErrorContext struct {
	Name   string `json:"name"`
	Source string `json:"source,omitempty"`
	Error  error  `json:"error"`
}

func newWriteArtifactError(name, source string, err error) error {
	return ErrWriteArtifact.
		SetError(err).
		SetData(artifactErrorContext{
			Name:   name,
			Source: source,
			Error:  err,
		})
}

func newRenderReportError(path string, err error) error {
	return ErrRenderReport.
		SetError(atPath(path, err)).
		SetData(pathErrorContext{
			Path:  path,
			Error: err,
		})
}

func newWriteReportError(path string, err error) error {
	return ErrWriteReport.
		SetError(err).
		SetData(pathErrorContext{
			Path:  path,
			Error: err,
		})
}

func newReportNotFoundError(path string, err error) error {
	return ErrReportNotFound.
		SetError(err).
		SetData(pathErrorContext{
			Path:  path,
			Error: err,
		})
}

type malformedReportContext struct {
	Path   string `json:"path"`
	Reason string `json:"reason"`
	Error  error  `json:"error,omitempty"`
}

func newMalformedReportError(path, reason string, err error) error {
	if err == nil {
		return ErrMalformedReport.
			SetError(fmt.Errorf("%s: %s", path, reason)).
			SetData(malformedReportContext{
				Path:   path,
				Reason: reason,
			})
	}

	return ErrMalformedReport.
		SetError(fmt.Errorf("%s: %s: %w", path, reason, err)).
		SetData(malformedReportContext{
			Path:   path,
			Reason: reason,
			Error:  err,
		})
}

func newVerificationFailedError(reportDir string, issues []Issue) error {
	return ErrVerificationFailed.
		SetError(fmt.Errorf("%s: %d issue(s)", reportDir, len(issues))).
		SetData(struct {
			ReportDir string  `json:"report_dir"`
			Issues    []Issue `json:"issues"`
		}{
			ReportDir: reportDir,
			Issues:    issues,
		})
}

type applyErrorContext struct {
	Name   string `json:"name"`
	Action string `json:"action"`
	Target string `json:"target"`
	Error  error  `json:"error"`
}

func newApplyChangeError(action Action, err error) error {
	return ErrApplyChange.
		SetError(err).
		SetData(applyErrorContext{
			Name:   action.Name,
			Action: action.Kind.String(),
			Target: action.Target,
			Error:  err,
		})
}
