package imgdiff

import "context"

// ChangesError carries a report whose comparison found changes
type ChangesError struct {
	Report    *Report
	ReportDir string
}

func (e *ChangesError) Error() string {
	return FormatReport(e.Report, e.ReportDir)
}

// Unwrap lets errors.Is match ErrHasChanges
func (e *ChangesError) Unwrap() error {
	return ErrHasChanges
}

// CheckReport returns a *ChangesError when report has changes and nil otherwise
func CheckReport(report *Report, reportDir string) error {
	if !report.HasChanges {
		return nil
	}

	return &ChangesError{
		Report:    report,
		ReportDir: reportDir,
	}
}

// AssertNoChanges compares both trees into reportDir and fails with a
// *ChangesError when anything was added, deleted or changed.
//
// Intended for test suites that keep reference screenshots next to the code.
func AssertNoChanges(ctx context.Context, expectedRoot, actualRoot, reportDir string, options ...CompareOption) error {
	report, err := CompareAndWrite(ctx, expectedRoot, actualRoot, reportDir, options...)
	if err != nil {
		return err
	}

	return CheckReport(report, reportDir)
}
