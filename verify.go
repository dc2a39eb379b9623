package imgdiff

import (
	"path/filepath"
	"strings"
)

// Verify loads the report in reportDir and checks it with VerifyReport
func Verify(reportDir, expectedRoot string) ([]Issue, error) {
	report, err := LoadReport(reportDir)
	if err != nil {
		return nil, err
	}

	return VerifyReport(report, reportDir, expectedRoot), nil
}

// VerifyReport checks that a report can still be applied to expectedRoot.
//
// Every stored artifact the report references must exist in reportDir with
// its recorded digest, and every live expected file the report describes
// must still hold its recorded digest. A deleted path that is already gone
// is accepted. All problems are collected; an empty result means fix may proceed.
func VerifyReport(report *Report, reportDir, expectedRoot string) []Issue {
	v := &verifier{reportDir: reportDir, expectedRoot: expectedRoot}

	for _, file := range report.Files {
		switch o := file.(type) {
		case AddedImage:
			v.stored(o.Name, o.ActualFile, o.ActualMD5)
		case DeletedImage:
			v.liveIfPresent(o.Name, o.ExpectedMD5)
		case ChangedImage:
			v.stored(o.Name, o.ActualFile, o.ActualMD5)
			v.stored(o.Name, o.ExpectedFile, o.ExpectedMD5)
			if o.DiffFile != "" {
				v.stored(o.Name, o.DiffFile, strings.TrimSuffix(o.DiffFile, filepath.Ext(o.DiffFile)))
			}
			v.live(o.Name, o.ExpectedMD5)
		case UnchangedImage:
			v.stored(o.Name, o.ActualFile, o.ActualMD5)
			v.stored(o.Name, o.ExpectedFile, o.ExpectedMD5)
			v.live(o.Name, o.ExpectedMD5)
		}
	}

	return v.issues
}

// VerifyApplied checks that expectedRoot reflects the report after a fix:
// deleted paths are gone, added and changed paths hold the actual digest and
// unchanged paths hold the expected digest.
func VerifyApplied(report *Report, expectedRoot string) []Issue {
	v := &verifier{expectedRoot: expectedRoot}

	for _, file := range report.Files {
		switch o := file.(type) {
		case AddedImage:
			v.live(o.Name, o.ActualMD5)
		case DeletedImage:
			target := v.target(o.Name)
			if FileExist(target) {
				v.add(newIssue(o.Name, target, "Expected file %s should not exist but does.", target))
			}
		case ChangedImage:
			v.live(o.Name, o.ActualMD5)
		case UnchangedImage:
			v.live(o.Name, o.ExpectedMD5)
		}
	}

	return v.issues
}

type verifier struct {
	reportDir    string
	expectedRoot string
	issues       []Issue
}

func (v *verifier) add(issue Issue) {
	v.issues = append(v.issues, issue)
}

func (v *verifier) target(name string) string {
	return filepath.Join(v.expectedRoot, filepath.FromSlash(name))
}

// stored checks an artifact inside the report directory
func (v *verifier) stored(name, file, digest string) {
	path := filepath.Join(v.reportDir, file)

	if !strings.HasPrefix(file, digest) {
		v.add(newIssue(name, path, "Stored file %s is not addressed by MD5 %s.", file, digest))
		return
	}

	if !FileExist(path) {
		v.add(newIssue(name, path, "Stored file %s for %s does not exist.", path, name))
		return
	}

	v.digest(name, path, digest)
}

// live checks the file for name in the expected tree
func (v *verifier) live(name, digest string) {
	target := v.target(name)
	if !FileExist(target) {
		v.add(newIssue(name, target, "Expected file %s does not exist.", target))
		return
	}

	v.digest(name, target, digest)
}

func (v *verifier) liveIfPresent(name, digest string) {
	target := v.target(name)
	if !FileExist(target) {
		return
	}

	v.digest(name, target, digest)
}

func (v *verifier) digest(name, path, want string) {
	got, err := HashFile(path)
	if err != nil {
		v.add(newIssue(name, path, "File %s cannot be read: %v", path, err))
		return
	}

	if got != want {
		v.add(newIssue(name, path, "MD5 of %s does not match: recorded %s, found %s.", path, want, got))
	}
}
