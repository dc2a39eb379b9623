package imgdiff

import (
	"fmt"
	"path/filepath"
)

// Fix promotes the actual state recorded in reportDir onto expectedRoot.
//
// The run moves through Loaded, then Verified or VerificationFailed, then
// Applied or DryRunReported. Verification runs over the whole report first:
// if any issue is found nothing is mutated and ErrVerificationFailed is
// returned together with the issues. Added and changed paths receive a copy
// of the stored actual artifact, deleted paths are removed, unchanged paths
// are left alone.
func Fix(reportDir, expectedRoot string, options ...FixOption) (*FixResult, error) {
	report, err := LoadReport(reportDir)
	if err != nil {
		return nil, err
	}

	return FixReport(report, reportDir, expectedRoot, options...)
}

// FixReport runs Fix on an already loaded report
func FixReport(report *Report, reportDir, expectedRoot string, options ...FixOption) (*FixResult, error) {
	opts := defaultFixOptions()
	for _, opt := range options {
		opt(opts)
	}

	result := &FixResult{State: StateLoaded}

	issues := VerifyReport(report, reportDir, expectedRoot)
	if len(issues) > 0 {
		result.Issues = issues
		if err := result.transition(StateVerificationFailed); err != nil {
			return result, err
		}

		for _, issue := range issues {
			opts.logger.Error("verification failed", "name", issue.Name, "path", issue.Path, "issue", issue.Message)
		}
		return result, newVerificationFailedError(reportDir, issues)
	}

	if err := result.transition(StateVerified); err != nil {
		return result, err
	}

	for _, file := range report.Files {
		action, ok := planAction(file, reportDir, expectedRoot)
		if !ok {
			continue
		}

		result.Actions = append(result.Actions, action)

		if opts.dryRun {
			opts.logger.Info("would "+action.Kind.String()+" file", "name", action.Name, "path", action.Target)
			continue
		}

		if err := applyAction(action, expectedRoot, opts); err != nil {
			return result, newApplyChangeError(action, err)
		}

		opts.logger.Info(pastTense(action.Kind)+" file", "name", action.Name, "path", action.Target)
	}

	final := StateApplied
	if opts.dryRun {
		final = StateDryRunReported
	}

	if err := result.transition(final); err != nil {
		return result, err
	}

	return result, nil
}

// planAction returns the mutation for one outcome; unchanged outcomes need none
func planAction(file Outcome, reportDir, expectedRoot string) (Action, bool) {
	entry := file.Base()
	action := Action{
		Name:   entry.Name,
		Target: filepath.Join(expectedRoot, filepath.FromSlash(entry.Name)),
	}

	switch o := file.(type) {
	case AddedImage:
		action.Kind = ActionAdd
		action.Source = filepath.Join(reportDir, o.ActualFile)
	case ChangedImage:
		action.Kind = ActionChange
		action.Source = filepath.Join(reportDir, o.ActualFile)
	case DeletedImage:
		action.Kind = ActionDelete
	case UnchangedImage:
		return Action{}, false
	default:
		return Action{}, false
	}

	return action, true
}

func applyAction(action Action, expectedRoot string, opts *fixOptions) error {
	switch action.Kind {
	case ActionAdd, ActionChange:
		return CopyFile(action.Source, action.Target, WithCreateDirs())
	case ActionDelete:
		if err := DeleteFile(action.Target); err != nil {
			return err
		}
		if opts.pruneDirs {
			return CleanEmptyParents(expectedRoot, action.Target)
		}
		return nil
	}

	return fmt.Errorf("unknown action %s", action.Kind)
}

func pastTense(kind ActionKind) string {
	switch kind {
	case ActionAdd:
		return "added"
	case ActionChange:
		return "changed"
	case ActionDelete:
		return "deleted"
	}

	return kind.String()
}

// transition moves the result to the next state if the edge is allowed
func (r *FixResult) transition(to FixState) error {
	if !isAllowedTransition(r.State, to) {
		return fmt.Errorf("disallowed fix transition: %s -> %s", r.State, to)
	}

	r.State = to
	return nil
}

func isAllowedTransition(from, to FixState) bool {
	switch from {
	case StateLoaded:
		return to == StateVerified || to == StateVerificationFailed
	case StateVerified:
		return to == StateApplied || to == StateDryRunReported
	default:
		return false
	}
}
