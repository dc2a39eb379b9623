package imgdiff

import (
	"fmt"
	"maps"
	"slices"
)

// Summary counts outcomes per kind. All four counters are always present.
type Summary struct {
	Added     int `json:"added"`
	Deleted   int `json:"deleted"`
	Changed   int `json:"changed"`
	Unchanged int `json:"unchanged"`
}

// Count returns the counter for kind
func (s Summary) Count(kind Kind) int {
	switch kind {
	case KindAdded:
		return s.Added
	case KindDeleted:
		return s.Deleted
	case KindChanged:
		return s.Changed
	case KindUnchanged:
		return s.Unchanged
	}

	return 0
}

func (s *Summary) add(kind Kind) {
	switch kind {
	case KindAdded:
		s.Added++
	case KindDeleted:
		s.Deleted++
	case KindChanged:
		s.Changed++
	case KindUnchanged:
		s.Unchanged++
	}
}

// HasChanges reports whether any path was added, deleted or changed
func (s Summary) HasChanges() bool {
	return s.Added+s.Deleted+s.Changed > 0
}

// Report is the result of comparing an expected tree with an actual tree.
//
// Files is sorted by name. Summary and HasChanges are derived from Files by
// Finalize. Pending artifacts are kept unexported and never serialized.
type Report struct {
	Files      []Outcome
	HasChanges bool
	Summary    Summary

	outputs map[string]artifact
}

// NewReport returns an empty report
func NewReport() *Report {
	return &Report{
		Files:   []Outcome{},
		outputs: make(map[string]artifact),
	}
}

// Finalize recomputes Summary and HasChanges from Files
func (r *Report) Finalize() {
	r.Summary = Summary{}
	for _, file := range r.Files {
		r.Summary.add(file.Kind())
	}
	r.HasChanges = r.Summary.HasChanges()
}

// Outputs returns the stored filenames waiting to be written, sorted
func (r *Report) Outputs() []string {
	return slices.Sorted(maps.Keys(r.outputs))
}

// Issue is a single integrity problem found while verifying a report
type Issue struct {
	Name    string `json:"name"`
	Path    string `json:"path"`
	Message string `json:"message"`
}

func (i Issue) String() string {
	return i.Message
}

func newIssue(name, path, format string, args ...any) Issue {
	return Issue{
		Name:    name,
		Path:    path,
		Message: fmt.Sprintf(format, args...),
	}
}

// ActionKind is the mutation fix performs for one outcome
type ActionKind int

const (
	ActionAdd ActionKind = iota
	ActionChange
	ActionDelete
)

func (k ActionKind) String() string {
	switch k {
	case ActionAdd:
		return "add"
	case ActionChange:
		return "change"
	case ActionDelete:
		return "delete"
	}

	return "unknown"
}

// Action describes one mutation of the expected tree
type Action struct {
	Kind   ActionKind
	Name   string
	Source string
	Target string
}

// FixState is the position of a fix run in its state machine
type FixState int

const (
	StateLoaded FixState = iota
	StateVerified
	StateApplied
	StateDryRunReported
	StateVerificationFailed
)

func (s FixState) String() string {
	switch s {
	case StateLoaded:
		return "loaded"
	case StateVerified:
		return "verified"
	case StateApplied:
		return "applied"
	case StateDryRunReported:
		return "dry_run_reported"
	case StateVerificationFailed:
		return "verification_failed"
	}

	return "unknown"
}

// IsTerminal reports whether no further transition is possible
func (s FixState) IsTerminal() bool {
	switch s {
	case StateApplied, StateDryRunReported, StateVerificationFailed:
		return true
	default:
		return false
	}
}

// FixResult is what a fix run did, or would have done
type FixResult struct {
	State   FixState
	Issues  []Issue
	Actions []Action
}
