package imgdiff

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
)

const (
	// ReportFile is the name of the serialized report inside a report directory
	ReportFile = "report.json"
	// IndexFile is the name of the rendered report document
	IndexFile = "index.html"
)

type addedJSON struct {
	Type       Kind     `json:"type"`
	Name       string   `json:"name"`
	Reasons    []string `json:"reasons"`
	ActualMD5  string   `json:"actual_md5"`
	ActualFile string   `json:"actual_file"`
}

type deletedJSON struct {
	Type        Kind     `json:"type"`
	Name        string   `json:"name"`
	Reasons     []string `json:"reasons"`
	ExpectedMD5 string   `json:"expected_md5"`
}

type changedJSON struct {
	Type         Kind     `json:"type"`
	Name         string   `json:"name"`
	Reasons      []string `json:"reasons"`
	ActualMD5    string   `json:"actual_md5"`
	ActualFile   string   `json:"actual_file"`
	ExpectedMD5  string   `json:"expected_md5"`
	ExpectedFile string   `json:"expected_file"`
	DiffFile     *string  `json:"diff_file"`
}

type unchangedJSON struct {
	Type         Kind     `json:"type"`
	Name         string   `json:"name"`
	Reasons      []string `json:"reasons"`
	ActualMD5    string   `json:"actual_md5"`
	ActualFile   string   `json:"actual_file"`
	ExpectedMD5  string   `json:"expected_md5"`
	ExpectedFile string   `json:"expected_file"`
}

type reportJSON struct {
	Files      []json.RawMessage `json:"files"`
	HasChanges bool              `json:"has_changes"`
	Summary    Summary           `json:"summary"`
}

// requiredFields lists the keys each outcome kind must carry; "reasons" is optional
var requiredFields = map[Kind][]string{
	KindAdded:     {"type", "name", "actual_md5", "actual_file"},
	KindDeleted:   {"type", "name", "expected_md5"},
	KindChanged:   {"type", "name", "actual_md5", "actual_file", "expected_md5", "expected_file", "diff_file"},
	KindUnchanged: {"type", "name", "actual_md5", "actual_file", "expected_md5", "expected_file"},
}

var (
	reportFields  = []string{"files", "has_changes", "summary"}
	summaryFields = []string{"added", "deleted", "changed", "unchanged"}
)

// requireKeys fails when the JSON object in data lacks one of keys.
// Summary objects nested under "summary" are checked too.
func requireKeys(data []byte, what string, keys []string) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}

	for _, key := range keys {
		if _, ok := fields[key]; !ok {
			return fmt.Errorf("missing field %q in %s", key, what)
		}
	}
	if err := rejectNulls(fields, what); err != nil {
		return err
	}

	if raw, ok := fields["summary"]; ok && what == "report" {
		return requireKeys(raw, "summary", summaryFields)
	}

	return nil
}

// nullableFields may hold null; every other present field must carry a value
var nullableFields = map[string]bool{"diff_file": true}

func rejectNulls(fields map[string]json.RawMessage, what string) error {
	for key, raw := range fields {
		if !nullableFields[key] && bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
			return fmt.Errorf("field %q in %s must not be null", key, what)
		}
	}

	return nil
}

func reasonsOrEmpty(reasons []string) []string {
	if reasons == nil {
		return []string{}
	}
	return reasons
}

func marshalOutcome(outcome Outcome) (json.RawMessage, error) {
	var wire any

	switch o := outcome.(type) {
	case AddedImage:
		wire = addedJSON{
			Type:       KindAdded,
			Name:       o.Name,
			Reasons:    reasonsOrEmpty(o.Reasons),
			ActualMD5:  o.ActualMD5,
			ActualFile: o.ActualFile,
		}
	case DeletedImage:
		wire = deletedJSON{
			Type:        KindDeleted,
			Name:        o.Name,
			Reasons:     reasonsOrEmpty(o.Reasons),
			ExpectedMD5: o.ExpectedMD5,
		}
	case ChangedImage:
		var diffFile *string
		if o.DiffFile != "" {
			diffFile = &o.DiffFile
		}
		wire = changedJSON{
			Type:         KindChanged,
			Name:         o.Name,
			Reasons:      reasonsOrEmpty(o.Reasons),
			ActualMD5:    o.ActualMD5,
			ActualFile:   o.ActualFile,
			ExpectedMD5:  o.ExpectedMD5,
			ExpectedFile: o.ExpectedFile,
			DiffFile:     diffFile,
		}
	case UnchangedImage:
		wire = unchangedJSON{
			Type:         KindUnchanged,
			Name:         o.Name,
			Reasons:      reasonsOrEmpty(o.Reasons),
			ActualMD5:    o.ActualMD5,
			ActualFile:   o.ActualFile,
			ExpectedMD5:  o.ExpectedMD5,
			ExpectedFile: o.ExpectedFile,
		}
	default:
		return nil, fmt.Errorf("unsupported outcome %T", outcome)
	}

	return json.Marshal(wire)
}

// MarshalJSON encodes the report contract. Pending artifacts are not part of it.
func (r Report) MarshalJSON() ([]byte, error) {
	wire := reportJSON{
		Files:      make([]json.RawMessage, 0, len(r.Files)),
		HasChanges: r.HasChanges,
		Summary:    r.Summary,
	}

	for _, file := range r.Files {
		raw, err := marshalOutcome(file)
		if err != nil {
			return nil, err
		}
		wire.Files = append(wire.Files, raw)
	}

	return json.Marshal(wire)
}

// UnmarshalJSON decodes the report contract, rejecting unknown fields,
// missing required fields, unknown outcome types, duplicate names and
// names or stored filenames that would escape their directory.
func (r *Report) UnmarshalJSON(data []byte) error {
	if err := requireKeys(data, "report", reportFields); err != nil {
		return err
	}

	var wire reportJSON
	if err := strictUnmarshal(data, &wire); err != nil {
		return err
	}

	files := make([]Outcome, 0, len(wire.Files))
	seen := make(map[string]struct{}, len(wire.Files))
	for i, raw := range wire.Files {
		outcome, err := unmarshalOutcome(raw)
		if err != nil {
			return fmt.Errorf("files[%d]: %w", i, err)
		}

		name := outcome.Base().Name
		if _, dup := seen[name]; dup {
			return fmt.Errorf("files[%d]: duplicate name %q", i, name)
		}
		seen[name] = struct{}{}

		files = append(files, outcome)
	}

	*r = Report{
		Files:      files,
		HasChanges: wire.HasChanges,
		Summary:    wire.Summary,
	}

	return nil
}

func unmarshalOutcome(raw json.RawMessage) (Outcome, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, err
	}

	var kind Kind
	typeRaw, ok := fields["type"]
	if !ok {
		return nil, errors.New(`missing field "type"`)
	}
	if err := json.Unmarshal(typeRaw, &kind); err != nil {
		return nil, fmt.Errorf("field \"type\": %w", err)
	}

	required, ok := requiredFields[kind]
	if !ok {
		return nil, fmt.Errorf("unknown type %q", kind)
	}
	for _, field := range required {
		if _, ok := fields[field]; !ok {
			return nil, fmt.Errorf("missing field %q for type %q", field, kind)
		}
	}
	if err := rejectNulls(fields, string(kind)); err != nil {
		return nil, err
	}

	var (
		outcome Outcome
		stored  []string
	)

	switch kind {
	case KindAdded:
		var w addedJSON
		if err := strictUnmarshal(raw, &w); err != nil {
			return nil, err
		}
		outcome = AddedImage{
			Entry:      Entry{Name: w.Name, Reasons: reasonsOrEmpty(w.Reasons)},
			ActualMD5:  w.ActualMD5,
			ActualFile: w.ActualFile,
		}
		stored = []string{w.ActualFile}
	case KindDeleted:
		var w deletedJSON
		if err := strictUnmarshal(raw, &w); err != nil {
			return nil, err
		}
		outcome = DeletedImage{
			Entry:       Entry{Name: w.Name, Reasons: reasonsOrEmpty(w.Reasons)},
			ExpectedMD5: w.ExpectedMD5,
		}
	case KindChanged:
		var w changedJSON
		if err := strictUnmarshal(raw, &w); err != nil {
			return nil, err
		}
		changed := ChangedImage{
			Entry:        Entry{Name: w.Name, Reasons: reasonsOrEmpty(w.Reasons)},
			ActualMD5:    w.ActualMD5,
			ActualFile:   w.ActualFile,
			ExpectedMD5:  w.ExpectedMD5,
			ExpectedFile: w.ExpectedFile,
		}
		stored = []string{w.ActualFile, w.ExpectedFile}
		if w.DiffFile != nil {
			changed.DiffFile = *w.DiffFile
			stored = append(stored, changed.DiffFile)
		}
		outcome = changed
	case KindUnchanged:
		var w unchangedJSON
		if err := strictUnmarshal(raw, &w); err != nil {
			return nil, err
		}
		outcome = UnchangedImage{
			Entry:        Entry{Name: w.Name, Reasons: reasonsOrEmpty(w.Reasons)},
			ActualMD5:    w.ActualMD5,
			ActualFile:   w.ActualFile,
			ExpectedMD5:  w.ExpectedMD5,
			ExpectedFile: w.ExpectedFile,
		}
		stored = []string{w.ActualFile, w.ExpectedFile}
	}

	if err := validateName(outcome.Base().Name); err != nil {
		return nil, err
	}
	for _, name := range stored {
		if err := validateStoredName(name); err != nil {
			return nil, err
		}
	}

	return outcome, nil
}

func strictUnmarshal(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return err
	}

	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return errors.New("unexpected data after top-level value")
	}

	return nil
}

// validateName accepts clean, relative, slash-separated paths only
func validateName(name string) error {
	if name == "" {
		return errors.New("empty name")
	}
	if strings.Contains(name, `\`) || path.IsAbs(name) || filepath.IsAbs(name) {
		return fmt.Errorf("name %q is not a relative slash path", name)
	}
	if path.Clean(name) != name || name == ".." || strings.HasPrefix(name, "../") {
		return fmt.Errorf("name %q is not a clean path inside the tree", name)
	}

	return nil
}

// validateStoredName accepts plain filenames inside the report directory
func validateStoredName(name string) error {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("stored file %q is not a plain filename", name)
	}

	return nil
}

// ParseReport decodes report.json content
func ParseReport(data []byte) (*Report, error) {
	var report Report
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, newMalformedReportError(ReportFile, "invalid report", err)
	}

	return &report, nil
}

// LoadReport reads and decodes report.json from a report directory
func LoadReport(reportDir string) (*Report, error) {
	reportPath := filepath.Join(reportDir, ReportFile)

	data, err := os.ReadFile(reportPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, newReportNotFoundError(reportPath, err)
		}
		return nil, newReadFileError(reportPath, err)
	}

	var report Report
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, newMalformedReportError(reportPath, "invalid report", err)
	}

	return &report, nil
}

// FormatReport renders the report as a plain text summary. When output is
// not empty the report directory is mentioned at the end.
func FormatReport(report *Report, output string) string {
	var lines []string

	if report.HasChanges {
		var parts []string
		for _, kind := range Kinds {
			if count := report.Summary.Count(kind); count != 0 {
				parts = append(parts, fmt.Sprintf("%d %s", count, kind))
			}
		}
		lines = append(lines, fmt.Sprintf("Comparison failed (%s).", strings.Join(parts, ", ")))
	} else {
		lines = append(lines, "Comparison passed.")
	}

	lines = append(lines, "\nFiles:")
	for _, file := range report.Files {
		entry := file.Base()
		lines = append(lines, fmt.Sprintf("  %s: %s", entry.Name, strings.Join(entry.Reasons, "; ")))
	}

	if output != "" {
		lines = append(lines, fmt.Sprintf("\nComparison results are stored in the directory: %s", output))
	}

	return strings.Join(lines, "\n")
}
