package imgdiff

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
)

func TestAssertNoChanges(t *testing.T) {
	t.Run("NoChanges", func(t *testing.T) {
		expected, actual, reportDir := newTrees(t)
		writePNG(t, filepath.Join(expected, "a.png"), solid(2, 2, red))
		writePNG(t, filepath.Join(actual, "a.png"), solid(2, 2, red))

		if err := AssertNoChanges(context.Background(), expected, actual, reportDir); err != nil {
			t.Errorf("Identical trees should pass: %v", err)
		}
	})

	t.Run("Changes", func(t *testing.T) {
		expected, actual, reportDir := newTrees(t)
		writePNG(t, filepath.Join(expected, "a.png"), solid(2, 2, red))
		writePNG(t, filepath.Join(actual, "a.png"), solid(2, 2, blue))

		err := AssertNoChanges(context.Background(), expected, actual, reportDir)

		var changes *ChangesError
		if !errors.As(err, &changes) {
			t.Fatalf("Expected *ChangesError, got %v", err)
		}
		if changes.Report.Summary.Changed != 1 || changes.ReportDir != reportDir {
			t.Errorf("Unexpected error payload: %+v", changes)
		}
		if !strings.HasPrefix(err.Error(), "Comparison failed (1 changed).") {
			t.Errorf("Unexpected message: %s", err)
		}
		if !strings.Contains(err.Error(), reportDir) {
			t.Error("Message should name the report directory")
		}
	})

	t.Run("Error", func(t *testing.T) {
		expected, actual, reportDir := newTrees(t)

		err := AssertNoChanges(context.Background(), filepath.Join(expected, "missing"), actual, reportDir)

		var changes *ChangesError
		if err == nil || errors.As(err, &changes) {
			t.Errorf("Operational errors are not change errors: %v", err)
		}
	})
}

func TestCheckReport(t *testing.T) {
	empty := NewReport()
	empty.Finalize()
	if err := CheckReport(empty, ""); err != nil {
		t.Errorf("Empty report should pass: %v", err)
	}

	if err := CheckReport(sampleReport(), ""); err == nil {
		t.Error("Report with changes should fail")
	}
}
