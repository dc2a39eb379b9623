package imgdiff

import (
	"context"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
)

func names(report *Report) []string {
	out := make([]string, 0, len(report.Files))
	for _, file := range report.Files {
		out = append(out, file.Base().Name)
	}
	return out
}

func TestCompareScenarios(t *testing.T) {
	ctx := context.Background()

	t.Run("EmptyTrees", func(t *testing.T) {
		expected, actual, _ := newTrees(t)

		report, err := Compare(ctx, expected, actual)
		if err != nil {
			t.Fatalf("Compare failed: %v", err)
		}
		if report.HasChanges || report.Summary != (Summary{}) || len(report.Files) != 0 {
			t.Errorf("Empty trees should produce an empty report: %+v", report)
		}
	})

	t.Run("AddedOnly", func(t *testing.T) {
		expected, actual, _ := newTrees(t)
		writeBytes(t, filepath.Join(actual, "img1.jpg"), encodeJPEGBytes(t, solid(8, 8, red)))

		report, err := Compare(ctx, expected, actual)
		if err != nil {
			t.Fatalf("Compare failed: %v", err)
		}
		if !report.HasChanges || report.Summary != (Summary{Added: 1}) {
			t.Fatalf("Expected one added image: %+v", report.Summary)
		}

		added, ok := report.Files[0].(AddedImage)
		if !ok {
			t.Fatalf("Expected AddedImage, got %T", report.Files[0])
		}
		if added.Name != "img1.jpg" || !slices.Equal(added.Reasons, []string{"Image added"}) {
			t.Errorf("Unexpected outcome: %+v", added)
		}
		if added.ActualFile != added.ActualMD5+".jpg" {
			t.Errorf("Stored name mismatch: %s", added.ActualFile)
		}
		if !slices.Equal(report.Outputs(), []string{added.ActualFile}) {
			t.Errorf("Outputs mismatch: %v", report.Outputs())
		}
	})

	t.Run("Identical", func(t *testing.T) {
		expected, actual, _ := newTrees(t)
		writePNG(t, filepath.Join(expected, "a.png"), solid(4, 4, red))
		writePNG(t, filepath.Join(actual, "a.png"), solid(4, 4, red))

		report, err := Compare(ctx, expected, actual)
		if err != nil {
			t.Fatalf("Compare failed: %v", err)
		}
		if report.HasChanges || report.Summary != (Summary{Unchanged: 1}) {
			t.Fatalf("Expected one unchanged image: %+v", report.Summary)
		}

		unchanged := report.Files[0].(UnchangedImage)
		if unchanged.ActualFile != unchanged.ExpectedFile {
			t.Error("Identical content should share a stored file")
		}
		if len(report.Outputs()) != 1 {
			t.Errorf("Identical content should be stored once: %v", report.Outputs())
		}
	})

	t.Run("PixelsChanged", func(t *testing.T) {
		expected, actual, _ := newTrees(t)
		writePNG(t, filepath.Join(expected, "a.png"), solid(4, 4, red))
		writePNG(t, filepath.Join(actual, "a.png"), solid(4, 4, blue))

		report, err := Compare(ctx, expected, actual, WithTolerance(0))
		if err != nil {
			t.Fatalf("Compare failed: %v", err)
		}
		if report.Summary != (Summary{Changed: 1}) {
			t.Fatalf("Expected one changed image: %+v", report.Summary)
		}

		changed := report.Files[0].(ChangedImage)
		if changed.DiffFile == "" {
			t.Fatal("Changed image should reference a diff file")
		}
		if !slices.Contains(report.Outputs(), changed.DiffFile) {
			t.Error("Diff file should be a pending output")
		}
		if len(report.Outputs()) != 3 {
			t.Errorf("Expected actual, expected and diff outputs: %v", report.Outputs())
		}
	})

	t.Run("WithinTolerance", func(t *testing.T) {
		expected, actual, _ := newTrees(t)
		img := solid(4, 4, red)
		writePNG(t, filepath.Join(expected, "a.png"), img)
		img.SetNRGBA(0, 0, blue)
		writePNG(t, filepath.Join(actual, "a.png"), img)

		report, err := Compare(ctx, expected, actual, WithTolerance(10))
		if err != nil {
			t.Fatalf("Compare failed: %v", err)
		}

		unchanged, ok := report.Files[0].(UnchangedImage)
		if !ok {
			t.Fatalf("Expected UnchangedImage, got %T", report.Files[0])
		}
		if !slices.Equal(unchanged.Reasons, []string{"Image unchanged"}) {
			t.Errorf("Reasons mismatch: %v", unchanged.Reasons)
		}
		if unchanged.ActualMD5 == unchanged.ExpectedMD5 {
			t.Error("Digests should still record the differing bytes")
		}
	})

	t.Run("SizeChanged", func(t *testing.T) {
		expected, actual, _ := newTrees(t)
		writePNG(t, filepath.Join(expected, "a.png"), solid(4, 4, red))
		writePNG(t, filepath.Join(actual, "a.png"), solid(4, 5, red))

		report, err := Compare(ctx, expected, actual, WithTolerance(100))
		if err != nil {
			t.Fatalf("Compare failed: %v", err)
		}

		changed := report.Files[0].(ChangedImage)
		if !slices.Equal(changed.Reasons, []string{"Size changed from (4, 4) to (4, 5)"}) {
			t.Errorf("Reasons mismatch: %v", changed.Reasons)
		}
		if changed.DiffFile != "" {
			t.Error("Structural mismatch should not produce a diff file")
		}
	})

	t.Run("Deleted", func(t *testing.T) {
		expected, actual, _ := newTrees(t)
		data := encodePNGBytes(t, solid(2, 2, red))
		writeBytes(t, filepath.Join(expected, "gone", "a.png"), data)

		report, err := Compare(ctx, expected, actual)
		if err != nil {
			t.Fatalf("Compare failed: %v", err)
		}

		deleted := report.Files[0].(DeletedImage)
		if deleted.Name != "gone/a.png" || deleted.ExpectedMD5 != HashBytes(data) {
			t.Errorf("Unexpected outcome: %+v", deleted)
		}
		if len(report.Outputs()) != 0 {
			t.Errorf("Deleted images store nothing: %v", report.Outputs())
		}
	})
}

func TestCompareUnionAndOrder(t *testing.T) {
	expected, actual, _ := newTrees(t)
	same := encodePNGBytes(t, solid(2, 2, red))

	for _, name := range []string{"b.png", "z/y.png", "a.png", "m.png"} {
		writeBytes(t, filepath.Join(expected, filepath.FromSlash(name)), same)
	}
	for _, name := range []string{"c.png", "a.png", "z/y.png", "d/e.png"} {
		writeBytes(t, filepath.Join(actual, filepath.FromSlash(name)), same)
	}

	var previous []string
	for _, workers := range []int{1, 2, 8} {
		report, err := Compare(context.Background(), expected, actual, WithWorkers(workers))
		if err != nil {
			t.Fatalf("Compare failed: %v", err)
		}

		want := []string{"a.png", "b.png", "c.png", "d/e.png", "m.png", "z/y.png"}
		got := names(report)
		if !slices.Equal(got, want) {
			t.Errorf("Outcome names mismatch:\n got %v\nwant %v", got, want)
		}
		if previous != nil && !slices.Equal(previous, got) {
			t.Error("Order should not depend on the number of workers")
		}
		previous = got

		if report.Summary != (Summary{Added: 2, Deleted: 2, Unchanged: 2}) {
			t.Errorf("Summary mismatch: %+v", report.Summary)
		}
		if len(report.Outputs()) != 1 {
			t.Errorf("All outputs share one content: %v", report.Outputs())
		}
	}
}

func TestCompareErrors(t *testing.T) {
	t.Run("MissingExpected", func(t *testing.T) {
		expected, actual, _ := newTrees(t)
		os.RemoveAll(expected)

		if _, err := Compare(context.Background(), expected, actual); err == nil {
			t.Error("Missing expected root should fail")
		}
	})

	t.Run("MissingActual", func(t *testing.T) {
		expected, actual, _ := newTrees(t)
		os.RemoveAll(actual)

		if _, err := Compare(context.Background(), expected, actual); err == nil {
			t.Error("Missing actual root should fail")
		}
	})

	t.Run("Undecodable", func(t *testing.T) {
		expected, actual, _ := newTrees(t)
		writePNG(t, filepath.Join(expected, "sub", "corrupt.png"), solid(2, 2, red))
		writeBytes(t, filepath.Join(actual, "sub", "corrupt.png"), []byte("not a png"))
		writePNG(t, filepath.Join(actual, "b.png"), solid(2, 2, red))

		report, err := Compare(context.Background(), expected, actual)
		if err == nil {
			t.Fatal("Undecodable image should abort the comparison")
		}
		if !strings.Contains(err.Error(), filepath.Join(actual, "sub", "corrupt.png")) {
			t.Errorf("Error should name the undecodable file: %v", err)
		}
		if report != nil {
			t.Error("No partial report should be returned")
		}
	})

	t.Run("Cancelled", func(t *testing.T) {
		expected, actual, _ := newTrees(t)
		writePNG(t, filepath.Join(actual, "a.png"), solid(2, 2, red))

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		if _, err := Compare(ctx, expected, actual); err == nil {
			t.Error("Cancelled comparison should fail")
		}
	})
}
