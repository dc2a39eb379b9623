package imgdiff

// Kind represents the classification of a single image path
type Kind string

const (
	KindAdded     Kind = "added"
	KindDeleted   Kind = "deleted"
	KindChanged   Kind = "changed"
	KindUnchanged Kind = "unchanged"
)

// Kinds lists every outcome kind in summary order
var Kinds = []Kind{KindAdded, KindDeleted, KindChanged, KindUnchanged}

func (k Kind) String() string {
	return string(k)
}

// IsChange reports whether the kind counts towards has_changes
func (k Kind) IsChange() bool {
	return k == KindAdded || k == KindDeleted || k == KindChanged
}

// Entry holds the fields shared by every outcome
type Entry struct {
	Name    string
	Reasons []string
}

// Base returns the shared outcome fields
func (e Entry) Base() Entry {
	return e
}

// Outcome is one of AddedImage, DeletedImage, ChangedImage or UnchangedImage.
// The set is closed: the unexported marker keeps other packages from adding kinds.
type Outcome interface {
	Kind() Kind
	Base() Entry
	outcome()
}

// AddedImage exists only in the actual tree
type AddedImage struct {
	Entry
	ActualMD5  string
	ActualFile string
}

// DeletedImage exists only in the expected tree
type DeletedImage struct {
	Entry
	ExpectedMD5 string
}

// ChangedImage exists in both trees and differs beyond tolerance.
// DiffFile is empty when no highlight raster was produced.
type ChangedImage struct {
	Entry
	ActualMD5    string
	ActualFile   string
	ExpectedMD5  string
	ExpectedFile string
	DiffFile     string
}

// UnchangedImage exists in both trees and is identical or within tolerance
type UnchangedImage struct {
	Entry
	ActualMD5    string
	ActualFile   string
	ExpectedMD5  string
	ExpectedFile string
}

func (AddedImage) Kind() Kind     { return KindAdded }
func (DeletedImage) Kind() Kind   { return KindDeleted }
func (ChangedImage) Kind() Kind   { return KindChanged }
func (UnchangedImage) Kind() Kind { return KindUnchanged }

func (AddedImage) outcome()     {}
func (DeletedImage) outcome()   {}
func (ChangedImage) outcome()   {}
func (UnchangedImage) outcome() {}
