package citation

import (
	"strings"
)

// Name is a CSL-JSON name.
type Name struct {
	Family  string `json:"family,omitempty" yaml:"family,omitempty"`
	Given   string `json:"given,omitempty" yaml:"given,omitempty"`
	Literal string `json:"literal,omitempty" yaml:"literal,omitempty"`
}

// Display returns the family name, falling back to the literal form.
func (n Name) Display() string {
	if n.Family != "" {
		return n.Family
	}
	return n.Literal
}

// Initials returns the given name reduced to initials, e.g. "J. R.".
func (n Name) Initials() string {
	fields := strings.Fields(n.Given)
	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		r := []rune(f)
		parts = append(parts, string(r[0])+".")
	}
	return strings.Join(parts, " ")
}

// Date is a CSL-JSON date.
type Date struct {
	DateParts [][]int `json:"date-parts,omitempty" yaml:"date-parts,omitempty"`
	Literal   string  `json:"literal,omitempty" yaml:"literal,omitempty"`
}

// Year returns the first year of the date, or 0.
func (d *Date) Year() int {
	if d == nil || len(d.DateParts) == 0 || len(d.DateParts[0]) == 0 {
		return 0
	}
	return d.DateParts[0][0]
}

// LibraryItem is bibliographic metadata in CSL-JSON form. Only the fields
// the built-in processor prints are modeled.
type LibraryItem struct {
	ID             string `json:"id" yaml:"id"`
	Type           string `json:"type,omitempty" yaml:"type,omitempty"`
	Title          string `json:"title,omitempty" yaml:"title,omitempty"`
	Author         []Name `json:"author,omitempty" yaml:"author,omitempty"`
	ContainerTitle string `json:"container-title,omitempty" yaml:"container-title,omitempty"`
	Issued         *Date  `json:"issued,omitempty" yaml:"issued,omitempty"`
	Volume         string `json:"volume,omitempty" yaml:"volume,omitempty"`
	Issue          string `json:"issue,omitempty" yaml:"issue,omitempty"`
	Page           string `json:"page,omitempty" yaml:"page,omitempty"`
	Publisher      string `json:"publisher,omitempty" yaml:"publisher,omitempty"`
	DOI            string `json:"DOI,omitempty" yaml:"DOI,omitempty"`
	URL            string `json:"URL,omitempty" yaml:"URL,omitempty"`
}

// DefaultItemType is assigned to items that declare no type.
const DefaultItemType = "article-journal"

// ItemType returns Type or DefaultItemType.
func (it LibraryItem) ItemType() string {
	if it.Type == "" {
		return DefaultItemType
	}
	return it.Type
}

// Manuscript is the document-level context the normalizer reads.
type Manuscript struct {
	ID        string `json:"_id" yaml:"id"`
	Title     string `json:"title,omitempty" yaml:"title,omitempty"`
	Locale    string `json:"locale,omitempty" yaml:"locale,omitempty"`
	NoteStyle bool   `json:"noteStyle,omitempty" yaml:"note_style,omitempty"`
}

// Lookup functions supplied by the host. A nil function behaves as if
// nothing is ever found.
type (
	GetModel       func(id string) (Model, bool)
	GetLibraryItem func(id string) (LibraryItem, bool)
	GetManuscript  func() Manuscript
)

// Lookups bundles the host lookups.
type Lookups struct {
	Model       GetModel
	LibraryItem GetLibraryItem
	Manuscript  GetManuscript
}

// FindModel calls Model if set.
func (l Lookups) FindModel(id string) (Model, bool) {
	if l.Model == nil {
		return nil, false
	}
	return l.Model(id)
}

// FindLibraryItem calls LibraryItem if set.
func (l Lookups) FindLibraryItem(id string) (LibraryItem, bool) {
	if l.LibraryItem == nil {
		return LibraryItem{}, false
	}
	return l.LibraryItem(id)
}

// CurrentManuscript calls Manuscript if set.
func (l Lookups) CurrentManuscript() Manuscript {
	if l.Manuscript == nil {
		return Manuscript{}
	}
	return l.Manuscript()
}
