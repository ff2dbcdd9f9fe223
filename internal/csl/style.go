package csl

import (
	"embed"
	"fmt"
	"os"
	"path"
	"slices"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
)

// Layout selects how in-text citations are labelled.
type Layout string

const (
	LayoutNumeric    Layout = "numeric"
	LayoutAuthorDate Layout = "author-date"
)

// Class distinguishes in-text styles from note styles.
type Class string

const (
	ClassInText Class = "in-text"
	ClassNote   Class = "note"
)

// Sort orders bibliography entries.
type Sort string

const (
	SortCitationNumber Sort = "citation-number"
	SortAuthor         Sort = "author"
)

// CitationFormat controls in-text labels.
type CitationFormat struct {
	Layout    Layout
	Prefix    string
	Suffix    string
	Delimiter string
	// Collapse renders runs of three or more consecutive numbers as a range.
	Collapse bool
}

// BibliographyFormat controls bibliography entries.
type BibliographyFormat struct {
	Sort      Sort
	TitleCase bool
	// MaxAuthors truncates author lists with "et al."; 0 means no limit.
	MaxAuthors int
}

// Style is a compiled citation style.
type Style struct {
	Name         string
	Title        string
	Class        Class
	Citation     CitationFormat
	Bibliography BibliographyFormat
}

// StyleError is a style compilation error with source position.
type StyleError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *StyleError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// CompileStyle parses one style struct. The style name is the last path
// selector, e.g. for:
//
//	ctx := cuecontext.New()
//	v := ctx.CompileString(`style: numeric: { class: "in-text", ... }`)
//	s, err := CompileStyle(v.LookupPath(cue.ParsePath("style.numeric")))
func CompileStyle(v cue.Value) (*Style, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	s := &Style{}
	if labels := v.Path().Selectors(); len(labels) > 0 {
		s.Name = labels[len(labels)-1].String()
	}

	var err error
	if s.Name, err = stringField(v, "name", s.Name); err != nil {
		return nil, err
	}
	if s.Title, err = stringField(v, "title", s.Name); err != nil {
		return nil, err
	}

	class, err := enumField(v, "class", string(ClassInText), string(ClassInText), string(ClassNote))
	if err != nil {
		return nil, err
	}
	s.Class = Class(class)

	if !v.LookupPath(cue.ParsePath("citation")).Exists() {
		return nil, &StyleError{Field: "citation", Message: "citation is required", Pos: v.Pos()}
	}
	layout, err := enumField(v, "citation.layout", "", string(LayoutNumeric), string(LayoutAuthorDate))
	if err != nil {
		return nil, err
	}
	if layout == "" {
		return nil, &StyleError{Field: "citation.layout", Message: "citation.layout is required", Pos: v.Pos()}
	}
	s.Citation.Layout = Layout(layout)

	defaultPrefix, defaultSuffix, defaultDelim := "[", "]", ","
	if s.Citation.Layout == LayoutAuthorDate {
		defaultPrefix, defaultSuffix, defaultDelim = "(", ")", "; "
	}
	if s.Citation.Prefix, err = stringField(v, "citation.prefix", defaultPrefix); err != nil {
		return nil, err
	}
	if s.Citation.Suffix, err = stringField(v, "citation.suffix", defaultSuffix); err != nil {
		return nil, err
	}
	if s.Citation.Delimiter, err = stringField(v, "citation.delimiter", defaultDelim); err != nil {
		return nil, err
	}
	if s.Citation.Collapse, err = boolField(v, "citation.collapse", false); err != nil {
		return nil, err
	}

	defaultSort := string(SortCitationNumber)
	if s.Citation.Layout == LayoutAuthorDate {
		defaultSort = string(SortAuthor)
	}
	sort, err := enumField(v, "bibliography.sort", defaultSort, string(SortCitationNumber), string(SortAuthor))
	if err != nil {
		return nil, err
	}
	s.Bibliography.Sort = Sort(sort)
	if s.Bibliography.TitleCase, err = boolField(v, "bibliography.title_case", false); err != nil {
		return nil, err
	}

	if maxVal := v.LookupPath(cue.ParsePath("bibliography.max_authors")); maxVal.Exists() {
		n, err := maxVal.Int64()
		if err != nil {
			return nil, &StyleError{Field: "bibliography.max_authors", Message: "must be an integer", Pos: maxVal.Pos()}
		}
		if n < 0 {
			return nil, &StyleError{Field: "bibliography.max_authors", Message: "must not be negative", Pos: maxVal.Pos()}
		}
		s.Bibliography.MaxAuthors = int(n)
	}

	return s, nil
}

func stringField(v cue.Value, field, def string) (string, error) {
	fv := v.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		return def, nil
	}
	s, err := fv.String()
	if err != nil {
		return "", &StyleError{Field: field, Message: "must be a string", Pos: fv.Pos()}
	}
	return s, nil
}

func boolField(v cue.Value, field string, def bool) (bool, error) {
	fv := v.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		return def, nil
	}
	b, err := fv.Bool()
	if err != nil {
		return false, &StyleError{Field: field, Message: "must be a boolean", Pos: fv.Pos()}
	}
	return b, nil
}

func enumField(v cue.Value, field, def string, allowed ...string) (string, error) {
	s, err := stringField(v, field, def)
	if err != nil {
		return "", err
	}
	if s != "" && !slices.Contains(allowed, s) {
		return "", &StyleError{
			Field:   field,
			Message: fmt.Sprintf("invalid value %q (expected one of: %s)", s, strings.Join(allowed, ", ")),
			Pos:     v.LookupPath(cue.ParsePath(field)).Pos(),
		}
	}
	return s, nil
}

// CompileStyles compiles every style declared under the top-level "style"
// field of src, in declaration order.
func CompileStyles(src []byte, filename string) ([]*Style, error) {
	ctx := cuecontext.New()
	v := ctx.CompileBytes(src, cue.Filename(filename))
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	stylesVal := v.LookupPath(cue.ParsePath("style"))
	if !stylesVal.Exists() {
		return nil, &StyleError{Field: "style", Message: "no style declared", Pos: v.Pos()}
	}
	iter, err := stylesVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var styles []*Style
	for iter.Next() {
		s, err := CompileStyle(iter.Value())
		if err != nil {
			return nil, fmt.Errorf("style %s: %w", iter.Label(), err)
		}
		styles = append(styles, s)
	}
	if len(styles) == 0 {
		return nil, &StyleError{Field: "style", Message: "no style declared", Pos: stylesVal.Pos()}
	}
	return styles, nil
}

// LoadStyleFile compiles a CUE file that declares exactly one style.
func LoadStyleFile(filename string) (*Style, error) {
	src, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("read style: %w", err)
	}
	styles, err := CompileStyles(src, filename)
	if err != nil {
		return nil, err
	}
	if len(styles) != 1 {
		return nil, fmt.Errorf("%s declares %d styles, expected 1", filename, len(styles))
	}
	return styles[0], nil
}

//go:embed styles/*.cue
var builtinFS embed.FS

// BuiltinNames lists the bundled styles.
func BuiltinNames() []string {
	entries, _ := builtinFS.ReadDir("styles")
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, strings.TrimSuffix(e.Name(), ".cue"))
	}
	return names
}

// Builtin compiles a bundled style by name.
func Builtin(name string) (*Style, error) {
	file := path.Join("styles", name+".cue")
	src, err := builtinFS.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("unknown built-in style %q (available: %s)", name, strings.Join(BuiltinNames(), ", "))
	}
	styles, err := CompileStyles(src, file)
	if err != nil {
		return nil, err
	}
	return styles[0], nil
}

// MustBuiltin is like Builtin but panics on error.
func MustBuiltin(name string) *Style {
	s, err := Builtin(name)
	if err != nil {
		panic(err)
	}
	return s
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}
	first := errs[0]
	if positions := errors.Positions(first); len(positions) > 0 {
		return &StyleError{Field: "cue", Message: first.Error(), Pos: positions[0]}
	}
	return err
}
