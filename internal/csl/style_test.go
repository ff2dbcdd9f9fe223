package csl

import (
	"os"
	"path/filepath"
	"testing"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompileStyleBasic(t *testing.T) {
	ctx := cuecontext.New()
	v := ctx.CompileString(`
		style: vancouver: {
			title: "Vancouver"
			citation: {
				layout: "numeric"
				collapse: true
			}
			bibliography: max_authors: 3
		}
	`)
	require.NoError(t, v.Err())

	s, err := CompileStyle(v.LookupPath(cue.ParsePath("style.vancouver")))
	require.NoError(t, err)

	assert.Equal(t, "vancouver", s.Name)
	assert.Equal(t, "Vancouver", s.Title)
	assert.Equal(t, ClassInText, s.Class)
	assert.Equal(t, CitationFormat{Layout: LayoutNumeric, Prefix: "[", Suffix: "]", Delimiter: ",", Collapse: true}, s.Citation)
	assert.Equal(t, BibliographyFormat{Sort: SortCitationNumber, MaxAuthors: 3}, s.Bibliography)
}

func TestCompileStyleAuthorDateDefaults(t *testing.T) {
	ctx := cuecontext.New()
	v := ctx.CompileString(`style: apa: citation: layout: "author-date"`)
	require.NoError(t, v.Err())

	s, err := CompileStyle(v.LookupPath(cue.ParsePath("style.apa")))
	require.NoError(t, err)

	assert.Equal(t, "(", s.Citation.Prefix)
	assert.Equal(t, ")", s.Citation.Suffix)
	assert.Equal(t, "; ", s.Citation.Delimiter)
	assert.Equal(t, SortAuthor, s.Bibliography.Sort)
}

func TestCompileStyleErrors(t *testing.T) {
	tests := []struct {
		name  string
		src   string
		field string
		msg   string
	}{
		{"missing citation", `style: x: { title: "X" }`, "citation", "required"},
		{"missing layout", `style: x: citation: prefix: "["`, "citation.layout", "required"},
		{"bad layout", `style: x: citation: layout: "footnotes"`, "citation.layout", "invalid value"},
		{"bad class", `style: x: { class: "margin", citation: layout: "numeric" }`, "class", "invalid value"},
		{"non-string prefix", `style: x: citation: { layout: "numeric", prefix: 1 }`, "citation.prefix", "must be a string"},
		{"negative max", `style: x: { citation: layout: "numeric", bibliography: max_authors: -1 }`, "bibliography.max_authors", "negative"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := cuecontext.New().CompileString(tt.src)
			require.NoError(t, v.Err())

			_, err := CompileStyle(v.LookupPath(cue.ParsePath("style.x")))
			require.Error(t, err)

			var se *StyleError
			require.ErrorAs(t, err, &se)
			assert.Equal(t, tt.field, se.Field)
			assert.Contains(t, se.Message, tt.msg)
		})
	}
}

func TestCompileStyles_SyntaxErrorHasPosition(t *testing.T) {
	_, err := CompileStyles([]byte("style: x: {\n  citation: layout: \n"), "broken.cue")
	require.Error(t, err)

	var se *StyleError
	require.ErrorAs(t, err, &se)
	assert.True(t, se.Pos.IsValid())
	assert.Contains(t, err.Error(), "broken.cue")
}

func TestCompileStyles_NoStyle(t *testing.T) {
	_, err := CompileStyles([]byte(`other: 1`), "empty.cue")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no style declared")
}

func TestLoadStyleFile(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "mine.cue")
	require.NoError(t, os.WriteFile(file, []byte(`style: mine: citation: layout: "numeric"`), 0o644))

	s, err := LoadStyleFile(file)
	require.NoError(t, err)
	assert.Equal(t, "mine", s.Name)

	two := filepath.Join(dir, "two.cue")
	require.NoError(t, os.WriteFile(two, []byte(`
		style: a: citation: layout: "numeric"
		style: b: citation: layout: "numeric"
	`), 0o644))
	_, err = LoadStyleFile(two)
	assert.ErrorContains(t, err, "declares 2 styles")

	_, err = LoadStyleFile(filepath.Join(dir, "missing.cue"))
	assert.Error(t, err)
}

func TestBuiltinStyles(t *testing.T) {
	assert.ElementsMatch(t, []string{"numeric", "author-date", "footnote"}, BuiltinNames())

	for _, name := range BuiltinNames() {
		s, err := Builtin(name)
		require.NoError(t, err, name)
		assert.Equal(t, name, s.Name)
	}

	assert.Equal(t, ClassNote, MustBuiltin("footnote").Class)

	_, err := Builtin("chicago")
	assert.ErrorContains(t, err, "unknown built-in style")
}
