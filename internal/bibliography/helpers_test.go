package bibliography

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/citesync/internal/citation"
	"github.com/roach88/citesync/internal/csl"
	"github.com/roach88/citesync/internal/doc"
	"github.com/roach88/citesync/internal/editor"
	"github.com/roach88/citesync/internal/testutil"
)

// Positions in sampleDoc.
const (
	posC1      = 13
	posC2      = 19
	posBibElem = 24
	posPara    = 9 // start of the paragraph content
)

// sampleDoc builds:
//
//	section(section_title("Intro"), paragraph("See ", cite c1, " and ", cite c2, "."))
//	bibliography_section(bibliography_element)
func sampleDoc() *doc.Node {
	return doc.NewNode(doc.TypeDoc, nil,
		doc.NewNode(doc.TypeSection, nil,
			doc.NewNode(doc.TypeSectionTitle, nil, doc.NewText("Intro")),
			doc.NewNode(doc.TypeParagraph, nil,
				doc.NewText("See "),
				citeNode("c1"),
				doc.NewText(" and "),
				citeNode("c2"),
				doc.NewText("."),
			),
		),
		doc.NewNode(doc.TypeBibliographySection, nil,
			doc.NewNode(doc.TypeBibliographyElement, nil),
		),
	)
}

func citeNode(rid string) *doc.Node {
	return doc.NewNode(doc.TypeCitation, doc.Attrs{citation.RidAttr: rid})
}

func itemA() citation.LibraryItem {
	return citation.LibraryItem{
		ID:             "A",
		Title:          "Alpha results",
		Author:         []citation.Name{{Family: "Smith", Given: "Jane"}},
		ContainerTitle: "Journal of Tests",
		Issued:         &citation.Date{DateParts: [][]int{{2020}}},
		Volume:         "3",
		Page:           "1-9",
		DOI:            "10.1/x",
	}
}

func itemB() citation.LibraryItem {
	return citation.LibraryItem{
		ID:     "B",
		Title:  "Beta methods",
		Author: []citation.Name{{Family: "Adams", Given: "Kim"}},
		Issued: &citation.Date{DateParts: [][]int{{2019}}},
	}
}

func citationModel(id string, items ...string) *citation.Citation {
	c := &citation.Citation{ID: id}
	for _, it := range items {
		c.Items = append(c.Items, citation.ItemRef{BibliographyItem: it})
	}
	return c
}

// testLibrary resolves A but not B. c1 cites A, c2 cites B, c0 cites B and
// c3 cites nothing.
func testLibrary() *citation.Library {
	lib := citation.NewLibrary()
	lib.AddItem(itemA())
	lib.AddModel(citationModel("c0", "B"))
	lib.AddModel(citationModel("c1", "A"))
	lib.AddModel(citationModel("c2", "B"))
	lib.AddModel(citationModel("c3"))
	return lib
}

type fixture struct {
	lib    *citation.Library
	plugin *Plugin
	ed     *editor.Editor
	logs   *bytes.Buffer
}

// newFixture builds an editor over sampleDoc whose plugin renders with the
// processor proc builds for the fixture's library.
func newFixture(t *testing.T, proc func(lib *citation.Library) Processor, opts ...Option) *fixture {
	t.Helper()
	lib := testLibrary()
	logs := &bytes.Buffer{}
	logger := slog.New(slog.NewTextHandler(logs, &slog.HandlerOptions{Level: slog.LevelDebug}))

	base := []Option{WithLogger(logger), WithIDGenerator(testutil.NewFixedIDGenerator(""))}
	p := New(lib.Lookups(), StaticProcessor(proc(lib)), append(base, opts...)...)
	ed := editor.New(sampleDoc(), []editor.Plugin{p}, editor.WithLogger(logger))
	return &fixture{lib: lib, plugin: p, ed: ed, logs: logs}
}

func numeric(lib *citation.Library) Processor {
	return csl.NewProcessor(csl.MustBuiltin("numeric"), lib.Item)
}

func fake(p *testutil.Processor) func(*citation.Library) Processor {
	return func(*citation.Library) Processor { return p }
}

func (f *fixture) refresh(t *testing.T) {
	t.Helper()
	_, err := f.ed.Dispatch(RefreshTransaction(f.ed.State()))
	require.NoError(t, err)
}

func (f *fixture) update(t *testing.T, fn func(tr *doc.Transaction) error) {
	t.Helper()
	_, err := f.ed.Update(fn)
	require.NoError(t, err)
}

func (f *fixture) contents(pos int) string {
	return f.ed.State().Doc.NodeAt(pos).Attrs.String(ContentsAttr)
}

func (f *fixture) outcome() Outcome {
	return f.plugin.Coordinator().LastOutcome()
}

func insertCitation(pos int, rid string) func(tr *doc.Transaction) error {
	return func(tr *doc.Transaction) error {
		return tr.Insert(pos, citeNode(rid))
	}
}

func insertText(pos int, s string) func(tr *doc.Transaction) error {
	return func(tr *doc.Transaction) error {
		return tr.InsertText(pos, s)
	}
}
