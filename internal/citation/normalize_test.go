package citation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/citesync/internal/doc"
)

func paragraph(content ...*doc.Node) *doc.Node {
	return doc.NewNode(doc.TypeParagraph, nil, content...)
}

func cite(rid string) *doc.Node {
	return doc.NewNode(doc.TypeCitation, doc.Attrs{RidAttr: rid})
}

func models(cs ...*Citation) GetModel {
	byID := make(map[string]Model, len(cs))
	for _, c := range cs {
		byID[c.ID] = c
	}
	return func(id string) (Model, bool) {
		m, ok := byID[id]
		return m, ok
	}
}

func library(ids ...string) GetLibraryItem {
	known := make(map[string]bool, len(ids))
	for _, id := range ids {
		known[id] = true
	}
	return func(id string) (LibraryItem, bool) {
		if !known[id] {
			return LibraryItem{}, false
		}
		return LibraryItem{ID: id}, true
	}
}

type otherModel struct{}

func (otherModel) ModelID() string    { return "x" }
func (otherModel) ObjectType() string { return "MPFigure" }

func TestBuildOccurrences_DocumentOrder(t *testing.T) {
	root := doc.NewNode(doc.TypeDoc, nil,
		doc.NewNode(doc.TypeSection, nil,
			paragraph(doc.NewText("a "), cite("c2"), doc.NewText(" b "), cite("c1")),
		),
		doc.NewNode(doc.TypeSection, nil, paragraph(cite("c3"))),
	)
	get := models(
		&Citation{ID: "c1", Payload: Payload{Items: []ItemRef{{BibliographyItem: "A"}}}},
		&Citation{ID: "c2", Payload: Payload{Items: []ItemRef{{BibliographyItem: "B"}, {BibliographyItem: "C"}}}},
		&Citation{ID: "c3", Payload: Payload{Items: []ItemRef{{BibliographyItem: "A"}}}},
	)

	occs := BuildOccurrences(root, get)

	require.Len(t, occs, 3)
	assert.Equal(t, "c2", occs[0].Node.Attrs.String(RidAttr))
	assert.Equal(t, "c1", occs[1].Node.Attrs.String(RidAttr))
	assert.Equal(t, "c3", occs[2].Node.Attrs.String(RidAttr))
	assert.Equal(t, []int{4, 8, 13}, []int{occs[0].Pos, occs[1].Pos, occs[2].Pos})
	assert.Equal(t, []ItemRef{{BibliographyItem: "B"}, {BibliographyItem: "C"}}, occs[0].Data.Items)
	assert.Equal(t, "c2", occs[0].Data.CitationID)
}

func TestBuildOccurrences_UnresolvedModelsKept(t *testing.T) {
	root := doc.NewNode(doc.TypeDoc, nil, paragraph(cite("gone"), cite("x")))
	get := func(id string) (Model, bool) {
		if id == "x" {
			return otherModel{}, true
		}
		return nil, false
	}

	occs := BuildOccurrences(root, get)

	require.Len(t, occs, 2)
	assert.True(t, occs[0].Data.Empty())
	assert.True(t, occs[1].Data.Empty())
}

func TestBuildOccurrences_NilLookup(t *testing.T) {
	root := doc.NewNode(doc.TypeDoc, nil, paragraph(cite("c1")))

	occs := BuildOccurrences(root, nil)

	require.Len(t, occs, 1)
	assert.True(t, occs[0].Data.Empty())
}

func TestBuildCitations_AlignmentAndMissingItems(t *testing.T) {
	occs := []Occurrence{
		{Data: Payload{CitationID: "c1", Items: []ItemRef{{BibliographyItem: "A", Locator: "p. 4"}}}},
		{Data: Payload{CitationID: "c2", Items: []ItemRef{{BibliographyItem: "B"}}}},
		{Data: Payload{CitationID: "c3"}},
	}

	got := BuildCitations(occs, library("A"), nil)

	require.Len(t, got, 3)
	assert.Equal(t, []NormalizedItem{{ID: "A", Locator: "p. 4"}}, got[0].Items)
	assert.Empty(t, got[1].Items)
	assert.Empty(t, got[2].Items)
	assert.Equal(t, "c2", got[1].CitationID)
	for _, c := range got {
		assert.Equal(t, 0, c.NoteIndex())
	}
}

func TestBuildCitations_NoteIndex(t *testing.T) {
	explicit := 7
	occs := []Occurrence{
		{Data: Payload{Items: []ItemRef{{BibliographyItem: "A"}}}},
		{Data: Payload{Items: []ItemRef{{BibliographyItem: "A"}}, NoteIndex: &explicit}},
		{Data: Payload{Items: []ItemRef{{BibliographyItem: "A"}}}},
	}
	noteStyle := func() Manuscript { return Manuscript{NoteStyle: true} }

	got := BuildCitations(occs, library("A"), noteStyle)

	assert.Equal(t, []int{1, 7, 3}, []int{got[0].NoteIndex(), got[1].NoteIndex(), got[2].NoteIndex()})
}

func TestBuildCitations_Deterministic(t *testing.T) {
	occs := []Occurrence{{Data: Payload{Items: []ItemRef{{BibliographyItem: "A"}, {BibliographyItem: "B"}}}}}

	first := BuildCitations(occs, library("A", "B"), nil)
	second := BuildCitations(occs, library("A", "B"), nil)

	assert.Equal(t, first, second)
	assert.Equal(t, []string{"A", "B"}, first[0].ItemIDs())
}

func TestMissingItems(t *testing.T) {
	occ := Occurrence{Data: Payload{Items: []ItemRef{{BibliographyItem: "A"}, {BibliographyItem: "B"}, {BibliographyItem: "C"}}}}

	assert.Equal(t, []string{"B", "C"}, MissingItems(occ, library("A")))
	assert.Nil(t, MissingItems(occ, library("A", "B", "C")))
}

func TestNameHelpers(t *testing.T) {
	n := Name{Family: "Smith", Given: "Jane Ruth"}

	assert.Equal(t, "Smith", n.Display())
	assert.Equal(t, "J. R.", n.Initials())
	assert.Equal(t, "WHO", Name{Literal: "WHO"}.Display())
	assert.Equal(t, 2020, (&Date{DateParts: [][]int{{2020, 3}}}).Year())
	assert.Equal(t, 0, (*Date)(nil).Year())
	assert.Equal(t, DefaultItemType, LibraryItem{}.ItemType())
}
