package doc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sample builds:
//
//	doc(section(section_title("Intro"), paragraph("See ", citation, " now")), bibliography_section(bibliography_element))
func sample() *Node {
	return NewNode(TypeDoc, nil,
		NewNode(TypeSection, nil,
			NewNode(TypeSectionTitle, nil, NewText("Intro")),
			NewNode(TypeParagraph, nil,
				NewText("See "),
				NewNode(TypeCitation, Attrs{"rid": "c1"}),
				NewText(" now"),
			),
		),
		NewNode(TypeBibliographySection, nil,
			NewNode(TypeBibliographyElement, Attrs{"id": "bib1"}),
		),
	)
}

func TestNodeSize(t *testing.T) {
	root := sample()

	assert.Equal(t, 5, NewText("héllo").NodeSize())
	assert.Equal(t, 1, NewNode(TypeCitation, nil).NodeSize())
	// section = 2 + title(2+5) + paragraph(2+4+1+4)
	assert.Equal(t, 20, root.Content[0].NodeSize())
	assert.Equal(t, 3, root.Content[1].NodeSize())
	assert.Equal(t, 23, root.ContentSize())
}

func TestDescendants_PreOrderPositions(t *testing.T) {
	root := sample()

	type visit struct {
		typ NodeType
		pos int
	}
	var got []visit
	root.Descendants(func(n *Node, pos int, _ *Node, _ int) bool {
		got = append(got, visit{n.Type, pos})
		return true
	})

	assert.Equal(t, []visit{
		{TypeSection, 0},
		{TypeSectionTitle, 1},
		{TypeText, 2},
		{TypeParagraph, 8},
		{TypeText, 9},
		{TypeCitation, 13},
		{TypeText, 14},
		{TypeBibliographySection, 20},
		{TypeBibliographyElement, 21},
	}, got)
}

func TestDescendants_SkipChildren(t *testing.T) {
	root := sample()

	var types []NodeType
	root.Descendants(func(n *Node, _ int, _ *Node, _ int) bool {
		types = append(types, n.Type)
		return n.Type != TypeSection
	})

	assert.Equal(t, []NodeType{TypeSection, TypeBibliographySection, TypeBibliographyElement}, types)
}

func TestNodeAt(t *testing.T) {
	root := sample()

	require.NotNil(t, root.NodeAt(13))
	assert.Equal(t, TypeCitation, root.NodeAt(13).Type)
	assert.Equal(t, TypeBibliographyElement, root.NodeAt(21).Type)
	assert.Equal(t, TypeText, root.NodeAt(9).Type)
	assert.Nil(t, root.NodeAt(10), "inside a text node")
	assert.Nil(t, root.NodeAt(23), "end of document")
}

func TestAttrs_WithCopies(t *testing.T) {
	a := Attrs{"rid": "c1"}
	b := a.With("contents", "[1]")

	assert.Equal(t, "", a.String("contents"))
	assert.Equal(t, "[1]", b.String("contents"))
	assert.False(t, a.Equal(b))
	assert.True(t, b.Equal(Attrs{"rid": "c1", "contents": "[1]"}))
}

func TestFindText(t *testing.T) {
	root := sample()

	pos, ok := FindText(root, "See")
	require.True(t, ok)
	assert.Equal(t, 12, pos)

	_, ok = FindText(root, "absent")
	assert.False(t, ok)

	assert.Equal(t, []int{13}, FindNodes(root, TypeCitation))
}
