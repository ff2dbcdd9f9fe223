package bibliography

import (
	"github.com/roach88/citesync/internal/citation"
	"github.com/roach88/citesync/internal/doc"
	"github.com/roach88/citesync/internal/editor"
)

// Decoration classes.
const (
	ClassCitationMissing     = "citation-missing"
	ClassCitationEmpty       = "citation-empty"
	ClassBibliographyMissing = "bibliography-missing"
)

// MissingBibliographyText is shown over the bibliography while any citation
// references an unresolved item.
const MissingBibliographyText = "The bibliography could not be generated, due to a missing library item."

// BuildDecorations marks unresolved citation items and empty citations. When
// any item is missing, every bibliography element additionally gets a
// missing marker and a warning widget. The document is never changed.
func BuildDecorations(root *doc.Node, occs []citation.Occurrence, getLibraryItem citation.GetLibraryItem) []editor.Decoration {
	var out []editor.Decoration
	missing := false

	for _, occ := range occs {
		from, to := occ.Pos, occ.Pos+occ.Node.NodeSize()
		if occ.Data.Empty() {
			out = append(out, editor.Decoration{
				Kind:  editor.DecorationNode,
				From:  from,
				To:    to,
				Class: ClassCitationEmpty,
			})
			continue
		}
		for _, id := range citation.MissingItems(occ, getLibraryItem) {
			missing = true
			out = append(out, editor.Decoration{
				Kind:  editor.DecorationNode,
				From:  from,
				To:    to,
				Class: ClassCitationMissing,
				Spec:  map[string]any{"item": id},
			})
		}
	}

	if !missing {
		return out
	}
	for _, pos := range doc.FindNodes(root, doc.TypeBibliographyElement) {
		node := root.NodeAt(pos)
		out = append(out,
			editor.Decoration{
				Kind: editor.DecorationNode,
				From: pos,
				To:   pos + node.NodeSize(),
				Spec: map[string]any{"missing": true},
			},
			editor.Decoration{
				Kind:  editor.DecorationWidget,
				From:  pos,
				To:    pos,
				Class: ClassBibliographyMissing,
				Widget: &editor.Widget{
					Class: ClassBibliographyMissing,
					Text:  MissingBibliographyText,
				},
			},
		)
	}
	return out
}
