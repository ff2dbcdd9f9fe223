package citation

import (
	"slices"

	"github.com/roach88/citesync/internal/doc"
)

// RidAttr is the node attribute that names a citation's model.
const RidAttr = "rid"

// BuildOccurrences collects every citation node under root in document
// order. A node whose model is missing, or is not a citation model, is kept
// with an empty payload.
func BuildOccurrences(root *doc.Node, getModel GetModel) []Occurrence {
	lookups := Lookups{Model: getModel}
	var out []Occurrence
	root.Descendants(func(n *doc.Node, pos int, _ *doc.Node, _ int) bool {
		if n.Type != doc.TypeCitation {
			return true
		}
		occ := Occurrence{Node: n, Pos: pos}
		if m, ok := lookups.FindModel(n.Attrs.String(RidAttr)); ok {
			if c, ok := m.(*Citation); ok {
				occ.Data = Payload{
					CitationID: c.CitationID,
					Items:      slices.Clone(c.Items),
					NoteIndex:  c.NoteIndex,
				}
				if occ.Data.CitationID == "" {
					occ.Data.CitationID = c.ID
				}
			}
		}
		out = append(out, occ)
		return false
	})
	return out
}

// BuildCitations normalizes occurrences, keeping index alignment 1:1. Items
// whose library record cannot be found are left out, so such an occurrence
// may normalize to an empty item list.
//
// The note index is the payload's explicit value when set; otherwise the
// 1-based occurrence number for note styles, and 0 for in-text styles.
func BuildCitations(occs []Occurrence, getLibraryItem GetLibraryItem, getManuscript GetManuscript) []Normalized {
	lookups := Lookups{LibraryItem: getLibraryItem, Manuscript: getManuscript}
	manuscript := lookups.CurrentManuscript()

	out := make([]Normalized, len(occs))
	for i, occ := range occs {
		items := make([]NormalizedItem, 0, len(occ.Data.Items))
		for _, ref := range occ.Data.Items {
			if _, ok := lookups.FindLibraryItem(ref.BibliographyItem); !ok {
				continue
			}
			items = append(items, NormalizedItem{
				ID:      ref.BibliographyItem,
				Locator: ref.Locator,
				Prefix:  ref.Prefix,
				Suffix:  ref.Suffix,
			})
		}

		noteIndex := 0
		switch {
		case occ.Data.NoteIndex != nil:
			noteIndex = *occ.Data.NoteIndex
		case manuscript.NoteStyle:
			noteIndex = i + 1
		}

		out[i] = Normalized{
			CitationID: occ.Data.CitationID,
			Items:      items,
			Properties: &Properties{NoteIndex: &noteIndex},
		}
	}
	return out
}

// MissingItems returns the ids referenced by occ that the library cannot
// resolve, in order.
func MissingItems(occ Occurrence, getLibraryItem GetLibraryItem) []string {
	lookups := Lookups{LibraryItem: getLibraryItem}
	var missing []string
	for _, ref := range occ.Data.Items {
		if _, ok := lookups.FindLibraryItem(ref.BibliographyItem); !ok {
			missing = append(missing, ref.BibliographyItem)
		}
	}
	return missing
}
