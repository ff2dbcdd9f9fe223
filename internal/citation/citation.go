// Package citation extracts citation occurrences from a document tree and
// normalizes them into the records a style processor consumes.
//
// Both steps are pure: the same tree and lookups always produce the same
// output, and nothing is cached here.
package citation

import "github.com/roach88/citesync/internal/doc"

// ObjectTypeCitation is the model type of citation records.
const ObjectTypeCitation = "MPCitation"

// ItemRef points at one bibliography item from inside a citation.
type ItemRef struct {
	BibliographyItem string `json:"bibliographyItem" yaml:"bibliography_item"`
	Locator          string `json:"locator,omitempty" yaml:"locator,omitempty"`
	Prefix           string `json:"prefix,omitempty" yaml:"prefix,omitempty"`
	Suffix           string `json:"suffix,omitempty" yaml:"suffix,omitempty"`
}

// Payload is the citation data a citation node carries through its model.
// Items are in document order.
type Payload struct {
	CitationID string    `json:"citationID,omitempty" yaml:"citation_id,omitempty"`
	Items      []ItemRef `json:"embeddedCitationItems" yaml:"items"`
	NoteIndex  *int      `json:"noteIndex,omitempty" yaml:"note_index,omitempty"`
}

// Empty reports whether the payload references no items.
func (p Payload) Empty() bool { return len(p.Items) == 0 }

// Model is any record reachable through a node's rid attribute.
type Model interface {
	ModelID() string
	ObjectType() string
}

// Citation is the citation model.
type Citation struct {
	ID      string `json:"_id" yaml:"id"`
	Payload `yaml:",inline"`
}

func (c *Citation) ModelID() string    { return c.ID }
func (c *Citation) ObjectType() string { return ObjectTypeCitation }

// Occurrence is one citation node found in the tree. Node is the node as it
// was when extracted; Pos is its position in that tree.
type Occurrence struct {
	Node *doc.Node
	Pos  int
	Data Payload
}

// NormalizedItem is one entry of a normalized citation.
type NormalizedItem struct {
	ID      string `json:"id"`
	Locator string `json:"locator,omitempty"`
	Prefix  string `json:"prefix,omitempty"`
	Suffix  string `json:"suffix,omitempty"`
}

// Properties carries ordering hints for the style processor.
type Properties struct {
	NoteIndex *int `json:"noteIndex,omitempty"`
}

// Normalized is a citation in the shape style processors expect.
type Normalized struct {
	CitationID string           `json:"citationID,omitempty"`
	Items      []NormalizedItem `json:"citationItems"`
	Properties *Properties      `json:"properties,omitempty"`
}

// NoteIndex returns the note index hint, or 0 when none is set.
func (n Normalized) NoteIndex() int {
	if n.Properties == nil || n.Properties.NoteIndex == nil {
		return 0
	}
	return *n.Properties.NoteIndex
}

// ItemIDs returns the referenced item ids in order.
func (n Normalized) ItemIDs() []string {
	out := make([]string, len(n.Items))
	for i, it := range n.Items {
		out[i] = it.ID
	}
	return out
}
