package doc

import (
	"fmt"
	"maps"
	"reflect"
	"strings"
	"unicode/utf8"
)

// NodeType names the kind of a node.
type NodeType string

const (
	TypeDoc                 NodeType = "doc"
	TypeSection             NodeType = "section"
	TypeSectionTitle        NodeType = "section_title"
	TypeParagraph           NodeType = "paragraph"
	TypeText                NodeType = "text"
	TypeCitation            NodeType = "citation"
	TypeBibliographySection NodeType = "bibliography_section"
	TypeBibliographyElement NodeType = "bibliography_element"
)

// atomTypes occupy a single position and never have content.
var atomTypes = map[NodeType]bool{
	TypeCitation:            true,
	TypeBibliographyElement: true,
}

// textblockTypes hold inline content (text and citations).
var textblockTypes = map[NodeType]bool{
	TypeParagraph:    true,
	TypeSectionTitle: true,
}

// Attrs holds node attributes. Attrs stored on a Node must not be mutated;
// use With to derive a modified copy.
type Attrs map[string]any

// String returns the attribute as a string, or "" when absent or not a string.
func (a Attrs) String(key string) string {
	s, _ := a[key].(string)
	return s
}

// With returns a copy of a with key set to value.
func (a Attrs) With(key string, value any) Attrs {
	out := make(Attrs, len(a)+1)
	maps.Copy(out, a)
	out[key] = value
	return out
}

// Merge returns a copy of a overlaid with every entry of b.
func (a Attrs) Merge(b Attrs) Attrs {
	out := make(Attrs, len(a)+len(b))
	maps.Copy(out, a)
	maps.Copy(out, b)
	return out
}

// Equal reports whether both attribute sets hold deeply equal values.
func (a Attrs) Equal(b Attrs) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		w, ok := b[k]
		if !ok || !reflect.DeepEqual(v, w) {
			return false
		}
	}
	return true
}

// Node is an immutable document tree node.
type Node struct {
	Type    NodeType
	Attrs   Attrs
	Text    string
	Content []*Node
}

// NewNode builds a container or atom node.
func NewNode(t NodeType, attrs Attrs, content ...*Node) *Node {
	if attrs == nil {
		attrs = Attrs{}
	}
	return &Node{Type: t, Attrs: attrs, Content: content}
}

// NewText builds a text node.
func NewText(s string) *Node {
	return &Node{Type: TypeText, Attrs: Attrs{}, Text: s}
}

// IsText reports whether n is a text node.
func (n *Node) IsText() bool { return n.Type == TypeText }

// IsAtom reports whether n occupies a single position with no content.
func (n *Node) IsAtom() bool { return atomTypes[n.Type] }

// IsLeaf reports whether positions cannot point inside n's content.
func (n *Node) IsLeaf() bool { return n.IsText() || n.IsAtom() }

// IsTextblock reports whether n holds inline content.
func (n *Node) IsTextblock() bool { return textblockTypes[n.Type] }

// IsInline reports whether n may appear inside a textblock.
func (n *Node) IsInline() bool { return n.IsText() || n.Type == TypeCitation }

// NodeSize is the number of positions n occupies in its parent.
func (n *Node) NodeSize() int {
	switch {
	case n.IsText():
		return utf8.RuneCountInString(n.Text)
	case n.IsAtom():
		return 1
	default:
		return 2 + n.ContentSize()
	}
}

// ContentSize is the number of positions inside n.
func (n *Node) ContentSize() int {
	size := 0
	for _, c := range n.Content {
		size += c.NodeSize()
	}
	return size
}

// TextContent concatenates all descendant text.
func (n *Node) TextContent() string {
	if n.IsText() {
		return n.Text
	}
	var b strings.Builder
	for _, c := range n.Content {
		b.WriteString(c.TextContent())
	}
	return b.String()
}

// Descendants walks every descendant of n in document (pre-)order. pos is
// the position directly before the descendant, relative to the start of n's
// content. Returning false from fn skips that descendant's children.
func (n *Node) Descendants(fn func(node *Node, pos int, parent *Node, index int) bool) {
	n.descend(0, fn)
}

func (n *Node) descend(start int, fn func(*Node, int, *Node, int) bool) {
	pos := start
	for i, c := range n.Content {
		if fn(c, pos, n, i) && len(c.Content) > 0 {
			c.descend(pos+1, fn)
		}
		pos += c.NodeSize()
	}
}

// NodeAt returns the node that starts at pos, or nil when no node starts
// there. pos is relative to the start of n's content.
func (n *Node) NodeAt(pos int) *Node {
	offset := 0
	for _, c := range n.Content {
		end := offset + c.NodeSize()
		if pos == offset {
			return c
		}
		if pos > offset && pos < end {
			if c.IsLeaf() {
				return nil
			}
			return c.NodeAt(pos - offset - 1)
		}
		offset = end
	}
	return nil
}

// withContent returns a copy of n with new children.
func (n *Node) withContent(content []*Node) *Node {
	return &Node{Type: n.Type, Attrs: n.Attrs, Text: n.Text, Content: normalizeText(content)}
}

// withAttrs returns a copy of n with new attributes.
func (n *Node) withAttrs(attrs Attrs) *Node {
	return &Node{Type: n.Type, Attrs: attrs, Text: n.Text, Content: n.Content}
}

// normalizeText merges adjacent text nodes and drops empty ones.
func normalizeText(content []*Node) []*Node {
	out := make([]*Node, 0, len(content))
	for _, c := range content {
		if c.IsText() {
			if c.Text == "" {
				continue
			}
			if last := len(out) - 1; last >= 0 && out[last].IsText() {
				out[last] = NewText(out[last].Text + c.Text)
				continue
			}
		}
		out = append(out, c)
	}
	return out
}

// String renders a compact debug form of the tree.
func (n *Node) String() string {
	if n.IsText() {
		return fmt.Sprintf("%q", n.Text)
	}
	if len(n.Content) == 0 {
		return string(n.Type)
	}
	parts := make([]string, len(n.Content))
	for i, c := range n.Content {
		parts[i] = c.String()
	}
	return fmt.Sprintf("%s(%s)", n.Type, strings.Join(parts, ", "))
}
