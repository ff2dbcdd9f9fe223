package doc

import "fmt"

// Selection is either a TextSelection or a NodeSelection.
type Selection interface {
	From() int
	To() int
	// Map translates the selection into doc through m.
	Map(doc *Node, m Mapping) Selection
	isSelection()
}

// TextSelection is a text range between Anchor and Head. Equal values form
// a cursor.
type TextSelection struct {
	Anchor int
	Head   int
}

// Cursor returns a collapsed text selection at pos.
func Cursor(pos int) TextSelection {
	return TextSelection{Anchor: pos, Head: pos}
}

func (s TextSelection) From() int { return min(s.Anchor, s.Head) }
func (s TextSelection) To() int   { return max(s.Anchor, s.Head) }

// Empty reports whether the selection is a cursor.
func (s TextSelection) Empty() bool { return s.Anchor == s.Head }

func (s TextSelection) Map(doc *Node, m Mapping) Selection {
	limit := doc.ContentSize()
	return TextSelection{
		Anchor: clamp(m.Map(s.Anchor, 1), limit),
		Head:   clamp(m.Map(s.Head, 1), limit),
	}
}

func (TextSelection) isSelection() {}

func (s TextSelection) String() string {
	return fmt.Sprintf("text(%d,%d)", s.Anchor, s.Head)
}

// NodeSelection selects the single node starting at Pos.
type NodeSelection struct {
	Pos  int
	Size int
}

// SelectNode builds a node selection for the node that starts at pos.
func SelectNode(doc *Node, pos int) (NodeSelection, error) {
	node := doc.NodeAt(pos)
	if node == nil {
		return NodeSelection{}, fmt.Errorf("%w %d", ErrNotANode, pos)
	}
	return NodeSelection{Pos: pos, Size: node.NodeSize()}, nil
}

func (s NodeSelection) From() int { return s.Pos }
func (s NodeSelection) To() int   { return s.Pos + s.Size }

// Map keeps the node selected unless a step replaced the node, in which case
// the selection collapses to a cursor at the mapped position.
func (s NodeSelection) Map(doc *Node, m Mapping) Selection {
	r := m.MapResult(s.Pos, 1)
	if r.Deleted {
		return Cursor(clamp(r.Pos, doc.ContentSize()))
	}
	sel, err := SelectNode(doc, r.Pos)
	if err != nil {
		return Cursor(clamp(r.Pos, doc.ContentSize()))
	}
	return sel
}

func (NodeSelection) isSelection() {}

func (s NodeSelection) String() string {
	return fmt.Sprintf("node(%d)", s.Pos)
}

func clamp(pos, limit int) int {
	return max(0, min(pos, limit))
}
