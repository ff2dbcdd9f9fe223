package doc

import "fmt"

// Mutation is a follow-up edit requested by a plugin. Mutations are values
// so they can be compared and recorded before being applied.
type Mutation interface {
	apply(tr *Transaction) error
}

// SetAttrs replaces the attributes of the node starting at Pos.
type SetAttrs struct {
	Pos   int
	Attrs Attrs
}

func (m SetAttrs) apply(tr *Transaction) error {
	return tr.SetNodeAttrs(m.Pos, m.Attrs)
}

func (m SetAttrs) String() string {
	return fmt.Sprintf("set_attrs(%d)", m.Pos)
}

// ReselectNode puts a node selection on the node starting at Pos.
type ReselectNode struct {
	Pos int
}

func (m ReselectNode) apply(tr *Transaction) error {
	sel, err := SelectNode(tr.Doc(), m.Pos)
	if err != nil {
		return fmt.Errorf("reselect: %w", err)
	}
	tr.SetSelection(sel)
	return nil
}

func (m ReselectNode) String() string {
	return fmt.Sprintf("reselect(%d)", m.Pos)
}
