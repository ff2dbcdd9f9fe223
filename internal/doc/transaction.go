package doc

import (
	"fmt"
	"slices"
)

// Transaction accumulates edits against a document. Each successful edit
// replaces the working document and appends one StepMap to the mapping.
//
// A Transaction is not safe for concurrent use.
type Transaction struct {
	before    *Node
	doc       *Node
	mapping   Mapping
	selection Selection
	selFor    int // number of steps the selection has been mapped through
	meta      map[string]any
}

// NewTransaction starts a transaction on root with the given selection.
func NewTransaction(root *Node, sel Selection) *Transaction {
	if sel == nil {
		sel = Cursor(0)
	}
	return &Transaction{before: root, doc: root, selection: sel, meta: map[string]any{}}
}

// Before returns the document the transaction started from.
func (tr *Transaction) Before() *Node { return tr.before }

// Doc returns the current working document.
func (tr *Transaction) Doc() *Node { return tr.doc }

// Mapping returns the step maps recorded so far.
func (tr *Transaction) Mapping() Mapping { return slices.Clone(tr.mapping) }

// Steps returns the number of recorded steps.
func (tr *Transaction) Steps() int { return len(tr.mapping) }

// DocChanged reports whether any step was applied.
func (tr *Transaction) DocChanged() bool { return len(tr.mapping) > 0 }

// Selection returns the selection mapped through every step applied since it
// was last set.
func (tr *Transaction) Selection() Selection {
	if tr.selFor < len(tr.mapping) {
		tr.selection = tr.selection.Map(tr.doc, tr.mapping[tr.selFor:])
		tr.selFor = len(tr.mapping)
	}
	return tr.selection
}

// SetSelection replaces the selection.
func (tr *Transaction) SetSelection(sel Selection) {
	tr.selection = sel
	tr.selFor = len(tr.mapping)
}

// SetMeta attaches metadata to the transaction.
func (tr *Transaction) SetMeta(key string, value any) {
	tr.meta[key] = value
}

// Meta returns metadata previously stored under key.
func (tr *Transaction) Meta(key string) any {
	return tr.meta[key]
}

func (tr *Transaction) step(next *Node, m StepMap) {
	tr.doc = next
	tr.mapping = append(tr.mapping, m)
}

// InsertText inserts s at pos, which must point into a textblock.
func (tr *Transaction) InsertText(pos int, s string) error {
	if s == "" {
		return nil
	}
	return tr.Insert(pos, NewText(s))
}

// Insert places nodes at pos. Inline nodes need a textblock parent; block
// nodes need a non-textblock parent.
func (tr *Transaction) Insert(pos int, nodes ...*Node) error {
	r, err := resolve(tr.doc, pos)
	if err != nil {
		return fmt.Errorf("insert: %w", err)
	}
	parent := r.parent()
	size := 0
	for _, n := range nodes {
		if n.IsInline() != parent.IsTextblock() {
			return fmt.Errorf("insert: %s not allowed in %s", n.Type, parent.Type)
		}
		size += n.NodeSize()
	}

	idx := r.index()
	content := make([]*Node, 0, len(parent.Content)+len(nodes)+1)
	content = append(content, parent.Content[:idx]...)
	rest := parent.Content[idx:]
	if r.textOffset > 0 {
		left, right := splitText(parent.Content[idx], r.textOffset)
		content = append(content, left)
		rest = append([]*Node{right}, parent.Content[idx+1:]...)
	}
	content = append(content, nodes...)
	content = append(content, rest...)

	tr.step(rebuild(r.path, content), StepMap{Start: pos, NewSize: size})
	return nil
}

// Delete removes the range [from, to), which must lie within one parent.
func (tr *Transaction) Delete(from, to int) error {
	if from == to {
		return nil
	}
	if from > to {
		return fmt.Errorf("delete: inverted range [%d, %d)", from, to)
	}
	rf, err := resolve(tr.doc, from)
	if err != nil {
		return fmt.Errorf("delete: %w", err)
	}
	rt, err := resolve(tr.doc, to)
	if err != nil {
		return fmt.Errorf("delete: %w", err)
	}
	if !rf.sameParent(rt) {
		return fmt.Errorf("delete: range [%d, %d) crosses node boundaries", from, to)
	}

	parent := rf.parent()
	content := slices.Clone(parent.Content[:rf.index()])
	if rf.textOffset > 0 {
		left, _ := splitText(parent.Content[rf.index()], rf.textOffset)
		content = append(content, left)
	}
	if rt.textOffset > 0 {
		_, right := splitText(parent.Content[rt.index()], rt.textOffset)
		content = append(content, right)
		content = append(content, parent.Content[rt.index()+1:]...)
	} else {
		content = append(content, parent.Content[rt.index():]...)
	}

	tr.step(rebuild(rf.path, content), StepMap{Start: from, OldSize: to - from})
	return nil
}

// SetNodeAttrs replaces the attributes of the non-text node starting at pos.
func (tr *Transaction) SetNodeAttrs(pos int, attrs Attrs) error {
	r, err := resolve(tr.doc, pos)
	if err != nil {
		return fmt.Errorf("set attrs: %w", err)
	}
	parent, idx := r.parent(), r.index()
	if r.textOffset > 0 || idx >= len(parent.Content) || parent.Content[idx].IsText() {
		return fmt.Errorf("set attrs: %w %d", ErrNotANode, pos)
	}
	target := parent.Content[idx]
	content := slices.Clone(parent.Content)
	content[idx] = target.withAttrs(attrs)

	size := target.NodeSize()
	tr.step(rebuild(r.path, content), StepMap{Start: pos, OldSize: size, NewSize: size})
	return nil
}

// ReplaceDoc swaps the whole document for root.
func (tr *Transaction) ReplaceDoc(root *Node) {
	tr.step(root, StepMap{Start: 0, OldSize: tr.doc.ContentSize(), NewSize: root.ContentSize()})
}

// Apply runs a mutation against the transaction.
func (tr *Transaction) Apply(m Mutation) error {
	return m.apply(tr)
}
