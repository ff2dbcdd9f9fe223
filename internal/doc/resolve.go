package doc

import (
	"fmt"
	"slices"
	"unicode/utf8"
)

// frame is one level of a resolved position: the node and the index of the
// child the position lies in (or before).
type frame struct {
	node  *Node
	index int
}

// resolvedPos locates a position inside the tree. The last frame names the
// parent whose content the position points into.
type resolvedPos struct {
	pos        int
	path       []frame
	textOffset int // rune offset into the text child at the last index, if > 0
}

func (r resolvedPos) parent() *Node { return r.path[len(r.path)-1].node }
func (r resolvedPos) index() int    { return r.path[len(r.path)-1].index }

// sameParent reports whether r and o point into the same parent node.
func (r resolvedPos) sameParent(o resolvedPos) bool {
	if len(r.path) != len(o.path) {
		return false
	}
	last := len(r.path) - 1
	for i := range r.path {
		if r.path[i].node != o.path[i].node {
			return false
		}
		if i < last && r.path[i].index != o.path[i].index {
			return false
		}
	}
	return true
}

func resolve(root *Node, pos int) (resolvedPos, error) {
	if pos < 0 || pos > root.ContentSize() {
		return resolvedPos{}, fmt.Errorf("%w: %d not in [0, %d]", ErrInvalidPosition, pos, root.ContentSize())
	}

	var path []frame
	node, start := root, 0
	for {
		offset, idx, descended := start, len(node.Content), false
		for i, c := range node.Content {
			end := offset + c.NodeSize()
			if pos == offset {
				idx = i
				break
			}
			if pos < end {
				if c.IsText() {
					path = append(path, frame{node: node, index: i})
					return resolvedPos{pos: pos, path: path, textOffset: pos - offset}, nil
				}
				path = append(path, frame{node: node, index: i})
				node, start, descended = c, offset+1, true
				break
			}
			offset = end
		}
		if !descended {
			path = append(path, frame{node: node, index: idx})
			return resolvedPos{pos: pos, path: path}, nil
		}
	}
}

// rebuild replaces the content of the deepest node in path and copies every
// ancestor up to a new root.
func rebuild(path []frame, content []*Node) *Node {
	last := len(path) - 1
	cur := path[last].node.withContent(content)
	return rebuildAbove(path[:last], cur)
}

// rebuildAbove swaps replacement into each ancestor frame, innermost first.
func rebuildAbove(path []frame, replacement *Node) *Node {
	cur := replacement
	for i := len(path) - 1; i >= 0; i-- {
		children := slices.Clone(path[i].node.Content)
		children[path[i].index] = cur
		cur = path[i].node.withContent(children)
	}
	return cur
}

// splitText cuts a text node at a rune offset. Invalid bytes count as one
// rune each, as in NodeSize, and are kept as they are.
func splitText(n *Node, offset int) (*Node, *Node) {
	at := runeByteOffset(n.Text, offset)
	return NewText(n.Text[:at]), NewText(n.Text[at:])
}

// runeByteOffset returns the byte index of the offset-th rune of s.
func runeByteOffset(s string, offset int) int {
	i := 0
	for ; offset > 0 && i < len(s); offset-- {
		_, size := utf8.DecodeRuneInString(s[i:])
		i += size
	}
	return i
}
