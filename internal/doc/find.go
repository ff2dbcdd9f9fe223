package doc

import (
	"strings"
	"unicode/utf8"
)

// FindText returns the position directly after the first occurrence of s
// inside a single text node.
func FindText(root *Node, s string) (int, bool) {
	found, at := false, 0
	root.Descendants(func(n *Node, pos int, _ *Node, _ int) bool {
		if found {
			return false
		}
		if n.IsText() {
			if i := strings.Index(n.Text, s); i >= 0 {
				found = true
				at = pos + utf8.RuneCountInString(n.Text[:i+len(s)])
			}
		}
		return true
	})
	return at, found
}

// FindNodes returns the positions of every node of type t in document order.
func FindNodes(root *Node, t NodeType) []int {
	var out []int
	root.Descendants(func(n *Node, pos int, _ *Node, _ int) bool {
		if n.Type == t {
			out = append(out, pos)
		}
		return true
	})
	return out
}
