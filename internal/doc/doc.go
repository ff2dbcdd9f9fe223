// Package doc implements the reference document model the citation
// synchronisation engine runs against.
//
// The model is a persistent tree of typed nodes addressed by integer
// positions. Sizes follow the usual rich-text editor convention:
//
//   - a text node occupies one position per rune
//   - an atom (citation, bibliography element) occupies exactly one position
//   - any other node occupies 2 + the size of its content (open and close token)
//
// Nodes are immutable. Every edit goes through a Transaction, which produces a
// new root and records a Mapping so that positions computed against the old
// document can be translated into the new one.
//
// Typical usage:
//
//	tr := doc.NewTransaction(root, doc.Cursor(0))
//	if err := tr.InsertText(5, "hello"); err != nil { ... }
//	next := tr.Doc()
package doc
