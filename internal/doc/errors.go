package doc

import "errors"

var (
	// ErrInvalidPosition is returned for positions outside the document.
	ErrInvalidPosition = errors.New("invalid position")
	// ErrNotANode is returned when a position does not start a non-text node.
	ErrNotANode = errors.New("no node at position")
)
