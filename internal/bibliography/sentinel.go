package bibliography

import (
	"maps"

	"github.com/roach88/citesync/internal/csl"
)

// SentinelTable maps processor placeholder outputs to the text written into
// the document.
type SentinelTable map[string]string

// DefaultSentinels renders "[NO_PRINTED_FORM]" as an empty label.
func DefaultSentinels() SentinelTable {
	return SentinelTable{csl.NoPrintedForm: ""}
}

// Map returns the replacement for text, or text itself.
func (t SentinelTable) Map(text string) string {
	if r, ok := t[text]; ok {
		return r
	}
	return text
}

// Clone returns a copy that can be modified independently.
func (t SentinelTable) Clone() SentinelTable {
	return maps.Clone(t)
}
