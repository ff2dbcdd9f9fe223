package store

import (
	"encoding/json"
	"fmt"

	"github.com/roach88/citesync/internal/citation"
	"github.com/roach88/citesync/internal/ir"
)

// marshalRecord converts a record to canonical JSON TEXT for storage.
// Uses RFC 8785 canonical JSON so equal records store identical bytes.
func marshalRecord(kind string, v any) (string, error) {
	data, err := ir.MarshalCanonical(v)
	if err != nil {
		return "", fmt.Errorf("marshal %s: %w", kind, err)
	}
	return string(data), nil
}

// itemHash fingerprints a library item's canonical form.
func itemHash(it citation.LibraryItem) (string, error) {
	h, err := ir.Fingerprint(ir.DomainLibraryItem, it)
	if err != nil {
		return "", fmt.Errorf("hash library item %s: %w", it.ID, err)
	}
	return h, nil
}

func unmarshalItem(data string) (citation.LibraryItem, error) {
	var it citation.LibraryItem
	if err := json.Unmarshal([]byte(data), &it); err != nil {
		return citation.LibraryItem{}, fmt.Errorf("unmarshal library item: %w", err)
	}
	return it, nil
}

func unmarshalCitation(data string) (*citation.Citation, error) {
	var c citation.Citation
	if err := json.Unmarshal([]byte(data), &c); err != nil {
		return nil, fmt.Errorf("unmarshal citation: %w", err)
	}
	return &c, nil
}

func unmarshalManuscript(data string) (citation.Manuscript, error) {
	var m citation.Manuscript
	if err := json.Unmarshal([]byte(data), &m); err != nil {
		return citation.Manuscript{}, fmt.Errorf("unmarshal manuscript: %w", err)
	}
	return m, nil
}
