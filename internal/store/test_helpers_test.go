package store

import (
	"path/filepath"
	"testing"

	"github.com/roach88/citesync/internal/citation"
)

// createTestStore creates a new store in a temporary directory.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestItem creates a library item with minimal required fields.
func createTestItem(id, title string) citation.LibraryItem {
	return citation.LibraryItem{
		ID:     id,
		Title:  title,
		Author: []citation.Name{{Family: "Smith", Given: "Jane"}},
		Issued: &citation.Date{DateParts: [][]int{{2020, 5}}},
	}
}

// createTestCitation creates a citation model referencing items in order.
func createTestCitation(id string, items ...string) *citation.Citation {
	c := &citation.Citation{ID: id}
	for _, it := range items {
		c.Items = append(c.Items, citation.ItemRef{BibliographyItem: it})
	}
	return c
}
