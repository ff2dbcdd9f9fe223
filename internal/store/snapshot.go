package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/roach88/citesync/internal/citation"
	"github.com/roach88/citesync/internal/ir"
)

// Snapshot loads the whole library into memory. When manuscriptID is set
// and stored, it becomes the library's manuscript context; a missing
// manuscript is not an error.
func (s *Store) Snapshot(ctx context.Context, manuscriptID string) (*citation.Library, error) {
	lib := citation.NewLibrary()

	items, err := s.ListLibraryItems(ctx)
	if err != nil {
		return nil, fmt.Errorf("snapshot: %w", err)
	}
	for _, it := range items {
		lib.AddItem(it)
	}

	cits, err := s.ListCitations(ctx)
	if err != nil {
		return nil, fmt.Errorf("snapshot: %w", err)
	}
	for _, c := range cits {
		lib.AddModel(c)
	}

	if manuscriptID != "" {
		m, err := s.GetManuscript(ctx, manuscriptID)
		switch {
		case err == nil:
			lib.SetManuscript(m)
		case !errors.Is(err, ErrNotFound):
			return nil, fmt.Errorf("snapshot: %w", err)
		}
	}
	return lib, nil
}

// Fingerprint hashes the stored items and citations. Two stores with the
// same records produce the same fingerprint.
func (s *Store) Fingerprint(ctx context.Context) (string, error) {
	items, err := s.ListLibraryItems(ctx)
	if err != nil {
		return "", fmt.Errorf("fingerprint: %w", err)
	}
	cits, err := s.ListCitations(ctx)
	if err != nil {
		return "", fmt.Errorf("fingerprint: %w", err)
	}
	return ir.Fingerprint(ir.DomainSnapshot, map[string]any{
		"citations": cits,
		"items":     items,
	})
}
