package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/citesync/internal/citation"
)

// PutCitation inserts or replaces a citation model and its item index.
func (s *Store) PutCitation(ctx context.Context, c *citation.Citation) error {
	if c.ID == "" {
		return errors.New("put citation: empty id")
	}
	data, err := marshalRecord("citation", c)
	if err != nil {
		return fmt.Errorf("put citation %s: %w", c.ID, err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("put citation %s: begin tx: %w", c.ID, err)
	}
	defer tx.Rollback() // No-op if committed

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO citation_models (id, data) VALUES (?, ?)
		ON CONFLICT(id) DO UPDATE SET data = excluded.data
	`, c.ID, data); err != nil {
		return fmt.Errorf("put citation %s: %w", c.ID, err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM citation_model_items WHERE citation_id = ?`, c.ID); err != nil {
		return fmt.Errorf("put citation %s: clear items: %w", c.ID, err)
	}
	for i, ref := range c.Items {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO citation_model_items (citation_id, position, item_id) VALUES (?, ?, ?)
		`, c.ID, i, ref.BibliographyItem); err != nil {
			return fmt.Errorf("put citation %s: item %d: %w", c.ID, i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("put citation %s: commit: %w", c.ID, err)
	}
	return nil
}

// GetCitation returns the citation model with id, or ErrNotFound.
func (s *Store) GetCitation(ctx context.Context, id string) (*citation.Citation, error) {
	var data string
	err := s.db.QueryRowContext(ctx, `SELECT data FROM citation_models WHERE id = ?`, id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("citation %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get citation %s: %w", id, err)
	}
	return unmarshalCitation(data)
}

// ListCitations returns every citation model ordered by id.
func (s *Store) ListCitations(ctx context.Context) ([]*citation.Citation, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT data FROM citation_models
		ORDER BY id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query citations: %w", err)
	}
	defer rows.Close()

	out := []*citation.Citation{}
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("scan citation: %w", err)
		}
		c, err := unmarshalCitation(data)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate citations: %w", err)
	}
	return out, nil
}

// CitationsReferencing returns the ids of citations that reference itemID,
// ordered by id.
func (s *Store) CitationsReferencing(ctx context.Context, itemID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT citation_id FROM citation_model_items
		WHERE item_id = ?
		ORDER BY citation_id COLLATE BINARY ASC
	`, itemID)
	if err != nil {
		return nil, fmt.Errorf("query citations referencing %s: %w", itemID, err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan citation id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate citation ids: %w", err)
	}
	return ids, nil
}

// PutManuscript inserts or replaces the manuscript context.
func (s *Store) PutManuscript(ctx context.Context, m citation.Manuscript) error {
	if m.ID == "" {
		return errors.New("put manuscript: empty id")
	}
	data, err := marshalRecord("manuscript", m)
	if err != nil {
		return fmt.Errorf("put manuscript %s: %w", m.ID, err)
	}
	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO manuscripts (id, data) VALUES (?, ?)
		ON CONFLICT(id) DO UPDATE SET data = excluded.data
	`, m.ID, data); err != nil {
		return fmt.Errorf("put manuscript %s: %w", m.ID, err)
	}
	return nil
}

// GetManuscript returns the manuscript with id, or ErrNotFound.
func (s *Store) GetManuscript(ctx context.Context, id string) (citation.Manuscript, error) {
	var data string
	err := s.db.QueryRowContext(ctx, `SELECT data FROM manuscripts WHERE id = ?`, id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return citation.Manuscript{}, fmt.Errorf("manuscript %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return citation.Manuscript{}, fmt.Errorf("get manuscript %s: %w", id, err)
	}
	return unmarshalManuscript(data)
}
