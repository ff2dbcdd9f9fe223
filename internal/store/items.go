package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/citesync/internal/citation"
)

// PutLibraryItem inserts or replaces a library item.
// Returns changed=false when an identical record is already stored.
//
// The item is serialized to canonical JSON per RFC 8785; the content hash
// of that form decides whether an existing row is rewritten.
func (s *Store) PutLibraryItem(ctx context.Context, it citation.LibraryItem) (changed bool, err error) {
	return putLibraryItem(ctx, s.db, it)
}

// execer is satisfied by both *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func putLibraryItem(ctx context.Context, db execer, it citation.LibraryItem) (bool, error) {
	if it.ID == "" {
		return false, errors.New("put library item: empty id")
	}
	data, err := marshalRecord("library item", it)
	if err != nil {
		return false, fmt.Errorf("put library item %s: %w", it.ID, err)
	}
	hash, err := itemHash(it)
	if err != nil {
		return false, fmt.Errorf("put library item %s: %w", it.ID, err)
	}

	// The WHERE clause turns identical re-imports into no-ops, which
	// RowsAffected then reports as unchanged.
	result, err := db.ExecContext(ctx, `
		INSERT INTO library_items (id, item_type, title, data, content_hash)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			item_type = excluded.item_type,
			title = excluded.title,
			data = excluded.data,
			content_hash = excluded.content_hash
		WHERE library_items.content_hash != excluded.content_hash
	`,
		it.ID,
		it.ItemType(),
		it.Title,
		data,
		hash,
	)
	if err != nil {
		return false, fmt.Errorf("put library item %s: %w", it.ID, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("put library item %s: rows affected: %w", it.ID, err)
	}
	return n > 0, nil
}

// PutLibraryItems stores items in one transaction and returns how many
// rows changed. Either every item is stored or none is.
func (s *Store) PutLibraryItems(ctx context.Context, items []citation.LibraryItem) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("put library items: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	changed := 0
	for _, it := range items {
		ok, err := putLibraryItem(ctx, tx, it)
		if err != nil {
			return 0, err
		}
		if ok {
			changed++
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("put library items: commit: %w", err)
	}
	return changed, nil
}

// GetLibraryItem returns the item with id, or ErrNotFound.
func (s *Store) GetLibraryItem(ctx context.Context, id string) (citation.LibraryItem, error) {
	var data string
	err := s.db.QueryRowContext(ctx, `SELECT data FROM library_items WHERE id = ?`, id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return citation.LibraryItem{}, fmt.Errorf("library item %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return citation.LibraryItem{}, fmt.Errorf("get library item %s: %w", id, err)
	}
	return unmarshalItem(data)
}

// ListLibraryItems returns every item ordered by id.
//
// Returns an empty slice (not nil) if the library is empty.
func (s *Store) ListLibraryItems(ctx context.Context) ([]citation.LibraryItem, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT data FROM library_items
		ORDER BY id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query library items: %w", err)
	}
	defer rows.Close()

	items := []citation.LibraryItem{}
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("scan library item: %w", err)
		}
		it, err := unmarshalItem(data)
		if err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate library items: %w", err)
	}
	return items, nil
}

// DeleteLibraryItem removes an item. Citations that reference it become
// unresolved; they are not touched.
func (s *Store) DeleteLibraryItem(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM library_items WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete library item %s: %w", id, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete library item %s: rows affected: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("library item %s: %w", id, ErrNotFound)
	}
	return nil
}
