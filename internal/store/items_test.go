package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/citesync/internal/citation"
)

func TestPutLibraryItem_RoundTrip(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	want := createTestItem("A", "Alpha results")
	want.DOI = "10.1/x"
	want.ContainerTitle = "Journal of Tests"

	changed, err := s.PutLibraryItem(ctx, want)
	require.NoError(t, err)
	assert.True(t, changed)

	got, err := s.GetLibraryItem(ctx, "A")
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestPutLibraryItem_UnchangedIsNoOp(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	it := createTestItem("A", "Alpha")

	_, err := s.PutLibraryItem(ctx, it)
	require.NoError(t, err)

	changed, err := s.PutLibraryItem(ctx, it)
	require.NoError(t, err)
	assert.False(t, changed, "identical record should not be rewritten")

	it.Title = "Alpha, revised"
	changed, err = s.PutLibraryItem(ctx, it)
	require.NoError(t, err)
	assert.True(t, changed)

	got, err := s.GetLibraryItem(ctx, "A")
	require.NoError(t, err)
	assert.Equal(t, "Alpha, revised", got.Title)
}

func TestPutLibraryItem_EmptyID(t *testing.T) {
	s := createTestStore(t)
	_, err := s.PutLibraryItem(context.Background(), citation.LibraryItem{})
	assert.Error(t, err)
}

func TestPutLibraryItems_Batch(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	n, err := s.PutLibraryItems(ctx, []citation.LibraryItem{
		createTestItem("B", "Beta"),
		createTestItem("A", "Alpha"),
	})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = s.PutLibraryItems(ctx, []citation.LibraryItem{
		createTestItem("A", "Alpha"),
		createTestItem("C", "Gamma"),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	items, err := s.ListLibraryItems(ctx)
	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.Equal(t, []string{"A", "B", "C"}, []string{items[0].ID, items[1].ID, items[2].ID})
}

func TestPutLibraryItems_RollsBackOnError(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	_, err := s.PutLibraryItems(ctx, []citation.LibraryItem{
		createTestItem("A", "Alpha"),
		{},
	})
	require.Error(t, err)

	items, err := s.ListLibraryItems(ctx)
	require.NoError(t, err)
	assert.Empty(t, items)
	assert.NotNil(t, items, "empty slice, not nil")
}

func TestGetLibraryItem_NotFound(t *testing.T) {
	s := createTestStore(t)

	_, err := s.GetLibraryItem(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteLibraryItem(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	_, err := s.PutLibraryItem(ctx, createTestItem("A", "Alpha"))
	require.NoError(t, err)

	require.NoError(t, s.DeleteLibraryItem(ctx, "A"))
	_, err = s.GetLibraryItem(ctx, "A")
	assert.ErrorIs(t, err, ErrNotFound)

	assert.ErrorIs(t, s.DeleteLibraryItem(ctx, "A"), ErrNotFound)
}

func TestStoredDataIsCanonical(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	_, err := s.PutLibraryItem(ctx, citation.LibraryItem{ID: "A", Title: "Alpha", Type: "book"})
	require.NoError(t, err)

	var data, itemType string
	err = s.DB().QueryRow(`SELECT data, item_type FROM library_items WHERE id = 'A'`).Scan(&data, &itemType)
	require.NoError(t, err)
	assert.Equal(t, `{"id":"A","title":"Alpha","type":"book"}`, data)
	assert.Equal(t, "book", itemType)
}
