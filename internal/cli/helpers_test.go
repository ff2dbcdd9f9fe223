package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"

	"github.com/roach88/citesync/internal/citation"
	"github.com/roach88/citesync/internal/config"
	"github.com/roach88/citesync/internal/store"
)

// testRootOptions returns root options with fixed defaults, independent of
// the environment running the tests.
func testRootOptions(format string) *RootOptions {
	return &RootOptions{
		Format: format,
		Config: config.Config{
			DBPath: config.DefaultDB,
			Style:  config.DefaultStyle,
			Locale: config.DefaultLocale,
			Format: format,
		},
	}
}

// execute runs cmd with args and returns stdout, stderr and the error.
func execute(t *testing.T, cmd *cobra.Command, args ...string) (string, string, error) {
	t.Helper()
	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func alphaItem() citation.LibraryItem {
	return citation.LibraryItem{
		ID:             "A",
		Title:          "Alpha results",
		Author:         []citation.Name{{Family: "Smith", Given: "Jane"}},
		ContainerTitle: "Journal of Tests",
		Issued:         &citation.Date{DateParts: [][]int{{2020}}},
		Volume:         "3",
		Page:           "1-9",
	}
}

func betaItem() citation.LibraryItem {
	return citation.LibraryItem{
		ID:     "B",
		Title:  "Beta methods",
		Author: []citation.Name{{Family: "Adams", Given: "Kim"}},
		Issued: &citation.Date{DateParts: [][]int{{2019}}},
	}
}

// seedLibrary creates a store at dir/library.db holding items.
func seedLibrary(t *testing.T, dir string, items ...citation.LibraryItem) string {
	t.Helper()
	dbPath := filepath.Join(dir, "library.db")
	st, err := store.Open(dbPath)
	require.NoError(t, err)
	defer st.Close()

	_, err = st.PutLibraryItems(context.Background(), items)
	require.NoError(t, err)
	return dbPath
}
