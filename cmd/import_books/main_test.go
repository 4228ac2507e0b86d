package main

import (
	"bytes"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"library-lending/library"
)

func TestImportRows(t *testing.T) {
	csvData := `title,author,category
Dune,Frank Herbert,Science Fiction
"Gödel, Escher, Bach",Douglas Hofstadter
,Nobody,Fiction
Lonely Title
`
	engine := library.NewEngine()
	var out bytes.Buffer

	res, err := importRows(&out, strings.NewReader(csvData), engine)

	require.NoError(t, err)
	require.Len(t, res.imported, 2)
	assert.Equal(t, 2, res.errors)
	assert.Equal(t, "Science Fiction", res.imported[0].Category)
	assert.Equal(t, "Gödel, Escher, Bach", res.imported[1].Title)
	assert.Equal(t, library.DefaultCategory, res.imported[1].Category)
	assert.Contains(t, out.String(), "Line 4: ERROR")
	assert.Contains(t, out.String(), "Line 5: ERROR")
	assert.Len(t, engine.Books(), 2)
}

func TestImportCmd_PersistsBooks(t *testing.T) {
	dir := t.TempDir()
	csvPath := filepath.Join(dir, "books.csv")
	dbPath := filepath.Join(dir, "lib.db")
	require.NoError(t, os.WriteFile(csvPath, []byte("Dune,Frank Herbert\n"), 0o644))

	cmd := newImportCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs([]string{"--db", dbPath, csvPath})
	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "Successfully imported: 1 books")

	mgr, err := library.NewLibraryManager(dbPath, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	defer mgr.Close()
	books := mgr.GetAllBooks()
	require.Len(t, books, 1)
	assert.Equal(t, "Dune", books[0].Title)
}

func TestImportCmd_MissingFile(t *testing.T) {
	cmd := newImportCmd()
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)
	cmd.SetArgs([]string{"--db", filepath.Join(t.TempDir(), "lib.db"), "/does/not/exist.csv"})

	assert.Error(t, cmd.Execute())
}

func TestTruncateString_KeepsRunesWhole(t *testing.T) {
	assert.Equal(t, "Gödel, Es...", truncateString("Gödel, Escher, Bach", 12))
	assert.Equal(t, "Dune", truncateString("Dune", 50))
}
