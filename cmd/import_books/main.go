// Command import_books loads catalog rows from a CSV file into the library
// state file. Each row is title,author[,category]; a header row is skipped.
package main

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"library-lending/library"
)

func main() {
	if err := newImportCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newImportCmd() *cobra.Command {
	var dbPath string
	cmd := &cobra.Command{
		Use:          "import_books <file.csv>",
		Short:        "Import books from a CSV file (title,author[,category])",
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), nil))
			manager, err := library.NewLibraryManager(dbPath, logger)
			if err != nil {
				return fmt.Errorf("open library: %w", err)
			}
			defer manager.Close()

			return runImport(cmd.OutOrStdout(), f, manager)
		},
	}
	defaultPath := os.Getenv("LIBRARY_DB_PATH")
	if defaultPath == "" {
		defaultPath = "library.db"
	}
	cmd.Flags().StringVar(&dbPath, "db", defaultPath, "path to the SQLite state file")
	return cmd
}

type importResult struct {
	imported []library.Book
	errors   int
}

// importRows adds every usable row to the engine. Rows without a title or
// author are reported and counted as errors.
func importRows(out io.Writer, r io.Reader, engine *library.Engine) (importResult, error) {
	var res importResult
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	for line := 1; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return res, nil
		}
		if err != nil {
			return res, err
		}
		if line == 1 && isHeader(rec) {
			continue
		}
		if len(rec) < 2 || strings.TrimSpace(rec[0]) == "" || strings.TrimSpace(rec[1]) == "" {
			fmt.Fprintf(out, "Line %d: ERROR - title and author are required\n", line)
			res.errors++
			continue
		}
		category := ""
		if len(rec) > 2 {
			category = strings.TrimSpace(rec[2])
		}
		b := engine.AddBook(strings.TrimSpace(rec[0]), strings.TrimSpace(rec[1]), category)
		fmt.Fprintf(out, "Importing: %s by %s... SUCCESS (ID: %d)\n", b.Title, b.Author, b.ID)
		res.imported = append(res.imported, b)
	}
}

func isHeader(rec []string) bool {
	return len(rec) >= 2 &&
		strings.EqualFold(strings.TrimSpace(rec[0]), "title") &&
		strings.EqualFold(strings.TrimSpace(rec[1]), "author")
}

func runImport(out io.Writer, r io.Reader, manager *library.LibraryManager) error {
	res, err := importRows(out, r, manager.Engine())
	if err != nil {
		return fmt.Errorf("read csv: %w", err)
	}
	if len(res.imported) > 0 {
		if err := manager.Save(); err != nil {
			return err
		}
	}

	fmt.Fprintf(out, "\nImport complete!\n")
	fmt.Fprintf(out, "Successfully imported: %d books\n", len(res.imported))
	fmt.Fprintf(out, "Errors: %d\n", res.errors)

	if len(res.imported) > 0 {
		fmt.Fprintln(out, "\nImported books:")
		fmt.Fprintf(out, "%-4s %-50s %-30s %s\n", "ID", "Title", "Author", "Category")
		fmt.Fprintln(out, strings.Repeat("-", 100))
		for _, book := range res.imported {
			fmt.Fprintf(out, "%-4d %-50s %-30s %s\n", book.ID, truncateString(book.Title, 50), truncateString(book.Author, 30), book.Category)
		}
	}
	return nil
}

func truncateString(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(r[:maxLen])
	}
	return string(r[:maxLen-3]) + "..."
}
